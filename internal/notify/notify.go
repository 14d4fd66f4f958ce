package notify

import (
	"context"
	"fmt"

	"studiobook/internal/domain"

	"github.com/rs/zerolog"
)

// Email kinds routed to templates.
const (
	KindBookingConfirmation = "booking_confirmation"
	KindBookingCancellation = "booking_cancellation"
	KindPaymentFailed       = "payment_failed"
	KindRefundNotification  = "refund_notification"
)

// Subject returns the customer-facing subject line for an email kind.
func Subject(kind string) string {
	switch kind {
	case KindBookingConfirmation:
		return "Booking Confirmed - Your Appointment Details"
	case KindBookingCancellation:
		return "Booking Cancelled - Confirmation"
	case KindPaymentFailed:
		return "Payment Failed - Action Required"
	case KindRefundNotification:
		return "Refund Processed - Confirmation"
	default:
		return "Booking Update"
	}
}

// ConsoleNotifier logs emails instead of delivering them. It backs
// deployments where email is disabled and every test.
type ConsoleNotifier struct {
	logger *zerolog.Logger
}

func NewConsoleNotifier(logger *zerolog.Logger) *ConsoleNotifier {
	return &ConsoleNotifier{logger: logger}
}

func (n *ConsoleNotifier) Send(_ context.Context, email domain.Email) error {
	n.logger.Info().
		Str("kind", email.Kind).
		Str("to", email.To).
		Str("subject", Subject(email.Kind)).
		Str("booking_id", email.BookingID).
		Msg("email suppressed, delivery disabled")
	return nil
}

func renderBody(email domain.Email) (string, error) {
	switch email.Kind {
	case KindBookingConfirmation:
		return fmt.Sprintf(confirmationHTML,
			email.CustomerName, email.ServiceName, email.BookingDate,
			email.BookingTime, email.Amount, email.BookingID), nil
	case KindBookingCancellation:
		return fmt.Sprintf(cancellationHTML,
			email.CustomerName, email.ServiceName, email.BookingDate,
			email.BookingTime, email.Reason, email.Amount, email.BookingID), nil
	case KindPaymentFailed:
		return fmt.Sprintf(paymentFailedHTML,
			email.CustomerName, email.ServiceName, email.BookingDate,
			email.BookingTime, email.Amount, email.BookingID), nil
	case KindRefundNotification:
		return fmt.Sprintf(refundHTML,
			email.CustomerName, email.ServiceName, email.BookingDate,
			email.BookingTime, email.Amount, email.BookingID), nil
	default:
		return "", fmt.Errorf("unknown email kind %q", email.Kind)
	}
}
