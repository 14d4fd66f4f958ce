package service

import (
	"context"
	"fmt"
	"math"
	"net/mail"
	"time"

	"studiobook/internal/domain"
	"studiobook/internal/models"
	"studiobook/internal/payments"

	"github.com/rs/zerolog"
)

// CheckoutService opens hosted payment sessions for booking drafts. It
// persists nothing; every record is created by the reconciliation handler
// once the processor reports the payment.
type CheckoutService struct {
	gateway  domain.PaymentGateway
	currency string
	baseURL  string
	logger   *zerolog.Logger
}

func NewCheckoutService(gateway domain.PaymentGateway, currency, baseURL string, logger *zerolog.Logger) *CheckoutService {
	if currency == "" {
		currency = models.DefaultCurrency
	}
	return &CheckoutService{
		gateway:  gateway,
		currency: currency,
		baseURL:  baseURL,
		logger:   logger,
	}
}

// CreateCheckout validates the draft and opens a hosted session carrying the
// draft as session metadata.
func (s *CheckoutService) CreateCheckout(ctx context.Context, draft models.BookingDraft) (*models.CheckoutSession, error) {
	if err := validateDraft(draft); err != nil {
		return nil, err
	}

	metadata, err := payments.DraftMetadata(draft)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	// Rounding, not truncation: 399.995 must not undercharge to 39999.
	amountCents := int64(math.Round(draft.Price * 100))

	session, err := s.gateway.CreateHostedSession(ctx, domain.HostedSessionRequest{
		AmountCents:   amountCents,
		Currency:      s.currency,
		ProductName:   draft.ServiceName,
		Description:   fmt.Sprintf("Booking for %s at %s", draft.Date, draft.Time),
		CustomerEmail: draft.CustomerEmail,
		SuccessURL:    s.baseURL + "/booking/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:     s.baseURL + "/booking/cancel",
		Metadata:      metadata,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("session_id", session.SessionID).
		Str("service", draft.ServiceName).
		Str("date", draft.Date).
		Str("time", draft.Time).
		Int64("amount_cents", amountCents).
		Msg("checkout session created")

	return session, nil
}

// CheckoutStatus retrieves the processor's view of a session for the
// success-page poll.
func (s *CheckoutService) CheckoutStatus(ctx context.Context, sessionID string) (*domain.SessionStatus, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("%w: session id is required", domain.ErrValidation)
	}
	return s.gateway.RetrieveSession(ctx, sessionID)
}

func validateDraft(draft models.BookingDraft) error {
	if draft.ServiceName == "" {
		return fmt.Errorf("%w: service name is required", domain.ErrValidation)
	}
	if draft.CustomerName == "" {
		return fmt.Errorf("%w: customer name is required", domain.ErrValidation)
	}
	if _, err := mail.ParseAddress(draft.CustomerEmail); err != nil {
		return fmt.Errorf("%w: invalid customer email", domain.ErrValidation)
	}
	if _, err := time.Parse("2006-01-02", draft.Date); err != nil {
		return fmt.Errorf("%w: date must be YYYY-MM-DD", domain.ErrValidation)
	}
	if _, err := time.Parse("15:04", draft.Time); err != nil {
		return fmt.Errorf("%w: time must be HH:MM", domain.ErrValidation)
	}
	if draft.Price <= 0 {
		return fmt.Errorf("%w: price must be positive", domain.ErrValidation)
	}
	return nil
}
