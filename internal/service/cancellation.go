package service

import (
	"context"
	"errors"
	"fmt"
	"math"

	"studiobook/internal/database"
	"studiobook/internal/domain"
	"studiobook/internal/events"
	"studiobook/internal/metrics"
	"studiobook/internal/models"
	"studiobook/internal/notify"

	"github.com/rs/zerolog"
)

// CancellationService handles admin-initiated cancellations. The processor
// refund always runs before any local mutation: a failed refund leaves the
// booking untouched, while a refund that succeeded is never re-run even if
// the local update fails afterwards.
type CancellationService struct {
	store    domain.Store
	gateway  domain.PaymentGateway
	mail     domain.MailQueue
	eventBus domain.EventPublisher
	logger   *zerolog.Logger
}

func NewCancellationService(store domain.Store, gateway domain.PaymentGateway, mail domain.MailQueue, eventBus domain.EventPublisher, logger *zerolog.Logger) *CancellationService {
	return &CancellationService{
		store:    store,
		gateway:  gateway,
		mail:     mail,
		eventBus: eventBus,
		logger:   logger,
	}
}

func (s *CancellationService) CancelBooking(ctx context.Context, bookingID, refundPolicy, reason string) (*models.CancelResult, error) {
	if bookingID == "" || reason == "" {
		return nil, fmt.Errorf("%w: booking id and reason are required", domain.ErrValidation)
	}

	switch refundPolicy {
	case models.RefundPolicyFull, models.RefundPolicyPartial, models.RefundPolicyNone:
	default:
		return nil, fmt.Errorf("%w: unknown refund policy %q", domain.ErrValidation, refundPolicy)
	}

	booking, err := s.store.GetBooking(ctx, bookingID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, fmt.Errorf("%w: booking %s", domain.ErrNotFound, bookingID)
		}
		return nil, fmt.Errorf("%w: fetch booking: %v", domain.ErrPersistence, err)
	}

	if booking.IsTerminal() {
		return nil, fmt.Errorf("%w: booking %s is already %s", domain.ErrConflict, bookingID, booking.Status)
	}

	refundAmount := refundAmountFor(refundPolicy, booking.Price)
	refundStatus := "none"

	if refundAmount > 0 && booking.PaymentIntentID != "" {
		refund, err := s.gateway.CreateRefund(ctx, domain.RefundRequest{
			PaymentReference: booking.PaymentIntentID,
			AmountCents:      int64(math.Round(refundAmount * 100)),
			Reason:           "requested_by_customer",
			Metadata: map[string]string{
				"booking_id":          booking.ID,
				"cancellation_reason": reason,
			},
		})
		if err != nil {
			metrics.IncRefund(refundPolicy, "processor_error")
			return nil, err
		}
		refundAmount = float64(refund.AmountCents) / 100
		refundStatus = refund.Status

		s.logger.Info().
			Str("booking_id", booking.ID).
			Str("refund_id", refund.RefundID).
			Float64("refund_amount", refundAmount).
			Msg("processor refund succeeded")
	} else {
		refundAmount = 0
	}

	finalStatus := models.StatusCancelled
	if refundAmount > 0 {
		finalStatus = models.StatusRefunded
	}

	result := &models.CancelResult{
		BookingID:    booking.ID,
		Status:       finalStatus,
		RefundAmount: refundAmount,
		RefundStatus: refundStatus,
	}

	if err := s.store.ApplyCancellation(ctx, booking.ID, finalStatus, reason, refundAmount, refundStatus); err != nil {
		// The money already moved; failing hard here would invite a
		// double refund on retry. Surface a warning-success instead.
		if refundAmount > 0 {
			s.logger.Error().Err(err).
				Str("booking_id", booking.ID).
				Float64("refund_amount", refundAmount).
				Msg("refund succeeded but local update failed, state is stale")
			metrics.IncRefund(refundPolicy, "local_update_failed")
			result.Warning = "refund processed but booking record was not updated; reconcile manually"
			return result, nil
		}
		if errors.Is(err, database.ErrTerminalState) {
			return nil, fmt.Errorf("%w: booking %s is already cancelled", domain.ErrConflict, bookingID)
		}
		return nil, fmt.Errorf("%w: apply cancellation: %v", domain.ErrPersistence, err)
	}

	metrics.IncRefund(refundPolicy, "ok")

	s.enqueueEmail(domain.Email{
		Kind:         notify.KindBookingCancellation,
		To:           booking.CustomerEmail,
		CustomerName: booking.CustomerName,
		ServiceName:  booking.ServiceName,
		BookingDate:  booking.BookingDate,
		BookingTime:  booking.BookingTime,
		Amount:       refundAmount,
		Reason:       reason,
		BookingID:    booking.ID,
	})

	eventType := events.EventBookingCancelled
	if finalStatus == models.StatusRefunded {
		eventType = events.EventBookingRefunded
	}
	s.publishCancellation(eventType, booking, finalStatus, refundAmount, reason)

	// The slot freed up and totals changed; keep the customer aggregate honest.
	if booking.CustomerID != "" {
		if err := s.store.RecomputeCustomerStats(ctx, booking.CustomerID); err != nil {
			s.logger.Warn().Err(err).
				Str("customer_id", booking.CustomerID).
				Msg("customer stats recompute failed")
		}
	}

	s.logger.Info().
		Str("booking_id", booking.ID).
		Str("status", finalStatus).
		Float64("refund_amount", refundAmount).
		Msg("booking cancelled")
	return result, nil
}

func refundAmountFor(policy string, price float64) float64 {
	switch policy {
	case models.RefundPolicyFull:
		return price
	case models.RefundPolicyPartial:
		return math.Round(price*models.PartialRefundPercent) / 100
	default:
		return 0
	}
}

func (s *CancellationService) enqueueEmail(email domain.Email) {
	if s.mail == nil || email.To == "" {
		return
	}
	if !s.mail.Enqueue(email) {
		s.logger.Warn().
			Str("kind", email.Kind).
			Str("booking_id", email.BookingID).
			Msg("notification dropped, mail queue full")
	}
}

func (s *CancellationService) publishCancellation(eventType string, booking *models.Booking, status string, refundAmount float64, reason string) {
	if s.eventBus == nil {
		return
	}
	payload := events.BookingEventPayload{
		BookingID:     booking.ID,
		SessionID:     booking.SessionID,
		ServiceName:   booking.ServiceName,
		BookingDate:   booking.BookingDate,
		BookingTime:   booking.BookingTime,
		CustomerEmail: booking.CustomerEmail,
		Status:        status,
		Price:         booking.Price,
		RefundAmount:  refundAmount,
		Reason:        reason,
	}
	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Warn().Err(err).Str("event", eventType).Msg("event publish failed")
	}
}
