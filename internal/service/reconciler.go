package service

import (
	"context"
	"errors"
	"fmt"

	"studiobook/internal/database"
	"studiobook/internal/domain"
	"studiobook/internal/events"
	"studiobook/internal/models"
	"studiobook/internal/notify"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ReconcilerService applies asynchronous payment-processor events to the
// booking ledger. It is the only writer for webhook-driven state: bookings,
// payments and customers converge here regardless of delivery order or
// duplicate deliveries.
type ReconcilerService struct {
	store    domain.Store
	locker   domain.Locker
	mail     domain.MailQueue
	eventBus domain.EventPublisher
	logger   *zerolog.Logger
}

func NewReconcilerService(store domain.Store, locker domain.Locker, mail domain.MailQueue, eventBus domain.EventPublisher, logger *zerolog.Logger) *ReconcilerService {
	return &ReconcilerService{
		store:    store,
		locker:   locker,
		mail:     mail,
		eventBus: eventBus,
		logger:   logger,
	}
}

// HandleEvent dispatches one processor event. Store write failures surface
// as ErrPersistence so the webhook boundary returns a retryable status; the
// processor redelivers and the upserts absorb the replay.
func (s *ReconcilerService) HandleEvent(ctx context.Context, event *domain.PaymentEvent) error {
	key := event.SessionID
	if key == "" {
		key = event.PaymentReference
	}
	if key == "" {
		return fmt.Errorf("%w: event carries no session or payment reference", domain.ErrValidation)
	}

	return s.locker.WithSessionLock(ctx, key, func(ctx context.Context) error {
		switch event.Kind {
		case domain.EventCheckoutCompleted:
			return s.handleCheckoutCompleted(ctx, event)
		case domain.EventPaymentSucceeded:
			return s.handlePaymentStatus(ctx, event, models.PaymentSucceeded)
		case domain.EventPaymentFailed:
			return s.handlePaymentFailed(ctx, event)
		case domain.EventChargeRefunded:
			return s.handleChargeRefunded(ctx, event)
		default:
			s.logger.Debug().Str("kind", event.Kind).Msg("ignoring unhandled event kind")
			return nil
		}
	})
}

func (s *ReconcilerService) handleCheckoutCompleted(ctx context.Context, event *domain.PaymentEvent) error {
	draft := event.Draft
	if draft == nil {
		draft = &models.BookingDraft{}
	}

	email := event.CustomerEmail
	if email == "" {
		email = draft.CustomerEmail
	}
	name := event.CustomerName
	if name == "" {
		name = draft.CustomerName
	}
	phone := event.CustomerPhone
	if phone == "" {
		phone = draft.CustomerPhone
	}

	var customer *models.Customer
	if email != "" {
		var err error
		customer, err = s.store.UpsertCustomer(ctx, &models.Customer{
			ID:    uuid.NewString(),
			Name:  name,
			Email: email,
			Phone: phone,
		})
		if err != nil {
			return fmt.Errorf("%w: upsert customer: %v", domain.ErrPersistence, err)
		}
	}

	price := event.Amount
	if price == 0 {
		price = draft.Price
	}

	booking := &models.Booking{
		ID:              uuid.NewString(),
		PackageID:       draft.PackageID,
		ServiceName:     draft.ServiceName,
		SlotTemplateID:  draft.SlotTemplateID,
		BookingDate:     draft.Date,
		BookingTime:     draft.Time,
		CustomerName:    name,
		CustomerEmail:   email,
		CustomerPhone:   phone,
		Price:           price,
		SessionID:       event.SessionID,
		PaymentIntentID: event.PaymentReference,
	}
	if customer != nil {
		booking.CustomerID = customer.ID
	}

	stored, newlyConfirmed, err := s.store.ConfirmBookingBySession(ctx, booking)
	if err != nil {
		return fmt.Errorf("%w: confirm booking: %v", domain.ErrPersistence, err)
	}

	payment := &models.Payment{
		ID:               uuid.NewString(),
		BookingID:        stored.ID,
		CustomerID:       stored.CustomerID,
		SessionID:        event.SessionID,
		PaymentReference: event.PaymentReference,
		Amount:           price,
		Currency:         event.Currency,
		Status:           models.PaymentSucceeded,
	}
	if err := s.store.UpsertPaymentBySession(ctx, payment); err != nil {
		return fmt.Errorf("%w: upsert payment: %v", domain.ErrPersistence, err)
	}

	// Stats are derived data; a recompute failure must not force the
	// processor to redeliver an already-applied event.
	if stored.CustomerID != "" {
		if err := s.store.RecomputeCustomerStats(ctx, stored.CustomerID); err != nil {
			s.logger.Warn().Err(err).
				Str("customer_id", stored.CustomerID).
				Msg("customer stats recompute failed")
		}
	}

	if newlyConfirmed {
		s.enqueueEmail(domain.Email{
			Kind:         notify.KindBookingConfirmation,
			To:           stored.CustomerEmail,
			CustomerName: stored.CustomerName,
			ServiceName:  stored.ServiceName,
			BookingDate:  stored.BookingDate,
			BookingTime:  stored.BookingTime,
			Amount:       stored.Price,
			BookingID:    stored.ID,
		})
		s.publishBookingEvent(events.EventBookingConfirmed, stored, 0, "")
	}

	s.logger.Info().
		Str("session_id", event.SessionID).
		Str("booking_id", stored.ID).
		Bool("newly_confirmed", newlyConfirmed).
		Msg("checkout completed reconciled")
	return nil
}

// handlePaymentStatus covers the secondary confirmation signal: no booking
// mutation, and no matching payment row yet is a no-op rather than an error.
func (s *ReconcilerService) handlePaymentStatus(ctx context.Context, event *domain.PaymentEvent, status string) error {
	changed, err := s.store.UpdatePaymentStatusByRef(ctx, event.PaymentReference, status)
	if err != nil {
		return fmt.Errorf("%w: update payment status: %v", domain.ErrPersistence, err)
	}
	if !changed {
		s.logger.Debug().
			Str("payment_reference", event.PaymentReference).
			Str("status", status).
			Msg("payment status event had no effect")
	}
	return nil
}

func (s *ReconcilerService) handlePaymentFailed(ctx context.Context, event *domain.PaymentEvent) error {
	if err := s.handlePaymentStatus(ctx, event, models.PaymentFailed); err != nil {
		return err
	}

	booking, cancelled, err := s.store.CancelBookingByPaymentRef(ctx, event.PaymentReference, "Payment failed")
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("%w: cancel booking: %v", domain.ErrPersistence, err)
	}

	if cancelled {
		s.enqueueEmail(domain.Email{
			Kind:         notify.KindPaymentFailed,
			To:           booking.CustomerEmail,
			CustomerName: booking.CustomerName,
			ServiceName:  booking.ServiceName,
			BookingDate:  booking.BookingDate,
			BookingTime:  booking.BookingTime,
			Amount:       booking.Price,
			BookingID:    booking.ID,
		})
		s.publishBookingEvent(events.EventPaymentFailed, booking, 0, "Payment failed")
	}

	s.logger.Info().
		Str("payment_reference", event.PaymentReference).
		Bool("booking_cancelled", cancelled).
		Msg("payment failure reconciled")
	return nil
}

func (s *ReconcilerService) handleChargeRefunded(ctx context.Context, event *domain.PaymentEvent) error {
	changed, err := s.store.UpdatePaymentStatusByRef(ctx, event.PaymentReference, models.PaymentRefunded)
	if err != nil {
		return fmt.Errorf("%w: update payment status: %v", domain.ErrPersistence, err)
	}

	booking, err := s.store.GetBookingByPaymentRef(ctx, event.PaymentReference)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("%w: fetch booking: %v", domain.ErrPersistence, err)
	}

	if changed {
		refundAmount := booking.RefundAmount
		if refundAmount == 0 {
			refundAmount = booking.Price
		}
		s.enqueueEmail(domain.Email{
			Kind:         notify.KindRefundNotification,
			To:           booking.CustomerEmail,
			CustomerName: booking.CustomerName,
			ServiceName:  booking.ServiceName,
			BookingDate:  booking.BookingDate,
			BookingTime:  booking.BookingTime,
			Amount:       refundAmount,
			BookingID:    booking.ID,
		})
		s.publishBookingEvent(events.EventBookingRefunded, booking, refundAmount, booking.CancellationReason)
	}

	s.logger.Info().
		Str("payment_reference", event.PaymentReference).
		Str("booking_id", booking.ID).
		Msg("refund reconciled")
	return nil
}

// Verify reports which reconciliation records exist for a session so the
// success page can display sync state.
func (s *ReconcilerService) Verify(ctx context.Context, sessionID string) (*models.VerifyResult, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("%w: session id is required", domain.ErrValidation)
	}

	result := &models.VerifyResult{}

	booking, err := s.store.GetBookingBySessionID(ctx, sessionID)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("%w: fetch booking: %v", domain.ErrPersistence, err)
	}
	result.Booking = booking

	payment, err := s.store.GetPaymentBySessionID(ctx, sessionID)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("%w: fetch payment: %v", domain.ErrPersistence, err)
	}
	result.Payment = payment

	if booking != nil && booking.CustomerID != "" {
		customer, err := s.store.GetCustomerByID(ctx, booking.CustomerID)
		if err != nil && !errors.Is(err, database.ErrNotFound) {
			return nil, fmt.Errorf("%w: fetch customer: %v", domain.ErrPersistence, err)
		}
		result.Customer = customer
	}

	result.Synced = booking != nil && payment != nil &&
		booking.Status == models.StatusConfirmed
	return result, nil
}

func (s *ReconcilerService) enqueueEmail(email domain.Email) {
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

func (s *ReconcilerService) publishBookingEvent(eventType string, booking *models.Booking, refundAmount float64, reason string) {
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
		Status:        booking.Status,
		Price:         booking.Price,
		RefundAmount:  refundAmount,
		Reason:        reason,
	}
	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Warn().Err(err).Str("event", eventType).Msg("event publish failed")
	}
}
