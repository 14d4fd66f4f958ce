package domain

import (
	"context"

	"studiobook/internal/models"
)

// Store is the persistent relational boundary: bookings, payments, customers
// and slot templates. Upsert operations are atomic insert-if-absent at the
// store level; the returned bool reports whether this call made the change
// (as opposed to a retried delivery finding it already applied).
type Store interface {
	// Bookings
	GetBooking(ctx context.Context, id string) (*models.Booking, error)
	GetBookingBySessionID(ctx context.Context, sessionID string) (*models.Booking, error)
	GetBookingByPaymentRef(ctx context.Context, paymentRef string) (*models.Booking, error)
	ConfirmBookingBySession(ctx context.Context, booking *models.Booking) (*models.Booking, bool, error)
	CancelBookingByPaymentRef(ctx context.Context, paymentRef, reason string) (*models.Booking, bool, error)
	ApplyCancellation(ctx context.Context, id, status, reason string, refundAmount float64, refundStatus string) error
	ListBookings(ctx context.Context) ([]models.Booking, error)
	CountActiveBookings(ctx context.Context, date, timeOfDay string) (int, error)

	// Payments
	GetPaymentBySessionID(ctx context.Context, sessionID string) (*models.Payment, error)
	UpsertPaymentBySession(ctx context.Context, payment *models.Payment) error
	UpdatePaymentStatusByRef(ctx context.Context, paymentRef, status string) (bool, error)
	ListPayments(ctx context.Context) ([]models.Payment, error)

	// Customers
	GetCustomerByEmail(ctx context.Context, email string) (*models.Customer, error)
	GetCustomerByID(ctx context.Context, id string) (*models.Customer, error)
	UpsertCustomer(ctx context.Context, customer *models.Customer) (*models.Customer, error)
	RecomputeCustomerStats(ctx context.Context, customerID string) error
	ListCustomers(ctx context.Context) ([]models.Customer, error)

	// Slot templates
	ListSlotTemplates(ctx context.Context, activeOnly bool) ([]models.SlotTemplate, error)
	GetSlotTemplatesByDay(ctx context.Context, dayOfWeek int) ([]models.SlotTemplate, error)
	GetSlotTemplate(ctx context.Context, id string) (*models.SlotTemplate, error)
	CreateSlotTemplate(ctx context.Context, template *models.SlotTemplate) error
	UpdateSlotTemplate(ctx context.Context, template *models.SlotTemplate) error
	DeactivateSlotTemplate(ctx context.Context, id string) error
	SeedSlotTemplates(ctx context.Context, templates []models.SlotTemplate) error
}

// HostedSessionRequest scopes one checkout attempt at the processor.
type HostedSessionRequest struct {
	AmountCents   int64
	Currency      string
	Description   string
	ProductName   string
	CustomerEmail string
	SuccessURL    string
	CancelURL     string
	Metadata      map[string]string
}

// SessionStatus is the processor's view of a checkout session.
type SessionStatus struct {
	SessionID        string
	PaymentStatus    string // "paid", "unpaid", ...
	PaymentReference string
	CustomerEmail    string
	Metadata         map[string]string
}

type RefundRequest struct {
	PaymentReference string
	AmountCents      int64
	Reason           string
	Metadata         map[string]string
}

type RefundResult struct {
	RefundID    string
	AmountCents int64
	Status      string
}

// PaymentGateway is the narrow payment-processor contract.
type PaymentGateway interface {
	CreateHostedSession(ctx context.Context, req HostedSessionRequest) (*models.CheckoutSession, error)
	RetrieveSession(ctx context.Context, sessionID string) (*SessionStatus, error)
	CreateRefund(ctx context.Context, req RefundRequest) (*RefundResult, error)
}

// Event kinds delivered by the payment processor.
const (
	EventCheckoutCompleted = "checkout.session.completed"
	EventPaymentSucceeded  = "payment_intent.succeeded"
	EventPaymentFailed     = "payment_intent.payment_failed"
	EventChargeRefunded    = "charge.refunded"
)

// PaymentEvent is the normalized asynchronous processor notification
// consumed by the reconciliation handler.
type PaymentEvent struct {
	Kind             string
	SessionID        string
	PaymentReference string
	Amount           float64
	Currency         string
	CustomerName     string
	CustomerEmail    string
	CustomerPhone    string
	Draft            *models.BookingDraft // checkout metadata, when present
}

// WebhookParser verifies an inbound webhook payload against the shared
// secret and normalizes it. Unknown event types yield (nil, nil).
type WebhookParser interface {
	ParseEvent(payload []byte, signature string) (*PaymentEvent, error)
}

// Email is one outbound customer notification.
type Email struct {
	Kind         string // booking_confirmation, booking_cancellation, payment_failed, refund_notification
	To           string
	CustomerName string
	ServiceName  string
	BookingDate  string
	BookingTime  string
	Amount       float64
	Reason       string
	BookingID    string
}

// Notifier delivers one email. Errors are the caller's to log; the core
// never retries a reconciliation event because a send failed.
type Notifier interface {
	Send(ctx context.Context, email Email) error
}

// MailQueue decouples the services from delivery. Enqueue never blocks;
// it reports false when the queue is full.
type MailQueue interface {
	Enqueue(email Email) bool
}

// Locker serializes concurrent deliveries of processor events for the
// same checkout session across handler invocations.
type Locker interface {
	WithSessionLock(ctx context.Context, sessionID string, fn func(ctx context.Context) error) error
}

// EventPublisher is the in-process bus for booking lifecycle events.
type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}
