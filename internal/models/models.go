package models

import "time"

// SlotTemplate is a recurring weekly availability rule. Concrete bookable
// slots are generated from it on demand by the availability engine.
type SlotTemplate struct {
	ID            string    `json:"id" yaml:"id"`
	DayOfWeek     int       `json:"day_of_week" yaml:"day_of_week"` // 0 = Sunday .. 6 = Saturday
	StartTime     string    `json:"start_time" yaml:"start_time"`   // "HH:MM"
	EndTime       string    `json:"end_time" yaml:"end_time"`       // "HH:MM"
	DurationHours float64   `json:"duration_hours" yaml:"duration_hours"`
	MaxCapacity   int       `json:"max_capacity" yaml:"max_capacity"`
	IsActive      bool      `json:"is_active" yaml:"is_active"`
	CreatedAt     time.Time `json:"created_at" yaml:"-"`
	UpdatedAt     time.Time `json:"updated_at" yaml:"-"`
}

type Booking struct {
	ID                 string     `json:"id"`
	PackageID          string     `json:"package_id,omitempty"`
	ServiceName        string     `json:"service_name"`
	SlotTemplateID     string     `json:"slot_template_id,omitempty"`
	BookingDate        string     `json:"booking_date"` // "2006-01-02"
	BookingTime        string     `json:"booking_time"` // "HH:MM"
	CustomerID         string     `json:"customer_id,omitempty"`
	CustomerName       string     `json:"customer_name"`
	CustomerEmail      string     `json:"customer_email"`
	CustomerPhone      string     `json:"customer_phone,omitempty"`
	Price              float64    `json:"price"`
	Status             string     `json:"status"` // pending, confirmed, cancelled, refunded
	PaymentIntentID    string     `json:"payment_intent_id,omitempty"`
	SessionID          string     `json:"session_id,omitempty"`
	ConfirmedAt        *time.Time `json:"confirmed_at,omitempty"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`
	CancellationReason string     `json:"cancellation_reason,omitempty"`
	RefundAmount       float64    `json:"refund_amount,omitempty"`
	RefundStatus       string     `json:"refund_status,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// IsTerminal reports whether the booking status permits no further transitions.
func (b *Booking) IsTerminal() bool {
	return b.Status == StatusCancelled || b.Status == StatusRefunded
}

type Payment struct {
	ID               string    `json:"id"`
	BookingID        string    `json:"booking_id"`
	CustomerID       string    `json:"customer_id,omitempty"`
	SessionID        string    `json:"session_id"`
	PaymentReference string    `json:"payment_reference,omitempty"`
	Amount           float64   `json:"amount"`
	Currency         string    `json:"currency"`
	Status           string    `json:"status"` // succeeded, failed, refunded
	CreatedAt        time.Time `json:"created_at"`
}

type Customer struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Email           string    `json:"email"`
	Phone           string    `json:"phone,omitempty"`
	TotalSpent      float64   `json:"total_spent"`
	LastBookingDate string    `json:"last_booking_date,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// SlotView is the derived availability of one generated slot on a date.
// It is never stored.
type SlotView struct {
	Time            string `json:"time"`
	MaxCapacity     int    `json:"max_capacity"`
	CurrentBookings int    `json:"current_bookings"`
	Available       bool   `json:"available"`
}

// BookingDraft carries the customer's checkout input. It travels to the
// payment processor as session metadata and comes back on the webhook.
type BookingDraft struct {
	PackageID      string  `json:"packageId,omitempty"`
	ServiceName    string  `json:"serviceName"`
	SlotTemplateID string  `json:"slotTemplateId,omitempty"`
	Date           string  `json:"date"`
	Time           string  `json:"time"`
	CustomerName   string  `json:"customerName"`
	CustomerEmail  string  `json:"customerEmail"`
	CustomerPhone  string  `json:"customerPhone,omitempty"`
	Price          float64 `json:"price"`
}

type CheckoutSession struct {
	SessionID   string `json:"session_id"`
	RedirectURL string `json:"url"`
}

// CancelResult is the outcome of an admin cancellation. Warning is set when
// the processor refund went through but the local update did not.
type CancelResult struct {
	BookingID    string  `json:"booking_id"`
	Status       string  `json:"status"`
	RefundAmount float64 `json:"refund_amount"`
	RefundStatus string  `json:"refund_status"`
	Warning      string  `json:"warning,omitempty"`
}

// VerifyResult mirrors the reconciliation-status probe: which of the three
// records exist for a session and whether they are all in place.
type VerifyResult struct {
	Booking  *Booking  `json:"booking"`
	Payment  *Payment  `json:"payment"`
	Customer *Customer `json:"customer"`
	Synced   bool      `json:"synced"`
}
