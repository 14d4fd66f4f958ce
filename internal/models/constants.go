package models

const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
	StatusRefunded  = "refunded"
)

const (
	PaymentSucceeded = "succeeded"
	PaymentFailed    = "failed"
	PaymentRefunded  = "refunded"
)

const (
	RefundPolicyFull    = "full"
	RefundPolicyPartial = "partial"
	RefundPolicyNone    = "none"
)

const (
	// PartialRefundPercent is the fixed share returned by the partial policy.
	PartialRefundPercent = 50

	// DefaultCurrency for hosted checkout sessions.
	DefaultCurrency = "usd"

	// MailQueueSize is the buffered mail worker queue capacity.
	MailQueueSize = 256

	// SessionLockTTLSeconds bounds the per-session reconciliation lock.
	SessionLockTTLSeconds = 30

	// RateLimitRPSDefault is the per-key API limit when config leaves it zero.
	RateLimitRPSDefault = 10
)

var DayNames = []string{
	"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday",
}
