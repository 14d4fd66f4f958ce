package domain

import "errors"

// Error taxonomy shared across services; handlers map these to HTTP codes
// with errors.Is.
var (
	// ErrValidation rejects malformed input before any I/O.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound means a booking, session or payment reference does not resolve.
	ErrNotFound = errors.New("not found")

	// ErrConflict guards transitions out of a terminal booking status.
	ErrConflict = errors.New("conflicting state transition")

	// ErrPaymentSession means the processor rejected session creation.
	ErrPaymentSession = errors.New("payment session creation failed")

	// ErrPaymentProcessing means a refund or charge call failed at the
	// processor; local state must not be mutated when this is returned.
	ErrPaymentProcessing = errors.New("payment processing failed")

	// ErrPersistence means a datastore write failed. During webhook-driven
	// reconciliation it makes the whole event retryable.
	ErrPersistence = errors.New("persistence failed")

	// ErrSignature means the webhook payload failed signature verification.
	ErrSignature = errors.New("signature verification failed")
)
