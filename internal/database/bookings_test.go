package database

import (
	"context"
	"testing"

	"studiobook/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBooking(sessionID string) *models.Booking {
	return &models.Booking{
		ID:              uuid.NewString(),
		ServiceName:     "Indie",
		BookingDate:     "2026-09-14",
		BookingTime:     "10:00",
		CustomerName:    "Dana Reeve",
		CustomerEmail:   "dana@example.com",
		Price:           399,
		PaymentIntentID: "pi_" + sessionID,
		SessionID:       sessionID,
	}
}

func TestConfirmBookingBySession_CreatesOnce(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	booking := testBooking("cs_once")
	stored, newly, err := db.ConfirmBookingBySession(ctx, booking)
	require.NoError(t, err)
	assert.True(t, newly)
	assert.Equal(t, models.StatusConfirmed, stored.Status)
	require.NotNil(t, stored.ConfirmedAt)

	// Same session delivered again: same row, not a new confirmation
	again := testBooking("cs_once")
	stored2, newly2, err := db.ConfirmBookingBySession(ctx, again)
	require.NoError(t, err)
	assert.False(t, newly2)
	assert.Equal(t, stored.ID, stored2.ID)
	assert.Equal(t, stored.ConfirmedAt.Unix(), stored2.ConfirmedAt.Unix())

	all, err := db.ListBookings(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestConfirmBookingBySession_PromotesPending(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	// Pre-created pending row, as a synchronous-insert integration would leave it
	pending := testBooking("cs_pending")
	_, err := db.db.ExecContext(ctx, `
        INSERT INTO bookings (id, service_name, booking_date, booking_time, customer_name, customer_email, price, status, session_id)
        VALUES (?, ?, ?, ?, ?, ?, ?, 'pending', ?)`,
		pending.ID, pending.ServiceName, pending.BookingDate, pending.BookingTime,
		pending.CustomerName, pending.CustomerEmail, pending.Price, pending.SessionID)
	require.NoError(t, err)

	stored, newly, err := db.ConfirmBookingBySession(ctx, testBooking("cs_pending"))
	require.NoError(t, err)
	assert.True(t, newly)
	assert.Equal(t, pending.ID, stored.ID)
	assert.Equal(t, models.StatusConfirmed, stored.Status)
}

func TestConfirmBookingBySession_DoesNotResurrectTerminal(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	booking := testBooking("cs_term")
	_, _, err := db.ConfirmBookingBySession(ctx, booking)
	require.NoError(t, err)

	err = db.ApplyCancellation(ctx, booking.ID, models.StatusRefunded, "schedule conflict", 399, "succeeded")
	require.NoError(t, err)

	stored, newly, err := db.ConfirmBookingBySession(ctx, testBooking("cs_term"))
	require.NoError(t, err)
	assert.False(t, newly)
	assert.Equal(t, models.StatusRefunded, stored.Status)
}

func TestCancelBookingByPaymentRef(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	booking := testBooking("cs_fail")
	_, _, err := db.ConfirmBookingBySession(ctx, booking)
	require.NoError(t, err)

	cancelled, newly, err := db.CancelBookingByPaymentRef(ctx, booking.PaymentIntentID, "Payment failed")
	require.NoError(t, err)
	assert.True(t, newly)
	assert.Equal(t, models.StatusCancelled, cancelled.Status)
	assert.Equal(t, "Payment failed", cancelled.CancellationReason)

	// Retried delivery makes no second transition
	_, newly2, err := db.CancelBookingByPaymentRef(ctx, booking.PaymentIntentID, "Payment failed")
	require.NoError(t, err)
	assert.False(t, newly2)
}

func TestCancelBookingByPaymentRef_NoMatch(t *testing.T) {
	db := setupTestDB(t)

	_, _, err := db.CancelBookingByPaymentRef(context.Background(), "pi_missing", "Payment failed")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestApplyCancellation_TerminalGuard(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	booking := testBooking("cs_guard")
	_, _, err := db.ConfirmBookingBySession(ctx, booking)
	require.NoError(t, err)

	err = db.ApplyCancellation(ctx, booking.ID, models.StatusRefunded, "first", 399, "succeeded")
	require.NoError(t, err)

	err = db.ApplyCancellation(ctx, booking.ID, models.StatusCancelled, "second", 0, "")
	assert.ErrorIs(t, err, ErrTerminalState)

	err = db.ApplyCancellation(ctx, "missing-id", models.StatusCancelled, "x", 0, "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCountActiveBookings(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	first := testBooking("cs_a")
	second := testBooking("cs_b")
	second.CustomerEmail = "other@example.com"
	_, _, err := db.ConfirmBookingBySession(ctx, first)
	require.NoError(t, err)
	_, _, err = db.ConfirmBookingBySession(ctx, second)
	require.NoError(t, err)

	count, err := db.CountActiveBookings(ctx, "2026-09-14", "10:00")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	// A refunded hold frees the slot
	err = db.ApplyCancellation(ctx, second.ID, models.StatusRefunded, "refund", 399, "succeeded")
	require.NoError(t, err)

	count, err = db.CountActiveBookings(ctx, "2026-09-14", "10:00")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = db.CountActiveBookings(ctx, "2026-09-14", "11:00")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestGetBookingLookups(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	booking := testBooking("cs_lookup")
	stored, _, err := db.ConfirmBookingBySession(ctx, booking)
	require.NoError(t, err)

	byID, err := db.GetBooking(ctx, stored.ID)
	require.NoError(t, err)
	assert.Equal(t, stored.SessionID, byID.SessionID)

	bySession, err := db.GetBookingBySessionID(ctx, "cs_lookup")
	require.NoError(t, err)
	assert.Equal(t, stored.ID, bySession.ID)

	byRef, err := db.GetBookingByPaymentRef(ctx, booking.PaymentIntentID)
	require.NoError(t, err)
	assert.Equal(t, stored.ID, byRef.ID)

	_, err = db.GetBookingBySessionID(ctx, "cs_absent")
	assert.ErrorIs(t, err, ErrNotFound)
}
