package database

import (
	"context"
	"testing"

	"studiobook/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPayment(sessionID string) *models.Payment {
	return &models.Payment{
		ID:               uuid.NewString(),
		BookingID:        uuid.NewString(),
		SessionID:        sessionID,
		PaymentReference: "pi_" + sessionID,
		Amount:           399,
		Currency:         "usd",
		Status:           models.PaymentSucceeded,
	}
}

func TestUpsertPaymentBySession_Dedup(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	payment := testPayment("cs_pay")
	require.NoError(t, db.UpsertPaymentBySession(ctx, payment))

	// Retried delivery with a fresh row id must not insert a second row
	retry := testPayment("cs_pay")
	require.NoError(t, db.UpsertPaymentBySession(ctx, retry))

	all, err := db.ListPayments(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, payment.ID, all[0].ID)
}

func TestUpsertPaymentBySession_KeepsReference(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	payment := testPayment("cs_ref")
	require.NoError(t, db.UpsertPaymentBySession(ctx, payment))

	// Later update without a reference keeps the stored one
	update := testPayment("cs_ref")
	update.PaymentReference = ""
	update.Status = models.PaymentRefunded
	require.NoError(t, db.UpsertPaymentBySession(ctx, update))

	stored, err := db.GetPaymentBySessionID(ctx, "cs_ref")
	require.NoError(t, err)
	assert.Equal(t, payment.PaymentReference, stored.PaymentReference)
	assert.Equal(t, models.PaymentRefunded, stored.Status)
}

func TestUpdatePaymentStatusByRef(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	payment := testPayment("cs_status")
	require.NoError(t, db.UpsertPaymentBySession(ctx, payment))

	matched, err := db.UpdatePaymentStatusByRef(ctx, payment.PaymentReference, models.PaymentFailed)
	require.NoError(t, err)
	assert.True(t, matched)

	stored, err := db.GetPaymentBySessionID(ctx, "cs_status")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentFailed, stored.Status)

	// A retried delivery of the same status changes nothing
	matched, err = db.UpdatePaymentStatusByRef(ctx, payment.PaymentReference, models.PaymentFailed)
	require.NoError(t, err)
	assert.False(t, matched)

	// No matching row is not an error: events can arrive before the payment exists
	matched, err = db.UpdatePaymentStatusByRef(ctx, "pi_unknown", models.PaymentSucceeded)
	require.NoError(t, err)
	assert.False(t, matched)
}

func TestGetPaymentBySessionID_NotFound(t *testing.T) {
	db := setupTestDB(t)

	_, err := db.GetPaymentBySessionID(context.Background(), "cs_absent")
	assert.ErrorIs(t, err, ErrNotFound)
}
