package database

import (
	"context"
	"database/sql"
	"fmt"

	"studiobook/internal/models"
)

const paymentColumns = `id, booking_id, customer_id, session_id, payment_reference,
        amount, currency, status, created_at`

func (db *DB) GetPaymentBySessionID(ctx context.Context, sessionID string) (*models.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE session_id = ?`
	return scanPayment(db.db.QueryRowContext(ctx, query, sessionID))
}

// UpsertPaymentBySession inserts the payment row for a checkout session, or
// updates the existing one in place. session_id is the dedup key: a retried
// delivery never produces a second row.
func (db *DB) UpsertPaymentBySession(ctx context.Context, payment *models.Payment) error {
	query := `
        INSERT INTO payments (id, booking_id, customer_id, session_id, payment_reference, amount, currency, status)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(session_id) DO UPDATE SET
            booking_id = excluded.booking_id,
            customer_id = COALESCE(excluded.customer_id, payments.customer_id),
            payment_reference = COALESCE(excluded.payment_reference, payments.payment_reference),
            status = excluded.status
    `
	_, err := db.db.ExecContext(ctx, query,
		payment.ID,
		payment.BookingID,
		nullable(payment.CustomerID),
		payment.SessionID,
		nullable(payment.PaymentReference),
		payment.Amount,
		payment.Currency,
		payment.Status,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert payment: %w", err)
	}
	return nil
}

// UpdatePaymentStatusByRef updates the matching payment's status. The bool
// reports whether this call changed a row; false covers both no matching row
// (events arrive out of order) and a retried delivery that already applied.
func (db *DB) UpdatePaymentStatusByRef(ctx context.Context, paymentRef, status string) (bool, error) {
	result, err := db.db.ExecContext(ctx,
		`UPDATE payments SET status = ? WHERE payment_reference = ? AND status != ?`,
		status, paymentRef, status)
	if err != nil {
		return false, fmt.Errorf("failed to update payment status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return affected > 0, nil
}

func (db *DB) ListPayments(ctx context.Context) ([]models.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments ORDER BY created_at DESC`
	rows, err := db.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	defer rows.Close()

	var payments []models.Payment
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, *payment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate payments: %w", err)
	}
	return payments, nil
}

func scanPayment(row rowScanner) (*models.Payment, error) {
	var p models.Payment
	var customerID, paymentReference sql.NullString

	err := row.Scan(
		&p.ID,
		&p.BookingID,
		&customerID,
		&p.SessionID,
		&paymentReference,
		&p.Amount,
		&p.Currency,
		&p.Status,
		&p.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan payment: %w", err)
	}

	p.CustomerID = customerID.String
	p.PaymentReference = paymentReference.String
	return &p, nil
}
