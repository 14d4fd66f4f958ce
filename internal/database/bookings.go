package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"studiobook/internal/models"
)

// ErrTerminalState guards updates against bookings already cancelled or refunded.
var ErrTerminalState = errors.New("booking already in terminal state")

const bookingColumns = `id, package_id, service_name, slot_template_id, booking_date, booking_time,
        customer_id, customer_name, customer_email, customer_phone, price, status,
        payment_intent_id, session_id, confirmed_at, cancelled_at, cancellation_reason,
        refund_amount, refund_status, created_at, updated_at`

func (db *DB) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`
	return db.scanBookingRow(db.db.QueryRowContext(ctx, query, id))
}

func (db *DB) GetBookingBySessionID(ctx context.Context, sessionID string) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE session_id = ?`
	return db.scanBookingRow(db.db.QueryRowContext(ctx, query, sessionID))
}

func (db *DB) GetBookingByPaymentRef(ctx context.Context, paymentRef string) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE payment_intent_id = ?`
	return db.scanBookingRow(db.db.QueryRowContext(ctx, query, paymentRef))
}

// ConfirmBookingBySession inserts a confirmed booking keyed by session_id, or
// promotes an existing non-terminal row to confirmed. The returned bool is
// true only on the first transition into confirmed; a retried delivery that
// finds the booking already confirmed gets false.
func (db *DB) ConfirmBookingBySession(ctx context.Context, booking *models.Booking) (*models.Booking, bool, error) {
	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var priorStatus sql.NullString
	err = tx.QueryRowContext(ctx,
		`SELECT status FROM bookings WHERE session_id = ?`, booking.SessionID,
	).Scan(&priorStatus)
	if err != nil && err != sql.ErrNoRows {
		return nil, false, fmt.Errorf("failed to read prior booking: %w", err)
	}

	now := time.Now()
	query := `
        INSERT INTO bookings (
            id, package_id, service_name, slot_template_id, booking_date, booking_time,
            customer_id, customer_name, customer_email, customer_phone, price, status,
            payment_intent_id, session_id, confirmed_at, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(session_id) DO UPDATE SET
            status = excluded.status,
            confirmed_at = COALESCE(bookings.confirmed_at, excluded.confirmed_at),
            customer_id = COALESCE(excluded.customer_id, bookings.customer_id),
            payment_intent_id = COALESCE(excluded.payment_intent_id, bookings.payment_intent_id),
            updated_at = excluded.updated_at
        WHERE bookings.status NOT IN (?, ?)
    `
	_, err = tx.ExecContext(ctx, query,
		booking.ID,
		nullable(booking.PackageID),
		booking.ServiceName,
		nullable(booking.SlotTemplateID),
		booking.BookingDate,
		booking.BookingTime,
		nullable(booking.CustomerID),
		booking.CustomerName,
		booking.CustomerEmail,
		nullable(booking.CustomerPhone),
		booking.Price,
		models.StatusConfirmed,
		nullable(booking.PaymentIntentID),
		booking.SessionID,
		now,
		now,
		now,
		models.StatusCancelled,
		models.StatusRefunded,
	)
	if err != nil {
		return nil, false, fmt.Errorf("failed to upsert booking: %w", err)
	}

	stored, err := scanBooking(tx.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE session_id = ?`, booking.SessionID))
	if err != nil {
		return nil, false, fmt.Errorf("failed to re-read booking: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("failed to commit booking upsert: %w", err)
	}

	newlyConfirmed := stored.Status == models.StatusConfirmed &&
		(!priorStatus.Valid || priorStatus.String != models.StatusConfirmed)
	return stored, newlyConfirmed, nil
}

// CancelBookingByPaymentRef marks the matching booking cancelled unless it is
// already terminal. The bool reports whether this call made the transition.
func (db *DB) CancelBookingByPaymentRef(ctx context.Context, paymentRef, reason string) (*models.Booking, bool, error) {
	now := time.Now()
	result, err := db.db.ExecContext(ctx, `
        UPDATE bookings
        SET status = ?, cancelled_at = ?, cancellation_reason = ?, updated_at = ?
        WHERE payment_intent_id = ? AND status NOT IN (?, ?)`,
		models.StatusCancelled, now, reason, now,
		paymentRef, models.StatusCancelled, models.StatusRefunded,
	)
	if err != nil {
		return nil, false, fmt.Errorf("failed to cancel booking: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("failed to read rows affected: %w", err)
	}

	booking, err := db.GetBookingByPaymentRef(ctx, paymentRef)
	if err != nil {
		return nil, false, err
	}
	return booking, affected > 0, nil
}

// ApplyCancellation records an admin-initiated cancellation or refund outcome.
func (db *DB) ApplyCancellation(ctx context.Context, id, status, reason string, refundAmount float64, refundStatus string) error {
	now := time.Now()
	result, err := db.db.ExecContext(ctx, `
        UPDATE bookings
        SET status = ?, cancelled_at = ?, cancellation_reason = ?,
            refund_amount = ?, refund_status = ?, updated_at = ?
        WHERE id = ? AND status NOT IN (?, ?)`,
		status, now, reason, refundAmount, nullable(refundStatus), now,
		id, models.StatusCancelled, models.StatusRefunded,
	)
	if err != nil {
		return fmt.Errorf("failed to apply cancellation: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		if _, err := db.GetBooking(ctx, id); err != nil {
			return err
		}
		return ErrTerminalState
	}
	return nil
}

func (db *DB) ListBookings(ctx context.Context) ([]models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings ORDER BY booking_date DESC, booking_time DESC`
	rows, err := db.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	defer rows.Close()

	var bookings []models.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *booking)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bookings: %w", err)
	}
	return bookings, nil
}

// CountActiveBookings counts pending and confirmed bookings holding the
// given date and time slot. Cancelled and refunded holds free the slot.
func (db *DB) CountActiveBookings(ctx context.Context, date, timeOfDay string) (int, error) {
	query := `
        SELECT COUNT(*) FROM bookings
        WHERE booking_date = ? AND booking_time = ? AND status IN (?, ?)`

	var count int
	err := db.db.QueryRowContext(ctx, query, date, timeOfDay,
		models.StatusPending, models.StatusConfirmed).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count active bookings: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (db *DB) scanBookingRow(row *sql.Row) (*models.Booking, error) {
	booking, err := scanBooking(row)
	if err != nil {
		return nil, err
	}
	return booking, nil
}

func scanBooking(row rowScanner) (*models.Booking, error) {
	var b models.Booking
	var packageID, slotTemplateID, customerID, customerPhone sql.NullString
	var paymentIntentID, sessionID, cancellationReason, refundStatus sql.NullString
	var confirmedAt, cancelledAt sql.NullTime

	err := row.Scan(
		&b.ID,
		&packageID,
		&b.ServiceName,
		&slotTemplateID,
		&b.BookingDate,
		&b.BookingTime,
		&customerID,
		&b.CustomerName,
		&b.CustomerEmail,
		&customerPhone,
		&b.Price,
		&b.Status,
		&paymentIntentID,
		&sessionID,
		&confirmedAt,
		&cancelledAt,
		&cancellationReason,
		&b.RefundAmount,
		&refundStatus,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan booking: %w", err)
	}

	b.PackageID = packageID.String
	b.SlotTemplateID = slotTemplateID.String
	b.CustomerID = customerID.String
	b.CustomerPhone = customerPhone.String
	b.PaymentIntentID = paymentIntentID.String
	b.SessionID = sessionID.String
	b.CancellationReason = cancellationReason.String
	b.RefundStatus = refundStatus.String
	if confirmedAt.Valid {
		b.ConfirmedAt = &confirmedAt.Time
	}
	if cancelledAt.Valid {
		b.CancelledAt = &cancelledAt.Time
	}
	return &b, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
