package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"studiobook/internal/models"
)

const customerColumns = `id, name, email, phone, total_spent, last_booking_date, created_at, updated_at`

func (db *DB) GetCustomerByEmail(ctx context.Context, email string) (*models.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE email = ?`
	return scanCustomer(db.db.QueryRowContext(ctx, query, email))
}

func (db *DB) GetCustomerByID(ctx context.Context, id string) (*models.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE id = ?`
	return scanCustomer(db.db.QueryRowContext(ctx, query, id))
}

// UpsertCustomer creates the customer on first booking, keyed by unique
// email, or refreshes contact fields in place. Returns the stored row so
// callers get the canonical customer id.
func (db *DB) UpsertCustomer(ctx context.Context, customer *models.Customer) (*models.Customer, error) {
	query := `
        INSERT INTO customers (id, name, email, phone)
        VALUES (?, ?, ?, ?)
        ON CONFLICT(email) DO UPDATE SET
            name = excluded.name,
            phone = COALESCE(excluded.phone, customers.phone),
            updated_at = CURRENT_TIMESTAMP
    `
	_, err := db.db.ExecContext(ctx, query,
		customer.ID,
		customer.Name,
		customer.Email,
		nullable(customer.Phone),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert customer: %w", err)
	}

	return db.GetCustomerByEmail(ctx, customer.Email)
}

// RecomputeCustomerStats is the store-side aggregate routine: total_spent
// and last_booking_date derived from the customer's bookings. Refunded
// bookings contribute price minus the refunded amount.
func (db *DB) RecomputeCustomerStats(ctx context.Context, customerID string) error {
	query := `
        UPDATE customers SET
            total_spent = (
                SELECT COALESCE(SUM(price - refund_amount), 0) FROM bookings
                WHERE customer_id = customers.id AND status IN (?, ?)
            ),
            last_booking_date = (
                SELECT MAX(booking_date) FROM bookings
                WHERE customer_id = customers.id AND status = ?
            ),
            updated_at = ?
        WHERE id = ?
    `
	result, err := db.db.ExecContext(ctx, query,
		models.StatusConfirmed, models.StatusRefunded,
		models.StatusConfirmed,
		time.Now(), customerID,
	)
	if err != nil {
		return fmt.Errorf("failed to recompute customer stats: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (db *DB) ListCustomers(ctx context.Context) ([]models.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers ORDER BY created_at DESC`
	rows, err := db.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}
	defer rows.Close()

	var customers []models.Customer
	for rows.Next() {
		customer, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		customers = append(customers, *customer)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate customers: %w", err)
	}
	return customers, nil
}

func scanCustomer(row rowScanner) (*models.Customer, error) {
	var c models.Customer
	var phone, lastBookingDate sql.NullString

	err := row.Scan(
		&c.ID,
		&c.Name,
		&c.Email,
		&phone,
		&c.TotalSpent,
		&lastBookingDate,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan customer: %w", err)
	}

	c.Phone = phone.String
	c.LastBookingDate = lastBookingDate.String
	return &c, nil
}
