package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"studiobook/internal/models"
)

const slotTemplateColumns = `id, day_of_week, start_time, end_time, duration_hours,
        max_capacity, is_active, created_at, updated_at`

func (db *DB) GetSlotTemplate(ctx context.Context, id string) (*models.SlotTemplate, error) {
	query := `SELECT ` + slotTemplateColumns + ` FROM slot_templates WHERE id = ?`
	return scanSlotTemplate(db.db.QueryRowContext(ctx, query, id))
}

func (db *DB) ListSlotTemplates(ctx context.Context, activeOnly bool) ([]models.SlotTemplate, error) {
	query := `SELECT ` + slotTemplateColumns + ` FROM slot_templates`
	if activeOnly {
		query += ` WHERE is_active = 1`
	}
	query += ` ORDER BY day_of_week, start_time`

	return db.querySlotTemplates(ctx, query)
}

func (db *DB) GetSlotTemplatesByDay(ctx context.Context, dayOfWeek int) ([]models.SlotTemplate, error) {
	query := `SELECT ` + slotTemplateColumns + ` FROM slot_templates
        WHERE day_of_week = ? AND is_active = 1 ORDER BY start_time`
	return db.querySlotTemplates(ctx, query, dayOfWeek)
}

func (db *DB) CreateSlotTemplate(ctx context.Context, template *models.SlotTemplate) error {
	query := `
        INSERT INTO slot_templates (id, day_of_week, start_time, end_time, duration_hours, max_capacity, is_active)
        VALUES (?, ?, ?, ?, ?, ?, ?)
    `
	_, err := db.db.ExecContext(ctx, query,
		template.ID,
		template.DayOfWeek,
		template.StartTime,
		template.EndTime,
		template.DurationHours,
		template.MaxCapacity,
		template.IsActive,
	)
	if err != nil {
		return fmt.Errorf("failed to create slot template: %w", err)
	}
	return nil
}

func (db *DB) UpdateSlotTemplate(ctx context.Context, template *models.SlotTemplate) error {
	query := `
        UPDATE slot_templates
        SET day_of_week = ?, start_time = ?, end_time = ?, duration_hours = ?,
            max_capacity = ?, is_active = ?, updated_at = ?
        WHERE id = ?
    `
	result, err := db.db.ExecContext(ctx, query,
		template.DayOfWeek,
		template.StartTime,
		template.EndTime,
		template.DurationHours,
		template.MaxCapacity,
		template.IsActive,
		time.Now(),
		template.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update slot template: %w", err)
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

func (db *DB) DeactivateSlotTemplate(ctx context.Context, id string) error {
	result, err := db.db.ExecContext(ctx,
		`UPDATE slot_templates SET is_active = 0, updated_at = ? WHERE id = ?`, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to deactivate slot template: %w", err)
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

// SeedSlotTemplates inserts configured templates that are not present yet.
// Existing rows win over config so admin edits survive restarts.
func (db *DB) SeedSlotTemplates(ctx context.Context, templates []models.SlotTemplate) error {
	query := `
        INSERT INTO slot_templates (id, day_of_week, start_time, end_time, duration_hours, max_capacity, is_active)
        VALUES (?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(id) DO NOTHING
    `
	for _, t := range templates {
		if _, err := db.db.ExecContext(ctx, query,
			t.ID, t.DayOfWeek, t.StartTime, t.EndTime, t.DurationHours, t.MaxCapacity, t.IsActive,
		); err != nil {
			return fmt.Errorf("failed to seed slot template %s: %w", t.ID, err)
		}
	}
	return nil
}

func (db *DB) querySlotTemplates(ctx context.Context, query string, args ...any) ([]models.SlotTemplate, error) {
	rows, err := db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query slot templates: %w", err)
	}
	defer rows.Close()

	var templates []models.SlotTemplate
	for rows.Next() {
		template, err := scanSlotTemplate(rows)
		if err != nil {
			return nil, err
		}
		templates = append(templates, *template)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate slot templates: %w", err)
	}
	return templates, nil
}

func scanSlotTemplate(row rowScanner) (*models.SlotTemplate, error) {
	var t models.SlotTemplate
	err := row.Scan(
		&t.ID,
		&t.DayOfWeek,
		&t.StartTime,
		&t.EndTime,
		&t.DurationHours,
		&t.MaxCapacity,
		&t.IsActive,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan slot template: %w", err)
	}
	return &t, nil
}
