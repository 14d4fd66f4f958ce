package availability

import (
	"context"
	"fmt"
	"math"
	"time"

	"studiobook/internal/models"

	"github.com/rs/zerolog"
)

// Store is the narrow read surface the engine needs.
type Store interface {
	GetSlotTemplatesByDay(ctx context.Context, dayOfWeek int) ([]models.SlotTemplate, error)
	CountActiveBookings(ctx context.Context, date, timeOfDay string) (int, error)
}

// Engine derives bookable slots for a calendar date from the weekly
// templates and the active bookings holding them. Read-only; it does not
// reject past dates, that is the caller's filter.
type Engine struct {
	store  Store
	logger *zerolog.Logger
}

func NewEngine(store Store, logger *zerolog.Logger) *Engine {
	return &Engine{store: store, logger: logger}
}

// AvailableSlots expands every active template matching the date's weekday
// and counts the pending/confirmed bookings at each generated time.
// Overlapping templates emit their times separately; no dedup.
func (e *Engine) AvailableSlots(ctx context.Context, date time.Time) ([]models.SlotView, error) {
	dayOfWeek := int(date.Weekday())
	dateStr := date.Format("2006-01-02")

	templates, err := e.store.GetSlotTemplatesByDay(ctx, dayOfWeek)
	if err != nil {
		return nil, fmt.Errorf("load slot templates: %w", err)
	}

	slots := make([]models.SlotView, 0)
	for _, template := range templates {
		times, err := GenerateTimes(template)
		if err != nil {
			e.logger.Warn().Err(err).Str("template_id", template.ID).Msg("skipping malformed slot template")
			continue
		}

		for _, timeOfDay := range times {
			count, err := e.store.CountActiveBookings(ctx, dateStr, timeOfDay)
			if err != nil {
				return nil, fmt.Errorf("count bookings at %s %s: %w", dateStr, timeOfDay, err)
			}

			slots = append(slots, models.SlotView{
				Time:            timeOfDay,
				MaxCapacity:     template.MaxCapacity,
				CurrentBookings: count,
				Available:       count < template.MaxCapacity,
			})
		}
	}

	return slots, nil
}

// GenerateTimes expands a template into concrete "HH:MM" time points,
// stepping by the duration and stopping strictly before end_time. Slots are
// always full-length; fractional durations roll minutes over into hours.
func GenerateTimes(template models.SlotTemplate) ([]string, error) {
	start, err := parseTimeOfDay(template.StartTime)
	if err != nil {
		return nil, fmt.Errorf("invalid start_time %q: %w", template.StartTime, err)
	}
	end, err := parseTimeOfDay(template.EndTime)
	if err != nil {
		return nil, fmt.Errorf("invalid end_time %q: %w", template.EndTime, err)
	}
	if start >= end {
		return nil, fmt.Errorf("start_time %q is not before end_time %q", template.StartTime, template.EndTime)
	}

	step := int(math.Round(template.DurationHours * 60))
	if step <= 0 {
		return nil, fmt.Errorf("duration_hours %v is not positive", template.DurationHours)
	}

	var times []string
	for minutes := start; minutes < end; minutes += step {
		times = append(times, formatTimeOfDay(minutes))
	}
	return times, nil
}

func parseTimeOfDay(value string) (int, error) {
	var hours, minutes int
	if _, err := fmt.Sscanf(value, "%d:%d", &hours, &minutes); err != nil {
		return 0, err
	}
	if hours < 0 || hours > 23 || minutes < 0 || minutes > 59 {
		return 0, fmt.Errorf("out of range: %s", value)
	}
	return hours*60 + minutes, nil
}

func formatTimeOfDay(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
