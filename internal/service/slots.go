package service

import (
	"context"
	"errors"
	"fmt"

	"studiobook/internal/database"
	"studiobook/internal/domain"
	"studiobook/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// SlotTemplateService is the admin surface over the weekly availability rules.
type SlotTemplateService struct {
	store  domain.Store
	logger *zerolog.Logger
}

func NewSlotTemplateService(store domain.Store, logger *zerolog.Logger) *SlotTemplateService {
	return &SlotTemplateService{store: store, logger: logger}
}

func (s *SlotTemplateService) List(ctx context.Context, activeOnly bool) ([]models.SlotTemplate, error) {
	templates, err := s.store.ListSlotTemplates(ctx, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("%w: list slot templates: %v", domain.ErrPersistence, err)
	}
	return templates, nil
}

func (s *SlotTemplateService) Get(ctx context.Context, id string) (*models.SlotTemplate, error) {
	template, err := s.store.GetSlotTemplate(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, fmt.Errorf("%w: slot template %s", domain.ErrNotFound, id)
		}
		return nil, fmt.Errorf("%w: fetch slot template: %v", domain.ErrPersistence, err)
	}
	return template, nil
}

func (s *SlotTemplateService) Create(ctx context.Context, template *models.SlotTemplate) (*models.SlotTemplate, error) {
	if err := validateTemplate(template); err != nil {
		return nil, err
	}
	if template.ID == "" {
		template.ID = uuid.NewString()
	}
	template.IsActive = true

	if err := s.store.CreateSlotTemplate(ctx, template); err != nil {
		return nil, fmt.Errorf("%w: create slot template: %v", domain.ErrPersistence, err)
	}

	s.logger.Info().
		Str("template_id", template.ID).
		Str("day", models.DayNames[template.DayOfWeek]).
		Str("start", template.StartTime).
		Str("end", template.EndTime).
		Msg("slot template created")
	return template, nil
}

func (s *SlotTemplateService) Update(ctx context.Context, template *models.SlotTemplate) error {
	if template.ID == "" {
		return fmt.Errorf("%w: template id is required", domain.ErrValidation)
	}
	if err := validateTemplate(template); err != nil {
		return err
	}

	if err := s.store.UpdateSlotTemplate(ctx, template); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return fmt.Errorf("%w: slot template %s", domain.ErrNotFound, template.ID)
		}
		return fmt.Errorf("%w: update slot template: %v", domain.ErrPersistence, err)
	}
	return nil
}

func (s *SlotTemplateService) Deactivate(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: template id is required", domain.ErrValidation)
	}
	if err := s.store.DeactivateSlotTemplate(ctx, id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return fmt.Errorf("%w: slot template %s", domain.ErrNotFound, id)
		}
		return fmt.Errorf("%w: deactivate slot template: %v", domain.ErrPersistence, err)
	}

	s.logger.Info().Str("template_id", id).Msg("slot template deactivated")
	return nil
}

func validateTemplate(template *models.SlotTemplate) error {
	if template.DayOfWeek < 0 || template.DayOfWeek > 6 {
		return fmt.Errorf("%w: day_of_week must be 0-6", domain.ErrValidation)
	}
	start, err := parseClock(template.StartTime)
	if err != nil {
		return fmt.Errorf("%w: start_time must be HH:MM", domain.ErrValidation)
	}
	end, err := parseClock(template.EndTime)
	if err != nil {
		return fmt.Errorf("%w: end_time must be HH:MM", domain.ErrValidation)
	}
	if start >= end {
		return fmt.Errorf("%w: start_time must be before end_time", domain.ErrValidation)
	}
	if template.DurationHours <= 0 {
		return fmt.Errorf("%w: duration_hours must be positive", domain.ErrValidation)
	}
	if template.MaxCapacity < 1 {
		return fmt.Errorf("%w: max_capacity must be at least 1", domain.ErrValidation)
	}
	return nil
}

func parseClock(value string) (int, error) {
	var hours, minutes int
	if _, err := fmt.Sscanf(value, "%d:%d", &hours, &minutes); err != nil {
		return 0, err
	}
	if hours < 0 || hours > 23 || minutes < 0 || minutes > 59 {
		return 0, fmt.Errorf("clock value out of range: %s", value)
	}
	return hours*60 + minutes, nil
}
