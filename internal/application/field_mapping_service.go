package application

import (
	"context"
	"fmt"

	"shopify-hubspot-sync/internal/domain"
	"shopify-hubspot-sync/internal/ports"

	"github.com/rs/zerolog"
)

// FieldMappingService maintains the symmetric one-to-one links between fields of the two sides of a Connect
type FieldMappingService struct {
	fieldRepo ports.FieldRepository
	logger    zerolog.Logger
}

// NewFieldMappingService creates a new field mapping service
func NewFieldMappingService(fieldRepo ports.FieldRepository, logger zerolog.Logger) *FieldMappingService {
	return &FieldMappingService{
		fieldRepo: fieldRepo,
		logger:    logger,
	}
}

func (s *FieldMappingService) getField(ctx context.Context, userID, id string) (*domain.Field, error) {
	field, err := s.fieldRepo.GetField(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load field: %w", err)
	}
	if field == nil || (userID != "" && field.UserID != userID) {
		return nil, fmt.Errorf("%w: field %s", domain.ErrNotFound, id)
	}
	return field, nil
}

// Associate links two fields to each other. A previous partner of fromID is released first.
func (s *FieldMappingService) Associate(ctx context.Context, userID, fromID, toID string) error {
	from, err := s.getField(ctx, userID, fromID)
	if err != nil {
		return err
	}
	to, err := s.getField(ctx, userID, toID)
	if err != nil {
		return err
	}

	if from.ID == to.ID {
		return fmt.Errorf("%w: a field cannot be mapped to itself", domain.ErrConflict)
	}
	if from.AppID == to.AppID {
		return fmt.Errorf("%w: fields belong to the same app", domain.ErrConflict)
	}
	if from.ConnectID != to.ConnectID {
		return fmt.Errorf("%w: fields belong to different connects", domain.ErrConflict)
	}
	if from.ModuleType != to.ModuleType {
		return fmt.Errorf("%w: fields belong to different modules", domain.ErrConflict)
	}
	if to.IsUsed && to.MappingField != from.ID {
		return fmt.Errorf("%w: field %s is already mapped", domain.ErrConflict, to.ID)
	}
	if from.MappingField == to.ID && to.MappingField == from.ID {
		return nil
	}

	if from.MappingField != "" && from.MappingField != to.ID {
		if err := s.clear(ctx, from.MappingField); err != nil {
			return err
		}
	}

	if err := s.fieldRepo.UpdateMapping(ctx, from.ID, true, to.ID); err != nil {
		return fmt.Errorf("failed to map field %s: %w", from.ID, err)
	}
	if err := s.fieldRepo.UpdateMapping(ctx, to.ID, true, from.ID); err != nil {
		return fmt.Errorf("failed to map field %s: %w", to.ID, err)
	}

	s.logger.Info().Str("from_field", from.Name).Str("to_field", to.Name).Msg("Fields associated")
	return nil
}

// Release clears the mapping of a field and of its partner
func (s *FieldMappingService) Release(ctx context.Context, userID, fieldID string) error {
	field, err := s.getField(ctx, userID, fieldID)
	if err != nil {
		return err
	}
	return s.release(ctx, field)
}

func (s *FieldMappingService) release(ctx context.Context, field *domain.Field) error {
	if field.MappingField != "" {
		if err := s.clear(ctx, field.MappingField); err != nil {
			return err
		}
	}
	return s.clear(ctx, field.ID)
}

// clear resets one side. A partner that is already gone is not an error.
func (s *FieldMappingService) clear(ctx context.Context, id string) error {
	err := s.fieldRepo.UpdateMapping(ctx, id, false, "")
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("failed to release field %s: %w", id, err)
	}
	return nil
}
