package workers

import (
	"context"
	"fmt"

	"github.com/codtrack/fulfillment-engine/pkg/db/models"
	pkgerrors "github.com/codtrack/fulfillment-engine/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes worker registry operations.
type Service interface {
	GetConfig(ctx context.Context, userID uuid.UUID) (*models.WorkerServiceConfig, error)
	UpdateConfig(ctx context.Context, userID uuid.UUID, input UpdateConfigInput) (*models.WorkerServiceConfig, error)
	SetOnline(ctx context.Context, userID uuid.UUID, online bool) (*models.WorkerServiceConfig, error)
	ListAvailable(ctx context.Context, query EligibilityQuery) ([]models.WorkerServiceConfig, error)
}

type service struct {
	repo Repository
	tx   txRunner
}

// NewService builds the worker registry service.
func NewService(repo Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("workers repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

func (s *service) GetConfig(ctx context.Context, userID uuid.UUID) (*models.WorkerServiceConfig, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	cfg, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "worker config not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load worker config")
	}
	return cfg, nil
}

func (s *service) UpdateConfig(ctx context.Context, userID uuid.UUID, input UpdateConfigInput) (*models.WorkerServiceConfig, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if input.MaxConcurrentAssignments != nil && *input.MaxConcurrentAssignments < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "max concurrent assignments must be at least 1")
	}
	if input.AutoAssignPriority != nil && *input.AutoAssignPriority < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "auto-assign priority cannot be negative")
	}

	updates := buildConfigUpdates(input)

	var out *models.WorkerServiceConfig
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		if _, err := repo.FindByUserID(ctx, userID); err != nil {
			if err != gorm.ErrRecordNotFound {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load worker config")
			}
			seed := &models.WorkerServiceConfig{
				UserID:                   userID,
				MaxConcurrentAssignments: 5,
			}
			if err := repo.Create(ctx, seed); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create worker config")
			}
		}

		if len(updates) > 0 {
			if err := repo.Update(ctx, userID, updates); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update worker config")
			}
		}

		cfg, err := repo.FindByUserID(ctx, userID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload worker config")
		}
		out = cfg
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *service) SetOnline(ctx context.Context, userID uuid.UUID, online bool) (*models.WorkerServiceConfig, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}

	var out *models.WorkerServiceConfig
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		if _, err := repo.FindByUserID(ctx, userID); err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "worker config not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load worker config")
		}

		if err := repo.Update(ctx, userID, map[string]any{"is_online": online}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update online status")
		}

		cfg, err := repo.FindByUserID(ctx, userID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload worker config")
		}
		out = cfg
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *service) ListAvailable(ctx context.Context, query EligibilityQuery) ([]models.WorkerServiceConfig, error) {
	if !query.ServiceType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid service type")
	}
	rows, err := s.repo.ListEligible(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list eligible workers")
	}
	return rows, nil
}

func buildConfigUpdates(input UpdateConfigInput) map[string]any {
	updates := map[string]any{}

	boolFields := map[string]*bool{
		"can_do_confirmation": input.CanDoConfirmation,
		"can_do_suivi":        input.CanDoSuivi,
		"can_do_quality":      input.CanDoQuality,
		"can_do_callback":     input.CanDoCallback,
	}
	for column, value := range boolFields {
		if value != nil {
			updates[column] = *value
		}
	}
	if input.MaxConcurrentAssignments != nil {
		updates["max_concurrent_assignments"] = *input.MaxConcurrentAssignments
	}
	if input.AutoAssignPriority != nil {
		updates["auto_assign_priority"] = *input.AutoAssignPriority
	}
	if input.RestrictedCityIDs != nil {
		updates["restricted_city_ids"] = *input.RestrictedCityIDs
	}
	if input.RestrictedSourceIDs != nil {
		updates["restricted_source_ids"] = *input.RestrictedSourceIDs
	}
	return updates
}
