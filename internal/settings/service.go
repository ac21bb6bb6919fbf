package settings

import (
	"context"
	"fmt"

	"github.com/codtrack/fulfillment-engine/pkg/db/models"
	"github.com/codtrack/fulfillment-engine/pkg/enums"
	pkgerrors "github.com/codtrack/fulfillment-engine/pkg/errors"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes read/write access to the auto-assignment policy singleton.
type Service interface {
	Get(ctx context.Context) (*models.AutoAssignmentSettings, error)
	Update(ctx context.Context, input UpdateInput) (*models.AutoAssignmentSettings, error)
}

// UpdateInput carries a partial settings update. Nil fields are left untouched.
type UpdateInput struct {
	IsEnabled              *bool
	AutoAssignConfirmation *bool
	AutoAssignSuivi        *bool
	AutoAssignQuality      *bool
	AutoAssignCallback     *bool
	Strategy               *enums.AssignmentStrategy
	OnlyOnlineWorkers      *bool

	AssignmentTimeoutMinutes *int
	GlobalMaxOrdersPerWorker *int

	EnableQualityCheck               *bool
	QualityPassThreshold             *int
	ReturnRejectedToSameConfirmateur *bool

	MaxCallbackAttempts   *int
	AutoCancelUnreachable *bool

	AutoAssignSuiviAfterConfirm *bool
	SuiviToSameWorker           *bool
	ReturnToConfirmationMode    *enums.ReturnToConfirmationMode
}

type service struct {
	repo Repository
	tx   txRunner
}

// NewService builds the settings service with the required dependencies.
func NewService(repo Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("settings repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

func (s *service) Get(ctx context.Context) (*models.AutoAssignmentSettings, error) {
	row, err := s.repo.Get(ctx)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return models.DefaultAutoAssignmentSettings(), nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load settings")
	}
	return row, nil
}

func (s *service) Update(ctx context.Context, input UpdateInput) (*models.AutoAssignmentSettings, error) {
	updates, err := buildUpdates(input)
	if err != nil {
		return nil, err
	}

	var out *models.AutoAssignmentSettings
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		if _, err := repo.Get(ctx); err != nil {
			if err != gorm.ErrRecordNotFound {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load settings")
			}
			if err := repo.Create(ctx, models.DefaultAutoAssignmentSettings()); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "seed settings")
			}
		}

		if len(updates) > 0 {
			if err := repo.Update(ctx, updates); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update settings")
			}
		}

		row, err := repo.Get(ctx)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload settings")
		}
		out = row
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func buildUpdates(input UpdateInput) (map[string]any, error) {
	updates := map[string]any{}

	if input.Strategy != nil {
		if !input.Strategy.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid assignment strategy")
		}
		updates["strategy"] = *input.Strategy
	}
	if input.ReturnToConfirmationMode != nil {
		if !input.ReturnToConfirmationMode.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid return-to-confirmation mode")
		}
		updates["return_to_confirmation_mode"] = *input.ReturnToConfirmationMode
	}
	if input.AssignmentTimeoutMinutes != nil {
		if *input.AssignmentTimeoutMinutes < 1 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "assignment timeout must be at least 1 minute")
		}
		updates["assignment_timeout_minutes"] = *input.AssignmentTimeoutMinutes
	}
	if input.GlobalMaxOrdersPerWorker != nil {
		if *input.GlobalMaxOrdersPerWorker < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "global max orders per worker cannot be negative")
		}
		updates["global_max_orders_per_worker"] = *input.GlobalMaxOrdersPerWorker
	}
	if input.QualityPassThreshold != nil {
		if *input.QualityPassThreshold < 0 || *input.QualityPassThreshold > 100 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quality pass threshold must be between 0 and 100")
		}
		updates["quality_pass_threshold"] = *input.QualityPassThreshold
	}
	if input.MaxCallbackAttempts != nil {
		if *input.MaxCallbackAttempts < 1 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "max callback attempts must be at least 1")
		}
		updates["max_callback_attempts"] = *input.MaxCallbackAttempts
	}

	boolFields := map[string]*bool{
		"is_enabled":                           input.IsEnabled,
		"auto_assign_confirmation":             input.AutoAssignConfirmation,
		"auto_assign_suivi":                    input.AutoAssignSuivi,
		"auto_assign_quality":                  input.AutoAssignQuality,
		"auto_assign_callback":                 input.AutoAssignCallback,
		"only_online_workers":                  input.OnlyOnlineWorkers,
		"enable_quality_check":                 input.EnableQualityCheck,
		"return_rejected_to_same_confirmateur": input.ReturnRejectedToSameConfirmateur,
		"auto_cancel_unreachable":              input.AutoCancelUnreachable,
		"auto_assign_suivi_after_confirm":      input.AutoAssignSuiviAfterConfirm,
		"suivi_to_same_worker":                 input.SuiviToSameWorker,
	}
	for column, value := range boolFields {
		if value != nil {
			updates[column] = *value
		}
	}

	return updates, nil
}
