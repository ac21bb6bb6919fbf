package workers

import (
	"context"
	"time"

	"github.com/codtrack/fulfillment-engine/pkg/db/models"
	"github.com/codtrack/fulfillment-engine/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EligibilityQuery narrows the worker pool for a stage before selection.
type EligibilityQuery struct {
	ServiceType enums.ServiceType
	OnlyOnline  bool
	// GlobalMaxAssignments caps live load in addition to each worker's own
	// max; zero means no global cap.
	GlobalMaxAssignments int
	CityID               *uuid.UUID
	SourceID             *uuid.UUID
}

// Repository defines persistence operations for worker service configs.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByUserID(ctx context.Context, userID uuid.UUID) (*models.WorkerServiceConfig, error)
	Create(ctx context.Context, cfg *models.WorkerServiceConfig) error
	Update(ctx context.Context, userID uuid.UUID, updates map[string]any) error
	ListEligible(ctx context.Context, query EligibilityQuery) ([]models.WorkerServiceConfig, error)
	// IncrementLoad bumps the live counter iff it is below both the worker's
	// own cap and the global cap; reports whether a row was claimed.
	IncrementLoad(ctx context.Context, userID uuid.UUID, globalMax int, now time.Time) (bool, error)
	DecrementLoad(ctx context.Context, userID uuid.UUID) error
}
