package settings

import (
	"context"

	"github.com/codtrack/fulfillment-engine/pkg/db/models"
	"gorm.io/gorm"
)

// Repository defines persistence operations for the settings singleton.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Get(ctx context.Context) (*models.AutoAssignmentSettings, error)
	Create(ctx context.Context, row *models.AutoAssignmentSettings) error
	Update(ctx context.Context, updates map[string]any) error
}
