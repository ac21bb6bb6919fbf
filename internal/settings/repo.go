package settings

import (
	"context"

	"github.com/codtrack/fulfillment-engine/pkg/db/models"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a settings repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Get(ctx context.Context) (*models.AutoAssignmentSettings, error) {
	var row models.AutoAssignmentSettings
	err := r.db.WithContext(ctx).
		Where("id = ?", models.SettingsSingletonID).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) Create(ctx context.Context, row *models.AutoAssignmentSettings) error {
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *repository) Update(ctx context.Context, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.AutoAssignmentSettings{}).
		Where("id = ?", models.SettingsSingletonID).
		Updates(updates).Error
}
