package workers

import (
	"context"
	"time"

	"github.com/codtrack/fulfillment-engine/pkg/db/models"
	"github.com/codtrack/fulfillment-engine/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a workers repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByUserID(ctx context.Context, userID uuid.UUID) (*models.WorkerServiceConfig, error) {
	var cfg models.WorkerServiceConfig
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&cfg).Error
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (r *repository) Create(ctx context.Context, cfg *models.WorkerServiceConfig) error {
	return r.db.WithContext(ctx).Create(cfg).Error
}

func (r *repository) Update(ctx context.Context, userID uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.WorkerServiceConfig{}).
		Where("user_id = ?", userID).
		Updates(updates).Error
}

func capabilityColumn(serviceType enums.ServiceType) string {
	switch serviceType {
	case enums.ServiceTypeSuivi:
		return "can_do_suivi"
	case enums.ServiceTypeQuality:
		return "can_do_quality"
	case enums.ServiceTypeCallback:
		return "can_do_callback"
	default:
		return "can_do_confirmation"
	}
}

func (r *repository) ListEligible(ctx context.Context, query EligibilityQuery) ([]models.WorkerServiceConfig, error) {
	q := r.db.WithContext(ctx).
		Where(capabilityColumn(query.ServiceType)+" = ?", true).
		Where("current_assignment_count < max_concurrent_assignments")
	if query.OnlyOnline {
		q = q.Where("is_online = ?", true)
	}
	if query.GlobalMaxAssignments > 0 {
		q = q.Where("current_assignment_count < ?", query.GlobalMaxAssignments)
	}

	var rows []models.WorkerServiceConfig
	if err := q.Order("user_id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}

	// Restriction lists are uuid arrays; filter in Go rather than relying on
	// dialect-specific array operators.
	out := rows[:0]
	for i := range rows {
		cfg := rows[i]
		if !cfg.AllowsCity(query.CityID) || !cfg.AllowsSource(query.SourceID) {
			continue
		}
		out = append(out, cfg)
	}
	return out, nil
}

func (r *repository) IncrementLoad(ctx context.Context, userID uuid.UUID, globalMax int, now time.Time) (bool, error) {
	q := r.db.WithContext(ctx).
		Model(&models.WorkerServiceConfig{}).
		Where("user_id = ?", userID).
		Where("current_assignment_count < max_concurrent_assignments")
	if globalMax > 0 {
		q = q.Where("current_assignment_count < ?", globalMax)
	}
	res := q.Updates(map[string]any{
		"current_assignment_count": gorm.Expr("current_assignment_count + 1"),
		"last_assigned_at":         now,
	})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) DecrementLoad(ctx context.Context, userID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.WorkerServiceConfig{}).
		Where("user_id = ?", userID).
		Where("current_assignment_count > 0").
		Update("current_assignment_count", gorm.Expr("current_assignment_count - 1")).Error
}
