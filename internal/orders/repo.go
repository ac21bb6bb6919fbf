package orders

import (
	"context"

	"github.com/codtrack/fulfillment-engine/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) GrabIfFree(ctx context.Context, orderID, workerID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND grabbed_by_user_id IS NULL", orderID).
		Update("grabbed_by_user_id", workerID)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) ReleaseGrab(ctx context.Context, orderID, workerID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND grabbed_by_user_id = ?", orderID, workerID).
		Update("grabbed_by_user_id", nil)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// Reader implements cross-domain order lookup inside a caller's transaction.
type Reader struct {
	db *gorm.DB
}

// NewReader exposes the default order reader implementation.
func NewReader(db *gorm.DB) *Reader {
	return &Reader{db: db}
}

// FindOrder loads the order through tx when provided, falling back to the
// reader's own connection.
func (r *Reader) FindOrder(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Order, error) {
	conn := r.db
	if tx != nil {
		conn = tx
	}
	var order models.Order
	err := conn.WithContext(ctx).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}
