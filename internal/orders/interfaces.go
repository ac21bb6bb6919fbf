package orders

import (
	"context"

	"github.com/codtrack/fulfillment-engine/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines persistence operations on the orders read model.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	// GrabIfFree claims order-level ownership only while nobody holds it;
	// reports whether the claim landed.
	GrabIfFree(ctx context.Context, orderID, workerID uuid.UUID) (bool, error)
	ReleaseGrab(ctx context.Context, orderID, workerID uuid.UUID) (bool, error)
}
