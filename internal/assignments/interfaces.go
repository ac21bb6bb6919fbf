package assignments

import (
	"context"
	"time"

	"github.com/codtrack/fulfillment-engine/pkg/db/models"
	"github.com/codtrack/fulfillment-engine/pkg/enums"
	"github.com/codtrack/fulfillment-engine/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines persistence operations for the assignment store.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	// Create inserts a new pending row. A live (order, service_type) pair
	// surfaces as ErrActivePairExists.
	Create(ctx context.Context, assignment *models.OrderAssignment) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.OrderAssignment, error)
	FindActiveByOrderAndType(ctx context.Context, orderID uuid.UUID, serviceType enums.ServiceType) (*models.OrderAssignment, error)
	// FindLastConfirmationWorker returns the worker who most recently completed
	// the confirmation stage for the order, if any.
	FindLastConfirmationWorker(ctx context.Context, orderID uuid.UUID) (*uuid.UUID, error)
	// UpdateIfStatus applies updates only while the row status is in allowed;
	// reports whether the row was claimed. First committer wins.
	UpdateIfStatus(ctx context.Context, id uuid.UUID, allowed []enums.AssignmentStatus, updates map[string]any) (bool, error)
	ListByWorker(ctx context.Context, workerID uuid.UUID, statuses []enums.AssignmentStatus, filters ListFilters, params pagination.Params) (*AssignmentList, error)
	ListActive(ctx context.Context, filters ListFilters, params pagination.Params) (*AssignmentList, error)
	ListUnassignedOrders(ctx context.Context, serviceType enums.ServiceType, params pagination.Params) (*OrderQueueList, error)
	ListPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.OrderAssignment, error)
	ListOverdueCallbacks(ctx context.Context, now time.Time, workerID *uuid.UUID, params pagination.Params) (*AssignmentList, error)
	WorkersStats(ctx context.Context) ([]WorkerStatsRow, error)
}
