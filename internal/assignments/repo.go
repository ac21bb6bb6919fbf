package assignments

import (
	"context"
	"errors"
	"time"

	"github.com/codtrack/fulfillment-engine/pkg/db"
	"github.com/codtrack/fulfillment-engine/pkg/db/models"
	"github.com/codtrack/fulfillment-engine/pkg/enums"
	"github.com/codtrack/fulfillment-engine/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrActivePairExists marks an insert rejected by the one-live-assignment-per
// (order, stage) index.
var ErrActivePairExists = errors.New("active assignment already exists for order and service type")

const activePairIndex = "uq_order_assignments_active_pair"

type repository struct {
	db *gorm.DB
}

// NewRepository builds an assignments repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, assignment *models.OrderAssignment) error {
	err := r.db.WithContext(ctx).Create(assignment).Error
	if err == nil {
		return nil
	}
	if db.IsUniqueViolation(err, activePairIndex) ||
		db.IsUniqueViolation(err, "order_assignments.order_id") {
		return ErrActivePairExists
	}
	return err
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.OrderAssignment, error) {
	var row models.OrderAssignment
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) FindActiveByOrderAndType(ctx context.Context, orderID uuid.UUID, serviceType enums.ServiceType) (*models.OrderAssignment, error) {
	var row models.OrderAssignment
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND service_type = ?", orderID, serviceType).
		Where("status IN ?", enums.ActiveAssignmentStatuses).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) FindLastConfirmationWorker(ctx context.Context, orderID uuid.UUID) (*uuid.UUID, error) {
	var row models.OrderAssignment
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND service_type = ? AND status = ?",
			orderID, enums.ServiceTypeConfirmation, enums.AssignmentStatusCompleted).
		Order("completed_at DESC").
		First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	workerID := row.WorkerID
	return &workerID, nil
}

func (r *repository) UpdateIfStatus(ctx context.Context, id uuid.UUID, allowed []enums.AssignmentStatus, updates map[string]any) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.OrderAssignment{}).
		Where("id = ? AND status IN ?", id, allowed).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) ListByWorker(ctx context.Context, workerID uuid.UUID, statuses []enums.AssignmentStatus, filters ListFilters, params pagination.Params) (*AssignmentList, error) {
	q := r.db.WithContext(ctx).
		Where("worker_id = ?", workerID).
		Where("status IN ?", statuses)
	q = applyListFilters(q, filters)
	return r.paginateAssignments(q, params)
}

func (r *repository) ListActive(ctx context.Context, filters ListFilters, params pagination.Params) (*AssignmentList, error) {
	q := r.db.WithContext(ctx).
		Where("status IN ?", enums.ActiveAssignmentStatuses)
	q = applyListFilters(q, filters)
	return r.paginateAssignments(q, params)
}

func (r *repository) ListUnassignedOrders(ctx context.Context, serviceType enums.ServiceType, params pagination.Params) (*OrderQueueList, error) {
	limit := pagination.NormalizeLimit(params.Limit)
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}

	q := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("state NOT IN ?", []enums.OrderState{
			enums.OrderStateDelivered, enums.OrderStateReturned, enums.OrderStateCancelled,
		}).
		Where(`NOT EXISTS (
			SELECT 1 FROM order_assignments a
			WHERE a.order_id = orders.id
			  AND a.service_type = ?
			  AND a.status IN ?
		)`, serviceType, enums.ActiveAssignmentStatuses)
	if cursor != nil {
		q = q.Where("(created_on < ?) OR (created_on = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Order
	err = q.Order("created_on DESC, id DESC").
		Limit(limit + 1).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	list := &OrderQueueList{Orders: rows}
	if len(rows) > limit {
		list.Orders = rows[:limit]
		last := list.Orders[limit-1]
		list.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedOn,
			ID:        last.ID,
		})
	}
	return list, nil
}

func (r *repository) ListPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.OrderAssignment, error) {
	var rows []models.OrderAssignment
	err := r.db.WithContext(ctx).
		Where("status = ? AND assigned_at < ?", enums.AssignmentStatusPending, cutoff).
		Order("assigned_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) ListOverdueCallbacks(ctx context.Context, now time.Time, workerID *uuid.UUID, params pagination.Params) (*AssignmentList, error) {
	q := r.db.WithContext(ctx).
		Where("service_type = ?", enums.ServiceTypeCallback).
		Where("status IN ?", enums.ActiveAssignmentStatuses).
		Where("callback_scheduled_at IS NOT NULL AND callback_scheduled_at < ?", now)
	if workerID != nil {
		q = q.Where("worker_id = ?", *workerID)
	}
	return r.paginateAssignments(q, params)
}

func (r *repository) WorkersStats(ctx context.Context) ([]WorkerStatsRow, error) {
	var rows []WorkerStatsRow
	err := r.db.WithContext(ctx).Raw(`
		SELECT
			w.user_id AS worker_id,
			w.is_online AS is_online,
			w.current_assignment_count AS current_assignment_count,
			w.max_concurrent_assignments AS max_concurrent_assignments,
			COALESCE(SUM(CASE WHEN a.status = 'pending' THEN 1 ELSE 0 END), 0) AS pending_count,
			COALESCE(SUM(CASE WHEN a.status = 'taken' THEN 1 ELSE 0 END), 0) AS taken_count,
			COALESCE(SUM(CASE WHEN a.status = 'completed' THEN 1 ELSE 0 END), 0) AS completed_count,
			COALESCE(SUM(CASE WHEN a.status = 'released' THEN 1 ELSE 0 END), 0) AS released_count
		FROM worker_service_configs w
		LEFT JOIN order_assignments a ON a.worker_id = w.user_id
		GROUP BY w.user_id, w.is_online, w.current_assignment_count, w.max_concurrent_assignments
		ORDER BY w.user_id ASC
	`).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func applyListFilters(q *gorm.DB, filters ListFilters) *gorm.DB {
	if filters.ServiceType != nil {
		q = q.Where("service_type = ?", *filters.ServiceType)
	}
	return q
}

// paginateAssignments pages on (assigned_at, id) descending.
func (r *repository) paginateAssignments(q *gorm.DB, params pagination.Params) (*AssignmentList, error) {
	limit := pagination.NormalizeLimit(params.Limit)
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		q = q.Where("(assigned_at < ?) OR (assigned_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.OrderAssignment
	err = q.Order("assigned_at DESC, id DESC").
		Limit(limit + 1).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	list := &AssignmentList{Assignments: rows}
	if len(rows) > limit {
		list.Assignments = rows[:limit]
		last := list.Assignments[limit-1]
		list.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.AssignedAt,
			ID:        last.ID,
		})
	}
	return list, nil
}
