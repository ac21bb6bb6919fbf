package models

import (
	"time"

	"github.com/codtrack/fulfillment-engine/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderAssignment is a single (order, serviceType, worker) work item. Rows are
// never deleted: every transition mutates status in place, preserving the full
// dispatch history for the order.
type OrderAssignment struct {
	ID               uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID          uuid.UUID              `gorm:"column:order_id;type:uuid;not null"`
	WorkerID         uuid.UUID              `gorm:"column:worker_id;type:uuid;not null"`
	ServiceType      enums.ServiceType      `gorm:"column:service_type;not null"`
	Status           enums.AssignmentStatus `gorm:"column:status;not null;default:pending"`
	Priority         int                    `gorm:"column:priority;not null;default:0"`
	AssignedByUserID *uuid.UUID             `gorm:"column:assigned_by_user_id;type:uuid"`
	AssignedAt       time.Time              `gorm:"column:assigned_at;autoCreateTime"`
	TakenAt          *time.Time             `gorm:"column:taken_at"`
	CompletedAt      *time.Time             `gorm:"column:completed_at"`
	ReleasedAt       *time.Time             `gorm:"column:released_at"`
	Result           *string                `gorm:"column:result"`
	Notes            *string                `gorm:"column:notes"`
	ReleaseReason    *string                `gorm:"column:release_reason"`
	CODCollected     *decimal.Decimal       `gorm:"column:cod_collected;type:numeric(12,2)"`

	CallbackScheduledAt   *time.Time `gorm:"column:callback_scheduled_at"`
	CallbackAttemptNumber int        `gorm:"column:callback_attempt_number;not null;default:0"`

	QualityApproved *bool `gorm:"column:quality_approved"`
	QualityScore    *int  `gorm:"column:quality_score"`

	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// IsAutoAssigned reports whether the assignment was created by the
// auto-assigner rather than a supervisor or the worker themself.
func (a *OrderAssignment) IsAutoAssigned() bool {
	return a != nil && a.AssignedByUserID == nil
}

// IsCallbackOverdue derives the overdue flag at read time; it is never stored.
func (a *OrderAssignment) IsCallbackOverdue(now time.Time) bool {
	if a == nil || a.CallbackScheduledAt == nil {
		return false
	}
	return a.Status.IsActive() && now.After(*a.CallbackScheduledAt)
}
