package models

import (
	"time"

	"github.com/codtrack/fulfillment-engine/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Order is the engine's view of an e-commerce order. The row is owned by the
// upstream order system; the engine reads phase/state and only writes the
// legacy grab ownership column.
type Order struct {
	ID              uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code            string           `gorm:"column:code;not null"`
	Phase           enums.OrderPhase `gorm:"column:phase;not null"`
	State           enums.OrderState `gorm:"column:state;not null"`
	CityID          *uuid.UUID       `gorm:"column:city_id;type:uuid"`
	StoreID         *uuid.UUID       `gorm:"column:store_id;type:uuid"`
	SourceID        *uuid.UUID       `gorm:"column:source_id;type:uuid"`
	Total           decimal.Decimal  `gorm:"column:total;type:numeric(12,2);not null;default:0"`
	GrabbedByUserID *uuid.UUID       `gorm:"column:grabbed_by_user_id;type:uuid"`
	CreatedOn       time.Time        `gorm:"column:created_on;autoCreateTime"`
	UpdatedAt       time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// AcceptsAssignments reports whether new assignments may be created for the order.
func (o *Order) AcceptsAssignments() bool {
	return o != nil && !o.State.IsTerminal()
}
