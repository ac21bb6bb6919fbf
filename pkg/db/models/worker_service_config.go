package models

import (
	"time"

	dbtypes "github.com/codtrack/fulfillment-engine/pkg/db/types"
	"github.com/codtrack/fulfillment-engine/pkg/enums"
	"github.com/google/uuid"
)

// WorkerServiceConfig is the engine's view of a worker: capability flags,
// online status, and the live load counter. CurrentAssignmentCount must always
// equal the number of the worker's pending/taken assignments; it is only
// mutated inside the same transaction as the assignment transition.
type WorkerServiceConfig struct {
	UserID uuid.UUID `gorm:"column:user_id;type:uuid;primaryKey"`

	CanDoConfirmation bool `gorm:"column:can_do_confirmation;not null;default:false"`
	CanDoSuivi        bool `gorm:"column:can_do_suivi;not null;default:false"`
	CanDoQuality      bool `gorm:"column:can_do_quality;not null;default:false"`
	CanDoCallback     bool `gorm:"column:can_do_callback;not null;default:false"`

	IsOnline                 bool       `gorm:"column:is_online;not null;default:false"`
	MaxConcurrentAssignments int        `gorm:"column:max_concurrent_assignments;not null;default:5"`
	CurrentAssignmentCount   int        `gorm:"column:current_assignment_count;not null;default:0"`
	AutoAssignPriority       int        `gorm:"column:auto_assign_priority;not null;default:0"`
	LastAssignedAt           *time.Time `gorm:"column:last_assigned_at"`

	RestrictedCityIDs   dbtypes.UUIDArray `gorm:"column:restricted_city_ids;type:uuid[]"`
	RestrictedSourceIDs dbtypes.UUIDArray `gorm:"column:restricted_source_ids;type:uuid[]"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// CanDo reports whether the worker holds the capability flag for the stage.
func (w *WorkerServiceConfig) CanDo(serviceType enums.ServiceType) bool {
	if w == nil {
		return false
	}
	switch serviceType {
	case enums.ServiceTypeConfirmation:
		return w.CanDoConfirmation
	case enums.ServiceTypeSuivi:
		return w.CanDoSuivi
	case enums.ServiceTypeQuality:
		return w.CanDoQuality
	case enums.ServiceTypeCallback:
		return w.CanDoCallback
	default:
		return false
	}
}

// HasSpareCapacity reports whether another assignment fits under the worker's
// own cap and the optional global cap (0 means no global cap).
func (w *WorkerServiceConfig) HasSpareCapacity(globalMax int) bool {
	if w == nil {
		return false
	}
	limit := w.MaxConcurrentAssignments
	if globalMax > 0 && globalMax < limit {
		limit = globalMax
	}
	return w.CurrentAssignmentCount < limit
}

// AllowsCity reports whether the worker may serve orders from the given city.
// An empty restriction list means unrestricted.
func (w *WorkerServiceConfig) AllowsCity(cityID *uuid.UUID) bool {
	return allowsID(w.RestrictedCityIDs, cityID)
}

// AllowsSource reports whether the worker may serve orders from the given source.
func (w *WorkerServiceConfig) AllowsSource(sourceID *uuid.UUID) bool {
	return allowsID(w.RestrictedSourceIDs, sourceID)
}

func allowsID(allowed dbtypes.UUIDArray, id *uuid.UUID) bool {
	if len(allowed) == 0 {
		return true
	}
	if id == nil {
		return false
	}
	for _, candidate := range allowed {
		if candidate == *id {
			return true
		}
	}
	return false
}
