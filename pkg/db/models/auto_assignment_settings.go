package models

import (
	"time"

	"github.com/codtrack/fulfillment-engine/pkg/enums"
)

// SettingsSingletonID is the fixed primary key of the one settings row.
const SettingsSingletonID = 1

// AutoAssignmentSettings is the singleton policy row that governs automatic
// distribution, chaining, expiry, and callback limits. It is loaded once per
// operation and passed explicitly, never read through a global.
type AutoAssignmentSettings struct {
	ID int `gorm:"column:id;primaryKey"`

	IsEnabled              bool                     `gorm:"column:is_enabled;not null;default:false"`
	AutoAssignConfirmation bool                     `gorm:"column:auto_assign_confirmation;not null;default:false"`
	AutoAssignSuivi        bool                     `gorm:"column:auto_assign_suivi;not null;default:false"`
	AutoAssignQuality      bool                     `gorm:"column:auto_assign_quality;not null;default:false"`
	AutoAssignCallback     bool                     `gorm:"column:auto_assign_callback;not null;default:false"`
	Strategy               enums.AssignmentStrategy `gorm:"column:strategy;not null;default:round_robin"`
	OnlyOnlineWorkers      bool                     `gorm:"column:only_online_workers;not null;default:true"`

	AssignmentTimeoutMinutes int `gorm:"column:assignment_timeout_minutes;not null;default:30"`
	GlobalMaxOrdersPerWorker int `gorm:"column:global_max_orders_per_worker;not null;default:0"`

	EnableQualityCheck               bool `gorm:"column:enable_quality_check;not null;default:false"`
	QualityPassThreshold             int  `gorm:"column:quality_pass_threshold;not null;default:70"`
	ReturnRejectedToSameConfirmateur bool `gorm:"column:return_rejected_to_same_confirmateur;not null;default:true"`

	MaxCallbackAttempts   int  `gorm:"column:max_callback_attempts;not null;default:3"`
	AutoCancelUnreachable bool `gorm:"column:auto_cancel_unreachable;not null;default:false"`

	AutoAssignSuiviAfterConfirm bool                           `gorm:"column:auto_assign_suivi_after_confirm;not null;default:true"`
	SuiviToSameWorker           bool                           `gorm:"column:suivi_to_same_worker;not null;default:false"`
	ReturnToConfirmationMode    enums.ReturnToConfirmationMode `gorm:"column:return_to_confirmation_mode;not null;default:open"`

	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// AutoAssignEnabledFor reports whether automatic distribution covers the stage.
func (s *AutoAssignmentSettings) AutoAssignEnabledFor(serviceType enums.ServiceType) bool {
	if s == nil || !s.IsEnabled {
		return false
	}
	switch serviceType {
	case enums.ServiceTypeConfirmation:
		return s.AutoAssignConfirmation
	case enums.ServiceTypeSuivi:
		return s.AutoAssignSuivi
	case enums.ServiceTypeQuality:
		return s.AutoAssignQuality
	case enums.ServiceTypeCallback:
		return s.AutoAssignCallback
	default:
		return false
	}
}

// AssignmentTimeout returns the pending-assignment TTL as a duration.
func (s *AutoAssignmentSettings) AssignmentTimeout() time.Duration {
	if s == nil || s.AssignmentTimeoutMinutes <= 0 {
		return 0
	}
	return time.Duration(s.AssignmentTimeoutMinutes) * time.Minute
}

// DefaultAutoAssignmentSettings returns the row seeded on first boot.
func DefaultAutoAssignmentSettings() *AutoAssignmentSettings {
	return &AutoAssignmentSettings{
		ID:                          SettingsSingletonID,
		Strategy:                    enums.AssignmentStrategyRoundRobin,
		OnlyOnlineWorkers:           true,
		AssignmentTimeoutMinutes:    30,
		QualityPassThreshold:        70,
		MaxCallbackAttempts:         3,
		AutoAssignSuiviAfterConfirm: true,
		ReturnToConfirmationMode:    enums.ReturnModeOpen,

		ReturnRejectedToSameConfirmateur: true,
	}
}
