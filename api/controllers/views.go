package controllers

import (
	"time"

	"github.com/codtrack/fulfillment-engine/internal/assignments"
	"github.com/codtrack/fulfillment-engine/pkg/db/models"
	dbtypes "github.com/codtrack/fulfillment-engine/pkg/db/types"
	"github.com/codtrack/fulfillment-engine/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type assignmentView struct {
	ID                    uuid.UUID              `json:"id"`
	OrderID               uuid.UUID              `json:"order_id"`
	WorkerID              uuid.UUID              `json:"worker_id"`
	ServiceType           enums.ServiceType      `json:"service_type"`
	Status                enums.AssignmentStatus `json:"status"`
	Priority              int                    `json:"priority"`
	AssignedByUserID      *uuid.UUID             `json:"assigned_by_user_id,omitempty"`
	AutoAssigned          bool                   `json:"auto_assigned"`
	AssignedAt            time.Time              `json:"assigned_at"`
	TakenAt               *time.Time             `json:"taken_at,omitempty"`
	CompletedAt           *time.Time             `json:"completed_at,omitempty"`
	ReleasedAt            *time.Time             `json:"released_at,omitempty"`
	Result                *string                `json:"result,omitempty"`
	Notes                 *string                `json:"notes,omitempty"`
	ReleaseReason         *string                `json:"release_reason,omitempty"`
	CODCollected          *decimal.Decimal       `json:"cod_collected,omitempty"`
	CallbackScheduledAt   *time.Time             `json:"callback_scheduled_at,omitempty"`
	CallbackAttemptNumber int                    `json:"callback_attempt_number"`
	CallbackOverdue       bool                   `json:"callback_overdue"`
	QualityApproved       *bool                  `json:"quality_approved,omitempty"`
	QualityScore          *int                   `json:"quality_score,omitempty"`
}

func newAssignmentView(row *models.OrderAssignment) assignmentView {
	return assignmentView{
		ID:                    row.ID,
		OrderID:               row.OrderID,
		WorkerID:              row.WorkerID,
		ServiceType:           row.ServiceType,
		Status:                row.Status,
		Priority:              row.Priority,
		AssignedByUserID:      row.AssignedByUserID,
		AutoAssigned:          row.IsAutoAssigned(),
		AssignedAt:            row.AssignedAt,
		TakenAt:               row.TakenAt,
		CompletedAt:           row.CompletedAt,
		ReleasedAt:            row.ReleasedAt,
		Result:                row.Result,
		Notes:                 row.Notes,
		ReleaseReason:         row.ReleaseReason,
		CODCollected:          row.CODCollected,
		CallbackScheduledAt:   row.CallbackScheduledAt,
		CallbackAttemptNumber: row.CallbackAttemptNumber,
		CallbackOverdue:       row.IsCallbackOverdue(time.Now().UTC()),
		QualityApproved:       row.QualityApproved,
		QualityScore:          row.QualityScore,
	}
}

type assignmentListView struct {
	Assignments []assignmentView `json:"assignments"`
	NextCursor  string           `json:"next_cursor,omitempty"`
}

func newAssignmentListView(list *assignments.AssignmentList) assignmentListView {
	view := assignmentListView{
		Assignments: make([]assignmentView, 0, len(list.Assignments)),
		NextCursor:  list.NextCursor,
	}
	for i := range list.Assignments {
		view.Assignments = append(view.Assignments, newAssignmentView(&list.Assignments[i]))
	}
	return view
}

type orderView struct {
	ID              uuid.UUID        `json:"id"`
	Code            string           `json:"code"`
	Phase           enums.OrderPhase `json:"phase"`
	State           enums.OrderState `json:"state"`
	CityID          *uuid.UUID       `json:"city_id,omitempty"`
	SourceID        *uuid.UUID       `json:"source_id,omitempty"`
	Total           decimal.Decimal  `json:"total"`
	GrabbedByUserID *uuid.UUID       `json:"grabbed_by_user_id,omitempty"`
	CreatedOn       time.Time        `json:"created_on"`
}

func newOrderView(row *models.Order) orderView {
	return orderView{
		ID:              row.ID,
		Code:            row.Code,
		Phase:           row.Phase,
		State:           row.State,
		CityID:          row.CityID,
		SourceID:        row.SourceID,
		Total:           row.Total,
		GrabbedByUserID: row.GrabbedByUserID,
		CreatedOn:       row.CreatedOn,
	}
}

type orderListView struct {
	Orders     []orderView `json:"orders"`
	NextCursor string      `json:"next_cursor,omitempty"`
}

func newOrderListView(list *assignments.OrderQueueList) orderListView {
	view := orderListView{
		Orders:     make([]orderView, 0, len(list.Orders)),
		NextCursor: list.NextCursor,
	}
	for i := range list.Orders {
		view.Orders = append(view.Orders, newOrderView(&list.Orders[i]))
	}
	return view
}

type workerConfigView struct {
	UserID                   uuid.UUID         `json:"user_id"`
	CanDoConfirmation        bool              `json:"can_do_confirmation"`
	CanDoSuivi               bool              `json:"can_do_suivi"`
	CanDoQuality             bool              `json:"can_do_quality"`
	CanDoCallback            bool              `json:"can_do_callback"`
	IsOnline                 bool              `json:"is_online"`
	MaxConcurrentAssignments int               `json:"max_concurrent_assignments"`
	CurrentAssignmentCount   int               `json:"current_assignment_count"`
	AutoAssignPriority       int               `json:"auto_assign_priority"`
	LastAssignedAt           *time.Time        `json:"last_assigned_at,omitempty"`
	RestrictedCityIDs        dbtypes.UUIDArray `json:"restricted_city_ids"`
	RestrictedSourceIDs      dbtypes.UUIDArray `json:"restricted_source_ids"`
}

func newWorkerConfigView(row *models.WorkerServiceConfig) workerConfigView {
	cities := row.RestrictedCityIDs
	if cities == nil {
		cities = dbtypes.UUIDArray{}
	}
	sources := row.RestrictedSourceIDs
	if sources == nil {
		sources = dbtypes.UUIDArray{}
	}
	return workerConfigView{
		UserID:                   row.UserID,
		CanDoConfirmation:        row.CanDoConfirmation,
		CanDoSuivi:               row.CanDoSuivi,
		CanDoQuality:             row.CanDoQuality,
		CanDoCallback:            row.CanDoCallback,
		IsOnline:                 row.IsOnline,
		MaxConcurrentAssignments: row.MaxConcurrentAssignments,
		CurrentAssignmentCount:   row.CurrentAssignmentCount,
		AutoAssignPriority:       row.AutoAssignPriority,
		LastAssignedAt:           row.LastAssignedAt,
		RestrictedCityIDs:        cities,
		RestrictedSourceIDs:      sources,
	}
}

type settingsView struct {
	IsEnabled              bool                     `json:"is_enabled"`
	AutoAssignConfirmation bool                     `json:"auto_assign_confirmation"`
	AutoAssignSuivi        bool                     `json:"auto_assign_suivi"`
	AutoAssignQuality      bool                     `json:"auto_assign_quality"`
	AutoAssignCallback     bool                     `json:"auto_assign_callback"`
	Strategy               enums.AssignmentStrategy `json:"strategy"`
	OnlyOnlineWorkers      bool                     `json:"only_online_workers"`

	AssignmentTimeoutMinutes int `json:"assignment_timeout_minutes"`
	GlobalMaxOrdersPerWorker int `json:"global_max_orders_per_worker"`

	EnableQualityCheck               bool `json:"enable_quality_check"`
	QualityPassThreshold             int  `json:"quality_pass_threshold"`
	ReturnRejectedToSameConfirmateur bool `json:"return_rejected_to_same_confirmateur"`

	MaxCallbackAttempts   int  `json:"max_callback_attempts"`
	AutoCancelUnreachable bool `json:"auto_cancel_unreachable"`

	AutoAssignSuiviAfterConfirm bool                           `json:"auto_assign_suivi_after_confirm"`
	SuiviToSameWorker           bool                           `json:"suivi_to_same_worker"`
	ReturnToConfirmationMode    enums.ReturnToConfirmationMode `json:"return_to_confirmation_mode"`

	UpdatedAt time.Time `json:"updated_at"`
}

func newSettingsView(row *models.AutoAssignmentSettings) settingsView {
	return settingsView{
		IsEnabled:              row.IsEnabled,
		AutoAssignConfirmation: row.AutoAssignConfirmation,
		AutoAssignSuivi:        row.AutoAssignSuivi,
		AutoAssignQuality:      row.AutoAssignQuality,
		AutoAssignCallback:     row.AutoAssignCallback,
		Strategy:               row.Strategy,
		OnlyOnlineWorkers:      row.OnlyOnlineWorkers,

		AssignmentTimeoutMinutes: row.AssignmentTimeoutMinutes,
		GlobalMaxOrdersPerWorker: row.GlobalMaxOrdersPerWorker,

		EnableQualityCheck:               row.EnableQualityCheck,
		QualityPassThreshold:             row.QualityPassThreshold,
		ReturnRejectedToSameConfirmateur: row.ReturnRejectedToSameConfirmateur,

		MaxCallbackAttempts:   row.MaxCallbackAttempts,
		AutoCancelUnreachable: row.AutoCancelUnreachable,

		AutoAssignSuiviAfterConfirm: row.AutoAssignSuiviAfterConfirm,
		SuiviToSameWorker:           row.SuiviToSameWorker,
		ReturnToConfirmationMode:    row.ReturnToConfirmationMode,

		UpdatedAt: row.UpdatedAt,
	}
}
