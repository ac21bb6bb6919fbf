package controllers

import (
	"net/http"

	"github.com/codtrack/fulfillment-engine/api/responses"
	"github.com/codtrack/fulfillment-engine/api/validators"
	"github.com/codtrack/fulfillment-engine/internal/settings"
	"github.com/codtrack/fulfillment-engine/pkg/enums"
	pkgerrors "github.com/codtrack/fulfillment-engine/pkg/errors"
	"github.com/codtrack/fulfillment-engine/pkg/logger"
)

type settingsUpdateRequest struct {
	IsEnabled              *bool   `json:"is_enabled,omitempty"`
	AutoAssignConfirmation *bool   `json:"auto_assign_confirmation,omitempty"`
	AutoAssignSuivi        *bool   `json:"auto_assign_suivi,omitempty"`
	AutoAssignQuality      *bool   `json:"auto_assign_quality,omitempty"`
	AutoAssignCallback     *bool   `json:"auto_assign_callback,omitempty"`
	Strategy               *string `json:"strategy,omitempty"`
	OnlyOnlineWorkers      *bool   `json:"only_online_workers,omitempty"`

	AssignmentTimeoutMinutes *int `json:"assignment_timeout_minutes,omitempty" validate:"omitempty,min=0,max=1440"`
	GlobalMaxOrdersPerWorker *int `json:"global_max_orders_per_worker,omitempty" validate:"omitempty,min=0,max=1000"`

	EnableQualityCheck               *bool `json:"enable_quality_check,omitempty"`
	QualityPassThreshold             *int  `json:"quality_pass_threshold,omitempty" validate:"omitempty,min=0,max=100"`
	ReturnRejectedToSameConfirmateur *bool `json:"return_rejected_to_same_confirmateur,omitempty"`

	MaxCallbackAttempts   *int  `json:"max_callback_attempts,omitempty" validate:"omitempty,min=1,max=20"`
	AutoCancelUnreachable *bool `json:"auto_cancel_unreachable,omitempty"`

	AutoAssignSuiviAfterConfirm *bool   `json:"auto_assign_suivi_after_confirm,omitempty"`
	SuiviToSameWorker           *bool   `json:"suivi_to_same_worker,omitempty"`
	ReturnToConfirmationMode    *string `json:"return_to_confirmation_mode,omitempty"`
}

func (req settingsUpdateRequest) toInput() (settings.UpdateInput, error) {
	input := settings.UpdateInput{
		IsEnabled:              req.IsEnabled,
		AutoAssignConfirmation: req.AutoAssignConfirmation,
		AutoAssignSuivi:        req.AutoAssignSuivi,
		AutoAssignQuality:      req.AutoAssignQuality,
		AutoAssignCallback:     req.AutoAssignCallback,
		OnlyOnlineWorkers:      req.OnlyOnlineWorkers,

		AssignmentTimeoutMinutes: req.AssignmentTimeoutMinutes,
		GlobalMaxOrdersPerWorker: req.GlobalMaxOrdersPerWorker,

		EnableQualityCheck:               req.EnableQualityCheck,
		QualityPassThreshold:             req.QualityPassThreshold,
		ReturnRejectedToSameConfirmateur: req.ReturnRejectedToSameConfirmateur,

		MaxCallbackAttempts:   req.MaxCallbackAttempts,
		AutoCancelUnreachable: req.AutoCancelUnreachable,

		AutoAssignSuiviAfterConfirm: req.AutoAssignSuiviAfterConfirm,
		SuiviToSameWorker:           req.SuiviToSameWorker,
	}

	if req.Strategy != nil {
		strategy, err := enums.ParseAssignmentStrategy(*req.Strategy)
		if err != nil {
			return settings.UpdateInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid strategy")
		}
		input.Strategy = &strategy
	}
	if req.ReturnToConfirmationMode != nil {
		mode, err := enums.ParseReturnToConfirmationMode(*req.ReturnToConfirmationMode)
		if err != nil {
			return settings.UpdateInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid return-to-confirmation mode")
		}
		input.ReturnToConfirmationMode = &mode
	}

	return input, nil
}

// GetSettings returns the auto-assignment policy row.
func GetSettings(svc settings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		row, err := svc.Get(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newSettingsView(row))
	}
}

// UpdateSettings applies a partial policy update.
func UpdateSettings(svc settings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req settingsUpdateRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := req.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		row, err := svc.Update(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newSettingsView(row))
	}
}
