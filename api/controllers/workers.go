package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/codtrack/fulfillment-engine/api/responses"
	"github.com/codtrack/fulfillment-engine/api/validators"
	"github.com/codtrack/fulfillment-engine/internal/workers"
	dbtypes "github.com/codtrack/fulfillment-engine/pkg/db/types"
	pkgerrors "github.com/codtrack/fulfillment-engine/pkg/errors"
	"github.com/codtrack/fulfillment-engine/pkg/logger"
)

type workerConfigUpdateRequest struct {
	CanDoConfirmation *bool `json:"can_do_confirmation,omitempty"`
	CanDoSuivi        *bool `json:"can_do_suivi,omitempty"`
	CanDoQuality      *bool `json:"can_do_quality,omitempty"`
	CanDoCallback     *bool `json:"can_do_callback,omitempty"`

	MaxConcurrentAssignments *int `json:"max_concurrent_assignments,omitempty" validate:"omitempty,min=1,max=100"`
	AutoAssignPriority       *int `json:"auto_assign_priority,omitempty" validate:"omitempty,min=0,max=100"`

	RestrictedCityIDs   *[]string `json:"restricted_city_ids,omitempty" validate:"omitempty,dive,uuid"`
	RestrictedSourceIDs *[]string `json:"restricted_source_ids,omitempty" validate:"omitempty,dive,uuid"`
}

func (req workerConfigUpdateRequest) toInput() (workers.UpdateConfigInput, error) {
	input := workers.UpdateConfigInput{
		CanDoConfirmation:        req.CanDoConfirmation,
		CanDoSuivi:               req.CanDoSuivi,
		CanDoQuality:             req.CanDoQuality,
		CanDoCallback:            req.CanDoCallback,
		MaxConcurrentAssignments: req.MaxConcurrentAssignments,
		AutoAssignPriority:       req.AutoAssignPriority,
	}

	if req.RestrictedCityIDs != nil {
		cities, err := parseUUIDList(*req.RestrictedCityIDs)
		if err != nil {
			return workers.UpdateConfigInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid restricted city id")
		}
		input.RestrictedCityIDs = &cities
	}
	if req.RestrictedSourceIDs != nil {
		sources, err := parseUUIDList(*req.RestrictedSourceIDs)
		if err != nil {
			return workers.UpdateConfigInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid restricted source id")
		}
		input.RestrictedSourceIDs = &sources
	}

	return input, nil
}

func parseUUIDList(raw []string) (dbtypes.UUIDArray, error) {
	out := make(dbtypes.UUIDArray, 0, len(raw))
	for _, value := range raw {
		id, err := uuid.Parse(value)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}

// MyWorkerConfig returns the caller's worker registry entry.
func MyWorkerConfig(svc workers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		workerID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		cfg, err := svc.GetConfig(r.Context(), workerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newWorkerConfigView(cfg))
	}
}

// UpdateMyWorkerConfig adjusts the caller's own capabilities and limits.
func UpdateMyWorkerConfig(svc workers.Service, logg *logger.Logger) http.HandlerFunc {
	return updateWorkerConfig(svc, logg, actorID)
}

// WorkerConfig returns any worker's registry entry for supervisors.
func WorkerConfig(svc workers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := uuidParam(r, "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		cfg, err := svc.GetConfig(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newWorkerConfigView(cfg))
	}
}

// UpdateWorkerConfig adjusts any worker's capabilities for supervisors.
func UpdateWorkerConfig(svc workers.Service, logg *logger.Logger) http.HandlerFunc {
	return updateWorkerConfig(svc, logg, func(r *http.Request) (uuid.UUID, error) {
		return uuidParam(r, "userId")
	})
}

func updateWorkerConfig(svc workers.Service, logg *logger.Logger, subject func(*http.Request) (uuid.UUID, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := subject(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req workerConfigUpdateRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := req.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		cfg, err := svc.UpdateConfig(r.Context(), userID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newWorkerConfigView(cfg))
	}
}

// SetOnline flips the caller's availability flag.
func SetOnline(svc workers.Service, logg *logger.Logger, online bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		workerID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		cfg, err := svc.SetOnline(r.Context(), workerID, online)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newWorkerConfigView(cfg))
	}
}

// AvailableWorkers lists workers eligible to receive a stage right now.
func AvailableWorkers(svc workers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		serviceType, err := serviceTypeQuery(r, true)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := svc.ListAvailable(r.Context(), workers.EligibilityQuery{
			ServiceType: *serviceType,
			OnlyOnline:  true,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		views := make([]workerConfigView, 0, len(rows))
		for i := range rows {
			views = append(views, newWorkerConfigView(&rows[i]))
		}
		responses.WriteSuccess(w, map[string]any{"workers": views})
	}
}
