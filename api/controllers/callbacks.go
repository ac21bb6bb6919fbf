package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/codtrack/fulfillment-engine/api/middleware"
	"github.com/codtrack/fulfillment-engine/api/responses"
	"github.com/codtrack/fulfillment-engine/api/validators"
	"github.com/codtrack/fulfillment-engine/internal/callbacks"
	"github.com/codtrack/fulfillment-engine/pkg/enums"
	"github.com/codtrack/fulfillment-engine/pkg/logger"
)

type scheduleCallbackRequest struct {
	ScheduledAt time.Time `json:"scheduled_at" validate:"required"`
}

// ScheduleCallback books the next attempt on a callback assignment.
func ScheduleCallback(svc callbacks.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		workerID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		assignmentID, err := uuidParam(r, "assignmentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req scheduleCallbackRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		row, err := svc.Schedule(r.Context(), callbacks.ScheduleInput{
			AssignmentID: assignmentID,
			WorkerID:     workerID,
			ScheduledAt:  req.ScheduledAt,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newAssignmentView(row))
	}
}

// OverdueCallbacks lists callback assignments whose scheduled time has
// passed. Supervisors see every worker; workers see their own.
func OverdueCallbacks(svc callbacks.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		workerID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params, err := listParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var filter *uuid.UUID
		role := middleware.RoleFromContext(r.Context())
		if role != string(enums.ActorRoleSupervisor) && role != string(enums.ActorRoleAdmin) {
			filter = &workerID
		}

		list, err := svc.ListOverdue(r.Context(), filter, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newAssignmentListView(list))
	}
}
