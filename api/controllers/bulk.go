package controllers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/codtrack/fulfillment-engine/api/responses"
	"github.com/codtrack/fulfillment-engine/api/validators"
	"github.com/codtrack/fulfillment-engine/internal/assignments"
	pkgerrors "github.com/codtrack/fulfillment-engine/pkg/errors"
	"github.com/codtrack/fulfillment-engine/pkg/logger"
)

type bulkAssignRequest struct {
	Items []assignRequest `json:"items" validate:"required,min=1,max=200,dive"`
}

// BulkAssign places many order stages on chosen workers in one call. Each
// item succeeds or fails independently.
func BulkAssign(svc assignments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		supervisorID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req bulkAssignRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]assignments.AssignInput, 0, len(req.Items))
		for _, item := range req.Items {
			input, err := item.toInput(&supervisorID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			items = append(items, input)
		}

		responses.WriteSuccess(w, svc.BulkAssign(r.Context(), items))
	}
}

type bulkReassignItem struct {
	AssignmentID string `json:"assignment_id" validate:"required,uuid"`
	ToWorkerID   string `json:"to_worker_id" validate:"required,uuid"`
}

type bulkReassignRequest struct {
	Items []bulkReassignItem `json:"items" validate:"required,min=1,max=200,dive"`
}

// BulkReassign moves many active assignments to other workers in one call.
func BulkReassign(svc assignments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		supervisorID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req bulkReassignRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]assignments.ReassignInput, 0, len(req.Items))
		for _, item := range req.Items {
			assignmentID, err := uuid.Parse(item.AssignmentID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid assignment id"))
				return
			}
			toWorkerID, err := uuid.Parse(item.ToWorkerID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid worker id"))
				return
			}
			items = append(items, assignments.ReassignInput{
				AssignmentID: assignmentID,
				ToWorkerID:   toWorkerID,
				AssignedBy:   supervisorID,
			})
		}

		responses.WriteSuccess(w, svc.BulkReassign(r.Context(), items))
	}
}

type bulkCompleteSuiviItem struct {
	AssignmentID string           `json:"assignment_id" validate:"required,uuid"`
	Result       string           `json:"result" validate:"required,min=1,max=100"`
	CODCollected *decimal.Decimal `json:"cod_collected,omitempty"`
	Notes        *string          `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

type bulkCompleteSuiviRequest struct {
	Items []bulkCompleteSuiviItem `json:"items" validate:"required,min=1,max=200,dive"`
}

// BulkCompleteSuivi finishes many of the caller's suivi assignments at once.
func BulkCompleteSuivi(svc assignments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		workerID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req bulkCompleteSuiviRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]assignments.CompleteSuiviInput, 0, len(req.Items))
		for _, item := range req.Items {
			assignmentID, err := uuid.Parse(item.AssignmentID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid assignment id"))
				return
			}
			items = append(items, assignments.CompleteSuiviInput{
				AssignmentID: assignmentID,
				WorkerID:     workerID,
				Result:       item.Result,
				CODCollected: item.CODCollected,
				Notes:        item.Notes,
			})
		}

		responses.WriteSuccess(w, svc.BulkCompleteSuivi(r.Context(), items))
	}
}
