package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/codtrack/fulfillment-engine/api/responses"
	"github.com/codtrack/fulfillment-engine/api/validators"
	"github.com/codtrack/fulfillment-engine/internal/assignments"
	"github.com/codtrack/fulfillment-engine/pkg/enums"
	pkgerrors "github.com/codtrack/fulfillment-engine/pkg/errors"
	"github.com/codtrack/fulfillment-engine/pkg/logger"
	"github.com/codtrack/fulfillment-engine/pkg/pagination"
)

type assignRequest struct {
	OrderID     string `json:"order_id" validate:"required,uuid"`
	WorkerID    string `json:"worker_id" validate:"required,uuid"`
	ServiceType string `json:"service_type" validate:"required"`
	Priority    int    `json:"priority" validate:"omitempty,min=0,max=100"`
}

func (req assignRequest) toInput(assignedBy *uuid.UUID) (assignments.AssignInput, error) {
	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		return assignments.AssignInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id")
	}
	workerID, err := uuid.Parse(req.WorkerID)
	if err != nil {
		return assignments.AssignInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid worker id")
	}
	serviceType, err := enums.ParseServiceType(req.ServiceType)
	if err != nil {
		return assignments.AssignInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid service type")
	}
	return assignments.AssignInput{
		OrderID:     orderID,
		WorkerID:    workerID,
		ServiceType: serviceType,
		Priority:    req.Priority,
		AssignedBy:  assignedBy,
	}, nil
}

// Assign lets a supervisor place an order stage on a chosen worker.
func Assign(svc assignments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		supervisorID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req assignRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := req.toInput(&supervisorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		row, err := svc.Assign(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newAssignmentView(row))
	}
}

type selfAssignRequest struct {
	OrderID     string `json:"order_id" validate:"required,uuid"`
	ServiceType string `json:"service_type" validate:"required"`
	Priority    int    `json:"priority" validate:"omitempty,min=0,max=100"`
}

// SelfAssign lets a worker pull an order stage onto their own queue.
func SelfAssign(svc assignments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		workerID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req selfAssignRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := assignRequest{
			OrderID:     req.OrderID,
			WorkerID:    workerID.String(),
			ServiceType: req.ServiceType,
			Priority:    req.Priority,
		}.toInput(nil)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		row, err := svc.SelfAssign(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newAssignmentView(row))
	}
}

// Take claims a pending assignment so work can start.
func Take(svc assignments.Service, logg *logger.Logger) http.HandlerFunc {
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

		row, err := svc.Take(r.Context(), assignments.TakeInput{
			AssignmentID: assignmentID,
			WorkerID:     workerID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newAssignmentView(row))
	}
}

type completeRequest struct {
	Result string  `json:"result" validate:"required,min=1,max=100"`
	Notes  *string `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

// Complete finishes a confirmation or callback assignment.
func Complete(svc assignments.Service, logg *logger.Logger) http.HandlerFunc {
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

		var req completeRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		row, err := svc.Complete(r.Context(), assignments.CompleteInput{
			AssignmentID: assignmentID,
			WorkerID:     workerID,
			Result:       req.Result,
			Notes:        req.Notes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newAssignmentView(row))
	}
}

type completeSuiviRequest struct {
	Result       string           `json:"result" validate:"required,min=1,max=100"`
	CODCollected *decimal.Decimal `json:"cod_collected,omitempty"`
	Notes        *string          `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

// CompleteSuivi finishes a suivi assignment, optionally recording collected COD.
func CompleteSuivi(svc assignments.Service, logg *logger.Logger) http.HandlerFunc {
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

		var req completeSuiviRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		row, err := svc.CompleteSuivi(r.Context(), assignments.CompleteSuiviInput{
			AssignmentID: assignmentID,
			WorkerID:     workerID,
			Result:       req.Result,
			CODCollected: req.CODCollected,
			Notes:        req.Notes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newAssignmentView(row))
	}
}

type completeQualityRequest struct {
	Approved *bool   `json:"approved" validate:"required"`
	Score    *int    `json:"score,omitempty" validate:"omitempty,min=0,max=100"`
	Notes    *string `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

// CompleteQuality records a quality gate verdict.
func CompleteQuality(svc assignments.Service, logg *logger.Logger) http.HandlerFunc {
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

		var req completeQualityRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		row, err := svc.CompleteQuality(r.Context(), assignments.CompleteQualityInput{
			AssignmentID: assignmentID,
			WorkerID:     workerID,
			Approved:     req.Approved != nil && *req.Approved,
			Score:        req.Score,
			Notes:        req.Notes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newAssignmentView(row))
	}
}

type releaseRequest struct {
	Reason *string `json:"reason,omitempty" validate:"omitempty,max=500"`
}

// Release hands a taken assignment back to the pool.
func Release(svc assignments.Service, logg *logger.Logger) http.HandlerFunc {
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

		var req releaseRequest
		if r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &req); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		row, err := svc.Release(r.Context(), assignments.ReleaseInput{
			AssignmentID: assignmentID,
			WorkerID:     workerID,
			Reason:       req.Reason,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newAssignmentView(row))
	}
}

type reassignRequest struct {
	ToWorkerID string `json:"to_worker_id" validate:"required,uuid"`
}

// Reassign moves an active assignment to another worker.
func Reassign(svc assignments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		supervisorID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		assignmentID, err := uuidParam(r, "assignmentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req reassignRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		toWorkerID, err := uuid.Parse(req.ToWorkerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid worker id"))
			return
		}

		row, err := svc.Reassign(r.Context(), assignments.ReassignInput{
			AssignmentID: assignmentID,
			ToWorkerID:   toWorkerID,
			AssignedBy:   supervisorID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newAssignmentView(row))
	}
}

type workerListFunc func(ctx context.Context, workerID uuid.UUID, filters assignments.ListFilters, params pagination.Params) (*assignments.AssignmentList, error)

func listForWorker(logg *logger.Logger, list workerListFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		workerID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		serviceType, err := serviceTypeQuery(r, false)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params, err := listParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := list(r.Context(), workerID, assignments.ListFilters{ServiceType: serviceType}, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newAssignmentListView(page))
	}
}

// MyPendingAssignments lists the caller's pending queue.
func MyPendingAssignments(svc assignments.Service, logg *logger.Logger) http.HandlerFunc {
	return listForWorker(logg, svc.ListMyPending)
}

// MyActiveAssignments lists the caller's pending and taken work.
func MyActiveAssignments(svc assignments.Service, logg *logger.Logger) http.HandlerFunc {
	return listForWorker(logg, svc.ListMyActive)
}

// UnassignedOrders lists orders with no live assignment for the stage.
func UnassignedOrders(svc assignments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		serviceType, err := serviceTypeQuery(r, true)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params, err := listParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListUnassigned(r.Context(), *serviceType, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newOrderListView(list))
	}
}

// ActiveAssignments lists all live assignments for monitoring.
func ActiveAssignments(svc assignments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		serviceType, err := serviceTypeQuery(r, false)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params, err := listParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListActive(r.Context(), assignments.ListFilters{ServiceType: serviceType}, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newAssignmentListView(list))
	}
}

// WorkersStats aggregates per-worker load and lifecycle counters.
func WorkersStats(svc assignments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := svc.WorkersStats(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"workers": stats})
	}
}
