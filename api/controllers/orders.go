package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/codtrack/fulfillment-engine/api/responses"
	"github.com/codtrack/fulfillment-engine/api/validators"
	"github.com/codtrack/fulfillment-engine/internal/orders"
	pkgerrors "github.com/codtrack/fulfillment-engine/pkg/errors"
	"github.com/codtrack/fulfillment-engine/pkg/logger"
)

// GrabOrder claims legacy grab ownership of an order for the caller.
func GrabOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		workerID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := uuidParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Grab(r.Context(), orderID, workerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newOrderView(order))
	}
}

// ReleaseOrderGrab gives up grab ownership the caller holds on an order.
func ReleaseOrderGrab(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		workerID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := uuidParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.ReleaseGrab(r.Context(), orderID, workerID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "released"})
	}
}

type bulkGrabRequest struct {
	OrderIDs []string `json:"order_ids" validate:"required,min=1,max=200,dive,uuid"`
}

// BulkGrabOrders claims grab ownership of many orders in one call.
func BulkGrabOrders(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		workerID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req bulkGrabRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderIDs := make([]uuid.UUID, 0, len(req.OrderIDs))
		for _, raw := range req.OrderIDs {
			id, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id"))
				return
			}
			orderIDs = append(orderIDs, id)
		}

		responses.WriteSuccess(w, svc.BulkGrab(r.Context(), orderIDs, workerID))
	}
}
