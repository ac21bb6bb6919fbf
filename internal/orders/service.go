package orders

import (
	"context"
	"fmt"

	"github.com/codtrack/fulfillment-engine/internal/assignments"
	"github.com/codtrack/fulfillment-engine/pkg/db/models"
	pkgerrors "github.com/codtrack/fulfillment-engine/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes the legacy order-level grab operations.
type Service interface {
	Grab(ctx context.Context, orderID, workerID uuid.UUID) (*models.Order, error)
	ReleaseGrab(ctx context.Context, orderID, workerID uuid.UUID) error
	BulkGrab(ctx context.Context, orderIDs []uuid.UUID, workerID uuid.UUID) *assignments.BulkResult
}

type service struct {
	repo Repository
	tx   txRunner
}

// NewService builds the order grab service.
func NewService(repo Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

func (s *service) Grab(ctx context.Context, orderID, workerID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if workerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "worker identity missing")
	}

	var out *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindByID(ctx, orderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if !order.AcceptsAssignments() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is in a terminal state")
		}
		if order.GrabbedByUserID != nil && *order.GrabbedByUserID == workerID {
			out = order
			return nil
		}

		claimed, err := repo.GrabIfFree(ctx, orderID, workerID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "grab order")
		}
		if !claimed {
			return pkgerrors.New(pkgerrors.CodeConflict, "order already grabbed by another worker")
		}

		order.GrabbedByUserID = &workerID
		out = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *service) ReleaseGrab(ctx context.Context, orderID, workerID uuid.UUID) error {
	if orderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if workerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "worker identity missing")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		released, err := s.repo.WithTx(tx).ReleaseGrab(ctx, orderID, workerID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "release grab")
		}
		if !released {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is not grabbed by this worker")
		}
		return nil
	})
}

func (s *service) BulkGrab(ctx context.Context, orderIDs []uuid.UUID, workerID uuid.UUID) *assignments.BulkResult {
	result := assignments.NewBulkResult(len(orderIDs))
	for _, orderID := range orderIDs {
		order, err := s.Grab(ctx, orderID, workerID)
		if err != nil {
			result.AddFailure(orderID.String(), err)
			continue
		}
		result.AddSuccess(order.ID.String())
	}
	return result
}
