package callbacks

import (
	"context"
	"fmt"
	"time"

	"github.com/codtrack/fulfillment-engine/internal/assignments"
	"github.com/codtrack/fulfillment-engine/internal/workers"
	"github.com/codtrack/fulfillment-engine/pkg/db/models"
	"github.com/codtrack/fulfillment-engine/pkg/enums"
	pkgerrors "github.com/codtrack/fulfillment-engine/pkg/errors"
	"github.com/codtrack/fulfillment-engine/pkg/logger"
	"github.com/codtrack/fulfillment-engine/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ResultUnreachable is recorded when the attempt limit auto-cancels a callback.
const ResultUnreachable = "unreachable"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type settingsReader interface {
	Get(ctx context.Context) (*models.AutoAssignmentSettings, error)
}

// ScheduleInput books the next callback attempt on an active callback
// assignment.
type ScheduleInput struct {
	AssignmentID uuid.UUID
	WorkerID     uuid.UUID
	ScheduledAt  time.Time
}

// Service schedules callback attempts and surfaces overdue ones.
type Service interface {
	Schedule(ctx context.Context, input ScheduleInput) (*models.OrderAssignment, error)
	ListOverdue(ctx context.Context, workerID *uuid.UUID, params pagination.Params) (*assignments.AssignmentList, error)
}

type service struct {
	repo     assignments.Repository
	workers  workers.Repository
	settings settingsReader
	tx       txRunner
	logg     *logger.Logger
}

// NewService builds the callback scheduler.
func NewService(repo assignments.Repository, workersRepo workers.Repository, settings settingsReader, tx txRunner, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("assignments repository required")
	}
	if workersRepo == nil {
		return nil, fmt.Errorf("workers repository required")
	}
	if settings == nil {
		return nil, fmt.Errorf("settings reader required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:     repo,
		workers:  workersRepo,
		settings: settings,
		tx:       tx,
		logg:     logg,
	}, nil
}

func (s *service) Schedule(ctx context.Context, input ScheduleInput) (*models.OrderAssignment, error) {
	if input.AssignmentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "assignment id required")
	}
	if input.WorkerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "worker identity missing")
	}
	if input.ScheduledAt.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "scheduled time required")
	}

	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}

	var out *models.OrderAssignment
	var limitReached bool
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		assignment, err := repo.FindByID(ctx, input.AssignmentID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "assignment not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load assignment")
		}
		if assignment.WorkerID != input.WorkerID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "assignment belongs to another worker")
		}
		if assignment.ServiceType != enums.ServiceTypeCallback {
			return pkgerrors.New(pkgerrors.CodeValidation, "assignment is not a callback assignment")
		}
		if !assignment.Status.IsActive() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "assignment is no longer active")
		}

		nextAttempt := assignment.CallbackAttemptNumber + 1
		if nextAttempt > settings.MaxCallbackAttempts {
			// return nil so the transaction commits: an error here would roll
			// back the auto-cancel. The limit error is raised after commit.
			limitReached = true
			if settings.AutoCancelUnreachable {
				return s.cancelUnreachable(ctx, tx, assignment)
			}
			return nil
		}

		scheduledAt := input.ScheduledAt.UTC()
		claimed, err := repo.UpdateIfStatus(ctx, assignment.ID,
			enums.ActiveAssignmentStatuses,
			map[string]any{
				"callback_scheduled_at":   scheduledAt,
				"callback_attempt_number": nextAttempt,
			})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "schedule callback")
		}
		if !claimed {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "assignment is no longer active")
		}

		assignment.CallbackScheduledAt = &scheduledAt
		assignment.CallbackAttemptNumber = nextAttempt
		out = assignment
		return nil
	})
	if err != nil {
		return nil, err
	}
	if limitReached {
		return nil, pkgerrors.New(pkgerrors.CodeAttemptLimit, "callback attempt limit reached")
	}
	return out, nil
}

// cancelUnreachable closes the callback assignment once the attempt limit is
// exhausted, freeing the worker's slot.
func (s *service) cancelUnreachable(ctx context.Context, tx *gorm.DB, assignment *models.OrderAssignment) error {
	repo := s.repo.WithTx(tx)

	now := time.Now().UTC()
	claimed, err := repo.UpdateIfStatus(ctx, assignment.ID,
		enums.ActiveAssignmentStatuses,
		map[string]any{
			"status":       enums.AssignmentStatusCompleted,
			"completed_at": now,
			"result":       ResultUnreachable,
		})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel unreachable callback")
	}
	if !claimed {
		return nil
	}
	if err := s.workers.WithTx(tx).DecrementLoad(ctx, assignment.WorkerID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decrement worker load")
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"assignment_id": assignment.ID.String(),
		"order_id":      assignment.OrderID.String(),
	}), "callback auto-cancelled as unreachable")
	return nil
}

func (s *service) ListOverdue(ctx context.Context, workerID *uuid.UUID, params pagination.Params) (*assignments.AssignmentList, error) {
	list, err := s.repo.ListOverdueCallbacks(ctx, time.Now().UTC(), workerID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list overdue callbacks")
	}
	return list, nil
}
