package assignments

import (
	"context"
	"fmt"
	"time"

	"github.com/codtrack/fulfillment-engine/internal/strategy"
	"github.com/codtrack/fulfillment-engine/internal/workers"
	"github.com/codtrack/fulfillment-engine/pkg/db/models"
	"github.com/codtrack/fulfillment-engine/pkg/enums"
	pkgerrors "github.com/codtrack/fulfillment-engine/pkg/errors"
	"github.com/codtrack/fulfillment-engine/pkg/logger"
	"github.com/codtrack/fulfillment-engine/pkg/metrics"
	"github.com/codtrack/fulfillment-engine/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// OrderReader loads engine-relevant order fields inside the caller's transaction.
type OrderReader interface {
	FindOrder(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Order, error)
}

type settingsReader interface {
	Get(ctx context.Context) (*models.AutoAssignmentSettings, error)
}

// Service drives the assignment lifecycle state machine.
type Service interface {
	Assign(ctx context.Context, input AssignInput) (*models.OrderAssignment, error)
	SelfAssign(ctx context.Context, input AssignInput) (*models.OrderAssignment, error)
	// AutoAssign distributes one unassigned stage through the strategy
	// selector; used by the distribution sweep.
	AutoAssign(ctx context.Context, orderID uuid.UUID, serviceType enums.ServiceType) (*models.OrderAssignment, error)
	Take(ctx context.Context, input TakeInput) (*models.OrderAssignment, error)
	Complete(ctx context.Context, input CompleteInput) (*models.OrderAssignment, error)
	CompleteSuivi(ctx context.Context, input CompleteSuiviInput) (*models.OrderAssignment, error)
	CompleteQuality(ctx context.Context, input CompleteQualityInput) (*models.OrderAssignment, error)
	Release(ctx context.Context, input ReleaseInput) (*models.OrderAssignment, error)
	Reassign(ctx context.Context, input ReassignInput) (*models.OrderAssignment, error)
	// Expire recycles a single pending assignment; used by the sweep.
	Expire(ctx context.Context, assignmentID uuid.UUID) error

	ListMyPending(ctx context.Context, workerID uuid.UUID, filters ListFilters, params pagination.Params) (*AssignmentList, error)
	ListMyActive(ctx context.Context, workerID uuid.UUID, filters ListFilters, params pagination.Params) (*AssignmentList, error)
	ListUnassigned(ctx context.Context, serviceType enums.ServiceType, params pagination.Params) (*OrderQueueList, error)
	ListActive(ctx context.Context, filters ListFilters, params pagination.Params) (*AssignmentList, error)
	WorkersStats(ctx context.Context) ([]WorkerStatsRow, error)

	BulkAssign(ctx context.Context, items []AssignInput) *BulkResult
	BulkSelfAssign(ctx context.Context, items []AssignInput) *BulkResult
	BulkReassign(ctx context.Context, items []ReassignInput) *BulkResult
	BulkCompleteSuivi(ctx context.Context, items []CompleteSuiviInput) *BulkResult
}

// ServiceParams bundles the lifecycle engine dependencies.
type ServiceParams struct {
	Repo     Repository
	Workers  workers.Repository
	Orders   OrderReader
	Settings settingsReader
	Selector *strategy.Selector
	Tx       txRunner
	Logger   *logger.Logger
	Metrics  *metrics.AssignmentMetrics
}

type service struct {
	repo     Repository
	workers  workers.Repository
	orders   OrderReader
	settings settingsReader
	selector *strategy.Selector
	tx       txRunner
	logg     *logger.Logger
	metrics  *metrics.AssignmentMetrics
}

// NewService builds the assignment lifecycle service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("assignments repository required")
	}
	if params.Workers == nil {
		return nil, fmt.Errorf("workers repository required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("order reader required")
	}
	if params.Settings == nil {
		return nil, fmt.Errorf("settings reader required")
	}
	if params.Selector == nil {
		return nil, fmt.Errorf("strategy selector required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:     params.Repo,
		workers:  params.Workers,
		orders:   params.Orders,
		settings: params.Settings,
		selector: params.Selector,
		tx:       params.Tx,
		logg:     params.Logger,
		metrics:  params.Metrics,
	}, nil
}

func (s *service) Assign(ctx context.Context, input AssignInput) (*models.OrderAssignment, error) {
	if input.AssignedBy == nil || *input.AssignedBy == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "assigning user required")
	}
	return s.assign(ctx, input)
}

func (s *service) SelfAssign(ctx context.Context, input AssignInput) (*models.OrderAssignment, error) {
	// self-assignment is recorded as worker-initiated
	by := input.WorkerID
	input.AssignedBy = &by
	return s.assign(ctx, input)
}

func (s *service) assign(ctx context.Context, input AssignInput) (*models.OrderAssignment, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.WorkerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "worker id required")
	}
	if !input.ServiceType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid service type")
	}

	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}

	var out *models.OrderAssignment
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		created, err := s.createAssignment(ctx, tx, input, settings)
		if err != nil {
			return err
		}
		out = created
		return nil
	})
	if err != nil {
		if pkgerrors.HasCode(err, pkgerrors.CodeConflict) {
			s.metrics.IncConflict("assign")
		}
		return nil, err
	}
	s.metrics.IncTransition(input.ServiceType.String(), enums.AssignmentStatusPending.String())
	return out, nil
}

// createAssignment runs the full assignment validation chain inside tx:
// order state, worker capability, capacity, then the active-pair guard.
func (s *service) createAssignment(ctx context.Context, tx *gorm.DB, input AssignInput, settings *models.AutoAssignmentSettings) (*models.OrderAssignment, error) {
	order, err := s.orders.FindOrder(ctx, tx, input.OrderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if !order.AcceptsAssignments() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is in a terminal state")
	}

	workersRepo := s.workers.WithTx(tx)
	cfg, err := workersRepo.FindByUserID(ctx, input.WorkerID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "worker config not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load worker config")
	}
	if !cfg.CanDo(input.ServiceType) {
		return nil, pkgerrors.New(pkgerrors.CodeCapability, "worker lacks capability for service type")
	}

	claimed, err := workersRepo.IncrementLoad(ctx, input.WorkerID, settings.GlobalMaxOrdersPerWorker, time.Now().UTC())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim worker capacity")
	}
	if !claimed {
		return nil, pkgerrors.New(pkgerrors.CodeCapacity, "worker is at capacity")
	}

	assignment := &models.OrderAssignment{
		ID:               uuid.New(),
		OrderID:          input.OrderID,
		WorkerID:         input.WorkerID,
		ServiceType:      input.ServiceType,
		Status:           enums.AssignmentStatusPending,
		Priority:         input.Priority,
		AssignedByUserID: input.AssignedBy,
		AssignedAt:       time.Now().UTC(),
	}
	if err := s.repo.WithTx(tx).Create(ctx, assignment); err != nil {
		if err == ErrActivePairExists {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "order already has an active assignment for this service type")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create assignment")
	}
	return assignment, nil
}

func (s *service) AutoAssign(ctx context.Context, orderID uuid.UUID, serviceType enums.ServiceType) (*models.OrderAssignment, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !serviceType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid service type")
	}

	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	if !settings.AutoAssignEnabledFor(serviceType) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "auto-assignment is disabled for this service type")
	}

	var out *models.OrderAssignment
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		order, err := s.orders.FindOrder(ctx, tx, orderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if !order.AcceptsAssignments() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is in a terminal state")
		}

		target, err := s.pickWorker(ctx, tx, order, serviceType, nil, settings)
		if err != nil {
			return err
		}
		if target == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeNoEligibleWorker, "no eligible worker for service type")
		}

		created, err := s.createAssignment(ctx, tx, AssignInput{
			OrderID:     orderID,
			WorkerID:    target,
			ServiceType: serviceType,
		}, settings)
		if err != nil {
			return err
		}
		out = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncTransition(serviceType.String(), enums.AssignmentStatusPending.String())
	return out, nil
}

func (s *service) Take(ctx context.Context, input TakeInput) (*models.OrderAssignment, error) {
	if input.AssignmentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "assignment id required")
	}
	if input.WorkerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "worker identity missing")
	}

	var out *models.OrderAssignment
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		assignment, err := s.loadOwned(ctx, repo, input.AssignmentID, input.WorkerID)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		claimed, err := repo.UpdateIfStatus(ctx, assignment.ID,
			[]enums.AssignmentStatus{enums.AssignmentStatusPending},
			map[string]any{
				"status":   enums.AssignmentStatusTaken,
				"taken_at": now,
			})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "take assignment")
		}
		if !claimed {
			s.metrics.IncConflict("take")
			return pkgerrors.New(pkgerrors.CodeStateConflict, "assignment is not pending")
		}

		assignment.Status = enums.AssignmentStatusTaken
		assignment.TakenAt = &now
		out = assignment
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncTransition(out.ServiceType.String(), enums.AssignmentStatusTaken.String())
	return out, nil
}

func (s *service) Complete(ctx context.Context, input CompleteInput) (*models.OrderAssignment, error) {
	if input.Result == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "result required")
	}

	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}

	var out *models.OrderAssignment
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		assignment, err := s.loadOwned(ctx, repo, input.AssignmentID, input.WorkerID)
		if err != nil {
			return err
		}
		switch assignment.ServiceType {
		case enums.ServiceTypeSuivi:
			return pkgerrors.New(pkgerrors.CodeValidation, "suivi assignments complete via the suivi operation")
		case enums.ServiceTypeQuality:
			return pkgerrors.New(pkgerrors.CodeValidation, "quality assignments complete via the quality operation")
		}

		if err := s.finishAssignment(ctx, tx, assignment, map[string]any{
			"result": input.Result,
			"notes":  input.Notes,
		}); err != nil {
			return err
		}

		if assignment.ServiceType == enums.ServiceTypeConfirmation {
			if err := s.chainNextStage(ctx, tx, assignment, settings); err != nil {
				return err
			}
		}
		out = assignment
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncTransition(out.ServiceType.String(), enums.AssignmentStatusCompleted.String())
	return out, nil
}

func (s *service) CompleteSuivi(ctx context.Context, input CompleteSuiviInput) (*models.OrderAssignment, error) {
	if input.Result == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "result required")
	}
	if input.CODCollected != nil && input.CODCollected.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cod collected cannot be negative")
	}

	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}

	var out *models.OrderAssignment
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		assignment, err := s.loadOwned(ctx, repo, input.AssignmentID, input.WorkerID)
		if err != nil {
			return err
		}
		if assignment.ServiceType != enums.ServiceTypeSuivi {
			return pkgerrors.New(pkgerrors.CodeValidation, "assignment is not a suivi assignment")
		}

		if err := s.finishAssignment(ctx, tx, assignment, map[string]any{
			"result":        input.Result,
			"notes":         input.Notes,
			"cod_collected": input.CODCollected,
		}); err != nil {
			return err
		}

		if input.Result == SuiviResultReturned {
			if err := s.handleReturnedSuivi(ctx, tx, assignment, settings); err != nil {
				return err
			}
		}
		out = assignment
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncTransition(enums.ServiceTypeSuivi.String(), enums.AssignmentStatusCompleted.String())
	return out, nil
}

func (s *service) CompleteQuality(ctx context.Context, input CompleteQualityInput) (*models.OrderAssignment, error) {
	if input.Score != nil && (*input.Score < 0 || *input.Score > 100) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quality score must be between 0 and 100")
	}

	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}

	var out *models.OrderAssignment
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		assignment, err := s.loadOwned(ctx, repo, input.AssignmentID, input.WorkerID)
		if err != nil {
			return err
		}
		if assignment.ServiceType != enums.ServiceTypeQuality {
			return pkgerrors.New(pkgerrors.CodeValidation, "assignment is not a quality assignment")
		}

		passed := input.Approved ||
			(input.Score != nil && *input.Score >= settings.QualityPassThreshold)

		result := QualityResultRejected
		if passed {
			result = QualityResultApproved
		}
		if err := s.finishAssignment(ctx, tx, assignment, map[string]any{
			"result":           result,
			"notes":            input.Notes,
			"quality_approved": passed,
			"quality_score":    input.Score,
		}); err != nil {
			return err
		}

		out = assignment
		if passed {
			return s.chainStage(ctx, tx, assignment, enums.ServiceTypeSuivi, nil, settings)
		}
		return s.returnToConfirmation(ctx, tx, assignment, settings.ReturnRejectedToSameConfirmateur, settings)
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncTransition(enums.ServiceTypeQuality.String(), enums.AssignmentStatusCompleted.String())
	return out, nil
}

func (s *service) Release(ctx context.Context, input ReleaseInput) (*models.OrderAssignment, error) {
	var out *models.OrderAssignment
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		assignment, err := s.loadOwned(ctx, repo, input.AssignmentID, input.WorkerID)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		claimed, err := repo.UpdateIfStatus(ctx, assignment.ID,
			[]enums.AssignmentStatus{enums.AssignmentStatusTaken},
			map[string]any{
				"status":         enums.AssignmentStatusReleased,
				"released_at":    now,
				"release_reason": input.Reason,
			})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "release assignment")
		}
		if !claimed {
			s.metrics.IncConflict("release")
			return pkgerrors.New(pkgerrors.CodeStateConflict, "only taken assignments can be released")
		}

		if err := s.workers.WithTx(tx).DecrementLoad(ctx, assignment.WorkerID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decrement worker load")
		}

		assignment.Status = enums.AssignmentStatusReleased
		assignment.ReleasedAt = &now
		assignment.ReleaseReason = input.Reason
		out = assignment
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncTransition(out.ServiceType.String(), enums.AssignmentStatusReleased.String())
	return out, nil
}

func (s *service) Reassign(ctx context.Context, input ReassignInput) (*models.OrderAssignment, error) {
	if input.AssignmentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "assignment id required")
	}
	if input.ToWorkerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "target worker id required")
	}
	if input.AssignedBy == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "assigning user required")
	}

	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}

	var out *models.OrderAssignment
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		assignment, err := repo.FindByID(ctx, input.AssignmentID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "assignment not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load assignment")
		}
		if assignment.WorkerID == input.ToWorkerID {
			return pkgerrors.New(pkgerrors.CodeValidation, "assignment already belongs to target worker")
		}

		// retire the old row first so the active-pair index admits the new one
		claimed, err := repo.UpdateIfStatus(ctx, assignment.ID,
			enums.ActiveAssignmentStatuses,
			map[string]any{"status": enums.AssignmentStatusReassigned})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "retire assignment")
		}
		if !claimed {
			s.metrics.IncConflict("reassign")
			return pkgerrors.New(pkgerrors.CodeStateConflict, "assignment is no longer active")
		}

		if err := s.workers.WithTx(tx).DecrementLoad(ctx, assignment.WorkerID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decrement worker load")
		}

		by := input.AssignedBy
		created, err := s.createAssignment(ctx, tx, AssignInput{
			OrderID:     assignment.OrderID,
			WorkerID:    input.ToWorkerID,
			ServiceType: assignment.ServiceType,
			Priority:    assignment.Priority,
			AssignedBy:  &by,
		}, settings)
		if err != nil {
			return err
		}
		out = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncTransition(out.ServiceType.String(), enums.AssignmentStatusReassigned.String())
	return out, nil
}

func (s *service) Expire(ctx context.Context, assignmentID uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		assignment, err := repo.FindByID(ctx, assignmentID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "assignment not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load assignment")
		}
		if assignment.Status == enums.AssignmentStatusExpired {
			return nil
		}

		claimed, err := repo.UpdateIfStatus(ctx, assignmentID,
			[]enums.AssignmentStatus{enums.AssignmentStatusPending},
			map[string]any{"status": enums.AssignmentStatusExpired})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "expire assignment")
		}
		if !claimed {
			// the worker took it while the sweep was running
			return pkgerrors.New(pkgerrors.CodeStateConflict, "assignment is no longer pending")
		}

		if err := s.workers.WithTx(tx).DecrementLoad(ctx, assignment.WorkerID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decrement worker load")
		}
		s.metrics.IncTransition(assignment.ServiceType.String(), enums.AssignmentStatusExpired.String())
		return nil
	})
}

// loadOwned fetches the assignment and enforces worker ownership.
func (s *service) loadOwned(ctx context.Context, repo Repository, assignmentID, workerID uuid.UUID) (*models.OrderAssignment, error) {
	if assignmentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "assignment id required")
	}
	if workerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "worker identity missing")
	}
	assignment, err := repo.FindByID(ctx, assignmentID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "assignment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load assignment")
	}
	if assignment.WorkerID != workerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "assignment belongs to another worker")
	}
	return assignment, nil
}

// finishAssignment moves a taken row to completed and releases the worker slot.
func (s *service) finishAssignment(ctx context.Context, tx *gorm.DB, assignment *models.OrderAssignment, extra map[string]any) error {
	repo := s.repo.WithTx(tx)

	now := time.Now().UTC()
	updates := map[string]any{
		"status":       enums.AssignmentStatusCompleted,
		"completed_at": now,
	}
	for k, v := range extra {
		updates[k] = v
	}

	claimed, err := repo.UpdateIfStatus(ctx, assignment.ID,
		[]enums.AssignmentStatus{enums.AssignmentStatusTaken},
		updates)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "complete assignment")
	}
	if !claimed {
		s.metrics.IncConflict("complete")
		return pkgerrors.New(pkgerrors.CodeStateConflict, "only taken assignments can be completed")
	}

	if err := s.workers.WithTx(tx).DecrementLoad(ctx, assignment.WorkerID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decrement worker load")
	}

	assignment.Status = enums.AssignmentStatusCompleted
	assignment.CompletedAt = &now
	return nil
}

// chainNextStage creates the follow-up stage after confirmation completes:
// quality when the gate is enabled, suivi otherwise.
func (s *service) chainNextStage(ctx context.Context, tx *gorm.DB, completed *models.OrderAssignment, settings *models.AutoAssignmentSettings) error {
	if !settings.AutoAssignSuiviAfterConfirm {
		return nil
	}

	stage := enums.ServiceTypeSuivi
	if settings.EnableQualityCheck {
		stage = enums.ServiceTypeQuality
	}

	var preferred *uuid.UUID
	if stage == enums.ServiceTypeSuivi && settings.SuiviToSameWorker {
		workerID := completed.WorkerID
		preferred = &workerID
	}
	return s.chainStage(ctx, tx, completed, stage, preferred, settings)
}

// chainStage creates one pending row for the given stage. A preferred worker
// is used when capability and capacity allow; otherwise the strategy selector
// picks from the eligible pool. An empty pool leaves the stage unassigned.
func (s *service) chainStage(ctx context.Context, tx *gorm.DB, source *models.OrderAssignment, stage enums.ServiceType, preferred *uuid.UUID, settings *models.AutoAssignmentSettings) error {
	repo := s.repo.WithTx(tx)

	// a live row for this stage means there is nothing to chain
	if _, err := repo.FindActiveByOrderAndType(ctx, source.OrderID, stage); err == nil {
		return nil
	} else if err != gorm.ErrRecordNotFound {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check active assignment")
	}

	order, err := s.orders.FindOrder(ctx, tx, source.OrderID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}

	target, err := s.pickWorker(ctx, tx, order, stage, preferred, settings)
	if err != nil {
		return err
	}
	if target == uuid.Nil {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"order_id":     source.OrderID.String(),
			"service_type": stage.String(),
		}), "no eligible worker, leaving stage unassigned")
		return nil
	}

	_, err = s.createAssignment(ctx, tx, AssignInput{
		OrderID:     source.OrderID,
		WorkerID:    target,
		ServiceType: stage,
		Priority:    source.Priority,
	}, settings)
	if err != nil {
		// capacity races resolve to an unassigned stage, not a failed completion
		if pkgerrors.HasCode(err, pkgerrors.CodeCapacity) || pkgerrors.HasCode(err, pkgerrors.CodeConflict) {
			return nil
		}
		return err
	}
	s.metrics.IncTransition(stage.String(), enums.AssignmentStatusPending.String())
	return nil
}

// pickWorker resolves the chained stage's target. Returns uuid.Nil when nobody
// is eligible.
func (s *service) pickWorker(ctx context.Context, tx *gorm.DB, order *models.Order, stage enums.ServiceType, preferred *uuid.UUID, settings *models.AutoAssignmentSettings) (uuid.UUID, error) {
	workersRepo := s.workers.WithTx(tx)

	if preferred != nil {
		cfg, err := workersRepo.FindByUserID(ctx, *preferred)
		if err == nil && cfg.CanDo(stage) && cfg.HasSpareCapacity(settings.GlobalMaxOrdersPerWorker) {
			return *preferred, nil
		}
		if err != nil && err != gorm.ErrRecordNotFound {
			return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load preferred worker")
		}
	}

	// the selector pool only opens when automatic distribution covers the
	// stage; otherwise the stage waits for self-assignment
	if !settings.AutoAssignEnabledFor(stage) {
		return uuid.Nil, nil
	}

	pool, err := workersRepo.ListEligible(ctx, workers.EligibilityQuery{
		ServiceType:          stage,
		OnlyOnline:           settings.OnlyOnlineWorkers,
		GlobalMaxAssignments: settings.GlobalMaxOrdersPerWorker,
		CityID:               order.CityID,
		SourceID:             order.SourceID,
	})
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list eligible workers")
	}

	candidates := make([]strategy.Candidate, 0, len(pool))
	for _, cfg := range pool {
		candidates = append(candidates, strategy.Candidate{
			UserID:                 cfg.UserID,
			CurrentAssignmentCount: cfg.CurrentAssignmentCount,
			AutoAssignPriority:     cfg.AutoAssignPriority,
			LastAssignedAt:         cfg.LastAssignedAt,
		})
	}

	picked, err := s.selector.Pick(settings.Strategy, candidates)
	if err != nil {
		if pkgerrors.HasCode(err, pkgerrors.CodeNoEligibleWorker) {
			return uuid.Nil, nil
		}
		return uuid.Nil, err
	}
	return picked, nil
}

// handleReturnedSuivi applies the return-to-confirmation policy after a suivi
// comes back "returned". Open and choose both leave the stage unassigned;
// choose surfaces through the supervisor decision listing.
func (s *service) handleReturnedSuivi(ctx context.Context, tx *gorm.DB, completed *models.OrderAssignment, settings *models.AutoAssignmentSettings) error {
	sameWorker := settings.ReturnToConfirmationMode == enums.ReturnModeSameWorker
	return s.returnToConfirmation(ctx, tx, completed, sameWorker, settings)
}

// returnToConfirmation reopens the confirmation stage, optionally targeting
// the worker who confirmed the order originally.
func (s *service) returnToConfirmation(ctx context.Context, tx *gorm.DB, source *models.OrderAssignment, toSameWorker bool, settings *models.AutoAssignmentSettings) error {
	if !toSameWorker {
		return nil
	}

	original, err := s.repo.WithTx(tx).FindLastConfirmationWorker(ctx, source.OrderID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find original confirmation worker")
	}
	if original == nil {
		return nil
	}

	order, err := s.orders.FindOrder(ctx, tx, source.OrderID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if !order.AcceptsAssignments() {
		return nil
	}

	_, err = s.createAssignment(ctx, tx, AssignInput{
		OrderID:     source.OrderID,
		WorkerID:    *original,
		ServiceType: enums.ServiceTypeConfirmation,
		Priority:    source.Priority,
	}, settings)
	if err != nil {
		// capability loss or capacity leaves the stage open for anyone
		if pkgerrors.HasCode(err, pkgerrors.CodeCapability) ||
			pkgerrors.HasCode(err, pkgerrors.CodeCapacity) ||
			pkgerrors.HasCode(err, pkgerrors.CodeConflict) {
			return nil
		}
		return err
	}
	return nil
}

func (s *service) ListMyPending(ctx context.Context, workerID uuid.UUID, filters ListFilters, params pagination.Params) (*AssignmentList, error) {
	return s.listByWorker(ctx, workerID, []enums.AssignmentStatus{enums.AssignmentStatusPending}, filters, params)
}

func (s *service) ListMyActive(ctx context.Context, workerID uuid.UUID, filters ListFilters, params pagination.Params) (*AssignmentList, error) {
	return s.listByWorker(ctx, workerID, []enums.AssignmentStatus{enums.AssignmentStatusTaken}, filters, params)
}

func (s *service) listByWorker(ctx context.Context, workerID uuid.UUID, statuses []enums.AssignmentStatus, filters ListFilters, params pagination.Params) (*AssignmentList, error) {
	if workerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "worker identity missing")
	}
	list, err := s.repo.ListByWorker(ctx, workerID, statuses, filters, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list assignments")
	}
	return list, nil
}

func (s *service) ListUnassigned(ctx context.Context, serviceType enums.ServiceType, params pagination.Params) (*OrderQueueList, error) {
	if !serviceType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid service type")
	}
	list, err := s.repo.ListUnassignedOrders(ctx, serviceType, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list unassigned orders")
	}
	return list, nil
}

func (s *service) ListActive(ctx context.Context, filters ListFilters, params pagination.Params) (*AssignmentList, error) {
	list, err := s.repo.ListActive(ctx, filters, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list active assignments")
	}
	return list, nil
}

func (s *service) WorkersStats(ctx context.Context) ([]WorkerStatsRow, error) {
	rows, err := s.repo.WorkersStats(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load workers stats")
	}
	return rows, nil
}
