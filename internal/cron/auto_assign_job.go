package cron

import (
	"context"
	"fmt"

	"github.com/codtrack/fulfillment-engine/internal/assignments"
	"github.com/codtrack/fulfillment-engine/pkg/db/models"
	"github.com/codtrack/fulfillment-engine/pkg/enums"
	pkgerrors "github.com/codtrack/fulfillment-engine/pkg/errors"
	"github.com/codtrack/fulfillment-engine/pkg/logger"
	"github.com/codtrack/fulfillment-engine/pkg/pagination"
	"github.com/google/uuid"
	"go.uber.org/multierr"
)

type unassignedOrderReader interface {
	ListUnassignedOrders(ctx context.Context, serviceType enums.ServiceType, params pagination.Params) (*assignments.OrderQueueList, error)
}

type autoAssigner interface {
	AutoAssign(ctx context.Context, orderID uuid.UUID, serviceType enums.ServiceType) (*models.OrderAssignment, error)
}

// AutoAssignJobParams configure the automatic distribution sweep.
type AutoAssignJobParams struct {
	Logger    *logger.Logger
	Orders    unassignedOrderReader
	Assigner  autoAssigner
	Settings  settingsReader
	BatchSize int
}

// NewAutoAssignJob builds the cron job that distributes unassigned stages
// through the strategy selector. Stages whose toggle is off are skipped and
// stay in the self-assign queues.
func NewAutoAssignJob(params AutoAssignJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("unassigned order reader required")
	}
	if params.Assigner == nil {
		return nil, fmt.Errorf("auto assigner required")
	}
	if params.Settings == nil {
		return nil, fmt.Errorf("settings reader required")
	}
	batchSize := params.BatchSize
	if batchSize <= 0 {
		batchSize = defaultExpiryBatchSize
	}
	return &autoAssignJob{
		logg:      params.Logger,
		orders:    params.Orders,
		assigner:  params.Assigner,
		settings:  params.Settings,
		batchSize: batchSize,
	}, nil
}

type autoAssignJob struct {
	logg      *logger.Logger
	orders    unassignedOrderReader
	assigner  autoAssigner
	settings  settingsReader
	batchSize int
}

func (j *autoAssignJob) Name() string { return "auto-assignment" }

func (j *autoAssignJob) Run(ctx context.Context) error {
	settings, err := j.settings.Get(ctx)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	if !settings.IsEnabled {
		return nil
	}

	var errs []error
	for _, stage := range enums.ServiceTypes() {
		if !settings.AutoAssignEnabledFor(stage) {
			continue
		}
		if err := j.sweepStage(ctx, stage); err != nil {
			errs = append(errs, err)
		}
	}
	return multierr.Combine(errs...)
}

func (j *autoAssignJob) sweepStage(ctx context.Context, stage enums.ServiceType) error {
	list, err := j.orders.ListUnassignedOrders(ctx, stage, pagination.Params{Limit: j.batchSize})
	if err != nil {
		return fmt.Errorf("query unassigned orders for %s: %w", stage, err)
	}

	assigned := 0
	var errs []error
	for _, order := range list.Orders {
		if _, err := j.assigner.AutoAssign(ctx, order.ID, stage); err != nil {
			// an empty pool, a racing assignment, or a policy flip mid-sweep
			// leaves the order in the self-assign queue for the next cycle
			if pkgerrors.HasCode(err, pkgerrors.CodeNoEligibleWorker) ||
				pkgerrors.HasCode(err, pkgerrors.CodeConflict) ||
				pkgerrors.HasCode(err, pkgerrors.CodeCapacity) ||
				pkgerrors.HasCode(err, pkgerrors.CodeStateConflict) {
				continue
			}
			errs = append(errs, fmt.Errorf("auto-assign order %s for %s: %w", order.ID, stage, err))
			continue
		}
		assigned++
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"service_type": stage.String(),
		"scanned":      len(list.Orders),
		"assigned":     assigned,
	})
	j.logg.Info(logCtx, "auto-assignment sweep complete")
	return multierr.Combine(errs...)
}
