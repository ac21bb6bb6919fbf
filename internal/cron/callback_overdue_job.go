package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/codtrack/fulfillment-engine/internal/assignments"
	"github.com/codtrack/fulfillment-engine/pkg/logger"
	"github.com/codtrack/fulfillment-engine/pkg/pagination"
	"github.com/google/uuid"
)

type overdueCallbackReader interface {
	ListOverdueCallbacks(ctx context.Context, now time.Time, workerID *uuid.UUID, params pagination.Params) (*assignments.AssignmentList, error)
}

// NewCallbackOverdueJob builds the monitoring job that reports overdue
// callback attempts. It mutates nothing; the overdue flag stays a read-time
// derivation.
func NewCallbackOverdueJob(logg *logger.Logger, reader overdueCallbackReader) (Job, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if reader == nil {
		return nil, fmt.Errorf("overdue callback reader required")
	}
	return &callbackOverdueJob{logg: logg, reader: reader, now: time.Now}, nil
}

type callbackOverdueJob struct {
	logg   *logger.Logger
	reader overdueCallbackReader
	now    func() time.Time
}

func (j *callbackOverdueJob) Name() string { return "callback-overdue-scan" }

func (j *callbackOverdueJob) Run(ctx context.Context) error {
	list, err := j.reader.ListOverdueCallbacks(ctx, j.now().UTC(), nil, pagination.Params{Limit: pagination.MaxLimit})
	if err != nil {
		return fmt.Errorf("query overdue callbacks: %w", err)
	}

	for _, assignment := range list.Assignments {
		logCtx := j.logg.WithFields(ctx, map[string]any{
			"assignment_id": assignment.ID.String(),
			"order_id":      assignment.OrderID.String(),
			"worker_id":     assignment.WorkerID.String(),
			"scheduled_at":  assignment.CallbackScheduledAt,
			"attempt":       assignment.CallbackAttemptNumber,
		})
		j.logg.Warn(logCtx, "callback attempt overdue")
	}

	logCtx := j.logg.WithField(ctx, "overdue", len(list.Assignments))
	j.logg.Info(logCtx, "callback overdue scan complete")
	return nil
}
