package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/codtrack/fulfillment-engine/pkg/db/models"
	pkgerrors "github.com/codtrack/fulfillment-engine/pkg/errors"
	"github.com/codtrack/fulfillment-engine/pkg/logger"
	"github.com/codtrack/fulfillment-engine/pkg/metrics"
	"github.com/google/uuid"
	"go.uber.org/multierr"
)

const defaultExpiryBatchSize = 200

type pendingAssignmentReader interface {
	ListPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.OrderAssignment, error)
}

type assignmentExpirer interface {
	Expire(ctx context.Context, assignmentID uuid.UUID) error
}

type settingsReader interface {
	Get(ctx context.Context) (*models.AutoAssignmentSettings, error)
}

// ExpiryJobParams configure the pending-assignment sweep.
type ExpiryJobParams struct {
	Logger    *logger.Logger
	Reader    pendingAssignmentReader
	Expirer   assignmentExpirer
	Settings  settingsReader
	Metrics   *metrics.AssignmentMetrics
	BatchSize int
}

// NewExpiryJob builds the cron job that recycles stale pending assignments.
// Taken assignments are never touched.
func NewExpiryJob(params ExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Reader == nil {
		return nil, fmt.Errorf("pending assignment reader required")
	}
	if params.Expirer == nil {
		return nil, fmt.Errorf("assignment expirer required")
	}
	if params.Settings == nil {
		return nil, fmt.Errorf("settings reader required")
	}
	batchSize := params.BatchSize
	if batchSize <= 0 {
		batchSize = defaultExpiryBatchSize
	}
	return &expiryJob{
		logg:      params.Logger,
		reader:    params.Reader,
		expirer:   params.Expirer,
		settings:  params.Settings,
		metrics:   params.Metrics,
		batchSize: batchSize,
		now:       time.Now,
	}, nil
}

type expiryJob struct {
	logg      *logger.Logger
	reader    pendingAssignmentReader
	expirer   assignmentExpirer
	settings  settingsReader
	metrics   *metrics.AssignmentMetrics
	batchSize int
	now       func() time.Time
}

func (j *expiryJob) Name() string { return "assignment-expiry" }

func (j *expiryJob) Run(ctx context.Context) error {
	settings, err := j.settings.Get(ctx)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	timeout := settings.AssignmentTimeout()
	if timeout <= 0 {
		return nil
	}

	cutoff := j.now().UTC().Add(-timeout)
	stale, err := j.reader.ListPendingBefore(ctx, cutoff, j.batchSize)
	if err != nil {
		return fmt.Errorf("query stale pending assignments: %w", err)
	}

	expired := 0
	var errs []error
	for _, assignment := range stale {
		if err := j.expirer.Expire(ctx, assignment.ID); err != nil {
			// the worker took it (or it vanished) between the scan and the sweep
			if pkgerrors.HasCode(err, pkgerrors.CodeStateConflict) ||
				pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
				logCtx := j.logg.WithField(ctx, "assignment_id", assignment.ID.String())
				j.logg.Info(logCtx, "assignment no longer pending, skipping expiry")
				continue
			}
			errs = append(errs, fmt.Errorf("expire %s: %w", assignment.ID, err))
			continue
		}
		expired++
	}

	j.metrics.AddExpired(expired)
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"scanned": len(stale),
		"expired": expired,
	})
	j.logg.Info(logCtx, "assignment expiry sweep complete")
	return multierr.Combine(errs...)
}
