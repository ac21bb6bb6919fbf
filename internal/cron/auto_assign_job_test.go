package cron

import (
	"context"
	"errors"
	"testing"

	"github.com/codtrack/fulfillment-engine/internal/assignments"
	"github.com/codtrack/fulfillment-engine/pkg/db/models"
	"github.com/codtrack/fulfillment-engine/pkg/enums"
	pkgerrors "github.com/codtrack/fulfillment-engine/pkg/errors"
	"github.com/codtrack/fulfillment-engine/pkg/logger"
	"github.com/codtrack/fulfillment-engine/pkg/pagination"
	"github.com/google/uuid"
)

type fakeUnassignedReader struct {
	ordersByStage map[enums.ServiceType][]models.Order
	queried       []enums.ServiceType
}

func (f *fakeUnassignedReader) ListUnassignedOrders(_ context.Context, serviceType enums.ServiceType, _ pagination.Params) (*assignments.OrderQueueList, error) {
	f.queried = append(f.queried, serviceType)
	return &assignments.OrderQueueList{Orders: f.ordersByStage[serviceType]}, nil
}

type fakeAutoAssigner struct {
	errByOrder map[uuid.UUID]error
	assigned   []uuid.UUID
}

func (f *fakeAutoAssigner) AutoAssign(_ context.Context, orderID uuid.UUID, _ enums.ServiceType) (*models.OrderAssignment, error) {
	if err, ok := f.errByOrder[orderID]; ok {
		return nil, err
	}
	f.assigned = append(f.assigned, orderID)
	return &models.OrderAssignment{ID: uuid.New(), OrderID: orderID}, nil
}

func newAutoAssignJobForTest(t *testing.T, reader *fakeUnassignedReader, assigner *fakeAutoAssigner, settings *models.AutoAssignmentSettings) *autoAssignJob {
	t.Helper()
	job, err := NewAutoAssignJob(AutoAssignJobParams{
		Logger:   logger.New(logger.Options{ServiceName: "cron-test"}),
		Orders:   reader,
		Assigner: assigner,
		Settings: &fakeSettingsReader{settings: settings},
	})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}
	return job.(*autoAssignJob)
}

func TestAutoAssignJobSweepsEnabledStagesOnly(t *testing.T) {
	confirmation := models.Order{ID: uuid.New()}
	suivi := models.Order{ID: uuid.New()}
	reader := &fakeUnassignedReader{ordersByStage: map[enums.ServiceType][]models.Order{
		enums.ServiceTypeConfirmation: {confirmation},
		enums.ServiceTypeSuivi:        {suivi},
	}}
	assigner := &fakeAutoAssigner{}
	settings := models.DefaultAutoAssignmentSettings()
	settings.IsEnabled = true
	settings.AutoAssignConfirmation = true

	job := newAutoAssignJobForTest(t, reader, assigner, settings)
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(reader.queried) != 1 || reader.queried[0] != enums.ServiceTypeConfirmation {
		t.Fatalf("only the enabled stage should be queried, got %v", reader.queried)
	}
	if len(assigner.assigned) != 1 || assigner.assigned[0] != confirmation.ID {
		t.Fatalf("expected one confirmation assignment, got %v", assigner.assigned)
	}
}

func TestAutoAssignJobIdleWhenMasterSwitchOff(t *testing.T) {
	reader := &fakeUnassignedReader{ordersByStage: map[enums.ServiceType][]models.Order{
		enums.ServiceTypeConfirmation: {{ID: uuid.New()}},
	}}
	assigner := &fakeAutoAssigner{}
	settings := models.DefaultAutoAssignmentSettings()
	settings.IsEnabled = false
	settings.AutoAssignConfirmation = true

	job := newAutoAssignJobForTest(t, reader, assigner, settings)
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(reader.queried) != 0 {
		t.Fatalf("nothing should be queried when distribution is off, got %v", reader.queried)
	}
}

func TestAutoAssignJobSkipsEmptyPoolAndRaces(t *testing.T) {
	starved := models.Order{ID: uuid.New()}
	raced := models.Order{ID: uuid.New()}
	healthy := models.Order{ID: uuid.New()}
	reader := &fakeUnassignedReader{ordersByStage: map[enums.ServiceType][]models.Order{
		enums.ServiceTypeSuivi: {starved, raced, healthy},
	}}
	assigner := &fakeAutoAssigner{errByOrder: map[uuid.UUID]error{
		starved.ID: pkgerrors.New(pkgerrors.CodeNoEligibleWorker, "no eligible worker for service type"),
		raced.ID:   pkgerrors.New(pkgerrors.CodeConflict, "order already has an active assignment for this service type"),
	}}
	settings := models.DefaultAutoAssignmentSettings()
	settings.IsEnabled = true
	settings.AutoAssignSuivi = true

	job := newAutoAssignJobForTest(t, reader, assigner, settings)
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("starvation and races should not fail the sweep: %v", err)
	}
	if len(assigner.assigned) != 1 || assigner.assigned[0] != healthy.ID {
		t.Fatalf("expected only the healthy order to assign, got %v", assigner.assigned)
	}
}

func TestAutoAssignJobAggregatesHardFailures(t *testing.T) {
	broken := models.Order{ID: uuid.New()}
	healthy := models.Order{ID: uuid.New()}
	reader := &fakeUnassignedReader{ordersByStage: map[enums.ServiceType][]models.Order{
		enums.ServiceTypeCallback: {broken, healthy},
	}}
	assigner := &fakeAutoAssigner{errByOrder: map[uuid.UUID]error{
		broken.ID: errors.New("connection reset"),
	}}
	settings := models.DefaultAutoAssignmentSettings()
	settings.IsEnabled = true
	settings.AutoAssignCallback = true

	job := newAutoAssignJobForTest(t, reader, assigner, settings)
	if err := job.Run(context.Background()); err == nil {
		t.Fatalf("expected aggregated error")
	}
	if len(assigner.assigned) != 1 || assigner.assigned[0] != healthy.ID {
		t.Fatalf("remaining orders should still be swept, got %v", assigner.assigned)
	}
}
