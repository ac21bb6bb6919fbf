package assignments

import (
	"context"
	"testing"
	"time"

	"github.com/codtrack/fulfillment-engine/pkg/db/models"
	"github.com/codtrack/fulfillment-engine/pkg/enums"
	"github.com/codtrack/fulfillment-engine/pkg/pagination"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupEngineTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  code TEXT NOT NULL,
  phase TEXT NOT NULL,
  state TEXT NOT NULL,
  city_id TEXT,
  store_id TEXT,
  source_id TEXT,
  total NUMERIC NOT NULL DEFAULT 0,
  grabbed_by_user_id TEXT,
  created_on DATETIME,
  updated_at DATETIME
);
CREATE TABLE IF NOT EXISTS worker_service_configs (
  user_id TEXT PRIMARY KEY,
  can_do_confirmation INTEGER NOT NULL DEFAULT 0,
  can_do_suivi INTEGER NOT NULL DEFAULT 0,
  can_do_quality INTEGER NOT NULL DEFAULT 0,
  can_do_callback INTEGER NOT NULL DEFAULT 0,
  is_online INTEGER NOT NULL DEFAULT 0,
  max_concurrent_assignments INTEGER NOT NULL DEFAULT 5,
  current_assignment_count INTEGER NOT NULL DEFAULT 0,
  auto_assign_priority INTEGER NOT NULL DEFAULT 0,
  last_assigned_at DATETIME,
  restricted_city_ids TEXT,
  restricted_source_ids TEXT,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE TABLE IF NOT EXISTS order_assignments (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  worker_id TEXT NOT NULL,
  service_type TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  priority INTEGER NOT NULL DEFAULT 0,
  assigned_by_user_id TEXT,
  assigned_at DATETIME,
  taken_at DATETIME,
  completed_at DATETIME,
  released_at DATETIME,
  result TEXT,
  notes TEXT,
  release_reason TEXT,
  cod_collected NUMERIC,
  callback_scheduled_at DATETIME,
  callback_attempt_number INTEGER NOT NULL DEFAULT 0,
  quality_approved INTEGER,
  quality_score INTEGER,
  updated_at DATETIME
);
CREATE UNIQUE INDEX IF NOT EXISTS uq_order_assignments_active_pair
  ON order_assignments (order_id, service_type)
  WHERE status IN ('pending', 'taken');`
	require.NoError(t, db.Exec(schema).Error)
	return db
}

type testTxRunner struct {
	db *gorm.DB
}

func (r testTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func seedOrder(t *testing.T, db *gorm.DB, mutate func(*models.Order)) *models.Order {
	t.Helper()

	order := &models.Order{
		ID:    uuid.New(),
		Code:  "ORD-" + uuid.NewString()[:8],
		Phase: enums.OrderPhaseConfirmation,
		State: enums.OrderStateNew,
	}
	if mutate != nil {
		mutate(order)
	}
	require.NoError(t, db.Create(order).Error)
	return order
}

func seedWorkerConfig(t *testing.T, db *gorm.DB, mutate func(*models.WorkerServiceConfig)) *models.WorkerServiceConfig {
	t.Helper()

	cfg := &models.WorkerServiceConfig{
		UserID:                   uuid.New(),
		CanDoConfirmation:        true,
		CanDoSuivi:               true,
		CanDoQuality:             true,
		CanDoCallback:            true,
		IsOnline:                 true,
		MaxConcurrentAssignments: 5,
	}
	if mutate != nil {
		mutate(cfg)
	}
	require.NoError(t, db.Create(cfg).Error)
	return cfg
}

func seedAssignment(t *testing.T, db *gorm.DB, mutate func(*models.OrderAssignment)) *models.OrderAssignment {
	t.Helper()

	row := &models.OrderAssignment{
		ID:          uuid.New(),
		OrderID:     uuid.New(),
		WorkerID:    uuid.New(),
		ServiceType: enums.ServiceTypeConfirmation,
		Status:      enums.AssignmentStatusPending,
		AssignedAt:  time.Now().UTC(),
	}
	if mutate != nil {
		mutate(row)
	}
	require.NoError(t, db.Create(row).Error)
	return row
}

func TestRepoCreate_ActivePairGuard(t *testing.T) {
	db := setupEngineTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	orderID := uuid.New()
	first := seedAssignment(t, db, func(a *models.OrderAssignment) { a.OrderID = orderID })

	dup := &models.OrderAssignment{
		ID:          uuid.New(),
		OrderID:     orderID,
		WorkerID:    uuid.New(),
		ServiceType: enums.ServiceTypeConfirmation,
		Status:      enums.AssignmentStatusPending,
		AssignedAt:  time.Now().UTC(),
	}
	err := repo.Create(ctx, dup)
	assert.ErrorIs(t, err, ErrActivePairExists)

	// a different stage on the same order is fine
	other := &models.OrderAssignment{
		ID:          uuid.New(),
		OrderID:     orderID,
		WorkerID:    first.WorkerID,
		ServiceType: enums.ServiceTypeSuivi,
		Status:      enums.AssignmentStatusPending,
		AssignedAt:  time.Now().UTC(),
	}
	require.NoError(t, repo.Create(ctx, other))

	// once the live row is retired, the pair opens up again
	require.NoError(t, db.Model(&models.OrderAssignment{}).
		Where("id = ?", first.ID).
		Update("status", enums.AssignmentStatusCompleted).Error)
	require.NoError(t, repo.Create(ctx, &models.OrderAssignment{
		ID:          uuid.New(),
		OrderID:     orderID,
		WorkerID:    uuid.New(),
		ServiceType: enums.ServiceTypeConfirmation,
		Status:      enums.AssignmentStatusPending,
		AssignedAt:  time.Now().UTC(),
	}))
}

func TestRepoUpdateIfStatus_FirstWriterWins(t *testing.T) {
	db := setupEngineTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	row := seedAssignment(t, db, nil)

	claimed, err := repo.UpdateIfStatus(ctx, row.ID,
		[]enums.AssignmentStatus{enums.AssignmentStatusPending},
		map[string]any{"status": enums.AssignmentStatusTaken})
	require.NoError(t, err)
	assert.True(t, claimed)

	claimed, err = repo.UpdateIfStatus(ctx, row.ID,
		[]enums.AssignmentStatus{enums.AssignmentStatusPending},
		map[string]any{"status": enums.AssignmentStatusExpired})
	require.NoError(t, err)
	assert.False(t, claimed)

	reloaded, err := repo.FindByID(ctx, row.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.AssignmentStatusTaken, reloaded.Status)
}

func TestRepoFindActiveByOrderAndType(t *testing.T) {
	db := setupEngineTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	orderID := uuid.New()
	seedAssignment(t, db, func(a *models.OrderAssignment) {
		a.OrderID = orderID
		a.Status = enums.AssignmentStatusCompleted
	})

	_, err := repo.FindActiveByOrderAndType(ctx, orderID, enums.ServiceTypeConfirmation)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	live := seedAssignment(t, db, func(a *models.OrderAssignment) {
		a.OrderID = orderID
		a.Status = enums.AssignmentStatusTaken
	})
	found, err := repo.FindActiveByOrderAndType(ctx, orderID, enums.ServiceTypeConfirmation)
	require.NoError(t, err)
	assert.Equal(t, live.ID, found.ID)
}

func TestRepoFindLastConfirmationWorker(t *testing.T) {
	db := setupEngineTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	orderID := uuid.New()

	worker, err := repo.FindLastConfirmationWorker(ctx, orderID)
	require.NoError(t, err)
	assert.Nil(t, worker)

	older := time.Now().UTC().Add(-2 * time.Hour)
	newer := time.Now().UTC().Add(-time.Hour)
	seedAssignment(t, db, func(a *models.OrderAssignment) {
		a.OrderID = orderID
		a.Status = enums.AssignmentStatusCompleted
		a.CompletedAt = &older
	})
	latest := seedAssignment(t, db, func(a *models.OrderAssignment) {
		a.OrderID = orderID
		a.Status = enums.AssignmentStatusCompleted
		a.CompletedAt = &newer
	})

	worker, err = repo.FindLastConfirmationWorker(ctx, orderID)
	require.NoError(t, err)
	require.NotNil(t, worker)
	assert.Equal(t, latest.WorkerID, *worker)
}

func TestRepoListPendingBefore(t *testing.T) {
	db := setupEngineTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	cutoff := time.Now().UTC().Add(-30 * time.Minute)

	stale := seedAssignment(t, db, func(a *models.OrderAssignment) {
		a.AssignedAt = cutoff.Add(-time.Hour)
	})
	seedAssignment(t, db, func(a *models.OrderAssignment) {
		a.AssignedAt = cutoff.Add(time.Minute)
	})
	seedAssignment(t, db, func(a *models.OrderAssignment) {
		a.AssignedAt = cutoff.Add(-time.Hour)
		a.Status = enums.AssignmentStatusTaken
	})

	rows, err := repo.ListPendingBefore(ctx, cutoff, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, stale.ID, rows[0].ID)
}

func TestRepoListOverdueCallbacks(t *testing.T) {
	db := setupEngineTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	now := time.Now().UTC()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	overdue := seedAssignment(t, db, func(a *models.OrderAssignment) {
		a.ServiceType = enums.ServiceTypeCallback
		a.Status = enums.AssignmentStatusTaken
		a.CallbackScheduledAt = &past
	})
	seedAssignment(t, db, func(a *models.OrderAssignment) {
		a.ServiceType = enums.ServiceTypeCallback
		a.Status = enums.AssignmentStatusTaken
		a.CallbackScheduledAt = &future
	})
	seedAssignment(t, db, func(a *models.OrderAssignment) {
		a.ServiceType = enums.ServiceTypeCallback
		a.Status = enums.AssignmentStatusCompleted
		a.CallbackScheduledAt = &past
	})
	seedAssignment(t, db, func(a *models.OrderAssignment) {
		a.Status = enums.AssignmentStatusTaken
		a.CallbackScheduledAt = &past
	})

	list, err := repo.ListOverdueCallbacks(ctx, now, nil, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, list.Assignments, 1)
	assert.Equal(t, overdue.ID, list.Assignments[0].ID)

	other := uuid.New()
	list, err = repo.ListOverdueCallbacks(ctx, now, &other, pagination.Params{})
	require.NoError(t, err)
	assert.Empty(t, list.Assignments)
}

func TestRepoListByWorker_PaginatesOnAssignedAt(t *testing.T) {
	db := setupEngineTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	workerID := uuid.New()
	base := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		seedAssignment(t, db, func(a *models.OrderAssignment) {
			a.WorkerID = workerID
			a.AssignedAt = base.Add(time.Duration(i) * time.Minute)
		})
	}

	page, err := repo.ListByWorker(ctx, workerID,
		[]enums.AssignmentStatus{enums.AssignmentStatusPending},
		ListFilters{}, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Assignments, 2)
	require.NotEmpty(t, page.NextCursor)
	assert.True(t, page.Assignments[0].AssignedAt.After(page.Assignments[1].AssignedAt))

	rest, err := repo.ListByWorker(ctx, workerID,
		[]enums.AssignmentStatus{enums.AssignmentStatusPending},
		ListFilters{}, pagination.Params{Limit: 2, Cursor: page.NextCursor})
	require.NoError(t, err)
	require.Len(t, rest.Assignments, 1)
	assert.Empty(t, rest.NextCursor)
}

func TestRepoListByWorker_ServiceTypeFilter(t *testing.T) {
	db := setupEngineTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	workerID := uuid.New()
	seedAssignment(t, db, func(a *models.OrderAssignment) { a.WorkerID = workerID })
	suivi := seedAssignment(t, db, func(a *models.OrderAssignment) {
		a.WorkerID = workerID
		a.ServiceType = enums.ServiceTypeSuivi
	})

	filter := enums.ServiceTypeSuivi
	page, err := repo.ListByWorker(ctx, workerID,
		[]enums.AssignmentStatus{enums.AssignmentStatusPending},
		ListFilters{ServiceType: &filter}, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, page.Assignments, 1)
	assert.Equal(t, suivi.ID, page.Assignments[0].ID)
}

func TestRepoListUnassignedOrders(t *testing.T) {
	db := setupEngineTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	open := seedOrder(t, db, nil)
	covered := seedOrder(t, db, nil)
	seedOrder(t, db, func(o *models.Order) { o.State = enums.OrderStateDelivered })

	seedAssignment(t, db, func(a *models.OrderAssignment) { a.OrderID = covered.ID })
	// a retired assignment does not cover the order
	seedAssignment(t, db, func(a *models.OrderAssignment) {
		a.OrderID = open.ID
		a.Status = enums.AssignmentStatusExpired
	})

	list, err := repo.ListUnassignedOrders(ctx, enums.ServiceTypeConfirmation, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, list.Orders, 1)
	assert.Equal(t, open.ID, list.Orders[0].ID)

	// the covered order still waits for its other stages
	list, err = repo.ListUnassignedOrders(ctx, enums.ServiceTypeSuivi, pagination.Params{})
	require.NoError(t, err)
	assert.Len(t, list.Orders, 2)
}

func TestRepoWorkersStats(t *testing.T) {
	db := setupEngineTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	w := seedWorkerConfig(t, db, func(c *models.WorkerServiceConfig) {
		c.CurrentAssignmentCount = 2
	})
	seedAssignment(t, db, func(a *models.OrderAssignment) { a.WorkerID = w.UserID })
	seedAssignment(t, db, func(a *models.OrderAssignment) {
		a.WorkerID = w.UserID
		a.ServiceType = enums.ServiceTypeSuivi
		a.Status = enums.AssignmentStatusTaken
	})
	seedAssignment(t, db, func(a *models.OrderAssignment) {
		a.WorkerID = w.UserID
		a.Status = enums.AssignmentStatusCompleted
	})

	rows, err := repo.WorkersStats(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	stats := rows[0]
	assert.Equal(t, w.UserID, stats.WorkerID)
	assert.True(t, stats.IsOnline)
	assert.Equal(t, 2, stats.CurrentAssignmentCount)
	assert.Equal(t, 1, stats.PendingCount)
	assert.Equal(t, 1, stats.TakenCount)
	assert.Equal(t, 1, stats.CompletedCount)
	assert.Equal(t, 0, stats.ReleasedCount)
}
