package workers

import (
	"context"
	"testing"
	"time"

	"github.com/codtrack/fulfillment-engine/pkg/db/models"
	dbtypes "github.com/codtrack/fulfillment-engine/pkg/db/types"
	"github.com/codtrack/fulfillment-engine/pkg/enums"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupWorkersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
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
);`
	require.NoError(t, db.Exec(schema).Error)
	return db
}

func seedWorker(t *testing.T, db *gorm.DB, mutate func(*models.WorkerServiceConfig)) *models.WorkerServiceConfig {
	t.Helper()

	cfg := &models.WorkerServiceConfig{
		UserID:                   uuid.New(),
		CanDoConfirmation:        true,
		IsOnline:                 true,
		MaxConcurrentAssignments: 5,
	}
	if mutate != nil {
		mutate(cfg)
	}
	require.NoError(t, db.Create(cfg).Error)
	return cfg
}

func TestListEligible_FiltersCapabilityOnlineAndCapacity(t *testing.T) {
	db := setupWorkersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	eligible := seedWorker(t, db, nil)
	seedWorker(t, db, func(c *models.WorkerServiceConfig) { c.CanDoConfirmation = false; c.CanDoSuivi = true })
	seedWorker(t, db, func(c *models.WorkerServiceConfig) { c.IsOnline = false })
	seedWorker(t, db, func(c *models.WorkerServiceConfig) { c.CurrentAssignmentCount = 5 })

	rows, err := repo.ListEligible(ctx, EligibilityQuery{
		ServiceType: enums.ServiceTypeConfirmation,
		OnlyOnline:  true,
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, eligible.UserID, rows[0].UserID)
}

func TestListEligible_OfflineIncludedWhenNotRestricted(t *testing.T) {
	db := setupWorkersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	seedWorker(t, db, nil)
	seedWorker(t, db, func(c *models.WorkerServiceConfig) { c.IsOnline = false })

	rows, err := repo.ListEligible(ctx, EligibilityQuery{ServiceType: enums.ServiceTypeConfirmation})
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestListEligible_GlobalCap(t *testing.T) {
	db := setupWorkersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	light := seedWorker(t, db, func(c *models.WorkerServiceConfig) { c.CurrentAssignmentCount = 1 })
	seedWorker(t, db, func(c *models.WorkerServiceConfig) { c.CurrentAssignmentCount = 3 })

	rows, err := repo.ListEligible(ctx, EligibilityQuery{
		ServiceType:          enums.ServiceTypeConfirmation,
		OnlyOnline:           true,
		GlobalMaxAssignments: 2,
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, light.UserID, rows[0].UserID)
}

func TestListEligible_RestrictionLists(t *testing.T) {
	db := setupWorkersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	allowedCity := uuid.New()
	otherCity := uuid.New()

	unrestricted := seedWorker(t, db, nil)
	restricted := seedWorker(t, db, func(c *models.WorkerServiceConfig) {
		c.RestrictedCityIDs = dbtypes.UUIDArray{allowedCity}
	})

	rows, err := repo.ListEligible(ctx, EligibilityQuery{
		ServiceType: enums.ServiceTypeConfirmation,
		OnlyOnline:  true,
		CityID:      &allowedCity,
	})
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	rows, err = repo.ListEligible(ctx, EligibilityQuery{
		ServiceType: enums.ServiceTypeConfirmation,
		OnlyOnline:  true,
		CityID:      &otherCity,
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, unrestricted.UserID, rows[0].UserID)

	// an order with no city never matches a restricted worker
	rows, err = repo.ListEligible(ctx, EligibilityQuery{
		ServiceType: enums.ServiceTypeConfirmation,
		OnlyOnline:  true,
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.NotEqual(t, restricted.UserID, rows[0].UserID)
}

func TestIncrementLoad_StopsAtWorkerCap(t *testing.T) {
	db := setupWorkersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	w := seedWorker(t, db, func(c *models.WorkerServiceConfig) { c.MaxConcurrentAssignments = 2 })

	for i := 0; i < 2; i++ {
		ok, err := repo.IncrementLoad(ctx, w.UserID, 0, now)
		require.NoError(t, err)
		assert.True(t, ok)
	}

	ok, err := repo.IncrementLoad(ctx, w.UserID, 0, now)
	require.NoError(t, err)
	assert.False(t, ok)

	reloaded, err := repo.FindByUserID(ctx, w.UserID)
	require.NoError(t, err)
	assert.Equal(t, 2, reloaded.CurrentAssignmentCount)
	require.NotNil(t, reloaded.LastAssignedAt)
}

func TestIncrementLoad_GlobalCapWins(t *testing.T) {
	db := setupWorkersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	w := seedWorker(t, db, func(c *models.WorkerServiceConfig) {
		c.MaxConcurrentAssignments = 10
		c.CurrentAssignmentCount = 3
	})

	ok, err := repo.IncrementLoad(ctx, w.UserID, 3, time.Now().UTC())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDecrementLoad_FloorsAtZero(t *testing.T) {
	db := setupWorkersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	w := seedWorker(t, db, func(c *models.WorkerServiceConfig) { c.CurrentAssignmentCount = 1 })

	require.NoError(t, repo.DecrementLoad(ctx, w.UserID))
	require.NoError(t, repo.DecrementLoad(ctx, w.UserID))

	reloaded, err := repo.FindByUserID(ctx, w.UserID)
	require.NoError(t, err)
	assert.Equal(t, 0, reloaded.CurrentAssignmentCount)
}
