package settings

import (
	"context"
	"testing"

	"github.com/codtrack/fulfillment-engine/pkg/enums"
	pkgerrors "github.com/codtrack/fulfillment-engine/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type testTxRunner struct {
	db *gorm.DB
}

func (r testTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func setupSettingsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS auto_assignment_settings (
  id INTEGER PRIMARY KEY,
  is_enabled INTEGER NOT NULL DEFAULT 0,
  auto_assign_confirmation INTEGER NOT NULL DEFAULT 0,
  auto_assign_suivi INTEGER NOT NULL DEFAULT 0,
  auto_assign_quality INTEGER NOT NULL DEFAULT 0,
  auto_assign_callback INTEGER NOT NULL DEFAULT 0,
  strategy TEXT NOT NULL DEFAULT 'round_robin',
  only_online_workers INTEGER NOT NULL DEFAULT 1,
  assignment_timeout_minutes INTEGER NOT NULL DEFAULT 30,
  global_max_orders_per_worker INTEGER NOT NULL DEFAULT 0,
  enable_quality_check INTEGER NOT NULL DEFAULT 0,
  quality_pass_threshold INTEGER NOT NULL DEFAULT 70,
  return_rejected_to_same_confirmateur INTEGER NOT NULL DEFAULT 1,
  max_callback_attempts INTEGER NOT NULL DEFAULT 3,
  auto_cancel_unreachable INTEGER NOT NULL DEFAULT 0,
  auto_assign_suivi_after_confirm INTEGER NOT NULL DEFAULT 1,
  suivi_to_same_worker INTEGER NOT NULL DEFAULT 0,
  return_to_confirmation_mode TEXT NOT NULL DEFAULT 'open',
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(schema).Error)
	return db
}

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()

	db := setupSettingsTestDB(t)
	svc, err := NewService(NewRepository(db), testTxRunner{db: db})
	require.NoError(t, err)
	return svc, db
}

func TestGet_ReturnsDefaultsWhenUnseeded(t *testing.T) {
	svc, _ := newTestService(t)

	row, err := svc.Get(context.Background())
	require.NoError(t, err)
	assert.False(t, row.IsEnabled)
	assert.Equal(t, enums.AssignmentStrategyRoundRobin, row.Strategy)
	assert.Equal(t, 30, row.AssignmentTimeoutMinutes)
	assert.Equal(t, enums.ReturnModeOpen, row.ReturnToConfirmationMode)
}

func TestUpdate_SeedsRowAndAppliesChanges(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	enabled := true
	strategy := enums.AssignmentStrategyLeastLoaded
	timeout := 15
	row, err := svc.Update(ctx, UpdateInput{
		IsEnabled:                &enabled,
		Strategy:                 &strategy,
		AssignmentTimeoutMinutes: &timeout,
	})
	require.NoError(t, err)
	assert.True(t, row.IsEnabled)
	assert.Equal(t, enums.AssignmentStrategyLeastLoaded, row.Strategy)
	assert.Equal(t, 15, row.AssignmentTimeoutMinutes)

	// untouched fields keep defaults
	assert.Equal(t, 70, row.QualityPassThreshold)
	assert.True(t, row.OnlyOnlineWorkers)

	reloaded, err := svc.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, enums.AssignmentStrategyLeastLoaded, reloaded.Strategy)
}

func TestUpdate_PartialLeavesOtherFields(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	threshold := 85
	_, err := svc.Update(ctx, UpdateInput{QualityPassThreshold: &threshold})
	require.NoError(t, err)

	suivi := true
	row, err := svc.Update(ctx, UpdateInput{AutoAssignSuivi: &suivi})
	require.NoError(t, err)
	assert.Equal(t, 85, row.QualityPassThreshold)
	assert.True(t, row.AutoAssignSuivi)
}

func TestUpdate_Validation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	badStrategy := enums.AssignmentStrategy("chaos")
	_, err := svc.Update(ctx, UpdateInput{Strategy: &badStrategy})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	zeroTimeout := 0
	_, err = svc.Update(ctx, UpdateInput{AssignmentTimeoutMinutes: &zeroTimeout})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	badThreshold := 120
	_, err = svc.Update(ctx, UpdateInput{QualityPassThreshold: &badThreshold})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	badMode := enums.ReturnToConfirmationMode("whatever")
	_, err = svc.Update(ctx, UpdateInput{ReturnToConfirmationMode: &badMode})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	zeroAttempts := 0
	_, err = svc.Update(ctx, UpdateInput{MaxCallbackAttempts: &zeroAttempts})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}
