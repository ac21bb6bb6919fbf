package workers

import (
	"context"
	"testing"

	"github.com/codtrack/fulfillment-engine/pkg/db/models"
	pkgerrors "github.com/codtrack/fulfillment-engine/pkg/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type testTxRunner struct {
	db *gorm.DB
}

func (r testTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()

	db := setupWorkersTestDB(t)
	svc, err := NewService(NewRepository(db), testTxRunner{db: db})
	require.NoError(t, err)
	return svc, db
}

func TestGetConfig_NotFound(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.GetConfig(context.Background(), uuid.New())
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

func TestUpdateConfig_CreatesOnFirstWrite(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()

	canConfirm := true
	maxConcurrent := 3
	cfg, err := svc.UpdateConfig(ctx, userID, UpdateConfigInput{
		CanDoConfirmation:        &canConfirm,
		MaxConcurrentAssignments: &maxConcurrent,
	})
	require.NoError(t, err)
	assert.Equal(t, userID, cfg.UserID)
	assert.True(t, cfg.CanDoConfirmation)
	assert.Equal(t, 3, cfg.MaxConcurrentAssignments)
	assert.False(t, cfg.IsOnline)
}

func TestUpdateConfig_PartialUpdate(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	w := seedWorker(t, db, func(c *models.WorkerServiceConfig) { c.AutoAssignPriority = 7 })

	canSuivi := true
	cfg, err := svc.UpdateConfig(ctx, w.UserID, UpdateConfigInput{CanDoSuivi: &canSuivi})
	require.NoError(t, err)
	assert.True(t, cfg.CanDoSuivi)
	assert.Equal(t, 7, cfg.AutoAssignPriority)
	assert.True(t, cfg.CanDoConfirmation)
}

func TestUpdateConfig_Validation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	zero := 0
	_, err := svc.UpdateConfig(ctx, uuid.New(), UpdateConfigInput{MaxConcurrentAssignments: &zero})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	negative := -1
	_, err = svc.UpdateConfig(ctx, uuid.New(), UpdateConfigInput{AutoAssignPriority: &negative})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

func TestSetOnline_TogglesFlag(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	w := seedWorker(t, db, func(c *models.WorkerServiceConfig) { c.IsOnline = false })

	cfg, err := svc.SetOnline(ctx, w.UserID, true)
	require.NoError(t, err)
	assert.True(t, cfg.IsOnline)

	cfg, err = svc.SetOnline(ctx, w.UserID, false)
	require.NoError(t, err)
	assert.False(t, cfg.IsOnline)
}

func TestSetOnline_UnknownWorker(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.SetOnline(context.Background(), uuid.New(), true)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}
