package orders

import (
	"context"
	"testing"

	"github.com/codtrack/fulfillment-engine/pkg/db/models"
	"github.com/codtrack/fulfillment-engine/pkg/enums"
	pkgerrors "github.com/codtrack/fulfillment-engine/pkg/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupOrdersTestDB(t *testing.T) *gorm.DB {
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
);`
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

func newTestService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(NewRepository(db), testTxRunner{db: db})
	require.NoError(t, err)
	return svc
}

func TestGrab_ClaimsFreeOrder(t *testing.T) {
	db := setupOrdersTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	order := seedOrder(t, db, nil)
	workerID := uuid.New()

	grabbed, err := svc.Grab(ctx, order.ID, workerID)
	require.NoError(t, err)
	require.NotNil(t, grabbed.GrabbedByUserID)
	assert.Equal(t, workerID, *grabbed.GrabbedByUserID)

	// grabbing again is idempotent for the owner
	again, err := svc.Grab(ctx, order.ID, workerID)
	require.NoError(t, err)
	assert.Equal(t, workerID, *again.GrabbedByUserID)
}

func TestGrab_LoserGetsConflict(t *testing.T) {
	db := setupOrdersTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	order := seedOrder(t, db, nil)
	winner := uuid.New()

	_, err := svc.Grab(ctx, order.ID, winner)
	require.NoError(t, err)

	_, err = svc.Grab(ctx, order.ID, uuid.New())
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeConflict))

	var reloaded models.Order
	require.NoError(t, db.Where("id = ?", order.ID).First(&reloaded).Error)
	assert.Equal(t, winner, *reloaded.GrabbedByUserID)
}

func TestGrab_GuardsOrderState(t *testing.T) {
	db := setupOrdersTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	terminal := seedOrder(t, db, func(o *models.Order) { o.State = enums.OrderStateReturned })
	_, err := svc.Grab(ctx, terminal.ID, uuid.New())
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict))

	_, err = svc.Grab(ctx, uuid.New(), uuid.New())
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

func TestReleaseGrab(t *testing.T) {
	db := setupOrdersTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	order := seedOrder(t, db, nil)
	workerID := uuid.New()

	_, err := svc.Grab(ctx, order.ID, workerID)
	require.NoError(t, err)

	// only the owner can release
	err = svc.ReleaseGrab(ctx, order.ID, uuid.New())
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict))

	require.NoError(t, svc.ReleaseGrab(ctx, order.ID, workerID))

	var reloaded models.Order
	require.NoError(t, db.Where("id = ?", order.ID).First(&reloaded).Error)
	assert.Nil(t, reloaded.GrabbedByUserID)

	// already released
	err = svc.ReleaseGrab(ctx, order.ID, workerID)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict))
}

func TestBulkGrab_PartialSuccess(t *testing.T) {
	db := setupOrdersTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	free := seedOrder(t, db, nil)
	other := uuid.New()
	taken := seedOrder(t, db, func(o *models.Order) { o.GrabbedByUserID = &other })
	workerID := uuid.New()

	result := svc.BulkGrab(ctx, []uuid.UUID{free.ID, taken.ID, uuid.New()}, workerID)

	assert.Equal(t, 3, result.TotalRequested)
	assert.Equal(t, 1, result.SuccessCount)
	assert.Equal(t, 2, result.FailedCount)
	require.Len(t, result.Errors, 2)
	assert.Equal(t, pkgerrors.CodeConflict, result.Errors[0].Code)
	assert.Equal(t, pkgerrors.CodeNotFound, result.Errors[1].Code)
}
