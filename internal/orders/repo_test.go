package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/craftworkhq/settlement-backend/pkg/db/models"
	"github.com/craftworkhq/settlement-backend/pkg/enums"
)

func setupOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	orders := `
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  buyer_id TEXT NOT NULL,
  seller_id TEXT NOT NULL,
  gig_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  type TEXT NOT NULL DEFAULT 'simple',
  base_cents INTEGER NOT NULL,
  platform_fee_cents INTEGER NOT NULL,
  vat_rate_bps INTEGER NOT NULL DEFAULT 0,
  vat_cents INTEGER NOT NULL DEFAULT 0,
  total_cents INTEGER NOT NULL,
  seller_earnings_cents INTEGER NOT NULL,
  currency TEXT NOT NULL DEFAULT 'EUR',
  reverse_charge_applied INTEGER NOT NULL DEFAULT 0,
  vat_fallback_applied INTEGER NOT NULL DEFAULT 0,
  buyer_country TEXT NOT NULL,
  buyer_vat_id TEXT,
  pricing_locked_at DATETIME,
  payment_ref TEXT NOT NULL,
  charge_ref TEXT,
  transfer_ref TEXT,
  refund_ref TEXT,
  escrow_status TEXT NOT NULL DEFAULT 'none',
  authorized_cents INTEGER NOT NULL DEFAULT 0,
  escrow_cents INTEGER NOT NULL DEFAULT 0,
  pending_release_cents INTEGER NOT NULL DEFAULT 0,
  released_cents INTEGER NOT NULL DEFAULT 0,
  version INTEGER NOT NULL DEFAULT 0,
  cancelled_at DATETIME,
  completed_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	orderEvents := `
CREATE TABLE IF NOT EXISTS order_events (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  from_status TEXT NOT NULL,
  to_status TEXT NOT NULL,
  actor TEXT NOT NULL,
  actor_id TEXT,
  reason TEXT,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(orders).Error)
	require.NoError(t, db.Exec(orderEvents).Error)
	return db
}

func testOrder() *models.Order {
	return &models.Order{
		ID:                  uuid.New(),
		BuyerID:             uuid.New(),
		SellerID:            uuid.New(),
		GigID:               uuid.New(),
		Status:              enums.OrderStatusPending,
		Type:                enums.OrderTypeSimple,
		BaseCents:           10000,
		PlatformFeeCents:    1000,
		VATRateBps:          2100,
		VATCents:            2310,
		TotalCents:          13310,
		SellerEarningsCents: 9000,
		Currency:            enums.CurrencyEUR,
		BuyerCountry:        "ES",
		PaymentRef:          "pay-ref-1",
	}
}

func TestRepositoryCreateAndFind(t *testing.T) {
	repo := NewRepository(setupOrdersTestDB(t))
	ctx := context.Background()

	created, err := repo.Create(ctx, testOrder())
	require.NoError(t, err)

	found, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
	assert.Equal(t, enums.OrderStatusPending, found.Status)
	assert.Equal(t, int64(13310), found.TotalCents)
	assert.Equal(t, int64(0), found.Version)

	_, err = repo.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepositoryUpdateVersioned(t *testing.T) {
	repo := NewRepository(setupOrdersTestDB(t))
	ctx := context.Background()

	order, err := repo.Create(ctx, testOrder())
	require.NoError(t, err)

	updated, err := repo.UpdateVersioned(ctx, order.ID, 0, map[string]any{
		"status":           enums.OrderStatusAccepted,
		"authorized_cents": int64(1331),
	})
	require.NoError(t, err)
	assert.True(t, updated)

	// A writer holding the stale version must lose.
	updated, err = repo.UpdateVersioned(ctx, order.ID, 0, map[string]any{
		"status": enums.OrderStatusStarted,
	})
	require.NoError(t, err)
	assert.False(t, updated)

	found, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusAccepted, found.Status)
	assert.Equal(t, int64(1331), found.AuthorizedCents)
	assert.Equal(t, int64(1), found.Version)
}

func TestRepositoryEventTimelineOrdering(t *testing.T) {
	repo := NewRepository(setupOrdersTestDB(t))
	ctx := context.Background()

	order, err := repo.Create(ctx, testOrder())
	require.NoError(t, err)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	transitions := []enums.OrderStatus{
		enums.OrderStatusAccepted,
		enums.OrderStatusStarted,
		enums.OrderStatusDelivered,
	}
	from := enums.OrderStatusPending
	for i, to := range transitions {
		require.NoError(t, repo.AppendEvent(ctx, &models.OrderEvent{
			ID:         uuid.New(),
			OrderID:    order.ID,
			FromStatus: from,
			ToStatus:   to,
			Actor:      enums.ActorTypeSeller,
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
		}))
		from = to
	}

	events, err := repo.ListEvents(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, enums.OrderStatusAccepted, events[0].ToStatus)
	assert.Equal(t, enums.OrderStatusDelivered, events[2].ToStatus)
}

func TestRepositoryFindStalledPending(t *testing.T) {
	repo := NewRepository(setupOrdersTestDB(t))
	ctx := context.Background()

	cutoff := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	stale := testOrder()
	stale.CreatedAt = cutoff.Add(-time.Hour)
	_, err := repo.Create(ctx, stale)
	require.NoError(t, err)

	fresh := testOrder()
	fresh.CreatedAt = cutoff.Add(time.Hour)
	_, err = repo.Create(ctx, fresh)
	require.NoError(t, err)

	accepted := testOrder()
	accepted.Status = enums.OrderStatusAccepted
	accepted.CreatedAt = cutoff.Add(-time.Hour)
	_, err = repo.Create(ctx, accepted)
	require.NoError(t, err)

	stalled, err := repo.FindStalledPending(ctx, cutoff)
	require.NoError(t, err)
	require.Len(t, stalled, 1)
	assert.Equal(t, stale.ID, stalled[0].ID)
}
