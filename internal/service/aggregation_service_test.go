package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"storefront-service/internal/models"
	"storefront-service/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAggStore struct {
	shops       []models.Shop
	pending     map[string][]models.Order
	pendingErrs map[string]error
}

func (f *fakeAggStore) GetShops(ctx context.Context) ([]models.Shop, error) {
	return f.shops, nil
}

func (f *fakeAggStore) GetShop(ctx context.Context, shopID string) (*models.Shop, error) {
	return nil, errors.New("shop not found: " + shopID)
}

func (f *fakeAggStore) GetPendingOrdersByShop(ctx context.Context, shopID string) ([]models.Order, error) {
	if err := f.pendingErrs[shopID]; err != nil {
		return nil, err
	}
	return f.pending[shopID], nil
}

func (f *fakeAggStore) GetOrder(ctx context.Context, shopID, orderID string) (*models.Order, error) {
	return nil, errors.New("order not found: " + orderID)
}

func (f *fakeAggStore) GetOrdersInRange(ctx context.Context, start, end time.Time) ([]models.Order, error) {
	return nil, nil
}

func (f *fakeAggStore) SummarizePendingOrders(ctx context.Context, now time.Time) (*models.ProcurementSession, error) {
	return nil, ErrNoPendingOrders
}

func (f *fakeAggStore) ListProcurementSessions(ctx context.Context, limit int) ([]models.ProcurementSession, error) {
	return nil, nil
}

type fakeSnapshotCache struct {
	setCalls int
}

func (f *fakeSnapshotCache) GetJSON(ctx context.Context, key string, dest interface{}) (bool, error) {
	return false, nil
}

func (f *fakeSnapshotCache) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	f.setCalls++
	return nil
}

func (f *fakeSnapshotCache) Invalidate(ctx context.Context, key string) error { return nil }

func (f *fakeSnapshotCache) AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (bool, error) {
	return true, nil
}

func (f *fakeSnapshotCache) ReleaseLock(ctx context.Context, lockKey string) error { return nil }

func pendingOrder(orderID, shopID string, createdAt time.Time, items ...models.OrderItem) models.Order {
	summary := models.OrderSummary{TotalItems: len(items)}
	for _, item := range items {
		summary.TotalQuantity += item.Quantity
	}
	return models.Order{
		OrderID:   orderID,
		ShopID:    shopID,
		Shop:      models.ShopSnapshot{ShopName: "Shop " + shopID, ShopType: models.ShopTypeRegular},
		Items:     items,
		Summary:   summary,
		Status:    models.OrderStatusPending,
		CreatedAt: createdAt,
	}
}

func TestRankTopProducts(t *testing.T) {
	now := time.Now()
	orders := []models.Order{
		pendingOrder("ORD-1", "REG001", now,
			models.OrderItem{ProductName: "Carrot", Quantity: 10},
			models.OrderItem{ProductName: "Fish", Quantity: 2}),
		pendingOrder("ORD-2", "REG002", now,
			models.OrderItem{ProductName: "Carrot", Quantity: 5},
			models.OrderItem{ProductName: "Onion", Quantity: 8}),
		pendingOrder("ORD-3", "REG001", now,
			models.OrderItem{ProductName: "Carrot", Quantity: 1}),
	}

	ranked := rankTopProducts(orders, 5)

	require.Len(t, ranked, 3)
	assert.Equal(t, "Carrot", ranked[0].Name)
	assert.Equal(t, 16, ranked[0].TotalQuantity)
	assert.Equal(t, 2, ranked[0].Shops)
	assert.Equal(t, 3, ranked[0].OrderCount)

	assert.Equal(t, "Onion", ranked[1].Name)
	assert.Equal(t, 8, ranked[1].TotalQuantity)
	assert.Equal(t, 1, ranked[1].Shops)

	assert.Equal(t, "Fish", ranked[2].Name)
}

func TestRankTopProductsLimit(t *testing.T) {
	now := time.Now()
	order := pendingOrder("ORD-1", "REG001", now,
		models.OrderItem{ProductName: "A", Quantity: 7},
		models.OrderItem{ProductName: "B", Quantity: 6},
		models.OrderItem{ProductName: "C", Quantity: 5},
		models.OrderItem{ProductName: "D", Quantity: 4},
		models.OrderItem{ProductName: "E", Quantity: 3},
		models.OrderItem{ProductName: "F", Quantity: 2},
	)

	ranked := rankTopProducts([]models.Order{order}, 5)

	require.Len(t, ranked, 5)
	assert.Equal(t, "A", ranked[0].Name)
	assert.Equal(t, "E", ranked[4].Name)
}

func TestRankTopProductsStableTies(t *testing.T) {
	now := time.Now()
	order := pendingOrder("ORD-1", "REG001", now,
		models.OrderItem{ProductName: "First", Quantity: 5},
		models.OrderItem{ProductName: "Second", Quantity: 5},
	)

	ranked := rankTopProducts([]models.Order{order}, 5)

	// Equal totals keep encounter order.
	require.Len(t, ranked, 2)
	assert.Equal(t, "First", ranked[0].Name)
	assert.Equal(t, "Second", ranked[1].Name)
}

func TestGetDashboardDataSkipsCacheWhenDegraded(t *testing.T) {
	now := time.Now()
	st := &fakeAggStore{
		shops: []models.Shop{
			{ShopID: "REG001", ShopType: models.ShopTypeRegular},
			{ShopID: "PRM002", ShopType: models.ShopTypePremium},
		},
		pending: map[string][]models.Order{
			"REG001": {pendingOrder("ORD-1", "REG001", now,
				models.OrderItem{ProductName: "Carrot", Quantity: 3})},
		},
		pendingErrs: map[string]error{"PRM002": errors.New("read failed")},
	}
	cache := &fakeSnapshotCache{}
	s := &AggregationService{store: st, redis: cache, logger: util.GetLogger(), now: time.Now}

	snapshot := s.GetDashboardData(context.Background())

	assert.True(t, snapshot.IsConnected)
	assert.Equal(t, 1, snapshot.PendingOrders, "readable shop still counted")
	assert.Equal(t, 1, snapshot.RegularShops)
	assert.Equal(t, 1, snapshot.PremiumShops)
	assert.Zero(t, cache.setCalls, "a degraded snapshot is not cached")
}

func TestGetDashboardDataCachesCompleteSnapshot(t *testing.T) {
	now := time.Now()
	st := &fakeAggStore{
		shops: []models.Shop{{ShopID: "REG001", ShopType: models.ShopTypeRegular}},
		pending: map[string][]models.Order{
			"REG001": {pendingOrder("ORD-1", "REG001", now,
				models.OrderItem{ProductName: "Carrot", Quantity: 3})},
		},
	}
	cache := &fakeSnapshotCache{}
	s := &AggregationService{store: st, redis: cache, logger: util.GetLogger(), now: time.Now}

	snapshot := s.GetDashboardData(context.Background())

	assert.True(t, snapshot.IsConnected)
	assert.Equal(t, 1, cache.setCalls)
}

func TestCollectRecentOrders(t *testing.T) {
	base := time.Date(2025, 8, 25, 10, 0, 0, 0, time.UTC)

	orders := make([]models.Order, 0, 12)
	for i := 0; i < 12; i++ {
		orders = append(orders, pendingOrder(
			"ORD-"+string(rune('A'+i)), "REG001",
			base.Add(time.Duration(i)*time.Minute),
			models.OrderItem{ProductName: "Carrot", Quantity: 1},
		))
	}

	recent := collectRecentOrders(orders, 10)

	require.Len(t, recent, 10)
	// Newest first.
	assert.Equal(t, "ORD-L", recent[0].OrderID)
	assert.Equal(t, "ORD-C", recent[9].OrderID)
	for i := 1; i < len(recent); i++ {
		assert.False(t, recent[i].CreatedAt.After(recent[i-1].CreatedAt))
	}
}
