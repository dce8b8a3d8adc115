package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"storefront-service/internal/models"
	"storefront-service/internal/relay"
	"storefront-service/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIdempotencyStore struct {
	values map[string]string
}

func (f *fakeIdempotencyStore) SetIdempotencyKey(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	if f.values == nil {
		f.values = make(map[string]string)
	}
	if _, ok := f.values[key]; ok {
		return false, nil
	}
	f.values[key] = value
	return true, nil
}

func (f *fakeIdempotencyStore) GetIdempotencyValue(ctx context.Context, key string) (string, error) {
	return f.values[key], nil
}

type fakeOrderPublisher struct {
	relayed []*models.OrderRelayedEvent
}

func (f *fakeOrderPublisher) PublishOrderSubmitted(ctx context.Context, event *models.OrderSubmittedEvent) error {
	return nil
}

func (f *fakeOrderPublisher) PublishOrderRelayed(ctx context.Context, event *models.OrderRelayedEvent) error {
	f.relayed = append(f.relayed, event)
	return nil
}

type fakeSubmitter struct {
	delivery *relay.Delivery
}

func (f fakeSubmitter) Submit(ctx context.Context, payload *relay.Payload) (*relay.Delivery, error) {
	return f.delivery, nil
}

func TestBuildOrderItemsDropsNonPositive(t *testing.T) {
	cart := map[string]int{
		"Carrot": 3,
		"Onion":  0,
		"Fish":   2,
		"Tofu":   -1,
	}

	items := buildOrderItems(cart)

	require.Len(t, items, 2)
	assert.Equal(t, "Carrot", items[0].ProductName)
	assert.Equal(t, 3, items[0].Quantity)
	assert.Equal(t, "Fish", items[1].ProductName)
	assert.Equal(t, 2, items[1].Quantity)
}

func TestBuildOrderItemsEmptyCart(t *testing.T) {
	assert.Empty(t, buildOrderItems(nil))
	assert.Empty(t, buildOrderItems(map[string]int{}))
	assert.Empty(t, buildOrderItems(map[string]int{"Onion": 0, "Fish": -3}))
}

func TestComputeSummary(t *testing.T) {
	items := []models.OrderItem{
		{ProductName: "Carrot", Quantity: 3},
		{ProductName: "Fish", Quantity: 2},
	}

	summary := computeSummary(items)

	assert.Equal(t, 2, summary.TotalItems)
	assert.Equal(t, 5, summary.TotalQuantity)
}

func TestSubmitOrderEmptyCart(t *testing.T) {
	s := &OrderService{now: time.Now}

	_, err := s.SubmitOrder(context.Background(), &SubmitOrderRequest{
		Cart:      map[string]int{"Onion": 0},
		ShopType:  "regular",
		StoreName: "Test Shop",
		UserEmail: "t@example.com",
	})

	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestSubmitViaRelayRecordsIdempotencyKey(t *testing.T) {
	redis := &fakeIdempotencyStore{}
	publisher := &fakeOrderPublisher{}
	s := &OrderService{
		redis:          redis,
		eventPublisher: publisher,
		relayClient:    fakeSubmitter{delivery: &relay.Delivery{Status: relay.DeliveryPresumed}},
		logger:         util.GetLogger(),
		now:            time.Now,
	}

	req := &SubmitOrderRequest{
		Cart:           map[string]int{"Carrot": 3},
		ShopType:       "regular",
		StoreName:      "Test Shop",
		UserEmail:      "t@example.com",
		IdempotencyKey: "key-1",
	}
	order := &models.Order{
		OrderID: "ORD-20260901120000-042",
		ShopID:  "REG123",
		Summary: models.OrderSummary{TotalItems: 1, TotalQuantity: 3},
	}

	result, err := s.submitViaRelay(context.Background(), req, order)
	require.NoError(t, err)
	assert.Equal(t, string(relay.DeliveryPresumed), result.DeliveryStatus)
	require.Len(t, publisher.relayed, 1)

	// A retry with the same key must replay this result, presumed or not,
	// instead of posting the order a second time.
	stored, ok := redis.values["key-1"]
	require.True(t, ok)
	var replayed OrderResult
	require.NoError(t, json.Unmarshal([]byte(stored), &replayed))
	assert.Equal(t, "ORD-20260901120000-042", replayed.OrderID)
	assert.Equal(t, string(relay.DeliveryPresumed), replayed.DeliveryStatus)
}

func TestSubmitOrderMissingShopType(t *testing.T) {
	s := &OrderService{now: time.Now}

	_, err := s.SubmitOrder(context.Background(), &SubmitOrderRequest{
		Cart:      map[string]int{"Carrot": 3},
		StoreName: "Test Shop",
		UserEmail: "t@example.com",
	})

	assert.ErrorIs(t, err, ErrMissingShopType)
}
