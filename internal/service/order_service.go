package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"storefront-service/internal/broker"
	"storefront-service/internal/identity"
	"storefront-service/internal/models"
	"storefront-service/internal/redisclient"
	"storefront-service/internal/relay"
	"storefront-service/internal/store"
	"storefront-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Validation errors. Rejected before any write happens.
var (
	ErrEmptyCart       = errors.New("cart has no items with positive quantity")
	ErrMissingShopType = errors.New("shop type is required")
)

const idempotencyTTL = 24 * time.Hour

// idempotencyStore is the slice of the Redis client the submission path needs.
type idempotencyStore interface {
	SetIdempotencyKey(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	GetIdempotencyValue(ctx context.Context, key string) (string, error)
}

// orderEventPublisher publishes the submission path's domain events.
type orderEventPublisher interface {
	PublishOrderSubmitted(ctx context.Context, event *models.OrderSubmittedEvent) error
	PublishOrderRelayed(ctx context.Context, event *models.OrderRelayedEvent) error
}

// OrderService handles the order submission write path
type OrderService struct {
	store          *store.Store
	redis          idempotencyStore
	eventPublisher orderEventPublisher
	relayClient    relay.Submitter
	logger         *zap.Logger

	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

// NewOrderService creates a new order service. relayClient may be nil when no
// relay endpoint is configured; the service then has no fallback transport.
func NewOrderService(
	store *store.Store,
	redis *redisclient.Client,
	eventPublisher *broker.EventPublisher,
	relayClient relay.Submitter,
) *OrderService {
	return &OrderService{
		store:          store,
		redis:          redis,
		eventPublisher: eventPublisher,
		relayClient:    relayClient,
		logger:         util.GetLogger(),
		rng:            rand.New(rand.NewSource(time.Now().UnixNano())),
		now:            time.Now,
	}
}

// SubmitOrderRequest carries a cart snapshot plus the shop identity fields
// the ID derivation needs.
type SubmitOrderRequest struct {
	Cart           map[string]int `json:"cart" binding:"required"`
	ShopType       string         `json:"shop_type"`
	StoreName      string         `json:"store_name" binding:"required"`
	BranchName     string         `json:"branch_name"`
	UserEmail      string         `json:"user_email" binding:"required,email"`
	IdempotencyKey string         `json:"idempotency_key,omitempty"`
}

// OrderResult is returned on a successful submission. DeliveryStatus is
// "confirmed" on the direct store path; the relay fallback may only reach
// "presumed_success".
type OrderResult struct {
	OrderID        string    `json:"order_id"`
	ShopID         string    `json:"shop_id"`
	ItemCount      int       `json:"item_count"`
	TotalQuantity  int       `json:"total_quantity"`
	Timestamp      time.Time `json:"timestamp"`
	DeliveryStatus string    `json:"delivery_status"`
}

// SubmitOrder validates the cart, derives the shop identity, and persists the
// order with its shop upsert and stats bump as one atomic unit. Validation
// failures abort before any write; a store failure falls back to the relay
// transport when one is configured.
func (s *OrderService) SubmitOrder(ctx context.Context, req *SubmitOrderRequest) (*OrderResult, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.SubmitOrder")
	defer span.End()

	start := s.now()
	defer func() {
		util.OrderSubmitLatency.Observe(time.Since(start).Seconds())
	}()

	items := buildOrderItems(req.Cart)
	if len(items) == 0 {
		util.OrdersRejectedTotal.WithLabelValues("empty_cart").Inc()
		return nil, ErrEmptyCart
	}
	if req.ShopType == "" {
		util.OrdersRejectedTotal.WithLabelValues("missing_shop_type").Inc()
		return nil, ErrMissingShopType
	}

	if req.IdempotencyKey != "" {
		if result, err := s.replayIdempotent(ctx, req.IdempotencyKey); err == nil && result != nil {
			return result, nil
		}
	}

	s.mu.Lock()
	orderID := identity.NewOrderID(s.now(), s.rng)
	s.mu.Unlock()
	shopID := identity.ResolveShopID(req.ShopType, req.StoreName, req.UserEmail)

	s.enrichItems(ctx, items)

	order := &models.Order{
		OrderID: orderID,
		ShopID:  shopID,
		Shop: models.ShopSnapshot{
			ShopName:   req.StoreName,
			ShopType:   req.ShopType,
			BranchName: req.BranchName,
		},
		Items:       items,
		Summary:     computeSummary(items),
		Status:      models.OrderStatusPending,
		SubmittedBy: shopID,
	}

	shop := &models.Shop{
		ShopID:       shopID,
		ShopType:     req.ShopType,
		ShopName:     req.StoreName,
		BranchName:   req.BranchName,
		ContactEmail: req.UserEmail,
	}

	if err := s.store.SubmitOrderTx(ctx, shop, order); err != nil {
		if s.relayClient != nil {
			s.logger.Warn("Store write failed, falling back to relay",
				zap.String("order_id", orderID),
				zap.Error(err))
			return s.submitViaRelay(ctx, req, order)
		}
		util.OrdersRejectedTotal.WithLabelValues("store_error").Inc()
		return nil, fmt.Errorf("failed to submit order: %w", err)
	}

	util.OrdersSubmittedTotal.WithLabelValues(req.ShopType).Inc()
	s.logger.Info("Order submitted",
		zap.String("order_id", orderID),
		zap.String("shop_id", shopID),
		zap.Int("total_quantity", order.Summary.TotalQuantity))

	result := &OrderResult{
		OrderID:        orderID,
		ShopID:         shopID,
		ItemCount:      order.Summary.TotalItems,
		TotalQuantity:  order.Summary.TotalQuantity,
		Timestamp:      s.now(),
		DeliveryStatus: string(relay.DeliveryConfirmed),
	}

	if req.IdempotencyKey != "" {
		s.recordIdempotent(ctx, req.IdempotencyKey, result)
	}

	event := &models.OrderSubmittedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderSubmitted,
			Timestamp: s.now(),
		},
		OrderID:       orderID,
		ShopID:        shopID,
		ShopType:      req.ShopType,
		TotalItems:    order.Summary.TotalItems,
		TotalQuantity: order.Summary.TotalQuantity,
		Items:         order.Items,
	}
	if err := s.eventPublisher.PublishOrderSubmitted(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderSubmitted event", zap.Error(err))
	}

	return result, nil
}

// submitViaRelay pushes the order through the relay transport. The result's
// delivery status must be surfaced to the caller as-is: presumed success is
// not a confirmation.
func (s *OrderService) submitViaRelay(ctx context.Context, req *SubmitOrderRequest, order *models.Order) (*OrderResult, error) {
	delivery, err := s.relayClient.Submit(ctx, &relay.Payload{
		Cart:       req.Cart,
		ShopType:   req.ShopType,
		StoreName:  req.StoreName,
		BranchName: req.BranchName,
		UserEmail:  req.UserEmail,
		Timestamp:  s.now(),
	})
	if err != nil {
		util.OrdersRejectedTotal.WithLabelValues("relay_error").Inc()
		return nil, fmt.Errorf("relay submission failed: %w", err)
	}

	orderID := delivery.OrderID
	if orderID == "" {
		orderID = order.OrderID
	}
	shopID := delivery.ShopID
	if shopID == "" {
		shopID = order.ShopID
	}

	event := &models.OrderRelayedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderRelayed,
			Timestamp: s.now(),
		},
		OrderID:        orderID,
		ShopID:         shopID,
		DeliveryStatus: string(delivery.Status),
		ItemCount:      order.Summary.TotalItems,
	}
	if err := s.eventPublisher.PublishOrderRelayed(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderRelayed event", zap.Error(err))
	}

	util.OrdersSubmittedTotal.WithLabelValues(req.ShopType).Inc()
	result := &OrderResult{
		OrderID:        orderID,
		ShopID:         shopID,
		ItemCount:      order.Summary.TotalItems,
		TotalQuantity:  order.Summary.TotalQuantity,
		Timestamp:      s.now(),
		DeliveryStatus: string(delivery.Status),
	}

	// Record the key on this path too: a client retrying after a presumed
	// success must replay the stored result, not post the order again.
	if req.IdempotencyKey != "" {
		s.recordIdempotent(ctx, req.IdempotencyKey, result)
	}

	return result, nil
}

// enrichItems fills productID/unit/category from the catalog where the
// product name resolves. Best effort: the catalog being unreachable never
// blocks a submission.
func (s *OrderService) enrichItems(ctx context.Context, items []models.OrderItem) {
	names := make([]string, len(items))
	for i, item := range items {
		names[i] = item.ProductName
	}

	products, err := s.store.GetProductsByNames(ctx, names)
	if err != nil {
		s.logger.Warn("Could not enrich order items from catalog", zap.Error(err))
		return
	}

	for i := range items {
		if p, ok := products[items[i].ProductName]; ok {
			items[i].ProductID = p.ProductID
			items[i].Unit = p.Unit
			items[i].Category = p.MainCategory
		}
	}
}

func (s *OrderService) replayIdempotent(ctx context.Context, key string) (*OrderResult, error) {
	stored, err := s.redis.GetIdempotencyValue(ctx, key)
	if err != nil || stored == "" {
		return nil, err
	}

	var result OrderResult
	if err := json.Unmarshal([]byte(stored), &result); err != nil {
		return nil, err
	}

	s.logger.Info("Duplicate submission replayed from idempotency key",
		zap.String("order_id", result.OrderID))
	return &result, nil
}

func (s *OrderService) recordIdempotent(ctx context.Context, key string, result *OrderResult) {
	data, err := json.Marshal(result)
	if err != nil {
		return
	}
	if _, err := s.redis.SetIdempotencyKey(ctx, key, string(data), idempotencyTTL); err != nil {
		s.logger.Warn("Failed to record idempotency key", zap.Error(err))
	}
}

// GetOrder retrieves one order with its items
func (s *OrderService) GetOrder(ctx context.Context, shopID, orderID string) (*models.Order, error) {
	return s.store.GetOrder(ctx, shopID, orderID)
}

// GetShopOrders retrieves a shop's recent orders, newest first
func (s *OrderService) GetShopOrders(ctx context.Context, shopID string, limit int) ([]models.Order, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.store.GetShopOrders(ctx, shopID, limit)
}

// buildOrderItems converts a cart snapshot into order items, dropping every
// entry without a positive quantity. Items are sorted by product name so the
// persisted order is independent of map iteration order.
func buildOrderItems(cart map[string]int) []models.OrderItem {
	items := make([]models.OrderItem, 0, len(cart))
	for name, qty := range cart {
		if name == "" || qty <= 0 {
			continue
		}
		items = append(items, models.OrderItem{ProductName: name, Quantity: qty})
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].ProductName < items[j].ProductName
	})
	return items
}

// computeSummary recomputes totals from the items; client-supplied counts are
// never trusted.
func computeSummary(items []models.OrderItem) models.OrderSummary {
	summary := models.OrderSummary{TotalItems: len(items)}
	for _, item := range items {
		summary.TotalQuantity += item.Quantity
	}
	return summary
}
