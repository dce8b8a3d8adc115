package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"storefront-service/internal/broker"
	"storefront-service/internal/models"
	"storefront-service/internal/redisclient"
	"storefront-service/internal/store"
	"storefront-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrNoPendingOrders is returned when a procurement run has nothing to claim.
var ErrNoPendingOrders = store.ErrNoPendingOrders

// ErrSessionInProgress is returned when another admin holds the procurement
// lock.
var ErrSessionInProgress = errors.New("a procurement session is already being created")

const (
	dashboardCacheKey = "dashboard"
	dashboardCacheTTL = 30 * time.Second

	sessionLockKey = "procurement-session"
	sessionLockTTL = 30 * time.Second

	recentOrdersLimit = 10
	topProductsLimit  = 5
	sessionsLimit     = 10

	dashboardWindow = 7 * 24 * time.Hour
)

// aggregationStore is the slice of the store the admin paths read and write.
type aggregationStore interface {
	GetShops(ctx context.Context) ([]models.Shop, error)
	GetShop(ctx context.Context, shopID string) (*models.Shop, error)
	GetPendingOrdersByShop(ctx context.Context, shopID string) ([]models.Order, error)
	GetOrder(ctx context.Context, shopID, orderID string) (*models.Order, error)
	GetOrdersInRange(ctx context.Context, start, end time.Time) ([]models.Order, error)
	SummarizePendingOrders(ctx context.Context, now time.Time) (*models.ProcurementSession, error)
	ListProcurementSessions(ctx context.Context, limit int) ([]models.ProcurementSession, error)
}

// snapshotCache is the slice of the Redis client the admin paths need.
type snapshotCache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) (bool, error)
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Invalidate(ctx context.Context, key string) error
	AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, lockKey string) error
}

// sessionEventPublisher publishes procurement-session events.
type sessionEventPublisher interface {
	PublishSessionCreated(ctx context.Context, event *models.SessionCreatedEvent) error
}

// AggregationService computes the admin dashboard and runs procurement
// sessions over pending orders.
type AggregationService struct {
	store          aggregationStore
	redis          snapshotCache
	eventPublisher sessionEventPublisher
	logger         *zap.Logger
	now            func() time.Time
}

// NewAggregationService creates a new aggregation service
func NewAggregationService(
	store *store.Store,
	redis *redisclient.Client,
	eventPublisher *broker.EventPublisher,
) *AggregationService {
	return &AggregationService{
		store:          store,
		redis:          redis,
		eventPublisher: eventPublisher,
		logger:         util.GetLogger(),
		now:            time.Now,
	}
}

// GetDashboardData aggregates pending orders across all shops. One shop's
// orders being unreadable drops only that shop's contribution; a failed shop
// enumeration degrades to a disconnected snapshot instead of an error so the
// dashboard never renders blank.
func (s *AggregationService) GetDashboardData(ctx context.Context) *models.DashboardSnapshot {
	ctx, span := util.StartSpan(ctx, "AggregationService.GetDashboardData")
	defer span.End()

	start := s.now()
	defer func() {
		util.DashboardLoadLatency.Observe(time.Since(start).Seconds())
	}()

	var cached models.DashboardSnapshot
	if hit, err := s.redis.GetJSON(ctx, dashboardCacheKey, &cached); err == nil && hit {
		return &cached
	}

	snapshot := &models.DashboardSnapshot{
		DateRange: models.DateRange{
			Start: s.now().Add(-dashboardWindow),
			End:   s.now(),
		},
		TopProducts:         []models.TopProduct{},
		RecentOrders:        []models.RecentOrder{},
		PendingOrderDetails: []models.Order{},
		ProcurementSessions: []models.ProcurementSession{},
		IsConnected:         true,
	}

	shops, err := s.store.GetShops(ctx)
	if err != nil {
		s.logger.Error("Dashboard shop enumeration failed", zap.Error(err))
		snapshot.IsConnected = false
		snapshot.Error = fmt.Sprintf("connection error: %v", err)
		return snapshot
	}

	partial := false
	for _, shop := range shops {
		switch shop.ShopType {
		case models.ShopTypeRegular:
			snapshot.RegularShops++
		case models.ShopTypePremium:
			snapshot.PremiumShops++
		}

		pending, err := s.store.GetPendingOrdersByShop(ctx, shop.ShopID)
		if err != nil {
			// Partial data beats total failure.
			s.logger.Warn("Skipping unreadable shop orders",
				zap.String("shop_id", shop.ShopID),
				zap.Error(err))
			partial = true
			continue
		}

		snapshot.PendingOrders += len(pending)
		snapshot.PendingOrderDetails = append(snapshot.PendingOrderDetails, pending...)
	}
	if partial {
		util.DashboardPartialLoads.Inc()
	}

	snapshot.TopProducts = rankTopProducts(snapshot.PendingOrderDetails, topProductsLimit)
	snapshot.RecentOrders = collectRecentOrders(snapshot.PendingOrderDetails, recentOrdersLimit)

	sessions, err := s.store.ListProcurementSessions(ctx, sessionsLimit)
	if err != nil {
		s.logger.Warn("Could not load procurement sessions", zap.Error(err))
	} else {
		snapshot.ProcurementSessions = sessions
	}

	// A degraded snapshot is not cached; the next load retries the skipped
	// shops instead of pinning the gap for the full TTL.
	if !partial {
		if err := s.redis.SetJSON(ctx, dashboardCacheKey, snapshot, dashboardCacheTTL); err != nil {
			s.logger.Warn("Failed to cache dashboard snapshot", zap.Error(err))
		}
	}

	return snapshot
}

// SessionResult summarizes a completed procurement run.
type SessionResult struct {
	SessionID       string            `json:"session_id"`
	OrdersProcessed int               `json:"orders_processed"`
	OrderRefs       []models.OrderRef `json:"order_refs"`
	ProcessedAt     time.Time         `json:"processed_at"`
}

// CreateProcurementSession claims every pending order across all shops and
// flips the whole batch to summarized atomically. A distributed lock keeps
// two admins from racing each other into overlapping sessions.
func (s *AggregationService) CreateProcurementSession(ctx context.Context) (*SessionResult, error) {
	ctx, span := util.StartSpan(ctx, "AggregationService.CreateProcurementSession")
	defer span.End()

	acquired, err := s.redis.AcquireLock(ctx, sessionLockKey, sessionLockTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire session lock: %w", err)
	}
	if !acquired {
		return nil, ErrSessionInProgress
	}
	defer func() {
		if err := s.redis.ReleaseLock(ctx, sessionLockKey); err != nil {
			s.logger.Warn("Failed to release session lock", zap.Error(err))
		}
	}()

	session, err := s.store.SummarizePendingOrders(ctx, s.now())
	if err != nil {
		if errors.Is(err, store.ErrNoPendingOrders) {
			return nil, ErrNoPendingOrders
		}
		return nil, fmt.Errorf("failed to create procurement session: %w", err)
	}

	util.ProcurementSessionsTotal.Inc()
	util.ProcurementOrdersSummarized.Add(float64(session.OrdersProcessed))
	s.logger.Info("Procurement session created",
		zap.String("session_id", session.SessionID),
		zap.Int("orders_processed", session.OrdersProcessed))

	if err := s.redis.Invalidate(ctx, dashboardCacheKey); err != nil {
		s.logger.Warn("Failed to invalidate dashboard cache", zap.Error(err))
	}

	event := &models.SessionCreatedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeSessionCreated,
			Timestamp: s.now(),
		},
		SessionID:       session.SessionID,
		OrdersProcessed: session.OrdersProcessed,
		OrderRefs:       session.OrderRefs,
	}
	if err := s.eventPublisher.PublishSessionCreated(ctx, event); err != nil {
		s.logger.Error("Failed to publish SessionCreated event", zap.Error(err))
	}

	return &SessionResult{
		SessionID:       session.SessionID,
		OrdersProcessed: session.OrdersProcessed,
		OrderRefs:       session.OrderRefs,
		ProcessedAt:     session.ProcessedAt,
	}, nil
}

// ListProcurementSessions retrieves the most recent sessions
func (s *AggregationService) ListProcurementSessions(ctx context.Context) ([]models.ProcurementSession, error) {
	return s.store.ListProcurementSessions(ctx, sessionsLimit)
}

// OrderDetails pairs an order with its owning shop for admin drill-down.
type OrderDetails struct {
	Order *models.Order `json:"order"`
	Shop  *models.Shop  `json:"shop"`
}

// GetOrderDetails retrieves one order and its owning shop
func (s *AggregationService) GetOrderDetails(ctx context.Context, shopID, orderID string) (*OrderDetails, error) {
	order, err := s.store.GetOrder(ctx, shopID, orderID)
	if err != nil {
		return nil, err
	}

	shop, err := s.store.GetShop(ctx, shopID)
	if err != nil {
		return nil, err
	}

	return &OrderDetails{Order: order, Shop: shop}, nil
}

// GetOrdersByShopType buckets all orders in the window into regular/premium
// for the admin drill-down view. Zero bounds disable the window.
func (s *AggregationService) GetOrdersByShopType(ctx context.Context, start, end time.Time) (*models.OrdersByShopType, error) {
	orders, err := s.store.GetOrdersInRange(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to load orders: %w", err)
	}

	result := &models.OrdersByShopType{
		Regular: []models.Order{},
		Premium: []models.Order{},
	}
	for _, order := range orders {
		switch order.Shop.ShopType {
		case models.ShopTypeRegular:
			result.Regular = append(result.Regular, order)
		case models.ShopTypePremium:
			result.Premium = append(result.Premium, order)
		}
		result.TotalOrders++
	}
	return result, nil
}

// rankTopProducts groups order items by product name, sums quantities and
// counts distinct contributing shops, then ranks by total quantity. The sort
// is stable: ties keep encounter order, which is acceptable for a top-N
// display with no defined secondary key.
func rankTopProducts(orders []models.Order, limit int) []models.TopProduct {
	type bucket struct {
		product models.TopProduct
		shops   map[string]struct{}
	}

	byName := make(map[string]*bucket)
	names := make([]string, 0)

	for _, order := range orders {
		for _, item := range order.Items {
			b, ok := byName[item.ProductName]
			if !ok {
				b = &bucket{
					product: models.TopProduct{Name: item.ProductName, Unit: item.Unit},
					shops:   make(map[string]struct{}),
				}
				byName[item.ProductName] = b
				names = append(names, item.ProductName)
			}
			b.product.TotalQuantity += item.Quantity
			b.product.OrderCount++
			b.shops[order.ShopID] = struct{}{}
		}
	}

	ranked := make([]models.TopProduct, 0, len(names))
	for _, name := range names {
		b := byName[name]
		b.product.Shops = len(b.shops)
		ranked = append(ranked, b.product)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].TotalQuantity > ranked[j].TotalQuantity
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// collectRecentOrders picks the most recently created orders, newest first.
func collectRecentOrders(orders []models.Order, limit int) []models.RecentOrder {
	sorted := make([]models.Order, len(orders))
	copy(sorted, orders)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})

	if len(sorted) > limit {
		sorted = sorted[:limit]
	}

	recent := make([]models.RecentOrder, 0, len(sorted))
	for _, order := range sorted {
		recent = append(recent, models.RecentOrder{
			OrderID:   order.OrderID,
			ShopID:    order.ShopID,
			ShopName:  order.Shop.ShopName,
			ShopType:  order.Shop.ShopType,
			ItemCount: order.Summary.TotalItems,
			CreatedAt: order.CreatedAt,
		})
	}
	return recent
}
