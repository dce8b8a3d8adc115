package models

import "time"

// Shop types
const (
	ShopTypeRegular = "regular"
	ShopTypePremium = "premium"
	ShopTypeAdmin   = "admin"
)

// Order statuses. Transitions only move forward: a pending order is claimed
// by a procurement session (summarized) and later fulfilled externally
// (completed). Nothing skips or reverses a state.
const (
	OrderStatusPending    = "pending"
	OrderStatusSummarized = "summarized"
	OrderStatusCompleted  = "completed"
)

// Product is a catalog entry. The storefront never writes products; they are
// owned by the external catalog tool. ProductID is optional enrichment on the
// spreadsheet path and only authoritative on the database path.
type Product struct {
	ProductID    string `db:"product_id" json:"product_id,omitempty"`
	Name         string `db:"name" json:"name"`
	Unit         string `db:"unit" json:"unit"`
	ImageURL     string `db:"image_url" json:"image_url,omitempty"`
	MainCategory string `db:"main_category" json:"main_category"`
	SubCategory  string `db:"sub_category" json:"sub_category,omitempty"`
	IsActive     bool   `db:"is_active" json:"is_active"`
	SortOrder    int    `db:"sort_order" json:"sort_order"`
}

// ShopStats are aggregate counters maintained by the submission path and the
// stats worker. TotalOrders is only ever bumped with a server-side increment.
type ShopStats struct {
	TotalOrders      int        `db:"total_orders" json:"total_orders"`
	LastOrderDate    *time.Time `db:"last_order_date" json:"last_order_date,omitempty"`
	AverageOrderSize float64    `db:"average_order_size" json:"average_order_size"`
}

// Shop is a tenant. Created on first submission from a derived identity,
// never deleted here.
type Shop struct {
	ShopID       string    `db:"shop_id" json:"shop_id"`
	ShopType     string    `db:"shop_type" json:"shop_type"`
	ShopName     string    `db:"shop_name" json:"shop_name"`
	BranchName   string    `db:"branch_name" json:"branch_name"`
	ContactEmail string    `db:"contact_email" json:"contact_email"`
	IsActive     bool      `db:"is_active" json:"is_active"`
	Stats        ShopStats `json:"stats"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// OrderItem is one line of an order. Quantity is always positive by the time
// an item is persisted; zero-quantity cart entries never reach the store.
type OrderItem struct {
	ID          int64  `db:"id" json:"-"`
	OrderID     string `db:"order_id" json:"-"`
	ProductName string `db:"product_name" json:"product_name"`
	Quantity    int    `db:"quantity" json:"quantity"`
	ProductID   string `db:"product_id" json:"product_id,omitempty"`
	Unit        string `db:"unit" json:"unit,omitempty"`
	Category    string `db:"category" json:"category,omitempty"`
}

// OrderSummary is recomputed server-side from the items, never trusted from
// client input.
type OrderSummary struct {
	TotalItems    int `db:"total_items" json:"total_items"`
	TotalQuantity int `db:"total_quantity" json:"total_quantity"`
}

// ShopSnapshot captures the shop's display fields at submission time so the
// order stays readable even if the shop record changes later.
type ShopSnapshot struct {
	ShopName   string `db:"shop_name" json:"shop_name"`
	ShopType   string `db:"shop_type" json:"shop_type"`
	BranchName string `db:"branch_name" json:"branch_name"`
}

// Order is a durable, shop-scoped purchase request. Immutable after creation
// except for Status and SessionID, which only the procurement batch touches.
type Order struct {
	OrderID     string       `db:"order_id" json:"order_id"`
	ShopID      string       `db:"shop_id" json:"shop_id"`
	Shop        ShopSnapshot `json:"shop"`
	Items       []OrderItem  `json:"items"`
	Summary     OrderSummary `json:"summary"`
	Status      string       `db:"status" json:"status"`
	SessionID   *string      `db:"session_id" json:"session_id,omitempty"`
	SubmittedBy string       `db:"submitted_by" json:"submitted_by"`
	CreatedAt   time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time    `db:"updated_at" json:"updated_at"`
}

// OrderRef locates an order inside the shop hierarchy.
type OrderRef struct {
	ShopID  string `db:"shop_id" json:"shop_id"`
	OrderID string `db:"order_id" json:"order_id"`
}

// ProcurementSession records one aggregation run. Write-once.
type ProcurementSession struct {
	SessionID       string     `db:"session_id" json:"session_id"`
	OrdersProcessed int        `db:"orders_processed" json:"orders_processed"`
	Status          string     `db:"status" json:"status"`
	ProcessedAt     time.Time  `db:"processed_at" json:"processed_at"`
	OrderRefs       []OrderRef `json:"order_refs,omitempty"`
}

// TopProduct is one row of the dashboard's product ranking.
type TopProduct struct {
	Name          string `json:"name"`
	Unit          string `json:"unit,omitempty"`
	TotalQuantity int    `json:"total_quantity"`
	OrderCount    int    `json:"order_count"`
	Shops         int    `json:"shops"`
}

// RecentOrder is a dashboard row for the latest submissions.
type RecentOrder struct {
	OrderID   string    `json:"order_id"`
	ShopID    string    `json:"shop_id"`
	ShopName  string    `json:"shop_name"`
	ShopType  string    `json:"shop_type"`
	ItemCount int       `json:"item_count"`
	CreatedAt time.Time `json:"created_at"`
}

// DateRange bounds the dashboard's reporting window.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// DashboardSnapshot is the aggregated admin view. A failed enumeration yields
// IsConnected=false with Error set; a single unreadable shop only drops that
// shop's contribution.
type DashboardSnapshot struct {
	PendingOrders       int                  `json:"pending_orders"`
	RegularShops        int                  `json:"regular_shops"`
	PremiumShops        int                  `json:"premium_shops"`
	DateRange           DateRange            `json:"date_range"`
	TopProducts         []TopProduct         `json:"top_products"`
	RecentOrders        []RecentOrder        `json:"recent_orders"`
	PendingOrderDetails []Order              `json:"pending_order_details"`
	ProcurementSessions []ProcurementSession `json:"procurement_sessions"`
	IsConnected         bool                 `json:"is_connected"`
	Error               string               `json:"error,omitempty"`
}

// OrdersByShopType buckets orders for the admin drill-down view.
type OrdersByShopType struct {
	Regular     []Order `json:"regular"`
	Premium     []Order `json:"premium"`
	TotalOrders int     `json:"total_orders"`
}
