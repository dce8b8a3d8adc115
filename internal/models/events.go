package models

import "time"

// Event types
const (
	EventTypeOrderSubmitted   = "ORDER_SUBMITTED"
	EventTypeSessionCreated   = "PROCUREMENT_SESSION_CREATED"
	EventTypeOrderRelayed     = "ORDER_RELAYED"
	EventTypeCatalogRefreshed = "CATALOG_REFRESHED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderSubmittedEvent published when an order is durably persisted
type OrderSubmittedEvent struct {
	BaseEvent
	OrderID       string      `json:"order_id"`
	ShopID        string      `json:"shop_id"`
	ShopType      string      `json:"shop_type"`
	TotalItems    int         `json:"total_items"`
	TotalQuantity int         `json:"total_quantity"`
	Items         []OrderItem `json:"items"`
}

// OrderRelayedEvent published when an order went through the relay transport.
// DeliveryStatus distinguishes a confirmed ack from a presumed success so a
// reconciliation consumer can audit phantom deliveries later.
type OrderRelayedEvent struct {
	BaseEvent
	OrderID        string `json:"order_id"`
	ShopID         string `json:"shop_id"`
	DeliveryStatus string `json:"delivery_status"`
	ItemCount      int    `json:"item_count"`
}

// SessionCreatedEvent published when a procurement session closes out a batch
// of pending orders
type SessionCreatedEvent struct {
	BaseEvent
	SessionID       string     `json:"session_id"`
	OrdersProcessed int        `json:"orders_processed"`
	OrderRefs       []OrderRef `json:"order_refs"`
}
