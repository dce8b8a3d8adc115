package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"storefront-service/internal/models"

	"github.com/jmoiron/sqlx"
)

// orderRow is the flat scan target for the orders table.
type orderRow struct {
	OrderID       string    `db:"order_id"`
	ShopID        string    `db:"shop_id"`
	ShopName      string    `db:"shop_name"`
	ShopType      string    `db:"shop_type"`
	BranchName    string    `db:"branch_name"`
	TotalItems    int       `db:"total_items"`
	TotalQuantity int       `db:"total_quantity"`
	Status        string    `db:"status"`
	SessionID     *string   `db:"session_id"`
	SubmittedBy   string    `db:"submitted_by"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

func (r orderRow) toModel() models.Order {
	return models.Order{
		OrderID: r.OrderID,
		ShopID:  r.ShopID,
		Shop: models.ShopSnapshot{
			ShopName:   r.ShopName,
			ShopType:   r.ShopType,
			BranchName: r.BranchName,
		},
		Summary: models.OrderSummary{
			TotalItems:    r.TotalItems,
			TotalQuantity: r.TotalQuantity,
		},
		Status:      r.Status,
		SessionID:   r.SessionID,
		SubmittedBy: r.SubmittedBy,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

// SubmitOrderTx persists an order under its owning shop as one transaction:
// shop upsert (merge: existing fields untouched), order insert, item inserts,
// and a server-side stats increment. Either all of it commits or none of it
// does; concurrent submissions never observe partial state.
func (s *Store) SubmitOrderTx(ctx context.Context, shop *models.Shop, order *models.Order) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO shops (shop_id, shop_type, shop_name, branch_name, contact_email, is_active)
		VALUES ($1, $2, $3, $4, $5, TRUE)
		ON CONFLICT (shop_id) DO NOTHING`,
		shop.ShopID, shop.ShopType, shop.ShopName, shop.BranchName, shop.ContactEmail)
	if err != nil {
		return fmt.Errorf("failed to upsert shop: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (order_id, shop_id, shop_name, shop_type, branch_name,
			total_items, total_quantity, status, submitted_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		order.OrderID, order.ShopID, order.Shop.ShopName, order.Shop.ShopType,
		order.Shop.BranchName, order.Summary.TotalItems, order.Summary.TotalQuantity,
		order.Status, order.SubmittedBy)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	for i := range order.Items {
		item := &order.Items[i]
		err = tx.GetContext(ctx, &item.ID, `
			INSERT INTO order_items (order_id, product_name, quantity, product_id, unit, category)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id`,
			order.OrderID, item.ProductName, item.Quantity, item.ProductID, item.Unit, item.Category)
		if err != nil {
			return fmt.Errorf("failed to insert order item: %w", err)
		}
	}

	// Atomic increment on the server side; a read-modify-write from the
	// client would lose updates when two submissions from one shop race.
	_, err = tx.ExecContext(ctx, `
		UPDATE shops SET
			total_orders = total_orders + 1,
			last_order_date = NOW(),
			updated_at = NOW()
		WHERE shop_id = $1`, shop.ShopID)
	if err != nil {
		return fmt.Errorf("failed to update shop stats: %w", err)
	}

	return tx.Commit()
}

// GetOrder retrieves a single order with its items
func (s *Store) GetOrder(ctx context.Context, shopID, orderID string) (*models.Order, error) {
	var row orderRow
	err := s.db.GetContext(ctx, &row,
		"SELECT * FROM orders WHERE shop_id = $1 AND order_id = $2", shopID, orderID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("order not found: %s", orderID)
	}
	if err != nil {
		return nil, err
	}

	order := row.toModel()
	items, err := s.getItemsForOrders(ctx, []string{orderID})
	if err != nil {
		return nil, err
	}
	order.Items = items[orderID]
	return &order, nil
}

// GetShopOrders retrieves a shop's most recent orders, newest first
func (s *Store) GetShopOrders(ctx context.Context, shopID string, limit int) ([]models.Order, error) {
	var rows []orderRow
	err := s.db.SelectContext(ctx, &rows,
		"SELECT * FROM orders WHERE shop_id = $1 ORDER BY created_at DESC LIMIT $2",
		shopID, limit)
	if err != nil {
		return nil, err
	}
	return s.attachItems(ctx, rows)
}

// GetPendingOrdersByShop retrieves one shop's pending orders with items
func (s *Store) GetPendingOrdersByShop(ctx context.Context, shopID string) ([]models.Order, error) {
	var rows []orderRow
	err := s.db.SelectContext(ctx, &rows,
		"SELECT * FROM orders WHERE shop_id = $1 AND status = $2 ORDER BY created_at DESC",
		shopID, models.OrderStatusPending)
	if err != nil {
		return nil, err
	}
	return s.attachItems(ctx, rows)
}

// GetOrdersInRange retrieves all orders across shops, newest first, bounded
// by an optional creation-time window. Zero times disable the bound.
func (s *Store) GetOrdersInRange(ctx context.Context, start, end time.Time) ([]models.Order, error) {
	query := "SELECT * FROM orders WHERE 1=1"
	args := []interface{}{}
	if !start.IsZero() {
		args = append(args, start)
		query += fmt.Sprintf(" AND created_at >= $%d", len(args))
	}
	if !end.IsZero() {
		args = append(args, end)
		query += fmt.Sprintf(" AND created_at <= $%d", len(args))
	}
	query += " ORDER BY created_at DESC"

	var rows []orderRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	return s.attachItems(ctx, rows)
}

func (s *Store) attachItems(ctx context.Context, rows []orderRow) ([]models.Order, error) {
	orderIDs := make([]string, len(rows))
	for i, r := range rows {
		orderIDs[i] = r.OrderID
	}

	items, err := s.getItemsForOrders(ctx, orderIDs)
	if err != nil {
		return nil, err
	}

	orders := make([]models.Order, 0, len(rows))
	for _, r := range rows {
		order := r.toModel()
		order.Items = items[r.OrderID]
		orders = append(orders, order)
	}
	return orders, nil
}

func (s *Store) getItemsForOrders(ctx context.Context, orderIDs []string) (map[string][]models.OrderItem, error) {
	if len(orderIDs) == 0 {
		return map[string][]models.OrderItem{}, nil
	}

	query, args, err := sqlx.In("SELECT * FROM order_items WHERE order_id IN (?) ORDER BY id", orderIDs)
	if err != nil {
		return nil, err
	}
	query = s.db.Rebind(query)

	var items []models.OrderItem
	if err := s.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, err
	}

	byOrder := make(map[string][]models.OrderItem)
	for _, item := range items {
		byOrder[item.OrderID] = append(byOrder[item.OrderID], item)
	}
	return byOrder, nil
}
