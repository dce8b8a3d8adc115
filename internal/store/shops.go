package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"storefront-service/internal/models"
)

// shopRow is the flat scan target for the shops table.
type shopRow struct {
	ShopID           string     `db:"shop_id"`
	ShopType         string     `db:"shop_type"`
	ShopName         string     `db:"shop_name"`
	BranchName       string     `db:"branch_name"`
	ContactEmail     string     `db:"contact_email"`
	IsActive         bool       `db:"is_active"`
	TotalOrders      int        `db:"total_orders"`
	LastOrderDate    *time.Time `db:"last_order_date"`
	AverageOrderSize float64    `db:"average_order_size"`
	CreatedAt        time.Time  `db:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at"`
}

func (r shopRow) toModel() models.Shop {
	return models.Shop{
		ShopID:       r.ShopID,
		ShopType:     r.ShopType,
		ShopName:     r.ShopName,
		BranchName:   r.BranchName,
		ContactEmail: r.ContactEmail,
		IsActive:     r.IsActive,
		Stats: models.ShopStats{
			TotalOrders:      r.TotalOrders,
			LastOrderDate:    r.LastOrderDate,
			AverageOrderSize: r.AverageOrderSize,
		},
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

// GetShop retrieves a shop by ID
func (s *Store) GetShop(ctx context.Context, shopID string) (*models.Shop, error) {
	var row shopRow
	err := s.db.GetContext(ctx, &row, "SELECT * FROM shops WHERE shop_id = $1", shopID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("shop not found: %s", shopID)
	}
	if err != nil {
		return nil, err
	}
	shop := row.toModel()
	return &shop, nil
}

// GetShops retrieves all shops
func (s *Store) GetShops(ctx context.Context) ([]models.Shop, error) {
	var rows []shopRow
	if err := s.db.SelectContext(ctx, &rows, "SELECT * FROM shops ORDER BY shop_id"); err != nil {
		return nil, err
	}

	shops := make([]models.Shop, 0, len(rows))
	for _, r := range rows {
		shops = append(shops, r.toModel())
	}
	return shops, nil
}

// UpdateShopAverageOrderSize recomputes a shop's average order size from its
// persisted orders in a single statement. Safe to replay: the update is
// idempotent, which keeps at-least-once event delivery harmless.
func (s *Store) UpdateShopAverageOrderSize(ctx context.Context, shopID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE shops SET
			average_order_size = COALESCE(
				(SELECT AVG(total_quantity) FROM orders WHERE shop_id = $1), 0),
			updated_at = NOW()
		WHERE shop_id = $1`, shopID)
	return err
}
