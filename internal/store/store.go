package store

import (
	"context"
	"fmt"
	"time"

	"storefront-service/internal/models"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

type Store struct {
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks database connectivity
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// GetActiveProducts retrieves the catalog from the products table, active
// entries only, in catalog sort order.
func (s *Store) GetActiveProducts(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	err := s.db.SelectContext(ctx, &products,
		"SELECT * FROM products WHERE is_active = TRUE ORDER BY sort_order, name")
	return products, err
}

// GetProductsByNames retrieves products keyed by display name. Used to enrich
// order items with unit/category/product ID where the catalog resolves them.
func (s *Store) GetProductsByNames(ctx context.Context, names []string) (map[string]models.Product, error) {
	if len(names) == 0 {
		return map[string]models.Product{}, nil
	}

	query, args, err := sqlx.In("SELECT * FROM products WHERE name IN (?)", names)
	if err != nil {
		return nil, err
	}
	query = s.db.Rebind(query)

	var products []models.Product
	if err := s.db.SelectContext(ctx, &products, query, args...); err != nil {
		return nil, err
	}

	byName := make(map[string]models.Product, len(products))
	for _, p := range products {
		byName[p.Name] = p
	}
	return byName, nil
}
