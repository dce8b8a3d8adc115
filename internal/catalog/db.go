package catalog

import (
	"context"

	"storefront-service/internal/models"
	"storefront-service/internal/store"
)

// StoreSource loads products from the products table.
type StoreSource struct {
	store *store.Store
}

// NewStoreSource builds a database-backed catalog source
func NewStoreSource(s *store.Store) *StoreSource {
	return &StoreSource{store: s}
}

// FetchProducts returns active products in catalog sort order
func (src *StoreSource) FetchProducts(ctx context.Context) ([]models.Product, error) {
	return src.store.GetActiveProducts(ctx)
}
