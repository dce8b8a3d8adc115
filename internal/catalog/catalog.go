// Package catalog loads the product catalog from a spreadsheet CSV export or
// the products table and serves it through a time-boxed cache. Whichever
// source is active, the rest of the service only ever sees the typed Product
// shape.
package catalog

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"storefront-service/internal/models"
	"storefront-service/internal/util"

	"go.uber.org/zap"
)

// DefaultTTL is the catalog freshness window. Staleness inside the window is
// an accepted trade-off; a forced refresh bypasses the cache unconditionally.
const DefaultTTL = 5 * time.Minute

// Source loads the full product list from a backing system.
type Source interface {
	FetchProducts(ctx context.Context) ([]models.Product, error)
}

// Store is a read-through catalog cache with an injected clock so tests can
// control expiry deterministically.
type Store struct {
	source Source
	ttl    time.Duration
	now    func() time.Time
	logger *zap.Logger

	mu        sync.RWMutex
	products  []models.Product
	fetchedAt time.Time
}

// NewStore creates a catalog store over the given source
func NewStore(source Source, ttl time.Duration, now func() time.Time) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if now == nil {
		now = time.Now
	}
	return &Store{
		source: source,
		ttl:    ttl,
		now:    now,
		logger: util.GetLogger(),
	}
}

// Load returns the cached product list, refreshing from the source when the
// cache is cold or stale. force bypasses the cache unconditionally.
func (s *Store) Load(ctx context.Context, force bool) ([]models.Product, error) {
	if !force {
		if products, ok := s.cached(); ok {
			return products, nil
		}
	}

	products, err := s.source.FetchProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	s.mu.Lock()
	s.products = products
	s.fetchedAt = s.now()
	s.mu.Unlock()

	s.logger.Info("Catalog refreshed", zap.Int("products", len(products)))
	return products, nil
}

func (s *Store) cached() ([]models.Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.products == nil || s.now().Sub(s.fetchedAt) >= s.ttl {
		return nil, false
	}
	return s.products, true
}

// Category groups products under a main category with per-subcategory splits.
type Category struct {
	Name          string                      `json:"name"`
	Products      []models.Product            `json:"products"`
	SubCategories map[string][]models.Product `json:"sub_categories,omitempty"`
}

const uncategorized = "อื่นๆ"

// BuildCategoryIndex derives the two-level category index the storefront
// browses. Products without a main category fall under the catch-all bucket.
func BuildCategoryIndex(products []models.Product) map[string]*Category {
	index := make(map[string]*Category)

	for _, p := range products {
		main := p.MainCategory
		if main == "" {
			main = uncategorized
		}

		cat, ok := index[main]
		if !ok {
			cat = &Category{Name: main, SubCategories: make(map[string][]models.Product)}
			index[main] = cat
		}
		cat.Products = append(cat.Products, p)

		if p.SubCategory != "" {
			cat.SubCategories[p.SubCategory] = append(cat.SubCategories[p.SubCategory], p)
		}
	}

	for _, cat := range index {
		sort.SliceStable(cat.Products, func(i, j int) bool {
			return cat.Products[i].SortOrder < cat.Products[j].SortOrder
		})
	}
	return index
}

// Search filters products by a case-insensitive substring match on name or
// category. An empty term returns the input unchanged.
func Search(products []models.Product, term string) []models.Product {
	if term == "" {
		return products
	}

	term = strings.ToLower(term)
	matched := make([]models.Product, 0)
	for _, p := range products {
		if strings.Contains(strings.ToLower(p.Name), term) ||
			strings.Contains(strings.ToLower(p.MainCategory), term) ||
			strings.Contains(strings.ToLower(p.SubCategory), term) {
			matched = append(matched, p)
		}
	}
	return matched
}
