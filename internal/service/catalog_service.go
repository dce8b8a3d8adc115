package service

import (
	"context"
	"fmt"

	"storefront-service/internal/catalog"
	"storefront-service/internal/models"
	"storefront-service/internal/redisclient"
	"storefront-service/internal/util"

	"go.uber.org/zap"
)

const catalogCacheKey = "catalog"

// CatalogService serves the product catalog through two cache layers: the
// in-process time-boxed cache and a Redis copy shared across instances.
type CatalogService struct {
	catalog *catalog.Store
	redis   *redisclient.Client
	logger  *zap.Logger
}

// NewCatalogService creates a new catalog service
func NewCatalogService(cat *catalog.Store, redis *redisclient.Client) *CatalogService {
	return &CatalogService{
		catalog: cat,
		redis:   redis,
		logger:  util.GetLogger(),
	}
}

// GetProducts returns the catalog, refreshing stale caches from the source.
// force bypasses both cache layers.
func (s *CatalogService) GetProducts(ctx context.Context, force bool) ([]models.Product, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.GetProducts")
	defer span.End()

	if !force {
		var cached []models.Product
		if hit, err := s.redis.GetJSON(ctx, catalogCacheKey, &cached); err == nil && hit {
			util.CatalogRefreshTotal.WithLabelValues("hit").Inc()
			return cached, nil
		}
	}

	products, err := s.catalog.Load(ctx, force)
	if err != nil {
		util.CatalogRefreshTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to load products: %w", err)
	}
	util.CatalogRefreshTotal.WithLabelValues("refresh").Inc()

	if err := s.redis.SetJSON(ctx, catalogCacheKey, products, catalog.DefaultTTL); err != nil {
		s.logger.Warn("Failed to cache catalog in Redis", zap.Error(err))
	}

	return products, nil
}

// GetCategories returns the two-level category index over the current catalog
func (s *CatalogService) GetCategories(ctx context.Context, force bool) (map[string]*catalog.Category, error) {
	products, err := s.GetProducts(ctx, force)
	if err != nil {
		return nil, err
	}
	return catalog.BuildCategoryIndex(products), nil
}

// SearchProducts filters the current catalog by a search term
func (s *CatalogService) SearchProducts(ctx context.Context, term string) ([]models.Product, error) {
	products, err := s.GetProducts(ctx, false)
	if err != nil {
		return nil, err
	}
	return catalog.Search(products, term), nil
}
