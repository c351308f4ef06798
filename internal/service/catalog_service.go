package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"storefront/internal/models"
	"storefront/internal/util"
)

// CatalogStore is the slice of the persistence layer the catalog needs.
type CatalogStore interface {
	CreateProduct(ctx context.Context, product *models.Product) error
	UpdateProduct(ctx context.Context, product *models.Product) error
	DeleteProduct(ctx context.Context, id string) error
	GetProductByID(ctx context.Context, id string) (*models.Product, error)
	GetProductBySlug(ctx context.Context, slug string) (*models.Product, error)
	GetProducts(ctx context.Context) ([]models.Product, error)
	GetLatestProducts(ctx context.Context, limit int) ([]models.Product, error)
}

// CatalogCache caches the latest-products list under an explicit key and
// TTL. Satisfied by redisclient.Client.
type CatalogCache interface {
	GetLatestProducts(ctx context.Context) ([]models.Product, error)
	SetLatestProducts(ctx context.Context, products []models.Product, ttl time.Duration) error
	InvalidateCatalog(ctx context.Context) error
}

// CatalogService handles product reads and admin product CRUD. The
// latest-products read goes through the cache; product writes invalidate it.
type CatalogService struct {
	store       CatalogStore
	cache       CatalogCache
	cacheTTL    time.Duration
	latestLimit int
	logger      *zap.Logger
}

// NewCatalogService creates a new catalog service
func NewCatalogService(store CatalogStore, cache CatalogCache, cacheTTL time.Duration, latestLimit int) *CatalogService {
	return &CatalogService{
		store:       store,
		cache:       cache,
		cacheTTL:    cacheTTL,
		latestLimit: latestLimit,
		logger:      util.GetLogger(),
	}
}

// GetLatestProducts returns the newest products, cache first. Cache
// failures degrade to the database, never to an error.
func (cs *CatalogService) GetLatestProducts(ctx context.Context) ([]models.Product, error) {
	if cs.cache != nil {
		cached, err := cs.cache.GetLatestProducts(ctx)
		if err != nil {
			cs.logger.Warn("Catalog cache read failed", zap.Error(err))
		} else if cached != nil {
			util.CatalogCacheHitsTotal.Inc()
			return cached, nil
		}
	}

	util.CatalogCacheMissesTotal.Inc()
	products, err := cs.store.GetLatestProducts(ctx, cs.latestLimit)
	if err != nil {
		return nil, err
	}

	if cs.cache != nil {
		if err := cs.cache.SetLatestProducts(ctx, products, cs.cacheTTL); err != nil {
			cs.logger.Warn("Catalog cache write failed", zap.Error(err))
		}
	}
	return products, nil
}

// GetProducts returns the full catalog
func (cs *CatalogService) GetProducts(ctx context.Context) ([]models.Product, error) {
	return cs.store.GetProducts(ctx)
}

// GetProductBySlug returns one product by slug
func (cs *CatalogService) GetProductBySlug(ctx context.Context, slug string) (*models.Product, error) {
	return cs.store.GetProductBySlug(ctx, slug)
}

// GetProductByID returns one product by ID
func (cs *CatalogService) GetProductByID(ctx context.Context, id string) (*models.Product, error) {
	return cs.store.GetProductByID(ctx, id)
}

// CreateProduct inserts a product, admin only
func (cs *CatalogService) CreateProduct(ctx context.Context, product *models.Product) ActionResult {
	if product.ID == "" {
		product.ID = uuid.New().String()
	}
	if err := cs.store.CreateProduct(ctx, product); err != nil {
		cs.logger.Error("Failed to create product", zap.Error(err))
		return failure(formatError(err))
	}
	cs.invalidate(ctx)
	return success("Product created successfully")
}

// UpdateProduct updates a product, admin only
func (cs *CatalogService) UpdateProduct(ctx context.Context, product *models.Product) ActionResult {
	if err := cs.store.UpdateProduct(ctx, product); err != nil {
		cs.logger.Error("Failed to update product",
			zap.String("product_id", product.ID),
			zap.Error(err))
		return failure(formatError(err))
	}
	cs.invalidate(ctx)
	return success("Product updated successfully")
}

// DeleteProduct deletes a product, admin only
func (cs *CatalogService) DeleteProduct(ctx context.Context, id string) ActionResult {
	if err := cs.store.DeleteProduct(ctx, id); err != nil {
		cs.logger.Error("Failed to delete product",
			zap.String("product_id", id),
			zap.Error(err))
		return failure(formatError(err))
	}
	cs.invalidate(ctx)
	return success("Product deleted successfully")
}

func (cs *CatalogService) invalidate(ctx context.Context) {
	if cs.cache == nil {
		return
	}
	if err := cs.cache.InvalidateCatalog(ctx); err != nil {
		cs.logger.Warn("Catalog cache invalidation failed", zap.Error(err))
	}
}
