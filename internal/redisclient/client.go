package redisclient

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"storefront/internal/models"
)

// CatalogLatestKey is the cache key for the latest-products list. Entries
// expire after the TTL passed to SetLatestProducts and are invalidated
// explicitly on product writes.
const CatalogLatestKey = "catalog:latest"

type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// GetLatestProducts reads the cached latest-products list.
// Returns (nil, nil) on a cache miss.
func (c *Client) GetLatestProducts(ctx context.Context) ([]models.Product, error) {
	data, err := c.rdb.Get(ctx, CatalogLatestKey).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("catalog cache read failed: %w", err)
	}

	var products []models.Product
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, fmt.Errorf("catalog cache decode failed: %w", err)
	}
	return products, nil
}

// SetLatestProducts stores the latest-products list with the given TTL
func (c *Client) SetLatestProducts(ctx context.Context, products []models.Product, ttl time.Duration) error {
	data, err := json.Marshal(products)
	if err != nil {
		return fmt.Errorf("catalog cache encode failed: %w", err)
	}
	return c.rdb.Set(ctx, CatalogLatestKey, data, ttl).Err()
}

// InvalidateCatalog drops the cached catalog after a product write
func (c *Client) InvalidateCatalog(ctx context.Context) error {
	return c.rdb.Del(ctx, CatalogLatestKey).Err()
}

// AcquireCheckoutLock takes a short-lived lock for one cart so concurrent
// checkouts of the same cart fail fast instead of racing to commit.
func (c *Client) AcquireCheckoutLock(ctx context.Context, cartID string, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, fmt.Sprintf("lock:checkout:%s", cartID), "1", ttl).Result()
}

// ReleaseCheckoutLock releases a checkout lock
func (c *Client) ReleaseCheckoutLock(ctx context.Context, cartID string) error {
	return c.rdb.Del(ctx, fmt.Sprintf("lock:checkout:%s", cartID)).Err()
}
