package catalog

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is a redis read-through cache for product records. All methods are
// best-effort: a nil client disables caching without changing behaviour.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache constructs a cache helper.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

func productKey(barcode string) string {
	return "catalog:product:" + barcode
}

// Get reports whether a cached product exists for the barcode.
func (c *Cache) Get(ctx context.Context, barcode string) (Product, bool) {
	if c == nil || c.client == nil || barcode == "" {
		return Product{}, false
	}
	data, err := c.client.Get(ctx, productKey(barcode)).Bytes()
	if err != nil {
		return Product{}, false
	}
	var p Product
	if err := json.Unmarshal(data, &p); err != nil {
		return Product{}, false
	}
	return p, true
}

// Set stores the product with the configured TTL.
func (c *Cache) Set(ctx context.Context, p Product) {
	if c == nil || c.client == nil || p.Barcode == "" {
		return
	}
	data, err := json.Marshal(p)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, productKey(p.Barcode), data, c.ttl).Err()
}

// Invalidate drops the cached record for the barcode.
func (c *Cache) Invalidate(ctx context.Context, barcode string) {
	if c == nil || c.client == nil || barcode == "" {
		return
	}
	_ = c.client.Del(ctx, productKey(barcode)).Err()
}
