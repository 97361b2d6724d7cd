package catalog

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/frahmantamala/licensestore/internal/cache"
)

const productCachePrefix = "catalog:product:"

type NopCache struct{}

func (NopCache) Get(context.Context, string) (*Product, bool) { return nil, false }
func (NopCache) Set(context.Context, *Product) {}
func (NopCache) Invalidate(context.Context) {}

// RedisCache stores product pages as JSON. Redis failures degrade to a miss.
type RedisCache struct {
	client *cache.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewRedisCache(client *cache.Client, ttl time.Duration, logger *slog.Logger) *RedisCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisCache{client: client, ttl: ttl, logger: logger}
}

func (c *RedisCache) Get(ctx context.Context, slug string) (*Product, bool) {
	var p Product
	if err := c.client.GetJSON(ctx, productCachePrefix+slug, &p); err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			c.logger.Warn("product cache read failed", "slug", slug, "error", err)
		}
		return nil, false
	}
	return &p, true
}

func (c *RedisCache) Set(ctx context.Context, p *Product) {
	if err := c.client.SetJSON(ctx, productCachePrefix+p.Slug, p, c.ttl); err != nil {
		c.logger.Warn("product cache write failed", "slug", p.Slug, "error", err)
	}
}

func (c *RedisCache) Invalidate(ctx context.Context) {
	if err := c.client.DeletePrefix(ctx, productCachePrefix); err != nil {
		c.logger.Warn("product cache invalidation failed", "error", err)
	}
}
