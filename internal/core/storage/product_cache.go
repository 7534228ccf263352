package storage

import (
	"context"

	"luxemarket_api/internal/core/models"
	"luxemarket_api/pkg/logger"
)

// ProductCachePrefix names the Redis keyspace for cached catalog reads.
// Every write path that touches products must invalidate under it.
const ProductCachePrefix = "products:"

type productUpserter interface {
	UpsertBySource(ctx context.Context, product *models.Product) (string, bool, error)
}

type catalogCache interface {
	InvalidatePrefix(ctx context.Context, prefix string) error
}

// CachedProducts wraps a product store so that every successful upsert drops
// the cached catalog reads. Import batches stay modest (supplier pacing caps
// the write rate), so invalidating per upsert is affordable and keeps list
// and count responses current while a job runs.
type CachedProducts struct {
	store productUpserter
	cache catalogCache
	log   logger.Logger
}

func NewCachedProducts(store productUpserter, c catalogCache, log logger.Logger) *CachedProducts {
	return &CachedProducts{
		store: store,
		cache: c,
		log:   log.WithPrefix("[CachedProducts]"),
	}
}

func (c *CachedProducts) UpsertBySource(ctx context.Context, product *models.Product) (string, bool, error) {
	id, inserted, err := c.store.UpsertBySource(ctx, product)
	if err != nil {
		return id, inserted, err
	}
	if invErr := c.cache.InvalidatePrefix(ctx, ProductCachePrefix); invErr != nil {
		c.log.Log("Failed to invalidate catalog cache: %v", invErr)
	}
	return id, inserted, nil
}
