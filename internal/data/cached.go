package data

import (
	"context"
	"time"

	"github.com/wonny/aegis-rotation/internal/contracts"
	"github.com/wonny/aegis-rotation/pkg/logger"
	"github.com/wonny/aegis-rotation/pkg/redis"
)

// CachedStore serves series from Redis before asking the wrapped store
type CachedStore struct {
	store  contracts.PriceStore
	cache  *redis.Cache
	ttl    time.Duration
	logger *logger.Logger
}

// NewCachedStore wraps store; ttl <= 0 uses the client default
func NewCachedStore(store contracts.PriceStore, cache *redis.Cache, ttl time.Duration, log *logger.Logger) *CachedStore {
	return &CachedStore{
		store:  store,
		cache:  cache,
		ttl:    ttl,
		logger: log,
	}
}

// GetSeries implements contracts.PriceStore.
// Cache errors fall through to the store; store errors are never cached.
func (c *CachedStore) GetSeries(ctx context.Context, symbol string, from, to time.Time) (*contracts.AssetSeries, error) {
	key := redis.SeriesKey(symbol, from, to)

	var (
		loaded   *contracts.AssetSeries
		storeErr error
	)
	load := func() (interface{}, error) {
		loaded, storeErr = c.store.GetSeries(ctx, symbol, from, to)
		if storeErr != nil {
			return nil, storeErr
		}
		return loaded, nil
	}

	var series contracts.AssetSeries
	err := c.cache.GetOrSet(ctx, key, &series, c.ttl, load)
	switch {
	case err == nil && loaded != nil:
		// 원본 반환 (JSON round-trip 없이)
		return loaded, nil
	case err == nil:
		return &series, nil
	case storeErr != nil:
		return nil, storeErr
	case loaded != nil:
		// NaN closes cannot be JSON-encoded
		c.logger.WithError(err).WithField("symbol", symbol).Warn("Series cache write failed")
		return loaded, nil
	}

	c.logger.WithError(err).WithField("symbol", symbol).Warn("Series cache read failed")
	return c.store.GetSeries(ctx, symbol, from, to)
}
