package resultcache

import (
	"context"
	"time"

	"github.com/fanfiq/fanfiq/pkg/metrics"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
)

const DefaultTTL = 5 * time.Minute

// ErrMiss is returned by a Store when the key holds no value.
var ErrMiss = errors.New("cache miss")

// Store is the key-value backend behind a Cache.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Cache stores serialized responses. It never returns an error: a failing
// store is logged and treated as a miss so callers fall through to the live
// query.
type Cache struct {
	store Store
	ttl   time.Duration
}

// New wraps store. A ttl of zero uses DefaultTTL.
func New(store Store, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{store: store, ttl: ttl}
}

// Get returns the cached value for key and whether it was found.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrMiss) {
			metrics.SearchCacheTotal.WithLabelValues("miss").Inc()
			return nil, false
		}
		metrics.SearchCacheTotal.WithLabelValues("error").Inc()
		logger.FromContext(ctx).Err(err).Warn("failed to read cached result", logger.Data{"key": key})
		return nil, false
	}
	if len(data) == 0 {
		metrics.SearchCacheTotal.WithLabelValues("miss").Inc()
		return nil, false
	}

	metrics.SearchCacheTotal.WithLabelValues("hit").Inc()
	return data, true
}

// Set stores value under key. A ttl of zero uses the cache's default.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.ttl
	}
	if err := c.store.SetWithTTL(ctx, key, value, ttl); err != nil {
		metrics.SearchCacheTotal.WithLabelValues("error").Inc()
		logger.FromContext(ctx).Err(err).Warn("failed to cache result", logger.Data{"key": key})
	}
}
