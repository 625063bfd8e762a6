package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"chartrace/internal/marketdata"

	"github.com/redis/go-redis/v9"
)

// DefaultCacheTTL is how long a chart result is served from cache.
const DefaultCacheTTL = 15 * time.Minute

// Cache stores chart results by key. Results returned by Get are shared and
// must be treated as read-only.
// Implementations can be in-memory or remote; the Service does not need to
// know which one is used.
type Cache interface {
	Get(ctx context.Context, key string) (*marketdata.ChartResult, bool, error)
	Set(ctx context.Context, key string, res *marketdata.ChartResult) error
}

// CacheKey identifies a chart request. Options are normalised with their
// defaults so an empty body and the explicit default range share an entry.
func CacheKey(symbol string, opts marketdata.ChartOptions) string {
	opts = opts.WithDefaults()
	return fmt.Sprintf("chart:%s:%s:%s", strings.ToUpper(symbol), opts.StartDate, opts.EndDate)
}

type cacheEntry struct {
	res     *marketdata.ChartResult
	expires time.Time
}

// InMemoryCache is a concurrency-safe in-process Cache with a fixed TTL.
type InMemoryCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewInMemoryCache returns an empty cache. If ttl <= 0, DefaultCacheTTL is used.
func NewInMemoryCache(ttl time.Duration) *InMemoryCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &InMemoryCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get implements Cache.Get. Expired entries are reported as misses.
func (c *InMemoryCache) Get(_ context.Context, key string) (*marketdata.ChartResult, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok || !c.now().Before(e.expires) {
		return nil, false, nil
	}
	return e.res, true, nil
}

// Set implements Cache.Set. Expired entries are swept on write.
func (c *InMemoryCache) Set(_ context.Context, key string, res *marketdata.ChartResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for k, e := range c.entries {
		if !now.Before(e.expires) {
			delete(c.entries, k)
		}
	}
	c.entries[key] = cacheEntry{res: res, expires: now.Add(c.ttl)}
	return nil
}

// Len returns the number of live entries. Used for metrics.
func (c *InMemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	now := c.now()
	n := 0
	for _, e := range c.entries {
		if now.Before(e.expires) {
			n++
		}
	}
	return n
}

// RedisCache stores chart results as JSON strings with a TTL.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache returns a Cache backed by client. If ttl <= 0, DefaultCacheTTL
// is used.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &RedisCache{client: client, ttl: ttl}
}

// Get implements Cache.Get.
func (c *RedisCache) Get(ctx context.Context, key string) (*marketdata.ChartResult, bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get chart %s: %w", key, err)
	}

	var res marketdata.ChartResult
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal chart %s: %w", key, err)
	}
	return &res, true, nil
}

// Set implements Cache.Set.
func (c *RedisCache) Set(ctx context.Context, key string, res *marketdata.ChartResult) error {
	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("failed to marshal chart %s: %w", key, err)
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set chart %s: %w", key, err)
	}
	return nil
}
