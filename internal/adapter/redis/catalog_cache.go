package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/arenadesk/internal/adapter/metrics"
	"github.com/pscheid92/arenadesk/internal/domain"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const (
	catalogCacheTTL = 1 * time.Hour

	layerMemory   = "memory"
	layerRedis    = "redis"
	layerDirectus = "directus"
)

// CatalogCache is a read-through cache of the arena and game lists.
type CatalogCache struct {
	rdb     goredis.Cmdable // nil runs the in-memory layer alone
	arenas  domain.ArenaRepository
	games   domain.GameRepository
	mem     *memoryCache
	group   singleflight.Group
	clock   clockwork.Clock
	metrics *metrics.CacheMetrics
}

var _ domain.Catalog = (*CatalogCache)(nil)

func NewCatalogCache(rdb goredis.Cmdable, arenas domain.ArenaRepository, games domain.GameRepository, memTTL time.Duration, clock clockwork.Clock, m *metrics.CacheMetrics) *CatalogCache {
	return &CatalogCache{
		rdb:     rdb,
		arenas:  arenas,
		games:   games,
		mem:     newMemoryCache(memTTL, clock),
		clock:   clock,
		metrics: m,
	}
}

// StartEvictionTimer runs a periodic goroutine that evicts expired in-memory cache entries.
// Returns a stop function that should be deferred.
func (c *CatalogCache) StartEvictionTimer(interval time.Duration) func() {
	ticker := c.clock.NewTicker(interval)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-ticker.Chan():
				if evicted := c.mem.evictExpired(); evicted > 0 {
					slog.Debug("Evicted expired catalog cache entries", "count", evicted, "remaining", c.mem.size())
				}
			case <-done:
				ticker.Stop()
				return
			}
		}
	}()

	return func() { close(done) }
}

func (c *CatalogCache) Arenas(ctx context.Context) ([]domain.Arena, error) {
	return load(ctx, c, domain.CatalogArenas, c.arenas.List)
}

func (c *CatalogCache) Games(ctx context.Context) ([]domain.Game, error) {
	return load(ctx, c, domain.CatalogGames, c.games.List)
}

func load[T any](ctx context.Context, c *CatalogCache, kind domain.CatalogKind, fetch func(context.Context) ([]T, error)) ([]T, error) {
	// Layer 1: in-memory cache
	if v, ok := c.mem.get(kind); ok {
		if items, ok := v.([]T); ok {
			c.metrics.Hits.WithLabelValues(layerMemory).Inc()
			return slices.Clone(items), nil
		}
	}
	c.metrics.Misses.WithLabelValues(layerMemory).Inc()

	v, err, _ := c.group.Do(string(kind), func() (any, error) {
		// A fill that races an invalidation returns its result to the callers
		// already waiting but never stores it.
		gen := c.mem.generation(kind)

		// Layer 2: Redis cache
		if items, ok := getCached[T](ctx, c, kind); ok {
			c.metrics.Hits.WithLabelValues(layerRedis).Inc()
			c.mem.setIfCurrent(kind, items, gen)
			return items, nil
		}
		if c.rdb != nil {
			c.metrics.Misses.WithLabelValues(layerRedis).Inc()
		}

		// Layer 3: Directus
		items, err := fetch(ctx)
		if err != nil {
			return nil, fmt.Errorf("load %s catalog: %w", kind, err)
		}
		c.metrics.Hits.WithLabelValues(layerDirectus).Inc()
		if c.mem.setIfCurrent(kind, items, gen) {
			c.writeCache(ctx, kind, items, gen)
		}
		return items, nil
	})
	if err != nil {
		return nil, err
	}
	return slices.Clone(v.([]T)), nil
}

// Invalidate drops the list from both layers and tells other instances to
// drop their in-memory copy.
func (c *CatalogCache) Invalidate(ctx context.Context, kind domain.CatalogKind) error {
	c.mem.invalidate(kind)
	c.group.Forget(string(kind))
	c.metrics.Invalidations.WithLabelValues("local").Inc()
	if c.rdb == nil {
		return nil
	}

	if err := c.rdb.Del(ctx, catalogCacheKey(kind)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate catalog cache: %w", err)
	}
	return publishCatalogInvalidation(ctx, c.rdb, kind)
}

// dropLocal clears only the in-memory layer; used for remote invalidations.
func (c *CatalogCache) dropLocal(kind domain.CatalogKind) {
	c.mem.invalidate(kind)
	c.group.Forget(string(kind))
	c.metrics.Invalidations.WithLabelValues("remote").Inc()
}

// writeCache stores items in Redis. If the kind was invalidated while the
// write was in flight the key is removed again.
func (c *CatalogCache) writeCache(ctx context.Context, kind domain.CatalogKind, items any, gen uint64) {
	if c.rdb == nil {
		return
	}
	encoded, err := json.Marshal(items)
	if err != nil {
		slog.WarnContext(ctx, "Failed to marshal catalog for Redis cache", "catalog", string(kind), "error", err)
		return
	}
	if err := c.rdb.Set(ctx, catalogCacheKey(kind), encoded, catalogCacheTTL).Err(); err != nil {
		slog.WarnContext(ctx, "Failed to populate Redis catalog cache", "catalog", string(kind), "error", err)
		return
	}
	if c.mem.generation(kind) != gen {
		if err := c.rdb.Del(ctx, catalogCacheKey(kind)).Err(); err != nil {
			slog.WarnContext(ctx, "Failed to drop stale Redis catalog cache", "catalog", string(kind), "error", err)
		}
	}
}

func getCached[T any](ctx context.Context, c *CatalogCache, kind domain.CatalogKind) ([]T, bool) {
	if c.rdb == nil {
		return nil, false
	}
	data, err := c.rdb.Get(ctx, catalogCacheKey(kind)).Bytes()
	if err != nil {
		if !errors.Is(err, goredis.Nil) {
			slog.WarnContext(ctx, "Redis catalog cache GET failed", "catalog", string(kind), "error", err)
		}
		return nil, false
	}

	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		slog.WarnContext(ctx, "Failed to unmarshal cached catalog", "catalog", string(kind), "error", err)
		return nil, false
	}
	return items, true
}

func catalogCacheKey(kind domain.CatalogKind) string {
	return "catalog_cache:" + string(kind)
}

// memoryCache is an in-memory L1 cache with TTL-based expiry. Every
// invalidation bumps the kind's generation.
type memoryCache struct {
	mu      sync.RWMutex
	entries map[domain.CatalogKind]memoryCacheEntry
	gens    map[domain.CatalogKind]uint64
	ttl     time.Duration
	clock   clockwork.Clock
}

type memoryCacheEntry struct {
	value     any
	expiresAt time.Time
}

func newMemoryCache(ttl time.Duration, clock clockwork.Clock) *memoryCache {
	return &memoryCache{
		entries: make(map[domain.CatalogKind]memoryCacheEntry),
		gens:    make(map[domain.CatalogKind]uint64),
		ttl:     ttl,
		clock:   clock,
	}
}

func (c *memoryCache) get(kind domain.CatalogKind) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[kind]
	if !ok || c.clock.Now().After(entry.expiresAt) {
		return nil, false
	}
	return entry.value, true
}

// setIfCurrent stores value unless kind was invalidated after gen was read.
func (c *memoryCache) setIfCurrent(kind domain.CatalogKind, value any, gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gens[kind] != gen {
		return false
	}
	c.entries[kind] = memoryCacheEntry{value: value, expiresAt: c.clock.Now().Add(c.ttl)}
	return true
}

func (c *memoryCache) generation(kind domain.CatalogKind) uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gens[kind]
}

func (c *memoryCache) invalidate(kind domain.CatalogKind) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, kind)
	c.gens[kind]++
}

func (c *memoryCache) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *memoryCache) evictExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	evicted := 0
	for kind, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, kind)
			evicted++
		}
	}
	return evicted
}
