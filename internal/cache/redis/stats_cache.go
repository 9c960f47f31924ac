package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/flipbot/internal/domain"
)

// statsTTL keeps cached stats comfortably inside the default freshness
// window; the row's own Updated timestamp still decides staleness.
const statsTTL = 5 * time.Minute

// StatsCache implements domain.StatsCache using JSON-serialized stats rows.
//
// Key schema:
//
//	stats:{world}:{item}:{hq} - JSON-encoded ItemStats
type StatsCache struct {
	rdb *redis.Client
}

// NewStatsCache creates a StatsCache backed by the given Client.
func NewStatsCache(c *Client) *StatsCache {
	return &StatsCache{rdb: c.Underlying()}
}

func statsCacheKey(worldID, itemID int32, hq bool) string {
	return fmt.Sprintf("stats:%d:%d:%t", worldID, itemID, hq)
}

// Get retrieves a cached stats row. It returns domain.ErrNotFound on a miss.
func (sc *StatsCache) Get(ctx context.Context, worldID, itemID int32, hq bool) (domain.ItemStats, error) {
	data, err := sc.rdb.Get(ctx, statsCacheKey(worldID, itemID, hq)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.ItemStats{}, domain.ErrNotFound
		}
		return domain.ItemStats{}, fmt.Errorf("redis: get stats %d/%d: %w", worldID, itemID, err)
	}

	var stats domain.ItemStats
	if err := json.Unmarshal(data, &stats); err != nil {
		return domain.ItemStats{}, fmt.Errorf("redis: unmarshal stats %d/%d: %w", worldID, itemID, err)
	}
	return stats, nil
}

// Set stores a stats row with the cache TTL.
func (sc *StatsCache) Set(ctx context.Context, stats domain.ItemStats) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("redis: marshal stats %d/%d: %w", stats.World.ID, stats.Item.ID, err)
	}
	key := statsCacheKey(stats.World.ID, stats.Item.ID, stats.HQ)
	if err := sc.rdb.Set(ctx, key, data, statsTTL).Err(); err != nil {
		return fmt.Errorf("redis: set stats %d/%d: %w", stats.World.ID, stats.Item.ID, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.StatsCache = (*StatsCache)(nil)

// CachedStatsStore decorates a domain.StatsStore with a StatsCache for point
// lookups. HomeRows always goes to the store; the assembler's point lookups
// are the hot path worth caching. Cache failures degrade to store reads.
type CachedStatsStore struct {
	store domain.StatsStore
	cache domain.StatsCache
}

// NewCachedStatsStore wraps store with cache.
func NewCachedStatsStore(store domain.StatsStore, cache domain.StatsCache) *CachedStatsStore {
	return &CachedStatsStore{store: store, cache: cache}
}

// HomeRows delegates to the underlying store.
func (s *CachedStatsStore) HomeRows(ctx context.Context, worldID int32, maxAge time.Duration) ([]domain.ItemStats, error) {
	return s.store.HomeRows(ctx, worldID, maxAge)
}

// Get serves the point lookup from the cache when possible and fills the
// cache on a store hit. A store miss (ErrNotFound) is returned as-is and is
// never cached: an absent row may appear at any moment.
func (s *CachedStatsStore) Get(ctx context.Context, worldID, itemID int32, hq bool) (domain.ItemStats, error) {
	if stats, err := s.cache.Get(ctx, worldID, itemID, hq); err == nil {
		return stats, nil
	}

	stats, err := s.store.Get(ctx, worldID, itemID, hq)
	if err != nil {
		return domain.ItemStats{}, err
	}
	_ = s.cache.Set(ctx, stats)
	return stats, nil
}

// Upsert writes through to the store and refreshes the cache entry.
func (s *CachedStatsStore) Upsert(ctx context.Context, stats domain.ItemStats) error {
	if err := s.store.Upsert(ctx, stats); err != nil {
		return err
	}
	_ = s.cache.Set(ctx, stats)
	return nil
}

// Compile-time interface check.
var _ domain.StatsStore = (*CachedStatsStore)(nil)
