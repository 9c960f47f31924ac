package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/flipbot/internal/domain"
)

// Item names are effectively static game data; a long TTL just bounds memory.
const nameTTL = 24 * time.Hour

// NameCache implements domain.NameCache with one string key per item ID.
//
// Key schema:
//
//	item:name:{id} - display name
type NameCache struct {
	rdb *redis.Client
}

// NewNameCache creates a NameCache backed by the given Client.
func NewNameCache(c *Client) *NameCache {
	return &NameCache{rdb: c.Underlying()}
}

func nameKey(id int32) string {
	return fmt.Sprintf("item:name:%d", id)
}

// GetNames returns the cached names for the given IDs. Missing IDs are absent
// from the result.
func (nc *NameCache) GetNames(ctx context.Context, ids []int32) (map[int32]string, error) {
	if len(ids) == 0 {
		return map[int32]string{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = nameKey(id)
	}

	values, err := nc.rdb.MGet(ctx, keys...).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("redis: get item names: %w", err)
	}

	names := make(map[int32]string, len(ids))
	for i, v := range values {
		if name, ok := v.(string); ok && name != "" {
			names[ids[i]] = name
		}
	}
	return names, nil
}

// SetNames stores the given names with the cache TTL.
func (nc *NameCache) SetNames(ctx context.Context, names map[int32]string) error {
	if len(names) == 0 {
		return nil
	}

	pipe := nc.rdb.Pipeline()
	for id, name := range names {
		pipe.Set(ctx, nameKey(id), name, nameTTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set item names: %w", err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.NameCache = (*NameCache)(nil)

// CachedNameSupplier decorates a domain.NameSupplier with a NameCache.
// Only IDs missing from the cache hit the underlying supplier.
type CachedNameSupplier struct {
	supplier domain.NameSupplier
	cache    domain.NameCache
}

// NewCachedNameSupplier wraps supplier with cache.
func NewCachedNameSupplier(supplier domain.NameSupplier, cache domain.NameCache) *CachedNameSupplier {
	return &CachedNameSupplier{supplier: supplier, cache: cache}
}

// Names resolves item names, reading through the cache.
func (s *CachedNameSupplier) Names(ctx context.Context, ids []int32) (map[int32]string, error) {
	cached, err := s.cache.GetNames(ctx, ids)
	if err != nil {
		// Degrade to the supplier on cache failure.
		cached = map[int32]string{}
	}

	var missing []int32
	for _, id := range ids {
		if _, ok := cached[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) == 0 {
		return cached, nil
	}

	fetched, err := s.supplier.Names(ctx, missing)
	if err != nil {
		return nil, err
	}
	_ = s.cache.SetNames(ctx, fetched)

	for id, name := range fetched {
		cached[id] = name
	}
	return cached, nil
}

// Compile-time interface check.
var _ domain.NameSupplier = (*CachedNameSupplier)(nil)
