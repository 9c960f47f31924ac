package domain

import (
	"context"
	"time"
)

// StatsCache is a read-through cache for stats point lookups. Get returns
// ErrNotFound on a cache miss.
type StatsCache interface {
	Get(ctx context.Context, worldID, itemID int32, hq bool) (ItemStats, error)
	Set(ctx context.Context, stats ItemStats) error
}

// NameCache caches item ID to display name mappings.
type NameCache interface {
	GetNames(ctx context.Context, ids []int32) (map[int32]string, error)
	SetNames(ctx context.Context, names map[int32]string) error
}

// RateLimiter enforces per-key request limits.
type RateLimiter interface {
	// Allow reports whether one more request is permitted for key within the
	// window.
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
	// Wait blocks until a request for key is allowed or ctx is done.
	Wait(ctx context.Context, key string) error
}

// LockManager provides distributed mutual exclusion, used to keep a single
// feed listener active per deployment.
type LockManager interface {
	// Acquire attempts to take the named lock for ttl. It returns an unlock
	// function on success, or ErrLockHeld when another holder owns the lock.
	Acquire(ctx context.Context, name string, ttl time.Duration) (func(), error)
}
