package domain

import (
	"context"
	"time"
)

// ListingScope describes the competing side of one scan: every world in the
// target scope around the home world, home excluded, restricted to snapshots
// updated within MaxAge.
type ListingScope struct {
	Home   World
	Target Scope
	MaxAge time.Duration
}

// ListingStore persists market board listing snapshots.
type ListingStore interface {
	// FreshCompeting returns all listings in the scope's competing worlds whose
	// per-(world, item) snapshot is within the freshness window. Rows carry
	// resolved world metadata.
	FreshCompeting(ctx context.Context, scope ListingScope) ([]Listing, error)
	// ReplaceSnapshot atomically replaces the listing set for one
	// (world, item) line and records the snapshot time.
	ReplaceSnapshot(ctx context.Context, worldID, itemID int32, listings []Listing, updated time.Time) error
	// ListBefore returns up to limit listings whose snapshot is older than
	// cutoff, for archiving.
	ListBefore(ctx context.Context, cutoff time.Time, limit int) ([]Listing, error)
	// PruneBefore deletes listings whose snapshot is older than cutoff and
	// returns the number of rows removed.
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// StatsStore persists per-(world, item, hq) market statistics snapshots.
type StatsStore interface {
	// HomeRows returns every stats row for the given world updated within
	// maxAge. Threshold filtering happens in the pipeline, not here.
	HomeRows(ctx context.Context, worldID int32, maxAge time.Duration) ([]ItemStats, error)
	// Get is the point lookup used for home and competing worlds at assembly
	// time. It returns ErrNotFound when no row exists.
	Get(ctx context.Context, worldID, itemID int32, hq bool) (ItemStats, error)
	// Upsert inserts or replaces one stats snapshot.
	Upsert(ctx context.Context, stats ItemStats) error
}

// WorldStore persists the world / data center topology.
type WorldStore interface {
	Get(ctx context.Context, id int32) (World, error)
	List(ctx context.Context) ([]World, error)
	Upsert(ctx context.Context, world World) error
}

// ItemStore persists item display names.
type ItemStore interface {
	NameSupplier
	UpsertNames(ctx context.Context, items []Item) error
}

// FilterStore persists per-user offer filter profiles.
type FilterStore interface {
	Get(ctx context.Context, userID string) (OfferFilter, error)
	Upsert(ctx context.Context, userID string, filter OfferFilter) error
}
