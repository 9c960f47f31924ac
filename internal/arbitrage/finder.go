// Package arbitrage implements the cross-world offer detection pipeline. A
// scan turns point-in-time listing and stats snapshots into a bounded, ranked
// set of flip opportunities: filter -> group -> aggregate -> join -> rank ->
// assemble, every stage a pure transform over materialized rows.
package arbitrage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/flipbot/internal/domain"
)

// ListingSource supplies fresh competing-world listings for one scan.
type ListingSource interface {
	FreshCompeting(ctx context.Context, scope domain.ListingScope) ([]domain.Listing, error)
}

// StatsSource supplies market statistics snapshots.
type StatsSource interface {
	HomeRows(ctx context.Context, worldID int32, maxAge time.Duration) ([]domain.ItemStats, error)
	Get(ctx context.Context, worldID, itemID int32, hq bool) (domain.ItemStats, error)
}

// Finder runs the offer detection pipeline. It is read-only over the snapshot
// stores and safe for concurrent use by independent scans.
type Finder struct {
	listings ListingSource
	stats    StatsSource
	names    domain.NameSupplier
	logger   *slog.Logger
	now      func() time.Time
}

// FinderConfig configures a Finder.
type FinderConfig struct {
	Listings ListingSource
	Stats    StatsSource
	Names    domain.NameSupplier
	Logger   *slog.Logger
}

// NewFinder creates a Finder from the given sources.
func NewFinder(cfg FinderConfig) *Finder {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Finder{
		listings: cfg.Listings,
		stats:    cfg.Stats,
		names:    cfg.Names,
		logger:   logger.With(slog.String("component", "offer_finder")),
		now:      time.Now,
	}
}

// BestOffers runs one full scan for the given filter and returns the ranked
// offers, grouped per (item, hq). A filter whose home world has no data center
// resolves to no valid scope; the scan returns an empty result without issuing
// any lookup. Repeated scans over an unchanged snapshot yield identical
// ordered output.
func (f *Finder) BestOffers(ctx context.Context, filter domain.OfferFilter) ([]domain.Offer, error) {
	filter = filter.Normalize()
	if filter.World.DataCenter == nil {
		f.logger.DebugContext(ctx, "home world has no data center, nothing to scan",
			slog.Int("world", int(filter.World.ID)),
		)
		return nil, nil
	}
	now := f.now()

	homeRows, err := f.stats.HomeRows(ctx, filter.World.ID, filter.MaxAge)
	if err != nil {
		return nil, fmt.Errorf("arbitrage: home stats rows for world %d: %w", filter.World.ID, err)
	}
	home := aggregateHome(homeRows, filter, now)
	if len(home) == 0 {
		return nil, nil
	}

	listings, err := f.listings.FreshCompeting(ctx, domain.ListingScope{
		Home:   filter.World,
		Target: filter.Target,
		MaxAge: filter.MaxAge,
	})
	if err != nil {
		return nil, fmt.Errorf("arbitrage: competing listings for world %d: %w", filter.World.ID, err)
	}

	competing := aggregateCompeting(listings, now, filter.MaxAge)
	effective := estimateEffective(home, competing)
	joined := joinListings(listings, home, effective, filter, now)
	ranked := rankListings(joined, filter.Limit)

	offers, err := f.assemble(ctx, filter, ranked)
	if err != nil {
		return nil, err
	}

	f.logger.InfoContext(ctx, "offer scan complete",
		slog.Int("world", int(filter.World.ID)),
		slog.Int("home_lines", len(home)),
		slog.Int("competing_listings", len(listings)),
		slog.Int("ranked_listings", len(ranked)),
		slog.Int("offers", len(offers)),
	)
	return offers, nil
}

// itemKey identifies one market line across worlds.
type itemKey struct {
	item int32
	hq   bool
}
