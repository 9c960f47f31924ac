package arbitrage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/flipbot/internal/domain"
)

// assembleConcurrency bounds the stats lookup fan-out. The lookups are
// independent point reads with no ordering dependency on one another.
const assembleConcurrency = 8

// statsKey identifies one stats point lookup.
type statsKey struct {
	world int32
	item  int32
	hq    bool
}

// offerGroup accumulates the ranked listings of one (item, hq) line, keyed by
// competing world. Both levels keep first-appearance order, which follows the
// ranked listing order.
type offerGroup struct {
	key        itemKey
	worldOrder []int32
	worlds     map[int32]*domain.WorldListings
}

// assemble groups the ranker's output by (hq, item) and resolves the stats for
// the home world and every competing world that appears. A group whose home
// stats are absent is dropped: nothing to report for that line. A competing
// world whose stats are absent fails the whole scan with ErrWorldStatsMissing;
// a partial offer would silently misstate that world's market.
func (f *Finder) assemble(ctx context.Context, filter domain.OfferFilter, ranked []domain.RankedListing) ([]domain.Offer, error) {
	if len(ranked) == 0 {
		return nil, nil
	}

	var order []itemKey
	groups := make(map[itemKey]*offerGroup)
	for _, rl := range ranked {
		key := itemKey{item: rl.ItemID, hq: rl.HQ}
		g, ok := groups[key]
		if !ok {
			g = &offerGroup{key: key, worlds: make(map[int32]*domain.WorldListings)}
			groups[key] = g
			order = append(order, key)
		}
		wl, ok := g.worlds[rl.World.ID]
		if !ok {
			wl = &domain.WorldListings{World: rl.World}
			g.worlds[rl.World.ID] = wl
			g.worldOrder = append(g.worldOrder, rl.World.ID)
		}
		wl.Listings = append(wl.Listings, rl)
	}

	stats, err := f.fetchStats(ctx, filter, order, groups)
	if err != nil {
		return nil, err
	}

	names, err := f.fetchNames(ctx, order)
	if err != nil {
		return nil, err
	}

	var offers []domain.Offer
	for _, key := range order {
		g := groups[key]

		home, ok := stats[statsKey{world: filter.World.ID, item: key.item, hq: key.hq}]
		if !ok {
			f.logger.DebugContext(ctx, "no home stats for line, dropping group",
				slog.Int("item", int(key.item)),
				slog.Bool("hq", key.hq),
			)
			continue
		}

		item := domain.Item{ID: key.item, Name: names[key.item]}
		offer := domain.Offer{
			Item: item,
			HQ:   key.hq,
			Home: withItem(home, item),
		}
		for _, worldID := range g.worldOrder {
			wl := g.worlds[worldID]
			ws, ok := stats[statsKey{world: worldID, item: key.item, hq: key.hq}]
			if !ok {
				return nil, fmt.Errorf("arbitrage: world %d item %d hq %t: %w",
					worldID, key.item, key.hq, domain.ErrWorldStatsMissing)
			}
			listings := make([]domain.RankedListing, len(wl.Listings))
			for i, rl := range wl.Listings {
				rl.Item = item
				listings[i] = rl
			}
			offer.Worlds = append(offer.Worlds, domain.WorldListings{
				World:    wl.World,
				Stats:    withItem(ws, item),
				Listings: listings,
			})
		}
		offers = append(offers, offer)
	}
	return offers, nil
}

// fetchStats resolves every distinct stats point lookup the groups need, home
// world included, with a bounded concurrent fan-out. Absent rows are recorded
// as absence; store failures abort the scan.
func (f *Finder) fetchStats(ctx context.Context, filter domain.OfferFilter, order []itemKey, groups map[itemKey]*offerGroup) (map[statsKey]domain.ItemStats, error) {
	var keys []statsKey
	seen := make(map[statsKey]bool)
	add := func(k statsKey) {
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	for _, key := range order {
		add(statsKey{world: filter.World.ID, item: key.item, hq: key.hq})
		for _, worldID := range groups[key].worldOrder {
			add(statsKey{world: worldID, item: key.item, hq: key.hq})
		}
	}

	var mu sync.Mutex
	results := make(map[statsKey]domain.ItemStats, len(keys))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(assembleConcurrency)
	for _, k := range keys {
		g.Go(func() error {
			s, err := f.stats.Get(gctx, k.world, k.item, k.hq)
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					return nil
				}
				return fmt.Errorf("arbitrage: stats lookup world %d item %d hq %t: %w",
					k.world, k.item, k.hq, err)
			}
			mu.Lock()
			results[k] = s
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// fetchNames resolves display names for every item in the result set. Name
// resolution is best-effort: an item missing from the supplier keeps an empty
// name.
func (f *Finder) fetchNames(ctx context.Context, order []itemKey) (map[int32]string, error) {
	if f.names == nil {
		return nil, nil
	}
	var ids []int32
	seen := make(map[int32]bool)
	for _, key := range order {
		if !seen[key.item] {
			seen[key.item] = true
			ids = append(ids, key.item)
		}
	}
	names, err := f.names.Names(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("arbitrage: resolve item names: %w", err)
	}
	return names, nil
}

func withItem(s domain.ItemStats, item domain.Item) domain.ItemStats {
	s.Item = item
	return s
}
