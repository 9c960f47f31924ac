package arbitrage

import (
	"sort"

	"github.com/alanyoungcy/flipbot/internal/domain"
)

const (
	// maxWorldRank caps how many listings from a single competing world can
	// dominate one line's results.
	maxWorldRank = 10
	// maxGlobalRank caps total listings per line across all competing worlds.
	// The cutoff is exclusive: rank 100 is already out.
	maxGlobalRank = 100
)

// worldKey identifies one market line within a single competing world.
type worldKey struct {
	world int32
	item  int32
	hq    bool
}

// rankState tracks standard RANK() assignment within one partition: equal
// profits share a rank, the next distinct profit skips past them.
type rankState struct {
	seen       int
	lastProfit int64
	lastRank   int
}

func (s *rankState) next(profit int64) int {
	s.seen++
	if s.seen == 1 || profit != s.lastProfit {
		s.lastRank = s.seen
	}
	s.lastProfit = profit
	return s.lastRank
}

// rankListings assigns both rank numbers to every joined row, keeps only rows
// top-ranked under both partitions, and truncates to limit. Highest profit is
// rank 1. The sort is given a total order so repeated scans over an unchanged
// snapshot produce identical output.
func rankListings(rows []joined, limit int) []domain.RankedListing {
	if len(rows) == 0 {
		return nil
	}

	sorted := make([]joined, len(rows))
	copy(sorted, rows)
	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.profit != b.profit {
			return a.profit > b.profit
		}
		if a.listing.World.ID != b.listing.World.ID {
			return a.listing.World.ID < b.listing.World.ID
		}
		if a.listing.ItemID != b.listing.ItemID {
			return a.listing.ItemID < b.listing.ItemID
		}
		if a.listing.HQ != b.listing.HQ {
			return !a.listing.HQ
		}
		if a.listing.UnitPrice != b.listing.UnitPrice {
			return a.listing.UnitPrice < b.listing.UnitPrice
		}
		return a.listing.Quantity < b.listing.Quantity
	})

	worldParts := make(map[worldKey]*rankState)
	globalParts := make(map[itemKey]*rankState)

	var kept []domain.RankedListing
	for _, row := range sorted {
		wk := worldKey{world: row.listing.World.ID, item: row.listing.ItemID, hq: row.listing.HQ}
		gk := itemKey{item: row.listing.ItemID, hq: row.listing.HQ}

		ws, ok := worldParts[wk]
		if !ok {
			ws = &rankState{}
			worldParts[wk] = ws
		}
		gs, ok := globalParts[gk]
		if !ok {
			gs = &rankState{}
			globalParts[gk] = gs
		}

		worldRank := ws.next(row.profit)
		globalRank := gs.next(row.profit)
		if worldRank > maxWorldRank || globalRank >= maxGlobalRank {
			continue
		}

		kept = append(kept, domain.RankedListing{
			Listing:       row.listing,
			Factor:        row.factor,
			DisplayFactor: round(row.factor, 2),
			Profit:        row.profit,
			WorldRank:     worldRank,
			GlobalRank:    globalRank,
		})
	}

	if limit > 0 && len(kept) > limit {
		kept = kept[:limit]
	}
	return kept
}
