package domain

// RankedListing is a competing listing that survived the join, threshold, and
// ranking stages. Factor carries four decimal places internally; DisplayFactor
// is the two-decimal form reported to callers.
type RankedListing struct {
	Listing
	Item          Item
	Factor        float64
	DisplayFactor float64
	Profit        int64
	WorldRank     int
	GlobalRank    int
}

// WorldListings bundles one competing world's current stats with its
// qualifying listings for a single (item, hq) line. Listings keep the ranked
// order in which they left the ranker.
type WorldListings struct {
	World    World
	Stats    ItemStats
	Listings []RankedListing
}

// Offer is the final output unit of an offer scan: one (item, hq) pair with
// the home world's stats and the per-competing-world breakdown. Offers are
// built fresh per scan and never persisted. Worlds keeps insertion order,
// which follows the ranked listing order.
type Offer struct {
	Item   Item
	HQ     bool
	Home   ItemStats
	Worlds []WorldListings
}

// BestProfit returns the highest per-listing profit contained in the offer,
// or zero for an offer with no listings.
func (o Offer) BestProfit() int64 {
	var best int64
	for _, wl := range o.Worlds {
		for _, l := range wl.Listings {
			if l.Profit > best {
				best = l.Profit
			}
		}
	}
	return best
}
