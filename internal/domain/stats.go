package domain

import "time"

// ItemStats is the current aggregate market snapshot for one (world, item, hq)
// line. It is a single snapshot, not a time series; Sales is a weekly rolling
// total.
type ItemStats struct {
	World        World
	Item         Item
	HQ           bool
	MarketVolume float64
	Interest     float64
	Popularity   float64
	Sales        int64
	Views        int64
	MinPrice     int64
	AvgPrice     float64
	ListingCount int64
	Updated      time.Time
	MinSales     float64
	MaxSales     float64
	AvgSales     float64
}

// Fresh reports whether the stats snapshot was updated within maxAge of now.
func (s ItemStats) Fresh(now time.Time, maxAge time.Duration) bool {
	return now.Sub(s.Updated) <= maxAge
}
