package arbitrage

import (
	"time"

	"github.com/alanyoungcy/flipbot/internal/domain"
)

// homeLine is the home-world aggregate for one qualifying (item, hq) line.
// Sales is tracked as a weekly rolling total, so dividing by 7 estimates daily
// sell-through. Integer division, matching the stats schema.
type homeLine struct {
	unitPrice  int64
	dailySales int64
	dailyWin   int64
}

// competingLine aggregates all fresh competing listings for one (item, hq)
// line: cheapest and most expensive unit price, and total available quantity.
type competingLine struct {
	minPrice int64
	maxPrice int64
	volume   int64
}

// effectiveLine bounds the realistic profit for one line by the smaller of
// home demand and competing supply, at best-case and worst-case acquisition
// price.
type effectiveLine struct {
	maxProfit int64
	minProfit int64
}

// aggregateHome applies the home-side thresholds to the world's stats rows and
// derives daily sell-through per qualifying (item, hq) line. Every threshold
// is strict: a row exactly at a minimum does not qualify.
func aggregateHome(rows []domain.ItemStats, filter domain.OfferFilter, now time.Time) map[itemKey]homeLine {
	home := make(map[itemKey]homeLine)
	for _, s := range rows {
		if !s.Fresh(now, filter.MaxAge) {
			continue
		}
		if s.MinPrice <= filter.MinUnitPrice ||
			s.Popularity <= filter.MinPopularity ||
			s.MarketVolume <= filter.MinMarketVolume ||
			s.Interest <= filter.MinInterest ||
			s.Sales <= filter.MinSales ||
			s.Views <= filter.MinViews {
			continue
		}
		dailySales := s.Sales / 7
		home[itemKey{item: s.Item.ID, hq: s.HQ}] = homeLine{
			unitPrice:  s.MinPrice,
			dailySales: dailySales,
			dailyWin:   dailySales * s.MinPrice,
		}
	}
	return home
}

// aggregateCompeting groups fresh competing listings by (item, hq). A world
// with no fresh rows for a line contributes nothing to that group: absence,
// not a zero.
func aggregateCompeting(listings []domain.Listing, now time.Time, maxAge time.Duration) map[itemKey]competingLine {
	competing := make(map[itemKey]competingLine)
	for _, l := range listings {
		if !l.Fresh(now, maxAge) {
			continue
		}
		key := itemKey{item: l.ItemID, hq: l.HQ}
		line, ok := competing[key]
		if !ok {
			line = competingLine{minPrice: l.UnitPrice, maxPrice: l.UnitPrice}
		} else {
			if l.UnitPrice < line.minPrice {
				line.minPrice = l.UnitPrice
			}
			if l.UnitPrice > line.maxPrice {
				line.maxPrice = l.UnitPrice
			}
		}
		line.volume += l.Quantity
		competing[key] = line
	}
	return competing
}

// estimateEffective derives the profit bounds for every line present on both
// sides. cappedVolume is the smaller of home daily sell-through and total
// competing supply.
func estimateEffective(home map[itemKey]homeLine, competing map[itemKey]competingLine) map[itemKey]effectiveLine {
	effective := make(map[itemKey]effectiveLine, len(competing))
	for key, c := range competing {
		h, ok := home[key]
		if !ok {
			continue
		}
		capped := h.dailySales
		if c.volume < capped {
			capped = c.volume
		}
		effective[key] = effectiveLine{
			maxProfit: capped*h.unitPrice - capped*c.minPrice,
			minProfit: capped*h.unitPrice - capped*c.maxPrice,
		}
	}
	return effective
}
