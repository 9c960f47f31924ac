package arbitrage

import (
	"math"
	"time"

	"github.com/alanyoungcy/flipbot/internal/domain"
)

// joined is one competing listing matched against its home line, before
// ranking. factor carries four decimal places; the two-decimal display form is
// attached after ranking.
type joined struct {
	listing domain.Listing
	factor  float64
	profit  int64
}

// round rounds v to the given number of decimal places.
func round(v float64, places int) float64 {
	scale := math.Pow10(places)
	return math.Round(v*scale) / scale
}

// joinListings matches every fresh competing listing to its home line and
// applies the listing-level gates. The factor is rounded to four decimal
// places before the threshold comparison. The effective-profit gate uses the
// group-level bound, so every listing of a line shares the same outcome on it.
// A home line with no competing group simply produces no rows; that is
// expected, not an error.
func joinListings(
	listings []domain.Listing,
	home map[itemKey]homeLine,
	effective map[itemKey]effectiveLine,
	filter domain.OfferFilter,
	now time.Time,
) []joined {
	var rows []joined
	for _, l := range listings {
		if !l.Fresh(now, filter.MaxAge) || l.UnitPrice <= 0 {
			continue
		}
		key := itemKey{item: l.ItemID, hq: l.HQ}
		h, ok := home[key]
		if !ok {
			continue
		}
		eff, ok := effective[key]
		if !ok {
			continue
		}

		factor := round(float64(h.unitPrice)/float64(l.UnitPrice), 4)
		profit := (h.unitPrice - l.UnitPrice) * l.Quantity

		if factor <= filter.MinFactor {
			continue
		}
		if profit <= filter.MinProfit {
			continue
		}
		if eff.maxProfit <= filter.MinEffectiveProfit {
			continue
		}

		rows = append(rows, joined{listing: l, factor: factor, profit: profit})
	}
	return rows
}
