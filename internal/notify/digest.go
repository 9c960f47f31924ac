package notify

import (
	"fmt"
	"strings"

	"github.com/alanyoungcy/flipbot/internal/domain"
)

// digestMaxOffers caps how many offers one digest message lists.
const digestMaxOffers = 10

// Event types routed through the notifier. The notify.events configuration
// list selects which of these actually reach the senders.
const (
	// EventOffersFound is emitted after an offer scan that found at least
	// one offer.
	EventOffersFound = "offers_found"
	// EventFeedDown is emitted when the market feed listener gives up.
	EventFeedDown = "feed_down"
	// EventError is emitted for unclassified failures worth paging on.
	EventError = "error"
)

// FormatOfferDigest renders a scan result as a notification title and body.
// Offers are listed in scan order with their best flip per line; anything
// past the cap is summarised in a trailing line.
func FormatOfferDigest(homeWorld string, offers []domain.Offer) (title, message string) {
	title = fmt.Sprintf("%s: %d flips found", homeWorld, len(offers))

	var b strings.Builder
	shown := offers
	if len(shown) > digestMaxOffers {
		shown = shown[:digestMaxOffers]
	}

	for _, offer := range shown {
		best, world, ok := bestListing(offer)
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "%s%s: %s %s x%d, profit %s (x%.2f)\n",
			offer.Item.Name,
			hqTag(offer.HQ),
			world,
			gil(best.UnitPrice),
			best.Quantity,
			gil(best.Profit),
			best.DisplayFactor,
		)
	}

	if rest := len(offers) - len(shown); rest > 0 {
		fmt.Fprintf(&b, "... and %d more\n", rest)
	}

	return title, strings.TrimRight(b.String(), "\n")
}

// bestListing returns the highest-profit listing in the offer and the name of
// the world it sits on.
func bestListing(offer domain.Offer) (domain.RankedListing, string, bool) {
	var (
		best  domain.RankedListing
		world string
		found bool
	)
	for _, wl := range offer.Worlds {
		for _, l := range wl.Listings {
			if !found || l.Profit > best.Profit {
				best = l
				world = wl.World.Name
				found = true
			}
		}
	}
	return best, world, found
}

func hqTag(hq bool) string {
	if hq {
		return " (HQ)"
	}
	return ""
}

// gil renders an amount with thousands separators, e.g. 1234567 -> "1,234,567g".
func gil(v int64) string {
	s := fmt.Sprintf("%d", v)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}

	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}

	out := b.String() + "g"
	if neg {
		out = "-" + out
	}
	return out
}
