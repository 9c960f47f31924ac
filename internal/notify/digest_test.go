package notify

import (
	"strings"
	"testing"

	"github.com/alanyoungcy/flipbot/internal/domain"
)

func digestOffer(name string, hq bool, profit int64, world string) domain.Offer {
	return domain.Offer{
		Item: domain.Item{ID: 1, Name: name},
		HQ:   hq,
		Worlds: []domain.WorldListings{{
			World: domain.World{ID: 2, Name: world},
			Listings: []domain.RankedListing{{
				Listing:       domain.Listing{UnitPrice: 100, Quantity: 2},
				Profit:        profit,
				DisplayFactor: 2.5,
			}},
		}},
	}
}

func TestFormatOfferDigest(t *testing.T) {
	offers := []domain.Offer{
		digestOffer("Ash Lumber", true, 1500, "Odin"),
		digestOffer("Maple Log", false, 300, "Phoenix"),
	}

	title, message := FormatOfferDigest("Lich", offers)

	if title != "Lich: 2 flips found" {
		t.Errorf("title = %q", title)
	}
	lines := strings.Split(message, "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines:\n%s", len(lines), message)
	}
	if !strings.Contains(lines[0], "Ash Lumber (HQ)") || !strings.Contains(lines[0], "1,500g") {
		t.Errorf("first line = %q", lines[0])
	}
	if !strings.Contains(lines[1], "Maple Log:") || strings.Contains(lines[1], "(HQ)") {
		t.Errorf("second line = %q", lines[1])
	}
}

func TestFormatOfferDigestTruncates(t *testing.T) {
	var offers []domain.Offer
	for i := 0; i < 14; i++ {
		offers = append(offers, digestOffer("Item", false, int64(100+i), "Odin"))
	}

	_, message := FormatOfferDigest("Lich", offers)

	if !strings.Contains(message, "... and 4 more") {
		t.Errorf("missing truncation line:\n%s", message)
	}
	if got := strings.Count(message, "\n") + 1; got != digestMaxOffers+1 {
		t.Errorf("got %d lines, want %d", got, digestMaxOffers+1)
	}
}

func TestGilFormatting(t *testing.T) {
	cases := map[int64]string{
		0:       "0g",
		999:     "999g",
		1000:    "1,000g",
		1234567: "1,234,567g",
		-42000:  "-42,000g",
	}
	for in, want := range cases {
		if got := gil(in); got != want {
			t.Errorf("gil(%d) = %q, want %q", in, got, want)
		}
	}
}
