package universalis

import (
	"testing"
	"time"

	"github.com/alanyoungcy/flipbot/internal/domain"
)

func TestListingsToDomain(t *testing.T) {
	world := domain.World{ID: 33, Name: "Twintania"}
	msg := &ListingsMessage{
		Event: "listings/add",
		World: 33,
		Item:  5057,
		Listings: []WireListing{
			{PricePerUnit: 100, Quantity: 3, Total: 300, HQ: true, LastReviewTime: 1_700_000_000},
			{PricePerUnit: 250, Quantity: 2, HQ: false, LastReviewTime: 1_700_000_100},
		},
	}

	got := ListingsToDomain(msg, world)
	if len(got) != 2 {
		t.Fatalf("got %d listings, want 2", len(got))
	}

	first := got[0]
	if first.World.ID != 33 || first.ItemID != 5057 || !first.HQ {
		t.Errorf("unexpected identity: %+v", first)
	}
	if first.UnitPrice != 100 || first.Quantity != 3 || first.Total != 300 {
		t.Errorf("unexpected amounts: %+v", first)
	}
	if want := time.Unix(1_700_000_000, 0).UTC(); !first.Updated.Equal(want) {
		t.Errorf("Updated = %v, want %v", first.Updated, want)
	}

	// Total absent on the wire falls back to unit price times quantity.
	if got[1].Total != 500 {
		t.Errorf("derived Total = %d, want 500", got[1].Total)
	}
}

func TestStatsToDomain(t *testing.T) {
	world := domain.World{ID: 33, Name: "Twintania"}
	msg := &StatsMessage{
		Event:         "stats/update",
		World:         33,
		Item:          5057,
		HQ:            true,
		Popularity:    7.5,
		Sales:         70,
		MinPrice:      1200,
		UnixTimestamp: 1_700_000_000,
	}

	got := StatsToDomain(msg, world)
	if got.World.ID != 33 || got.Item.ID != 5057 || !got.HQ {
		t.Errorf("unexpected identity: %+v", got)
	}
	if got.Popularity != 7.5 || got.Sales != 70 || got.MinPrice != 1200 {
		t.Errorf("unexpected values: %+v", got)
	}
	if want := time.Unix(1_700_000_000, 0).UTC(); !got.Updated.Equal(want) {
		t.Errorf("Updated = %v, want %v", got.Updated, want)
	}
}

func TestStatsToDomainMissingTimestamp(t *testing.T) {
	before := time.Now().UTC()
	got := StatsToDomain(&StatsMessage{World: 1, Item: 2}, domain.World{ID: 1})
	if got.Updated.Before(before) {
		t.Errorf("Updated = %v, want >= %v", got.Updated, before)
	}
}
