package arbitrage

import (
	"testing"

	"github.com/alanyoungcy/flipbot/internal/domain"
)

func joinedRow(world domain.World, item int32, unitPrice, profit int64) joined {
	return joined{
		listing: domain.Listing{
			World:     world,
			ItemID:    item,
			UnitPrice: unitPrice,
			Quantity:  1,
			Updated:   testNow,
		},
		factor: 2,
		profit: profit,
	}
}

func TestRankListings_WorldPartitionCap(t *testing.T) {
	// 15 listings from one world on one line: only the 10 best survive.
	var rows []joined
	for i := int64(0); i < 15; i++ {
		rows = append(rows, joinedRow(worldN, 42, 100+i, 1000-i*10))
	}

	kept := rankListings(rows, 0)
	if len(kept) != 10 {
		t.Fatalf("rankListings() kept %d rows, want 10", len(kept))
	}
	for i, rl := range kept {
		if rl.WorldRank != i+1 {
			t.Errorf("row %d world rank = %d, want %d", i, rl.WorldRank, i+1)
		}
	}
	if kept[0].Profit != 1000 {
		t.Errorf("top profit = %d, want 1000", kept[0].Profit)
	}
}

func TestRankListings_GlobalPartitionCap(t *testing.T) {
	// 12 worlds x 10 listings on one line: world ranks all pass, but the
	// global partition keeps only ranks below 100.
	var rows []joined
	profit := int64(100000)
	for w := int32(0); w < 12; w++ {
		world := domain.World{ID: 100 + w, DataCenter: testDC}
		for i := int64(0); i < 10; i++ {
			profit--
			rows = append(rows, joinedRow(world, 42, 50, profit))
		}
	}

	kept := rankListings(rows, 0)
	if len(kept) != 99 {
		t.Fatalf("rankListings() kept %d rows, want 99", len(kept))
	}
	for _, rl := range kept {
		if rl.GlobalRank >= 100 {
			t.Errorf("global rank %d survived, want < 100", rl.GlobalRank)
		}
		if rl.WorldRank > 10 {
			t.Errorf("world rank %d survived, want <= 10", rl.WorldRank)
		}
	}
}

func TestRankListings_TiesShareRank(t *testing.T) {
	rows := []joined{
		joinedRow(worldN, 42, 50, 500),
		joinedRow(worldN, 42, 60, 500),
		joinedRow(worldN, 42, 70, 400),
	}

	kept := rankListings(rows, 0)
	if len(kept) != 3 {
		t.Fatalf("rankListings() kept %d rows, want 3", len(kept))
	}
	if kept[0].WorldRank != 1 || kept[1].WorldRank != 1 {
		t.Errorf("tied rows ranks = %d, %d, want 1, 1", kept[0].WorldRank, kept[1].WorldRank)
	}
	// The next distinct profit skips past the tie.
	if kept[2].WorldRank != 3 {
		t.Errorf("post-tie rank = %d, want 3", kept[2].WorldRank)
	}
}

func TestRankListings_SortedByProfitAndLimited(t *testing.T) {
	rows := []joined{
		joinedRow(worldN, 42, 50, 300),
		joinedRow(worldO, 42, 50, 900),
		joinedRow(worldN, 43, 50, 600),
	}

	kept := rankListings(rows, 2)
	if len(kept) != 2 {
		t.Fatalf("rankListings() kept %d rows, want limit 2", len(kept))
	}
	if kept[0].Profit != 900 || kept[1].Profit != 600 {
		t.Errorf("profits = %d, %d, want 900, 600", kept[0].Profit, kept[1].Profit)
	}
}

func TestRound(t *testing.T) {
	cases := []struct {
		v      float64
		places int
		want   float64
	}{
		{1.500005, 4, 1.5},
		{1.500055, 4, 1.5001},
		{1.8182, 2, 1.82},
		{2.0, 4, 2.0},
	}
	for _, c := range cases {
		if got := round(c.v, c.places); got != c.want {
			t.Errorf("round(%v, %d) = %v, want %v", c.v, c.places, got, c.want)
		}
	}
}
