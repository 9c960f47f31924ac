package arbitrage

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/alanyoungcy/flipbot/internal/domain"
)

var (
	testDC = &domain.DataCenter{ID: 7, Name: "Light", Region: "Europe"}

	homeWorld = domain.World{ID: 1, Name: "Lich", DataCenter: testDC}
	worldN    = domain.World{ID: 2, Name: "Odin", DataCenter: testDC}
	worldO    = domain.World{ID: 3, Name: "Phoenix", DataCenter: testDC}
)

var testNow = time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)

type stubListings struct {
	listings []domain.Listing
	calls    int
}

func (s *stubListings) FreshCompeting(ctx context.Context, scope domain.ListingScope) ([]domain.Listing, error) {
	s.calls++
	return s.listings, nil
}

type stubStats struct {
	home      []domain.ItemStats
	points    map[statsKey]domain.ItemStats
	homeCalls int
	getCalls  int
}

func (s *stubStats) HomeRows(ctx context.Context, worldID int32, maxAge time.Duration) ([]domain.ItemStats, error) {
	s.homeCalls++
	return s.home, nil
}

func (s *stubStats) Get(ctx context.Context, worldID, itemID int32, hq bool) (domain.ItemStats, error) {
	s.getCalls++
	stats, ok := s.points[statsKey{world: worldID, item: itemID, hq: hq}]
	if !ok {
		return domain.ItemStats{}, domain.ErrNotFound
	}
	return stats, nil
}

type stubNames map[int32]string

func (s stubNames) Names(ctx context.Context, ids []int32) (map[int32]string, error) {
	out := make(map[int32]string, len(ids))
	for _, id := range ids {
		if name, ok := s[id]; ok {
			out[id] = name
		}
	}
	return out, nil
}

func homeStats(world domain.World, item int32, hq bool, minPrice, sales int64) domain.ItemStats {
	return domain.ItemStats{
		World:        world,
		Item:         domain.Item{ID: item},
		HQ:           hq,
		MarketVolume: 100,
		Interest:     3,
		Popularity:   5,
		Sales:        sales,
		Views:        10,
		MinPrice:     minPrice,
		AvgPrice:     float64(minPrice),
		ListingCount: 4,
		Updated:      testNow.Add(-5 * time.Minute),
	}
}

func listing(world domain.World, item int32, hq bool, unitPrice, quantity int64) domain.Listing {
	return domain.Listing{
		World:     world,
		ItemID:    item,
		HQ:        hq,
		UnitPrice: unitPrice,
		Quantity:  quantity,
		Total:     unitPrice * quantity,
		Updated:   testNow.Add(-time.Minute),
	}
}

func testFilter() domain.OfferFilter {
	return domain.OfferFilter{
		World:              homeWorld,
		Target:             domain.ScopeDataCenter,
		MaxAge:             time.Hour,
		MinFactor:          1.5,
		MinProfit:          100,
		MinEffectiveProfit: 0,
		Limit:              100,
	}
}

func newTestFinder(listings *stubListings, stats *stubStats, names domain.NameSupplier) *Finder {
	f := NewFinder(FinderConfig{Listings: listings, Stats: stats, Names: names})
	f.now = func() time.Time { return testNow }
	return f
}

func pointsFor(rows ...domain.ItemStats) map[statsKey]domain.ItemStats {
	points := make(map[statsKey]domain.ItemStats, len(rows))
	for _, s := range rows {
		points[statsKey{world: s.World.ID, item: s.Item.ID, hq: s.HQ}] = s
	}
	return points
}

func TestBestOffers_NoDataCenter(t *testing.T) {
	listings := &stubListings{}
	stats := &stubStats{}
	f := newTestFinder(listings, stats, stubNames{})

	filter := testFilter()
	filter.World = domain.World{ID: 9, Name: "Adrift"}

	offers, err := f.BestOffers(context.Background(), filter)
	if err != nil {
		t.Fatalf("BestOffers() error = %v", err)
	}
	if len(offers) != 0 {
		t.Errorf("BestOffers() = %d offers, want 0", len(offers))
	}
	if listings.calls != 0 || stats.homeCalls != 0 || stats.getCalls != 0 {
		t.Errorf("lookups issued for unresolved scope: listings=%d home=%d get=%d",
			listings.calls, stats.homeCalls, stats.getCalls)
	}
}

func TestBestOffers_Scenario(t *testing.T) {
	// Home item 42: unit price 100, weekly sales 70 -> daily sales 10.
	// Competing listing on world N: unit price 50, quantity 5.
	// factor = 2.0, profit = (100-50)*5 = 250, ranks 1/1.
	home := homeStats(homeWorld, 42, false, 100, 70)
	competing := homeStats(worldN, 42, false, 48, 35)
	stats := &stubStats{
		home:   []domain.ItemStats{home},
		points: pointsFor(home, competing),
	}
	listings := &stubListings{listings: []domain.Listing{listing(worldN, 42, false, 50, 5)}}
	f := newTestFinder(listings, stats, stubNames{42: "Dark Matter"})

	offers, err := f.BestOffers(context.Background(), testFilter())
	if err != nil {
		t.Fatalf("BestOffers() error = %v", err)
	}
	if len(offers) != 1 {
		t.Fatalf("BestOffers() = %d offers, want 1", len(offers))
	}

	offer := offers[0]
	if offer.Item.ID != 42 || offer.Item.Name != "Dark Matter" {
		t.Errorf("offer item = %+v, want id 42 name Dark Matter", offer.Item)
	}
	if offer.Home.World.ID != homeWorld.ID {
		t.Errorf("home stats world = %d, want %d", offer.Home.World.ID, homeWorld.ID)
	}
	if len(offer.Worlds) != 1 {
		t.Fatalf("offer worlds = %d, want 1", len(offer.Worlds))
	}

	wl := offer.Worlds[0]
	if wl.World.ID != worldN.ID {
		t.Errorf("competing world = %d, want %d", wl.World.ID, worldN.ID)
	}
	if wl.Stats.MinPrice != 48 {
		t.Errorf("competing stats min price = %d, want 48", wl.Stats.MinPrice)
	}
	if len(wl.Listings) != 1 {
		t.Fatalf("competing listings = %d, want 1", len(wl.Listings))
	}

	rl := wl.Listings[0]
	if rl.Factor != 2.0 {
		t.Errorf("factor = %v, want 2.0", rl.Factor)
	}
	if rl.DisplayFactor != 2.0 {
		t.Errorf("display factor = %v, want 2.0", rl.DisplayFactor)
	}
	if rl.Profit != 250 {
		t.Errorf("profit = %d, want 250", rl.Profit)
	}
	if rl.WorldRank != 1 || rl.GlobalRank != 1 {
		t.Errorf("ranks = %d/%d, want 1/1", rl.WorldRank, rl.GlobalRank)
	}
}

func TestBestOffers_MinProfitExcludes(t *testing.T) {
	home := homeStats(homeWorld, 42, false, 100, 70)
	stats := &stubStats{
		home:   []domain.ItemStats{home},
		points: pointsFor(home, homeStats(worldN, 42, false, 48, 35)),
	}
	listings := &stubListings{listings: []domain.Listing{listing(worldN, 42, false, 50, 5)}}
	f := newTestFinder(listings, stats, stubNames{})

	filter := testFilter()
	filter.MinProfit = 300

	offers, err := f.BestOffers(context.Background(), filter)
	if err != nil {
		t.Fatalf("BestOffers() error = %v", err)
	}
	if len(offers) != 0 {
		t.Errorf("BestOffers() = %d offers, want 0 with min profit 300", len(offers))
	}
}

func TestBestOffers_StaleCompetingListings(t *testing.T) {
	home := homeStats(homeWorld, 42, false, 100, 70)
	stats := &stubStats{
		home:   []domain.ItemStats{home},
		points: pointsFor(home, homeStats(worldN, 42, false, 48, 35)),
	}
	stale := listing(worldN, 42, false, 50, 5)
	stale.Updated = testNow.Add(-2 * time.Hour)
	listings := &stubListings{listings: []domain.Listing{stale}}
	f := newTestFinder(listings, stats, stubNames{})

	offers, err := f.BestOffers(context.Background(), testFilter())
	if err != nil {
		t.Fatalf("BestOffers() error = %v", err)
	}
	if len(offers) != 0 {
		t.Errorf("BestOffers() = %d offers, want 0 with only stale competing rows", len(offers))
	}
}

func TestBestOffers_EffectiveProfitGate(t *testing.T) {
	home := homeStats(homeWorld, 42, false, 100, 70)
	stats := &stubStats{
		home:   []domain.ItemStats{home},
		points: pointsFor(home, homeStats(worldN, 42, false, 48, 35)),
	}
	listings := &stubListings{listings: []domain.Listing{listing(worldN, 42, false, 50, 5)}}
	f := newTestFinder(listings, stats, stubNames{})

	// capped volume = min(10, 5) = 5, max effective profit = 5*100 - 5*50 = 250.
	filter := testFilter()
	filter.MinEffectiveProfit = 250

	offers, err := f.BestOffers(context.Background(), filter)
	if err != nil {
		t.Fatalf("BestOffers() error = %v", err)
	}
	if len(offers) != 0 {
		t.Errorf("BestOffers() = %d offers, want 0 when max effective profit does not exceed threshold", len(offers))
	}
}

func TestBestOffers_Idempotence(t *testing.T) {
	home42 := homeStats(homeWorld, 42, false, 100, 70)
	home43 := homeStats(homeWorld, 43, true, 900, 140)
	stats := &stubStats{
		home: []domain.ItemStats{home42, home43},
		points: pointsFor(
			home42, home43,
			homeStats(worldN, 42, false, 48, 35),
			homeStats(worldN, 43, true, 500, 14),
			homeStats(worldO, 42, false, 51, 21),
		),
	}
	listings := &stubListings{listings: []domain.Listing{
		listing(worldN, 42, false, 50, 5),
		listing(worldN, 42, false, 40, 3),
		listing(worldO, 42, false, 55, 9),
		listing(worldN, 43, true, 500, 2),
	}}
	f := newTestFinder(listings, stats, stubNames{42: "Dark Matter", 43: "Fire Cluster"})

	first, err := f.BestOffers(context.Background(), testFilter())
	if err != nil {
		t.Fatalf("BestOffers() error = %v", err)
	}
	second, err := f.BestOffers(context.Background(), testFilter())
	if err != nil {
		t.Fatalf("BestOffers() second run error = %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("repeated scans over unchanged snapshot differ:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestBestOffers_MinProfitMonotonicity(t *testing.T) {
	home := homeStats(homeWorld, 42, false, 100, 700)
	stats := &stubStats{
		home:   []domain.ItemStats{home},
		points: pointsFor(home, homeStats(worldN, 42, false, 48, 35), homeStats(worldO, 42, false, 51, 21)),
	}
	listings := &stubListings{listings: []domain.Listing{
		listing(worldN, 42, false, 50, 5),
		listing(worldN, 42, false, 40, 3),
		listing(worldO, 42, false, 30, 2),
		listing(worldO, 42, false, 60, 9),
	}}
	f := newTestFinder(listings, stats, stubNames{})

	countListings := func(minProfit int64) int {
		filter := testFilter()
		filter.MinFactor = 0
		filter.MinProfit = minProfit
		offers, err := f.BestOffers(context.Background(), filter)
		if err != nil {
			t.Fatalf("BestOffers(minProfit=%d) error = %v", minProfit, err)
		}
		n := 0
		for _, o := range offers {
			for _, wl := range o.Worlds {
				n += len(wl.Listings)
			}
		}
		return n
	}

	prev := countListings(0)
	for _, minProfit := range []int64{100, 200, 300, 1000} {
		n := countListings(minProfit)
		if n > prev {
			t.Errorf("raising min profit to %d grew result from %d to %d listings", minProfit, prev, n)
		}
		prev = n
	}
}

func TestBestOffers_MissingHomeStatsDropsGroup(t *testing.T) {
	home := homeStats(homeWorld, 42, false, 100, 70)
	stats := &stubStats{
		home: []domain.ItemStats{home},
		// Point lookup for the home line is absent even though the aggregate
		// row qualified; the group is dropped without error.
		points: pointsFor(homeStats(worldN, 42, false, 48, 35)),
	}
	listings := &stubListings{listings: []domain.Listing{listing(worldN, 42, false, 50, 5)}}
	f := newTestFinder(listings, stats, stubNames{})

	offers, err := f.BestOffers(context.Background(), testFilter())
	if err != nil {
		t.Fatalf("BestOffers() error = %v", err)
	}
	if len(offers) != 0 {
		t.Errorf("BestOffers() = %d offers, want 0 when home stats are absent", len(offers))
	}
}

func TestBestOffers_MissingWorldStatsFailsScan(t *testing.T) {
	home := homeStats(homeWorld, 42, false, 100, 70)
	stats := &stubStats{
		home:   []domain.ItemStats{home},
		points: pointsFor(home), // no stats for world N
	}
	listings := &stubListings{listings: []domain.Listing{listing(worldN, 42, false, 50, 5)}}
	f := newTestFinder(listings, stats, stubNames{})

	_, err := f.BestOffers(context.Background(), testFilter())
	if !errors.Is(err, domain.ErrWorldStatsMissing) {
		t.Fatalf("BestOffers() error = %v, want ErrWorldStatsMissing", err)
	}
}

func TestBestOffers_FactorRoundedBeforeThreshold(t *testing.T) {
	// Raw factor 1.500005 rounds to 1.5000 at four decimal places, which is
	// not strictly above the 1.5 threshold, so the listing is excluded even
	// though the unrounded ratio exceeds it.
	home := homeStats(homeWorld, 42, false, 300001, 70)
	stats := &stubStats{
		home:   []domain.ItemStats{home},
		points: pointsFor(home, homeStats(worldN, 42, false, 180000, 35)),
	}
	listings := &stubListings{listings: []domain.Listing{listing(worldN, 42, false, 200000, 5)}}
	f := newTestFinder(listings, stats, stubNames{})

	offers, err := f.BestOffers(context.Background(), testFilter())
	if err != nil {
		t.Fatalf("BestOffers() error = %v", err)
	}
	if len(offers) != 0 {
		t.Errorf("BestOffers() = %d offers, want 0 at rounded factor boundary", len(offers))
	}

	// One price step later the rounded factor is 1.5001 and the listing passes.
	home.MinPrice = 300011
	stats.home = []domain.ItemStats{home}
	stats.points = pointsFor(home, homeStats(worldN, 42, false, 180000, 35))

	offers, err = f.BestOffers(context.Background(), testFilter())
	if err != nil {
		t.Fatalf("BestOffers() error = %v", err)
	}
	if len(offers) != 1 {
		t.Fatalf("BestOffers() = %d offers, want 1 just above rounded boundary", len(offers))
	}
	if got := offers[0].Worlds[0].Listings[0].Factor; got != 1.5001 {
		t.Errorf("factor = %v, want 1.5001", got)
	}
}
