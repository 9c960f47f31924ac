package ingest

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alanyoungcy/flipbot/internal/domain"
	"github.com/alanyoungcy/flipbot/internal/platform/universalis"
)

type recordingListingStore struct {
	domain.ListingStore

	worldID  int32
	itemID   int32
	listings []domain.Listing
	calls    int
}

func (s *recordingListingStore) ReplaceSnapshot(ctx context.Context, worldID, itemID int32, listings []domain.Listing, updated time.Time) error {
	s.worldID = worldID
	s.itemID = itemID
	s.listings = listings
	s.calls++
	return nil
}

type recordingStatsStore struct {
	domain.StatsStore

	last  domain.ItemStats
	calls int
}

func (s *recordingStatsStore) Upsert(ctx context.Context, stats domain.ItemStats) error {
	s.last = stats
	s.calls++
	return nil
}

type recordingItemStore struct {
	domain.ItemStore

	names map[int32]string
}

func (s *recordingItemStore) UpsertNames(ctx context.Context, items []domain.Item) error {
	if s.names == nil {
		s.names = map[int32]string{}
	}
	for _, it := range items {
		s.names[it.ID] = it.Name
	}
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestListener(listings *recordingListingStore, stats *recordingStatsStore, items *recordingItemStore) *Listener {
	worlds := []domain.World{{ID: 33, Name: "Twintania"}}
	return NewListener("wss://example.test/ws", worlds, listings, stats, items, nil, 0, testLogger())
}

func TestHandleListingsReplacesSnapshot(t *testing.T) {
	listings := &recordingListingStore{}
	items := &recordingItemStore{}
	l := newTestListener(listings, &recordingStatsStore{}, items)

	l.handleListings(universalis.ListingsMessage{
		Event:    "listings/add",
		World:    33,
		Item:     5057,
		ItemName: "Ash Lumber",
		Listings: []universalis.WireListing{
			{PricePerUnit: 100, Quantity: 2, HQ: true, LastReviewTime: 1_700_000_000},
		},
	})

	if listings.calls != 1 {
		t.Fatalf("ReplaceSnapshot calls = %d, want 1", listings.calls)
	}
	if listings.worldID != 33 || listings.itemID != 5057 {
		t.Errorf("snapshot identity = (%d, %d), want (33, 5057)", listings.worldID, listings.itemID)
	}
	if len(listings.listings) != 1 || listings.listings[0].UnitPrice != 100 {
		t.Errorf("unexpected listings: %+v", listings.listings)
	}
	if got := items.names[5057]; got != "Ash Lumber" {
		t.Errorf("item name = %q, want %q", got, "Ash Lumber")
	}
}

func TestHandleListingsIgnoresUnknownWorld(t *testing.T) {
	listings := &recordingListingStore{}
	l := newTestListener(listings, &recordingStatsStore{}, &recordingItemStore{})

	l.handleListings(universalis.ListingsMessage{World: 999, Item: 5057})

	if listings.calls != 0 {
		t.Errorf("ReplaceSnapshot calls = %d, want 0 for unknown world", listings.calls)
	}
}

func TestHandleStatsUpserts(t *testing.T) {
	stats := &recordingStatsStore{}
	l := newTestListener(&recordingListingStore{}, stats, &recordingItemStore{})

	l.handleStats(universalis.StatsMessage{
		Event:    "stats/update",
		World:    33,
		Item:     5057,
		HQ:       true,
		Sales:    70,
		MinPrice: 1200,
	})

	if stats.calls != 1 {
		t.Fatalf("Upsert calls = %d, want 1", stats.calls)
	}
	if stats.last.World.ID != 33 || stats.last.Item.ID != 5057 || !stats.last.HQ {
		t.Errorf("unexpected stats identity: %+v", stats.last)
	}
}

type stubWorldSource struct {
	worlds []domain.World
}

func (s *stubWorldSource) WorldsWithDataCenters(ctx context.Context) ([]domain.World, error) {
	return s.worlds, nil
}

type recordingWorldStore struct {
	domain.WorldStore

	upserted []domain.World
}

func (s *recordingWorldStore) Upsert(ctx context.Context, w domain.World) error {
	s.upserted = append(s.upserted, w)
	return nil
}

func TestWorldSyncUpsertsAllWorlds(t *testing.T) {
	dc := &domain.DataCenter{ID: 1, Name: "Light", Region: "Europe"}
	source := &stubWorldSource{worlds: []domain.World{
		{ID: 33, Name: "Twintania", DataCenter: dc},
		{ID: 999, Name: "Unassigned"},
	}}
	store := &recordingWorldStore{}

	sync := NewWorldSync(source, store, testLogger())
	if err := sync.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(store.upserted) != 2 {
		t.Fatalf("upserted %d worlds, want 2", len(store.upserted))
	}
	if store.upserted[1].DataCenter != nil {
		t.Errorf("unassigned world kept a data center: %+v", store.upserted[1])
	}
}
