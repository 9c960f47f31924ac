package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alanyoungcy/flipbot/internal/domain"
)

var (
	testDC   = &domain.DataCenter{ID: 1, Name: "Light", Region: "Europe"}
	testHome = domain.World{ID: 1, Name: "Lich", DataCenter: testDC}
)

type stubFinder struct {
	offers []domain.Offer
	err    error
	filter domain.OfferFilter
	calls  int
}

func (f *stubFinder) BestOffers(ctx context.Context, filter domain.OfferFilter) ([]domain.Offer, error) {
	f.filter = filter
	f.calls++
	return f.offers, f.err
}

type stubFilterStore struct {
	filters map[string]domain.OfferFilter
	saved   map[string]domain.OfferFilter
}

func (s *stubFilterStore) Get(ctx context.Context, userID string) (domain.OfferFilter, error) {
	f, ok := s.filters[userID]
	if !ok {
		return domain.OfferFilter{}, domain.ErrNotFound
	}
	return f, nil
}

func (s *stubFilterStore) Upsert(ctx context.Context, userID string, filter domain.OfferFilter) error {
	if s.saved == nil {
		s.saved = map[string]domain.OfferFilter{}
	}
	s.saved[userID] = filter
	return nil
}

type stubWorldStore struct {
	worlds map[int32]domain.World
}

func (s *stubWorldStore) Get(ctx context.Context, id int32) (domain.World, error) {
	w, ok := s.worlds[id]
	if !ok {
		return domain.World{}, domain.ErrNotFound
	}
	return w, nil
}

func (s *stubWorldStore) List(ctx context.Context) ([]domain.World, error) {
	var out []domain.World
	for _, w := range s.worlds {
		out = append(out, w)
	}
	return out, nil
}

func (s *stubWorldStore) Upsert(ctx context.Context, world domain.World) error {
	s.worlds[world.ID] = world
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func defaultsFilter() domain.OfferFilter {
	return domain.OfferFilter{
		World:     testHome,
		Target:    domain.ScopeDataCenter,
		MaxAge:    time.Hour,
		MinFactor: 1.5,
		MinProfit: 100,
		Limit:     100,
	}
}

func newTestService(finder *stubFinder, filters *stubFilterStore) *OfferService {
	worlds := &stubWorldStore{worlds: map[int32]domain.World{1: testHome}}
	return NewOfferService(finder, filters, worlds, nil, defaultsFilter(), testLogger())
}

func TestScanForUserUsesStoredFilter(t *testing.T) {
	finder := &stubFinder{}
	stored := defaultsFilter()
	stored.MinProfit = 9999
	filters := &stubFilterStore{filters: map[string]domain.OfferFilter{"u1": stored}}

	result, err := newTestService(finder, filters).ScanForUser(context.Background(), "u1")
	if err != nil {
		t.Fatalf("ScanForUser: %v", err)
	}

	if finder.calls != 1 {
		t.Fatalf("finder calls = %d, want 1", finder.calls)
	}
	if finder.filter.MinProfit != 9999 {
		t.Errorf("MinProfit = %d, want stored 9999", finder.filter.MinProfit)
	}
	if result.ScanID == "" {
		t.Error("scan ID not assigned")
	}
	if result.World.ID != 1 {
		t.Errorf("result world = %+v", result.World)
	}
}

func TestScanForUserFallsBackToDefaults(t *testing.T) {
	finder := &stubFinder{}
	filters := &stubFilterStore{}

	if _, err := newTestService(finder, filters).ScanForUser(context.Background(), "nobody"); err != nil {
		t.Fatalf("ScanForUser: %v", err)
	}
	if finder.filter.MinFactor != 1.5 || finder.filter.MinProfit != 100 {
		t.Errorf("defaults not applied: %+v", finder.filter)
	}
}

func TestScanRefreshesWorldTopology(t *testing.T) {
	finder := &stubFinder{}
	svc := newTestService(finder, &stubFilterStore{})

	// A stored filter carries only the world ID.
	filter := defaultsFilter()
	filter.World = domain.World{ID: 1}

	if _, err := svc.Scan(context.Background(), filter); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if finder.filter.World.DataCenter == nil || finder.filter.World.DataCenter.Name != "Light" {
		t.Errorf("world topology not refreshed: %+v", finder.filter.World)
	}
}

func TestScanUnknownWorldFails(t *testing.T) {
	svc := newTestService(&stubFinder{}, &stubFilterStore{})

	filter := defaultsFilter()
	filter.World = domain.World{ID: 404}

	if _, err := svc.Scan(context.Background(), filter); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestScanPropagatesFinderError(t *testing.T) {
	wantErr := errors.New("stats gone")
	finder := &stubFinder{err: wantErr}

	_, err := newTestService(finder, &stubFilterStore{}).Scan(context.Background(), defaultsFilter())
	if !errors.Is(err, wantErr) {
		t.Errorf("error = %v, want wrapped %v", err, wantErr)
	}
}

func TestSaveFilterValidatesAndResolvesWorld(t *testing.T) {
	filters := &stubFilterStore{}
	svc := newTestService(&stubFinder{}, filters)

	filter := domain.OfferFilter{World: domain.World{ID: 1}, MaxAge: time.Hour}
	if err := svc.SaveFilter(context.Background(), "u1", filter); err != nil {
		t.Fatalf("SaveFilter: %v", err)
	}

	saved, ok := filters.saved["u1"]
	if !ok {
		t.Fatal("filter not persisted")
	}
	if saved.World.Name != "Lich" {
		t.Errorf("world not resolved: %+v", saved.World)
	}
	if saved.Target != domain.ScopeDataCenter || saved.Limit != domain.DefaultFilterLimit {
		t.Errorf("filter not normalized: %+v", saved)
	}
}

func TestSaveFilterRejectsInvalid(t *testing.T) {
	svc := newTestService(&stubFinder{}, &stubFilterStore{})

	filter := domain.OfferFilter{MinFactor: -1}
	if err := svc.SaveFilter(context.Background(), "u1", filter); err == nil {
		t.Error("invalid filter accepted")
	}
}
