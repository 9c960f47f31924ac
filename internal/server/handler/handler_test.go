package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alanyoungcy/flipbot/internal/domain"
	"github.com/alanyoungcy/flipbot/internal/service"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubScanner struct {
	result service.ScanResult
	err    error
}

func (s *stubScanner) ScanForUser(ctx context.Context, userID string) (service.ScanResult, error) {
	return s.result, s.err
}

func scanFixture() service.ScanResult {
	return service.ScanResult{
		ScanID:   "scan-1",
		World:    domain.World{ID: 1, Name: "Lich"},
		Duration: 120 * time.Millisecond,
		Offers: []domain.Offer{{
			Item: domain.Item{ID: 5057, Name: "Ash Lumber"},
			HQ:   true,
			Home: domain.ItemStats{MinPrice: 500},
			Worlds: []domain.WorldListings{{
				World: domain.World{ID: 2, Name: "Odin"},
				Stats: domain.ItemStats{MinPrice: 200},
				Listings: []domain.RankedListing{{
					Listing:       domain.Listing{UnitPrice: 200, Quantity: 2, Total: 400},
					Profit:        600,
					DisplayFactor: 2.5,
					WorldRank:     1,
					GlobalRank:    1,
				}},
			}},
		}},
	}
}

func TestOfferScan(t *testing.T) {
	h := NewOfferHandler(&stubScanner{result: scanFixture()}, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/offers?user=u1", nil)
	rec := httptest.NewRecorder()
	h.Scan(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp scanResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.ScanID != "scan-1" || resp.World != "Lich" {
		t.Errorf("unexpected envelope: %+v", resp)
	}
	if len(resp.Offers) != 1 {
		t.Fatalf("offers = %d, want 1", len(resp.Offers))
	}
	offer := resp.Offers[0]
	if offer.ItemName != "Ash Lumber" || !offer.HQ || offer.BestProfit != 600 {
		t.Errorf("unexpected offer: %+v", offer)
	}
	if len(offer.Worlds) != 1 || offer.Worlds[0].Listings[0].Factor != 2.5 {
		t.Errorf("unexpected worlds: %+v", offer.Worlds)
	}
}

func TestOfferScanMissingUser(t *testing.T) {
	h := NewOfferHandler(&stubScanner{}, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/offers", nil)
	rec := httptest.NewRecorder()
	h.Scan(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestOfferScanIncompleteStats(t *testing.T) {
	err := fmt.Errorf("scan: %w", domain.ErrWorldStatsMissing)
	h := NewOfferHandler(&stubScanner{err: err}, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/offers?user=u1", nil)
	rec := httptest.NewRecorder()
	h.Scan(rec, req)

	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
}

type stubFilterService struct {
	filter domain.OfferFilter
	getErr error
	saved  *domain.OfferFilter
	svErr  error
}

func (s *stubFilterService) FilterFor(ctx context.Context, userID string) (domain.OfferFilter, error) {
	return s.filter, s.getErr
}

func (s *stubFilterService) SaveFilter(ctx context.Context, userID string, filter domain.OfferFilter) error {
	if s.svErr != nil {
		return s.svErr
	}
	s.saved = &filter
	return nil
}

func filterFixture() domain.OfferFilter {
	return domain.OfferFilter{
		World:     domain.World{ID: 1, Name: "Lich"},
		Target:    domain.ScopeDataCenter,
		MaxAge:    time.Hour,
		MinFactor: 1.5,
		MinProfit: 100,
		Limit:     100,
	}
}

func TestGetFilter(t *testing.T) {
	h := NewFilterHandler(&stubFilterService{filter: filterFixture()}, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/filters/u1", nil)
	req.SetPathValue("user", "u1")
	rec := httptest.NewRecorder()
	h.GetFilter(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var payload filterPayload
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.WorldID != 1 || payload.MaxAgeSeconds != 3600 || payload.Target != "data_center" {
		t.Errorf("unexpected payload: %+v", payload)
	}
}

func TestPutFilter(t *testing.T) {
	svc := &stubFilterService{filter: filterFixture()}
	h := NewFilterHandler(svc, testLogger())

	body := `{"world_id":1,"target":"region","max_age_seconds":1800,"min_factor":2,"min_profit":500}`
	req := httptest.NewRequest(http.MethodPut, "/api/filters/u1", strings.NewReader(body))
	req.SetPathValue("user", "u1")
	rec := httptest.NewRecorder()
	h.PutFilter(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if svc.saved == nil {
		t.Fatal("filter not saved")
	}
	if svc.saved.Target != domain.ScopeRegion || svc.saved.MaxAge != 30*time.Minute {
		t.Errorf("unexpected saved filter: %+v", svc.saved)
	}
}

func TestPutFilterInvalid(t *testing.T) {
	svc := &stubFilterService{svErr: fmt.Errorf("service: %w: limit", domain.ErrInvalidFilter)}
	h := NewFilterHandler(svc, testLogger())

	req := httptest.NewRequest(http.MethodPut, "/api/filters/u1", strings.NewReader(`{"world_id":1}`))
	req.SetPathValue("user", "u1")
	rec := httptest.NewRecorder()
	h.PutFilter(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

type stubWorldLister struct {
	worlds []domain.World
}

func (s *stubWorldLister) List(ctx context.Context) ([]domain.World, error) {
	return s.worlds, nil
}

func TestListWorlds(t *testing.T) {
	dc := &domain.DataCenter{ID: 1, Name: "Light", Region: "Europe"}
	h := NewWorldHandler(&stubWorldLister{worlds: []domain.World{
		{ID: 1, Name: "Lich", DataCenter: dc},
		{ID: 99, Name: "Unassigned"},
	}}, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/worlds", nil)
	rec := httptest.NewRecorder()
	h.ListWorlds(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Worlds []worldInfo `json:"worlds"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Worlds) != 2 {
		t.Fatalf("worlds = %d, want 2", len(resp.Worlds))
	}
	if resp.Worlds[0].DataCenter != "Light" || resp.Worlds[1].DataCenter != "" {
		t.Errorf("unexpected worlds: %+v", resp.Worlds)
	}
}

func TestTriggerArchive(t *testing.T) {
	ch := make(chan struct{}, 1)
	h := NewArchiveHandler(testLogger()).WithTriggerChannel(ch)

	req := httptest.NewRequest(http.MethodPost, "/api/archive/trigger", nil)
	rec := httptest.NewRecorder()
	h.TriggerArchive(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Errorf("status = %d, want 202", rec.Code)
	}
	select {
	case <-ch:
	default:
		t.Error("trigger not enqueued")
	}
}
