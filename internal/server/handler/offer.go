package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/flipbot/internal/domain"
	"github.com/alanyoungcy/flipbot/internal/service"
)

// OfferScanner defines the scan surface the offer handler requires from the
// service layer. It is declared locally so the handler package does not depend
// on the concrete service implementation.
type OfferScanner interface {
	ScanForUser(ctx context.Context, userID string) (service.ScanResult, error)
}

// OfferHandler serves offer scan endpoints.
type OfferHandler struct {
	offers OfferScanner
	logger *slog.Logger
}

// NewOfferHandler creates an OfferHandler with the given service and logger.
func NewOfferHandler(offers OfferScanner, logger *slog.Logger) *OfferHandler {
	return &OfferHandler{
		offers: offers,
		logger: logger,
	}
}

// listingPayload is one ranked competing listing in the API response.
type listingPayload struct {
	UnitPrice  int64     `json:"unit_price"`
	Quantity   int64     `json:"quantity"`
	Total      int64     `json:"total"`
	Profit     int64     `json:"profit"`
	Factor     float64   `json:"factor"`
	WorldRank  int       `json:"world_rank"`
	GlobalRank int       `json:"global_rank"`
	Updated    time.Time `json:"updated"`
}

// worldPayload groups one competing world's listings.
type worldPayload struct {
	WorldID  int32            `json:"world_id"`
	World    string           `json:"world"`
	MinPrice int64            `json:"min_price"`
	Listings []listingPayload `json:"listings"`
}

// offerPayload is one (item, hq) offer in the API response.
type offerPayload struct {
	ItemID        int32          `json:"item_id"`
	ItemName      string         `json:"item_name,omitempty"`
	HQ            bool           `json:"hq"`
	HomeUnitPrice int64          `json:"home_unit_price"`
	BestProfit    int64          `json:"best_profit"`
	Worlds        []worldPayload `json:"worlds"`
}

// scanResponse wraps a full scan result.
type scanResponse struct {
	ScanID     string         `json:"scan_id"`
	World      string         `json:"world"`
	DurationMs int64          `json:"duration_ms"`
	Offers     []offerPayload `json:"offers"`
}

// Scan runs an offer scan with the user's filter profile.
// GET /api/offers?user=<id>
func (h *OfferHandler) Scan(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "missing user parameter")
		return
	}

	result, err := h.offers.ScanForUser(r.Context(), userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "home world not found")
			return
		}
		if errors.Is(err, domain.ErrWorldStatsMissing) {
			h.logger.ErrorContext(r.Context(), "handler: scan aborted on missing world stats",
				slog.String("user", userID),
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusConflict, "market statistics incomplete, retry after ingest catches up")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: offer scan failed",
			slog.String("user", userID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "offer scan failed")
		return
	}

	writeJSON(w, http.StatusOK, toScanResponse(result))
}

func toScanResponse(result service.ScanResult) scanResponse {
	offers := make([]offerPayload, 0, len(result.Offers))
	for _, offer := range result.Offers {
		worlds := make([]worldPayload, 0, len(offer.Worlds))
		for _, wl := range offer.Worlds {
			listings := make([]listingPayload, 0, len(wl.Listings))
			for _, l := range wl.Listings {
				listings = append(listings, listingPayload{
					UnitPrice:  l.UnitPrice,
					Quantity:   l.Quantity,
					Total:      l.Total,
					Profit:     l.Profit,
					Factor:     l.DisplayFactor,
					WorldRank:  l.WorldRank,
					GlobalRank: l.GlobalRank,
					Updated:    l.Updated,
				})
			}
			worlds = append(worlds, worldPayload{
				WorldID:  wl.World.ID,
				World:    wl.World.Name,
				MinPrice: wl.Stats.MinPrice,
				Listings: listings,
			})
		}
		offers = append(offers, offerPayload{
			ItemID:        offer.Item.ID,
			ItemName:      offer.Item.Name,
			HQ:            offer.HQ,
			HomeUnitPrice: offer.Home.MinPrice,
			BestProfit:    offer.BestProfit(),
			Worlds:        worlds,
		})
	}

	return scanResponse{
		ScanID:     result.ScanID,
		World:      result.World.Name,
		DurationMs: result.Duration.Milliseconds(),
		Offers:     offers,
	}
}
