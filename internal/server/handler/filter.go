package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/flipbot/internal/domain"
)

// FilterService defines the filter profile surface the handler requires.
type FilterService interface {
	FilterFor(ctx context.Context, userID string) (domain.OfferFilter, error)
	SaveFilter(ctx context.Context, userID string, filter domain.OfferFilter) error
}

// FilterHandler serves per-user filter profile endpoints.
type FilterHandler struct {
	filters FilterService
	logger  *slog.Logger
}

// NewFilterHandler creates a FilterHandler with the given service and logger.
func NewFilterHandler(filters FilterService, logger *slog.Logger) *FilterHandler {
	return &FilterHandler{
		filters: filters,
		logger:  logger,
	}
}

// filterPayload is the JSON shape of a filter profile. MaxAge travels as
// whole seconds.
type filterPayload struct {
	WorldID            int32   `json:"world_id"`
	World              string  `json:"world,omitempty"`
	Target             string  `json:"target"`
	MinUnitPrice       int64   `json:"min_unit_price"`
	MaxAgeSeconds      int64   `json:"max_age_seconds"`
	MinPopularity      float64 `json:"min_popularity"`
	MinMarketVolume    float64 `json:"min_market_volume"`
	MinInterest        float64 `json:"min_interest"`
	MinSales           int64   `json:"min_sales"`
	MinViews           int64   `json:"min_views"`
	MinFactor          float64 `json:"min_factor"`
	MinProfit          int64   `json:"min_profit"`
	MinEffectiveProfit int64   `json:"min_effective_profit"`
	Limit              int     `json:"limit"`
}

func toFilterPayload(f domain.OfferFilter) filterPayload {
	return filterPayload{
		WorldID:            f.World.ID,
		World:              f.World.Name,
		Target:             string(f.Target),
		MinUnitPrice:       f.MinUnitPrice,
		MaxAgeSeconds:      int64(f.MaxAge / time.Second),
		MinPopularity:      f.MinPopularity,
		MinMarketVolume:    f.MinMarketVolume,
		MinInterest:        f.MinInterest,
		MinSales:           f.MinSales,
		MinViews:           f.MinViews,
		MinFactor:          f.MinFactor,
		MinProfit:          f.MinProfit,
		MinEffectiveProfit: f.MinEffectiveProfit,
		Limit:              f.Limit,
	}
}

func (p filterPayload) toDomain() domain.OfferFilter {
	return domain.OfferFilter{
		World:              domain.World{ID: p.WorldID},
		Target:             domain.Scope(p.Target),
		MinUnitPrice:       p.MinUnitPrice,
		MaxAge:             time.Duration(p.MaxAgeSeconds) * time.Second,
		MinPopularity:      p.MinPopularity,
		MinMarketVolume:    p.MinMarketVolume,
		MinInterest:        p.MinInterest,
		MinSales:           p.MinSales,
		MinViews:           p.MinViews,
		MinFactor:          p.MinFactor,
		MinProfit:          p.MinProfit,
		MinEffectiveProfit: p.MinEffectiveProfit,
		Limit:              p.Limit,
	}
}

// GetFilter returns the user's filter profile, falling back to defaults when
// none is stored.
// GET /api/filters/{user}
func (h *FilterHandler) GetFilter(w http.ResponseWriter, r *http.Request) {
	userID := pathParam(r, "user")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "missing user")
		return
	}

	filter, err := h.filters.FilterFor(r.Context(), userID)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: get filter failed",
			slog.String("user", userID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to load filter")
		return
	}

	writeJSON(w, http.StatusOK, toFilterPayload(filter))
}

// PutFilter stores the user's filter profile.
// PUT /api/filters/{user}
func (h *FilterHandler) PutFilter(w http.ResponseWriter, r *http.Request) {
	userID := pathParam(r, "user")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "missing user")
		return
	}

	var payload filterPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	err := h.filters.SaveFilter(r.Context(), userID, payload.toDomain())
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusBadRequest, "unknown home world")
			return
		}
		if errors.Is(err, domain.ErrInvalidFilter) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: save filter failed",
			slog.String("user", userID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to save filter")
		return
	}

	filter, err := h.filters.FilterFor(r.Context(), userID)
	if err != nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, toFilterPayload(filter))
}
