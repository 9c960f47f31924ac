package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/flipbot/internal/domain"
)

// WorldLister defines the world listing surface the handler requires.
type WorldLister interface {
	List(ctx context.Context) ([]domain.World, error)
}

// WorldHandler serves world topology endpoints.
type WorldHandler struct {
	worlds WorldLister
	logger *slog.Logger
}

// NewWorldHandler creates a WorldHandler with the given store and logger.
func NewWorldHandler(worlds WorldLister, logger *slog.Logger) *WorldHandler {
	return &WorldHandler{
		worlds: worlds,
		logger: logger,
	}
}

// worldInfo is the JSON shape of one world.
type worldInfo struct {
	ID         int32  `json:"id"`
	Name       string `json:"name"`
	DataCenter string `json:"data_center,omitempty"`
	Region     string `json:"region,omitempty"`
}

// ListWorlds returns all known worlds with their data center assignment.
// GET /api/worlds
func (h *WorldHandler) ListWorlds(w http.ResponseWriter, r *http.Request) {
	worlds, err := h.worlds.List(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list worlds failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list worlds")
		return
	}

	out := make([]worldInfo, 0, len(worlds))
	for _, world := range worlds {
		info := worldInfo{ID: world.ID, Name: world.Name}
		if world.DataCenter != nil {
			info.DataCenter = world.DataCenter.Name
			info.Region = string(world.DataCenter.Region)
		}
		out = append(out, info)
	}

	writeJSON(w, http.StatusOK, map[string]any{"worlds": out})
}
