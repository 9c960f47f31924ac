package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/flipbot/internal/domain"
)

// WorldSource yields the current world list with resolved data centers.
type WorldSource interface {
	WorldsWithDataCenters(ctx context.Context) ([]domain.World, error)
}

// WorldSync refreshes the stored world and data center reference data from
// the upstream API. Worlds change rarely, so it is run once at startup.
type WorldSync struct {
	source WorldSource
	worlds domain.WorldStore
	logger *slog.Logger
}

// NewWorldSync creates a WorldSync.
func NewWorldSync(source WorldSource, worlds domain.WorldStore, logger *slog.Logger) *WorldSync {
	return &WorldSync{
		source: source,
		worlds: worlds,
		logger: logger.With(slog.String("component", "world_sync")),
	}
}

// Run fetches the world list and upserts every world. Worlds with no data
// center are stored as-is; they stay out of scan scope until assigned.
func (s *WorldSync) Run(ctx context.Context) error {
	worlds, err := s.source.WorldsWithDataCenters(ctx)
	if err != nil {
		return fmt.Errorf("ingest: fetch worlds: %w", err)
	}

	synced := 0
	for _, w := range worlds {
		if err := s.worlds.Upsert(ctx, w); err != nil {
			return fmt.Errorf("ingest: upsert world %d: %w", w.ID, err)
		}
		synced++
	}

	s.logger.Info("world reference data synced", slog.Int("worlds", synced))
	return nil
}
