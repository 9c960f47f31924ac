package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/flipbot/internal/arbitrage"
	"github.com/alanyoungcy/flipbot/internal/archive"
	"github.com/alanyoungcy/flipbot/internal/domain"
	"github.com/alanyoungcy/flipbot/internal/ingest"
	"github.com/alanyoungcy/flipbot/internal/notify"
	"github.com/alanyoungcy/flipbot/internal/platform/universalis"
	"github.com/alanyoungcy/flipbot/internal/server"
	"github.com/alanyoungcy/flipbot/internal/server/handler"
	"github.com/alanyoungcy/flipbot/internal/service"
)

// universalisAPIBase is the REST endpoint for world reference data. The live
// market feed address comes from feed.url in the configuration.
const universalisAPIBase = "https://universalis.app/api/v2"

// ServeMode starts the HTTP API and, when enabled, the archive scheduler.
func (a *App) ServeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting serve mode")

	g, ctx := errgroup.WithContext(ctx)

	offerSvc := a.buildOfferService(deps)
	a.startHTTPServer(ctx, g, deps, offerSvc)

	return g.Wait()
}

// IngestMode syncs world reference data and consumes the market feed until
// the context is cancelled.
func (a *App) IngestMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting ingest mode")

	if !a.cfg.Feed.Enabled {
		a.logger.WarnContext(ctx, "feed.enabled is false, but ingest mode always runs the feed")
	}

	g, ctx := errgroup.WithContext(ctx)
	if err := a.startIngest(ctx, g, deps); err != nil {
		return fmt.Errorf("ingest mode: %w", err)
	}

	return g.Wait()
}

// ScanMode runs a single offer scan with the configured default filter,
// logs the ranked results, and exits.
func (a *App) ScanMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting scan mode",
		slog.Int("home_world", int(a.cfg.Scan.HomeWorld)),
	)

	offerSvc := a.buildOfferService(deps)
	result, err := offerSvc.Scan(ctx, a.defaultFilter())
	if err != nil {
		return fmt.Errorf("scan mode: %w", err)
	}

	for i, offer := range result.Offers {
		a.logger.InfoContext(ctx, "offer",
			slog.Int("rank", i+1),
			slog.Int("item_id", int(offer.Item.ID)),
			slog.String("item", offer.Item.Name),
			slog.Bool("hq", offer.HQ),
			slog.Int("worlds", len(offer.Worlds)),
			slog.Int64("best_profit", offer.BestProfit()),
		)
	}
	a.logger.InfoContext(ctx, "scan complete",
		slog.String("scan_id", result.ScanID),
		slog.String("world", result.World.Name),
		slog.Int("offers", len(result.Offers)),
		slog.Duration("duration", result.Duration),
	)
	return nil
}

// FullMode runs the feed listener, the HTTP API, and the archive scheduler
// in one process.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	if !a.cfg.Feed.Enabled {
		a.logger.WarnContext(ctx, "feed.enabled is false, but full mode runs the feed by design")
	}

	g, ctx := errgroup.WithContext(ctx)

	if err := a.startIngest(ctx, g, deps); err != nil {
		return fmt.Errorf("full mode: %w", err)
	}

	offerSvc := a.buildOfferService(deps)
	a.startHTTPServer(ctx, g, deps, offerSvc)

	return g.Wait()
}

// buildOfferService assembles the detection pipeline and its service wrapper.
func (a *App) buildOfferService(deps *Dependencies) *service.OfferService {
	finder := arbitrage.NewFinder(arbitrage.FinderConfig{
		Listings: deps.Listings,
		Stats:    deps.Stats,
		Names:    deps.Names,
		Logger:   a.logger,
	})
	return service.NewOfferService(finder, deps.Filters, deps.Worlds, deps.Notifier, a.defaultFilter(), a.logger)
}

// defaultFilter builds the filter used for scan mode and for users without a
// stored profile. The home world is carried by ID only; the service resolves
// the full topology per scan.
func (a *App) defaultFilter() domain.OfferFilter {
	scan := a.cfg.Scan
	return domain.OfferFilter{
		World:              domain.World{ID: scan.HomeWorld},
		Target:             domain.Scope(scan.Target),
		MinUnitPrice:       scan.MinUnitPrice,
		MaxAge:             scan.MaxAge.Duration,
		MinPopularity:      scan.MinPopularity,
		MinMarketVolume:    scan.MinMarketVolume,
		MinInterest:        scan.MinInterest,
		MinSales:           scan.MinSales,
		MinViews:           scan.MinViews,
		MinFactor:          scan.MinFactor,
		MinProfit:          scan.MinProfit,
		MinEffectiveProfit: scan.MinEffectiveProfit,
		Limit:              scan.Limit,
	}.Normalize()
}

// startIngest syncs world reference data, resolves the feed world set, and
// adds the feed listener goroutine to the errgroup.
func (a *App) startIngest(ctx context.Context, g *errgroup.Group, deps *Dependencies) error {
	rest := universalis.NewRESTClient(universalisAPIBase)
	sync := ingest.NewWorldSync(rest, deps.Worlds, a.logger)
	if err := sync.Run(ctx); err != nil {
		return err
	}

	worlds, err := a.feedWorlds(ctx, deps.Worlds)
	if err != nil {
		return err
	}
	if len(worlds) == 0 {
		return fmt.Errorf("no worlds to ingest (check feed.worlds)")
	}

	listener := ingest.NewListener(
		a.cfg.Feed.URL,
		worlds,
		deps.Listings,
		deps.Stats,
		deps.Items,
		deps.LockManager,
		a.cfg.Feed.LockTTL.Duration,
		a.logger,
	)
	g.Go(func() error {
		defer listener.Close()
		err := listener.Run(ctx)
		if err != nil && ctx.Err() == nil {
			noteCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if nErr := deps.Notifier.Notify(noteCtx, notify.EventFeedDown, "Market feed down", err.Error()); nErr != nil {
				a.logger.Warn("feed down notification failed", slog.String("error", nErr.Error()))
			}
		}
		return err
	})

	a.logger.InfoContext(ctx, "feed listener started",
		slog.String("url", a.cfg.Feed.URL),
		slog.Int("worlds", len(worlds)),
	)
	return nil
}

// feedWorlds returns the worlds the listener should subscribe to. An empty
// feed.worlds list means every known world.
func (a *App) feedWorlds(ctx context.Context, store domain.WorldStore) ([]domain.World, error) {
	all, err := store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list worlds: %w", err)
	}
	if len(a.cfg.Feed.Worlds) == 0 {
		return all, nil
	}

	want := make(map[int32]bool, len(a.cfg.Feed.Worlds))
	for _, id := range a.cfg.Feed.Worlds {
		want[id] = true
	}
	var worlds []domain.World
	for _, w := range all {
		if want[w.ID] {
			worlds = append(worlds, w)
			delete(want, w.ID)
		}
	}
	for id := range want {
		a.logger.WarnContext(ctx, "configured feed world is unknown, skipping",
			slog.Int("world_id", int(id)),
		)
	}
	return worlds, nil
}

// startHTTPServer adds the HTTP server goroutines to the given errgroup,
// together with the archive scheduler when archiving is enabled. The server
// is shut down gracefully when the context is cancelled.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies, offerSvc *service.OfferService) {
	archiveH := handler.NewArchiveHandler(a.logger)

	if a.cfg.Archive.Enabled && deps.Archiver != nil {
		arch := archive.NewArchiver(deps.Archiver, a.cfg.Archive.RetentionDays, a.logger)

		g.Go(func() error {
			return arch.RunCron(ctx, a.cfg.Archive.Cron)
		})

		// POST /api/archive/trigger requests one run outside the schedule.
		triggerCh := make(chan struct{}, 1)
		archiveH = archiveH.WithTriggerChannel(triggerCh)
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-triggerCh:
					if err := arch.Run(ctx); err != nil {
						a.logger.ErrorContext(ctx, "triggered archive run failed",
							slog.String("error", err.Error()),
						)
					}
				}
			}
		})
	}

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
		RateLimit:   a.cfg.Server.RateLimit,
		RateWindow:  time.Duration(a.cfg.Server.RateWindowSec) * time.Second,
	}, server.Handlers{
		Health:  handler.NewHealthHandler(a.logger),
		Offers:  handler.NewOfferHandler(offerSvc, a.logger),
		Filters: handler.NewFilterHandler(offerSvc, a.logger),
		Worlds:  handler.NewWorldHandler(deps.Worlds, a.logger),
		Archive: archiveH,
	}, deps.RateLimiter, a.logger)

	g.Go(func() error {
		return srv.Start()
	})

	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}
