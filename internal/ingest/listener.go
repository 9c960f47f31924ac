// Package ingest keeps the local market database in sync with the upstream
// feed: a WebSocket listener replaces listing snapshots and stats rows as
// they arrive, and a reference sync refreshes worlds and data centers.
package ingest

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/alanyoungcy/flipbot/internal/domain"
	"github.com/alanyoungcy/flipbot/internal/platform/universalis"
)

const (
	// ingestLockName guards against two deployments consuming the same feed.
	ingestLockName       = "ingest"
	defaultIngestLockTTL = 12 * time.Hour

	// handleTimeout bounds each store write triggered by a feed message.
	handleTimeout = 10 * time.Second
)

// Listener consumes the market feed for a set of worlds and writes the
// incoming snapshots through the stores. A distributed lock keeps a single
// listener active per deployment.
type Listener struct {
	wsURL    string
	worlds   map[int32]domain.World
	listings domain.ListingStore
	stats    domain.StatsStore
	items    domain.ItemStore
	locks    domain.LockManager
	lockTTL  time.Duration
	logger   *slog.Logger

	closeOnce sync.Once
	done      chan struct{}
}

// NewListener creates a Listener for the given worlds. A lockTTL of zero
// falls back to the default.
func NewListener(
	wsURL string,
	worlds []domain.World,
	listings domain.ListingStore,
	stats domain.StatsStore,
	items domain.ItemStore,
	locks domain.LockManager,
	lockTTL time.Duration,
	logger *slog.Logger,
) *Listener {
	byID := make(map[int32]domain.World, len(worlds))
	for _, w := range worlds {
		byID[w.ID] = w
	}
	if lockTTL <= 0 {
		lockTTL = defaultIngestLockTTL
	}
	return &Listener{
		wsURL:    wsURL,
		worlds:   byID,
		listings: listings,
		stats:    stats,
		items:    items,
		locks:    locks,
		lockTTL:  lockTTL,
		logger:   logger.With(slog.String("component", "ingest_listener")),
		done:     make(chan struct{}),
	}
}

// Run acquires the ingest lock, connects to the feed, subscribes to listing
// and stats channels for the configured worlds, and runs until ctx is
// cancelled. The lock TTL bounds how long a crashed holder blocks others.
func (l *Listener) Run(ctx context.Context) error {
	if len(l.worlds) == 0 {
		l.logger.Info("no worlds to subscribe, exiting")
		return nil
	}

	unlock, err := l.locks.Acquire(ctx, ingestLockName, l.lockTTL)
	if err != nil {
		if errors.Is(err, domain.ErrLockHeld) {
			l.logger.Warn("another ingest instance holds the lock, exiting")
			return err
		}
		return err
	}
	defer unlock()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.done:
			return nil
		default:
		}

		connCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		err := l.runConnection(ctx, connCtx)
		cancel()
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		l.logger.Warn("market feed disconnected, reconnecting", slog.String("error", err.Error()))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
}

func (l *Listener) runConnection(ctx, connCtx context.Context) error {
	client := universalis.NewWSClient(l.wsURL)
	defer client.Close()

	client.OnListings(func(msg universalis.ListingsMessage) {
		l.handleListings(msg)
	})
	client.OnStats(func(msg universalis.StatsMessage) {
		l.handleStats(msg)
	})

	if err := client.Connect(connCtx); err != nil {
		return err
	}

	worldIDs := make([]int32, 0, len(l.worlds))
	for id := range l.worlds {
		worldIDs = append(worldIDs, id)
	}
	channels := []string{"listings/add", "stats/update"}
	if err := client.Subscribe(connCtx, channels, worldIDs); err != nil {
		return err
	}
	l.logger.Info("market feed subscribed", slog.Int("worlds", len(worldIDs)))

	<-ctx.Done()
	return ctx.Err()
}

func (l *Listener) handleListings(msg universalis.ListingsMessage) {
	world, ok := l.worlds[msg.World]
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
	defer cancel()

	listings := universalis.ListingsToDomain(&msg, world)
	if err := l.listings.ReplaceSnapshot(ctx, msg.World, msg.Item, listings, time.Now().UTC()); err != nil {
		l.logger.Error("replace listing snapshot failed",
			slog.Int("world", int(msg.World)),
			slog.Int("item", int(msg.Item)),
			slog.String("error", err.Error()),
		)
		return
	}

	if msg.ItemName != "" {
		if err := l.items.UpsertNames(ctx, []domain.Item{{ID: msg.Item, Name: msg.ItemName}}); err != nil {
			l.logger.Debug("upsert item name failed",
				slog.Int("item", int(msg.Item)),
				slog.String("error", err.Error()),
			)
		}
	}
}

func (l *Listener) handleStats(msg universalis.StatsMessage) {
	world, ok := l.worlds[msg.World]
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
	defer cancel()

	if err := l.stats.Upsert(ctx, universalis.StatsToDomain(&msg, world)); err != nil {
		l.logger.Error("upsert stats failed",
			slog.Int("world", int(msg.World)),
			slog.Int("item", int(msg.Item)),
			slog.String("error", err.Error()),
		)
	}
}

// Close stops the listener.
func (l *Listener) Close() {
	l.closeOnce.Do(func() { close(l.done) })
}
