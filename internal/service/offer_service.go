// Package service contains the application services that sit between the
// HTTP server and the detection pipeline.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/flipbot/internal/domain"
	"github.com/alanyoungcy/flipbot/internal/notify"
)

// OfferFinder runs one offer scan for a filter.
type OfferFinder interface {
	BestOffers(ctx context.Context, filter domain.OfferFilter) ([]domain.Offer, error)
}

// ScanResult is the outcome of one offer scan.
type ScanResult struct {
	ScanID   string
	World    domain.World
	Offers   []domain.Offer
	Duration time.Duration
}

// OfferService resolves a user's filter against current world topology, runs
// the detection pipeline, and optionally pushes a digest notification.
type OfferService struct {
	finder   OfferFinder
	filters  domain.FilterStore
	worlds   domain.WorldStore
	notifier *notify.Notifier
	defaults domain.OfferFilter
	logger   *slog.Logger
}

// NewOfferService creates an OfferService. notifier may be nil when no
// notification channels are configured. defaults is the filter used for
// users without a stored profile.
func NewOfferService(
	finder OfferFinder,
	filters domain.FilterStore,
	worlds domain.WorldStore,
	notifier *notify.Notifier,
	defaults domain.OfferFilter,
	logger *slog.Logger,
) *OfferService {
	return &OfferService{
		finder:   finder,
		filters:  filters,
		worlds:   worlds,
		notifier: notifier,
		defaults: defaults,
		logger:   logger.With(slog.String("component", "offer_service")),
	}
}

// ScanForUser loads the user's filter profile (falling back to the configured
// defaults) and runs a scan with it.
func (s *OfferService) ScanForUser(ctx context.Context, userID string) (ScanResult, error) {
	filter, err := s.FilterFor(ctx, userID)
	if err != nil {
		return ScanResult{}, err
	}
	return s.Scan(ctx, filter)
}

// Scan refreshes the filter's world topology and runs the detection pipeline.
// Scans are identified by a fresh UUID in logs and API responses.
func (s *OfferService) Scan(ctx context.Context, filter domain.OfferFilter) (ScanResult, error) {
	scanID := uuid.New().String()
	started := time.Now()

	// Stored filters carry the world by ID only; data center assignment can
	// change between patches, so it is resolved per scan.
	world, err := s.worlds.Get(ctx, filter.World.ID)
	if err != nil {
		return ScanResult{}, fmt.Errorf("service: resolve home world %d: %w", filter.World.ID, err)
	}
	filter.World = world

	offers, err := s.finder.BestOffers(ctx, filter)
	if err != nil {
		return ScanResult{}, fmt.Errorf("service: scan %s: %w", scanID, err)
	}

	result := ScanResult{
		ScanID:   scanID,
		World:    world,
		Offers:   offers,
		Duration: time.Since(started),
	}

	s.logger.InfoContext(ctx, "offer scan complete",
		slog.String("scan_id", scanID),
		slog.String("world", world.Name),
		slog.Int("offers", len(offers)),
		slog.Duration("duration", result.Duration),
	)

	if s.notifier != nil && len(offers) > 0 {
		title, message := notify.FormatOfferDigest(world.Name, offers)
		if err := s.notifier.Notify(ctx, notify.EventOffersFound, title, message); err != nil {
			s.logger.WarnContext(ctx, "scan digest notification failed",
				slog.String("scan_id", scanID),
				slog.String("error", err.Error()),
			)
		}
	}

	return result, nil
}

// FilterFor returns the user's stored filter, or the configured defaults when
// none exists. The result is normalized either way.
func (s *OfferService) FilterFor(ctx context.Context, userID string) (domain.OfferFilter, error) {
	filter, err := s.filters.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return s.defaults.Normalize(), nil
		}
		return domain.OfferFilter{}, fmt.Errorf("service: load filter for %s: %w", userID, err)
	}
	return filter.Normalize(), nil
}

// SaveFilter validates and persists a user's filter profile.
func (s *OfferService) SaveFilter(ctx context.Context, userID string, filter domain.OfferFilter) error {
	filter = filter.Normalize()
	if err := filter.Validate(); err != nil {
		return fmt.Errorf("service: %w", err)
	}

	// The world must exist; its current topology is stored alongside so the
	// profile is inspectable without a join.
	world, err := s.worlds.Get(ctx, filter.World.ID)
	if err != nil {
		return fmt.Errorf("service: resolve home world %d: %w", filter.World.ID, err)
	}
	filter.World = world

	if err := s.filters.Upsert(ctx, userID, filter); err != nil {
		return fmt.Errorf("service: save filter for %s: %w", userID, err)
	}
	return nil
}
