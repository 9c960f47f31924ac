package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/flipbot/internal/domain"
)

// FilterStore implements domain.FilterStore using PostgreSQL. The stored
// profile carries the home world by ID only; callers resolve the full world
// through the WorldStore.
type FilterStore struct {
	pool *pgxpool.Pool
}

// NewFilterStore creates a new FilterStore backed by the given connection pool.
func NewFilterStore(pool *pgxpool.Pool) *FilterStore {
	return &FilterStore{pool: pool}
}

// Get retrieves a user's offer filter profile. It returns domain.ErrNotFound
// when the user has no stored profile.
func (s *FilterStore) Get(ctx context.Context, userID string) (domain.OfferFilter, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT world, target, min_unit_price, max_age_seconds,
		       min_popularity, min_market_volume, min_interest, min_sales, min_views,
		       min_factor, min_profit, min_effective_profit, result_limit
		FROM user_filters WHERE user_id = $1`, userID)

	var f domain.OfferFilter
	var target string
	var maxAgeSeconds int64
	err := row.Scan(
		&f.World.ID, &target, &f.MinUnitPrice, &maxAgeSeconds,
		&f.MinPopularity, &f.MinMarketVolume, &f.MinInterest, &f.MinSales, &f.MinViews,
		&f.MinFactor, &f.MinProfit, &f.MinEffectiveProfit, &f.Limit,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.OfferFilter{}, domain.ErrNotFound
		}
		return domain.OfferFilter{}, fmt.Errorf("postgres: get filter for %q: %w", userID, err)
	}
	f.Target = domain.Scope(target)
	f.MaxAge = time.Duration(maxAgeSeconds) * time.Second
	return f, nil
}

// Upsert inserts or updates a user's offer filter profile.
func (s *FilterStore) Upsert(ctx context.Context, userID string, filter domain.OfferFilter) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO user_filters (
			user_id, world, target, min_unit_price, max_age_seconds,
			min_popularity, min_market_volume, min_interest, min_sales, min_views,
			min_factor, min_profit, min_effective_profit, result_limit, updated_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10,
			$11, $12, $13, $14, NOW()
		)
		ON CONFLICT (user_id) DO UPDATE SET
			world                = EXCLUDED.world,
			target               = EXCLUDED.target,
			min_unit_price       = EXCLUDED.min_unit_price,
			max_age_seconds      = EXCLUDED.max_age_seconds,
			min_popularity       = EXCLUDED.min_popularity,
			min_market_volume    = EXCLUDED.min_market_volume,
			min_interest         = EXCLUDED.min_interest,
			min_sales            = EXCLUDED.min_sales,
			min_views            = EXCLUDED.min_views,
			min_factor           = EXCLUDED.min_factor,
			min_profit           = EXCLUDED.min_profit,
			min_effective_profit = EXCLUDED.min_effective_profit,
			result_limit         = EXCLUDED.result_limit,
			updated_at           = NOW()`,
		userID, filter.World.ID, string(filter.Target), filter.MinUnitPrice,
		int64(filter.MaxAge/time.Second),
		filter.MinPopularity, filter.MinMarketVolume, filter.MinInterest,
		filter.MinSales, filter.MinViews,
		filter.MinFactor, filter.MinProfit, filter.MinEffectiveProfit, filter.Limit,
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert filter for %q: %w", userID, err)
	}
	return nil
}
