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

// StatsStore implements domain.StatsStore using PostgreSQL.
type StatsStore struct {
	pool *pgxpool.Pool
}

// NewStatsStore creates a new StatsStore backed by the given connection pool.
func NewStatsStore(pool *pgxpool.Pool) *StatsStore {
	return &StatsStore{pool: pool}
}

const statsCols = `s.world, w.name, d.id, d.name, d.region,
	s.item, COALESCE(i.name, ''), s.hq,
	s.market_volume, s.interest, s.popularity, s.sales, s.views,
	s.min_price, s.avg_price, s.listings, s.updated,
	s.min_sales, s.max_sales, s.avg_sales`

const statsJoin = `
	FROM world_items s
	JOIN worlds w ON w.world = s.world
	LEFT JOIN data_centers d ON d.id = w.data_center
	LEFT JOIN items i ON i.item = s.item`

func scanStats(row pgx.Row) (domain.ItemStats, error) {
	var s domain.ItemStats
	var dcID *int32
	var dcName, dcRegion *string
	err := row.Scan(
		&s.World.ID, &s.World.Name, &dcID, &dcName, &dcRegion,
		&s.Item.ID, &s.Item.Name, &s.HQ,
		&s.MarketVolume, &s.Interest, &s.Popularity, &s.Sales, &s.Views,
		&s.MinPrice, &s.AvgPrice, &s.ListingCount, &s.Updated,
		&s.MinSales, &s.MaxSales, &s.AvgSales,
	)
	if err != nil {
		return domain.ItemStats{}, err
	}
	if dcID != nil {
		s.World.DataCenter = &domain.DataCenter{
			ID:     *dcID,
			Name:   *dcName,
			Region: domain.Region(*dcRegion),
		}
	}
	return s, nil
}

// HomeRows returns every stats row for the given world updated within maxAge.
// Threshold filtering happens in the scan pipeline, not here.
func (s *StatsStore) HomeRows(ctx context.Context, worldID int32, maxAge time.Duration) ([]domain.ItemStats, error) {
	cutoff := time.Now().Add(-maxAge)
	rows, err := s.pool.Query(ctx, `SELECT `+statsCols+statsJoin+`
	WHERE s.world = $1 AND s.updated > $2
	ORDER BY s.item, s.hq`, worldID, cutoff)
	if err != nil {
		return nil, fmt.Errorf("postgres: home stats rows for world %d: %w", worldID, err)
	}
	defer rows.Close()

	var stats []domain.ItemStats
	for rows.Next() {
		st, err := scanStats(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan stats row: %w", err)
		}
		stats = append(stats, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: home stats rows: %w", err)
	}
	return stats, nil
}

// Get is the point lookup for one (world, item, hq) line. It returns
// domain.ErrNotFound when no row exists.
func (s *StatsStore) Get(ctx context.Context, worldID, itemID int32, hq bool) (domain.ItemStats, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+statsCols+statsJoin+`
	WHERE s.world = $1 AND s.item = $2 AND s.hq = $3`, worldID, itemID, hq)
	st, err := scanStats(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ItemStats{}, domain.ErrNotFound
		}
		return domain.ItemStats{}, fmt.Errorf("postgres: get stats %d/%d hq=%t: %w", worldID, itemID, hq, err)
	}
	return st, nil
}

// Upsert inserts or replaces one stats snapshot.
func (s *StatsStore) Upsert(ctx context.Context, stats domain.ItemStats) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO world_items (
			world, item, hq,
			market_volume, interest, popularity, sales, views,
			min_price, avg_price, listings, updated,
			min_sales, max_sales, avg_sales
		) VALUES (
			$1, $2, $3,
			$4, $5, $6, $7, $8,
			$9, $10, $11, $12,
			$13, $14, $15
		)
		ON CONFLICT (world, item, hq) DO UPDATE SET
			market_volume = EXCLUDED.market_volume,
			interest      = EXCLUDED.interest,
			popularity    = EXCLUDED.popularity,
			sales         = EXCLUDED.sales,
			views         = EXCLUDED.views,
			min_price     = EXCLUDED.min_price,
			avg_price     = EXCLUDED.avg_price,
			listings      = EXCLUDED.listings,
			updated       = EXCLUDED.updated,
			min_sales     = EXCLUDED.min_sales,
			max_sales     = EXCLUDED.max_sales,
			avg_sales     = EXCLUDED.avg_sales`,
		stats.World.ID, stats.Item.ID, stats.HQ,
		stats.MarketVolume, stats.Interest, stats.Popularity, stats.Sales, stats.Views,
		stats.MinPrice, stats.AvgPrice, stats.ListingCount, stats.Updated,
		stats.MinSales, stats.MaxSales, stats.AvgSales,
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert stats %d/%d hq=%t: %w",
			stats.World.ID, stats.Item.ID, stats.HQ, err)
	}
	return nil
}
