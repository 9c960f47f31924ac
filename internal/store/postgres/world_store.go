package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/flipbot/internal/domain"
)

// WorldStore implements domain.WorldStore using PostgreSQL.
type WorldStore struct {
	pool *pgxpool.Pool
}

// NewWorldStore creates a new WorldStore backed by the given connection pool.
func NewWorldStore(pool *pgxpool.Pool) *WorldStore {
	return &WorldStore{pool: pool}
}

const worldCols = `w.world, w.name, d.id, d.name, d.region`

const worldJoin = ` FROM worlds w LEFT JOIN data_centers d ON d.id = w.data_center`

// scanWorld scans one joined world row. The data center columns are nullable:
// a world without an assignment comes back with DataCenter nil.
func scanWorld(row pgx.Row) (domain.World, error) {
	var w domain.World
	var dcID *int32
	var dcName, dcRegion *string
	if err := row.Scan(&w.ID, &w.Name, &dcID, &dcName, &dcRegion); err != nil {
		return domain.World{}, err
	}
	if dcID != nil {
		w.DataCenter = &domain.DataCenter{
			ID:     *dcID,
			Name:   *dcName,
			Region: domain.Region(*dcRegion),
		}
	}
	return w, nil
}

// Get retrieves a world with its data center by ID.
func (s *WorldStore) Get(ctx context.Context, id int32) (domain.World, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+worldCols+worldJoin+` WHERE w.world = $1`, id)
	w, err := scanWorld(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.World{}, domain.ErrNotFound
		}
		return domain.World{}, fmt.Errorf("postgres: get world %d: %w", id, err)
	}
	return w, nil
}

// List returns every known world ordered by ID.
func (s *WorldStore) List(ctx context.Context) ([]domain.World, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+worldCols+worldJoin+` ORDER BY w.world`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list worlds: %w", err)
	}
	defer rows.Close()

	var worlds []domain.World
	for rows.Next() {
		w, err := scanWorld(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan world: %w", err)
		}
		worlds = append(worlds, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list worlds rows: %w", err)
	}
	return worlds, nil
}

// Upsert inserts or updates a world and, when present, its data center.
func (s *WorldStore) Upsert(ctx context.Context, world domain.World) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: upsert world %d: begin: %w", world.ID, err)
	}
	defer tx.Rollback(ctx)

	var dcID *int32
	if dc := world.DataCenter; dc != nil {
		if _, err := tx.Exec(ctx, `
			INSERT INTO data_centers (id, name, region) VALUES ($1, $2, $3)
			ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, region = EXCLUDED.region`,
			dc.ID, dc.Name, string(dc.Region),
		); err != nil {
			return fmt.Errorf("postgres: upsert data center %d: %w", dc.ID, err)
		}
		dcID = &dc.ID
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO worlds (world, name, data_center) VALUES ($1, $2, $3)
		ON CONFLICT (world) DO UPDATE SET name = EXCLUDED.name, data_center = EXCLUDED.data_center`,
		world.ID, world.Name, dcID,
	); err != nil {
		return fmt.Errorf("postgres: upsert world %d: %w", world.ID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: upsert world %d: commit: %w", world.ID, err)
	}
	return nil
}
