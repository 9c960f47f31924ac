package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/flipbot/internal/domain"
)

// ItemStore implements domain.ItemStore using PostgreSQL.
type ItemStore struct {
	pool *pgxpool.Pool
}

// NewItemStore creates a new ItemStore backed by the given connection pool.
func NewItemStore(pool *pgxpool.Pool) *ItemStore {
	return &ItemStore{pool: pool}
}

// Names resolves display names for the given item IDs. IDs without a stored
// name are absent from the result, never an error.
func (s *ItemStore) Names(ctx context.Context, ids []int32) (map[int32]string, error) {
	if len(ids) == 0 {
		return map[int32]string{}, nil
	}

	rows, err := s.pool.Query(ctx,
		`SELECT item, name FROM items WHERE item = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("postgres: item names: %w", err)
	}
	defer rows.Close()

	names := make(map[int32]string, len(ids))
	for rows.Next() {
		var id int32
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("postgres: scan item name: %w", err)
		}
		names[id] = name
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: item names rows: %w", err)
	}
	return names, nil
}

// UpsertNames inserts or updates item display names in a single batch.
func (s *ItemStore) UpsertNames(ctx context.Context, items []domain.Item) error {
	if len(items) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, item := range items {
		batch.Queue(`
			INSERT INTO items (item, name) VALUES ($1, $2)
			ON CONFLICT (item) DO UPDATE SET name = EXCLUDED.name`,
			item.ID, item.Name,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := range items {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("postgres: upsert item name batch item %d: %w", i, err)
		}
	}
	return nil
}
