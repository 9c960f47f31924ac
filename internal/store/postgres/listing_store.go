package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/flipbot/internal/domain"
)

// ListingStore implements domain.ListingStore using PostgreSQL.
type ListingStore struct {
	pool *pgxpool.Pool
}

// NewListingStore creates a new ListingStore backed by the given connection pool.
func NewListingStore(pool *pgxpool.Pool) *ListingStore {
	return &ListingStore{pool: pool}
}

const listingCols = `l.world, w.name, d.id, d.name, d.region,
	l.item, l.hq, l.unit_price, l.quantity, l.total, lu.updated`

const listingJoin = `
	FROM listings l
	JOIN worlds w ON w.world = l.world
	LEFT JOIN data_centers d ON d.id = w.data_center
	JOIN listings_updated lu ON lu.world = l.world AND lu.item = l.item`

func scanListing(rows pgx.Rows) (domain.Listing, error) {
	var l domain.Listing
	var dcID *int32
	var dcName, dcRegion *string
	err := rows.Scan(
		&l.World.ID, &l.World.Name, &dcID, &dcName, &dcRegion,
		&l.ItemID, &l.HQ, &l.UnitPrice, &l.Quantity, &l.Total, &l.Updated,
	)
	if err != nil {
		return domain.Listing{}, err
	}
	if dcID != nil {
		l.World.DataCenter = &domain.DataCenter{
			ID:     *dcID,
			Name:   *dcName,
			Region: domain.Region(*dcRegion),
		}
	}
	return l, nil
}

// FreshCompeting returns every listing in the scope's competing worlds whose
// per-(world, item) snapshot is within the freshness window. The home world is
// always excluded.
func (s *ListingStore) FreshCompeting(ctx context.Context, scope domain.ListingScope) ([]domain.Listing, error) {
	if scope.Home.DataCenter == nil {
		return nil, fmt.Errorf("postgres: fresh competing listings: %w", domain.ErrNoDataCenter)
	}
	cutoff := time.Now().Add(-scope.MaxAge)

	query := `SELECT ` + listingCols + listingJoin + `
	WHERE l.world != $1
	  AND lu.updated > $2`
	args := []any{scope.Home.ID, cutoff}

	switch scope.Target {
	case domain.ScopeRegion:
		query += ` AND d.region = $3`
		args = append(args, string(scope.Home.DataCenter.Region))
	default:
		query += ` AND d.id = $3`
		args = append(args, scope.Home.DataCenter.ID)
	}
	query += ` ORDER BY l.world, l.item, l.hq, l.unit_price`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: fresh competing listings: %w", err)
	}
	defer rows.Close()

	var listings []domain.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan listing: %w", err)
		}
		listings = append(listings, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: fresh competing listings rows: %w", err)
	}
	return listings, nil
}

// ReplaceSnapshot atomically replaces the listing set for one (world, item)
// line and records the snapshot time.
func (s *ListingStore) ReplaceSnapshot(ctx context.Context, worldID, itemID int32, listings []domain.Listing, updated time.Time) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: replace snapshot %d/%d: begin: %w", worldID, itemID, err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`DELETE FROM listings WHERE world = $1 AND item = $2`, worldID, itemID,
	); err != nil {
		return fmt.Errorf("postgres: replace snapshot %d/%d: clear: %w", worldID, itemID, err)
	}

	batch := &pgx.Batch{}
	for _, l := range listings {
		batch.Queue(
			`INSERT INTO listings (world, item, hq, unit_price, quantity, total)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			worldID, itemID, l.HQ, l.UnitPrice, l.Quantity, l.Total,
		)
	}
	batch.Queue(
		`INSERT INTO listings_updated (world, item, updated) VALUES ($1, $2, $3)
		 ON CONFLICT (world, item) DO UPDATE SET updated = EXCLUDED.updated`,
		worldID, itemID, updated,
	)

	br := tx.SendBatch(ctx, batch)
	for i := 0; i < len(listings)+1; i++ {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("postgres: replace snapshot %d/%d: item %d: %w", worldID, itemID, i, err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("postgres: replace snapshot %d/%d: close batch: %w", worldID, itemID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: replace snapshot %d/%d: commit: %w", worldID, itemID, err)
	}
	return nil
}

// ListBefore returns up to limit listings whose snapshot is older than cutoff,
// for archiving.
func (s *ListingStore) ListBefore(ctx context.Context, cutoff time.Time, limit int) ([]domain.Listing, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+listingCols+listingJoin+`
	WHERE lu.updated < $1
	ORDER BY lu.updated, l.world, l.item
	LIMIT $2`, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list listings before %v: %w", cutoff, err)
	}
	defer rows.Close()

	var listings []domain.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan aged listing: %w", err)
		}
		listings = append(listings, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list listings before rows: %w", err)
	}
	return listings, nil
}

// PruneBefore deletes listings whose snapshot is older than cutoff and returns
// the number of listing rows removed. The freshness marker rows are removed
// with them.
func (s *ListingStore) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("postgres: prune listings: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		DELETE FROM listings l
		USING listings_updated lu
		WHERE lu.world = l.world AND lu.item = l.item AND lu.updated < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("postgres: prune listings: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`DELETE FROM listings_updated WHERE updated < $1`, cutoff,
	); err != nil {
		return 0, fmt.Errorf("postgres: prune listing markers: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("postgres: prune listings: commit: %w", err)
	}
	return tag.RowsAffected(), nil
}
