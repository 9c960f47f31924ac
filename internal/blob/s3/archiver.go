package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/alanyoungcy/flipbot/internal/domain"
)

// defaultArchiveLimit bounds one export. Runs repeat on a schedule, so a
// backlog larger than this drains across consecutive runs.
const defaultArchiveLimit = 500_000

// ListingArchiveStore is the narrow store surface the archiver needs: a
// time-ranged read for export and a prune for the rows already exported.
// The Postgres listing store satisfies it.
type ListingArchiveStore interface {
	ListBefore(ctx context.Context, cutoff time.Time, limit int) ([]domain.Listing, error)
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// listingRecord is the flat JSONL shape written to cold storage.
type listingRecord struct {
	WorldID   int32     `json:"world_id"`
	World     string    `json:"world"`
	ItemID    int32     `json:"item_id"`
	HQ        bool      `json:"hq"`
	UnitPrice int64     `json:"unit_price"`
	Quantity  int64     `json:"quantity"`
	Total     int64     `json:"total"`
	Updated   time.Time `json:"updated"`
}

// ListingArchiver implements domain.Archiver by exporting aged listings to
// JSONL objects and pruning them from the primary store.
//
// Rows are pruned only after the upload has succeeded, so an upload failure
// never loses data.
type ListingArchiver struct {
	writer   domain.BlobWriter
	listings ListingArchiveStore
	limit    int
}

// NewListingArchiver creates a ListingArchiver. A limit of zero falls back to
// the default per-run export bound.
func NewListingArchiver(writer domain.BlobWriter, listings ListingArchiveStore, limit int) *ListingArchiver {
	if limit <= 0 {
		limit = defaultArchiveLimit
	}
	return &ListingArchiver{
		writer:   writer,
		listings: listings,
		limit:    limit,
	}
}

// ArchiveListings exports listings older than before to an S3 object at
// archive/listings/YYYY-MM-DD.jsonl, prunes the exported rows, and returns
// the number of archived rows.
func (a *ListingArchiver) ArchiveListings(ctx context.Context, before time.Time) (int64, error) {
	listings, err := a.listings.ListBefore(ctx, before, a.limit)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive listings query: %w", err)
	}
	if len(listings) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(toRecords(listings))
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive listings marshal: %w", err)
	}

	path := archivePath(before)
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("s3blob: archive listings upload: %w", err)
	}

	// Prune only the window that was actually exported. When the export hit
	// the limit, older rows past the newest exported snapshot remain for the
	// next run.
	pruneCutoff := before
	if len(listings) == a.limit {
		newest := listings[len(listings)-1].Updated
		if newest.Before(pruneCutoff) {
			pruneCutoff = newest
		}
	}

	count := int64(len(listings))
	if _, err := a.listings.PruneBefore(ctx, pruneCutoff); err != nil {
		return count, fmt.Errorf("s3blob: prune archived listings: %w", err)
	}

	return count, nil
}

// archivePath builds the S3 key for an archive file, partitioned by the
// cutoff date.
//
//	archive/listings/2026-08-01.jsonl
func archivePath(before time.Time) string {
	return fmt.Sprintf("archive/listings/%s.jsonl", before.Format("2006-01-02"))
}

func toRecords(listings []domain.Listing) []listingRecord {
	records := make([]listingRecord, 0, len(listings))
	for _, l := range listings {
		records = append(records, listingRecord{
			WorldID:   l.World.ID,
			World:     l.World.Name,
			ItemID:    l.ItemID,
			HQ:        l.HQ,
			UnitPrice: l.UnitPrice,
			Quantity:  l.Quantity,
			Total:     l.Total,
			Updated:   l.Updated,
		})
	}
	return records
}

// marshalJSONL serialises a slice of values as newline-delimited JSON.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

// Compile-time interface check.
var _ domain.Archiver = (*ListingArchiver)(nil)
