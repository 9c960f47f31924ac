package domain

import (
	"context"
	"io"
	"time"
)

// BlobWriter uploads objects to cold storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
}

// Archiver exports aged listing snapshots to cold storage and prunes them
// from the primary store once the export has succeeded.
type Archiver interface {
	// ArchiveListings archives every listing older than before and returns the
	// number of archived rows.
	ArchiveListings(ctx context.Context, before time.Time) (int64, error)
}
