package s3blob

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/alanyoungcy/flipbot/internal/domain"
)

type captureWriter struct {
	path string
	body []byte
	err  error
}

func (w *captureWriter) Put(ctx context.Context, path string, data io.Reader, contentType string) error {
	if w.err != nil {
		return w.err
	}
	w.path = path
	body, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	w.body = body
	return nil
}

type stubArchiveStore struct {
	listings []domain.Listing
	pruned   bool
	cutoff   time.Time
}

func (s *stubArchiveStore) ListBefore(ctx context.Context, cutoff time.Time, limit int) ([]domain.Listing, error) {
	return s.listings, nil
}

func (s *stubArchiveStore) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	s.pruned = true
	s.cutoff = cutoff
	return int64(len(s.listings)), nil
}

func agedListing(world int32, item int32, price int64) domain.Listing {
	return domain.Listing{
		World:     domain.World{ID: world, Name: "Odin"},
		ItemID:    item,
		HQ:        true,
		UnitPrice: price,
		Quantity:  2,
		Total:     price * 2,
		Updated:   time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestArchiveListingsExportsAndPrunes(t *testing.T) {
	writer := &captureWriter{}
	store := &stubArchiveStore{listings: []domain.Listing{
		agedListing(2, 5057, 100),
		agedListing(2, 5058, 250),
	}}
	a := NewListingArchiver(writer, store, 0)

	before := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	count, err := a.ArchiveListings(context.Background(), before)
	if err != nil {
		t.Fatalf("ArchiveListings: %v", err)
	}

	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}
	if writer.path != "archive/listings/2026-08-01.jsonl" {
		t.Errorf("path = %q", writer.path)
	}
	if !store.pruned {
		t.Error("exported rows were not pruned")
	}
	if !store.cutoff.Equal(before) {
		t.Errorf("prune cutoff = %v, want %v", store.cutoff, before)
	}

	// Each line must decode back to a record.
	scanner := bufio.NewScanner(bytes.NewReader(writer.body))
	lines := 0
	for scanner.Scan() {
		var rec listingRecord
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			t.Fatalf("decode line %d: %v", lines, err)
		}
		lines++
	}
	if lines != 2 {
		t.Errorf("exported %d lines, want 2", lines)
	}
}

func TestArchiveListingsEmptyIsNoop(t *testing.T) {
	writer := &captureWriter{}
	store := &stubArchiveStore{}
	a := NewListingArchiver(writer, store, 0)

	count, err := a.ArchiveListings(context.Background(), time.Now().UTC())
	if err != nil {
		t.Fatalf("ArchiveListings: %v", err)
	}
	if count != 0 {
		t.Errorf("count = %d, want 0", count)
	}
	if writer.path != "" || store.pruned {
		t.Error("empty run must not upload or prune")
	}
}

func TestArchiveListingsUploadFailureSkipsPrune(t *testing.T) {
	wantErr := errors.New("bucket unavailable")
	writer := &captureWriter{err: wantErr}
	store := &stubArchiveStore{listings: []domain.Listing{agedListing(2, 5057, 100)}}
	a := NewListingArchiver(writer, store, 0)

	_, err := a.ArchiveListings(context.Background(), time.Now().UTC())
	if !errors.Is(err, wantErr) {
		t.Fatalf("error = %v, want wrapped %v", err, wantErr)
	}
	if store.pruned {
		t.Error("prune must not run after a failed upload")
	}
}
