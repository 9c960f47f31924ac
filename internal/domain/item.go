package domain

import "context"

// Item is a tradeable item. Names are resolved by an external supplier; the
// pipeline only ever joins on the numeric ID.
type Item struct {
	ID   int32
	Name string
}

// NameSupplier resolves item IDs to display names. Implementations may hit a
// database, a cache, or a static data dump; missing IDs are simply absent from
// the returned map, never an error.
type NameSupplier interface {
	Names(ctx context.Context, ids []int32) (map[int32]string, error)
}
