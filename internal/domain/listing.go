package domain

import "time"

// Listing is an immutable snapshot of a single market board entry. Many
// listings may exist per (world, item, hq) at a given time. Quantity and Total
// are always non-negative; UnitPrice is always positive.
type Listing struct {
	World     World
	ItemID    int32
	HQ        bool
	UnitPrice int64
	Quantity  int64
	Total     int64
	Updated   time.Time
}

// Fresh reports whether the listing snapshot was updated within maxAge of now.
func (l Listing) Fresh(now time.Time, maxAge time.Duration) bool {
	return now.Sub(l.Updated) <= maxAge
}
