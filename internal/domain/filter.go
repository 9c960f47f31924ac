package domain

import (
	"fmt"
	"strings"
	"time"
)

// Scope selects which worlds compete against the home world.
type Scope string

const (
	// ScopeDataCenter compares against all worlds in the home data center.
	ScopeDataCenter Scope = "data_center"
	// ScopeRegion compares against all worlds in the home region.
	ScopeRegion Scope = "region"
)

// OfferFilter is a user-scoped threshold profile for an offer scan. All fields
// are read-only inputs for a single invocation; the pipeline never mutates a
// filter.
type OfferFilter struct {
	// World is the home world the user sells into.
	World World
	// Target selects the comparison scope around the home world.
	Target Scope

	// MinUnitPrice is the minimum home-side unit price to consider.
	MinUnitPrice int64
	// MaxAge is the freshness window every listing and stats row must satisfy.
	MaxAge time.Duration

	// Home-side stats thresholds. A home line qualifies only when it exceeds
	// every one of these strictly.
	MinPopularity   float64
	MinMarketVolume float64
	MinInterest     float64
	MinSales        int64
	MinViews        int64

	// Listing-level thresholds applied after the cross-world join.
	MinFactor          float64
	MinProfit          int64
	MinEffectiveProfit int64

	// Limit caps the final number of ranked listings.
	Limit int
}

// DefaultFilterLimit is applied when a filter does not set its own limit.
const DefaultFilterLimit = 100

// Normalize fills unset fields with usable values.
func (f OfferFilter) Normalize() OfferFilter {
	if f.Target == "" {
		f.Target = ScopeDataCenter
	}
	if f.MaxAge <= 0 {
		f.MaxAge = time.Hour
	}
	if f.Limit <= 0 {
		f.Limit = DefaultFilterLimit
	}
	return f
}

// Validate checks the filter for obviously invalid values and returns a
// combined error describing every problem found.
func (f OfferFilter) Validate() error {
	var errs []string

	if f.World.ID <= 0 {
		errs = append(errs, "world must be set")
	}
	if f.Target != ScopeDataCenter && f.Target != ScopeRegion {
		errs = append(errs, fmt.Sprintf("unknown target %q (valid: data_center, region)", f.Target))
	}
	if f.MinUnitPrice < 0 {
		errs = append(errs, "min_unit_price must be >= 0")
	}
	if f.MaxAge <= 0 {
		errs = append(errs, "max_age must be > 0")
	}
	if f.MinFactor < 0 {
		errs = append(errs, "min_factor must be >= 0")
	}
	if f.Limit < 0 {
		errs = append(errs, "limit must be >= 0")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w:\n  - %s", ErrInvalidFilter, strings.Join(errs, "\n  - "))
	}
	return nil
}
