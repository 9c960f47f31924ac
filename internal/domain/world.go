package domain

// Region is the top-level grouping of data centers (e.g. "Europe").
type Region string

// DataCenter is a named group of worlds treated as one liquidity pool when
// comparing markets.
type DataCenter struct {
	ID     int32
	Name   string
	Region Region
}

// World is a single game market. Every world belongs to exactly one data
// center; a world whose data center is unknown cannot be used as the home
// side of an offer scan.
type World struct {
	ID         int32
	Name       string
	DataCenter *DataCenter
}

// InScope reports whether the world falls inside the comparison scope anchored
// at home. A world with no data center assignment is never in scope.
func (w World) InScope(target Scope, home World) bool {
	if w.DataCenter == nil || home.DataCenter == nil {
		return false
	}
	switch target {
	case ScopeRegion:
		return w.DataCenter.Region == home.DataCenter.Region
	case ScopeDataCenter:
		return w.DataCenter.ID == home.DataCenter.ID
	default:
		return false
	}
}
