package entity

import (
	"fmt"
	"strings"
)

type Op string

const (
	OpEquals   Op = "eq"
	OpContains Op = "contains"
	OpExists   Op = "exists"
)

// Attribute names used by filters, shared by all backends.
const (
	AttrID              = "id"
	AttrName            = "name"
	AttrLink            = "link"
	AttrAssetIdentifier = "asset_identifier"
	AttrAssetType       = "asset_type"
	AttrAssetGroupID    = "asset_group_id"
	AttrServiceID       = "service_id"
	AttrAssetID         = "asset_id"
	AttrTeam            = "team"
	AttrOperator        = "operator"
	AttrScore           = "score"
)

// Filter is a single attribute predicate. Multiple filters passed to Scan
// are ANDed.
type Filter struct {
	Attribute string
	Op        Op
	Value     string
}

func Equals(attr, value string) Filter {
	return Filter{Attribute: attr, Op: OpEquals, Value: value}
}

// Contains is case-sensitive substring containment.
func Contains(attr, value string) Filter {
	return Filter{Attribute: attr, Op: OpContains, Value: value}
}

func Exists(attr string) Filter {
	return Filter{Attribute: attr, Op: OpExists}
}

func (f Filter) String() string {
	if f.Op == OpExists {
		return fmt.Sprintf("%s %s", f.Attribute, f.Op)
	}
	return fmt.Sprintf("%s %s %q", f.Attribute, f.Op, f.Value)
}

// Match evaluates the filter against an attribute lookup. Backends without
// a query language of their own use it directly.
func (f Filter) Match(lookup func(attr string) (string, bool)) bool {
	v, ok := lookup(f.Attribute)
	switch f.Op {
	case OpExists:
		return ok
	case OpEquals:
		return ok && v == f.Value
	case OpContains:
		return ok && strings.Contains(v, f.Value)
	default:
		return false
	}
}

func MatchAll(filters []Filter, lookup func(attr string) (string, bool)) bool {
	for _, f := range filters {
		if !f.Match(lookup) {
			return false
		}
	}
	return true
}
