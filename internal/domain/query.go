package domain

import "time"

// SortDirection represents ordering direction for sortable fields.
type SortDirection string

const (
	SortDirectionAsc  SortDirection = "asc"
	SortDirectionDesc SortDirection = "desc"
)

// OrderBy is one ORDER BY entry.
type OrderBy struct {
	Field     string
	Direction SortDirection
}

// CacheOptions mirror the query cache hints accepted by the element store.
// They are carried through unchanged; nothing in this module caches results.
type CacheOptions struct {
	TTL        time.Duration
	CacheJoins bool
}

// QueryOptions shape the element fetch beyond its filter.
type QueryOptions struct {
	Select []string
	Group  []string
	Order  []OrderBy
	Limit  int
	Offset int
	Cache  CacheOptions
}

// Query is a filter plus its options, as accepted by the list operation.
type Query struct {
	Filter  Filter
	Options QueryOptions
}
