package domain

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// FilterOperator is the comparison encoded as a prefix of a filter key.
type FilterOperator string

const (
	FilterOpEqual        FilterOperator = ""
	FilterOpNot          FilterOperator = "!"
	FilterOpGreater      FilterOperator = ">"
	FilterOpGreaterEqual FilterOperator = ">="
	FilterOpLess         FilterOperator = "<"
	FilterOpLessEqual    FilterOperator = "<="
	// FilterOpLike matches the value as a substring. LIKE wildcards in the
	// value are escaped and match literally.
	FilterOpLike FilterOperator = "%"
)

// longest prefixes first so ">=" wins over ">"
var filterOperators = []FilterOperator{
	FilterOpGreaterEqual,
	FilterOpLessEqual,
	FilterOpGreater,
	FilterOpLess,
	FilterOpNot,
	FilterOpLike,
}

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// relationAliases maps accepted relation spellings to the relation they name.
var relationAliases = map[string]string{
	"iblock": "container",
}

// Filter is a predicate over element fields. Keys are "[op]field" where field
// is an element column or a dotted relation field such as "container.code".
// A slice value means membership.
type Filter map[string]any

// Merge returns a new filter holding every key of f plus the keys of other
// that f does not already define. Keys are compared by CanonicalKey, so
// "IBLOCK.CODE" in other collides with "container.code" in f. Keys of f win.
func (f Filter) Merge(other Filter) Filter {
	merged := make(Filter, len(f)+len(other))
	taken := make(map[string]struct{}, len(f))
	for k, v := range f {
		merged[k] = v
		taken[CanonicalKey(k)] = struct{}{}
	}
	for k, v := range other {
		if _, ok := taken[CanonicalKey(k)]; ok {
			continue
		}
		merged[k] = v
	}
	return merged
}

// CanonicalKey returns the spelling-independent form of a filter key: the
// operator, the relation with aliases resolved and the lowercased column.
// "=" is folded into plain equality. Keys that do not parse are returned as is.
func CanonicalKey(key string) string {
	op, ref, err := ParseFilterKey(key)
	if err != nil {
		return key
	}
	column := strings.ToLower(ref.Column)
	if ref.Relation == "" {
		return string(op) + column
	}
	relation := ref.Relation
	if canonical, ok := relationAliases[relation]; ok {
		relation = canonical
	}
	return string(op) + relation + "." + column
}

// Keys returns the filter keys in a deterministic order.
func (f Filter) Keys() []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// FieldRef names an element column, optionally through a relation.
type FieldRef struct {
	Relation string
	Column   string
}

// Alias is the result column name used when a relation field is selected.
func (r FieldRef) Alias() string {
	if r.Relation == "" {
		return r.Column
	}
	return r.Relation + "_" + r.Column
}

// Condition is a parsed filter entry.
type Condition struct {
	Op    FilterOperator
	Field FieldRef
	Value any
}

// ParseFilterKey splits a filter key into its operator and field reference.
func ParseFilterKey(key string) (FilterOperator, FieldRef, error) {
	trimmed := strings.TrimSpace(key)
	op := FilterOpEqual
	for _, candidate := range filterOperators {
		if strings.HasPrefix(trimmed, string(candidate)) {
			op = candidate
			trimmed = strings.TrimPrefix(trimmed, string(candidate))
			break
		}
	}
	// "=" is accepted as an explicit equality prefix
	trimmed = strings.TrimPrefix(trimmed, "=")

	ref, err := ParseFieldRef(trimmed)
	if err != nil {
		return "", FieldRef{}, fmt.Errorf("filter key %q: %w", key, err)
	}
	return op, ref, nil
}

// ParseFieldRef parses "column" or "relation.column".
func ParseFieldRef(name string) (FieldRef, error) {
	parts := strings.Split(strings.TrimSpace(name), ".")
	switch len(parts) {
	case 1:
		if !identifierPattern.MatchString(parts[0]) {
			return FieldRef{}, fmt.Errorf("%w: bad field name %q", ErrInvalidQuery, name)
		}
		return FieldRef{Column: parts[0]}, nil
	case 2:
		if !identifierPattern.MatchString(parts[0]) || !identifierPattern.MatchString(parts[1]) {
			return FieldRef{}, fmt.Errorf("%w: bad field name %q", ErrInvalidQuery, name)
		}
		return FieldRef{Relation: strings.ToLower(parts[0]), Column: parts[1]}, nil
	default:
		return FieldRef{}, fmt.Errorf("%w: nested relations are not supported in %q", ErrInvalidQuery, name)
	}
}

// Conditions parses every key of the filter, in key order.
func (f Filter) Conditions() ([]Condition, error) {
	conditions := make([]Condition, 0, len(f))
	for _, key := range f.Keys() {
		op, ref, err := ParseFilterKey(key)
		if err != nil {
			return nil, err
		}
		conditions = append(conditions, Condition{Op: op, Field: ref, Value: f[key]})
	}
	return conditions, nil
}
