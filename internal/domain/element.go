package domain

import "strings"

// Field is a single named column of a fetched element row.
type Field struct {
	Name  string
	Value any
}

// Record represents one element row as returned by the store.
// Fields keep the column order of the fetch.
type Record struct {
	ID          int64
	ContainerID int64
	Fields      []Field
}

// Get returns the value of the named field, matching case-insensitively.
func (r Record) Get(name string) (any, bool) {
	for _, f := range r.Fields {
		if strings.EqualFold(f.Name, name) {
			return f.Value, true
		}
	}
	return nil, false
}
