package domain

import (
	"bytes"
	"encoding/json"
	"strconv"
)

const (
	// IndexKey carries the original element id on every output row.
	IndexKey = "_index"
	// PropsKey carries the resolved properties when they were requested.
	PropsKey = "props"
)

// OutputRow is the client-facing shape of one element. Fields keep their
// insertion order; setting an existing name replaces the value in place.
type OutputRow struct {
	fields []Field
}

// NewOutputRow creates a row whose first field is the identity key.
func NewOutputRow(id int64) *OutputRow {
	return &OutputRow{fields: []Field{{Name: IndexKey, Value: id}}}
}

// Set adds or replaces a field.
func (r *OutputRow) Set(name string, value any) {
	for i := range r.fields {
		if r.fields[i].Name == name {
			r.fields[i].Value = value
			return
		}
	}
	r.fields = append(r.fields, Field{Name: name, Value: value})
}

// Get returns the value stored under name.
func (r *OutputRow) Get(name string) (any, bool) {
	for _, f := range r.fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// Index returns the original element id.
func (r *OutputRow) Index() int64 {
	v, _ := r.Get(IndexKey)
	id, _ := v.(int64)
	return id
}

// Props returns the attached properties, if any.
func (r *OutputRow) Props() (Props, bool) {
	v, ok := r.Get(PropsKey)
	if !ok {
		return nil, false
	}
	props, ok := v.(Props)
	return props, ok
}

// Keys returns field names in order.
func (r *OutputRow) Keys() []string {
	keys := make([]string, len(r.fields))
	for i, f := range r.fields {
		keys[i] = f.Name
	}
	return keys
}

// Fields returns a copy of the ordered fields.
func (r *OutputRow) Fields() []Field {
	out := make([]Field, len(r.fields))
	copy(out, r.fields)
	return out
}

func (r *OutputRow) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(f.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Collection maps element ids to output rows in fetch order.
type Collection struct {
	ids  []int64
	rows map[int64]*OutputRow
}

// NewCollection returns an empty collection.
func NewCollection() *Collection {
	return &Collection{rows: make(map[int64]*OutputRow)}
}

// Put stores a row. Replacing an existing id keeps its original position.
func (c *Collection) Put(id int64, row *OutputRow) {
	if _, exists := c.rows[id]; !exists {
		c.ids = append(c.ids, id)
	}
	c.rows[id] = row
}

// Get returns the row for id.
func (c *Collection) Get(id int64) (*OutputRow, bool) {
	row, ok := c.rows[id]
	return row, ok
}

// IDs returns element ids in fetch order.
func (c *Collection) IDs() []int64 {
	out := make([]int64, len(c.ids))
	copy(out, c.ids)
	return out
}

// Rows returns the rows in fetch order.
func (c *Collection) Rows() []*OutputRow {
	out := make([]*OutputRow, len(c.ids))
	for i, id := range c.ids {
		out[i] = c.rows[id]
	}
	return out
}

// Len returns the number of rows.
func (c *Collection) Len() int {
	return len(c.ids)
}

// First returns the first row in fetch order.
func (c *Collection) First() (*OutputRow, bool) {
	if len(c.ids) == 0 {
		return nil, false
	}
	return c.rows[c.ids[0]], true
}

// MarshalJSON encodes the collection as an object keyed by element id,
// keys in fetch order.
func (c *Collection) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, id := range c.ids {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(strconv.Quote(strconv.FormatInt(id, 10)))
		buf.WriteByte(':')
		row, err := c.rows[id].MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(row)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
