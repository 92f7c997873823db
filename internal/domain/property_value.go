package domain

import "encoding/json"

// PropertyValue is either a single value or an ordered list of values.
// The shape is part of the contract: a property stored once per element is
// a scalar, a property stored several times is a list in fetch order.
type PropertyValue struct {
	values []string
	multi  bool
}

// Scalar builds a single-valued property value.
func Scalar(v string) PropertyValue {
	return PropertyValue{values: []string{v}}
}

// Multi builds a list-shaped property value. The slice is copied.
func Multi(vs []string) PropertyValue {
	copied := make([]string, len(vs))
	copy(copied, vs)
	return PropertyValue{values: copied, multi: true}
}

// FromValues collapses a list of exactly one value to a scalar and keeps
// every other length as a list.
func FromValues(vs []string) PropertyValue {
	if len(vs) == 1 {
		return Scalar(vs[0])
	}
	return Multi(vs)
}

// IsMulti reports whether the value is list-shaped.
func (p PropertyValue) IsMulti() bool {
	return p.multi
}

// Scalar returns the single value and true for scalar values.
func (p PropertyValue) Scalar() (string, bool) {
	if p.multi || len(p.values) == 0 {
		return "", false
	}
	return p.values[0], true
}

// Values returns a copy of the underlying values, one element for scalars.
func (p PropertyValue) Values() []string {
	out := make([]string, len(p.values))
	copy(out, p.values)
	return out
}

// Map returns a new value of the same shape with fn applied to every element.
func (p PropertyValue) Map(fn func(string) string) PropertyValue {
	out := make([]string, len(p.values))
	for i, v := range p.values {
		out[i] = fn(v)
	}
	return PropertyValue{values: out, multi: p.multi}
}

// Interface returns a string for scalars and a []string for lists.
func (p PropertyValue) Interface() any {
	if v, ok := p.Scalar(); ok {
		return v
	}
	return p.Values()
}

func (p PropertyValue) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Interface())
}

func (p *PropertyValue) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*p = Scalar(single)
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	*p = Multi(list)
	return nil
}
