package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// IDField is the identity member every record carries.
const IDField = "Id"

// Record is one schema-conformant entity: an insertion-ordered mapping from
// field name to a scalar value (string, int64, float64, bool or nil).
// The zero Record is empty and ready to use.
type Record struct {
	fields *orderedmap.OrderedMap[string, any]
}

// NewRecord builds a record from alternating field/value pairs.
// It panics on an odd number of arguments or a non-string field name.
func NewRecord(pairs ...any) Record {
	if len(pairs)%2 != 0 {
		panic("types.NewRecord: odd number of arguments")
	}
	r := Record{fields: orderedmap.New[string, any]()}
	for i := 0; i < len(pairs); i += 2 {
		name, ok := pairs[i].(string)
		if !ok {
			panic(fmt.Sprintf("types.NewRecord: field name %v is not a string", pairs[i]))
		}
		r.Set(name, pairs[i+1])
	}
	return r
}

// ID returns the record identity, or 0 when the record has none.
func (r Record) ID() int64 {
	v, _ := r.Get(IDField)
	id, _ := v.(int64)
	return id
}

// SetID stamps the record identity.
func (r *Record) SetID(id int64) {
	r.Set(IDField, id)
}

// Get returns the value of field and whether the field is present.
func (r Record) Get(field string) (any, bool) {
	if r.fields == nil {
		return nil, false
	}
	return r.fields.Get(field)
}

// Set assigns a field. New fields are appended; existing fields keep their
// position. Integral numeric values are normalized to int64.
func (r *Record) Set(field string, value any) {
	if r.fields == nil {
		r.fields = orderedmap.New[string, any]()
	}
	r.fields.Set(field, normalizeScalar(value))
}

// Delete removes a field if present.
func (r *Record) Delete(field string) {
	if r.fields != nil {
		r.fields.Delete(field)
	}
}

// Has reports whether the record carries field.
func (r Record) Has(field string) bool {
	_, ok := r.Get(field)
	return ok
}

// Fields returns the field names in insertion order.
func (r Record) Fields() []string {
	if r.fields == nil {
		return nil
	}
	names := make([]string, 0, r.fields.Len())
	for pair := r.fields.Oldest(); pair != nil; pair = pair.Next() {
		names = append(names, pair.Key)
	}
	return names
}

// Len returns the number of fields.
func (r Record) Len() int {
	if r.fields == nil {
		return 0
	}
	return r.fields.Len()
}

// Text renders the value of field as a string for matching and ordering.
// A missing field or nil value renders as the empty string.
func (r Record) Text(field string) string {
	v, _ := r.Get(field)
	return ScalarText(v)
}

// Clone returns an independent copy of the record.
func (r Record) Clone() Record {
	c := Record{fields: orderedmap.New[string, any]()}
	for _, name := range r.Fields() {
		v, _ := r.Get(name)
		c.fields.Set(name, v)
	}
	return c
}

// Project returns a new record holding only the named fields, in the order
// given. Fields absent from r are carried as nil.
func (r Record) Project(fields []string) Record {
	p := Record{fields: orderedmap.New[string, any]()}
	for _, name := range fields {
		v, _ := r.Get(name)
		p.fields.Set(name, v)
	}
	return p
}

// Map returns the record as a plain map, for schema validation.
func (r Record) Map() map[string]any {
	m := make(map[string]any, r.Len())
	for _, name := range r.Fields() {
		m[name], _ = r.Get(name)
	}
	return m
}

// Equal reports whether two records hold the same fields, values and order.
func (r Record) Equal(other Record) bool {
	a, b := r.Fields(), other.Fields()
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
		va, _ := r.Get(a[i])
		vb, _ := other.Get(b[i])
		if va != vb {
			return false
		}
	}
	return true
}

// String renders the record as compact JSON.
func (r Record) String() string {
	b, err := json.Marshal(r)
	if err != nil {
		return fmt.Sprintf("Record(%v)", r.Fields())
	}
	return string(b)
}

// MarshalJSON encodes the record as a JSON object preserving field order.
func (r Record) MarshalJSON() ([]byte, error) {
	if r.fields == nil {
		return []byte("{}"), nil
	}
	return r.fields.MarshalJSON()
}

// UnmarshalJSON decodes a JSON object, preserving field order. Nested
// objects and arrays are rejected: record values are scalars.
func (r *Record) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return fmt.Errorf("%w: record must be a JSON object", ErrInvalidData)
	}
	m := orderedmap.New[string, any]()
	if err := m.UnmarshalJSON(data); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	r.fields = orderedmap.New[string, any]()
	for pair := m.Oldest(); pair != nil; pair = pair.Next() {
		switch pair.Value.(type) {
		case map[string]any, []any:
			return fmt.Errorf("%w: field %q is not a scalar", ErrInvalidData, pair.Key)
		}
		r.fields.Set(pair.Key, normalizeScalar(pair.Value))
	}
	return nil
}

// ScalarText renders a scalar value as a string.
func ScalarText(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case int64:
		return strconv.FormatInt(s, 10)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(s)
	default:
		return fmt.Sprint(s)
	}
}

// normalizeScalar folds the numeric types produced by callers and by
// encoding/json into int64 or float64.
func normalizeScalar(v any) any {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int32:
		return int64(n)
	case uint32:
		return int64(n)
	case float32:
		return normalizeScalar(float64(n))
	case float64:
		if n == math.Trunc(n) && math.Abs(n) < 1<<53 {
			return int64(n)
		}
		return n
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i
		}
		if f, err := n.Float64(); err == nil {
			return f
		}
		return n.String()
	default:
		return v
	}
}
