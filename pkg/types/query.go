package types

import (
	"fmt"
	"net/url"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Control parameter names. Every other query key is a filter parameter.
const (
	ParamSort   = "sort"
	ParamLimit  = "limit"
	ParamOffset = "offset"
	ParamField  = "field"
	ParamFields = "fields"
)

// ControlParams lists the control parameter names.
var ControlParams = []string{ParamSort, ParamLimit, ParamOffset, ParamField, ParamFields}

// IsControlParam reports whether name is one of the control parameters.
func IsControlParam(name string) bool {
	switch name {
	case ParamSort, ParamLimit, ParamOffset, ParamField, ParamFields:
		return true
	}
	return false
}

// Query is the ordered set of raw parameters received at the boundary.
// The zero Query is empty and ready to use.
type Query struct {
	params *orderedmap.OrderedMap[string, string]
}

// NewQuery builds a query from alternating name/value pairs.
func NewQuery(pairs ...string) Query {
	if len(pairs)%2 != 0 {
		panic("types.NewQuery: odd number of arguments")
	}
	var q Query
	for i := 0; i < len(pairs); i += 2 {
		q.Set(pairs[i], pairs[i+1])
	}
	return q
}

// Set assigns a parameter. A repeated name keeps its first position.
func (q *Query) Set(name, value string) {
	if q.params == nil {
		q.params = orderedmap.New[string, string]()
	}
	q.params.Set(name, value)
}

// Get returns the raw value of name and whether it was supplied.
func (q Query) Get(name string) (string, bool) {
	if q.params == nil {
		return "", false
	}
	return q.params.Get(name)
}

// Has reports whether name was supplied.
func (q Query) Has(name string) bool {
	_, ok := q.Get(name)
	return ok
}

// Names returns the parameter names in the order they were supplied.
func (q Query) Names() []string {
	if q.params == nil {
		return nil
	}
	names := make([]string, 0, q.params.Len())
	for pair := q.params.Oldest(); pair != nil; pair = pair.Next() {
		names = append(names, pair.Key)
	}
	return names
}

// Len returns the number of parameters.
func (q Query) Len() int {
	if q.params == nil {
		return 0
	}
	return q.params.Len()
}

// String renders the query in URL form, preserving order.
func (q Query) String() string {
	var sb strings.Builder
	for i, name := range q.Names() {
		if i > 0 {
			sb.WriteByte('&')
		}
		v, _ := q.Get(name)
		sb.WriteString(url.QueryEscape(name))
		sb.WriteByte('=')
		sb.WriteString(url.QueryEscape(v))
	}
	return sb.String()
}

// ParseQuery parses a raw URL query string, preserving parameter order.
// A parameter without "=" is kept with an empty value.
func ParseQuery(raw string) (Query, error) {
	var q Query
	for _, part := range strings.Split(raw, "&") {
		if part == "" {
			continue
		}
		name, value, _ := strings.Cut(part, "=")
		n, err := url.QueryUnescape(name)
		if err != nil {
			return Query{}, fmt.Errorf("decoding parameter name %q: %w", name, err)
		}
		v, err := url.QueryUnescape(value)
		if err != nil {
			return Query{}, fmt.Errorf("decoding value of %q: %w", n, err)
		}
		q.Set(n, v)
	}
	return q, nil
}

// QueryFromArgs builds a query from "name=value" arguments.
func QueryFromArgs(args []string) (Query, error) {
	var q Query
	for _, arg := range args {
		name, value, ok := strings.Cut(arg, "=")
		if !ok || name == "" {
			return Query{}, fmt.Errorf("invalid parameter %q (expected name=value)", arg)
		}
		q.Set(name, value)
	}
	return q, nil
}
