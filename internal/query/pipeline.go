package query

import (
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/mesh-intelligence/shelf/pkg/types"
)

// Shape tags what a Result holds.
type Shape int

// Result shapes.
const (
	// ShapeRecords holds full records.
	ShapeRecords Shape = iota
	// ShapeValues holds the distinct scalar values of one field.
	ShapeValues
	// ShapeProjected holds records reduced to the projected fields.
	ShapeProjected
)

func (s Shape) String() string {
	switch s {
	case ShapeValues:
		return "values"
	case ShapeProjected:
		return "projected"
	default:
		return "records"
	}
}

// Result is the output of a plan. An empty result is a valid outcome.
type Result struct {
	Shape   Shape
	Records []types.Record
	Values  []any
}

// Len returns the number of items in the result.
func (r Result) Len() int {
	if r.Shape == ShapeValues {
		return len(r.Values)
	}
	return len(r.Records)
}

// Empty reports whether the result holds no items.
func (r Result) Empty() bool { return r.Len() == 0 }

// MarshalJSON encodes the result as a JSON array, never null.
func (r Result) MarshalJSON() ([]byte, error) {
	if r.Shape == ShapeValues {
		if r.Values == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(r.Values)
	}
	if r.Records == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(r.Records)
}

// Execute runs plan over records, each stage narrowing the previous
// stage's output. The input slice is not modified.
func Execute(plan Plan, records []types.Record) Result {
	res := Result{Shape: ShapeRecords, Records: append([]types.Record{}, records...)}

	for _, op := range plan {
		in := res.Len()
		res = apply(op, res)
		slog.Debug("applied query stage", "stage", op.String(), "in", in, "out", res.Len())
	}
	return res
}

// Run validates q against kind and executes the resulting plan.
func Run(q types.Query, kind types.RecordKind, records []types.Record) (Result, error) {
	plan, err := Validate(q, kind)
	if err != nil {
		return Result{}, err
	}
	return Execute(plan, records), nil
}

func apply(op Operation, res Result) Result {
	// Record-shaped stages have nothing to act on once values are projected.
	if res.Shape == ShapeValues {
		if p, ok := op.(Paginate); ok {
			res.Values = Window(res.Values, p.Limit, p.Offset)
		}
		return res
	}

	switch o := op.(type) {
	case Equality:
		value := strings.ToLower(o.Value)
		res.Records = keep(res.Records, func(r types.Record) bool {
			return strings.ToLower(r.Text(o.Field)) == value
		})
	case WildcardMatch:
		m, err := Compile(o.Pattern)
		if err != nil {
			res.Records = []types.Record{}
			break
		}
		res.Records = keep(res.Records, func(r types.Record) bool {
			return m.Match(r.Text(o.Field))
		})
	case CategoryFilter:
		value := strings.ToLower(o.Value)
		res.Records = keep(res.Records, func(r types.Record) bool {
			return strings.ToLower(r.Text(CategoryField)) == value
		})
	case Sort:
		res.Records = SortRecords(res.Records, o.Field, o.Direction)
	case ProjectDistinct:
		res = Result{Shape: ShapeValues, Values: distinct(res.Records, o.Field)}
	case ProjectFields:
		out := make([]types.Record, len(res.Records))
		for i, r := range res.Records {
			out[i] = r.Project(o.Fields)
		}
		res = Result{Shape: ShapeProjected, Records: out}
	case Paginate:
		res.Records = Window(res.Records, o.Limit, o.Offset)
	}
	return res
}

func keep(records []types.Record, pred func(types.Record) bool) []types.Record {
	out := []types.Record{}
	for _, r := range records {
		if pred(r) {
			out = append(out, r)
		}
	}
	return out
}

// distinct returns the values of field in order of first occurrence.
// Records without the field contribute nil once.
func distinct(records []types.Record, field string) []any {
	out := []any{}
	seen := make(map[any]bool)
	for _, r := range records {
		v, _ := r.Get(field)
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
