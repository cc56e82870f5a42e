package query

import (
	"fmt"
	"strings"
)

// Operation is one stage of a filter plan.
//
// This is a sealed interface: only types in this package implement it, so
// the executor's type switch is exhaustive.
type Operation interface {
	fmt.Stringer
	operation()
}

// Plan is the ordered sequence of stages built once per query. It is not
// modified during execution.
type Plan []Operation

// Equality keeps records whose Field equals Value, ignoring case.
type Equality struct {
	Field string
	Value string
}

// WildcardMatch keeps records whose Field matches Pattern in Mode.
type WildcardMatch struct {
	Field   string
	Pattern string
	Mode    MatchMode
}

// CategoryFilter keeps records whose Category equals Value, ignoring case.
type CategoryFilter struct {
	Value string
}

// CategoryField is the member CategoryFilter reads.
const CategoryField = "Category"

// Sort orders records by Field.
type Sort struct {
	Field     string
	Direction Direction
}

// ProjectDistinct replaces the records with the distinct values of Field,
// in order of first occurrence.
type ProjectDistinct struct {
	Field string
}

// ProjectFields reduces each record to Fields.
type ProjectFields struct {
	Fields []string
}

// Paginate keeps the window limit < i <= offset.
type Paginate struct {
	Limit  int
	Offset int
}

func (Equality) operation()        {}
func (WildcardMatch) operation()   {}
func (CategoryFilter) operation()  {}
func (Sort) operation()            {}
func (ProjectDistinct) operation() {}
func (ProjectFields) operation()   {}
func (Paginate) operation()        {}

func (o Equality) String() string { return fmt.Sprintf("Equality(%s=%q)", o.Field, o.Value) }

func (o WildcardMatch) String() string {
	return fmt.Sprintf("WildcardMatch(%s %s %q)", o.Field, o.Mode, o.Pattern)
}

func (o CategoryFilter) String() string { return fmt.Sprintf("CategoryFilter(%q)", o.Value) }

func (o Sort) String() string { return fmt.Sprintf("Sort(%s,%s)", o.Field, o.Direction) }

func (o ProjectDistinct) String() string { return fmt.Sprintf("ProjectDistinct(%s)", o.Field) }

func (o ProjectFields) String() string {
	return fmt.Sprintf("ProjectFields(%s)", strings.Join(o.Fields, ","))
}

func (o Paginate) String() string { return fmt.Sprintf("Paginate(%d,%d]", o.Limit, o.Offset) }

// String renders the plan as a stage list, for logs.
func (p Plan) String() string {
	parts := make([]string, len(p))
	for i, op := range p {
		parts[i] = op.String()
	}
	return "[" + strings.Join(parts, " -> ") + "]"
}
