package query

import (
	"strconv"
	"strings"

	"github.com/mesh-intelligence/shelf/pkg/types"
)

// NameAlias is the sort token aliased to the kind's title-like member.
const NameAlias = "name"

// Sort direction tokens.
const (
	dirAsc  = "asc"
	dirDesc = "desc"
)

// Validate classifies the raw parameters of q against kind and returns the
// filter plan, or a *types.ValidationError for the first problem found.
// Checks run in a fixed priority order and nothing is planned until every
// check has passed.
func Validate(q types.Query, kind types.RecordKind) (Plan, error) {
	v := validator{q: q, kind: kind, names: q.Names()}

	checks := []func() error{
		v.checkValues,
		v.checkNames,
		v.checkExclusive,
		v.checkPairs,
		v.checkWildcards,
		v.checkSort,
		v.checkProjection,
		v.checkPagination,
	}
	for _, check := range checks {
		if err := check(); err != nil {
			return nil, err
		}
	}
	return v.build(), nil
}

// validator holds the parsed pieces of one query while it is checked.
type validator struct {
	q     types.Query
	kind  types.RecordKind
	names []string

	sort       *Sort
	distinct   *ProjectDistinct
	projection *ProjectFields
	paginate   *Paginate
}

func (v *validator) value(name string) string {
	s, _ := v.q.Get(name)
	return s
}

// filterNames returns the filter parameters in query order.
func (v *validator) filterNames() []string {
	var out []string
	for _, name := range v.names {
		if !types.IsControlParam(name) {
			out = append(out, name)
		}
	}
	return out
}

func (v *validator) checkValues() error {
	for _, name := range v.names {
		if v.value(name) == "" {
			return types.Newf(types.MissingValue, "Value of '%s' parameter missing.", name)
		}
	}
	return nil
}

func (v *validator) checkNames() error {
	for _, name := range v.filterNames() {
		if _, ok := v.kind.Resolve(name); !ok {
			return types.Newf(types.UnknownParameter, "Parameter '%s=%s' unknown.", name, v.value(name))
		}
	}
	return nil
}

func (v *validator) checkExclusive() error {
	if v.q.Has(types.ParamField) && v.q.Has(types.ParamFields) {
		return types.Newf(types.MutuallyExclusiveParameters,
			"Parameters '%s' and '%s' cannot be combined.", types.ParamField, types.ParamFields)
	}
	return nil
}

func (v *validator) checkPairs() error {
	hasLimit, hasOffset := v.q.Has(types.ParamLimit), v.q.Has(types.ParamOffset)
	switch {
	case hasLimit && !hasOffset:
		return types.Newf(types.MissingPairedParameter, "Offset parameter missing.")
	case hasOffset && !hasLimit:
		return types.Newf(types.MissingPairedParameter, "Limit parameter missing.")
	}
	return nil
}

func (v *validator) checkWildcards() error {
	for _, name := range v.filterNames() {
		value := v.value(name)
		if strings.Contains(value, Wildcard) && !ValidWildcard(value) {
			return types.Newf(types.InvalidWildcardSyntax, "The format of the query '%s=%s' is invalid.", name, value)
		}
	}
	return nil
}

func (v *validator) checkSort() error {
	raw, ok := v.q.Get(types.ParamSort)
	if !ok {
		return nil
	}

	parts := strings.Split(raw, ",")
	if len(parts) > 2 {
		return types.Newf(types.InvalidSortField, "Sort parameter '%s' invalid.", raw)
	}

	dir := Ascending
	if len(parts) == 2 {
		switch parts[1] {
		case dirAsc:
		case dirDesc:
			dir = Descending
		default:
			return types.Newf(types.InvalidSortField, "Sort direction '%s' invalid.", parts[1])
		}
	}

	field := parts[0]
	if strings.EqualFold(field, NameAlias) {
		field = v.kind.Title()
	} else if resolved, ok := v.kind.Resolve(field); ok {
		field = resolved
	}
	if !v.kind.IsMember(field) {
		return types.Newf(types.InvalidSortField, "Sort field '%s' invalid.", parts[0])
	}

	v.sort = &Sort{Field: field, Direction: dir}
	return nil
}

func (v *validator) checkProjection() error {
	if raw, ok := v.q.Get(types.ParamField); ok {
		field, err := v.resolveProjected(raw)
		if err != nil {
			return err
		}
		v.distinct = &ProjectDistinct{Field: field}
	}

	if raw, ok := v.q.Get(types.ParamFields); ok {
		var fields []string
		seen := make(map[string]bool)
		for _, token := range strings.Split(raw, ",") {
			field, err := v.resolveProjected(token)
			if err != nil {
				return err
			}
			if !seen[field] {
				seen[field] = true
				fields = append(fields, field)
			}
		}
		v.projection = &ProjectFields{Fields: fields}
	}
	return nil
}

func (v *validator) resolveProjected(token string) (string, error) {
	if token == "" {
		return "", types.Newf(types.UnknownFieldProjection, "Malformed fields parameter.")
	}
	field, ok := v.kind.Resolve(token)
	if !ok {
		return "", types.Newf(types.UnknownFieldProjection,
			"The data model %s does not contain the property '%s'.", v.kind.Collection(), token)
	}
	return field, nil
}

func (v *validator) checkPagination() error {
	if !v.q.Has(types.ParamLimit) {
		return nil
	}

	limit, ok := parseCount(v.value(types.ParamLimit))
	if !ok {
		return types.Newf(types.NonIntegerPaginationValue, "Limit parameter must be an integer greater or equal to 0.")
	}
	offset, ok := parseCount(v.value(types.ParamOffset))
	if !ok {
		return types.Newf(types.NonIntegerPaginationValue, "Offset parameter must be an integer greater or equal to 0.")
	}
	if offset <= limit {
		return types.Newf(types.InvalidPaginationRange,
			"Offset parameter (%d) cannot be equal or lesser than the limit parameter (%d).", offset, limit)
	}

	v.paginate = &Paginate{Limit: limit, Offset: offset}
	return nil
}

// parseCount accepts a non-empty string of ASCII digits that fits an int.
func parseCount(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

// build assembles the plan: filters in query order, then sort, projection
// and pagination.
func (v *validator) build() Plan {
	var plan Plan
	for _, name := range v.filterNames() {
		field, _ := v.kind.Resolve(name)
		value := v.value(name)
		switch {
		case strings.Contains(value, Wildcard):
			mode, _ := ModeOf(value)
			plan = append(plan, WildcardMatch{Field: field, Pattern: value, Mode: mode})
		case field == CategoryField:
			plan = append(plan, CategoryFilter{Value: value})
		default:
			plan = append(plan, Equality{Field: field, Value: value})
		}
	}
	if v.sort != nil {
		plan = append(plan, *v.sort)
	}
	if v.distinct != nil {
		plan = append(plan, *v.distinct)
	}
	if v.projection != nil {
		plan = append(plan, *v.projection)
	}
	if v.paginate != nil {
		plan = append(plan, *v.paginate)
	}
	return plan
}
