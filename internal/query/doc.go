// Package query validates raw query parameters against a record kind and
// executes the resulting filter plan over an in-memory collection.
//
// # Parameters
//
// A query key is either a filter parameter, naming a declared field of the
// kind, or one of the control parameters sort, limit, offset, field and
// fields. Filter values are literals or wildcard patterns:
//
//	Title=alpha    case-insensitive equality
//	Title=alp*     prefix
//	Title=*pha     suffix
//	Title=*lph*    substring
//
// # Plans
//
// Validate checks every parameter before anything runs and returns either a
// Plan or a *types.ValidationError describing the first problem found.
// Filters appear in the plan in query order, followed by Sort, then
// ProjectDistinct or ProjectFields, then Paginate.
//
// Execute feeds each stage's output into the next. An empty intermediate
// result flows through the remaining stages; it is not an error.
package query
