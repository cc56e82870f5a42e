package query

import (
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/mesh-intelligence/shelf/pkg/types"
)

// Direction is a sort order.
type Direction int

// Sort directions.
const (
	Ascending Direction = iota
	Descending
)

func (d Direction) String() string {
	if d == Descending {
		return "desc"
	}
	return "asc"
}

// SortRecords returns a copy of records ordered by field. Keys are
// lower-cased and compared with the root collation; ties keep their
// original relative order in both directions.
func SortRecords(records []types.Record, field string, dir Direction) []types.Record {
	type keyed struct {
		key string
		rec types.Record
	}
	items := make([]keyed, len(records))
	for i, r := range records {
		items[i] = keyed{key: strings.ToLower(r.Text(field)), rec: r}
	}

	// Collators are not safe for concurrent use.
	col := collate.New(language.Und)
	slices.SortStableFunc(items, func(a, b keyed) int {
		c := col.CompareString(a.key, b.key)
		if dir == Descending {
			return -c
		}
		return c
	})

	out := make([]types.Record, len(items))
	for i, it := range items {
		out[i] = it.rec
	}
	return out
}
