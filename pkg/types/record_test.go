package types

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordPreservesFieldOrder(t *testing.T) {
	r := NewRecord("Id", 3, "Title", "Gamma", "Category", "Tech")

	assert.Equal(t, []string{"Id", "Title", "Category"}, r.Fields())
	assert.Equal(t, int64(3), r.ID())

	r.Set("Title", "Delta")
	assert.Equal(t, []string{"Id", "Title", "Category"}, r.Fields(), "existing field keeps position")

	r.Set("Url", "https://example.org")
	assert.Equal(t, []string{"Id", "Title", "Category", "Url"}, r.Fields())
}

func TestRecordZeroValue(t *testing.T) {
	var r Record

	assert.Equal(t, 0, r.Len())
	assert.Equal(t, int64(0), r.ID())
	assert.Equal(t, "", r.Text("Title"))
	assert.False(t, r.Has("Id"))

	b, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(b))

	r.SetID(7)
	assert.Equal(t, int64(7), r.ID())
}

func TestRecordJSONRoundTripKeepsOrder(t *testing.T) {
	input := `{"Id":2,"Title":"Beta","Rating":4.5,"Public":true,"Note":null}`

	var r Record
	require.NoError(t, json.Unmarshal([]byte(input), &r))

	assert.Equal(t, []string{"Id", "Title", "Rating", "Public", "Note"}, r.Fields())
	assert.Equal(t, int64(2), r.ID(), "integral numbers decode as int64")
	v, _ := r.Get("Rating")
	assert.Equal(t, 4.5, v)

	out, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Equal(t, input, string(out))
}

func TestRecordUnmarshalRejectsNestedValues(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "object value", input: `{"Id":1,"Meta":{"a":1}}`},
		{name: "array value", input: `{"Id":1,"Tags":["a"]}`},
		{name: "null document", input: `null`},
		{name: "not an object", input: `[1,2]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var r Record
			err := json.Unmarshal([]byte(tt.input), &r)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidData))
		})
	}
}

func TestRecordText(t *testing.T) {
	r := NewRecord("Id", 1, "Title", "Alpha", "Score", 2.25, "Done", false, "Empty", nil)

	assert.Equal(t, "1", r.Text("Id"))
	assert.Equal(t, "Alpha", r.Text("Title"))
	assert.Equal(t, "2.25", r.Text("Score"))
	assert.Equal(t, "false", r.Text("Done"))
	assert.Equal(t, "", r.Text("Empty"))
	assert.Equal(t, "", r.Text("Missing"))
}

func TestRecordCloneIsIndependent(t *testing.T) {
	r := NewRecord("Id", 1, "Title", "Alpha")
	c := r.Clone()
	c.Set("Title", "Changed")

	assert.Equal(t, "Alpha", r.Text("Title"))
	assert.Equal(t, "Changed", c.Text("Title"))
	assert.False(t, r.Equal(c))
}

func TestRecordProject(t *testing.T) {
	r := NewRecord("Id", 1, "Title", "Alpha", "Category", "News")

	p := r.Project([]string{"Category", "Title"})
	assert.Equal(t, []string{"Category", "Title"}, p.Fields())
	assert.Equal(t, "News", p.Text("Category"))

	b, err := json.Marshal(p)
	require.NoError(t, err)
	assert.Equal(t, `{"Category":"News","Title":"Alpha"}`, string(b))
}

func TestRecordEqual(t *testing.T) {
	a := NewRecord("Id", 1, "Title", "Alpha")
	assert.True(t, a.Equal(NewRecord("Id", 1, "Title", "Alpha")))
	assert.False(t, a.Equal(NewRecord("Title", "Alpha", "Id", 1)), "order matters")
	assert.False(t, a.Equal(NewRecord("Id", 1)))
}
