// Package schema holds the declared record kinds and validates records
// against them.
package schema

import (
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/shelf/pkg/types"
)

// Registry is the set of kinds known to a shelf. It implements
// types.Schema.
type Registry struct {
	kinds    []types.RecordKind
	compiled map[string]*gojsonschema.Schema
}

var _ types.Schema = (*Registry)(nil)

// kindsFile is the on-disk layout of a kinds file.
type kindsFile struct {
	Kinds []types.RecordKind `yaml:"kinds"`
}

// Bookmark is the built-in kind used when no kinds file is configured.
func Bookmark() types.RecordKind {
	return types.RecordKind{
		Name:   "Bookmark",
		Fields: []string{"Title", "Url", "Category"},
		Key:    "Title",
		Schema: map[string]any{
			"type":     "object",
			"required": []any{"Title", "Url"},
			"properties": map[string]any{
				"Title":    map[string]any{"type": "string", "minLength": 1},
				"Url":      map[string]any{"type": "string", "minLength": 1},
				"Category": map[string]any{"type": "string"},
			},
		},
	}
}

// Default returns a registry holding only the built-in Bookmark kind.
func Default() *Registry {
	r, err := New(Bookmark())
	if err != nil {
		panic(fmt.Sprintf("built-in kind is invalid: %v", err))
	}
	return r
}

// New builds a registry from kinds, checking each declaration and
// compiling its JSON schema.
func New(kinds ...types.RecordKind) (*Registry, error) {
	r := &Registry{compiled: make(map[string]*gojsonschema.Schema)}
	seen := make(map[string]bool)

	for _, k := range kinds {
		if err := checkKind(k); err != nil {
			return nil, err
		}
		lower := strings.ToLower(k.Name)
		if seen[lower] {
			return nil, fmt.Errorf("%w: %s", types.ErrDuplicateKind, k.Name)
		}
		seen[lower] = true

		if len(k.Schema) > 0 {
			s, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(k.Schema))
			if err != nil {
				return nil, fmt.Errorf("%w: kind %s: compiling schema: %v", types.ErrInvalidKindsFile, k.Name, err)
			}
			r.compiled[k.Name] = s
		}
		r.kinds = append(r.kinds, k)
	}
	return r, nil
}

// Load reads a kinds file. An empty path yields the default registry.
func Load(path string) (*Registry, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading kinds file %s: %w", path, err)
	}
	r, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}

// Parse decodes a YAML kinds document.
func Parse(data []byte) (*Registry, error) {
	var f kindsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrInvalidKindsFile, err)
	}
	if len(f.Kinds) == 0 {
		return nil, fmt.Errorf("%w: no kinds declared", types.ErrInvalidKindsFile)
	}
	return New(f.Kinds...)
}

func checkKind(k types.RecordKind) error {
	if k.Name == "" {
		return fmt.Errorf("%w: kind name is empty", types.ErrInvalidKindsFile)
	}
	seen := make(map[string]bool)
	for _, f := range k.Fields {
		switch {
		case f == "":
			return fmt.Errorf("%w: kind %s: empty field name", types.ErrInvalidKindsFile, k.Name)
		case types.IsControlParam(f):
			return fmt.Errorf("%w: kind %s: field %q is a reserved parameter", types.ErrInvalidKindsFile, k.Name, f)
		case seen[strings.ToLower(f)]:
			return fmt.Errorf("%w: kind %s: duplicate field %q", types.ErrInvalidKindsFile, k.Name, f)
		}
		seen[strings.ToLower(f)] = true
	}
	if k.Key != "" && !k.IsMember(k.Key) {
		return fmt.Errorf("%w: kind %s: key %q is not a field", types.ErrInvalidKindsFile, k.Name, k.Key)
	}
	if k.TitleField != "" && !k.IsMember(k.TitleField) {
		return fmt.Errorf("%w: kind %s: title %q is not a field", types.ErrInvalidKindsFile, k.Name, k.TitleField)
	}
	return nil
}

// Kinds returns the declared kinds in declaration order.
func (r *Registry) Kinds() []types.RecordKind {
	return append([]types.RecordKind{}, r.kinds...)
}

// Kind looks a kind up by name or collection name, ignoring case.
func (r *Registry) Kind(name string) (types.RecordKind, error) {
	for _, k := range r.kinds {
		if strings.EqualFold(k.Name, name) || strings.EqualFold(k.Collection(), name) {
			return k, nil
		}
	}
	return types.RecordKind{}, fmt.Errorf("%w: %s", types.ErrKindNotFound, name)
}

// IsMember reports whether field is declared by kind.
func (r *Registry) IsMember(kind types.RecordKind, field string) bool {
	return kind.IsMember(field)
}

// Validate rejects records carrying undeclared fields or violating the
// kind's JSON schema.
func (r *Registry) Validate(kind types.RecordKind, record types.Record) error {
	for _, f := range record.Fields() {
		if !kind.IsMember(f) {
			return types.Newf(types.InvalidRecord, "The data model %s does not contain the property '%s'.", kind.Collection(), f)
		}
	}

	s, ok := r.compiled[kind.Name]
	if !ok {
		return nil
	}
	result, err := s.Validate(gojsonschema.NewGoLoader(record.Map()))
	if err != nil {
		return fmt.Errorf("validating %s record: %w", kind.Name, err)
	}
	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		msgs = append(msgs, desc.String())
	}
	return types.Newf(types.InvalidRecord, "%s", strings.Join(msgs, "; "))
}
