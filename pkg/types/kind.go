package types

import "strings"

// DefaultTitleField is the member that the "name" sort alias resolves to
// when a kind does not declare one.
const DefaultTitleField = "Title"

// RecordKind declares the closed member set of a record kind, its optional
// uniqueness key, and the class name its collection is named after.
type RecordKind struct {
	Name       string         `yaml:"name"`
	Fields     []string       `yaml:"fields"`
	Key        string         `yaml:"key,omitempty"`
	TitleField string         `yaml:"title,omitempty"`
	Schema     map[string]any `yaml:"schema,omitempty"`
}

// Collection returns the storage collection name, e.g. "Bookmarks".
func (k RecordKind) Collection() string {
	return k.Name + "s"
}

// IsMember reports whether field is declared, with exact spelling.
// Id is always a member.
func (k RecordKind) IsMember(field string) bool {
	if field == IDField {
		return true
	}
	for _, f := range k.Fields {
		if f == field {
			return true
		}
	}
	return false
}

// Resolve maps a case-insensitive field spelling to the declared spelling.
func (k RecordKind) Resolve(name string) (string, bool) {
	if strings.EqualFold(name, IDField) {
		return IDField, true
	}
	for _, f := range k.Fields {
		if strings.EqualFold(f, name) {
			return f, true
		}
	}
	return "", false
}

// Title returns the title-like member used by the "name" sort alias.
func (k RecordKind) Title() string {
	if k.TitleField != "" {
		return k.TitleField
	}
	return DefaultTitleField
}

// Members returns the declared members with Id first.
func (k RecordKind) Members() []string {
	out := []string{IDField}
	for _, f := range k.Fields {
		if f != IDField {
			out = append(out, f)
		}
	}
	return out
}
