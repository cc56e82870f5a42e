package types

import "context"

//go:generate mockgen -destination=mocks/mock_store.go -package=mocks -source=store.go RecordStore,Schema

// RecordStore loads and persists whole collections.
// A collection that was never written loads as empty, not as an error.
type RecordStore interface {
	// Load returns the kind's collection in storage order.
	// Returns an error wrapping ErrCorruptCollection if the stored state
	// cannot be decoded.
	Load(ctx context.Context, kind RecordKind) ([]Record, error)

	// Persist replaces the kind's collection with records.
	Persist(ctx context.Context, kind RecordKind, records []Record) error

	// Close releases store resources. Idempotent.
	Close() error
}

// Schema is the model collaborator: membership tests and per-kind record
// validation rules.
type Schema interface {
	// IsMember reports whether field is a declared member of kind.
	IsMember(kind RecordKind, field string) bool

	// Validate checks a record against the kind's rules. Returns a
	// ValidationError of kind InvalidRecord on failure.
	Validate(kind RecordKind, record Record) error
}
