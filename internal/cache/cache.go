// Package cache decorates a types.RecordStore with a process-wide cache of
// loaded collections.
package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/mesh-intelligence/shelf/pkg/types"
)

// Store caches whole collections by name. Persist writes through and
// refreshes the entry; Load hands out copies so callers never share the
// cached slice.
type Store struct {
	next types.RecordStore
	lru  *expirable.LRU[string, []types.Record]
}

var _ types.RecordStore = (*Store)(nil)

// New wraps next with a cache of at most size collections, each kept for
// ttl. A ttl of zero disables expiry.
func New(next types.RecordStore, size int, ttl time.Duration) *Store {
	return &Store{
		next: next,
		lru:  expirable.NewLRU[string, []types.Record](size, nil, ttl),
	}
}

// Load returns the cached collection or loads it from the wrapped store.
func (s *Store) Load(ctx context.Context, kind types.RecordKind) ([]types.Record, error) {
	if records, ok := s.lru.Get(kind.Collection()); ok {
		slog.Debug("collection cache hit", "collection", kind.Collection())
		return clone(records), nil
	}

	records, err := s.next.Load(ctx, kind)
	if err != nil {
		return nil, err
	}
	s.lru.Add(kind.Collection(), clone(records))
	return records, nil
}

// Persist writes through to the wrapped store. On failure the entry is
// dropped so the next Load rereads storage.
func (s *Store) Persist(ctx context.Context, kind types.RecordKind, records []types.Record) error {
	if err := s.next.Persist(ctx, kind, records); err != nil {
		s.lru.Remove(kind.Collection())
		return err
	}
	s.lru.Add(kind.Collection(), clone(records))
	return nil
}

// Invalidate drops one collection from the cache.
func (s *Store) Invalidate(collection string) {
	s.lru.Remove(collection)
}

// Len returns the number of cached collections.
func (s *Store) Len() int {
	return s.lru.Len()
}

// Close purges the cache and closes the wrapped store.
func (s *Store) Close() error {
	s.lru.Purge()
	return s.next.Close()
}

func clone(records []types.Record) []types.Record {
	out := make([]types.Record, len(records))
	for i, r := range records {
		out[i] = r.Clone()
	}
	return out
}
