// Package shelf wires configuration, kinds, storage and guards together.
// Callers attach a Shelf to a backend, reach collections by kind or
// collection name, and detach when done.
package shelf

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/mesh-intelligence/shelf/internal/cache"
	"github.com/mesh-intelligence/shelf/internal/filestore"
	"github.com/mesh-intelligence/shelf/internal/guard"
	"github.com/mesh-intelligence/shelf/internal/metrics"
	"github.com/mesh-intelligence/shelf/internal/revision"
	"github.com/mesh-intelligence/shelf/internal/schema"
	"github.com/mesh-intelligence/shelf/internal/sqlite"
	"github.com/mesh-intelligence/shelf/pkg/types"
)

// Shelf owns one store and a guard per declared kind.
type Shelf struct {
	mu        sync.RWMutex
	attached  bool
	config    types.Config
	registry  *schema.Registry
	store     types.RecordStore
	revisions *revision.Registry
	metrics   *metrics.Metrics
	guards    map[string]*guard.Guard
}

// Option configures a Shelf.
type Option func(*Shelf)

// WithMetrics records guard outcomes on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Shelf) { s.metrics = m }
}

// New creates a detached shelf.
func New(opts ...Option) *Shelf {
	s := &Shelf{revisions: revision.NewRegistry()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Attach validates config, loads the kinds, opens the store and creates
// one guard per kind. Returns ErrAlreadyAttached if already attached.
func (s *Shelf) Attach(config types.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.attached {
		return types.ErrAlreadyAttached
	}
	if err := config.Validate(); err != nil {
		return err
	}
	config = config.WithDefaults()

	registry, err := schema.Load(config.KindsFile)
	if err != nil {
		return fmt.Errorf("loading kinds: %w", err)
	}

	store, err := openStore(config)
	if err != nil {
		return err
	}

	guards := make(map[string]*guard.Guard)
	for _, k := range registry.Kinds() {
		guards[strings.ToLower(k.Name)] = guard.New(k, store, registry, s.revisions, guard.WithMetrics(s.metrics))
	}

	s.config = config
	s.registry = registry
	s.store = store
	s.guards = guards
	s.attached = true

	slog.Info("shelf attached", "backend", config.Backend, "data_dir", config.DataDir, "kinds", len(guards), "cache", config.Cache.Enabled)
	return nil
}

func openStore(config types.Config) (types.RecordStore, error) {
	var (
		store types.RecordStore
		err   error
	)
	switch config.Backend {
	case types.BackendJSONL:
		store, err = filestore.New(config.DataDir)
	case types.BackendSQLite:
		store, err = sqlite.Open(config.DataDir)
	default:
		return nil, types.ErrBackendUnknown
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s store: %w", config.Backend, err)
	}

	if config.Cache.Enabled {
		store = cache.New(store, config.Cache.Size, config.Cache.TTL)
	}
	return store, nil
}

// Collection returns the guard for a kind, looked up by kind or collection
// name, ignoring case.
func (s *Shelf) Collection(name string) (*guard.Guard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.attached {
		return nil, types.ErrShelfDetached
	}
	k, err := s.registry.Kind(name)
	if err != nil {
		return nil, err
	}
	return s.guards[strings.ToLower(k.Name)], nil
}

// Kinds returns the declared kinds.
func (s *Shelf) Kinds() ([]types.RecordKind, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.attached {
		return nil, types.ErrShelfDetached
	}
	return s.registry.Kinds(), nil
}

// Config returns the effective configuration.
func (s *Shelf) Config() types.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config
}

// Detach closes the store. Idempotent. After Detach, Collection returns
// ErrShelfDetached.
func (s *Shelf) Detach() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.attached {
		return nil
	}
	err := s.store.Close()
	s.store = nil
	s.guards = nil
	s.attached = false
	if err != nil {
		return fmt.Errorf("closing store: %w", err)
	}
	return nil
}
