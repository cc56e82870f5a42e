// Package guard is the store-facing layer over one record collection. It
// assigns identities, rejects uniqueness conflicts, bumps the collection's
// revision token on every successful mutation, and runs read queries
// through the query pipeline.
package guard

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mesh-intelligence/shelf/internal/metrics"
	"github.com/mesh-intelligence/shelf/internal/query"
	"github.com/mesh-intelligence/shelf/internal/revision"
	"github.com/mesh-intelligence/shelf/pkg/types"
)

// Mutation operation labels.
const (
	OpAdd    = "add"
	OpUpdate = "update"
	OpRemove = "remove"
)

// Guard serializes access to one collection. Mutations hold the
// collection's lock exclusively; queries hold it shared.
type Guard struct {
	kind      types.RecordKind
	store     types.RecordStore
	schema    types.Schema
	revisions *revision.Registry
	metrics   *metrics.Metrics
}

// Option configures a Guard.
type Option func(*Guard)

// WithMetrics records query and mutation outcomes on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Guard) { g.metrics = m }
}

// New creates a guard for kind. A nil schema skips record validation.
func New(kind types.RecordKind, store types.RecordStore, schema types.Schema, revisions *revision.Registry, opts ...Option) *Guard {
	g := &Guard{
		kind:      kind,
		store:     store,
		schema:    schema,
		revisions: revisions,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Kind returns the guarded record kind.
func (g *Guard) Kind() types.RecordKind { return g.kind }

// Revision returns the collection's current revision token.
func (g *Guard) Revision() string {
	return g.revisions.Token(g.kind.Collection())
}

// Query validates q and runs it over the current collection.
func (g *Guard) Query(ctx context.Context, q types.Query) (query.Result, error) {
	lock := g.revisions.Lock(g.kind.Collection())
	lock.RLock()
	defer lock.RUnlock()

	res, err := g.query(ctx, q)
	g.metrics.ObserveQuery(g.kind.Collection(), err)
	return res, err
}

func (g *Guard) query(ctx context.Context, q types.Query) (query.Result, error) {
	plan, err := query.Validate(q, g.kind)
	if err != nil {
		slog.Debug("query rejected", "collection", g.kind.Collection(), "query", q.String(), "error", err)
		return query.Result{}, err
	}
	slog.Debug("query planned", "collection", g.kind.Collection(), "plan", plan.String())

	records, err := g.load(ctx)
	if err != nil {
		return query.Result{}, err
	}
	return query.Execute(plan, records), nil
}

// Get returns the record with the given id.
func (g *Guard) Get(ctx context.Context, id int64) (types.Record, error) {
	lock := g.revisions.Lock(g.kind.Collection())
	lock.RLock()
	defer lock.RUnlock()

	records, err := g.load(ctx)
	if err != nil {
		return types.Record{}, err
	}
	i := indexOf(records, id)
	if i < 0 {
		return types.Record{}, notFound(id)
	}
	return records[i].Clone(), nil
}

// Add assigns the next identity to rec, validates it, checks uniqueness,
// appends and persists it. Any Id in rec is ignored. It returns the stored
// record and the new revision token.
func (g *Guard) Add(ctx context.Context, rec types.Record) (types.Record, string, error) {
	lock := g.revisions.Lock(g.kind.Collection())
	lock.Lock()
	defer lock.Unlock()

	stored, tok, err := g.add(ctx, rec)
	g.metrics.ObserveMutation(g.kind.Collection(), OpAdd, err)
	return stored, tok, err
}

func (g *Guard) add(ctx context.Context, rec types.Record) (types.Record, string, error) {
	records, err := g.load(ctx)
	if err != nil {
		return types.Record{}, "", err
	}

	candidate := withID(rec, nextID(records))
	if err := g.validate(candidate); err != nil {
		return types.Record{}, "", err
	}
	if err := g.checkConflict(records, candidate); err != nil {
		return types.Record{}, "", err
	}

	tok, err := g.persist(ctx, append(records, candidate))
	if err != nil {
		return types.Record{}, "", err
	}
	slog.Info("record added", "collection", g.kind.Collection(), "id", candidate.ID())
	return candidate.Clone(), tok, nil
}

// Update replaces the record with the given id by rec. Any Id in rec is
// ignored. It returns the stored record and the new revision token.
func (g *Guard) Update(ctx context.Context, id int64, rec types.Record) (types.Record, string, error) {
	lock := g.revisions.Lock(g.kind.Collection())
	lock.Lock()
	defer lock.Unlock()

	stored, tok, err := g.update(ctx, id, rec)
	g.metrics.ObserveMutation(g.kind.Collection(), OpUpdate, err)
	return stored, tok, err
}

func (g *Guard) update(ctx context.Context, id int64, rec types.Record) (types.Record, string, error) {
	records, err := g.load(ctx)
	if err != nil {
		return types.Record{}, "", err
	}

	i := indexOf(records, id)
	if i < 0 {
		return types.Record{}, "", notFound(id)
	}

	candidate := withID(rec, id)
	if err := g.validate(candidate); err != nil {
		return types.Record{}, "", err
	}
	if err := g.checkConflict(records, candidate); err != nil {
		return types.Record{}, "", err
	}

	records[i] = candidate
	tok, err := g.persist(ctx, records)
	if err != nil {
		return types.Record{}, "", err
	}
	slog.Info("record updated", "collection", g.kind.Collection(), "id", id)
	return candidate.Clone(), tok, nil
}

// Remove deletes the record with the given id. It reports whether a record
// was found; when none was, nothing is persisted and the token is
// unchanged.
func (g *Guard) Remove(ctx context.Context, id int64) (bool, string, error) {
	lock := g.revisions.Lock(g.kind.Collection())
	lock.Lock()
	defer lock.Unlock()

	found, tok, err := g.remove(ctx, id)
	g.metrics.ObserveMutation(g.kind.Collection(), OpRemove, err)
	return found, tok, err
}

func (g *Guard) remove(ctx context.Context, id int64) (bool, string, error) {
	records, err := g.load(ctx)
	if err != nil {
		return false, "", err
	}

	i := indexOf(records, id)
	if i < 0 {
		return false, g.Revision(), nil
	}

	records = append(records[:i], records[i+1:]...)
	tok, err := g.persist(ctx, records)
	if err != nil {
		return false, "", err
	}
	slog.Info("record removed", "collection", g.kind.Collection(), "id", id)
	return true, tok, nil
}

// load returns a private copy of the collection.
func (g *Guard) load(ctx context.Context) ([]types.Record, error) {
	records, err := g.store.Load(ctx, g.kind)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", g.kind.Collection(), err)
	}
	out := make([]types.Record, len(records))
	for i, r := range records {
		out[i] = r.Clone()
	}
	return out, nil
}

func (g *Guard) persist(ctx context.Context, records []types.Record) (string, error) {
	if err := g.store.Persist(ctx, g.kind, records); err != nil {
		return "", fmt.Errorf("persisting %s: %w", g.kind.Collection(), err)
	}
	return g.revisions.Bump(g.kind.Collection()), nil
}

func (g *Guard) validate(rec types.Record) error {
	if g.schema == nil {
		return nil
	}
	return g.schema.Validate(g.kind, rec)
}

// checkConflict rejects rec when another record holds the same key value.
// Values compare exactly, so keys differing only in case do not conflict.
func (g *Guard) checkConflict(records []types.Record, rec types.Record) error {
	if g.kind.Key == "" {
		return nil
	}
	value, ok := rec.Get(g.kind.Key)
	if !ok {
		return nil
	}
	for _, r := range records {
		if r.ID() == rec.ID() {
			continue
		}
		if held, ok := r.Get(g.kind.Key); ok && held == value {
			slog.Warn("uniqueness conflict", "collection", g.kind.Collection(), "key", g.kind.Key, "id", rec.ID(), "holder", r.ID())
			return types.Newf(types.ConflictOnUniqueKey, "Uniqueness conflict on [%s].", g.kind.Key)
		}
	}
	return nil
}

func nextID(records []types.Record) int64 {
	var maxID int64
	for _, r := range records {
		if r.ID() > maxID {
			maxID = r.ID()
		}
	}
	return maxID + 1
}

func indexOf(records []types.Record, id int64) int {
	for i, r := range records {
		if r.ID() == id {
			return i
		}
	}
	return -1
}

// withID copies rec with Id set to id as its first field.
func withID(rec types.Record, id int64) types.Record {
	out := types.NewRecord(types.IDField, id)
	for _, f := range rec.Fields() {
		if f == types.IDField {
			continue
		}
		v, _ := rec.Get(f)
		out.Set(f, v)
	}
	return out
}

func notFound(id int64) error {
	return types.Newf(types.RecordNotFound, "The resource [%d] does not exist.", id)
}
