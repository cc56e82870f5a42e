package guard

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/mesh-intelligence/shelf/internal/query"
	"github.com/mesh-intelligence/shelf/internal/revision"
	"github.com/mesh-intelligence/shelf/pkg/types"
	"github.com/mesh-intelligence/shelf/pkg/types/mocks"
)

var bookmark = types.RecordKind{
	Name:   "Bookmark",
	Fields: []string{"Title", "Url", "Category"},
	Key:    "Title",
}

// memStore keeps collections in memory and counts writes.
type memStore struct {
	mu       sync.Mutex
	data     map[string][]types.Record
	persists int
}

func newMemStore(records ...types.Record) *memStore {
	return &memStore{data: map[string][]types.Record{bookmark.Collection(): records}}
}

func (s *memStore) Load(_ context.Context, kind types.RecordKind) ([]types.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]types.Record{}, s.data[kind.Collection()]...), nil
}

func (s *memStore) Persist(_ context.Context, kind types.RecordKind, records []types.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.persists++
	s.data[kind.Collection()] = append([]types.Record{}, records...)
	return nil
}

func (s *memStore) Close() error { return nil }

func (s *memStore) ids() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []int64
	for _, r := range s.data[bookmark.Collection()] {
		out = append(out, r.ID())
	}
	return out
}

func seeded() *memStore {
	return newMemStore(
		types.NewRecord("Id", 1, "Title", "Alpha", "Url", "https://alpha.org", "Category", "News"),
		types.NewRecord("Id", 2, "Title", "Beta", "Url", "https://beta.com", "Category", "News"),
		types.NewRecord("Id", 5, "Title", "Gamma", "Url", "https://gamma.org", "Category", "Tech"),
	)
}

func TestAddAssignsNextID(t *testing.T) {
	store := seeded()
	g := New(bookmark, store, nil, revision.NewRegistry())
	before := g.Revision()

	rec, tok, err := g.Add(context.Background(), types.NewRecord("Title", "Delta", "Id", 99, "Category", "Misc"))
	require.NoError(t, err)

	assert.Equal(t, int64(6), rec.ID())
	assert.Equal(t, []string{"Id", "Title", "Category"}, rec.Fields(), "Id is placed first")
	assert.NotEqual(t, before, tok)
	assert.Equal(t, tok, g.Revision())
	assert.Equal(t, []int64{1, 2, 5, 6}, store.ids())
}

func TestAddToEmptyCollectionStartsAtOne(t *testing.T) {
	g := New(bookmark, newMemStore(), nil, revision.NewRegistry())
	rec, _, err := g.Add(context.Background(), types.NewRecord("Title", "First"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), rec.ID())
}

func TestAddConflictNeverPersists(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockRecordStore(ctrl)
	store.EXPECT().Load(gomock.Any(), bookmark).Return(seeded().data[bookmark.Collection()], nil).Times(2)
	store.EXPECT().Persist(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	g := New(bookmark, store, nil, revision.NewRegistry())
	before := g.Revision()

	for i := 0; i < 2; i++ {
		_, _, err := g.Add(context.Background(), types.NewRecord("Title", "Alpha"))
		require.Error(t, err)
		assert.ErrorIs(t, err, types.ErrConflictOnUniqueKey)
	}
	assert.Equal(t, before, g.Revision())
}

func TestAddKeyComparesExactly(t *testing.T) {
	store := newMemStore(types.NewRecord("Id", 1, "Title", "Alpha"))
	g := New(bookmark, store, nil, revision.NewRegistry())
	ctx := context.Background()

	rec, _, err := g.Add(ctx, types.NewRecord("Title", "alpha"))
	require.NoError(t, err, "keys differing only in case are distinct values")
	assert.Equal(t, int64(2), rec.ID())
	assert.Equal(t, 1, store.persists)

	_, _, err = g.Update(ctx, 2, types.NewRecord("Title", "ALPHA"))
	require.NoError(t, err)

	_, _, err = g.Add(ctx, types.NewRecord("Title", "ALPHA"))
	assert.ErrorIs(t, err, types.ErrConflictOnUniqueKey)
	assert.Equal(t, []int64{1, 2}, store.ids())
}

func TestQueryValidatesBeforeLoading(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockRecordStore(ctrl)
	store.EXPECT().Load(gomock.Any(), gomock.Any()).Times(0)

	g := New(bookmark, store, nil, revision.NewRegistry())

	_, err := g.Query(context.Background(), types.NewQuery("sort", "Nope"))
	assert.ErrorIs(t, err, types.ErrInvalidSortField)
}

func TestAddWithoutKeyAllowsDuplicates(t *testing.T) {
	kind := bookmark
	kind.Key = ""
	store := &memStore{data: map[string][]types.Record{}}
	g := New(kind, store, nil, revision.NewRegistry())

	for i := 0; i < 2; i++ {
		_, _, err := g.Add(context.Background(), types.NewRecord("Title", "Same"))
		require.NoError(t, err)
	}
	assert.Len(t, store.data[kind.Collection()], 2)
}

func TestAddSchemaRejection(t *testing.T) {
	ctrl := gomock.NewController(t)
	schema := mocks.NewMockSchema(ctrl)
	schema.EXPECT().Validate(bookmark, gomock.Any()).
		Return(types.Newf(types.InvalidRecord, "Title is required."))

	store := seeded()
	g := New(bookmark, store, schema, revision.NewRegistry())

	_, _, err := g.Add(context.Background(), types.NewRecord("Url", "https://x.org"))
	assert.ErrorIs(t, err, types.ErrInvalidRecord)
	assert.Equal(t, 0, store.persists)
}

func TestAddPersistFailureKeepsToken(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockRecordStore(ctrl)
	store.EXPECT().Load(gomock.Any(), bookmark).Return(nil, nil)
	store.EXPECT().Persist(gomock.Any(), bookmark, gomock.Len(1)).Return(errors.New("disk full"))

	g := New(bookmark, store, nil, revision.NewRegistry())
	before := g.Revision()

	_, _, err := g.Add(context.Background(), types.NewRecord("Title", "Alpha"))
	require.Error(t, err)
	_, isValidation := types.KindOf(err)
	assert.False(t, isValidation)
	assert.Equal(t, before, g.Revision())
}

func TestLoadFailureIsReported(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockRecordStore(ctrl)
	store.EXPECT().Load(gomock.Any(), bookmark).Return(nil, types.ErrCorruptCollection).AnyTimes()

	g := New(bookmark, store, nil, revision.NewRegistry())

	_, err := g.Query(context.Background(), types.NewQuery())
	assert.ErrorIs(t, err, types.ErrCorruptCollection)
	_, _, err = g.Add(context.Background(), types.NewRecord("Title", "x"))
	assert.ErrorIs(t, err, types.ErrCorruptCollection)
}

func TestUpdate(t *testing.T) {
	store := seeded()
	g := New(bookmark, store, nil, revision.NewRegistry())
	ctx := context.Background()

	t.Run("replaces in place", func(t *testing.T) {
		rec, tok, err := g.Update(ctx, 2, types.NewRecord("Title", "Beta", "Category", "Tech"))
		require.NoError(t, err)
		assert.Equal(t, int64(2), rec.ID())
		assert.Equal(t, tok, g.Revision())
		assert.Equal(t, []int64{1, 2, 5}, store.ids())

		got, err := g.Get(ctx, 2)
		require.NoError(t, err)
		assert.Equal(t, "Tech", got.Text("Category"))
		assert.False(t, got.Has("Url"))
	})

	t.Run("own key is not a conflict", func(t *testing.T) {
		_, _, err := g.Update(ctx, 1, types.NewRecord("Title", "ALPHA"))
		assert.NoError(t, err)
	})

	t.Run("key held by another record", func(t *testing.T) {
		before := g.Revision()
		_, _, err := g.Update(ctx, 1, types.NewRecord("Title", "Gamma"))
		assert.ErrorIs(t, err, types.ErrConflictOnUniqueKey)
		assert.Equal(t, before, g.Revision())
	})

	t.Run("missing id", func(t *testing.T) {
		_, _, err := g.Update(ctx, 42, types.NewRecord("Title", "Nope"))
		assert.ErrorIs(t, err, types.ErrRecordNotFound)
		assert.EqualError(t, err, "RecordNotFound: The resource [42] does not exist.")
	})
}

func TestRemove(t *testing.T) {
	store := seeded()
	g := New(bookmark, store, nil, revision.NewRegistry())
	ctx := context.Background()
	before := g.Revision()

	found, tok, err := g.Remove(ctx, 2)
	require.NoError(t, err)
	assert.True(t, found)
	assert.NotEqual(t, before, tok)
	assert.Equal(t, []int64{1, 5}, store.ids())

	persists := store.persists
	found, tok2, err := g.Remove(ctx, 2)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, tok, tok2)
	assert.Equal(t, persists, store.persists)
}

func TestQueryNeverBumpsRevision(t *testing.T) {
	g := New(bookmark, seeded(), nil, revision.NewRegistry())
	before := g.Revision()

	res, err := g.Query(context.Background(), types.NewQuery("Category", "news", "sort", "name,desc"))
	require.NoError(t, err)
	assert.Equal(t, query.ShapeRecords, res.Shape)
	require.Len(t, res.Records, 2)
	assert.Equal(t, "Beta", res.Records[0].Text("Title"))
	assert.Equal(t, before, g.Revision())
}

func TestQueryResultDoesNotAliasStore(t *testing.T) {
	store := seeded()
	g := New(bookmark, store, nil, revision.NewRegistry())

	res, err := g.Query(context.Background(), types.NewQuery())
	require.NoError(t, err)
	res.Records[0].Set("Title", "Mutated")

	got, err := g.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Alpha", got.Text("Title"))
}

func TestQueryValidationError(t *testing.T) {
	g := New(bookmark, seeded(), nil, revision.NewRegistry())
	_, err := g.Query(context.Background(), types.NewQuery("limit", "abc", "offset", "2"))
	assert.ErrorIs(t, err, types.ErrNonIntegerPaginationValue)
}

func TestGetMissing(t *testing.T) {
	g := New(bookmark, seeded(), nil, revision.NewRegistry())
	_, err := g.Get(context.Background(), 3)
	assert.ErrorIs(t, err, types.ErrRecordNotFound)
}

func TestConcurrentAddsGetDistinctIDs(t *testing.T) {
	kind := bookmark
	kind.Key = ""
	store := &memStore{data: map[string][]types.Record{}}
	g := New(kind, store, nil, revision.NewRegistry())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := g.Add(context.Background(), types.NewRecord("Title", "x"))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	seen := map[int64]bool{}
	for _, r := range store.data[kind.Collection()] {
		assert.False(t, seen[r.ID()])
		seen[r.ID()] = true
	}
	assert.Len(t, seen, 20)
}
