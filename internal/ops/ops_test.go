package ops

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/krisyotam/krisyotam.com-sub010/internal/config"
	"github.com/krisyotam/krisyotam.com-sub010/internal/content"
	"github.com/krisyotam/krisyotam.com-sub010/internal/errors"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var errStoreDown = stderrors.New("store down")

// fakeStore is an in-memory Store. Types listed in fail return errStoreDown;
// failTables breaks the category and tag tables only.
type fakeStore struct {
	mu         sync.Mutex
	items      map[content.Type][]content.Record
	categories []content.Category
	tags       []content.Tag
	sequences  []content.Sequence
	fail       map[content.Type]bool
	failAll    bool
	failTables bool
	calls      map[content.Type]int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		items: make(map[content.Type][]content.Record),
		fail:  make(map[content.Type]bool),
		calls: make(map[content.Type]int),
	}
}

func (f *fakeStore) add(records ...content.Record) *fakeStore {
	for _, r := range records {
		f.items[r.Type] = append(f.items[r.Type], r)
	}
	return f
}

func (f *fakeStore) ContentByType(ctx context.Context, t content.Type) ([]content.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[t]++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.failAll || f.fail[t] {
		return nil, errStoreDown
	}
	return append([]content.Record(nil), f.items[t]...), nil
}

func (f *fakeStore) ContentBySlug(ctx context.Context, t content.Type, slug string) (*content.Record, error) {
	records, err := f.ContentByType(ctx, t)
	if err != nil {
		return nil, err
	}
	for i := range records {
		if records[i].Slug == slug {
			return &records[i], nil
		}
	}
	return nil, errors.NewNotFound(string(t), slug)
}

func (f *fakeStore) Categories(ctx context.Context) ([]content.Category, error) {
	if f.failAll || f.failTables {
		return nil, errStoreDown
	}
	return append([]content.Category(nil), f.categories...), nil
}

func (f *fakeStore) Tags(ctx context.Context) ([]content.Tag, error) {
	if f.failAll || f.failTables {
		return nil, errStoreDown
	}
	return append([]content.Tag(nil), f.tags...), nil
}

func (f *fakeStore) Sequences(ctx context.Context) ([]content.Sequence, error) {
	if f.failAll {
		return nil, errStoreDown
	}
	return append([]content.Sequence(nil), f.sequences...), nil
}

func (f *fakeStore) SequenceBySlug(ctx context.Context, slug string) (*content.Sequence, error) {
	seqs, err := f.Sequences(ctx)
	if err != nil {
		return nil, err
	}
	for i := range seqs {
		if seqs[i].Slug == slug {
			return &seqs[i], nil
		}
	}
	return nil, errors.NewNotFound("sequence", slug)
}

func rec(t content.Type, slug, date, category string, tags ...string) content.Record {
	return content.Record{
		Type:      t,
		Slug:      slug,
		Title:     "Title " + slug,
		StartDate: date,
		Category:  category,
		Tags:      tags,
	}
}

func hidden(r content.Record) content.Record {
	r.State = "hidden"
	return r
}

func newRepo(store Store) *Repository {
	return New(store, Options{Logger: zap.NewNop()})
}

// newObservedRepo returns a repository whose warnings can be inspected.
func newObservedRepo(store Store, cfg *config.Config) (*Repository, *observer.ObservedLogs) {
	core, logs := observer.New(zap.WarnLevel)
	return New(store, Options{Logger: zap.New(core), Config: cfg}), logs
}

func slugsOf(items []content.Item) []string {
	slugs := make([]string, 0, len(items))
	for _, it := range items {
		slugs = append(slugs, it.Slug)
	}
	return slugs
}

func TestNew_DisabledTypes(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.DisabledTypes = []string{"verse", "lecture-notes", "podcasts"}

	r, logs := newObservedRepo(newFakeStore(), cfg)

	require.Len(t, r.Types(), len(content.AllTypes())-2)
	require.Equal(t, 1, logs.FilterMessage("unknown type in disabled_types").Len())

	_, err := r.ResolveType("verse")
	require.True(t, errors.Is(err, errors.ErrValidation))

	got, err := r.ResolveType("Essays")
	require.NoError(t, err)
	require.Equal(t, content.TypeEssay, got)
}

func TestResolveType_Unknown(t *testing.T) {
	r := newRepo(newFakeStore())

	_, err := r.ResolveType("not-a-real-type")
	require.True(t, errors.Is(err, errors.ErrValidation))
	require.Equal(t, 400, errors.StatusOf(err))
}

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	page, p := paginate(items, 2, 0)
	require.Equal(t, []int{1, 2}, page)
	require.Equal(t, Pagination{Limit: 2, Offset: 0, HasMore: true, Total: 5}, p)

	page, p = paginate(items, 2, 4)
	require.Equal(t, []int{5}, page)
	require.False(t, p.HasMore)

	page, p = paginate(items, 0, 10)
	require.Empty(t, page)
	require.NotNil(t, page)
	require.Equal(t, DefaultListLimit, p.Limit)

	_, p = paginate(items, 1000, -3)
	require.Equal(t, MaxListLimit, p.Limit)
	require.Equal(t, 0, p.Offset)
}
