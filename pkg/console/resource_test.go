package console

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testRecord struct {
	ID    uint
	Title string
	Rank  int
}

func (r testRecord) RecordID() uint { return r.ID }

// fakeCollection is an in-memory Collection with per-call failure
// switches and call counters.
type fakeCollection struct {
	items  []testRecord
	nextID uint

	failList   bool
	failInsert bool
	failUpdate bool
	failDelete bool

	listCalls   int
	updateCalls int
}

func (f *fakeCollection) List(_ context.Context) ([]testRecord, error) {
	f.listCalls++

	if f.failList {
		return nil, assert.AnError
	}

	out := make([]testRecord, len(f.items))
	copy(out, f.items)

	return out, nil
}

func (f *fakeCollection) Insert(_ context.Context, rec *testRecord) error {
	if f.failInsert {
		return assert.AnError
	}

	f.nextID++
	rec.ID = f.nextID
	f.items = append(f.items, *rec)

	return nil
}

func (f *fakeCollection) Update(
	_ context.Context, id uint, patch map[string]any,
) (*testRecord, error) {
	f.updateCalls++

	if f.failUpdate {
		return nil, assert.AnError
	}

	for i := range f.items {
		if f.items[i].ID == id {
			if title, ok := patch["title"].(string); ok {
				f.items[i].Title = title
			}

			rec := f.items[i]

			return &rec, nil
		}
	}

	return nil, ErrNotFound
}

func (f *fakeCollection) Delete(_ context.Context, id uint) error {
	if f.failDelete {
		return assert.AnError
	}

	for i := range f.items {
		if f.items[i].ID == id {
			f.items = append(f.items[:i], f.items[i+1:]...)

			return nil
		}
	}

	return ErrNotFound
}

func newTestResourceStore(
	coll *fakeCollection, cfg ResourceConfig[testRecord],
) *ResourceStore[testRecord] {
	if cfg.Name == "" {
		cfg.Name = "records"
	}

	return NewResourceStore(logrus.New(), coll, cfg)
}

func TestResourceStore_RefreshReplacesCache(t *testing.T) {
	coll := &fakeCollection{
		items:  []testRecord{{ID: 1, Title: "a"}, {ID: 2, Title: "b"}},
		nextID: 2,
	}
	rs := newTestResourceStore(coll, ResourceConfig[testRecord]{})

	require.NoError(t, rs.Refresh(context.Background()))
	assert.Len(t, rs.List(), 2)
}

func TestResourceStore_RefreshFailureKeepsCache(t *testing.T) {
	coll := &fakeCollection{
		items:  []testRecord{{ID: 1, Title: "a"}},
		nextID: 1,
	}
	rs := newTestResourceStore(coll, ResourceConfig[testRecord]{})

	require.NoError(t, rs.Refresh(context.Background()))

	coll.failList = true

	err := rs.Refresh(context.Background())
	require.Error(t, err)

	var transport *TransportError
	require.ErrorAs(t, err, &transport)

	assert.Len(t, rs.List(), 1, "cache must survive a failed refresh")
}

func TestResourceStore_ListNeverTouchesNetwork(t *testing.T) {
	coll := &fakeCollection{items: []testRecord{{ID: 1}}, nextID: 1}
	rs := newTestResourceStore(coll, ResourceConfig[testRecord]{})

	require.NoError(t, rs.Refresh(context.Background()))

	before := coll.listCalls

	rs.List()
	rs.List()
	_, _ = rs.FindByID(1)

	assert.Equal(t, before, coll.listCalls)
}

func TestResourceStore_CreatePrependsByDefault(t *testing.T) {
	coll := &fakeCollection{
		items:  []testRecord{{ID: 1, Title: "old"}},
		nextID: 1,
	}
	rs := newTestResourceStore(coll, ResourceConfig[testRecord]{})
	require.NoError(t, rs.Refresh(context.Background()))

	rec := testRecord{Title: "new"}
	require.NoError(t, rs.Create(context.Background(), &rec))

	items := rs.List()
	require.Len(t, items, 2)
	assert.Equal(t, "new", items[0].Title)
	assert.NotZero(t, rec.ID, "server-assigned id must flow back")
}

func TestResourceStore_CreateRespectsOrderingRule(t *testing.T) {
	coll := &fakeCollection{
		items:  []testRecord{{ID: 1, Rank: 10}, {ID: 2, Rank: 30}},
		nextID: 2,
	}
	rs := newTestResourceStore(coll, ResourceConfig[testRecord]{
		Less: func(a, b testRecord) bool { return a.Rank < b.Rank },
	})
	require.NoError(t, rs.Refresh(context.Background()))

	rec := testRecord{Rank: 20}
	require.NoError(t, rs.Create(context.Background(), &rec))

	items := rs.List()
	require.Len(t, items, 3)
	assert.Equal(t, []int{10, 20, 30}, []int{items[0].Rank, items[1].Rank, items[2].Rank})
}

func TestResourceStore_CreateFailureLeavesCacheUntouched(t *testing.T) {
	coll := &fakeCollection{failInsert: true}
	rs := newTestResourceStore(coll, ResourceConfig[testRecord]{})

	rec := testRecord{Title: "doomed"}
	err := rs.Create(context.Background(), &rec)
	require.Error(t, err)

	var persist *PersistError
	require.ErrorAs(t, err, &persist)

	assert.Empty(t, rs.List())
}

func TestResourceStore_UpdateMergesConfirmedResult(t *testing.T) {
	coll := &fakeCollection{
		items:  []testRecord{{ID: 1, Title: "before"}},
		nextID: 1,
	}
	rs := newTestResourceStore(coll, ResourceConfig[testRecord]{
		AllowedFields: []string{"title"},
	})
	require.NoError(t, rs.Refresh(context.Background()))

	updated, err := rs.Update(context.Background(), 1, map[string]any{"title": "after"})
	require.NoError(t, err)
	assert.Equal(t, "after", updated.Title)

	cached, ok := rs.FindByID(1)
	require.True(t, ok)
	assert.Equal(t, "after", cached.Title)
}

func TestResourceStore_UpdateRejectsDisallowedFieldBeforeRemoteCall(t *testing.T) {
	coll := &fakeCollection{
		items:  []testRecord{{ID: 1, Title: "before"}},
		nextID: 1,
	}
	rs := newTestResourceStore(coll, ResourceConfig[testRecord]{
		AllowedFields: []string{"title"},
	})
	require.NoError(t, rs.Refresh(context.Background()))

	_, err := rs.Update(context.Background(), 1, map[string]any{"rank": 99})
	require.Error(t, err)

	assert.Zero(t, coll.updateCalls, "a rejected patch must never reach the store")
}

func TestResourceStore_UpdateFailureKeepsCachedValue(t *testing.T) {
	coll := &fakeCollection{
		items:  []testRecord{{ID: 1, Title: "before"}},
		nextID: 1,
	}
	rs := newTestResourceStore(coll, ResourceConfig[testRecord]{})
	require.NoError(t, rs.Refresh(context.Background()))

	coll.failUpdate = true

	_, err := rs.Update(context.Background(), 1, map[string]any{"title": "after"})
	require.Error(t, err)

	cached, ok := rs.FindByID(1)
	require.True(t, ok)
	assert.Equal(t, "before", cached.Title)
}

func TestResourceStore_DeleteFailureKeepsEntry(t *testing.T) {
	coll := &fakeCollection{
		items:  []testRecord{{ID: 1, Title: "keep"}},
		nextID: 1,
	}
	rs := newTestResourceStore(coll, ResourceConfig[testRecord]{})
	require.NoError(t, rs.Refresh(context.Background()))

	coll.failDelete = true
	require.Error(t, rs.Delete(context.Background(), 1))
	assert.Len(t, rs.List(), 1)

	coll.failDelete = false
	require.NoError(t, rs.Delete(context.Background(), 1))
	assert.Empty(t, rs.List())
}

func TestResourceStore_EmptyPatchRejected(t *testing.T) {
	rs := newTestResourceStore(&fakeCollection{}, ResourceConfig[testRecord]{})

	_, err := rs.Update(context.Background(), 1, map[string]any{})
	require.Error(t, err)
}
