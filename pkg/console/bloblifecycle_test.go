package console

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/meridianhq/corpsite/pkg/blob"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBlobStore records calls; failure switches simulate an unreachable
// object store.
type fakeBlobStore struct {
	baseURL string

	failPut    bool
	failDelete bool

	putCalls    int
	deleteCalls int
	deletedKeys []string
}

var _ blob.Store = (*fakeBlobStore)(nil)

func (f *fakeBlobStore) Put(
	_ context.Context, key, _ string, body io.Reader,
) (string, error) {
	f.putCalls++

	if f.failPut {
		return "", assert.AnError
	}

	_, _ = io.Copy(io.Discard, body)

	return f.URL(key), nil
}

func (f *fakeBlobStore) Delete(_ context.Context, key string) error {
	f.deleteCalls++

	if f.failDelete {
		return assert.AnError
	}

	f.deletedKeys = append(f.deletedKeys, key)

	return nil
}

func (f *fakeBlobStore) URL(key string) string {
	return f.baseURL + "/" + key
}

func (f *fakeBlobStore) KeyForURL(ref string) (string, bool) {
	prefix := f.baseURL + "/"
	if !strings.HasPrefix(ref, prefix) {
		return "", false
	}

	return strings.TrimPrefix(ref, prefix), true
}

func newTestLifecycle(store blob.Store) *BlobLifecycle {
	return NewBlobLifecycle(logrus.New(), store)
}

func TestBlobLifecycle_UploadOverCapNeverReachesStore(t *testing.T) {
	store := &fakeBlobStore{baseURL: "https://cdn.example.com"}
	lc := newTestLifecycle(store)

	_, err := lc.Upload(context.Background(), "resumes", Upload{
		Name: "resume.pdf",
		Size: 2 << 20,
		Body: strings.NewReader("x"),
	}, 1<<20)
	require.ErrorIs(t, err, ErrPayloadTooLarge)

	assert.Zero(t, store.putCalls, "oversize upload must be rejected before any network call")
}

func TestBlobLifecycle_UploadReturnsPublicRef(t *testing.T) {
	store := &fakeBlobStore{baseURL: "https://cdn.example.com"}
	lc := newTestLifecycle(store)

	ref, err := lc.Upload(context.Background(), "resumes", Upload{
		Name:        "My Resume (final).PDF",
		ContentType: "application/pdf",
		Size:        100,
		Body:        strings.NewReader("pdf bytes"),
	}, 1<<20)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(ref, "https://cdn.example.com/resumes/"))
	assert.Equal(t, 1, store.putCalls)
}

func TestBlobLifecycle_UploadZeroCapDisablesCheck(t *testing.T) {
	store := &fakeBlobStore{baseURL: "https://cdn.example.com"}
	lc := newTestLifecycle(store)

	_, err := lc.Upload(context.Background(), "images", Upload{
		Name: "huge.png",
		Size: 100 << 20,
		Body: strings.NewReader("x"),
	}, 0)
	require.NoError(t, err)
}

func TestBlobLifecycle_UploadSurfacesStoreFailure(t *testing.T) {
	store := &fakeBlobStore{baseURL: "https://cdn.example.com", failPut: true}
	lc := newTestLifecycle(store)

	_, err := lc.Upload(context.Background(), "images", Upload{
		Name: "a.png",
		Size: 1,
		Body: strings.NewReader("x"),
	}, 0)
	require.Error(t, err)

	var persist *PersistError
	assert.ErrorAs(t, err, &persist)
}

func TestBlobLifecycle_Replace(t *testing.T) {
	tests := []struct {
		name        string
		oldRef      string
		newRef      string
		wantDeletes int
	}{
		{
			name:        "changed ref deletes old object",
			oldRef:      "https://cdn.example.com/news/1-old.png",
			newRef:      "https://cdn.example.com/news/2-new.png",
			wantDeletes: 1,
		},
		{
			name:        "unchanged ref deletes nothing",
			oldRef:      "https://cdn.example.com/news/1-old.png",
			newRef:      "https://cdn.example.com/news/1-old.png",
			wantDeletes: 0,
		},
		{
			name:        "empty old ref deletes nothing",
			oldRef:      "",
			newRef:      "https://cdn.example.com/news/2-new.png",
			wantDeletes: 0,
		},
		{
			name:        "cleared ref deletes old object",
			oldRef:      "https://cdn.example.com/news/1-old.png",
			newRef:      "",
			wantDeletes: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeBlobStore{baseURL: "https://cdn.example.com"}
			lc := newTestLifecycle(store)

			lc.Replace(context.Background(), tt.oldRef, tt.newRef)
			assert.Equal(t, tt.wantDeletes, store.deleteCalls)
		})
	}
}

func TestBlobLifecycle_DeleteForSwallowsFailure(t *testing.T) {
	store := &fakeBlobStore{baseURL: "https://cdn.example.com", failDelete: true}
	lc := newTestLifecycle(store)

	// Must not panic or surface the error: the record delete proceeds.
	lc.DeleteFor(context.Background(), "https://cdn.example.com/resumes/1-a.pdf")
	assert.Equal(t, 1, store.deleteCalls)
}

func TestBlobLifecycle_ForeignRefSkipsDelete(t *testing.T) {
	store := &fakeBlobStore{baseURL: "https://cdn.example.com"}
	lc := newTestLifecycle(store)

	lc.DeleteFor(context.Background(), "https://elsewhere.example.com/file.png")
	assert.Zero(t, store.deleteCalls)
}
