package console

import (
	"context"
	"fmt"
	"io"

	"github.com/meridianhq/corpsite/pkg/blob"
	"github.com/sirupsen/logrus"
)

// Upload describes an incoming binary asset.
type Upload struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// BlobLifecycle couples record binary references to objects in storage.
// The relational store and the object store share no transaction, so
// the policy is best-effort cleanup with record integrity winning: an
// orphaned blob is an acceptable failure mode, an orphaned record
// pointing at a dead blob is not. Cleanup failures are logged, never
// escalated, and never block the owning record mutation.
type BlobLifecycle struct {
	log   logrus.FieldLogger
	store blob.Store
}

// NewBlobLifecycle creates a lifecycle manager over the given store.
func NewBlobLifecycle(log logrus.FieldLogger, store blob.Store) *BlobLifecycle {
	return &BlobLifecycle{
		log:   log.WithField("component", "blob-lifecycle"),
		store: store,
	}
}

// Upload validates the size cap, stores the object under a
// collision-resistant key within prefix, and returns its stable public
// reference. A zero maxBytes disables the cap. The cap is checked
// before any network call.
func (l *BlobLifecycle) Upload(
	ctx context.Context, prefix string, up Upload, maxBytes int64,
) (string, error) {
	if maxBytes > 0 && up.Size > maxBytes {
		return "", fmt.Errorf(
			"%w: %d bytes (cap %d)", ErrPayloadTooLarge, up.Size, maxBytes,
		)
	}

	key := blob.BuildKey(prefix, up.Name)

	ref, err := l.store.Put(ctx, key, up.ContentType, up.Body)
	if err != nil {
		return "", &PersistError{Op: "blob upload", Err: err}
	}

	return ref, nil
}

// Replace cleans up the previous object after a record update changed
// its binary reference. The old object is deleted only when the
// reference actually changed and was non-empty; the record update is
// never rolled back on cleanup failure.
func (l *BlobLifecycle) Replace(ctx context.Context, oldRef, newRef string) {
	if oldRef == "" || oldRef == newRef {
		return
	}

	l.deleteRef(ctx, oldRef)
}

// DeleteFor removes the object behind a deleted record's reference.
// At-least-attempt semantics: the caller deletes the record regardless
// of the outcome here.
func (l *BlobLifecycle) DeleteFor(ctx context.Context, ref string) {
	if ref == "" {
		return
	}

	l.deleteRef(ctx, ref)
}

func (l *BlobLifecycle) deleteRef(ctx context.Context, ref string) {
	key, ok := l.store.KeyForURL(ref)
	if !ok {
		l.log.WithField("ref", ref).
			Warn("Reference does not belong to this store, skipping cleanup")

		return
	}

	if err := l.store.Delete(ctx, key); err != nil {
		l.log.WithError(err).
			WithField("key", key).
			Warn("Blob cleanup failed")
	}
}
