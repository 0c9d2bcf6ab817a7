package console

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
)

// Record is the contract every console-managed resource satisfies.
type Record interface {
	RecordID() uint
}

// Collection is the remote relational store contract for one resource
// family. Implementations return records in the family's canonical
// order from List, apply partial updates and return the resulting
// record from Update, and report missing records as errors.
type Collection[T Record] interface {
	List(ctx context.Context) ([]T, error)
	Insert(ctx context.Context, rec *T) error
	Update(ctx context.Context, id uint, patch map[string]any) (*T, error)
	Delete(ctx context.Context, id uint) error
}

// ResourceConfig is the thin per-family configuration that turns the
// generic store into a concrete resource manager.
type ResourceConfig[T Record] struct {
	// Name identifies the family in logs and audit records.
	Name string

	// Less orders the cache after mutations. Nil means newest-first:
	// created records are prepended.
	Less func(a, b T) bool

	// AllowedFields restricts which patch keys Update accepts. Nil
	// allows all fields.
	AllowedFields []string
}

// ResourceStore holds the ordered in-memory list of one resource family
// as the console's single source of truth. The cache is write-through:
// it is mutated only after the remote write is confirmed, never before,
// so a failed mutation leaves it exactly as it was. Concurrent updates
// to the same record are not queued; last write wins.
type ResourceStore[T Record] struct {
	log  logrus.FieldLogger
	coll Collection[T]
	cfg  ResourceConfig[T]

	mu    sync.RWMutex
	items []T
}

// NewResourceStore creates a resource store with an empty cache. Call
// Refresh to populate it.
func NewResourceStore[T Record](
	log logrus.FieldLogger,
	coll Collection[T],
	cfg ResourceConfig[T],
) *ResourceStore[T] {
	return &ResourceStore[T]{
		log:  log.WithField("component", "resource").WithField("resource", cfg.Name),
		coll: coll,
		cfg:  cfg,
	}
}

// Name returns the resource family name.
func (r *ResourceStore[T]) Name() string { return r.cfg.Name }

// List returns a copy of the current cached sequence. It never touches
// the network; use Refresh for that.
func (r *ResourceStore[T]) List() []T {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]T, len(r.items))
	copy(out, r.items)

	return out
}

// Refresh replaces the cache wholesale with the remote collection in
// canonical order. On transport failure the cache is left unchanged and
// a non-fatal TransportError is returned so the console can keep
// showing what it has.
func (r *ResourceStore[T]) Refresh(ctx context.Context) error {
	items, err := r.coll.List(ctx)
	if err != nil {
		r.log.WithError(err).Warn("Refresh failed, keeping cached data")

		return &TransportError{Op: r.cfg.Name + " refresh", Err: err}
	}

	r.mu.Lock()
	r.items = items
	r.mu.Unlock()

	return nil
}

// Create persists a new record, then inserts the server-assigned result
// into the cache per the family's ordering rule. On failure the cache
// is unchanged.
func (r *ResourceStore[T]) Create(ctx context.Context, rec *T) error {
	if err := r.coll.Insert(ctx, rec); err != nil {
		return &PersistError{Op: r.cfg.Name + " create", Err: err}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cfg.Less == nil {
		r.items = append([]T{*rec}, r.items...)

		return nil
	}

	idx := sort.Search(len(r.items), func(i int) bool {
		return r.cfg.Less(*rec, r.items[i])
	})

	r.items = append(r.items, *rec)
	copy(r.items[idx+1:], r.items[idx:])
	r.items[idx] = *rec

	return nil
}

// Update persists a partial update and merges the confirmed result into
// the cached entry. Patch keys outside the family's allowed fields are
// rejected before any write. On remote failure the cached entry keeps
// its pre-update value.
func (r *ResourceStore[T]) Update(
	ctx context.Context, id uint, patch map[string]any,
) (*T, error) {
	if len(patch) == 0 {
		return nil, fmt.Errorf("empty patch for %s %d", r.cfg.Name, id)
	}

	if err := r.checkFields(patch); err != nil {
		return nil, err
	}

	updated, err := r.coll.Update(ctx, id, patch)
	if err != nil {
		return nil, &PersistError{Op: r.cfg.Name + " update", Err: err}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.items {
		if r.items[i].RecordID() == id {
			r.items[i] = *updated

			break
		}
	}

	return updated, nil
}

// Delete persists removal, then drops the entry from the cache. On
// failure the entry remains.
func (r *ResourceStore[T]) Delete(ctx context.Context, id uint) error {
	if err := r.coll.Delete(ctx, id); err != nil {
		return &PersistError{Op: r.cfg.Name + " delete", Err: err}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.items {
		if r.items[i].RecordID() == id {
			r.items = append(r.items[:i], r.items[i+1:]...)

			break
		}
	}

	return nil
}

// FindByID is a pure cache lookup with no network access.
func (r *ResourceStore[T]) FindByID(id uint) (*T, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for i := range r.items {
		if r.items[i].RecordID() == id {
			item := r.items[i]

			return &item, true
		}
	}

	return nil, false
}

// checkFields rejects patch keys outside the allowed set.
func (r *ResourceStore[T]) checkFields(patch map[string]any) error {
	if r.cfg.AllowedFields == nil {
		return nil
	}

	allowed := make(map[string]struct{}, len(r.cfg.AllowedFields))
	for _, f := range r.cfg.AllowedFields {
		allowed[f] = struct{}{}
	}

	for k := range patch {
		if _, ok := allowed[k]; !ok {
			return fmt.Errorf("field %q is not editable for %s", k, r.cfg.Name)
		}
	}

	return nil
}
