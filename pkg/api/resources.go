package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/meridianhq/corpsite/pkg/console"
	"github.com/meridianhq/corpsite/pkg/store"
	"github.com/sirupsen/logrus"
)

// resourceAPI exposes one resource family over HTTP. The optional hooks
// run blob cleanup around mutations; they receive the pre-mutation
// record from the cache.
type resourceAPI[T console.Record] struct {
	log     logrus.FieldLogger
	rs      *console.ResourceStore[T]
	auditor *console.Auditor

	// defaults fills creation defaults after decoding. present holds
	// the keys the request body actually carried, so an absent field
	// can be told apart from an explicit zero value.
	defaults func(rec *T, present map[string]struct{})

	// beforeDelete runs before the record delete, for best-effort blob
	// cleanup. The delete proceeds regardless of its outcome.
	beforeDelete func(ctx context.Context, old T)

	// afterUpdate runs after a confirmed update, for cleanup of
	// replaced binary references.
	afterUpdate func(ctx context.Context, old, updated T)
}

func newResourceAPI[T console.Record](
	log logrus.FieldLogger,
	rs *console.ResourceStore[T],
	auditor *console.Auditor,
) *resourceAPI[T] {
	return &resourceAPI[T]{
		log:     log.WithField("resource", rs.Name()),
		rs:      rs,
		auditor: auditor,
	}
}

// mount registers the family's CRUD routes on an admin subrouter.
func (a *resourceAPI[T]) mount(r chi.Router) {
	r.Get("/", a.list)
	r.Post("/", a.create)
	r.Post("/refresh", a.refresh)
	r.Patch("/{id}", a.update)
	r.Delete("/{id}", a.remove)
}

func (a *resourceAPI[T]) list(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, a.rs.List())
}

func (a *resourceAPI[T]) refresh(w http.ResponseWriter, r *http.Request) {
	if err := a.rs.Refresh(r.Context()); err != nil {
		writeError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, a.rs.List())
}

func (a *resourceAPI[T]) create(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})

		return
	}

	var rec T
	if err := json.Unmarshal(raw, &rec); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})

		return
	}

	if a.defaults != nil {
		var fields map[string]json.RawMessage
		_ = json.Unmarshal(raw, &fields)

		present := make(map[string]struct{}, len(fields))
		for k := range fields {
			present[k] = struct{}{}
		}

		a.defaults(&rec, present)
	}

	if err := a.rs.Create(r.Context(), &rec); err != nil {
		writeError(w, err)

		return
	}

	a.audit(r, store.AuditActionCreate, rec.RecordID())

	writeJSON(w, http.StatusCreated, rec)
}

func (a *resourceAPI[T]) update(w http.ResponseWriter, r *http.Request) {
	id, err := recordID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})

		return
	}

	var patch map[string]any
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})

		return
	}

	normalizePatch(patch)

	old, hadOld := a.rs.FindByID(id)

	updated, err := a.rs.Update(r.Context(), id, patch)
	if err != nil {
		writeError(w, err)

		return
	}

	if a.afterUpdate != nil && hadOld {
		a.afterUpdate(r.Context(), *old, *updated)
	}

	a.audit(r, store.AuditActionUpdate, id)

	writeJSON(w, http.StatusOK, updated)
}

func (a *resourceAPI[T]) remove(w http.ResponseWriter, r *http.Request) {
	id, err := recordID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})

		return
	}

	// Blob cleanup first, record delete regardless of its outcome:
	// record integrity wins over storage tidiness.
	if a.beforeDelete != nil {
		if old, ok := a.rs.FindByID(id); ok {
			a.beforeDelete(r.Context(), *old)
		}
	}

	if err := a.rs.Delete(r.Context(), id); err != nil {
		writeError(w, err)

		return
	}

	a.audit(r, store.AuditActionDelete, id)

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (a *resourceAPI[T]) audit(r *http.Request, action string, id uint) {
	performedBy := ""
	if gate := gateFrom(r); gate != nil {
		performedBy = gate.Identity()
	}

	a.auditor.Record(
		r.Context(), action, a.rs.Name(),
		fmt.Sprintf("id=%d", id), performedBy,
	)
}

func recordID(r *http.Request) (uint, error) {
	raw := chi.URLParam(r, "id")

	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid record id %q", raw)
	}

	return uint(id), nil
}

// patchDateFields are patch keys carrying dates, arriving as RFC 3339
// strings from the console.
var patchDateFields = map[string]struct{}{
	"published_on": {},
	"expires_on":   {},
	"submitted_at": {},
}

// normalizePatch converts JSON-decoded patch values into forms the
// database layer accepts: date strings become time.Time and compound
// values (arrays, objects) are re-encoded to their stored JSON form.
func normalizePatch(patch map[string]any) {
	for k, v := range patch {
		if _, isDate := patchDateFields[k]; isDate {
			if s, ok := v.(string); ok {
				if t, err := time.Parse(time.RFC3339, s); err == nil {
					patch[k] = t

					continue
				}

				if t, err := time.Parse("2006-01-02", s); err == nil {
					patch[k] = t
				}
			}

			continue
		}

		switch v.(type) {
		case []any, map[string]any:
			if encoded, err := json.Marshal(v); err == nil {
				patch[k] = string(encoded)
			}
		}
	}
}
