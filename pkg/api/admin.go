package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/meridianhq/corpsite/pkg/console"
	"github.com/meridianhq/corpsite/pkg/store"
)

// uploadPrefixes are the object key prefixes the console may upload
// into. Anything else is rejected.
var uploadPrefixes = map[string]struct{}{
	"news":       {},
	"properties": {},
	"images":     {},
}

// handleUploadImage stores a console-uploaded image and returns its
// public reference. The record mutation that will carry the reference
// happens in a separate request.
func (s *server) handleUploadImage(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing file"})

		return
	}
	defer file.Close()

	prefix := r.FormValue("prefix")
	if prefix == "" {
		prefix = "images"
	}

	if _, ok := uploadPrefixes[prefix]; !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid upload prefix"})

		return
	}

	ref, err := s.lifecycle.Upload(r.Context(), prefix, console.Upload{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	}, s.cfg.Uploads.MaxImageBytes)
	if err != nil {
		writeError(w, err)

		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"url": ref})
}

// handleGetSettings returns the full settings snapshot.
func (s *server) handleGetSettings(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.settings.All())
}

// handlePutSettings applies a batch of settings optimistically. The
// response reflects the in-memory snapshot; persistence completes in
// the background.
func (s *server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var patch map[string]string
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})

		return
	}

	if len(patch) == 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "empty settings patch"})

		return
	}

	if err := s.settings.SetMany(patch); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})

		return
	}

	performedBy := ""
	if gate := gateFrom(r); gate != nil {
		performedBy = gate.Identity()
	}

	keys := make([]string, 0, len(patch))
	for k := range patch {
		keys = append(keys, k)
	}

	details, _ := json.Marshal(keys)
	s.auditor.Record(
		r.Context(), store.AuditActionUpdate, "settings", string(details), performedBy,
	)

	writeJSON(w, http.StatusOK, s.settings.All())
}

const defaultAuditLimit = 100

// handleListAudit returns the most recent audit entries.
func (s *server) handleListAudit(w http.ResponseWriter, r *http.Request) {
	limit := defaultAuditLimit

	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 1000 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid limit"})

			return
		}

		limit = n
	}

	rows, err := s.store.ListAudit(r.Context(), limit)
	if err != nil {
		writeError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, rows)
}
