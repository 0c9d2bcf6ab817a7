package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/meridianhq/corpsite/pkg/console"
	"github.com/meridianhq/corpsite/pkg/store"
)

// handlePublicNews lists articles for the public site, optionally
// filtered by kind (news or csr).
func (s *server) handlePublicNews(w http.ResponseWriter, r *http.Request) {
	items := s.news.List()

	if kind := r.URL.Query().Get("kind"); kind != "" {
		filtered := make([]store.NewsArticle, 0, len(items))

		for _, a := range items {
			if a.Kind == kind {
				filtered = append(filtered, a)
			}
		}

		items = filtered
	}

	writeJSON(w, http.StatusOK, items)
}

// handlePublicCareers lists only postings visible to candidates:
// active, and not past their expiry date.
func (s *server) handlePublicCareers(w http.ResponseWriter, _ *http.Request) {
	now := time.Now()
	all := s.careers.List()

	visible := make([]store.JobPosting, 0, len(all))
	for _, p := range all {
		if p.Visible(now) {
			visible = append(visible, p)
		}
	}

	writeJSON(w, http.StatusOK, visible)
}

// handlePublicProperties lists property listings in display order.
func (s *server) handlePublicProperties(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.properties.List())
}

// handleApply accepts a job application: cooldown and size checks
// first, then the resume upload, then the record. The cooldown is
// recorded only after the whole submission succeeds, so a failed
// attempt can be retried immediately.
func (s *server) handleApply(w http.ResponseWriter, r *http.Request) {
	cooldownKey := "apply:" + clientIP(r)

	if err := s.limiter.CheckCooldown(cooldownKey, s.cfg.SubmissionCooldown()); err != nil {
		writeError(w, err)

		return
	}

	file, header, err := r.FormFile("resume")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing resume"})

		return
	}
	defer file.Close()

	if err := console.CheckFileSize(header.Size, s.cfg.Uploads.MaxResumeBytes); err != nil {
		writeError(w, err)

		return
	}

	name := strings.TrimSpace(r.FormValue("applicant_name"))
	email := strings.TrimSpace(r.FormValue("email"))

	if name == "" || email == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error: "applicant_name and email are required",
		})

		return
	}

	resumeURL, err := s.lifecycle.Upload(r.Context(), "resumes", console.Upload{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	}, s.cfg.Uploads.MaxResumeBytes)
	if err != nil {
		writeError(w, err)

		return
	}

	app := store.Application{
		ApplicantName:  name,
		Email:          email,
		Phone:          strings.TrimSpace(r.FormValue("phone")),
		ResumeURL:      resumeURL,
		Linkedin:       strings.TrimSpace(r.FormValue("linkedin")),
		TargetPosition: strings.TrimSpace(r.FormValue("target_position")),
		Message:        r.FormValue("message"),
		Status:         store.ApplicationStatusNew,
		SubmittedAt:    time.Now(),
	}

	if raw := chi.URLParam(r, "id"); raw != "" {
		if id, err := strconv.ParseUint(raw, 10, 32); err == nil {
			jobID := uint(id)
			app.JobID = &jobID

			if posting, ok := s.careers.FindByID(jobID); ok {
				app.TargetPosition = posting.Title
			}
		}
	}

	if err := s.applications.Create(r.Context(), &app); err != nil {
		// The uploaded resume is now orphaned; clean it up best-effort.
		s.lifecycle.DeleteFor(r.Context(), resumeURL)

		writeError(w, err)

		return
	}

	s.limiter.Record(cooldownKey)

	writeJSON(w, http.StatusCreated, map[string]any{
		"status": "submitted",
		"id":     app.ID,
	})
}

type contactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

// handleContact accepts a contact form submission under the same
// cooldown policy as applications.
func (s *server) handleContact(w http.ResponseWriter, r *http.Request) {
	cooldownKey := "contact:" + clientIP(r)

	if err := s.limiter.CheckCooldown(cooldownKey, s.cfg.SubmissionCooldown()); err != nil {
		writeError(w, err)

		return
	}

	var req contactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})

		return
	}

	if strings.TrimSpace(req.Name) == "" ||
		strings.TrimSpace(req.Email) == "" ||
		strings.TrimSpace(req.Message) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error: "name, email, and message are required",
		})

		return
	}

	submission := store.ContactSubmission{
		Name:    strings.TrimSpace(req.Name),
		Email:   strings.TrimSpace(req.Email),
		Phone:   strings.TrimSpace(req.Phone),
		Subject: strings.TrimSpace(req.Subject),
		Message: req.Message,
	}

	if err := s.contacts.Create(r.Context(), &submission); err != nil {
		writeError(w, err)

		return
	}

	s.limiter.Record(cooldownKey)

	writeJSON(w, http.StatusCreated, map[string]any{
		"status": "received",
		"id":     submission.ID,
	})
}
