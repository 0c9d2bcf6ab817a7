package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/meridianhq/corpsite/pkg/store"
)

func (s *server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	if len(s.cfg.Server.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.cfg.Server.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "PATCH", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Use(s.withGate)

	r.Get("/health", s.handleHealth)

	rl := s.cfg.Server.RateLimit

	// Public site surface. Content routes close during maintenance;
	// health and the console do not.
	r.Group(func(r chi.Router) {
		r.Use(s.maintenanceGate)

		if rl.Enabled && rl.Public.RequestsPerMinute > 0 {
			r.Use(newIPRateLimiter(rl.Public.RequestsPerMinute).middleware)
		}

		r.Get("/config", s.handleSiteConfig)
		r.Get("/news", s.handlePublicNews)
		r.Get("/careers", s.handlePublicCareers)
		r.Get("/properties", s.handlePublicProperties)
		r.Post("/careers/{id}/apply", s.handleApply)
		r.Post("/careers/apply", s.handleApply)
		r.Post("/contact", s.handleContact)
	})

	// Console authentication.
	r.Route("/auth", func(r chi.Router) {
		if rl.Enabled && rl.Auth.RequestsPerMinute > 0 {
			r.Use(newIPRateLimiter(rl.Auth.RequestsPerMinute).middleware)
		}

		r.Post("/login", s.handleLogin)
		r.Post("/verify", s.handleVerifyCode)
		r.Post("/resend", s.handleResendCode)
		r.Post("/logout", s.handleLogout)
		r.Get("/session", s.handleSession)
	})

	// Console administration, fully authenticated sessions only.
	r.Route("/admin", func(r chi.Router) {
		r.Use(s.requireAuth)

		if rl.Enabled && rl.Authenticated.RequestsPerMinute > 0 {
			r.Use(newIPRateLimiter(rl.Authenticated.RequestsPerMinute).middleware)
		}

		news := newResourceAPI(s.log, s.news, s.auditor)
		news.defaults = func(rec *store.NewsArticle, _ map[string]struct{}) {
			if rec.Kind == "" {
				rec.Kind = store.NewsKindNews
			}

			if rec.MediaKind == "" {
				rec.MediaKind = store.MediaKindImage
			}
		}
		news.afterUpdate = func(ctx context.Context, old, updated store.NewsArticle) {
			s.lifecycle.Replace(ctx, old.ImageURL, updated.ImageURL)
		}

		careers := newResourceAPI(s.log, s.careers, s.auditor)
		careers.defaults = func(rec *store.JobPosting, present map[string]struct{}) {
			// New postings are live unless the request said otherwise.
			if _, ok := present["is_active"]; !ok {
				rec.IsActive = true
			}
		}

		applications := newResourceAPI(s.log, s.applications, s.auditor)
		applications.beforeDelete = func(ctx context.Context, old store.Application) {
			s.lifecycle.DeleteFor(ctx, old.ResumeURL)
		}

		properties := newResourceAPI(s.log, s.properties, s.auditor)
		properties.afterUpdate = func(ctx context.Context, old, updated store.PropertyListing) {
			for _, ref := range removedRefs(old.ImageURLs, updated.ImageURLs) {
				s.lifecycle.DeleteFor(ctx, ref)
			}
		}
		properties.beforeDelete = func(ctx context.Context, old store.PropertyListing) {
			for _, ref := range old.ImageURLs {
				s.lifecycle.DeleteFor(ctx, ref)
			}
		}

		contacts := newResourceAPI(s.log, s.contacts, s.auditor)

		r.Route("/news", news.mount)
		r.Route("/careers", careers.mount)
		r.Route("/applications", applications.mount)
		r.Route("/properties", properties.mount)
		r.Route("/contacts", contacts.mount)

		r.Post("/uploads", s.handleUploadImage)
		r.Get("/settings", s.handleGetSettings)
		r.Put("/settings", s.handlePutSettings)
		r.Get("/audit", s.handleListAudit)
	})

	return r
}

// removedRefs returns the references present in old but absent from
// updated.
func removedRefs(old, updated []string) []string {
	kept := make(map[string]struct{}, len(updated))
	for _, ref := range updated {
		kept[ref] = struct{}{}
	}

	var removed []string

	for _, ref := range old {
		if _, ok := kept[ref]; !ok {
			removed = append(removed, ref)
		}
	}

	return removed
}
