// Package api exposes the console and public HTTP surface over the
// core control-plane components.
package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/meridianhq/corpsite/pkg/blob"
	"github.com/meridianhq/corpsite/pkg/config"
	"github.com/meridianhq/corpsite/pkg/console"
	"github.com/meridianhq/corpsite/pkg/store"
	"github.com/sirupsen/logrus"
)

const (
	shutdownTimeout = 10 * time.Second

	sessionCookieName = "corpsite_console"

	// consoleSessionTTL bounds how long an abandoned console session
	// registry entry is kept before being swept.
	consoleSessionTTL = 7 * 24 * time.Hour

	sessionSweepInterval = 15 * time.Minute
)

// Server exposes the HTTP server lifecycle.
type Server interface {
	Start(ctx context.Context) error
	Stop() error
}

// Compile-time interface check.
var _ Server = (*server)(nil)

type server struct {
	log logrus.FieldLogger
	cfg *config.Config

	store     *store.Store
	blobs     blob.Store
	lifecycle *console.BlobLifecycle
	directory *console.Directory
	allow     *console.AllowList
	state     *console.StateFile
	limiter   *console.RateLimiter
	settings  *console.SettingsCache
	auditor   *console.Auditor

	news         *console.ResourceStore[store.NewsArticle]
	careers      *console.ResourceStore[store.JobPosting]
	applications *console.ResourceStore[store.Application]
	properties   *console.ResourceStore[store.PropertyListing]
	contacts     *console.ResourceStore[store.ContactSubmission]

	sessions *sessionRegistry

	// codeSender delivers one-time codes. Defaults to log delivery;
	// overridable for tests and future mail transports.
	codeSender console.CodeSender

	httpServer *http.Server
	wg         sync.WaitGroup
	done       chan struct{}
}

// NewServer creates a new console API server.
func NewServer(log logrus.FieldLogger, cfg *config.Config) Server {
	return &server{
		log:  log.WithField("component", "api"),
		cfg:  cfg,
		done: make(chan struct{}),
	}
}

// setup wires the control-plane components and warms the caches.
func (s *server) setup(ctx context.Context) error {
	s.store = store.NewStore(s.log, &s.cfg.Database)
	if err := s.store.Start(ctx); err != nil {
		return fmt.Errorf("starting store: %w", err)
	}

	blobs, err := newBlobStore(&s.cfg.Storage)
	if err != nil {
		return fmt.Errorf("initializing blob storage: %w", err)
	}

	s.blobs = blobs
	s.lifecycle = console.NewBlobLifecycle(s.log, s.blobs)

	state, err := console.OpenStateFile(s.log, s.cfg.Auth.StateDir)
	if err != nil {
		return fmt.Errorf("opening state file: %w", err)
	}

	s.state = state
	s.limiter = console.NewRateLimiter(state)
	s.allow = console.NewAllowList(s.cfg.Auth.AllowList)

	codeTTL, err := time.ParseDuration(s.cfg.Auth.CodeTTL)
	if err != nil {
		return fmt.Errorf("parsing auth.code_ttl: %w", err)
	}

	users := make([]console.DirectoryUser, 0, len(s.cfg.Auth.Users))
	for _, u := range s.cfg.Auth.Users {
		users = append(users, console.DirectoryUser{
			Email:    u.Email,
			Password: u.Password,
		})
	}

	if s.codeSender == nil {
		s.codeSender = &console.LogCodeSender{Log: s.log}
	}

	s.directory, err = console.NewDirectory(s.log, users, s.codeSender, codeTTL)
	if err != nil {
		return fmt.Errorf("building identity directory: %w", err)
	}

	s.auditor = console.NewAuditor(s.log, s.store)

	var reconcile time.Duration

	if s.cfg.Settings.ReconcileInterval != "" {
		reconcile, err = time.ParseDuration(s.cfg.Settings.ReconcileInterval)
		if err != nil {
			return fmt.Errorf("parsing settings.reconcile_interval: %w", err)
		}
	}

	s.settings = console.NewSettingsCache(s.log, s.store, reconcile)
	if err := s.settings.Load(ctx); err != nil {
		// Defaults serve until the next load; a cold start must not
		// depend on the settings table.
		s.log.WithError(err).Warn("Initial settings load failed")
	}

	s.settings.Start(ctx)

	s.buildResources()
	s.warmCaches(ctx)

	s.sessions = newSessionRegistry()

	return nil
}

// Start wires the components and starts the HTTP server.
func (s *server) Start(ctx context.Context) error {
	if err := s.setup(ctx); err != nil {
		return err
	}

	router := s.buildRouter()

	s.httpServer = &http.Server{
		Addr:              s.cfg.Server.Listen,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Sweep abandoned console sessions.
	s.wg.Add(1)

	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(sessionSweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.sessions.sweep(consoleSessionTTL)
			case <-s.done:
				return
			}
		}
	}()

	// Bind the listener synchronously so we fail fast on port conflicts.
	ln, err := net.Listen("tcp", s.cfg.Server.Listen)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.Server.Listen, err)
	}

	s.wg.Add(1)

	go func() {
		defer s.wg.Done()

		s.log.WithField("listen", s.cfg.Server.Listen).
			Info("API server starting")

		if err := s.httpServer.Serve(ln); err != nil &&
			err != http.ErrServerClosed {
			s.log.WithError(err).Error("HTTP server error")
		}
	}()

	return nil
}

// Stop gracefully shuts down the HTTP server and closes the store.
func (s *server) Stop() error {
	close(s.done)

	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(
			context.Background(), shutdownTimeout,
		)
		defer cancel()

		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.log.WithError(err).Warn("HTTP server shutdown error")
		}
	}

	s.wg.Wait()

	if s.settings != nil {
		s.settings.Stop()
	}

	if s.store != nil {
		if err := s.store.Stop(); err != nil {
			return fmt.Errorf("stopping store: %w", err)
		}
	}

	s.log.Info("API server stopped")

	return nil
}

// buildResources instantiates one resource store per family with its
// ordering rule and editable field set.
func (s *server) buildResources() {
	newsFields := []string{
		"kind", "category", "title", "published_on", "author", "excerpt",
		"body", "image_url", "featured", "tags", "quote", "quote_author",
		"media_kind", "video_url",
	}

	careerFields := []string{
		"title", "department", "location", "employment_type", "description",
		"requirements", "linkedin_url", "expires_on",
	}

	// One historical console surface exposed the is_active toggle, the
	// other did not; the switch preserves both behaviors.
	if s.cfg.Careers.ActiveToggle == nil || *s.cfg.Careers.ActiveToggle {
		careerFields = append(careerFields, "is_active")
	}

	propertyFields := []string{
		"title", "subtitle", "location", "property_type", "description",
		"bullet_points", "image_urls", "display_reversed", "order_index",
	}

	s.news = console.NewResourceStore(
		s.log, s.store.News(), console.ResourceConfig[store.NewsArticle]{
			Name:          "news",
			AllowedFields: newsFields,
		},
	)

	s.careers = console.NewResourceStore(
		s.log, s.store.Careers(), console.ResourceConfig[store.JobPosting]{
			Name:          "careers",
			AllowedFields: careerFields,
		},
	)

	s.applications = console.NewResourceStore(
		s.log, s.store.Applications(), console.ResourceConfig[store.Application]{
			Name:          "applications",
			AllowedFields: []string{"status"},
		},
	)

	s.properties = console.NewResourceStore(
		s.log, s.store.Properties(), console.ResourceConfig[store.PropertyListing]{
			Name:          "properties",
			AllowedFields: propertyFields,
			Less: func(a, b store.PropertyListing) bool {
				return a.OrderIndex < b.OrderIndex
			},
		},
	)

	s.contacts = console.NewResourceStore(
		s.log, s.store.Contacts(), console.ResourceConfig[store.ContactSubmission]{
			Name: "contacts",
		},
	)
}

// warmCaches performs the initial refresh for every family. Failures
// are non-fatal: the console starts on whatever loaded and the operator
// refreshes explicitly.
func (s *server) warmCaches(ctx context.Context) {
	for name, refresh := range map[string]func(context.Context) error{
		"news":         s.news.Refresh,
		"careers":      s.careers.Refresh,
		"applications": s.applications.Refresh,
		"properties":   s.properties.Refresh,
		"contacts":     s.contacts.Refresh,
	} {
		if err := refresh(ctx); err != nil {
			s.log.WithError(err).
				WithField("resource", name).
				Warn("Initial cache refresh failed")
		}
	}
}

// newBlobStore selects the configured object storage backend.
func newBlobStore(cfg *config.StorageConfig) (blob.Store, error) {
	switch {
	case cfg.S3 != nil && cfg.S3.Enabled:
		return blob.NewS3Store(cfg.S3), nil
	case cfg.Local != nil && cfg.Local.Enabled:
		return blob.NewLocalStore(cfg.Local), nil
	default:
		return nil, fmt.Errorf("no storage backend configured")
	}
}
