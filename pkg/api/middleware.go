package api

import (
	"context"
	"net/http"
	"time"

	"github.com/meridianhq/corpsite/pkg/console"
)

type contextKey string

const gateContextKey contextKey = "console-gate"

// requestLogger logs each request with method, path, status, and
// duration at debug level.
func (s *server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rw, r)

		s.log.WithField("method", r.Method).
			WithField("path", r.URL.Path).
			WithField("status", rw.status).
			WithField("duration", time.Since(start).String()).
			Debug("Request handled")
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// withGate attaches the console gate for the request's session cookie,
// when one exists, to the request context.
func (s *server) withGate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if cookie, err := r.Cookie(sessionCookieName); err == nil {
			if gate, ok := s.sessions.get(cookie.Value); ok {
				ctx := context.WithValue(r.Context(), gateContextKey, gate)
				r = r.WithContext(ctx)
			}
		}

		next.ServeHTTP(w, r)
	})
}

// gateFrom returns the request's gate, or nil when the session cookie
// is absent or unknown.
func gateFrom(r *http.Request) *console.Gate {
	gate, _ := r.Context().Value(gateContextKey).(*console.Gate)

	return gate
}

// requireAuth admits only fully authenticated console sessions: a live
// provider session whose second factor was verified inside the trust
// window.
func (s *server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gate := gateFrom(r)
		if gate == nil || gate.State() != console.StateAuthenticated {
			writeJSON(w, http.StatusUnauthorized, errorResponse{
				Error: "authentication required",
			})

			return
		}

		next.ServeHTTP(w, r)
	})
}

// maintenanceGate answers 503 on public content routes while
// maintenance mode is on. The console stays reachable.
func (s *server) maintenanceGate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.settings.MaintenanceMode() {
			writeJSON(w, http.StatusServiceUnavailable, errorResponse{
				Error: "site is under maintenance",
			})

			return
		}

		next.ServeHTTP(w, r)
	})
}
