package api

import (
	"encoding/json"
	"net/http"

	"github.com/meridianhq/corpsite/pkg/console"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type verifyRequest struct {
	Code string `json:"code"`
}

type sessionResponse struct {
	State string `json:"state"`
	Email string `json:"email,omitempty"`
}

// handleLogin starts a console session: allow-list check, credential
// verification, one-time code request. On success the session lands in
// second-factor pending and a session cookie is issued.
func (s *server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})

		return
	}

	// Reuse the existing gate when the browser already holds a session;
	// otherwise mint a fresh one with its own provider handle.
	gate := gateFrom(r)
	token := ""

	if gate == nil {
		gate = console.NewGate(
			s.log,
			s.directory.NewSession(),
			s.allow,
			s.state,
			s.cfg.SecondFactorWindow(),
		)

		var err error

		token, err = s.sessions.create(gate)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, errorResponse{
				Error: "could not create session",
			})

			return
		}
	}

	if err := gate.SubmitCredentials(r.Context(), req.Email, req.Password); err != nil {
		if token != "" {
			s.sessions.remove(token)
		}

		writeError(w, err)

		return
	}

	if token != "" {
		http.SetCookie(w, &http.Cookie{
			Name:     sessionCookieName,
			Value:    token,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteStrictMode,
			MaxAge:   int(consoleSessionTTL.Seconds()),
		})
	}

	writeJSON(w, http.StatusOK, sessionResponse{
		State: gate.State().String(),
		Email: gate.Identity(),
	})
}

// handleVerifyCode exchanges the one-time code for full authentication.
func (s *server) handleVerifyCode(w http.ResponseWriter, r *http.Request) {
	gate := gateFrom(r)
	if gate == nil {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "no session"})

		return
	}

	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})

		return
	}

	if err := gate.VerifyCode(r.Context(), req.Code); err != nil {
		writeError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, sessionResponse{
		State: gate.State().String(),
		Email: gate.Identity(),
	})
}

// handleResendCode re-requests a one-time code for a pending session.
func (s *server) handleResendCode(w http.ResponseWriter, r *http.Request) {
	gate := gateFrom(r)
	if gate == nil {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "no session"})

		return
	}

	if err := gate.ResendCode(r.Context()); err != nil {
		writeError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "code sent"})
}

// handleLogout signs the session out and clears the cookie.
func (s *server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if gate := gateFrom(r); gate != nil {
		if err := gate.SignOut(r.Context()); err != nil {
			s.log.WithError(err).Warn("Sign-out error")
		}
	}

	if cookie, err := r.Cookie(sessionCookieName); err == nil {
		s.sessions.remove(cookie.Value)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})

	writeJSON(w, http.StatusOK, map[string]string{"status": "signed out"})
}

// handleSession reports the session's restored authentication state.
// The console calls this on load to decide which screen to show.
func (s *server) handleSession(w http.ResponseWriter, r *http.Request) {
	gate := gateFrom(r)
	if gate == nil {
		writeJSON(w, http.StatusOK, sessionResponse{
			State: console.StateAnonymous.String(),
		})

		return
	}

	state, err := gate.RestoreOnLoad(r.Context())
	if err != nil {
		writeError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, sessionResponse{
		State: state.String(),
		Email: gate.Identity(),
	})
}
