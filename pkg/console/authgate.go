package console

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// State is the authentication state of one console session.
type State int

// Gate states. There is no distinct credentials-submitted state: a
// successful credential check immediately requests a one-time code and
// lands in StateSecondFactorPending.
const (
	StateAnonymous State = iota
	StateSecondFactorPending
	StateAuthenticated
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateAnonymous:
		return "anonymous"
	case StateSecondFactorPending:
		return "second_factor_pending"
	case StateAuthenticated:
		return "authenticated"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Gate is the session + second-factor state machine guarding console
// access. Full authentication is the conjunction of a provider session
// and a second factor verified inside the trust window; neither alone
// suffices. No operation is retried by the gate itself: every failure
// is terminal for that attempt and the caller decides whether to
// re-prompt.
type Gate struct {
	log      logrus.FieldLogger
	provider IdentityProvider
	allow    *AllowList
	state    *StateFile
	window   time.Duration
	now      func() time.Time

	mu         sync.Mutex
	current    State
	email      string
	verifiedAt time.Time
}

// NewGate creates a gate in the anonymous state.
func NewGate(
	log logrus.FieldLogger,
	provider IdentityProvider,
	allow *AllowList,
	state *StateFile,
	window time.Duration,
) *Gate {
	return &Gate{
		log:      log.WithField("component", "auth-gate"),
		provider: provider,
		allow:    allow,
		state:    state,
		window:   window,
		now:      time.Now,
		current:  StateAnonymous,
	}
}

// State returns the current gate state. An authenticated gate whose
// trust window has lapsed is demoted to second-factor pending.
func (g *Gate) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.demoteIfExpiredLocked()

	return g.current
}

// Identity returns the normalized email the gate is operating for, or
// empty when anonymous.
func (g *Gate) Identity() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.email
}

// SubmitCredentials checks the allow list, verifies the password with
// the provider, and on success requests a one-time code and moves to
// second-factor pending. Identities outside the allow list are rejected
// without any provider exchange.
func (g *Gate) SubmitCredentials(
	ctx context.Context, email, password string,
) error {
	norm := NormalizeEmail(email)

	if !g.allow.IsAuthorized(norm) {
		g.log.WithField("email", norm).
			Warn("Sign-in attempt from unauthorized identity")

		return ErrNotAuthorized
	}

	if err := g.provider.VerifyPassword(ctx, norm, password); err != nil {
		return ErrInvalidCredentials
	}

	if err := g.provider.IssueCode(ctx, norm); err != nil {
		return fmt.Errorf("requesting one-time code: %w", err)
	}

	g.mu.Lock()
	g.current = StateSecondFactorPending
	g.email = norm
	g.verifiedAt = time.Time{}
	g.mu.Unlock()

	g.log.WithField("email", norm).Info("Second factor pending")

	return nil
}

// VerifyCode exchanges the one-time code with the provider. On success
// the verification time is persisted device-locally and the gate moves
// to authenticated; on failure it stays second-factor pending.
func (g *Gate) VerifyCode(ctx context.Context, code string) error {
	g.mu.Lock()
	if g.current != StateSecondFactorPending {
		g.mu.Unlock()

		return fmt.Errorf("no second factor pending")
	}

	email := g.email
	g.mu.Unlock()

	if err := g.provider.VerifyCode(ctx, email, code); err != nil {
		return ErrInvalidCode
	}

	verifiedAt := g.now()
	g.state.SetVerifiedAt(email, verifiedAt)

	g.mu.Lock()
	g.current = StateAuthenticated
	g.verifiedAt = verifiedAt
	g.mu.Unlock()

	g.log.WithField("email", email).Info("Console session authenticated")

	return nil
}

// ResendCode re-requests a one-time code for the pending identity.
// Idempotent; no state transition.
func (g *Gate) ResendCode(ctx context.Context) error {
	g.mu.Lock()
	if g.current != StateSecondFactorPending {
		g.mu.Unlock()

		return fmt.Errorf("no second factor pending")
	}

	email := g.email
	g.mu.Unlock()

	if err := g.provider.IssueCode(ctx, email); err != nil {
		return fmt.Errorf("requesting one-time code: %w", err)
	}

	return nil
}

// SignOut invalidates the provider session, clears the persisted
// verification flag, and returns to anonymous.
func (g *Gate) SignOut(ctx context.Context) error {
	g.mu.Lock()
	email := g.email
	g.mu.Unlock()

	if err := g.provider.SignOut(ctx); err != nil {
		g.log.WithError(err).Warn("Provider sign-out failed")
	}

	if email != "" {
		g.state.ClearVerifiedAt(email)
	}

	g.mu.Lock()
	g.current = StateAnonymous
	g.email = ""
	g.verifiedAt = time.Time{}
	g.mu.Unlock()

	return nil
}

// RestoreOnLoad inspects any existing provider session. A session for an
// allow-listed identity restores straight to authenticated when the
// persisted verification time is inside the trust window, and to
// second-factor pending (retaining the email) when it is not. A session
// for an identity outside the allow list is treated as anonymous and its
// stale verification flag is cleared.
func (g *Gate) RestoreOnLoad(ctx context.Context) (State, error) {
	sess, err := g.provider.CurrentSession(ctx)
	if err != nil {
		return StateAnonymous, &TransportError{Op: "session restore", Err: err}
	}

	if sess == nil {
		g.mu.Lock()
		g.current = StateAnonymous
		g.email = ""
		g.verifiedAt = time.Time{}
		g.mu.Unlock()

		return StateAnonymous, nil
	}

	norm := NormalizeEmail(sess.Identity)

	if !g.allow.IsAuthorized(norm) {
		g.state.ClearVerifiedAt(norm)

		g.mu.Lock()
		g.current = StateAnonymous
		g.email = ""
		g.verifiedAt = time.Time{}
		g.mu.Unlock()

		g.log.WithField("email", norm).
			Warn("Restored session belongs to unauthorized identity")

		return StateAnonymous, nil
	}

	verifiedAt, ok := g.state.VerifiedAt(norm)

	g.mu.Lock()
	defer g.mu.Unlock()

	g.email = norm

	if ok && g.now().Sub(verifiedAt) < g.window {
		g.current = StateAuthenticated
		g.verifiedAt = verifiedAt

		return StateAuthenticated, nil
	}

	g.current = StateSecondFactorPending
	g.verifiedAt = time.Time{}

	return StateSecondFactorPending, nil
}

// demoteIfExpiredLocked drops an authenticated gate back to pending once
// the trust window has lapsed. Callers hold g.mu.
func (g *Gate) demoteIfExpiredLocked() {
	if g.current != StateAuthenticated {
		return
	}

	if g.now().Sub(g.verifiedAt) >= g.window {
		g.current = StateSecondFactorPending
		g.verifiedAt = time.Time{}
	}
}
