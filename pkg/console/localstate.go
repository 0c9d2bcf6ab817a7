package console

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const stateFileName = "console-state.json"

// StateFile holds device-local durable flags: second-factor trust
// timestamps, last-submission timestamps, and the cookie-consent flag.
// These survive process restarts but are device-scoped, never part of
// the authoritative record.
type StateFile struct {
	log  logrus.FieldLogger
	path string

	mu   sync.Mutex
	data stateData
}

type stateData struct {
	Verified      map[string]time.Time `json:"verified,omitempty"`
	LastAction    map[string]time.Time `json:"last_action,omitempty"`
	CookieConsent bool                 `json:"cookie_consent,omitempty"`
}

// OpenStateFile loads (or initializes) the state file under dir.
func OpenStateFile(log logrus.FieldLogger, dir string) (*StateFile, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating state dir: %w", err)
	}

	s := &StateFile{
		log:  log.WithField("component", "state-file"),
		path: filepath.Join(dir, stateFileName),
		data: stateData{
			Verified:   make(map[string]time.Time),
			LastAction: make(map[string]time.Time),
		},
	}

	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return s, nil
	}

	if err != nil {
		return nil, fmt.Errorf("reading state file: %w", err)
	}

	if err := json.Unmarshal(raw, &s.data); err != nil {
		// A corrupt state file only costs a re-verification; start fresh.
		s.log.WithError(err).Warn("State file unreadable, starting fresh")
	}

	if s.data.Verified == nil {
		s.data.Verified = make(map[string]time.Time)
	}

	if s.data.LastAction == nil {
		s.data.LastAction = make(map[string]time.Time)
	}

	return s, nil
}

// VerifiedAt returns the persisted second-factor verification time for
// the identity, if any.
func (s *StateFile) VerifiedAt(email string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.data.Verified[NormalizeEmail(email)]

	return t, ok
}

// SetVerifiedAt persists the second-factor verification time for the
// identity.
func (s *StateFile) SetVerifiedAt(email string, t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data.Verified[NormalizeEmail(email)] = t
	s.flushLocked()
}

// ClearVerifiedAt removes any persisted verification time for the
// identity.
func (s *StateFile) ClearVerifiedAt(email string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data.Verified, NormalizeEmail(email))
	s.flushLocked()
}

// LastAction returns the persisted completion time of the last action
// recorded under key, if any.
func (s *StateFile) LastAction(key string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.data.LastAction[key]

	return t, ok
}

// SetLastAction persists the completion time of an action under key.
func (s *StateFile) SetLastAction(key string, t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data.LastAction[key] = t
	s.flushLocked()
}

// CookieConsent returns the persisted cookie-consent flag.
func (s *StateFile) CookieConsent() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.data.CookieConsent
}

// SetCookieConsent persists the cookie-consent flag.
func (s *StateFile) SetCookieConsent(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data.CookieConsent = v
	s.flushLocked()
}

// flushLocked writes the state atomically via a temp file rename.
// Failures are logged only: losing these flags costs at most a
// re-verification or a skipped cooldown.
func (s *StateFile) flushLocked() {
	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		s.log.WithError(err).Warn("Failed to encode state file")

		return
	}

	tmp := s.path + ".tmp"

	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		s.log.WithError(err).Warn("Failed to write state file")

		return
	}

	if err := os.Rename(tmp, s.path); err != nil {
		s.log.WithError(err).Warn("Failed to replace state file")
	}
}
