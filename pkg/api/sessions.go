package api

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/meridianhq/corpsite/pkg/console"
)

// sessionEntry pairs one console session's auth gate with its last
// activity time for sweeping.
type sessionEntry struct {
	gate     *console.Gate
	lastSeen time.Time
}

// sessionRegistry maps opaque cookie tokens to console sessions. Each
// session owns its own gate and provider handle, so two browsers signed
// in as the same operator hold independent second-factor state.
type sessionRegistry struct {
	mu      sync.Mutex
	entries map[string]*sessionEntry
}

func newSessionRegistry() *sessionRegistry {
	return &sessionRegistry{
		entries: make(map[string]*sessionEntry),
	}
}

// create registers a gate under a fresh random token.
func (r *sessionRegistry) create(gate *console.Gate) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating session token: %w", err)
	}

	token := hex.EncodeToString(buf)

	r.mu.Lock()
	r.entries[token] = &sessionEntry{
		gate:     gate,
		lastSeen: time.Now(),
	}
	r.mu.Unlock()

	return token, nil
}

// get returns the gate for a token and refreshes its activity time.
func (r *sessionRegistry) get(token string) (*console.Gate, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[token]
	if !ok {
		return nil, false
	}

	entry.lastSeen = time.Now()

	return entry.gate, true
}

// remove drops a token.
func (r *sessionRegistry) remove(token string) {
	r.mu.Lock()
	delete(r.entries, token)
	r.mu.Unlock()
}

// sweep drops entries idle longer than ttl.
func (r *sessionRegistry) sweep(ttl time.Duration) {
	cutoff := time.Now().Add(-ttl)

	r.mu.Lock()
	defer r.mu.Unlock()

	for token, entry := range r.entries {
		if entry.lastSeen.Before(cutoff) {
			delete(r.entries, token)
		}
	}
}
