package console

import (
	"fmt"
	"time"
)

// RateLimiter applies the client-local cooldown and size-cap policies
// consulted before a write reaches the remote store. It is advisory: it
// deters accidental duplicate submissions, it is not a security
// boundary.
type RateLimiter struct {
	state *StateFile
	now   func() time.Time
}

// NewRateLimiter creates a limiter over the device-local state file.
func NewRateLimiter(state *StateFile) *RateLimiter {
	return &RateLimiter{
		state: state,
		now:   time.Now,
	}
}

// CheckCooldown returns ErrTooSoon when the last recorded action under
// key completed less than window ago. The caller records the new
// timestamp with Record only after the action succeeds, so failed
// submissions are not punished.
func (r *RateLimiter) CheckCooldown(key string, window time.Duration) error {
	last, ok := r.state.LastAction(key)
	if !ok {
		return nil
	}

	elapsed := r.now().Sub(last)
	if elapsed < window {
		return fmt.Errorf(
			"%w: retry in %s", ErrTooSoon, (window - elapsed).Round(time.Second),
		)
	}

	return nil
}

// Record stores the completion time of a successful action under key.
func (r *RateLimiter) Record(key string) {
	r.state.SetLastAction(key, r.now())
}

// CheckFileSize is the synchronous pre-flight size check, independent
// of any cooldown. A zero cap disables the check.
func CheckFileSize(size, maxBytes int64) error {
	if maxBytes > 0 && size > maxBytes {
		return fmt.Errorf(
			"%w: %d bytes (cap %d)", ErrPayloadTooLarge, size, maxBytes,
		)
	}

	return nil
}
