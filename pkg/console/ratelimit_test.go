package console

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T) *RateLimiter {
	t.Helper()

	state, err := OpenStateFile(logrus.New(), t.TempDir())
	require.NoError(t, err)

	return NewRateLimiter(state)
}

func TestRateLimiter_CooldownRecordedOnlyOnSuccess(t *testing.T) {
	limiter := newTestLimiter(t)
	window := 5 * time.Minute

	// Nothing recorded yet: no cooldown.
	require.NoError(t, limiter.CheckCooldown("apply:1.2.3.4", window))

	// A failed attempt records nothing; retry passes immediately.
	require.NoError(t, limiter.CheckCooldown("apply:1.2.3.4", window))

	// Success records the timestamp; the next attempt is rejected.
	limiter.Record("apply:1.2.3.4")

	err := limiter.CheckCooldown("apply:1.2.3.4", window)
	require.ErrorIs(t, err, ErrTooSoon)
	assert.Contains(t, err.Error(), "retry in")

	// Other keys are unaffected.
	require.NoError(t, limiter.CheckCooldown("contact:1.2.3.4", window))
	require.NoError(t, limiter.CheckCooldown("apply:5.6.7.8", window))
}

func TestRateLimiter_CooldownElapses(t *testing.T) {
	limiter := newTestLimiter(t)

	now := time.Now()
	limiter.now = func() time.Time { return now }

	limiter.Record("contact:1.2.3.4")

	now = now.Add(4 * time.Minute)
	require.ErrorIs(t,
		limiter.CheckCooldown("contact:1.2.3.4", 5*time.Minute), ErrTooSoon)

	now = now.Add(2 * time.Minute)
	require.NoError(t, limiter.CheckCooldown("contact:1.2.3.4", 5*time.Minute))
}

func TestCheckFileSize(t *testing.T) {
	tests := []struct {
		name    string
		size    int64
		cap     int64
		wantErr bool
	}{
		{name: "under cap", size: 100, cap: 1 << 20, wantErr: false},
		{name: "exactly at cap", size: 1 << 20, cap: 1 << 20, wantErr: false},
		{name: "over cap", size: 1<<20 + 1, cap: 1 << 20, wantErr: true},
		{name: "zero cap disables check", size: 100 << 20, cap: 0, wantErr: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckFileSize(tt.size, tt.cap)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrPayloadTooLarge)
			} else {
				require.NoError(t, err)
			}
		})
	}
}
