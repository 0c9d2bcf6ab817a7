package console

import (
	"context"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSettingsBackend is an in-memory backend with a failure switch on
// writes.
type fakeSettingsBackend struct {
	mu        sync.Mutex
	stored    map[string]string
	failLoad  bool
	failSave  bool
	saveCalls int
}

func newFakeSettingsBackend() *fakeSettingsBackend {
	return &fakeSettingsBackend{stored: make(map[string]string)}
}

func (f *fakeSettingsBackend) LoadSettings(_ context.Context) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failLoad {
		return nil, assert.AnError
	}

	out := make(map[string]string, len(f.stored))
	for k, v := range f.stored {
		out[k] = v
	}

	return out, nil
}

func (f *fakeSettingsBackend) SaveSetting(_ context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.saveCalls++

	if f.failSave {
		return assert.AnError
	}

	f.stored[key] = value

	return nil
}

func (f *fakeSettingsBackend) get(key string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	v, ok := f.stored[key]

	return v, ok
}

func newTestSettingsCache(backend SettingsBackend) *SettingsCache {
	return NewSettingsCache(logrus.New(), backend, 0)
}

func TestSettingsCache_DefaultsServeBeforeLoad(t *testing.T) {
	cache := newTestSettingsCache(newFakeSettingsBackend())

	assert.Equal(t, "false", cache.Get(SettingMaintenanceMode))
	assert.False(t, cache.MaintenanceMode())
	assert.NotEmpty(t, cache.Get(SettingSiteTitle))
}

func TestSettingsCache_LoadOverlaysKnownKeysOnly(t *testing.T) {
	backend := newFakeSettingsBackend()
	backend.stored[SettingSiteTitle] = "Custom Title"
	backend.stored[SettingMaintenanceMode] = "true"
	backend.stored["rogue_key"] = "ignored"

	cache := newTestSettingsCache(backend)
	require.NoError(t, cache.Load(context.Background()))

	assert.Equal(t, "Custom Title", cache.Get(SettingSiteTitle))
	assert.True(t, cache.MaintenanceMode())
	assert.Empty(t, cache.Get("rogue_key"))

	_, known := cache.All()["rogue_key"]
	assert.False(t, known, "unknown stored keys must not enter the snapshot")
}

func TestSettingsCache_LoadFailureKeepsSnapshot(t *testing.T) {
	backend := newFakeSettingsBackend()
	backend.stored[SettingSiteTitle] = "Custom Title"

	cache := newTestSettingsCache(backend)
	require.NoError(t, cache.Load(context.Background()))

	backend.failLoad = true

	err := cache.Load(context.Background())
	require.Error(t, err)

	var transport *TransportError
	require.ErrorAs(t, err, &transport)

	assert.Equal(t, "Custom Title", cache.Get(SettingSiteTitle))
}

func TestSettingsCache_SetOnePersists(t *testing.T) {
	backend := newFakeSettingsBackend()
	cache := newTestSettingsCache(backend)

	require.NoError(t, cache.SetOne(SettingContactEmail, "info@example.com"))

	// Optimistic: visible immediately.
	assert.Equal(t, "info@example.com", cache.Get(SettingContactEmail))

	cache.wg.Wait()

	stored, ok := backend.get(SettingContactEmail)
	require.True(t, ok)
	assert.Equal(t, "info@example.com", stored)
}

func TestSettingsCache_SetOneUnknownKeyRejected(t *testing.T) {
	backend := newFakeSettingsBackend()
	cache := newTestSettingsCache(backend)

	require.Error(t, cache.SetOne("bogus", "value"))
	assert.Zero(t, backend.saveCalls)
}

func TestSettingsCache_FailedPersistKeepsOptimisticValue(t *testing.T) {
	backend := newFakeSettingsBackend()
	backend.failSave = true

	cache := newTestSettingsCache(backend)

	require.NoError(t, cache.SetOne(SettingSiteTitle, "New Title"))
	cache.wg.Wait()

	// The optimistic value stands even though persistence failed; the
	// next load is what repairs the drift.
	assert.Equal(t, "New Title", cache.Get(SettingSiteTitle))

	_, ok := backend.get(SettingSiteTitle)
	assert.False(t, ok)
}

func TestSettingsCache_SetManyAllOrNothingValidation(t *testing.T) {
	backend := newFakeSettingsBackend()
	cache := newTestSettingsCache(backend)

	err := cache.SetMany(map[string]string{
		SettingSiteTitle: "New Title",
		"bogus":          "value",
	})
	require.Error(t, err)

	// The valid key must not have been applied either.
	assert.NotEqual(t, "New Title", cache.Get(SettingSiteTitle))

	require.NoError(t, cache.SetMany(map[string]string{
		SettingSiteTitle:    "New Title",
		SettingContactPhone: "+1 555 0100",
	}))
	cache.wg.Wait()

	assert.Equal(t, "New Title", cache.Get(SettingSiteTitle))

	stored, ok := backend.get(SettingContactPhone)
	require.True(t, ok)
	assert.Equal(t, "+1 555 0100", stored)
}
