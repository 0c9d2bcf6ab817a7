package console

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Recognized setting keys. Every key has a fixed default; unknown keys
// in the store are ignored on load and rejected on write.
const (
	SettingMaintenanceMode = "maintenance_mode"
	SettingSiteTitle       = "site_title"
	SettingSiteDescription = "site_description"
	SettingContactEmail    = "contact_email"
	SettingContactPhone    = "contact_phone"
	SettingContactAddress  = "contact_address"
	SettingAnalyticsID     = "analytics_id"
	SettingLinkedinURL     = "linkedin_url"
	SettingInstagramURL    = "instagram_url"
	SettingFooterText      = "footer_text"
)

// settingDefaults is the fixed default for every recognized key.
var settingDefaults = map[string]string{
	SettingMaintenanceMode: "false",
	SettingSiteTitle:       "Meridian Group",
	SettingSiteDescription: "",
	SettingContactEmail:    "",
	SettingContactPhone:    "",
	SettingContactAddress:  "",
	SettingAnalyticsID:     "",
	SettingLinkedinURL:     "",
	SettingInstagramURL:    "",
	SettingFooterText:      "",
}

// SettingsBackend persists site settings key by key.
type SettingsBackend interface {
	LoadSettings(ctx context.Context) (map[string]string, error)
	SaveSetting(ctx context.Context, key, value string) error
}

// SettingsCache is the process-wide configuration snapshot. Reads are
// served from memory; writes update the snapshot immediately and
// persist asynchronously. A failed persist is logged, not rolled back:
// the snapshot may briefly show a value that did not stick, until the
// next load. An optional reconciliation interval bounds that drift.
type SettingsCache struct {
	log       logrus.FieldLogger
	backend   SettingsBackend
	reconcile time.Duration

	mu     sync.RWMutex
	values map[string]string

	done chan struct{}
	wg   sync.WaitGroup
}

// NewSettingsCache creates a cache holding the fixed defaults. A zero
// reconcile interval disables background reconciliation.
func NewSettingsCache(
	log logrus.FieldLogger,
	backend SettingsBackend,
	reconcile time.Duration,
) *SettingsCache {
	values := make(map[string]string, len(settingDefaults))
	for k, v := range settingDefaults {
		values[k] = v
	}

	return &SettingsCache{
		log:       log.WithField("component", "settings-cache"),
		backend:   backend,
		reconcile: reconcile,
		values:    values,
		done:      make(chan struct{}),
	}
}

// Load overlays stored values onto the defaults. Unknown keys are
// ignored; recognized keys missing from the store keep their defaults.
func (s *SettingsCache) Load(ctx context.Context) error {
	stored, err := s.backend.LoadSettings(ctx)
	if err != nil {
		return &TransportError{Op: "settings load", Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for k, v := range stored {
		if _, known := settingDefaults[k]; known {
			s.values[k] = v
		}
	}

	return nil
}

// Start begins the reconciliation loop when an interval is configured.
func (s *SettingsCache) Start(ctx context.Context) {
	if s.reconcile <= 0 {
		return
	}

	s.wg.Add(1)

	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.reconcile)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if err := s.Load(ctx); err != nil {
					s.log.WithError(err).Warn("Settings reconciliation failed")
				}
			case <-s.done:
				return
			}
		}
	}()
}

// Stop halts the reconciliation loop.
func (s *SettingsCache) Stop() {
	close(s.done)
	s.wg.Wait()
}

// Get returns the current value for a recognized key, or empty for an
// unknown one.
func (s *SettingsCache) Get(key string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.values[key]
}

// All returns a copy of the current snapshot.
func (s *SettingsCache) All() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]string, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}

	return out
}

// MaintenanceMode returns the typed maintenance flag. Unparseable
// stored values read as false.
func (s *SettingsCache) MaintenanceMode() bool {
	v, err := strconv.ParseBool(s.Get(SettingMaintenanceMode))

	return err == nil && v
}

// SetOne updates the snapshot immediately and persists asynchronously.
// Persistence failure is logged only; the in-memory value stands until
// the next load.
func (s *SettingsCache) SetOne(key, value string) error {
	if _, known := settingDefaults[key]; !known {
		return fmt.Errorf("unknown setting key %q", key)
	}

	s.mu.Lock()
	s.values[key] = value
	s.mu.Unlock()

	s.wg.Add(1)

	go func() {
		defer s.wg.Done()

		s.persist(key, value)
	}()

	return nil
}

// SetMany applies a batch of updates optimistically and persists them
// key by key in parallel.
func (s *SettingsCache) SetMany(patch map[string]string) error {
	for k := range patch {
		if _, known := settingDefaults[k]; !known {
			return fmt.Errorf("unknown setting key %q", k)
		}
	}

	s.mu.Lock()
	for k, v := range patch {
		s.values[k] = v
	}
	s.mu.Unlock()

	s.wg.Add(1)

	go func() {
		defer s.wg.Done()

		g := new(errgroup.Group)

		for k, v := range patch {
			k, v := k, v

			g.Go(func() error {
				s.persist(k, v)

				return nil
			})
		}

		_ = g.Wait()
	}()

	return nil
}

func (s *SettingsCache) persist(key, value string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.backend.SaveSetting(ctx, key, value); err != nil {
		s.log.WithError(err).
			WithField("key", key).
			Warn("Setting persistence failed, in-memory value retained")
	}
}

// SettingDefaults returns a copy of the fixed default record.
func SettingDefaults() map[string]string {
	out := make(map[string]string, len(settingDefaults))
	for k, v := range settingDefaults {
		out[k] = v
	}

	return out
}
