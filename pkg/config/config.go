package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultLogLevel is the default logging level.
	DefaultLogLevel = "info"

	// DefaultListen is the default HTTP listen address.
	DefaultListen = ":8080"

	// DefaultSecondFactorTTL is how long a verified second factor is
	// trusted before a fresh code is required.
	DefaultSecondFactorTTL = 24 * time.Hour

	// DefaultCodeTTL is how long an issued one-time code stays valid.
	DefaultCodeTTL = 10 * time.Minute

	// DefaultSubmissionCooldown is the minimum interval between public
	// form submissions from the same origin.
	DefaultSubmissionCooldown = 5 * time.Minute

	// DefaultMaxResumeBytes caps resume uploads at 1MB.
	DefaultMaxResumeBytes = 1 << 20

	// DefaultStateDir holds device-local durable flags (second-factor
	// trust timestamps, submission cooldowns).
	DefaultStateDir = "./state"
)

// Config is the root configuration for corpsite.
type Config struct {
	LogLevel string         `yaml:"log_level"`
	Server   ServerConfig   `yaml:"server"`
	Auth     AuthConfig     `yaml:"auth"`
	Database DatabaseConfig `yaml:"database"`
	Storage  StorageConfig  `yaml:"storage"`
	Uploads  UploadConfig   `yaml:"uploads"`
	Careers  CareersConfig  `yaml:"careers"`
	Settings SettingsConfig `yaml:"settings"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Listen      string          `yaml:"listen"`
	CORSOrigins []string        `yaml:"cors_origins,omitempty"`
	RateLimit   RateLimitConfig `yaml:"rate_limit,omitempty"`
}

// RateLimitConfig configures per-IP rate limiting.
type RateLimitConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Auth          RateLimitTier `yaml:"auth,omitempty"`
	Public        RateLimitTier `yaml:"public,omitempty"`
	Authenticated RateLimitTier `yaml:"authenticated,omitempty"`
}

// RateLimitTier defines request limits for a specific tier.
type RateLimitTier struct {
	RequestsPerMinute int `yaml:"requests_per_minute"`
}

// AuthConfig contains console authentication settings.
type AuthConfig struct {
	// AllowList is the fixed set of email addresses permitted to hold
	// an administrative session. Identities outside it are rejected
	// before any credential exchange is attempted.
	AllowList []string `yaml:"allowlist"`

	// Users seeds the built-in identity provider. Passwords are
	// bcrypt-hashed at load.
	Users []ConsoleUser `yaml:"users,omitempty"`

	// SecondFactorTTL is the trust window after a one-time code is
	// verified. A console reload inside the window does not force
	// re-verification; one outside it does.
	SecondFactorTTL string `yaml:"second_factor_ttl,omitempty"`

	// CodeTTL is the validity window for issued one-time codes.
	CodeTTL string `yaml:"code_ttl,omitempty"`

	// StateDir is where device-local durable flags are stored.
	StateDir string `yaml:"state_dir,omitempty"`

	// SubmissionCooldown is the minimum interval between public form
	// submissions from the same origin.
	SubmissionCooldown string `yaml:"submission_cooldown,omitempty"`
}

// ConsoleUser defines a console operator seeded from config.
type ConsoleUser struct {
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Driver   string         `yaml:"driver"`
	SQLite   SQLiteConfig   `yaml:"sqlite,omitempty"`
	Postgres PostgresConfig `yaml:"postgres,omitempty"`
}

// SQLiteConfig contains SQLite-specific settings.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// PostgresConfig contains PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"ssl_mode,omitempty"`
}

// StorageConfig contains object storage backend settings. Only one
// backend (S3 or local) may be enabled at a time.
type StorageConfig struct {
	S3    *S3Config           `yaml:"s3,omitempty"`
	Local *LocalStorageConfig `yaml:"local,omitempty"`
}

// S3Config contains S3-compatible object storage settings.
type S3Config struct {
	Enabled         bool   `yaml:"enabled"`
	EndpointURL     string `yaml:"endpoint_url,omitempty"`
	Region          string `yaml:"region,omitempty"`
	Bucket          string `yaml:"bucket"`
	AccessKeyID     string `yaml:"access_key_id,omitempty"`
	SecretAccessKey string `yaml:"secret_access_key,omitempty"`
	ForcePathStyle  bool   `yaml:"force_path_style"`

	// PublicBaseURL is the URL prefix under which uploaded objects are
	// publicly reachable (bucket website or CDN origin).
	PublicBaseURL string `yaml:"public_base_url"`
}

// LocalStorageConfig stores uploaded objects on the local filesystem.
type LocalStorageConfig struct {
	Enabled bool   `yaml:"enabled"`
	Root    string `yaml:"root"`
	BaseURL string `yaml:"base_url"`
}

// UploadConfig caps upload sizes per blob family. A zero cap disables
// the check for that family.
type UploadConfig struct {
	MaxResumeBytes int64 `yaml:"max_resume_bytes,omitempty"`
	MaxImageBytes  int64 `yaml:"max_image_bytes,omitempty"`
}

// CareersConfig carries behavioral switches for the job posting surface.
type CareersConfig struct {
	// ActiveToggle exposes the is_active field to console edits. The
	// two historical console surfaces disagreed on whether this toggle
	// exists; it is kept configurable until product settles it.
	ActiveToggle *bool `yaml:"active_toggle,omitempty"`
}

// SettingsConfig configures the site settings cache.
type SettingsConfig struct {
	// ReconcileInterval re-reads all settings from the store on a
	// timer, repairing optimistic local values whose persistence
	// failed. Empty disables reconciliation.
	ReconcileInterval string `yaml:"reconcile_interval,omitempty"`
}

// Load reads and parses a configuration file from the given path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyDefaults()

	return &cfg, nil
}

// applyDefaults sets default values for unspecified configuration options.
func (c *Config) applyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}

	if c.Server.Listen == "" {
		c.Server.Listen = DefaultListen
	}

	if c.Auth.SecondFactorTTL == "" {
		c.Auth.SecondFactorTTL = DefaultSecondFactorTTL.String()
	}

	if c.Auth.CodeTTL == "" {
		c.Auth.CodeTTL = DefaultCodeTTL.String()
	}

	if c.Auth.StateDir == "" {
		c.Auth.StateDir = DefaultStateDir
	}

	if c.Auth.SubmissionCooldown == "" {
		c.Auth.SubmissionCooldown = DefaultSubmissionCooldown.String()
	}

	if c.Uploads.MaxResumeBytes == 0 {
		c.Uploads.MaxResumeBytes = DefaultMaxResumeBytes
	}

	if c.Careers.ActiveToggle == nil {
		enabled := true
		c.Careers.ActiveToggle = &enabled
	}

	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}

	if c.Database.Driver == "sqlite" && c.Database.SQLite.Path == "" {
		c.Database.SQLite.Path = "./corpsite.db"
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite":
		if c.Database.SQLite.Path == "" {
			return fmt.Errorf("database.sqlite.path is required")
		}
	case "postgres":
		if c.Database.Postgres.Host == "" {
			return fmt.Errorf("database.postgres.host is required")
		}

		if c.Database.Postgres.Database == "" {
			return fmt.Errorf("database.postgres.database is required")
		}
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}

	if len(c.Auth.AllowList) == 0 {
		return fmt.Errorf("auth.allowlist must contain at least one address")
	}

	for _, d := range []struct {
		name, value string
	}{
		{"auth.second_factor_ttl", c.Auth.SecondFactorTTL},
		{"auth.code_ttl", c.Auth.CodeTTL},
		{"auth.submission_cooldown", c.Auth.SubmissionCooldown},
	} {
		if _, err := time.ParseDuration(d.value); err != nil {
			return fmt.Errorf("parsing %s: %w", d.name, err)
		}
	}

	if c.Settings.ReconcileInterval != "" {
		if _, err := time.ParseDuration(c.Settings.ReconcileInterval); err != nil {
			return fmt.Errorf("parsing settings.reconcile_interval: %w", err)
		}
	}

	s3Enabled := c.Storage.S3 != nil && c.Storage.S3.Enabled
	localEnabled := c.Storage.Local != nil && c.Storage.Local.Enabled

	if s3Enabled && localEnabled {
		return fmt.Errorf("storage: only one of s3 and local may be enabled")
	}

	if s3Enabled {
		if c.Storage.S3.Bucket == "" {
			return fmt.Errorf("storage.s3.bucket is required")
		}

		if c.Storage.S3.PublicBaseURL == "" {
			return fmt.Errorf("storage.s3.public_base_url is required")
		}
	}

	if localEnabled {
		if c.Storage.Local.Root == "" {
			return fmt.Errorf("storage.local.root is required")
		}

		if c.Storage.Local.BaseURL == "" {
			return fmt.Errorf("storage.local.base_url is required")
		}
	}

	return nil
}

// SecondFactorWindow returns the parsed second-factor trust window.
func (c *Config) SecondFactorWindow() time.Duration {
	d, err := time.ParseDuration(c.Auth.SecondFactorTTL)
	if err != nil {
		return DefaultSecondFactorTTL
	}

	return d
}

// SubmissionCooldown returns the parsed public submission cooldown.
func (c *Config) SubmissionCooldown() time.Duration {
	d, err := time.ParseDuration(c.Auth.SubmissionCooldown)
	if err != nil {
		return DefaultSubmissionCooldown
	}

	return d
}
