// Package store persists console-managed resources in the relational
// data service, and adapts them to the console's collection contracts.
package store

import (
	"context"
	"fmt"

	"github.com/glebarez/sqlite"
	"github.com/meridianhq/corpsite/pkg/config"
	"github.com/meridianhq/corpsite/pkg/console"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Store owns the database connection and hands out per-family
// collections.
type Store struct {
	log logrus.FieldLogger
	cfg *config.DatabaseConfig
	db  *gorm.DB
}

// NewStore creates a Store backed by the configured database driver.
func NewStore(log logrus.FieldLogger, cfg *config.DatabaseConfig) *Store {
	return &Store{
		log: log.WithField("component", "store"),
		cfg: cfg,
	}
}

// Start opens the database connection and runs migrations.
func (s *Store) Start(ctx context.Context) error {
	var dialector gorm.Dialector

	gormCfg := &gorm.Config{
		Logger: logger.Discard,
	}

	switch s.cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(s.cfg.SQLite.Path)
	case "postgres":
		dsn := fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			s.cfg.Postgres.Host,
			s.cfg.Postgres.Port,
			s.cfg.Postgres.User,
			s.cfg.Postgres.Password,
			s.cfg.Postgres.Database,
			s.cfg.Postgres.SSLMode,
		)
		dialector = postgres.Open(dsn)
	default:
		return fmt.Errorf("unsupported database driver: %s", s.cfg.Driver)
	}

	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}

	s.db = db

	if err := s.db.WithContext(ctx).AutoMigrate(
		&NewsArticle{},
		&JobPosting{},
		&Application{},
		&PropertyListing{},
		&SiteSetting{},
		&ContactSubmission{},
		&AuditLog{},
	); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	s.log.WithField("driver", s.cfg.Driver).Info("Database connected")

	return nil
}

// Stop closes the underlying database connection.
func (s *Store) Stop() error {
	if s.db == nil {
		return nil
	}

	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("getting underlying db: %w", err)
	}

	return sqlDB.Close()
}

// --- Per-family collections ---

// News returns the news article collection, newest first.
func (s *Store) News() console.Collection[NewsArticle] {
	return &repo[NewsArticle]{db: s.db, order: "created_at DESC"}
}

// Careers returns the job posting collection, newest first.
func (s *Store) Careers() console.Collection[JobPosting] {
	return &repo[JobPosting]{db: s.db, order: "created_at DESC"}
}

// Applications returns the application collection, newest first.
func (s *Store) Applications() console.Collection[Application] {
	return &repo[Application]{db: s.db, order: "created_at DESC"}
}

// Properties returns the property collection in explicit display order.
func (s *Store) Properties() console.Collection[PropertyListing] {
	return &repo[PropertyListing]{db: s.db, order: "order_index ASC"}
}

// Contacts returns the contact submission collection, newest first.
func (s *Store) Contacts() console.Collection[ContactSubmission] {
	return &repo[ContactSubmission]{db: s.db, order: "created_at DESC"}
}

// --- Settings backend ---

// Compile-time interface checks.
var (
	_ console.SettingsBackend = (*Store)(nil)
	_ console.AuditSink       = (*Store)(nil)
)

// LoadSettings returns all persisted key/value pairs.
func (s *Store) LoadSettings(ctx context.Context) (map[string]string, error) {
	var rows []SiteSetting
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}

	out := make(map[string]string, len(rows))
	for i := range rows {
		out[rows[i].Key] = rows[i].Value
	}

	return out, nil
}

// SaveSetting upserts one key/value pair.
func (s *Store) SaveSetting(ctx context.Context, key, value string) error {
	setting := SiteSetting{Key: key}

	result := s.db.WithContext(ctx).
		Where("key = ?", key).
		Assign(SiteSetting{Value: value}).
		FirstOrCreate(&setting)
	if result.Error != nil {
		return fmt.Errorf("saving setting %q: %w", key, result.Error)
	}

	return nil
}

// --- Audit sink ---

// AppendAudit writes one audit record.
func (s *Store) AppendAudit(ctx context.Context, entry console.AuditEntry) error {
	row := AuditLog{
		Action:      entry.Action,
		Section:     entry.Section,
		Details:     entry.Details,
		PerformedBy: entry.PerformedBy,
	}

	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("appending audit record: %w", err)
	}

	return nil
}

// ListAudit returns the most recent audit records, newest first.
func (s *Store) ListAudit(ctx context.Context, limit int) ([]AuditLog, error) {
	var rows []AuditLog
	if err := s.db.WithContext(ctx).
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing audit records: %w", err)
	}

	return rows, nil
}
