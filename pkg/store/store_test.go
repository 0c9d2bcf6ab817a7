package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/meridianhq/corpsite/pkg/config"
	"github.com/meridianhq/corpsite/pkg/console"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s := NewStore(logrus.New(), &config.DatabaseConfig{
		Driver: "sqlite",
		SQLite: config.SQLiteConfig{
			Path: filepath.Join(t.TempDir(), "test.db"),
		},
	})

	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(func() {
		require.NoError(t, s.Stop())
	})

	return s
}

func TestStore_NewsCRUD(t *testing.T) {
	s := newTestStore(t)
	coll := s.News()
	ctx := context.Background()

	article := NewsArticle{
		Kind:        NewsKindNews,
		Title:       "Quarterly results",
		PublishedOn: time.Now(),
		Author:      "Comms",
		Tags:        []string{"finance", "q2"},
		MediaKind:   MediaKindImage,
	}
	require.NoError(t, coll.Insert(ctx, &article))
	require.NotZero(t, article.ID)

	items, err := coll.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, []string{"finance", "q2"}, items[0].Tags)

	updated, err := coll.Update(ctx, article.ID, map[string]any{
		"title":    "Quarterly results, restated",
		"featured": true,
	})
	require.NoError(t, err)
	assert.Equal(t, "Quarterly results, restated", updated.Title)
	assert.True(t, updated.Featured)
	assert.Equal(t, []string{"finance", "q2"}, updated.Tags,
		"untouched fields must survive a partial update")

	require.NoError(t, coll.Delete(ctx, article.ID))

	items, err = coll.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestStore_UpdateMissingRecord(t *testing.T) {
	s := newTestStore(t)

	_, err := s.News().Update(
		context.Background(), 9999, map[string]any{"title": "x"},
	)
	require.ErrorIs(t, err, console.ErrNotFound)

	err = s.News().Delete(context.Background(), 9999)
	require.ErrorIs(t, err, console.ErrNotFound)
	assert.True(t, IsNotFound(err))
}

func TestStore_NewsListNewestFirst(t *testing.T) {
	s := newTestStore(t)
	coll := s.News()
	ctx := context.Background()

	for _, title := range []string{"first", "second", "third"} {
		article := NewsArticle{Title: title, Kind: NewsKindNews}
		require.NoError(t, coll.Insert(ctx, &article))

		// created_at has second resolution on some drivers.
		time.Sleep(5 * time.Millisecond)
	}

	items, err := coll.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "third", items[0].Title)
}

func TestStore_PropertiesOrderedByIndex(t *testing.T) {
	s := newTestStore(t)
	coll := s.Properties()
	ctx := context.Background()

	for _, p := range []PropertyListing{
		{Title: "B", OrderIndex: 2},
		{Title: "A", OrderIndex: 1},
		{Title: "C", OrderIndex: 3},
	} {
		listing := p
		require.NoError(t, coll.Insert(ctx, &listing))
	}

	items, err := coll.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "A", items[0].Title)
	assert.Equal(t, "C", items[2].Title)
}

func TestStore_SettingsUpsert(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveSetting(ctx, "site_title", "First"))
	require.NoError(t, s.SaveSetting(ctx, "site_title", "Second"))
	require.NoError(t, s.SaveSetting(ctx, "maintenance_mode", "true"))

	settings, err := s.LoadSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Second", settings["site_title"])
	assert.Equal(t, "true", settings["maintenance_mode"])

	// Upsert must not duplicate rows.
	var count int64
	require.NoError(t, s.db.Model(&SiteSetting{}).
		Where("key = ?", "site_title").
		Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestStore_AuditAppendAndList(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, action := range []string{
		AuditActionCreate, AuditActionUpdate, AuditActionDelete,
	} {
		require.NoError(t, s.AppendAudit(ctx, console.AuditEntry{
			Action:      action,
			Section:     "news",
			Details:     "id=1",
			PerformedBy: "admin@example.com",
		}))
	}

	rows, err := s.ListAudit(ctx, 2)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, AuditActionDelete, rows[0].Action, "newest first")
}

func TestJobPosting_Visible(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

	today := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	yesterday := today.AddDate(0, 0, -1)
	lastWeek := today.AddDate(0, 0, -7)

	tests := []struct {
		name    string
		posting JobPosting
		want    bool
	}{
		{
			name:    "inactive never visible",
			posting: JobPosting{IsActive: false},
			want:    false,
		},
		{
			name:    "active without expiry",
			posting: JobPosting{IsActive: true},
			want:    true,
		},
		{
			name:    "expires today stays visible through the day",
			posting: JobPosting{IsActive: true, ExpiresOn: &today},
			want:    true,
		},
		{
			name:    "expired yesterday hidden",
			posting: JobPosting{IsActive: true, ExpiresOn: &yesterday},
			want:    false,
		},
		{
			name:    "expired last week hidden",
			posting: JobPosting{IsActive: true, ExpiresOn: &lastWeek},
			want:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.posting.Visible(now))
		})
	}
}

func TestStore_ApplicationRoundTrip(t *testing.T) {
	s := newTestStore(t)
	coll := s.Applications()
	ctx := context.Background()

	jobID := uint(7)
	app := Application{
		JobID:          &jobID,
		ApplicantName:  "Ada Lovelace",
		Email:          "ada@example.com",
		ResumeURL:      "https://cdn.example.com/resumes/1-cv.pdf",
		TargetPosition: "Site Reliability Engineer",
		Status:         ApplicationStatusNew,
		SubmittedAt:    time.Now(),
	}
	require.NoError(t, coll.Insert(ctx, &app))

	updated, err := coll.Update(ctx, app.ID, map[string]any{
		"status": ApplicationStatusReviewed,
	})
	require.NoError(t, err)
	assert.Equal(t, ApplicationStatusReviewed, updated.Status)
	assert.Equal(t, "Ada Lovelace", updated.ApplicantName)
}
