package store

import (
	"time"
)

// News article kinds.
const (
	NewsKindNews = "news"
	NewsKindCSR  = "csr"
)

// News article media kinds.
const (
	MediaKindImage = "image"
	MediaKindVideo = "video"
)

// Application review statuses.
const (
	ApplicationStatusNew         = "new"
	ApplicationStatusReviewed    = "reviewed"
	ApplicationStatusInterviewed = "interviewed"
	ApplicationStatusRejected    = "rejected"
	ApplicationStatusHired       = "hired"
)

// Audit actions.
const (
	AuditActionCreate = "CREATE"
	AuditActionUpdate = "UPDATE"
	AuditActionDelete = "DELETE"
)

// NewsArticle is a news or CSR article published on the site.
type NewsArticle struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Kind        string    `gorm:"not null" json:"kind"`
	Category    string    `json:"category"`
	Title       string    `gorm:"not null" json:"title"`
	PublishedOn time.Time `json:"published_on"`
	Author      string    `json:"author"`
	Excerpt     string    `json:"excerpt"`
	Body        string    `json:"body,omitempty"`
	ImageURL    string    `json:"image_url"`
	Featured    bool      `json:"featured"`
	Tags        []string  `gorm:"serializer:json" json:"tags,omitempty"`
	Quote       string    `json:"quote,omitempty"`
	QuoteAuthor string    `json:"quote_author,omitempty"`
	MediaKind   string    `gorm:"not null" json:"media_kind"`
	VideoURL    string    `json:"video_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName maps the model onto the backing news collection.
func (NewsArticle) TableName() string { return "news" }

// RecordID implements the console record contract.
func (a NewsArticle) RecordID() uint { return a.ID }

// JobPosting is an open position listed on the careers page.
type JobPosting struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	Title          string     `gorm:"not null" json:"title"`
	Department     string     `json:"department"`
	Location       string     `json:"location"`
	EmploymentType string     `json:"employment_type"`
	Description    string     `json:"description"`
	Requirements   string     `json:"requirements,omitempty"`
	LinkedinURL    string     `json:"linkedin_url,omitempty"`
	IsActive       bool       `gorm:"not null" json:"is_active"`
	ExpiresOn      *time.Time `json:"expires_on,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// TableName maps the model onto the backing careers collection.
func (JobPosting) TableName() string { return "careers" }

// RecordID implements the console record contract.
func (p JobPosting) RecordID() uint { return p.ID }

// Visible reports whether the posting is publicly visible at the given
// time: active, and either without an expiry or expired less than a day
// ago (postings stay up through the end of their expiry date).
func (p JobPosting) Visible(now time.Time) bool {
	if !p.IsActive {
		return false
	}

	if p.ExpiresOn == nil {
		return true
	}

	return p.ExpiresOn.AddDate(0, 0, 1).After(now)
}

// Application is a job application submitted through the careers page.
type Application struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	JobID          *uint     `json:"job_id,omitempty"`
	ApplicantName  string    `gorm:"not null" json:"applicant_name"`
	Email          string    `gorm:"not null" json:"email"`
	Phone          string    `json:"phone"`
	ResumeURL      string    `json:"resume_url"`
	Linkedin       string    `json:"linkedin,omitempty"`
	TargetPosition string    `json:"target_position"`
	Message        string    `json:"message,omitempty"`
	Status         string    `gorm:"not null" json:"status"`
	SubmittedAt    time.Time `json:"submitted_at"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TableName maps the model onto the backing applications collection.
func (Application) TableName() string { return "career_applications" }

// RecordID implements the console record contract.
func (a Application) RecordID() uint { return a.ID }

// PropertyListing is a property showcased on the site. Display order is
// explicit via OrderIndex, not insertion order.
type PropertyListing struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	Title           string    `gorm:"not null" json:"title"`
	Subtitle        string    `json:"subtitle"`
	Location        string    `json:"location"`
	PropertyType    string    `json:"property_type"`
	Description     string    `json:"description"`
	BulletPoints    []string  `gorm:"serializer:json" json:"bullet_points,omitempty"`
	ImageURLs       []string  `gorm:"serializer:json" json:"image_urls,omitempty"`
	DisplayReversed bool      `json:"display_reversed"`
	OrderIndex      int       `gorm:"not null;index" json:"order_index"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// TableName maps the model onto the backing properties collection.
func (PropertyListing) TableName() string { return "properties" }

// RecordID implements the console record contract.
func (p PropertyListing) RecordID() uint { return p.ID }

// SiteSetting is a single key/value pair of global site configuration.
type SiteSetting struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Key       string    `gorm:"uniqueIndex;not null" json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName maps the model onto the backing settings collection.
func (SiteSetting) TableName() string { return "site_settings" }

// ContactSubmission is a message sent through the public contact form.
type ContactSubmission struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	Email     string    `gorm:"not null" json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Subject   string    `json:"subject,omitempty"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName maps the model onto the backing contact collection.
func (ContactSubmission) TableName() string { return "contact_submissions" }

// RecordID implements the console record contract.
func (c ContactSubmission) RecordID() uint { return c.ID }

// AuditLog is an append-only record of a console mutation.
type AuditLog struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Action      string    `gorm:"not null" json:"action"`
	Section     string    `gorm:"not null" json:"section"`
	Details     string    `json:"details"`
	PerformedBy string    `json:"performed_by"`
	CreatedAt   time.Time `json:"created_at"`
}

// TableName maps the model onto the backing audit collection.
func (AuditLog) TableName() string { return "audit_logs" }
