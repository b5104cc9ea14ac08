package db

import (
	"encoding/json"
	"time"
)

// Site is one recorded, successfully deployed job.
type Site struct {
	JobID        string          `json:"job_id"`
	BusinessName string          `json:"business_name"`
	Category     string          `json:"category"`
	Slug         string          `json:"slug"`
	SiteURL      string          `json:"site_url"`
	PreviewURL   string          `json:"preview_url,omitempty"`
	CustomDomain string          `json:"custom_domain,omitempty"`
	QualityScore int             `json:"quality_score"`
	ClientEmail  string          `json:"client_email,omitempty"`
	Record       json.RawMessage `json:"record,omitempty"`
	Deployment   json.RawMessage `json:"deployment,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`
	RecordedAt   time.Time       `json:"recorded_at"`
}

// SiteFilters holds optional filters for listing sites
type SiteFilters struct {
	BusinessName string
	Limit        int
}
