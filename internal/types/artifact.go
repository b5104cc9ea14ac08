package types

import "time"

// Artifact is the generated deployable document and its metadata.
type Artifact struct {
	HTML         string    `json:"html"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Sections     []string  `json:"sections"`
	StyleProfile string    `json:"style_profile"`
	GeneratedAt  time.Time `json:"generated_at"`
	DurationMS   int64     `json:"duration_ms"`
}

// DNSRecord is a record the domain owner must create.
type DNSRecord struct {
	Type  string `json:"type"`
	Name  string `json:"name"`
	Value string `json:"value"`
}

// DeploymentOutcome is produced once per job by the deployment orchestrator.
type DeploymentOutcome struct {
	Success      bool        `json:"success"`
	URL          string      `json:"url,omitempty"`
	PreviewURL   string      `json:"preview_url,omitempty"`
	Error        string      `json:"error,omitempty"`
	ProjectID    string      `json:"project_id,omitempty"`
	DeploymentID string      `json:"deployment_id,omitempty"`
	Slug         string      `json:"slug"`
	State        string      `json:"state,omitempty"`
	Polls        int         `json:"polls"`
	CustomDomain string      `json:"custom_domain,omitempty"`
	DNSRecords   []DNSRecord `json:"dns_records,omitempty"`
}
