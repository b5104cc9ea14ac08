package jobs

import (
	"time"

	"github.com/jonathan/site-generator/internal/types"
)

// StatusView is the external read model polled by clients.
type StatusView struct {
	ID          string          `json:"id"`
	Status      types.JobStatus `json:"status"`
	Progress    int             `json:"progress"`
	CurrentStep string          `json:"current_step"`
	Result      *ResultView     `json:"result,omitempty"`
	Error       string          `json:"error,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

// ResultView is populated once a job completes successfully.
type ResultView struct {
	SiteURL      string `json:"site_url"`
	PreviewURL   string `json:"preview_url,omitempty"`
	QualityScore int    `json:"quality_score"`
	CustomDomain string `json:"custom_domain,omitempty"`
}

// Project derives the status view of job.
func Project(job *types.Job) StatusView {
	v := StatusView{
		ID:          job.ID,
		Status:      job.Status,
		Progress:    job.Progress,
		CurrentStep: job.CurrentStep,
		CreatedAt:   job.CreatedAt,
		StartedAt:   job.StartedAt,
		CompletedAt: job.CompletedAt,
	}

	switch job.Status {
	case types.StatusComplete:
		r := &ResultView{}
		if job.Deployment != nil {
			r.SiteURL = job.Deployment.URL
			r.PreviewURL = job.Deployment.PreviewURL
			r.CustomDomain = job.Deployment.CustomDomain
		}
		if job.Record != nil {
			r.QualityScore = job.Record.DataQuality.Score
		}
		v.Result = r
	case types.StatusFailed:
		v.Error = job.Error
		if v.Error == "" {
			v.Error = "job failed"
		}
	}
	return v
}
