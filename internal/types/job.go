// Package types provides type definitions for structured data used throughout the site-generator system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import "time"

// JobStatus is the lifecycle state of a generation job.
type JobStatus string

// Job lifecycle states, in pipeline order. Complete and failed are terminal.
const (
	StatusPending    JobStatus = "pending"
	StatusScraping   JobStatus = "scraping"
	StatusProcessing JobStatus = "processing"
	StatusGenerating JobStatus = "generating"
	StatusDeploying  JobStatus = "deploying"
	StatusComplete   JobStatus = "complete"
	StatusFailed     JobStatus = "failed"
)

var statusOrder = map[JobStatus]int{
	StatusPending:    0,
	StatusScraping:   1,
	StatusProcessing: 2,
	StatusGenerating: 3,
	StatusDeploying:  4,
	StatusComplete:   5,
	StatusFailed:     5,
}

// IsTerminal reports whether no further pipeline mutation may happen.
func (s JobStatus) IsTerminal() bool {
	return s == StatusComplete || s == StatusFailed
}

// Valid reports whether s is a known status.
func (s JobStatus) Valid() bool {
	_, ok := statusOrder[s]
	return ok
}

// Rank orders statuses along the pipeline. Both terminal states share the highest rank.
func (s JobStatus) Rank() int {
	if r, ok := statusOrder[s]; ok {
		return r
	}
	return -1
}

// ProgressEntry is one step in a job's progress history.
type ProgressEntry struct {
	Stage     JobStatus `json:"stage"`
	Message   string    `json:"message"`
	Percent   int       `json:"progress_percent"`
	Timestamp time.Time `json:"timestamp"`
}

// Job is the end-to-end execution record for one generation request.
// Stage payloads are treated as immutable once attached.
type Job struct {
	ID          string          `json:"id"`
	Status      JobStatus       `json:"status"`
	Progress    int             `json:"progress"`
	CurrentStep string          `json:"current_step"`
	Error       string          `json:"error,omitempty"`
	Request     GenerateRequest `json:"request"`
	History     []ProgressEntry `json:"history,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	Signals    *RawSignalSet      `json:"signals,omitempty"`
	Record     *BusinessRecord    `json:"record,omitempty"`
	Artifact   *Artifact          `json:"artifact,omitempty"`
	Deployment *DeploymentOutcome `json:"deployment,omitempty"`
}

// Clone returns a copy that shares only the immutable stage payloads.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	c := *j
	if j.History != nil {
		c.History = make([]ProgressEntry, len(j.History))
		copy(c.History, j.History)
	}
	if j.StartedAt != nil {
		t := *j.StartedAt
		c.StartedAt = &t
	}
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}
