package jobs

import (
	"fmt"
	"time"

	"github.com/jonathan/site-generator/internal/types"
)

// Patch is a set of field changes merged atomically into one job.
// Nil fields are left untouched.
type Patch struct {
	Status      *types.JobStatus
	Progress    *int
	CurrentStep *string
	Error       *string

	Signals    *types.RawSignalSet
	Record     *types.BusinessRecord
	Artifact   *types.Artifact
	Deployment *types.DeploymentOutcome

	CompletedAt *time.Time
}

// Advance moves a job to status at progress with a step description.
func Advance(status types.JobStatus, progress int, step string) Patch {
	return Patch{Status: &status, Progress: &progress, CurrentStep: &step}
}

// Step reports progress inside the current status.
func Step(progress int, step string) Patch {
	return Patch{Progress: &progress, CurrentStep: &step}
}

// Fail moves a job to failed with the given message.
func Fail(message string) Patch {
	status := types.StatusFailed
	step := "Failed"
	return Patch{Status: &status, CurrentStep: &step, Error: &message}
}

// Complete moves a job to complete with its deployment outcome.
func Complete(outcome *types.DeploymentOutcome) Patch {
	p := Advance(types.StatusComplete, 100, "Complete")
	p.Deployment = outcome
	return p
}

// onlyTimestamps reports whether the patch touches nothing but finalization timestamps.
func (p Patch) onlyTimestamps() bool {
	return p.Status == nil && p.Progress == nil && p.CurrentStep == nil && p.Error == nil &&
		p.Signals == nil && p.Record == nil && p.Artifact == nil && p.Deployment == nil
}

// Apply merges the patch into job in place.
//
// Terminal jobs only accept a CompletedAt finalization. Status may only move
// forward. Progress never decreases and stays below 100 until the job is complete.
func (p Patch) Apply(job *types.Job, now time.Time) error {
	if job.Status.IsTerminal() {
		if !p.onlyTimestamps() {
			return &TerminalError{JobID: job.ID, Status: job.Status}
		}
		if p.CompletedAt != nil && job.CompletedAt == nil {
			t := *p.CompletedAt
			job.CompletedAt = &t
			job.UpdatedAt = now
		}
		return nil
	}

	prevStatus, prevProgress, prevStep := job.Status, job.Progress, job.CurrentStep

	if p.Status != nil {
		next := *p.Status
		if !next.Valid() {
			return fmt.Errorf("unknown job status %q", next)
		}
		if next.Rank() < job.Status.Rank() {
			return fmt.Errorf("%w: %s -> %s", ErrStatusRegression, job.Status, next)
		}
		job.Status = next
	}

	if p.Progress != nil {
		progress := *p.Progress
		if progress < 0 {
			progress = 0
		}
		if progress > job.Progress {
			job.Progress = progress
		}
	}
	switch {
	case job.Status == types.StatusComplete:
		job.Progress = 100
	case job.Progress > 99 && !job.Status.IsTerminal():
		job.Progress = 99
	case job.Progress > 99:
		// Failed jobs keep their last in-flight progress.
		job.Progress = prevProgress
	}

	if p.CurrentStep != nil {
		job.CurrentStep = *p.CurrentStep
	}
	if p.Error != nil {
		job.Error = *p.Error
	}
	if p.Signals != nil {
		job.Signals = p.Signals
	}
	if p.Record != nil {
		job.Record = p.Record
	}
	if p.Artifact != nil {
		job.Artifact = p.Artifact
	}
	if p.Deployment != nil {
		job.Deployment = p.Deployment
	}

	if job.StartedAt == nil && job.Status != types.StatusPending {
		t := now
		job.StartedAt = &t
	}
	if job.Status.IsTerminal() && job.CompletedAt == nil {
		t := now
		if p.CompletedAt != nil {
			t = *p.CompletedAt
		}
		job.CompletedAt = &t
	}

	if job.Status != prevStatus || job.Progress != prevProgress || job.CurrentStep != prevStep {
		job.History = append(job.History, types.ProgressEntry{
			Stage:     job.Status,
			Message:   job.CurrentStep,
			Percent:   job.Progress,
			Timestamp: now,
		})
	}
	job.UpdatedAt = now
	return nil
}
