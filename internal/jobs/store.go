// Package jobs owns generation job records: the store, the merge rules that
// enforce the job state machine, live-update fan-out, eviction and the
// external status view.
package jobs

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/site-generator/internal/types"
)

// Store is a keyed job record store. Every mutation goes through Merge, which
// applies a Patch atomically for one id.
type Store interface {
	Create(ctx context.Context, job *types.Job) error
	Get(ctx context.Context, id string) (*types.Job, error)
	Merge(ctx context.Context, id string, patch Patch) (*types.Job, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, opts ListOptions) ([]*types.Job, int, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error)
	Close() error
}

// ListOptions filters and pages List results. Results are newest first.
type ListOptions struct {
	Status   types.JobStatus
	Page     int
	PageSize int
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Normalized applies the default and maximum page sizes.
func (o ListOptions) Normalized() ListOptions {
	if o.Page < 1 {
		o.Page = 1
	}
	if o.PageSize < 1 {
		o.PageSize = defaultPageSize
	}
	if o.PageSize > maxPageSize {
		o.PageSize = maxPageSize
	}
	return o
}

// NewJob builds a pending job for req.
func NewJob(req types.GenerateRequest, now time.Time) *types.Job {
	return &types.Job{
		ID:          uuid.NewString(),
		Status:      types.StatusPending,
		CurrentStep: "Queued",
		Request:     req,
		CreatedAt:   now,
		UpdatedAt:   now,
		History: []types.ProgressEntry{{
			Stage:     types.StatusPending,
			Message:   "Queued",
			Timestamp: now,
		}},
	}
}

func paginate(all []*types.Job, opts ListOptions) ([]*types.Job, int) {
	opts = opts.Normalized()
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	total := len(all)
	start := (opts.Page - 1) * opts.PageSize
	if start >= total {
		return []*types.Job{}, total
	}
	end := start + opts.PageSize
	if end > total {
		end = total
	}
	return all[start:end], total
}
