package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/jonathan/site-generator/internal/types"
)

// MemoryStore keeps jobs in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[string]*types.Job
	now  func() time.Time
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: make(map[string]*types.Job), now: time.Now}
}

func (s *MemoryStore) Create(_ context.Context, job *types.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[job.ID]; ok {
		return ErrExists
	}
	s.jobs[job.ID] = job.Clone()
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*types.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return job.Clone(), nil
}

func (s *MemoryStore) Merge(_ context.Context, id string, patch Patch) (*types.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	next := job.Clone()
	if err := patch.Apply(next, s.now()); err != nil {
		return nil, err
	}
	s.jobs[id] = next
	return next.Clone(), nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[id]; !ok {
		return ErrNotFound
	}
	delete(s.jobs, id)
	return nil
}

func (s *MemoryStore) List(_ context.Context, opts ListOptions) ([]*types.Job, int, error) {
	s.mu.RLock()
	all := make([]*types.Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		if opts.Status != "" && job.Status != opts.Status {
			continue
		}
		all = append(all, job.Clone())
	}
	s.mu.RUnlock()

	page, total := paginate(all, opts)
	return page, total, nil
}

func (s *MemoryStore) DeleteOlderThan(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, job := range s.jobs {
		if job.CreatedAt.Before(cutoff) {
			delete(s.jobs, id)
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) Close() error { return nil }
