package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/jonathan/site-generator/internal/types"
	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"
)

// BadgerStore persists jobs in an embedded Badger database through badgerhold.
// Records are JSON encoded so arbitrary source payloads survive a round trip.
type BadgerStore struct {
	store  *badgerhold.Store
	logger arbor.ILogger
	now    func() time.Time
}

// OpenBadgerStore opens (or creates) a store rooted at dir.
func OpenBadgerStore(dir string, logger arbor.ILogger) (*BadgerStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	options := badgerhold.DefaultOptions
	options.Dir = dir
	options.ValueDir = dir
	options.Logger = nil
	options.Encoder = json.Marshal
	options.Decoder = json.Unmarshal

	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger store: %w", err)
	}
	logger.Debug().Str("path", dir).Msg("Badger job store opened")

	return &BadgerStore{store: store, logger: logger, now: time.Now}, nil
}

func (s *BadgerStore) Create(_ context.Context, job *types.Job) error {
	if err := s.store.Insert(job.ID, job); err != nil {
		if errors.Is(err, badgerhold.ErrKeyExists) {
			return ErrExists
		}
		return fmt.Errorf("failed to create job: %w", err)
	}
	return nil
}

func (s *BadgerStore) Get(_ context.Context, id string) (*types.Job, error) {
	var job types.Job
	if err := s.store.Get(id, &job); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return &job, nil
}

// Merge reads, patches and writes the record inside one Badger transaction.
// Concurrent merges to the same key surface as badger.ErrConflict and are retried.
func (s *BadgerStore) Merge(ctx context.Context, id string, patch Patch) (*types.Job, error) {
	for {
		var merged types.Job
		err := s.store.Badger().Update(func(tx *badger.Txn) error {
			if err := s.store.TxGet(tx, id, &merged); err != nil {
				return err
			}
			if err := patch.Apply(&merged, s.now()); err != nil {
				return err
			}
			return s.store.TxUpdate(tx, id, &merged)
		})
		switch {
		case err == nil:
			return &merged, nil
		case errors.Is(err, badger.ErrConflict):
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			continue
		case errors.Is(err, badgerhold.ErrNotFound):
			return nil, ErrNotFound
		default:
			return nil, err
		}
	}
}

func (s *BadgerStore) Delete(_ context.Context, id string) error {
	if err := s.store.Delete(id, &types.Job{}); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete job: %w", err)
	}
	return nil
}

func (s *BadgerStore) List(_ context.Context, opts ListOptions) ([]*types.Job, int, error) {
	var query *badgerhold.Query
	if opts.Status != "" {
		query = badgerhold.Where("Status").Eq(opts.Status)
	}

	var found []types.Job
	if err := s.store.Find(&found, query); err != nil {
		return nil, 0, fmt.Errorf("failed to list jobs: %w", err)
	}
	all := make([]*types.Job, len(found))
	for i := range found {
		all[i] = &found[i]
	}
	page, total := paginate(all, opts)
	return page, total, nil
}

func (s *BadgerStore) DeleteOlderThan(_ context.Context, cutoff time.Time) (int, error) {
	var all []types.Job
	if err := s.store.Find(&all, nil); err != nil {
		return 0, fmt.Errorf("failed to scan jobs: %w", err)
	}
	n := 0
	for _, job := range all {
		if !job.CreatedAt.Before(cutoff) {
			continue
		}
		if err := s.store.Delete(job.ID, &types.Job{}); err != nil && !errors.Is(err, badgerhold.ErrNotFound) {
			s.logger.Warn().Err(err).Str("job_id", job.ID).Msg("Failed to evict job")
			continue
		}
		n++
	}
	return n, nil
}

func (s *BadgerStore) Close() error {
	return s.store.Close()
}
