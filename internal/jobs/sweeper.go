package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
)

// DefaultSweepSchedule runs eviction every ten minutes.
const DefaultSweepSchedule = "@every 10m"

// Sweeper periodically evicts job records older than a fixed age.
type Sweeper struct {
	store  Store
	maxAge time.Duration
	cron   *cron.Cron
	logger arbor.ILogger
	now    func() time.Time
}

// NewSweeper creates a sweeper for store.
func NewSweeper(store Store, maxAge time.Duration, logger arbor.ILogger) *Sweeper {
	return &Sweeper{
		store:  store,
		maxAge: maxAge,
		cron:   cron.New(),
		logger: logger,
		now:    time.Now,
	}
}

// Start schedules the sweep.
func (s *Sweeper) Start(schedule string) error {
	if schedule == "" {
		schedule = DefaultSweepSchedule
	}
	if _, err := s.cron.AddFunc(schedule, func() {
		_, _ = s.SweepNow(context.Background())
	}); err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info().
		Str("schedule", schedule).
		Dur("max_age", s.maxAge).
		Msg("Job eviction sweeper started")
	return nil
}

// Stop halts the schedule and waits for a running sweep.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info().Msg("Job eviction sweeper stopped")
}

// SweepNow evicts every record created before now minus maxAge.
func (s *Sweeper) SweepNow(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.maxAge)
	n, err := s.store.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Job eviction sweep failed")
		return n, err
	}
	if n > 0 {
		s.logger.Info().Int("evicted", n).Msg("Evicted stale jobs")
	}
	return n, nil
}
