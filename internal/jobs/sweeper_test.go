package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/jonathan/site-generator/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

func TestSweeper_SweepNowEvictsOnlyStaleRecords(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	stale := NewJob(types.GenerateRequest{BusinessName: "Stale"}, now.Add(-25*time.Hour))
	recent := NewJob(types.GenerateRequest{BusinessName: "Recent"}, now.Add(-time.Hour))
	require.NoError(t, store.Create(ctx, stale))
	require.NoError(t, store.Create(ctx, recent))

	sweeper := NewSweeper(store, 24*time.Hour, arbor.NewLogger())
	sweeper.now = func() time.Time { return now }

	n, err := sweeper.SweepNow(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = store.Get(ctx, stale.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.Get(ctx, recent.ID)
	assert.NoError(t, err)
}

func TestSweeper_StartRejectsBadSchedule(t *testing.T) {
	sweeper := NewSweeper(NewMemoryStore(), time.Hour, arbor.NewLogger())
	assert.Error(t, sweeper.Start("not a schedule"))
}

func TestSweeper_StartStop(t *testing.T) {
	sweeper := NewSweeper(NewMemoryStore(), time.Hour, arbor.NewLogger())
	require.NoError(t, sweeper.Start(""))
	sweeper.Stop()
}
