package inspiration

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/ternarybob/arbor"
)

type fakeProvider struct {
	calls int32
	fn    func(ctx context.Context, category string) ([]Reference, error)
}

func (f *fakeProvider) References(ctx context.Context, category string) ([]Reference, error) {
	atomic.AddInt32(&f.calls, 1)
	return f.fn(ctx, category)
}

func TestCached_HitsCacheWithinTTL(t *testing.T) {
	p := &fakeProvider{fn: func(_ context.Context, category string) ([]Reference, error) {
		return []Reference{{Title: category, URL: "https://ref.example"}}, nil
	}}
	c := NewCached(p, time.Hour, time.Second, arbor.NewLogger())
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	first := c.Lookup(context.Background(), "Cafe")
	second := c.Lookup(context.Background(), " cafe ")
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&p.calls))

	now = now.Add(2 * time.Hour)
	c.Lookup(context.Background(), "cafe")
	assert.Equal(t, int32(2), atomic.LoadInt32(&p.calls))
}

func TestCached_FailureCachedAsEmpty(t *testing.T) {
	p := &fakeProvider{fn: func(context.Context, string) ([]Reference, error) {
		return nil, errors.New("quota exceeded")
	}}
	c := NewCached(p, time.Hour, time.Second, arbor.NewLogger())

	assert.Nil(t, c.Lookup(context.Background(), "gym"))
	assert.Nil(t, c.Lookup(context.Background(), "gym"))
	assert.Equal(t, int32(1), atomic.LoadInt32(&p.calls))
}

func TestCached_StrictDeadline(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	p := &fakeProvider{fn: func(context.Context, string) ([]Reference, error) {
		<-release // ignores cancellation
		return []Reference{{URL: "late"}}, nil
	}}
	c := NewCached(p, 0, 30*time.Millisecond, arbor.NewLogger())

	start := time.Now()
	refs := c.Lookup(context.Background(), "florist")
	assert.Nil(t, refs)
	assert.Less(t, time.Since(start), time.Second)
}

func TestCached_NilSafe(t *testing.T) {
	var c *Cached
	assert.Nil(t, c.Lookup(context.Background(), "x"))
	assert.Nil(t, NewCached(nil, time.Hour, time.Second, arbor.NewLogger()).Lookup(context.Background(), "x"))
}
