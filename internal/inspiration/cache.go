package inspiration

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
)

type cacheEntry struct {
	refs    []Reference
	expires time.Time
}

// Cached wraps a Provider with a TTL cache and a hard deadline. Lookup never
// fails and never waits longer than the deadline, even when the provider
// ignores cancellation. Failures are cached as empty results.
type Cached struct {
	provider Provider
	ttl      time.Duration
	deadline time.Duration
	logger   arbor.ILogger
	now      func() time.Time

	mu      sync.Mutex
	entries map[string]cacheEntry
}

// NewCached wraps provider. A nil provider makes every lookup return nil.
func NewCached(provider Provider, ttl, deadline time.Duration, logger arbor.ILogger) *Cached {
	return &Cached{
		provider: provider,
		ttl:      ttl,
		deadline: deadline,
		logger:   logger,
		now:      time.Now,
		entries:  map[string]cacheEntry{},
	}
}

// Lookup returns cached or fresh references for category.
func (c *Cached) Lookup(ctx context.Context, category string) []Reference {
	if c == nil || c.provider == nil {
		return nil
	}
	key := strings.ToLower(strings.TrimSpace(category))

	c.mu.Lock()
	if e, ok := c.entries[key]; ok && c.now().Before(e.expires) {
		c.mu.Unlock()
		return e.refs
	}
	c.mu.Unlock()

	refs, err := c.fetch(ctx, category)
	if err != nil {
		c.logger.Warn().Str("category", key).Err(err).Msg("Design inspiration unavailable")
		refs = nil
	}
	if c.ttl > 0 {
		c.mu.Lock()
		c.entries[key] = cacheEntry{refs: refs, expires: c.now().Add(c.ttl)}
		c.mu.Unlock()
	}
	return refs
}

type result struct {
	refs []Reference
	err  error
}

func (c *Cached) fetch(ctx context.Context, category string) ([]Reference, error) {
	if c.deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.deadline)
		defer cancel()
	}

	done := make(chan result, 1)
	go func() {
		refs, err := c.provider.References(ctx, category)
		done <- result{refs: refs, err: err}
	}()

	select {
	case r := <-done:
		return r.refs, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
