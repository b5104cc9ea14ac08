// Package aggregate fans a job request out to the source clients it names
// and joins their results into one raw signal set.
package aggregate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/site-generator/internal/sources"
	"github.com/jonathan/site-generator/internal/types"
)

// ProgressFunc is called each time a source settles.
type ProgressFunc func(settled, total int)

// Aggregator gathers raw signals. Individual source failures are recorded as
// absence and never returned.
type Aggregator struct {
	clients map[types.SourceName]sources.Client
	timeout time.Duration
	logger  arbor.ILogger
}

// New creates an aggregator. A zero timeout leaves each fetch bounded only by
// the caller's context.
func New(clients map[types.SourceName]sources.Client, timeout time.Duration, logger arbor.ILogger) *Aggregator {
	if clients == nil {
		clients = map[types.SourceName]sources.Client{}
	}
	return &Aggregator{clients: clients, timeout: timeout, logger: logger}
}

// Locators derives the per-source locators a request supplies. A location
// without a listing URL becomes a name-and-location lookup for the map
// listing source.
func Locators(req types.GenerateRequest) map[types.SourceName]sources.Locator {
	locs := map[types.SourceName]sources.Locator{}
	if req.MapListingURL != "" || req.Location != "" {
		locs[types.SourceMapListing] = sources.Locator{
			URL:      req.MapListingURL,
			Name:     req.BusinessName,
			Location: req.Location,
		}
	}
	if req.WebsiteURL != "" {
		locs[types.SourceWebsite] = sources.Locator{URL: req.WebsiteURL, Name: req.BusinessName}
	}
	if req.FacebookURL != "" {
		locs[types.SourceFacebook] = sources.Locator{URL: req.FacebookURL, Name: req.BusinessName}
	}
	if username := req.InstagramUsername(); username != "" {
		locs[types.SourceInstagram] = sources.Locator{Handle: username, Name: req.BusinessName}
	}
	return locs
}

// Gather fetches every source the request names concurrently and returns once
// all of them have settled.
func (a *Aggregator) Gather(ctx context.Context, req types.GenerateRequest, onSettled ProgressFunc) *types.RawSignalSet {
	set := types.NewRawSignalSet()
	set.Failures = map[types.SourceName]string{}

	locs := Locators(req)
	for _, name := range types.AllSources {
		if _, ok := locs[name]; ok {
			set.Attempted = append(set.Attempted, name)
		}
	}
	total := len(set.Attempted)
	if total == 0 {
		a.logger.Info().Str("business", req.BusinessName).Msg("No source locators supplied")
		return set
	}

	var mu sync.Mutex
	settled := 0
	var g errgroup.Group
	for _, name := range set.Attempted {
		loc := locs[name]
		g.Go(func() error {
			start := time.Now()
			rec, err := a.fetchOne(ctx, name, loc)

			mu.Lock()
			defer mu.Unlock()
			settled++
			if err != nil {
				set.Failures[name] = err.Error()
				if errors.Is(err, sources.ErrNotConfigured) {
					a.logger.Info().Str("source", string(name)).Msg("Source skipped: not configured")
				} else {
					a.logger.Warn().Str("source", string(name)).Err(err).
						Dur("duration", time.Since(start)).Msg("Source absent")
				}
			} else {
				set.Sources[name] = rec
				a.logger.Info().Str("source", string(name)).Int("fields", len(rec.Data)).
					Dur("duration", time.Since(start)).Msg("Source fetched")
			}
			if onSettled != nil {
				onSettled(settled, total)
			}
			return nil
		})
	}
	_ = g.Wait()

	a.logger.Info().Int("attempted", total).Int("present", set.Len()).Msg("Aggregation complete")
	return set
}

// fetchOne isolates one client call: missing clients, panics and empty
// results all become errors.
func (a *Aggregator) fetchOne(ctx context.Context, name types.SourceName, loc sources.Locator) (rec *types.SourceRecord, err error) {
	client, ok := a.clients[name]
	if !ok || client == nil {
		return nil, fmt.Errorf("no client for source %s", name)
	}
	defer func() {
		if r := recover(); r != nil {
			rec, err = nil, fmt.Errorf("source %s panicked: %v", name, r)
		}
	}()

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}
	rec, err = client.Fetch(ctx, loc)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("source %s returned no record", name)
	}
	if rec.Data == nil {
		rec.Data = map[string]any{}
	}
	rec.Source = name
	return rec, nil
}
