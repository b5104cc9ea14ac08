// Package sources holds the clients that fetch raw business signals from
// external systems: the map listing service, the business website and the
// social profile scrapers.
package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/jonathan/site-generator/internal/types"
)

// ErrNotConfigured is returned by a client whose credentials are missing.
var ErrNotConfigured = errors.New("source not configured")

// DefaultTimeout bounds a single source request when no client is injected.
const DefaultTimeout = 60 * time.Second

// maxResponseBytes caps how much of an API response is decoded.
const maxResponseBytes = 10 << 20

// Locator identifies what to fetch from a source.
type Locator struct {
	URL      string
	Handle   string
	Name     string
	Location string
}

// Client fetches one source. A nil error with an empty Data map is a
// successful fetch that found nothing.
type Client interface {
	Name() types.SourceName
	Fetch(ctx context.Context, loc Locator) (*types.SourceRecord, error)
}

// SourceError wraps a failed fetch.
type SourceError struct {
	Source  types.SourceName
	Message string
	Cause   error
}

func (e *SourceError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Source, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Source, e.Message)
}

func (e *SourceError) Unwrap() error {
	return e.Cause
}

// Options holds what every source client shares.
type Options struct {
	HTTPClient *http.Client
	// RatePerSecond throttles outbound requests. Zero disables throttling.
	RatePerSecond float64
	Now           func() time.Time
}

type base struct {
	name    types.SourceName
	http    *http.Client
	limiter *rate.Limiter
	now     func() time.Time
}

func newBase(name types.SourceName, opts Options) base {
	b := base{name: name, http: opts.HTTPClient, now: opts.Now}
	if b.http == nil {
		b.http = &http.Client{Timeout: DefaultTimeout}
	}
	if b.now == nil {
		b.now = time.Now
	}
	if opts.RatePerSecond > 0 {
		burst := int(opts.RatePerSecond)
		if burst < 1 {
			burst = 1
		}
		b.limiter = rate.NewLimiter(rate.Limit(opts.RatePerSecond), burst)
	}
	return b
}

func (b base) Name() types.SourceName {
	return b.name
}

func (b base) fail(msg string, cause error) error {
	return &SourceError{Source: b.name, Message: msg, Cause: cause}
}

func (b base) record(data map[string]any) *types.SourceRecord {
	if data == nil {
		data = map[string]any{}
	}
	return &types.SourceRecord{Source: b.name, FetchedAt: b.now().UTC(), Data: data}
}

func (b base) wait(ctx context.Context) error {
	if b.limiter == nil {
		return nil
	}
	if err := b.limiter.Wait(ctx); err != nil {
		return b.fail("rate limit wait", err)
	}
	return nil
}

// doJSON sends req and decodes a JSON body into out. Non-2xx responses fail
// with the status code and a short body excerpt.
func (b base) doJSON(ctx context.Context, req *http.Request, out any) error {
	if err := b.wait(ctx); err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := b.http.Do(req)
	if err != nil {
		// url.Error embeds the request URL, which may carry an API key.
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return b.fail("request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return b.fail("read response", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return b.fail(fmt.Sprintf("HTTP status %d: %s", resp.StatusCode, excerpt(body)), nil)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return b.fail("decode response", err)
	}
	return nil
}

func newJSONRequest(ctx context.Context, method, url string, payload any) (*http.Request, error) {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func excerpt(body []byte) string {
	const n = 200
	s := string(bytes.TrimSpace(body))
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}
