// Package fetch downloads business web pages and pulls out the content the
// extraction stage cares about.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"time"
)

const (
	DefaultTimeout      = 30 * time.Second
	DefaultUserAgent    = "Mozilla/5.0 (compatible; SiteGeneratorBot/1.0)"
	DefaultMaxBodyBytes = 5 << 20
	maxRedirects        = 5
)

// Document is a fetched HTML page.
type Document struct {
	RequestedURL string
	URL          string // after redirects
	HTML         string
	ContentType  string
	StatusCode   int
	Truncated    bool
}

// Error describes a failed fetch of URL.
type Error struct {
	URL     string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Message, e.Cause)
	}
	return fmt.Sprintf("fetch %s: %s", e.URL, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// ErrNotHTML is returned for responses that declare a non-HTML content type.
var ErrNotHTML = errors.New("response is not HTML")

// Fetcher issues GET requests for HTML pages.
type Fetcher struct {
	client    *http.Client
	userAgent string
	maxBody   int64
}

// NewFetcher wraps client. A nil client gets DefaultTimeout and follows at
// most five redirects.
func NewFetcher(client *http.Client) *Fetcher {
	if client == nil {
		client = &http.Client{
			Timeout: DefaultTimeout,
			CheckRedirect: func(_ *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("stopped after %d redirects", maxRedirects)
				}
				return nil
			},
		}
	}
	return &Fetcher{client: client, userAgent: DefaultUserAgent, maxBody: DefaultMaxBodyBytes}
}

// WithMaxBody returns a copy of f that reads at most n bytes of each body.
func (f *Fetcher) WithMaxBody(n int64) *Fetcher {
	c := *f
	c.maxBody = n
	return &c
}

// Get fetches rawURL. Non-2xx responses return the Document alongside the error.
func (f *Fetcher) Get(ctx context.Context, rawURL string) (*Document, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, &Error{URL: rawURL, Message: "invalid URL", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, &Error{URL: rawURL, Message: "build request", Cause: err}
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &Error{URL: rawURL, Message: "request failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	contentType := resp.Header.Get("Content-Type")
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil &&
		mediaType != "text/html" && mediaType != "application/xhtml+xml" && mediaType != "text/plain" {
		return nil, &Error{URL: rawURL, Message: mediaType, Cause: ErrNotHTML}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody+1))
	if err != nil {
		return nil, &Error{URL: rawURL, Message: "read body", Cause: err}
	}
	doc := &Document{
		RequestedURL: rawURL,
		URL:          resp.Request.URL.String(),
		ContentType:  contentType,
		StatusCode:   resp.StatusCode,
	}
	if int64(len(body)) > f.maxBody {
		body = body[:f.maxBody]
		doc.Truncated = true
	}
	doc.HTML = string(body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return doc, &Error{URL: rawURL, Message: fmt.Sprintf("HTTP status %d", resp.StatusCode)}
	}
	return doc, nil
}
