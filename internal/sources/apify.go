package sources

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/jonathan/site-generator/internal/types"
)

// DefaultApifyBaseURL is the actor API root.
const DefaultApifyBaseURL = "https://api.apify.com/v2"

// Actor ids for the social scrapers.
const (
	FacebookActor  = "apify~facebook-pages-scraper"
	InstagramActor = "apify~instagram-profile-scraper"
)

// ApifyClient runs a social scraping actor synchronously and returns the
// first dataset item.
type ApifyClient struct {
	base
	token   string
	baseURL string
	actor   string
	input   func(Locator) (map[string]any, error)
}

// NewFacebookClient scrapes a Facebook page from its URL.
func NewFacebookClient(token, baseURL string, opts Options) *ApifyClient {
	return newApifyClient(types.SourceFacebook, FacebookActor, token, baseURL, opts, func(loc Locator) (map[string]any, error) {
		if loc.URL == "" {
			return nil, &SourceError{Source: types.SourceFacebook, Message: "no page URL"}
		}
		return map[string]any{
			"startUrls":  []map[string]string{{"url": loc.URL}},
			"maxPosts":   10,
			"maxReviews": 10,
		}, nil
	})
}

// NewInstagramClient scrapes an Instagram profile from its username.
func NewInstagramClient(token, baseURL string, opts Options) *ApifyClient {
	return newApifyClient(types.SourceInstagram, InstagramActor, token, baseURL, opts, func(loc Locator) (map[string]any, error) {
		username := strings.TrimPrefix(strings.TrimSpace(loc.Handle), "@")
		if username == "" {
			return nil, &SourceError{Source: types.SourceInstagram, Message: "invalid instagram handle"}
		}
		return map[string]any{"usernames": []string{username}}, nil
	})
}

func newApifyClient(name types.SourceName, actor, token, baseURL string, opts Options, input func(Locator) (map[string]any, error)) *ApifyClient {
	if baseURL == "" {
		baseURL = DefaultApifyBaseURL
	}
	return &ApifyClient{
		base:    newBase(name, opts),
		token:   token,
		baseURL: strings.TrimRight(baseURL, "/"),
		actor:   actor,
		input:   input,
	}
}

// Fetch runs the actor for loc.
func (c *ApifyClient) Fetch(ctx context.Context, loc Locator) (*types.SourceRecord, error) {
	if c.token == "" {
		return nil, c.fail("apify token", ErrNotConfigured)
	}
	payload, err := c.input(loc)
	if err != nil {
		return nil, err
	}

	endpoint := c.baseURL + "/acts/" + c.actor + "/run-sync-get-dataset-items?token=" + url.QueryEscape(c.token)
	req, err := newJSONRequest(ctx, http.MethodPost, endpoint, payload)
	if err != nil {
		return nil, c.fail("build actor request", err)
	}

	var items []map[string]any
	if err := c.doJSON(ctx, req, &items); err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, c.fail("no data returned", nil)
	}
	return c.record(items[0]), nil
}
