package sources

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/site-generator/internal/types"
)

const acmeHomePage = `<html><head><title>Acme Cafe</title>
<meta name="description" content="Coffee in Portland"></head>
<body><main><h1>Acme Cafe</h1><p>Fresh coffee daily. Call (503) 555-0142.</p>
<a href="https://facebook.com/acmecafe">fb</a></main></body></html>`

func TestWebsiteClient_DirectFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(acmeHomePage))
	}))
	defer srv.Close()

	client := NewWebsiteClient(WebsiteConfig{}, Options{})
	rec, err := client.Fetch(context.Background(), Locator{URL: srv.URL})
	require.NoError(t, err)

	assert.Equal(t, types.SourceWebsite, rec.Source)
	assert.Equal(t, "Acme Cafe", rec.Data["title"])
	assert.Equal(t, "Coffee in Portland", rec.Data["meta_description"])
	assert.Equal(t, []string{"(503) 555-0142"}, rec.Data["phones"])
	assert.Equal(t, map[string]string{"facebook": "https://facebook.com/acmecafe"}, rec.Data["social_links"])
	assert.Equal(t, false, rec.Data["rendered"])
	assert.Contains(t, rec.Data["markdown"], "Fresh coffee daily")
}

func TestWebsiteClient_BrowserFallbackForThinPages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body><div id="root"></div></body></html>`))
	}))
	defer srv.Close()

	rendered := "<html><body><main><p>" + strings.Repeat("Rendered menu item. ", 40) + "</p></main></body></html>"
	var renderedURL string
	client := NewWebsiteClient(WebsiteConfig{
		UseBrowser: true,
		RenderBrowser: func(ctx context.Context, url string, timeout time.Duration) (string, error) {
			renderedURL = url
			return rendered, nil
		},
	}, Options{})

	rec, err := client.Fetch(context.Background(), Locator{URL: srv.URL})
	require.NoError(t, err)
	assert.Equal(t, true, rec.Data["rendered"])
	assert.Contains(t, rec.Data["markdown"], "Rendered menu item.")
	assert.True(t, strings.HasPrefix(renderedURL, srv.URL))
}

func TestWebsiteClient_BrowserFailureKeepsDirectResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><head><title>Thin</title></head><body>hi</body></html>`))
	}))
	defer srv.Close()

	client := NewWebsiteClient(WebsiteConfig{
		UseBrowser: true,
		RenderBrowser: func(context.Context, string, time.Duration) (string, error) {
			return "", errors.New("no chrome")
		},
	}, Options{})

	rec, err := client.Fetch(context.Background(), Locator{URL: srv.URL})
	require.NoError(t, err)
	assert.Equal(t, "Thin", rec.Data["title"])
	assert.Equal(t, false, rec.Data["rendered"])
}

func TestWebsiteClient_DirectFetchHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewWebsiteClient(WebsiteConfig{}, Options{})
	_, err := client.Fetch(context.Background(), Locator{URL: srv.URL})
	require.Error(t, err)
	var srcErr *SourceError
	require.True(t, errors.As(err, &srcErr))
	assert.Equal(t, types.SourceWebsite, srcErr.Source)
}

func TestWebsiteClient_Firecrawl(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/scrape", r.URL.Path)
		assert.Equal(t, "Bearer fc-key", r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "https://acmecafe.com", body["url"])
		assert.Equal(t, []any{"markdown", "html"}, body["formats"])
		assert.Equal(t, true, body["onlyMainContent"])

		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data": map[string]any{
				"markdown": "# Acme Cafe\nFresh coffee",
				"html":     `<p>Email <a href="mailto:hi@acmecafe.com">us</a></p>`,
				"metadata": map[string]any{"title": "Acme Cafe"},
			},
		})
	}))
	defer srv.Close()

	client := NewWebsiteClient(WebsiteConfig{FirecrawlAPIKey: "fc-key", FirecrawlBaseURL: srv.URL}, Options{})
	rec, err := client.Fetch(context.Background(), Locator{URL: "https://acmecafe.com"})
	require.NoError(t, err)
	assert.Equal(t, "# Acme Cafe\nFresh coffee", rec.Data["markdown"])
	assert.Equal(t, map[string]any{"title": "Acme Cafe"}, rec.Data["metadata"])
	assert.Equal(t, []string{"hi@acmecafe.com"}, rec.Data["emails"])
	assert.NotContains(t, rec.Data, "html")
}

func TestWebsiteClient_FirecrawlUnsuccessful(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "error": "blocked by robots"})
	}))
	defer srv.Close()

	client := NewWebsiteClient(WebsiteConfig{FirecrawlAPIKey: "fc-key", FirecrawlBaseURL: srv.URL}, Options{})
	_, err := client.Fetch(context.Background(), Locator{URL: "https://acmecafe.com"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "blocked by robots")
}

func TestWebsiteClient_MissingURL(t *testing.T) {
	client := NewWebsiteClient(WebsiteConfig{}, Options{})
	_, err := client.Fetch(context.Background(), Locator{})
	assert.Error(t, err)
}
