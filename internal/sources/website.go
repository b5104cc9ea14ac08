package sources

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/jonathan/site-generator/internal/fetch"
	"github.com/jonathan/site-generator/internal/types"
)

// DefaultFirecrawlBaseURL is the hosted scraping API root.
const DefaultFirecrawlBaseURL = "https://api.firecrawl.dev"

// WebsiteConfig configures the website source.
type WebsiteConfig struct {
	FirecrawlAPIKey  string
	FirecrawlBaseURL string
	// UseBrowser enables headless rendering when a direct fetch yields
	// too little text.
	UseBrowser    bool
	BrowserWait   time.Duration
	RenderBrowser func(ctx context.Context, url string, timeout time.Duration) (string, error)
}

// WebsiteClient fetches a business's own website. With a Firecrawl key it
// delegates to the hosted scraper; otherwise it fetches and parses directly.
type WebsiteClient struct {
	base
	cfg WebsiteConfig
}

// NewWebsiteClient creates a website source client.
func NewWebsiteClient(cfg WebsiteConfig, opts Options) *WebsiteClient {
	if cfg.FirecrawlBaseURL == "" {
		cfg.FirecrawlBaseURL = DefaultFirecrawlBaseURL
	}
	cfg.FirecrawlBaseURL = strings.TrimRight(cfg.FirecrawlBaseURL, "/")
	if cfg.BrowserWait <= 0 {
		cfg.BrowserWait = 30 * time.Second
	}
	if cfg.RenderBrowser == nil {
		cfg.RenderBrowser = fetch.Render
	}
	return &WebsiteClient{base: newBase(types.SourceWebsite, opts), cfg: cfg}
}

// Fetch scrapes loc.URL.
func (c *WebsiteClient) Fetch(ctx context.Context, loc Locator) (*types.SourceRecord, error) {
	if loc.URL == "" {
		return nil, c.fail("no website URL", nil)
	}
	if c.cfg.FirecrawlAPIKey != "" {
		return c.fetchFirecrawl(ctx, loc.URL)
	}
	return c.fetchDirect(ctx, loc.URL)
}

type firecrawlResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Data    struct {
		Markdown string         `json:"markdown"`
		HTML     string         `json:"html"`
		Metadata map[string]any `json:"metadata"`
	} `json:"data"`
}

func (c *WebsiteClient) fetchFirecrawl(ctx context.Context, pageURL string) (*types.SourceRecord, error) {
	payload := map[string]any{
		"url":             pageURL,
		"formats":         []string{"markdown", "html"},
		"onlyMainContent": true,
	}
	req, err := newJSONRequest(ctx, http.MethodPost, c.cfg.FirecrawlBaseURL+"/v1/scrape", payload)
	if err != nil {
		return nil, c.fail("build scrape request", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.FirecrawlAPIKey)

	var resp firecrawlResponse
	if err := c.doJSON(ctx, req, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		msg := resp.Error
		if msg == "" {
			msg = "unknown scrape error"
		}
		return nil, c.fail(msg, nil)
	}

	data := map[string]any{
		"url":      pageURL,
		"markdown": resp.Data.Markdown,
	}
	if len(resp.Data.Metadata) > 0 {
		data["metadata"] = resp.Data.Metadata
	}
	if resp.Data.HTML != "" {
		if page, err := fetch.ExtractPage(resp.Data.HTML, pageURL); err == nil {
			addContactFields(data, page)
		}
	}
	return c.record(data), nil
}

func (c *WebsiteClient) fetchDirect(ctx context.Context, pageURL string) (*types.SourceRecord, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	result, err := fetch.NewFetcher(c.http).Get(ctx, pageURL)
	if err != nil {
		return nil, c.fail("fetch website", err)
	}

	page, err := fetch.ExtractPage(result.HTML, result.URL)
	if err != nil {
		return nil, c.fail("parse website", err)
	}

	rendered := false
	if c.cfg.UseBrowser && fetch.NeedsRendering(page.Text) {
		html, err := c.cfg.RenderBrowser(ctx, result.URL, c.cfg.BrowserWait)
		if err == nil {
			if p, perr := fetch.ExtractPage(html, result.URL); perr == nil && len(p.Text) > len(page.Text) {
				page = p
				rendered = true
			}
		}
	}

	data := map[string]any{
		"url":       result.URL,
		"title":     page.Title,
		"markdown":  page.Markdown,
		"rendered":  rendered,
		"text_size": len(page.Text),
	}
	if page.MetaDescription != "" {
		data["meta_description"] = page.MetaDescription
	}
	if len(page.Headings) > 0 {
		data["headings"] = page.Headings
	}
	addContactFields(data, page)
	return c.record(data), nil
}

func addContactFields(data map[string]any, page *fetch.Page) {
	if len(page.Emails) > 0 {
		data["emails"] = page.Emails
	}
	if len(page.Phones) > 0 {
		data["phones"] = page.Phones
	}
	if len(page.SocialLinks) > 0 {
		links := make(map[string]string, len(page.SocialLinks))
		for platform, link := range page.SocialLinks {
			links[string(platform)] = link
		}
		data["social_links"] = links
	}
}
