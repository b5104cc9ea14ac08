package sources

import (
	"net/http"

	"github.com/jonathan/site-generator/internal/config"
	"github.com/jonathan/site-generator/internal/types"
)

// FromConfig builds one client per supported source. Clients without
// credentials are still returned; their fetches fail with ErrNotConfigured.
func FromConfig(cfg *config.Config) map[types.SourceName]Client {
	opts := Options{
		HTTPClient:    &http.Client{Timeout: cfg.ScrapeTimeout()},
		RatePerSecond: cfg.SourceRatePerSecond,
	}
	return map[types.SourceName]Client{
		types.SourceMapListing: NewPlacesClient(cfg.GooglePlacesAPIKey, "", opts),
		types.SourceWebsite: NewWebsiteClient(WebsiteConfig{
			FirecrawlAPIKey: cfg.FirecrawlAPIKey,
			UseBrowser:      cfg.UseBrowser,
			BrowserWait:     cfg.ScrapeTimeout(),
		}, opts),
		types.SourceFacebook:  NewFacebookClient(cfg.ApifyToken, "", opts),
		types.SourceInstagram: NewInstagramClient(cfg.ApifyToken, "", opts),
	}
}
