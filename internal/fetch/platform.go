package fetch

import (
	"net/url"
	"strings"
)

// Platform represents a known third-party profile host.
type Platform string

// Known platforms.
const (
	PlatformFacebook   Platform = "facebook"
	PlatformInstagram  Platform = "instagram"
	PlatformGoogleMaps Platform = "google_maps"
	PlatformTwitter    Platform = "twitter"
	PlatformLinkedIn   Platform = "linkedin"
	PlatformTikTok     Platform = "tiktok"
	PlatformYelp       Platform = "yelp"
	PlatformUnknown    Platform = "unknown"
)

var platformHosts = []struct {
	platform Platform
	hosts    []string
}{
	{PlatformFacebook, []string{"facebook.com", "fb.com", "fb.me"}},
	{PlatformInstagram, []string{"instagram.com", "instagr.am"}},
	{PlatformGoogleMaps, []string{"maps.google.com", "maps.app.goo.gl"}},
	{PlatformTwitter, []string{"twitter.com", "x.com"}},
	{PlatformLinkedIn, []string{"linkedin.com"}},
	{PlatformTikTok, []string{"tiktok.com"}},
	{PlatformYelp, []string{"yelp.com"}},
}

// DetectPlatform identifies the profile host of a URL.
func DetectPlatform(urlStr string) Platform {
	parsed, err := url.Parse(urlStr)
	if err != nil || parsed.Host == "" {
		return PlatformUnknown
	}

	host := strings.TrimPrefix(strings.ToLower(parsed.Hostname()), "www.")
	if (host == "google.com" || strings.HasPrefix(host, "google.")) && strings.HasPrefix(parsed.Path, "/maps") {
		return PlatformGoogleMaps
	}
	for _, entry := range platformHosts {
		for _, h := range entry.hosts {
			if host == h || strings.HasSuffix(host, "."+h) {
				return entry.platform
			}
		}
	}
	return PlatformUnknown
}
