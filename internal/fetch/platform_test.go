package fetch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectPlatform(t *testing.T) {
	tests := []struct {
		url      string
		expected Platform
	}{
		{"https://www.facebook.com/acmecafe", PlatformFacebook},
		{"https://m.facebook.com/acmecafe", PlatformFacebook},
		{"https://fb.com/acme", PlatformFacebook},
		{"https://instagram.com/acme.cafe", PlatformInstagram},
		{"https://www.google.com/maps/place/Acme+Cafe", PlatformGoogleMaps},
		{"https://maps.google.com/?cid=123", PlatformGoogleMaps},
		{"https://maps.app.goo.gl/abc", PlatformGoogleMaps},
		{"https://x.com/acme", PlatformTwitter},
		{"https://www.linkedin.com/company/acme", PlatformLinkedIn},
		{"https://www.yelp.com/biz/acme-cafe", PlatformYelp},
		{"https://www.tiktok.com/@acme", PlatformTikTok},
		{"https://www.google.com/search?q=acme", PlatformUnknown},
		{"https://notfacebook.com/acme", PlatformUnknown},
		{"https://acmecafe.com", PlatformUnknown},
		{"/relative/path", PlatformUnknown},
		{"::not a url", PlatformUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.expected, DetectPlatform(tt.url))
		})
	}
}
