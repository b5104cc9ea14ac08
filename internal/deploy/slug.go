package deploy

import (
	"regexp"
	"strings"
)

// MaxSlugLength is the hosting platform's project name limit.
const MaxSlugLength = 50

// FallbackSlug is used when a name has no usable characters.
const FallbackSlug = "site"

var slugInvalid = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify turns a project name into a platform-safe slug: lowercase, runs of
// other characters collapsed to "-", trimmed, cut to MaxSlugLength.
func Slugify(name string) string {
	slug := slugInvalid.ReplaceAllString(strings.ToLower(name), "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > MaxSlugLength {
		slug = strings.Trim(slug[:MaxSlugLength], "-")
	}
	if slug == "" {
		return FallbackSlug
	}
	return slug
}
