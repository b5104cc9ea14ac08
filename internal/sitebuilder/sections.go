package sitebuilder

import "github.com/jonathan/site-generator/internal/types"

// Sections plans the page sections for rec in render order.
func Sections(rec *types.BusinessRecord) []string {
	sections := []string{"navigation", "hero"}
	if len(rec.UniqueSellingPoints) > 0 {
		sections = append(sections, "features")
	}
	sections = append(sections, "services", "about")
	if len(rec.Testimonials) > 0 {
		sections = append(sections, "testimonials")
	}
	return append(sections, "contact", "footer")
}
