package sitebuilder

import (
	"fmt"
	"regexp"
	"strings"
)

// Palette is a three-colour scheme.
type Palette struct {
	Primary   string `json:"primary"`
	Secondary string `json:"secondary"`
	Accent    string `json:"accent"`
}

func (p Palette) String() string {
	return fmt.Sprintf("primary %s, secondary %s, accent %s", p.Primary, p.Secondary, p.Accent)
}

// StyleProfile holds the design directives for one kind of business.
type StyleProfile struct {
	Name       string
	Keywords   []string
	Typography string
	Palette    Palette
	Layout     string
}

// Profiles are matched in order; the first whose keyword appears in the
// category wins.
var Profiles = []StyleProfile{
	{
		Name:       "restaurant",
		Keywords:   []string{"restaurant", "cafe", "café", "coffee", "coffee shop", "bakery", "bar", "bistro", "diner", "pizza", "pizzeria", "food", "food truck", "catering", "brewery", "pub", "grill", "eatery", "deli"},
		Typography: "Playfair Display for headings, Lato for body text",
		Palette:    Palette{Primary: "#dc2626", Secondary: "#991b1b", Accent: "#fbbf24"},
		Layout:     "full-bleed hero with warm imagery, menu-style service cards, prominent hours and address",
	},
	{
		Name:       "retail",
		Keywords:   []string{"retail", "shop", "store", "boutique", "market", "florist", "gift", "clothing", "jewelry", "jeweler", "bookstore", "furniture"},
		Typography: "Poppins for headings, Inter for body text",
		Palette:    Palette{Primary: "#059669", Secondary: "#047857", Accent: "#fbbf24"},
		Layout:     "product-grid services, bold call-to-action banner, visit-us block with map address",
	},
	{
		Name:       "healthcare",
		Keywords:   []string{"health", "healthcare", "medical", "clinic", "dental", "dentist", "doctor", "physician", "pharmacy", "chiropractor", "chiropractic", "therapy", "therapist", "physiotherapy", "veterinary", "vet", "optometrist", "hospital"},
		Typography: "Source Sans Pro throughout, generous line height",
		Palette:    Palette{Primary: "#0d9488", Secondary: "#065f46", Accent: "#6ee7b7"},
		Layout:     "calm split hero, trust signals near the top, clear appointment call-to-action",
	},
	{
		Name:       "professional",
		Keywords:   []string{"law", "lawyer", "attorney", "legal", "accounting", "accountant", "cpa", "consulting", "consultant", "insurance", "financial", "finance", "real estate", "realtor", "tax", "advisor"},
		Typography: "Merriweather for headings, Open Sans for body text",
		Palette:    Palette{Primary: "#1e3a5a", Secondary: "#0f172a", Accent: "#d4af37"},
		Layout:     "restrained hero, practice-area cards, credentials and testimonials before contact",
	},
	{
		Name:       "creative",
		Keywords:   []string{"design", "designer", "photography", "photographer", "art", "artist", "gallery", "music", "video", "creative", "marketing", "tattoo", "agency"},
		Typography: "Space Grotesk for headings, DM Sans for body text",
		Palette:    Palette{Primary: "#7c3aed", Secondary: "#5b21b6", Accent: "#f472b6"},
		Layout:     "asymmetric hero, portfolio-style service tiles, bold typography",
	},
	{
		Name:       "personal-care",
		Keywords:   []string{"salon", "hair", "barber", "barbershop", "spa", "beauty", "nail", "nails", "massage", "skincare", "cosmetics", "lash", "wellness"},
		Typography: "Cormorant Garamond for headings, Nunito for body text",
		Palette:    Palette{Primary: "#db2777", Secondary: "#9d174d", Accent: "#fbcfe8"},
		Layout:     "soft hero with rounded shapes, price-list services, booking call-to-action",
	},
	{
		Name:       "fitness",
		Keywords:   []string{"gym", "fitness", "yoga", "pilates", "crossfit", "personal trainer", "trainer", "martial arts", "boxing", "dance", "climbing"},
		Typography: "Oswald for headings, Roboto for body text",
		Palette:    Palette{Primary: "#ea580c", Secondary: "#9a3412", Accent: "#facc15"},
		Layout:     "high-energy hero, class or program cards, membership call-to-action",
	},
}

// General is the fallback profile.
var General = StyleProfile{
	Name:       "general",
	Typography: "Inter throughout",
	Palette:    Palette{Primary: "#3b82f6", Secondary: "#1d4ed8", Accent: "#f59e0b"},
	Layout:     "clean hero, service cards, about and contact sections",
}

var wordSplit = regexp.MustCompile(`[^\p{L}\p{N}]+`)

// SelectProfile picks the first profile with a keyword that appears in
// category as a whole word or phrase.
func SelectProfile(category string) StyleProfile {
	words := wordSplit.Split(strings.ToLower(category), -1)
	padded := " " + strings.Join(words, " ") + " "
	for _, p := range Profiles {
		for _, kw := range p.Keywords {
			if strings.Contains(padded, " "+kw+" ") {
				return p
			}
		}
	}
	return General
}
