package deploy

import (
	"crypto/sha1" //nolint:gosec // the platform keys inline files by SHA-1
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/jonathan/site-generator/internal/types"
)

// File is one inline file of a deployment.
type File struct {
	File     string `json:"file"`
	SHA      string `json:"sha"`
	Size     int    `json:"size"`
	Encoding string `json:"encoding"`
	Data     string `json:"data"`
}

// vercelConfig serves index.html for every path and sets two security headers.
const vercelConfig = `{"version":2,"routes":[{"handle":"filesystem"},{"src":"/(.*)","dest":"/index.html"}],"headers":[{"source":"/(.*)","headers":[{"key":"X-Content-Type-Options","value":"nosniff"},{"key":"X-Frame-Options","value":"DENY"}]}]}`

const (
	placeholderDescription = "Information coming soon."
	placeholderContact     = "Not provided"
	placeholderHours       = "Contact us for hours"
)

// businessSummary is the machine-readable business.json.
type businessSummary struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Category    string            `json:"category,omitempty"`
	Offerings   []summaryOffering `json:"offerings"`
	Contact     summaryContact    `json:"contact"`
	Hours       map[string]string `json:"hours"`
}

type summaryOffering struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Price       string `json:"price,omitempty"`
}

type summaryContact struct {
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	Address string `json:"address"`
	Website string `json:"website,omitempty"`
}

// PublicURL is the production address of a project slug.
func PublicURL(slug string) string {
	return "https://" + slug + ".vercel.app"
}

// BuildBundle returns the five deployment files for html. rec may be nil.
func BuildBundle(html, slug string, rec *types.BusinessRecord) ([]File, error) {
	summary, err := json.MarshalIndent(newBusinessSummary(slug, rec), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode business.json: %w", err)
	}
	return []File{
		newFile("index.html", []byte(html)),
		newFile("vercel.json", []byte(vercelConfig)),
		newFile("robots.txt", []byte(robotsTxt(slug))),
		newFile("sitemap.xml", []byte(sitemapXML(slug))),
		newFile("business.json", summary),
	}, nil
}

func newFile(name string, data []byte) File {
	sum := sha1.Sum(data) //nolint:gosec
	return File{
		File:     name,
		SHA:      hex.EncodeToString(sum[:]),
		Size:     len(data),
		Encoding: "base64",
		Data:     base64.StdEncoding.EncodeToString(data),
	}
}

func robotsTxt(slug string) string {
	return "User-agent: *\nAllow: /\nSitemap: " + PublicURL(slug) + "/sitemap.xml"
}

func sitemapXML(slug string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url>
    <loc>` + PublicURL(slug) + `/</loc>
    <changefreq>weekly</changefreq>
    <priority>1.0</priority>
  </url>
</urlset>`
}

func newBusinessSummary(slug string, rec *types.BusinessRecord) businessSummary {
	if rec == nil {
		rec = &types.BusinessRecord{}
	}
	s := businessSummary{
		Name:        orDefault(rec.BusinessName, slug),
		Description: orDefault(rec.Description(), placeholderDescription),
		Category:    rec.Category,
		Offerings:   make([]summaryOffering, 0, len(rec.Services)),
		Contact: summaryContact{
			Phone:   orDefault(rec.Contact.Phone, placeholderContact),
			Email:   orDefault(rec.Contact.Email, placeholderContact),
			Address: orDefault(rec.Contact.Address, placeholderContact),
			Website: rec.Contact.Website,
		},
		Hours: rec.Hours,
	}
	for _, o := range rec.Services {
		s.Offerings = append(s.Offerings, summaryOffering{Name: o.Name, Description: o.Description, Price: o.Price})
	}
	if len(s.Hours) == 0 {
		s.Hours = map[string]string{"note": placeholderHours}
	}
	return s
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
