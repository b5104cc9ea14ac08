// Package sitebuilder turns a business record into a single-page site
// through one generation call.
package sitebuilder

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"

	"github.com/jonathan/site-generator/internal/inspiration"
	"github.com/jonathan/site-generator/internal/llm"
	"github.com/jonathan/site-generator/internal/prompts"
	"github.com/jonathan/site-generator/internal/types"
)

// Inspirer supplies optional design references. It must not block past its
// own deadline.
type Inspirer interface {
	Lookup(ctx context.Context, category string) []inspiration.Reference
}

// Builder generates the site artifact.
type Builder struct {
	client      llm.Client
	tier        llm.ModelTier
	inspiration Inspirer
	logger      arbor.ILogger
	now         func() time.Time
}

// NewBuilder creates a builder. insp may be nil.
func NewBuilder(client llm.Client, insp Inspirer, logger arbor.ILogger) *Builder {
	return &Builder{
		client:      client,
		tier:        llm.TierAdvanced,
		inspiration: insp,
		logger:      logger,
		now:         time.Now,
	}
}

type buildPromptData struct {
	StyleName   string
	Typography  string
	Palette     string
	Layout      string
	Inspiration []string
	Sections    []string
	Record      string
}

// Build generates the document for rec.
func (b *Builder) Build(ctx context.Context, rec *types.BusinessRecord) (*types.Artifact, error) {
	start := b.now()
	profile := SelectProfile(rec.Category)
	sections := Sections(rec)

	var refs []string
	if b.inspiration != nil {
		for _, r := range b.inspiration.Lookup(ctx, rec.Category) {
			refs = append(refs, r.URL)
		}
	}

	recordJSON, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return nil, &GenerationError{Message: "failed to encode record", Cause: err}
	}
	prompt, err := prompts.Render("sitebuilder.yaml", "build-site", buildPromptData{
		StyleName:   profile.Name,
		Typography:  profile.Typography,
		Palette:     profile.Palette.String(),
		Layout:      profile.Layout,
		Inspiration: refs,
		Sections:    sections,
		Record:      string(recordJSON),
	})
	if err != nil {
		return nil, &GenerationError{Message: "failed to build prompt", Cause: err}
	}

	text, err := b.client.GenerateContent(ctx, prompt, b.tier)
	if err != nil {
		return nil, &GenerationError{Message: "generation call failed", Cause: err}
	}
	html, err := llm.ExtractHTMLDocument(text)
	if err != nil {
		return nil, &BoundaryError{Cause: err}
	}

	artifact := &types.Artifact{
		HTML:         html,
		Title:        rec.BusinessName,
		Description:  rec.Description(),
		Sections:     sections,
		StyleProfile: profile.Name,
	}
	applyDocumentMetadata(artifact, html)
	artifact.GeneratedAt = b.now().UTC()
	artifact.DurationMS = b.now().Sub(start).Milliseconds()

	b.logger.Info().
		Str("business", rec.BusinessName).
		Str("style", profile.Name).
		Int("bytes", len(html)).
		Int("references", len(refs)).
		Strs("sections", artifact.Sections).
		Msg("Site generated")
	return artifact, nil
}

// applyDocumentMetadata reads title, description and section ids from the
// generated document, keeping the planned values where the document has none.
func applyDocumentMetadata(a *types.Artifact, html string) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return
	}
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		a.Title = title
	}
	if desc, ok := doc.Find(`meta[name="description"]`).Attr("content"); ok && strings.TrimSpace(desc) != "" {
		a.Description = strings.TrimSpace(desc)
	}

	var declared []string
	seen := map[string]bool{}
	doc.Find("nav[id], header[id], section[id], footer[id]").Each(func(_ int, s *goquery.Selection) {
		id, _ := s.Attr("id")
		id = strings.TrimSpace(id)
		if id != "" && !seen[id] {
			seen[id] = true
			declared = append(declared, id)
		}
	})
	if len(declared) > 0 {
		a.Sections = declared
	}
}
