// Package extraction turns raw source signals into a validated business
// record and optionally fills marketing gaps in it.
package extraction

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/ternarybob/arbor"

	"github.com/jonathan/site-generator/internal/llm"
	"github.com/jonathan/site-generator/internal/prompts"
	"github.com/jonathan/site-generator/internal/schemas"
	"github.com/jonathan/site-generator/internal/types"
	rootschemas "github.com/jonathan/site-generator/schemas"
)

// maxSignalChars caps each source's serialized data in the prompt.
const maxSignalChars = 8000

var nonDigit = regexp.MustCompile(`\D`)

// Extractor produces a BusinessRecord from a raw signal set.
type Extractor struct {
	client llm.Client
	tier   llm.ModelTier
	logger arbor.ILogger
}

// NewExtractor creates an extractor that uses the standard model tier.
func NewExtractor(client llm.Client, logger arbor.ILogger) *Extractor {
	return &Extractor{client: client, tier: llm.TierStandard, logger: logger}
}

// Extract runs one generation call and parses the first JSON object in the
// response. Missing required fields or a response without JSON fail with an
// ExtractionError.
func (e *Extractor) Extract(ctx context.Context, req types.GenerateRequest, signals *types.RawSignalSet) (*types.BusinessRecord, error) {
	prompt, err := BuildExtractionPrompt(req, signals)
	if err != nil {
		return nil, &ExtractionError{Message: "failed to build prompt", Cause: err}
	}

	text, err := e.client.GenerateJSON(ctx, prompt, e.tier)
	if err != nil {
		return nil, &ExtractionError{Message: "generation call failed", Cause: err}
	}

	var decoded map[string]any
	if err := llm.DecodeJSONObject(text, &decoded); err != nil {
		return nil, &ExtractionError{Message: "no JSON object in response", Cause: err}
	}

	rec, err := recordFromMap(Normalize(decoded))
	if err != nil {
		return nil, err
	}

	if len(rec.DataQuality.SourcesUsed) == 0 {
		for _, name := range signals.Present() {
			rec.DataQuality.SourcesUsed = append(rec.DataQuality.SourcesUsed, string(name))
		}
	}
	if dropped := dropUngroundedContact(rec, req, signals); len(dropped) > 0 {
		e.logger.Warn().Strs("fields", dropped).Msg("Dropped contact facts not present in source data")
	}

	e.logger.Info().
		Str("business", rec.BusinessName).
		Str("category", rec.Category).
		Int("score", rec.DataQuality.Score).
		Int("services", len(rec.Services)).
		Msg("Business record extracted")
	return rec, nil
}

// recordFromMap validates a normalized map against the record schema and
// decodes it.
func recordFromMap(m map[string]any) (*types.BusinessRecord, error) {
	doc, err := json.Marshal(m)
	if err != nil {
		return nil, &ExtractionError{Message: "failed to encode normalized record", Cause: err}
	}
	if err := schemas.Validate(rootschemas.BusinessRecord, doc); err != nil {
		return nil, &ExtractionError{Message: "response does not match the record contract", Cause: err}
	}
	var rec types.BusinessRecord
	if err := json.Unmarshal(doc, &rec); err != nil {
		return nil, &ExtractionError{Message: "failed to decode record", Cause: err}
	}
	return &rec, nil
}

type extractionPromptData struct {
	BusinessName   string
	Location       string
	AdditionalInfo string
	Sources        string
	Signals        string
}

// BuildExtractionPrompt renders the extraction prompt. With no signals the
// prompt asks for a name-only record.
func BuildExtractionPrompt(req types.GenerateRequest, signals *types.RawSignalSet) (string, error) {
	present := signals.Present()
	names := make([]string, len(present))
	var blocks strings.Builder
	for i, name := range present {
		names[i] = string(name)
		rec, _ := signals.Get(name)
		raw, err := json.MarshalIndent(rec.Data, "", "  ")
		if err != nil {
			return "", fmt.Errorf("failed to encode %s signals: %w", name, err)
		}
		text := string(raw)
		if len(text) > maxSignalChars {
			cut := maxSignalChars
			for cut > 0 && !utf8.RuneStart(text[cut]) {
				cut--
			}
			text = text[:cut] + "\n... (truncated)"
		}
		fmt.Fprintf(&blocks, "=== %s ===\n%s\n\n", strings.ToUpper(string(name)), text)
	}
	signalText := strings.TrimSpace(blocks.String())
	if signalText == "" {
		signalText = "(none)"
	}

	return prompts.Render("extraction.yaml", "extract-business-record", extractionPromptData{
		BusinessName:   req.BusinessName,
		Location:       req.Location,
		AdditionalInfo: req.AdditionalInfo,
		Sources:        strings.Join(names, ", "),
		Signals:        signalText,
	})
}

// dropUngroundedContact clears contact facts that appear in neither the raw
// signals nor the request. Phones match on their last ten digits, emails and
// website hosts on substrings, and addresses when at least half of their
// words occur in the source text. It returns the cleared field names.
func dropUngroundedContact(rec *types.BusinessRecord, req types.GenerateRequest, signals *types.RawSignalSet) []string {
	var haystack strings.Builder
	haystack.WriteString(req.AdditionalInfo)
	haystack.WriteString(" ")
	haystack.WriteString(req.Location)
	for _, name := range signals.Present() {
		src, _ := signals.Get(name)
		if raw, err := json.Marshal(src.Data); err == nil {
			haystack.Write(raw)
		}
	}
	text := strings.ToLower(haystack.String())
	digits := nonDigit.ReplaceAllString(text, "")

	var dropped []string
	if phone := nonDigit.ReplaceAllString(rec.Contact.Phone, ""); phone != "" {
		// Compare the last ten digits so a country prefix does not matter.
		if len(phone) > 10 {
			phone = phone[len(phone)-10:]
		}
		if !strings.Contains(digits, phone) {
			rec.Contact.Phone = ""
			dropped = append(dropped, "contact.phone")
		}
	}
	if email := strings.ToLower(strings.TrimSpace(rec.Contact.Email)); email != "" && !strings.Contains(text, email) {
		rec.Contact.Email = ""
		dropped = append(dropped, "contact.email")
	}
	if addr := strings.TrimSpace(rec.Contact.Address); addr != "" && !addressGrounded(addr, text) {
		rec.Contact.Address = ""
		dropped = append(dropped, "contact.address")
	}
	if site := strings.TrimSpace(rec.Contact.Website); site != "" {
		host := siteHost(site)
		if host == "" || (host != siteHost(req.WebsiteURL) && !strings.Contains(text, host)) {
			rec.Contact.Website = ""
			dropped = append(dropped, "contact.website")
		}
	}
	for _, f := range dropped {
		if !contains(rec.DataQuality.MissingCritical, f) {
			rec.DataQuality.MissingCritical = append(rec.DataQuality.MissingCritical, f)
		}
	}
	return dropped
}

var addressToken = regexp.MustCompile(`[\p{L}\p{N}]+`)

// addressGrounded reports whether at least half of the address words occur
// among the words of text.
func addressGrounded(addr, text string) bool {
	words := addressToken.FindAllString(strings.ToLower(addr), -1)
	if len(words) == 0 {
		return false
	}
	known := make(map[string]bool)
	for _, w := range addressToken.FindAllString(text, -1) {
		known[w] = true
	}
	hits := 0
	for _, w := range words {
		if known[w] {
			hits++
		}
	}
	return hits*2 >= len(words)
}

// siteHost returns the lowercased host of a URL or bare domain without a
// leading "www.".
func siteHost(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
