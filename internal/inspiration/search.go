// Package inspiration looks up reference sites for a business category. It
// is optional: every failure degrades to "no references".
package inspiration

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/api/customsearch/v1"
	"google.golang.org/api/option"
)

// DefaultResults is how many references one lookup asks for.
const DefaultResults = 5

// Reference is one design reference site.
type Reference struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet,omitempty"`
}

// Provider finds design references for a category.
type Provider interface {
	References(ctx context.Context, category string) ([]Reference, error)
}

// SearchProvider queries a programmable search engine.
type SearchProvider struct {
	svc *customsearch.Service
	cx  string
	num int64
}

// NewSearchProvider creates a provider for the engine cx. Extra client
// options are appended after the API key.
func NewSearchProvider(ctx context.Context, apiKey, cx string, opts ...option.ClientOption) (*SearchProvider, error) {
	if apiKey == "" || cx == "" {
		return nil, fmt.Errorf("search API key and engine id are required")
	}
	svc, err := customsearch.NewService(ctx, append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create customsearch service: %w", err)
	}
	return &SearchProvider{svc: svc, cx: cx, num: DefaultResults}, nil
}

// Query returns the search text used for a category.
func Query(category string) string {
	category = strings.TrimSpace(strings.ToLower(category))
	if category == "" {
		category = "small business"
	}
	return fmt.Sprintf("best %s website design", category)
}

// References returns up to DefaultResults unique result links.
func (p *SearchProvider) References(ctx context.Context, category string) ([]Reference, error) {
	resp, err := p.svc.Cse.List().Cx(p.cx).Q(Query(category)).Num(p.num).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	seen := make(map[string]bool)
	refs := make([]Reference, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.Link == "" || seen[item.Link] {
			continue
		}
		seen[item.Link] = true
		refs = append(refs, Reference{Title: item.Title, URL: item.Link, Snippet: item.Snippet})
	}
	return refs, nil
}
