package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet_ValidPrompt(t *testing.T) {
	prompt, err := Get("extraction.yaml", "extract-business-record")
	require.NoError(t, err)
	assert.Contains(t, prompt, "structured business record")
}

func TestGet_InvalidFile(t *testing.T) {
	_, err := Get("nonexistent.yaml", "some-key")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read prompt file")
}

func TestGet_InvalidKey(t *testing.T) {
	_, err := Get("extraction.yaml", "nonexistent-key")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestEveryPromptParses(t *testing.T) {
	entries, err := files.ReadDir(".")
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	for _, e := range entries {
		keys, err := List(e.Name())
		require.NoError(t, err, e.Name())
		assert.NotEmpty(t, keys, e.Name())
	}
}

func TestList(t *testing.T) {
	keys, err := List("extraction.yaml")
	require.NoError(t, err)
	assert.Equal(t, []string{"extract-business-record", "gap-fill"}, keys)

	keys, err = List("sitebuilder.yaml")
	require.NoError(t, err)
	assert.Equal(t, []string{"build-site"}, keys)
}

func TestRender_Extraction(t *testing.T) {
	out, err := Render("extraction.yaml", "extract-business-record", map[string]any{
		"BusinessName":   "Acme Cafe",
		"Location":       "",
		"AdditionalInfo": "Family owned since 1998",
		"Sources":        "",
		"Signals":        "{}",
	})
	require.NoError(t, err)
	assert.Contains(t, out, "Business name: Acme Cafe")
	assert.Contains(t, out, "Location: unknown")
	assert.Contains(t, out, "Family owned since 1998")
	assert.Contains(t, out, "none (work from the name and location only)")
}

func TestRender_SiteBuilder(t *testing.T) {
	out, err := Render("sitebuilder.yaml", "build-site", map[string]any{
		"StyleName":   "restaurant",
		"Typography":  "Playfair Display headings",
		"Palette":     "#dc2626",
		"Layout":      "full-bleed hero",
		"Inspiration": []string{"https://example.com/a"},
		"Sections":    []string{"navigation", "hero", "footer"},
		"Record":      `{"business_name": "Acme"}`,
	})
	require.NoError(t, err)
	assert.Contains(t, out, "STYLE PROFILE: restaurant")
	assert.Contains(t, out, "- https://example.com/a")
	assert.Contains(t, out, "- navigation\n- hero\n- footer")
}

func TestRender_MissingKeyFails(t *testing.T) {
	_, err := Render("extraction.yaml", "gap-fill", map[string]any{"BusinessName": "Acme"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to render prompt")
}
