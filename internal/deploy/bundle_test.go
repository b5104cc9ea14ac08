package deploy

import (
	"crypto/sha1" //nolint:gosec
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/site-generator/internal/types"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Acme Cafe", "acme-cafe"},
		{"  Joe's Pizza & Grill!! ", "joe-s-pizza-grill"},
		{"ALL-CAPS---Name", "all-caps-name"},
		{"Café Münster", "caf-m-nster"},
		{"!!!", "site"},
		{"", "site"},
		{strings.Repeat("a", 49) + " b", strings.Repeat("a", 49)},
		{strings.Repeat("x", 80), strings.Repeat("x", 50)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := Slugify(tt.in)
			assert.Equal(t, tt.want, got)
			assert.LessOrEqual(t, len(got), MaxSlugLength)
		})
	}
}

func decodeFile(t *testing.T, f File) string {
	t.Helper()
	raw, err := base64.StdEncoding.DecodeString(f.Data)
	require.NoError(t, err)
	sum := sha1.Sum(raw) //nolint:gosec
	assert.Equal(t, hex.EncodeToString(sum[:]), f.SHA, f.File)
	assert.Equal(t, len(raw), f.Size, f.File)
	assert.Equal(t, "base64", f.Encoding)
	return string(raw)
}

func bundleByName(t *testing.T, files []File) map[string]string {
	t.Helper()
	out := map[string]string{}
	for _, f := range files {
		out[f.File] = decodeFile(t, f)
	}
	return out
}

func TestBuildBundle(t *testing.T) {
	rec := &types.BusinessRecord{
		BusinessName:     "Acme Cafe",
		DescriptionShort: "Coffee and pastries.",
		Category:         "cafe",
		Services:         []types.Offering{{Name: "Espresso", Price: "$3"}},
		Contact:          types.Contact{Phone: "555-0100", Email: "hi@acme.test"},
		Hours:            map[string]string{"monday": "7am-3pm"},
	}

	files, err := BuildBundle("<html>Acme</html>", "acme-cafe", rec)
	require.NoError(t, err)
	require.Len(t, files, 5)

	got := bundleByName(t, files)
	assert.Equal(t, "<html>Acme</html>", got["index.html"])
	assert.Equal(t, vercelConfig, got["vercel.json"])
	assert.True(t, json.Valid([]byte(got["vercel.json"])))
	assert.Equal(t, "User-agent: *\nAllow: /\nSitemap: https://acme-cafe.vercel.app/sitemap.xml", got["robots.txt"])
	assert.Contains(t, got["sitemap.xml"], "<loc>https://acme-cafe.vercel.app/</loc>")
	assert.Contains(t, got["sitemap.xml"], "<changefreq>weekly</changefreq>")

	var summary map[string]any
	require.NoError(t, json.Unmarshal([]byte(got["business.json"]), &summary))
	assert.Equal(t, "Acme Cafe", summary["name"])
	assert.Equal(t, "Coffee and pastries.", summary["description"])
	assert.Equal(t, []any{map[string]any{"name": "Espresso", "price": "$3"}}, summary["offerings"])
	contact := summary["contact"].(map[string]any)
	assert.Equal(t, "555-0100", contact["phone"])
	assert.Equal(t, "hi@acme.test", contact["email"])
	assert.Equal(t, placeholderContact, contact["address"])
	assert.Equal(t, map[string]any{"monday": "7am-3pm"}, summary["hours"])
}

func TestBuildBundle_PlaceholdersWithoutRecord(t *testing.T) {
	files, err := BuildBundle("<html></html>", "acme", nil)
	require.NoError(t, err)

	var summary map[string]any
	require.NoError(t, json.Unmarshal([]byte(bundleByName(t, files)["business.json"]), &summary))
	assert.Equal(t, "acme", summary["name"])
	assert.Equal(t, placeholderDescription, summary["description"])
	assert.Equal(t, []any{}, summary["offerings"])
	assert.Equal(t, map[string]any{"note": placeholderHours}, summary["hours"])
	contact := summary["contact"].(map[string]any)
	assert.Equal(t, placeholderContact, contact["phone"])
	assert.Equal(t, placeholderContact, contact["email"])
}
