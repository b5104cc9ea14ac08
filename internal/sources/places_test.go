package sources

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/site-generator/internal/types"
)

func fixedNow() time.Time {
	return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

func placesServer(t *testing.T, findCalls *int32) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/findplacefromtext/json", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(findCalls, 1)
		assert.Equal(t, "textquery", r.URL.Query().Get("inputtype"))
		assert.Equal(t, "place_id,name,formatted_address", r.URL.Query().Get("fields"))
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		if r.URL.Query().Get("input") != "Acme Cafe Portland, OR" {
			_ = json.NewEncoder(w).Encode(map[string]any{"status": "ZERO_RESULTS", "candidates": []any{}})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":     "OK",
			"candidates": []map[string]string{{"place_id": "place-123"}},
		})
	})
	mux.HandleFunc("/details/json", func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Query().Get("fields"), "opening_hours")
		assert.Contains(t, r.URL.Query().Get("fields"), "user_ratings_total")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": "OK",
			"result": map[string]any{
				"name":                   "Acme Cafe",
				"formatted_phone_number": "(503) 555-0142",
				"rating":                 4.6,
				"echo_place_id":          r.URL.Query().Get("place_id"),
			},
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestPlacesClient_LookupByNameAndLocation(t *testing.T) {
	var finds int32
	srv := placesServer(t, &finds)
	client := NewPlacesClient("test-key", srv.URL, Options{Now: fixedNow})

	rec, err := client.Fetch(context.Background(), Locator{Name: "Acme Cafe", Location: "Portland, OR"})
	require.NoError(t, err)

	assert.Equal(t, types.SourceMapListing, rec.Source)
	assert.Equal(t, fixedNow(), rec.FetchedAt)
	assert.Equal(t, "Acme Cafe", rec.Data["name"])
	assert.Equal(t, "place-123", rec.Data["place_id"])
	assert.Equal(t, "place-123", rec.Data["echo_place_id"])
	assert.Equal(t, int32(1), finds)
}

func TestPlacesClient_ListingURLWithPlaceIDSkipsLookup(t *testing.T) {
	var finds int32
	srv := placesServer(t, &finds)
	client := NewPlacesClient("test-key", srv.URL, Options{})

	rec, err := client.Fetch(context.Background(), Locator{
		URL:  "https://www.google.com/maps/search/?api=1&query=Acme&query_place_id=direct-9",
		Name: "Acme Cafe",
	})
	require.NoError(t, err)
	assert.Equal(t, "direct-9", rec.Data["echo_place_id"])
	assert.Equal(t, int32(0), finds)
}

func TestPlacesClient_SameShapeForBothPaths(t *testing.T) {
	var finds int32
	srv := placesServer(t, &finds)
	client := NewPlacesClient("test-key", srv.URL, Options{})

	byLookup, err := client.Fetch(context.Background(), Locator{Name: "Acme Cafe", Location: "Portland, OR"})
	require.NoError(t, err)
	byURL, err := client.Fetch(context.Background(), Locator{URL: "https://maps.google.com/?place_id=place-123"})
	require.NoError(t, err)

	assert.Equal(t, byLookup.Data, byURL.Data)
}

func TestPlacesClient_NotFound(t *testing.T) {
	var finds int32
	srv := placesServer(t, &finds)
	client := NewPlacesClient("test-key", srv.URL, Options{})

	_, err := client.Fetch(context.Background(), Locator{Name: "Nobody", Location: "Nowhere"})
	require.Error(t, err)
	var srcErr *SourceError
	require.True(t, errors.As(err, &srcErr))
	assert.Equal(t, types.SourceMapListing, srcErr.Source)
	assert.Contains(t, err.Error(), "business not found")
	assert.Contains(t, err.Error(), "ZERO_RESULTS")
}

func TestPlacesClient_NotConfigured(t *testing.T) {
	client := NewPlacesClient("", "http://127.0.0.1:1", Options{})
	_, err := client.Fetch(context.Background(), Locator{Name: "Acme"})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestPlacesClient_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewPlacesClient("test-key", srv.URL, Options{})
	_, err := client.Fetch(context.Background(), Locator{Name: "Acme"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP status 429")
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestPlacesClient_UnreachableHostDoesNotLeakKey(t *testing.T) {
	client := NewPlacesClient("secret-key", "http://127.0.0.1:1", Options{
		HTTPClient: &http.Client{Timeout: time.Second},
	})
	_, err := client.Fetch(context.Background(), Locator{Name: "Acme"})
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "secret-key")
}

func TestParseListingURL(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		placeID string
		query   string
	}{
		{"empty", "", "", ""},
		{"place id", "https://maps.google.com/?place_id=abc", "abc", ""},
		{"query place id", "https://www.google.com/maps/search/?api=1&query=x&query_place_id=def", "def", ""},
		{"q param", "https://maps.google.com/?q=Acme+Cafe+Portland", "", "Acme Cafe Portland"},
		{"place path", "https://www.google.com/maps/place/Acme+Cafe/@45.5,-122.6,17z", "", "Acme Cafe"},
		{"short link", "https://maps.app.goo.gl/xyz", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, q := parseListingURL(tt.raw)
			assert.Equal(t, tt.placeID, id)
			assert.Equal(t, tt.query, q)
		})
	}
}
