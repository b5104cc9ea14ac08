package sources

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/jonathan/site-generator/internal/types"
)

// DefaultPlacesBaseURL is the map listing API root.
const DefaultPlacesBaseURL = "https://maps.googleapis.com/maps/api/place"

var placeDetailFields = []string{
	"name",
	"formatted_address",
	"formatted_phone_number",
	"opening_hours",
	"reviews",
	"photos",
	"website",
	"types",
	"editorial_summary",
	"rating",
	"user_ratings_total",
}

// PlacesClient fetches a business's map listing.
type PlacesClient struct {
	base
	apiKey  string
	baseURL string
}

// NewPlacesClient creates a map listing client. An empty apiKey yields a
// client whose Fetch returns ErrNotConfigured.
func NewPlacesClient(apiKey, baseURL string, opts Options) *PlacesClient {
	if baseURL == "" {
		baseURL = DefaultPlacesBaseURL
	}
	return &PlacesClient{
		base:    newBase(types.SourceMapListing, opts),
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

type placesFindResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Candidates   []struct {
		PlaceID string `json:"place_id"`
	} `json:"candidates"`
}

type placesDetailsResponse struct {
	Status       string         `json:"status"`
	ErrorMessage string         `json:"error_message"`
	Result       map[string]any `json:"result"`
}

// Fetch resolves the listing. A listing URL carrying a place id goes straight
// to the details call; otherwise the business is looked up by text built from
// the URL's query parameter or the name and location.
func (c *PlacesClient) Fetch(ctx context.Context, loc Locator) (*types.SourceRecord, error) {
	if c.apiKey == "" {
		return nil, c.fail("google places API key", ErrNotConfigured)
	}

	placeID, query := parseListingURL(loc.URL)
	if placeID == "" {
		if query == "" {
			query = strings.TrimSpace(loc.Name + " " + loc.Location)
		}
		if query == "" {
			return nil, c.fail("no lookup text", nil)
		}
		id, err := c.findPlace(ctx, query)
		if err != nil {
			return nil, err
		}
		placeID = id
	}

	details, err := c.details(ctx, placeID)
	if err != nil {
		return nil, err
	}
	details["place_id"] = placeID
	return c.record(details), nil
}

func (c *PlacesClient) findPlace(ctx context.Context, input string) (string, error) {
	params := url.Values{}
	params.Set("input", input)
	params.Set("inputtype", "textquery")
	params.Set("fields", "place_id,name,formatted_address")
	params.Set("key", c.apiKey)

	req, err := newJSONRequest(ctx, http.MethodGet, c.baseURL+"/findplacefromtext/json?"+params.Encode(), nil)
	if err != nil {
		return "", c.fail("build find request", err)
	}
	var resp placesFindResponse
	if err := c.doJSON(ctx, req, &resp); err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].PlaceID == "" {
		return "", c.fail(placesMessage("business not found", resp.Status, resp.ErrorMessage), nil)
	}
	return resp.Candidates[0].PlaceID, nil
}

func (c *PlacesClient) details(ctx context.Context, placeID string) (map[string]any, error) {
	params := url.Values{}
	params.Set("place_id", placeID)
	params.Set("fields", strings.Join(placeDetailFields, ","))
	params.Set("key", c.apiKey)

	req, err := newJSONRequest(ctx, http.MethodGet, c.baseURL+"/details/json?"+params.Encode(), nil)
	if err != nil {
		return nil, c.fail("build details request", err)
	}
	var resp placesDetailsResponse
	if err := c.doJSON(ctx, req, &resp); err != nil {
		return nil, err
	}
	if resp.Result == nil {
		return nil, c.fail(placesMessage("place details unavailable", resp.Status, resp.ErrorMessage), nil)
	}
	return resp.Result, nil
}

func placesMessage(msg, status, detail string) string {
	if status != "" {
		msg += " (" + status + ")"
	}
	if detail != "" {
		msg += ": " + detail
	}
	return msg
}

// parseListingURL pulls a place id or a lookup query out of a listing URL.
func parseListingURL(raw string) (placeID, query string) {
	if raw == "" {
		return "", ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", ""
	}
	q := u.Query()
	for _, key := range []string{"place_id", "query_place_id"} {
		if v := strings.TrimSpace(q.Get(key)); v != "" {
			return v, ""
		}
	}
	for _, key := range []string{"q", "query"} {
		if v := strings.TrimSpace(q.Get(key)); v != "" {
			return "", v
		}
	}
	// /maps/place/Acme+Cafe/@45.5,-122.6,17z
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := 0; i+2 < len(parts); i++ {
		if parts[i] == "maps" && parts[i+1] == "place" {
			name, err := url.PathUnescape(strings.ReplaceAll(parts[i+2], "+", " "))
			if err == nil {
				return "", strings.TrimSpace(name)
			}
		}
	}
	return "", ""
}
