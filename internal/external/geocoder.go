package external

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"suntracker/internal/types"
)

// geocoderMaxResponseBytes caps the geocoder response size read into memory.
const geocoderMaxResponseBytes = 1 << 20

// Doer abstracts the resilient HTTP client for testability.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Geocoder resolves free-text location strings to coordinates via the
// Nominatim search API. The service treats it as a black box returning
// coordinates; only the first (best) match is used.
type Geocoder struct {
	http    Doer
	baseURL string
	logger  *slog.Logger
}

// NewGeocoder creates a Nominatim geocoder client.
func NewGeocoder(doer Doer, baseURL string, logger *slog.Logger) *Geocoder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Geocoder{
		http:    doer,
		baseURL: baseURL,
		logger:  logger,
	}
}

// nominatimResult is one entry of the Nominatim search response. Coordinates
// arrive as JSON strings.
type nominatimResult struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
}

// Geocode resolves a location string to coordinates and display names.
// An empty result set maps to not_found_location; transport failures carry
// the upstream_* codes assigned by the BaseClient.
func (g *Geocoder) Geocode(ctx context.Context, location string) (*types.Location, error) {
	u, err := url.Parse(g.baseURL)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "building geocoder URL", err)
	}
	u = u.JoinPath("search")

	q := url.Values{}
	q.Set("q", location)
	q.Set("format", "json")
	q.Set("limit", "1")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "building geocoder request", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := g.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, types.NewAppErrorWithDetails(
			types.ErrCodeUpstreamUnavailable,
			"geocoder request failed",
			fmt.Errorf("unexpected status %d", resp.StatusCode),
			map[string]any{"status": resp.StatusCode},
		)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, geocoderMaxResponseBytes))
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeUpstreamUnavailable, "reading geocoder response", err)
	}

	var results []nominatimResult
	if err := json.Unmarshal(body, &results); err != nil {
		return nil, types.NewAppError(types.ErrCodeUpstreamUnavailable, "unparseable geocoder response", err)
	}
	if len(results) == 0 {
		return nil, types.NewAppError(types.ErrCodeNotFoundLocation, "location not found", nil)
	}

	best := results[0]
	lat, err := strconv.ParseFloat(best.Lat, 64)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeUpstreamUnavailable,
			fmt.Sprintf("geocoder returned invalid latitude %q", best.Lat), err)
	}
	lng, err := strconv.ParseFloat(best.Lon, 64)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeUpstreamUnavailable,
			fmt.Sprintf("geocoder returned invalid longitude %q", best.Lon), err)
	}

	return &types.Location{
		Latitude:  lat,
		Longitude: lng,
		Name:      best.Name,
		Fullname:  best.DisplayName,
	}, nil
}
