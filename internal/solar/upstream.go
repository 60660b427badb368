// Package solar implements the SunTracker core: the upstream solar-events
// provider client, the normalization of raw provider records into canonical
// events, and the cache reconciliation service that merges store and provider
// data into gap-free date ranges.
//
// This file contains the provider client. The upstream API is keyed by
// latitude, longitude, and either a single date or a date_start/date_end
// span, and answers with a JSON body whose "results" member is either one
// record or an array of records. Older deployments report each time-of-day
// field as a localized 12-hour clock string; newer ones report native unix
// timestamps. Both shapes are decoded once, at this boundary, into the
// RawTime tagged union.
package solar

import (
	"bytes"
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

// Doer abstracts the outbound HTTP client (external.BaseClient in production)
// for testability.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// maxResponseBytes caps the provider response size read into memory.
// A full-year range is well under 1 MB; anything larger is garbage.
const maxResponseBytes = 4 << 20

// rawTimeKind discriminates the RawTime union.
type rawTimeKind int

const (
	rawTimeAbsent rawTimeKind = iota // null or missing field
	rawTimeClock                     // 12-hour clock string, e.g. "6:32:11 AM"
	rawTimeUnix                      // absolute unix-epoch seconds
)

// RawTime models one time-of-day field of a provider record. The provider
// expresses these either as a clock string to be combined with the record's
// date, or as a unix timestamp directly. The zero value is Absent.
type RawTime struct {
	kind  rawTimeKind
	clock string
	unix  int64
}

// ClockTime constructs a RawTime holding a 12-hour clock string.
func ClockTime(s string) RawTime { return RawTime{kind: rawTimeClock, clock: s} }

// UnixTime constructs a RawTime holding an absolute unix timestamp.
func UnixTime(v int64) RawTime { return RawTime{kind: rawTimeUnix, unix: v} }

// Absent reports whether the field was null or missing in the raw record.
func (t RawTime) Absent() bool { return t.kind == rawTimeAbsent }

// UnmarshalJSON decodes null, a JSON number, or a JSON string into the union.
func (t *RawTime) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*t = RawTime{}
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s == "" {
			*t = RawTime{}
			return nil
		}
		*t = RawTime{kind: rawTimeClock, clock: s}
		return nil
	}
	v, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return fmt.Errorf("time field is neither string nor integer: %s", b)
	}
	*t = RawTime{kind: rawTimeUnix, unix: v}
	return nil
}

// ProviderRecord is one raw per-day record as returned by the upstream API.
// The provider also reports its own day_length string; it is ignored because
// the canonical value is derived locally (see DayLength).
type ProviderRecord struct {
	Date       string  `json:"date"`
	Sunrise    RawTime `json:"sunrise"`
	Sunset     RawTime `json:"sunset"`
	FirstLight RawTime `json:"first_light"`
	LastLight  RawTime `json:"last_light"`
	Dawn       RawTime `json:"dawn"`
	Dusk       RawTime `json:"dusk"`
	SolarNoon  RawTime `json:"solar_noon"`
	GoldenHour RawTime `json:"golden_hour"`
	UTCOffset  int     `json:"utc_offset"`
	Timezone   string  `json:"timezone"`
}

// providerResults absorbs the provider's "single record vs array of records"
// ambiguity: a one-day query answers with a bare object, a span query with an
// array.
type providerResults []ProviderRecord

func (r *providerResults) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*r = nil
		return nil
	}
	if b[0] == '[' {
		var many []ProviderRecord
		if err := json.Unmarshal(b, &many); err != nil {
			return err
		}
		*r = many
		return nil
	}
	var one ProviderRecord
	if err := json.Unmarshal(b, &one); err != nil {
		return err
	}
	*r = providerResults{one}
	return nil
}

type providerResponse struct {
	Results providerResults `json:"results"`
	Status  string          `json:"status"`
}

// Client fetches raw per-day records from the solar-events provider.
type Client struct {
	http    Doer
	baseURL string
	logger  *slog.Logger
}

// NewClient creates a provider client. The Doer is expected to carry the
// resilience policy (timeout, retries, circuit breaker); this client only
// speaks the provider's wire protocol.
func NewClient(doer Doer, baseURL string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		http:    doer,
		baseURL: baseURL,
		logger:  logger,
	}
}

// FetchRange issues exactly one GET covering the inclusive date range. A
// single-day range uses the provider's `date` parameter; anything longer uses
// `date_start`/`date_end`. The response records are returned unfiltered; the
// reconciler discards dates outside the requested window.
//
// Any failure to obtain a parseable, non-empty result set collapses to
// upstream_no_data, except transport-level failures already mapped to an
// upstream_* AppError by the Doer, which pass through unchanged.
func (c *Client) FetchRange(ctx context.Context, coords types.Coordinates, rng types.DateRange) ([]ProviderRecord, error) {
	reqURL, err := c.buildURL(coords, rng)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "building provider request URL", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "building provider request", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, types.NewAppErrorWithDetails(
			types.ErrCodeUpstreamNoData,
			"solar-events provider returned no data",
			fmt.Errorf("unexpected status %d", resp.StatusCode),
			map[string]any{"status": resp.StatusCode},
		)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeUpstreamNoData, "reading provider response", err)
	}

	var decoded providerResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, types.NewAppError(types.ErrCodeUpstreamNoData, "unparseable provider response", err)
	}
	if len(decoded.Results) == 0 {
		return nil, types.NewAppError(types.ErrCodeUpstreamNoData, "provider returned an empty result set", nil)
	}

	return decoded.Results, nil
}

// buildURL assembles the provider query for the coordinate pair and range.
func (c *Client) buildURL(coords types.Coordinates, rng types.DateRange) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", err
	}
	u = u.JoinPath("json")

	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(coords.Latitude, 'f', -1, 64))
	q.Set("lng", strconv.FormatFloat(coords.Longitude, 'f', -1, 64))
	if rng.Start.Equal(rng.End) {
		q.Set("date", rng.Start.Format(types.DateLayout))
	} else {
		q.Set("date_start", rng.Start.Format(types.DateLayout))
		q.Set("date_end", rng.End.Format(types.DateLayout))
	}
	u.RawQuery = q.Encode()

	return u.String(), nil
}
