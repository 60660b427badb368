// Package types defines the shared domain model for the SunTracker service:
// coordinates, calendar date ranges, the canonical per-day Event record, and
// the application error vocabulary.
package types

import (
	"fmt"
	"math"
	"time"
)

// DateLayout is the wire and storage format for calendar dates.
const DateLayout = "2006-01-02"

// SecondsPerDay is the length of a nominal UTC day in seconds.
const SecondsPerDay = 86400

// CoordinatePrecision is the number of decimal places coordinates are rounded
// to before use. It mirrors the numeric(10,6) storage precision so that the
// in-memory key and the database unique key always agree.
const CoordinatePrecision = 6

// Coordinates is a resolved (latitude, longitude) pair. The service never
// geocodes; coordinates always arrive from the location resolver.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Round returns the coordinates rounded to CoordinatePrecision decimal places.
func (c Coordinates) Round() Coordinates {
	return Coordinates{
		Latitude:  roundTo(c.Latitude, CoordinatePrecision),
		Longitude: roundTo(c.Longitude, CoordinatePrecision),
	}
}

func roundTo(v float64, places int) float64 {
	scale := math.Pow10(places)
	return math.Round(v*scale) / scale
}

// Location is the geocoder's view of a place: resolved coordinates plus the
// short and full display names returned by the resolver.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Name      string  `json:"name"`
	Fullname  string  `json:"fullname"`
}

// Coordinates returns the location's coordinate pair.
func (l Location) Coordinates() Coordinates {
	return Coordinates{Latitude: l.Latitude, Longitude: l.Longitude}
}

// DateRange is an inclusive [Start, End] span of calendar dates. Both bounds
// are UTC-midnight instants. A single-day range has Start == End.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// NewDateRange builds a range from inclusive bounds, normalizing both to UTC
// midnight. End before Start is rejected.
func NewDateRange(start, end time.Time) (DateRange, error) {
	s := Midnight(start)
	e := Midnight(end)
	if e.Before(s) {
		return DateRange{}, fmt.Errorf("end date %s before start date %s",
			e.Format(DateLayout), s.Format(DateLayout))
	}
	return DateRange{Start: s, End: e}, nil
}

// Days returns every calendar date in the range, ascending.
func (r DateRange) Days() []time.Time {
	days := make([]time.Time, 0, r.Len())
	for d := r.Start; !d.After(r.End); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// Len returns the number of calendar days covered by the range.
func (r DateRange) Len() int {
	return int(r.End.Sub(r.Start)/(24*time.Hour)) + 1
}

// Contains reports whether the given date falls inside the range.
func (r DateRange) Contains(d time.Time) bool {
	d = Midnight(d)
	return !d.Before(r.Start) && !d.After(r.End)
}

// Midnight truncates an instant to 00:00:00 UTC of its calendar date.
func Midnight(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD string into a UTC-midnight instant.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

// Event is one calendar day's canonical solar data for one coordinate pair.
// Identity is the (Latitude, Longitude, Date) triple; rows are immutable once
// written and duplicates are absorbed by the store's unique key.
//
// The eight instant fields are absolute unix-epoch seconds, nil when the
// provider reported no such event for the day (permanent polar day/night).
// DayLength is always present and derived; see solar.DayLength for the rules.
type Event struct {
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	Date       time.Time `json:"date"`
	Sunrise    *int64    `json:"sunrise"`
	Sunset     *int64    `json:"sunset"`
	FirstLight *int64    `json:"first_light"`
	LastLight  *int64    `json:"last_light"`
	Dawn       *int64    `json:"dawn"`
	Dusk       *int64    `json:"dusk"`
	SolarNoon  *int64    `json:"solar_noon"`
	GoldenHour *int64    `json:"golden_hour"`
	DayLength  int64     `json:"day_length"`
	UTCOffset  int       `json:"utc_offset"`
	Timezone   string    `json:"timezone,omitempty"`
}
