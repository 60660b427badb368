// normalize.go converts one raw provider record into a canonical types.Event:
// it resolves each time-of-day field to an absolute unix timestamp, converts
// the provider's minute-based UTC offset to seconds, and derives the day
// length, including the polar day/night edge cases.
package solar

import (
	"fmt"
	"time"

	"suntracker/internal/types"
)

// clockLayout is the provider's 12-hour clock format, e.g. "6:32:11 AM".
const clockLayout = "3:04:05 PM"

// endOfDayOffset is the last instant of a UTC day relative to its midnight.
const endOfDayOffset = types.SecondsPerDay - 1

// NormalizeRecord converts a raw provider record into an Event for the given
// coordinates. A field that is absent in the record stays absent in the Event;
// it is never defaulted to zero or to the record's midnight.
//
// An unparseable date or clock string makes the whole record malformed; the
// caller decides whether to skip it (the reconciler logs and continues).
func NormalizeRecord(raw ProviderRecord, coords types.Coordinates) (types.Event, error) {
	date, err := types.ParseDate(raw.Date)
	if err != nil {
		return types.Event{}, fmt.Errorf("record has invalid date %q: %w", raw.Date, err)
	}

	ev := types.Event{
		Latitude:  coords.Latitude,
		Longitude: coords.Longitude,
		Date:      date,
		UTCOffset: raw.UTCOffset * 60, // provider reports whole minutes
		Timezone:  raw.Timezone,
	}

	fields := []struct {
		name string
		raw  RawTime
		dst  **int64
	}{
		{"sunrise", raw.Sunrise, &ev.Sunrise},
		{"sunset", raw.Sunset, &ev.Sunset},
		{"first_light", raw.FirstLight, &ev.FirstLight},
		{"last_light", raw.LastLight, &ev.LastLight},
		{"dawn", raw.Dawn, &ev.Dawn},
		{"dusk", raw.Dusk, &ev.Dusk},
		{"solar_noon", raw.SolarNoon, &ev.SolarNoon},
		{"golden_hour", raw.GoldenHour, &ev.GoldenHour},
	}
	for _, f := range fields {
		ts, err := resolveTime(f.raw, date)
		if err != nil {
			return types.Event{}, fmt.Errorf("record %s: field %s: %w", raw.Date, f.name, err)
		}
		*f.dst = ts
	}

	ev.DayLength = DayLength(ev.Sunrise, ev.Sunset, date, coords.Latitude)

	return ev, nil
}

// resolveTime turns a RawTime into an absolute unix timestamp on the given
// calendar date. Clock strings are interpreted as UTC times of that date.
// Absent stays nil.
func resolveTime(t RawTime, date time.Time) (*int64, error) {
	switch t.kind {
	case rawTimeAbsent:
		return nil, nil
	case rawTimeUnix:
		v := t.unix
		return &v, nil
	case rawTimeClock:
		clock, err := time.Parse(clockLayout, t.clock)
		if err != nil {
			return nil, fmt.Errorf("unparseable clock time %q: %w", t.clock, err)
		}
		secs := int64(clock.Hour()*3600 + clock.Minute()*60 + clock.Second())
		v := date.Unix() + secs
		return &v, nil
	default:
		return nil, fmt.Errorf("unknown raw time kind %d", t.kind)
	}
}

// DayLength derives the day's daylight duration in seconds. The four branches
// cover genuinely different physical situations and are evaluated in this
// order:
//
//  1. Both sunrise and sunset present: sunset - sunrise, wrapped into
//     [0, 86400) when the raw difference is negative (sunset numerically
//     before sunrise within the same nominal day).
//  2. Both absent (permanent polar day or night): the month/hemisphere
//     heuristic below.
//  3. Only sunrise (sun rises but never sets within the UTC day): from
//     sunrise to 23:59:59 UTC of the date.
//  4. Only sunset (sun was already up at the UTC day start): from 00:00:00
//     UTC of the date to sunset.
func DayLength(sunrise, sunset *int64, date time.Time, latitude float64) int64 {
	switch {
	case sunrise != nil && sunset != nil:
		d := *sunset - *sunrise
		if d < 0 {
			d += types.SecondsPerDay
		}
		return d
	case sunrise == nil && sunset == nil:
		return polarDayLength(latitude, date)
	case sunrise != nil:
		endOfDay := types.Midnight(date).Unix() + endOfDayOffset
		return endOfDay - *sunrise
	default:
		startOfDay := types.Midnight(date).Unix()
		return *sunset - startOfDay
	}
}

// polarDayLength approximates permanent day vs permanent night when the
// provider reports no sunrise/sunset crossing at all. Calendar months 3..9
// are treated as the bright half of the year in the northern hemisphere and
// as the dark half in the southern. This is a coarse solstice-side proxy,
// not latitude-exact astronomy.
func polarDayLength(latitude float64, date time.Time) int64 {
	month := int(date.Month())
	if latitude > 0 {
		if month >= 3 && month <= 9 {
			return types.SecondsPerDay
		}
		return 0
	}
	if month <= 3 || month >= 9 {
		return types.SecondsPerDay
	}
	return 0
}
