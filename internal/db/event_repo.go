package db

import (
	"context"
	"fmt"

	"suntracker/internal/types"
)

// EventRepository provides data access for the events table. One row is one
// calendar day's solar data for one coordinate pair, unique on
// (latitude, longitude, date). Rows are never updated or deleted here;
// retention is an external policy.
type EventRepository struct {
	db DBTX
}

// NewEventRepository creates an EventRepository backed by the given database
// connection (pool or transaction).
func NewEventRepository(db DBTX) *EventRepository {
	return &EventRepository{db: db}
}

// eventColumns is the standard column set for event queries. The scan order
// in FindByRange must match.
const eventColumns = `latitude, longitude, date,
	sunrise, sunset, first_light, last_light,
	dawn, dusk, solar_noon, golden_hour,
	day_length, utc_offset, timezone`

// FindByRange returns all events for the coordinate pair with a date inside
// the inclusive range, ordered by date ascending. An empty result is not an
// error.
func (r *EventRepository) FindByRange(ctx context.Context, coords types.Coordinates, rng types.DateRange) ([]types.Event, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+eventColumns+`
		 FROM events
		 WHERE latitude = $1 AND longitude = $2
		   AND date BETWEEN $3 AND $4
		 ORDER BY date`,
		coords.Latitude, coords.Longitude, rng.Start, rng.End,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "querying cached events", err)
	}
	defer rows.Close()

	var events []types.Event
	for rows.Next() {
		var ev types.Event
		var tz *string
		err := rows.Scan(
			&ev.Latitude,
			&ev.Longitude,
			&ev.Date,
			&ev.Sunrise,
			&ev.Sunset,
			&ev.FirstLight,
			&ev.LastLight,
			&ev.Dawn,
			&ev.Dusk,
			&ev.SolarNoon,
			&ev.GoldenHour,
			&ev.DayLength,
			&ev.UTCOffset,
			&tz,
		)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "scanning event row", err)
		}
		if tz != nil {
			ev.Timezone = *tz
		}
		// Dates come back as midnight in the session timezone; pin to UTC
		// so in-memory date keys always compare equal.
		ev.Date = types.Midnight(ev.Date)
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "iterating event rows", err)
	}

	return events, nil
}

// InsertIgnoreDuplicates persists the given events, skipping any row whose
// (latitude, longitude, date) key already exists. The only contract is "no
// duplicate row for an existing key, no error on collision": when two
// concurrent writers race on the same key, exactly one row wins and the other
// write is silently absorbed. Returns the number of rows actually inserted.
func (r *EventRepository) InsertIgnoreDuplicates(ctx context.Context, events []types.Event) (int64, error) {
	var inserted int64
	for _, ev := range events {
		var tz *string
		if ev.Timezone != "" {
			tz = &ev.Timezone
		}
		tag, err := r.db.Exec(ctx,
			`INSERT INTO events (`+eventColumns+`)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
			 ON CONFLICT (latitude, longitude, date) DO NOTHING`,
			ev.Latitude, ev.Longitude, ev.Date,
			ev.Sunrise, ev.Sunset, ev.FirstLight, ev.LastLight,
			ev.Dawn, ev.Dusk, ev.SolarNoon, ev.GoldenHour,
			ev.DayLength, ev.UTCOffset, tz,
		)
		if err != nil {
			return inserted, types.NewAppError(
				types.ErrCodeInternalDB,
				fmt.Sprintf("inserting event for %s", ev.Date.Format(types.DateLayout)),
				err,
			)
		}
		inserted += tag.RowsAffected()
	}
	return inserted, nil
}
