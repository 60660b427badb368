// Package handlers contains the HTTP handler implementations for the
// SunTracker API.
//
// This file implements the events endpoint: resolve a free-text location to
// coordinates, reconcile the requested date range against the event cache,
// and return one solar-event record per day.
package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"suntracker/internal/core"
	"suntracker/internal/types"
)

// LocationResolver resolves free-text location strings to coordinates.
// Matches external.Geocoder but is defined locally to avoid tight coupling
// per the handler injection pattern.
type LocationResolver interface {
	Geocode(ctx context.Context, location string) (*types.Location, error)
}

// EventResolver reconciles a coordinate/date-range request against the cache
// and the upstream provider. Matches solar.Service.
type EventResolver interface {
	Resolve(ctx context.Context, coords types.Coordinates, rng types.DateRange) ([]types.Event, error)
}

// EventsHandler maps HTTP requests to the geocoder and the reconciliation
// service.
type EventsHandler struct {
	geocoder     LocationResolver
	resolver     EventResolver
	maxRangeDays int
	logger       *slog.Logger
}

// NewEventsHandler creates an EventsHandler with the provided dependencies.
func NewEventsHandler(
	geocoder LocationResolver,
	resolver EventResolver,
	maxRangeDays int,
	logger *slog.Logger,
) *EventsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventsHandler{
		geocoder:     geocoder,
		resolver:     resolver,
		maxRangeDays: maxRangeDays,
		logger:       logger,
	}
}

// RegisterRoutes mounts the events endpoints onto the mux.
func (h *EventsHandler) RegisterRoutes(r chi.Router) {
	r.Get("/events", h.HandleList)
}

// EventDay is the public per-day shape: the Event restricted to its day
// fields. Coordinates are reported once at the top level as part of the
// resolved location, and the timezone label once for the whole range.
type EventDay struct {
	Date       string `json:"date"`
	Sunrise    *int64 `json:"sunrise"`
	Sunset     *int64 `json:"sunset"`
	FirstLight *int64 `json:"first_light"`
	LastLight  *int64 `json:"last_light"`
	Dawn       *int64 `json:"dawn"`
	Dusk       *int64 `json:"dusk"`
	SolarNoon  *int64 `json:"solar_noon"`
	GoldenHour *int64 `json:"golden_hour"`
	DayLength  int64  `json:"day_length"`
	UTCOffset  int    `json:"utc_offset"`
}

// EventsResponse is the payload for GET /v1/events.
type EventsResponse struct {
	Days     []EventDay     `json:"days"`
	Location types.Location `json:"location"`
	Timezone string         `json:"timezone,omitempty"`
}

// HandleList handles GET /v1/events?location=&start_date=&end_date=.
//
// end_date defaults to start_date, so a single-day query is just a start
// date. The range is capped at maxRangeDays calendar days.
func (h *EventsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	location := strings.TrimSpace(q.Get("location"))
	if location == "" {
		core.Error(w, r, types.NewAppError(
			types.ErrCodeValidationMissingLocation,
			"location is required",
			nil,
		))
		return
	}

	startStr := q.Get("start_date")
	if startStr == "" {
		core.Error(w, r, types.NewAppError(
			types.ErrCodeValidationMissingField,
			"start_date is required",
			nil,
		))
		return
	}
	start, err := types.ParseDate(startStr)
	if err != nil {
		core.Error(w, r, types.NewAppError(
			types.ErrCodeValidationInvalidDate,
			"start_date must be a valid YYYY-MM-DD date",
			nil,
		))
		return
	}

	end := start
	if endStr := q.Get("end_date"); endStr != "" {
		end, err = types.ParseDate(endStr)
		if err != nil {
			core.Error(w, r, types.NewAppError(
				types.ErrCodeValidationInvalidDate,
				"end_date must be a valid YYYY-MM-DD date",
				nil,
			))
			return
		}
		if end.Before(start) {
			core.Error(w, r, types.NewAppError(
				types.ErrCodeValidationDateOrder,
				"end_date must not be before start_date",
				nil,
			))
			return
		}
	}

	rng, err := types.NewDateRange(start, end)
	if err != nil {
		core.Error(w, r, types.NewAppError(types.ErrCodeValidationDateOrder, err.Error(), nil))
		return
	}
	if rng.Len() > h.maxRangeDays {
		core.Error(w, r, types.NewAppErrorWithDetails(
			types.ErrCodeValidationRangeTooLarge,
			"date range exceeds the maximum number of days",
			nil,
			map[string]any{"max_days": h.maxRangeDays},
		))
		return
	}

	loc, err := h.geocoder.Geocode(r.Context(), location)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	events, err := h.resolver.Resolve(r.Context(), loc.Coordinates(), rng)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	days := make([]EventDay, 0, len(events))
	for _, ev := range events {
		days = append(days, EventDay{
			Date:       ev.Date.Format(types.DateLayout),
			Sunrise:    ev.Sunrise,
			Sunset:     ev.Sunset,
			FirstLight: ev.FirstLight,
			LastLight:  ev.LastLight,
			Dawn:       ev.Dawn,
			Dusk:       ev.Dusk,
			SolarNoon:  ev.SolarNoon,
			GoldenHour: ev.GoldenHour,
			DayLength:  ev.DayLength,
			UTCOffset:  ev.UTCOffset,
		})
	}

	resp := EventsResponse{
		Days:     days,
		Location: *loc,
	}
	// One timezone label covers the whole range; all days share coordinates.
	if len(events) > 0 {
		resp.Timezone = events[0].Timezone
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: resp})
}
