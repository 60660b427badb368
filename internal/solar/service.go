// service.go contains the cache reconciliation service: given a coordinate
// pair and a requested date range, it determines which days are already
// persisted, drives at most one provider fetch for the missing span,
// normalizes and merges the results, persists the new rows idempotently, and
// returns a date-ordered result set covering the requested range.
package solar

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"suntracker/internal/types"
)

// EventStore is the persistence boundary the reconciler depends on. Rows are
// immutable and unique on (latitude, longitude, date); InsertIgnoreDuplicates
// must silently absorb key collisions so concurrent writers never error.
type EventStore interface {
	FindByRange(ctx context.Context, coords types.Coordinates, rng types.DateRange) ([]types.Event, error)
	InsertIgnoreDuplicates(ctx context.Context, events []types.Event) (int64, error)
}

// RangeFetcher is the provider boundary: one fetch per missing span.
type RangeFetcher interface {
	FetchRange(ctx context.Context, coords types.Coordinates, rng types.DateRange) ([]ProviderRecord, error)
}

// Service reconciles the event cache against the upstream provider.
type Service struct {
	store   EventStore
	fetcher RangeFetcher
	logger  *slog.Logger
}

// NewService creates a reconciliation service with the provided dependencies.
func NewService(store EventStore, fetcher RangeFetcher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:   store,
		fetcher: fetcher,
		logger:  logger,
	}
}

// Resolve returns one Event per calendar date in the range, ascending.
//
// Flow: store read -> missing-date computation -> at most one provider fetch
// spanning [first missing, last missing] -> normalize -> merge with cached
// records winning on date collisions -> idempotent persist of the fresh
// records -> sorted return. A fully cached range performs no network I/O and
// no writes. The fetch spans one contiguous window even when the gaps inside
// it are not contiguous; re-fetched already-cached days are discarded during
// dedup. There is no in-process locking: two concurrent misses for the same
// gap may both fetch and both write, and the store's collision-tolerant
// insert keeps exactly one row per key.
func (s *Service) Resolve(ctx context.Context, coords types.Coordinates, rng types.DateRange) ([]types.Event, error) {
	coords = coords.Round()

	cached, err := s.store.FindByRange(ctx, coords, rng)
	if err != nil {
		return nil, err
	}

	missing := missingDates(cached, rng)
	if len(missing) == 0 {
		sortByDate(cached)
		return cached, nil
	}

	span := types.DateRange{Start: missing[0], End: missing[len(missing)-1]}
	raws, err := s.fetcher.FetchRange(ctx, coords, span)
	if err != nil {
		var appErr *types.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, types.NewAppError(types.ErrCodeUpstreamNoData, "solar-events provider call failed", err)
	}

	fetched := s.normalizeAll(ctx, raws, coords, rng)
	if len(fetched) == 0 {
		return nil, types.NewAppError(types.ErrCodeUpstreamNoData,
			"provider returned no usable records for the missing dates", nil)
	}

	// Merge cached ++ fetched, first occurrence per date wins: a cached
	// event already reflects the store's canonical row, so it takes
	// precedence over a freshly fetched duplicate.
	seen := make(map[time.Time]struct{}, len(cached)+len(fetched))
	merged := make([]types.Event, 0, len(cached)+len(fetched))
	fresh := make([]types.Event, 0, len(fetched))

	for _, ev := range cached {
		key := types.Midnight(ev.Date)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		merged = append(merged, ev)
	}
	for _, ev := range fetched {
		key := types.Midnight(ev.Date)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		merged = append(merged, ev)
		fresh = append(fresh, ev)
	}

	if len(fresh) > 0 {
		if _, err := s.store.InsertIgnoreDuplicates(ctx, fresh); err != nil {
			return nil, err
		}
	}

	sortByDate(merged)
	return merged, nil
}

// normalizeAll converts raw records into events, discarding records outside
// the requested range (a contiguous span fetch may cover already-cached days)
// and skipping records that fail normalization. A skipped record loses that
// day's data; the rest of the batch is unaffected.
func (s *Service) normalizeAll(ctx context.Context, raws []ProviderRecord, coords types.Coordinates, rng types.DateRange) []types.Event {
	events := make([]types.Event, 0, len(raws))
	for _, raw := range raws {
		ev, err := NormalizeRecord(raw, coords)
		if err != nil {
			s.logger.WarnContext(ctx, "skipping malformed provider record",
				"date", raw.Date,
				"error", err,
			)
			continue
		}
		if !rng.Contains(ev.Date) {
			continue
		}
		events = append(events, ev)
	}
	return events
}

// missingDates returns the requested dates with no cached event, ascending.
func missingDates(cached []types.Event, rng types.DateRange) []time.Time {
	have := make(map[time.Time]struct{}, len(cached))
	for _, ev := range cached {
		have[types.Midnight(ev.Date)] = struct{}{}
	}

	var missing []time.Time
	for _, d := range rng.Days() {
		if _, ok := have[d]; !ok {
			missing = append(missing, d)
		}
	}
	return missing
}

func sortByDate(events []types.Event) {
	sort.Slice(events, func(i, j int) bool {
		return events[i].Date.Before(events[j].Date)
	})
}
