// Package pipeline drives one enrichment run: bulk primary lookup, then for
// every resolved entry, in input order, five sequential counter lookups, a
// merge, a persist call and a fixed pacing pause.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Sternrassler/vk-watch/pkg/batch"
	"github.com/Sternrassler/vk-watch/pkg/logging"
	"github.com/Sternrassler/vk-watch/pkg/profile"
	"github.com/Sternrassler/vk-watch/pkg/ratelimit"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for pipeline runs.
var (
	vkLookupOutcomesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vk_lookup_outcomes_total",
		Help: "Total auxiliary lookups by lookup and outcome",
	}, []string{"lookup", "outcome"})

	vkEntriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vk_entries_total",
		Help: "Total watch entries processed by final state",
	}, []string{"state"})

	vkPersistFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vk_persist_failures_total",
		Help: "Total records whose persistence failed",
	})

	vkRunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "vk_run_duration_seconds",
		Help:    "Duration of complete pipeline runs",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
	})
)

// ErrEmptyWatchList aborts a run before any network call.
var ErrEmptyWatchList = errors.New("watch list is empty")

// PrimaryFetcher resolves watch entries into primary profiles.
type PrimaryFetcher interface {
	FetchPrimary(ctx context.Context, entries []profile.WatchEntry) batch.Result
}

// CounterSource performs the auxiliary lookups for one platform id.
type CounterSource interface {
	FriendsCount(ctx context.Context, platformID int64) (int, error)
	FollowersCount(ctx context.Context, platformID int64) (int, error)
	SubscriptionsCount(ctx context.Context, platformID int64) (int, error)
	GroupsCount(ctx context.Context, platformID int64) (int, error)
	WallCount(ctx context.Context, platformID int64) (int, error)
}

// WatchList supplies the entries to enrich.
type WatchList interface {
	LoadWatchEntries(ctx context.Context) ([]profile.WatchEntry, error)
}

// Persister stores one merged record under its local id.
type Persister interface {
	Persist(ctx context.Context, localID int64, rec profile.EnrichedRecord) error
}

// Config holds the pacing configuration.
type Config struct {
	// EntryDelay is the pause after every resolved entry.
	EntryDelay time.Duration
	// FinalDelay is the pause before Run returns.
	FinalDelay time.Duration
	// Pacer performs the pauses.
	Pacer ratelimit.Pacer
}

// DefaultConfig returns one-second pacing.
func DefaultConfig() Config {
	return Config{
		EntryDelay: 1 * time.Second,
		FinalDelay: 1 * time.Second,
	}
}

// Orchestrator runs the enrichment pipeline. Runs must not overlap.
type Orchestrator struct {
	fetcher   PrimaryFetcher
	counters  CounterSource
	persister Persister
	config    Config
	logger    zerolog.Logger

	mu      sync.Mutex
	summary Summary
}

// New creates a new orchestrator.
func New(fetcher PrimaryFetcher, counters CounterSource, persister Persister, config Config, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		fetcher:   fetcher,
		counters:  counters,
		persister: persister,
		config:    config,
		logger:    logger,
	}
}

// RunFromStore loads the watch list and runs the pipeline over it.
func (o *Orchestrator) RunFromStore(ctx context.Context, wl WatchList) ([]profile.EnrichedRecord, error) {
	entries, err := wl.LoadWatchEntries(ctx)
	if err != nil {
		return nil, fmt.Errorf("load watch entries: %w", err)
	}
	if len(entries) == 0 {
		return nil, ErrEmptyWatchList
	}

	o.logger.Info().Int("entries", len(entries)).Msg("Loaded watch list")
	return o.Run(ctx, entries)
}

// Run enriches entries and returns the records in input order, filtered to
// resolved entries. Lookup and persistence failures never abort the run; the
// only error returned is ctx's, with the records emitted so far.
func (o *Orchestrator) Run(ctx context.Context, entries []profile.WatchEntry) ([]profile.EnrichedRecord, error) {
	start := time.Now()
	summary := newSummary(uuid.NewString(), len(entries))
	logger := logging.ForRun(o.logger, summary.RunID)

	records := []profile.EnrichedRecord{}
	defer func() {
		summary.Emitted = len(records)
		summary.Duration = time.Since(start)
		vkRunDuration.Observe(summary.Duration.Seconds())
		o.setSummary(summary)
	}()

	if len(entries) == 0 {
		logger.Info().Msg("Nothing to enrich")
		return records, nil
	}

	logger.Info().Int("entries", len(entries)).Msg("Starting enrichment run")

	primary := o.fetcher.FetchPrimary(ctx, entries)
	summary.FailedGroups = primary.FailedGroups

	for _, e := range primary.Unresolved {
		vkEntriesTotal.WithLabelValues("unresolved").Inc()
		entryLog := logging.ForEntry(logger, e.LocalID, e.PlatformID)
		entryLog.Warn().Msg("Failed to get basic data - entry skipped")
	}
	summary.Unresolved = len(primary.Unresolved)

	if len(primary.Profiles) == 0 {
		summary.NoData = true
		logger.Warn().Msg("No primary profiles resolved - no data this run")
		o.pause(ctx, logger, o.config.FinalDelay)
		return records, ctx.Err()
	}

	for _, e := range entries {
		p, ok := primary.Profiles[e.PlatformID]
		if !ok {
			continue
		}
		if err := ctx.Err(); err != nil {
			logger.Warn().Err(err).Int("emitted", len(records)).Msg("Run interrupted")
			return records, err
		}

		summary.Resolved++
		vkEntriesTotal.WithLabelValues("resolved").Inc()

		entryLog := logging.ForEntry(logger, e.LocalID, e.PlatformID)
		rec := o.enrich(ctx, entryLog, e, p, &summary)

		if err := o.persister.Persist(ctx, e.LocalID, rec); err != nil {
			summary.PersistFailures++
			vkPersistFailuresTotal.Inc()
			entryLog.Error().Err(err).Msg("Failed to persist record")
		}

		records = append(records, rec)
		vkEntriesTotal.WithLabelValues("emitted").Inc()

		entryLog.Info().
			Str("name", rec.Name).
			Interface("friends", rec.FriendsCount).
			Interface("followers", rec.FollowersCount).
			Msg("Processed entry")

		o.pause(ctx, logger, o.config.EntryDelay)
	}

	o.pause(ctx, logger, o.config.FinalDelay)

	logger.Info().
		Int("resolved", summary.Resolved).
		Int("unresolved", summary.Unresolved).
		Int("emitted", len(records)).
		Int("persist_failures", summary.PersistFailures).
		Dur("duration", time.Since(start)).
		Msg("Enrichment run complete")

	return records, ctx.Err()
}

// enrich performs the five auxiliary lookups for one entry and merges them
// into a record seeded from the primary profile.
func (o *Orchestrator) enrich(ctx context.Context, logger zerolog.Logger, e profile.WatchEntry, p profile.PrimaryProfile, summary *Summary) profile.EnrichedRecord {
	rec := profile.NewEnrichedRecord(e, p)

	lookups := []struct {
		name Lookup
		fn   counterFunc
		dst  **int
	}{
		{LookupFriends, o.counters.FriendsCount, &rec.FriendsCount},
		{LookupFollowers, o.counters.FollowersCount, &rec.FollowersCount},
		{LookupSubscriptions, o.counters.SubscriptionsCount, &rec.SubscriptionsCount},
		{LookupGroups, o.counters.GroupsCount, &rec.GroupsCount},
		{LookupWall, o.counters.WallCount, &rec.WallCount},
	}

	for _, l := range lookups {
		out := runLookup(ctx, l.fn, e.PlatformID)
		summary.record(l.name, out)
		vkLookupOutcomesTotal.WithLabelValues(string(l.name), out.Kind()).Inc()

		event := logging.ForLookup(logger, string(l.name), out.Kind())

		switch v := out.(type) {
		case Success:
			count := v.Count
			*l.dst = &count
			event.Debug().Int("count", count).Msg("Lookup succeeded")
		case AccessDenied:
			event.Info().Int(logging.FieldErrorCode, v.Code).Msg("Counter hidden by privacy settings")
		case Transient:
			event.Warn().Err(v.Err).Msg("Lookup failed transiently")
		case Unexpected:
			event.Warn().Int(logging.FieldErrorCode, v.Code).Str("error_msg", v.Message).Msg("Lookup returned unexpected error")
		}
	}

	return rec
}

func (o *Orchestrator) pause(ctx context.Context, logger zerolog.Logger, d time.Duration) {
	if err := o.config.Pacer.Pause(ctx, d); err != nil {
		logger.Debug().Err(err).Msg("Pause interrupted")
	}
}

// LastSummary returns the summary of the most recent run.
func (o *Orchestrator) LastSummary() Summary {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.summary.clone()
}

func (o *Orchestrator) setSummary(s Summary) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.summary = s
}
