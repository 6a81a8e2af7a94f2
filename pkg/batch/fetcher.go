package batch

import (
	"context"
	"time"

	"github.com/Sternrassler/vk-watch/pkg/profile"
	"github.com/Sternrassler/vk-watch/pkg/ratelimit"
	"github.com/Sternrassler/vk-watch/pkg/vkapi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
)

var vkBatchGroupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "vk_batch_groups_total",
	Help: "Total bulk lookup groups by status",
}, []string{"status"})

// Config holds batch fetcher configuration
type Config struct {
	// BatchSize is the maximum number of ids per call.
	BatchSize int
	// Cooldown is the pause after a failed group before the next one.
	Cooldown time.Duration
	// Pacer performs the cooldown pause.
	Pacer ratelimit.Pacer
}

// DefaultConfig returns the configuration matching the platform's limits
func DefaultConfig() Config {
	return Config{
		BatchSize: vkapi.MaxUsersPerCall,
		Cooldown:  1 * time.Second,
	}
}

// UsersFetcher is the bulk lookup the platform client must implement
type UsersFetcher interface {
	UsersGet(ctx context.Context, ids []int64) ([]profile.PrimaryProfile, error)
}

// Result is the outcome of one FetchPrimary call
type Result struct {
	// Profiles maps platform id to the primary profile.
	Profiles map[int64]profile.PrimaryProfile
	// Unresolved lists, in input order, entries absent from every response.
	Unresolved []profile.WatchEntry
	// Groups is the number of calls issued; FailedGroups how many of them errored.
	Groups       int
	FailedGroups int
}

// Fetcher resolves watch entries into primary profiles in batches
type Fetcher struct {
	users  UsersFetcher
	config Config
}

// NewFetcher creates a new batch fetcher
func NewFetcher(users UsersFetcher, config Config) *Fetcher {
	if config.BatchSize <= 0 || config.BatchSize > vkapi.MaxUsersPerCall {
		config.BatchSize = vkapi.MaxUsersPerCall
	}
	if config.Cooldown < 0 {
		config.Cooldown = 0
	}

	return &Fetcher{
		users:  users,
		config: config,
	}
}

// FetchPrimary resolves all entries. It never returns an error: call-level
// failures surface as unresolved entries and a non-zero FailedGroups.
func (f *Fetcher) FetchPrimary(ctx context.Context, entries []profile.WatchEntry) Result {
	start := time.Now()
	result := Result{Profiles: make(map[int64]profile.PrimaryProfile, len(entries))}

	for i := 0; i < len(entries); i += f.config.BatchSize {
		end := min(i+f.config.BatchSize, len(entries))
		group := entries[i:end]

		ids := make([]int64, len(group))
		for j, e := range group {
			ids[j] = e.PlatformID
		}

		log.Info().
			Int("group", result.Groups+1).
			Int("size", len(ids)).
			Msg("Requesting primary profiles")

		result.Groups++
		users, err := f.users.UsersGet(ctx, ids)
		if err != nil {
			result.FailedGroups++
			vkBatchGroupsTotal.WithLabelValues("failed").Inc()
			log.Warn().
				Err(err).
				Int("group", result.Groups).
				Int("size", len(ids)).
				Str("error_class", string(vkapi.Classify(err))).
				Msg("Primary lookup failed - group unresolved")

			if err := f.config.Pacer.Pause(ctx, f.config.Cooldown); err != nil {
				log.Debug().Err(err).Msg("Cooldown interrupted")
			}
			continue
		}

		vkBatchGroupsTotal.WithLabelValues("ok").Inc()
		for _, u := range users {
			result.Profiles[u.ID] = u
		}
	}

	for _, e := range entries {
		if _, ok := result.Profiles[e.PlatformID]; !ok {
			result.Unresolved = append(result.Unresolved, e)
		}
	}

	log.Info().
		Int("entries", len(entries)).
		Int("resolved", len(entries)-len(result.Unresolved)).
		Int("groups", result.Groups).
		Int("failed_groups", result.FailedGroups).
		Dur("duration", time.Since(start)).
		Msg("Primary fetch complete")

	return result
}
