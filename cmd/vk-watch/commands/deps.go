package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/Sternrassler/vk-watch/internal/config"
	"github.com/Sternrassler/vk-watch/pkg/batch"
	"github.com/Sternrassler/vk-watch/pkg/cache"
	"github.com/Sternrassler/vk-watch/pkg/logging"
	"github.com/Sternrassler/vk-watch/pkg/pipeline"
	"github.com/Sternrassler/vk-watch/pkg/profile"
	"github.com/Sternrassler/vk-watch/pkg/ratelimit"
	"github.com/Sternrassler/vk-watch/pkg/store"
	"github.com/Sternrassler/vk-watch/pkg/vkapi"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// errNoWatchSource is returned when neither a database nor ad-hoc ids are given.
var errNoWatchSource = errors.New("DATABASE_URL is required unless ids are given on the command line")

// app holds the wired collaborators of one process.
type app struct {
	cfg       *config.Config
	pool      *pgxpool.Pool
	redis     *redis.Client
	postgres  *store.Postgres
	memory    *store.Memory
	cache     *cache.Manager
	watchList pipeline.WatchList
	pipeline  *pipeline.Orchestrator
}

// openStores connects to PostgreSQL (migrating the schema) and Redis when configured.
func openStores(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg}

	if cfg.DatabaseURL != "" {
		pool, err := store.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		a.pool = pool
		a.postgres = store.NewPostgres(pool)
		if err := a.postgres.Migrate(ctx); err != nil {
			a.Close()
			return nil, err
		}
	}

	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		a.redis = redis.NewClient(opts)
		if err := a.redis.Ping(ctx).Err(); err != nil {
			a.Close()
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		a.cache = cache.NewManager(a.redis, cfg.SnapshotTTL)
	}

	return a, nil
}

// newApp wires the full pipeline. Non-empty ids select a dry run: an
// in-memory watch list (local ids 1..n) and no durable sinks, so PostgreSQL
// is never opened and the snapshot cache is left untouched. Redis still
// backs the quota tracker.
func newApp(ctx context.Context, cfg *config.Config, ids []int64) (*app, error) {
	dryRun := len(ids) > 0
	if !dryRun && cfg.DatabaseURL == "" {
		return nil, errNoWatchSource
	}

	storeCfg := cfg
	if dryRun {
		c := *cfg
		c.DatabaseURL = ""
		storeCfg = &c
	}

	a, err := openStores(ctx, storeCfg)
	if err != nil {
		return nil, err
	}

	clientCfg := cfg.ClientConfig()
	if a.redis != nil {
		clientCfg.Quota = ratelimit.NewTracker(a.redis, logging.NewLogger("quota"))
	}
	client, err := vkapi.New(clientCfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	fetcher := batch.NewFetcher(client, batch.Config{
		BatchSize: vkapi.MaxUsersPerCall,
		Cooldown:  cfg.BatchCooldown,
	})

	var persisters []store.Persister
	if dryRun {
		a.memory = store.NewMemory(entriesFromIDs(ids)...)
		a.watchList = a.memory
		persisters = append(persisters, a.memory)
	} else {
		a.watchList = a.postgres
		persisters = append(persisters, a.postgres)
		if a.cache != nil {
			persisters = append(persisters, a.cache)
		}
	}

	a.pipeline = pipeline.New(fetcher, client, store.Fanout(persisters...), pipeline.Config{
		EntryDelay: cfg.EntryDelay,
		FinalDelay: cfg.FinalDelay,
	}, logging.NewLogger("pipeline"))

	return a, nil
}

// ready pings the configured backends.
func (a *app) ready(ctx context.Context) error {
	if a.pool != nil {
		if err := a.pool.Ping(ctx); err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
	}
	if a.redis != nil {
		if err := a.redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}

// Close releases every connection.
func (a *app) Close() {
	if a.pool != nil {
		a.pool.Close()
	}
	if a.redis != nil {
		a.redis.Close()
	}
}

// entriesFromIDs numbers ad-hoc platform ids 1..n, dropping duplicates.
func entriesFromIDs(ids []int64) []profile.WatchEntry {
	seen := make(map[int64]bool, len(ids))
	entries := make([]profile.WatchEntry, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		entries = append(entries, profile.WatchEntry{LocalID: int64(len(entries) + 1), PlatformID: id})
	}
	return entries
}
