// Package store provides the watch-list source and the persistence sinks of
// the enrichment pipeline: PostgreSQL for durable snapshots, an in-memory
// store for tests and dry runs, and a fan-out persister combining several.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Sternrassler/vk-watch/pkg/profile"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ErrUnknownEntry is returned by Persist when the local id is not on the watch list.
var ErrUnknownEntry = errors.New("unknown watch entry")

// NewPool creates a connection pool and verifies connectivity.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	// The pipeline writes one record at a time; a small pool is plenty.
	poolConfig.MaxConns = 4
	poolConfig.MinConns = 1
	poolConfig.MaxConnLifetime = 1 * time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

// Postgres stores the watch list and the append-only snapshot history.
type Postgres struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewPostgres creates a store on top of an existing pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{
		pool:   pool,
		logger: log.With().Str("component", "store").Logger(),
	}
}

// LoadWatchEntries returns the non-archived watch list ordered by local id.
func (p *Postgres) LoadWatchEntries(ctx context.Context) ([]profile.WatchEntry, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, vk_id
		FROM vk_users
		WHERE NOT archived
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query watch list: %w", err)
	}

	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (profile.WatchEntry, error) {
		var e profile.WatchEntry
		err := row.Scan(&e.LocalID, &e.PlatformID)
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan watch list: %w", err)
	}

	p.logger.Debug().Int("entries", len(entries)).Msg("Loaded watch list")
	return entries, nil
}

// AddWatchEntry puts a platform id on the watch list, un-archiving it if it
// was archived, and returns its local id.
func (p *Postgres) AddWatchEntry(ctx context.Context, platformID int64) (int64, error) {
	var localID int64
	err := p.pool.QueryRow(ctx, `
		INSERT INTO vk_users (vk_id)
		VALUES ($1)
		ON CONFLICT (vk_id) DO UPDATE SET archived = FALSE, updated_at = NOW()
		RETURNING id`, platformID).Scan(&localID)
	if err != nil {
		return 0, fmt.Errorf("add watch entry %d: %w", platformID, err)
	}
	return localID, nil
}

// Persist appends a snapshot row for rec and refreshes the display fields of
// the watch-list row, in one transaction.
func (p *Postgres) Persist(ctx context.Context, localID int64, rec profile.EnrichedRecord) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE vk_users
		SET name = $2, domain = $3, photo_200 = $4, updated_at = NOW()
		WHERE id = $1`,
		localID, rec.Name, rec.Domain, rec.Photo200)
	if err != nil {
		return fmt.Errorf("update watch entry %d: %w", localID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("persist %d: %w", localID, ErrUnknownEntry)
	}

	var lastSeen *time.Time
	var lastSeenPlatform *int
	if rec.LastSeen != nil {
		at := rec.LastSeen.At().UTC()
		lastSeen = &at
		if rec.LastSeen.Platform != 0 {
			platform := rec.LastSeen.Platform
			lastSeenPlatform = &platform
		}
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO vk_user_snapshots (
			user_id, online, last_seen, last_seen_platform, city, bdate, relation, photo_200,
			friends_count, followers_count, subscriptions_count, groups_count, wall_count,
			friends_count_from_counters, photos_count
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		localID, rec.Online, lastSeen, lastSeenPlatform, rec.City, rec.BirthDate, rec.Relation, rec.Photo200,
		rec.FriendsCount, rec.FollowersCount, rec.SubscriptionsCount, rec.GroupsCount, rec.WallCount,
		rec.FriendsCountFromCounters, rec.PhotosCount)
	if err != nil {
		return fmt.Errorf("insert snapshot %d: %w", localID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit snapshot %d: %w", localID, err)
	}
	return nil
}

// LatestSnapshots returns, for every non-archived entry with at least one
// snapshot, the most recent one, ordered by local id.
func (p *Postgres) LatestSnapshots(ctx context.Context) ([]Snapshot, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT DISTINCT ON (u.id)
			u.id, u.vk_id, u.name, u.domain, s.captured_at, s.online, s.last_seen, s.last_seen_platform, s.city,
			s.bdate, s.relation,
			s.photo_200, s.friends_count, s.followers_count, s.subscriptions_count, s.groups_count, s.wall_count,
			s.friends_count_from_counters, s.photos_count
		FROM vk_users u
		JOIN vk_user_snapshots s ON s.user_id = u.id
		WHERE NOT u.archived
		ORDER BY u.id, s.captured_at DESC, s.id DESC`)
	if err != nil {
		return nil, fmt.Errorf("query latest snapshots: %w", err)
	}

	snapshots, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Snapshot, error) {
		var s Snapshot
		var lastSeen *time.Time
		var lastSeenPlatform *int
		r := &s.Record
		err := row.Scan(
			&r.LocalID, &r.PlatformID, &r.Name, &r.Domain, &s.CapturedAt, &r.Online, &lastSeen, &lastSeenPlatform,
			&r.City, &r.BirthDate, &r.Relation, &r.Photo200, &r.FriendsCount, &r.FollowersCount, &r.SubscriptionsCount,
			&r.GroupsCount, &r.WallCount, &r.FriendsCountFromCounters, &r.PhotosCount,
		)
		if lastSeen != nil {
			r.LastSeen = &profile.LastSeen{Time: lastSeen.Unix()}
			if lastSeenPlatform != nil {
				r.LastSeen.Platform = *lastSeenPlatform
			}
		}
		return s, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan latest snapshots: %w", err)
	}
	return snapshots, nil
}

// Snapshot is one persisted record with its capture time.
type Snapshot struct {
	CapturedAt time.Time
	Record     profile.EnrichedRecord
}
