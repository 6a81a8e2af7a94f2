package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Sternrassler/vk-watch/pkg/profile"
	"github.com/redis/go-redis/v9"
)

// DefaultTTL is how long a record stays cached without being refreshed.
const DefaultTTL = 24 * time.Hour

var (
	// ErrCacheMiss indicates the requested key was not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates the cache entry is invalid or corrupted
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// Manager handles snapshot caching with a Redis backend.
type Manager struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewManager creates a new cache manager. A non-positive ttl selects DefaultTTL.
func NewManager(redisClient *redis.Client, ttl time.Duration) *Manager {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{
		redis: redisClient,
		ttl:   ttl,
	}
}

// Persist caches rec as the latest record of localID.
func (m *Manager) Persist(ctx context.Context, localID int64, rec profile.EnrichedRecord) error {
	now := time.Now()
	return m.Set(ctx, SnapshotKey{LocalID: localID}, &Entry{
		Record:   rec,
		CachedAt: now,
		Expires:  now.Add(m.ttl),
	})
}

// Get retrieves the cached record of localID.
// Returns ErrCacheMiss if the key doesn't exist or entry is expired.
func (m *Manager) Get(ctx context.Context, localID int64) (*Entry, error) {
	key := SnapshotKey{LocalID: localID}

	data, err := m.redis.Get(ctx, key.String()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			CacheMisses.Inc()
			return nil, ErrCacheMiss
		}
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}

	if entry.IsExpired() {
		_ = m.Delete(ctx, key)
		CacheMisses.Inc()
		return nil, ErrCacheMiss
	}

	CacheHits.Inc()
	return &entry, nil
}

// Set stores an entry with a TTL derived from its Expires field.
func (m *Manager) Set(ctx context.Context, key SnapshotKey, entry *Entry) error {
	if entry == nil {
		return fmt.Errorf("cache entry cannot be nil")
	}

	ttl := entry.TTL()
	if ttl <= 0 {
		return nil
	}

	data, err := json.Marshal(entry)
	if err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	if err := m.redis.Set(ctx, key.String(), data, ttl).Err(); err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("redis set: %w", err)
	}

	CacheWrites.Inc()
	return nil
}

// Delete removes a cache entry.
func (m *Manager) Delete(ctx context.Context, key SnapshotKey) error {
	if err := m.redis.Del(ctx, key.String()).Err(); err != nil {
		CacheErrors.WithLabelValues("delete").Inc()
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// LocalIDs lists the local ids that currently have a cached record.
func (m *Manager) LocalIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	iter := m.redis.Scan(ctx, 0, keyPrefix+":*", 100).Iterator()
	for iter.Next(ctx) {
		key, err := ParseSnapshotKey(iter.Val())
		if err != nil {
			continue
		}
		ids = append(ids, key.LocalID)
	}
	if err := iter.Err(); err != nil {
		CacheErrors.WithLabelValues("scan").Inc()
		return nil, fmt.Errorf("redis scan: %w", err)
	}
	return ids, nil
}
