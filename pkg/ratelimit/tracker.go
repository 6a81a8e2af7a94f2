package ratelimit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Prometheus metrics for quota tracking.
var (
	vkQuotaBlocksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vk_quota_blocks_total",
		Help: "Total number of times a method was blocked after its quota was reached",
	}, []string{"method"})

	vkQuotaSkippedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vk_quota_skipped_requests_total",
		Help: "Total number of requests skipped because the method quota is exhausted",
	}, []string{"method"})
)

// Tracker remembers which remote methods hit their quota so later runs,
// possibly in other processes, skip them until the block expires.
// A Tracker with a nil Redis client allows everything.
type Tracker struct {
	redis  *redis.Client
	logger zerolog.Logger
}

// NewTracker creates a new quota tracker.
func NewTracker(redisClient *redis.Client, logger zerolog.Logger) *Tracker {
	return &Tracker{
		redis:  redisClient,
		logger: logger,
	}
}

// GetState retrieves the quota state for a method.
// Returns an unblocked state if nothing is stored.
func (t *Tracker) GetState(ctx context.Context, method string) (*QuotaState, error) {
	if t == nil || t.redis == nil {
		return &QuotaState{Method: method}, nil
	}

	data, err := t.redis.Get(ctx, quotaKey(method)).Bytes()
	if errors.Is(err, redis.Nil) {
		return &QuotaState{Method: method}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get quota state: %w", err)
	}

	var state QuotaState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parse quota state: %w", err)
	}
	return &state, nil
}

// Block marks a method as exhausted until the given time. The Redis key
// expires together with the block.
func (t *Tracker) Block(ctx context.Context, method, reason string, until time.Time) error {
	if t == nil || t.redis == nil {
		return nil
	}

	ttl := time.Until(until)
	if ttl <= 0 {
		return nil
	}

	state := QuotaState{Method: method, BlockedUntil: until, Reason: reason}
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal quota state: %w", err)
	}

	if err := t.redis.Set(ctx, quotaKey(method), data, ttl).Err(); err != nil {
		return fmt.Errorf("store quota state in redis: %w", err)
	}

	vkQuotaBlocksTotal.WithLabelValues(method).Inc()
	t.logger.Warn().
		Str("method", method).
		Time("blocked_until", until).
		Str("reason", reason).
		Msg("Method quota reached - calls will be skipped")

	return nil
}

// Allow reports whether a call to method may be issued now. Redis failures
// are returned to the caller, which decides whether to fail open.
func (t *Tracker) Allow(ctx context.Context, method string) (bool, error) {
	state, err := t.GetState(ctx, method)
	if err != nil {
		return false, fmt.Errorf("get quota state: %w", err)
	}

	if state.IsBlocked() {
		t.logger.Debug().
			Str("method", method).
			Dur("wait_duration", state.TimeUntilReset()).
			Msg("Method quota exhausted - skipping request")
		vkQuotaSkippedTotal.WithLabelValues(method).Inc()
		return false, nil
	}

	return true, nil
}
