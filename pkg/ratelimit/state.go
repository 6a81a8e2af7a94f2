// Package ratelimit keeps the pipeline under the remote platform's request
// ceilings. It provides a shared token-bucket gate for every API call, fixed
// pacing pauses between pipeline steps, and a Redis-backed tracker for
// per-method quotas the platform reports as exhausted (error 29).
package ratelimit

import (
	"time"
)

// Redis key layout for quota state.
const (
	RedisKeyQuotaPrefix = "vk:quota:blocked:"
)

// Defaults for the platform's published limits.
const (
	// DefaultRequestsPerSecond is the platform's per-token ceiling for user tokens.
	DefaultRequestsPerSecond = 3

	// DefaultBurst allows a short run of calls before the gate starts spacing them.
	DefaultBurst = 1

	// QuotaBlockDuration is how long a method stays blocked after the platform
	// reports its quota as reached.
	QuotaBlockDuration = 1 * time.Hour
)

// QuotaState describes whether a method is currently blocked.
type QuotaState struct {
	// Method is the remote method name, e.g. "wall.get".
	Method string `json:"method"`

	// BlockedUntil is the moment calls may resume. Zero when not blocked.
	BlockedUntil time.Time `json:"blocked_until"`

	// Reason is the remote error message that triggered the block.
	Reason string `json:"reason,omitempty"`
}

// IsBlocked reports whether calls to the method must be skipped now.
func (s *QuotaState) IsBlocked() bool {
	return !s.BlockedUntil.IsZero() && time.Now().Before(s.BlockedUntil)
}

// TimeUntilReset returns the duration until the block lifts.
// Returns 0 if the block has already expired.
func (s *QuotaState) TimeUntilReset() time.Duration {
	duration := time.Until(s.BlockedUntil)
	if duration < 0 {
		return 0
	}
	return duration
}

func quotaKey(method string) string {
	return RedisKeyQuotaPrefix + method
}
