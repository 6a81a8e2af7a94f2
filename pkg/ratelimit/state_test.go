package ratelimit

import (
	"testing"
	"time"
)

func TestQuotaState_IsBlocked(t *testing.T) {
	tests := []struct {
		name         string
		blockedUntil time.Time
		want         bool
	}{
		{
			name:         "zero time is not blocked",
			blockedUntil: time.Time{},
			want:         false,
		},
		{
			name:         "future block",
			blockedUntil: time.Now().Add(10 * time.Minute),
			want:         true,
		},
		{
			name:         "expired block",
			blockedUntil: time.Now().Add(-1 * time.Second),
			want:         false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := &QuotaState{Method: "wall.get", BlockedUntil: tt.blockedUntil}
			if got := state.IsBlocked(); got != tt.want {
				t.Errorf("IsBlocked() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestQuotaState_TimeUntilReset(t *testing.T) {
	tests := []struct {
		name         string
		blockedUntil time.Time
		wantMin      time.Duration
		wantMax      time.Duration
	}{
		{
			name:         "one minute remaining",
			blockedUntil: time.Now().Add(1 * time.Minute),
			wantMin:      59 * time.Second,
			wantMax:      61 * time.Second,
		},
		{
			name:         "already reset",
			blockedUntil: time.Now().Add(-1 * time.Minute),
			wantMin:      0,
			wantMax:      0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := &QuotaState{BlockedUntil: tt.blockedUntil}
			got := state.TimeUntilReset()
			if got < tt.wantMin || got > tt.wantMax {
				t.Errorf("TimeUntilReset() = %v, want between %v and %v", got, tt.wantMin, tt.wantMax)
			}
		})
	}
}

func TestQuotaKey(t *testing.T) {
	if got, want := quotaKey("groups.get"), "vk:quota:blocked:groups.get"; got != want {
		t.Errorf("quotaKey() = %q, want %q", got, want)
	}
}
