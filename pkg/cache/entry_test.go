package cache

import (
	"testing"
	"time"
)

func TestEntry_IsExpired(t *testing.T) {
	tests := []struct {
		name    string
		expires time.Time
		want    bool
	}{
		{
			name:    "expired entry",
			expires: time.Now().Add(-1 * time.Hour),
			want:    true,
		},
		{
			name:    "valid entry",
			expires: time.Now().Add(1 * time.Hour),
			want:    false,
		},
		{
			name:    "just expired",
			expires: time.Now().Add(-1 * time.Second),
			want:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := &Entry{
				Expires: tt.expires,
			}
			if got := entry.IsExpired(); got != tt.want {
				t.Errorf("IsExpired() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEntry_TTL(t *testing.T) {
	expired := &Entry{Expires: time.Now().Add(-time.Minute)}
	if got := expired.TTL(); got != 0 {
		t.Errorf("expired TTL() = %v, want 0", got)
	}

	valid := &Entry{Expires: time.Now().Add(time.Hour)}
	if got := valid.TTL(); got <= 59*time.Minute || got > time.Hour {
		t.Errorf("valid TTL() = %v, want ~1h", got)
	}
}

func TestEntry_Age(t *testing.T) {
	entry := &Entry{CachedAt: time.Now().Add(-10 * time.Minute)}
	if got := entry.Age(); got < 10*time.Minute || got > 11*time.Minute {
		t.Errorf("Age() = %v, want ~10m", got)
	}
}
