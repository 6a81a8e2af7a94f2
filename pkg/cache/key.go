package cache

import (
	"fmt"
	"strconv"
	"strings"
)

// keyPrefix namespaces every snapshot key.
const keyPrefix = "vk:snapshot"

// SnapshotKey identifies the cached record of one watch entry.
type SnapshotKey struct {
	// LocalID is the watch entry's durable key.
	LocalID int64
}

// String generates the Redis key.
// Format: vk:snapshot:<local_id>
//
// Example:
//
//	vk:snapshot:42
func (k SnapshotKey) String() string {
	return fmt.Sprintf("%s:%d", keyPrefix, k.LocalID)
}

// ParseSnapshotKey is the inverse of SnapshotKey.String.
func ParseSnapshotKey(s string) (SnapshotKey, error) {
	raw, ok := strings.CutPrefix(s, keyPrefix+":")
	if !ok {
		return SnapshotKey{}, fmt.Errorf("not a snapshot key: %q", s)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return SnapshotKey{}, fmt.Errorf("parse snapshot key %q: %w", s, err)
	}
	return SnapshotKey{LocalID: id}, nil
}
