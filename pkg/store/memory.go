package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/Sternrassler/vk-watch/pkg/profile"
)

// Memory is an in-process watch list and snapshot store.
type Memory struct {
	mu        sync.RWMutex
	entries   []profile.WatchEntry
	snapshots map[int64][]profile.EnrichedRecord
}

// NewMemory creates a memory store holding entries as its watch list.
func NewMemory(entries ...profile.WatchEntry) *Memory {
	return &Memory{
		entries:   append([]profile.WatchEntry(nil), entries...),
		snapshots: make(map[int64][]profile.EnrichedRecord),
	}
}

// LoadWatchEntries returns a copy of the watch list.
func (m *Memory) LoadWatchEntries(context.Context) ([]profile.WatchEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]profile.WatchEntry(nil), m.entries...), nil
}

// Persist appends rec to the history of localID.
func (m *Memory) Persist(_ context.Context, localID int64, rec profile.EnrichedRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	known := false
	for _, e := range m.entries {
		if e.LocalID == localID {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("persist %d: %w", localID, ErrUnknownEntry)
	}

	m.snapshots[localID] = append(m.snapshots[localID], rec)
	return nil
}

// Snapshots returns the persisted history of localID, oldest first.
func (m *Memory) Snapshots(localID int64) []profile.EnrichedRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]profile.EnrichedRecord(nil), m.snapshots[localID]...)
}

// Latest returns the most recent snapshot of localID.
func (m *Memory) Latest(localID int64) (profile.EnrichedRecord, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	history := m.snapshots[localID]
	if len(history) == 0 {
		return profile.EnrichedRecord{}, false
	}
	return history[len(history)-1], true
}
