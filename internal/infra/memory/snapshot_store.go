package memory

import (
	"context"
	"sync"

	"quiz-session-engine/internal/domain"
)

// SnapshotStore is an in-memory implementation of app.SnapshotStore, used in
// tests and when no Redis is configured.
type SnapshotStore struct {
	mu        sync.RWMutex
	snapshots map[string]domain.Snapshot
}

func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{
		snapshots: make(map[string]domain.Snapshot),
	}
}

func (s *SnapshotStore) Save(_ context.Context, userID string, snap domain.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[userID] = snap
}

func (s *SnapshotStore) Load(_ context.Context, userID string) (domain.Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.snapshots[userID]
	return snap, ok
}

func (s *SnapshotStore) Clear(_ context.Context, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.snapshots, userID)
}
