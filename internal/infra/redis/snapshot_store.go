package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"quiz-session-engine/internal/domain"
)

// SnapshotStore persists attempt snapshots in Redis so an attempt survives a
// reconnect against any instance. Writes are best-effort: a failed save is
// logged and swallowed, never returned, because losing a snapshot must not
// break a running attempt.
type SnapshotStore struct {
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger
}

func NewSnapshotStore(client *redis.Client, ttl time.Duration, log *zap.Logger) *SnapshotStore {
	return &SnapshotStore{client: client, ttl: ttl, log: log}
}

func (s *SnapshotStore) Save(ctx context.Context, userID string, snap domain.Snapshot) {
	data, err := json.Marshal(snap)
	if err != nil {
		s.log.Warn("snapshot marshal failed", zap.String("userId", userID), zap.Error(err))
		return
	}
	if err := s.client.Set(ctx, s.key(userID), data, s.ttl).Err(); err != nil {
		s.log.Warn("snapshot save failed", zap.String("userId", userID), zap.Error(err))
	}
}

func (s *SnapshotStore) Load(ctx context.Context, userID string) (domain.Snapshot, bool) {
	data, err := s.client.Get(ctx, s.key(userID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			s.log.Warn("snapshot load failed", zap.String("userId", userID), zap.Error(err))
		}
		return domain.Snapshot{}, false
	}
	var snap domain.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		// A snapshot that no longer deserializes is treated as absent.
		s.log.Warn("snapshot unmarshal failed", zap.String("userId", userID), zap.Error(err))
		return domain.Snapshot{}, false
	}
	return snap, true
}

func (s *SnapshotStore) Clear(ctx context.Context, userID string) {
	if err := s.client.Del(ctx, s.key(userID)).Err(); err != nil {
		s.log.Warn("snapshot clear failed", zap.String("userId", userID), zap.Error(err))
	}
}

func (s *SnapshotStore) key(userID string) string {
	return "quiz:attempt:" + userID
}
