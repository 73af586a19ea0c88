package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mmgclub/movienight/internal/domain"
)

// PresenceStore records "who is watching" pings as per-participant keys with
// a TTL, so stale viewers expire on their own instead of needing a sweeper.
type PresenceStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewPresenceStore(client *redis.Client, prefix string, ttl time.Duration) *PresenceStore {
	if prefix == "" {
		prefix = "party"
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &PresenceStore{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (s *PresenceStore) Ping(ctx context.Context, id domain.ParticipantID, at time.Time) error {
	if err := s.client.Set(ctx, s.key(id), at.UTC().Format(time.RFC3339Nano), s.ttl).Err(); err != nil {
		return fmt.Errorf("redis presence: ping: %w", err)
	}
	return nil
}

// ListActive scans the presence keyspace. The key count is bounded by the
// roster size, so a SCAN per poll is cheap.
func (s *PresenceStore) ListActive(ctx context.Context) ([]domain.Presence, error) {
	pattern := fmt.Sprintf("%s:who:*", s.prefix)
	var result []domain.Presence

	iter := s.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		raw, err := s.client.Get(ctx, key).Result()
		if err == redis.Nil {
			// Expired between scan and get.
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("redis presence: get %s: %w", key, err)
		}

		at, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return nil, fmt.Errorf("redis presence: invalid timestamp for %s: %w", key, err)
		}

		id := strings.TrimPrefix(key, fmt.Sprintf("%s:who:", s.prefix))
		result = append(result, domain.Presence{
			ParticipantID: domain.ParticipantID(id),
			LastPing:      at,
		})
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis presence: scan: %w", err)
	}

	return result, nil
}

func (s *PresenceStore) key(id domain.ParticipantID) string {
	return fmt.Sprintf("%s:who:%s", s.prefix, id)
}

var _ domain.PresenceStore = (*PresenceStore)(nil)
