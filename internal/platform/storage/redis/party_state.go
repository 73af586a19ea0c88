package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/mmgclub/movienight/internal/domain"
)

// PartyStateStore keeps the reveal cursor under one fixed key. A single
// explicit record, not a "most recent row wins" table, so concurrent writers
// degrade to plain last-write-wins.
type PartyStateStore struct {
	client *redis.Client
	prefix string
}

func NewPartyStateStore(client *redis.Client, prefix string) *PartyStateStore {
	if prefix == "" {
		prefix = "party"
	}
	return &PartyStateStore{
		client: client,
		prefix: prefix,
	}
}

// Get returns the zero state when nothing has been written yet; a party that
// never started is simply at step 0.
func (s *PartyStateStore) Get(ctx context.Context) (domain.PartyState, error) {
	raw, err := s.client.Get(ctx, s.key()).Result()
	if errors.Is(err, redis.Nil) {
		return domain.PartyState{}, nil
	}
	if err != nil {
		return domain.PartyState{}, fmt.Errorf("redis party state: get: %w", err)
	}

	var state domain.PartyState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return domain.PartyState{}, fmt.Errorf("redis party state: invalid payload: %w", err)
	}
	return state, nil
}

func (s *PartyStateStore) Set(ctx context.Context, state domain.PartyState) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("redis party state: marshal: %w", err)
	}
	if err := s.client.Set(ctx, s.key(), payload, 0).Err(); err != nil {
		return fmt.Errorf("redis party state: set: %w", err)
	}
	return nil
}

func (s *PartyStateStore) key() string {
	return fmt.Sprintf("%s:state", s.prefix)
}

var _ domain.PartyStateStore = (*PartyStateStore)(nil)
