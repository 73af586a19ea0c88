package ratelimit

import (
	"context"

	"github.com/mmgclub/movienight/internal/domain"
)

// Noop is the limiter used when poll throttling is switched off.
type Noop struct{}

func NewNoop() Noop {
	return Noop{}
}

func (Noop) Allow(ctx context.Context, id domain.ParticipantID) error {
	return nil
}

var _ domain.PollLimiter = Noop{}
