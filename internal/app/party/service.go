// Package party keeps every connected viewer on the same reveal step: one
// shared cursor, a pacing timestamp, and presence pings for the watcher list.
package party

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/mmgclub/movienight/internal/domain"
	"github.com/mmgclub/movienight/internal/platform/metrics"
)

// ErrStaleStep rejects an advance that would move the cursor backwards.
var ErrStaleStep = errors.New("party step behind current state")

// StateName is the coarse phase derived from the step cursor.
type StateName string

const (
	StateNotStarted StateName = "not_started"
	StateInProgress StateName = "in_progress"
	StateComplete   StateName = "complete"
)

// Snapshot is what a polling client renders from.
type Snapshot struct {
	StepIndex  int               `json:"step_index"`
	ServerTime time.Time         `json:"server_time"`
	NextTime   time.Time         `json:"next_time"`
	Watchers   []domain.Presence `json:"watchers"`
}

type Service struct {
	rounds   domain.RoundRepository
	movies   domain.MovieRepository
	profiles domain.ProfileRepository
	state    domain.PartyStateStore
	presence domain.PresenceStore
	clock    domain.Clock
	delay    time.Duration
}

func NewService(
	rounds domain.RoundRepository,
	movies domain.MovieRepository,
	profiles domain.ProfileRepository,
	state domain.PartyStateStore,
	presence domain.PresenceStore,
	clock domain.Clock,
	delay time.Duration,
) *Service {
	if delay <= 0 {
		delay = 2 * time.Second
	}
	return &Service{
		rounds:   rounds,
		movies:   movies,
		profiles: profiles,
		state:    state,
		presence: presence,
		clock:    clock,
		delay:    delay,
	}
}

// Advance moves the shared cursor to newStep. Admin only; the cursor never
// moves backwards, and each advance pushes the next-eligible time out by the
// pacing delay so racing admins cannot rush the room.
func (s *Service) Advance(ctx context.Context, callerID domain.ParticipantID, newStep int) error {
	if err := s.requireAdmin(ctx, callerID); err != nil {
		metrics.ObservePartyAdvance("denied")
		return err
	}

	current, err := s.state.Get(ctx)
	if err != nil {
		metrics.ObservePartyAdvance("error")
		return err
	}
	if newStep < current.StepIndex {
		metrics.ObservePartyAdvance("stale")
		return ErrStaleStep
	}

	now := s.clock.Now()
	if err := s.state.Set(ctx, domain.PartyState{StepIndex: newStep, NextTime: now.Add(s.delay)}); err != nil {
		metrics.ObservePartyAdvance("error")
		return err
	}

	if err := s.presence.Ping(ctx, callerID, now); err != nil {
		metrics.ObservePartyAdvance("error")
		return err
	}

	metrics.ObservePartyAdvance("ok")
	return nil
}

// Poll refreshes the caller's presence and returns the current state. The
// next-eligible time is clamped so clients never compute a negative wait.
func (s *Service) Poll(ctx context.Context, callerID domain.ParticipantID) (Snapshot, error) {
	now := s.clock.Now()

	if err := s.presence.Ping(ctx, callerID, now); err != nil {
		return Snapshot{}, err
	}

	state, err := s.state.Get(ctx)
	if err != nil {
		return Snapshot{}, err
	}

	next := state.NextTime
	if next.Before(now) {
		next = now
	}

	watchers, err := s.presence.ListActive(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	sort.Slice(watchers, func(i, j int) bool { return watchers[i].ParticipantID < watchers[j].ParticipantID })

	metrics.IncPartyPoll()
	return Snapshot{
		StepIndex:  state.StepIndex,
		ServerTime: now,
		NextTime:   next,
		Watchers:   watchers,
	}, nil
}

// Gate reports whether viewers of the round's results should be redirected
// into the live party: only while the round is finalized and the reveal
// sequence has steps left.
func (s *Service) Gate(ctx context.Context, roundID domain.RoundID) (bool, error) {
	round, err := s.rounds.FindByID(ctx, roundID)
	if err != nil {
		return false, err
	}
	if !round.Finalized {
		return false, nil
	}

	movies, err := s.movies.ListByRound(ctx, round.ID)
	if err != nil {
		return false, err
	}

	state, err := s.state.Get(ctx)
	if err != nil {
		return false, err
	}

	return state.StepIndex <= len(movies), nil
}

// Status names the phase for a given cursor position and movie count.
func Status(stepIndex, movieCount int) StateName {
	switch {
	case stepIndex <= 0:
		return StateNotStarted
	case stepIndex <= movieCount:
		return StateInProgress
	default:
		return StateComplete
	}
}

func (s *Service) requireAdmin(ctx context.Context, callerID domain.ParticipantID) error {
	profile, err := s.profiles.FindByParticipant(ctx, callerID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrPermissionDenied
		}
		return err
	}
	if !profile.Admin {
		return domain.ErrPermissionDenied
	}
	return nil
}
