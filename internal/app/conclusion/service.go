// Package conclusion drives the round finalize workflow: score, persist,
// crown a winner, rebuild all-time profiles and reset the reveal party.
package conclusion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mmgclub/movienight/internal/app/scoring"
	"github.com/mmgclub/movienight/internal/domain"
	"github.com/mmgclub/movienight/internal/platform/ids"
	"github.com/mmgclub/movienight/internal/platform/metrics"
)

type Status string

const (
	StatusNotReady  Status = "not_ready"
	StatusConcluded Status = "concluded"
)

// Outcome is what a conclusion attempt reports back. NotReady is a normal
// answer during an in-progress round, not a failure.
type Outcome struct {
	Status  Status
	Missing []string
	Winner  domain.ParticipantID
	Ranking []domain.ParticipantID
}

// Service sequences the conclude steps. Every persistence step is an
// idempotent overwrite, so re-running after a partial failure self-heals.
type Service struct {
	rounds   domain.RoundRepository
	movies   domain.MovieRepository
	ratings  domain.RatingRepository
	scores   domain.ScoreRepository
	profiles domain.ProfileRepository
	party    domain.PartyStateStore
	clock    domain.Clock
	weights  scoring.Weights
	ids      *ids.Generator
	logger   *slog.Logger
}

func NewService(
	rounds domain.RoundRepository,
	movies domain.MovieRepository,
	ratings domain.RatingRepository,
	scores domain.ScoreRepository,
	profiles domain.ProfileRepository,
	party domain.PartyStateStore,
	clock domain.Clock,
	weights scoring.Weights,
	idsGen *ids.Generator,
	logger *slog.Logger,
) *Service {
	if idsGen == nil {
		idsGen = ids.DefaultGenerator()
	}
	return &Service{
		rounds:   rounds,
		movies:   movies,
		ratings:  ratings,
		scores:   scores,
		profiles: profiles,
		party:    party,
		clock:    clock,
		weights:  weights,
		ids:      idsGen,
		logger:   logger,
	}
}

// Conclude finalizes a round. Safe to call repeatedly: score records are
// overwritten in place and point entries are regenerated wholesale.
func (s *Service) Conclude(ctx context.Context, roundID domain.RoundID, callerID domain.ParticipantID) (Outcome, error) {
	start := time.Now()

	if err := s.requireAdmin(ctx, callerID); err != nil {
		metrics.ObserveConcludeRun("denied")
		return Outcome{}, err
	}

	round, err := s.rounds.FindByID(ctx, roundID)
	if err != nil {
		metrics.ObserveConcludeRun("error")
		return Outcome{}, err
	}

	movies, err := s.movies.ListByRound(ctx, round.ID)
	if err != nil {
		metrics.ObserveConcludeRun("error")
		return Outcome{}, err
	}
	guesses, err := s.ratings.ListByRound(ctx, round.ID)
	if err != nil {
		metrics.ObserveConcludeRun("error")
		return Outcome{}, err
	}

	result, err := scoring.Compute(round, movies, guesses, s.weights)
	if err != nil {
		var incomplete *scoring.IncompleteDataError
		if errors.As(err, &incomplete) {
			// Expected mid-round state; nothing has been written yet.
			metrics.ObserveConcludeRun("not_ready")
			return Outcome{Status: StatusNotReady, Missing: incomplete.Missing}, nil
		}
		metrics.ObserveConcludeRun("error")
		return Outcome{}, err
	}

	// Writes start only after scoring succeeded.
	for _, participantID := range result.Ranking {
		if err := s.persistBreakdown(ctx, round.ID, result.Breakdowns[participantID]); err != nil {
			metrics.ObserveConcludeRun("error")
			return Outcome{}, err
		}
	}

	now := s.clock.Now()
	winner := result.Ranking[0]
	round.Finalized = true
	round.FinishedAt = &now
	round.WinnerID = &winner
	if err := s.rounds.Update(ctx, round); err != nil {
		metrics.ObserveConcludeRun("error")
		return Outcome{}, err
	}

	s.cacheChoosers(ctx, movies, guesses)

	for _, p := range round.Participants {
		if err := s.RebuildProfile(ctx, p.ID); err != nil {
			metrics.ObserveConcludeRun("error")
			return Outcome{}, err
		}
	}

	// Fresh reveal sequence: step zero, eligible immediately.
	if err := s.party.Set(ctx, domain.PartyState{StepIndex: 0, NextTime: now}); err != nil {
		metrics.ObserveConcludeRun("error")
		return Outcome{}, err
	}

	metrics.ObserveConcludeRun("concluded")
	metrics.ObserveConcludeDuration(time.Since(start).Seconds())
	s.logger.Info("round concluded", "round", round.ID, "number", round.Number, "winner", winner)

	return Outcome{Status: StatusConcluded, Winner: winner, Ranking: result.Ranking}, nil
}

// RebuildProfile rescans every finalized score record for the participant
// and overwrites the cumulative counters wholesale. The rescan keeps the
// operation idempotent; an incremental update would double-count on re-run.
func (s *Service) RebuildProfile(ctx context.Context, participantID domain.ParticipantID) error {
	profile, err := s.profiles.FindByParticipant(ctx, participantID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		profile = domain.Profile{ParticipantID: participantID}
	}

	records, err := s.scores.ListFinalizedByParticipant(ctx, participantID)
	if err != nil {
		return err
	}

	profile.GuessPoints = 0
	profile.KnownPoints = 0
	profile.UnseenPoints = 0
	profile.LikedPoints = 0
	profile.DislikedPoints = 0
	profile.TrophyPoints = 0
	profile.RoundsWon = 0

	for _, rec := range records {
		profile.GuessPoints += rec.GuessPoints
		profile.KnownPoints += rec.KnownPoints
		profile.UnseenPoints += rec.UnseenPoints
		profile.LikedPoints += rec.LikedPoints
		profile.DislikedPoints += rec.DislikedPoints
		profile.TrophyPoints += rec.TotalPoints
		if rec.Winner {
			profile.RoundsWon++
		}
	}

	return s.profiles.Save(ctx, profile)
}

func (s *Service) persistBreakdown(ctx context.Context, roundID domain.RoundID, b *scoring.Breakdown) error {
	rec, err := s.scores.Upsert(ctx, domain.ScoreRecord{
		ID:             domain.ScoreRecordID(s.ids.New()),
		RoundID:        roundID,
		ParticipantID:  b.ParticipantID,
		GuessPoints:    b.GuessPoints,
		KnownPoints:    b.KnownPoints,
		UnseenPoints:   b.UnseenPoints,
		LikedPoints:    b.LikedPoints,
		DislikedPoints: b.DislikedPoints,
		TotalPoints:    b.TotalPoints,
		Rank:           b.Rank,
		AvgRating:      b.AvgRating,
		Winner:         b.Winner,
		Finalized:      true,
	})
	if err != nil {
		return fmt.Errorf("conclusion: upsert score for %s: %w", b.ParticipantID, err)
	}

	entries := make([]domain.PointEntry, len(b.Entries))
	for i, e := range b.Entries {
		entries[i] = domain.PointEntry{
			ID:            domain.PointEntryID(s.ids.New()),
			ScoreRecordID: rec.ID,
			Category:      e.Category,
			Value:         e.Value,
			Note:          e.Note,
		}
	}
	if err := s.scores.ReplaceEntries(ctx, rec.ID, entries); err != nil {
		return fmt.Errorf("conclusion: replace entries for %s: %w", b.ParticipantID, err)
	}
	return nil
}

// cacheChoosers fills each movie's chosen-by reference from its IsOwnMovie
// rating row. A movie without one is logged and skipped, not fatal.
func (s *Service) cacheChoosers(ctx context.Context, movies []domain.Movie, guesses []domain.RatingGuess) {
	owners := make(map[domain.MovieID]domain.ParticipantID, len(movies))
	for _, g := range guesses {
		if g.IsOwnMovie {
			owners[g.MovieID] = g.ParticipantID
		}
	}

	for _, m := range movies {
		owner, ok := owners[m.ID]
		if !ok {
			s.logger.Warn("movie has no identifiable chooser", "movie", m.ID, "title", m.Title)
			continue
		}
		if err := s.movies.SetChosenBy(ctx, m.ID, owner); err != nil {
			s.logger.Warn("failed to cache movie chooser", "movie", m.ID, "err", err)
		}
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
