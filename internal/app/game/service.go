// Package game implements the round-facing rules: browsing rounds, submitting
// rating/guess cards, and reading finalized results.
package game

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/mmgclub/movienight/internal/domain"
	"github.com/mmgclub/movienight/internal/platform/ids"
	"github.com/mmgclub/movienight/internal/platform/metrics"
)

var (
	ErrRoundClosed       = errors.New("round is not open for submissions")
	ErrInvalidRating     = errors.New("star rating must be between 1 and 5")
	ErrNotParticipant    = errors.New("caller is not in the round roster")
	ErrRoundNotFinalized = errors.New("round is not finalized")
)

// RatingForm carries one participant's card for one movie.
type RatingForm struct {
	IsOwnMovie       bool
	SeenPreviously   bool
	HeardOf          bool
	StarRating       int
	GuessedChooserID *domain.ParticipantID
	Comments         string
}

// ResultRow pairs a finalized score record with its audit entries.
type ResultRow struct {
	Record  domain.ScoreRecord
	Entries []domain.PointEntry
}

// Member is a participant together with their all-time profile.
type Member struct {
	Participant domain.Participant
	Profile     domain.Profile
}

type Service struct {
	rounds       domain.RoundRepository
	participants domain.ParticipantRepository
	movies       domain.MovieRepository
	ratings      domain.RatingRepository
	scores       domain.ScoreRepository
	profiles     domain.ProfileRepository
	ids          *ids.Generator
}

func NewService(
	rounds domain.RoundRepository,
	participants domain.ParticipantRepository,
	movies domain.MovieRepository,
	ratings domain.RatingRepository,
	scores domain.ScoreRepository,
	profiles domain.ProfileRepository,
	idsGen *ids.Generator,
) *Service {
	if idsGen == nil {
		idsGen = ids.DefaultGenerator()
	}
	return &Service{
		rounds:       rounds,
		participants: participants,
		movies:       movies,
		ratings:      ratings,
		scores:       scores,
		profiles:     profiles,
		ids:          idsGen,
	}
}

func (s *Service) ListRounds(ctx context.Context) ([]domain.Round, error) {
	return s.rounds.List(ctx)
}

// GetRound returns the round with its movie list loaded.
func (s *Service) GetRound(ctx context.Context, id domain.RoundID) (domain.Round, []domain.Movie, error) {
	round, err := s.rounds.FindByID(ctx, id)
	if err != nil {
		return domain.Round{}, nil, err
	}
	movies, err := s.movies.ListByRound(ctx, round.ID)
	if err != nil {
		return domain.Round{}, nil, err
	}
	return round, movies, nil
}

func (s *Service) ActiveRound(ctx context.Context) (domain.Round, error) {
	return s.rounds.ActiveRound(ctx)
}

// SubmitRating upserts the caller's card for a movie in the active round.
// Re-submitting replaces the previous card; a card marked as the caller's
// own movie never carries a chooser guess.
func (s *Service) SubmitRating(ctx context.Context, callerID domain.ParticipantID, movieID domain.MovieID, form RatingForm) error {
	if form.StarRating < 1 || form.StarRating > 5 {
		return ErrInvalidRating
	}

	movie, err := s.movies.FindByID(ctx, movieID)
	if err != nil {
		return err
	}

	round, err := s.rounds.FindByID(ctx, movie.RoundID)
	if err != nil {
		return err
	}
	if round.Finalized || !round.Active {
		return ErrRoundClosed
	}
	if !inRoster(round.Participants, callerID) {
		return ErrNotParticipant
	}

	guess := form.GuessedChooserID
	if form.IsOwnMovie {
		// Choosers do not guess their own movie.
		guess = nil
	}

	rg := domain.RatingGuess{
		ID:               domain.RatingID(s.ids.New()),
		ParticipantID:    callerID,
		MovieID:          movieID,
		IsOwnMovie:       form.IsOwnMovie,
		SeenPreviously:   form.SeenPreviously,
		HeardOf:          form.HeardOf,
		StarRating:       form.StarRating,
		GuessedChooserID: guess,
		Comments:         form.Comments,
	}

	if err := s.ratings.Upsert(ctx, rg); err != nil {
		return fmt.Errorf("game: upsert rating for %s/%s: %w", callerID, movieID, err)
	}

	metrics.IncRatingSubmitted()
	return nil
}

// Results returns a finalized round's score records in rank order, each with
// its point entries.
func (s *Service) Results(ctx context.Context, roundID domain.RoundID) ([]ResultRow, error) {
	round, err := s.rounds.FindByID(ctx, roundID)
	if err != nil {
		return nil, err
	}
	if !round.Finalized {
		return nil, ErrRoundNotFinalized
	}

	records, err := s.scores.ListByRound(ctx, round.ID)
	if err != nil {
		return nil, err
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Rank < records[j].Rank })

	rows := make([]ResultRow, len(records))
	for i, rec := range records {
		entries, err := s.scores.ListEntries(ctx, rec.ID)
		if err != nil {
			return nil, err
		}
		rows[i] = ResultRow{Record: rec, Entries: entries}
	}
	return rows, nil
}

// Members lists every participant with their all-time profile. Participants
// without a profile yet get a zero one rather than being dropped.
func (s *Service) Members(ctx context.Context) ([]Member, error) {
	participants, err := s.participants.List(ctx)
	if err != nil {
		return nil, err
	}

	profiles, err := s.profiles.List(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[domain.ParticipantID]domain.Profile, len(profiles))
	for _, p := range profiles {
		byID[p.ParticipantID] = p
	}

	members := make([]Member, len(participants))
	for i, p := range participants {
		profile, ok := byID[p.ID]
		if !ok {
			profile = domain.Profile{ParticipantID: p.ID}
		}
		members[i] = Member{Participant: p, Profile: profile}
	}
	return members, nil
}

func inRoster(roster []domain.Participant, id domain.ParticipantID) bool {
	for _, p := range roster {
		if p.ID == id {
			return true
		}
	}
	return false
}
