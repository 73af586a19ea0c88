package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mmgclub/movienight/internal/domain"
)

// RatingRepository stores the per-participant, per-movie rating cards. The
// (participant, movie) pair is unique; Upsert replaces in place.
type RatingRepository struct {
	db *gorm.DB
}

func NewRatingRepository(db *gorm.DB) *RatingRepository {
	return &RatingRepository{db: db}
}

type ratingModel struct {
	ID               string    `gorm:"column:id;primaryKey"`
	ParticipantID    string    `gorm:"column:participant_id;uniqueIndex:uniq_rating_participant_movie,priority:1"`
	MovieID          string    `gorm:"column:movie_id;uniqueIndex:uniq_rating_participant_movie,priority:2"`
	IsOwnMovie       bool      `gorm:"column:is_own_movie"`
	SeenPreviously   bool      `gorm:"column:seen_previously"`
	HeardOf          bool      `gorm:"column:heard_of"`
	StarRating       int       `gorm:"column:star_rating"`
	GuessedChooserID *string   `gorm:"column:guessed_chooser_id"`
	Comments         string    `gorm:"column:comments"`
	CreatedAt        time.Time `gorm:"column:created_at"`
	UpdatedAt        time.Time `gorm:"column:updated_at"`
}

func (ratingModel) TableName() string {
	return "rating_guesses"
}

func (m ratingModel) toDomain() domain.RatingGuess {
	rg := domain.RatingGuess{
		ID:             domain.RatingID(m.ID),
		ParticipantID:  domain.ParticipantID(m.ParticipantID),
		MovieID:        domain.MovieID(m.MovieID),
		IsOwnMovie:     m.IsOwnMovie,
		SeenPreviously: m.SeenPreviously,
		HeardOf:        m.HeardOf,
		StarRating:     m.StarRating,
		Comments:       m.Comments,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
	if m.GuessedChooserID != nil {
		guess := domain.ParticipantID(*m.GuessedChooserID)
		rg.GuessedChooserID = &guess
	}
	return rg
}

func fromDomainRating(rg domain.RatingGuess) ratingModel {
	m := ratingModel{
		ID:             string(rg.ID),
		ParticipantID:  string(rg.ParticipantID),
		MovieID:        string(rg.MovieID),
		IsOwnMovie:     rg.IsOwnMovie,
		SeenPreviously: rg.SeenPreviously,
		HeardOf:        rg.HeardOf,
		StarRating:     rg.StarRating,
		Comments:       rg.Comments,
		CreatedAt:      rg.CreatedAt,
		UpdatedAt:      rg.UpdatedAt,
	}
	if rg.GuessedChooserID != nil {
		guess := string(*rg.GuessedChooserID)
		m.GuessedChooserID = &guess
	}
	return m
}

// Upsert inserts the card or, when the (participant, movie) pair already
// exists, overwrites its mutable fields while keeping the original row id.
func (repo *RatingRepository) Upsert(ctx context.Context, rg domain.RatingGuess) error {
	model := fromDomainRating(rg)
	now := time.Now().UTC()
	if model.CreatedAt.IsZero() {
		model.CreatedAt = now
	}
	model.UpdatedAt = now

	if err := repo.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "participant_id"}, {Name: "movie_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"is_own_movie", "seen_previously", "heard_of", "star_rating",
			"guessed_chooser_id", "comments", "updated_at",
		}),
	}).Create(&model).Error; err != nil {
		return fmt.Errorf("gorm ratings: upsert: %w", err)
	}
	return nil
}

func (repo *RatingRepository) FindByParticipantAndMovie(ctx context.Context, participantID domain.ParticipantID, movieID domain.MovieID) (domain.RatingGuess, error) {
	var model ratingModel
	if err := repo.db.WithContext(ctx).
		First(&model, "participant_id = ? AND movie_id = ?", participantID, movieID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.RatingGuess{}, domain.ErrNotFound
		}
		return domain.RatingGuess{}, fmt.Errorf("gorm ratings: find by pair: %w", err)
	}
	return model.toDomain(), nil
}

func (repo *RatingRepository) ListByMovie(ctx context.Context, movieID domain.MovieID) ([]domain.RatingGuess, error) {
	var models []ratingModel
	if err := repo.db.WithContext(ctx).
		Where("movie_id = ?", movieID).
		Order("participant_id ASC").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("gorm ratings: list by movie: %w", err)
	}
	return ratingsToDomain(models), nil
}

// ListByRound joins through movies so the scoring engine gets every card of
// the round in one query.
func (repo *RatingRepository) ListByRound(ctx context.Context, roundID domain.RoundID) ([]domain.RatingGuess, error) {
	var models []ratingModel
	if err := repo.db.WithContext(ctx).
		Joins("JOIN movies ON movies.id = rating_guesses.movie_id").
		Where("movies.round_id = ?", roundID).
		Order("rating_guesses.participant_id ASC, rating_guesses.movie_id ASC").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("gorm ratings: list by round: %w", err)
	}
	return ratingsToDomain(models), nil
}

func ratingsToDomain(models []ratingModel) []domain.RatingGuess {
	result := make([]domain.RatingGuess, len(models))
	for i, m := range models {
		result[i] = m.toDomain()
	}
	return result
}

var _ domain.RatingRepository = (*RatingRepository)(nil)
