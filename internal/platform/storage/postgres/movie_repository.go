package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/mmgclub/movienight/internal/domain"
)

type MovieRepository struct {
	db *gorm.DB
}

func NewMovieRepository(db *gorm.DB) *MovieRepository {
	return &MovieRepository{db: db}
}

type movieModel struct {
	ID         string    `gorm:"column:id;primaryKey"`
	RoundID    string    `gorm:"column:round_id;index"`
	Title      string    `gorm:"column:title"`
	Year       int       `gorm:"column:year"`
	WatchedAt  time.Time `gorm:"column:watched_at"`
	Slug       string    `gorm:"column:slug"`
	ChosenByID *string   `gorm:"column:chosen_by_id"`
	CreatedAt  time.Time `gorm:"column:created_at"`
}

func (movieModel) TableName() string {
	return "movies"
}

func (m movieModel) toDomain() domain.Movie {
	movie := domain.Movie{
		ID:        domain.MovieID(m.ID),
		RoundID:   domain.RoundID(m.RoundID),
		Title:     m.Title,
		Year:      m.Year,
		WatchedAt: m.WatchedAt,
		Slug:      m.Slug,
		CreatedAt: m.CreatedAt,
	}
	if m.ChosenByID != nil {
		chooser := domain.ParticipantID(*m.ChosenByID)
		movie.ChosenByID = &chooser
	}
	return movie
}

func (repo *MovieRepository) Create(ctx context.Context, m domain.Movie) error {
	model := movieModel{
		ID:        string(m.ID),
		RoundID:   string(m.RoundID),
		Title:     m.Title,
		Year:      m.Year,
		WatchedAt: m.WatchedAt,
		Slug:      m.Slug,
		CreatedAt: m.CreatedAt,
	}
	if m.Slug == "" {
		model.Slug = domain.Slugify(m.Title)
	}
	if err := repo.db.WithContext(ctx).Create(&model).Error; err != nil {
		return fmt.Errorf("gorm movies: insert: %w", err)
	}
	return nil
}

func (repo *MovieRepository) FindByID(ctx context.Context, id domain.MovieID) (domain.Movie, error) {
	var model movieModel
	if err := repo.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Movie{}, domain.ErrNotFound
		}
		return domain.Movie{}, fmt.Errorf("gorm movies: find by id: %w", err)
	}
	return model.toDomain(), nil
}

func (repo *MovieRepository) ListByRound(ctx context.Context, roundID domain.RoundID) ([]domain.Movie, error) {
	var models []movieModel
	if err := repo.db.WithContext(ctx).
		Where("round_id = ?", roundID).
		Order("watched_at ASC, id ASC").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("gorm movies: list by round: %w", err)
	}

	result := make([]domain.Movie, len(models))
	for i, m := range models {
		result[i] = m.toDomain()
	}
	return result, nil
}

func (repo *MovieRepository) SetChosenBy(ctx context.Context, id domain.MovieID, chooser domain.ParticipantID) error {
	if err := repo.db.WithContext(ctx).Model(&movieModel{}).
		Where("id = ?", id).
		Update("chosen_by_id", string(chooser)).Error; err != nil {
		return fmt.Errorf("gorm movies: set chosen by: %w", err)
	}
	return nil
}

var _ domain.MovieRepository = (*MovieRepository)(nil)
