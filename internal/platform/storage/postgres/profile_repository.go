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

// ProfileRepository stores the all-time counters, one row per participant.
// Save always writes the whole row: the rebuild is a wholesale overwrite.
type ProfileRepository struct {
	db *gorm.DB
}

func NewProfileRepository(db *gorm.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

type profileModel struct {
	ParticipantID  string    `gorm:"column:participant_id;primaryKey"`
	GuessPoints    int       `gorm:"column:guess_points"`
	KnownPoints    int       `gorm:"column:known_points"`
	UnseenPoints   int       `gorm:"column:unseen_points"`
	LikedPoints    int       `gorm:"column:liked_points"`
	DislikedPoints int       `gorm:"column:disliked_points"`
	TrophyPoints   int       `gorm:"column:trophy_points"`
	RoundsWon      int       `gorm:"column:rounds_won"`
	Admin          bool      `gorm:"column:admin"`
	UpdatedAt      time.Time `gorm:"column:updated_at"`
}

func (profileModel) TableName() string {
	return "profiles"
}

func (m profileModel) toDomain() domain.Profile {
	return domain.Profile{
		ParticipantID:  domain.ParticipantID(m.ParticipantID),
		GuessPoints:    m.GuessPoints,
		KnownPoints:    m.KnownPoints,
		UnseenPoints:   m.UnseenPoints,
		LikedPoints:    m.LikedPoints,
		DislikedPoints: m.DislikedPoints,
		TrophyPoints:   m.TrophyPoints,
		RoundsWon:      m.RoundsWon,
		Admin:          m.Admin,
		UpdatedAt:      m.UpdatedAt,
	}
}

func (repo *ProfileRepository) FindByParticipant(ctx context.Context, id domain.ParticipantID) (domain.Profile, error) {
	var model profileModel
	if err := repo.db.WithContext(ctx).First(&model, "participant_id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Profile{}, domain.ErrNotFound
		}
		return domain.Profile{}, fmt.Errorf("gorm profiles: find: %w", err)
	}
	return model.toDomain(), nil
}

func (repo *ProfileRepository) Save(ctx context.Context, p domain.Profile) error {
	model := profileModel{
		ParticipantID:  string(p.ParticipantID),
		GuessPoints:    p.GuessPoints,
		KnownPoints:    p.KnownPoints,
		UnseenPoints:   p.UnseenPoints,
		LikedPoints:    p.LikedPoints,
		DislikedPoints: p.DislikedPoints,
		TrophyPoints:   p.TrophyPoints,
		RoundsWon:      p.RoundsWon,
		Admin:          p.Admin,
		UpdatedAt:      time.Now().UTC(),
	}

	if err := repo.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "participant_id"}},
		UpdateAll: true,
	}).Create(&model).Error; err != nil {
		return fmt.Errorf("gorm profiles: save: %w", err)
	}
	return nil
}

func (repo *ProfileRepository) List(ctx context.Context) ([]domain.Profile, error) {
	var models []profileModel
	if err := repo.db.WithContext(ctx).
		Order("participant_id ASC").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("gorm profiles: list: %w", err)
	}

	result := make([]domain.Profile, len(models))
	for i, m := range models {
		result[i] = m.toDomain()
	}
	return result, nil
}

var _ domain.ProfileRepository = (*ProfileRepository)(nil)
