package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/mmgclub/movienight/internal/domain"
)

type ParticipantRepository struct {
	db *gorm.DB
}

func NewParticipantRepository(db *gorm.DB) *ParticipantRepository {
	return &ParticipantRepository{db: db}
}

type participantModel struct {
	ID        string    `gorm:"column:id;primaryKey"`
	Name      string    `gorm:"column:name"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (participantModel) TableName() string {
	return "participants"
}

func (m participantModel) toDomain() domain.Participant {
	return domain.Participant{
		ID:        domain.ParticipantID(m.ID),
		Name:      m.Name,
		CreatedAt: m.CreatedAt,
	}
}

func (repo *ParticipantRepository) Create(ctx context.Context, p domain.Participant) error {
	model := participantModel{ID: string(p.ID), Name: p.Name, CreatedAt: p.CreatedAt}
	if err := repo.db.WithContext(ctx).Create(&model).Error; err != nil {
		return fmt.Errorf("gorm participants: insert: %w", err)
	}
	return nil
}

func (repo *ParticipantRepository) FindByID(ctx context.Context, id domain.ParticipantID) (domain.Participant, error) {
	var model participantModel
	if err := repo.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Participant{}, domain.ErrNotFound
		}
		return domain.Participant{}, fmt.Errorf("gorm participants: find by id: %w", err)
	}
	return model.toDomain(), nil
}

func (repo *ParticipantRepository) List(ctx context.Context) ([]domain.Participant, error) {
	var models []participantModel
	if err := repo.db.WithContext(ctx).
		Order("name ASC").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("gorm participants: list: %w", err)
	}

	result := make([]domain.Participant, len(models))
	for i, m := range models {
		result[i] = m.toDomain()
	}
	return result, nil
}

var _ domain.ParticipantRepository = (*ParticipantRepository)(nil)
