package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/mmgclub/movienight/internal/domain"
)

// RoundRepository maps the round aggregate (round row + roster join rows)
// onto GORM tables.
type RoundRepository struct {
	db *gorm.DB
}

func NewRoundRepository(db *gorm.DB) *RoundRepository {
	return &RoundRepository{db: db}
}

type roundModel struct {
	ID         string     `gorm:"column:id;primaryKey"`
	Number     int        `gorm:"column:number"`
	Active     bool       `gorm:"column:active"`
	Finalized  bool       `gorm:"column:finalized"`
	StartedAt  time.Time  `gorm:"column:started_at"`
	FinishedAt *time.Time `gorm:"column:finished_at"`
	WinnerID   *string    `gorm:"column:winner_id"`
	CreatedAt  time.Time  `gorm:"column:created_at"`
	UpdatedAt  time.Time  `gorm:"column:updated_at"`
}

func (roundModel) TableName() string {
	return "rounds"
}

type roundParticipantModel struct {
	RoundID       string `gorm:"column:round_id;primaryKey"`
	ParticipantID string `gorm:"column:participant_id;primaryKey"`
}

func (roundParticipantModel) TableName() string {
	return "round_participants"
}

func (m roundModel) toDomain(roster []domain.Participant) domain.Round {
	r := domain.Round{
		ID:           domain.RoundID(m.ID),
		Number:       m.Number,
		Active:       m.Active,
		Finalized:    m.Finalized,
		StartedAt:    m.StartedAt,
		FinishedAt:   m.FinishedAt,
		Participants: roster,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
	if m.WinnerID != nil {
		winner := domain.ParticipantID(*m.WinnerID)
		r.WinnerID = &winner
	}
	return r
}

func fromDomainRound(r domain.Round) roundModel {
	m := roundModel{
		ID:         string(r.ID),
		Number:     r.Number,
		Active:     r.Active,
		Finalized:  r.Finalized,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
	if r.WinnerID != nil {
		winner := string(*r.WinnerID)
		m.WinnerID = &winner
	}
	return m
}

func (repo *RoundRepository) Create(ctx context.Context, r domain.Round) error {
	model := fromDomainRound(r)
	if err := repo.db.WithContext(ctx).Create(&model).Error; err != nil {
		return fmt.Errorf("gorm rounds: insert: %w", err)
	}

	for _, p := range r.Participants {
		join := roundParticipantModel{RoundID: string(r.ID), ParticipantID: string(p.ID)}
		if err := repo.db.WithContext(ctx).Create(&join).Error; err != nil {
			return fmt.Errorf("gorm rounds: insert roster row: %w", err)
		}
	}
	return nil
}

func (repo *RoundRepository) Update(ctx context.Context, r domain.Round) error {
	model := fromDomainRound(r)
	if err := repo.db.WithContext(ctx).Model(&roundModel{}).
		Where("id = ?", model.ID).
		Updates(map[string]any{
			"number":      model.Number,
			"active":      model.Active,
			"finalized":   model.Finalized,
			"started_at":  model.StartedAt,
			"finished_at": model.FinishedAt,
			"winner_id":   model.WinnerID,
			"updated_at":  model.UpdatedAt,
		}).Error; err != nil {
		return fmt.Errorf("gorm rounds: update: %w", err)
	}
	return nil
}

func (repo *RoundRepository) FindByID(ctx context.Context, id domain.RoundID) (domain.Round, error) {
	var model roundModel
	if err := repo.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Round{}, domain.ErrNotFound
		}
		return domain.Round{}, fmt.Errorf("gorm rounds: find by id: %w", err)
	}

	roster, err := repo.roster(ctx, model.ID)
	if err != nil {
		return domain.Round{}, err
	}
	return model.toDomain(roster), nil
}

func (repo *RoundRepository) FindByNumber(ctx context.Context, number int) (domain.Round, error) {
	var model roundModel
	if err := repo.db.WithContext(ctx).First(&model, "number = ?", number).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Round{}, domain.ErrNotFound
		}
		return domain.Round{}, fmt.Errorf("gorm rounds: find by number: %w", err)
	}

	roster, err := repo.roster(ctx, model.ID)
	if err != nil {
		return domain.Round{}, err
	}
	return model.toDomain(roster), nil
}

// ActiveRound relies on the at-most-one-active invariant; with several
// active rows the newest one wins deterministically.
func (repo *RoundRepository) ActiveRound(ctx context.Context) (domain.Round, error) {
	var model roundModel
	if err := repo.db.WithContext(ctx).
		Where("active = ?", true).
		Order("number DESC").
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Round{}, domain.ErrNotFound
		}
		return domain.Round{}, fmt.Errorf("gorm rounds: find active: %w", err)
	}

	roster, err := repo.roster(ctx, model.ID)
	if err != nil {
		return domain.Round{}, err
	}
	return model.toDomain(roster), nil
}

func (repo *RoundRepository) List(ctx context.Context) ([]domain.Round, error) {
	var models []roundModel
	if err := repo.db.WithContext(ctx).
		Order("number ASC").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("gorm rounds: list: %w", err)
	}

	result := make([]domain.Round, len(models))
	for i, model := range models {
		result[i] = model.toDomain(nil)
	}
	return result, nil
}

func (repo *RoundRepository) roster(ctx context.Context, roundID string) ([]domain.Participant, error) {
	var models []participantModel
	if err := repo.db.WithContext(ctx).
		Joins("JOIN round_participants rp ON rp.participant_id = participants.id").
		Where("rp.round_id = ?", roundID).
		Order("participants.id ASC").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("gorm rounds: load roster: %w", err)
	}

	roster := make([]domain.Participant, len(models))
	for i, m := range models {
		roster[i] = m.toDomain()
	}
	return roster, nil
}

var _ domain.RoundRepository = (*RoundRepository)(nil)
