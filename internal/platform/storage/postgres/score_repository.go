package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/mmgclub/movienight/internal/domain"
)

// ScoreRepository persists per-round score records and their point-entry
// audit trail. Records are keyed by (round, participant) and overwritten in
// place; entries are regenerated wholesale.
type ScoreRepository struct {
	db *gorm.DB
}

func NewScoreRepository(db *gorm.DB) *ScoreRepository {
	return &ScoreRepository{db: db}
}

type scoreModel struct {
	ID             string    `gorm:"column:id;primaryKey"`
	RoundID        string    `gorm:"column:round_id;uniqueIndex:uniq_score_round_participant,priority:1"`
	ParticipantID  string    `gorm:"column:participant_id;uniqueIndex:uniq_score_round_participant,priority:2"`
	GuessPoints    int       `gorm:"column:guess_points"`
	KnownPoints    int       `gorm:"column:known_points"`
	UnseenPoints   int       `gorm:"column:unseen_points"`
	LikedPoints    int       `gorm:"column:liked_points"`
	DislikedPoints int       `gorm:"column:disliked_points"`
	TotalPoints    int       `gorm:"column:total_points"`
	Rank           int       `gorm:"column:rank"`
	AvgRating      float64   `gorm:"column:avg_rating"`
	Winner         bool      `gorm:"column:winner"`
	Finalized      bool      `gorm:"column:finalized"`
	UpdatedAt      time.Time `gorm:"column:updated_at"`
}

func (scoreModel) TableName() string {
	return "score_records"
}

type pointEntryModel struct {
	ID            string    `gorm:"column:id;primaryKey"`
	ScoreRecordID string    `gorm:"column:score_record_id;index"`
	Category      string    `gorm:"column:category"`
	Value         int       `gorm:"column:value"`
	Note          string    `gorm:"column:note"`
	CreatedAt     time.Time `gorm:"column:created_at"`
}

func (pointEntryModel) TableName() string {
	return "point_entries"
}

func (m scoreModel) toDomain() domain.ScoreRecord {
	return domain.ScoreRecord{
		ID:             domain.ScoreRecordID(m.ID),
		RoundID:        domain.RoundID(m.RoundID),
		ParticipantID:  domain.ParticipantID(m.ParticipantID),
		GuessPoints:    m.GuessPoints,
		KnownPoints:    m.KnownPoints,
		UnseenPoints:   m.UnseenPoints,
		LikedPoints:    m.LikedPoints,
		DislikedPoints: m.DislikedPoints,
		TotalPoints:    m.TotalPoints,
		Rank:           m.Rank,
		AvgRating:      m.AvgRating,
		Winner:         m.Winner,
		Finalized:      m.Finalized,
		UpdatedAt:      m.UpdatedAt,
	}
}

// Upsert overwrites the (round, participant) record if it exists, keeping
// its original id, and inserts it otherwise. The returned record carries the
// id the point entries must reference.
func (repo *ScoreRepository) Upsert(ctx context.Context, rec domain.ScoreRecord) (domain.ScoreRecord, error) {
	var existing scoreModel
	err := repo.db.WithContext(ctx).
		First(&existing, "round_id = ? AND participant_id = ?", rec.RoundID, rec.ParticipantID).Error

	switch {
	case err == nil:
		rec.ID = domain.ScoreRecordID(existing.ID)
		if updErr := repo.db.WithContext(ctx).Model(&scoreModel{}).
			Where("id = ?", existing.ID).
			Updates(map[string]any{
				"guess_points":    rec.GuessPoints,
				"known_points":    rec.KnownPoints,
				"unseen_points":   rec.UnseenPoints,
				"liked_points":    rec.LikedPoints,
				"disliked_points": rec.DislikedPoints,
				"total_points":    rec.TotalPoints,
				"rank":            rec.Rank,
				"avg_rating":      rec.AvgRating,
				"winner":          rec.Winner,
				"finalized":       rec.Finalized,
				"updated_at":      time.Now().UTC(),
			}).Error; updErr != nil {
			return domain.ScoreRecord{}, fmt.Errorf("gorm scores: update: %w", updErr)
		}
		return rec, nil

	case errors.Is(err, gorm.ErrRecordNotFound):
		model := scoreModel{
			ID:             string(rec.ID),
			RoundID:        string(rec.RoundID),
			ParticipantID:  string(rec.ParticipantID),
			GuessPoints:    rec.GuessPoints,
			KnownPoints:    rec.KnownPoints,
			UnseenPoints:   rec.UnseenPoints,
			LikedPoints:    rec.LikedPoints,
			DislikedPoints: rec.DislikedPoints,
			TotalPoints:    rec.TotalPoints,
			Rank:           rec.Rank,
			AvgRating:      rec.AvgRating,
			Winner:         rec.Winner,
			Finalized:      rec.Finalized,
			UpdatedAt:      time.Now().UTC(),
		}
		if insErr := repo.db.WithContext(ctx).Create(&model).Error; insErr != nil {
			return domain.ScoreRecord{}, fmt.Errorf("gorm scores: insert: %w", insErr)
		}
		return rec, nil

	default:
		return domain.ScoreRecord{}, fmt.Errorf("gorm scores: lookup: %w", err)
	}
}

func (repo *ScoreRepository) FindByRoundAndParticipant(ctx context.Context, roundID domain.RoundID, participantID domain.ParticipantID) (domain.ScoreRecord, error) {
	var model scoreModel
	if err := repo.db.WithContext(ctx).
		First(&model, "round_id = ? AND participant_id = ?", roundID, participantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ScoreRecord{}, domain.ErrNotFound
		}
		return domain.ScoreRecord{}, fmt.Errorf("gorm scores: find by pair: %w", err)
	}
	return model.toDomain(), nil
}

func (repo *ScoreRepository) ListByRound(ctx context.Context, roundID domain.RoundID) ([]domain.ScoreRecord, error) {
	var models []scoreModel
	if err := repo.db.WithContext(ctx).
		Where("round_id = ?", roundID).
		Order("rank ASC").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("gorm scores: list by round: %w", err)
	}

	result := make([]domain.ScoreRecord, len(models))
	for i, m := range models {
		result[i] = m.toDomain()
	}
	return result, nil
}

// ListFinalizedByParticipant feeds the all-time profile rebuild: only
// records of finalized rounds count.
func (repo *ScoreRepository) ListFinalizedByParticipant(ctx context.Context, participantID domain.ParticipantID) ([]domain.ScoreRecord, error) {
	var models []scoreModel
	if err := repo.db.WithContext(ctx).
		Joins("JOIN rounds ON rounds.id = score_records.round_id").
		Where("score_records.participant_id = ? AND rounds.finalized = ?", participantID, true).
		Order("rounds.number ASC").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("gorm scores: list finalized: %w", err)
	}

	result := make([]domain.ScoreRecord, len(models))
	for i, m := range models {
		result[i] = m.toDomain()
	}
	return result, nil
}

// ReplaceEntries deletes the record's old audit entries and inserts the new
// set, so a conclusion re-run never duplicates lines.
func (repo *ScoreRepository) ReplaceEntries(ctx context.Context, recordID domain.ScoreRecordID, entries []domain.PointEntry) error {
	if err := repo.db.WithContext(ctx).
		Where("score_record_id = ?", recordID).
		Delete(&pointEntryModel{}).Error; err != nil {
		return fmt.Errorf("gorm scores: delete entries: %w", err)
	}

	if len(entries) == 0 {
		return nil
	}

	models := make([]pointEntryModel, len(entries))
	for i, e := range entries {
		models[i] = pointEntryModel{
			ID:            string(e.ID),
			ScoreRecordID: string(recordID),
			Category:      string(e.Category),
			Value:         e.Value,
			Note:          e.Note,
			CreatedAt:     time.Now().UTC(),
		}
	}
	if err := repo.db.WithContext(ctx).Create(&models).Error; err != nil {
		return fmt.Errorf("gorm scores: insert entries: %w", err)
	}
	return nil
}

func (repo *ScoreRepository) ListEntries(ctx context.Context, recordID domain.ScoreRecordID) ([]domain.PointEntry, error) {
	var models []pointEntryModel
	if err := repo.db.WithContext(ctx).
		Where("score_record_id = ?", recordID).
		Order("id ASC").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("gorm scores: list entries: %w", err)
	}

	result := make([]domain.PointEntry, len(models))
	for i, m := range models {
		result[i] = domain.PointEntry{
			ID:            domain.PointEntryID(m.ID),
			ScoreRecordID: domain.ScoreRecordID(m.ScoreRecordID),
			Category:      domain.PointCategory(m.Category),
			Value:         m.Value,
			Note:          m.Note,
			CreatedAt:     m.CreatedAt,
		}
	}
	return result, nil
}

var _ domain.ScoreRepository = (*ScoreRepository)(nil)
