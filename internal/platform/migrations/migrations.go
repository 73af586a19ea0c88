// Package migrations centralizes the gormigrate versions applied at startup.
package migrations

import (
	"fmt"

	gormigrate "github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"

	"github.com/mmgclub/movienight/internal/domain"
)

func Run(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("migrations: nil db")
	}

	// gormigrate keeps schema versions explicit instead of relying on a bare
	// AutoMigrate in production.
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID: "202608120001_init_schema",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(
					&domain.Participant{},
					&domain.Round{},
					&domain.Movie{},
					&domain.RatingGuess{},
					&domain.Profile{},
				)
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(
					"rating_guesses", "movies", "round_participants", "rounds", "profiles", "participants",
				)
			},
		},
		{
			ID: "202608120002_score_records",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&domain.ScoreRecord{}, &domain.PointEntry{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("point_entries", "score_records")
			},
		},
	})

	if err := m.Migrate(); err != nil {
		return fmt.Errorf("migrations: apply failed: %w", err)
	}

	return nil
}
