package persistence

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// Migrate applies the persistence schema, grounded on DMRHub's
// internal/db/migration package (gormigrate.New + ordered migration ids).
func Migrate(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID: "202601010000_initial_tables",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&SignalingRecord{}, &CallSummary{}, &FeederRow{}) //nolint:wrapcheck
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&SignalingRecord{}, &CallSummary{}, &FeederRow{}) //nolint:wrapcheck
			},
		},
		{
			ID: "202601020000_dropped_frames_column",
			Migrate: func(tx *gorm.DB) error {
				if tx.Migrator().HasColumn(&CallSummary{}, "dropped_frames") {
					return nil
				}
				return tx.Migrator().AddColumn(&CallSummary{}, "DroppedFrames") //nolint:wrapcheck
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropColumn(&CallSummary{}, "DroppedFrames") //nolint:wrapcheck
			},
		},
	})

	return m.Migrate() //nolint:wrapcheck
}
