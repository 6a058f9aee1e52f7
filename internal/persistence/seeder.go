package persistence

import (
	gormseeder "github.com/kachit/gorm-seeder"
	"gorm.io/gorm"
)

// FeedersSeeder seeds the feeders reference table from the static feeder
// list at startup, grounded on DMRHub's UsersSeeder/TalkgroupsSeeder shape
// (internal/db/models/user.go).
type FeedersSeeder struct {
	gormseeder.SeederAbstract
	rows []FeederRow
}

func NewFeedersSeeder(cfg gormseeder.SeederConfiguration, rows []FeederRow) FeedersSeeder {
	return FeedersSeeder{gormseeder.NewSeederAbstract(cfg), rows}
}

func (s *FeedersSeeder) Seed(db *gorm.DB) error {
	if len(s.rows) == 0 {
		return nil
	}
	return db.Save(&s.rows).Error //nolint:wrapcheck
}

func (s *FeedersSeeder) Clear(db *gorm.DB) error {
	return db.Where("1 = 1").Delete(&FeederRow{}).Error //nolint:wrapcheck
}
