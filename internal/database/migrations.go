package database

import (
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	migrationLowercaseMemberEmails = "2025-03-01_lowercase_member_emails"
	migrationLowercaseSlideTypes   = "2025-03-12_lowercase_slide_types"
)

type migrationRecord struct {
	Name             string `gorm:"column:name;primaryKey;size:190;not null"`
	AppliedAtSeconds int64  `gorm:"column:applied_at_s;not null"`
}

func (migrationRecord) TableName() string {
	return "db_migrations"
}

type migrationDefinition struct {
	name  string
	apply func(*gorm.DB) error
}

func applyMigrations(db *gorm.DB, logger *zap.Logger) error {
	migrations := []migrationDefinition{
		{name: migrationLowercaseMemberEmails, apply: lowercaseMemberEmails},
		{name: migrationLowercaseSlideTypes, apply: lowercaseSlideTypes},
	}

	for _, migration := range migrations {
		var record migrationRecord
		err := db.Where("name = ?", migration.name).Take(&record).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := migration.apply(db); err != nil {
			return err
		}
		appliedAt := time.Now().UTC().Unix()
		if err := db.Create(&migrationRecord{Name: migration.name, AppliedAtSeconds: appliedAt}).Error; err != nil {
			return err
		}
		if logger != nil {
			logger.Info("database migration applied", zap.String("migration", migration.name))
		}
	}
	return nil
}

// Accounts imported before signup normalized addresses may carry mixed case.
func lowercaseMemberEmails(db *gorm.DB) error {
	return db.Exec("UPDATE members SET email = LOWER(TRIM(email)) WHERE email <> LOWER(TRIM(email))").Error
}

// Partitions compare slide types exactly; rows written by older admin tools used "MAIN" and "AD".
func lowercaseSlideTypes(db *gorm.DB) error {
	return db.Exec("UPDATE slides SET slide_type = LOWER(TRIM(slide_type)) WHERE slide_type <> LOWER(TRIM(slide_type))").Error
}
