package database

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/hjyouh/books/backend/internal/members"
	"github.com/hjyouh/books/backend/internal/slides"
	sqlite "github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func TestApplyMigrationsNormalizesLegacyRows(testContext *testing.T) {
	tempDir := testContext.TempDir()
	databasePath := filepath.Join(tempDir, "migration.db")

	database, err := gorm.Open(sqlite.Open(databasePath), &gorm.Config{})
	if err != nil {
		testContext.Fatalf("failed to open sqlite: %v", err)
	}

	if err := database.AutoMigrate(&slides.Slide{}, &members.Member{}, &migrationRecord{}); err != nil {
		testContext.Fatalf("failed to migrate schema: %v", err)
	}

	now := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	legacyMember := members.Member{ID: "member-1", Email: " Reader@Example.com", PasswordHash: "hash", Role: members.RoleMember, CreatedAt: now, UpdatedAt: now}
	if err := database.Create(&legacyMember).Error; err != nil {
		testContext.Fatalf("failed to insert member: %v", err)
	}
	legacySlide := slides.Slide{ID: "slide-1", Type: slides.SlideType("MAIN"), IsActive: true, Order: 1, CreatedAt: now, UpdatedAt: now}
	if err := database.Create(&legacySlide).Error; err != nil {
		testContext.Fatalf("failed to insert slide: %v", err)
	}

	if err := applyMigrations(database, zap.NewNop()); err != nil {
		testContext.Fatalf("failed to apply migrations: %v", err)
	}

	var storedMember members.Member
	if err := database.Where("id = ?", legacyMember.ID).Take(&storedMember).Error; err != nil {
		testContext.Fatalf("failed to reload member: %v", err)
	}
	if storedMember.Email != "reader@example.com" {
		testContext.Fatalf("expected lower-cased email, got %q", storedMember.Email)
	}

	var storedSlide slides.Slide
	if err := database.Where("id = ?", legacySlide.ID).Take(&storedSlide).Error; err != nil {
		testContext.Fatalf("failed to reload slide: %v", err)
	}
	if storedSlide.Type != slides.SlideTypeMain {
		testContext.Fatalf("expected lower-cased slide type, got %q", storedSlide.Type)
	}

	for _, name := range []string{migrationLowercaseMemberEmails, migrationLowercaseSlideTypes} {
		var record migrationRecord
		if err := database.Where("name = ?", name).Take(&record).Error; err != nil {
			testContext.Fatalf("expected migration record %s to be created: %v", name, err)
		}
		if record.AppliedAtSeconds == 0 {
			testContext.Fatalf("expected migration timestamp to be set")
		}
	}

	if err := applyMigrations(database, zap.NewNop()); err != nil {
		testContext.Fatalf("re-running migrations must be a no-op: %v", err)
	}
}

func TestOpenSQLiteCreatesSchema(testContext *testing.T) {
	databasePath := filepath.Join(testContext.TempDir(), "books.db")

	database, err := OpenSQLite(databasePath, zap.NewNop())
	if err != nil {
		testContext.Fatalf("failed to open database: %v", err)
	}
	sqlDB, err := database.DB()
	if err != nil {
		testContext.Fatalf("failed to access sql db: %v", err)
	}
	defer sqlDB.Close()

	for _, table := range []string{"slides", "books", "members", "review_applications", "db_migrations"} {
		if !database.Migrator().HasTable(table) {
			testContext.Fatalf("expected table %s to exist", table)
		}
	}

	if _, err := OpenSQLite("", nil); err == nil {
		testContext.Fatalf("expected an error for an empty path")
	}
}
