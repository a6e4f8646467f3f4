package database

import (
	"testing"

	"gorm.io/gorm"

	"github.com/laundrypro/server/internal/models"
)

func TestOpenSQLiteMemory(t *testing.T) {
	db := openTestDB(t)

	if err := db.Exec("SELECT 1").Error; err != nil {
		t.Fatalf("expected health query to succeed: %v", err)
	}
}

func TestAutoMigrateAndSeedData(t *testing.T) {
	db := openTestDB(t)

	if err := AutoMigrateAndSeed(db); err != nil {
		t.Fatalf("auto migrate and seed failed: %v", err)
	}

	var templateCount int64
	if err := db.Model(&models.MessageTemplate{}).Count(&templateCount).Error; err != nil {
		t.Fatalf("count templates: %v", err)
	}
	if templateCount < 8 {
		t.Fatalf("expected at least 8 seeded templates, got %d", templateCount)
	}

	var approvedCount int64
	if err := db.Model(&models.MessageTemplate{}).
		Where("is_active = ? AND is_approved = ?", true, true).
		Count(&approvedCount).Error; err != nil {
		t.Fatalf("count approved templates: %v", err)
	}
	if approvedCount != templateCount {
		t.Fatalf("expected every seeded template to be active and approved, got %d of %d", approvedCount, templateCount)
	}
}

func TestSeedDataIsIdempotent(t *testing.T) {
	db := openTestDB(t)

	if err := AutoMigrateAndSeed(db); err != nil {
		t.Fatalf("first seed failed: %v", err)
	}

	var before int64
	if err := db.Model(&models.MessageTemplate{}).Count(&before).Error; err != nil {
		t.Fatalf("count templates: %v", err)
	}

	if err := SeedData(db); err != nil {
		t.Fatalf("second seed failed: %v", err)
	}

	var after int64
	if err := db.Model(&models.MessageTemplate{}).Count(&after).Error; err != nil {
		t.Fatalf("count templates: %v", err)
	}
	if before != after {
		t.Fatalf("expected seeding to be idempotent, got %d then %d templates", before, after)
	}
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := Open(Config{Driver: "sqlite"})
	if err != nil {
		t.Fatalf("open database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	return db
}
