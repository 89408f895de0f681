package repository

import (
	"encoding/json"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/birdex-app/progression-engine/internal/models"
)

// setupTestDB creates an in-memory SQLite database with the full schema.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	gormDB, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("Failed to open in-memory database: %v", err)
	}
	// A single connection keeps the in-memory database shared
	sqlDB, err := gormDB.DB()
	if err != nil {
		t.Fatalf("Failed to access connection pool: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	// Enable foreign key constraints (SQLite default is off)
	gormDB.Exec("PRAGMA foreign_keys = ON")

	db := &DB{gormDB}
	if err := db.AutoMigrate(); err != nil {
		t.Fatalf("Failed to auto-migrate tables: %v", err)
	}
	return db
}

func createTestUser(t *testing.T, db *DB, username string) *models.User {
	t.Helper()

	user := &models.User{
		Username:  username,
		Email:     username + "@example.com",
		Level:     1,
		LevelName: "Novato",
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}
	return user
}

func createTestBird(t *testing.T, db *DB, name string, rarity string) *models.Bird {
	t.Helper()

	bird := &models.Bird{Name: name, CommonName: name}
	if rarity != "" {
		r := &models.Rarity{Name: rarity}
		if err := db.Where("name = ?", rarity).FirstOrCreate(r).Error; err != nil {
			t.Fatalf("Failed to create rarity: %v", err)
		}
		bird.RarityID = &r.ID
	}
	if err := db.Create(bird).Error; err != nil {
		t.Fatalf("Failed to create test bird: %v", err)
	}
	return bird
}

func createTestSighting(t *testing.T, db *DB, user *models.User, bird *models.Bird, province string, at time.Time) *models.Sighting {
	t.Helper()

	s := &models.Sighting{
		UserID:    user.ID,
		BirdID:    bird.ID,
		Province:  province,
		SightedAt: at,
	}
	if err := db.Create(s).Error; err != nil {
		t.Fatalf("Failed to create test sighting: %v", err)
	}
	return s
}

func createTestAchievement(t *testing.T, db *DB, name, criteria string) *models.Achievement {
	t.Helper()

	a := &models.Achievement{
		Name:        name,
		Description: "test achievement",
		Criteria:    json.RawMessage(criteria),
	}
	if err := db.Create(a).Error; err != nil {
		t.Fatalf("Failed to create test achievement: %v", err)
	}
	return a
}

func createTestMission(t *testing.T, db *DB, name, objective string, reward int) *models.Mission {
	t.Helper()

	m := &models.Mission{
		Name:         name,
		Description:  "test mission",
		Type:         models.MissionWeekly,
		Objective:    json.RawMessage(objective),
		RewardPoints: reward,
	}
	if err := db.Create(m).Error; err != nil {
		t.Fatalf("Failed to create test mission: %v", err)
	}
	return m
}

func seedLadder(t *testing.T, db *DB) {
	t.Helper()

	ladder := []models.Level{
		{Level: 1, Name: "Novato", XPRequired: 0},
		{Level: 2, Name: "Explorador", XPRequired: 100},
		{Level: 3, Name: "Experto", XPRequired: 500},
	}
	for i := range ladder {
		if err := db.Create(&ladder[i]).Error; err != nil {
			t.Fatalf("Failed to seed ladder: %v", err)
		}
	}
}
