package repository

import (
	"errors"
	"testing"

	"github.com/birdex-app/progression-engine/internal/models"
)

func TestUserRepository_CreateAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)

	user := &models.User{Username: "ana", Email: "ana@example.com", Level: 1, LevelName: "Novato"}
	if err := repo.Create(user); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if user.ID == 0 {
		t.Fatal("Expected user ID to be assigned")
	}

	byEmail, err := repo.GetByEmail("ana@example.com")
	if err != nil {
		t.Fatalf("GetByEmail failed: %v", err)
	}
	if byEmail.ID != user.ID {
		t.Errorf("Expected user %d, got %d", user.ID, byEmail.ID)
	}

	byID, err := repo.GetByID(user.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if byID.Username != "ana" {
		t.Errorf("Expected username ana, got %q", byID.Username)
	}

	if _, err := repo.GetByEmail("nobody@example.com"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if _, err := repo.GetByID(9999); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestUserRepository_Update(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)

	user := createTestUser(t, db, "ana")
	user.Points = 120
	user.Level = 2
	user.LevelName = "Explorador"
	if err := repo.Update(user); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	saved, err := repo.GetByID(user.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if saved.Points != 120 || saved.Level != 2 {
		t.Errorf("Expected 120 points at level 2, got %d points at level %d", saved.Points, saved.Level)
	}
}

func TestUserRepository_TopByPoints(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)

	for _, u := range []struct {
		name   string
		points int
	}{{"ana", 500}, {"bruno", 100}, {"carla", 300}} {
		user := &models.User{Username: u.name, Email: u.name + "@example.com", Points: u.points, Level: 1, LevelName: "Novato"}
		if err := repo.Create(user); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	top, err := repo.TopByPoints(2)
	if err != nil {
		t.Fatalf("TopByPoints failed: %v", err)
	}
	if len(top) != 2 {
		t.Fatalf("Expected 2 users, got %d", len(top))
	}
	if top[0].Username != "ana" || top[1].Username != "carla" {
		t.Errorf("Expected ana then carla, got %q then %q", top[0].Username, top[1].Username)
	}
}
