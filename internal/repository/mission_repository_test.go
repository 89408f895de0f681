package repository

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/birdex-app/progression-engine/internal/models"
)

func TestMissionRepository_AssignAll(t *testing.T) {
	db := setupTestDB(t)
	repo := NewMissionRepository(db)

	user := createTestUser(t, db, "ana")
	createTestMission(t, db, "Semana rara", `{"rarity": "Raro", "count": 3}`, 50)
	createTestMission(t, db, "Madrugadora", `{"sightings": 5}`, 30)

	if err := repo.AssignAll(user.ID); err != nil {
		t.Fatalf("AssignAll failed: %v", err)
	}

	rows, err := repo.ListProgressByUser(user.ID)
	if err != nil {
		t.Fatalf("ListProgressByUser failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("Expected 2 assigned missions, got %d", len(rows))
	}
	for _, row := range rows {
		if row.Completed || row.Claimed {
			t.Errorf("Expected fresh assignment, got completed=%v claimed=%v", row.Completed, row.Claimed)
		}
		if string(row.Progress) != "{}" {
			t.Errorf("Expected empty progress, got %s", row.Progress)
		}
	}

	// Re-running must not duplicate rows
	if err := repo.AssignAll(user.ID); err != nil {
		t.Fatalf("AssignAll (second) failed: %v", err)
	}
	rows, err = repo.ListProgressByUser(user.ID)
	if err != nil {
		t.Fatalf("ListProgressByUser failed: %v", err)
	}
	if len(rows) != 2 {
		t.Errorf("Expected AssignAll to be idempotent, got %d rows", len(rows))
	}
}

func TestMissionRepository_ListActiveProgressByUser(t *testing.T) {
	db := setupTestDB(t)
	repo := NewMissionRepository(db)

	user := createTestUser(t, db, "bruno")
	createTestMission(t, db, "Semana rara", `{"rarity": "Raro", "count": 3}`, 50)
	createTestMission(t, db, "Exploradora", `{"zone": "Monteverde", "count": 2}`, 40)

	if err := repo.AssignAll(user.ID); err != nil {
		t.Fatalf("AssignAll failed: %v", err)
	}

	rows, err := repo.ListActiveProgressByUser(user.ID)
	if err != nil {
		t.Fatalf("ListActiveProgressByUser failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("Expected 2 active missions, got %d", len(rows))
	}
	if rows[0].Mission.ID == 0 {
		t.Error("Expected mission definition to be preloaded")
	}

	// Complete one; it must drop out of the active list
	err = repo.UpdateProgress(rows[0].ID, func(row *models.UserMission) (bool, error) {
		now := time.Now()
		row.Completed = true
		row.CompletedAt = &now
		return true, nil
	})
	if err != nil {
		t.Fatalf("UpdateProgress failed: %v", err)
	}

	active, err := repo.ListActiveProgressByUser(user.ID)
	if err != nil {
		t.Fatalf("ListActiveProgressByUser (after completion) failed: %v", err)
	}
	if len(active) != 1 {
		t.Errorf("Expected 1 active mission after completion, got %d", len(active))
	}

	all, err := repo.ListProgressByUser(user.ID)
	if err != nil {
		t.Fatalf("ListProgressByUser failed: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("Expected completed mission to remain in full list, got %d rows", len(all))
	}
}

func TestMissionRepository_UpdateProgressInterleavedWritersKeepAllIncrements(t *testing.T) {
	db := setupTestDB(t)
	repo := NewMissionRepository(db)

	user := createTestUser(t, db, "ana")
	createTestMission(t, db, "Semana rara", `{"rarity": "Raro", "count": 5}`, 50)
	if err := repo.AssignAll(user.ID); err != nil {
		t.Fatalf("AssignAll failed: %v", err)
	}
	rows, err := repo.ListProgressByUser(user.ID)
	if err != nil {
		t.Fatalf("ListProgressByUser failed: %v", err)
	}
	id := rows[0].ID

	bump := func(row *models.UserMission) {
		var p struct {
			Count int `json:"count"`
		}
		if len(row.Progress) > 0 {
			if err := json.Unmarshal(row.Progress, &p); err != nil {
				t.Fatalf("Failed to decode progress: %v", err)
			}
		}
		raw, _ := json.Marshal(map[string]int{"count": p.Count + 1})
		row.Progress = raw
	}

	// A second writer lands between this writer's load and save; the stale
	// save must be retried on the fresh row, not overwrite it
	calls := 0
	err = repo.UpdateProgress(id, func(row *models.UserMission) (bool, error) {
		calls++
		if calls == 1 {
			rivalErr := repo.UpdateProgress(id, func(r *models.UserMission) (bool, error) {
				bump(r)
				return true, nil
			})
			if rivalErr != nil {
				t.Fatalf("Rival UpdateProgress failed: %v", rivalErr)
			}
		}
		bump(row)
		return true, nil
	})
	if err != nil {
		t.Fatalf("UpdateProgress failed: %v", err)
	}
	if calls != 2 {
		t.Errorf("Expected the fold to be re-applied after the stale save, ran %d time(s)", calls)
	}

	saved, err := repo.GetProgressByID(id)
	if err != nil {
		t.Fatalf("GetProgressByID failed: %v", err)
	}
	if string(saved.Progress) != `{"count":2}` {
		t.Errorf("Expected both increments to land, got %s", saved.Progress)
	}
}

func TestMissionRepository_UpdateProgressNotFound(t *testing.T) {
	db := setupTestDB(t)
	repo := NewMissionRepository(db)

	err := repo.UpdateProgress(4242, func(row *models.UserMission) (bool, error) {
		t.Error("Expected fn not to run for a missing row")
		return false, nil
	})
	if !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestMissionRepository_GetProgressByIDNotFound(t *testing.T) {
	db := setupTestDB(t)
	repo := NewMissionRepository(db)

	_, err := repo.GetProgressByID(4242)
	if !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}
