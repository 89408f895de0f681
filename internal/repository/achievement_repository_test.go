package repository

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/birdex-app/progression-engine/internal/models"
)

// sightingsProgress decodes just the sightings counter from a progress blob.
func sightingsProgress(t *testing.T, raw json.RawMessage) int {
	t.Helper()

	var p struct {
		Sightings int `json:"sightings"`
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		t.Fatalf("Failed to decode progress: %v", err)
	}
	return p.Sightings
}

func setSightingsProgress(row *models.UserAchievement, n int) {
	raw, _ := json.Marshal(map[string]int{"sightings": n})
	row.Progress = raw
}

func TestAchievementRepository_UpdateProgressCreatesRow(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAchievementRepository(db)

	user := createTestUser(t, db, "ana")
	ach := createTestAchievement(t, db, "Primer avistamiento", `{"total_sightings": 1}`)

	err := repo.UpdateProgress(user.ID, ach.ID, func(row *models.UserAchievement, created bool) (bool, error) {
		if !created {
			t.Error("Expected created=true for the first call")
		}
		if string(row.Progress) != "{}" {
			t.Errorf("Expected empty progress object, got %s", row.Progress)
		}
		if row.ObtainedAt != nil {
			t.Error("Expected new row to be unobtained")
		}
		return false, nil
	})
	if err != nil {
		t.Fatalf("UpdateProgress failed: %v", err)
	}

	// Rows fn declined to save are not persisted
	var count int64
	db.Model(&models.UserAchievement{}).Count(&count)
	if count != 0 {
		t.Errorf("Expected 0 persisted rows after a declined save, got %d", count)
	}

	err = repo.UpdateProgress(user.ID, ach.ID, func(row *models.UserAchievement, created bool) (bool, error) {
		setSightingsProgress(row, 1)
		return true, nil
	})
	if err != nil {
		t.Fatalf("UpdateProgress failed: %v", err)
	}

	err = repo.UpdateProgress(user.ID, ach.ID, func(row *models.UserAchievement, created bool) (bool, error) {
		if created {
			t.Error("Expected created=false once the row is persisted")
		}
		if got := sightingsProgress(t, row.Progress); got != 1 {
			t.Errorf("Expected persisted counter 1, got %d", got)
		}
		return false, nil
	})
	if err != nil {
		t.Fatalf("UpdateProgress failed: %v", err)
	}
}

func TestAchievementRepository_UpdateProgressRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAchievementRepository(db)

	user := createTestUser(t, db, "bruno")
	ach := createTestAchievement(t, db, "Coleccionista", `{"unique_species": 10}`)

	now := time.Now()
	err := repo.UpdateProgress(user.ID, ach.ID, func(row *models.UserAchievement, created bool) (bool, error) {
		row.Progress = []byte(`{"unique_species": 4}`)
		row.ObtainedAt = &now
		return true, nil
	})
	if err != nil {
		t.Fatalf("UpdateProgress failed: %v", err)
	}

	var saved models.UserAchievement
	if err := db.Where("user_id = ? AND achievement_id = ?", user.ID, ach.ID).First(&saved).Error; err != nil {
		t.Fatalf("Failed to load saved row: %v", err)
	}
	loaded, err := repo.GetProgressByID(saved.ID)
	if err != nil {
		t.Fatalf("GetProgressByID failed: %v", err)
	}
	if string(loaded.Progress) != `{"unique_species": 4}` {
		t.Errorf("Unexpected progress payload: %s", loaded.Progress)
	}
	if loaded.ObtainedAt == nil {
		t.Error("Expected obtained timestamp to persist")
	}
	if loaded.Achievement.Name != "Coleccionista" {
		t.Errorf("Expected definition preload, got %q", loaded.Achievement.Name)
	}
}

func TestAchievementRepository_UpdateProgressInterleavedWritersKeepAllIncrements(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAchievementRepository(db)

	user := createTestUser(t, db, "ana")
	ach := createTestAchievement(t, db, "Observadora", `{"sightings": 5}`)

	err := repo.UpdateProgress(user.ID, ach.ID, func(row *models.UserAchievement, created bool) (bool, error) {
		setSightingsProgress(row, 1)
		return true, nil
	})
	if err != nil {
		t.Fatalf("UpdateProgress failed: %v", err)
	}

	// A second writer lands between this writer's load and save; the stale
	// save must be retried on the fresh row, not overwrite it
	calls := 0
	err = repo.UpdateProgress(user.ID, ach.ID, func(row *models.UserAchievement, created bool) (bool, error) {
		calls++
		if calls == 1 {
			rivalErr := repo.UpdateProgress(user.ID, ach.ID, func(r *models.UserAchievement, _ bool) (bool, error) {
				setSightingsProgress(r, sightingsProgress(t, r.Progress)+1)
				return true, nil
			})
			if rivalErr != nil {
				t.Fatalf("Rival UpdateProgress failed: %v", rivalErr)
			}
		}
		setSightingsProgress(row, sightingsProgress(t, row.Progress)+1)
		return true, nil
	})
	if err != nil {
		t.Fatalf("UpdateProgress failed: %v", err)
	}
	if calls != 2 {
		t.Errorf("Expected the fold to be re-applied after the stale save, ran %d time(s)", calls)
	}

	var saved models.UserAchievement
	if err := db.Where("user_id = ? AND achievement_id = ?", user.ID, ach.ID).First(&saved).Error; err != nil {
		t.Fatalf("Failed to load saved row: %v", err)
	}
	if got := sightingsProgress(t, saved.Progress); got != 3 {
		t.Errorf("Expected all 3 increments to land, got %d", got)
	}
}

func TestAchievementRepository_UpdateProgressConcurrentCreate(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAchievementRepository(db)

	user := createTestUser(t, db, "ana")
	ach := createTestAchievement(t, db, "Observadora", `{"sightings": 5}`)

	// A second writer inserts the row between this writer's miss and insert;
	// the duplicate insert must be retried on the rival's row
	calls := 0
	err := repo.UpdateProgress(user.ID, ach.ID, func(row *models.UserAchievement, created bool) (bool, error) {
		calls++
		if calls == 1 {
			if !created {
				t.Fatal("Expected the first call to miss")
			}
			rival := &models.UserAchievement{
				UserID:        user.ID,
				AchievementID: ach.ID,
				Progress:      json.RawMessage(`{"sightings": 1}`),
			}
			if err := db.Create(rival).Error; err != nil {
				t.Fatalf("Failed to insert rival row: %v", err)
			}
		}
		setSightingsProgress(row, sightingsProgress(t, row.Progress)+1)
		return true, nil
	})
	if err != nil {
		t.Fatalf("UpdateProgress failed: %v", err)
	}
	if calls != 2 {
		t.Errorf("Expected the fold to be re-applied after the lost insert, ran %d time(s)", calls)
	}

	var rows []models.UserAchievement
	if err := db.Where("user_id = ?", user.ID).Find(&rows).Error; err != nil {
		t.Fatalf("Failed to load rows: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("Expected a single progress row, got %d", len(rows))
	}
	if got := sightingsProgress(t, rows[0].Progress); got != 2 {
		t.Errorf("Expected both increments to land, got %d", got)
	}
}

func TestAchievementRepository_MarkClaimed(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAchievementRepository(db)

	user := createTestUser(t, db, "ana")
	ach := createTestAchievement(t, db, "Primer avistamiento", `{"sightings": 1}`)

	pending := &models.UserAchievement{UserID: user.ID, AchievementID: ach.ID, Progress: json.RawMessage(`{}`)}
	if err := db.Create(pending).Error; err != nil {
		t.Fatalf("Failed to create row: %v", err)
	}

	won, err := repo.MarkClaimed(pending.ID)
	if err != nil {
		t.Fatalf("MarkClaimed failed: %v", err)
	}
	if won {
		t.Error("Expected unobtained row not to be claimable")
	}

	now := time.Now()
	err = db.Model(&models.UserAchievement{}).
		Where("id = ?", pending.ID).
		Update("obtained_at", &now).Error
	if err != nil {
		t.Fatalf("Failed to mark row obtained: %v", err)
	}

	won, err = repo.MarkClaimed(pending.ID)
	if err != nil {
		t.Fatalf("MarkClaimed failed: %v", err)
	}
	if !won {
		t.Error("Expected obtained row to be claimable")
	}

	won, err = repo.MarkClaimed(pending.ID)
	if err != nil {
		t.Fatalf("MarkClaimed failed: %v", err)
	}
	if won {
		t.Error("Expected second claim to lose the transition")
	}

	won, err = repo.MarkClaimed(9999)
	if err != nil {
		t.Fatalf("MarkClaimed failed: %v", err)
	}
	if won {
		t.Error("Expected missing row not to be claimable")
	}
}

func TestAchievementRepository_GetProgressByIDNotFound(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAchievementRepository(db)

	_, err := repo.GetProgressByID(9999)
	if !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestAchievementRepository_ListProgressByUser(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAchievementRepository(db)

	ana := createTestUser(t, db, "ana")
	bruno := createTestUser(t, db, "bruno")
	first := createTestAchievement(t, db, "Primer avistamiento", `{"total_sightings": 1}`)
	second := createTestAchievement(t, db, "Madrugador", `{"first_of_day_before_hour": 8}`)

	for _, ach := range []*models.Achievement{first, second} {
		err := repo.UpdateProgress(ana.ID, ach.ID, func(row *models.UserAchievement, created bool) (bool, error) {
			return true, nil
		})
		if err != nil {
			t.Fatalf("UpdateProgress failed: %v", err)
		}
	}

	rows, err := repo.ListProgressByUser(ana.ID)
	if err != nil {
		t.Fatalf("ListProgressByUser failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("Expected 2 rows for ana, got %d", len(rows))
	}
	for _, row := range rows {
		if row.Achievement.ID == 0 {
			t.Error("Expected definition to be preloaded")
		}
	}

	rows, err = repo.ListProgressByUser(bruno.ID)
	if err != nil {
		t.Fatalf("ListProgressByUser failed: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("Expected 0 rows for bruno, got %d", len(rows))
	}
}
