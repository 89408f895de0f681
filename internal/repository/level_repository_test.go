package repository

import (
	"testing"
)

func TestLevelRepository_HighestFor(t *testing.T) {
	db := setupTestDB(t)
	repo := NewLevelRepository(db)
	seedLadder(t, db)

	tests := []struct {
		name      string
		points    int
		wantLevel int
		wantName  string
	}{
		{"zero points", 0, 1, "Novato"},
		{"below first threshold", 99, 1, "Novato"},
		{"exactly at threshold", 100, 2, "Explorador"},
		{"between thresholds", 350, 2, "Explorador"},
		{"top of ladder", 500, 3, "Experto"},
		{"beyond top", 10000, 3, "Experto"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			level, err := repo.HighestFor(tt.points)
			if err != nil {
				t.Fatalf("HighestFor(%d) failed: %v", tt.points, err)
			}
			if level == nil {
				t.Fatalf("HighestFor(%d) returned nil level", tt.points)
			}
			if level.Level != tt.wantLevel || level.Name != tt.wantName {
				t.Errorf("HighestFor(%d) = %d %q, want %d %q",
					tt.points, level.Level, level.Name, tt.wantLevel, tt.wantName)
			}
		})
	}
}

func TestLevelRepository_HighestForEmptyLadder(t *testing.T) {
	db := setupTestDB(t)
	repo := NewLevelRepository(db)

	level, err := repo.HighestFor(250)
	if err != nil {
		t.Fatalf("HighestFor failed: %v", err)
	}
	if level != nil {
		t.Errorf("Expected nil level on empty ladder, got %+v", level)
	}
}

func TestLevelRepository_GetLadder(t *testing.T) {
	db := setupTestDB(t)
	repo := NewLevelRepository(db)
	seedLadder(t, db)

	ladder, err := repo.GetLadder()
	if err != nil {
		t.Fatalf("GetLadder failed: %v", err)
	}
	if len(ladder) != 3 {
		t.Fatalf("Expected 3 levels, got %d", len(ladder))
	}
	for i := 1; i < len(ladder); i++ {
		if ladder[i].Level <= ladder[i-1].Level {
			t.Errorf("Expected ladder ordered by level, got %d after %d",
				ladder[i].Level, ladder[i-1].Level)
		}
	}
}
