package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/birdex-app/progression-engine/internal/models"
)

// LevelRepository handles the level threshold ladder.
type LevelRepository struct {
	db *DB
}

// NewLevelRepository creates a new level repository.
func NewLevelRepository(db *DB) *LevelRepository {
	return &LevelRepository{db: db}
}

// GetLadder retrieves the full ladder ordered by level.
func (r *LevelRepository) GetLadder() ([]models.Level, error) {
	var levels []models.Level
	if err := r.db.Order("level ASC").Find(&levels).Error; err != nil {
		return nil, fmt.Errorf("failed to list levels: %w", err)
	}
	return levels, nil
}

// HighestFor returns the highest level whose threshold is within the given
// points, or nil when the ladder has no reachable rung.
func (r *LevelRepository) HighestFor(points int) (*models.Level, error) {
	return HighestLevelFor(r.db.DB, points)
}

// HighestLevelFor is the transaction-aware form of HighestFor, used by the
// claim workflow to recompute levels inside its own transaction.
func HighestLevelFor(tx *gorm.DB, points int) (*models.Level, error) {
	var level models.Level
	err := tx.Where("xp_required <= ?", points).Order("level DESC").First(&level).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve level for %d points: %w", points, err)
	}
	return &level, nil
}
