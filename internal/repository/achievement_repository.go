package repository

import (
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/birdex-app/progression-engine/internal/models"
)

// maxProgressAttempts bounds the optimistic retry loop when a progress row
// keeps being modified by a concurrent evaluator.
const maxProgressAttempts = 3

// AchievementRepository handles achievement definitions and per-user progress rows.
type AchievementRepository struct {
	db *DB
}

// NewAchievementRepository creates a new achievement repository.
func NewAchievementRepository(db *DB) *AchievementRepository {
	return &AchievementRepository{db: db}
}

// GetAllDefinitions retrieves every achievement definition in creation order.
func (r *AchievementRepository) GetAllDefinitions() ([]models.Achievement, error) {
	var achievements []models.Achievement
	if err := r.db.Order("created_at ASC").Find(&achievements).Error; err != nil {
		return nil, fmt.Errorf("failed to list achievements: %w", err)
	}
	return achievements, nil
}

// UpdateProgress runs fn against the progress row for (user, achievement),
// handing it a fresh unsaved row when none exists yet. fn reports whether the
// row should be persisted. The save is guarded by the row's version; when a
// concurrent evaluator wins the race, the row is reloaded and fn is re-applied
// so no increment is ever lost. fn must therefore be safe to re-run.
func (r *AchievementRepository) UpdateProgress(userID, achievementID uint, fn func(row *models.UserAchievement, created bool) (bool, error)) error {
	for attempt := 0; attempt < maxProgressAttempts; attempt++ {
		var row models.UserAchievement
		created := false
		err := r.db.
			Where("user_id = ? AND achievement_id = ?", userID, achievementID).
			First(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			row = models.UserAchievement{
				UserID:        userID,
				AchievementID: achievementID,
				Progress:      json.RawMessage(`{}`),
			}
			created = true
		} else if err != nil {
			return fmt.Errorf("failed to load achievement progress: %w", err)
		}

		save, err := fn(&row, created)
		if err != nil {
			return err
		}
		if !save {
			return nil
		}

		if created {
			err := r.db.Create(&row).Error
			if err == nil {
				return nil
			}
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				// A concurrent evaluator inserted the row first; re-apply on it
				continue
			}
			return fmt.Errorf("failed to create achievement progress: %w", err)
		}

		res := r.db.Model(&models.UserAchievement{}).
			Where("id = ? AND version = ?", row.ID, row.Version).
			Updates(map[string]interface{}{
				"progress":    row.Progress,
				"obtained_at": row.ObtainedAt,
				"version":     row.Version + 1,
			})
		if res.Error != nil {
			return fmt.Errorf("failed to save achievement progress: %w", res.Error)
		}
		if res.RowsAffected > 0 {
			return nil
		}
		// Stale version; reload and re-apply
	}
	return fmt.Errorf("achievement progress for user %d kept changing concurrently", userID)
}

// MarkClaimed atomically flips an obtained, unclaimed row to claimed and
// reports whether this call won the transition.
func (r *AchievementRepository) MarkClaimed(id uint) (bool, error) {
	res := r.db.Model(&models.UserAchievement{}).
		Where("id = ? AND obtained_at IS NOT NULL AND claimed = ?", id, false).
		Update("claimed", true)
	if res.Error != nil {
		return false, fmt.Errorf("failed to mark achievement claimed: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// GetProgressByID retrieves one progress row with its definition preloaded.
func (r *AchievementRepository) GetProgressByID(id uint) (*models.UserAchievement, error) {
	var progress models.UserAchievement
	if err := r.db.Preload("Achievement").First(&progress, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user achievement %d: %w", id, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get achievement progress %d: %w", id, err)
	}
	return &progress, nil
}

// ListProgressByUser retrieves all of a user's progress rows joined with
// their definitions, in creation order.
func (r *AchievementRepository) ListProgressByUser(userID uint) ([]models.UserAchievement, error) {
	var rows []models.UserAchievement
	err := r.db.
		Where("user_id = ?", userID).
		Preload("Achievement").
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list achievement progress: %w", err)
	}
	return rows, nil
}
