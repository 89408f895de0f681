package repository

import (
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/birdex-app/progression-engine/internal/models"
)

// MissionRepository handles mission definitions and per-user progress rows.
type MissionRepository struct {
	db *DB
}

// NewMissionRepository creates a new mission repository.
func NewMissionRepository(db *DB) *MissionRepository {
	return &MissionRepository{db: db}
}

// GetAllDefinitions retrieves every mission definition in creation order.
func (r *MissionRepository) GetAllDefinitions() ([]models.Mission, error) {
	var missions []models.Mission
	if err := r.db.Order("created_at ASC").Find(&missions).Error; err != nil {
		return nil, fmt.Errorf("failed to list missions: %w", err)
	}
	return missions, nil
}

// ListActiveProgressByUser retrieves the user's not-yet-completed mission
// rows with their definitions preloaded. Assignment happens elsewhere; the
// tracker only ever sees rows that already exist.
func (r *MissionRepository) ListActiveProgressByUser(userID uint) ([]models.UserMission, error) {
	var rows []models.UserMission
	err := r.db.
		Where("user_id = ? AND completed = ?", userID, false).
		Preload("Mission").
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list active mission progress: %w", err)
	}
	return rows, nil
}

// ListProgressByUser retrieves all of a user's mission rows with their
// definitions preloaded, in creation order.
func (r *MissionRepository) ListProgressByUser(userID uint) ([]models.UserMission, error) {
	var rows []models.UserMission
	err := r.db.
		Where("user_id = ?", userID).
		Preload("Mission").
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list mission progress: %w", err)
	}
	return rows, nil
}

// GetProgressByID retrieves one mission progress row with its definition preloaded.
func (r *MissionRepository) GetProgressByID(id uint) (*models.UserMission, error) {
	var row models.UserMission
	if err := r.db.Preload("Mission").First(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user mission %d: %w", id, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get mission progress %d: %w", id, err)
	}
	return &row, nil
}

// UpdateProgress runs fn against the mission progress row and persists the
// result when fn asks for it. The save is guarded by the row's version; when a
// concurrent evaluator wins the race, the row is reloaded and fn is re-applied
// so no increment is ever lost. fn must therefore be safe to re-run. Rows are
// created by AssignAll; a missing id is ErrNotFound.
func (r *MissionRepository) UpdateProgress(id uint, fn func(row *models.UserMission) (bool, error)) error {
	for attempt := 0; attempt < maxProgressAttempts; attempt++ {
		var row models.UserMission
		if err := r.db.First(&row, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("user mission %d: %w", id, models.ErrNotFound)
			}
			return fmt.Errorf("failed to load mission progress: %w", err)
		}

		save, err := fn(&row)
		if err != nil {
			return err
		}
		if !save {
			return nil
		}

		res := r.db.Model(&models.UserMission{}).
			Where("id = ? AND version = ?", row.ID, row.Version).
			Updates(map[string]interface{}{
				"progress":     row.Progress,
				"completed":    row.Completed,
				"completed_at": row.CompletedAt,
				"version":      row.Version + 1,
			})
		if res.Error != nil {
			return fmt.Errorf("failed to save mission progress: %w", res.Error)
		}
		if res.RowsAffected > 0 {
			return nil
		}
		// Stale version; reload and re-apply
	}
	return fmt.Errorf("mission progress %d kept changing concurrently", id)
}

// AssignAll creates a progress row for every mission the user does not have
// yet. Used when a user registers.
func (r *MissionRepository) AssignAll(userID uint) error {
	missions, err := r.GetAllDefinitions()
	if err != nil {
		return err
	}
	for _, m := range missions {
		var count int64
		err := r.db.Model(&models.UserMission{}).
			Where("user_id = ? AND mission_id = ?", userID, m.ID).
			Count(&count).Error
		if err != nil {
			return fmt.Errorf("failed to check mission assignment: %w", err)
		}
		if count > 0 {
			continue
		}
		row := &models.UserMission{
			UserID:    userID,
			MissionID: m.ID,
			Progress:  json.RawMessage(`{}`),
		}
		if err := r.db.Create(row).Error; err != nil {
			return fmt.Errorf("failed to assign mission %d: %w", m.ID, err)
		}
	}
	return nil
}
