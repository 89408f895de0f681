package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/birdex-app/progression-engine/internal/models"
)

// SightingRepository provides read access to durably stored sightings.
// Writes belong to the sighting-registration collaborator.
type SightingRepository struct {
	db *DB
}

// NewSightingRepository creates a new sighting repository.
func NewSightingRepository(db *DB) *SightingRepository {
	return &SightingRepository{db: db}
}

// GetByID retrieves a sighting with its user and bird preloaded.
func (r *SightingRepository) GetByID(id uint) (*models.Sighting, error) {
	var sighting models.Sighting
	err := r.db.Preload("User").Preload("Bird").First(&sighting, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("sighting %d: %w", id, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get sighting %d: %w", id, err)
	}
	return &sighting, nil
}

// CountByUser returns the user's total number of registered sightings.
func (r *SightingRepository) CountByUser(userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Sighting{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count sightings for user %d: %w", userID, err)
	}
	return count, nil
}

// CountDistinctSpeciesByUser returns how many distinct species the user has
// sighted, matching by bird name case-insensitively.
func (r *SightingRepository) CountDistinctSpeciesByUser(userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Sighting{}).
		Joins("JOIN birds ON birds.id = sightings.bird_id").
		Where("sightings.user_id = ?", userID).
		Distinct("LOWER(birds.name)").
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count distinct species for user %d: %w", userID, err)
	}
	return count, nil
}
