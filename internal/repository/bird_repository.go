package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/birdex-app/progression-engine/internal/models"
)

// BirdRepository handles bird catalog and rarity lookups.
type BirdRepository struct {
	db *DB
}

// NewBirdRepository creates a new bird repository.
func NewBirdRepository(db *DB) *BirdRepository {
	return &BirdRepository{db: db}
}

// GetByID retrieves a bird by ID with its rarity preloaded.
func (r *BirdRepository) GetByID(id uint) (*models.Bird, error) {
	var bird models.Bird
	if err := r.db.Preload("Rarity").First(&bird, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("bird %d: %w", id, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get bird by id %d: %w", id, err)
	}
	return &bird, nil
}

// RarityName resolves the rarity name of a bird. Birds with no mapped rarity
// return the empty string; callers apply the configured default.
func (r *BirdRepository) RarityName(birdID uint) (string, error) {
	var bird models.Bird
	if err := r.db.Preload("Rarity").First(&bird, birdID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", fmt.Errorf("bird %d: %w", birdID, models.ErrNotFound)
		}
		return "", fmt.Errorf("failed to resolve rarity for bird %d: %w", birdID, err)
	}
	if bird.Rarity == nil {
		return "", nil
	}
	return bird.Rarity.Name, nil
}

// PointsForRarity resolves the point value configured for a rarity name,
// case-insensitively. An unmapped rarity grants zero points.
func (r *BirdRepository) PointsForRarity(name string) (int, error) {
	var rp models.RarityPoints
	err := r.db.
		Joins("JOIN rarities ON rarities.id = rarity_points.rarity_id").
		Where("LOWER(rarities.name) = LOWER(?)", name).
		First(&rp).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to resolve points for rarity %q: %w", name, err)
	}
	return rp.Points, nil
}
