// Package points grants sighting points by bird rarity and keeps the user's
// level in step with their point total.
package points

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	prommetrics "github.com/birdex-app/progression-engine/internal/metrics"
	"github.com/birdex-app/progression-engine/internal/models"
	"github.com/birdex-app/progression-engine/internal/repository"
	"github.com/birdex-app/progression-engine/pkg/logger"
)

// BirdRepository interface for rarity lookups.
type BirdRepository interface {
	RarityName(birdID uint) (string, error)
	PointsForRarity(name string) (int, error)
}

// Service grants points for sightings and recomputes levels.
type Service struct {
	db            *repository.DB
	birdRepo      BirdRepository
	defaultRarity string
	log           *logger.Logger
}

// NewService creates a new points service.
func NewService(
	db *repository.DB,
	birdRepo *repository.BirdRepository,
	defaultRarity string,
	log *logger.Logger,
) *Service {
	return &Service{
		db:            db,
		birdRepo:      birdRepo,
		defaultRarity: defaultRarity,
		log:           log.Component("points"),
	}
}

// NewServiceWithInterfaces creates a new points service with interface dependencies (useful for testing).
func NewServiceWithInterfaces(
	db *repository.DB,
	birdRepo BirdRepository,
	defaultRarity string,
	log *logger.Logger,
) *Service {
	return &Service{
		db:            db,
		birdRepo:      birdRepo,
		defaultRarity: defaultRarity,
		log:           log.Component("points"),
	}
}

// AddPointsForSighting grants the user the points mapped to the sighted
// bird's rarity and re-derives their level. The grant is an in-place SQL
// increment, never a write of the caller's snapshot, so concurrent grants
// for the same user all land. Unmapped rarities grant zero points. The
// passed user is refreshed with the committed totals. Returns the points
// granted.
func (s *Service) AddPointsForSighting(ctx context.Context, user *models.User, bird *models.Bird) (int, error) {
	rarity, err := s.rarityOf(bird)
	if err != nil {
		return 0, err
	}

	pts, err := s.birdRepo.PointsForRarity(rarity)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve points for rarity %s: %w", rarity, err)
	}

	var leveledUp bool
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if pts > 0 {
			res := tx.Model(&models.User{}).
				Where("id = ?", user.ID).
				UpdateColumn("points", gorm.Expr("points + ?", pts))
			if res.Error != nil {
				return fmt.Errorf("failed to add points: %w", res.Error)
			}
			if res.RowsAffected == 0 {
				return fmt.Errorf("user %d: %w", user.ID, models.ErrNotFound)
			}
		}

		if err := tx.First(user, user.ID).Error; err != nil {
			return fmt.Errorf("failed to reload user: %w", err)
		}
		up, err := ApplyLevel(tx, user)
		if err != nil {
			return err
		}
		if up {
			res := tx.Model(&models.User{}).
				Where("id = ? AND level < ?", user.ID, user.Level).
				Updates(map[string]interface{}{"level": user.Level, "level_name": user.LevelName})
			if res.Error != nil {
				return fmt.Errorf("failed to save level: %w", res.Error)
			}
		}
		leveledUp = up
		return nil
	})
	if err != nil {
		return 0, err
	}

	if pts > 0 {
		prommetrics.RecordPointsGranted("sighting", pts)
	}
	s.log.Debug().
		Uint("user_id", user.ID).
		Str("rarity", rarity).
		Int("points", pts).
		Int("total", user.Points).
		Bool("leveled_up", leveledUp).
		Msg("Granted sighting points")

	return pts, nil
}

// rarityOf resolves the bird's rarity name, preferring the preloaded
// association and falling back to the configured default.
func (s *Service) rarityOf(bird *models.Bird) (string, error) {
	if bird.Rarity != nil && bird.Rarity.Name != "" {
		return bird.Rarity.Name, nil
	}

	name, err := s.birdRepo.RarityName(bird.ID)
	if err != nil {
		return "", fmt.Errorf("failed to resolve bird rarity: %w", err)
	}
	if name == "" {
		name = s.defaultRarity
	}
	return name, nil
}

// ApplyLevel re-derives the user's level from their point total against the
// level ladder. Levels only move up: if the ladder would place the user lower
// than they already are, the current level is kept. The user row is mutated
// but not saved. Safe to call inside a transaction.
func ApplyLevel(tx *gorm.DB, user *models.User) (bool, error) {
	level, err := repository.HighestLevelFor(tx, user.Points)
	if err != nil {
		return false, fmt.Errorf("failed to derive level: %w", err)
	}
	if level == nil || level.Level <= user.Level {
		return false, nil
	}

	user.Level = level.Level
	user.LevelName = level.Name
	prommetrics.RecordLevelUp(level.Name)
	return true, nil
}
