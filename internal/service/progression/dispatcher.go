// Package progression fans a registered sighting out to the points,
// achievement and mission engines.
package progression

import (
	"context"
	"fmt"

	"github.com/birdex-app/progression-engine/internal/criteria"
	"github.com/birdex-app/progression-engine/internal/models"
	"github.com/birdex-app/progression-engine/internal/repository"
	"github.com/birdex-app/progression-engine/pkg/logger"
)

// PointsEngine interface for the points grant.
type PointsEngine interface {
	AddPointsForSighting(ctx context.Context, user *models.User, bird *models.Bird) (int, error)
}

// Tracker is a progression engine that folds registered sightings into its
// own progress rows. Implemented by the achievement and mission services.
type Tracker interface {
	OnSightingRegistered(ctx context.Context, ev criteria.Event) error
}

// SightingRepository interface for loading stored sightings.
type SightingRepository interface {
	GetByID(id uint) (*models.Sighting, error)
}

// BirdRepository interface for rarity resolution.
type BirdRepository interface {
	RarityName(birdID uint) (string, error)
}

// Dispatcher runs every progression engine for each registered sighting.
// Engines run sequentially; the first failure aborts the dispatch so the
// caller can retry the whole event.
type Dispatcher struct {
	points        PointsEngine
	achievements  Tracker
	missions      Tracker
	sightingRepo  SightingRepository
	birdRepo      BirdRepository
	defaultRarity string
	log           *logger.Logger
}

// NewDispatcher creates a dispatcher over the three engines.
func NewDispatcher(
	points PointsEngine,
	achievements Tracker,
	missions Tracker,
	sightingRepo *repository.SightingRepository,
	birdRepo *repository.BirdRepository,
	defaultRarity string,
	log *logger.Logger,
) *Dispatcher {
	return &Dispatcher{
		points:        points,
		achievements:  achievements,
		missions:      missions,
		sightingRepo:  sightingRepo,
		birdRepo:      birdRepo,
		defaultRarity: defaultRarity,
		log:           log.Component("progression"),
	}
}

// NewDispatcherWithInterfaces creates a dispatcher with interface dependencies (useful for testing).
func NewDispatcherWithInterfaces(
	points PointsEngine,
	achievements Tracker,
	missions Tracker,
	sightingRepo SightingRepository,
	birdRepo BirdRepository,
	defaultRarity string,
	log *logger.Logger,
) *Dispatcher {
	return &Dispatcher{
		points:        points,
		achievements:  achievements,
		missions:      missions,
		sightingRepo:  sightingRepo,
		birdRepo:      birdRepo,
		defaultRarity: defaultRarity,
		log:           log.Component("progression"),
	}
}

// HandleSightingEvent loads a stored sighting and runs every engine over it.
// Returns the points granted.
func (d *Dispatcher) HandleSightingEvent(ctx context.Context, sightingID uint) (int, error) {
	sighting, err := d.sightingRepo.GetByID(sightingID)
	if err != nil {
		return 0, err
	}
	return d.HandleSightingRegistered(ctx, &sighting.User, &sighting.Bird, sighting)
}

// HandleSightingRegistered runs the points grant and both trackers for one
// registered sighting. The bird's rarity is resolved once and shared by every
// engine.
func (d *Dispatcher) HandleSightingRegistered(ctx context.Context, user *models.User, bird *models.Bird, sighting *models.Sighting) (int, error) {
	rarity, err := d.rarityOf(bird)
	if err != nil {
		return 0, err
	}

	ev := criteria.Event{
		User:     user,
		Bird:     bird,
		Sighting: sighting,
		Rarity:   rarity,
	}

	pts, err := d.points.AddPointsForSighting(ctx, user, bird)
	if err != nil {
		return 0, fmt.Errorf("points engine failed: %w", err)
	}
	if err := d.achievements.OnSightingRegistered(ctx, ev); err != nil {
		return pts, fmt.Errorf("achievement tracking failed: %w", err)
	}
	if err := d.missions.OnSightingRegistered(ctx, ev); err != nil {
		return pts, fmt.Errorf("mission tracking failed: %w", err)
	}

	d.log.Debug().
		Uint("user_id", user.ID).
		Uint("sighting_id", sighting.ID).
		Str("rarity", rarity).
		Int("points", pts).
		Msg("Sighting dispatched")
	return pts, nil
}

func (d *Dispatcher) rarityOf(bird *models.Bird) (string, error) {
	if bird.Rarity != nil && bird.Rarity.Name != "" {
		return bird.Rarity.Name, nil
	}
	name, err := d.birdRepo.RarityName(bird.ID)
	if err != nil {
		return "", fmt.Errorf("failed to resolve bird rarity: %w", err)
	}
	if name == "" {
		name = d.defaultRarity
	}
	return name, nil
}
