// Package achievements evaluates achievement criteria against registered
// sightings and manages the obtained/claimed lifecycle.
package achievements

import (
	"context"
	"fmt"
	"time"

	"github.com/birdex-app/progression-engine/internal/criteria"
	prommetrics "github.com/birdex-app/progression-engine/internal/metrics"
	"github.com/birdex-app/progression-engine/internal/models"
	"github.com/birdex-app/progression-engine/internal/repository"
	"github.com/birdex-app/progression-engine/pkg/logger"
)

// AchievementRepository interface for achievement definitions and progress.
type AchievementRepository interface {
	GetAllDefinitions() ([]models.Achievement, error)
	UpdateProgress(userID, achievementID uint, fn func(row *models.UserAchievement, created bool) (bool, error)) error
	MarkClaimed(id uint) (bool, error)
	GetProgressByID(id uint) (*models.UserAchievement, error)
	ListProgressByUser(userID uint) ([]models.UserAchievement, error)
}

// UserRepository interface for user lookups.
type UserRepository interface {
	GetByEmail(email string) (*models.User, error)
}

// Facts interface for the cached per-user sighting aggregates.
type Facts interface {
	TotalSightings(ctx context.Context, userID uint) (int, error)
	UniqueSpecies(ctx context.Context, userID uint) (int, error)
	Invalidate(ctx context.Context, userID uint)
}

// Service evaluates achievements and serves achievement queries.
type Service struct {
	achievementRepo AchievementRepository
	userRepo        UserRepository
	facts           Facts
	log             *logger.Logger
}

// NewService creates a new achievement service.
func NewService(
	achievementRepo *repository.AchievementRepository,
	userRepo *repository.UserRepository,
	facts Facts,
	log *logger.Logger,
) *Service {
	return &Service{
		achievementRepo: achievementRepo,
		userRepo:        userRepo,
		facts:           facts,
		log:             log.Component("achievements"),
	}
}

// NewServiceWithInterfaces creates a new achievement service with interface dependencies (useful for testing).
func NewServiceWithInterfaces(
	achievementRepo AchievementRepository,
	userRepo UserRepository,
	facts Facts,
	log *logger.Logger,
) *Service {
	return &Service{
		achievementRepo: achievementRepo,
		userRepo:        userRepo,
		facts:           facts,
		log:             log.Component("achievements"),
	}
}

// OnSightingRegistered folds one registered sighting into every achievement
// the user has not yet obtained. A malformed definition is skipped with a
// warning and never blocks the others; a storage failure aborts the pass.
func (s *Service) OnSightingRegistered(ctx context.Context, ev criteria.Event) error {
	start := time.Now()
	defer func() {
		prommetrics.ObserveEvaluationDuration("achievements", time.Since(start).Seconds())
	}()

	userID := ev.User.ID
	s.facts.Invalidate(ctx, userID)

	defs, err := s.achievementRepo.GetAllDefinitions()
	if err != nil {
		return fmt.Errorf("failed to load achievement definitions: %w", err)
	}

	factsLoaded := false
	for _, def := range defs {
		rules, err := criteria.ParseCriteria(def.Criteria)
		if err != nil {
			prommetrics.RecordMalformedDefinition("achievement")
			s.log.Warn().
				Err(err).
				Uint("achievement_id", def.ID).
				Str("achievement", def.Name).
				Msg("Skipping malformed achievement definition")
			continue
		}
		for _, key := range rules.Unknown {
			s.log.Warn().
				Uint("achievement_id", def.ID).
				Str("key", key).
				Msg("Achievement definition has unrecognized criterion key")
		}

		if !factsLoaded && rules.NeedsFacts() {
			if err := s.loadFacts(ctx, userID, &ev); err != nil {
				return err
			}
			factsLoaded = true
		}

		if err := s.evaluateOne(ctx, def, rules, ev); err != nil {
			return err
		}
	}
	return nil
}

// evaluateOne advances one user/achievement pair. Obtained rows are never
// re-evaluated. The repository re-runs the fold when a concurrent evaluator
// saved first, so the event always lands on the latest progress.
func (s *Service) evaluateOne(ctx context.Context, def models.Achievement, rules criteria.RuleSet, ev criteria.Event) error {
	obtained := false
	err := s.achievementRepo.UpdateProgress(ev.User.ID, def.ID, func(row *models.UserAchievement, created bool) (bool, error) {
		obtained = false
		if row.ObtainedAt != nil {
			return false, nil
		}

		progress, err := criteria.ParseProgress(row.Progress)
		if err != nil {
			// A corrupt progress row is reset rather than wedged forever
			s.log.Warn().
				Err(err).
				Uint("user_achievement_id", row.ID).
				Msg("Resetting unreadable achievement progress")
			progress = criteria.Progress{}
		}

		changed := rules.Apply(&progress, ev)
		obtained = rules.Satisfied(progress)

		if !created && !changed && !obtained {
			return false, nil
		}

		raw, err := progress.Marshal()
		if err != nil {
			return false, fmt.Errorf("failed to encode achievement progress: %w", err)
		}
		row.Progress = raw
		if obtained {
			now := time.Now()
			row.ObtainedAt = &now
		}
		return true, nil
	})
	if err != nil {
		return fmt.Errorf("failed to advance achievement progress: %w", err)
	}

	if obtained {
		prommetrics.RecordAchievementObtained(def.Name)
		s.log.Info().
			Uint("user_id", ev.User.ID).
			Uint("achievement_id", def.ID).
			Str("achievement", def.Name).
			Msg("Achievement obtained")
	}
	return nil
}

// loadFacts fills the absolute counts on the event. Called lazily so users
// with no count-based achievements never touch the facts cache.
func (s *Service) loadFacts(ctx context.Context, userID uint, ev *criteria.Event) error {
	total, err := s.facts.TotalSightings(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load total sightings: %w", err)
	}
	species, err := s.facts.UniqueSpecies(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load unique species: %w", err)
	}
	ev.TotalSightings = total
	ev.UniqueSpecies = species
	return nil
}

// ListForUser returns the user's achievement progress rows with their
// definitions preloaded.
func (s *Service) ListForUser(ctx context.Context, email string) ([]models.UserAchievement, error) {
	user, err := s.userRepo.GetByEmail(email)
	if err != nil {
		return nil, err
	}
	return s.achievementRepo.ListProgressByUser(user.ID)
}

// Claim marks an obtained achievement as claimed with a guarded update.
// Claiming grants no points; it only acknowledges the achievement in the UI.
// Claiming an achievement that is not yet obtained returns ErrInvalidState.
// Claiming twice is a no-op.
func (s *Service) Claim(ctx context.Context, userAchievementID uint) (*models.UserAchievement, error) {
	won, err := s.achievementRepo.MarkClaimed(userAchievementID)
	if err != nil {
		return nil, fmt.Errorf("failed to claim achievement: %w", err)
	}

	row, err := s.achievementRepo.GetProgressByID(userAchievementID)
	if err != nil {
		return nil, err
	}
	if !won {
		if row.ObtainedAt == nil {
			return nil, fmt.Errorf("achievement %d not yet obtained: %w", userAchievementID, models.ErrInvalidState)
		}
		// Already claimed, by this caller's earlier attempt or a concurrent one
		return row, nil
	}

	s.log.Info().
		Uint("user_achievement_id", row.ID).
		Uint("user_id", row.UserID).
		Msg("Achievement claimed")
	return row, nil
}
