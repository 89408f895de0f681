// Package missions tracks per-user mission progress and pays out mission
// rewards through an atomic claim.
package missions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/birdex-app/progression-engine/internal/criteria"
	prommetrics "github.com/birdex-app/progression-engine/internal/metrics"
	"github.com/birdex-app/progression-engine/internal/models"
	"github.com/birdex-app/progression-engine/internal/repository"
	"github.com/birdex-app/progression-engine/internal/service/points"
	"github.com/birdex-app/progression-engine/pkg/logger"
)

// MissionRepository interface for mission definitions and progress.
type MissionRepository interface {
	ListActiveProgressByUser(userID uint) ([]models.UserMission, error)
	ListProgressByUser(userID uint) ([]models.UserMission, error)
	UpdateProgress(id uint, fn func(row *models.UserMission) (bool, error)) error
	AssignAll(userID uint) error
}

// UserRepository interface for user lookups.
type UserRepository interface {
	GetByEmail(email string) (*models.User, error)
}

// Service advances mission progress and handles reward claims.
type Service struct {
	db          *repository.DB
	missionRepo MissionRepository
	userRepo    UserRepository
	log         *logger.Logger
}

// NewService creates a new mission service.
func NewService(
	db *repository.DB,
	missionRepo *repository.MissionRepository,
	userRepo *repository.UserRepository,
	log *logger.Logger,
) *Service {
	return &Service{
		db:          db,
		missionRepo: missionRepo,
		userRepo:    userRepo,
		log:         log.Component("missions"),
	}
}

// NewServiceWithInterfaces creates a new mission service with interface dependencies (useful for testing).
func NewServiceWithInterfaces(
	db *repository.DB,
	missionRepo MissionRepository,
	userRepo UserRepository,
	log *logger.Logger,
) *Service {
	return &Service{
		db:          db,
		missionRepo: missionRepo,
		userRepo:    userRepo,
		log:         log.Component("missions"),
	}
}

// OnSightingRegistered folds one registered sighting into the user's active
// mission assignments. Completed missions are frozen; claiming happens
// separately. Malformed objectives are skipped with a warning.
func (s *Service) OnSightingRegistered(ctx context.Context, ev criteria.Event) error {
	start := time.Now()
	defer func() {
		prommetrics.ObserveEvaluationDuration("missions", time.Since(start).Seconds())
	}()

	rows, err := s.missionRepo.ListActiveProgressByUser(ev.User.ID)
	if err != nil {
		return fmt.Errorf("failed to load active missions: %w", err)
	}

	for i := range rows {
		row := &rows[i]
		rules, err := criteria.ParseObjective(row.Mission.Objective)
		if err != nil {
			prommetrics.RecordMalformedDefinition("mission")
			s.log.Warn().
				Err(err).
				Uint("mission_id", row.MissionID).
				Str("mission", row.Mission.Name).
				Msg("Skipping malformed mission objective")
			continue
		}
		for _, key := range rules.Unknown {
			s.log.Warn().
				Uint("mission_id", row.MissionID).
				Str("key", key).
				Msg("Mission objective has unrecognized criterion key")
		}

		if err := s.advanceOne(row, rules, ev); err != nil {
			return err
		}
	}
	return nil
}

// advanceOne folds the event into one assignment. The repository re-runs the
// fold when a concurrent evaluator saved first, so the event always lands on
// the latest progress. listed carries the preloaded definition; the persisted
// state is re-read inside UpdateProgress.
func (s *Service) advanceOne(listed *models.UserMission, rules criteria.RuleSet, ev criteria.Event) error {
	completed := false
	err := s.missionRepo.UpdateProgress(listed.ID, func(row *models.UserMission) (bool, error) {
		completed = false
		if row.Completed {
			// Completed between listing and here; frozen
			return false, nil
		}

		progress, err := criteria.ParseProgress(row.Progress)
		if err != nil {
			s.log.Warn().
				Err(err).
				Uint("user_mission_id", row.ID).
				Msg("Resetting unreadable mission progress")
			progress = criteria.Progress{}
		}

		changed := rules.Apply(&progress, ev)
		completed = rules.Satisfied(progress)

		if !changed && !completed {
			return false, nil
		}

		raw, err := progress.Marshal()
		if err != nil {
			return false, fmt.Errorf("failed to encode mission progress: %w", err)
		}
		row.Progress = raw
		if completed {
			now := time.Now()
			row.Completed = true
			row.CompletedAt = &now
		}
		return true, nil
	})
	if err != nil {
		return fmt.Errorf("failed to advance mission progress: %w", err)
	}

	if completed {
		prommetrics.RecordMissionCompleted(listed.Mission.Name, listed.Mission.Type)
		s.log.Info().
			Uint("user_id", ev.User.ID).
			Uint("mission_id", listed.MissionID).
			Str("mission", listed.Mission.Name).
			Msg("Mission completed")
	}
	return nil
}

// ListForUser returns the user's mission assignments with their definitions
// preloaded.
func (s *Service) ListForUser(ctx context.Context, email string) ([]models.UserMission, error) {
	user, err := s.userRepo.GetByEmail(email)
	if err != nil {
		return nil, err
	}
	return s.missionRepo.ListProgressByUser(user.ID)
}

// AssignAll gives the user a progress row for every mission they do not have
// yet.
func (s *Service) AssignAll(ctx context.Context, userID uint) error {
	return s.missionRepo.AssignAll(userID)
}

// ClaimReward pays out a completed mission exactly once. The claimed flag is
// flipped with a guarded update so two concurrent claims cannot both pay;
// the loser sees ErrInvalidState. The point grant and any resulting level-up
// commit atomically with the flag.
func (s *Service) ClaimReward(ctx context.Context, userMissionID uint) (*models.UserMission, error) {
	var claimed *models.UserMission

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.UserMission{}).
			Where("id = ? AND completed = ? AND claimed = ?", userMissionID, true, false).
			Update("claimed", true)
		if res.Error != nil {
			return fmt.Errorf("failed to claim mission: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return s.classifyFailedClaim(tx, userMissionID)
		}

		var row models.UserMission
		if err := tx.Preload("Mission").First(&row, userMissionID).Error; err != nil {
			return fmt.Errorf("failed to reload claimed mission: %w", err)
		}

		// Increment in place; a concurrent grant on the same user must
		// never be overwritten
		reward := row.Mission.RewardPoints
		if reward > 0 {
			res := tx.Model(&models.User{}).
				Where("id = ?", row.UserID).
				UpdateColumn("points", gorm.Expr("points + ?", reward))
			if res.Error != nil {
				return fmt.Errorf("failed to pay reward: %w", res.Error)
			}
		}

		var user models.User
		if err := tx.First(&user, row.UserID).Error; err != nil {
			return fmt.Errorf("failed to load user for reward: %w", err)
		}
		leveledUp, err := points.ApplyLevel(tx, &user)
		if err != nil {
			return err
		}
		if leveledUp {
			res := tx.Model(&models.User{}).
				Where("id = ? AND level < ?", user.ID, user.Level).
				Updates(map[string]interface{}{"level": user.Level, "level_name": user.LevelName})
			if res.Error != nil {
				return fmt.Errorf("failed to save level: %w", res.Error)
			}
		}

		claimed = &row
		s.log.Info().
			Uint("user_mission_id", row.ID).
			Uint("user_id", user.ID).
			Str("mission", row.Mission.Name).
			Int("reward", reward).
			Bool("leveled_up", leveledUp).
			Msg("Mission reward claimed")
		return nil
	})
	if err != nil {
		return nil, err
	}

	prommetrics.RecordMissionRewardClaimed(claimed.Mission.Name)
	if claimed.Mission.RewardPoints > 0 {
		prommetrics.RecordPointsGranted("mission", claimed.Mission.RewardPoints)
	}
	return claimed, nil
}

// classifyFailedClaim distinguishes why the guarded update matched nothing.
func (s *Service) classifyFailedClaim(tx *gorm.DB, userMissionID uint) error {
	var row models.UserMission
	if err := tx.First(&row, userMissionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("user mission %d: %w", userMissionID, models.ErrNotFound)
		}
		return fmt.Errorf("failed to inspect mission claim: %w", err)
	}
	if !row.Completed {
		return fmt.Errorf("mission %d not completed: %w", userMissionID, models.ErrInvalidState)
	}
	return fmt.Errorf("mission %d already claimed: %w", userMissionID, models.ErrInvalidState)
}
