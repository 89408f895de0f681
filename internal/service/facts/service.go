package facts

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/birdex-app/progression-engine/pkg/logger"
)

// SightingCounter provides the aggregate sighting counts the facts service
// caches. Implemented by repository.SightingRepository.
type SightingCounter interface {
	CountByUser(userID uint) (int64, error)
	CountDistinctSpeciesByUser(userID uint) (int64, error)
}

// Service answers aggregate questions about a user's sighting history,
// caching the answers in Redis. Counts include the sighting currently being
// evaluated because callers invalidate before reading.
type Service struct {
	sightings SightingCounter
	cache     Cache
	ttl       time.Duration
	log       *logger.Logger
}

// NewService creates a facts service backed by the given counter and cache.
func NewService(sightings SightingCounter, cache Cache, ttl time.Duration, log *logger.Logger) *Service {
	return &Service{
		sightings: sightings,
		cache:     cache,
		ttl:       ttl,
		log:       log.Component("facts"),
	}
}

func totalKey(userID uint) string {
	return fmt.Sprintf("facts:user:%d:total_sightings", userID)
}

func speciesKey(userID uint) string {
	return fmt.Sprintf("facts:user:%d:unique_species", userID)
}

// TotalSightings returns the user's lifetime sighting count.
func (s *Service) TotalSightings(ctx context.Context, userID uint) (int, error) {
	return s.cachedCount(ctx, totalKey(userID), func() (int64, error) {
		return s.sightings.CountByUser(userID)
	})
}

// UniqueSpecies returns how many distinct species the user has sighted.
// Species are matched case-insensitively by name.
func (s *Service) UniqueSpecies(ctx context.Context, userID uint) (int, error) {
	return s.cachedCount(ctx, speciesKey(userID), func() (int64, error) {
		return s.sightings.CountDistinctSpeciesByUser(userID)
	})
}

// Invalidate drops the user's cached counts. Called at the start of each
// sighting evaluation so the counts reflect the new sighting.
func (s *Service) Invalidate(ctx context.Context, userID uint) {
	if err := s.cache.Del(ctx, totalKey(userID), speciesKey(userID)); err != nil {
		s.log.Warn().
			Err(err).
			Uint("user_id", userID).
			Msg("Failed to invalidate facts cache")
	}
}

// cachedCount reads a count from the cache, falling back to the database.
// Cache failures degrade to database reads rather than failing the caller.
func (s *Service) cachedCount(ctx context.Context, key string, count func() (int64, error)) (int, error) {
	cached, err := s.cache.Get(ctx, key)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("Facts cache read failed")
	} else if cached != "" {
		if n, err := strconv.Atoi(cached); err == nil {
			return n, nil
		}
		s.log.Warn().Str("key", key).Str("value", cached).Msg("Discarding malformed cached count")
	}

	n, err := count()
	if err != nil {
		return 0, fmt.Errorf("failed to count sightings: %w", err)
	}

	if err := s.cache.Set(ctx, key, strconv.FormatInt(n, 10), s.ttl); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("Facts cache write failed")
	}
	return int(n), nil
}
