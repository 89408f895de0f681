// Package progression provides REST API handlers for the progression engine:
// achievement and mission queries, claims, the sighting fan-out trigger and
// the points leaderboard.
package progression

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/birdex-app/progression-engine/internal/models"
	"github.com/birdex-app/progression-engine/internal/service/achievements"
	"github.com/birdex-app/progression-engine/internal/service/missions"
	"github.com/birdex-app/progression-engine/pkg/logger"
)

// AchievementService interface for achievement operations.
type AchievementService interface {
	ListForUser(ctx context.Context, email string) ([]models.UserAchievement, error)
	Claim(ctx context.Context, userAchievementID uint) (*models.UserAchievement, error)
}

// MissionService interface for mission operations.
type MissionService interface {
	ListForUser(ctx context.Context, email string) ([]models.UserMission, error)
	ClaimReward(ctx context.Context, userMissionID uint) (*models.UserMission, error)
	AssignAll(ctx context.Context, userID uint) error
}

// Dispatcher interface for the sighting fan-out.
type Dispatcher interface {
	HandleSightingEvent(ctx context.Context, sightingID uint) (int, error)
}

// UserService interface for user lookups and the leaderboard.
type UserService interface {
	GetByEmail(email string) (*models.User, error)
	TopByPoints(limit int) ([]models.User, error)
}

// HealthChecker reports whether a backing store is reachable.
type HealthChecker interface {
	Health() error
}

// Handler handles progression API requests.
type Handler struct {
	achievementService AchievementService
	missionService     MissionService
	dispatcher         Dispatcher
	userService        UserService
	db                 HealthChecker
	log                *logger.Logger
}

// NewHandler creates a new progression handler.
func NewHandler(
	achievementService *achievements.Service,
	missionService *missions.Service,
	dispatcher Dispatcher,
	userService UserService,
	db HealthChecker,
	log *logger.Logger,
) *Handler {
	return &Handler{
		achievementService: achievementService,
		missionService:     missionService,
		dispatcher:         dispatcher,
		userService:        userService,
		db:                 db,
		log:                log,
	}
}

// NewHandlerWithInterfaces creates a new progression handler with interface dependencies (useful for testing).
func NewHandlerWithInterfaces(
	achievementService AchievementService,
	missionService MissionService,
	dispatcher Dispatcher,
	userService UserService,
	db HealthChecker,
	log *logger.Logger,
) *Handler {
	return &Handler{
		achievementService: achievementService,
		missionService:     missionService,
		dispatcher:         dispatcher,
		userService:        userService,
		db:                 db,
		log:                log,
	}
}

// RegisterRoutes mounts every progression endpoint on the router.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api/v1")
	api.GET("/users/:email/achievements", h.GetUserAchievements)
	api.POST("/achievements/claim", h.ClaimAchievement)
	api.GET("/users/:email/missions", h.GetUserMissions)
	api.POST("/users/:email/missions/assign", h.AssignMissions)
	api.POST("/missions/claim", h.ClaimMissionReward)
	api.POST("/events/sighting", h.HandleSightingEvent)
	api.GET("/leaderboard", h.GetLeaderboard)

	router.GET("/health", h.Health)
}

// GetUserAchievements returns the user's achievement progress.
// GET /api/v1/users/:email/achievements.
func (h *Handler) GetUserAchievements(c *gin.Context) {
	email := c.Param("email")

	rows, err := h.achievementService.ListForUser(c.Request.Context(), email)
	if err != nil {
		h.serviceError(c, err, "Failed to list achievements")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"email":        email,
		"achievements": rows,
		"total":        len(rows),
	})
}

type claimAchievementRequest struct {
	UserAchievementID uint `json:"user_achievement_id" binding:"required"`
}

// ClaimAchievement acknowledges an obtained achievement.
// POST /api/v1/achievements/claim.
func (h *Handler) ClaimAchievement(c *gin.Context) {
	var req claimAchievementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, "user_achievement_id is required")
		return
	}

	row, err := h.achievementService.Claim(c.Request.Context(), req.UserAchievementID)
	if err != nil {
		h.serviceError(c, err, "Failed to claim achievement")
		return
	}

	c.JSON(http.StatusOK, gin.H{"achievement": row})
}

// GetUserMissions returns the user's mission assignments.
// GET /api/v1/users/:email/missions.
func (h *Handler) GetUserMissions(c *gin.Context) {
	email := c.Param("email")

	rows, err := h.missionService.ListForUser(c.Request.Context(), email)
	if err != nil {
		h.serviceError(c, err, "Failed to list missions")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"email":    email,
		"missions": rows,
		"total":    len(rows),
	})
}

// AssignMissions gives the user a progress row for every mission. Called by
// the registration collaborator when a user signs up.
// POST /api/v1/users/:email/missions/assign.
func (h *Handler) AssignMissions(c *gin.Context) {
	email := c.Param("email")

	user, err := h.userService.GetByEmail(email)
	if err != nil {
		h.serviceError(c, err, "Failed to resolve user")
		return
	}
	if err := h.missionService.AssignAll(c.Request.Context(), user.ID); err != nil {
		h.serviceError(c, err, "Failed to assign missions")
		return
	}

	c.JSON(http.StatusOK, gin.H{"email": email, "assigned": true})
}

type claimMissionRequest struct {
	UserMissionID uint `json:"user_mission_id" binding:"required"`
}

// ClaimMissionReward pays out a completed mission.
// POST /api/v1/missions/claim.
func (h *Handler) ClaimMissionReward(c *gin.Context) {
	var req claimMissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, "user_mission_id is required")
		return
	}

	row, err := h.missionService.ClaimReward(c.Request.Context(), req.UserMissionID)
	if err != nil {
		h.serviceError(c, err, "Failed to claim mission reward")
		return
	}

	c.JSON(http.StatusOK, gin.H{"mission": row})
}

type sightingEventRequest struct {
	SightingID uint `json:"sighting_id" binding:"required"`
}

// HandleSightingEvent runs the progression engines for a stored sighting.
// Called by the sighting-registration collaborator after the row is written.
// POST /api/v1/events/sighting.
func (h *Handler) HandleSightingEvent(c *gin.Context) {
	var req sightingEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, "sighting_id is required")
		return
	}

	pts, err := h.dispatcher.HandleSightingEvent(c.Request.Context(), req.SightingID)
	if err != nil {
		h.serviceError(c, err, "Failed to process sighting event")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"sighting_id":    req.SightingID,
		"points_granted": pts,
	})
}

// GetLeaderboard returns the top users by points.
// GET /api/v1/leaderboard?limit=10.
func (h *Handler) GetLeaderboard(c *gin.Context) {
	limit := 10
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 1000 {
			h.errorResponse(c, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	users, err := h.userService.TopByPoints(limit)
	if err != nil {
		h.serviceError(c, err, "Failed to retrieve leaderboard")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"leaderboard":   users,
		"total_entries": len(users),
	})
}

// Health reports service health.
// GET /health.
func (h *Handler) Health(c *gin.Context) {
	if err := h.db.Health(); err != nil {
		h.log.Error().Err(err).Msg("Health check failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// serviceError maps service errors onto HTTP statuses.
func (h *Handler) serviceError(c *gin.Context, err error, message string) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		h.errorResponse(c, http.StatusNotFound, err.Error())
	case errors.Is(err, models.ErrInvalidState):
		h.errorResponse(c, http.StatusConflict, err.Error())
	default:
		h.log.Error().Err(err).Msg(message)
		h.errorResponse(c, http.StatusInternalServerError, message)
	}
}

func (h *Handler) errorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, gin.H{
		"error":     message,
		"timestamp": time.Now().UTC(),
	})
}
