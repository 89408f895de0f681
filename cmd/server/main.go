// Command server runs the progression engine HTTP service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	progressionapi "github.com/birdex-app/progression-engine/internal/api/progression"
	"github.com/birdex-app/progression-engine/internal/config"
	"github.com/birdex-app/progression-engine/internal/repository"
	"github.com/birdex-app/progression-engine/internal/service/achievements"
	"github.com/birdex-app/progression-engine/internal/service/facts"
	"github.com/birdex-app/progression-engine/internal/service/missions"
	"github.com/birdex-app/progression-engine/internal/service/points"
	"github.com/birdex-app/progression-engine/internal/service/progression"
	"github.com/birdex-app/progression-engine/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	log := logger.Get()

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("Server exited with error")
	}
}

func run(cfg *config.Config, log *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := repository.NewDB(&cfg.Database.Postgres, log)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close database")
		}
	}()

	if err := db.Migrate(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	log.Info().Msg("Database migrations applied")

	cache, err := facts.NewRedisCache(ctx, &cfg.Database.Redis)
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	defer func() {
		if err := cache.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close redis connection")
		}
	}()

	// Repositories
	userRepo := repository.NewUserRepository(db)
	birdRepo := repository.NewBirdRepository(db)
	sightingRepo := repository.NewSightingRepository(db)
	achievementRepo := repository.NewAchievementRepository(db)
	missionRepo := repository.NewMissionRepository(db)

	// Services
	factsService := facts.NewService(sightingRepo, cache, cfg.Progression.FactsTTL(), log)
	pointsService := points.NewService(db, birdRepo, cfg.Progression.DefaultRarity, log)
	achievementService := achievements.NewService(achievementRepo, userRepo, factsService, log)
	missionService := missions.NewService(db, missionRepo, userRepo, log)
	dispatcher := progression.NewDispatcher(
		pointsService, achievementService, missionService,
		sightingRepo, birdRepo, cfg.Progression.DefaultRarity, log,
	)

	// HTTP surface
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	handler := progressionapi.NewHandler(achievementService, missionService, dispatcher, userRepo, db, log)
	handler.RegisterRoutes(router)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	var metricsServer *http.Server
	if cfg.Metrics.Prometheus.Enabled {
		metricsServer = startMetricsServer(&cfg.Metrics.Prometheus, log)
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("Progression engine listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Metrics server shutdown failed")
		}
	}
	return nil
}

func startMetricsServer(cfg *config.PrometheusConfig, log *logger.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, promhttp.Handler())

	server := &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Port),
		Handler:     mux,
		ReadTimeout: 10 * time.Second,
	}
	go func() {
		log.Info().Int("port", cfg.Port).Str("path", cfg.Path).Msg("Metrics endpoint listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Metrics server failed")
		}
	}()
	return server
}
