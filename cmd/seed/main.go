// Command seed loads level ladder, rarity, achievement and mission
// definitions from a YAML file into the database. Existing rows are matched
// by name and left untouched, so re-running is safe.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/birdex-app/progression-engine/internal/config"
	"github.com/birdex-app/progression-engine/internal/models"
	"github.com/birdex-app/progression-engine/internal/repository"
	"github.com/birdex-app/progression-engine/pkg/logger"
)

type seedFile struct {
	Levels []struct {
		Level      int    `yaml:"level"`
		Name       string `yaml:"name"`
		XPRequired int    `yaml:"xp_required"`
	} `yaml:"levels"`
	Rarities []struct {
		Name   string `yaml:"name"`
		Points int    `yaml:"points"`
	} `yaml:"rarities"`
	Achievements []struct {
		Name        string                 `yaml:"name"`
		Description string                 `yaml:"description"`
		IconURL     string                 `yaml:"icon_url"`
		Criteria    map[string]interface{} `yaml:"criteria"`
	} `yaml:"achievements"`
	Missions []struct {
		Name         string                 `yaml:"name"`
		Description  string                 `yaml:"description"`
		Type         string                 `yaml:"type"`
		RewardPoints int                    `yaml:"reward_points"`
		Objective    map[string]interface{} `yaml:"objective"`
	} `yaml:"missions"`
}

func main() {
	configPath := flag.String("config", "", "path to config file")
	seedPath := flag.String("seed", "config/seed.yaml", "path to seed definitions file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	log := logger.Get()

	if err := run(cfg, *seedPath, log); err != nil {
		log.Fatal().Err(err).Msg("Seeding failed")
	}
}

func run(cfg *config.Config, seedPath string, log *logger.Logger) error {
	raw, err := os.ReadFile(seedPath)
	if err != nil {
		return fmt.Errorf("failed to read seed file: %w", err)
	}
	var seed seedFile
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return fmt.Errorf("failed to parse seed file: %w", err)
	}

	db, err := repository.NewDB(&cfg.Database.Postgres, log)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close database")
		}
	}()

	if err := db.AutoMigrate(); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	if err := seedLevels(db, seed, log); err != nil {
		return err
	}
	if err := seedRarities(db, seed, log); err != nil {
		return err
	}
	if err := seedAchievements(db, seed, log); err != nil {
		return err
	}
	if err := seedMissions(db, seed, log); err != nil {
		return err
	}

	log.Info().Msg("Seeding complete")
	return nil
}

func seedLevels(db *repository.DB, seed seedFile, log *logger.Logger) error {
	for _, l := range seed.Levels {
		level := models.Level{Level: l.Level, Name: l.Name, XPRequired: l.XPRequired}
		if err := db.Where("level = ?", l.Level).FirstOrCreate(&level).Error; err != nil {
			return fmt.Errorf("failed to seed level %d: %w", l.Level, err)
		}
	}
	log.Info().Int("count", len(seed.Levels)).Msg("Seeded levels")
	return nil
}

func seedRarities(db *repository.DB, seed seedFile, log *logger.Logger) error {
	for _, r := range seed.Rarities {
		rarity := models.Rarity{Name: r.Name}
		if err := db.Where("name = ?", r.Name).FirstOrCreate(&rarity).Error; err != nil {
			return fmt.Errorf("failed to seed rarity %s: %w", r.Name, err)
		}
		points := models.RarityPoints{RarityID: rarity.ID, Points: r.Points}
		if err := db.Where("rarity_id = ?", rarity.ID).FirstOrCreate(&points).Error; err != nil {
			return fmt.Errorf("failed to seed rarity points for %s: %w", r.Name, err)
		}
	}
	log.Info().Int("count", len(seed.Rarities)).Msg("Seeded rarities")
	return nil
}

func seedAchievements(db *repository.DB, seed seedFile, log *logger.Logger) error {
	for _, a := range seed.Achievements {
		criteria, err := json.Marshal(a.Criteria)
		if err != nil {
			return fmt.Errorf("failed to encode criteria for %s: %w", a.Name, err)
		}
		achievement := models.Achievement{
			Name:        a.Name,
			Description: a.Description,
			IconURL:     a.IconURL,
			Criteria:    criteria,
		}
		if err := db.Where("name = ?", a.Name).FirstOrCreate(&achievement).Error; err != nil {
			return fmt.Errorf("failed to seed achievement %s: %w", a.Name, err)
		}
	}
	log.Info().Int("count", len(seed.Achievements)).Msg("Seeded achievements")
	return nil
}

func seedMissions(db *repository.DB, seed seedFile, log *logger.Logger) error {
	for _, m := range seed.Missions {
		objective, err := json.Marshal(m.Objective)
		if err != nil {
			return fmt.Errorf("failed to encode objective for %s: %w", m.Name, err)
		}
		mission := models.Mission{
			Name:         m.Name,
			Description:  m.Description,
			Type:         m.Type,
			Objective:    objective,
			RewardPoints: m.RewardPoints,
		}
		if err := db.Where("name = ?", m.Name).FirstOrCreate(&mission).Error; err != nil {
			return fmt.Errorf("failed to seed mission %s: %w", m.Name, err)
		}
	}
	log.Info().Int("count", len(seed.Missions)).Msg("Seeded missions")
	return nil
}
