// Package criteria implements the rule language shared by achievements and
// missions: requirement maps are parsed once into typed criterion variants,
// which are then evaluated as pure functions over an event and a progress
// record. The package performs no I/O.
package criteria

import (
	"github.com/birdex-app/progression-engine/internal/models"
)

// Event is the context a single registered sighting is evaluated against.
// Rarity is the resolved rarity name of the sighted bird; TotalSightings and
// UniqueSpecies are absolute per-user counts supplied by the facts collaborator
// and are only read by the corresponding criterion kinds.
type Event struct {
	User           *models.User
	Bird           *models.Bird
	Sighting       *models.Sighting
	Rarity         string
	TotalSightings int
	UniqueSpecies  int
}
