package criteria

import (
	"strings"
)

// Criterion is one parsed requirement. Apply folds the event into the
// progress record and reports whether it changed anything; Satisfied checks
// the accumulated progress against the requirement. Both are pure.
type Criterion interface {
	Key() string
	Apply(p *Progress, ev Event) bool
	Satisfied(p Progress) bool
}

// SightingCountCriterion counts every evaluated sighting ("sightings" key).
type SightingCountCriterion struct {
	Target int
}

// Key implements Criterion.
func (c SightingCountCriterion) Key() string { return KeySightings }

// Apply implements Criterion.
func (c SightingCountCriterion) Apply(p *Progress, _ Event) bool {
	p.Sightings++
	return true
}

// Satisfied implements Criterion.
func (c SightingCountCriterion) Satisfied(p Progress) bool {
	return p.Sightings >= c.Target
}

// TotalSightingsCriterion tracks the user's absolute sighting count
// ("total_sightings" key); the stored counter is overwritten from the event.
type TotalSightingsCriterion struct {
	Target int
}

// Key implements Criterion.
func (c TotalSightingsCriterion) Key() string { return KeyTotalSightings }

// Apply implements Criterion.
func (c TotalSightingsCriterion) Apply(p *Progress, ev Event) bool {
	if p.TotalSightings == ev.TotalSightings {
		return false
	}
	p.TotalSightings = ev.TotalSightings
	return true
}

// Satisfied implements Criterion.
func (c TotalSightingsCriterion) Satisfied(p Progress) bool {
	return p.TotalSightings >= c.Target
}

// UniqueSpeciesCriterion tracks the user's distinct-species count
// ("unique_species" key); the stored counter is overwritten from the event.
type UniqueSpeciesCriterion struct {
	Target int
}

// Key implements Criterion.
func (c UniqueSpeciesCriterion) Key() string { return KeyUniqueSpecies }

// Apply implements Criterion.
func (c UniqueSpeciesCriterion) Apply(p *Progress, ev Event) bool {
	if p.UniqueSpecies == ev.UniqueSpecies {
		return false
	}
	p.UniqueSpecies = ev.UniqueSpecies
	return true
}

// Satisfied implements Criterion.
func (c UniqueSpeciesCriterion) Satisfied(p Progress) bool {
	return p.UniqueSpecies >= c.Target
}

// RarityCriterion counts sightings whose bird rarity matches Rarity
// (case-insensitive). Achievement criteria tally the dedicated rarity_count
// counter and record the matched label; mission objectives share the plain
// count counter instead, so Shared selects the counter at parse time.
type RarityCriterion struct {
	Rarity        string
	RequiredCount int
	Shared        bool
}

// Key implements Criterion.
func (c RarityCriterion) Key() string { return KeyRarity }

// Apply implements Criterion.
func (c RarityCriterion) Apply(p *Progress, ev Event) bool {
	if !strings.EqualFold(ev.Rarity, c.Rarity) {
		return false
	}
	if c.Shared {
		p.Count++
	} else {
		p.RarityCount++
		p.MatchedRarity = c.Rarity
	}
	return true
}

// Satisfied implements Criterion.
func (c RarityCriterion) Satisfied(p Progress) bool {
	if c.Shared {
		return p.Count >= c.RequiredCount
	}
	return strings.EqualFold(p.MatchedRarity, c.Rarity) && p.RarityCount >= c.RequiredCount
}

// LocationCriterion counts sightings registered in a province or zone
// matching Location (case-insensitive). Field is the criterion key the
// requirement was parsed from ("province" or "zone").
type LocationCriterion struct {
	Field         string
	Location      string
	RequiredCount int
}

// Key implements Criterion.
func (c LocationCriterion) Key() string { return c.Field }

// Apply implements Criterion.
func (c LocationCriterion) Apply(p *Progress, ev Event) bool {
	if ev.Sighting == nil {
		return false
	}
	loc := ev.Sighting.Province
	if c.Field == KeyZone {
		loc = ev.Sighting.Zone
	}
	if !strings.EqualFold(loc, c.Location) {
		return false
	}
	p.Count++
	return true
}

// Satisfied implements Criterion.
func (c LocationCriterion) Satisfied(p Progress) bool {
	return p.Count >= c.RequiredCount
}

// TimeOfDayCriterion sets a one-shot flag when a sighting lands before
// BeforeHour (hour of day, local to the sighting timestamp). Idempotent.
type TimeOfDayCriterion struct {
	BeforeHour int
}

// Key implements Criterion.
func (c TimeOfDayCriterion) Key() string { return KeyBeforeHour }

// Apply implements Criterion.
func (c TimeOfDayCriterion) Apply(p *Progress, ev Event) bool {
	if ev.Sighting == nil || ev.Sighting.SightedAt.Hour() >= c.BeforeHour {
		return false
	}
	if p.EarlyBird >= 1 {
		return false
	}
	p.EarlyBird = 1
	return true
}

// Satisfied implements Criterion.
func (c TimeOfDayCriterion) Satisfied(p Progress) bool {
	return p.EarlyBird >= 1
}
