package criteria

import (
	"encoding/json"
	"fmt"
)

// Progress is the typed per-row accumulator. It serializes to the same JSONB
// shape the progress column has always used, one field per criterion kind:
// plain counters, the shared count used by rarity/location objectives, the
// matched rarity label and the before-hour one-shot flag.
type Progress struct {
	Sightings      int    `json:"sightings,omitempty"`
	TotalSightings int    `json:"total_sightings,omitempty"`
	UniqueSpecies  int    `json:"unique_species,omitempty"`
	RarityCount    int    `json:"rarity_count,omitempty"`
	MatchedRarity  string `json:"rarity,omitempty"`
	Count          int    `json:"count,omitempty"`
	EarlyBird      int    `json:"first_of_day_before_hour,omitempty"`
}

// ParseProgress decodes a stored progress column. A nil or empty column is an
// empty record (rows are created lazily with no progress).
func ParseProgress(raw json.RawMessage) (Progress, error) {
	var p Progress
	if len(raw) == 0 {
		return p, nil
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return Progress{}, fmt.Errorf("failed to decode progress record: %w", err)
	}
	return p, nil
}

// Marshal encodes the record for storage.
func (p Progress) Marshal() (json.RawMessage, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to encode progress record: %w", err)
	}
	return raw, nil
}
