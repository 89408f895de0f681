package criteria

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
)

// Recognized criterion keys.
const (
	KeySightings      = "sightings"
	KeyTotalSightings = "total_sightings"
	KeyUniqueSpecies  = "unique_species"
	KeyRarity         = "rarity"
	KeyProvince       = "province"
	KeyZone           = "zone"
	KeyBeforeHour     = "first_of_day_before_hour"
	KeyCount          = "count"
)

// MalformedCriterionError reports a requirement value whose shape does not
// match its key, e.g. a rarity criterion without a string value. A malformed
// definition aborts evaluation for that definition only.
type MalformedCriterionError struct {
	Key    string
	Value  interface{}
	Reason string
}

// Error implements the error interface.
func (e *MalformedCriterionError) Error() string {
	return fmt.Sprintf("malformed criterion %q (value %v): %s", e.Key, e.Value, e.Reason)
}

// RuleSet is a parsed definition: the recognized criteria plus any keys the
// engine does not understand. Unknown keys never update progress and are
// never considered satisfied, so a definition carrying one cannot complete.
type RuleSet struct {
	Criteria []Criterion
	Unknown  []string
}

// Apply folds the event into the progress record through every criterion and
// reports whether anything changed.
func (rs RuleSet) Apply(p *Progress, ev Event) bool {
	changed := false
	for _, c := range rs.Criteria {
		if c.Apply(p, ev) {
			changed = true
		}
	}
	return changed
}

// Satisfied reports whether every criterion is independently satisfied
// (logical AND). Unknown keys count as unsatisfied.
func (rs RuleSet) Satisfied(p Progress) bool {
	if len(rs.Unknown) > 0 {
		return false
	}
	for _, c := range rs.Criteria {
		if !c.Satisfied(p) {
			return false
		}
	}
	return true
}

// NeedsFacts reports whether any criterion reads the externally supplied
// absolute sighting counts, so callers can skip the facts lookup otherwise.
func (rs RuleSet) NeedsFacts() bool {
	for _, c := range rs.Criteria {
		switch c.(type) {
		case TotalSightingsCriterion, UniqueSpeciesCriterion:
			return true
		}
	}
	return false
}

// ParseCriteria parses an achievement criteria map. All recognized keys are
// accepted; rarity tallies its dedicated counter and records the matched
// label. The companion "count" key is consumed by rarity/province/zone.
func ParseCriteria(raw json.RawMessage) (RuleSet, error) {
	return parse(raw, false)
}

// ParseObjective parses a mission objective map. The key set is restricted to
// sightings, rarity and province (plus their companion count); rarity shares
// the plain count counter with location objectives. Everything else is
// reported as unknown.
func ParseObjective(raw json.RawMessage) (RuleSet, error) {
	return parse(raw, true)
}

func parse(raw json.RawMessage, objective bool) (RuleSet, error) {
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return RuleSet{}, fmt.Errorf("failed to decode criteria map: %w", err)
	}

	// Definitions are small; sorting keeps evaluation order stable.
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	companion, companionPresent, err := companionCount(m)
	if err != nil {
		return RuleSet{}, err
	}

	var rs RuleSet
	countConsumed := false
	for _, key := range keys {
		value := m[key]
		switch key {
		case KeyCount:
			// Companion requirement, handled by its consumer below.
		case KeySightings:
			n, ok := asInt(value)
			if !ok {
				return RuleSet{}, &MalformedCriterionError{Key: key, Value: value, Reason: "requirement must be a number"}
			}
			rs.Criteria = append(rs.Criteria, SightingCountCriterion{Target: n})
		case KeyTotalSightings, KeyUniqueSpecies:
			if objective {
				rs.Unknown = append(rs.Unknown, key)
				continue
			}
			n, ok := asInt(value)
			if !ok {
				return RuleSet{}, &MalformedCriterionError{Key: key, Value: value, Reason: "requirement must be a number"}
			}
			if key == KeyTotalSightings {
				rs.Criteria = append(rs.Criteria, TotalSightingsCriterion{Target: n})
			} else {
				rs.Criteria = append(rs.Criteria, UniqueSpeciesCriterion{Target: n})
			}
		case KeyRarity:
			name, ok := value.(string)
			if !ok || name == "" {
				return RuleSet{}, &MalformedCriterionError{Key: key, Value: value, Reason: "requirement must be a non-empty string"}
			}
			rs.Criteria = append(rs.Criteria, RarityCriterion{Rarity: name, RequiredCount: companion, Shared: objective})
			countConsumed = true
		case KeyProvince, KeyZone:
			if objective && key == KeyZone {
				rs.Unknown = append(rs.Unknown, key)
				continue
			}
			name, ok := value.(string)
			if !ok || name == "" {
				return RuleSet{}, &MalformedCriterionError{Key: key, Value: value, Reason: "requirement must be a non-empty string"}
			}
			rs.Criteria = append(rs.Criteria, LocationCriterion{Field: key, Location: name, RequiredCount: companion})
			countConsumed = true
		case KeyBeforeHour:
			if objective {
				rs.Unknown = append(rs.Unknown, key)
				continue
			}
			h, ok := asInt(value)
			if !ok || h < 0 || h > 24 {
				return RuleSet{}, &MalformedCriterionError{Key: key, Value: value, Reason: "requirement must be an hour of day"}
			}
			rs.Criteria = append(rs.Criteria, TimeOfDayCriterion{BeforeHour: h})
		default:
			rs.Unknown = append(rs.Unknown, key)
		}
	}

	if companionPresent && !countConsumed {
		rs.Unknown = append(rs.Unknown, KeyCount)
	}
	return rs, nil
}

// companionCount resolves the shared "count" requirement used by rarity and
// location criteria, defaulting to 1 when absent.
func companionCount(m map[string]interface{}) (int, bool, error) {
	value, ok := m[KeyCount]
	if !ok {
		return 1, false, nil
	}
	n, numeric := asInt(value)
	if !numeric {
		return 0, true, &MalformedCriterionError{Key: KeyCount, Value: value, Reason: "requirement must be a number"}
	}
	return n, true, nil
}

// asInt accepts the numeric shapes a criteria map can carry: JSON numbers
// decode as float64, literals built in tests as int. A fractional value is
// a malformed requirement, not something to truncate.
func asInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int(n), true
	case int:
		return n, true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	default:
		return 0, false
	}
}
