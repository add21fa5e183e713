// ABOUTME: Stat names, activity rewards and the persisted stat table format
// ABOUTME: Reads both {level,progress} and the older {value,xp} shape

package progression

import (
	"encoding/json"
	"fmt"
)

// Stat is one RPG attribute.
type Stat string

const (
	STR Stat = "STR"
	PER Stat = "PER"
	INT Stat = "INT"
	WIL Stat = "WIL"
)

// Stats lists every stat in display order.
var Stats = []Stat{STR, PER, INT, WIL}

// Name returns the long display name.
func (s Stat) Name() string {
	switch s {
	case STR:
		return "Strength"
	case PER:
		return "Perception"
	case INT:
		return "Intelligence"
	case WIL:
		return "Willpower"
	}
	return string(s)
}

func (s Stat) valid() bool {
	for _, known := range Stats {
		if s == known {
			return true
		}
	}
	return false
}

// LevelThreshold is the progress needed for one level.
const LevelThreshold = 100

// Activity is a kind of logged action that earns XP.
type Activity string

const (
	ActivityWorkout    Activity = "workout"
	ActivityMeditation Activity = "meditation"
	ActivityCode       Activity = "code"
	ActivityPsychTest  Activity = "psychTest"
)

// Reward is the XP an activity grants before bonuses.
type Reward struct {
	Stat   Stat
	Amount int
	// ClassBonus is the benefit that scales this activity, if any.
	ClassBonus Benefit
}

// Rewards is the fixed activity table.
var Rewards = map[Activity]Reward{
	ActivityWorkout:    {Stat: STR, Amount: 10, ClassBonus: WorkoutXP},
	ActivityMeditation: {Stat: PER, Amount: 15, ClassBonus: MeditationXP},
	ActivityCode:       {Stat: INT, Amount: 20, ClassBonus: CodeXP},
	ActivityPsychTest:  {Stat: WIL, Amount: 10},
}

// StatValue is a stat's level and progress toward the next level.
type StatValue struct {
	Level    int `json:"level"`
	Progress int `json:"progress"`
}

// UnmarshalJSON accepts the current and the older {value,xp} encoding.
func (v *StatValue) UnmarshalJSON(data []byte) error {
	var raw struct {
		Level    *int `json:"level"`
		Progress *int `json:"progress"`
		Value    *int `json:"value"`
		XP       *int `json:"xp"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	v.Level, v.Progress = 1, 0
	switch {
	case raw.Level != nil:
		v.Level = *raw.Level
	case raw.Value != nil:
		v.Level = *raw.Value
	}
	switch {
	case raw.Progress != nil:
		v.Progress = *raw.Progress
	case raw.XP != nil:
		v.Progress = *raw.XP
	}
	v.normalize()
	return nil
}

// normalize restores the level >= 1 and 0 <= progress < threshold invariants.
func (v *StatValue) normalize() {
	if v.Level < 1 {
		v.Level = 1
	}
	if v.Progress < 0 {
		v.Progress = 0
	}
	for v.Progress >= LevelThreshold {
		v.Progress -= LevelThreshold
		v.Level++
	}
}

// DefaultStats returns every stat at level 1 with no progress.
func DefaultStats() map[Stat]StatValue {
	out := make(map[Stat]StatValue, len(Stats))
	for _, s := range Stats {
		out[s] = StatValue{Level: 1}
	}
	return out
}

// DecodeStats parses a persisted stat table. Missing stats get defaults and
// unknown names are dropped.
func DecodeStats(data []byte) (map[Stat]StatValue, error) {
	var parsed map[Stat]StatValue
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("decoding stats: %w", err)
	}
	out := DefaultStats()
	for s, v := range parsed {
		if s.valid() {
			out[s] = v
		}
	}
	return out, nil
}
