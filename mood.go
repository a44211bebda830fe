package helpdesksim

import "time"

// ──────────────────────────────────────────────
// Mood State Machine — ordered 8-point emotional scale
// ──────────────────────────────────────────────

// Mood is one position on the ordered emotional scale.
type Mood string

const (
	MoodAngry      Mood = "angry"
	MoodFrustrated Mood = "frustrated"
	MoodImpatient  Mood = "impatient"
	MoodConcerned  Mood = "concerned"
	MoodNeutral    Mood = "neutral"
	MoodCalm       Mood = "calm"
	MoodPleased    Mood = "pleased"
	MoodGrateful   Mood = "grateful"
)

// moodScale is the full scale from the negative end to the positive end.
// ApplyTrigger moves exactly one position along this ordering.
var moodScale = []Mood{
	MoodAngry,
	MoodFrustrated,
	MoodImpatient,
	MoodConcerned,
	MoodNeutral,
	MoodCalm,
	MoodPleased,
	MoodGrateful,
}

// TriggerDirection is the direction of a detected mood trigger.
type TriggerDirection string

const (
	TriggerPositive TriggerDirection = "positive"
	TriggerNegative TriggerDirection = "negative"
)

// MoodChange is the audit record for a single mood transition.
// From == To when the scale was already clamped at an end.
type MoodChange struct {
	From          Mood             `json:"from"`
	To            Mood             `json:"to"`
	Trigger       TriggerDirection `json:"trigger"`
	SourceMessage string           `json:"source_message,omitempty"`
	At            time.Time        `json:"at"`
}

// ValidMood reports whether m is a position on the scale.
func ValidMood(m Mood) bool {
	return moodIndex(m) >= 0
}

func moodIndex(m Mood) int {
	for i, s := range moodScale {
		if s == m {
			return i
		}
	}
	return -1
}

// ApplyTrigger moves mood one step toward grateful (positive) or angry
// (negative), clamped at the ends of the scale. Repeated positive
// triggers at grateful are no-ops, symmetric at angry. Unknown moods are
// treated as neutral.
func ApplyTrigger(mood Mood, direction TriggerDirection) Mood {
	idx := moodIndex(mood)
	if idx < 0 {
		idx = moodIndex(MoodNeutral)
	}
	switch direction {
	case TriggerPositive:
		if idx < len(moodScale)-1 {
			idx++
		}
	case TriggerNegative:
		if idx > 0 {
			idx--
		}
	}
	return moodScale[idx]
}

// applyTriggerWithAudit applies one trigger and returns the audit record.
func applyTriggerWithAudit(mood Mood, direction TriggerDirection, sourceMessage string, now time.Time) (Mood, MoodChange) {
	next := ApplyTrigger(mood, direction)
	return next, MoodChange{
		From:          mood,
		To:            next,
		Trigger:       direction,
		SourceMessage: sourceMessage,
		At:            now,
	}
}

// clampLevel keeps a bounded behavioral attribute within [0,10].
func clampLevel(v int) int {
	if v < 0 {
		return 0
	}
	if v > 10 {
		return 10
	}
	return v
}
