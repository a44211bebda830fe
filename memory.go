package helpdesksim

import (
	"fmt"
	"time"
)

// ──────────────────────────────────────────────
// Memory Model — durable cross-session record per (persona, user)
// ──────────────────────────────────────────────

// ProficiencyTier is the persona's view of how well the user handles a
// technical area. Tiers are ordered and never regress through
// UpdateTechnicalUnderstanding.
type ProficiencyTier string

const (
	TierNovice       ProficiencyTier = "novice"
	TierIntermediate ProficiencyTier = "intermediate"
	TierAdvanced     ProficiencyTier = "advanced"
	TierExpert       ProficiencyTier = "expert"
)

var tierRank = map[ProficiencyTier]int{
	TierNovice:       1,
	TierIntermediate: 2,
	TierAdvanced:     3,
	TierExpert:       4,
}

// TierScore maps a tier onto [0,1] for learning-progress aggregation.
func TierScore(t ProficiencyTier) float64 {
	switch t {
	case TierNovice:
		return 0.25
	case TierIntermediate:
		return 0.5
	case TierAdvanced:
		return 0.75
	case TierExpert:
		return 1.0
	default:
		return 0
	}
}

// KeyMoment is a notable event the persona remembers about the user.
type KeyMoment struct {
	Kind          string    `json:"kind"`   // e.g. breakthrough, setback, rapport
	Description   string    `json:"description"`
	Impact        string    `json:"impact"` // low/medium/high
	SourceMessage string    `json:"source_message,omitempty"`
	At            time.Time `json:"at"`
}

// SessionSummary is the compact record of one completed session.
type SessionSummary struct {
	SessionID        string        `json:"session_id"`
	Resolution       Resolution    `json:"resolution"`
	Duration         time.Duration `json:"duration"`
	InteractionCount int           `json:"interaction_count"`
	Satisfaction     int           `json:"satisfaction"` // final satisfaction level, 0-10
	EndedAt          time.Time     `json:"ended_at"`
}

// PersonaMemory is what a persona remembers about a specific user across
// sessions. Created lazily on first contact; retention/expiry is owned by
// the durable store, never by the engine.
type PersonaMemory struct {
	PersonaID              string                     `json:"persona_id"`
	UserID                 string                     `json:"user_id"`
	TotalInteractions      int                        `json:"total_interactions"`
	TechnicalUnderstanding map[string]ProficiencyTier `json:"technical_understanding"`
	KeyMoments             []KeyMoment                `json:"key_moments,omitempty"`
	SessionHistory         []SessionSummary           `json:"session_history,omitempty"`
	LastUpdated            time.Time                  `json:"last_updated"`
}

// NewPersonaMemory returns the zeroed memory for a first encounter.
func NewPersonaMemory(personaID, userID string) PersonaMemory {
	return PersonaMemory{
		PersonaID:              personaID,
		UserID:                 userID,
		TechnicalUnderstanding: map[string]ProficiencyTier{},
	}
}

// All update functions below are pure: they return a new memory value and
// never alias the input's maps or slices.

func (m PersonaMemory) copyValue() PersonaMemory {
	cp := m
	cp.TechnicalUnderstanding = make(map[string]ProficiencyTier, len(m.TechnicalUnderstanding))
	for k, v := range m.TechnicalUnderstanding {
		cp.TechnicalUnderstanding[k] = v
	}
	cp.KeyMoments = append([]KeyMoment(nil), m.KeyMoments...)
	cp.SessionHistory = append([]SessionSummary(nil), m.SessionHistory...)
	return cp
}

// UpdateTechnicalUnderstanding upgrades the stored tier for an area.
// The tier only moves when improved is true and the new tier is not
// lower than the stored one, so understanding never regresses.
func UpdateTechnicalUnderstanding(m PersonaMemory, area string, tier ProficiencyTier, improved bool, now time.Time) PersonaMemory {
	cp := m.copyValue()
	if !improved || area == "" {
		return cp
	}
	if current, ok := cp.TechnicalUnderstanding[area]; ok && tierRank[tier] < tierRank[current] {
		return cp
	}
	cp.TechnicalUnderstanding[area] = tier
	cp.LastUpdated = now
	return cp
}

// RecordKeyMoment appends to the ordered key-moment list. The model does
// not cap the list; callers trim per their retention policy.
func RecordKeyMoment(m PersonaMemory, kind, description, impact, sourceMessage string, now time.Time) PersonaMemory {
	cp := m.copyValue()
	cp.KeyMoments = append(cp.KeyMoments, KeyMoment{
		Kind:          kind,
		Description:   description,
		Impact:        impact,
		SourceMessage: sourceMessage,
		At:            now,
	})
	cp.LastUpdated = now
	return cp
}

// TrimKeyMoments keeps only the most recent max moments.
func TrimKeyMoments(m PersonaMemory, max int) PersonaMemory {
	cp := m.copyValue()
	if max > 0 && len(cp.KeyMoments) > max {
		cp.KeyMoments = append([]KeyMoment(nil), cp.KeyMoments[len(cp.KeyMoments)-max:]...)
	}
	return cp
}

// AddSessionMemory folds a completed session into the memory: the summary
// joins the history and the session's turns count toward
// TotalInteractions.
func AddSessionMemory(m PersonaMemory, summary SessionSummary, now time.Time) PersonaMemory {
	cp := m.copyValue()
	cp.SessionHistory = append(cp.SessionHistory, summary)
	cp.TotalInteractions += summary.InteractionCount
	cp.LastUpdated = now
	return cp
}

// PersonalizedGreeting derives a greeting variant from the relationship
// history. Consumed by response generators, not by the engine.
func PersonalizedGreeting(m PersonaMemory) string {
	switch {
	case m.TotalInteractions == 0:
		return "Hi, I don't think we've spoken before. I've got a problem I'm hoping you can help with."
	case m.TotalInteractions <= 5:
		return "Hi again. We've talked before — hopefully this one is as quick."
	default:
		return fmt.Sprintf("Good to get you again. You've helped me out %d times now, so I'll skip the preamble.", len(m.SessionHistory))
	}
}
