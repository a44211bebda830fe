package helpdesksim

import (
	"time"

	"github.com/google/uuid"
)

// ──────────────────────────────────────────────
// Session data model
// ──────────────────────────────────────────────

// Resolution is the tri-state outcome of a session's issue.
type Resolution string

const (
	ResolutionUnresolved Resolution = "unresolved"
	ResolutionResolved   Resolution = "resolved"
	ResolutionAbandoned  Resolution = "abandoned"
)

// InteractionType classifies a single user turn.
type InteractionType string

const (
	InteractionGreeting        InteractionType = "greeting"
	InteractionEscalation      InteractionType = "escalation"
	InteractionResolution      InteractionType = "resolution"
	InteractionProblem         InteractionType = "problem_description"
	InteractionTroubleshooting InteractionType = "troubleshooting"
)

// Priority is the business priority of the ticket driving the session.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// BusinessContext describes the organizational stakes of the ticket.
type BusinessContext struct {
	Priority       Priority `json:"priority"`
	Impact         string   `json:"impact,omitempty"`
	AffectedUsers  int      `json:"affected_users,omitempty"`
	EscalationPath string   `json:"escalation_path,omitempty"`
}

// ConversationContext is fixed for the lifetime of a session. It is used
// only to compute initial state modifiers and is never mutated after
// session start.
type ConversationContext struct {
	TicketID           string          `json:"ticket_id,omitempty"`
	TicketSummary      string          `json:"ticket_summary,omitempty"`
	Category           string          `json:"category,omitempty"`
	LearningObjectives []string        `json:"learning_objectives,omitempty"`
	Business           BusinessContext `json:"business"`
}

// ContextualFactors is the environment snapshot baked into the state at
// session start.
type ContextualFactors struct {
	Urgency        string `json:"urgency"`         // mirrors business priority
	BusinessImpact string `json:"business_impact"` // free-form impact label
	TimeOfDay      string `json:"time_of_day"`     // morning/afternoon/evening/late_night
}

// BehavioralModifiers are durable per-session flags influencing responses.
type BehavioralModifiers struct {
	HasReceivedGoodService bool `json:"has_received_good_service"`
	HasBeenEscalated       bool `json:"has_been_escalated"`
	ContactedOffHours      bool `json:"contacted_off_hours"`
}

// PersonaState is the mutable emotional/behavioral snapshot of a session.
// All *Level fields stay within [0,10] after every transition.
type PersonaState struct {
	CurrentMood       Mood                `json:"current_mood"`
	FrustrationLevel  int                 `json:"frustration_level"`
	TrustLevel        int                 `json:"trust_level"`
	SatisfactionLevel int                 `json:"satisfaction_level"`
	EngagementLevel   int                 `json:"engagement_level"`
	InteractionCount  int                 `json:"interaction_count"`
	TimeInSession     time.Duration       `json:"time_in_session"`
	IssueResolved     Resolution          `json:"issue_resolved"`
	Contextual        ContextualFactors   `json:"contextual_factors"`
	Behavioral        BehavioralModifiers `json:"behavioral_modifiers"`
	LastUpdated       time.Time           `json:"last_updated"`
}

// ResponseMetrics records per-turn generation metadata.
type ResponseMetrics struct {
	ResponseTimeMs int64 `json:"response_time_ms"`
	TriggerCount   int   `json:"trigger_count"`
	ResponseLength int   `json:"response_length"`
}

// PersonaInteraction is the write-once record of one user turn.
type PersonaInteraction struct {
	ID              string           `json:"id"`
	Timestamp       time.Time        `json:"timestamp"`
	UserMessage     string           `json:"user_message"`
	UserAction      string           `json:"user_action,omitempty"`
	Response        string           `json:"response"`
	Type            InteractionType  `json:"type"`
	MoodChanges     []MoodChange     `json:"mood_changes,omitempty"`
	LearningMoments []LearningMoment `json:"learning_moments,omitempty"`
	Metrics         ResponseMetrics  `json:"metrics"`
}

// PersonaSession is one bounded training conversation between a user and
// a persona instantiation. The memory record it references is shared
// across sessions for the same (persona, user) pair.
type PersonaSession struct {
	SessionID          string               `json:"session_id"`
	PersonaID          string               `json:"persona_id"`
	PersonaName        string               `json:"persona_name"`
	CommunicationStyle string               `json:"communication_style,omitempty"`
	UserID             string               `json:"user_id"`
	Context            ConversationContext  `json:"context"`
	State              PersonaState         `json:"state"`
	Interactions       []PersonaInteraction `json:"interactions,omitempty"`
	StartTime          time.Time            `json:"start_time"`
	LastActivity       time.Time            `json:"last_activity"`
	IsActive           bool                 `json:"is_active"`
}

// clone returns a deep copy so a turn can be staged without touching the
// cached session until the turn commits.
func (s *PersonaSession) clone() *PersonaSession {
	cp := *s
	cp.Interactions = make([]PersonaInteraction, len(s.Interactions))
	copy(cp.Interactions, s.Interactions)
	cp.Context.LearningObjectives = append([]string(nil), s.Context.LearningObjectives...)
	return &cp
}

func newInteractionID() string {
	return uuid.NewString()
}

// classifyTimeOfDay buckets an hour into the contextual time-of-day label.
func classifyTimeOfDay(hour int) string {
	switch {
	case hour >= 6 && hour < 12:
		return "morning"
	case hour >= 12 && hour < 18:
		return "afternoon"
	case hour >= 18 && hour < 23:
		return "evening"
	default:
		return "late_night"
	}
}

// withinBusinessHours reports whether t falls in Mon-Fri 08:00-18:00.
func withinBusinessHours(t time.Time) bool {
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	return t.Hour() >= 8 && t.Hour() < 18
}
