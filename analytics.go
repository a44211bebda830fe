package helpdesksim

import "time"

// ──────────────────────────────────────────────
// Analytics Synthesizer — read-only projections over state and memory
// ──────────────────────────────────────────────

// StateInsight summarizes the final PersonaState of a session.
type StateInsight struct {
	EngagementQuality   string   `json:"engagement_quality"` // low/moderate/high
	OverallSatisfaction int      `json:"overall_satisfaction"`
	RecommendedActions  []string `json:"recommended_actions,omitempty"`
}

// MemoryInsight summarizes the cross-session relationship.
type MemoryInsight struct {
	LearningProgress      float64  `json:"learning_progress"`  // 0-1, from proficiency tiers
	SatisfactionTrend     float64  `json:"satisfaction_trend"` // 0-10, recent session history
	RecommendedApproaches []string `json:"recommended_approaches,omitempty"`
}

// PersonaAnalytics is the combined session-end report. It never mutates
// state or memory.
type PersonaAnalytics struct {
	SessionID             string        `json:"session_id"`
	Resolution            Resolution    `json:"resolution"`
	OverallPerformance    float64       `json:"overall_performance"` // avg(state satisfaction, memory trend)
	LearningEffectiveness float64       `json:"learning_effectiveness"`
	EngagementLevel       string        `json:"engagement_level"`
	SkillDevelopment      []string      `json:"skill_development,omitempty"`
	BehaviorPatterns      []string      `json:"behavior_patterns,omitempty"`
	State                 StateInsight  `json:"state_insight"`
	Memory                MemoryInsight `json:"memory_insight"`
	Duration              time.Duration `json:"duration"`
	InteractionCount      int           `json:"interaction_count"`
}

// satisfactionTrendWindow bounds how much history feeds the trend.
const satisfactionTrendWindow = 5

// DeriveStateInsight projects the final state into an insight summary.
func DeriveStateInsight(state PersonaState) StateInsight {
	insight := StateInsight{
		EngagementQuality:   engagementQuality(state.EngagementLevel),
		OverallSatisfaction: state.SatisfactionLevel,
	}
	if state.FrustrationLevel >= 7 {
		insight.RecommendedActions = append(insight.RecommendedActions,
			"acknowledge the frustration before continuing to troubleshoot")
	}
	if state.TrustLevel <= 3 {
		insight.RecommendedActions = append(insight.RecommendedActions,
			"explain each step before taking it to rebuild trust")
	}
	if state.EngagementLevel <= 3 {
		insight.RecommendedActions = append(insight.RecommendedActions,
			"ask a direct question about the symptom to re-engage")
	}
	if state.SatisfactionLevel >= 8 {
		insight.RecommendedActions = append(insight.RecommendedActions,
			"confirm the fix and summarize what was done")
	}
	return insight
}

func engagementQuality(level int) string {
	switch {
	case level >= 7:
		return "high"
	case level >= 4:
		return "moderate"
	default:
		return "low"
	}
}

// DeriveMemoryInsight projects the memory record. fallbackSatisfaction is
// used as the trend when the relationship has no completed sessions yet
// (a first session has nothing to average over).
func DeriveMemoryInsight(memory PersonaMemory, fallbackSatisfaction int) MemoryInsight {
	insight := MemoryInsight{
		LearningProgress:  learningProgress(memory),
		SatisfactionTrend: satisfactionTrend(memory, fallbackSatisfaction),
	}
	if insight.LearningProgress >= 0.5 {
		insight.RecommendedApproaches = append(insight.RecommendedApproaches,
			"skip the basics, this user follows technical explanations")
	} else {
		insight.RecommendedApproaches = append(insight.RecommendedApproaches,
			"keep instructions concrete and one step at a time")
	}
	if insight.SatisfactionTrend < 4 {
		insight.RecommendedApproaches = append(insight.RecommendedApproaches,
			"prior sessions went poorly, open by acknowledging the history")
	}
	return insight
}

func learningProgress(memory PersonaMemory) float64 {
	if len(memory.TechnicalUnderstanding) == 0 {
		return 0
	}
	total := 0.0
	for _, tier := range memory.TechnicalUnderstanding {
		total += TierScore(tier)
	}
	return total / float64(len(memory.TechnicalUnderstanding))
}

func satisfactionTrend(memory PersonaMemory, fallback int) float64 {
	history := memory.SessionHistory
	if len(history) == 0 {
		return float64(fallback)
	}
	if len(history) > satisfactionTrendWindow {
		history = history[len(history)-satisfactionTrendWindow:]
	}
	total := 0
	for _, s := range history {
		total += s.Satisfaction
	}
	return float64(total) / float64(len(history))
}

// SynthesizeAnalytics combines the state and memory insights into the
// session-end report. Memory is the pre-fold record: the ending session's
// own summary is not yet part of the history it averages.
func SynthesizeAnalytics(session *PersonaSession, memory PersonaMemory) PersonaAnalytics {
	state := session.State
	stateInsight := DeriveStateInsight(state)
	memoryInsight := DeriveMemoryInsight(memory, state.SatisfactionLevel)

	return PersonaAnalytics{
		SessionID:             session.SessionID,
		Resolution:            state.IssueResolved,
		OverallPerformance:    (float64(stateInsight.OverallSatisfaction) + memoryInsight.SatisfactionTrend) / 2,
		LearningEffectiveness: memoryInsight.LearningProgress,
		EngagementLevel:       stateInsight.EngagementQuality,
		SkillDevelopment:      skillDevelopment(state),
		BehaviorPatterns:      behaviorPatterns(state),
		State:                 stateInsight,
		Memory:                memoryInsight,
		Duration:              state.TimeInSession,
		InteractionCount:      state.InteractionCount,
	}
}

// skillDevelopment derives demonstrated skills from the session counters.
func skillDevelopment(state PersonaState) []string {
	var skills []string
	if state.IssueResolved == ResolutionResolved && state.InteractionCount <= 8 {
		skills = append(skills, "efficient diagnosis")
	}
	if state.SatisfactionLevel >= 7 {
		skills = append(skills, "customer rapport")
	}
	if state.TrustLevel >= 7 {
		skills = append(skills, "trust building")
	}
	if state.FrustrationLevel <= 2 && state.InteractionCount > 3 {
		skills = append(skills, "de-escalation")
	}
	return skills
}

// behaviorPatterns flags notable session shapes worth reviewing.
func behaviorPatterns(state PersonaState) []string {
	var patterns []string
	if state.InteractionCount >= 15 {
		patterns = append(patterns, "extended troubleshooting")
	}
	if state.TimeInSession > 30*time.Minute {
		patterns = append(patterns, "long-running session")
	}
	if state.Behavioral.HasBeenEscalated {
		patterns = append(patterns, "escalation requested")
	}
	if state.IssueResolved == ResolutionAbandoned {
		patterns = append(patterns, "session abandoned")
	}
	return patterns
}
