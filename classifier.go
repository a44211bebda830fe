package helpdesksim

import "strings"

// ──────────────────────────────────────────────
// Interaction Type Classifier — keyword priority ordering
// ──────────────────────────────────────────────

// Keyword tables per interaction type, checked in priority order.
// Escalation outranks resolution outranks problem description;
// troubleshooting is the default when nothing matches.
var (
	escalationKeywords = []string{
		"manager", "supervisor", "escalate", "complaint", "unacceptable", "speak to someone else",
	}
	resolutionKeywords = []string{
		"fixed", "working now", "resolved", "solved", "that worked", "all good now",
	}
	problemKeywords = []string{
		"error", "broken", "not working", "crash", "can't log", "won't start", "blue screen", "frozen",
	}
)

// ClassifyInteraction returns the type for a user turn. The first turn of
// a session is always a greeting regardless of content.
func ClassifyInteraction(message string, turnIndex int) InteractionType {
	if turnIndex <= 1 {
		return InteractionGreeting
	}
	lower := strings.ToLower(message)
	switch {
	case containsAny(lower, escalationKeywords):
		return InteractionEscalation
	case containsAny(lower, resolutionKeywords):
		return InteractionResolution
	case containsAny(lower, problemKeywords):
		return InteractionProblem
	default:
		return InteractionTroubleshooting
	}
}

func containsAny(lower string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
