package helpdesksim

import (
	"context"
	"fmt"
	"strings"
)

// ──────────────────────────────────────────────
// Response generation — opaque contract + rule-based default
// ──────────────────────────────────────────────

// ResponseGenerator produces the customer's reply for a turn. The engine
// passes the staged session (state already updated for this turn) and the
// shared memory record, and treats the returned text as opaque.
type ResponseGenerator interface {
	Generate(ctx context.Context, session *PersonaSession, memory PersonaMemory, userMessage string) (string, error)
}

// TemplateGenerator is the built-in rule-based generator: mood-banded
// phrase tables shaded by the persona's communication style. Good enough
// for training drills and deterministic tests; swap in an LLM-backed
// implementation for production.
type TemplateGenerator struct{}

func NewTemplateGenerator() *TemplateGenerator {
	return &TemplateGenerator{}
}

// moodBand collapses the 8-point scale into four response registers.
func moodBand(m Mood) string {
	switch m {
	case MoodAngry, MoodFrustrated:
		return "hostile"
	case MoodImpatient, MoodConcerned:
		return "wary"
	case MoodPleased, MoodGrateful:
		return "warm"
	default:
		return "even"
	}
}

var responseFragments = map[string][]string{
	"hostile": {
		"Look, I've already told you what's happening. This is costing me real time.",
		"I'm not going to repeat myself again. Is this getting fixed or not?",
		"This keeps happening and nobody seems to take it seriously.",
	},
	"wary": {
		"Okay... I'll try that, but I'm not convinced it'll help.",
		"I did what you said. It still looks wrong from my end.",
		"How long is this going to take? I have things waiting on it.",
	},
	"even": {
		"Alright, let me try that now.",
		"Okay, that step worked. What's next?",
		"Sure. Here's what I'm seeing on my screen now.",
	},
	"warm": {
		"That did it, I think. It's behaving normally now.",
		"That actually makes sense. Thanks for explaining it.",
		"Great, that's working. You've made this painless.",
	},
}

func (g *TemplateGenerator) Generate(_ context.Context, session *PersonaSession, memory PersonaMemory, _ string) (string, error) {
	state := session.State

	// First turn: personalized greeting from memory plus the complaint.
	if state.InteractionCount <= 1 {
		greeting := PersonalizedGreeting(memory)
		if session.Context.TicketSummary != "" {
			return fmt.Sprintf("%s %s", greeting, session.Context.TicketSummary), nil
		}
		return greeting, nil
	}

	band := moodBand(state.CurrentMood)
	fragments := responseFragments[band]
	text := fragments[state.InteractionCount%len(fragments)]

	// Keep the reply anchored to the ticket once in a while.
	if session.Context.Category != "" && state.InteractionCount%4 == 0 {
		text = fmt.Sprintf("%s It's still about the %s issue, to be clear.", text, session.Context.Category)
	}

	return applyStyle(text, session.CommunicationStyle), nil
}

// applyStyle shades a reply with the persona's communication style.
func applyStyle(text, style string) string {
	switch style {
	case "terse":
		// Keep only the first sentence.
		if idx := strings.IndexAny(text, ".?!"); idx >= 0 && idx < len(text)-1 {
			return text[:idx+1]
		}
		return text
	case "formal":
		return "Well — " + text
	default:
		return text
	}
}

var _ ResponseGenerator = (*TemplateGenerator)(nil)
