package helpdesksim

import "strings"

// ──────────────────────────────────────────────
// Trigger & Learning-Moment Detection — keyword tables, pure functions
// ──────────────────────────────────────────────

// TriggerRule maps one phrase to a mood-scale direction. A persona
// carries a single ordered rule list; matches apply in declaration
// order, one scale step each.
type TriggerRule struct {
	Phrase    string           `json:"phrase" yaml:"phrase"`
	Direction TriggerDirection `json:"direction" yaml:"direction"`
}

// TriggerEvent is one detected trigger in a user message.
type TriggerEvent struct {
	Phrase    string           `json:"phrase"`
	Direction TriggerDirection `json:"direction"`
}

// DetectTriggers matches message against the rule list and returns zero
// or more events, in rule declaration order. Matching is case-insensitive
// substring containment, the same scheme the tone tables use.
func DetectTriggers(message string, rules []TriggerRule) []TriggerEvent {
	lower := strings.ToLower(message)
	var events []TriggerEvent
	for _, r := range rules {
		if r.Phrase == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(r.Phrase)) {
			events = append(events, TriggerEvent{Phrase: r.Phrase, Direction: r.Direction})
		}
	}
	return events
}

// LearningMoment is a detected event indicating the trainee demonstrated
// understanding or skill during a turn.
type LearningMoment struct {
	Kind          string `json:"kind"`   // concept_learned / skill_demonstrated
	Description   string `json:"description"`
	Impact        string `json:"impact"` // low/medium/high
	TechnicalArea string `json:"technical_area,omitempty"`
}

const (
	MomentConceptLearned    = "concept_learned"
	MomentSkillDemonstrated = "skill_demonstrated"
)

// learningPhrase is one row of the fixed phrase-heuristic table.
type learningPhrase struct {
	phrase      string
	kind        string
	impact      string
	description string
}

// The table is data, not code: it can be swapped without engine changes.
var defaultLearningPhrases = []learningPhrase{
	// Understanding signals
	{"i understand", MomentConceptLearned, "medium", "user articulated understanding of the explanation"},
	{"that makes sense", MomentConceptLearned, "medium", "user confirmed the concept clicked"},
	{"i see how", MomentConceptLearned, "medium", "user traced the cause themselves"},
	{"now i get it", MomentConceptLearned, "medium", "user reported the concept landed"},
	{"so that's why", MomentConceptLearned, "medium", "user connected symptom to cause"},
	// Gratitude / skill signals
	{"thank you", MomentSkillDemonstrated, "high", "user expressed gratitude for the support"},
	{"thanks so much", MomentSkillDemonstrated, "high", "user expressed strong gratitude"},
	{"that's helpful", MomentSkillDemonstrated, "high", "user found the guidance helpful"},
	{"really appreciate", MomentSkillDemonstrated, "high", "user appreciated the handling"},
	{"you've been great", MomentSkillDemonstrated, "high", "user praised the service"},
}

// DetectLearningMoments scans the message against the phrase table. Each
// distinct kind is reported at most once per turn; technicalArea tags the
// moment with the session's ticket category when present.
func DetectLearningMoments(message, technicalArea string) []LearningMoment {
	lower := strings.ToLower(message)
	seen := map[string]bool{}
	var moments []LearningMoment
	for _, p := range defaultLearningPhrases {
		if seen[p.kind] || !strings.Contains(lower, p.phrase) {
			continue
		}
		seen[p.kind] = true
		moments = append(moments, LearningMoment{
			Kind:          p.kind,
			Description:   p.description,
			Impact:        p.impact,
			TechnicalArea: technicalArea,
		})
	}
	return moments
}

// validateTriggerRules rejects malformed rule tables at load time.
func validateTriggerRules(rules []TriggerRule) error {
	for i, r := range rules {
		if strings.TrimSpace(r.Phrase) == "" {
			return validationf("trigger rule %d has empty phrase", i)
		}
		if r.Direction != TriggerPositive && r.Direction != TriggerNegative {
			return validationf("trigger rule %d (%q) has unknown direction %q", i, r.Phrase, r.Direction)
		}
	}
	return nil
}
