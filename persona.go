package helpdesksim

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ──────────────────────────────────────────────
// Persona catalog + selection
// ──────────────────────────────────────────────

// Persona is a configured synthetic customer personality. Trigger rules
// are a strongly typed, load-time-validated table.
type Persona struct {
	ID                 string        `json:"id" yaml:"id"`
	Name               string        `json:"name" yaml:"name"`
	Role               string        `json:"role" yaml:"role"` // e.g. "office worker", "executive"
	DefaultMood        Mood          `json:"default_mood" yaml:"default_mood"`
	CommunicationStyle string        `json:"communication_style" yaml:"communication_style"` // formal/casual/terse
	TimeSensitive      bool          `json:"time_sensitive" yaml:"time_sensitive"`
	BaseTrust          int           `json:"base_trust" yaml:"base_trust"`             // 0-10
	BaseFrustration    int           `json:"base_frustration" yaml:"base_frustration"` // 0-10
	Triggers           []TriggerRule `json:"triggers" yaml:"triggers"`
	TechnicalAreas     []string      `json:"technical_areas,omitempty" yaml:"technical_areas,omitempty"`
}

// Validate rejects malformed persona definitions before they reach the
// engine.
func (p *Persona) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return validationf("persona has empty id")
	}
	if strings.TrimSpace(p.Name) == "" {
		return validationf("persona %q has empty name", p.ID)
	}
	if !ValidMood(p.DefaultMood) {
		return validationf("persona %q has unknown default mood %q", p.ID, p.DefaultMood)
	}
	if p.BaseTrust < 0 || p.BaseTrust > 10 {
		return validationf("persona %q base trust %d out of range", p.ID, p.BaseTrust)
	}
	if p.BaseFrustration < 0 || p.BaseFrustration > 10 {
		return validationf("persona %q base frustration %d out of range", p.ID, p.BaseFrustration)
	}
	if err := validateTriggerRules(p.Triggers); err != nil {
		return fmt.Errorf("persona %q: %w", p.ID, err)
	}
	return nil
}

// defaultTriggerRules is the shared baseline table most personas start
// from. Order matters: matches apply sequentially, one mood step each.
func defaultTriggerRules() []TriggerRule {
	return []TriggerRule{
		{Phrase: "please hold", Direction: TriggerNegative},
		{Phrase: "restart", Direction: TriggerNegative},
		{Phrase: "reinstall", Direction: TriggerNegative},
		{Phrase: "not my department", Direction: TriggerNegative},
		{Phrase: "have you tried turning it off", Direction: TriggerNegative},
		{Phrase: "i'll fix this for you", Direction: TriggerPositive},
		{Phrase: "i understand how frustrating", Direction: TriggerPositive},
		{Phrase: "let me walk you through", Direction: TriggerPositive},
		{Phrase: "thank you for your patience", Direction: TriggerPositive},
		{Phrase: "fixed", Direction: TriggerPositive},
	}
}

// BuiltinPersonas returns the default catalog shipped with the engine.
func BuiltinPersonas() []*Persona {
	return []*Persona{
		{
			ID:                 "office-worker",
			Name:               "Dana Whitfield",
			Role:               "office worker",
			DefaultMood:        MoodNeutral,
			CommunicationStyle: "casual",
			BaseTrust:          5,
			BaseFrustration:    3,
			Triggers:           defaultTriggerRules(),
			TechnicalAreas:     []string{"email", "printing", "office-suite"},
		},
		{
			ID:                 "executive",
			Name:               "Victor Osei",
			Role:               "executive",
			DefaultMood:        MoodImpatient,
			CommunicationStyle: "terse",
			TimeSensitive:      true,
			BaseTrust:          4,
			BaseFrustration:    5,
			Triggers: append([]TriggerRule{
				{Phrase: "ticket queue", Direction: TriggerNegative},
				{Phrase: "escalated immediately", Direction: TriggerPositive},
			}, defaultTriggerRules()...),
			TechnicalAreas: []string{"vpn", "mobile", "presentations"},
		},
		{
			ID:                 "new-hire",
			Name:               "Priya Raman",
			Role:               "new hire",
			DefaultMood:        MoodConcerned,
			CommunicationStyle: "formal",
			BaseTrust:          6,
			BaseFrustration:    2,
			Triggers:           defaultTriggerRules(),
			TechnicalAreas:     []string{"onboarding", "accounts", "hardware"},
		},
		{
			ID:                 "remote-worker",
			Name:               "Marcus Bell",
			Role:               "remote worker",
			DefaultMood:        MoodFrustrated,
			CommunicationStyle: "casual",
			BaseTrust:          4,
			BaseFrustration:    6,
			Triggers: append([]TriggerRule{
				{Phrase: "come into the office", Direction: TriggerNegative},
			}, defaultTriggerRules()...),
			TechnicalAreas: []string{"vpn", "video-calls", "wifi"},
		},
	}
}

// personaFile is the on-disk YAML catalog shape.
type personaFile struct {
	Personas []*Persona `yaml:"personas"`
}

// LoadPersonaFile reads and validates a YAML persona catalog.
func LoadPersonaFile(path string) ([]*Persona, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read persona file: %w", err)
	}
	var file personaFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, validationf("parse persona file %s: %v", path, err)
	}
	if len(file.Personas) == 0 {
		return nil, validationf("persona file %s defines no personas", path)
	}
	seen := map[string]bool{}
	for _, p := range file.Personas {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		if seen[p.ID] {
			return nil, validationf("duplicate persona id %q", p.ID)
		}
		seen[p.ID] = true
	}
	return file.Personas, nil
}

// SelectionHints narrow persona selection for a new session.
type SelectionHints struct {
	PersonaID string `json:"persona_id,omitempty"` // exact pick
	Role      string `json:"role,omitempty"`       // role keyword match
}

// PersonaSelection is the selector's answer: the chosen persona plus the
// reasoning behind it.
type PersonaSelection struct {
	Persona   *Persona `json:"persona"`
	Rationale string   `json:"rationale"`
}

// PersonaSelector chooses a persona for a conversation context. The
// engine treats the result's id and name as opaque labels.
type PersonaSelector interface {
	SelectPersona(ctx context.Context, convCtx ConversationContext, hints SelectionHints) (*PersonaSelection, error)
}

// Registry is an immutable persona lookup built at construction.
type Registry struct {
	byID  map[string]*Persona
	order []*Persona
}

// NewRegistry validates and indexes a persona catalog.
func NewRegistry(personas []*Persona) (*Registry, error) {
	if len(personas) == 0 {
		return nil, validationf("registry needs at least one persona")
	}
	r := &Registry{byID: make(map[string]*Persona, len(personas))}
	for _, p := range personas {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		if _, dup := r.byID[p.ID]; dup {
			return nil, validationf("duplicate persona id %q", p.ID)
		}
		r.byID[p.ID] = p
		r.order = append(r.order, p)
	}
	return r, nil
}

// Get returns the persona for id, or nil.
func (r *Registry) Get(id string) *Persona {
	return r.byID[id]
}

// RegistrySelector resolves hints against a Registry: exact id first,
// then role keyword, then the ticket category against technical areas.
type RegistrySelector struct {
	registry *Registry
}

func NewRegistrySelector(registry *Registry) *RegistrySelector {
	return &RegistrySelector{registry: registry}
}

func (s *RegistrySelector) SelectPersona(_ context.Context, convCtx ConversationContext, hints SelectionHints) (*PersonaSelection, error) {
	if hints.PersonaID != "" {
		if p := s.registry.Get(hints.PersonaID); p != nil {
			return &PersonaSelection{Persona: p, Rationale: "explicit persona hint"}, nil
		}
		return nil, notFoundf("persona %q", hints.PersonaID)
	}
	if hints.Role != "" {
		role := strings.ToLower(hints.Role)
		for _, p := range s.registry.order {
			if strings.Contains(strings.ToLower(p.Role), role) {
				return &PersonaSelection{Persona: p, Rationale: fmt.Sprintf("role matched %q", hints.Role)}, nil
			}
		}
	}
	if convCtx.Category != "" {
		category := strings.ToLower(convCtx.Category)
		for _, p := range s.registry.order {
			for _, area := range p.TechnicalAreas {
				if strings.Contains(category, area) || strings.Contains(area, category) {
					return &PersonaSelection{Persona: p, Rationale: fmt.Sprintf("technical area matched category %q", convCtx.Category)}, nil
				}
			}
		}
	}
	return nil, notFoundf("no persona candidate for context")
}
