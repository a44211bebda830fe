// Package helpdesksim implements a stateful, persona-driven customer
// simulation for IT-support training. A trainee exchanges messages with a
// synthetic customer whose mood, trust, and cooperativeness evolve over
// the session and persist across sessions through long-term memory.
package helpdesksim

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.uber.org/atomic"

	"github.com/Benjamin-Rutt-Cyber/it-helpdesk-simulator-sub010/store"
)

// ──────────────────────────────────────────────
// Session Orchestrator — lifecycle, per-turn transitions, persistence
// ──────────────────────────────────────────────

// EngineConfig tunes an Engine. Zero values fall back to defaults.
type EngineConfig struct {
	Logger           *zerolog.Logger // nil disables logging
	SessionTTL       time.Duration   // store expiry for session snapshots, default 1h
	MemoryTTL        time.Duration   // store expiry for memory records, default 24h
	GeneratorTimeout time.Duration   // bound on one response-generation call, default 10s
	KeyMomentCap     int             // most-recent-N retention for key moments, default 50
	Clock            func() time.Time
}

const (
	defaultGeneratorTimeout = 10 * time.Second
	defaultKeyMomentCap     = 50
)

// Engine owns session lifecycle: it merges memory and context into the
// initial state, applies per-turn transitions, and writes through to the
// durable store. The in-process active map is a performance cache only;
// the store stays the source of truth.
type Engine struct {
	store     store.Store
	selector  PersonaSelector
	generator ResponseGenerator
	registry  *Registry
	log       zerolog.Logger
	clock     func() time.Time

	sessionTTL       time.Duration
	memoryTTL        time.Duration
	generatorTimeout time.Duration
	keyMomentCap     int

	mu     sync.Mutex
	active map[string]*activeSession

	sessionsStarted atomic.Int64
	turnsProcessed  atomic.Int64
	sessionsEnded   atomic.Int64
}

// activeSession pairs a cached session with its turn lock. Turns for one
// session serialize on mu; different sessions only share the map mutex.
type activeSession struct {
	mu      sync.Mutex
	session *PersonaSession
}

// NewEngine wires the orchestrator with explicit dependencies. The
// registry must be able to resolve every persona id the selector can
// return, since trigger tables live on the persona.
func NewEngine(st store.Store, selector PersonaSelector, generator ResponseGenerator, registry *Registry, config ...EngineConfig) (*Engine, error) {
	if st == nil || selector == nil || generator == nil || registry == nil {
		return nil, validationf("engine needs store, selector, generator, and registry")
	}
	cfg := EngineConfig{}
	if len(config) > 0 {
		cfg = config[0]
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = store.DefaultSessionTTL
	}
	if cfg.MemoryTTL <= 0 {
		cfg.MemoryTTL = store.DefaultMemoryTTL
	}
	if cfg.GeneratorTimeout <= 0 {
		cfg.GeneratorTimeout = defaultGeneratorTimeout
	}
	if cfg.KeyMomentCap <= 0 {
		cfg.KeyMomentCap = defaultKeyMomentCap
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	logger := zerolog.Nop()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}
	return &Engine{
		store:            st,
		selector:         selector,
		generator:        generator,
		registry:         registry,
		log:              logger,
		clock:            cfg.Clock,
		sessionTTL:       cfg.SessionTTL,
		memoryTTL:        cfg.MemoryTTL,
		generatorTimeout: cfg.GeneratorTimeout,
		keyMomentCap:     cfg.KeyMomentCap,
		active:           make(map[string]*activeSession),
	}, nil
}

// EngineStats is a snapshot of the engine's lifetime counters.
type EngineStats struct {
	SessionsStarted int64 `json:"sessions_started"`
	TurnsProcessed  int64 `json:"turns_processed"`
	SessionsEnded   int64 `json:"sessions_ended"`
	ActiveSessions  int   `json:"active_sessions"`
}

// Stats returns the current counters.
func (e *Engine) Stats() EngineStats {
	e.mu.Lock()
	active := len(e.active)
	e.mu.Unlock()
	return EngineStats{
		SessionsStarted: e.sessionsStarted.Load(),
		TurnsProcessed:  e.turnsProcessed.Load(),
		SessionsEnded:   e.sessionsEnded.Load(),
		ActiveSessions:  active,
	}
}

// StartSession creates a session for (sessionID, userID) against the
// persona the selector picks. Fails with ErrNotFound when selection
// yields no candidate, and with ErrValidation when the id is already
// active on this instance.
func (e *Engine) StartSession(ctx context.Context, sessionID, userID string, convCtx ConversationContext, hints SelectionHints) (*PersonaSession, error) {
	if strings.TrimSpace(sessionID) == "" || strings.TrimSpace(userID) == "" {
		return nil, validationf("sessionID and userID are required")
	}
	e.mu.Lock()
	_, exists := e.active[sessionID]
	e.mu.Unlock()
	if exists {
		return nil, validationf("session %s is already active", sessionID)
	}

	selection, err := e.selector.SelectPersona(ctx, convCtx, hints)
	if err != nil {
		return nil, fmt.Errorf("select persona: %w", err)
	}
	persona := selection.Persona

	memory, err := e.loadMemory(ctx, persona.ID, userID)
	if err != nil {
		return nil, err
	}

	now := e.clock()
	session := &PersonaSession{
		SessionID:          sessionID,
		PersonaID:          persona.ID,
		PersonaName:        persona.Name,
		CommunicationStyle: persona.CommunicationStyle,
		UserID:             userID,
		Context:            convCtx,
		State:              initialState(persona, memory, convCtx, now),
		StartTime:          now,
		LastActivity:       now,
		IsActive:           true,
	}

	if err := e.persistSession(ctx, session); err != nil {
		return nil, err
	}
	// Refresh the memory TTL so the relationship outlives the session.
	if err := e.persistMemory(ctx, memory); err != nil {
		return nil, err
	}

	e.mu.Lock()
	if _, raced := e.active[sessionID]; raced {
		e.mu.Unlock()
		return nil, validationf("session %s is already active", sessionID)
	}
	e.active[sessionID] = &activeSession{session: session}
	e.mu.Unlock()

	e.sessionsStarted.Inc()
	e.log.Info().
		Str("session_id", sessionID).
		Str("persona_id", persona.ID).
		Str("user_id", userID).
		Str("rationale", selection.Rationale).
		Str("mood", string(session.State.CurrentMood)).
		Msg("session started")

	return session.clone(), nil
}

// initialState computes the starting snapshot: persona defaults plus the
// contextual modifiers from business priority, relationship history, and
// time of contact.
func initialState(p *Persona, memory PersonaMemory, convCtx ConversationContext, now time.Time) PersonaState {
	state := PersonaState{
		CurrentMood:       p.DefaultMood,
		FrustrationLevel:  p.BaseFrustration,
		TrustLevel:        p.BaseTrust,
		SatisfactionLevel: 5,
		EngagementLevel:   5,
		IssueResolved:     ResolutionUnresolved,
		Contextual: ContextualFactors{
			Urgency:        string(convCtx.Business.Priority),
			BusinessImpact: convCtx.Business.Impact,
			TimeOfDay:      classifyTimeOfDay(now.Hour()),
		},
		LastUpdated: now,
	}

	switch convCtx.Business.Priority {
	case PriorityCritical:
		state.FrustrationLevel = clampLevel(state.FrustrationLevel + 2)
	case PriorityHigh:
		state.FrustrationLevel = clampLevel(state.FrustrationLevel + 1)
	}

	if memory.TotalInteractions > 5 {
		state.TrustLevel = clampLevel(state.TrustLevel + 1)
		state.Behavioral.HasReceivedGoodService = true
	}

	if p.TimeSensitive && !withinBusinessHours(now) {
		state.CurrentMood = ApplyTrigger(state.CurrentMood, TriggerNegative)
		state.FrustrationLevel = clampLevel(state.FrustrationLevel + 1)
		state.Behavioral.ContactedOffHours = true
	}

	return state
}

// InteractionResult is what one processed turn returns to the caller.
type InteractionResult struct {
	Response        string           `json:"response"`
	State           PersonaState     `json:"state"`
	Insights        StateInsight     `json:"insights"`
	LearningMoments []LearningMoment `json:"learning_moments,omitempty"`
}

// ProcessInteraction runs one user turn as an atomic unit against the
// session's state. Turns for the same session serialize; a downstream
// failure (store or generator) leaves both the cached session and the
// persisted snapshot untouched, so the caller can retry the same message
// without double-applying mood transitions.
func (e *Engine) ProcessInteraction(ctx context.Context, sessionID, userMessage string, userAction ...string) (*InteractionResult, error) {
	if strings.TrimSpace(userMessage) == "" {
		return nil, validationf("user message is empty")
	}
	entry, err := e.entryFor(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if !entry.session.IsActive {
		return nil, validationf("session %s has ended", sessionID)
	}

	persona := e.registry.Get(entry.session.PersonaID)
	if persona == nil {
		return nil, notFoundf("persona %q for session %s", entry.session.PersonaID, sessionID)
	}

	memory, err := e.loadMemory(ctx, entry.session.PersonaID, entry.session.UserID)
	if err != nil {
		return nil, err
	}

	// Everything below stages onto a copy; the cache only sees the turn
	// once persistence has succeeded.
	now := e.clock()
	turnStart := time.Now()
	staged := entry.session.clone()
	staged.State.InteractionCount++
	staged.State.TimeInSession = now.Sub(staged.StartTime)

	triggers := DetectTriggers(userMessage, persona.Triggers)
	moments := DetectLearningMoments(userMessage, staged.Context.Category)

	var moodChanges []MoodChange
	for _, trigger := range triggers {
		var change MoodChange
		staged.State.CurrentMood, change = applyTriggerWithAudit(staged.State.CurrentMood, trigger.Direction, userMessage, now)
		moodChanges = append(moodChanges, change)
		applyTriggerLevels(&staged.State, trigger.Direction)
	}
	applyMomentLevels(&staged.State, moments)

	interactionType := ClassifyInteraction(userMessage, staged.State.InteractionCount)
	applyTypeLevels(&staged.State, interactionType)
	staged.State.LastUpdated = now
	staged.LastActivity = now

	response, err := e.generateResponse(ctx, staged, memory, userMessage)
	if err != nil {
		return nil, err
	}

	memory = foldLearningMoments(memory, moments, userMessage, e.keyMomentCap, now)

	interaction := PersonaInteraction{
		ID:              newInteractionID(),
		Timestamp:       now,
		UserMessage:     userMessage,
		Response:        response,
		Type:            interactionType,
		MoodChanges:     moodChanges,
		LearningMoments: moments,
		Metrics: ResponseMetrics{
			ResponseTimeMs: time.Since(turnStart).Milliseconds(),
			TriggerCount:   len(triggers),
			ResponseLength: len(response),
		},
	}
	if len(userAction) > 0 {
		interaction.UserAction = userAction[0]
	}
	staged.Interactions = append(staged.Interactions, interaction)

	// The session write is the commit point, and it lands before the
	// memory fold: a failed turn leaves memory untouched, so retrying the
	// same message cannot double-apply key moments or tier upgrades. A
	// failed memory write leaves the cache unchanged and the retry
	// overwrites the session snapshot with the same single application.
	if err := e.persistSession(ctx, staged); err != nil {
		return nil, err
	}
	if err := e.persistMemory(ctx, memory); err != nil {
		return nil, err
	}
	entry.session = staged

	e.turnsProcessed.Inc()
	e.log.Debug().
		Str("session_id", sessionID).
		Str("type", string(interactionType)).
		Int("triggers", len(triggers)).
		Int("learning_moments", len(moments)).
		Str("mood", string(staged.State.CurrentMood)).
		Msg("turn processed")

	return &InteractionResult{
		Response:        response,
		State:           staged.State,
		Insights:        DeriveStateInsight(staged.State),
		LearningMoments: moments,
	}, nil
}

// generateResponse bounds the external generator call; a timeout or error
// surfaces as ErrUpstream with no state committed.
func (e *Engine) generateResponse(ctx context.Context, session *PersonaSession, memory PersonaMemory, userMessage string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.generatorTimeout)
	defer cancel()

	type genResult struct {
		text string
		err  error
	}
	resultCh := make(chan genResult, 1)
	go func() {
		text, err := e.generator.Generate(ctx, session, memory, userMessage)
		resultCh <- genResult{text: text, err: err}
	}()

	select {
	case result := <-resultCh:
		if result.err != nil {
			return "", upstreamf("response generator: %v", result.err)
		}
		return result.text, nil
	case <-ctx.Done():
		return "", upstreamf("response generator timed out after %s", e.generatorTimeout)
	}
}

// applyTriggerLevels evolves the bounded attributes alongside each mood
// step. All writes clamp to [0,10].
func applyTriggerLevels(state *PersonaState, direction TriggerDirection) {
	switch direction {
	case TriggerPositive:
		state.SatisfactionLevel = clampLevel(state.SatisfactionLevel + 1)
		state.FrustrationLevel = clampLevel(state.FrustrationLevel - 1)
	case TriggerNegative:
		state.FrustrationLevel = clampLevel(state.FrustrationLevel + 1)
		state.SatisfactionLevel = clampLevel(state.SatisfactionLevel - 1)
	}
}

func applyMomentLevels(state *PersonaState, moments []LearningMoment) {
	for _, moment := range moments {
		switch moment.Kind {
		case MomentConceptLearned:
			state.EngagementLevel = clampLevel(state.EngagementLevel + 1)
		case MomentSkillDemonstrated:
			state.TrustLevel = clampLevel(state.TrustLevel + 1)
			state.SatisfactionLevel = clampLevel(state.SatisfactionLevel + 1)
		}
	}
}

func applyTypeLevels(state *PersonaState, interactionType InteractionType) {
	switch interactionType {
	case InteractionEscalation:
		state.Behavioral.HasBeenEscalated = true
		state.TrustLevel = clampLevel(state.TrustLevel - 1)
		state.FrustrationLevel = clampLevel(state.FrustrationLevel + 1)
	case InteractionResolution:
		state.SatisfactionLevel = clampLevel(state.SatisfactionLevel + 1)
	}
}

// foldLearningMoments records the turn's moments into memory: concept
// moments bump the technical tier one step, high-impact moments become
// key moments. The key-moment list trims to the retention cap.
func foldLearningMoments(memory PersonaMemory, moments []LearningMoment, sourceMessage string, momentCap int, now time.Time) PersonaMemory {
	for _, moment := range moments {
		if moment.Kind == MomentConceptLearned && moment.TechnicalArea != "" {
			next := TierNovice
			if current, ok := memory.TechnicalUnderstanding[moment.TechnicalArea]; ok {
				next = nextTier(current)
			}
			memory = UpdateTechnicalUnderstanding(memory, moment.TechnicalArea, next, true, now)
		}
		if moment.Impact == "high" {
			memory = RecordKeyMoment(memory, moment.Kind, moment.Description, moment.Impact, sourceMessage, now)
		}
	}
	return TrimKeyMoments(memory, momentCap)
}

func nextTier(t ProficiencyTier) ProficiencyTier {
	switch t {
	case TierNovice:
		return TierIntermediate
	case TierIntermediate:
		return TierAdvanced
	default:
		return TierExpert
	}
}

// EndSession closes the session: marks the resolution, synthesizes the
// analytics report, folds a summary into memory, persists both records,
// and evicts the session from the active cache. The store copy remains
// readable until its TTL lapses.
func (e *Engine) EndSession(ctx context.Context, sessionID string, resolved bool) (*PersonaAnalytics, error) {
	entry, err := e.entryFor(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if !entry.session.IsActive {
		return nil, validationf("session %s has already ended", sessionID)
	}

	memory, err := e.loadMemory(ctx, entry.session.PersonaID, entry.session.UserID)
	if err != nil {
		return nil, err
	}

	now := e.clock()
	staged := entry.session.clone()
	if resolved {
		staged.State.IssueResolved = ResolutionResolved
	} else {
		staged.State.IssueResolved = ResolutionAbandoned
	}
	staged.State.TimeInSession = now.Sub(staged.StartTime)
	staged.State.LastUpdated = now
	staged.LastActivity = now
	staged.IsActive = false

	// Analytics reads the pre-fold memory: this session's summary is not
	// part of the trend it reports on.
	analytics := SynthesizeAnalytics(staged, memory)

	summary := SessionSummary{
		SessionID:        staged.SessionID,
		Resolution:       staged.State.IssueResolved,
		Duration:         staged.State.TimeInSession,
		InteractionCount: staged.State.InteractionCount,
		Satisfaction:     staged.State.SatisfactionLevel,
		EndedAt:          now,
	}
	memory = AddSessionMemory(memory, summary, now)
	memory = TrimKeyMoments(memory, e.keyMomentCap)

	// Session first, memory second, same ordering as a turn: if either
	// write fails the cached session stays active and a retried EndSession
	// folds the summary exactly once.
	if err := e.persistSession(ctx, staged); err != nil {
		return nil, err
	}
	if err := e.persistMemory(ctx, memory); err != nil {
		return nil, err
	}

	e.mu.Lock()
	delete(e.active, sessionID)
	e.mu.Unlock()

	e.sessionsEnded.Inc()
	e.log.Info().
		Str("session_id", sessionID).
		Str("resolution", string(staged.State.IssueResolved)).
		Float64("overall_performance", analytics.OverallPerformance).
		Int("interactions", staged.State.InteractionCount).
		Msg("session ended")

	return &analytics, nil
}

// GetSession returns the session from the active cache, falling back to
// the durable store. A store hit re-hydrates timestamps through their
// RFC3339 form. Returns (nil, nil) when the session exists in neither.
func (e *Engine) GetSession(ctx context.Context, sessionID string) (*PersonaSession, error) {
	e.mu.Lock()
	entry, ok := e.active[sessionID]
	e.mu.Unlock()
	if ok {
		entry.mu.Lock()
		defer entry.mu.Unlock()
		return entry.session.clone(), nil
	}

	session, err := e.readSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return session, nil
}

// entryFor returns the cached entry for sessionID, re-hydrating from the
// store on a cache miss. Fails with ErrNotFound when the session exists
// in neither place. Ended sessions come back as transient entries: the
// active map only holds sessions that can still take turns.
func (e *Engine) entryFor(ctx context.Context, sessionID string) (*activeSession, error) {
	e.mu.Lock()
	if entry, ok := e.active[sessionID]; ok {
		e.mu.Unlock()
		return entry, nil
	}
	e.mu.Unlock()

	session, err := e.readSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.IsActive {
		return &activeSession{session: session}, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if entry, ok := e.active[sessionID]; ok {
		return entry, nil
	}
	entry := &activeSession{session: session}
	e.active[sessionID] = entry
	return entry, nil
}

func (e *Engine) readSession(ctx context.Context, sessionID string) (*PersonaSession, error) {
	data, err := e.store.Get(ctx, store.SessionKey(sessionID))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, notFoundf("session %s", sessionID)
		}
		return nil, upstreamf("read session %s: %v", sessionID, err)
	}
	var session PersonaSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, upstreamf("decode session %s: %v", sessionID, err)
	}
	return &session, nil
}

func (e *Engine) persistSession(ctx context.Context, session *PersonaSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return upstreamf("encode session %s: %v", session.SessionID, err)
	}
	if err := e.store.Set(ctx, store.SessionKey(session.SessionID), data, e.sessionTTL); err != nil {
		e.log.Error().Err(err).Str("session_id", session.SessionID).Msg("session write failed")
		return upstreamf("write session %s: %v", session.SessionID, err)
	}
	return nil
}

// loadMemory fetches the (persona, user) memory record, lazily creating
// a zeroed one on first contact.
func (e *Engine) loadMemory(ctx context.Context, personaID, userID string) (PersonaMemory, error) {
	data, err := e.store.Get(ctx, store.MemoryKey(personaID, userID))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return NewPersonaMemory(personaID, userID), nil
		}
		return PersonaMemory{}, upstreamf("read memory %s:%s: %v", personaID, userID, err)
	}
	var memory PersonaMemory
	if err := json.Unmarshal(data, &memory); err != nil {
		return PersonaMemory{}, upstreamf("decode memory %s:%s: %v", personaID, userID, err)
	}
	if memory.TechnicalUnderstanding == nil {
		memory.TechnicalUnderstanding = map[string]ProficiencyTier{}
	}
	return memory, nil
}

func (e *Engine) persistMemory(ctx context.Context, memory PersonaMemory) error {
	data, err := json.Marshal(memory)
	if err != nil {
		return upstreamf("encode memory %s:%s: %v", memory.PersonaID, memory.UserID, err)
	}
	key := store.MemoryKey(memory.PersonaID, memory.UserID)
	if err := e.store.Set(ctx, key, data, e.memoryTTL); err != nil {
		e.log.Error().Err(err).Str("key", key).Msg("memory write failed")
		return upstreamf("write memory %s:%s: %v", memory.PersonaID, memory.UserID, err)
	}
	return nil
}
