package helpdesksim

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Benjamin-Rutt-Cyber/it-helpdesk-simulator-sub010/store"
)

// A Tuesday afternoon, inside business hours.
var engineNow = time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)

type stubGenerator struct {
	mu    sync.Mutex
	fail  bool
	delay time.Duration
	text  string
}

func (g *stubGenerator) Generate(ctx context.Context, _ *PersonaSession, _ PersonaMemory, _ string) (string, error) {
	g.mu.Lock()
	fail, delay, text := g.fail, g.delay, g.text
	g.mu.Unlock()
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if fail {
		return "", errors.New("model unavailable")
	}
	if text == "" {
		text = "Okay, let me try that."
	}
	return text, nil
}

func (g *stubGenerator) setFail(fail bool) {
	g.mu.Lock()
	g.fail = fail
	g.mu.Unlock()
}

// flakyStore refuses session-snapshot writes on demand so tests can fail
// one leg of a turn's persistence.
type flakyStore struct {
	store.Store
	refuseSessions bool
}

func (s *flakyStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if s.refuseSessions && strings.HasPrefix(key, "session:") {
		return errors.New("write refused")
	}
	return s.Store.Set(ctx, key, value, ttl)
}

type testHarness struct {
	engine *Engine
	store  *store.MemoryStore
	gen    *stubGenerator
}

func newTestEngine(t *testing.T, config ...EngineConfig) *testHarness {
	t.Helper()
	st := store.NewMemoryStore()
	registry := newTestRegistry(t)
	gen := &stubGenerator{}

	cfg := EngineConfig{Clock: func() time.Time { return engineNow }}
	if len(config) > 0 {
		cfg = config[0]
		if cfg.Clock == nil {
			cfg.Clock = func() time.Time { return engineNow }
		}
	}
	engine, err := NewEngine(st, NewRegistrySelector(registry), gen, registry, cfg)
	require.NoError(t, err)
	return &testHarness{engine: engine, store: st, gen: gen}
}

func officeContext(priority Priority) ConversationContext {
	return ConversationContext{
		TicketID:      "T-1001",
		TicketSummary: "Email client will not open.",
		Category:      "email",
		Business:      BusinessContext{Priority: priority, Impact: "single user"},
	}
}

func startOfficeSession(t *testing.T, h *testHarness, sessionID string) *PersonaSession {
	t.Helper()
	session, err := h.engine.StartSession(context.Background(), sessionID, "trainee-1",
		officeContext(PriorityMedium), SelectionHints{PersonaID: "office-worker"})
	require.NoError(t, err)
	return session
}

// ══════════════════════════════════════════════
// StartSession
// ══════════════════════════════════════════════

func TestStartSession_CriticalPriorityRaisesFrustration(t *testing.T) {
	// Scenario A: neutral persona + critical priority.
	h := newTestEngine(t)
	base := BuiltinPersonas()[0].BaseFrustration

	session, err := h.engine.StartSession(context.Background(), "s-a", "trainee-1",
		officeContext(PriorityCritical), SelectionHints{PersonaID: "office-worker"})
	require.NoError(t, err)

	assert.Equal(t, MoodNeutral, session.State.CurrentMood)
	assert.Equal(t, base+2, session.State.FrustrationLevel)
	assert.Equal(t, "critical", session.State.Contextual.Urgency)
}

func TestStartSession_FrustrationClampsAtTen(t *testing.T) {
	h := newTestEngine(t)
	registry, err := NewRegistry([]*Persona{{
		ID: "boiling", Name: "B", Role: "tester",
		DefaultMood: MoodAngry, BaseFrustration: 9, BaseTrust: 2,
	}})
	require.NoError(t, err)
	engine, err := NewEngine(h.store, NewRegistrySelector(registry), h.gen, registry,
		EngineConfig{Clock: func() time.Time { return engineNow }})
	require.NoError(t, err)

	session, err := engine.StartSession(context.Background(), "s-clamp", "u",
		officeContext(PriorityCritical), SelectionHints{PersonaID: "boiling"})
	require.NoError(t, err)
	assert.Equal(t, 10, session.State.FrustrationLevel)
}

func TestStartSession_PriorMemoryRaisesTrust(t *testing.T) {
	// Scenario B: memory with more than 5 prior interactions.
	h := newTestEngine(t)
	memory := NewPersonaMemory("office-worker", "trainee-1")
	memory.TotalInteractions = 6
	seedMemory(t, h.store, memory)

	session := startOfficeSession(t, h, "s-b")

	baseTrust := BuiltinPersonas()[0].BaseTrust
	assert.Equal(t, baseTrust+1, session.State.TrustLevel)
	assert.True(t, session.State.Behavioral.HasReceivedGoodService)
}

func TestStartSession_FreshMemoryNoTrustBonus(t *testing.T) {
	h := newTestEngine(t)
	session := startOfficeSession(t, h, "s-fresh")
	assert.Equal(t, BuiltinPersonas()[0].BaseTrust, session.State.TrustLevel)
	assert.False(t, session.State.Behavioral.HasReceivedGoodService)
}

func TestStartSession_OffHoursPressuresTimeSensitivePersona(t *testing.T) {
	late := time.Date(2026, 3, 10, 23, 30, 0, 0, time.UTC)
	h := newTestEngine(t, EngineConfig{Clock: func() time.Time { return late }})

	session, err := h.engine.StartSession(context.Background(), "s-late", "trainee-1",
		officeContext(PriorityMedium), SelectionHints{PersonaID: "executive"})
	require.NoError(t, err)

	// Executive defaults to impatient; off-hours pushes one step negative.
	assert.Equal(t, MoodFrustrated, session.State.CurrentMood)
	assert.True(t, session.State.Behavioral.ContactedOffHours)
	assert.Equal(t, "late_night", session.State.Contextual.TimeOfDay)
}

func TestStartSession_OffHoursIgnoredForRegularPersona(t *testing.T) {
	late := time.Date(2026, 3, 10, 23, 30, 0, 0, time.UTC)
	h := newTestEngine(t, EngineConfig{Clock: func() time.Time { return late }})

	session, err := h.engine.StartSession(context.Background(), "s-late2", "trainee-1",
		officeContext(PriorityMedium), SelectionHints{PersonaID: "office-worker"})
	require.NoError(t, err)
	assert.Equal(t, MoodNeutral, session.State.CurrentMood)
	assert.False(t, session.State.Behavioral.ContactedOffHours)
}

func TestStartSession_NoCandidateIsNotFound(t *testing.T) {
	h := newTestEngine(t)
	_, err := h.engine.StartSession(context.Background(), "s-x", "trainee-1",
		ConversationContext{}, SelectionHints{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStartSession_DuplicateActiveIDRejected(t *testing.T) {
	h := newTestEngine(t)
	startOfficeSession(t, h, "s-dup")
	_, err := h.engine.StartSession(context.Background(), "s-dup", "trainee-1",
		officeContext(PriorityMedium), SelectionHints{PersonaID: "office-worker"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestStartSession_EmptyIDsRejected(t *testing.T) {
	h := newTestEngine(t)
	_, err := h.engine.StartSession(context.Background(), " ", "u", ConversationContext{}, SelectionHints{})
	assert.ErrorIs(t, err, ErrValidation)
}

// ══════════════════════════════════════════════
// ProcessInteraction
// ══════════════════════════════════════════════

func TestProcessInteraction_FirstTurnIsGreeting(t *testing.T) {
	h := newTestEngine(t)
	startOfficeSession(t, h, "s-1")

	result, err := h.engine.ProcessInteraction(context.Background(), "s-1", "hi, what seems to be the problem?")
	require.NoError(t, err)
	assert.NotEmpty(t, result.Response)
	assert.Equal(t, 1, result.State.InteractionCount)
	require.NotEmpty(t, h.sessionInteractions(t, "s-1"))
	assert.Equal(t, InteractionGreeting, h.sessionInteractions(t, "s-1")[0].Type)
}

func TestProcessInteraction_NegativeTriggerStepsMoodDown(t *testing.T) {
	h := newTestEngine(t)
	startOfficeSession(t, h, "s-2")

	_, err := h.engine.ProcessInteraction(context.Background(), "s-2", "hello")
	require.NoError(t, err)
	result, err := h.engine.ProcessInteraction(context.Background(), "s-2", "try to restart your machine")
	require.NoError(t, err)

	assert.Equal(t, MoodConcerned, result.State.CurrentMood)
	interactions := h.sessionInteractions(t, "s-2")
	require.Len(t, interactions[1].MoodChanges, 1)
	assert.Equal(t, MoodNeutral, interactions[1].MoodChanges[0].From)
	assert.Equal(t, MoodConcerned, interactions[1].MoodChanges[0].To)
}

func TestProcessInteraction_MultipleTriggersApplySequentially(t *testing.T) {
	h := newTestEngine(t)
	startOfficeSession(t, h, "s-3")

	_, err := h.engine.ProcessInteraction(context.Background(), "s-3", "hello")
	require.NoError(t, err)
	// Two negative phrases in one message: two sequential steps.
	result, err := h.engine.ProcessInteraction(context.Background(), "s-3",
		"please hold while I restart the service")
	require.NoError(t, err)

	assert.Equal(t, MoodImpatient, result.State.CurrentMood)
	interactions := h.sessionInteractions(t, "s-3")
	require.Len(t, interactions[1].MoodChanges, 2)
	assert.Equal(t, interactions[1].MoodChanges[0].To, interactions[1].MoodChanges[1].From)
}

func TestProcessInteraction_GratitudeYieldsSkillMoment(t *testing.T) {
	// Scenario C: gratitude message on turn 3.
	h := newTestEngine(t)
	startOfficeSession(t, h, "s-c")

	for _, msg := range []string{"hello", "can you open the settings panel"} {
		_, err := h.engine.ProcessInteraction(context.Background(), "s-c", msg)
		require.NoError(t, err)
	}
	result, err := h.engine.ProcessInteraction(context.Background(), "s-c",
		"thank you so much, that's helpful")
	require.NoError(t, err)

	require.Len(t, result.LearningMoments, 1)
	assert.Equal(t, MomentSkillDemonstrated, result.LearningMoments[0].Kind)
	assert.Equal(t, "high", result.LearningMoments[0].Impact)

	turnType := h.sessionInteractions(t, "s-c")[2].Type
	assert.Contains(t, []InteractionType{InteractionResolution, InteractionTroubleshooting}, turnType)
}

func TestProcessInteraction_ConceptLearnedUpgradesMemory(t *testing.T) {
	h := newTestEngine(t)
	startOfficeSession(t, h, "s-mem")

	_, err := h.engine.ProcessInteraction(context.Background(), "s-mem", "hello")
	require.NoError(t, err)
	_, err = h.engine.ProcessInteraction(context.Background(), "s-mem", "oh i see how the filters work now")
	require.NoError(t, err)

	memory := readMemory(t, h.store, "office-worker", "trainee-1")
	assert.Equal(t, TierNovice, memory.TechnicalUnderstanding["email"])
}

func TestProcessInteraction_HighImpactMomentRecordedInMemory(t *testing.T) {
	h := newTestEngine(t)
	startOfficeSession(t, h, "s-km")

	_, err := h.engine.ProcessInteraction(context.Background(), "s-km", "hello")
	require.NoError(t, err)
	_, err = h.engine.ProcessInteraction(context.Background(), "s-km", "thank you, that worked")
	require.NoError(t, err)

	memory := readMemory(t, h.store, "office-worker", "trainee-1")
	require.NotEmpty(t, memory.KeyMoments)
	assert.Equal(t, MomentSkillDemonstrated, memory.KeyMoments[0].Kind)
}

func TestProcessInteraction_EscalationFlagsState(t *testing.T) {
	h := newTestEngine(t)
	startOfficeSession(t, h, "s-esc")

	_, err := h.engine.ProcessInteraction(context.Background(), "s-esc", "hello")
	require.NoError(t, err)
	result, err := h.engine.ProcessInteraction(context.Background(), "s-esc",
		"this is unacceptable, I want your manager")
	require.NoError(t, err)

	assert.True(t, result.State.Behavioral.HasBeenEscalated)
	assert.Equal(t, InteractionEscalation, h.sessionInteractions(t, "s-esc")[1].Type)
}

func TestProcessInteraction_UnknownSessionIsNotFound(t *testing.T) {
	// Scenario D: unknown sessionId, no store write.
	h := newTestEngine(t)
	_, err := h.engine.ProcessInteraction(context.Background(), "ghost", "hello")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Zero(t, h.store.Len())
}

func TestProcessInteraction_EmptyMessageRejected(t *testing.T) {
	h := newTestEngine(t)
	startOfficeSession(t, h, "s-empty")
	_, err := h.engine.ProcessInteraction(context.Background(), "s-empty", "   ")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestProcessInteraction_GeneratorFailureLeavesStateUntouched(t *testing.T) {
	h := newTestEngine(t)
	startOfficeSession(t, h, "s-fail")
	h.gen.setFail(true)

	_, err := h.engine.ProcessInteraction(context.Background(), "s-fail", "try a restart please")
	assert.ErrorIs(t, err, ErrUpstream)

	// No partial mood transition or counter bump committed.
	session, err := h.engine.GetSession(context.Background(), "s-fail")
	require.NoError(t, err)
	assert.Zero(t, session.State.InteractionCount)
	assert.Equal(t, MoodNeutral, session.State.CurrentMood)

	// Retrying the same message after recovery applies it exactly once.
	h.gen.setFail(false)
	result, err := h.engine.ProcessInteraction(context.Background(), "s-fail", "try a restart please")
	require.NoError(t, err)
	assert.Equal(t, 1, result.State.InteractionCount)
}

func TestProcessInteraction_SessionWriteFailureLeavesMemoryUntouched(t *testing.T) {
	inner := store.NewMemoryStore()
	fs := &flakyStore{Store: inner}
	registry := newTestRegistry(t)
	engine, err := NewEngine(fs, NewRegistrySelector(registry), &stubGenerator{}, registry,
		EngineConfig{Clock: func() time.Time { return engineNow }})
	require.NoError(t, err)

	_, err = engine.StartSession(context.Background(), "s-mfail", "trainee-1",
		officeContext(PriorityMedium), SelectionHints{PersonaID: "office-worker"})
	require.NoError(t, err)
	_, err = engine.ProcessInteraction(context.Background(), "s-mfail", "hello")
	require.NoError(t, err)

	// The message carries both a concept and a high-impact gratitude
	// signal, so a double-applied fold would show up as an extra key
	// moment and a tier bump.
	msg := "oh i see how the filters work now, thank you"
	fs.refuseSessions = true
	_, err = engine.ProcessInteraction(context.Background(), "s-mfail", msg)
	assert.ErrorIs(t, err, ErrUpstream)

	memory := readMemory(t, inner, "office-worker", "trainee-1")
	assert.Empty(t, memory.KeyMoments)
	assert.NotContains(t, memory.TechnicalUnderstanding, "email")

	fs.refuseSessions = false
	_, err = engine.ProcessInteraction(context.Background(), "s-mfail", msg)
	require.NoError(t, err)

	memory = readMemory(t, inner, "office-worker", "trainee-1")
	require.Len(t, memory.KeyMoments, 1)
	assert.Equal(t, TierNovice, memory.TechnicalUnderstanding["email"])
}

func TestProcessInteraction_GeneratorTimeoutIsUpstream(t *testing.T) {
	h := newTestEngine(t, EngineConfig{
		GeneratorTimeout: 20 * time.Millisecond,
		Clock:            func() time.Time { return engineNow },
	})
	startOfficeSession(t, h, "s-slow")
	h.gen.mu.Lock()
	h.gen.delay = 200 * time.Millisecond
	h.gen.mu.Unlock()

	_, err := h.engine.ProcessInteraction(context.Background(), "s-slow", "hello")
	assert.ErrorIs(t, err, ErrUpstream)
}

func TestProcessInteraction_EndedSessionRejected(t *testing.T) {
	h := newTestEngine(t)
	startOfficeSession(t, h, "s-done")
	_, err := h.engine.EndSession(context.Background(), "s-done", true)
	require.NoError(t, err)

	_, err = h.engine.ProcessInteraction(context.Background(), "s-done", "hello again")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestProcessInteraction_SameSessionTurnsSerialize(t *testing.T) {
	h := newTestEngine(t)
	startOfficeSession(t, h, "s-conc")

	const turns = 20
	var wg sync.WaitGroup
	for i := 0; i < turns; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.engine.ProcessInteraction(context.Background(), "s-conc", "checking the cable")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	session, err := h.engine.GetSession(context.Background(), "s-conc")
	require.NoError(t, err)
	assert.Equal(t, turns, session.State.InteractionCount)
	assert.Len(t, session.Interactions, turns)
}

func TestProcessInteraction_BoundedLevelsStayInRange(t *testing.T) {
	h := newTestEngine(t)
	startOfficeSession(t, h, "s-bound")

	messages := []string{
		"hello",
		"restart restart please hold", "please hold and restart", "restart it",
		"thank you, fixed! i understand now", "thanks so much, that's helpful, fixed",
	}
	for _, msg := range messages {
		result, err := h.engine.ProcessInteraction(context.Background(), "s-bound", msg)
		require.NoError(t, err)
		for _, level := range []int{
			result.State.FrustrationLevel, result.State.TrustLevel,
			result.State.SatisfactionLevel, result.State.EngagementLevel,
		} {
			assert.GreaterOrEqual(t, level, 0)
			assert.LessOrEqual(t, level, 10)
		}
	}
}

// ══════════════════════════════════════════════
// EndSession + GetSession
// ══════════════════════════════════════════════

func TestEndSession_AnalyticsFormulaAndEviction(t *testing.T) {
	// Scenario E.
	h := newTestEngine(t)
	startOfficeSession(t, h, "s-e")
	_, err := h.engine.ProcessInteraction(context.Background(), "s-e", "hello")
	require.NoError(t, err)

	before, err := h.engine.GetSession(context.Background(), "s-e")
	require.NoError(t, err)

	analytics, err := h.engine.EndSession(context.Background(), "s-e", true)
	require.NoError(t, err)

	// Fresh memory: trend falls back to the final satisfaction level, so
	// the documented average collapses to the state satisfaction itself.
	finalSat := float64(analytics.State.OverallSatisfaction)
	assert.InDelta(t, (finalSat+analytics.Memory.SatisfactionTrend)/2, analytics.OverallPerformance, 0.001)
	assert.Equal(t, ResolutionResolved, analytics.Resolution)
	assert.Equal(t, before.State.InteractionCount, analytics.InteractionCount)

	// Evicted from the active cache but still readable from the store.
	assert.Zero(t, h.engine.Stats().ActiveSessions)
	stored, err := h.engine.GetSession(context.Background(), "s-e")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.False(t, stored.IsActive)
	assert.Equal(t, ResolutionResolved, stored.State.IssueResolved)
}

func TestEndSession_NotResolvedIsAbandoned(t *testing.T) {
	h := newTestEngine(t)
	startOfficeSession(t, h, "s-ab")
	analytics, err := h.engine.EndSession(context.Background(), "s-ab", false)
	require.NoError(t, err)
	assert.Equal(t, ResolutionAbandoned, analytics.Resolution)
}

func TestEndSession_FoldsSummaryIntoMemory(t *testing.T) {
	h := newTestEngine(t)
	startOfficeSession(t, h, "s-fold")
	_, err := h.engine.ProcessInteraction(context.Background(), "s-fold", "hello")
	require.NoError(t, err)
	_, err = h.engine.EndSession(context.Background(), "s-fold", true)
	require.NoError(t, err)

	memory := readMemory(t, h.store, "office-worker", "trainee-1")
	require.Len(t, memory.SessionHistory, 1)
	assert.Equal(t, "s-fold", memory.SessionHistory[0].SessionID)
	assert.Equal(t, 1, memory.TotalInteractions)
}

func TestEndSession_SecondEndRejected(t *testing.T) {
	h := newTestEngine(t)
	startOfficeSession(t, h, "s-twice")
	_, err := h.engine.ProcessInteraction(context.Background(), "s-twice", "hello")
	require.NoError(t, err)
	_, err = h.engine.EndSession(context.Background(), "s-twice", true)
	require.NoError(t, err)

	// The store copy outlives the session, so a second end must be
	// rejected instead of folding the summary again.
	_, err = h.engine.EndSession(context.Background(), "s-twice", true)
	assert.ErrorIs(t, err, ErrValidation)

	memory := readMemory(t, h.store, "office-worker", "trainee-1")
	assert.Len(t, memory.SessionHistory, 1)
	assert.Equal(t, 1, memory.TotalInteractions)
}

func TestEndSession_SessionWriteFailureLeavesMemoryUntouched(t *testing.T) {
	inner := store.NewMemoryStore()
	fs := &flakyStore{Store: inner}
	registry := newTestRegistry(t)
	engine, err := NewEngine(fs, NewRegistrySelector(registry), &stubGenerator{}, registry,
		EngineConfig{Clock: func() time.Time { return engineNow }})
	require.NoError(t, err)

	_, err = engine.StartSession(context.Background(), "s-efail", "trainee-1",
		officeContext(PriorityMedium), SelectionHints{PersonaID: "office-worker"})
	require.NoError(t, err)
	_, err = engine.ProcessInteraction(context.Background(), "s-efail", "hello")
	require.NoError(t, err)

	fs.refuseSessions = true
	_, err = engine.EndSession(context.Background(), "s-efail", true)
	assert.ErrorIs(t, err, ErrUpstream)

	memory := readMemory(t, inner, "office-worker", "trainee-1")
	assert.Empty(t, memory.SessionHistory)
	assert.Zero(t, memory.TotalInteractions)

	// The cached session is still active, so the retry completes the end
	// and folds the summary exactly once.
	fs.refuseSessions = false
	_, err = engine.EndSession(context.Background(), "s-efail", true)
	require.NoError(t, err)

	memory = readMemory(t, inner, "office-worker", "trainee-1")
	assert.Len(t, memory.SessionHistory, 1)
	assert.Equal(t, 1, memory.TotalInteractions)
}

func TestEndedSessionIsNotRecached(t *testing.T) {
	h := newTestEngine(t)
	startOfficeSession(t, h, "s-gone")
	_, err := h.engine.EndSession(context.Background(), "s-gone", true)
	require.NoError(t, err)

	// Both operations re-hydrate the ended session from the store; neither
	// may park it back in the active map.
	_, err = h.engine.ProcessInteraction(context.Background(), "s-gone", "hello")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = h.engine.EndSession(context.Background(), "s-gone", true)
	assert.ErrorIs(t, err, ErrValidation)

	assert.Zero(t, h.engine.Stats().ActiveSessions)
}

func TestEndSession_UnknownSessionIsNotFound(t *testing.T) {
	h := newTestEngine(t)
	_, err := h.engine.EndSession(context.Background(), "ghost", true)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetSession_AbsentEverywhereIsNilNil(t *testing.T) {
	h := newTestEngine(t)
	session, err := h.engine.GetSession(context.Background(), "nope")
	assert.NoError(t, err)
	assert.Nil(t, session)
}

func TestGetSession_StoreRoundTripPreservesFields(t *testing.T) {
	h := newTestEngine(t)
	started := startOfficeSession(t, h, "s-rt")
	_, err := h.engine.ProcessInteraction(context.Background(), "s-rt", "hello there")
	require.NoError(t, err)

	// A second engine on the same store has a cold cache: reads re-hydrate
	// from the persisted snapshot.
	registry := newTestRegistry(t)
	engine2, err := NewEngine(h.store, NewRegistrySelector(registry), h.gen, registry,
		EngineConfig{Clock: func() time.Time { return engineNow }})
	require.NoError(t, err)

	loaded, err := engine2.GetSession(context.Background(), "s-rt")
	require.NoError(t, err)
	require.NotNil(t, loaded)

	assert.Equal(t, started.SessionID, loaded.SessionID)
	assert.Equal(t, started.PersonaID, loaded.PersonaID)
	assert.Equal(t, started.UserID, loaded.UserID)
	assert.Equal(t, started.Context, loaded.Context)
	assert.Equal(t, 1, loaded.State.InteractionCount)
	assert.True(t, started.StartTime.Equal(loaded.StartTime))
	require.Len(t, loaded.Interactions, 1)
	assert.Equal(t, "hello there", loaded.Interactions[0].UserMessage)
}

func TestEngine_StatsCounters(t *testing.T) {
	h := newTestEngine(t)
	startOfficeSession(t, h, "s-stats")
	_, err := h.engine.ProcessInteraction(context.Background(), "s-stats", "hello")
	require.NoError(t, err)
	_, err = h.engine.EndSession(context.Background(), "s-stats", true)
	require.NoError(t, err)

	stats := h.engine.Stats()
	assert.Equal(t, int64(1), stats.SessionsStarted)
	assert.Equal(t, int64(1), stats.TurnsProcessed)
	assert.Equal(t, int64(1), stats.SessionsEnded)
	assert.Zero(t, stats.ActiveSessions)
}

// ══════════════════════════════════════════════
// helpers
// ══════════════════════════════════════════════

func (h *testHarness) sessionInteractions(t *testing.T, sessionID string) []PersonaInteraction {
	t.Helper()
	session, err := h.engine.GetSession(context.Background(), sessionID)
	require.NoError(t, err)
	require.NotNil(t, session)
	return session.Interactions
}

func seedMemory(t *testing.T, st *store.MemoryStore, memory PersonaMemory) {
	t.Helper()
	data, err := json.Marshal(memory)
	require.NoError(t, err)
	require.NoError(t, st.Set(context.Background(), store.MemoryKey(memory.PersonaID, memory.UserID), data, 0))
}

func readMemory(t *testing.T, st *store.MemoryStore, personaID, userID string) PersonaMemory {
	t.Helper()
	data, err := st.Get(context.Background(), store.MemoryKey(personaID, userID))
	require.NoError(t, err)
	var memory PersonaMemory
	require.NoError(t, json.Unmarshal(data, &memory))
	return memory
}
