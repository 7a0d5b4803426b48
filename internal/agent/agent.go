// Package agent implements the per-agent cognition loop
// (retrieve, reflect, plan, act, store) and multi-agent conversations.
package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rcliao/agent-sim/internal/cognition"
	"github.com/rcliao/agent-sim/internal/importance"
	"github.com/rcliao/agent-sim/internal/logging"
	"github.com/rcliao/agent-sim/internal/memory"
	"github.com/rcliao/agent-sim/internal/model"
	"github.com/rcliao/agent-sim/internal/scoring"
)

// Memory sources recorded on memories created by the loop.
const (
	SourceReflection = "reflection"
	SourceSaid       = "agent_said"
	SourceHeard      = "heard"
)

// NoMemoryHint stands in for the top memory when retrieval returns nothing.
const NoMemoryHint = "no prior memories"

// Config holds the cognition loop parameters.
type Config struct {
	ReflectionPeriod     int
	ReflectionImportance int
	StoreThreshold       int
	PlanMaxLen           int
	ReflectionLines      int
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		ReflectionPeriod:     5,
		ReflectionImportance: 7,
		StoreThreshold:       6,
		PlanMaxLen:           280,
		ReflectionLines:      3,
	}
}

func (c Config) normalized() Config {
	d := DefaultConfig()
	if c.ReflectionPeriod < 1 {
		c.ReflectionPeriod = 1
	}
	if c.ReflectionImportance < model.MinImportance || c.ReflectionImportance > model.MaxImportance {
		c.ReflectionImportance = d.ReflectionImportance
	}
	if c.StoreThreshold < model.MinImportance {
		c.StoreThreshold = model.MinImportance
	}
	if c.PlanMaxLen < 1 {
		c.PlanMaxLen = d.PlanMaxLen
	}
	if c.ReflectionLines < 1 {
		c.ReflectionLines = d.ReflectionLines
	}
	return c
}

// Voice produces an utterance and reports whether a fallback was used.
// *cognition.Guard satisfies it.
type Voice interface {
	Speak(ctx context.Context, req cognition.SpeechRequest) (string, bool)
}

// Situation is the input of one turn.
type Situation struct {
	Context        string
	Listeners      []string
	RecentDialogue []string
}

// Agent owns a profile, a memory store and the mutable turn state.
// An Agent is not safe for concurrent use.
type Agent struct {
	profile model.AgentProfile
	state   model.AgentState
	memory  *memory.Store
	engine  *scoring.Engine
	voice   Voice
	cfg     Config
	now     func() time.Time
	logger  logging.Logger
}

// Option configures an Agent.
type Option func(*Agent)

// WithClock sets the clock used for retrieval and memory timestamps.
func WithClock(now func() time.Time) Option {
	return func(a *Agent) {
		if now != nil {
			a.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(a *Agent) { a.logger = logging.OrNop(l) }
}

// New creates an agent. The profile is validated; store, engine and voice
// are required.
func New(profile model.AgentProfile, store *memory.Store, engine *scoring.Engine, voice Voice, cfg Config, opts ...Option) (*Agent, error) {
	if err := profile.Validate(); err != nil {
		return nil, err
	}
	if store == nil || engine == nil || voice == nil {
		return nil, fmt.Errorf("agent %s: memory store, scoring engine and voice are required", profile.Name)
	}
	a := &Agent{
		profile: profile,
		memory:  store,
		engine:  engine,
		voice:   voice,
		cfg:     cfg.normalized(),
		now:     time.Now,
		logger:  logging.NoOpLogger{},
	}
	for _, o := range opts {
		o(a)
	}
	return a, nil
}

func (a *Agent) Name() string                { return a.profile.Name }
func (a *Agent) Profile() model.AgentProfile { return a.profile }
func (a *Agent) State() model.AgentState     { return a.state }

// Memories returns a copy of the agent's retained memories.
func (a *Agent) Memories() []model.Memory { return a.memory.All() }

// Remember adds a memory to the agent's store, for seeding and observations
// that arrive outside a turn.
func (a *Agent) Remember(m model.Memory) (model.Memory, error) {
	return a.memory.Add(m)
}

// Step runs one full turn. Memory and state changes are applied together when
// the turn completes; on error the agent is unchanged.
func (a *Agent) Step(ctx context.Context, s Situation) (model.TurnRecord, error) {
	work := a.memory.Clone()
	now := a.now()

	// Retrieve
	query := a.query(s)
	retrieved := a.engine.Retrieve(ctx, query, work.All(), now)

	// Reflect
	var reflection string
	if a.state.TurnIndex%a.cfg.ReflectionPeriod == 0 {
		reflection = a.reflect(s.RecentDialogue)
		m, err := model.NewMemory(reflection, model.KindReflection, a.cfg.ReflectionImportance)
		if err != nil {
			return model.TurnRecord{}, fmt.Errorf("reflection: %w", err)
		}
		m.Source = SourceReflection
		if _, err := work.Add(m); err != nil {
			return model.TurnRecord{}, fmt.Errorf("store reflection: %w", err)
		}
	}

	// Plan
	plan := a.plan(s.Context, reflection, retrieved)

	// Act
	utterance, degraded := a.voice.Speak(ctx, cognition.SpeechRequest{
		Profile:   a.profile,
		Context:   s.Context,
		Plan:      plan,
		Listeners: s.Listeners,
	})
	utterance = model.TruncateContent(strings.TrimSpace(utterance))
	if utterance == "" {
		utterance = "..."
	}

	// Store
	event, err := a.store(work, a.profile.Name, utterance, utterance, SourceSaid)
	if err != nil {
		return model.TurnRecord{}, err
	}

	rec := model.TurnRecord{
		ID:          model.NewID(),
		TurnIndex:   a.state.TurnIndex,
		Speaker:     a.profile.Name,
		Listeners:   append([]string(nil), s.Listeners...),
		ContextIn:   s.Context,
		Retrieved:   retrieved,
		Reflection:  reflection,
		Plan:        plan,
		Utterance:   utterance,
		StoreEvents: []model.StoreEvent{event},
		Degraded:    degraded,
		CreatedAt:   now,
	}

	a.memory = work
	a.state.TurnIndex++
	a.state.CurrentContext = s.Context
	a.state.LastPlan = plan
	a.state.LastUtterance = utterance
	if mood := importance.FirstEmotion(utterance); mood != "" {
		a.state.MoodHint = mood
	}
	a.logger.Debug("turn completed", "component", "agent", "agent", a.profile.Name,
		"turn", rec.TurnIndex, "retrieved", len(retrieved), "stored", event.Stored, "degraded", degraded)
	return rec, nil
}

// Observe runs the listener-side store step for an utterance by speaker. It
// touches only this agent's memory.
func (a *Agent) Observe(speaker, utterance string) (model.StoreEvent, error) {
	content := model.TruncateContent(fmt.Sprintf("%s said: %s", speaker, strings.TrimSpace(utterance)))
	return a.store(a.memory, a.profile.Name, utterance, content, SourceHeard)
}

// store scores text against the agent's goal and commits content as an
// observation when the score reaches the threshold.
func (a *Agent) store(dst *memory.Store, owner, text, content, source string) (model.StoreEvent, error) {
	score := importance.Score(text, a.profile.Goal)
	ev := model.StoreEvent{
		Owner:      owner,
		Kind:       model.KindObservation,
		Content:    content,
		Importance: score,
		Reason:     model.ReasonBelowThreshold,
	}
	if score < a.cfg.StoreThreshold {
		return ev, nil
	}
	m, err := model.NewMemory(content, model.KindObservation, score)
	if err != nil {
		return model.StoreEvent{}, fmt.Errorf("observation: %w", err)
	}
	m.Source = source
	if _, err := dst.Add(m); err != nil {
		return model.StoreEvent{}, fmt.Errorf("store observation: %w", err)
	}
	ev.Stored = true
	ev.Reason = model.ReasonThresholdMet
	return ev, nil
}

func (a *Agent) query(s Situation) string {
	var b strings.Builder
	b.WriteString(s.Context)
	if len(s.Listeners) > 0 {
		b.WriteString("\nWith: ")
		b.WriteString(strings.Join(s.Listeners, ", "))
	}
	b.WriteString("\nMy goal: ")
	b.WriteString(a.profile.Goal)
	return b.String()
}

func (a *Agent) reflect(recent []string) string {
	n := a.cfg.ReflectionLines
	if len(recent) < n {
		n = len(recent)
	}
	summary := strings.TrimSpace(strings.Join(recent[len(recent)-n:], " "))
	if summary == "" {
		return fmt.Sprintf("%s looks back on recent events and gathers a few quiet thoughts.", a.profile.Name)
	}
	return model.TruncateContent(fmt.Sprintf("%s looks back on recent events: %s", a.profile.Name, summary))
}

func (a *Agent) plan(situation, reflection string, retrieved []model.ScoredMemory) string {
	hint := NoMemoryHint
	if len(retrieved) > 0 {
		hint = retrieved[0].Memory.Content
	}
	p := fmt.Sprintf("Goal: %s. Situation: %s | Recall: %s.", a.profile.Goal, situation, hint)
	if reflection != "" {
		p += " " + reflection
	}
	return model.TruncateRunes(p, a.cfg.PlanMaxLen)
}
