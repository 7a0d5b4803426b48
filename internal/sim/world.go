// Package sim runs the tick-based spatial simulation: movement, proximity
// grouping, interactions and throttled cognition.
package sim

import (
	"fmt"
	"time"

	"github.com/rcliao/agent-sim/internal/memory"
	"github.com/rcliao/agent-sim/internal/model"
)

// AgentSnapshot is the spatial state of one agent.
type AgentSnapshot struct {
	Name         string          `json:"name"`
	Traits       string          `json:"traits"`
	Goal         string          `json:"goal"`
	X            int             `json:"x"`
	Y            int             `json:"y"`
	State        model.Status    `json:"state"`
	ThinkCounter int             `json:"ticks_until_next_think"`
	Direction    model.Direction `json:"cached_direction"`
	Thought      string          `json:"current_thought,omitempty"`
	Plan         string          `json:"current_plan,omitempty"`
	Memories     *memory.Store   `json:"memories"`
}

// NewAgentSnapshot validates the profile and places the agent at (x, y) with
// an empty memory of the given capacity and a zero think counter.
func NewAgentSnapshot(p model.AgentProfile, x, y, capacity int) (*AgentSnapshot, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &AgentSnapshot{
		Name:      p.Name,
		Traits:    p.Traits,
		Goal:      p.Goal,
		X:         x,
		Y:         y,
		State:     model.StatusIdle,
		Direction: model.Stay,
		Memories:  memory.New(capacity),
	}, nil
}

// Profile returns the agent's identity.
func (a *AgentSnapshot) Profile() model.AgentProfile {
	return model.AgentProfile{Name: a.Name, Traits: a.Traits, Goal: a.Goal}
}

// Clone deep-copies the snapshot including its memory store.
func (a *AgentSnapshot) Clone() *AgentSnapshot {
	c := *a
	if a.Memories != nil {
		c.Memories = a.Memories.Clone()
	}
	return &c
}

// WorldState is the full state of one run.
type WorldState struct {
	Tick    int                       `json:"tick"`
	Start   time.Time                 `json:"start"`
	Order   []string                  `json:"order"`
	Agents  map[string]*AgentSnapshot `json:"agents"`
	History []model.InteractionRecord `json:"history"`
}

// NewWorld returns an empty world whose clock starts at start.
func NewWorld(start time.Time) *WorldState {
	return &WorldState{
		Start:  start.UTC(),
		Agents: make(map[string]*AgentSnapshot),
	}
}

// AddAgent appends a to the traversal order.
func (w *WorldState) AddAgent(a *AgentSnapshot) error {
	if a == nil {
		return fmt.Errorf("nil agent")
	}
	if _, dup := w.Agents[a.Name]; dup {
		return fmt.Errorf("duplicate agent %q", a.Name)
	}
	if a.Memories == nil {
		a.Memories = memory.New(0)
	}
	w.Agents[a.Name] = a
	w.Order = append(w.Order, a.Name)
	return nil
}

// Agent looks up an agent by name.
func (w *WorldState) Agent(name string) (*AgentSnapshot, error) {
	a, ok := w.Agents[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", model.ErrUnknownAgent, name)
	}
	return a, nil
}

// Now returns the simulated time of the current tick.
func (w *WorldState) Now(tickDuration time.Duration) time.Time {
	return w.Start.Add(time.Duration(w.Tick) * tickDuration)
}

// Clone returns a deep copy that shares no mutable state with w.
func (w *WorldState) Clone() *WorldState {
	c := &WorldState{
		Tick:   w.Tick,
		Start:  w.Start,
		Order:  append([]string(nil), w.Order...),
		Agents: make(map[string]*AgentSnapshot, len(w.Agents)),
	}
	for name, a := range w.Agents {
		c.Agents[name] = a.Clone()
	}
	if w.History != nil {
		c.History = make([]model.InteractionRecord, len(w.History))
		for i, r := range w.History {
			c.History[i] = r.Clone()
		}
	}
	return c
}
