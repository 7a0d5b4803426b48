package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// AgentProfile is the immutable identity of an agent.
type AgentProfile struct {
	Name   string `json:"name" yaml:"name"`
	Traits string `json:"traits" yaml:"traits"`
	Goal   string `json:"goal" yaml:"goal"`
}

// NewAgentProfile validates and returns a profile.
func NewAgentProfile(name, traits, goal string) (AgentProfile, error) {
	p := AgentProfile{
		Name:   strings.TrimSpace(name),
		Traits: strings.TrimSpace(traits),
		Goal:   strings.TrimSpace(goal),
	}
	if err := p.Validate(); err != nil {
		return AgentProfile{}, err
	}
	return p, nil
}

// Validate reports a missing name, traits or goal.
func (p AgentProfile) Validate() error {
	var missing []string
	if strings.TrimSpace(p.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(p.Traits) == "" {
		missing = append(missing, "traits")
	}
	if strings.TrimSpace(p.Goal) == "" {
		missing = append(missing, "goal")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidProfile, strings.Join(missing, ", "))
	}
	return nil
}

// AgentState is the mutable state of a dialogue agent. Only the cognition
// loop changes it, once per completed turn.
type AgentState struct {
	TurnIndex      int    `json:"turn_index"`
	CurrentContext string `json:"current_context,omitempty"`
	LastPlan       string `json:"last_plan,omitempty"`
	LastUtterance  string `json:"last_utterance,omitempty"`
	MoodHint       string `json:"mood_hint,omitempty"`
}

// TurnRecord is the append-only audit entry for one completed turn.
type TurnRecord struct {
	ID           string         `json:"id"`
	TurnIndex    int            `json:"turn_index"`
	Speaker      string         `json:"speaker"`
	Listeners    []string       `json:"listeners,omitempty"`
	ContextIn    string         `json:"context_in"`
	Retrieved    []ScoredMemory `json:"retrieved"`
	Reflection   string         `json:"reflection,omitempty"`
	Plan         string         `json:"plan"`
	Utterance    string         `json:"utterance"`
	StoreEvents  []StoreEvent   `json:"store_events"`
	Observations []StoreEvent   `json:"observations,omitempty"`
	Degraded     bool           `json:"degraded,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// Clone deep-copies the record.
func (r TurnRecord) Clone() TurnRecord {
	c := r
	c.Listeners = append([]string(nil), r.Listeners...)
	if r.Retrieved != nil {
		c.Retrieved = make([]ScoredMemory, len(r.Retrieved))
		for i, sm := range r.Retrieved {
			sm.Memory = sm.Memory.Clone()
			c.Retrieved[i] = sm
		}
	}
	c.StoreEvents = append([]StoreEvent(nil), r.StoreEvents...)
	c.Observations = append([]StoreEvent(nil), r.Observations...)
	return c
}

// NewID generates a unique identifier for turn and interaction records.
func NewID() string { return uuid.NewString() }
