package agent

import (
	"context"
	"fmt"

	"github.com/rcliao/agent-sim/internal/model"
	"github.com/rcliao/agent-sim/internal/selector"
)

// DefaultRecentDialogue is how many transcript lines feed each turn's context.
const DefaultRecentDialogue = 5

// Conversation runs turns among a fixed roster of agents and keeps the
// append-only transcript.
type Conversation struct {
	order      []string
	agents     map[string]*Agent
	selector   selector.Selector
	recent     int
	transcript []model.TurnRecord
}

// NewConversation creates a conversation. Agent names must be unique.
func NewConversation(sel selector.Selector, recent int, agents ...*Agent) (*Conversation, error) {
	if sel == nil {
		sel = selector.NewRoundRobin()
	}
	if recent < 1 {
		recent = DefaultRecentDialogue
	}
	c := &Conversation{agents: make(map[string]*Agent), selector: sel, recent: recent}
	for _, a := range agents {
		if _, dup := c.agents[a.Name()]; dup {
			return nil, fmt.Errorf("duplicate agent %q", a.Name())
		}
		c.agents[a.Name()] = a
		c.order = append(c.order, a.Name())
	}
	return c, nil
}

// Names returns the roster in insertion order.
func (c *Conversation) Names() []string { return append([]string(nil), c.order...) }

// Agent looks up a roster member.
func (c *Conversation) Agent(name string) (*Agent, bool) {
	a, ok := c.agents[name]
	return a, ok
}

// Has reports whether every name is on the roster.
func (c *Conversation) Has(names ...string) bool {
	for _, n := range names {
		if _, ok := c.agents[n]; !ok {
			return false
		}
	}
	return true
}

// Transcript returns a copy of every completed turn.
func (c *Conversation) Transcript() []model.TurnRecord {
	out := make([]model.TurnRecord, len(c.transcript))
	for i, r := range c.transcript {
		out[i] = r.Clone()
	}
	return out
}

// LastSpeaker returns the speaker of the latest turn, or "".
func (c *Conversation) LastSpeaker() string {
	if len(c.transcript) == 0 {
		return ""
	}
	return c.transcript[len(c.transcript)-1].Speaker
}

// RecentLines returns up to n transcript lines as "Speaker: utterance".
func (c *Conversation) RecentLines(n int) []string {
	start := len(c.transcript) - n
	if start < 0 {
		start = 0
	}
	var out []string
	for _, r := range c.transcript[start:] {
		out = append(out, fmt.Sprintf("%s: %s", r.Speaker, r.Utterance))
	}
	return out
}

// Turn selects a speaker among participants (all agents when empty), runs its
// cognition step and lets every other participant observe the utterance.
func (c *Conversation) Turn(ctx context.Context, situation string, participants []string) (model.TurnRecord, error) {
	if len(participants) == 0 {
		participants = c.order
	}
	for _, p := range participants {
		if _, ok := c.agents[p]; !ok {
			return model.TurnRecord{}, fmt.Errorf("%w: %s", model.ErrUnknownAgent, p)
		}
	}

	name, ok := c.selector.Select(participants, c.LastSpeaker())
	if !ok {
		return model.TurnRecord{}, fmt.Errorf("no speaker available")
	}
	speaker := c.agents[name]

	var listeners []string
	for _, p := range participants {
		if p != name {
			listeners = append(listeners, p)
		}
	}

	recent := c.RecentLines(c.recent)
	contextIn := situation
	for _, line := range recent {
		contextIn += "\n" + line
	}

	rec, err := speaker.Step(ctx, Situation{Context: contextIn, Listeners: listeners, RecentDialogue: recent})
	if err != nil {
		return model.TurnRecord{}, fmt.Errorf("turn for %s: %w", name, err)
	}
	for _, l := range listeners {
		ev, err := c.agents[l].Observe(name, rec.Utterance)
		if err != nil {
			return model.TurnRecord{}, fmt.Errorf("observe for %s: %w", l, err)
		}
		rec.Observations = append(rec.Observations, ev)
	}

	c.transcript = append(c.transcript, rec.Clone())
	return rec, nil
}
