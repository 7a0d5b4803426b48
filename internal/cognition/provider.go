// Package cognition defines the text-producing collaborators of the
// simulation (decisions, dialogue and utterances), a deterministic rule-based
// implementation, LLM-backed implementations and a guard that falls back from
// one to the other.
package cognition

import (
	"context"
	"errors"
	"fmt"

	"github.com/rcliao/agent-sim/internal/model"
)

// ErrUnavailable is returned by providers that are not configured.
var ErrUnavailable = errors.New("cognition provider unavailable")

// Perception is what an agent knows when deciding its next move.
type Perception struct {
	Name     string
	Traits   string
	Goal     string
	X, Y     int
	GridSize int
	Memories []string
	Nearby   []string
}

// Decision is the output of one deep-thinking step.
type Decision struct {
	Thought string          `json:"thought"`
	Action  model.Direction `json:"action"`
	Plan    string          `json:"plan"`
}

// Participant is one member of a conversation.
type Participant struct {
	Name   string
	Traits string
}

// Exchange is a generated conversation and a one-line summary of it.
type Exchange struct {
	Dialogue string `json:"dialogue"`
	Summary  string `json:"summary"`
}

// SpeechRequest asks for one utterance.
type SpeechRequest struct {
	Profile   model.AgentProfile
	Context   string
	Plan      string
	Listeners []string
}

// Decider produces a thought, a movement and a plan.
type Decider interface {
	Decide(ctx context.Context, p Perception) (Decision, error)
}

// Dialoguer produces a conversation for two or more participants.
type Dialoguer interface {
	Converse(ctx context.Context, participants []Participant) (Exchange, error)
}

// Speaker produces an utterance from a persona and a plan.
type Speaker interface {
	Speak(ctx context.Context, req SpeechRequest) (string, error)
}

// Provider bundles all three capabilities.
type Provider interface {
	Decider
	Dialoguer
	Speaker
}

// Provider kinds accepted by NewPrimary.
const (
	KindRules     = "rules"
	KindOpenAI    = "openai"
	KindAnthropic = "anthropic"
)

// NewPrimary builds the LLM provider for kind. The rules kind has no primary
// provider and returns nil.
func NewPrimary(kind string, opts CompleterOptions) (Provider, error) {
	apply := func(o *CompleterOptions) {
		if opts.Model != "" {
			o.Model = opts.Model
		}
		if opts.Temperature > 0 {
			o.Temperature = opts.Temperature
		}
		if opts.MaxTokens > 0 {
			o.MaxTokens = opts.MaxTokens
		}
		o.APIKey = opts.APIKey
		o.BaseURL = opts.BaseURL
	}
	switch kind {
	case "", KindRules:
		return nil, nil
	case KindOpenAI:
		return NewLLM(NewOpenAICompleter(apply)), nil
	case KindAnthropic:
		return NewLLM(NewAnthropicCompleter(apply)), nil
	default:
		return nil, fmt.Errorf("unknown cognition provider %q", kind)
	}
}
