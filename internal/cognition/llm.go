package cognition

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rcliao/agent-sim/internal/model"
)

// LLM implements Provider on top of a Completer. Decisions and dialogue are
// requested as JSON objects; anything that does not parse is an error, which
// the Guard turns into a rule-based fallback.
type LLM struct {
	completer Completer
}

// NewLLM wraps c.
func NewLLM(c Completer) *LLM {
	return &LLM{completer: c}
}

const jsonOnly = "Respond ONLY with valid JSON. Do not wrap it in markdown."

func (l *LLM) Decide(ctx context.Context, p Perception) (Decision, error) {
	if l == nil || l.completer == nil {
		return Decision{}, ErrUnavailable
	}
	memories := "- No memories yet"
	if len(p.Memories) > 0 {
		recent := p.Memories
		if len(recent) > 5 {
			recent = recent[len(recent)-5:]
		}
		memories = "- " + strings.Join(recent, "\n- ")
	}
	nearby := "No one nearby"
	if len(p.Nearby) > 0 {
		nearby = strings.Join(p.Nearby, ", ")
	}

	prompt := fmt.Sprintf(`You are %s, a character in a simulation.

YOUR PERSONALITY:
%s

YOUR GOAL:
%s

CURRENT SITUATION:
- Position: (%d, %d) on a %dx%d grid
- Nearby agents: %s

RECENT MEMORIES:
%s

Decide your next action. Use exactly this shape:
{"thought": "one sentence", "action": "UP|DOWN|LEFT|RIGHT|STAY", "plan": "one sentence"}`,
		p.Name, p.Traits, p.Goal, p.X, p.Y, p.GridSize, p.GridSize, nearby, memories)

	raw, err := l.completer.Complete(ctx, jsonOnly, prompt)
	if err != nil {
		return Decision{}, err
	}
	var out struct {
		Thought *string `json:"thought"`
		Action  *string `json:"action"`
		Plan    *string `json:"plan"`
	}
	if err := decodeJSON(raw, &out); err != nil {
		return Decision{}, err
	}
	if out.Thought == nil || out.Action == nil || out.Plan == nil {
		return Decision{}, fmt.Errorf("decision is missing thought, action or plan")
	}
	return Decision{
		Thought: *out.Thought,
		Action:  model.ParseDirection(*out.Action),
		Plan:    *out.Plan,
	}, nil
}

func (l *LLM) Converse(ctx context.Context, participants []Participant) (Exchange, error) {
	if l == nil || l.completer == nil {
		return Exchange{}, ErrUnavailable
	}
	if len(participants) < 2 {
		return Exchange{}, fmt.Errorf("conversation needs at least two participants, got %d", len(participants))
	}
	var cast strings.Builder
	for i, p := range participants {
		fmt.Fprintf(&cast, "CHARACTER %d: %s\nPersonality: %s\n\n", i+1, p.Name, p.Traits)
	}
	prompt := fmt.Sprintf(`Generate a brief sitcom-style conversation between characters who just met:

%sCreate a short, witty exchange (one or two lines each). Use exactly this shape:
{"dialogue": "Name: 'line'\nName: 'line'", "summary": "one sentence"}`, cast.String())

	raw, err := l.completer.Complete(ctx, jsonOnly, prompt)
	if err != nil {
		return Exchange{}, err
	}
	var out struct {
		Dialogue *string `json:"dialogue"`
		Summary  *string `json:"summary"`
	}
	if err := decodeJSON(raw, &out); err != nil {
		return Exchange{}, err
	}
	if out.Dialogue == nil || out.Summary == nil {
		return Exchange{}, fmt.Errorf("dialogue is missing dialogue or summary")
	}
	return Exchange{Dialogue: *out.Dialogue, Summary: *out.Summary}, nil
}

func (l *LLM) Speak(ctx context.Context, req SpeechRequest) (string, error) {
	if l == nil || l.completer == nil {
		return "", ErrUnavailable
	}
	system := fmt.Sprintf("You are %s. Personality: %s. Keep your goal in mind: %s. "+
		"Answer in one or two short sentences and never step out of character.",
		req.Profile.Name, req.Profile.Traits, req.Profile.Goal)
	listeners := "the room"
	if len(req.Listeners) > 0 {
		listeners = JoinNames(req.Listeners)
	}
	prompt := fmt.Sprintf("Situation: %s\nYou are talking to %s.\nYour plan: %s\nSay your line:",
		req.Context, listeners, req.Plan)

	raw, err := l.completer.Complete(ctx, system, prompt)
	if err != nil {
		return "", err
	}
	line := strings.TrimSpace(raw)
	if line == "" {
		return "", fmt.Errorf("empty utterance")
	}
	return line, nil
}

// decodeJSON parses the first JSON object in raw, tolerating code fences and
// surrounding prose.
func decodeJSON(raw string, v any) error {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end < start {
		return fmt.Errorf("no JSON object in response")
	}
	if err := json.Unmarshal([]byte(raw[start:end+1]), v); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}
