package cognition

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"

	"github.com/rcliao/agent-sim/internal/model"
)

// centreBias is the probability that a rule-based move heads for the centre.
const centreBias = 0.3

type persona int

const (
	personaDefault persona = iota
	personaDramatic
	personaCynical
)

func personaOf(traits string) persona {
	t := strings.ToLower(traits)
	switch {
	case strings.Contains(t, "dramatic") || strings.Contains(t, "shakespeare"):
		return personaDramatic
	case strings.Contains(t, "cynical") || strings.Contains(t, "tired"):
		return personaCynical
	}
	return personaDefault
}

var (
	thoughts = map[persona][]string{
		personaDramatic: {
			"Ah, the tragedy of existence weighs upon me...",
			"Life is but a stage, and I am merely a player!",
			"The cosmos conspires against my noble pursuits!",
		},
		personaCynical: {
			"Another tedious day in this simulation...",
			"Everyone here is predictably boring.",
			"I need more coffee to tolerate this.",
		},
		personaDefault: {
			"I wonder what's happening around here.",
			"Maybe I should explore a bit.",
			"Just going with the flow.",
		},
	}
	plans = map[persona][]string{
		personaDramatic: {
			"Wander dramatically, pondering my destiny",
			"Seek out someone to regale with my tales",
			"Practice my theatrical gestures",
		},
		personaCynical: {
			"Find a quiet corner to avoid people",
			"Get more coffee if possible",
			"Minimal interaction strategy",
		},
		personaDefault: {
			"Walk around and see what happens",
			"Maybe talk to someone nearby",
			"Just explore the area",
		},
	}
	lines = map[persona][]string{
		personaDramatic: {
			"Ah! Life is an endless cycle of agony and ecstasy!",
			"Your words strike the very strings of my soul.",
			"Coffee... it is like black tears, is it not?",
			"(gravely) Today's weather mirrors my heart.",
		},
		personaCynical: {
			"No coffee, no conversation.",
			"I'm on a deadline, so I'll keep this short.",
			"Could you tone down the drama a little?",
			"Sure, very moving. (no soul detected)",
		},
		personaDefault: {
			"Hmm, I see. Interesting.",
			"That makes sense to me.",
			"Let's see where this goes.",
		},
	}
	// Random walks favour STAY twice as often as any single direction.
	randomMoves = []model.Direction{model.Up, model.Down, model.Left, model.Right, model.Stay, model.Stay}
)

// Rules is the deterministic, seeded fallback provider. Output depends only on
// the seed, the call sequence and coarse trait keywords.
type Rules struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRules returns a rule-based provider with its own seeded source.
func NewRules(seed int64) *Rules {
	return &Rules{rng: rand.New(rand.NewSource(seed))}
}

func (r *Rules) pick(xs []string) string {
	return xs[r.rng.Intn(len(xs))]
}

// Decide picks a templated thought and plan and a random walk step with a bias
// toward the grid centre.
func (r *Rules) Decide(_ context.Context, p Perception) (Decision, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kind := personaOf(p.Traits)
	d := Decision{
		Thought: r.pick(thoughts[kind]),
		Plan:    r.pick(plans[kind]),
	}

	grid := p.GridSize
	if grid <= 0 {
		grid = 20
	}
	centre := grid / 2
	if r.rng.Float64() < centreBias {
		switch {
		case p.X < centre:
			d.Action = model.Right
		case p.X > centre:
			d.Action = model.Left
		case p.Y < centre:
			d.Action = model.Down
		case p.Y > centre:
			d.Action = model.Up
		default:
			d.Action = model.Stay
		}
	} else {
		d.Action = randomMoves[r.rng.Intn(len(randomMoves))]
	}
	return d, nil
}

var (
	greetings = []string{"Oh, hello there.", "Fancy meeting you here.", "Hey!"}
	responses = []string{"Hi. How's it going?", "Yeah, what's up?", "Oh, hey."}
)

// Converse greets from the first participant and lets every other
// participant answer once.
func (r *Rules) Converse(_ context.Context, participants []Participant) (Exchange, error) {
	if len(participants) < 2 {
		return Exchange{}, fmt.Errorf("conversation needs at least two participants, got %d", len(participants))
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	var b strings.Builder
	fmt.Fprintf(&b, "%s: '%s'", participants[0].Name, r.pick(greetings))
	names := []string{participants[0].Name}
	for _, p := range participants[1:] {
		fmt.Fprintf(&b, "\n%s: '%s'", p.Name, r.pick(responses))
		names = append(names, p.Name)
	}
	return Exchange{
		Dialogue: b.String(),
		Summary:  fmt.Sprintf("%s had a brief chat.", JoinNames(names)),
	}, nil
}

// Speak returns a persona line followed by the plan it serves.
func (r *Rules) Speak(_ context.Context, req SpeechRequest) (string, error) {
	r.mu.Lock()
	line := r.pick(lines[personaOf(req.Profile.Traits)])
	r.mu.Unlock()

	plan := strings.TrimSpace(req.Plan)
	if plan == "" {
		return line, nil
	}
	return fmt.Sprintf("%s (%s)", line, plan), nil
}

// JoinNames renders "A", "A and B" or "A, B and C".
func JoinNames(names []string) string {
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	}
	return strings.Join(names[:len(names)-1], ", ") + " and " + names[len(names)-1]
}
