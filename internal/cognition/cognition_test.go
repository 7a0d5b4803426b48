package cognition

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/agent-sim/internal/logging"
	"github.com/rcliao/agent-sim/internal/model"
)

func TestRulesDecideIsSeeded(t *testing.T) {
	p := Perception{Name: "Min-jun", Traits: "Overly dramatic", X: 3, Y: 4, GridSize: 20}
	run := func() []Decision {
		r := NewRules(42)
		var out []Decision
		for i := 0; i < 20; i++ {
			d, err := r.Decide(context.Background(), p)
			require.NoError(t, err)
			out = append(out, d)
		}
		return out
	}
	assert.Equal(t, run(), run())
}

func TestRulesDecideUsesTraitPools(t *testing.T) {
	r := NewRules(1)
	tests := []struct {
		traits string
		pool   []string
	}{
		{"Talks like Shakespeare", thoughts[personaDramatic]},
		{"cynical office worker", thoughts[personaCynical]},
		{"always TIRED", thoughts[personaCynical]},
		{"cheerful", thoughts[personaDefault]},
	}
	for _, tt := range tests {
		d, err := r.Decide(context.Background(), Perception{Traits: tt.traits, GridSize: 20})
		require.NoError(t, err)
		assert.Contains(t, tt.pool, d.Thought, tt.traits)
		assert.Contains(t, model.Directions, d.Action)
	}
}

func TestRulesDecideBiasAtCentre(t *testing.T) {
	r := NewRules(3)
	for i := 0; i < 100; i++ {
		d, err := r.Decide(context.Background(), Perception{X: 10, Y: 10, GridSize: 20})
		require.NoError(t, err)
		assert.Contains(t, model.Directions, d.Action)
	}
	// Far left: every centre-biased move goes right, so RIGHT dominates.
	counts := map[model.Direction]int{}
	for i := 0; i < 1000; i++ {
		d, _ := r.Decide(context.Background(), Perception{X: 0, Y: 10, GridSize: 20})
		counts[d.Action]++
	}
	assert.Greater(t, counts[model.Right], counts[model.Left])
}

func TestRulesConverse(t *testing.T) {
	r := NewRules(9)
	x, err := r.Converse(context.Background(), []Participant{{Name: "A"}, {Name: "B"}, {Name: "C"}})
	require.NoError(t, err)
	lines := strings.Split(x.Dialogue, "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "A: "))
	assert.True(t, strings.HasPrefix(lines[2], "C: "))
	assert.Equal(t, "A, B and C had a brief chat.", x.Summary)

	_, err = r.Converse(context.Background(), []Participant{{Name: "A"}})
	assert.Error(t, err)
}

func TestRulesSpeak(t *testing.T) {
	r := NewRules(5)
	s, err := r.Speak(context.Background(), SpeechRequest{
		Profile: model.AgentProfile{Name: "Seo-yeon", Traits: "Cynical", Goal: "Finish work"},
		Plan:    "Finish work early",
	})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(s, "(Finish work early)"), s)
}

func TestJoinNames(t *testing.T) {
	assert.Equal(t, "", JoinNames(nil))
	assert.Equal(t, "A", JoinNames([]string{"A"}))
	assert.Equal(t, "A and B", JoinNames([]string{"A", "B"}))
}

// scripted is a Completer returning canned text.
type scripted struct {
	reply  string
	err    error
	delay  time.Duration
	system string
	prompt string
}

func (s *scripted) Complete(ctx context.Context, system, prompt string) (string, error) {
	s.system, s.prompt = system, prompt
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return s.reply, s.err
}

func TestLLMDecideParsesJSON(t *testing.T) {
	c := &scripted{reply: "```json\n{\"thought\": \"hm\", \"action\": \"left\", \"plan\": \"go\"}\n```"}
	d, err := NewLLM(c).Decide(context.Background(), Perception{Name: "A", Nearby: []string{"B"}, GridSize: 20})
	require.NoError(t, err)
	assert.Equal(t, Decision{Thought: "hm", Action: model.Left, Plan: "go"}, d)
	assert.Contains(t, c.prompt, "Nearby agents: B")
}

func TestLLMDecideInvalidActionBecomesStay(t *testing.T) {
	c := &scripted{reply: `{"thought": "t", "action": "JUMP", "plan": "p"}`}
	d, err := NewLLM(c).Decide(context.Background(), Perception{})
	require.NoError(t, err)
	assert.Equal(t, model.Stay, d.Action)
}

func TestLLMDecideRejectsIncomplete(t *testing.T) {
	for _, reply := range []string{`{"thought": "t", "action": "UP"}`, "no json here", `{"thought": `} {
		_, err := NewLLM(&scripted{reply: reply}).Decide(context.Background(), Perception{})
		assert.Error(t, err, reply)
	}
}

func TestLLMConverse(t *testing.T) {
	c := &scripted{reply: `{"dialogue": "A: 'hi'\nB: 'yo'", "summary": "They met."}`}
	x, err := NewLLM(c).Converse(context.Background(), []Participant{{Name: "A", Traits: "shy"}, {Name: "B", Traits: "loud"}})
	require.NoError(t, err)
	assert.Equal(t, "They met.", x.Summary)
	assert.Contains(t, c.prompt, "Personality: loud")

	_, err = NewLLM(&scripted{reply: `{"dialogue": "x"}`}).Converse(context.Background(), []Participant{{Name: "A"}, {Name: "B"}})
	assert.Error(t, err)
}

func TestLLMSpeak(t *testing.T) {
	c := &scripted{reply: "  Hello there.  "}
	s, err := NewLLM(c).Speak(context.Background(), SpeechRequest{
		Profile:   model.AgentProfile{Name: "A", Traits: "kind", Goal: "help"},
		Plan:      "greet",
		Listeners: []string{"B"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello there.", s)
	assert.Contains(t, c.system, "You are A.")

	_, err = NewLLM(&scripted{reply: " "}).Speak(context.Background(), SpeechRequest{})
	assert.Error(t, err)
}

func TestNilLLMIsUnavailable(t *testing.T) {
	var l *LLM
	_, err := l.Decide(context.Background(), Perception{})
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestGuardWithoutPrimaryIsNotDegraded(t *testing.T) {
	g := NewGuard(nil, NewRules(1))
	_, degraded := g.Decide(context.Background(), Perception{GridSize: 20})
	assert.False(t, degraded)
	_, degraded = g.Converse(context.Background(), []Participant{{Name: "A"}, {Name: "B"}})
	assert.False(t, degraded)
}

func TestGuardFallsBackOnError(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New("warn", "json", &buf)
	require.NoError(t, err)

	primary := NewLLM(&scripted{err: errors.New("rate limited")})
	g := NewGuard(primary, NewRules(1), WithLogger(logger))

	d, degraded := g.Decide(context.Background(), Perception{Name: "Min-jun", GridSize: 20})
	assert.True(t, degraded)
	assert.NotEmpty(t, d.Thought)

	s, degraded := g.Speak(context.Background(), SpeechRequest{Profile: model.AgentProfile{Name: "Min-jun"}})
	assert.True(t, degraded)
	assert.NotEmpty(t, s)

	assert.Contains(t, buf.String(), "rate limited")
	assert.Contains(t, buf.String(), `"agent":"Min-jun"`)
}

func TestGuardFallsBackOnTimeout(t *testing.T) {
	primary := NewLLM(&scripted{reply: `{"dialogue": "x", "summary": "y"}`, delay: time.Second})
	g := NewGuard(primary, NewRules(1), WithTimeout(20*time.Millisecond))

	start := time.Now()
	x, degraded := g.Converse(context.Background(), []Participant{{Name: "A"}, {Name: "B"}})
	assert.True(t, degraded)
	assert.Equal(t, "A and B had a brief chat.", x.Summary)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestGuardUsesPrimaryWhenHealthy(t *testing.T) {
	primary := NewLLM(&scripted{reply: `{"thought": "t", "action": "UP", "plan": "p"}`})
	d, degraded := NewGuard(primary, NewRules(1)).Decide(context.Background(), Perception{})
	assert.False(t, degraded)
	assert.Equal(t, model.Up, d.Action)
}

type panicky struct{ *Rules }

func (panicky) Decide(context.Context, Perception) (Decision, error) { panic("boom") }

func TestGuardRecoversPanics(t *testing.T) {
	g := NewGuard(panicky{NewRules(1)}, NewRules(1))
	_, degraded := g.Decide(context.Background(), Perception{GridSize: 20})
	assert.True(t, degraded)
}

func TestNewPrimary(t *testing.T) {
	p, err := NewPrimary(KindRules, CompleterOptions{})
	require.NoError(t, err)
	assert.Nil(t, p)

	p, err = NewPrimary(KindOpenAI, CompleterOptions{APIKey: "test"})
	require.NoError(t, err)
	assert.NotNil(t, p)

	p, err = NewPrimary(KindAnthropic, CompleterOptions{APIKey: "test"})
	require.NoError(t, err)
	assert.NotNil(t, p)

	_, err = NewPrimary("gemini", CompleterOptions{})
	assert.Error(t, err)
}
