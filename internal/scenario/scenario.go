// Package scenario reads cast files describing a run's starting agents.
package scenario

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rcliao/agent-sim/internal/importance"
	"github.com/rcliao/agent-sim/internal/model"
	"github.com/rcliao/agent-sim/internal/sim"
)

// Agent is one cast member.
type Agent struct {
	Name      string   `yaml:"name"`
	Traits    string   `yaml:"traits"`
	Goal      string   `yaml:"goal"`
	X         *int     `yaml:"x,omitempty"`
	Y         *int     `yaml:"y,omitempty"`
	Direction string   `yaml:"direction,omitempty"`
	Memories  []string `yaml:"memories,omitempty"` // seed observations
}

// Scenario is a cast plus the situation that frames their conversation.
type Scenario struct {
	Name      string  `yaml:"name"`
	Situation string  `yaml:"situation"`
	Agents    []Agent `yaml:"agents"`
	Path      string  `yaml:"-"`
}

func intp(v int) *int { return &v }

// Default returns the built-in two-agent cast.
func Default() *Scenario {
	return &Scenario{
		Name:      "default",
		Situation: "A small coffee shop near the theatre, late afternoon.",
		Agents: []Agent{
			{
				Name:      "Min-jun",
				Traits:    "Overly dramatic, emotional, speaks like he's in a Shakespeare play, easily offended",
				Goal:      "Get cast in a main role and impress Seo-yeon with his acting skills",
				X:         intp(5),
				Y:         intp(5),
				Direction: string(model.Right),
			},
			{
				Name:      "Seo-yeon",
				Traits:    "Cynical, dry humor, realistic, constantly tired, coffee addict",
				Goal:      "Finish her script deadline and dodge Min-jun's drama",
				X:         intp(15),
				Y:         intp(15),
				Direction: string(model.Left),
			},
		},
	}
}

// Load reads a scenario file. An empty path returns Default.
func Load(path string) (*Scenario, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", path, err)
	}
	s.Path = path
	return s, nil
}

// Parse decodes and validates a YAML scenario.
func Parse(data []byte) (*Scenario, error) {
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	s.Situation = strings.TrimSpace(s.Situation)
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks every profile and rejects duplicate names.
func (s *Scenario) Validate() error {
	if len(s.Agents) == 0 {
		return fmt.Errorf("scenario has no agents")
	}
	seen := make(map[string]bool, len(s.Agents))
	for i, a := range s.Agents {
		if _, err := model.NewAgentProfile(a.Name, a.Traits, a.Goal); err != nil {
			return fmt.Errorf("agent %d: %w", i, err)
		}
		if seen[a.Name] {
			return fmt.Errorf("duplicate agent %q", a.Name)
		}
		seen[a.Name] = true
	}
	return nil
}

// Profiles returns the cast's identities in file order.
func (s *Scenario) Profiles() []model.AgentProfile {
	out := make([]model.AgentProfile, len(s.Agents))
	for i, a := range s.Agents {
		out[i] = model.AgentProfile{Name: a.Name, Traits: a.Traits, Goal: a.Goal}
	}
	return out
}

// SeedMemories returns the agent's seed observations, scored against its goal.
func (a Agent) SeedMemories() ([]model.Memory, error) {
	var out []model.Memory
	for _, text := range a.Memories {
		text = model.TruncateContent(strings.TrimSpace(text))
		m, err := model.NewMemory(text, model.KindObservation, importance.Score(text, a.Goal))
		if err != nil {
			return nil, fmt.Errorf("seed memory for %s: %w", a.Name, err)
		}
		m.Source = "scenario"
		out = append(out, m)
	}
	return out, nil
}

// World builds the starting world. Positions are clamped to [0, gridSize];
// agents without coordinates start at the centre.
func (s *Scenario) World(start time.Time, gridSize, capacity int) (*sim.WorldState, error) {
	w := sim.NewWorld(start)
	center := gridSize / 2
	for _, a := range s.Agents {
		x, y := center, center
		if a.X != nil {
			x = clamp(*a.X, gridSize)
		}
		if a.Y != nil {
			y = clamp(*a.Y, gridSize)
		}
		snap, err := sim.NewAgentSnapshot(model.AgentProfile{Name: a.Name, Traits: a.Traits, Goal: a.Goal}, x, y, capacity)
		if err != nil {
			return nil, err
		}
		snap.Direction = model.ParseDirection(a.Direction)
		seeds, err := a.SeedMemories()
		if err != nil {
			return nil, err
		}
		for _, m := range seeds {
			m.CreatedAt = start
			if _, err := snap.Memories.Add(m); err != nil {
				return nil, err
			}
		}
		if err := w.AddAgent(snap); err != nil {
			return nil, err
		}
	}
	return w, nil
}

func clamp(v, hi int) int {
	if v < 0 {
		return 0
	}
	if v > hi {
		return hi
	}
	return v
}
