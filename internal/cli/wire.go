package cli

import (
	"fmt"
	"time"

	"github.com/rcliao/agent-sim/internal/agent"
	"github.com/rcliao/agent-sim/internal/cognition"
	"github.com/rcliao/agent-sim/internal/config"
	"github.com/rcliao/agent-sim/internal/embedding"
	"github.com/rcliao/agent-sim/internal/logging"
	"github.com/rcliao/agent-sim/internal/memory"
	"github.com/rcliao/agent-sim/internal/scenario"
	"github.com/rcliao/agent-sim/internal/scoring"
)

// stack is the shared cognition wiring for run and converse.
type stack struct {
	cfg     config.Config
	logger  logging.Logger
	guard   *cognition.Guard
	scoring *scoring.Engine
}

func wireStack(cfg config.Config, provider string, seed int64) (*stack, error) {
	if provider != "" {
		cfg.Provider.Kind = provider
	}
	logger := newLogger(cfg)

	primary, err := cognition.NewPrimary(cfg.Provider.Kind, cfg.CompleterOptions())
	if err != nil {
		return nil, err
	}
	guard := cognition.NewGuard(primary, cognition.NewRules(seed),
		cognition.WithTimeout(cfg.Provider.Timeout.Std()),
		cognition.WithLogger(logger))

	opts := []scoring.Option{scoring.WithLogger(logger)}
	embedder, err := embedding.New(cfg.EmbeddingConfig())
	if err != nil {
		return nil, err
	}
	if embedder != nil {
		opts = append(opts, scoring.WithSimilarity(embedding.NewIndex(embedder)))
	}

	logger.Debug("stack wired", "component", "cli", "provider", cfg.Provider.Kind,
		"embedding", cfg.Embedding.Provider, "seed", seed)
	return &stack{
		cfg:     cfg,
		logger:  logger,
		guard:   guard,
		scoring: scoring.New(cfg.ScoringParams(), opts...),
	}, nil
}

// agents builds one cognition agent per cast member, each with its own
// memory store of the given capacity seeded from the scenario.
func (s *stack) agents(scen *scenario.Scenario, capacity int, clock func() time.Time) ([]*agent.Agent, error) {
	var out []*agent.Agent
	for i, p := range scen.Profiles() {
		mem := memory.New(capacity, memory.WithClock(clock))
		a, err := agent.New(p, mem, s.scoring, s.guard, s.cfg.AgentConfig(),
			agent.WithClock(clock),
			agent.WithLogger(s.logger))
		if err != nil {
			return nil, err
		}
		seeds, err := scen.Agents[i].SeedMemories()
		if err != nil {
			return nil, err
		}
		for _, m := range seeds {
			if _, err := a.Remember(m); err != nil {
				return nil, fmt.Errorf("seed %s: %w", p.Name, err)
			}
		}
		out = append(out, a)
	}
	return out, nil
}

func seedOr(flag int64, cfg config.Config) int64 {
	if flag != 0 {
		return flag
	}
	return cfg.Seed
}

func scenarioName(s *scenario.Scenario) string {
	if s.Path != "" {
		return s.Path
	}
	return s.Name
}
