// Package config loads agent-sim configuration from defaults, a TOML file and
// AGENT_SIM_* environment variables.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"

	"github.com/rcliao/agent-sim/internal/agent"
	"github.com/rcliao/agent-sim/internal/cognition"
	"github.com/rcliao/agent-sim/internal/embedding"
	"github.com/rcliao/agent-sim/internal/scoring"
	"github.com/rcliao/agent-sim/internal/sim"
)

const (
	configName = "agent-sim"
	configType = "toml"
	configDir  = ".agent-sim"
	envPrefix  = "AGENT_SIM"
)

// Duration is a time.Duration that reads and writes as "10m0s".
type Duration time.Duration

func (d Duration) MarshalText() ([]byte, error) { return []byte(time.Duration(d).String()), nil }

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(b)))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

type Config struct {
	Seed      int64           `mapstructure:"seed" toml:"seed"`
	Memory    MemoryConfig    `mapstructure:"memory" toml:"memory"`
	Scoring   ScoringConfig   `mapstructure:"scoring" toml:"scoring"`
	Agent     AgentConfig     `mapstructure:"agent" toml:"agent"`
	World     WorldConfig     `mapstructure:"world" toml:"world"`
	Provider  ProviderConfig  `mapstructure:"provider" toml:"provider"`
	Embedding EmbeddingConfig `mapstructure:"embedding" toml:"embedding"`
	Log       LogConfig       `mapstructure:"log" toml:"log"`
	Store     StoreConfig     `mapstructure:"store" toml:"store"`
}

type MemoryConfig struct {
	SpatialCapacity  int `mapstructure:"spatial_capacity" toml:"spatial_capacity"`
	DialogueCapacity int `mapstructure:"dialogue_capacity" toml:"dialogue_capacity"`
}

type ScoringConfig struct {
	WeightSimilarity float64 `mapstructure:"weight_similarity" toml:"weight_similarity"`
	WeightRecency    float64 `mapstructure:"weight_recency" toml:"weight_recency"`
	WeightImportance float64 `mapstructure:"weight_importance" toml:"weight_importance"`
	DecayTauHours    float64 `mapstructure:"decay_tau_hours" toml:"decay_tau_hours"`
	TopN             int     `mapstructure:"top_n" toml:"top_n"`
	K                int     `mapstructure:"k" toml:"k"`
}

type AgentConfig struct {
	ReflectionPeriod     int `mapstructure:"reflection_period" toml:"reflection_period"`
	ReflectionImportance int `mapstructure:"reflection_importance" toml:"reflection_importance"`
	StoreThreshold       int `mapstructure:"store_threshold" toml:"store_threshold"`
	PlanMaxLen           int `mapstructure:"plan_max_len" toml:"plan_max_len"`
	RecentDialogue       int `mapstructure:"recent_dialogue" toml:"recent_dialogue"`
}

type WorldConfig struct {
	GridSize               int      `mapstructure:"grid_size" toml:"grid_size"`
	ProximityRadius        float64  `mapstructure:"proximity_radius" toml:"proximity_radius"`
	ThinkInterval          int      `mapstructure:"think_interval" toml:"think_interval"`
	ConversationImportance int      `mapstructure:"conversation_importance" toml:"conversation_importance"`
	TickDuration           Duration `mapstructure:"tick_duration" toml:"tick_duration"`
	HistoryLimit           int      `mapstructure:"history_limit" toml:"history_limit"`
}

type ProviderConfig struct {
	Kind        string   `mapstructure:"kind" toml:"kind"`
	Model       string   `mapstructure:"model" toml:"model"`
	Timeout     Duration `mapstructure:"timeout" toml:"timeout"`
	Temperature float64  `mapstructure:"temperature" toml:"temperature"`
	MaxTokens   int      `mapstructure:"max_tokens" toml:"max_tokens"`
	APIKey      string   `mapstructure:"api_key" toml:"api_key"`
	BaseURL     string   `mapstructure:"base_url" toml:"base_url"`
}

type EmbeddingConfig struct {
	Provider string `mapstructure:"provider" toml:"provider"`
	Model    string `mapstructure:"model" toml:"model"`
	URL      string `mapstructure:"url" toml:"url"`
	APIKey   string `mapstructure:"api_key" toml:"api_key"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" toml:"level"`
	Format string `mapstructure:"format" toml:"format"`
}

type StoreConfig struct {
	Path string `mapstructure:"path" toml:"path"`
}

// Default returns the documented defaults.
func Default() Config {
	sp := scoring.DefaultParams()
	ac := agent.DefaultConfig()
	wc := sim.DefaultConfig()
	return Config{
		Seed:   42,
		Memory: MemoryConfig{SpatialCapacity: 20, DialogueCapacity: 200},
		Scoring: ScoringConfig{
			WeightSimilarity: sp.Weights.Similarity,
			WeightRecency:    sp.Weights.Recency,
			WeightImportance: sp.Weights.Importance,
			DecayTauHours:    sp.TauHours,
			TopN:             sp.TopN,
			K:                sp.K,
		},
		Agent: AgentConfig{
			ReflectionPeriod:     ac.ReflectionPeriod,
			ReflectionImportance: ac.ReflectionImportance,
			StoreThreshold:       ac.StoreThreshold,
			PlanMaxLen:           ac.PlanMaxLen,
			RecentDialogue:       agent.DefaultRecentDialogue,
		},
		World: WorldConfig{
			GridSize:               wc.GridSize,
			ProximityRadius:        wc.ProximityRadius,
			ThinkInterval:          wc.ThinkInterval,
			ConversationImportance: wc.ConversationImportance,
			TickDuration:           Duration(wc.TickDuration),
			HistoryLimit:           sim.DefaultHistoryLimit,
		},
		Provider: ProviderConfig{
			Kind:        cognition.KindRules,
			Timeout:     Duration(cognition.DefaultTimeout),
			Temperature: 0.7,
			MaxTokens:   512,
		},
		Log:   LogConfig{Level: "info", Format: "text"},
		Store: StoreConfig{Path: defaultDBPath()},
	}
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(configDir, "history.db")
	}
	return filepath.Join(home, configDir, "history.db")
}

// DefaultPath is where `config init` writes when no path is given.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return configName + "." + configType
	}
	return filepath.Join(home, configDir, configName+"."+configType)
}

// Load builds the configuration. Defaults are overlaid with the file at path
// (or agent-sim.toml found in $HOME/.agent-sim or the working directory when
// path is empty) and then with AGENT_SIM_* environment variables. A missing
// file is only an error when path is explicit.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigType(configType)

	defaults, err := Encode(Default())
	if err != nil {
		return Config{}, err
	}
	if err := v.ReadConfig(bytes.NewReader(defaults)); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.MergeInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	} else {
		v.SetConfigName(configName)
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, configDir))
		}
		v.AddConfigPath(".")
		if err := v.MergeInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.TextUnmarshallerHookFunc(),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.Normalize()
	return cfg, nil
}

// Normalize clamps misconfiguration to usable values.
func (c *Config) Normalize() {
	d := Default()
	if c.Memory.SpatialCapacity < 0 {
		c.Memory.SpatialCapacity = 0
	}
	if c.Memory.DialogueCapacity < 0 {
		c.Memory.DialogueCapacity = 0
	}

	s := &c.Scoring
	s.WeightSimilarity = max(s.WeightSimilarity, 0)
	s.WeightRecency = max(s.WeightRecency, 0)
	s.WeightImportance = max(s.WeightImportance, 0)
	if s.DecayTauHours <= 0 {
		s.DecayTauHours = d.Scoring.DecayTauHours
	}
	if s.TopN <= 0 {
		s.TopN = d.Scoring.TopN
	}
	if s.K <= 0 {
		s.K = d.Scoring.K
	}

	a := &c.Agent
	if a.ReflectionPeriod < 1 {
		a.ReflectionPeriod = 1
	}
	if a.StoreThreshold < 1 {
		a.StoreThreshold = 1
	}
	if a.ReflectionImportance < 1 || a.ReflectionImportance > 10 {
		a.ReflectionImportance = d.Agent.ReflectionImportance
	}
	if a.PlanMaxLen < 1 {
		a.PlanMaxLen = d.Agent.PlanMaxLen
	}
	if a.RecentDialogue < 1 {
		a.RecentDialogue = d.Agent.RecentDialogue
	}

	w := &c.World
	if w.GridSize < 1 {
		w.GridSize = d.World.GridSize
	}
	if w.ProximityRadius < 0 {
		w.ProximityRadius = 0
	}
	if w.ThinkInterval < 1 {
		w.ThinkInterval = 1
	}
	if w.ConversationImportance < 1 || w.ConversationImportance > 10 {
		w.ConversationImportance = d.World.ConversationImportance
	}
	if w.TickDuration <= 0 {
		w.TickDuration = d.World.TickDuration
	}
	if w.HistoryLimit < 1 {
		w.HistoryLimit = d.World.HistoryLimit
	}

	p := &c.Provider
	p.Kind = strings.ToLower(strings.TrimSpace(p.Kind))
	if p.Kind == "" {
		p.Kind = cognition.KindRules
	}
	if p.Timeout <= 0 {
		p.Timeout = d.Provider.Timeout
	}
	if p.MaxTokens <= 0 {
		p.MaxTokens = d.Provider.MaxTokens
	}

	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = d.Log.Format
	}
	if c.Store.Path == "" {
		c.Store.Path = d.Store.Path
	}
}

// Encode renders c as TOML.
func Encode(c Config) ([]byte, error) {
	b, err := toml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return b, nil
}

// Redacted returns a copy with secrets masked, for display.
func (c Config) Redacted() Config {
	if c.Provider.APIKey != "" {
		c.Provider.APIKey = "***"
	}
	if c.Embedding.APIKey != "" {
		c.Embedding.APIKey = "***"
	}
	return c
}

// WriteDefault writes the default configuration to path. An existing file is
// left untouched unless force is set.
func WriteDefault(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file %s already exists", path)
		}
	}
	b, err := Encode(Default())
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	return os.WriteFile(path, b, 0o644)
}

// ScoringParams converts the scoring section.
func (c Config) ScoringParams() scoring.Params {
	return scoring.Params{
		Weights: scoring.Weights{
			Similarity: c.Scoring.WeightSimilarity,
			Recency:    c.Scoring.WeightRecency,
			Importance: c.Scoring.WeightImportance,
		},
		TauHours: c.Scoring.DecayTauHours,
		TopN:     c.Scoring.TopN,
		K:        c.Scoring.K,
	}
}

// AgentConfig converts the agent section.
func (c Config) AgentConfig() agent.Config {
	d := agent.DefaultConfig()
	return agent.Config{
		ReflectionPeriod:     c.Agent.ReflectionPeriod,
		ReflectionImportance: c.Agent.ReflectionImportance,
		StoreThreshold:       c.Agent.StoreThreshold,
		PlanMaxLen:           c.Agent.PlanMaxLen,
		ReflectionLines:      d.ReflectionLines,
	}
}

// SimConfig converts the world section.
func (c Config) SimConfig() sim.Config {
	return sim.Config{
		GridSize:               c.World.GridSize,
		ProximityRadius:        c.World.ProximityRadius,
		ThinkInterval:          c.World.ThinkInterval,
		ConversationImportance: c.World.ConversationImportance,
		TickDuration:           c.World.TickDuration.Std(),
		MemoryItems:            sim.DefaultConfig().MemoryItems,
	}
}

// CompleterOptions converts the provider section.
func (c Config) CompleterOptions() cognition.CompleterOptions {
	return cognition.CompleterOptions{
		Model:       c.Provider.Model,
		Temperature: c.Provider.Temperature,
		MaxTokens:   int64(c.Provider.MaxTokens),
		APIKey:      c.Provider.APIKey,
		BaseURL:     c.Provider.BaseURL,
	}
}

// EmbeddingConfig converts the embedding section.
func (c Config) EmbeddingConfig() embedding.Config {
	return embedding.Config{
		Provider: c.Embedding.Provider,
		Model:    c.Embedding.Model,
		URL:      c.Embedding.URL,
		APIKey:   c.Embedding.APIKey,
	}
}
