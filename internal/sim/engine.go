package sim

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rcliao/agent-sim/internal/agent"
	"github.com/rcliao/agent-sim/internal/cognition"
	"github.com/rcliao/agent-sim/internal/logging"
	"github.com/rcliao/agent-sim/internal/model"
)

// Config holds the world parameters.
type Config struct {
	GridSize               int // positions range over [0, GridSize]
	ProximityRadius        float64
	ThinkInterval          int
	ConversationImportance int
	TickDuration           time.Duration
	MemoryItems            int // recent memories shown to the decider
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		GridSize:               20,
		ProximityRadius:        1.5,
		ThinkInterval:          8,
		ConversationImportance: 7,
		TickDuration:           10 * time.Minute,
		MemoryItems:            5,
	}
}

func (c Config) normalized() Config {
	d := DefaultConfig()
	if c.GridSize < 1 {
		c.GridSize = d.GridSize
	}
	if c.ProximityRadius < 0 {
		c.ProximityRadius = 0
	}
	if c.ThinkInterval < 1 {
		c.ThinkInterval = 1
	}
	if c.ConversationImportance < model.MinImportance || c.ConversationImportance > model.MaxImportance {
		c.ConversationImportance = d.ConversationImportance
	}
	if c.TickDuration <= 0 {
		c.TickDuration = d.TickDuration
	}
	if c.MemoryItems < 0 {
		c.MemoryItems = 0
	}
	return c
}

// Mind supplies decisions and dialogue without ever failing.
// *cognition.Guard satisfies it.
type Mind interface {
	Decide(ctx context.Context, p cognition.Perception) (cognition.Decision, bool)
	Converse(ctx context.Context, participants []cognition.Participant) (cognition.Exchange, bool)
}

// TickReport summarizes one tick.
type TickReport struct {
	Tick         int                       `json:"tick"`
	Groups       [][]string                `json:"groups,omitempty"`
	Interactions []model.InteractionRecord `json:"interactions,omitempty"`
	Thinkers     []string                  `json:"thinkers,omitempty"`
	Degraded     int                       `json:"degraded,omitempty"`
}

// Engine advances a WorldState one tick at a time.
type Engine struct {
	cfg    Config
	mind   Mind
	conv   *agent.Conversation
	logger logging.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithConversation runs one cognition turn per interaction whose members are
// all on the conversation's roster.
func WithConversation(c *agent.Conversation) Option {
	return func(e *Engine) { e.conv = c }
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(e *Engine) { e.logger = logging.OrNop(l) }
}

// NewEngine creates an engine. Misconfigured values are clamped.
func NewEngine(cfg Config, mind Mind, opts ...Option) *Engine {
	if mind == nil {
		mind = cognition.NewGuard(nil, cognition.NewRules(1))
	}
	e := &Engine{cfg: cfg.normalized(), mind: mind, logger: logging.NoOpLogger{}}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Config returns the effective configuration.
func (e *Engine) Config() Config { return e.cfg }

type point struct{ x, y int }

// Distance is the Euclidean distance between two grid positions.
func Distance(x1, y1, x2, y2 int) float64 {
	return math.Hypot(float64(x1-x2), float64(y1-y2))
}

func positions(w *WorldState) map[string]point {
	pos := make(map[string]point, len(w.Agents))
	for name, a := range w.Agents {
		pos[name] = point{a.X, a.Y}
	}
	return pos
}

// DetectGroups partitions agents into disjoint proximity groups. Traversal
// follows w.Order; each unprocessed agent collects every other unprocessed
// agent within radius, and all of them are marked processed.
func DetectGroups(w *WorldState, radius float64) [][]string {
	return detectGroups(w.Order, positions(w), radius)
}

func detectGroups(order []string, pos map[string]point, radius float64) [][]string {
	processed := make(map[string]bool, len(order))
	var groups [][]string
	for _, name := range order {
		if processed[name] {
			continue
		}
		p := pos[name]
		group := []string{name}
		for _, other := range order {
			if other == name || processed[other] {
				continue
			}
			q := pos[other]
			if Distance(p.x, p.y, q.x, q.y) <= radius {
				group = append(group, other)
			}
		}
		if len(group) < 2 {
			continue
		}
		for _, n := range group {
			processed[n] = true
		}
		groups = append(groups, group)
	}
	return groups
}

// Tick advances w by one step: interaction detection, interaction resolution,
// throttled cognition and movement for everyone else, then the tick counter.
// Provider failures are absorbed; a tick always runs to completion.
func (e *Engine) Tick(ctx context.Context, w *WorldState) TickReport {
	now := w.Now(e.cfg.TickDuration)
	start := positions(w)
	report := TickReport{Tick: w.Tick}

	// Phase 1: grouping on start-of-tick positions.
	report.Groups = detectGroups(w.Order, start, e.cfg.ProximityRadius)

	// Phase 2: resolution.
	interacting := make(map[string]bool)
	for _, group := range report.Groups {
		rec := e.resolve(ctx, w, group, now)
		if rec.Degraded {
			report.Degraded++
		}
		w.History = append(w.History, rec)
		report.Interactions = append(report.Interactions, rec.Clone())
		for _, n := range group {
			interacting[n] = true
		}
	}

	// Phase 3: cognition and movement for everyone else.
	for _, name := range w.Order {
		if interacting[name] {
			continue
		}
		a := w.Agents[name]
		thought, degraded := e.think(ctx, a, w.Order, start)
		if degraded {
			report.Degraded++
		}
		moved := e.move(a)
		switch {
		case thought:
			a.State = model.StatusThinking
			report.Thinkers = append(report.Thinkers, name)
		case moved:
			a.State = model.StatusMoving
		default:
			a.State = model.StatusIdle
		}
	}

	w.Tick++
	e.logger.Debug("tick completed", "component", "sim", "tick", report.Tick,
		"groups", len(report.Groups), "thinkers", len(report.Thinkers), "degraded", report.Degraded)
	return report
}

func (e *Engine) resolve(ctx context.Context, w *WorldState, group []string, now time.Time) model.InteractionRecord {
	participants := make([]cognition.Participant, len(group))
	for i, n := range group {
		a := w.Agents[n]
		a.State = model.StatusTalking
		participants[i] = cognition.Participant{Name: a.Name, Traits: a.Traits}
	}

	x, degraded := e.mind.Converse(ctx, participants)
	rec := model.InteractionRecord{
		ID:           model.NewID(),
		Tick:         w.Tick,
		Participants: append([]string(nil), group...),
		Dialogue:     x.Dialogue,
		Summary:      x.Summary,
		Degraded:     degraded,
	}

	for _, n := range group {
		var others []string
		for _, o := range group {
			if o != n {
				others = append(others, o)
			}
		}
		content := model.TruncateContent(fmt.Sprintf("Conversation with %s: %s", cognition.JoinNames(others), x.Summary))
		m, err := model.NewMemory(content, model.KindConversation, e.cfg.ConversationImportance)
		if err != nil {
			e.logger.Warn("conversation memory rejected", "component", "sim", "agent", n, "error", err)
			continue
		}
		m.CreatedAt = now
		m.Source = "interaction"
		if _, err := w.Agents[n].Memories.Add(m); err != nil {
			e.logger.Warn("conversation memory rejected", "component", "sim", "agent", n, "error", err)
		}
	}

	if e.conv != nil && e.conv.Has(group...) {
		situation := fmt.Sprintf("Tick %d. %s", w.Tick, x.Summary)
		turn, err := e.conv.Turn(ctx, situation, group)
		if err != nil {
			e.logger.Warn("conversation turn failed", "component", "sim", "agent", cognition.JoinNames(group), "error", err)
		} else {
			rec.Turn = &turn
			rec.Degraded = rec.Degraded || turn.Degraded
		}
	}

	for _, n := range group {
		w.Agents[n].State = model.StatusIdle
	}
	return rec
}

// think runs the throttle for a: decrement, and at zero ask for a new
// decision and reset the counter.
func (e *Engine) think(ctx context.Context, a *AgentSnapshot, order []string, start map[string]point) (thought, degraded bool) {
	if a.ThinkCounter > 0 {
		a.ThinkCounter--
	}
	if a.ThinkCounter > 0 {
		return false, false
	}

	self := start[a.Name]
	var nearby []string
	for _, other := range order {
		if other == a.Name {
			continue
		}
		q := start[other]
		if Distance(self.x, self.y, q.x, q.y) <= e.cfg.ProximityRadius {
			nearby = append(nearby, other)
		}
	}
	var mems []string
	if a.Memories != nil {
		mems = a.Memories.Contents(e.cfg.MemoryItems)
	}

	d, degraded := e.mind.Decide(ctx, cognition.Perception{
		Name:     a.Name,
		Traits:   a.Traits,
		Goal:     a.Goal,
		X:        a.X,
		Y:        a.Y,
		GridSize: e.cfg.GridSize,
		Memories: mems,
		Nearby:   nearby,
	})
	a.Thought = d.Thought
	a.Plan = d.Plan
	a.Direction = model.ParseDirection(string(d.Action))
	a.ThinkCounter = e.cfg.ThinkInterval
	return true, degraded
}

// move applies the cached direction, clamped to the grid. It reports whether
// the position changed.
func (e *Engine) move(a *AgentSnapshot) bool {
	if a.State == model.StatusTalking {
		return false
	}
	dx, dy := a.Direction.Delta()
	nx := clamp(a.X+dx, 0, e.cfg.GridSize)
	ny := clamp(a.Y+dy, 0, e.cfg.GridSize)
	moved := nx != a.X || ny != a.Y
	a.X, a.Y = nx, ny
	return moved
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// TickFunc observes a completed tick. A non-nil error stops Run.
type TickFunc func(rep TickReport) error

// Run advances w by up to n ticks, recording each resulting state in h when
// h is non-nil and then calling each when it is non-nil. Cancellation is
// honoured between ticks only.
func (e *Engine) Run(ctx context.Context, w *WorldState, n int, h *History, each TickFunc) ([]TickReport, error) {
	var reports []TickReport
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return reports, err
		}
		rep := e.Tick(ctx, w)
		reports = append(reports, rep)
		if h != nil {
			h.Record(w)
		}
		if each != nil {
			if err := each(rep); err != nil {
				return reports, fmt.Errorf("tick %d: %w", rep.Tick, err)
			}
		}
	}
	return reports, nil
}
