// Package scoring ranks memories for a query by a weighted mix of similarity,
// recency and importance.
package scoring

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/rcliao/agent-sim/internal/logging"
	"github.com/rcliao/agent-sim/internal/model"
)

// Weights are the coefficients of the final score. Any non-negative values
// are accepted; they need not sum to 1.
type Weights struct {
	Similarity float64
	Recency    float64
	Importance float64
}

// Params configures retrieval.
type Params struct {
	Weights  Weights
	TauHours float64 // recency = exp(-age_hours / TauHours)
	TopN     int     // broad candidate set size
	K        int     // final result size
}

// DefaultParams returns the documented defaults.
func DefaultParams() Params {
	return Params{
		Weights:  Weights{Similarity: 0.6, Recency: 0.2, Importance: 0.2},
		TauHours: 200,
		TopN:     20,
		K:        5,
	}
}

func (p Params) normalized() Params {
	d := DefaultParams()
	p.Weights.Similarity = math.Max(0, p.Weights.Similarity)
	p.Weights.Recency = math.Max(0, p.Weights.Recency)
	p.Weights.Importance = math.Max(0, p.Weights.Importance)
	if p.TauHours <= 0 {
		p.TauHours = d.TauHours
	}
	if p.TopN <= 0 {
		p.TopN = d.TopN
	}
	if p.K <= 0 {
		p.K = d.K
	}
	return p
}

// Recency returns exp(-age_hours/tau). A created time in the future counts as
// age zero.
func Recency(createdAt, now time.Time, tauHours float64) float64 {
	age := now.Sub(createdAt).Hours()
	if age < 0 {
		age = 0
	}
	return math.Exp(-age / tauHours)
}

// ImportanceNorm maps [1,10] onto [0,1].
func ImportanceNorm(importance int) float64 {
	return clamp01(float64(importance-model.MinImportance) / float64(model.MaxImportance-model.MinImportance))
}

// Engine performs two-stage retrieval.
type Engine struct {
	params Params
	sim    Similarity
	logger logging.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithSimilarity replaces the lexical similarity with an external index.
// Failures of the index fall back to lexical similarity.
func WithSimilarity(s Similarity) Option {
	return func(e *Engine) {
		if s != nil {
			e.sim = s
		}
	}
}

// WithLogger sets the logger used for degraded-mode events.
func WithLogger(l logging.Logger) Option {
	return func(e *Engine) { e.logger = logging.OrNop(l) }
}

// New creates an engine. Misconfigured params are clamped to valid values.
func New(p Params, opts ...Option) *Engine {
	e := &Engine{params: p.normalized(), sim: Lexical{}, logger: logging.NoOpLogger{}}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Params returns the effective parameters.
func (e *Engine) Params() Params { return e.params }

// Retrieve ranks pool against query at time now and returns at most
// min(K, TopN, len(pool)) results. An empty pool yields an empty result.
func (e *Engine) Retrieve(ctx context.Context, query string, pool []model.Memory, now time.Time) []model.ScoredMemory {
	if len(pool) == 0 {
		return []model.ScoredMemory{}
	}

	scored := make([]model.ScoredMemory, len(pool))
	for i, m := range pool {
		scored[i] = model.ScoredMemory{Memory: m.Clone()}
	}

	if strings.TrimSpace(query) != "" {
		sims := e.similarities(ctx, query, pool)
		for i := range scored {
			scored[i].Similarity = sims[i]
		}
		// Stage 1: narrow to the broad candidate set by similarity alone.
		if len(scored) > e.params.TopN {
			sort.SliceStable(scored, func(i, j int) bool {
				a, b := scored[i], scored[j]
				if a.Similarity != b.Similarity {
					return a.Similarity > b.Similarity
				}
				return newerFirst(a.Memory, b.Memory)
			})
			scored = scored[:e.params.TopN]
		}
	}

	// Stage 2: re-rank.
	w := e.params.Weights
	for i := range scored {
		s := &scored[i]
		s.Recency = Recency(s.Memory.CreatedAt, now, e.params.TauHours)
		s.Importance = ImportanceNorm(s.Memory.Importance)
		s.Final = w.Similarity*s.Similarity + w.Recency*s.Recency + w.Importance*s.Importance
	}
	sort.SliceStable(scored, func(i, j int) bool {
		a, b := scored[i], scored[j]
		if a.Final != b.Final {
			return a.Final > b.Final
		}
		return newerFirst(a.Memory, b.Memory)
	})

	k := e.params.K
	if k > e.params.TopN {
		k = e.params.TopN
	}
	if k > len(scored) {
		k = len(scored)
	}
	return scored[:k]
}

// newerFirst orders by CreatedAt descending, then insertion order ascending.
func newerFirst(a, b model.Memory) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.Seq < b.Seq
}

func (e *Engine) similarities(ctx context.Context, query string, pool []model.Memory) []float64 {
	docs := make([]string, len(pool))
	for i, m := range pool {
		docs[i] = m.Content
	}
	sims, err := e.sim.Similarities(ctx, query, docs)
	if err == nil && len(sims) != len(docs) {
		err = fmt.Errorf("similarity returned %d scores for %d documents", len(sims), len(docs))
	}
	if err != nil {
		e.logger.Warn("similarity index failed, using lexical similarity", "component", "scoring", "error", err)
		sims, _ = Lexical{}.Similarities(ctx, query, docs)
	}
	for i := range sims {
		sims[i] = clamp01(sims[i])
	}
	return sims
}
