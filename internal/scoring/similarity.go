package scoring

import (
	"context"
	"math"

	"github.com/rcliao/agent-sim/internal/model"
)

// Similarity scores a query against a batch of documents. Implementations
// return one value per document; values outside [0,1] are clamped by the
// engine.
type Similarity interface {
	Similarities(ctx context.Context, query string, docs []string) ([]float64, error)
}

// Lexical is term-frequency cosine similarity over tokenized text. It needs no
// external index and never fails.
type Lexical struct{}

// Similarities implements Similarity.
func (Lexical) Similarities(_ context.Context, query string, docs []string) ([]float64, error) {
	q := termFreq(model.Tokenize(query))
	out := make([]float64, len(docs))
	for i, d := range docs {
		out[i] = cosine(q, termFreq(model.Tokenize(d)))
	}
	return out, nil
}

func termFreq(tokens []string) map[string]float64 {
	tf := make(map[string]float64, len(tokens))
	for _, t := range tokens {
		tf[t]++
	}
	return tf
}

func cosine(a, b map[string]float64) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	var dot, na, nb float64
	for t, va := range a {
		na += va * va
		if vb, ok := b[t]; ok {
			dot += va * vb
		}
	}
	for _, vb := range b {
		nb += vb * vb
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return clamp01(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
