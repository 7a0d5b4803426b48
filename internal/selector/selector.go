// Package selector chooses which agent acts next among a set of candidates.
package selector

import (
	"fmt"
	"math/rand"
)

// Strategy names accepted by New.
const (
	StrategyRoundRobin = "round_robin"
	StrategyRandom     = "random"
)

// Selector picks the next actor. It returns false when candidates is empty.
// An empty lastSpeaker means there was no previous speaker.
type Selector interface {
	Select(candidates []string, lastSpeaker string) (string, bool)
}

// New returns the selector for strategy. The seed only affects the random
// strategy.
func New(strategy string, seed int64) (Selector, error) {
	switch strategy {
	case "", StrategyRoundRobin:
		return NewRoundRobin(), nil
	case StrategyRandom:
		return NewRandom(seed), nil
	default:
		return nil, fmt.Errorf("unknown selector strategy %q", strategy)
	}
}

// RoundRobin cycles through candidates. It follows lastSpeaker when it is a
// candidate and otherwise continues from its own pointer, so turns stay fair
// when the candidate set changes between calls.
type RoundRobin struct {
	last int
}

// NewRoundRobin returns a round-robin selector starting at the first candidate.
func NewRoundRobin() *RoundRobin {
	return &RoundRobin{last: -1}
}

func (r *RoundRobin) Select(candidates []string, lastSpeaker string) (string, bool) {
	n := len(candidates)
	if n == 0 {
		return "", false
	}
	next := (r.last + 1) % n
	if lastSpeaker != "" {
		if idx := indexOf(candidates, lastSpeaker); idx >= 0 {
			next = (idx + 1) % n
		}
	}
	if next < 0 {
		next = 0
	}
	r.last = next
	return candidates[next], true
}

// Random picks uniformly, avoiding lastSpeaker unless it is the only
// candidate. A fixed seed gives a reproducible sequence.
type Random struct {
	rng *rand.Rand
}

// NewRandom returns a seeded random selector.
func NewRandom(seed int64) *Random {
	return &Random{rng: rand.New(rand.NewSource(seed))}
}

func (r *Random) Select(candidates []string, lastSpeaker string) (string, bool) {
	if len(candidates) == 0 {
		return "", false
	}
	pool := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if c != lastSpeaker {
			pool = append(pool, c)
		}
	}
	if len(pool) == 0 {
		pool = candidates
	}
	return pool[r.rng.Intn(len(pool))], true
}

func indexOf(xs []string, s string) int {
	for i, x := range xs {
		if x == s {
			return i
		}
	}
	return -1
}
