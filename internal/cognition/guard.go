package cognition

import (
	"context"
	"fmt"
	"time"

	"github.com/rcliao/agent-sim/internal/logging"
	"github.com/rcliao/agent-sim/internal/model"
)

// DefaultTimeout bounds a single primary provider call.
const DefaultTimeout = 10 * time.Second

// Guard calls a primary provider under a timeout and substitutes the
// rule-based fallback on any failure. Its methods never return errors; the
// boolean result reports whether the fallback was used.
type Guard struct {
	primary  Provider
	fallback Provider
	timeout  time.Duration
	logger   logging.Logger
}

// GuardOption configures a Guard.
type GuardOption func(*Guard)

// WithTimeout sets the per-call timeout. Zero or negative disables it.
func WithTimeout(d time.Duration) GuardOption {
	return func(g *Guard) { g.timeout = d }
}

// WithLogger sets the logger for degraded-mode events.
func WithLogger(l logging.Logger) GuardOption {
	return func(g *Guard) { g.logger = logging.OrNop(l) }
}

// NewGuard returns a guard. A nil primary means the fallback is the only
// provider, and its output does not count as degraded.
func NewGuard(primary, fallback Provider, opts ...GuardOption) *Guard {
	if fallback == nil {
		fallback = NewRules(1)
	}
	g := &Guard{primary: primary, fallback: fallback, timeout: DefaultTimeout, logger: logging.NoOpLogger{}}
	for _, o := range opts {
		o(g)
	}
	return g
}

// call runs fn under the guard's timeout. It returns as soon as the deadline
// passes even if fn ignores its context.
func call[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	type result struct {
		v   T
		err error
	}
	ch := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				var zero T
				ch <- result{zero, fmt.Errorf("provider panic: %v", r)}
			}
		}()
		v, err := fn(ctx)
		ch <- result{v, err}
	}()
	select {
	case r := <-ch:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

func (g *Guard) degraded(op, agent string, err error) {
	g.logger.Warn("cognition provider failed, using rule-based fallback",
		"component", "cognition", "op", op, "agent", agent, "error", err)
}

// Decide returns a decision for p.
func (g *Guard) Decide(ctx context.Context, p Perception) (Decision, bool) {
	degraded := false
	if g.primary != nil {
		d, err := call(ctx, g.timeout, func(ctx context.Context) (Decision, error) { return g.primary.Decide(ctx, p) })
		if err == nil {
			return d, false
		}
		g.degraded("decide", p.Name, err)
		degraded = true
	}
	d, err := g.fallback.Decide(ctx, p)
	if err != nil {
		g.logger.Error("fallback decide failed", "component", "cognition", "agent", p.Name, "error", err)
		return Decision{Action: model.Stay}, true
	}
	return d, degraded
}

// Converse returns a conversation among participants.
func (g *Guard) Converse(ctx context.Context, participants []Participant) (Exchange, bool) {
	names := make([]string, len(participants))
	for i, p := range participants {
		names[i] = p.Name
	}
	degraded := false
	if g.primary != nil {
		x, err := call(ctx, g.timeout, func(ctx context.Context) (Exchange, error) { return g.primary.Converse(ctx, participants) })
		if err == nil {
			return x, false
		}
		g.degraded("converse", JoinNames(names), err)
		degraded = true
	}
	x, err := g.fallback.Converse(ctx, participants)
	if err != nil {
		g.logger.Error("fallback converse failed", "component", "cognition", "agent", JoinNames(names), "error", err)
		return Exchange{Summary: JoinNames(names) + " crossed paths."}, true
	}
	return x, degraded
}

// Speak returns an utterance for req.
func (g *Guard) Speak(ctx context.Context, req SpeechRequest) (string, bool) {
	degraded := false
	if g.primary != nil {
		s, err := call(ctx, g.timeout, func(ctx context.Context) (string, error) { return g.primary.Speak(ctx, req) })
		if err == nil {
			return s, false
		}
		g.degraded("speak", req.Profile.Name, err)
		degraded = true
	}
	s, err := g.fallback.Speak(ctx, req)
	if err != nil || s == "" {
		g.logger.Error("fallback speak failed", "component", "cognition", "agent", req.Profile.Name, "error", err)
		return "...", true
	}
	return s, degraded
}
