// Package store persists simulation runs, world snapshots, interactions and
// conversation turns in SQLite.
package store

import (
	"context"
	"time"

	"github.com/rcliao/agent-sim/internal/model"
	"github.com/rcliao/agent-sim/internal/sim"
)

// Run kinds.
const (
	KindSim      = "sim"
	KindConverse = "converse"
)

// Run is one recorded simulation or conversation.
type Run struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Scenario  string    `json:"scenario,omitempty"`
	Provider  string    `json:"provider"`
	Seed      int64     `json:"seed"`
	CreatedAt time.Time `json:"created_at"`
	LastTick  int       `json:"last_tick"`
	Snapshots int       `json:"snapshots"`
}

// RunParams holds parameters for creating a run.
type RunParams struct {
	Kind     string
	Scenario string
	Provider string
	Seed     int64
}

// ListParams holds parameters for listing runs.
type ListParams struct {
	Kind  string
	Limit int
}

// Store defines the history storage interface.
type Store interface {
	// CreateRun registers a new run and returns it with its ID.
	CreateRun(ctx context.Context, p RunParams) (*Run, error)

	// SaveSnapshot stores the world at its current tick, replacing any
	// snapshot already stored for that tick.
	SaveSnapshot(ctx context.Context, runID string, w *sim.WorldState) error

	// SaveInteraction appends a resolved interaction.
	SaveInteraction(ctx context.Context, runID string, rec model.InteractionRecord) error

	// SaveTurn appends a conversation turn.
	SaveTurn(ctx context.Context, runID string, rec model.TurnRecord) error

	// ListRuns lists runs, newest first.
	ListRuns(ctx context.Context, p ListParams) ([]Run, error)

	// LoadSnapshot loads the snapshot at tick, or the latest when tick < 0.
	LoadSnapshot(ctx context.Context, runID string, tick int) (*sim.WorldState, error)

	// ListInteractions returns a run's interactions in tick order.
	ListInteractions(ctx context.Context, runID string) ([]model.InteractionRecord, error)

	// ListTurns returns a run's turns in order.
	ListTurns(ctx context.Context, runID string) ([]model.TurnRecord, error)

	// Close closes the store.
	Close() error
}
