package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/rcliao/agent-sim/internal/model"
	"github.com/rcliao/agent-sim/internal/sim"
)

// RunExport is a self-contained copy of one run.
type RunExport struct {
	Run          Run                       `json:"run"`
	World        *sim.WorldState           `json:"world,omitempty"`
	Interactions []model.InteractionRecord `json:"interactions"`
	Turns        []model.TurnRecord        `json:"turns"`
}

// ExportRun returns a run with its latest snapshot, interactions and turns.
func (s *SQLiteStore) ExportRun(ctx context.Context, runID string) (*RunExport, error) {
	r, err := s.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	out := &RunExport{Run: *r}

	w, err := s.LoadSnapshot(ctx, runID, -1)
	switch {
	case errors.Is(err, ErrNotFound):
	case err != nil:
		return nil, err
	default:
		out.World = w
	}

	if out.Interactions, err = s.ListInteractions(ctx, runID); err != nil {
		return nil, err
	}
	if out.Turns, err = s.ListTurns(ctx, runID); err != nil {
		return nil, err
	}
	return out, nil
}

// ImportRun stores an exported run under a new run ID and returns it.
func (s *SQLiteStore) ImportRun(ctx context.Context, x *RunExport) (*Run, error) {
	r, err := s.CreateRun(ctx, RunParams{
		Kind:     x.Run.Kind,
		Scenario: x.Run.Scenario,
		Provider: x.Run.Provider,
		Seed:     x.Run.Seed,
	})
	if err != nil {
		return nil, err
	}
	if x.World != nil {
		if err := s.SaveSnapshot(ctx, r.ID, x.World); err != nil {
			return nil, err
		}
	}
	for _, rec := range x.Interactions {
		// IDs are unique across runs.
		rec.ID = ""
		if err := s.SaveInteraction(ctx, r.ID, rec); err != nil {
			return nil, fmt.Errorf("import interaction: %w", err)
		}
	}
	for _, rec := range x.Turns {
		rec.ID = ""
		if err := s.SaveTurn(ctx, r.ID, rec); err != nil {
			return nil, fmt.Errorf("import turn: %w", err)
		}
	}
	return s.GetRun(ctx, r.ID)
}
