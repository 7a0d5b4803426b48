package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/agent-sim/internal/model"
	"github.com/rcliao/agent-sim/internal/sim"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dir := t.TempDir()
	s, err := NewSQLiteStore(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testWorld(t *testing.T) *sim.WorldState {
	t.Helper()
	w := sim.NewWorld(time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC))
	for i, name := range []string{"Min-jun", "Seo-yeon"} {
		p, err := model.NewAgentProfile(name, "traits", "goal")
		require.NoError(t, err)
		a, err := sim.NewAgentSnapshot(p, 5+i, 5, 20)
		require.NoError(t, err)
		require.NoError(t, w.AddAgent(a))
	}
	return w
}

func TestCreateAndListRuns(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	first, err := s.CreateRun(ctx, RunParams{Kind: KindSim, Scenario: "cafe.yaml", Seed: 42})
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, "rules", first.Provider)

	second, err := s.CreateRun(ctx, RunParams{Kind: KindConverse, Provider: "openai", Seed: 7})
	require.NoError(t, err)

	runs, err := s.ListRuns(ctx, ListParams{})
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second.ID, runs[0].ID, "newest first")
	assert.Equal(t, "cafe.yaml", runs[1].Scenario)
	assert.Equal(t, int64(42), runs[1].Seed)

	sims, err := s.ListRuns(ctx, ListParams{Kind: KindSim})
	require.NoError(t, err)
	require.Len(t, sims, 1)
	assert.Equal(t, first.ID, sims[0].ID)

	_, err = s.GetRun(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	run, err := s.CreateRun(ctx, RunParams{})
	require.NoError(t, err)

	w := testWorld(t)
	e := sim.NewEngine(sim.DefaultConfig(), nil)
	e.Tick(ctx, w)
	require.NoError(t, s.SaveSnapshot(ctx, run.ID, w))
	e.Tick(ctx, w)
	require.NoError(t, s.SaveSnapshot(ctx, run.ID, w))

	latest, err := s.LoadSnapshot(ctx, run.ID, -1)
	require.NoError(t, err)
	assert.Equal(t, 2, latest.Tick)
	assert.Equal(t, w.Order, latest.Order)
	assert.Len(t, latest.History, len(w.History))
	assert.Equal(t, w.Agents["Min-jun"].Memories.Len(), latest.Agents["Min-jun"].Memories.Len())

	first, err := s.LoadSnapshot(ctx, run.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Tick)

	_, err = s.LoadSnapshot(ctx, run.ID, 9)
	assert.ErrorIs(t, err, ErrNotFound)

	runs, err := s.ListRuns(ctx, ListParams{})
	require.NoError(t, err)
	assert.Equal(t, 2, runs[0].LastTick)
	assert.Equal(t, 2, runs[0].Snapshots)
}

func TestSnapshotRequiresRun(t *testing.T) {
	s := newTestStore(t)
	err := s.SaveSnapshot(context.Background(), "nope", testWorld(t))
	assert.Error(t, err)
}

func TestInteractionsAndTurns(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	run, err := s.CreateRun(ctx, RunParams{Kind: KindConverse})
	require.NoError(t, err)

	turn := model.TurnRecord{TurnIndex: 0, Speaker: "Min-jun", Utterance: "Hello!", Plan: "p"}
	require.NoError(t, s.SaveInteraction(ctx, run.ID, model.InteractionRecord{
		Tick: 4, Participants: []string{"Min-jun", "Seo-yeon"}, Summary: "later", Turn: &turn,
	}))
	require.NoError(t, s.SaveInteraction(ctx, run.ID, model.InteractionRecord{
		Tick: 1, Participants: []string{"Seo-yeon", "Min-jun"}, Summary: "earlier", Degraded: true,
	}))
	require.NoError(t, s.SaveTurn(ctx, run.ID, turn))
	require.NoError(t, s.SaveTurn(ctx, run.ID, model.TurnRecord{TurnIndex: 1, Speaker: "Seo-yeon", Utterance: "Hm."}))

	recs, err := s.ListInteractions(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "earlier", recs[0].Summary)
	assert.True(t, recs[0].Degraded)
	require.NotNil(t, recs[1].Turn)
	assert.Equal(t, "Hello!", recs[1].Turn.Utterance)
	assert.NotEmpty(t, recs[1].ID)

	turns, err := s.ListTurns(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, []string{"Min-jun", "Seo-yeon"}, []string{turns[0].Speaker, turns[1].Speaker})

	st, err := s.Stats(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 1, st.Runs)
	assert.Equal(t, 2, st.Interactions)
	assert.Equal(t, 1, st.Degraded)
	assert.Equal(t, 2, st.Turns)
	require.Len(t, st.Kinds, 1)
	assert.Equal(t, KindConverse, st.Kinds[0].Kind)
}

func TestExportImportRun(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	run, err := s.CreateRun(ctx, RunParams{Scenario: "default", Seed: 3})
	require.NoError(t, err)

	w := testWorld(t)
	sim.NewEngine(sim.DefaultConfig(), nil).Tick(ctx, w)
	require.NoError(t, s.SaveSnapshot(ctx, run.ID, w))
	for _, rec := range w.History {
		require.NoError(t, s.SaveInteraction(ctx, run.ID, rec))
	}

	x, err := s.ExportRun(ctx, run.ID)
	require.NoError(t, err)
	require.NotNil(t, x.World)
	assert.Equal(t, 1, x.World.Tick)
	assert.Len(t, x.Interactions, len(w.History))

	imported, err := s.ImportRun(ctx, x)
	require.NoError(t, err)
	assert.NotEqual(t, run.ID, imported.ID)
	assert.Equal(t, "default", imported.Scenario)
	assert.Equal(t, 1, imported.LastTick)

	recs, err := s.ListInteractions(ctx, imported.ID)
	require.NoError(t, err)
	assert.Len(t, recs, len(w.History))
}
