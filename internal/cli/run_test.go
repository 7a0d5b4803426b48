package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/agent-sim/internal/config"
	"github.com/rcliao/agent-sim/internal/scenario"
	"github.com/rcliao/agent-sim/internal/sim"
	"github.com/rcliao/agent-sim/internal/store"
)

func TestPersistTickThroughRun(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()
	db, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	scen := scenario.Default()
	scen.Agents[1].X = scen.Agents[0].X
	scen.Agents[1].Y = scen.Agents[0].Y
	w, err := scen.World(time.Date(2025, 3, 1, 15, 0, 0, 0, time.UTC), cfg.World.GridSize, cfg.Memory.SpatialCapacity)
	require.NoError(t, err)

	run, err := db.CreateRun(ctx, store.RunParams{Kind: store.KindSim, Scenario: "default", Provider: "rules", Seed: 1})
	require.NoError(t, err)

	engine := sim.NewEngine(cfg.SimConfig(), nil)
	_, err = engine.Run(ctx, w, 2, nil, func(rep sim.TickReport) error {
		return persistTick(ctx, db, run.ID, rep, w)
	})
	require.NoError(t, err)

	latest, err := db.LoadSnapshot(ctx, run.ID, -1)
	require.NoError(t, err)
	assert.Equal(t, 2, latest.Tick)

	recs, err := db.ListInteractions(ctx, run.ID)
	require.NoError(t, err)
	assert.Len(t, recs, 2, "co-located agents talk on every tick")
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeJSON(&buf, map[string]int{"tick": 3}))
	assert.Contains(t, buf.String(), `"tick": 3`)

	assert.Error(t, writeJSON(&buf, make(chan int)))
}
