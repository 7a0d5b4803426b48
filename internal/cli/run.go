package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rcliao/agent-sim/internal/agent"
	"github.com/rcliao/agent-sim/internal/scenario"
	"github.com/rcliao/agent-sim/internal/selector"
	"github.com/rcliao/agent-sim/internal/sim"
	"github.com/rcliao/agent-sim/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the spatial simulation",
		Long: "Advance the world tick by tick. Agents near each other talk; everyone else\n" +
			"thinks every few ticks and walks in the direction they chose.",
		Run: runSim,
	}

	cmd.Flags().IntP("ticks", "n", 20, "Number of ticks")
	cmd.Flags().StringP("scenario", "s", "", "Scenario YAML file (default: built-in cast)")
	cmd.Flags().Int64("seed", 0, "Random seed (default: config seed)")
	cmd.Flags().String("provider", "", "Cognition provider: rules, openai or anthropic")
	cmd.Flags().Bool("persist", false, "Record the run in the history database")
	cmd.Flags().Bool("converse", false, "Run a cognition turn for each interaction")
	cmd.Flags().Bool("replay", false, "Print every frame kept in the replay buffer after the run")

	RootCmd.AddCommand(cmd)
}

func runSim(cmd *cobra.Command, args []string) {
	ticks, _ := cmd.Flags().GetInt("ticks")
	scenarioPath, _ := cmd.Flags().GetString("scenario")
	seedFlag, _ := cmd.Flags().GetInt64("seed")
	provider, _ := cmd.Flags().GetString("provider")
	persist, _ := cmd.Flags().GetBool("persist")
	converse, _ := cmd.Flags().GetBool("converse")
	replay, _ := cmd.Flags().GetBool("replay")

	cfg := loadConfig()
	seed := seedOr(seedFlag, cfg)
	scen, err := scenario.Load(scenarioPath)
	if err != nil {
		exitErr("load scenario", err)
	}
	st, err := wireStack(cfg, provider, seed)
	if err != nil {
		exitErr("wire", err)
	}
	cfg = st.cfg

	start := time.Now().UTC().Truncate(time.Second)
	w, err := scen.World(start, cfg.World.GridSize, cfg.Memory.SpatialCapacity)
	if err != nil {
		exitErr("build world", err)
	}

	opts := []sim.Option{sim.WithLogger(st.logger)}
	if converse {
		tickDuration := cfg.World.TickDuration.Std()
		clock := func() time.Time { return w.Now(tickDuration) }
		agents, err := st.agents(scen, cfg.Memory.DialogueCapacity, clock)
		if err != nil {
			exitErr("build agents", err)
		}
		conv, err := agent.NewConversation(selector.NewRoundRobin(), cfg.Agent.RecentDialogue, agents...)
		if err != nil {
			exitErr("build conversation", err)
		}
		opts = append(opts, sim.WithConversation(conv))
	}
	engine := sim.NewEngine(cfg.SimConfig(), st.guard, opts...)
	history := sim.NewHistory(cfg.World.HistoryLimit)
	history.Record(w)

	ctx := cmd.Context()
	var db *store.SQLiteStore
	var run *store.Run
	if persist {
		db, err = openStore(cfg)
		if err != nil {
			exitErr("open store", err)
		}
		defer db.Close()
		run, err = db.CreateRun(ctx, store.RunParams{
			Kind:     store.KindSim,
			Scenario: scenarioName(scen),
			Provider: cfg.Provider.Kind,
			Seed:     seed,
		})
		if err != nil {
			exitErr("create run", err)
		}
		if err := db.SaveSnapshot(ctx, run.ID, w); err != nil {
			exitErr("save snapshot", err)
		}
	}

	enc := json.NewEncoder(os.Stdout)
	// A started tick always completes; interruption is checked between ticks.
	_, err = engine.Run(ctx, w, ticks, history, func(rep sim.TickReport) error {
		if db != nil {
			if err := persistTick(ctx, db, run.ID, rep, w); err != nil {
				return err
			}
		}
		if jsonOutput() {
			if err := enc.Encode(rep); err != nil {
				return fmt.Errorf("encode tick: %w", err)
			}
			return nil
		}
		printTick(rep, w)
		return nil
	})
	if err != nil && ctx.Err() == nil {
		exitErr("run", err)
	}

	if jsonOutput() {
		return
	}
	if replay {
		fmt.Println()
		printReplay(history)
	}
	fmt.Println()
	if last, ok := history.Latest(); ok {
		printWorld(last)
	}
	if run != nil {
		fmt.Printf("\nrun %s saved (%d ticks, %d frames in replay buffer)\n", run.ID, w.Tick, history.Len())
	}
}

func persistTick(ctx context.Context, db *store.SQLiteStore, runID string, rep sim.TickReport, w *sim.WorldState) error {
	for _, rec := range rep.Interactions {
		if err := db.SaveInteraction(ctx, runID, rec); err != nil {
			return err
		}
		if rec.Turn != nil {
			if err := db.SaveTurn(ctx, runID, *rec.Turn); err != nil {
				return err
			}
		}
	}
	return db.SaveSnapshot(ctx, runID, w)
}

func printTick(rep sim.TickReport, w *sim.WorldState) {
	for _, rec := range rep.Interactions {
		mark := ""
		if rec.Degraded {
			mark = " (fallback)"
		}
		fmt.Printf("[tick %d] %s: %s%s\n", rep.Tick, strings.Join(rec.Participants, " & "), rec.Summary, mark)
		if rec.Turn != nil {
			fmt.Printf("           %s: %s\n", rec.Turn.Speaker, rec.Turn.Utterance)
		}
	}
	for _, name := range rep.Thinkers {
		a := w.Agents[name]
		fmt.Printf("[tick %d] %s thinks: %s -> %s\n", rep.Tick, name, a.Thought, a.Direction)
	}
}

func printWorld(w *sim.WorldState) {
	fmt.Printf("tick %d\n", w.Tick)
	for _, name := range w.Order {
		a := w.Agents[name]
		fmt.Printf("  %-12s (%2d,%2d) %-8s memories=%d\n", a.Name, a.X, a.Y, a.State, a.Memories.Len())
	}
	fmt.Printf("  interactions: %d\n", len(w.History))
}

func printReplay(h *sim.History) {
	for i := 0; i < h.Len(); i++ {
		frame, _ := h.At(i)
		var parts []string
		for _, name := range frame.Order {
			a := frame.Agents[name]
			parts = append(parts, fmt.Sprintf("%s(%d,%d)", name, a.X, a.Y))
		}
		fmt.Printf("frame %3d  tick %3d  %s\n", i, frame.Tick, strings.Join(parts, " "))
	}
}
