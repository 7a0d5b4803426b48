package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rcliao/agent-sim/internal/agent"
	"github.com/rcliao/agent-sim/internal/scenario"
	"github.com/rcliao/agent-sim/internal/selector"
	"github.com/rcliao/agent-sim/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "converse",
		Short: "Run a conversation between the cast",
		Long: "Each turn one agent retrieves memories, reflects every few turns, plans and speaks.\n" +
			"Listeners store what they heard when it matters to them.",
		Run: runConverse,
	}

	cmd.Flags().IntP("turns", "n", 6, "Number of turns")
	cmd.Flags().StringP("scenario", "s", "", "Scenario YAML file (default: built-in cast)")
	cmd.Flags().String("situation", "", "Override the scenario situation")
	cmd.Flags().Int64("seed", 0, "Random seed (default: config seed)")
	cmd.Flags().String("provider", "", "Cognition provider: rules, openai or anthropic")
	cmd.Flags().String("selector", "round_robin", "Speaker selection: round_robin or random")
	cmd.Flags().Bool("persist", false, "Record the conversation in the history database")

	RootCmd.AddCommand(cmd)
}

func runConverse(cmd *cobra.Command, args []string) {
	turns, _ := cmd.Flags().GetInt("turns")
	scenarioPath, _ := cmd.Flags().GetString("scenario")
	situation, _ := cmd.Flags().GetString("situation")
	seedFlag, _ := cmd.Flags().GetInt64("seed")
	provider, _ := cmd.Flags().GetString("provider")
	strategy, _ := cmd.Flags().GetString("selector")
	persist, _ := cmd.Flags().GetBool("persist")

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

	agents, err := st.agents(scen, cfg.Memory.DialogueCapacity, time.Now)
	if err != nil {
		exitErr("build agents", err)
	}
	sel, err := selector.New(strategy, seed)
	if err != nil {
		exitErr("selector", err)
	}
	conv, err := agent.NewConversation(sel, cfg.Agent.RecentDialogue, agents...)
	if err != nil {
		exitErr("build conversation", err)
	}

	if situation == "" {
		situation = scen.Situation
	}
	if situation == "" {
		situation = fmt.Sprintf("Agents %s met.", strings.Join(conv.Names(), ", "))
	}

	ctx := cmd.Context()
	var db *store.SQLiteStore
	var runID string
	if persist {
		db, err = openStore(cfg)
		if err != nil {
			exitErr("open store", err)
		}
		defer db.Close()
		run, err := db.CreateRun(ctx, store.RunParams{
			Kind:     store.KindConverse,
			Scenario: scenarioName(scen),
			Provider: cfg.Provider.Kind,
			Seed:     seed,
		})
		if err != nil {
			exitErr("create run", err)
		}
		runID = run.ID
	}

	for i := 0; i < turns; i++ {
		if ctx.Err() != nil {
			break
		}
		rec, err := conv.Turn(ctx, situation, nil)
		if err != nil {
			exitErr("turn", err)
		}
		if db != nil {
			if err := db.SaveTurn(ctx, runID, rec); err != nil {
				exitErr("save turn", err)
			}
		}

		if jsonOutput() {
			printJSON(rec)
			continue
		}
		mark := ""
		if rec.Degraded {
			mark = " (fallback)"
		}
		fmt.Printf("[%d] %s -> %s: %s%s\n", i, rec.Speaker, strings.Join(rec.Listeners, ", "), rec.Utterance, mark)
		for _, ev := range append(rec.StoreEvents, rec.Observations...) {
			verb := "skipped"
			if ev.Stored {
				verb = "stored"
			}
			fmt.Printf("      %s %s (importance %d, %s)\n", ev.Owner, verb, ev.Importance, ev.Reason)
		}
	}

	if runID != "" && !jsonOutput() {
		fmt.Printf("\nrun %s saved\n", runID)
	}
}
