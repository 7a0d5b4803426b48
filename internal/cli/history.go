package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/agent-sim/internal/store"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect recorded runs",
}

func init() {
	runs := &cobra.Command{
		Use:   "runs",
		Short: "List recorded runs",
		Run:   runHistoryRuns,
	}
	runs.Flags().String("kind", "", "Filter by kind: sim or converse")
	runs.Flags().IntP("limit", "l", 20, "Max results")

	show := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show a world snapshot",
		Args:  cobra.ExactArgs(1),
		Run:   runHistoryShow,
	}
	show.Flags().Int("tick", -1, "Tick to show (default: latest)")

	interactions := &cobra.Command{
		Use:   "interactions <run-id>",
		Short: "List a run's interactions",
		Args:  cobra.ExactArgs(1),
		Run:   runHistoryInteractions,
	}

	turns := &cobra.Command{
		Use:   "turns <run-id>",
		Short: "List a run's conversation turns",
		Args:  cobra.ExactArgs(1),
		Run:   runHistoryTurns,
	}

	historyCmd.AddCommand(runs, show, interactions, turns)
	RootCmd.AddCommand(historyCmd)
}

func withStore(fn func(s *store.SQLiteStore)) {
	s, err := openStore(loadConfig())
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()
	fn(s)
}

func runHistoryRuns(cmd *cobra.Command, args []string) {
	kind, _ := cmd.Flags().GetString("kind")
	limit, _ := cmd.Flags().GetInt("limit")

	withStore(func(s *store.SQLiteStore) {
		runs, err := s.ListRuns(cmd.Context(), store.ListParams{Kind: kind, Limit: limit})
		if err != nil {
			exitErr("list runs", err)
		}
		if jsonOutput() {
			printJSON(runs)
			return
		}
		for _, r := range runs {
			fmt.Printf("%s  %-8s  %-9s  seed=%-6d  ticks=%-4d  %s  %s\n",
				r.ID, r.Kind, r.Provider, r.Seed, r.LastTick, r.CreatedAt.Format("2006-01-02 15:04"), r.Scenario)
		}
	})
}

func runHistoryShow(cmd *cobra.Command, args []string) {
	tick, _ := cmd.Flags().GetInt("tick")

	withStore(func(s *store.SQLiteStore) {
		w, err := s.LoadSnapshot(cmd.Context(), args[0], tick)
		if err != nil {
			exitErr("load snapshot", err)
		}
		if jsonOutput() {
			printJSON(w)
			return
		}
		printWorld(w)
		for _, name := range w.Order {
			a := w.Agents[name]
			if a.Thought != "" {
				fmt.Printf("\n%s: %s\n  plan: %s\n", a.Name, a.Thought, a.Plan)
			}
			for _, m := range a.Memories.Recent(3) {
				fmt.Printf("  - [%s %d] %s\n", m.Kind, m.Importance, m.Content)
			}
		}
	})
}

func runHistoryInteractions(cmd *cobra.Command, args []string) {
	withStore(func(s *store.SQLiteStore) {
		recs, err := s.ListInteractions(cmd.Context(), args[0])
		if err != nil {
			exitErr("list interactions", err)
		}
		if jsonOutput() {
			printJSON(recs)
			return
		}
		for _, rec := range recs {
			fmt.Printf("[tick %d] %s: %s\n", rec.Tick, strings.Join(rec.Participants, " & "), rec.Summary)
			if rec.Dialogue != "" {
				for _, line := range strings.Split(rec.Dialogue, "\n") {
					fmt.Printf("    %s\n", line)
				}
			}
		}
	})
}

func runHistoryTurns(cmd *cobra.Command, args []string) {
	withStore(func(s *store.SQLiteStore) {
		turns, err := s.ListTurns(cmd.Context(), args[0])
		if err != nil {
			exitErr("list turns", err)
		}
		if jsonOutput() {
			printJSON(turns)
			return
		}
		for _, t := range turns {
			fmt.Printf("[%d] %s: %s\n", t.TurnIndex, t.Speaker, t.Utterance)
		}
	})
}
