package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show database statistics",
		Run:   runStats,
	}

	RootCmd.AddCommand(cmd)
}

func runStats(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	s, err := openStore(cfg)
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	stats, err := s.Stats(cmd.Context(), cfg.Store.Path)
	if err != nil {
		exitErr("stats", err)
	}

	if jsonOutput() {
		printJSON(stats)
		return
	}
	fmt.Printf("db:           %s (%d bytes)\n", stats.DBPath, stats.DBSizeBytes)
	fmt.Printf("runs:         %d\n", stats.Runs)
	for _, k := range stats.Kinds {
		fmt.Printf("  %-10s  %d\n", k.Kind, k.Count)
	}
	fmt.Printf("snapshots:    %d\n", stats.Snapshots)
	fmt.Printf("interactions: %d (%d degraded)\n", stats.Interactions, stats.Degraded)
	fmt.Printf("turns:        %d\n", stats.Turns)
}
