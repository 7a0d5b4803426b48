package cli

import (
	"github.com/spf13/cobra"

	"github.com/rcliao/agent-sim/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "export <run-id>",
		Short: "Export a run as JSON",
		Long:  "Export a run with its latest snapshot, interactions and turns. The output can be fed to import.",
		Args:  cobra.ExactArgs(1),
		Run:   runExport,
	}

	historyCmd.AddCommand(cmd)
}

func runExport(cmd *cobra.Command, args []string) {
	withStore(func(s *store.SQLiteStore) {
		x, err := s.ExportRun(cmd.Context(), args[0])
		if err != nil {
			exitErr("export", err)
		}
		printJSON(x)
	})
}
