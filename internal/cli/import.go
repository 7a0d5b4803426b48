package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/rcliao/agent-sim/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Import a run from JSON",
		Long:  "Import a run (stdin or file). Expects the format produced by export. The run gets a new ID.",
		Args:  cobra.MaximumNArgs(1),
		Run:   runImport,
	}

	historyCmd.AddCommand(cmd)
}

func runImport(cmd *cobra.Command, args []string) {
	var data []byte
	var err error
	if len(args) == 1 {
		data, err = os.ReadFile(args[0])
	} else {
		data, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		exitErr("read input", err)
	}

	var x store.RunExport
	if err := json.Unmarshal(data, &x); err != nil {
		exitErr("parse json", err)
	}

	withStore(func(s *store.SQLiteStore) {
		run, err := s.ImportRun(cmd.Context(), &x)
		if err != nil {
			exitErr("import", err)
		}
		fmt.Printf(`{"ok":true,"run":%q}`+"\n", run.ID)
	})
}
