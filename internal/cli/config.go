package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/agent-sim/internal/config"
)

func init() {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
	}

	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write the default configuration",
		Args:  cobra.MaximumNArgs(1),
		Run:   runConfigInit,
	}
	initCmd.Flags().Bool("force", false, "Overwrite an existing file")

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Run:   runConfigShow,
	}

	cmd.AddCommand(initCmd, show)
	RootCmd.AddCommand(cmd)
}

func runConfigInit(cmd *cobra.Command, args []string) {
	force, _ := cmd.Flags().GetBool("force")
	path := config.DefaultPath()
	if len(args) == 1 {
		path = args[0]
	}
	if err := config.WriteDefault(path, force); err != nil {
		exitErr("config init", err)
	}
	fmt.Println(path)
}

func runConfigShow(cmd *cobra.Command, args []string) {
	cfg := loadConfig().Redacted()
	if jsonOutput() {
		printJSON(cfg)
		return
	}
	b, err := config.Encode(cfg)
	if err != nil {
		exitErr("config show", err)
	}
	fmt.Print(string(b))
}
