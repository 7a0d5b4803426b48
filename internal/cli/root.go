// Package cli implements the agent-sim CLI commands.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/rcliao/agent-sim/internal/config"
	"github.com/rcliao/agent-sim/internal/logging"
	"github.com/rcliao/agent-sim/internal/store"
)

var (
	configPath string
	dbPath     string
	formatFlag string
	logLevel   string
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "agent-sim",
	Short: "Generative agent simulation",
	Long: "Simulates agents that perceive, remember, plan and act in discrete ticks.\n" +
		"Runs are recorded in SQLite and can be replayed or exported.",
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: ~/.agent-sim/agent-sim.toml or ./agent-sim.toml)")
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Database path (default: $AGENT_SIM_STORE_PATH or ~/.agent-sim/history.db)")
	RootCmd.PersistentFlags().StringVarP(&formatFlag, "format", "f", "text", "Output format: text or json")
	RootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn or error")
}

func loadConfig() config.Config {
	cfg, err := config.Load(configPath)
	if err != nil {
		exitErr("load config", err)
	}
	if dbPath != "" {
		cfg.Store.Path = dbPath
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	return cfg
}

func newLogger(cfg config.Config) logging.Logger {
	l, err := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	if err != nil {
		exitErr("logger", err)
	}
	return l
}

func openStore(cfg config.Config) (*store.SQLiteStore, error) {
	return store.NewSQLiteStore(cfg.Store.Path, store.WithGridSize(cfg.World.GridSize))
}

func jsonOutput() bool { return formatFlag == "json" }

func printJSON(v any) {
	if err := writeJSON(os.Stdout, v); err != nil {
		exitErr("encode json", err)
	}
}

func writeJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
