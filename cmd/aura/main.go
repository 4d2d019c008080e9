// Command aura is the CLI entrypoint: it wires the config, database,
// agent registry, and every component package together, then dispatches
// to cobra subcommands. Structure mirrors the teacher's cmd/main/main.go
// root command plus init-hooks pattern.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"aura/internal/logging"
)

var cfgFile string
var debug bool

var rootCmd = &cobra.Command{
	Use:     "aura",
	Short:   "Aura — developer automation: agent-driven workflows over a local code index",
	Version: "0.1.0",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Init(logging.FormatText, debug)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $XDG_CONFIG_HOME/aura/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(workflowCmd)
	rootCmd.AddCommand(workspaceCmd)
	rootCmd.AddCommand(planCmd)
}

func main() {
	logging.Init(logging.FormatText, debug)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
