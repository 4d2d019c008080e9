package main

import (
	"github.com/spf13/cobra"

	"aura/internal/mcpserver"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Aura MCP server over stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), cfgFile)
		if err != nil {
			return err
		}
		defer a.Close()

		a.scheduler.Start()
		defer a.scheduler.Stop()

		srv := mcpserver.New(mcpserver.Deps{
			Query:        a.query,
			Store:        a.store,
			Workflows:    a.workflows,
			Orchestrator: a.orch,
			Agents:       a.agents,
		})
		return srv.ServeStdio()
	},
}
