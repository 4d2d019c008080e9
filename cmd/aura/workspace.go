package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
)

var workspaceCmd = &cobra.Command{
	Use:   "workspace",
	Short: "Register, list, and remove workspaces",
}

func init() {
	workspaceCmd.AddCommand(workspaceListCmd, workspaceRegisterCmd, workspaceRemoveCmd)
}

var workspaceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered workspaces",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), cfgFile)
		if err != nil {
			return err
		}
		defer a.Close()

		workspaces, err := a.workspaces.List(cmd.Context())
		if err != nil {
			return err
		}
		for _, ws := range workspaces {
			fmt.Printf("%s\t%s\t%s\n", ws.ID, ws.Alias, ws.Path)
		}
		return nil
	},
}

var workspaceRegisterCmd = &cobra.Command{
	Use:   "register <path>",
	Short: "Register a workspace without indexing it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}
		a, err := newApp(cmd.Context(), cfgFile)
		if err != nil {
			return err
		}
		defer a.Close()

		alias, _ := cmd.Flags().GetString("alias")
		ws, err := a.workspaces.Register(cmd.Context(), path, alias, nil)
		if err != nil {
			return err
		}
		fmt.Printf("registered workspace %s (%s)\n", ws.ID, ws.Path)
		return nil
	},
}

var workspaceRemoveCmd = &cobra.Command{
	Use:   "remove <workspace-id>",
	Short: "Remove a registered workspace",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), cfgFile)
		if err != nil {
			return err
		}
		defer a.Close()
		return a.workspaces.Remove(cmd.Context(), args[0])
	},
}

func init() {
	workspaceRegisterCmd.Flags().String("alias", "", "short alias for the workspace")
}
