package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var workflowCmd = &cobra.Command{
	Use:   "workflow",
	Short: "Create, run, and inspect workflows",
}

func init() {
	workflowCmd.AddCommand(workflowRunCmd, workflowShowCmd)
}

var workflowRunCmd = &cobra.Command{
	Use:   "run <workspace-id> <title>",
	Short: "Create a workflow and drive it through analyze, plan, execute, and complete",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), cfgFile)
		if err != nil {
			return err
		}
		defer a.Close()

		workspaceID, title := args[0], args[1]
		issueRef, _ := cmd.Flags().GetString("issue")

		wf, err := a.workflows.Create(cmd.Context(), workspaceID, title, issueRef)
		if err != nil {
			return fmt.Errorf("create workflow: %w", err)
		}
		fmt.Printf("created workflow %s (%s)\n", wf.ID, wf.Status)

		wf, err = a.orch.Analyze(cmd.Context(), wf.ID, title)
		if err != nil {
			return fmt.Errorf("analyze: %w", err)
		}
		fmt.Printf("analyzed -> %s\n", wf.Status)

		wf, err = a.orch.Plan(cmd.Context(), wf.ID)
		if err != nil {
			return fmt.Errorf("plan: %w", err)
		}
		fmt.Printf("planned -> %s\n", wf.Status)

		wf, err = a.orch.Execute(cmd.Context(), wf.ID)
		if err != nil {
			return fmt.Errorf("execute: %w", err)
		}
		fmt.Printf("executed -> %s (worktree: %s)\n", wf.Status, wf.WorktreePath)

		remoteURL, _ := cmd.Flags().GetString("remote")
		token, _ := cmd.Flags().GetString("token")
		wf, err = a.orch.Complete(cmd.Context(), wf.ID, remoteURL, token)
		if err != nil {
			return fmt.Errorf("complete: %w", err)
		}
		if remoteURL == "" {
			fmt.Printf("completed -> %s (no remote configured, left committed locally)\n", wf.Status)
		} else {
			fmt.Printf("completed -> %s (pushed and opened pull request)\n", wf.Status)
		}
		return nil
	},
}

var workflowShowCmd = &cobra.Command{
	Use:   "show <workflow-id>",
	Short: "Print a workflow's full step history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), cfgFile)
		if err != nil {
			return err
		}
		defer a.Close()

		wf, err := a.workflows.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("workflow %s: %q [%s]\n", wf.ID, wf.Title, wf.Status)
		if wf.Error != "" {
			fmt.Printf("  error: %s\n", wf.Error)
		}

		steps, err := a.steps.ForWorkflow(cmd.Context(), wf.ID)
		if err != nil {
			return err
		}
		for _, st := range steps {
			fmt.Printf("  [%d] %-8s %-10s agent=%-12s attempts=%d\n", st.Seq, st.Kind, st.Status, st.AgentName, st.Attempts)
		}
		return nil
	},
}

func init() {
	workflowRunCmd.Flags().String("issue", "", "optional issue reference")
	workflowRunCmd.Flags().String("remote", "", "git remote URL to push to and open a draft PR against (skipped if empty)")
	workflowRunCmd.Flags().String("token", "", "access token for the remote, if required")
}
