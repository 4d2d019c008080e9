package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"aura/internal/agent/react"
)

var planCmd = &cobra.Command{
	Use:   "plan <workflow-id>",
	Short: "Advance a workflow through planning",
	Long: `Run the planner agent against a workflow's analyzed context.
With --dry-run, the planner's proposed step list is printed but not
persisted, so prompts can be iterated on without mutating workflow state.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		a, err := newApp(cmd.Context(), cfgFile)
		if err != nil {
			return err
		}
		defer a.Close()

		if !dryRun {
			wf, err := a.orch.Plan(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Println(wf.Plan)
			return nil
		}

		wf, err := a.workflows.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		def, err := a.agents.Get("planner")
		if err != nil {
			return err
		}
		p, err := a.providers.Resolve(def.Provider)
		if err != nil {
			return err
		}
		ex := react.NewExecutor(def, p, a.tools, wf.WorktreePath, 200000)
		outcome, err := ex.Run(cmd.Context(), "Analyzed context:\n"+wf.AnalyzedContext)
		if err != nil {
			return err
		}
		fmt.Printf("dry run: agent %q (provider %q) proposed, not persisted:\n%s\n", def.Name, p.Name(), outcome.FinalAnswer)
		return nil
	},
}

func init() {
	planCmd.Flags().Bool("dry-run", false, "preview the plan without persisting it")
}
