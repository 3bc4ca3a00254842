package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "ensemble",
	Short: "Multi-role task orchestration over tiered language models",
	Long: `Ensemble runs a task through a team of specialized model roles:
a planner decomposes the task, researchers work the steps in parallel
over a shared blackboard, a critic scores the findings and drives
bounded retries, and a synthesizer produces the final answer.

Every model call passes through a cost budget, a complexity-scored
tier router, and history compaction, so runs stay inside a dollar
budget without giving up on hard tasks.`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
