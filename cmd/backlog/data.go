package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/untoldecay/backlog/internal/stats"
)

var dataCmd = &cobra.Command{
	Use:   "data",
	Short: "Raw data access for tooling",
	Long: `Raw data access for tooling.

Subcommands: summary (aggregate counts), export (the whole loaded tree
as one JSON document).`,
}

var dataSummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Aggregate counts for dashboards",
	Long:  `Aggregate counts for dashboards: the progress summary as JSON.`,
	Run: func(cmd *cobra.Command, args []string) {
		loaded, _ := loadTree()
		summary := stats.BuildSummary(loaded.Tree)
		outputJSON(summary)
	},
}

var dataExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the whole tree as JSON",
	Long: `Export the whole tree as JSON.

Emits the loaded graph: project metadata, phases with nested
milestones/epics/tasks, auxiliary queues, and the stored critical path.`,
	Run: func(cmd *cobra.Command, args []string) {
		loaded, _ := loadTree()
		outputJSON(loaded.Tree)
	},
}

var benchmarkCmd = &cobra.Command{
	Use:   "benchmark",
	Short: "Time load and resolve cycles over the current tree",
	Long: `Time load and resolve cycles over the current tree.

Runs repeated load -> critical-path -> availability passes and reports
wall-clock timings. Read-only.`,
	Run: func(cmd *cobra.Command, args []string) {
		iterations, _ := cmd.Flags().GetInt("iterations")
		result := runBenchmark(iterations)
		if jsonOutput {
			outputJSON(result)
			return
		}
		fmt.Printf("%d iteration(s) over %d task(s)\n", result.Iterations, result.Tasks)
		fmt.Printf("  load:     avg %.2fms\n", result.LoadMs)
		fmt.Printf("  resolve:  avg %.2fms\n", result.ResolveMs)
	},
}

func init() {
	dataCmd.AddCommand(dataSummaryCmd, dataExportCmd)
	benchmarkCmd.Flags().Int("iterations", 10, "Number of passes")
	rootCmd.AddCommand(dataCmd, benchmarkCmd)
}
