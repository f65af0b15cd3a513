package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/untoldecay/backlog/internal/stats"
	"github.com/untoldecay/backlog/internal/ui"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Aggregated reports over the tree",
	Long: `Aggregated reports over the tree.

Subcommands: progress (status counts per container), velocity
(completions per day), estimate-accuracy (actual vs estimated
durations).`,
}

var reportProgressCmd = &cobra.Command{
	Use:   "progress",
	Short: "Status counts overall and per container",
	Long: `Status counts overall and per container.

Counts tasks per lifecycle state for the project, each phase, milestone,
epic, and the auxiliary queues, plus total estimate hours.`,
	Run: func(cmd *cobra.Command, args []string) {
		loaded, _ := loadTree()
		summary := stats.BuildSummary(loaded.Tree)
		if jsonOutput {
			outputJSON(summary)
			return
		}
		fmt.Println(ui.HeaderStyle.Render(summary.Project))
		c := summary.Counts
		fmt.Printf("  %d tasks: %d done, %d in progress, %d blocked, %d pending (%.1fh estimated)\n",
			c.Total, c.Done, c.InProgress, c.Blocked, c.Pending, summary.EstimateHours)
		for _, p := range summary.Phases {
			fmt.Printf("  %s %s: %d/%d done\n", p.ID, p.Name, p.Counts.Done, p.Counts.Total)
		}
		if summary.Bugs.Counts.Total > 0 {
			fmt.Printf("  bugs: %d/%d done\n", summary.Bugs.Counts.Done, summary.Bugs.Counts.Total)
		}
		if summary.Ideas.Counts.Total > 0 {
			fmt.Printf("  ideas: %d/%d done\n", summary.Ideas.Counts.Done, summary.Ideas.Counts.Total)
		}
	},
}

var reportVelocityCmd = &cobra.Command{
	Use:   "velocity",
	Short: "Completions per day over a window",
	Long: `Completions per day over a window.

Buckets completed tasks by completion day. --days N produces N+1 buckets
covering the inclusive window from N days ago through today.`,
	Run: func(cmd *cobra.Command, args []string) {
		days, _ := cmd.Flags().GetInt("days")
		loaded, _ := loadTree()
		buckets := stats.Velocity(loaded.Tree, days, time.Now())
		if jsonOutput {
			outputJSON(buckets)
			return
		}
		for _, b := range buckets {
			bar := ""
			for i := 0; i < b.Completed; i++ {
				bar += "#"
			}
			fmt.Printf("%s  %3d %s\n", b.Date, b.Completed, ui.ProgressStyle.Render(bar))
		}
	},
}

var reportAccuracyCmd = &cobra.Command{
	Use:   "estimate-accuracy",
	Short: "Actual durations vs estimates",
	Long: `Actual durations vs estimates.

For every task with a positive estimate and both started_at and
completed_at, buckets the actual/estimate ratio. Tasks without a
measurable duration are skipped silently.`,
	Run: func(cmd *cobra.Command, args []string) {
		loaded, _ := loadTree()
		acc := stats.EstimateAccuracy(loaded.Tree)
		if jsonOutput {
			outputJSON(acc)
			return
		}
		fmt.Printf("%d task(s) measured\n", acc.Measured)
		for _, b := range acc.Buckets {
			fmt.Printf("  %-10s %d\n", b.Label, b.Count)
		}
	},
}

var timelineCmd = &cobra.Command{
	Use:     "timeline",
	Aliases: []string{"tl"},
	Short:   "Per-phase schedule with estimate totals",
	Long: `Per-phase schedule with estimate totals.

Shows each phase's total and remaining estimate hours and completion
stats, in declared order.`,
	Run: func(cmd *cobra.Command, args []string) {
		loaded, _ := loadTree()
		rows := stats.BuildTimeline(loaded.Tree)
		if jsonOutput {
			if rows == nil {
				rows = []stats.TimelineRow{}
			}
			outputJSON(rows)
			return
		}
		for _, row := range rows {
			fmt.Printf("%s %s: %s %d/%d done, %.1fh remaining of %.1fh\n",
				ui.HeaderStyle.Render(row.ID), row.Name,
				ui.ProgressBar(row.Stats.Done, row.Stats.Total),
				row.Stats.Done, row.Stats.Total,
				row.RemainingHours, row.EstimateHours)
		}
	},
}

func init() {
	reportVelocityCmd.Flags().Int("days", 7, "Window size in days")
	reportCmd.AddCommand(reportProgressCmd, reportVelocityCmd, reportAccuracyCmd)
	rootCmd.AddCommand(reportCmd, timelineCmd)
}
