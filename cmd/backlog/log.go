package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/untoldecay/backlog/internal/stats"
	"github.com/untoldecay/backlog/internal/ui"
)

var logCmd = &cobra.Command{
	Use:   "log [scope...]",
	Short: "Activity events derived from task metadata",
	Long: `Activity events derived from task metadata.

Each task contributes added/claimed/started/completed events from its
lifecycle timestamps. Added events without a created_at still appear
with a null timestamp, ordered by path id among themselves. Newest
events print last; --limit keeps the tail.`,
	Run: func(cmd *cobra.Command, args []string) {
		limit, _ := cmd.Flags().GetInt("limit")
		loaded, _ := loadTree()
		scope := compileScope(loaded.Tree, args)
		events := stats.ActivityLog(loaded.Tree)
		if !scope.Empty() {
			filtered := events[:0]
			for _, e := range events {
				if scope.Contains(e.TaskID) {
					filtered = append(filtered, e)
				}
			}
			events = filtered
		}
		if limit > 0 && len(events) > limit {
			events = events[len(events)-limit:]
		}
		if jsonOutput {
			if events == nil {
				events = []stats.Event{}
			}
			outputJSON(events)
			return
		}
		if len(events) == 0 {
			fmt.Println("No activity.")
			return
		}
		for _, e := range events {
			when := ui.MutedStyle.Render("            -")
			if e.Timestamp != nil {
				when = humanize.Time(*e.Timestamp)
			}
			line := fmt.Sprintf("%-14s %-9s %s", when, e.Event, e.TaskID)
			if e.Actor != "" {
				line += " @" + e.Actor
			}
			fmt.Println(line)
		}
	},
}

func init() {
	logCmd.Flags().Int("limit", 0, "Keep only the newest N events")
	rootCmd.AddCommand(logCmd)
}
