package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/untoldecay/backlog/internal/resolver"
	"github.com/untoldecay/backlog/internal/ui"
)

var nextCmd = &cobra.Command{
	Use:   "next [scope...]",
	Short: "Show the single next task to work on",
	Long: `Show the single next task to work on.

Picks the highest-ranked available task: bugs first, then primary tasks,
then ideas; within a kind, priority, critical-path position, readiness,
and smaller estimates break ties. Scope restricts the candidate set.

JSON output is {"id": <path-id>} with id null when nothing is available.`,
	Run: func(cmd *cobra.Command, args []string) {
		loaded, _ := loadTree()
		tr := loaded.Tree
		scope := compileScope(tr, args)
		res := resolver.New(tr)
		cp, err := res.CriticalPath()
		if err != nil {
			fatalError(err)
		}
		ranked := res.Prioritize(scope.Filter(res.FindAllAvailable()), cp)
		if jsonOutput {
			if len(ranked) == 0 {
				outputJSON(map[string]any{"id": nil})
			} else {
				outputJSON(map[string]any{"id": ranked[0]})
			}
			return
		}
		if len(ranked) == 0 {
			fmt.Println("No tasks available.")
			return
		}
		task := tr.FindTask(ranked[0])
		fmt.Printf("Next: %s %s: %s\n", ui.StatusIcon(task.Status), ui.HeaderStyle.Render(task.ID), task.Title)
		fmt.Printf("  claim it: backlog claim %s\n", task.ID)
	},
}

var previewCmd = &cobra.Command{
	Use:   "preview [scope...]",
	Short: "Preview upcoming work per kind with parallel-safe fan-outs",
	Long: `Preview upcoming work per kind with parallel-safe fan-outs.

Shows the single next pick plus up to five available primary tasks, five
bugs, and five ideas. Each row lists up to three additional same-kind ids
an agent could claim in parallel (pairwise independent).`,
	Run: func(cmd *cobra.Command, args []string) {
		loaded, _ := loadTree()
		tr := loaded.Tree
		scope := compileScope(tr, args)
		preview, err := resolver.New(tr).BuildPreview(scope)
		if err != nil {
			fatalError(err)
		}
		if jsonOutput {
			outputJSON(preview)
			return
		}
		if preview.Next == "" {
			fmt.Println("No tasks available.")
			return
		}
		fmt.Printf("Next: %s\n", ui.HeaderStyle.Render(preview.Next))
		printPreviewRows("Tasks", preview.Tasks)
		printPreviewRows("Bugs", preview.Bugs)
		printPreviewRows("Ideas", preview.Ideas)
	},
}

func printPreviewRows(header string, rows []resolver.PreviewRow) {
	if len(rows) == 0 {
		return
	}
	fmt.Println(ui.HeaderStyle.Render(header + ":"))
	for _, row := range rows {
		line := fmt.Sprintf("  %s: %s (%s, %.1fh)", row.ID, row.Title, row.Priority, row.EstimateHours)
		if row.OnCritical {
			line += " " + ui.CriticalStyle.Render("★")
		}
		if len(row.Parallel) > 0 {
			line += ui.MutedStyle.Render(" || " + strings.Join(row.Parallel, ", "))
		}
		fmt.Println(line)
	}
}

func init() {
	rootCmd.AddCommand(nextCmd, previewCmd)
}
