package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/untoldecay/backlog/internal/types"
	"github.com/untoldecay/backlog/internal/ui"
)

var searchCmd = &cobra.Command{
	Use:   "search <term>",
	Short: "Search ids, titles, tags, and bodies",
	Long: `Search ids, titles, tags, and bodies.

Case-insensitive substring match over every task, bug, idea, and fix.
Scope flags restrict the haystack.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		term := strings.ToLower(args[0])
		loaded, _ := loadTree()
		tr := loaded.Tree
		scope := compileScope(tr, nil)

		var matches []types.Task
		all := tr.AllTasks()
		all = append(all, tr.Fixes...)
		for _, t := range all {
			if !scope.Empty() && !scope.Contains(t.ID) {
				continue
			}
			if taskMatchesTerm(&t, term) {
				matches = append(matches, t)
			}
		}
		if jsonOutput {
			type hit struct {
				ID     string `json:"id"`
				Title  string `json:"title"`
				Status string `json:"status"`
			}
			hits := make([]hit, 0, len(matches))
			for _, t := range matches {
				hits = append(hits, hit{ID: t.ID, Title: t.Title, Status: string(t.Status)})
			}
			outputJSON(map[string]any{"term": args[0], "matches": hits})
			return
		}
		if len(matches) == 0 {
			fmt.Printf("No matches for %q\n", args[0])
			return
		}
		for _, t := range matches {
			fmt.Printf("%s %s: %s\n", ui.StatusIcon(t.Status), ui.HeaderStyle.Render(t.ID), t.Title)
		}
	},
}

func taskMatchesTerm(t *types.Task, term string) bool {
	if strings.Contains(strings.ToLower(t.ID), term) ||
		strings.Contains(strings.ToLower(t.Title), term) ||
		strings.Contains(strings.ToLower(t.Body), term) {
		return true
	}
	for _, tag := range t.Tags {
		if strings.Contains(strings.ToLower(tag), term) {
			return true
		}
	}
	return false
}

func init() {
	rootCmd.AddCommand(searchCmd)
}
