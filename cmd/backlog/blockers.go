package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/untoldecay/backlog/internal/resolver"
	"github.com/untoldecay/backlog/internal/ui"
)

var blockersCmd = &cobra.Command{
	Use:   "blockers",
	Short: "Show unfinished tasks gating the most downstream work",
	Long: `Show unfinished tasks gating the most downstream work.

Walks the dependency graph and reports, per unfinished task, how many
unfinished tasks it transitively blocks. Tasks whose own dependencies
are already met are flagged ready: finishing those unblocks the most.`,
	Run: func(cmd *cobra.Command, args []string) {
		loaded, _ := loadTree()
		reports, err := resolver.New(loaded.Tree).RootBlockers()
		if err != nil {
			fatalError(err)
		}
		if jsonOutput {
			if reports == nil {
				reports = []resolver.BlockerReport{}
			}
			outputJSON(reports)
			return
		}
		if len(reports) == 0 {
			fmt.Println("Nothing is blocked.")
			return
		}
		for _, r := range reports {
			line := fmt.Sprintf("%s blocks %d task(s): %s", ui.HeaderStyle.Render(r.ID), r.BlocksCount, strings.Join(r.BlockedIDs, ", "))
			if r.ReadyToStart {
				line += " " + ui.DoneStyle.Render("[ready]")
			}
			if r.OnCritical {
				line += " " + ui.CriticalStyle.Render("★")
			}
			fmt.Println(line)
		}
	},
}

func init() {
	rootCmd.AddCommand(blockersCmd)
}
