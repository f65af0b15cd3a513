package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/untoldecay/backlog/internal/check"
	"github.com/untoldecay/backlog/internal/config"
	"github.com/untoldecay/backlog/internal/ui"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run the consistency checker over the tree",
	Long: `Run the consistency checker over the tree.

Reports errors (missing dependencies, cycles, claim violations, index
mismatches, orphan files) and warnings (zero estimates, template stubs,
stale sessions/context). Exit code 1 when any error is found; with
--strict, warnings fail too.`,
	Run: func(cmd *cobra.Command, args []string) {
		strict, _ := cmd.Flags().GetBool("strict")
		loaded, dir := loadTree()
		report := check.Run(loaded, sessionStoreAt(dir), config.StaleSessionThreshold(), time.Now())

		if jsonOutput {
			outputJSON(map[string]any{
				"ok":       report.OK,
				"summary":  report.Summary(),
				"findings": findingsOrEmpty(report),
			})
		} else {
			for _, f := range report.Findings {
				style := ui.BlockedStyle
				if f.Severity == check.SeverityWarning {
					style = ui.CriticalStyle
				}
				fmt.Printf("%s %s: %s\n", style.Render(f.Severity), f.Kind, f.Message)
			}
			fmt.Println(report.Summary())
		}
		if !report.OK || (strict && report.Warnings > 0) {
			os.Exit(1)
		}
	},
}

func findingsOrEmpty(r *check.Report) []check.Finding {
	if r.Findings == nil {
		return []check.Finding{}
	}
	return r.Findings
}

func init() {
	checkCmd.Flags().Bool("strict", false, "Treat warnings as failures")
	rootCmd.AddCommand(checkCmd)
}
