package main

import (
	"fmt"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
	"github.com/spf13/cobra"

	"github.com/untoldecay/backlog/internal/pathid"
	"github.com/untoldecay/backlog/internal/types"
)

var bugCmd = &cobra.Command{
	Use:   "bug --title <text>",
	Short: "File a bug in the auxiliary backlog",
	Long: `File a bug in the auxiliary backlog.

Bugs live in the flat bugs/ queue, outrank primary tasks in scheduling,
and participate in grab fan-outs. Priority defaults to medium.`,
	Run: func(cmd *cobra.Command, args []string) {
		id, err := newMutator().AddAux(pathid.KindBug, addOptionsFromFlags(cmd))
		if err != nil {
			fatalError(err)
		}
		logOp(dataDir(), "bug", id, "", actor(""))
		if jsonOutput {
			outputJSON(map[string]string{"id": id})
			return
		}
		fmt.Printf("Filed bug %s\n", id)
	},
}

var ideaCmd = &cobra.Command{
	Use:   "idea --title <text>",
	Short: "Capture an idea in the auxiliary backlog",
	Long: `Capture an idea in the auxiliary backlog.

Ideas rank after primary tasks in scheduling; they are the lowest-urgency
kind but stay visible in previews and grabs.`,
	Run: func(cmd *cobra.Command, args []string) {
		id, err := newMutator().AddAux(pathid.KindIdea, addOptionsFromFlags(cmd))
		if err != nil {
			fatalError(err)
		}
		logOp(dataDir(), "idea", id, "", actor(""))
		if jsonOutput {
			outputJSON(map[string]string{"id": id})
			return
		}
		fmt.Printf("Captured idea %s\n", id)
	},
}

var fixedCmd = &cobra.Command{
	Use:   "fixed <title>",
	Short: "Archive an already-completed fix",
	Long: `Archive an already-completed fix.

Records work that was done without a backlog entry. The fix is written
status=done under fixes/YYYY-MM/ with created_at and completed_at both
set to --at (natural language accepted, e.g. "yesterday 5pm") or now.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		atRaw, _ := cmd.Flags().GetString("at")
		tagsRaw, _ := cmd.Flags().GetString("tags")
		body, _ := cmd.Flags().GetString("body")

		var at *time.Time
		if atRaw != "" {
			parsed := parseWhen(atRaw)
			if parsed == nil {
				fatalError(types.E(types.CodeTypeMismatch, "could not parse --at %q", atRaw))
			}
			at = parsed
		}
		id, err := newMutator().Fixed(args[0], at, splitCommaList(tagsRaw), body)
		if err != nil {
			fatalError(err)
		}
		logOp(dataDir(), "fixed", id, "", actor(""))
		if jsonOutput {
			outputJSON(map[string]string{"id": id})
			return
		}
		fmt.Printf("Archived fix %s\n", id)
	},
}

// parseWhen accepts RFC3339, date-only, or natural language timestamps.
func parseWhen(raw string) *time.Time {
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		u := ts.UTC()
		return &u
	}
	if ts, err := time.Parse("2006-01-02", raw); err == nil {
		u := ts.UTC()
		return &u
	}
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	if result, err := w.Parse(raw, time.Now()); err == nil && result != nil {
		u := result.Time.UTC()
		return &u
	}
	return nil
}

func init() {
	registerAddFlags(bugCmd)
	registerAddFlags(ideaCmd)
	fixedCmd.Flags().String("at", "", "Completion time (RFC3339, YYYY-MM-DD, or natural language)")
	fixedCmd.Flags().String("tags", "", "Comma-separated tags")
	fixedCmd.Flags().String("body", "", "Markdown body")
	rootCmd.AddCommand(bugCmd, ideaCmd, fixedCmd)
}
