package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/untoldecay/backlog/internal/ui"
)

var doneCmd = &cobra.Command{
	Use:   "done <id> [<id>...]",
	Short: "Complete one or more tasks",
	Long: `Complete one or more tasks.

Only in_progress tasks complete without --force. Completing the last
task of an epic cascades done upward: epic, then milestone, then phase;
a completed phase is also locked against new children.`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		force, _ := cmd.Flags().GetBool("force")
		ids := splitIDList(args)
		res, err := newMutator().Done(ids, force)
		if err != nil {
			fatalError(err)
		}
		logOp(dataDir(), "done", strings.Join(res.Completed, ","), "", actor(""))
		if jsonOutput {
			outputJSON(map[string]any{"completed": res.Completed, "phase_closed": res.ClosedPhase})
			return
		}
		for _, id := range res.Completed {
			fmt.Printf("%s %s done\n", ui.DoneStyle.Render("[x]"), id)
		}
		if res.ClosedPhase {
			fmt.Println(ui.HeaderStyle.Render("Phase complete — locked against new work."))
		}
	},
}

var undoneCmd = &cobra.Command{
	Use:   "undone <id>",
	Short: "Reverse a completion",
	Long: `Reverse a completion.

On a task: back to pending, completed_at cleared, and the container
chain loses its done/locked state. On a container: every descendant task
resets to pending and the whole chain's status/locked flags clear.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := newMutator().Undone(args[0]); err != nil {
			fatalError(err)
		}
		logOp(dataDir(), "undone", args[0], "", actor(""))
		if jsonOutput {
			outputJSON(map[string]string{"undone": args[0]})
			return
		}
		fmt.Printf("Reset %s to pending\n", args[0])
	},
}

var cycleCmd = &cobra.Command{
	Use:   "cycle <id>",
	Short: "Complete a task and grab the next one",
	Long: `Complete a task and grab the next one.

Equivalent to done <id> followed by grab under the same scope. When the
completion closes the task's phase, the grab is skipped so the agent can
regroup.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		agentFlag, _ := cmd.Flags().GetString("agent")
		agent := actor(agentFlag)
		res, err := newMutator().Cycle(args[0], agent, scopeFlags)
		if err != nil {
			fatalError(err)
		}
		logOp(dataDir(), "cycle", args[0], "", agent)
		if jsonOutput {
			outputJSON(res)
			return
		}
		for _, id := range res.Done.Completed {
			fmt.Printf("%s %s done\n", ui.DoneStyle.Render("[x]"), id)
		}
		switch {
		case res.PhaseClosed:
			fmt.Println(ui.HeaderStyle.Render("Phase complete — stopping the cycle."))
		case res.Grab != nil:
			fmt.Printf("Grabbed %s\n", res.Grab.Primary)
			for _, id := range res.Grab.Claimed[1:] {
				fmt.Printf("  also claimed %s\n", id)
			}
		default:
			fmt.Println("Nothing left to grab.")
		}
	},
}

func init() {
	doneCmd.Flags().Bool("force", false, "Complete regardless of current status")
	cycleCmd.Flags().String("agent", "", "Agent identity (defaults to config/actor)")
	rootCmd.AddCommand(doneCmd, undoneCmd, cycleCmd)
}
