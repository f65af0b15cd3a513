package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var claimCmd = &cobra.Command{
	Use:   "claim <id>[,<id>...]",
	Short: "Claim one or more pending tasks",
	Long: `Claim one or more pending tasks.

Sets status=in_progress with claimed_by/claimed_at/started_at. Claiming
several ids at once is atomic: either every task is claimed or none is.`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		agentFlag, _ := cmd.Flags().GetString("agent")
		agent := actor(agentFlag)
		ids := splitIDList(args)
		if err := newMutator().Claim(ids, agent); err != nil {
			fatalError(err)
		}
		logOp(dataDir(), "claim", strings.Join(ids, ","), "", agent)
		if jsonOutput {
			outputJSON(map[string]any{"claimed": ids, "agent": agent})
			return
		}
		for _, id := range ids {
			fmt.Printf("Claimed %s (%s)\n", id, agent)
		}
	},
}

var unclaimCmd = &cobra.Command{
	Use:   "unclaim <id>",
	Short: "Release a claimed task back to pending",
	Long: `Release a claimed task back to pending.

Clears claimed_by/claimed_at and resets status to pending when the task
is in_progress. Running it on an already-pending task with stale claim
metadata just clears the metadata.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := newMutator().Unclaim(args[0]); err != nil {
			fatalError(err)
		}
		logOp(dataDir(), "unclaim", args[0], "", actor(""))
		if jsonOutput {
			outputJSON(map[string]string{"unclaimed": args[0]})
			return
		}
		fmt.Printf("Unclaimed %s\n", args[0])
	},
}

func init() {
	claimCmd.Flags().String("agent", "", "Agent identity (defaults to config/actor)")
	rootCmd.AddCommand(claimCmd, unclaimCmd)
}
