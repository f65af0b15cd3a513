package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/untoldecay/backlog/internal/mutator"
	"github.com/untoldecay/backlog/internal/types"
)

var updateCmd = &cobra.Command{
	Use:   "update <id> --status <status>",
	Short: "Apply a free-form status change",
	Long: `Apply a free-form status change.

Unlike claim/done, update accepts any target status and an optional
--reason stored on the task. Moving a task out of in_progress clears its
claim metadata.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		rawStatus, _ := cmd.Flags().GetString("status")
		reason, _ := cmd.Flags().GetString("reason")
		status, err := types.ParseStatus(rawStatus)
		if err != nil {
			fatalError(types.E(types.CodeInvalidStatus, "%v", err))
		}
		if err := newMutator().Update(args[0], status, reason); err != nil {
			fatalError(err)
		}
		logOp(dataDir(), "update", args[0], string(status), actor(""))
		if jsonOutput {
			outputJSON(map[string]string{"id": args[0], "status": string(status)})
			return
		}
		fmt.Printf("Updated %s -> %s\n", args[0], status)
	},
}

var setCmd = &cobra.Command{
	Use:   "set <id>",
	Short: "Merge field changes into a task",
	Long: `Merge field changes into a task.

At least one of --title, --priority, --complexity, --estimate,
--depends-on, --tags must be supplied. List flags replace the whole set
(comma separated).`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		var fields mutator.SetFields
		if cmd.Flags().Changed("title") {
			v, _ := cmd.Flags().GetString("title")
			fields.Title = &v
		}
		if cmd.Flags().Changed("priority") {
			raw, _ := cmd.Flags().GetString("priority")
			p, err := types.ParsePriority(raw)
			if err != nil {
				fatalError(types.E(types.CodeTypeMismatch, "%v", err))
			}
			fields.Priority = &p
		}
		if cmd.Flags().Changed("complexity") {
			raw, _ := cmd.Flags().GetString("complexity")
			c, err := types.ParseComplexity(raw)
			if err != nil {
				fatalError(types.E(types.CodeTypeMismatch, "%v", err))
			}
			fields.Complexity = &c
		}
		if cmd.Flags().Changed("estimate") {
			v, _ := cmd.Flags().GetFloat64("estimate")
			fields.EstimateHours = &v
		}
		if cmd.Flags().Changed("depends-on") {
			raw, _ := cmd.Flags().GetString("depends-on")
			list := splitCommaList(raw)
			fields.DependsOn = &list
		}
		if cmd.Flags().Changed("tags") {
			raw, _ := cmd.Flags().GetString("tags")
			list := splitCommaList(raw)
			fields.Tags = &list
		}
		if err := newMutator().Set(args[0], fields); err != nil {
			fatalError(err)
		}
		logOp(dataDir(), "set", args[0], "", actor(""))
		if jsonOutput {
			outputJSON(map[string]string{"id": args[0]})
			return
		}
		fmt.Printf("Updated %s\n", args[0])
	},
}

var blockedCmd = &cobra.Command{
	Use:   "blocked <id> --reason <text>",
	Short: "Mark a task blocked",
	Long: `Mark a task blocked.

Records the reason on the task. --keep-claim preserves claimed_by so the
same agent can resume; otherwise the claim clears. --grab chains into
grabbing the next available task afterwards.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		reason, _ := cmd.Flags().GetString("reason")
		keepClaim, _ := cmd.Flags().GetBool("keep-claim")
		chainGrab, _ := cmd.Flags().GetBool("grab")
		agentFlag, _ := cmd.Flags().GetString("agent")
		agent := actor(agentFlag)

		m := newMutator()
		if err := m.Blocked(args[0], reason, keepClaim); err != nil {
			fatalError(err)
		}
		logOp(dataDir(), "blocked", args[0], reason, agent)
		if !chainGrab {
			if jsonOutput {
				outputJSON(map[string]string{"blocked": args[0], "reason": reason})
			} else {
				fmt.Printf("Blocked %s: %s\n", args[0], reason)
			}
			return
		}
		grab, err := m.Grab(agent, scopeFlags, false)
		if err != nil {
			if types.CodeOf(err) == types.CodeNotFound {
				if jsonOutput {
					outputJSON(map[string]any{"blocked": args[0], "reason": reason, "grab": nil})
				} else {
					fmt.Printf("Blocked %s: %s\nNothing left to grab.\n", args[0], reason)
				}
				return
			}
			fatalError(err)
		}
		if jsonOutput {
			outputJSON(map[string]any{"blocked": args[0], "reason": reason, "grab": grab})
			return
		}
		fmt.Printf("Blocked %s: %s\nGrabbed %s\n", args[0], reason, grab.Primary)
	},
}

func init() {
	updateCmd.Flags().String("status", "", "Target status: pending, in_progress, blocked, done")
	updateCmd.Flags().String("reason", "", "Reason stored on the task")
	setCmd.Flags().String("title", "", "New title")
	setCmd.Flags().String("priority", "", "New priority")
	setCmd.Flags().String("complexity", "", "New complexity")
	setCmd.Flags().Float64("estimate", 0, "New estimate in hours")
	setCmd.Flags().String("depends-on", "", "Replace the dependency set (comma separated)")
	setCmd.Flags().String("tags", "", "Replace the tag set (comma separated)")
	blockedCmd.Flags().String("reason", "", "Why the task is blocked (required)")
	blockedCmd.Flags().Bool("keep-claim", false, "Preserve claim metadata")
	blockedCmd.Flags().Bool("grab", false, "Grab the next available task afterwards")
	blockedCmd.Flags().String("agent", "", "Agent identity for --grab")
	rootCmd.AddCommand(updateCmd, setCmd, blockedCmd)
}
