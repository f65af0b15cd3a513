package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var lockCmd = &cobra.Command{
	Use:   "lock <container-id>",
	Short: "Lock a phase, milestone, or epic",
	Long: `Lock a phase, milestone, or epic.

A locked container rejects new children: add/add-epic/add-milestone
through it fail, and its pending tasks stop being available. Completing
a phase locks it automatically; this command does it by hand.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := newMutator().SetLocked(args[0], true); err != nil {
			fatalError(err)
		}
		logOp(dataDir(), "lock", args[0], "", actor(""))
		if jsonOutput {
			outputJSON(map[string]any{"id": args[0], "locked": true})
			return
		}
		fmt.Printf("Locked %s\n", args[0])
	},
}

var unlockCmd = &cobra.Command{
	Use:   "unlock <container-id>",
	Short: "Unlock a phase, milestone, or epic",
	Long: `Unlock a phase, milestone, or epic.

Reverses lock (manual or from cascade completion) so children may be
added again and pending tasks return to the available pool.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := newMutator().SetLocked(args[0], false); err != nil {
			fatalError(err)
		}
		logOp(dataDir(), "unlock", args[0], "", actor(""))
		if jsonOutput {
			outputJSON(map[string]any{"id": args[0], "locked": false})
			return
		}
		fmt.Printf("Unlocked %s\n", args[0])
	},
}

var moveCmd = &cobra.Command{
	Use:   "move <id> --to <container-id>",
	Short: "Reparent a task or epic",
	Long: `Reparent a task or epic.

The moved item takes the next local sequence number under its
destination, its file is rewritten with the new id, both indices update,
and every depends_on reference in the tree that pointed at the old id is
rewritten. Completion state recomputes on both chains. The whole rewrite
stages before anything commits.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		to, _ := cmd.Flags().GetString("to")
		if to == "" {
			fatalf("move requires --to <container-id>")
		}
		newID, err := newMutator().Move(args[0], to)
		if err != nil {
			fatalError(err)
		}
		logOp(dataDir(), "move", args[0], "-> "+newID, actor(""))
		if jsonOutput {
			outputJSON(map[string]string{"from": args[0], "to": newID})
			return
		}
		fmt.Printf("Moved %s -> %s\n", args[0], newID)
	},
}

func init() {
	moveCmd.Flags().String("to", "", "Destination container id")
	rootCmd.AddCommand(lockCmd, unlockCmd, moveCmd)
}
