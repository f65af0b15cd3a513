package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/untoldecay/backlog/internal/ui"
)

var grabCmd = &cobra.Command{
	Use:   "grab [scope...]",
	Short: "Claim the next available task",
	Long: `Claim the next available task.

Selects under the priority ordering (bugs first) and claims it. When the
pick is a bug, up to two additional parallel-safe bugs are claimed along
with it for batched work; --single claims only the primary pick but
still lists the parallel candidates. --no-content suppresses task
bodies in the confirmation output.`,
	Run: func(cmd *cobra.Command, args []string) {
		agentFlag, _ := cmd.Flags().GetString("agent")
		single, _ := cmd.Flags().GetBool("single")
		noContent, _ := cmd.Flags().GetBool("no-content")
		agent := actor(agentFlag)

		patterns := append(append([]string{}, scopeFlags...), args...)
		res, err := newMutator().Grab(agent, patterns, single)
		if err != nil {
			fatalError(err)
		}
		logOp(dataDir(), "grab", strings.Join(res.Claimed, ","), "", agent)
		if jsonOutput {
			outputJSON(res)
			return
		}
		loaded, _ := loadTree()
		primary := loaded.Tree.FindTask(res.Primary)
		fmt.Printf("Grabbed %s", ui.HeaderStyle.Render(res.Primary))
		if primary != nil {
			fmt.Printf(": %s", primary.Title)
		}
		fmt.Printf(" (%s)\n", agent)
		if len(res.ParallelBugs) > 0 {
			all := append([]string{res.Primary}, res.ParallelBugs...)
			fmt.Printf("Parallel-safe bugs: %s\n", strings.Join(all, ", "))
		}
		for _, id := range res.Claimed[1:] {
			fmt.Printf("  also claimed %s\n", id)
		}
		if primary != nil && !noContent && strings.TrimSpace(primary.Body) != "" {
			fmt.Println(ui.RenderMarkdown(primary.Body))
		}
		fmt.Printf("When finished: backlog done %s  (or: backlog cycle %s)\n", res.Primary, res.Primary)
	},
}

func init() {
	grabCmd.Flags().String("agent", "", "Agent identity (defaults to config/actor)")
	grabCmd.Flags().Bool("single", false, "Claim only the primary pick")
	grabCmd.Flags().Bool("no-content", false, "Suppress the task body")
	rootCmd.AddCommand(grabCmd)
}
