package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/untoldecay/backlog/internal/ui"
)

var workCmd = &cobra.Command{
	Use:   "work [id]",
	Short: "Show or set the current working task",
	Long: `Show or set the current working task.

With no argument, prints the working-context pointer and the task it
names. With an id, points the context at that task. The pointer is
independent of claiming; clear it with --clear.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		clear, _ := cmd.Flags().GetBool("clear")
		note, _ := cmd.Flags().GetString("note")
		store := sessionStore()

		if clear {
			if err := store.ClearContext(); err != nil {
				fatalError(err)
			}
			if jsonOutput {
				outputJSON(map[string]bool{"cleared": true})
			} else {
				fmt.Println("Cleared working context.")
			}
			return
		}
		if len(args) == 1 {
			loaded, _ := loadTree()
			if loaded.Tree.FindTask(args[0]) == nil {
				fatalf("Task not found: %s", args[0])
			}
			if err := store.SetContext(args[0], note, time.Now()); err != nil {
				fatalError(err)
			}
			if jsonOutput {
				outputJSON(map[string]string{"task_id": args[0]})
			} else {
				fmt.Printf("Working on %s\n", args[0])
			}
			return
		}

		ctx, err := store.Context()
		if err != nil {
			fatalError(err)
		}
		if jsonOutput {
			outputJSON(ctx)
			return
		}
		if ctx.TaskID == "" {
			fmt.Println("No working context set. Use 'backlog work <id>' or 'backlog grab'.")
			return
		}
		fmt.Printf("Working on %s\n", ui.HeaderStyle.Render(ctx.TaskID))
		if ctx.Note != "" {
			fmt.Printf("  note: %s\n", ctx.Note)
		}
		loaded, _ := loadTree()
		if task := loaded.Tree.FindTask(ctx.TaskID); task != nil {
			fmt.Printf("  %s %s (%s)\n", ui.StatusIcon(task.Status), task.Title, task.Status)
		} else {
			fmt.Println(ui.MutedStyle.Render("  (task no longer exists — context is stale)"))
		}
	},
}

func init() {
	workCmd.Flags().Bool("clear", false, "Clear the working context")
	workCmd.Flags().String("note", "", "Free-form note stored with the pointer")
	rootCmd.AddCommand(workCmd)
}
