package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/untoldecay/backlog/internal/mutator"
	"github.com/untoldecay/backlog/internal/ui"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialise a backlog tree in the current directory",
	Long: `Initialise a backlog tree in the current directory.

Creates .tasks/ with the root index and empty bug/idea queues. Refuses
to run when .tasks/ or .backlog/ already exists.

With no --name on an interactive terminal, prompts for the project name.`,
	Run: func(cmd *cobra.Command, args []string) {
		name, _ := cmd.Flags().GetString("name")
		description, _ := cmd.Flags().GetString("description")
		if name == "" && ui.IsTerminal() {
			form := huh.NewForm(huh.NewGroup(
				huh.NewInput().Title("Project name").Value(&name),
			))
			if err := form.Run(); err != nil {
				fatalf("init aborted: %v", err)
			}
		}
		if name == "" {
			fatalf("init requires --name (or an interactive terminal)")
		}
		cwd, err := os.Getwd()
		if err != nil {
			fatalf("getwd: %v", err)
		}
		dir, err := mutator.InitProject(cwd, name, description)
		if err != nil {
			fatalError(err)
		}
		if jsonOutput {
			outputJSON(map[string]string{"project": name, "data_dir": dir})
			return
		}
		fmt.Printf("Initialised project %q in %s\n", name, dir)
		fmt.Println("Next: backlog add-phase --title <phase>, then add-milestone / add-epic / add.")
	},
}

func init() {
	initCmd.Flags().String("name", "", "Project name")
	initCmd.Flags().String("description", "", "Project description")
	rootCmd.AddCommand(initCmd)
}
