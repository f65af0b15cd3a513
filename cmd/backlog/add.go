package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/untoldecay/backlog/internal/mutator"
	"github.com/untoldecay/backlog/internal/types"
)

func addOptionsFromFlags(cmd *cobra.Command) mutator.AddOptions {
	title, _ := cmd.Flags().GetString("title")
	estimate, _ := cmd.Flags().GetFloat64("estimate")
	if estimate < 0 {
		fatalError(types.E(types.CodeTypeMismatch, "estimate_hours must be non-negative"))
	}
	opts := mutator.AddOptions{Title: title, EstimateHours: estimate}
	if raw, _ := cmd.Flags().GetString("priority"); raw != "" {
		p, err := types.ParsePriority(raw)
		if err != nil {
			fatalError(types.E(types.CodeTypeMismatch, "%v", err))
		}
		opts.Priority = p
	}
	if raw, _ := cmd.Flags().GetString("complexity"); raw != "" {
		c, err := types.ParseComplexity(raw)
		if err != nil {
			fatalError(types.E(types.CodeTypeMismatch, "%v", err))
		}
		opts.Complexity = c
	}
	if raw, _ := cmd.Flags().GetString("depends-on"); raw != "" {
		opts.DependsOn = splitCommaList(raw)
	}
	if raw, _ := cmd.Flags().GetString("tags"); raw != "" {
		opts.Tags = splitCommaList(raw)
	}
	return opts
}

func registerAddFlags(cmd *cobra.Command) {
	cmd.Flags().String("title", "", "Title (required)")
	cmd.Flags().Float64("estimate", 0, "Estimate in hours")
	cmd.Flags().String("priority", "", "Priority: low, medium, high, critical")
	cmd.Flags().String("complexity", "", "Complexity: low, medium, high")
	cmd.Flags().String("depends-on", "", "Comma-separated dependency ids")
	cmd.Flags().String("tags", "", "Comma-separated tags")
}

var addCmd = &cobra.Command{
	Use:   "add <epic-id>",
	Short: "Add a task under an epic",
	Long: `Add a task under an epic.

Allocates the next T number under the epic, creates the task file with
the stub template, and appends the entry to the epic index. Fails when
any container above the epic is locked.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		id, err := newMutator().AddTask(args[0], addOptionsFromFlags(cmd))
		if err != nil {
			fatalError(err)
		}
		logOp(dataDir(), "add", id, "", actor(""))
		if jsonOutput {
			outputJSON(map[string]string{"id": id})
			return
		}
		fmt.Printf("Added task %s\n", id)
	},
}

var addEpicCmd = &cobra.Command{
	Use:   "add-epic <milestone-id>",
	Short: "Add an epic under a milestone",
	Long: `Add an epic under a milestone.

Allocates the next E number, creates the epic directory with its index,
and appends the entry to the milestone index.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		title, _ := cmd.Flags().GetString("title")
		description, _ := cmd.Flags().GetString("description")
		id, err := newMutator().AddEpic(args[0], title, description)
		if err != nil {
			fatalError(err)
		}
		logOp(dataDir(), "add-epic", id, "", actor(""))
		if jsonOutput {
			outputJSON(map[string]string{"id": id})
			return
		}
		fmt.Printf("Added epic %s\n", id)
	},
}

var addMilestoneCmd = &cobra.Command{
	Use:   "add-milestone <phase-id>",
	Short: "Add a milestone under a phase",
	Long: `Add a milestone under a phase.

Allocates the next M number, creates the milestone directory with its
index, and appends the entry to the phase index.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		title, _ := cmd.Flags().GetString("title")
		description, _ := cmd.Flags().GetString("description")
		id, err := newMutator().AddMilestone(args[0], title, description)
		if err != nil {
			fatalError(err)
		}
		logOp(dataDir(), "add-milestone", id, "", actor(""))
		if jsonOutput {
			outputJSON(map[string]string{"id": id})
			return
		}
		fmt.Printf("Added milestone %s\n", id)
	},
}

var addPhaseCmd = &cobra.Command{
	Use:   "add-phase",
	Short: "Add a phase to the project",
	Long: `Add a phase to the project.

Allocates the next P number, creates the phase directory with its index,
and appends the entry to the root index.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		title, _ := cmd.Flags().GetString("title")
		description, _ := cmd.Flags().GetString("description")
		id, err := newMutator().AddPhase(title, description)
		if err != nil {
			fatalError(err)
		}
		logOp(dataDir(), "add-phase", id, "", actor(""))
		if jsonOutput {
			outputJSON(map[string]string{"id": id})
			return
		}
		fmt.Printf("Added phase %s\n", id)
	},
}

func init() {
	registerAddFlags(addCmd)
	addEpicCmd.Flags().String("title", "", "Title (required)")
	addEpicCmd.Flags().String("description", "", "Description")
	addMilestoneCmd.Flags().String("title", "", "Title (required)")
	addMilestoneCmd.Flags().String("description", "", "Description")
	addPhaseCmd.Flags().String("title", "", "Title (required)")
	addPhaseCmd.Flags().String("description", "", "Description")
	rootCmd.AddCommand(addCmd, addEpicCmd, addMilestoneCmd, addPhaseCmd)
}
