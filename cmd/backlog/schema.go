package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

const schemaText = `On-disk layout (root contains exactly one of .tasks/ or .backlog/):

.tasks/
  index.yaml                 project, ordered phases, critical_path, next_available
  config.yaml                optional CLI settings (json, actor, thresholds)
  .sessions.yaml             agent sessions (heartbeats)
  .context.yaml              current working-task pointer
  NN-phase-slug/
    index.yaml               name, status, locked, depends_on, milestones
    NN-milestone-slug/
      index.yaml             name, status, locked, depends_on, epics
      NN-epic-slug/
        index.yaml           name, status, locked, depends_on, tasks
        Tnnn-task-slug.todo  frontmatter envelope + markdown body
  bugs/
    index.yaml               bugs list
    Bnnn-slug.todo
  ideas/
    index.yaml               ideas list
    Innn-slug.todo
  fixes/
    index.yaml               fixes list
    YYYY-MM/Fnnn-slug.todo   archived completed fixes

Task frontmatter keys: id, title, status, estimate_hours, complexity,
priority, depends_on, tags, claimed_by, reason, created_at, claimed_at,
started_at, completed_at. Unknown keys round-trip untouched.

Statuses: pending, in_progress, blocked, done.
Priorities: low, medium, high, critical. Complexity: low, medium, high.

Path IDs: P1, P1.M1, P1.M1.E1, P1.M1.E1.T001, B001, I001, F001.
Scopes accept an id, a prefix (P1.M1), or a wildcard tail (P1.*).`

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the on-disk layout reference",
	Long: `Print the on-disk layout reference.

Documents the directory convention, index formats, task frontmatter
keys, and the path id grammar.`,
	Run: func(cmd *cobra.Command, args []string) {
		if jsonOutput {
			outputJSON(map[string]string{"schema": schemaText})
			return
		}
		fmt.Println(schemaText)
	},
}

func init() {
	rootCmd.AddCommand(schemaCmd)
}
