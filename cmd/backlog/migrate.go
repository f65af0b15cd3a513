package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/mod/semver"

	"github.com/untoldecay/backlog/internal/frontmatter"
	"github.com/untoldecay/backlog/internal/types"
)

// currentSchemaVersion is the layout this build reads and writes.
const currentSchemaVersion = "v1"

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Upgrade an older tree layout in place",
	Long: `Upgrade an older tree layout in place.

Renames a legacy .backlog/ directory to .tasks/ (leaving a symlink
behind for older tooling), stamps schema_version on the root index, and
refuses to touch trees written by a newer schema.`,
	Run: func(cmd *cobra.Command, args []string) {
		cwd, err := os.Getwd()
		if err != nil {
			fatalf("getwd: %v", err)
		}
		var performed []string

		// Legacy directory name.
		legacy := filepath.Join(cwd, ".backlog")
		target := filepath.Join(cwd, ".tasks")
		if info, err := os.Lstat(legacy); err == nil && info.IsDir() && info.Mode()&os.ModeSymlink == 0 {
			if _, err := os.Stat(target); err == nil {
				fatalf("both .backlog and .tasks exist; resolve manually")
			}
			if err := os.Rename(legacy, target); err != nil {
				fatalError(types.Wrap(types.CodeIOError, err, "renaming .backlog: %v", err))
			}
			if err := os.Symlink(".tasks", legacy); err == nil {
				performed = append(performed, "renamed .backlog -> .tasks (symlink left behind)")
			} else {
				performed = append(performed, "renamed .backlog -> .tasks")
			}
		}

		dir := dataDir()
		var root frontmatter.RootIndex
		if err := frontmatter.ReadYAML(filepath.Join(dir, "index.yaml"), &root); err != nil {
			fatalError(err)
		}
		switch {
		case root.SchemaVersion == "":
			root.SchemaVersion = currentSchemaVersion
			if err := frontmatter.WriteYAML(filepath.Join(dir, "index.yaml"), root); err != nil {
				fatalError(err)
			}
			performed = append(performed, "stamped schema_version "+currentSchemaVersion)
		case semver.Compare(root.SchemaVersion, currentSchemaVersion) > 0:
			fatalError(types.E(types.CodeIOError,
				"tree written by newer schema %s; this build supports %s", root.SchemaVersion, currentSchemaVersion))
		}

		if jsonOutput {
			if performed == nil {
				performed = []string{}
			}
			outputJSON(map[string]any{"schema_version": root.SchemaVersion, "performed": performed})
			return
		}
		if len(performed) == 0 {
			fmt.Println("Already up to date.")
			return
		}
		for _, step := range performed {
			fmt.Println(step)
		}
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
