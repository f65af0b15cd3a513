package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/untoldecay/backlog/internal/frontmatter"
)

const workflowSkill = `# Backlog workflow

Work the tree with short, verifiable steps:

1. backlog next            -> see the single best task
2. backlog grab            -> claim it (bugs may batch)
3. work; backlog session heartbeat "progress note"
4. backlog done <id>       -> complete; cascades containers
   backlog cycle <id>      -> complete and grab the next one
5. backlog blocked <id> --reason "..." --grab   when stuck

Rules of the road:
- Never edit index.yaml by hand; use the commands.
- Claim before editing a task's subject matter.
- Run backlog check before ending a session.
`

const agentGuide = `# Agent guide

You are one of several agents sharing this backlog. The filesystem is
the source of truth; every command re-reads it, so coordination happens
through claims, not memory.

- backlog preview shows parallel-safe fan-outs per row; only claim ids
  listed together.
- A locked phase is closed: do not force work into it, create the next
  phase instead.
- Timestamps are UTC ISO-8601. Estimates are hours.
`

var skillsCmd = &cobra.Command{
	Use:   "skills",
	Short: "Manage workflow skill documents",
	Long: `Manage workflow skill documents.

skills install writes the backlog workflow guide into the project so
coding agents can pick it up.`,
}

var skillsInstallCmd = &cobra.Command{
	Use:   "install",
	Short: "Write the workflow skill files",
	Long: `Write the workflow skill files.

Emits skills/backlog-workflow.md and skills/agent-guide.md under the
data dir. Existing files are overwritten.`,
	Run: func(cmd *cobra.Command, args []string) {
		dir := dataDir()
		files := map[string]string{
			filepath.Join(dir, "skills", "backlog-workflow.md"): workflowSkill,
			filepath.Join(dir, "skills", "agent-guide.md"):      agentGuide,
		}
		var written []string
		for path, content := range files {
			if err := frontmatter.WriteFileAtomic(path, []byte(content)); err != nil {
				fatalError(err)
			}
			written = append(written, path)
		}
		if jsonOutput {
			outputJSON(map[string]any{"installed": written})
			return
		}
		for _, path := range written {
			fmt.Printf("Wrote %s\n", path)
		}
	},
}

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "Print the multi-agent coordination guide",
	Long: `Print the multi-agent coordination guide.

The short contract agents follow when sharing one tree: claim before
working, heartbeat while working, never bypass locks.`,
	Run: func(cmd *cobra.Command, args []string) {
		if jsonOutput {
			outputJSON(map[string]string{"guide": agentGuide})
			return
		}
		fmt.Print(agentGuide)
	},
}

var howtoCmd = &cobra.Command{
	Use:   "howto",
	Short: "Print the quick workflow walkthrough",
	Long: `Print the quick workflow walkthrough.

The grab -> work -> done loop with the commands to run at each step.`,
	Run: func(cmd *cobra.Command, args []string) {
		if jsonOutput {
			outputJSON(map[string]string{"howto": workflowSkill})
			return
		}
		fmt.Print(workflowSkill)
	},
}

func init() {
	skillsCmd.AddCommand(skillsInstallCmd)
	rootCmd.AddCommand(skillsCmd, agentsCmd, howtoCmd)
}
