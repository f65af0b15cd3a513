package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/untoldecay/backlog/internal/config"
)

// jsonOutput mirrors the --json persistent flag (or BACKLOG_JSON).
var jsonOutput bool

// scopeFlags collects the repeatable --scope patterns.
var scopeFlags []string

var rootCmd = &cobra.Command{
	Use:   "backlog",
	Short: "Filesystem-backed hierarchical backlog for coding agents",
	Long: `backlog coordinates work across a four-level hierarchy
(Phase > Milestone > Epic > Task) plus flat bug and idea queues, all
stored as human-readable files under .tasks/ (or .backlog/).

The tree on disk is the source of truth. Commands load it, derive
scheduling decisions (next, preview, blockers), and mutate task files
under transactional rules (claim, done, blocked, move).`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		_ = config.Initialize()
		if !cmd.Flags().Changed("json") && config.GetBool("json") {
			jsonOutput = true
		}
	},
}

const commandHelpTemplate = `Command Help: backlog {{.Name}}
Usage: {{.UseLine}}

{{.Long}}{{if .HasAvailableSubCommands}}

Subcommands:{{range .Commands}}{{if .IsAvailableCommand}}
  {{rpad .Name .NamePadding}} {{.Short}}{{end}}{{end}}{{end}}{{if .HasAvailableLocalFlags}}

Options:
{{.LocalFlags.FlagUsages}}{{end}}{{if .HasAvailableInheritedFlags}}
Global options:
{{.InheritedFlags.FlagUsages}}{{end}}`

// Execute runs the CLI. Operational failures print and exit inside the
// commands via fatalError; what reaches here is argument-level misuse.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Structured JSON output")
	rootCmd.PersistentFlags().StringArrayVar(&scopeFlags, "scope", nil, "Restrict to a path scope (repeatable, e.g. P1.M1 or P1.*)")
	rootCmd.SetHelpTemplate(commandHelpTemplate)
}
