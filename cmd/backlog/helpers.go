package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/untoldecay/backlog/internal/audit"
	"github.com/untoldecay/backlog/internal/config"
	"github.com/untoldecay/backlog/internal/mutator"
	"github.com/untoldecay/backlog/internal/resolver"
	"github.com/untoldecay/backlog/internal/session"
	"github.com/untoldecay/backlog/internal/tree"
	"github.com/untoldecay/backlog/internal/types"
)

// outputJSON writes a payload to stdout as indented JSON.
func outputJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

type jsonError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Hint    string `json:"hint,omitempty"`
}

// fatalError reports a failure and exits 1. In JSON mode the structured
// error object goes to stdout; the human message always goes to stderr.
func fatalError(err error) {
	if jsonOutput {
		outputJSON(map[string]jsonError{"error": {
			Code:    string(types.CodeOf(err)),
			Message: strings.SplitN(err.Error(), "\n", 2)[0],
			Hint:    types.HintOf(err),
		}})
	}
	fmt.Fprintf(os.Stderr, "Error: %s\n", err.Error())
	os.Exit(1)
}

// fatalf is fatalError for ad-hoc messages.
func fatalf(format string, args ...any) {
	fatalError(types.E(types.CodeIOError, format, args...))
}

// dataDir discovers the tree root or dies.
func dataDir() string {
	if dir := config.GetString("data-dir"); dir != "" {
		return dir
	}
	cwd, err := os.Getwd()
	if err != nil {
		fatalError(types.Wrap(types.CodeIOError, err, "getwd: %v", err))
	}
	dir, err := tree.Discover(cwd)
	if err != nil {
		fatalError(err)
	}
	return dir
}

// loadTree loads the graph or dies.
func loadTree() (*tree.Loaded, string) {
	dir := dataDir()
	loaded, err := tree.Load(dir)
	if err != nil {
		fatalError(err)
	}
	return loaded, dir
}

// compileScope merges positional IDs and --scope flags into one scope.
func compileScope(tr *types.Tree, positional []string) *resolver.Scope {
	patterns := append(append([]string{}, scopeFlags...), positional...)
	scope, err := resolver.CompileScope(tr, patterns)
	if err != nil {
		fatalError(err)
	}
	return scope
}

// actor resolves the agent identity from --agent, config, or environment.
func actor(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return config.Actor()
}

// newMutator builds the mutator for the discovered tree.
func newMutator() *mutator.Mutator {
	return mutator.New(dataDir())
}

// sessionStore opens the side-store for the discovered tree.
func sessionStore() *session.Store {
	return session.NewStore(dataDir())
}

// sessionStoreAt opens the side-store for a known data dir.
func sessionStoreAt(dir string) *session.Store {
	return session.NewStore(dir)
}

// logOp appends to the operations audit trail; advisory only.
func logOp(dir, kind, taskID, detail string, agent string) {
	audit.Append(dir, audit.Entry{Kind: kind, Actor: agent, TaskID: taskID, Detail: detail})
}

// splitIDList accepts both comma-joined and space-separated task ids.
func splitIDList(args []string) []string {
	var out []string
	for _, arg := range args {
		for _, part := range strings.Split(arg, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				out = append(out, trimmed)
			}
		}
	}
	return out
}

// splitCommaList parses a comma-separated flag value into a clean set.
func splitCommaList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return []string{}
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
