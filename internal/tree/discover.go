// Package tree loads the on-disk backlog into an in-memory graph. The
// filesystem is the canonical store; a Tree value is a read snapshot that
// resolvers query and mutators stage rewrites against.
package tree

import (
	"os"
	"path/filepath"

	"github.com/untoldecay/backlog/internal/types"
)

// Candidate data directory names, checked in order; first found wins.
var dataDirNames = []string{".tasks", ".backlog"}

// Discover walks up from startDir looking for a data directory.
func Discover(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", types.Wrap(types.CodeIOError, err, "resolving %s: %v", startDir, err)
	}
	for {
		for _, name := range dataDirNames {
			candidate := filepath.Join(dir, name)
			if info, err := os.Stat(candidate); err == nil && info.IsDir() {
				return candidate, nil
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", types.E(types.CodeNotInitialised,
				"no .tasks or .backlog directory found (run 'backlog init' first)")
		}
		dir = parent
	}
}
