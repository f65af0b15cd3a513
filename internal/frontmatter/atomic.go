package frontmatter

import (
	"os"
	"path/filepath"

	"github.com/untoldecay/backlog/internal/types"
)

// WriteFileAtomic writes data to path via a sibling temp file, fsync, and
// rename. A reader never observes a partially written file.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return types.Wrap(types.CodeIOError, err, "creating %s: %v", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return types.Wrap(types.CodeIOError, err, "creating temp file in %s: %v", dir, err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		tmp.Close()
		os.Remove(tmpName)
	}
	if _, err := tmp.Write(data); err != nil {
		cleanup()
		return types.Wrap(types.CodeIOError, err, "writing %s: %v", path, err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return types.Wrap(types.CodeIOError, err, "syncing %s: %v", path, err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		cleanup()
		return types.Wrap(types.CodeIOError, err, "chmod %s: %v", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return types.Wrap(types.CodeIOError, err, "closing temp for %s: %v", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return types.Wrap(types.CodeIOError, err, "renaming into %s: %v", path, err)
	}
	return nil
}
