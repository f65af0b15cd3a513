// Package mutator applies lifecycle transitions to the on-disk tree under
// transactional rules: every operation stages the full set of rewrites in
// memory, then flushes atomically per file behind a commit lock. A failed
// precondition leaves the tree untouched.
package mutator

import (
	"bytes"
	"crypto/sha256"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/gofrs/flock"

	"github.com/untoldecay/backlog/internal/config"
	"github.com/untoldecay/backlog/internal/frontmatter"
	"github.com/untoldecay/backlog/internal/types"
)

const commitLockFile = ".commit.lock"

// Tx is one staged transaction. Paths are relative to the data dir.
type Tx struct {
	dataDir string
	staged  map[string][]byte
	guards  map[string][32]byte
	guarded map[string]bool
	// removals are files deleted after the writes land (moves).
	removals []string
	// rmdirs are directories removed after a successful flush when empty.
	rmdirs []string
}

func newTx(dataDir string) *Tx {
	return &Tx{
		dataDir: dataDir,
		staged:  map[string][]byte{},
		guards:  map[string][32]byte{},
		guarded: map[string]bool{},
	}
}

// Stage records new contents for a file.
func (tx *Tx) Stage(rel string, data []byte) {
	tx.staged[rel] = data
}

// StageYAML renders and stages a structured document.
func (tx *Tx) StageYAML(rel string, v any) error {
	data, err := frontmatter.MarshalYAML(v)
	if err != nil {
		return err
	}
	tx.Stage(rel, data)
	return nil
}

// Guard snapshots a file's current content hash. At commit time, under the
// lock, a guard whose file changed aborts the flush so the caller can
// reload and retry.
func (tx *Tx) Guard(rel string) {
	if tx.guarded[rel] {
		return
	}
	tx.guarded[rel] = true
	tx.guards[rel] = hashFile(filepath.Join(tx.dataDir, rel))
}

// Delete schedules a file removal, applied after all writes land.
func (tx *Tx) Delete(rel string) {
	tx.Guard(rel)
	tx.removals = append(tx.removals, rel)
}

// RemoveDirIfEmpty schedules a post-flush cleanup of a directory left
// empty by a move.
func (tx *Tx) RemoveDirIfEmpty(rel string) {
	tx.rmdirs = append(tx.rmdirs, rel)
}

var errConflict = types.E(types.CodeConcurrentModification,
	"tree changed while staging; transaction aborted")

// commit flushes every staged file. The commit lock serialises concurrent
// writers; guard verification inside the lock detects a tree that moved
// underneath the staging reads.
func (tx *Tx) commit() error {
	if len(tx.staged) == 0 && len(tx.removals) == 0 && len(tx.rmdirs) == 0 {
		return nil
	}
	lock := flock.New(filepath.Join(tx.dataDir, commitLockFile))
	deadline := time.Now().Add(config.LockTimeout())
	for {
		ok, err := lock.TryLock()
		if err != nil {
			return types.Wrap(types.CodeIOError, err, "acquiring commit lock: %v", err)
		}
		if ok {
			break
		}
		if time.Now().After(deadline) {
			return types.E(types.CodeIOError, "timed out waiting for commit lock")
		}
		time.Sleep(25 * time.Millisecond)
	}
	defer lock.Unlock()

	for rel, want := range tx.guards {
		if hashFile(filepath.Join(tx.dataDir, rel)) != want {
			return errConflict
		}
	}

	rels := make([]string, 0, len(tx.staged))
	for rel := range tx.staged {
		rels = append(rels, rel)
	}
	sort.Strings(rels)
	for _, rel := range rels {
		if err := frontmatter.WriteFileAtomic(filepath.Join(tx.dataDir, rel), tx.staged[rel]); err != nil {
			return err
		}
	}
	for _, rel := range tx.removals {
		if err := os.Remove(filepath.Join(tx.dataDir, rel)); err != nil && !os.IsNotExist(err) {
			return types.Wrap(types.CodeIOError, err, "removing %s: %v", rel, err)
		}
	}
	for _, rel := range tx.rmdirs {
		dir := filepath.Join(tx.dataDir, rel)
		entries, err := os.ReadDir(dir)
		if err == nil && len(entries) == 0 {
			_ = os.Remove(dir)
		}
	}
	return nil
}

func hashFile(path string) [32]byte {
	raw, err := os.ReadFile(path)
	if err != nil {
		return sha256.Sum256(nil)
	}
	return sha256.Sum256(bytes.TrimSpace(raw))
}
