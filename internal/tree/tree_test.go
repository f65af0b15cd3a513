package tree

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/untoldecay/backlog/internal/types"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// seedMinimalTree builds the canonical fixture: P1/M1/E1 with T001 (1h)
// and T002 (2h, depends on T001).
func seedMinimalTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	dataDir := filepath.Join(root, ".tasks")

	writeFile(t, filepath.Join(dataDir, "index.yaml"), `project: Demo
schema_version: v1
phases:
  - id: P1
    name: Foundation
    path: 01-foundation
critical_path: []
next_available: ""
`)
	writeFile(t, filepath.Join(dataDir, "01-foundation", "index.yaml"), `name: Foundation
milestones:
  - id: M1
    name: Core
    path: 01-core
`)
	writeFile(t, filepath.Join(dataDir, "01-foundation", "01-core", "index.yaml"), `name: Core
epics:
  - id: E1
    name: Engine
    path: 01-engine
`)
	writeFile(t, filepath.Join(dataDir, "01-foundation", "01-core", "01-engine", "index.yaml"), `name: Engine
tasks:
  - id: T001
    title: A
    status: pending
    estimate_hours: 1
    complexity: medium
    priority: medium
    depends_on: []
    tags: []
    file: T001-a.todo
  - id: T002
    title: B
    status: pending
    estimate_hours: 2
    complexity: medium
    priority: medium
    depends_on:
      - P1.M1.E1.T001
    tags: []
    file: T002-b.todo
`)
	writeFile(t, filepath.Join(dataDir, "01-foundation", "01-core", "01-engine", "T001-a.todo"), `---
id: P1.M1.E1.T001
title: A
status: pending
estimate_hours: 1
complexity: medium
priority: medium
depends_on: []
tags: []
---
Task A body.
`)
	writeFile(t, filepath.Join(dataDir, "01-foundation", "01-core", "01-engine", "T002-b.todo"), `---
id: P1.M1.E1.T002
title: B
status: pending
estimate_hours: 2
complexity: medium
priority: medium
depends_on:
  - P1.M1.E1.T001
tags: []
---
Task B body.
`)
	return dataDir
}

func TestDiscoverWalksUp(t *testing.T) {
	dataDir := seedMinimalTree(t)
	nested := filepath.Join(filepath.Dir(dataDir), "src", "deep")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}
	found, err := Discover(nested)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if found != dataDir {
		t.Errorf("Discover = %s, expected %s", found, dataDir)
	}
}

func TestDiscoverNotInitialised(t *testing.T) {
	_, err := Discover(t.TempDir())
	if err == nil {
		t.Fatal("expected error")
	}
	if types.CodeOf(err) != types.CodeNotInitialised {
		t.Errorf("code = %v", types.CodeOf(err))
	}
}

func TestDiscoverAcceptsBacklogDir(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, ".backlog"), 0o755); err != nil {
		t.Fatal(err)
	}
	found, err := Discover(root)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if filepath.Base(found) != ".backlog" {
		t.Errorf("found = %s", found)
	}
}

func TestLoadMinimalTree(t *testing.T) {
	dataDir := seedMinimalTree(t)
	loaded, err := Load(dataDir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	tr := loaded.Tree
	if tr.Project != "Demo" {
		t.Errorf("project = %q", tr.Project)
	}
	if len(tr.Phases) != 1 || len(tr.Phases[0].Milestones) != 1 {
		t.Fatalf("structure: %+v", tr.Phases)
	}
	epic := tr.FindEpic("P1.M1.E1")
	if epic == nil || len(epic.Tasks) != 2 {
		t.Fatalf("epic tasks missing")
	}
	if epic.Tasks[0].ID != "P1.M1.E1.T001" || epic.Tasks[1].ID != "P1.M1.E1.T002" {
		t.Errorf("task ids: %s, %s", epic.Tasks[0].ID, epic.Tasks[1].ID)
	}
	task := tr.FindTask("P1.M1.E1.T002")
	if task == nil || len(task.DependsOn) != 1 || task.DependsOn[0] != "P1.M1.E1.T001" {
		t.Errorf("T002 deps: %+v", task)
	}
	if task.Body != "Task B body.\n" {
		t.Errorf("body = %q", task.Body)
	}
	if len(loaded.Problems) != 0 {
		t.Errorf("unexpected problems: %+v", loaded.Problems)
	}
}

func TestLoadRecordsStatusMismatch(t *testing.T) {
	dataDir := seedMinimalTree(t)
	// Index says pending; flip the file to done.
	path := filepath.Join(dataDir, "01-foundation", "01-core", "01-engine", "T001-a.todo")
	writeFile(t, path, `---
id: P1.M1.E1.T001
title: A
status: done
estimate_hours: 1
depends_on: []
tags: []
---
`)
	loaded, err := Load(dataDir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	found := false
	for _, p := range loaded.Problems {
		if p.Kind == "status_mismatch_with_index" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected status_mismatch_with_index, got %+v", loaded.Problems)
	}
	// The file wins.
	if got := loaded.Tree.FindTask("P1.M1.E1.T001").Status; got != types.StatusDone {
		t.Errorf("status = %v", got)
	}
}

func TestLoadRecordsOrphanFile(t *testing.T) {
	dataDir := seedMinimalTree(t)
	writeFile(t, filepath.Join(dataDir, "01-foundation", "01-core", "01-engine", "T099-stray.todo"), `---
id: P1.M1.E1.T099
title: Stray
status: pending
---
`)
	loaded, err := Load(dataDir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	found := false
	for _, p := range loaded.Problems {
		if p.Kind == "orphan_file" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected orphan_file, got %+v", loaded.Problems)
	}
}

func TestLoadRecordsMalformedTaskFile(t *testing.T) {
	dataDir := seedMinimalTree(t)
	writeFile(t, filepath.Join(dataDir, "01-foundation", "01-core", "01-engine", "T001-a.todo"),
		"no envelope at all\n")
	loaded, err := Load(dataDir)
	if err != nil {
		t.Fatalf("Load should tolerate a malformed task file: %v", err)
	}
	found := false
	for _, p := range loaded.Problems {
		if p.Kind == "malformed_frontmatter" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected malformed_frontmatter, got %+v", loaded.Problems)
	}
	// Entry data still loads from the index.
	if task := loaded.Tree.FindTask("P1.M1.E1.T001"); task == nil || task.Title != "A" {
		t.Errorf("fallback task missing: %+v", task)
	}
}

func TestLoadAuxBuckets(t *testing.T) {
	dataDir := seedMinimalTree(t)
	writeFile(t, filepath.Join(dataDir, "bugs", "index.yaml"), `bugs:
  - id: B002
    title: Later bug
    status: pending
    estimate_hours: 1
    depends_on: []
    tags: []
    file: B002-later.todo
  - id: B001
    title: First bug
    status: pending
    estimate_hours: 1
    depends_on: []
    tags: []
    file: B001-first.todo
`)
	writeFile(t, filepath.Join(dataDir, "bugs", "B001-first.todo"), "---\nid: B001\ntitle: First bug\nstatus: pending\nestimate_hours: 1\n---\n")
	writeFile(t, filepath.Join(dataDir, "bugs", "B002-later.todo"), "---\nid: B002\ntitle: Later bug\nstatus: pending\nestimate_hours: 1\n---\n")

	loaded, err := Load(dataDir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded.Tree.Bugs) != 2 {
		t.Fatalf("bugs = %d", len(loaded.Tree.Bugs))
	}
	// Numeric order regardless of index order.
	if loaded.Tree.Bugs[0].ID != "B001" || loaded.Tree.Bugs[1].ID != "B002" {
		t.Errorf("bug order: %s, %s", loaded.Tree.Bugs[0].ID, loaded.Tree.Bugs[1].ID)
	}
}

func TestDerivedContainerStatus(t *testing.T) {
	dataDir := seedMinimalTree(t)
	loaded, err := Load(dataDir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	phase := &loaded.Tree.Phases[0]
	if got := PhaseStatus(phase); got != types.StatusPending {
		t.Errorf("derived phase status = %v", got)
	}
	stats := PhaseStats(phase)
	if stats.Total != 2 || stats.Done != 0 {
		t.Errorf("stats = %+v", stats)
	}
}
