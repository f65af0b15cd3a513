package check

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/untoldecay/backlog/internal/session"
	"github.com/untoldecay/backlog/internal/tree"
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

func seedTree(t *testing.T) string {
	t.Helper()
	dataDir := filepath.Join(t.TempDir(), ".tasks")
	writeFile(t, filepath.Join(dataDir, "index.yaml"), `project: Demo
phases:
  - id: P1
    name: Foundation
    path: 01-foundation
critical_path: []
next_available: ""
`)
	writeFile(t, filepath.Join(dataDir, "01-foundation", "index.yaml"), `milestones:
  - id: M1
    name: Core
    path: 01-core
`)
	writeFile(t, filepath.Join(dataDir, "01-foundation", "01-core", "index.yaml"), `epics:
  - id: E1
    name: Engine
    path: 01-engine
`)
	writeFile(t, filepath.Join(dataDir, "01-foundation", "01-core", "01-engine", "index.yaml"), `tasks:
  - id: T001
    title: A
    status: pending
    estimate_hours: 1
    depends_on: []
    tags: []
    file: T001-a.todo
`)
	writeFile(t, filepath.Join(dataDir, "01-foundation", "01-core", "01-engine", "T001-a.todo"), `---
id: P1.M1.E1.T001
title: A
status: pending
estimate_hours: 1
depends_on: []
tags: []
---
Real content, no placeholders.
`)
	return dataDir
}

func runCheck(t *testing.T, dataDir string) *Report {
	t.Helper()
	loaded, err := tree.Load(dataDir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return Run(loaded, session.NewStore(dataDir), 30*time.Minute, time.Now())
}

func hasKind(r *Report, kind string) bool {
	for _, f := range r.Findings {
		if f.Kind == kind {
			return true
		}
	}
	return false
}

func TestCleanTreePasses(t *testing.T) {
	r := runCheck(t, seedTree(t))
	if !r.OK || r.Errors != 0 {
		t.Errorf("report = %+v", r)
	}
}

func TestMissingDependencyIsError(t *testing.T) {
	dataDir := seedTree(t)
	writeFile(t, filepath.Join(dataDir, "01-foundation", "01-core", "01-engine", "T001-a.todo"), `---
id: P1.M1.E1.T001
title: A
status: pending
estimate_hours: 1
depends_on:
  - P9.M9.E9.T999
tags: []
---
Real content.
`)
	r := runCheck(t, dataDir)
	if r.OK || !hasKind(r, "missing_task_dependency") {
		t.Errorf("report = %+v", r)
	}
}

func TestPendingTaskWithClaimIsError(t *testing.T) {
	dataDir := seedTree(t)
	writeFile(t, filepath.Join(dataDir, "01-foundation", "01-core", "01-engine", "T001-a.todo"), `---
id: P1.M1.E1.T001
title: A
status: pending
estimate_hours: 1
claimed_by: ghost-agent
claimed_at: "2026-01-01T00:00:00Z"
depends_on: []
tags: []
---
Real content.
`)
	r := runCheck(t, dataDir)
	if !hasKind(r, "pending_task_with_claim") {
		t.Errorf("report = %+v", r)
	}
	if r.OK {
		t.Error("claim violation must fail the check")
	}
}

func TestZeroEstimateIsWarning(t *testing.T) {
	dataDir := seedTree(t)
	writeFile(t, filepath.Join(dataDir, "01-foundation", "01-core", "01-engine", "T001-a.todo"), `---
id: P1.M1.E1.T001
title: A
status: pending
estimate_hours: 0
depends_on: []
tags: []
---
Real content.
`)
	r := runCheck(t, dataDir)
	if !hasKind(r, "zero_estimate_hours") {
		t.Errorf("report = %+v", r)
	}
	if !r.OK {
		t.Error("warnings alone must not fail the default check")
	}
}

func TestUninitializedTodoIsWarning(t *testing.T) {
	dataDir := seedTree(t)
	writeFile(t, filepath.Join(dataDir, "01-foundation", "01-core", "01-engine", "T001-a.todo"), `---
id: P1.M1.E1.T001
title: A
status: pending
estimate_hours: 1
depends_on: []
tags: []
---
## Requirements

TODO: Add requirements/acceptance criteria
`)
	r := runCheck(t, dataDir)
	if !hasKind(r, "uninitialized_todo") {
		t.Errorf("report = %+v", r)
	}
}

func TestStaleContextIsWarning(t *testing.T) {
	dataDir := seedTree(t)
	writeFile(t, filepath.Join(dataDir, ".context.yaml"), `task_id: P9.M9.E9.T999
`)
	r := runCheck(t, dataDir)
	if !hasKind(r, "stale_context") {
		t.Errorf("report = %+v", r)
	}
	if !r.OK {
		t.Error("stale context is a warning, not an error")
	}
}

func TestStaleSessionIsWarning(t *testing.T) {
	dataDir := seedTree(t)
	store := session.NewStore(dataDir)
	old := time.Now().Add(-2 * time.Hour)
	if _, err := store.Start("sleepy-agent", "", old); err != nil {
		t.Fatal(err)
	}
	r := runCheck(t, dataDir)
	if !hasKind(r, "stale_session") {
		t.Errorf("report = %+v", r)
	}
}

func TestCyclicDependencyIsError(t *testing.T) {
	dataDir := seedTree(t)
	writeFile(t, filepath.Join(dataDir, "01-foundation", "01-core", "01-engine", "index.yaml"), `tasks:
  - id: T001
    title: A
    status: pending
    estimate_hours: 1
    depends_on: [P1.M1.E1.T002]
    tags: []
    file: T001-a.todo
  - id: T002
    title: B
    status: pending
    estimate_hours: 1
    depends_on: [P1.M1.E1.T001]
    tags: []
    file: T002-b.todo
`)
	writeFile(t, filepath.Join(dataDir, "01-foundation", "01-core", "01-engine", "T001-a.todo"), `---
id: P1.M1.E1.T001
title: A
status: pending
estimate_hours: 1
depends_on:
  - P1.M1.E1.T002
tags: []
---
x
`)
	writeFile(t, filepath.Join(dataDir, "01-foundation", "01-core", "01-engine", "T002-b.todo"), `---
id: P1.M1.E1.T002
title: B
status: pending
estimate_hours: 1
depends_on:
  - P1.M1.E1.T001
tags: []
---
x
`)
	r := runCheck(t, dataDir)
	if r.OK || !hasKind(r, "cyclic_dependency") {
		t.Errorf("report = %+v", r)
	}
}

func TestDoneEpicOverUnfinishedTasksIsError(t *testing.T) {
	dataDir := seedTree(t)
	writeFile(t, filepath.Join(dataDir, "01-foundation", "01-core", "index.yaml"), `epics:
  - id: E1
    name: Engine
    path: 01-engine
    status: done
`)
	r := runCheck(t, dataDir)
	if !hasKind(r, "status_mismatch_with_index") {
		t.Errorf("report = %+v", r)
	}
}
