package resolver

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/untoldecay/backlog/internal/types"
)

// buildTree assembles the canonical fixture in memory: P1/M1/E1 with
// T001 (1h) and T002 (2h, depends on T001).
func buildTree() *types.Tree {
	t1 := types.Task{
		ID: "P1.M1.E1.T001", Title: "A", Status: types.StatusPending,
		EstimateHours: 1, Complexity: types.ComplexityMedium, Priority: types.PriorityMedium,
		PhaseID: "P1", MilestoneID: "P1.M1", EpicID: "P1.M1.E1",
		File: "01-foundation/01-core/01-engine/T001-a.todo",
	}
	t2 := t1
	t2.ID = "P1.M1.E1.T002"
	t2.Title = "B"
	t2.EstimateHours = 2
	t2.DependsOn = []string{"P1.M1.E1.T001"}
	t2.File = "01-foundation/01-core/01-engine/T002-b.todo"

	return &types.Tree{
		Project: "Demo",
		Phases: []types.Phase{{
			ID: "P1", Name: "Foundation", Path: "01-foundation",
			Milestones: []types.Milestone{{
				ID: "P1.M1", Name: "Core", Path: "01-core", PhaseID: "P1",
				Epics: []types.Epic{{
					ID: "P1.M1.E1", Name: "Engine", Path: "01-engine",
					MilestoneID: "P1.M1", PhaseID: "P1",
					Tasks: []types.Task{t1, t2},
				}},
			}},
		}},
	}
}

func addBug(tr *types.Tree, id, title string, priority types.Priority) {
	tr.Bugs = append(tr.Bugs, types.Task{
		ID: id, Title: title, Status: types.StatusPending,
		EstimateHours: 1, Priority: priority,
		File: "bugs/" + id + ".todo",
	})
}

func TestAvailabilityRespectsDependencies(t *testing.T) {
	tr := buildTree()
	res := New(tr)
	available := res.FindAllAvailable()
	if len(available) != 1 || available[0] != "P1.M1.E1.T001" {
		t.Fatalf("available = %v", available)
	}

	tr.FindTask("P1.M1.E1.T001").Status = types.StatusDone
	available = New(tr).FindAllAvailable()
	if len(available) != 1 || available[0] != "P1.M1.E1.T002" {
		t.Fatalf("after completion available = %v", available)
	}
}

func TestAvailabilityMonotonicUnderCompletion(t *testing.T) {
	tr := buildTree()
	before := len(New(tr).FindAllAvailable())
	tr.FindTask("P1.M1.E1.T001").Status = types.StatusDone
	after := len(New(tr).FindAllAvailable())
	if after < before {
		t.Errorf("availability shrank: %d -> %d", before, after)
	}
}

func TestLockedAncestorBlocksAvailability(t *testing.T) {
	tr := buildTree()
	tr.Phases[0].Locked = true
	if got := New(tr).FindAllAvailable(); len(got) != 0 {
		t.Errorf("locked phase still yields %v", got)
	}
}

func TestImplicitSequentialDependency(t *testing.T) {
	tr := buildTree()
	// Drop T002's explicit dependency; order in the epic still gates it.
	tr.FindTask("P1.M1.E1.T002").DependsOn = nil
	available := New(tr).FindAllAvailable()
	if len(available) != 1 || available[0] != "P1.M1.E1.T001" {
		t.Fatalf("available = %v", available)
	}
}

func TestCriticalPathFollowsDependencyChain(t *testing.T) {
	tr := buildTree()
	cp, err := New(tr).CriticalPath()
	if err != nil {
		t.Fatalf("CriticalPath: %v", err)
	}
	if diff := cmp.Diff([]string{"P1.M1.E1.T001", "P1.M1.E1.T002"}, cp); diff != "" {
		t.Errorf("critical path mismatch (-want +got):\n%s", diff)
	}
}

func TestCriticalPathIsSimplePath(t *testing.T) {
	tr := buildTree()
	addBug(tr, "B001", "Unrelated", types.PriorityLow)
	cp, err := New(tr).CriticalPath()
	if err != nil {
		t.Fatalf("CriticalPath: %v", err)
	}
	seen := map[string]bool{}
	for _, id := range cp {
		if seen[id] {
			t.Fatalf("repeated node %s in %v", id, cp)
		}
		seen[id] = true
	}
}

func TestCycleDetection(t *testing.T) {
	tr := buildTree()
	tr.FindTask("P1.M1.E1.T001").DependsOn = []string{"P1.M1.E1.T002"}
	_, err := New(tr).CriticalPath()
	if err == nil {
		t.Fatal("expected cycle error")
	}
	if types.CodeOf(err) != types.CodeDependencyCycle {
		t.Errorf("code = %v", types.CodeOf(err))
	}
}

func TestNextAvailablePrefersCriticalBug(t *testing.T) {
	tr := buildTree()
	addBug(tr, "B001", "Critical Bug", types.PriorityCritical)
	next, err := New(tr).NextAvailable()
	if err != nil {
		t.Fatalf("NextAvailable: %v", err)
	}
	if next != "B001" {
		t.Errorf("next = %q, expected B001", next)
	}
}

func TestNextAvailableEmptyWhenNothingPending(t *testing.T) {
	tr := buildTree()
	tr.FindTask("P1.M1.E1.T001").Status = types.StatusDone
	tr.FindTask("P1.M1.E1.T002").Status = types.StatusDone
	next, err := New(tr).NextAvailable()
	if err != nil {
		t.Fatalf("NextAvailable: %v", err)
	}
	if next != "" {
		t.Errorf("next = %q, expected empty", next)
	}
}

func TestPrioritizeBugsBeforeTasksBeforeIdeas(t *testing.T) {
	tr := buildTree()
	addBug(tr, "B001", "Bug", types.PriorityMedium)
	tr.Ideas = append(tr.Ideas, types.Task{
		ID: "I001", Title: "Idea", Status: types.StatusPending, EstimateHours: 1,
		Priority: types.PriorityCritical, File: "ideas/I001.todo",
	})
	res := New(tr)
	ranked := res.Prioritize([]string{"I001", "P1.M1.E1.T001", "B001"}, nil)
	want := []string{"B001", "P1.M1.E1.T001", "I001"}
	for i, id := range want {
		if ranked[i] != id {
			t.Fatalf("ranked = %v, expected %v", ranked, want)
		}
	}
}

func TestPrioritizeEqualBugsLexical(t *testing.T) {
	tr := buildTree()
	addBug(tr, "B002", "Two", types.PriorityMedium)
	addBug(tr, "B001", "One", types.PriorityMedium)
	addBug(tr, "B003", "Three", types.PriorityMedium)
	ranked := New(tr).Prioritize([]string{"B002", "B003", "B001"}, nil)
	if diff := cmp.Diff([]string{"B001", "B002", "B003"}, ranked); diff != "" {
		t.Fatalf("ranking mismatch (-want +got):\n%s", diff)
	}
}

func TestPrioritizeQuickWinsOnEqualFooting(t *testing.T) {
	tr := buildTree()
	addBug(tr, "B001", "Slow", types.PriorityMedium)
	addBug(tr, "B002", "Fast", types.PriorityMedium)
	tr.Bugs[0].EstimateHours = 5
	tr.Bugs[1].EstimateHours = 0.5
	ranked := New(tr).Prioritize([]string{"B001", "B002"}, nil)
	if ranked[0] != "B002" {
		t.Errorf("ranked = %v, expected quick win first", ranked)
	}
}

func TestFanOutPairwiseIndependent(t *testing.T) {
	tr := buildTree()
	addBug(tr, "B001", "One", types.PriorityMedium)
	addBug(tr, "B002", "Two", types.PriorityMedium)
	addBug(tr, "B003", "Three", types.PriorityMedium)
	// B003 depends on B001 and must not ride along with it.
	tr.Bugs[2].DependsOn = []string{"B001"}

	extra, err := New(tr).FanOut("B001", 2)
	if err != nil {
		t.Fatalf("FanOut: %v", err)
	}
	if len(extra) != 1 || extra[0] != "B002" {
		t.Errorf("fan-out = %v, expected [B002]", extra)
	}
}

func TestFanOutSameKindOnly(t *testing.T) {
	tr := buildTree()
	addBug(tr, "B001", "One", types.PriorityMedium)
	extra, err := New(tr).FanOut("P1.M1.E1.T001", 3)
	if err != nil {
		t.Fatalf("FanOut: %v", err)
	}
	for _, id := range extra {
		if id == "B001" {
			t.Errorf("bug leaked into task fan-out: %v", extra)
		}
	}
}

func TestScopeFilterAndNoMatch(t *testing.T) {
	tr := buildTree()
	scope, err := CompileScope(tr, []string{"P1.M1"})
	if err != nil {
		t.Fatalf("CompileScope: %v", err)
	}
	if !scope.Contains("P1.M1.E1.T001") {
		t.Error("P1.M1 should contain its task")
	}
	if scope.Contains("B001") {
		t.Error("scope should not contain B001")
	}
	_, err = CompileScope(tr, []string{"P9.M9"})
	if err == nil {
		t.Fatal("expected no-match error")
	}
	if types.CodeOf(err) != types.CodeNoMatchScope {
		t.Errorf("code = %v", types.CodeOf(err))
	}
}

func TestPreviewShape(t *testing.T) {
	tr := buildTree()
	addBug(tr, "B001", "Critical Bug", types.PriorityCritical)
	preview, err := New(tr).BuildPreview(nil)
	if err != nil {
		t.Fatalf("BuildPreview: %v", err)
	}
	if preview.Next != "B001" {
		t.Errorf("next = %q", preview.Next)
	}
	if len(preview.Bugs) != 1 || preview.Bugs[0].ID != "B001" {
		t.Errorf("bugs = %+v", preview.Bugs)
	}
	if len(preview.Tasks) != 1 || preview.Tasks[0].ID != "P1.M1.E1.T001" {
		t.Errorf("tasks = %+v", preview.Tasks)
	}
	if len(preview.Tasks[0].Parallel) > 3 {
		t.Errorf("parallel overflow: %+v", preview.Tasks[0].Parallel)
	}
}

func TestRootBlockers(t *testing.T) {
	tr := buildTree()
	reports, err := New(tr).RootBlockers()
	if err != nil {
		t.Fatalf("RootBlockers: %v", err)
	}
	if len(reports) != 1 || reports[0].ID != "P1.M1.E1.T001" {
		t.Fatalf("reports = %+v", reports)
	}
	if reports[0].BlocksCount != 1 || reports[0].BlockedIDs[0] != "P1.M1.E1.T002" {
		t.Errorf("blocked = %+v", reports[0])
	}
	if !reports[0].ReadyToStart {
		t.Error("T001 should be ready")
	}
}

func TestEpicLevelDependencyGatesTasks(t *testing.T) {
	tr := buildTree()
	// Second epic whose only task depends on the whole first epic.
	ms := &tr.Phases[0].Milestones[0]
	ms.Epics = append(ms.Epics, types.Epic{
		ID: "P1.M1.E2", Name: "Follow-up", Path: "02-follow-up",
		MilestoneID: "P1.M1", PhaseID: "P1",
		Tasks: []types.Task{{
			ID: "P1.M1.E2.T001", Title: "C", Status: types.StatusPending,
			EstimateHours: 1, DependsOn: []string{"P1.M1.E1"},
			PhaseID: "P1", MilestoneID: "P1.M1", EpicID: "P1.M1.E2",
			File: "01-foundation/01-core/02-follow-up/T001-c.todo",
		}},
	})
	res := New(tr)
	for _, id := range res.FindAllAvailable() {
		if id == "P1.M1.E2.T001" {
			t.Fatal("task gated by unfinished epic should not be available")
		}
	}
	tr.FindTask("P1.M1.E1.T001").Status = types.StatusDone
	tr.FindTask("P1.M1.E1.T002").Status = types.StatusDone
	found := false
	for _, id := range New(tr).FindAllAvailable() {
		if id == "P1.M1.E2.T001" {
			found = true
		}
	}
	if !found {
		t.Error("task should become available once the epic is done")
	}
}
