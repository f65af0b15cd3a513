package types

import "testing"

func TestValidateStatusTransition(t *testing.T) {
	allowed := []struct{ from, to Status }{
		{StatusPending, StatusInProgress},
		{StatusPending, StatusBlocked},
		{StatusInProgress, StatusDone},
		{StatusInProgress, StatusPending},
		{StatusInProgress, StatusBlocked},
		{StatusBlocked, StatusPending},
		{StatusBlocked, StatusInProgress},
		{StatusDone, StatusPending},
		{StatusDone, StatusDone},
	}
	for _, tc := range allowed {
		if err := ValidateStatusTransition(tc.from, tc.to); err != nil {
			t.Errorf("%s -> %s should be allowed: %v", tc.from, tc.to, err)
		}
	}
	denied := []struct{ from, to Status }{
		{StatusPending, StatusDone},
		{StatusBlocked, StatusDone},
		{StatusDone, StatusInProgress},
		{StatusDone, StatusBlocked},
	}
	for _, tc := range denied {
		if err := ValidateStatusTransition(tc.from, tc.to); err == nil {
			t.Errorf("%s -> %s should be rejected", tc.from, tc.to)
		}
	}
}

func TestParseHelpers(t *testing.T) {
	if _, err := ParseStatus("in_progress"); err != nil {
		t.Error(err)
	}
	if _, err := ParseStatus("unknown"); err == nil {
		t.Error("unknown status accepted")
	}
	if p, err := ParsePriority("CRITICAL"); err != nil || p != PriorityCritical {
		t.Errorf("priority = %v, %v", p, err)
	}
	if _, err := ParseComplexity("extreme"); err == nil {
		t.Error("bad complexity accepted")
	}
}

func TestPriorityRank(t *testing.T) {
	if !(PriorityCritical.Rank() < PriorityHigh.Rank() &&
		PriorityHigh.Rank() < PriorityMedium.Rank() &&
		PriorityMedium.Rank() < PriorityLow.Rank()) {
		t.Error("priority ranks out of order")
	}
}

func TestLockedAncestor(t *testing.T) {
	task := Task{ID: "P1.M1.E1.T001", PhaseID: "P1", MilestoneID: "P1.M1", EpicID: "P1.M1.E1"}
	tr := &Tree{Phases: []Phase{{
		ID: "P1",
		Milestones: []Milestone{{
			ID: "P1.M1", PhaseID: "P1",
			Epics: []Epic{{ID: "P1.M1.E1", MilestoneID: "P1.M1", PhaseID: "P1", Tasks: []Task{task}}},
		}},
	}}}
	got := tr.FindTask("P1.M1.E1.T001")
	if tr.LockedAncestor(got) != "" {
		t.Error("nothing locked yet")
	}
	tr.Phases[0].Locked = true
	if tr.LockedAncestor(got) != "P1" {
		t.Error("locked phase not reported")
	}
	tr.Phases[0].Milestones[0].Epics[0].Locked = true
	if tr.LockedAncestor(got) != "P1.M1.E1" {
		t.Error("nearest locked container should win")
	}
}
