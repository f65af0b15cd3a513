package tree

import "github.com/untoldecay/backlog/internal/types"

// Container status on disk is optional; when absent it derives from the
// descendants: done when every task is done, in_progress when any task has
// started, pending otherwise. An explicit status wins.

// EpicStatus resolves an epic's effective status.
func EpicStatus(e *types.Epic) types.Status {
	if e.Status != "" {
		return e.Status
	}
	return deriveFromTasks(e.Tasks)
}

// MilestoneStatus resolves a milestone's effective status.
func MilestoneStatus(m *types.Milestone) types.Status {
	if m.Status != "" {
		return m.Status
	}
	var all []types.Task
	for _, e := range m.Epics {
		all = append(all, e.Tasks...)
	}
	return deriveFromTasks(all)
}

// PhaseStatus resolves a phase's effective status.
func PhaseStatus(p *types.Phase) types.Status {
	if p.Status != "" {
		return p.Status
	}
	var all []types.Task
	for _, m := range p.Milestones {
		for _, e := range m.Epics {
			all = append(all, e.Tasks...)
		}
	}
	return deriveFromTasks(all)
}

func deriveFromTasks(tasks []types.Task) types.Status {
	if len(tasks) == 0 {
		return types.StatusPending
	}
	allDone := true
	anyActive := false
	for _, t := range tasks {
		if t.Status != types.StatusDone {
			allDone = false
		}
		if t.Status == types.StatusInProgress || t.Status == types.StatusDone {
			anyActive = true
		}
	}
	if allDone {
		return types.StatusDone
	}
	if anyActive {
		return types.StatusInProgress
	}
	return types.StatusPending
}

// Stats is the done/total pair shown on list lines and carried in JSON
// payloads.
type Stats struct {
	Total int `json:"total"`
	Done  int `json:"done"`
}

func statsFor(tasks []types.Task) Stats {
	s := Stats{Total: len(tasks)}
	for _, t := range tasks {
		if t.Status == types.StatusDone {
			s.Done++
		}
	}
	return s
}

// EpicStats counts an epic's tasks.
func EpicStats(e *types.Epic) Stats { return statsFor(e.Tasks) }

// MilestoneStats counts a milestone's tasks.
func MilestoneStats(m *types.Milestone) Stats {
	s := Stats{}
	for i := range m.Epics {
		es := EpicStats(&m.Epics[i])
		s.Total += es.Total
		s.Done += es.Done
	}
	return s
}

// PhaseStats counts a phase's tasks.
func PhaseStats(p *types.Phase) Stats {
	s := Stats{}
	for i := range p.Milestones {
		ms := MilestoneStats(&p.Milestones[i])
		s.Total += ms.Total
		s.Done += ms.Done
	}
	return s
}
