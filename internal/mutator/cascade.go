package mutator

import (
	"github.com/untoldecay/backlog/internal/types"
)

// cascadeResult reports which containers closed as a consequence of a
// completion.
type cascadeResult struct {
	EpicDone      bool
	MilestoneDone bool
	PhaseDone     bool
	PhaseID       string
}

// cascadeCompletion recomputes the container chain above a completed task
// in memory: an epic whose every task is done becomes done; likewise the
// milestone and phase, and a completed phase also locks. The touched
// indices are staged by the caller.
func cascadeCompletion(tr *types.Tree, task *types.Task) cascadeResult {
	res := cascadeResult{PhaseID: task.PhaseID}
	phase, milestone, epic := tr.ContainerOf(task)
	if phase == nil || milestone == nil || epic == nil {
		return res
	}

	if allDone(epic.Tasks) {
		epic.Status = types.StatusDone
		res.EpicDone = true
	}

	milestoneDone := true
	for i := range milestone.Epics {
		if !allDone(milestone.Epics[i].Tasks) {
			milestoneDone = false
			break
		}
	}
	if milestoneDone {
		milestone.Status = types.StatusDone
		res.MilestoneDone = true
	}

	phaseDone := true
	for i := range phase.Milestones {
		for j := range phase.Milestones[i].Epics {
			if !allDone(phase.Milestones[i].Epics[j].Tasks) {
				phaseDone = false
				break
			}
		}
		if !phaseDone {
			break
		}
	}
	if phaseDone {
		phase.Status = types.StatusDone
		phase.Locked = true
		res.PhaseDone = true
	}
	return res
}

// cascadeReset clears completion state on the chain above a task that is
// no longer done.
func cascadeReset(tr *types.Tree, task *types.Task) {
	phase, milestone, epic := tr.ContainerOf(task)
	if epic != nil && epic.Status == types.StatusDone {
		epic.Status = ""
	}
	if milestone != nil && milestone.Status == types.StatusDone {
		milestone.Status = ""
	}
	if phase != nil {
		if phase.Status == types.StatusDone {
			phase.Status = ""
		}
		phase.Locked = false
	}
}

func allDone(tasks []types.Task) bool {
	for i := range tasks {
		if tasks[i].Status != types.StatusDone {
			return false
		}
	}
	return true
}

// stageChain stages the container indices above a primary task (epic,
// milestone, phase, root).
func (m *Mutator) stageChain(tx *Tx, tr *types.Tree, task *types.Task) error {
	phase, milestone, epic := tr.ContainerOf(task)
	if epic != nil {
		if err := m.stageEpicIndex(tx, tr, epic); err != nil {
			return err
		}
	}
	if milestone != nil {
		if err := m.stageMilestoneIndex(tx, tr, milestone); err != nil {
			return err
		}
	}
	if phase != nil {
		if err := m.stagePhaseIndex(tx, tr, phase); err != nil {
			return err
		}
	}
	return m.stageRootIndex(tx, tr)
}
