package mutator

import (
	"fmt"
	"path/filepath"

	"github.com/untoldecay/backlog/internal/pathid"
	"github.com/untoldecay/backlog/internal/types"
)

// Move reparents a task to a new epic or an epic to a new milestone. The
// moved item gets the next local sequence number under its destination;
// its file (or directory tree) is rewritten with the new ID, both indices
// are updated, and every depends_on reference anywhere in the tree that
// pointed at an old ID is rewritten to the new one. All writes stage
// before any commits.
func (m *Mutator) Move(id, to string) (string, error) {
	parsed, err := pathid.Parse(id)
	if err != nil {
		return "", types.E(types.CodeInvalidID, "invalid id: %s", id)
	}
	dest, err := pathid.Parse(to)
	if err != nil {
		return "", types.E(types.CodeInvalidID, "invalid destination: %s", to)
	}
	var newID string
	switch {
	case parsed.Kind == pathid.KindTask && dest.Kind == pathid.KindEpic:
		err = m.run(func(tr *types.Tree, tx *Tx) error {
			var innerErr error
			newID, innerErr = m.moveTask(tr, tx, parsed, dest)
			return innerErr
		})
	case parsed.Kind == pathid.KindEpic && dest.Kind == pathid.KindMilestone:
		err = m.run(func(tr *types.Tree, tx *Tx) error {
			var innerErr error
			newID, innerErr = m.moveEpic(tr, tx, parsed, dest)
			return innerErr
		})
	default:
		return "", types.E(types.CodeInvalidID,
			"move supports task -> epic and epic -> milestone, got %s -> %s", parsed.Kind, dest.Kind)
	}
	if err != nil {
		return "", err
	}
	return newID, nil
}

func (m *Mutator) moveTask(tr *types.Tree, tx *Tx, taskID, destID pathid.ID) (string, error) {
	task := tr.FindTask(taskID.String())
	if task == nil {
		return "", types.NotFoundTask(taskID.String(), "")
	}
	destEpic := tr.FindEpic(destID.String())
	if destEpic == nil {
		return "", types.NotFoundContainer("Epic", destID.String())
	}
	if destEpic.ID == task.EpicID {
		return "", types.E(types.CodeInvalidID, "Task %s is already under %s", task.ID, destEpic.ID)
	}
	if locked := lockedChainFor(tr, destEpic.PhaseID, destEpic.MilestoneID, destEpic.ID); locked != "" {
		kind, _ := containerKind(locked)
		return "", types.LockedContainer(kind, locked)
	}
	srcEpic := tr.FindEpic(task.EpicID)
	if srcEpic == nil {
		return "", types.NotFoundContainer("Epic", task.EpicID)
	}

	seq := 0
	for _, t := range destEpic.Tasks {
		if tid, err := pathid.Parse(t.ID); err == nil && tid.Task > seq {
			seq = tid.Task
		}
	}
	newPathID := destID
	newPathID.Kind = pathid.KindTask
	newPathID.Task = seq + 1
	oldID := task.ID
	oldFile := task.File

	moved := *task
	moved.ID = newPathID.String()
	moved.PhaseID = destEpic.PhaseID
	moved.MilestoneID = destEpic.MilestoneID
	moved.EpicID = destEpic.ID
	moved.File = filepath.Join(epicDir(tr, destEpic), renumberedFileName(oldFile, newPathID.Local()))

	// Detach from source, attach to destination.
	for i := range srcEpic.Tasks {
		if srcEpic.Tasks[i].ID == oldID {
			srcEpic.Tasks = append(srcEpic.Tasks[:i], srcEpic.Tasks[i+1:]...)
			break
		}
	}
	destEpic.Tasks = append(destEpic.Tasks, moved)
	movedRef := &destEpic.Tasks[len(destEpic.Tasks)-1]

	tx.Delete(oldFile)
	if err := m.stageTask(tx, movedRef); err != nil {
		return "", err
	}
	if err := m.rewriteDependents(tr, tx, map[string]string{oldID: moved.ID}); err != nil {
		return "", err
	}
	// Completion state may flip on both chains once the task changes
	// sides (the source epic may now be all-done, the destination no
	// longer), so recompute before the indices are staged.
	m.recomputeChain(tr, srcEpic)
	m.recomputeChain(tr, destEpic)
	if err := m.stageEpicIndex(tx, tr, srcEpic); err != nil {
		return "", err
	}
	if err := m.stageEpicIndex(tx, tr, destEpic); err != nil {
		return "", err
	}
	if err := m.stageBothChains(tx, tr, srcEpic, destEpic); err != nil {
		return "", err
	}
	return moved.ID, nil
}

func (m *Mutator) moveEpic(tr *types.Tree, tx *Tx, epicID, destID pathid.ID) (string, error) {
	epic := tr.FindEpic(epicID.String())
	if epic == nil {
		return "", types.NotFoundContainer("Epic", epicID.String())
	}
	destMilestone := tr.FindMilestone(destID.String())
	if destMilestone == nil {
		return "", types.NotFoundContainer("Milestone", destID.String())
	}
	if destMilestone.ID == epic.MilestoneID {
		return "", types.E(types.CodeInvalidID, "Epic %s is already under %s", epic.ID, destMilestone.ID)
	}
	if locked := lockedChainFor(tr, destMilestone.PhaseID, destMilestone.ID, ""); locked != "" {
		kind, _ := containerKind(locked)
		return "", types.LockedContainer(kind, locked)
	}
	srcMilestone := tr.FindMilestone(epic.MilestoneID)
	if srcMilestone == nil {
		return "", types.NotFoundContainer("Milestone", epic.MilestoneID)
	}
	oldDir := epicDir(tr, epic)

	seq := 0
	for _, e := range destMilestone.Epics {
		if eid, err := pathid.Parse(e.ID); err == nil && eid.Epic > seq {
			seq = eid.Epic
		}
	}
	newEpicID := destID
	newEpicID.Kind = pathid.KindEpic
	newEpicID.Epic = seq + 1

	remap := map[string]string{epic.ID: newEpicID.String()}

	moved := *epic
	moved.ID = newEpicID.String()
	moved.MilestoneID = destMilestone.ID
	moved.PhaseID = destMilestone.PhaseID
	moved.Path = fmt.Sprintf("%02d-%s", newEpicID.Epic, pathTail(epic.Path))
	moved.Tasks = append([]types.Task{}, epic.Tasks...)

	// Detach before computing the destination dir so the source milestone
	// no longer lists the epic.
	for i := range srcMilestone.Epics {
		if srcMilestone.Epics[i].ID == epic.ID {
			srcMilestone.Epics = append(srcMilestone.Epics[:i], srcMilestone.Epics[i+1:]...)
			break
		}
	}
	destMilestone.Epics = append(destMilestone.Epics, moved)
	movedRef := &destMilestone.Epics[len(destMilestone.Epics)-1]
	newDir := epicDir(tr, movedRef)

	for i := range movedRef.Tasks {
		task := &movedRef.Tasks[i]
		oldTaskID := task.ID
		tid, err := pathid.Parse(oldTaskID)
		if err != nil {
			return "", types.E(types.CodeInvalidID, "invalid task id under epic: %s", oldTaskID)
		}
		newTaskID := newEpicID
		newTaskID.Kind = pathid.KindTask
		newTaskID.Task = tid.Task
		remap[oldTaskID] = newTaskID.String()

		tx.Delete(task.File)
		task.ID = newTaskID.String()
		task.PhaseID = movedRef.PhaseID
		task.MilestoneID = movedRef.MilestoneID
		task.EpicID = movedRef.ID
		task.File = filepath.Join(newDir, filepath.Base(task.File))
		if err := m.stageTask(tx, task); err != nil {
			return "", err
		}
	}
	tx.Delete(filepath.Join(oldDir, "index.yaml"))
	tx.RemoveDirIfEmpty(oldDir)

	if err := m.rewriteDependents(tr, tx, remap); err != nil {
		return "", err
	}
	m.recomputeMilestoneChain(tr, srcMilestone)
	m.recomputeMilestoneChain(tr, destMilestone)
	if err := m.stageEpicIndex(tx, tr, movedRef); err != nil {
		return "", err
	}
	if err := m.stageMilestoneIndex(tx, tr, srcMilestone); err != nil {
		return "", err
	}
	if err := m.stageMilestoneIndex(tx, tr, destMilestone); err != nil {
		return "", err
	}
	if srcPhase := tr.FindPhase(srcMilestone.PhaseID); srcPhase != nil {
		if err := m.stagePhaseIndex(tx, tr, srcPhase); err != nil {
			return "", err
		}
	}
	if destPhase := tr.FindPhase(destMilestone.PhaseID); destPhase != nil && destPhase.ID != srcMilestone.PhaseID {
		if err := m.stagePhaseIndex(tx, tr, destPhase); err != nil {
			return "", err
		}
	}
	if err := m.stageRootIndex(tx, tr); err != nil {
		return "", err
	}
	return movedRef.ID, nil
}

// rewriteDependents updates every depends_on referencing a remapped ID,
// staging the dependent task files and their owning indices.
func (m *Mutator) rewriteDependents(tr *types.Tree, tx *Tx, remap map[string]string) error {
	touchedEpics := map[string]*types.Epic{}
	touchedAux := map[string]bool{}
	var failure error
	tr.ForEachTask(func(t *types.Task) {
		if failure != nil {
			return
		}
		changed := false
		for i, dep := range t.DependsOn {
			if to, ok := remap[dep]; ok {
				t.DependsOn[i] = to
				changed = true
			}
		}
		if !changed {
			return
		}
		if err := m.stageTask(tx, t); err != nil {
			failure = err
			return
		}
		if t.EpicID != "" {
			if epic := tr.FindEpic(t.EpicID); epic != nil {
				touchedEpics[epic.ID] = epic
			}
		} else if parsed, err := pathid.Parse(t.ID); err == nil {
			switch parsed.Kind {
			case pathid.KindBug:
				touchedAux["bugs"] = true
			case pathid.KindIdea:
				touchedAux["ideas"] = true
			}
		}
	})
	if failure != nil {
		return failure
	}
	for _, epic := range touchedEpics {
		if err := m.stageEpicIndex(tx, tr, epic); err != nil {
			return err
		}
	}
	if touchedAux["bugs"] {
		if err := m.stageAuxIndex(tx, "bugs", tr.Bugs); err != nil {
			return err
		}
	}
	if touchedAux["ideas"] {
		if err := m.stageAuxIndex(tx, "ideas", tr.Ideas); err != nil {
			return err
		}
	}

	// Container-level depends_on may reference the moved item too.
	for pi := range tr.Phases {
		phase := &tr.Phases[pi]
		for mi := range phase.Milestones {
			ms := &phase.Milestones[mi]
			for ei := range ms.Epics {
				epic := &ms.Epics[ei]
				if remapList(epic.DependsOn, remap) {
					if err := m.stageEpicIndex(tx, tr, epic); err != nil {
						return err
					}
					if err := m.stageMilestoneIndex(tx, tr, ms); err != nil {
						return err
					}
				}
			}
			if remapList(ms.DependsOn, remap) {
				if err := m.stageMilestoneIndex(tx, tr, ms); err != nil {
					return err
				}
				if err := m.stagePhaseIndex(tx, tr, phase); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func remapList(list []string, remap map[string]string) bool {
	changed := false
	for i, dep := range list {
		if to, ok := remap[dep]; ok {
			list[i] = to
			changed = true
		}
	}
	return changed
}

// recomputeChain refreshes done status on the chain above an epic after a
// membership change.
func (m *Mutator) recomputeChain(tr *types.Tree, epic *types.Epic) {
	if len(epic.Tasks) > 0 && allDone(epic.Tasks) {
		epic.Status = types.StatusDone
	} else if epic.Status == types.StatusDone {
		epic.Status = ""
	}
	if ms := tr.FindMilestone(epic.MilestoneID); ms != nil {
		m.recomputeMilestoneChain(tr, ms)
	}
}

func (m *Mutator) recomputeMilestoneChain(tr *types.Tree, ms *types.Milestone) {
	done := len(ms.Epics) > 0
	for i := range ms.Epics {
		if !allDone(ms.Epics[i].Tasks) {
			done = false
			break
		}
	}
	if done {
		ms.Status = types.StatusDone
	} else if ms.Status == types.StatusDone {
		ms.Status = ""
	}
	if phase := tr.FindPhase(ms.PhaseID); phase != nil {
		phaseDone := len(phase.Milestones) > 0
		for i := range phase.Milestones {
			for j := range phase.Milestones[i].Epics {
				if !allDone(phase.Milestones[i].Epics[j].Tasks) {
					phaseDone = false
					break
				}
			}
		}
		if phaseDone {
			phase.Status = types.StatusDone
			phase.Locked = true
		} else if phase.Status == types.StatusDone {
			phase.Status = ""
			phase.Locked = false
		}
	}
}

// stageBothChains stages milestone and phase indices for the source and
// destination epics plus the root index.
func (m *Mutator) stageBothChains(tx *Tx, tr *types.Tree, src, dst *types.Epic) error {
	staged := map[string]bool{}
	for _, epic := range []*types.Epic{src, dst} {
		if ms := tr.FindMilestone(epic.MilestoneID); ms != nil && !staged["m:"+ms.ID] {
			staged["m:"+ms.ID] = true
			if err := m.stageMilestoneIndex(tx, tr, ms); err != nil {
				return err
			}
		}
		if p := tr.FindPhase(epic.PhaseID); p != nil && !staged["p:"+p.ID] {
			staged["p:"+p.ID] = true
			if err := m.stagePhaseIndex(tx, tr, p); err != nil {
				return err
			}
		}
	}
	return m.stageRootIndex(tx, tr)
}

// renumberedFileName swaps the leading Tnnn of a task file for the new
// local id, keeping the slug.
func renumberedFileName(oldFile, newLocal string) string {
	base := filepath.Base(oldFile)
	for i := 0; i < len(base); i++ {
		if base[i] == '-' {
			return newLocal + base[i:]
		}
	}
	return newLocal + "-" + base
}

// pathTail strips the NN- ordinal prefix from a container directory name.
func pathTail(dir string) string {
	for i := 0; i < len(dir); i++ {
		if dir[i] == '-' {
			return dir[i+1:]
		}
	}
	return dir
}
