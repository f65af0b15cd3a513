package mutator

import (
	"strings"

	"github.com/untoldecay/backlog/internal/pathid"
	"github.com/untoldecay/backlog/internal/resolver"
	"github.com/untoldecay/backlog/internal/types"
)

// Claim marks every requested task in_progress for agent. The claim is
// atomic: one bad ID or a non-pending task fails the whole batch.
func (m *Mutator) Claim(ids []string, agent string) error {
	if len(ids) == 0 {
		return types.E(types.CodeRequiresField, "claim requires at least one task id")
	}
	return m.run(func(tr *types.Tree, tx *Tx) error {
		now := m.Now()
		for _, id := range ids {
			task, err := findTask(tr, id)
			if err != nil {
				return err
			}
			if task.Status == types.StatusDone {
				return types.E(types.CodeInvalidStatus, "Task %s is already done", task.ID)
			}
			if task.Status != types.StatusPending {
				return types.E(types.CodeInvalidStatus,
					"Task %s is %s, not pending", task.ID, task.Status)
			}
			if task.IsClaimed() && task.ClaimedBy != agent {
				return types.E(types.CodeInvalidStatus,
					"Task %s is already claimed by %s", task.ID, task.ClaimedBy)
			}
			task.Status = types.StatusInProgress
			task.ClaimedBy = agent
			task.ClaimedAt = &now
			task.StartedAt = &now
			if err := m.stageTask(tx, task); err != nil {
				return err
			}
			if err := m.stageChain(tx, tr, task); err != nil {
				return err
			}
		}
		return nil
	})
}

// DoneResult reports what a completion closed.
type DoneResult struct {
	Completed   []string
	ClosedPhase bool
}

// Done completes tasks. Without force, only in_progress tasks may
// complete. Each completion cascades container status upward; closing the
// last task of a phase locks the phase chain.
func (m *Mutator) Done(ids []string, force bool) (*DoneResult, error) {
	if len(ids) == 0 {
		return nil, types.E(types.CodeRequiresField, "done requires at least one task id")
	}
	res := &DoneResult{}
	err := m.run(func(tr *types.Tree, tx *Tx) error {
		res.Completed = nil
		res.ClosedPhase = false
		now := m.Now()
		for _, id := range ids {
			task, err := findTask(tr, id)
			if err != nil {
				return err
			}
			if task.Status == types.StatusDone {
				continue
			}
			if task.Status != types.StatusInProgress && !force {
				return types.E(types.CodeInvalidStatus,
					"Task %s is %s, not in_progress (use --force to override)", task.ID, task.Status)
			}
			task.Status = types.StatusDone
			task.CompletedAt = &now
			task.ClaimedBy = ""
			task.ClaimedAt = nil
			task.Reason = ""
			if task.StartedAt == nil {
				task.StartedAt = &now
			}
			if err := m.stageTask(tx, task); err != nil {
				return err
			}
			if task.EpicID != "" {
				cascade := cascadeCompletion(tr, task)
				if cascade.PhaseDone {
					res.ClosedPhase = true
				}
				if err := m.stageChain(tx, tr, task); err != nil {
					return err
				}
			} else {
				if err := m.stageAuxForTask(tx, tr, task); err != nil {
					return err
				}
				if err := m.stageRootIndex(tx, tr); err != nil {
					return err
				}
			}
			res.Completed = append(res.Completed, task.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Undone reverses a task to pending, or recursively resets a container
// subtree: every descendant task back to pending, every container's
// status and locked flag cleared.
func (m *Mutator) Undone(id string) error {
	parsed, err := pathid.Parse(id)
	if err != nil {
		return types.E(types.CodeInvalidID, "invalid id: %s", id)
	}
	return m.run(func(tr *types.Tree, tx *Tx) error {
		if !parsed.IsContainer() {
			task, err := findTask(tr, parsed.String())
			if err != nil {
				return err
			}
			resetTask(task)
			if err := m.stageTask(tx, task); err != nil {
				return err
			}
			if task.EpicID != "" {
				cascadeReset(tr, task)
				return m.stageChain(tx, tr, task)
			}
			if err := m.stageAuxForTask(tx, tr, task); err != nil {
				return err
			}
			return m.stageRootIndex(tx, tr)
		}

		var epics []*types.Epic
		switch parsed.Kind {
		case pathid.KindPhase:
			phase := tr.FindPhase(parsed.String())
			if phase == nil {
				return types.NotFoundContainer("Phase", parsed.String())
			}
			phase.Status = ""
			phase.Locked = false
			for i := range phase.Milestones {
				ms := &phase.Milestones[i]
				ms.Status = ""
				ms.Locked = false
				for j := range ms.Epics {
					epics = append(epics, &ms.Epics[j])
				}
				if err := m.stageMilestoneIndex(tx, tr, ms); err != nil {
					return err
				}
			}
			if err := m.stagePhaseIndex(tx, tr, phase); err != nil {
				return err
			}
		case pathid.KindMilestone:
			ms := tr.FindMilestone(parsed.String())
			if ms == nil {
				return types.NotFoundContainer("Milestone", parsed.String())
			}
			ms.Status = ""
			ms.Locked = false
			for j := range ms.Epics {
				epics = append(epics, &ms.Epics[j])
			}
			phase := tr.FindPhase(ms.PhaseID)
			if phase != nil {
				phase.Status = ""
				phase.Locked = false
				if err := m.stagePhaseIndex(tx, tr, phase); err != nil {
					return err
				}
			}
			if err := m.stageMilestoneIndex(tx, tr, ms); err != nil {
				return err
			}
		case pathid.KindEpic:
			epic := tr.FindEpic(parsed.String())
			if epic == nil {
				return types.NotFoundContainer("Epic", parsed.String())
			}
			epics = append(epics, epic)
			ms := tr.FindMilestone(epic.MilestoneID)
			phase := tr.FindPhase(epic.PhaseID)
			if ms != nil {
				ms.Status = ""
				ms.Locked = false
				if err := m.stageMilestoneIndex(tx, tr, ms); err != nil {
					return err
				}
			}
			if phase != nil {
				phase.Status = ""
				phase.Locked = false
				if err := m.stagePhaseIndex(tx, tr, phase); err != nil {
					return err
				}
			}
		}
		for _, epic := range epics {
			epic.Status = ""
			epic.Locked = false
			for i := range epic.Tasks {
				resetTask(&epic.Tasks[i])
				if err := m.stageTask(tx, &epic.Tasks[i]); err != nil {
					return err
				}
			}
			if err := m.stageEpicIndex(tx, tr, epic); err != nil {
				return err
			}
		}
		return m.stageRootIndex(tx, tr)
	})
}

func resetTask(task *types.Task) {
	task.Status = types.StatusPending
	task.CompletedAt = nil
	task.ClaimedBy = ""
	task.ClaimedAt = nil
	task.StartedAt = nil
	task.Reason = ""
}

// Update applies a free-form status change with an optional reason.
func (m *Mutator) Update(id string, status types.Status, reason string) error {
	return m.run(func(tr *types.Tree, tx *Tx) error {
		task, err := findTask(tr, id)
		if err != nil {
			return err
		}
		now := m.Now()
		task.Status = status
		task.Reason = reason
		switch status {
		case types.StatusInProgress:
			if task.StartedAt == nil {
				task.StartedAt = &now
			}
		case types.StatusDone:
			task.CompletedAt = &now
			task.ClaimedBy = ""
			task.ClaimedAt = nil
		default:
			task.ClaimedBy = ""
			task.ClaimedAt = nil
		}
		if err := m.stageTask(tx, task); err != nil {
			return err
		}
		if task.EpicID != "" {
			if status == types.StatusDone {
				cascadeCompletion(tr, task)
			} else {
				cascadeReset(tr, task)
			}
			return m.stageChain(tx, tr, task)
		}
		if err := m.stageAuxForTask(tx, tr, task); err != nil {
			return err
		}
		return m.stageRootIndex(tx, tr)
	})
}

// SetFields is the update surface of `set`: only supplied fields merge.
type SetFields struct {
	Title         *string
	Priority      *types.Priority
	Complexity    *types.Complexity
	EstimateHours *float64
	DependsOn     *[]string
	Tags          *[]string
}

func (f *SetFields) empty() bool {
	return f.Title == nil && f.Priority == nil && f.Complexity == nil &&
		f.EstimateHours == nil && f.DependsOn == nil && f.Tags == nil
}

// Set merges the supplied fields into a task.
func (m *Mutator) Set(id string, fields SetFields) error {
	if fields.empty() {
		return types.E(types.CodeRequiresField,
			"set requires at least one field (--title, --priority, --complexity, --estimate, --depends-on, --tags)")
	}
	return m.run(func(tr *types.Tree, tx *Tx) error {
		task, err := findTask(tr, id)
		if err != nil {
			return err
		}
		if fields.Title != nil {
			task.Title = *fields.Title
		}
		if fields.Priority != nil {
			task.Priority = *fields.Priority
		}
		if fields.Complexity != nil {
			task.Complexity = *fields.Complexity
		}
		if fields.EstimateHours != nil {
			if *fields.EstimateHours < 0 {
				return types.E(types.CodeTypeMismatch, "estimate_hours must be non-negative")
			}
			task.EstimateHours = *fields.EstimateHours
		}
		if fields.DependsOn != nil {
			task.DependsOn = *fields.DependsOn
		}
		if fields.Tags != nil {
			task.Tags = *fields.Tags
		}
		if err := m.stageTask(tx, task); err != nil {
			return err
		}
		if task.EpicID != "" {
			return m.stageChain(tx, tr, task)
		}
		if err := m.stageAuxForTask(tx, tr, task); err != nil {
			return err
		}
		return m.stageRootIndex(tx, tr)
	})
}

// Unclaim clears claim metadata and resets an in_progress task to
// pending. Idempotent for tasks already pending with stale claim fields.
func (m *Mutator) Unclaim(id string) error {
	return m.run(func(tr *types.Tree, tx *Tx) error {
		task, err := findTask(tr, id)
		if err != nil {
			return err
		}
		if task.Status == types.StatusInProgress {
			task.Status = types.StatusPending
		}
		task.ClaimedBy = ""
		task.ClaimedAt = nil
		task.StartedAt = nil
		if err := m.stageTask(tx, task); err != nil {
			return err
		}
		if task.EpicID != "" {
			return m.stageChain(tx, tr, task)
		}
		if err := m.stageAuxForTask(tx, tr, task); err != nil {
			return err
		}
		return m.stageRootIndex(tx, tr)
	})
}

// Blocked marks a task blocked with a reason. keepClaim preserves the
// claim metadata so the same agent can resume.
func (m *Mutator) Blocked(id, reason string, keepClaim bool) error {
	if strings.TrimSpace(reason) == "" {
		return types.E(types.CodeRequiresField, "blocked requires --reason")
	}
	return m.run(func(tr *types.Tree, tx *Tx) error {
		task, err := findTask(tr, id)
		if err != nil {
			return err
		}
		if task.Status == types.StatusDone {
			return types.E(types.CodeInvalidStatus, "Task %s is already done", task.ID)
		}
		task.Status = types.StatusBlocked
		task.Reason = reason
		if !keepClaim {
			task.ClaimedBy = ""
			task.ClaimedAt = nil
		}
		if err := m.stageTask(tx, task); err != nil {
			return err
		}
		if task.EpicID != "" {
			return m.stageChain(tx, tr, task)
		}
		if err := m.stageAuxForTask(tx, tr, task); err != nil {
			return err
		}
		return m.stageRootIndex(tx, tr)
	})
}

// SetLocked toggles the locked flag on a container.
func (m *Mutator) SetLocked(id string, locked bool) error {
	parsed, err := pathid.Parse(id)
	if err != nil || !parsed.IsContainer() {
		return types.E(types.CodeInvalidID, "lock/unlock needs a phase, milestone, or epic id, got %q", id)
	}
	return m.run(func(tr *types.Tree, tx *Tx) error {
		switch parsed.Kind {
		case pathid.KindPhase:
			phase := tr.FindPhase(parsed.String())
			if phase == nil {
				return types.NotFoundContainer("Phase", parsed.String())
			}
			phase.Locked = locked
			if err := m.stagePhaseIndex(tx, tr, phase); err != nil {
				return err
			}
		case pathid.KindMilestone:
			ms := tr.FindMilestone(parsed.String())
			if ms == nil {
				return types.NotFoundContainer("Milestone", parsed.String())
			}
			ms.Locked = locked
			if err := m.stageMilestoneIndex(tx, tr, ms); err != nil {
				return err
			}
			if phase := tr.FindPhase(ms.PhaseID); phase != nil {
				if err := m.stagePhaseIndex(tx, tr, phase); err != nil {
					return err
				}
			}
		case pathid.KindEpic:
			epic := tr.FindEpic(parsed.String())
			if epic == nil {
				return types.NotFoundContainer("Epic", parsed.String())
			}
			epic.Locked = locked
			if err := m.stageEpicIndex(tx, tr, epic); err != nil {
				return err
			}
			if ms := tr.FindMilestone(epic.MilestoneID); ms != nil {
				if err := m.stageMilestoneIndex(tx, tr, ms); err != nil {
					return err
				}
			}
		}
		return m.stageRootIndex(tx, tr)
	})
}

// stageAuxForTask restages the bucket index owning an auxiliary task.
func (m *Mutator) stageAuxForTask(tx *Tx, tr *types.Tree, task *types.Task) error {
	parsed, err := pathid.Parse(task.ID)
	if err != nil {
		return types.E(types.CodeInvalidID, "invalid aux id: %s", task.ID)
	}
	switch parsed.Kind {
	case pathid.KindBug:
		return m.stageAuxIndex(tx, "bugs", tr.Bugs)
	case pathid.KindIdea:
		return m.stageAuxIndex(tx, "ideas", tr.Ideas)
	case pathid.KindFix:
		return m.stageAuxIndex(tx, "fixes", tr.Fixes)
	}
	return nil
}

// availableNow recomputes availability against the mutated in-memory tree.
func availableNow(tr *types.Tree, scope *resolver.Scope) ([]string, error) {
	res := resolver.New(tr)
	cp, err := res.CriticalPath()
	if err != nil {
		return nil, err
	}
	return res.Prioritize(scope.Filter(res.FindAllAvailable()), cp), nil
}
