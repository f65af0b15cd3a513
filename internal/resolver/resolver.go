// Package resolver derives scheduling decisions from a loaded tree:
// which tasks are available, the critical path, the next task to work on,
// and parallel-safe fan-out candidates for batched claims.
package resolver

import (
	"sort"
	"strings"

	"github.com/untoldecay/backlog/internal/pathid"
	"github.com/untoldecay/backlog/internal/tree"
	"github.com/untoldecay/backlog/internal/types"
)

// Resolver answers scheduling queries against a single tree snapshot.
type Resolver struct {
	tree *types.Tree
}

// New wraps a loaded tree.
func New(tr *types.Tree) *Resolver {
	return &Resolver{tree: tr}
}

// Tree exposes the underlying snapshot.
func (r *Resolver) Tree() *types.Tree { return r.tree }

// resolveDependencyTargets expands one depends_on entry into the tasks
// that must be done. A dependency may name a task, a bug or idea, or an
// epic (meaning every task in that epic). Epic references may be local
// ("E2") and resolve against the dependent's milestone.
func (r *Resolver) resolveDependencyTargets(depID, milestoneID string) []*types.Task {
	depID = strings.TrimSpace(depID)
	if depID == "" {
		return nil
	}
	if task := r.tree.FindTask(depID); task != nil {
		return []*types.Task{task}
	}
	if epic := r.resolveEpicRef(depID, milestoneID); epic != nil {
		out := make([]*types.Task, 0, len(epic.Tasks))
		for i := range epic.Tasks {
			out = append(out, &epic.Tasks[i])
		}
		return out
	}
	return nil
}

func (r *Resolver) resolveEpicRef(depID, milestoneID string) *types.Epic {
	if epic := r.tree.FindEpic(depID); epic != nil {
		return epic
	}
	if milestoneID != "" && !strings.Contains(depID, ".") {
		if epic := r.tree.FindEpic(milestoneID + "." + depID); epic != nil {
			return epic
		}
	}
	return nil
}

func (r *Resolver) resolveMilestoneRef(depID, phaseID string) *types.Milestone {
	if m := r.tree.FindMilestone(depID); m != nil {
		return m
	}
	if phaseID != "" && !strings.Contains(depID, ".") {
		if m := r.tree.FindMilestone(phaseID + "." + depID); m != nil {
			return m
		}
	}
	return nil
}

// DependencyExists reports whether a depends_on entry names a real task,
// bug, idea, or epic.
func (r *Resolver) DependencyExists(depID, milestoneID string) bool {
	depID = strings.TrimSpace(depID)
	if depID == "" {
		return false
	}
	if r.tree.FindTask(depID) != nil {
		return true
	}
	return r.resolveEpicRef(depID, milestoneID) != nil
}

// DependenciesMet reports whether every dependency of task is done.
// IDs in batch count as satisfied, supporting multi-claim availability.
func (r *Resolver) DependenciesMet(task *types.Task, batch map[string]struct{}) bool {
	for _, depID := range task.DependsOn {
		targets := r.resolveDependencyTargets(depID, task.MilestoneID)
		if len(targets) == 0 {
			return false
		}
		for _, dep := range targets {
			if dep.Status != types.StatusDone {
				if _, ok := batch[dep.ID]; !ok {
					return false
				}
			}
		}
	}

	// A task with no explicit dependencies runs after its predecessor in
	// the epic's declared order.
	if len(task.DependsOn) == 0 && task.EpicID != "" {
		if epic := r.tree.FindEpic(task.EpicID); epic != nil {
			for i := range epic.Tasks {
				if epic.Tasks[i].ID != task.ID {
					continue
				}
				if i > 0 {
					prev := &epic.Tasks[i-1]
					if prev.Status != types.StatusDone {
						if _, ok := batch[prev.ID]; !ok {
							return false
						}
					}
				}
				break
			}
		}
	}

	// Container-level dependencies gate every task beneath them.
	if task.PhaseID != "" {
		if phase := r.tree.FindPhase(task.PhaseID); phase != nil {
			for _, dep := range phase.DependsOn {
				if target := r.tree.FindPhase(dep); target != nil {
					if tree.PhaseStatus(target) != types.StatusDone {
						return false
					}
				}
			}
		}
	}
	if task.MilestoneID != "" {
		if m := r.tree.FindMilestone(task.MilestoneID); m != nil {
			for _, dep := range m.DependsOn {
				if target := r.resolveMilestoneRef(dep, task.PhaseID); target != nil {
					if tree.MilestoneStatus(target) != types.StatusDone {
						return false
					}
				}
			}
		}
	}
	if task.EpicID != "" {
		if epic := r.tree.FindEpic(task.EpicID); epic != nil {
			for _, dep := range epic.DependsOn {
				if target := r.resolveEpicRef(dep, epic.MilestoneID); target != nil {
					if tree.EpicStatus(target) != types.StatusDone {
						return false
					}
				}
			}
		}
	}
	return true
}

// Available reports whether a task may be claimed right now: pending,
// unclaimed, no locked ancestor, dependencies met.
func (r *Resolver) Available(task *types.Task, batch map[string]struct{}) bool {
	if task == nil {
		return false
	}
	if task.Status != types.StatusPending {
		return false
	}
	if task.IsClaimed() {
		return false
	}
	if r.tree.LockedAncestor(task) != "" {
		return false
	}
	return r.DependenciesMet(task, batch)
}

// FindAllAvailable lists every available task ID in tree order.
func (r *Resolver) FindAllAvailable() []string {
	var out []string
	for _, task := range r.tree.AllTasks() {
		t := task
		if r.Available(&t, nil) {
			out = append(out, t.ID)
		}
	}
	return out
}

// NextAvailable returns the best available ID under the priority ordering,
// or "" when nothing is available. Bugs and ideas are considered, but a
// primary task is preferred over an idea of equal standing by the kind
// ranking inside Prioritize.
func (r *Resolver) NextAvailable() (string, error) {
	cp, err := r.CriticalPath()
	if err != nil {
		return "", err
	}
	available := r.FindAllAvailable()
	if len(available) == 0 {
		return "", nil
	}
	ranked := r.Prioritize(available, cp)
	if len(ranked) == 0 {
		return "", nil
	}
	return ranked[0], nil
}

// Prioritize orders candidate IDs by: kind (bugs, then primary tasks, then
// ideas), priority, critical-path membership and position, fewer unmet
// upstream tasks, smaller estimate (quick wins), and finally the full
// path ID.
func (r *Resolver) Prioritize(ids []string, criticalPath []string) []string {
	cpPos := map[string]int{}
	for i, id := range criticalPath {
		cpPos[id] = i
	}
	depth := map[string]int{}
	if g, err := r.BuildGraph(); err == nil {
		depth = r.UnmetUpstreamCount(g)
	}
	type ranked struct {
		id       string
		kind     int
		priority int
		offPath  int
		cpPos    int
		depth    int
		estimate float64
	}
	rs := make([]ranked, 0, len(ids))
	for _, id := range ids {
		task := r.tree.FindTask(id)
		if task == nil {
			continue
		}
		pos, onPath := cpPos[id]
		if !onPath {
			pos = int(^uint(0) >> 1)
		}
		rs = append(rs, ranked{
			id:       id,
			kind:     kindRank(id),
			priority: task.Priority.Rank(),
			offPath:  boolToInt(!onPath),
			cpPos:    pos,
			depth:    depth[id],
			estimate: task.EstimateHours,
		})
	}
	sort.SliceStable(rs, func(i, j int) bool {
		a, b := rs[i], rs[j]
		if a.kind != b.kind {
			return a.kind < b.kind
		}
		if a.priority != b.priority {
			return a.priority < b.priority
		}
		if a.offPath != b.offPath {
			return a.offPath < b.offPath
		}
		if a.cpPos != b.cpPos {
			return a.cpPos < b.cpPos
		}
		if a.depth != b.depth {
			return a.depth < b.depth
		}
		if a.estimate != b.estimate {
			return a.estimate < b.estimate
		}
		return a.id < b.id
	})
	out := make([]string, len(rs))
	for i, item := range rs {
		out[i] = item.id
	}
	return out
}

func kindRank(id string) int {
	parsed, err := pathid.Parse(id)
	if err != nil {
		return 1
	}
	switch parsed.Kind {
	case pathid.KindBug:
		return 0
	case pathid.KindIdea:
		return 2
	default:
		return 1
	}
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
