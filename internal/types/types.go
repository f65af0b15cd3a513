// Package types defines the core entities of the backlog tree: tasks,
// epics, milestones, phases, and the loaded Tree value that owns them.
package types

import (
	"fmt"
	"strings"
	"time"
)

// Status is the lifecycle state of a task or container.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusBlocked    Status = "blocked"
	StatusDone       Status = "done"
)

// Valid reports whether s is one of the recognised states. The empty
// string is valid on containers (derived status).
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusBlocked, StatusDone, "":
		return true
	}
	return false
}

// Priority of a task; critical outranks high outranks medium outranks low.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Rank maps priority to sort rank, lower is more urgent. Unknown values
// rank last.
func (p Priority) Rank() int {
	switch p {
	case PriorityCritical:
		return 0
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 3
	default:
		return 4
	}
}

// Complexity of a task, used as a duration multiplier on the critical path.
type Complexity string

const (
	ComplexityLow    Complexity = "low"
	ComplexityMedium Complexity = "medium"
	ComplexityHigh   Complexity = "high"
)

// Multiplier converts complexity into the weight factor applied to
// estimate_hours when measuring chain duration.
func (c Complexity) Multiplier() float64 {
	switch c {
	case ComplexityLow:
		return 0.8
	case ComplexityHigh:
		return 1.5
	default:
		return 1.0
	}
}

// Task is any leaf work item: a primary hierarchy task, a bug, an idea, or
// an archived fix. Aux items leave PhaseID/MilestoneID/EpicID empty.
type Task struct {
	ID            string
	Title         string
	Status        Status
	EstimateHours float64
	Complexity    Complexity
	Priority      Priority
	DependsOn     []string
	Tags          []string
	ClaimedBy     string
	Reason        string

	CreatedAt   *time.Time
	ClaimedAt   *time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time

	// File is the task file path relative to the data dir.
	File string
	// Body is the markdown text below the frontmatter, byte-exact.
	Body string
	// Extra holds unrecognised frontmatter keys for round-trip writes.
	Extra map[string]any
	// IndexExtra holds unrecognised keys from the task's index row.
	IndexExtra map[string]any

	PhaseID     string
	MilestoneID string
	EpicID      string
}

// IsClaimed reports whether claim metadata is present.
func (t *Task) IsClaimed() bool { return t.ClaimedBy != "" }

// Epic owns an ordered task list.
type Epic struct {
	ID          string
	Name        string
	Path        string
	Status      Status
	Locked      bool
	Description string
	DependsOn   []string
	Tasks       []Task

	MilestoneID string
	PhaseID     string
	Extra       map[string]any
}

// Milestone owns an ordered epic list.
type Milestone struct {
	ID          string
	Name        string
	Path        string
	Status      Status
	Locked      bool
	Description string
	DependsOn   []string
	Epics       []Epic

	PhaseID string
	Extra   map[string]any
}

// Phase owns an ordered milestone list.
type Phase struct {
	ID          string
	Name        string
	Path        string
	Status      Status
	Locked      bool
	Description string
	DependsOn   []string
	Milestones  []Milestone
	Extra       map[string]any
}

// Tree is the loaded project graph. It is an explicit value owned by the
// command handler; resolvers read it, mutators stage rewrites against it.
type Tree struct {
	Project       string
	Description   string
	SchemaVersion string
	DataDir       string

	Phases []Phase
	Bugs   []Task
	Ideas  []Task
	Fixes  []Task

	// CriticalPath and NextAvailable mirror the root index fields as of
	// the last resolver run that persisted them.
	CriticalPath  []string
	NextAvailable string

	Extra map[string]any
}

// FindPhase returns the phase with the given full ID, or nil.
func (tr *Tree) FindPhase(id string) *Phase {
	for i := range tr.Phases {
		if tr.Phases[i].ID == id {
			return &tr.Phases[i]
		}
	}
	return nil
}

// FindMilestone returns the milestone with the given full ID, or nil.
func (tr *Tree) FindMilestone(id string) *Milestone {
	for i := range tr.Phases {
		for j := range tr.Phases[i].Milestones {
			if tr.Phases[i].Milestones[j].ID == id {
				return &tr.Phases[i].Milestones[j]
			}
		}
	}
	return nil
}

// FindEpic returns the epic with the given full ID, or nil.
func (tr *Tree) FindEpic(id string) *Epic {
	for i := range tr.Phases {
		for j := range tr.Phases[i].Milestones {
			for k := range tr.Phases[i].Milestones[j].Epics {
				if tr.Phases[i].Milestones[j].Epics[k].ID == id {
					return &tr.Phases[i].Milestones[j].Epics[k]
				}
			}
		}
	}
	return nil
}

// FindTask returns the task (primary or auxiliary) with the given full ID,
// or nil.
func (tr *Tree) FindTask(id string) *Task {
	for i := range tr.Phases {
		for j := range tr.Phases[i].Milestones {
			for k := range tr.Phases[i].Milestones[j].Epics {
				tasks := tr.Phases[i].Milestones[j].Epics[k].Tasks
				for l := range tasks {
					if tasks[l].ID == id {
						return &tasks[l]
					}
				}
			}
		}
	}
	for _, list := range []*[]Task{&tr.Bugs, &tr.Ideas, &tr.Fixes} {
		for i := range *list {
			if (*list)[i].ID == id {
				return &(*list)[i]
			}
		}
	}
	return nil
}

// AllTasks returns every primary task in declared order followed by bugs
// and ideas in numeric order. Fixes are archived work and excluded.
func (tr *Tree) AllTasks() []Task {
	out := []Task{}
	for _, p := range tr.Phases {
		for _, m := range p.Milestones {
			for _, e := range m.Epics {
				out = append(out, e.Tasks...)
			}
		}
	}
	out = append(out, tr.Bugs...)
	out = append(out, tr.Ideas...)
	return out
}

// ForEachTask visits every primary task, then every bug and idea, by
// pointer, allowing in-memory mutation before a staged rewrite. Fixes are
// not visited.
func (tr *Tree) ForEachTask(fn func(*Task)) {
	for i := range tr.Phases {
		for j := range tr.Phases[i].Milestones {
			for k := range tr.Phases[i].Milestones[j].Epics {
				tasks := tr.Phases[i].Milestones[j].Epics[k].Tasks
				for l := range tasks {
					fn(&tasks[l])
				}
			}
		}
	}
	for _, list := range []*[]Task{&tr.Bugs, &tr.Ideas} {
		for i := range *list {
			fn(&(*list)[i])
		}
	}
}

// ContainerOf resolves the chain above a primary task. Returns nils for
// auxiliary tasks.
func (tr *Tree) ContainerOf(t *Task) (*Phase, *Milestone, *Epic) {
	if t == nil || t.EpicID == "" {
		return nil, nil, nil
	}
	return tr.FindPhase(t.PhaseID), tr.FindMilestone(t.MilestoneID), tr.FindEpic(t.EpicID)
}

// LockedAncestor returns the ID of the nearest locked container above the
// given primary task, or "".
func (tr *Tree) LockedAncestor(t *Task) string {
	if t == nil {
		return ""
	}
	phase, milestone, epic := tr.ContainerOf(t)
	if epic != nil && epic.Locked {
		return epic.ID
	}
	if milestone != nil && milestone.Locked {
		return milestone.ID
	}
	if phase != nil && phase.Locked {
		return phase.ID
	}
	return ""
}

// ValidateStatusTransition enforces the task lifecycle machine. Force
// transitions (done --force) bypass this at the mutator level.
func ValidateStatusTransition(current, next Status) error {
	if current == next {
		return nil
	}
	allowed := map[Status][]Status{
		StatusPending:    {StatusInProgress, StatusBlocked},
		StatusInProgress: {StatusDone, StatusBlocked, StatusPending},
		StatusBlocked:    {StatusPending, StatusInProgress},
		StatusDone:       {StatusPending},
	}
	for _, s := range allowed[current] {
		if s == next {
			return nil
		}
	}
	return fmt.Errorf("invalid status transition: %s -> %s", current, next)
}

// ParseStatus validates a user-supplied status string.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.TrimSpace(strings.ToLower(s)))
	if st == "" || !st.Valid() {
		return "", fmt.Errorf("invalid status: %q (must be pending, in_progress, blocked, or done)", s)
	}
	return st, nil
}

// ParsePriority validates a user-supplied priority string.
func ParsePriority(s string) (Priority, error) {
	p := Priority(strings.TrimSpace(strings.ToLower(s)))
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return p, nil
	}
	return "", fmt.Errorf("invalid priority: %q (must be low, medium, high, or critical)", s)
}

// ParseComplexity validates a user-supplied complexity string.
func ParseComplexity(s string) (Complexity, error) {
	c := Complexity(strings.TrimSpace(strings.ToLower(s)))
	switch c {
	case ComplexityLow, ComplexityMedium, ComplexityHigh:
		return c, nil
	}
	return "", fmt.Errorf("invalid complexity: %q (must be low, medium, or high)", s)
}
