// Package check runs the consistency rules over a loaded tree plus the
// session and context side-stores. It never raises; it returns a report
// the command boundary turns into an exit code.
package check

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/untoldecay/backlog/internal/resolver"
	"github.com/untoldecay/backlog/internal/session"
	"github.com/untoldecay/backlog/internal/tree"
	"github.com/untoldecay/backlog/internal/types"
)

// Severity of a finding.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// Finding is one diagnostic.
type Finding struct {
	Kind     string `json:"kind"`
	Severity string `json:"severity"`
	ID       string `json:"id,omitempty"`
	File     string `json:"file,omitempty"`
	Message  string `json:"message"`
}

// Report is the checker's result.
type Report struct {
	OK       bool      `json:"ok"`
	Errors   int       `json:"errors"`
	Warnings int       `json:"warnings"`
	Findings []Finding `json:"findings"`
}

// Summary renders the one-line result.
func (r *Report) Summary() string {
	return fmt.Sprintf("%d error(s), %d warning(s)", r.Errors, r.Warnings)
}

// todoPlaceholder is the stub text left by task creation; a body still
// carrying it has never been filled in.
const todoPlaceholder = "TODO: Add requirements/acceptance criteria"

// Run evaluates every rule. now anchors staleness checks.
func Run(loaded *tree.Loaded, store *session.Store, staleThreshold time.Duration, now time.Time) *Report {
	r := &Report{}
	tr := loaded.Tree

	for _, p := range loaded.Problems {
		r.add(Finding{Kind: p.Kind, Severity: p.Severity, ID: p.ID, File: p.File, Message: p.Message})
	}

	res := resolver.New(tr)
	checkDependencies(r, tr, res)
	checkCycles(r, res)
	checkClaims(r, tr)
	checkEstimates(r, tr)
	checkTemplates(r, tr)
	checkContainerStatus(r, tr)
	checkSideStores(r, tr, store, staleThreshold, now)

	sort.SliceStable(r.Findings, func(i, j int) bool {
		if r.Findings[i].Severity != r.Findings[j].Severity {
			return r.Findings[i].Severity == SeverityError
		}
		return r.Findings[i].ID < r.Findings[j].ID
	})
	r.OK = r.Errors == 0
	return r
}

func (r *Report) add(f Finding) {
	if f.Severity == SeverityError {
		r.Errors++
	} else {
		r.Warnings++
	}
	r.Findings = append(r.Findings, f)
}

// checkDependencies verifies every depends_on target exists.
func checkDependencies(r *Report, tr *types.Tree, res *resolver.Resolver) {
	for _, task := range tr.AllTasks() {
		for _, dep := range task.DependsOn {
			if !res.DependencyExists(dep, task.MilestoneID) {
				r.add(Finding{
					Kind:     "missing_task_dependency",
					Severity: SeverityError,
					ID:       task.ID,
					Message:  fmt.Sprintf("%s depends on %s, which does not exist", task.ID, dep),
				})
			}
		}
	}
}

func checkCycles(r *Report, res *resolver.Resolver) {
	g, err := res.BuildGraph()
	if err != nil {
		return
	}
	members := g.CycleMembers()
	if len(members) == 0 {
		return
	}
	r.add(Finding{
		Kind:     "cyclic_dependency",
		Severity: SeverityError,
		ID:       members[0],
		Message:  fmt.Sprintf("dependency cycle involving: %s", strings.Join(members, ", ")),
	})
}

// checkClaims enforces the claim-metadata invariant: claimed_by/claimed_at
// exist iff the task is in_progress.
func checkClaims(r *Report, tr *types.Tree) {
	for _, task := range tr.AllTasks() {
		if task.Status == types.StatusPending && (task.ClaimedBy != "" || task.ClaimedAt != nil) {
			r.add(Finding{
				Kind:     "pending_task_with_claim",
				Severity: SeverityError,
				ID:       task.ID,
				Message:  fmt.Sprintf("%s is pending but still carries claim metadata (%s)", task.ID, task.ClaimedBy),
			})
		}
		if task.Status == types.StatusInProgress && task.ClaimedBy == "" {
			r.add(Finding{
				Kind:     "pending_task_with_claim",
				Severity: SeverityError,
				ID:       task.ID,
				Message:  fmt.Sprintf("%s is in_progress with no claimed_by", task.ID),
			})
		}
	}
}

func checkEstimates(r *Report, tr *types.Tree) {
	for _, task := range tr.AllTasks() {
		if task.Status != types.StatusDone && task.EstimateHours == 0 {
			r.add(Finding{
				Kind:     "zero_estimate_hours",
				Severity: SeverityWarning,
				ID:       task.ID,
				Message:  fmt.Sprintf("%s has no estimate", task.ID),
			})
		}
	}
}

func checkTemplates(r *Report, tr *types.Tree) {
	for _, task := range tr.AllTasks() {
		if task.Status != types.StatusDone && strings.Contains(task.Body, todoPlaceholder) {
			r.add(Finding{
				Kind:     "uninitialized_todo",
				Severity: SeverityWarning,
				ID:       task.ID,
				Message:  fmt.Sprintf("%s still contains the initial template placeholders", task.ID),
			})
		}
	}
}

// checkContainerStatus flags epics marked done above unfinished tasks.
// Milestone and phase status is not compared.
func checkContainerStatus(r *Report, tr *types.Tree) {
	for i := range tr.Phases {
		phase := &tr.Phases[i]
		for j := range phase.Milestones {
			ms := &phase.Milestones[j]
			for k := range ms.Epics {
				epic := &ms.Epics[k]
				if epic.Status == types.StatusDone && !tasksAllDone(epic.Tasks) {
					r.add(Finding{
						Kind:     "status_mismatch_with_index",
						Severity: SeverityError,
						ID:       epic.ID,
						Message:  fmt.Sprintf("%s is marked done but has unfinished tasks", epic.ID),
					})
				}
			}
		}
	}
}

func tasksAllDone(tasks []types.Task) bool {
	for i := range tasks {
		if tasks[i].Status != types.StatusDone {
			return false
		}
	}
	return true
}

func checkSideStores(r *Report, tr *types.Tree, store *session.Store, staleThreshold time.Duration, now time.Time) {
	if store == nil {
		return
	}
	if ctx, err := store.Context(); err == nil && ctx.TaskID != "" {
		if tr.FindTask(ctx.TaskID) == nil {
			r.add(Finding{
				Kind:     "stale_context",
				Severity: SeverityWarning,
				ID:       ctx.TaskID,
				Message:  fmt.Sprintf("working context points at missing id %s", ctx.TaskID),
			})
		}
	}
	if sessions, err := store.List(); err == nil {
		for _, s := range sessions {
			if s.Stale(now, staleThreshold) {
				r.add(Finding{
					Kind:     "stale_session",
					Severity: SeverityWarning,
					ID:       s.TaskID,
					Message:  fmt.Sprintf("session %s (%s) last heartbeat %s", s.ID, s.Agent, s.LastHeartbeat.Format(time.RFC3339)),
				})
			}
		}
	}
}
