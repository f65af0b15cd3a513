package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/untoldecay/backlog/internal/resolver"
	"github.com/untoldecay/backlog/internal/tree"
	"github.com/untoldecay/backlog/internal/types"
	"github.com/untoldecay/backlog/internal/ui"
)

type listMilestoneJSON struct {
	ID     string     `json:"id"`
	Name   string     `json:"name"`
	Status string     `json:"status,omitempty"`
	Stats  tree.Stats `json:"stats"`
}

type listPhaseJSON struct {
	ID         string              `json:"id"`
	Name       string              `json:"name"`
	Status     string              `json:"status,omitempty"`
	Locked     bool                `json:"locked,omitempty"`
	Stats      tree.Stats          `json:"stats"`
	Milestones []listMilestoneJSON `json:"milestones"`
}

type listTaskJSON struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Status   string `json:"status"`
	Priority string `json:"priority,omitempty"`
}

type listJSON struct {
	Project       string          `json:"project"`
	Phases        []listPhaseJSON `json:"phases"`
	Bugs          []listTaskJSON  `json:"bugs"`
	Ideas         []listTaskJSON  `json:"ideas"`
	NextAvailable string          `json:"next_available,omitempty"`
}

var listCmd = &cobra.Command{
	Use:     "list [scope...]",
	Aliases: []string{"ls"},
	Short:   "List phases, milestones, and auxiliary queues with progress",
	Long: `List phases, milestones, and auxiliary queues with progress.

Each phase and milestone line carries its (done/total tasks done) stats.
Critical-priority bugs are starred. Positional path ids and repeatable
--scope flags restrict the listing; a scope that matches nothing fails.`,
	Run: func(cmd *cobra.Command, args []string) {
		loaded, _ := loadTree()
		tr := loaded.Tree
		scope := compileScope(tr, args)

		if jsonOutput {
			payload := listJSON{Project: tr.Project, Phases: []listPhaseJSON{}, Bugs: []listTaskJSON{}, Ideas: []listTaskJSON{}}
			for i := range tr.Phases {
				phase := &tr.Phases[i]
				if !scope.Contains(phase.ID) && !scopeTouchesPhase(scope, phase) {
					continue
				}
				pj := listPhaseJSON{
					ID:     phase.ID,
					Name:   phase.Name,
					Status: string(tree.PhaseStatus(phase)),
					Locked: phase.Locked,
					Stats:  tree.PhaseStats(phase),
				}
				for j := range phase.Milestones {
					ms := &phase.Milestones[j]
					pj.Milestones = append(pj.Milestones, listMilestoneJSON{
						ID:     ms.ID,
						Name:   ms.Name,
						Status: string(tree.MilestoneStatus(ms)),
						Stats:  tree.MilestoneStats(ms),
					})
				}
				payload.Phases = append(payload.Phases, pj)
			}
			for _, b := range tr.Bugs {
				if scope.Empty() || scope.Contains(b.ID) {
					payload.Bugs = append(payload.Bugs, listTaskJSON{ID: b.ID, Title: b.Title, Status: string(b.Status), Priority: string(b.Priority)})
				}
			}
			for _, i := range tr.Ideas {
				if scope.Empty() || scope.Contains(i.ID) {
					payload.Ideas = append(payload.Ideas, listTaskJSON{ID: i.ID, Title: i.Title, Status: string(i.Status), Priority: string(i.Priority)})
				}
			}
			if next, err := resolver.New(tr).NextAvailable(); err == nil {
				payload.NextAvailable = next
			}
			outputJSON(payload)
			return
		}

		fmt.Println(ui.HeaderStyle.Render(tr.Project))
		for i := range tr.Phases {
			phase := &tr.Phases[i]
			if !scope.Contains(phase.ID) && !scopeTouchesPhase(scope, phase) {
				continue
			}
			stats := tree.PhaseStats(phase)
			line := fmt.Sprintf("%s %s: %s (%d/%d tasks done)",
				ui.StatusIcon(tree.PhaseStatus(phase)), phase.ID, phase.Name, stats.Done, stats.Total)
			if phase.Locked {
				line += ui.MutedStyle.Render(" [locked]")
			}
			fmt.Println(ui.StatusStyle(tree.PhaseStatus(phase)).Render(line))
			for j := range phase.Milestones {
				ms := &phase.Milestones[j]
				if !scope.Contains(ms.ID) && !scopeTouchesMilestone(scope, ms) {
					continue
				}
				mstats := tree.MilestoneStats(ms)
				fmt.Printf("  %s %s: %s (%d/%d tasks done)\n",
					ui.StatusIcon(tree.MilestoneStatus(ms)), ms.ID, ms.Name, mstats.Done, mstats.Total)
			}
		}
		printAuxList("Bugs", tr.Bugs, scope)
		printAuxList("Ideas", tr.Ideas, scope)
	},
}

func printAuxList(header string, tasks []types.Task, scope *resolver.Scope) {
	var visible []types.Task
	for _, t := range tasks {
		if scope.Empty() || scope.Contains(t.ID) {
			visible = append(visible, t)
		}
	}
	if len(visible) == 0 {
		return
	}
	fmt.Println(ui.HeaderStyle.Render(header + ":"))
	for _, t := range visible {
		marker := " "
		if t.Priority == types.PriorityCritical {
			marker = ui.CriticalStyle.Render("★")
		}
		fmt.Printf("  %s %s %s: %s\n", marker, ui.StatusIcon(t.Status), t.ID, t.Title)
	}
}

// scopeTouchesPhase keeps a phase visible when the scope names something
// inside it.
func scopeTouchesPhase(scope *resolver.Scope, phase *types.Phase) bool {
	if scope.Empty() {
		return true
	}
	for i := range phase.Milestones {
		if scopeTouchesMilestone(scope, &phase.Milestones[i]) {
			return true
		}
	}
	return false
}

func scopeTouchesMilestone(scope *resolver.Scope, ms *types.Milestone) bool {
	if scope.Empty() || scope.Contains(ms.ID) {
		return true
	}
	for i := range ms.Epics {
		if scope.Contains(ms.Epics[i].ID) {
			return true
		}
		for _, t := range ms.Epics[i].Tasks {
			if scope.Contains(t.ID) {
				return true
			}
		}
	}
	return false
}

func init() {
	rootCmd.AddCommand(listCmd)
}
