package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/untoldecay/backlog/internal/resolver"
	"github.com/untoldecay/backlog/internal/tree"
	"github.com/untoldecay/backlog/internal/types"
	"github.com/untoldecay/backlog/internal/ui"
)

type treeTaskJSON struct {
	ID            string  `json:"id"`
	Title         string  `json:"title"`
	Status        string  `json:"status"`
	EstimateHours float64 `json:"estimate_hours"`
	Priority      string  `json:"priority,omitempty"`
	OnCritical    bool    `json:"on_critical_path,omitempty"`
	Available     bool    `json:"available,omitempty"`
}

type treeEpicJSON struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Status string         `json:"status,omitempty"`
	Tasks  []treeTaskJSON `json:"tasks"`
}

type treeMilestoneJSON struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Status string         `json:"status,omitempty"`
	Epics  []treeEpicJSON `json:"epics"`
}

type treePhaseJSON struct {
	ID         string              `json:"id"`
	Name       string              `json:"name"`
	Status     string              `json:"status,omitempty"`
	Locked     bool                `json:"locked,omitempty"`
	Milestones []treeMilestoneJSON `json:"milestones"`
}

type treeJSON struct {
	Project        string          `json:"project"`
	Phases         []treePhaseJSON `json:"phases"`
	CriticalPath   []string        `json:"critical_path"`
	NextAvailable  string          `json:"next_available,omitempty"`
	MaxDepth       int             `json:"max_depth"`
	ShowDetails    bool            `json:"show_details"`
	UnfinishedOnly bool            `json:"unfinished_only"`
}

var treeCmd = &cobra.Command{
	Use:   "tree [scope...]",
	Short: "Render the full hierarchy with status glyphs",
	Long: `Render the full hierarchy with status glyphs.

Tasks on the critical path are starred; available tasks are marked.
--depth limits levels (1=phases ... 4=tasks), --unfinished hides done
subtrees, --details adds estimates and claim info per task.`,
	Run: func(cmd *cobra.Command, args []string) {
		maxDepth, _ := cmd.Flags().GetInt("depth")
		unfinished, _ := cmd.Flags().GetBool("unfinished")
		details, _ := cmd.Flags().GetBool("details")

		loaded, _ := loadTree()
		tr := loaded.Tree
		scope := compileScope(tr, args)
		res := resolver.New(tr)
		cp, err := res.CriticalPath()
		if err != nil {
			fatalError(err)
		}
		onPath := map[string]struct{}{}
		for _, id := range cp {
			onPath[id] = struct{}{}
		}
		available := map[string]struct{}{}
		for _, id := range res.FindAllAvailable() {
			available[id] = struct{}{}
		}

		if jsonOutput {
			payload := treeJSON{
				Project:        tr.Project,
				Phases:         []treePhaseJSON{},
				CriticalPath:   cp,
				MaxDepth:       maxDepth,
				ShowDetails:    details,
				UnfinishedOnly: unfinished,
			}
			if next, err := res.NextAvailable(); err == nil {
				payload.NextAvailable = next
			}
			for i := range tr.Phases {
				phase := &tr.Phases[i]
				if !scopeTouchesPhase(scope, phase) && !scope.Contains(phase.ID) {
					continue
				}
				if unfinished && tree.PhaseStatus(phase) == types.StatusDone {
					continue
				}
				pj := treePhaseJSON{ID: phase.ID, Name: phase.Name, Status: string(tree.PhaseStatus(phase)), Locked: phase.Locked}
				if maxDepth == 0 || maxDepth > 1 {
					for j := range phase.Milestones {
						ms := &phase.Milestones[j]
						if unfinished && tree.MilestoneStatus(ms) == types.StatusDone {
							continue
						}
						mj := treeMilestoneJSON{ID: ms.ID, Name: ms.Name, Status: string(tree.MilestoneStatus(ms))}
						if maxDepth == 0 || maxDepth > 2 {
							for k := range ms.Epics {
								epic := &ms.Epics[k]
								if unfinished && tree.EpicStatus(epic) == types.StatusDone {
									continue
								}
								ej := treeEpicJSON{ID: epic.ID, Name: epic.Name, Status: string(tree.EpicStatus(epic)), Tasks: []treeTaskJSON{}}
								if maxDepth == 0 || maxDepth > 3 {
									for _, t := range epic.Tasks {
										if unfinished && t.Status == types.StatusDone {
											continue
										}
										_, critical := onPath[t.ID]
										_, avail := available[t.ID]
										ej.Tasks = append(ej.Tasks, treeTaskJSON{
											ID: t.ID, Title: t.Title, Status: string(t.Status),
											EstimateHours: t.EstimateHours, Priority: string(t.Priority),
											OnCritical: critical, Available: avail,
										})
									}
								}
								mj.Epics = append(mj.Epics, ej)
							}
						}
						pj.Milestones = append(pj.Milestones, mj)
					}
				}
				payload.Phases = append(payload.Phases, pj)
			}
			outputJSON(payload)
			return
		}

		fmt.Println(ui.HeaderStyle.Render(tr.Project))
		for i := range tr.Phases {
			phase := &tr.Phases[i]
			if !scopeTouchesPhase(scope, phase) && !scope.Contains(phase.ID) {
				continue
			}
			if unfinished && tree.PhaseStatus(phase) == types.StatusDone {
				continue
			}
			fmt.Printf("%s %s: %s\n", ui.StatusIcon(tree.PhaseStatus(phase)), phase.ID, phase.Name)
			if maxDepth == 1 {
				continue
			}
			for j := range phase.Milestones {
				ms := &phase.Milestones[j]
				if unfinished && tree.MilestoneStatus(ms) == types.StatusDone {
					continue
				}
				fmt.Printf("  %s %s: %s\n", ui.StatusIcon(tree.MilestoneStatus(ms)), ms.ID, ms.Name)
				if maxDepth == 2 {
					continue
				}
				for k := range ms.Epics {
					epic := &ms.Epics[k]
					if unfinished && tree.EpicStatus(epic) == types.StatusDone {
						continue
					}
					fmt.Printf("    %s %s: %s\n", ui.StatusIcon(tree.EpicStatus(epic)), epic.ID, epic.Name)
					if maxDepth == 3 {
						continue
					}
					for _, t := range epic.Tasks {
						if unfinished && t.Status == types.StatusDone {
							continue
						}
						line := fmt.Sprintf("      %s %s: %s", ui.StatusIcon(t.Status), t.ID, t.Title)
						if _, critical := onPath[t.ID]; critical {
							line += " " + ui.CriticalStyle.Render("★")
						}
						if details {
							line += ui.MutedStyle.Render(fmt.Sprintf(" (%.1fh, %s)", t.EstimateHours, t.Priority))
							if t.ClaimedBy != "" {
								line += ui.MutedStyle.Render(" @" + t.ClaimedBy)
							}
						}
						fmt.Println(line)
					}
				}
			}
		}
	},
}

func init() {
	treeCmd.Flags().Int("depth", 0, "Limit depth (1=phases, 4=tasks; 0=all)")
	treeCmd.Flags().Bool("unfinished", false, "Hide completed subtrees")
	treeCmd.Flags().Bool("details", false, "Show estimates, priority, and claims")
	rootCmd.AddCommand(treeCmd)
}
