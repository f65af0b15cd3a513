package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/untoldecay/backlog/internal/pathid"
	"github.com/untoldecay/backlog/internal/types"
	"github.com/untoldecay/backlog/internal/ui"
	"github.com/untoldecay/backlog/internal/utils"
)

type showTaskJSON struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Status        string   `json:"status"`
	EstimateHours float64  `json:"estimate_hours"`
	Complexity    string   `json:"complexity,omitempty"`
	Priority      string   `json:"priority,omitempty"`
	DependsOn     []string `json:"depends_on"`
	Tags          []string `json:"tags"`
	ClaimedBy     string   `json:"claimed_by,omitempty"`
	Reason        string   `json:"reason,omitempty"`
	ClaimedAt     *string  `json:"claimed_at,omitempty"`
	StartedAt     *string  `json:"started_at,omitempty"`
	CompletedAt   *string  `json:"completed_at,omitempty"`
	File          string   `json:"file"`
	Body          string   `json:"body,omitempty"`
}

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one task, bug, idea, or container in full",
	Long: `Show one task, bug, idea, or container in full.

For tasks the frontmatter fields and markdown body are rendered; on a
terminal the body goes through the markdown renderer. --no-content
suppresses the body.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		noContent, _ := cmd.Flags().GetBool("no-content")
		loaded, _ := loadTree()
		tr := loaded.Tree

		parsed, err := pathid.Parse(args[0])
		if err != nil {
			fatalError(types.E(types.CodeInvalidID, "invalid id: %s", args[0]))
		}
		if parsed.IsContainer() {
			showContainer(tr, parsed)
			return
		}
		task := tr.FindTask(parsed.String())
		if task == nil {
			enclosing := ""
			if parent, ok := parsed.Parent(); ok {
				enclosing = parent.String()
			}
			var ids []string
			all := tr.AllTasks()
			all = append(all, tr.Fixes...)
			for _, t := range all {
				ids = append(ids, t.ID)
			}
			err := types.NotFoundTask(parsed.String(), enclosing)
			if suggestions := utils.Suggest(parsed.String(), ids, 3); len(suggestions) > 0 {
				err.Hint += "\nDid you mean: " + strings.Join(suggestions, ", ")
			}
			fatalError(err)
		}
		if jsonOutput {
			payload := showTaskJSON{
				ID:            task.ID,
				Title:         task.Title,
				Status:        string(task.Status),
				EstimateHours: task.EstimateHours,
				Complexity:    string(task.Complexity),
				Priority:      string(task.Priority),
				DependsOn:     emptyIfNil(task.DependsOn),
				Tags:          emptyIfNil(task.Tags),
				ClaimedBy:     task.ClaimedBy,
				Reason:        task.Reason,
				ClaimedAt:     formatTimePtr(task.ClaimedAt),
				StartedAt:     formatTimePtr(task.StartedAt),
				CompletedAt:   formatTimePtr(task.CompletedAt),
				File:          task.File,
			}
			if !noContent {
				payload.Body = task.Body
			}
			outputJSON(payload)
			return
		}
		fmt.Printf("%s %s: %s\n", ui.StatusIcon(task.Status), ui.HeaderStyle.Render(task.ID), task.Title)
		fmt.Printf("  status: %s   priority: %s   complexity: %s   estimate: %.1fh\n",
			task.Status, task.Priority, task.Complexity, task.EstimateHours)
		if len(task.DependsOn) > 0 {
			fmt.Printf("  depends_on: %s\n", strings.Join(task.DependsOn, ", "))
		}
		if len(task.Tags) > 0 {
			fmt.Printf("  tags: %s\n", strings.Join(task.Tags, ", "))
		}
		if task.ClaimedBy != "" {
			fmt.Printf("  claimed_by: %s\n", task.ClaimedBy)
		}
		if task.Reason != "" {
			fmt.Printf("  reason: %s\n", task.Reason)
		}
		for _, ts := range []struct {
			label string
			t     *time.Time
		}{{"claimed_at", task.ClaimedAt}, {"started_at", task.StartedAt}, {"completed_at", task.CompletedAt}} {
			if ts.t != nil {
				fmt.Printf("  %s: %s\n", ts.label, ts.t.Format(time.RFC3339))
			}
		}
		fmt.Printf("  file: %s\n", task.File)
		if !noContent && strings.TrimSpace(task.Body) != "" {
			fmt.Println(ui.RenderMarkdown(task.Body))
		}
	},
}

func showContainer(tr *types.Tree, parsed pathid.ID) {
	type containerJSON struct {
		ID          string   `json:"id"`
		Name        string   `json:"name"`
		Status      string   `json:"status,omitempty"`
		Locked      bool     `json:"locked,omitempty"`
		Description string   `json:"description,omitempty"`
		Children    []string `json:"children"`
	}
	var payload containerJSON
	switch parsed.Kind {
	case pathid.KindPhase:
		phase := tr.FindPhase(parsed.String())
		if phase == nil {
			fatalError(types.NotFoundContainer("Phase", parsed.String()))
		}
		payload = containerJSON{ID: phase.ID, Name: phase.Name, Status: string(phase.Status), Locked: phase.Locked, Description: phase.Description}
		for _, ms := range phase.Milestones {
			payload.Children = append(payload.Children, ms.ID)
		}
	case pathid.KindMilestone:
		ms := tr.FindMilestone(parsed.String())
		if ms == nil {
			fatalError(types.NotFoundContainer("Milestone", parsed.String()))
		}
		payload = containerJSON{ID: ms.ID, Name: ms.Name, Status: string(ms.Status), Locked: ms.Locked, Description: ms.Description}
		for _, e := range ms.Epics {
			payload.Children = append(payload.Children, e.ID)
		}
	case pathid.KindEpic:
		epic := tr.FindEpic(parsed.String())
		if epic == nil {
			fatalError(types.NotFoundContainer("Epic", parsed.String()))
		}
		payload = containerJSON{ID: epic.ID, Name: epic.Name, Status: string(epic.Status), Locked: epic.Locked, Description: epic.Description}
		for _, t := range epic.Tasks {
			payload.Children = append(payload.Children, t.ID)
		}
	}
	if payload.Children == nil {
		payload.Children = []string{}
	}
	if jsonOutput {
		outputJSON(payload)
		return
	}
	fmt.Printf("%s: %s\n", ui.HeaderStyle.Render(payload.ID), payload.Name)
	if payload.Status != "" {
		fmt.Printf("  status: %s\n", payload.Status)
	}
	if payload.Locked {
		fmt.Println("  locked: true")
	}
	if payload.Description != "" {
		fmt.Printf("  description: %s\n", payload.Description)
	}
	for _, child := range payload.Children {
		fmt.Printf("  - %s\n", child)
	}
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}

func emptyIfNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}

func init() {
	showCmd.Flags().Bool("no-content", false, "Suppress the markdown body")
	rootCmd.AddCommand(showCmd)
}
