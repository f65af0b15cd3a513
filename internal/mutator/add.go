package mutator

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/untoldecay/backlog/internal/frontmatter"
	"github.com/untoldecay/backlog/internal/pathid"
	"github.com/untoldecay/backlog/internal/types"
)

// stubBody is the template body for a freshly created task. The checker
// flags tasks still carrying these placeholders.
const stubBody = `
## Requirements

TODO: Add requirements/acceptance criteria

## Notes

`

// AddOptions carries the optional fields of a new task.
type AddOptions struct {
	Title         string
	EstimateHours float64
	Complexity    types.Complexity
	Priority      types.Priority
	DependsOn     []string
	Tags          []string
	Body          string
}

func (o *AddOptions) normalize() {
	if o.Complexity == "" {
		o.Complexity = types.ComplexityMedium
	}
	if o.Priority == "" {
		o.Priority = types.PriorityMedium
	}
	if o.Body == "" {
		o.Body = stubBody
	}
}

// AddTask creates a task under an epic and returns its new full ID.
func (m *Mutator) AddTask(parentID string, opts AddOptions) (string, error) {
	if strings.TrimSpace(opts.Title) == "" {
		return "", types.E(types.CodeRequiresField, "add requires --title")
	}
	opts.normalize()
	var newID string
	err := m.run(func(tr *types.Tree, tx *Tx) error {
		parsed, err := pathid.Parse(parentID)
		if err != nil || parsed.Kind != pathid.KindEpic {
			return types.E(types.CodeInvalidID, "add needs an epic id (P<n>.M<n>.E<n>), got %q", parentID)
		}
		epic := tr.FindEpic(parsed.String())
		if epic == nil {
			return types.NotFoundContainer("Epic", parsed.String())
		}
		if locked := lockedChainFor(tr, epic.PhaseID, epic.MilestoneID, epic.ID); locked != "" {
			kind, _ := containerKind(locked)
			return types.LockedContainer(kind, locked)
		}

		seq := 0
		for _, t := range epic.Tasks {
			if id, err := pathid.Parse(t.ID); err == nil && id.Task > seq {
				seq = id.Task
			}
		}
		id := parsed
		id.Kind = pathid.KindTask
		id.Task = seq + 1
		newID = id.String()

		now := m.Now()
		task := types.Task{
			ID:            newID,
			Title:         opts.Title,
			Status:        types.StatusPending,
			EstimateHours: opts.EstimateHours,
			Complexity:    opts.Complexity,
			Priority:      opts.Priority,
			DependsOn:     opts.DependsOn,
			Tags:          opts.Tags,
			CreatedAt:     &now,
			Body:          opts.Body,
			PhaseID:       epic.PhaseID,
			MilestoneID:   epic.MilestoneID,
			EpicID:        epic.ID,
		}
		task.File = filepath.Join(epicDir(tr, epic), fmt.Sprintf("%s-%s.todo", id.Local(), Slug(opts.Title)))

		epic.Tasks = append(epic.Tasks, task)
		if err := m.stageTask(tx, &epic.Tasks[len(epic.Tasks)-1]); err != nil {
			return err
		}
		if err := m.stageEpicIndex(tx, tr, epic); err != nil {
			return err
		}
		return m.stageRootIndex(tx, tr)
	})
	return newID, err
}

// AddEpic creates an epic under a milestone.
func (m *Mutator) AddEpic(parentID, title, description string) (string, error) {
	if strings.TrimSpace(title) == "" {
		return "", types.E(types.CodeRequiresField, "add-epic requires --title")
	}
	var newID string
	err := m.run(func(tr *types.Tree, tx *Tx) error {
		parsed, err := pathid.Parse(parentID)
		if err != nil || parsed.Kind != pathid.KindMilestone {
			return types.E(types.CodeInvalidID, "add-epic needs a milestone id (P<n>.M<n>), got %q", parentID)
		}
		milestone := tr.FindMilestone(parsed.String())
		if milestone == nil {
			return types.NotFoundContainer("Milestone", parsed.String())
		}
		if locked := lockedChainFor(tr, milestone.PhaseID, milestone.ID, ""); locked != "" {
			kind, _ := containerKind(locked)
			return types.LockedContainer(kind, locked)
		}

		seq := 0
		for _, e := range milestone.Epics {
			if id, err := pathid.Parse(e.ID); err == nil && id.Epic > seq {
				seq = id.Epic
			}
		}
		id := parsed
		id.Kind = pathid.KindEpic
		id.Epic = seq + 1
		newID = id.String()

		epic := types.Epic{
			ID:          newID,
			Name:        title,
			Path:        fmt.Sprintf("%02d-%s", id.Epic, Slug(title)),
			Description: description,
			MilestoneID: milestone.ID,
			PhaseID:     milestone.PhaseID,
		}
		milestone.Epics = append(milestone.Epics, epic)
		if err := m.stageEpicIndex(tx, tr, &milestone.Epics[len(milestone.Epics)-1]); err != nil {
			return err
		}
		if err := m.stageMilestoneIndex(tx, tr, milestone); err != nil {
			return err
		}
		return m.stageRootIndex(tx, tr)
	})
	return newID, err
}

// AddMilestone creates a milestone under a phase.
func (m *Mutator) AddMilestone(parentID, title, description string) (string, error) {
	if strings.TrimSpace(title) == "" {
		return "", types.E(types.CodeRequiresField, "add-milestone requires --title")
	}
	var newID string
	err := m.run(func(tr *types.Tree, tx *Tx) error {
		parsed, err := pathid.Parse(parentID)
		if err != nil || parsed.Kind != pathid.KindPhase {
			return types.E(types.CodeInvalidID, "add-milestone needs a phase id (P<n>), got %q", parentID)
		}
		phase := tr.FindPhase(parsed.String())
		if phase == nil {
			return types.NotFoundContainer("Phase", parsed.String())
		}
		if phase.Locked {
			return types.LockedContainer("phase", phase.ID)
		}

		seq := 0
		for _, ms := range phase.Milestones {
			if id, err := pathid.Parse(ms.ID); err == nil && id.Milestone > seq {
				seq = id.Milestone
			}
		}
		id := parsed
		id.Kind = pathid.KindMilestone
		id.Milestone = seq + 1
		newID = id.String()

		milestone := types.Milestone{
			ID:          newID,
			Name:        title,
			Path:        fmt.Sprintf("%02d-%s", id.Milestone, Slug(title)),
			Description: description,
			PhaseID:     phase.ID,
		}
		phase.Milestones = append(phase.Milestones, milestone)
		if err := m.stageMilestoneIndex(tx, tr, &phase.Milestones[len(phase.Milestones)-1]); err != nil {
			return err
		}
		if err := m.stagePhaseIndex(tx, tr, phase); err != nil {
			return err
		}
		return m.stageRootIndex(tx, tr)
	})
	return newID, err
}

// AddPhase creates a phase at the project root.
func (m *Mutator) AddPhase(title, description string) (string, error) {
	if strings.TrimSpace(title) == "" {
		return "", types.E(types.CodeRequiresField, "add-phase requires --title")
	}
	var newID string
	err := m.run(func(tr *types.Tree, tx *Tx) error {
		seq := 0
		for _, p := range tr.Phases {
			if id, err := pathid.Parse(p.ID); err == nil && id.Phase > seq {
				seq = id.Phase
			}
		}
		id := pathid.ID{Kind: pathid.KindPhase, Phase: seq + 1}
		newID = id.String()
		phase := types.Phase{
			ID:          newID,
			Name:        title,
			Path:        fmt.Sprintf("%02d-%s", id.Phase, Slug(title)),
			Description: description,
		}
		tr.Phases = append(tr.Phases, phase)
		if err := m.stagePhaseIndex(tx, tr, &tr.Phases[len(tr.Phases)-1]); err != nil {
			return err
		}
		return m.stageRootIndex(tx, tr)
	})
	return newID, err
}

// AddAux appends a bug or idea to its flat backlog and returns the new ID.
func (m *Mutator) AddAux(kind pathid.Kind, opts AddOptions) (string, error) {
	if strings.TrimSpace(opts.Title) == "" {
		return "", types.E(types.CodeRequiresField, "requires --title")
	}
	var bucket string
	switch kind {
	case pathid.KindBug:
		bucket = "bugs"
	case pathid.KindIdea:
		bucket = "ideas"
	default:
		return "", types.E(types.CodeInvalidID, "auxiliary kind must be bug or idea")
	}
	opts.normalize()
	var newID string
	err := m.run(func(tr *types.Tree, tx *Tx) error {
		list := tr.Bugs
		if kind == pathid.KindIdea {
			list = tr.Ideas
		}
		seq := 0
		for _, t := range list {
			if id, err := pathid.Parse(t.ID); err == nil && id.Num > seq {
				seq = id.Num
			}
		}
		id := pathid.ID{Kind: kind, Num: seq + 1}
		newID = id.String()

		now := m.Now()
		task := types.Task{
			ID:            newID,
			Title:         opts.Title,
			Status:        types.StatusPending,
			EstimateHours: opts.EstimateHours,
			Complexity:    opts.Complexity,
			Priority:      opts.Priority,
			DependsOn:     opts.DependsOn,
			Tags:          opts.Tags,
			CreatedAt:     &now,
			Body:          opts.Body,
			File:          filepath.Join(bucket, fmt.Sprintf("%s-%s.todo", newID, Slug(opts.Title))),
		}
		updated := append(append([]types.Task{}, list...), task)
		if err := m.stageTask(tx, &updated[len(updated)-1]); err != nil {
			return err
		}
		if kind == pathid.KindBug {
			tr.Bugs = updated
		} else {
			tr.Ideas = updated
		}
		if err := m.stageAuxIndex(tx, bucket, updated); err != nil {
			return err
		}
		return m.stageRootIndex(tx, tr)
	})
	return newID, err
}

// InitProject materialises a fresh .tasks skeleton. Refuses when a data
// dir already exists at root.
func InitProject(root, project, description string) (string, error) {
	for _, name := range []string{".tasks", ".backlog"} {
		if info, err := os.Stat(filepath.Join(root, name)); err == nil && info.IsDir() {
			return "", types.E(types.CodeIOError, "already initialised: %s exists", name)
		}
	}
	dataDir := filepath.Join(root, ".tasks")
	root1 := frontmatter.RootIndex{
		Project:       project,
		Description:   description,
		SchemaVersion: "v1",
		Phases:        []frontmatter.ContainerEntry{},
		CriticalPath:  []string{},
	}
	if err := frontmatter.WriteYAML(filepath.Join(dataDir, "index.yaml"), root1); err != nil {
		return "", err
	}
	if err := frontmatter.WriteYAML(filepath.Join(dataDir, "bugs", "index.yaml"), frontmatter.AuxIndex{Bugs: []frontmatter.TaskEntry{}}); err != nil {
		return "", err
	}
	if err := frontmatter.WriteYAML(filepath.Join(dataDir, "ideas", "index.yaml"), frontmatter.AuxIndex{Ideas: []frontmatter.TaskEntry{}}); err != nil {
		return "", err
	}
	return dataDir, nil
}

// lockedChainFor finds the nearest locked container in the chain.
func lockedChainFor(tr *types.Tree, phaseID, milestoneID, epicID string) string {
	if epicID != "" {
		if e := tr.FindEpic(epicID); e != nil && e.Locked {
			return e.ID
		}
	}
	if milestoneID != "" {
		if ms := tr.FindMilestone(milestoneID); ms != nil && ms.Locked {
			return ms.ID
		}
	}
	if phaseID != "" {
		if p := tr.FindPhase(phaseID); p != nil && p.Locked {
			return p.ID
		}
	}
	return ""
}

func containerKind(id string) (string, error) {
	parsed, err := pathid.Parse(id)
	if err != nil {
		return "container", err
	}
	return parsed.Kind.String(), nil
}
