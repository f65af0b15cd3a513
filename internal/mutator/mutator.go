package mutator

import (
	"errors"
	"path/filepath"
	"strings"
	"time"

	"github.com/untoldecay/backlog/internal/frontmatter"
	"github.com/untoldecay/backlog/internal/pathid"
	"github.com/untoldecay/backlog/internal/resolver"
	"github.com/untoldecay/backlog/internal/tree"
	"github.com/untoldecay/backlog/internal/types"
)

// Mutator owns all write operations against one data dir.
type Mutator struct {
	dataDir string
	// Now is swappable for tests.
	Now func() time.Time
}

// New binds a mutator to a data dir.
func New(dataDir string) *Mutator {
	return &Mutator{dataDir: dataDir, Now: func() time.Time { return time.Now().UTC() }}
}

// DataDir returns the bound data dir.
func (m *Mutator) DataDir() string { return m.dataDir }

// run loads a fresh tree, lets op stage changes, and commits. On a
// concurrent-modification conflict the whole sequence runs once more
// against the new tree state before failing.
func (m *Mutator) run(op func(tr *types.Tree, tx *Tx) error) error {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		loaded, err := tree.Load(m.dataDir)
		if err != nil {
			return err
		}
		tx := newTx(m.dataDir)
		if err := op(loaded.Tree, tx); err != nil {
			return err
		}
		err = tx.commit()
		if err == nil {
			return nil
		}
		if !errors.Is(err, errConflict) && types.CodeOf(err) != types.CodeConcurrentModification {
			return err
		}
		lastErr = err
	}
	return lastErr
}

// stageTask rewrites a task's file and guards it against concurrent edits.
func (m *Mutator) stageTask(tx *Tx, t *types.Task) error {
	tx.Guard(t.File)
	data, err := frontmatter.RenderTask(frontmatter.HeaderFromTask(t), t.Body)
	if err != nil {
		return err
	}
	tx.Stage(t.File, data)
	return nil
}

// epicDir returns an epic's directory relative to the data dir.
func epicDir(tr *types.Tree, epic *types.Epic) string {
	milestone := tr.FindMilestone(epic.MilestoneID)
	phase := tr.FindPhase(epic.PhaseID)
	if milestone == nil || phase == nil {
		return ""
	}
	return filepath.Join(phase.Path, milestone.Path, epic.Path)
}

func milestoneDir(tr *types.Tree, m *types.Milestone) string {
	phase := tr.FindPhase(m.PhaseID)
	if phase == nil {
		return ""
	}
	return filepath.Join(phase.Path, m.Path)
}

// stageEpicIndex rebuilds an epic's index.yaml from its in-memory state.
func (m *Mutator) stageEpicIndex(tx *Tx, tr *types.Tree, epic *types.Epic) error {
	dir := epicDir(tr, epic)
	if dir == "" {
		return types.E(types.CodeNotFound, "container chain broken for epic %s", epic.ID)
	}
	rel := filepath.Join(dir, "index.yaml")
	tx.Guard(rel)
	idx := frontmatter.EpicIndex{
		Name:        epic.Name,
		Status:      string(epic.Status),
		Locked:      epic.Locked,
		Description: epic.Description,
		DependsOn:   epic.DependsOn,
		Extra:       epic.Extra,
	}
	for i := range epic.Tasks {
		t := &epic.Tasks[i]
		entry := frontmatter.TaskEntryFromTask(t, localID(t.ID), filepath.Base(t.File))
		entry.Extra = t.IndexExtra
		idx.Tasks = append(idx.Tasks, entry)
	}
	if idx.Tasks == nil {
		idx.Tasks = []frontmatter.TaskEntry{}
	}
	return tx.StageYAML(rel, idx)
}

// stageMilestoneIndex rebuilds a milestone's index.yaml.
func (m *Mutator) stageMilestoneIndex(tx *Tx, tr *types.Tree, milestone *types.Milestone) error {
	dir := milestoneDir(tr, milestone)
	if dir == "" {
		return types.E(types.CodeNotFound, "container chain broken for milestone %s", milestone.ID)
	}
	rel := filepath.Join(dir, "index.yaml")
	tx.Guard(rel)
	idx := frontmatter.MilestoneIndex{
		Name:        milestone.Name,
		Status:      string(milestone.Status),
		Locked:      milestone.Locked,
		Description: milestone.Description,
		DependsOn:   milestone.DependsOn,
		Extra:       milestone.Extra,
	}
	for i := range milestone.Epics {
		e := &milestone.Epics[i]
		idx.Epics = append(idx.Epics, frontmatter.ContainerEntry{
			ID:        localID(e.ID),
			Name:      e.Name,
			Path:      e.Path,
			Status:    string(e.Status),
			Locked:    e.Locked,
			DependsOn: e.DependsOn,
		})
	}
	if idx.Epics == nil {
		idx.Epics = []frontmatter.ContainerEntry{}
	}
	return tx.StageYAML(rel, idx)
}

// stagePhaseIndex rebuilds a phase's index.yaml.
func (m *Mutator) stagePhaseIndex(tx *Tx, tr *types.Tree, phase *types.Phase) error {
	rel := filepath.Join(phase.Path, "index.yaml")
	tx.Guard(rel)
	idx := frontmatter.PhaseIndex{
		Name:        phase.Name,
		Status:      string(phase.Status),
		Locked:      phase.Locked,
		Description: phase.Description,
		DependsOn:   phase.DependsOn,
		Extra:       phase.Extra,
	}
	for i := range phase.Milestones {
		ms := &phase.Milestones[i]
		idx.Milestones = append(idx.Milestones, frontmatter.ContainerEntry{
			ID:        localID(ms.ID),
			Name:      ms.Name,
			Path:      ms.Path,
			Status:    string(ms.Status),
			Locked:    ms.Locked,
			DependsOn: ms.DependsOn,
		})
	}
	if idx.Milestones == nil {
		idx.Milestones = []frontmatter.ContainerEntry{}
	}
	return tx.StageYAML(rel, idx)
}

// stageRootIndex rebuilds index.yaml at the data dir root, refreshing the
// stored critical path and next-available pointer from the mutated state.
func (m *Mutator) stageRootIndex(tx *Tx, tr *types.Tree) error {
	tx.Guard("index.yaml")
	res := resolver.New(tr)
	if cp, err := res.CriticalPath(); err == nil {
		tr.CriticalPath = cp
	}
	if next, err := res.NextAvailable(); err == nil {
		tr.NextAvailable = next
	}
	idx := frontmatter.RootIndex{
		Project:       tr.Project,
		Description:   tr.Description,
		SchemaVersion: tr.SchemaVersion,
		CriticalPath:  tr.CriticalPath,
		NextAvailable: tr.NextAvailable,
		Extra:         tr.Extra,
	}
	if idx.CriticalPath == nil {
		idx.CriticalPath = []string{}
	}
	for i := range tr.Phases {
		p := &tr.Phases[i]
		idx.Phases = append(idx.Phases, frontmatter.ContainerEntry{
			ID:        p.ID,
			Name:      p.Name,
			Path:      p.Path,
			Status:    string(p.Status),
			Locked:    p.Locked,
			DependsOn: p.DependsOn,
		})
	}
	if idx.Phases == nil {
		idx.Phases = []frontmatter.ContainerEntry{}
	}
	return tx.StageYAML("index.yaml", idx)
}

// stageAuxIndex rebuilds bugs/ideas/fixes index.yaml.
func (m *Mutator) stageAuxIndex(tx *Tx, bucket string, tasks []types.Task) error {
	rel := filepath.Join(bucket, "index.yaml")
	tx.Guard(rel)
	entries := make([]frontmatter.TaskEntry, 0, len(tasks))
	for i := range tasks {
		t := &tasks[i]
		file, err := filepath.Rel(bucket, t.File)
		if err != nil {
			file = filepath.Base(t.File)
		}
		entry := frontmatter.TaskEntryFromTask(t, t.ID, filepath.ToSlash(file))
		entry.Extra = t.IndexExtra
		entries = append(entries, entry)
	}
	idx := frontmatter.AuxIndex{}
	switch bucket {
	case "bugs":
		idx.Bugs = entries
	case "ideas":
		idx.Ideas = entries
	case "fixes":
		idx.Fixes = entries
	}
	return tx.StageYAML(rel, idx)
}

func localID(full string) string {
	if i := strings.LastIndex(full, "."); i >= 0 {
		return full[i+1:]
	}
	return full
}

// findTask resolves an ID to a primary or auxiliary task, with the
// standard NOT_FOUND hint.
func findTask(tr *types.Tree, id string) (*types.Task, error) {
	parsed, err := pathid.Parse(id)
	if err != nil {
		return nil, types.E(types.CodeInvalidID, "invalid task id: %s", id)
	}
	task := tr.FindTask(parsed.String())
	if task == nil {
		enclosing := ""
		if parent, ok := parsed.Parent(); ok {
			enclosing = parent.String()
		}
		return nil, types.NotFoundTask(parsed.String(), enclosing)
	}
	return task, nil
}
