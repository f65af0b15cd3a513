package tree

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/untoldecay/backlog/internal/frontmatter"
	"github.com/untoldecay/backlog/internal/pathid"
	"github.com/untoldecay/backlog/internal/types"
)

// Problem is a soft defect noticed while loading: the tree still loads,
// and the consistency checker reports it. Kind values line up with the
// checker's diagnostic kinds.
type Problem struct {
	Kind     string
	Severity string
	ID       string
	File     string
	Message  string
}

// Loaded wraps the tree with the load-time problem list. Unknown index
// keys travel on the tree's Extra maps.
type Loaded struct {
	Tree     *types.Tree
	Problems []Problem
}

// Load reads the whole backlog under dataDir. Structural failures (an
// unreadable or unparsable index) abort with a pointer to the offending
// file; drift inside task files is recorded as a Problem instead.
func Load(dataDir string) (*Loaded, error) {
	var root frontmatter.RootIndex
	rootPath := filepath.Join(dataDir, "index.yaml")
	if err := frontmatter.ReadYAML(rootPath, &root); err != nil {
		return nil, err
	}

	tr := &types.Tree{
		Project:       root.Project,
		Description:   root.Description,
		SchemaVersion: root.SchemaVersion,
		DataDir:       dataDir,
		CriticalPath:  root.CriticalPath,
		NextAvailable: root.NextAvailable,
		Extra:         root.Extra,
	}
	out := &Loaded{Tree: tr}

	for _, entry := range root.Phases {
		phase, err := out.loadPhase(dataDir, entry)
		if err != nil {
			return nil, err
		}
		tr.Phases = append(tr.Phases, *phase)
	}

	var err error
	if tr.Bugs, err = out.loadAux(dataDir, "bugs"); err != nil {
		return nil, err
	}
	if tr.Ideas, err = out.loadAux(dataDir, "ideas"); err != nil {
		return nil, err
	}
	if tr.Fixes, err = out.loadAux(dataDir, "fixes"); err != nil {
		return nil, err
	}

	out.findOrphans(dataDir)
	return out, nil
}

func (l *Loaded) loadPhase(dataDir string, entry frontmatter.ContainerEntry) (*types.Phase, error) {
	phase := &types.Phase{
		ID:          entry.ID,
		Name:        entry.Name,
		Path:        entry.Path,
		Status:      types.Status(entry.Status),
		Locked:      entry.Locked,
		Description: entry.Description,
		DependsOn:   entry.DependsOn,
		Extra:       entry.Extra,
	}
	dir := filepath.Join(dataDir, entry.Path)
	indexPath := filepath.Join(dir, "index.yaml")
	var idx frontmatter.PhaseIndex
	if err := frontmatter.ReadYAML(indexPath, &idx); err != nil {
		if os.IsNotExist(underlying(err)) {
			// A declared phase with no directory index yet; legal minimal tree.
			return phase, nil
		}
		return nil, err
	}
	mergeContainer(&phase.Status, &phase.Locked, &phase.Description, idx.Status, idx.Locked, idx.Description)
	phase.Extra = mergeExtras(phase.Extra, idx.Extra)
	if idx.Name != "" {
		phase.Name = idx.Name
	}
	if len(idx.DependsOn) > 0 {
		phase.DependsOn = idx.DependsOn
	}

	for _, mEntry := range idx.Milestones {
		milestone, err := l.loadMilestone(dataDir, phase, mEntry)
		if err != nil {
			return nil, err
		}
		phase.Milestones = append(phase.Milestones, *milestone)
	}
	return phase, nil
}

func (l *Loaded) loadMilestone(dataDir string, phase *types.Phase, entry frontmatter.ContainerEntry) (*types.Milestone, error) {
	milestone := &types.Milestone{
		ID:          joinID(phase.ID, entry.ID),
		Name:        entry.Name,
		Path:        entry.Path,
		Status:      types.Status(entry.Status),
		Locked:      entry.Locked,
		Description: entry.Description,
		DependsOn:   entry.DependsOn,
		PhaseID:     phase.ID,
		Extra:       entry.Extra,
	}
	dir := filepath.Join(dataDir, phase.Path, entry.Path)
	var idx frontmatter.MilestoneIndex
	if err := frontmatter.ReadYAML(filepath.Join(dir, "index.yaml"), &idx); err != nil {
		if os.IsNotExist(underlying(err)) {
			return milestone, nil
		}
		return nil, err
	}
	mergeContainer(&milestone.Status, &milestone.Locked, &milestone.Description, idx.Status, idx.Locked, idx.Description)
	milestone.Extra = mergeExtras(milestone.Extra, idx.Extra)
	if idx.Name != "" {
		milestone.Name = idx.Name
	}
	if len(idx.DependsOn) > 0 {
		milestone.DependsOn = idx.DependsOn
	}

	for _, eEntry := range idx.Epics {
		epic, err := l.loadEpic(dataDir, phase, milestone, eEntry)
		if err != nil {
			return nil, err
		}
		milestone.Epics = append(milestone.Epics, *epic)
	}
	return milestone, nil
}

func (l *Loaded) loadEpic(dataDir string, phase *types.Phase, milestone *types.Milestone, entry frontmatter.ContainerEntry) (*types.Epic, error) {
	epic := &types.Epic{
		ID:          joinID(milestone.ID, entry.ID),
		Name:        entry.Name,
		Path:        entry.Path,
		Status:      types.Status(entry.Status),
		Locked:      entry.Locked,
		Description: entry.Description,
		DependsOn:   entry.DependsOn,
		MilestoneID: milestone.ID,
		PhaseID:     phase.ID,
		Extra:       entry.Extra,
	}
	dir := filepath.Join(dataDir, phase.Path, milestone.Path, entry.Path)
	var idx frontmatter.EpicIndex
	if err := frontmatter.ReadYAML(filepath.Join(dir, "index.yaml"), &idx); err != nil {
		if os.IsNotExist(underlying(err)) {
			return epic, nil
		}
		return nil, err
	}
	mergeContainer(&epic.Status, &epic.Locked, &epic.Description, idx.Status, idx.Locked, idx.Description)
	epic.Extra = mergeExtras(epic.Extra, idx.Extra)
	if idx.Name != "" {
		epic.Name = idx.Name
	}
	if len(idx.DependsOn) > 0 {
		epic.DependsOn = idx.DependsOn
	}

	relDir, _ := filepath.Rel(dataDir, dir)
	for _, tEntry := range idx.Tasks {
		task := l.loadTaskFile(dataDir, relDir, tEntry, joinID(epic.ID, tEntry.ID))
		task.PhaseID = phase.ID
		task.MilestoneID = milestone.ID
		task.EpicID = epic.ID
		epic.Tasks = append(epic.Tasks, task)
	}
	return epic, nil
}

// loadTaskFile reads a task file named by an index entry. The file header
// is canonical for task fields; disagreement with the index is recorded
// for the checker, and a broken or missing file falls back to the entry so
// the rest of the tree still loads.
func (l *Loaded) loadTaskFile(dataDir, relDir string, entry frontmatter.TaskEntry, fullID string) types.Task {
	relFile := filepath.Join(relDir, entry.File)
	fallback := types.Task{
		ID:            fullID,
		Title:         entry.Title,
		Status:        types.Status(entry.Status),
		EstimateHours: entry.EstimateHours,
		Complexity:    types.Complexity(entry.Complexity),
		Priority:      types.Priority(entry.Priority),
		DependsOn:     entry.DependsOn,
		Tags:          entry.Tags,
		File:          relFile,
	}
	if entry.File == "" {
		l.problem("missing_task_file", "error", fullID, relDir,
			fmt.Sprintf("index entry %s names no file", fullID))
		return fallback
	}
	raw, err := os.ReadFile(filepath.Join(dataDir, relFile))
	if err != nil {
		l.problem("missing_task_file", "error", fullID, relFile,
			fmt.Sprintf("task file missing for %s: %s", fullID, relFile))
		return fallback
	}
	header, body, err := frontmatter.ParseTask(raw)
	if err != nil {
		l.problem("malformed_frontmatter", "error", fullID, relFile, err.Error())
		return fallback
	}
	task := types.Task{
		ID:            fullID,
		Title:         header.Title,
		Status:        header.Status,
		EstimateHours: header.EstimateHours,
		Complexity:    header.Complexity,
		Priority:      header.Priority,
		DependsOn:     header.DependsOn,
		Tags:          header.Tags,
		ClaimedBy:     header.ClaimedBy,
		Reason:        header.Reason,
		CreatedAt:     header.CreatedAt,
		ClaimedAt:     header.ClaimedAt,
		StartedAt:     header.StartedAt,
		CompletedAt:   header.CompletedAt,
		File:          relFile,
		Body:          body,
		Extra:         header.Extra,
		IndexExtra:    entry.Extra,
	}
	if header.ID != "" && header.ID != fullID && header.ID != entry.ID {
		l.problem("status_mismatch_with_index", "error", fullID, relFile,
			fmt.Sprintf("file header id %q does not match index entry %s", header.ID, fullID))
	}
	if entry.Status != "" && types.Status(entry.Status) != task.Status {
		l.problem("status_mismatch_with_index", "error", fullID, relFile,
			fmt.Sprintf("index status %q disagrees with file status %q", entry.Status, task.Status))
	}
	if task.Title == "" {
		task.Title = entry.Title
	}
	return task
}

func (l *Loaded) loadAux(dataDir, bucket string) ([]types.Task, error) {
	indexPath := filepath.Join(dataDir, bucket, "index.yaml")
	var idx frontmatter.AuxIndex
	if err := frontmatter.ReadYAML(indexPath, &idx); err != nil {
		if os.IsNotExist(underlying(err)) {
			return nil, nil
		}
		return nil, err
	}
	var entries []frontmatter.TaskEntry
	switch bucket {
	case "bugs":
		entries = idx.Bugs
	case "ideas":
		entries = idx.Ideas
	case "fixes":
		entries = idx.Fixes
	}
	tasks := make([]types.Task, 0, len(entries))
	for _, entry := range entries {
		task := l.loadTaskFile(dataDir, bucket, entry, entry.ID)
		tasks = append(tasks, task)
	}
	sort.SliceStable(tasks, func(i, j int) bool {
		a, errA := pathid.Parse(tasks[i].ID)
		b, errB := pathid.Parse(tasks[j].ID)
		if errA != nil || errB != nil {
			return tasks[i].ID < tasks[j].ID
		}
		return pathid.Less(a, b)
	})
	return tasks, nil
}

// findOrphans records every *.todo file under the data dir that no index
// references.
func (l *Loaded) findOrphans(dataDir string) {
	referenced := map[string]struct{}{}
	l.Tree.ForEachTask(func(t *types.Task) {
		referenced[filepath.ToSlash(t.File)] = struct{}{}
	})
	for _, fix := range l.Tree.Fixes {
		referenced[filepath.ToSlash(fix.File)] = struct{}{}
	}
	_ = filepath.Walk(dataDir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() || !strings.HasSuffix(path, ".todo") {
			return nil
		}
		rel, relErr := filepath.Rel(dataDir, path)
		if relErr != nil {
			return nil
		}
		if _, ok := referenced[filepath.ToSlash(rel)]; !ok {
			l.problem("orphan_file", "error", "", rel,
				fmt.Sprintf("file not referenced by any index: %s", rel))
		}
		return nil
	})
}

func (l *Loaded) problem(kind, severity, id, file, message string) {
	l.Problems = append(l.Problems, Problem{Kind: kind, Severity: severity, ID: id, File: file, Message: message})
}

func mergeContainer(status *types.Status, locked *bool, description *string, idxStatus string, idxLocked bool, idxDescription string) {
	if idxStatus != "" {
		*status = types.Status(idxStatus)
	}
	if idxLocked {
		*locked = true
	}
	if idxDescription != "" {
		*description = idxDescription
	}
}

func mergeExtras(entry, own map[string]any) map[string]any {
	if len(own) == 0 {
		return entry
	}
	out := map[string]any{}
	for k, v := range entry {
		out[k] = v
	}
	for k, v := range own {
		out[k] = v
	}
	return out
}

func joinID(parent, local string) string {
	if strings.Contains(local, ".") {
		return local
	}
	return parent + "." + local
}

func underlying(err error) error {
	var e *types.Error
	if errors.As(err, &e) && e.Err != nil {
		return e.Err
	}
	return err
}
