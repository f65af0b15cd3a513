package frontmatter

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/untoldecay/backlog/internal/types"
)

// Index documents are pure YAML. Unknown keys ride along in the inline
// Extra maps so a rewrite never drops data another tool put there.

// ContainerEntry is a phase/milestone/epic row in its parent index.
type ContainerEntry struct {
	ID          string         `yaml:"id"`
	Name        string         `yaml:"name,omitempty"`
	Path        string         `yaml:"path,omitempty"`
	Status      string         `yaml:"status,omitempty"`
	Locked      bool           `yaml:"locked,omitempty"`
	Description string         `yaml:"description,omitempty"`
	DependsOn   []string       `yaml:"depends_on,omitempty"`
	Extra       map[string]any `yaml:",inline"`
}

// TaskEntry is a task row in an epic or auxiliary index.
type TaskEntry struct {
	ID            string         `yaml:"id"`
	Title         string         `yaml:"title"`
	Status        string         `yaml:"status"`
	EstimateHours float64        `yaml:"estimate_hours"`
	Complexity    string         `yaml:"complexity,omitempty"`
	Priority      string         `yaml:"priority,omitempty"`
	DependsOn     []string       `yaml:"depends_on"`
	Tags          []string       `yaml:"tags"`
	File          string         `yaml:"file"`
	Extra         map[string]any `yaml:",inline"`
}

// RootIndex is .tasks/index.yaml.
type RootIndex struct {
	Project       string           `yaml:"project"`
	Description   string           `yaml:"description,omitempty"`
	SchemaVersion string           `yaml:"schema_version,omitempty"`
	Phases        []ContainerEntry `yaml:"phases"`
	CriticalPath  []string         `yaml:"critical_path"`
	NextAvailable string           `yaml:"next_available"`
	Extra         map[string]any   `yaml:",inline"`
}

// PhaseIndex is NN-slug/index.yaml inside a phase directory.
type PhaseIndex struct {
	Name        string           `yaml:"name,omitempty"`
	Status      string           `yaml:"status,omitempty"`
	Locked      bool             `yaml:"locked,omitempty"`
	Description string           `yaml:"description,omitempty"`
	DependsOn   []string         `yaml:"depends_on,omitempty"`
	Milestones  []ContainerEntry `yaml:"milestones"`
	Extra       map[string]any   `yaml:",inline"`
}

// MilestoneIndex is the milestone directory's index.yaml.
type MilestoneIndex struct {
	Name        string           `yaml:"name,omitempty"`
	Status      string           `yaml:"status,omitempty"`
	Locked      bool             `yaml:"locked,omitempty"`
	Description string           `yaml:"description,omitempty"`
	DependsOn   []string         `yaml:"depends_on,omitempty"`
	Epics       []ContainerEntry `yaml:"epics"`
	Extra       map[string]any   `yaml:",inline"`
}

// EpicIndex is the epic directory's index.yaml.
type EpicIndex struct {
	Name        string         `yaml:"name,omitempty"`
	Status      string         `yaml:"status,omitempty"`
	Locked      bool           `yaml:"locked,omitempty"`
	Description string         `yaml:"description,omitempty"`
	DependsOn   []string       `yaml:"depends_on,omitempty"`
	Tasks       []TaskEntry    `yaml:"tasks"`
	Extra       map[string]any `yaml:",inline"`
}

// AuxIndex covers bugs/index.yaml, ideas/index.yaml, and fixes/index.yaml;
// exactly one list is populated per file.
type AuxIndex struct {
	Bugs  []TaskEntry    `yaml:"bugs,omitempty"`
	Ideas []TaskEntry    `yaml:"ideas,omitempty"`
	Fixes []TaskEntry    `yaml:"fixes,omitempty"`
	Extra map[string]any `yaml:",inline"`
}

// ReadYAML loads a structured document.
func ReadYAML(path string, out any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return types.Wrap(types.CodeIOError, err, "reading %s: %v", path, err)
	}
	if err := yaml.Unmarshal(raw, out); err != nil {
		return types.Wrap(types.CodeMalformedFrontmatter, err, "parsing %s: %v", path, err)
	}
	return nil
}

// MarshalYAML renders a structured document with yaml.v3's default
// formatting (4-space indentation).
func MarshalYAML(v any) ([]byte, error) {
	data, err := yaml.Marshal(v)
	if err != nil {
		return nil, types.Wrap(types.CodeIOError, err, "encoding yaml: %v", err)
	}
	return data, nil
}

// WriteYAML renders and atomically writes a structured document.
func WriteYAML(path string, v any) error {
	data, err := MarshalYAML(v)
	if err != nil {
		return err
	}
	return WriteFileAtomic(path, data)
}

// TaskEntryFromTask projects a task into its index row. Index rows carry
// the segment-local ID; the full ID lives in the task file header.
func TaskEntryFromTask(t *types.Task, localID string, file string) TaskEntry {
	return TaskEntry{
		ID:            localID,
		Title:         t.Title,
		Status:        string(t.Status),
		EstimateHours: t.EstimateHours,
		Complexity:    string(t.Complexity),
		Priority:      string(t.Priority),
		DependsOn:     emptyList(t.DependsOn),
		Tags:          emptyList(t.Tags),
		File:          file,
	}
}
