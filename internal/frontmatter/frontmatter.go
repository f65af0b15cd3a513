// Package frontmatter reads and writes the two-marker envelope used by
// task files: a leading "---" line, a YAML key/value block, a trailing
// "---" line, then a free-form markdown body. The body is preserved
// byte-exact; unknown header keys survive round trips.
package frontmatter

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/untoldecay/backlog/internal/types"
)

const marker = "---"

// TaskHeader is the typed frontmatter of a task file. Extra carries any
// keys the current schema does not know about.
type TaskHeader struct {
	ID            string
	Title         string
	Status        types.Status
	EstimateHours float64
	Complexity    types.Complexity
	Priority      types.Priority
	DependsOn     []string
	Tags          []string
	ClaimedBy     string
	Reason        string
	CreatedAt     *time.Time
	ClaimedAt     *time.Time
	StartedAt     *time.Time
	CompletedAt   *time.Time
	Extra         map[string]any
}

// Split separates the envelope from the body without interpreting the
// header. The returned body is everything after the closing marker line.
func Split(data []byte) (header string, body string, err error) {
	lines := strings.Split(string(data), "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != marker {
		return "", "", types.E(types.CodeMalformedFrontmatter, "missing frontmatter envelope")
	}
	end := -1
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == marker {
			end = i
			break
		}
	}
	if end < 0 {
		return "", "", types.E(types.CodeMalformedFrontmatter, "unterminated frontmatter envelope")
	}
	header = strings.Join(lines[1:end], "\n")
	if end+1 < len(lines) {
		body = strings.Join(lines[end+1:], "\n")
	}
	return header, body, nil
}

// ParseTask decodes a task file into its typed header and verbatim body.
func ParseTask(data []byte) (TaskHeader, string, error) {
	headerText, body, err := Split(data)
	if err != nil {
		return TaskHeader{}, "", err
	}
	raw := map[string]any{}
	if strings.TrimSpace(headerText) != "" {
		if err := yaml.Unmarshal([]byte(headerText), &raw); err != nil {
			return TaskHeader{}, "", types.Wrap(types.CodeMalformedFrontmatter, err, "invalid frontmatter yaml: %v", err)
		}
	}
	h := TaskHeader{Extra: map[string]any{}}
	for key, value := range raw {
		if err := h.assign(key, value); err != nil {
			return TaskHeader{}, "", err
		}
	}
	return h, body, nil
}

func (h *TaskHeader) assign(key string, value any) error {
	switch key {
	case "id":
		return assignString(key, value, &h.ID)
	case "title":
		return assignString(key, value, &h.Title)
	case "status":
		var s string
		if err := assignString(key, value, &s); err != nil {
			return err
		}
		h.Status = types.Status(s)
	case "estimate_hours", "estimated_hours":
		f, ok := toFloat(value)
		if !ok {
			return typeMismatch(key, "number", value)
		}
		h.EstimateHours = f
	case "complexity":
		var s string
		if err := assignString(key, value, &s); err != nil {
			return err
		}
		h.Complexity = types.Complexity(s)
	case "priority":
		var s string
		if err := assignString(key, value, &s); err != nil {
			return err
		}
		h.Priority = types.Priority(s)
	case "depends_on":
		list, ok := toStringList(value)
		if !ok {
			return typeMismatch(key, "string list", value)
		}
		h.DependsOn = list
	case "tags":
		list, ok := toStringList(value)
		if !ok {
			return typeMismatch(key, "string list", value)
		}
		h.Tags = list
	case "claimed_by":
		return assignString(key, value, &h.ClaimedBy)
	case "reason":
		return assignString(key, value, &h.Reason)
	case "created_at":
		return assignTime(key, value, &h.CreatedAt)
	case "claimed_at":
		return assignTime(key, value, &h.ClaimedAt)
	case "started_at":
		return assignTime(key, value, &h.StartedAt)
	case "completed_at":
		return assignTime(key, value, &h.CompletedAt)
	default:
		h.Extra[key] = value
	}
	return nil
}

func assignString(key string, value any, dst *string) error {
	if value == nil {
		*dst = ""
		return nil
	}
	s, ok := value.(string)
	if !ok {
		return typeMismatch(key, "string", value)
	}
	*dst = s
	return nil
}

func assignTime(key string, value any, dst **time.Time) error {
	switch v := value.(type) {
	case nil:
		*dst = nil
		return nil
	case time.Time:
		u := v.UTC()
		*dst = &u
		return nil
	case string:
		if strings.TrimSpace(v) == "" {
			*dst = nil
			return nil
		}
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return typeMismatch(key, "ISO-8601 timestamp", value)
		}
		u := ts.UTC()
		*dst = &u
		return nil
	default:
		return typeMismatch(key, "ISO-8601 timestamp", value)
	}
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case float64:
		return v, true
	case float32:
		return float64(v), true
	default:
		return 0, false
	}
}

func toStringList(value any) ([]string, bool) {
	if value == nil {
		return nil, true
	}
	raw, ok := value.([]any)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		s, ok := item.(string)
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}

func typeMismatch(key, want string, got any) error {
	return types.E(types.CodeTypeMismatch, "frontmatter key %q: expected %s, got %T", key, want, got)
}

// RenderTask encodes the header and body back into file bytes. Known keys
// are emitted in canonical order; extras follow, sorted by key. The body is
// appended verbatim after the closing marker.
func RenderTask(h TaskHeader, body string) ([]byte, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	add := func(key string, value any) error {
		keyNode := &yaml.Node{Kind: yaml.ScalarNode, Value: key}
		valueNode := &yaml.Node{}
		if err := valueNode.Encode(value); err != nil {
			return fmt.Errorf("encode %s: %w", key, err)
		}
		node.Content = append(node.Content, keyNode, valueNode)
		return nil
	}
	pairs := []struct {
		key   string
		value any
		skip  bool
	}{
		{"id", h.ID, h.ID == ""},
		{"title", h.Title, false},
		{"status", string(h.Status), h.Status == ""},
		{"estimate_hours", h.EstimateHours, false},
		{"complexity", string(h.Complexity), h.Complexity == ""},
		{"priority", string(h.Priority), h.Priority == ""},
		{"depends_on", emptyList(h.DependsOn), false},
		{"tags", emptyList(h.Tags), false},
		{"claimed_by", h.ClaimedBy, h.ClaimedBy == ""},
		{"reason", h.Reason, h.Reason == ""},
		{"created_at", timeValue(h.CreatedAt), h.CreatedAt == nil},
		{"claimed_at", timeValue(h.ClaimedAt), h.ClaimedAt == nil},
		{"started_at", timeValue(h.StartedAt), h.StartedAt == nil},
		{"completed_at", timeValue(h.CompletedAt), h.CompletedAt == nil},
	}
	for _, p := range pairs {
		if p.skip {
			continue
		}
		if err := add(p.key, p.value); err != nil {
			return nil, err
		}
	}
	extraKeys := make([]string, 0, len(h.Extra))
	for k := range h.Extra {
		extraKeys = append(extraKeys, k)
	}
	sort.Strings(extraKeys)
	for _, k := range extraKeys {
		if err := add(k, h.Extra[k]); err != nil {
			return nil, err
		}
	}

	encoded, err := yaml.Marshal(node)
	if err != nil {
		return nil, err
	}
	var b strings.Builder
	b.WriteString(marker)
	b.WriteString("\n")
	b.Write(encoded)
	b.WriteString(marker)
	b.WriteString("\n")
	b.WriteString(body)
	return []byte(b.String()), nil
}

func emptyList(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}

func timeValue(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

// HeaderFromTask projects a Task back into its file header. The header id
// is always the full path ID.
func HeaderFromTask(t *types.Task) TaskHeader {
	return TaskHeader{
		ID:            t.ID,
		Title:         t.Title,
		Status:        t.Status,
		EstimateHours: t.EstimateHours,
		Complexity:    t.Complexity,
		Priority:      t.Priority,
		DependsOn:     t.DependsOn,
		Tags:          t.Tags,
		ClaimedBy:     t.ClaimedBy,
		Reason:        t.Reason,
		CreatedAt:     t.CreatedAt,
		ClaimedAt:     t.ClaimedAt,
		StartedAt:     t.StartedAt,
		CompletedAt:   t.CompletedAt,
		Extra:         t.Extra,
	}
}
