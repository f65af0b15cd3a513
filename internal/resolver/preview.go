package resolver

import (
	"sort"

	"github.com/untoldecay/backlog/internal/pathid"
	"github.com/untoldecay/backlog/internal/types"
)

const (
	previewRows   = 5
	previewFanOut = 3
)

// PreviewRow is one candidate in the preview snapshot, with the extra IDs
// an agent could claim alongside it.
type PreviewRow struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Priority      string   `json:"priority"`
	EstimateHours float64  `json:"estimate_hours"`
	OnCritical    bool     `json:"on_critical_path"`
	Parallel      []string `json:"parallel,omitempty"`
}

// Preview is the categorised availability snapshot: the single next ID
// plus up to five rows per kind.
type Preview struct {
	Next  string       `json:"next"`
	Tasks []PreviewRow `json:"tasks"`
	Bugs  []PreviewRow `json:"bugs"`
	Ideas []PreviewRow `json:"ideas"`
}

// BuildPreview computes the snapshot, restricted to scope when non-empty.
func (r *Resolver) BuildPreview(scope *Scope) (*Preview, error) {
	cp, err := r.CriticalPath()
	if err != nil {
		return nil, err
	}
	available := scope.Filter(r.FindAllAvailable())
	ranked := r.Prioritize(available, cp)

	p := &Preview{}
	if len(ranked) > 0 {
		p.Next = ranked[0]
	}
	onPath := map[string]struct{}{}
	for _, id := range cp {
		onPath[id] = struct{}{}
	}
	for _, id := range ranked {
		parsed, err := pathid.Parse(id)
		if err != nil {
			continue
		}
		var bucket *[]PreviewRow
		switch parsed.Kind {
		case pathid.KindBug:
			bucket = &p.Bugs
		case pathid.KindIdea:
			bucket = &p.Ideas
		default:
			bucket = &p.Tasks
		}
		if len(*bucket) >= previewRows {
			continue
		}
		task := r.tree.FindTask(id)
		if task == nil {
			continue
		}
		parallel, err := r.FanOut(id, previewFanOut)
		if err != nil {
			return nil, err
		}
		_, critical := onPath[id]
		*bucket = append(*bucket, PreviewRow{
			ID:            id,
			Title:         task.Title,
			Priority:      string(task.Priority),
			EstimateHours: task.EstimateHours,
			OnCritical:    critical,
			Parallel:      parallel,
		})
	}
	return p, nil
}

// BlockerReport describes one unfinished task that gates downstream work.
type BlockerReport struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Status        string   `json:"status"`
	BlocksCount   int      `json:"blocks_count"`
	BlockedIDs    []string `json:"blocked_ids"`
	ReadyToStart  bool     `json:"ready_to_start"`
	OnCritical    bool     `json:"on_critical_path"`
	EstimateHours float64  `json:"estimate_hours"`
}

// RootBlockers lists unfinished tasks that transitively gate other
// unfinished work, heaviest first. Tasks whose own dependencies are met
// are flagged ready: finishing those unblocks the most downstream work.
func (r *Resolver) RootBlockers() ([]BlockerReport, error) {
	g, err := r.BuildGraph()
	if err != nil {
		return nil, err
	}
	cp, err := g.LongestPath()
	if err != nil {
		return nil, err
	}
	onPath := map[string]struct{}{}
	for _, id := range cp {
		onPath[id] = struct{}{}
	}
	var out []BlockerReport
	for _, id := range g.Nodes() {
		task := r.tree.FindTask(id)
		if task == nil || task.Status == types.StatusDone {
			continue
		}
		var blocked []string
		seen := map[string]struct{}{}
		stack := []string{id}
		for len(stack) > 0 {
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			for next := range g.edges[cur] {
				if _, ok := seen[next]; ok {
					continue
				}
				seen[next] = struct{}{}
				if t := r.tree.FindTask(next); t != nil && t.Status != types.StatusDone {
					blocked = append(blocked, next)
				}
				stack = append(stack, next)
			}
		}
		if len(blocked) == 0 {
			continue
		}
		sortIDs(blocked)
		_, critical := onPath[id]
		out = append(out, BlockerReport{
			ID:            id,
			Title:         task.Title,
			Status:        string(task.Status),
			BlocksCount:   len(blocked),
			BlockedIDs:    blocked,
			ReadyToStart:  r.Available(task, nil) || task.Status == types.StatusInProgress,
			OnCritical:    critical,
			EstimateHours: task.EstimateHours,
		})
	}
	// Heaviest blockers first, path ID as the deterministic tie-break.
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].BlocksCount != out[j].BlocksCount {
			return out[i].BlocksCount > out[j].BlocksCount
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func sortIDs(ids []string) {
	sort.SliceStable(ids, func(i, j int) bool {
		a, errA := pathid.Parse(ids[i])
		b, errB := pathid.Parse(ids[j])
		if errA != nil || errB != nil {
			return ids[i] < ids[j]
		}
		return pathid.Less(a, b)
	})
}
