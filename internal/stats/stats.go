// Package stats derives read-only aggregations from the loaded tree:
// progress summaries, velocity buckets, estimate accuracy, and the
// activity event log.
package stats

import (
	"sort"
	"time"

	"github.com/untoldecay/backlog/internal/pathid"
	"github.com/untoldecay/backlog/internal/tree"
	"github.com/untoldecay/backlog/internal/types"
)

// StatusCounts buckets tasks by lifecycle state.
type StatusCounts struct {
	Pending    int `json:"pending"`
	InProgress int `json:"in_progress"`
	Blocked    int `json:"blocked"`
	Done       int `json:"done"`
	Total      int `json:"total"`
}

func (c *StatusCounts) add(s types.Status) {
	c.Total++
	switch s {
	case types.StatusInProgress:
		c.InProgress++
	case types.StatusBlocked:
		c.Blocked++
	case types.StatusDone:
		c.Done++
	default:
		c.Pending++
	}
}

// BucketSummary is the per-container slice of the progress summary.
type BucketSummary struct {
	ID            string       `json:"id"`
	Name          string       `json:"name,omitempty"`
	Counts        StatusCounts `json:"counts"`
	EstimateHours float64      `json:"estimate_hours"`
}

// Summary is the whole-project progress report.
type Summary struct {
	Project       string          `json:"project"`
	Counts        StatusCounts    `json:"counts"`
	EstimateHours float64         `json:"estimate_hours"`
	Phases        []BucketSummary `json:"phases"`
	Milestones    []BucketSummary `json:"milestones"`
	Epics         []BucketSummary `json:"epics"`
	Bugs          BucketSummary   `json:"bugs"`
	Ideas         BucketSummary   `json:"ideas"`
}

// BuildSummary computes counts per status overall and per container.
func BuildSummary(tr *types.Tree) *Summary {
	s := &Summary{Project: tr.Project}
	for i := range tr.Phases {
		phase := &tr.Phases[i]
		pb := BucketSummary{ID: phase.ID, Name: phase.Name}
		for j := range phase.Milestones {
			ms := &phase.Milestones[j]
			mb := BucketSummary{ID: ms.ID, Name: ms.Name}
			for k := range ms.Epics {
				epic := &ms.Epics[k]
				eb := BucketSummary{ID: epic.ID, Name: epic.Name}
				for l := range epic.Tasks {
					t := &epic.Tasks[l]
					eb.Counts.add(t.Status)
					eb.EstimateHours += t.EstimateHours
					s.Counts.add(t.Status)
					s.EstimateHours += t.EstimateHours
				}
				mb.Counts.Total += eb.Counts.Total
				mb.Counts.Pending += eb.Counts.Pending
				mb.Counts.InProgress += eb.Counts.InProgress
				mb.Counts.Blocked += eb.Counts.Blocked
				mb.Counts.Done += eb.Counts.Done
				mb.EstimateHours += eb.EstimateHours
				s.Epics = append(s.Epics, eb)
			}
			pb.Counts.Total += mb.Counts.Total
			pb.Counts.Pending += mb.Counts.Pending
			pb.Counts.InProgress += mb.Counts.InProgress
			pb.Counts.Blocked += mb.Counts.Blocked
			pb.Counts.Done += mb.Counts.Done
			pb.EstimateHours += mb.EstimateHours
			s.Milestones = append(s.Milestones, mb)
		}
		s.Phases = append(s.Phases, pb)
	}
	s.Bugs = auxSummary("bugs", tr.Bugs)
	s.Ideas = auxSummary("ideas", tr.Ideas)
	for _, t := range tr.Bugs {
		s.Counts.add(t.Status)
		s.EstimateHours += t.EstimateHours
	}
	for _, t := range tr.Ideas {
		s.Counts.add(t.Status)
		s.EstimateHours += t.EstimateHours
	}
	return s
}

func auxSummary(name string, tasks []types.Task) BucketSummary {
	b := BucketSummary{ID: name}
	for i := range tasks {
		b.Counts.add(tasks[i].Status)
		b.EstimateHours += tasks[i].EstimateHours
	}
	return b
}

// VelocityBucket is one day of completions.
type VelocityBucket struct {
	Date          string  `json:"date"`
	Completed     int     `json:"completed"`
	EstimateHours float64 `json:"estimate_hours"`
}

// Velocity buckets completed tasks by completion day over the inclusive
// window [now-days, now]; the result always holds days+1 buckets.
func Velocity(tr *types.Tree, days int, now time.Time) []VelocityBucket {
	if days < 0 {
		days = 0
	}
	start := now.UTC().AddDate(0, 0, -days)
	buckets := make([]VelocityBucket, days+1)
	index := map[string]int{}
	for i := 0; i <= days; i++ {
		date := start.AddDate(0, 0, i).Format("2006-01-02")
		buckets[i] = VelocityBucket{Date: date}
		index[date] = i
	}
	all := tr.AllTasks()
	all = append(all, tr.Fixes...)
	for _, t := range all {
		if t.Status != types.StatusDone || t.CompletedAt == nil {
			continue
		}
		date := t.CompletedAt.UTC().Format("2006-01-02")
		if i, ok := index[date]; ok {
			buckets[i].Completed++
			buckets[i].EstimateHours += t.EstimateHours
		}
	}
	return buckets
}

// AccuracyBucket labels one range of actual/estimate ratios.
type AccuracyBucket struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Accuracy is the estimate-accuracy report.
type Accuracy struct {
	Measured int              `json:"measured"`
	Buckets  []AccuracyBucket `json:"buckets"`
}

// EstimateAccuracy compares actual durations (completed_at - started_at)
// with estimates for every task that has both; everything else is skipped
// silently.
func EstimateAccuracy(tr *types.Tree) *Accuracy {
	labels := []string{"under 0.5x", "0.5-0.9x", "0.9-1.1x", "1.1-2x", "over 2x"}
	acc := &Accuracy{}
	counts := make([]int, len(labels))
	all := tr.AllTasks()
	all = append(all, tr.Fixes...)
	for _, t := range all {
		if t.EstimateHours <= 0 || t.StartedAt == nil || t.CompletedAt == nil {
			continue
		}
		actual := t.CompletedAt.Sub(*t.StartedAt).Hours()
		if actual <= 0 {
			continue
		}
		ratio := actual / t.EstimateHours
		acc.Measured++
		switch {
		case ratio < 0.5:
			counts[0]++
		case ratio < 0.9:
			counts[1]++
		case ratio <= 1.1:
			counts[2]++
		case ratio <= 2:
			counts[3]++
		default:
			counts[4]++
		}
	}
	for i, label := range labels {
		acc.Buckets = append(acc.Buckets, AccuracyBucket{Label: label, Count: counts[i]})
	}
	return acc
}

// Event is one activity-log entry derived from task metadata.
type Event struct {
	TaskID    string     `json:"task_id"`
	Event     string     `json:"event"`
	Actor     string     `json:"actor,omitempty"`
	Kind      string     `json:"kind"`
	Timestamp *time.Time `json:"timestamp"`
}

// ActivityLog derives ordered events from the tree: added, claimed,
// started, completed. Events without timestamps (added) sort before
// timestamped ones and among themselves by path ID.
func ActivityLog(tr *types.Tree) []Event {
	var events []Event
	all := tr.AllTasks()
	all = append(all, tr.Fixes...)
	for _, t := range all {
		kind := eventKind(t.ID)
		actor := t.ClaimedBy
		if t.CreatedAt != nil || (t.Status == types.StatusPending && t.ClaimedAt == nil && t.StartedAt == nil && t.CompletedAt == nil) {
			events = append(events, Event{TaskID: t.ID, Event: "added", Kind: kind, Timestamp: t.CreatedAt})
		}
		if t.ClaimedAt != nil {
			events = append(events, Event{TaskID: t.ID, Event: "claimed", Actor: actor, Kind: kind, Timestamp: t.ClaimedAt})
		}
		if t.StartedAt != nil {
			events = append(events, Event{TaskID: t.ID, Event: "started", Actor: actor, Kind: kind, Timestamp: t.StartedAt})
		}
		if t.CompletedAt != nil {
			events = append(events, Event{TaskID: t.ID, Event: "completed", Actor: actor, Kind: kind, Timestamp: t.CompletedAt})
		}
	}
	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i], events[j]
		switch {
		case a.Timestamp == nil && b.Timestamp == nil:
			return idLess(a.TaskID, b.TaskID)
		case a.Timestamp == nil:
			return true
		case b.Timestamp == nil:
			return false
		case !a.Timestamp.Equal(*b.Timestamp):
			return a.Timestamp.Before(*b.Timestamp)
		default:
			return idLess(a.TaskID, b.TaskID)
		}
	})
	return events
}

func idLess(a, b string) bool {
	pa, errA := pathid.Parse(a)
	pb, errB := pathid.Parse(b)
	if errA != nil || errB != nil {
		return a < b
	}
	return pathid.Less(pa, pb)
}

func eventKind(id string) string {
	parsed, err := pathid.Parse(id)
	if err != nil {
		return "task"
	}
	return parsed.Kind.String()
}

// TimelineRow is one phase of the schedule: estimate totals and completion
// counts, listed in declared order.
type TimelineRow struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	EstimateHours  float64    `json:"estimate_hours"`
	RemainingHours float64    `json:"remaining_hours"`
	Stats          tree.Stats `json:"stats"`
}

// BuildTimeline computes the phase-level schedule rows.
func BuildTimeline(tr *types.Tree) []TimelineRow {
	var rows []TimelineRow
	for i := range tr.Phases {
		phase := &tr.Phases[i]
		row := TimelineRow{ID: phase.ID, Name: phase.Name, Stats: tree.PhaseStats(phase)}
		for j := range phase.Milestones {
			for k := range phase.Milestones[j].Epics {
				for _, t := range phase.Milestones[j].Epics[k].Tasks {
					row.EstimateHours += t.EstimateHours
					if t.Status != types.StatusDone {
						row.RemainingHours += t.EstimateHours
					}
				}
			}
		}
		rows = append(rows, row)
	}
	return rows
}
