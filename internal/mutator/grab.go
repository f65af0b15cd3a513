package mutator

import (
	"github.com/untoldecay/backlog/internal/pathid"
	"github.com/untoldecay/backlog/internal/resolver"
	"github.com/untoldecay/backlog/internal/types"
)

// bugFanOutCount is how many extra parallel-safe bugs a grab offers for a
// batched claim when the primary pick is a bug.
const bugFanOutCount = 2

// GrabResult reports what a grab selected and claimed.
type GrabResult struct {
	Primary      string   `json:"primary"`
	Claimed      []string `json:"claimed"`
	ParallelBugs []string `json:"parallel_bugs,omitempty"`
}

// Grab selects the next available task under scope, claims it for agent,
// and — when the pick is a bug and single is false — claims up to two
// additional pairwise-independent bugs alongside it.
func (m *Mutator) Grab(agent string, scopePatterns []string, single bool) (*GrabResult, error) {
	res := &GrabResult{}
	err := m.run(func(tr *types.Tree, tx *Tx) error {
		res.Primary = ""
		res.Claimed = nil
		res.ParallelBugs = nil

		scope, err := resolver.CompileScope(tr, scopePatterns)
		if err != nil {
			return err
		}
		ranked, err := availableNow(tr, scope)
		if err != nil {
			return err
		}
		if len(ranked) == 0 {
			return types.E(types.CodeNotFound, "No available tasks to grab")
		}
		primary := ranked[0]
		res.Primary = primary

		toClaim := []string{primary}
		if parsed, err := pathid.Parse(primary); err == nil && parsed.Kind == pathid.KindBug {
			rsv := resolver.New(tr)
			extra, err := rsv.FanOut(primary, bugFanOutCount)
			if err != nil {
				return err
			}
			res.ParallelBugs = scope.Filter(extra)
			if !single {
				toClaim = append(toClaim, res.ParallelBugs...)
			}
		}

		now := m.Now()
		for _, id := range toClaim {
			task := tr.FindTask(id)
			if task == nil {
				return types.NotFoundTask(id, "")
			}
			task.Status = types.StatusInProgress
			task.ClaimedBy = agent
			task.ClaimedAt = &now
			task.StartedAt = &now
			if err := m.stageTask(tx, task); err != nil {
				return err
			}
			if task.EpicID != "" {
				if err := m.stageChain(tx, tr, task); err != nil {
					return err
				}
			} else if err := m.stageAuxForTask(tx, tr, task); err != nil {
				return err
			}
		}
		if err := m.stageRootIndex(tx, tr); err != nil {
			return err
		}
		res.Claimed = toClaim
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// CycleResult combines the completion and the follow-up grab.
type CycleResult struct {
	Done        *DoneResult `json:"done"`
	Grab        *GrabResult `json:"grab,omitempty"`
	PhaseClosed bool        `json:"phase_closed"`
}

// Cycle completes a task, then grabs the next one for agent. A completion
// that closes its phase ends the chain instead of grabbing.
func (m *Mutator) Cycle(id, agent string, scopePatterns []string) (*CycleResult, error) {
	done, err := m.Done([]string{id}, false)
	if err != nil {
		return nil, err
	}
	out := &CycleResult{Done: done, PhaseClosed: done.ClosedPhase}
	if done.ClosedPhase {
		return out, nil
	}
	grab, err := m.Grab(agent, scopePatterns, false)
	if err != nil {
		if types.CodeOf(err) == types.CodeNotFound {
			return out, nil
		}
		return nil, err
	}
	out.Grab = grab
	return out, nil
}
