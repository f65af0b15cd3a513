package mutator

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/untoldecay/backlog/internal/pathid"
	"github.com/untoldecay/backlog/internal/types"
)

// Fixed appends a completed entry to the fixes archive. The file lands
// under fixes/YYYY-MM/ keyed by the completion time and is written done
// immediately.
func (m *Mutator) Fixed(title string, at *time.Time, tags []string, body string) (string, error) {
	if title == "" {
		return "", types.E(types.CodeRequiresField, "fixed requires a title")
	}
	when := m.Now()
	if at != nil {
		when = at.UTC()
	}
	var newID string
	err := m.run(func(tr *types.Tree, tx *Tx) error {
		seq := 0
		for _, f := range tr.Fixes {
			if id, err := pathid.Parse(f.ID); err == nil && id.Num > seq {
				seq = id.Num
			}
		}
		id := pathid.ID{Kind: pathid.KindFix, Num: seq + 1}
		newID = id.String()

		monthDir := when.Format("2006-01")
		task := types.Task{
			ID:          newID,
			Title:       title,
			Status:      types.StatusDone,
			Tags:        tags,
			CreatedAt:   &when,
			CompletedAt: &when,
			Body:        body,
			File:        filepath.Join("fixes", monthDir, fmt.Sprintf("%s-%s.todo", newID, Slug(title))),
		}
		tr.Fixes = append(tr.Fixes, task)
		if err := m.stageTask(tx, &tr.Fixes[len(tr.Fixes)-1]); err != nil {
			return err
		}
		return m.stageAuxIndex(tx, "fixes", tr.Fixes)
	})
	if err != nil {
		return "", err
	}
	return newID, nil
}
