package resolver

import (
	"github.com/untoldecay/backlog/internal/pathid"
)

// related reports whether a and b have any dependency relationship, in
// either direction, across the task graph. Fan-out candidates must be
// pairwise unrelated so agents can work them concurrently.
func (g *Graph) related(a, b string) bool {
	return g.reaches(a, b) || g.reaches(b, a)
}

func (g *Graph) reaches(from, to string) bool {
	seen := map[string]struct{}{}
	stack := []string{from}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur == to {
			return true
		}
		if _, ok := seen[cur]; ok {
			continue
		}
		seen[cur] = struct{}{}
		for next := range g.edges[cur] {
			stack = append(stack, next)
		}
	}
	return false
}

// FanOut returns up to count additional available IDs of the same kind as
// primary, pairwise independent of the primary and of each other, in
// priority order.
func (r *Resolver) FanOut(primaryID string, count int) ([]string, error) {
	if count <= 0 {
		return []string{}, nil
	}
	primary, err := pathid.Parse(primaryID)
	if err != nil {
		return nil, err
	}
	g, err := r.BuildGraph()
	if err != nil {
		return nil, err
	}
	cp, err := g.LongestPath()
	if err != nil {
		return nil, err
	}
	var candidates []string
	for _, id := range r.FindAllAvailable() {
		if id == primaryID {
			continue
		}
		parsed, err := pathid.Parse(id)
		if err != nil {
			continue
		}
		if parsed.Kind != primary.Kind {
			continue
		}
		candidates = append(candidates, id)
	}
	selected := []string{}
	for _, candidate := range r.Prioritize(candidates, cp) {
		if len(selected) >= count {
			break
		}
		if g.related(candidate, primaryID) {
			continue
		}
		independent := true
		for _, s := range selected {
			if g.related(candidate, s) {
				independent = false
				break
			}
		}
		if independent {
			selected = append(selected, candidate)
		}
	}
	return selected, nil
}
