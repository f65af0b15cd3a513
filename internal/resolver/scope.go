package resolver

import (
	"github.com/untoldecay/backlog/internal/pathid"
	"github.com/untoldecay/backlog/internal/types"
)

// Scope is a compiled union of path patterns. An empty scope matches
// everything.
type Scope struct {
	patterns []pathid.Pattern
}

// CompileScope parses the pattern strings and verifies each one matches at
// least one node in the tree; a pattern with no match is a hard error.
func CompileScope(tr *types.Tree, raw []string) (*Scope, error) {
	s := &Scope{}
	for _, text := range raw {
		p, err := pathid.ParsePattern(text)
		if err != nil {
			return nil, types.E(types.CodeInvalidID, "invalid scope pattern: %s", text)
		}
		if !scopeHasMatch(tr, p) {
			return nil, types.E(types.CodeNoMatchScope, "No list nodes found for path query: %s", text)
		}
		s.patterns = append(s.patterns, p)
	}
	return s, nil
}

func scopeHasMatch(tr *types.Tree, p pathid.Pattern) bool {
	anchor := p.Prefix()
	switch anchor.Kind {
	case pathid.KindPhase:
		return tr.FindPhase(anchor.String()) != nil
	case pathid.KindMilestone:
		return tr.FindMilestone(anchor.String()) != nil
	case pathid.KindEpic:
		return tr.FindEpic(anchor.String()) != nil
	default:
		return tr.FindTask(anchor.String()) != nil
	}
}

// Empty reports whether the scope is unrestricted.
func (s *Scope) Empty() bool { return s == nil || len(s.patterns) == 0 }

// Contains reports whether an ID falls inside the scope.
func (s *Scope) Contains(id string) bool {
	if s.Empty() {
		return true
	}
	parsed, err := pathid.Parse(id)
	if err != nil {
		return false
	}
	for _, p := range s.patterns {
		if p.Match(parsed) {
			return true
		}
	}
	return false
}

// Filter keeps only IDs inside the scope, preserving order.
func (s *Scope) Filter(ids []string) []string {
	if s.Empty() {
		return ids
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if s.Contains(id) {
			out = append(out, id)
		}
	}
	return out
}
