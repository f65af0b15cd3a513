// Package pathid implements the hierarchical path identifier algebra used
// across the backlog tree: P1, P1.M1, P1.M1.E1, P1.M1.E1.T001 for the
// primary hierarchy, plus the flat B001/I001/F001 auxiliary forms.
package pathid

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Kind identifies which level of the hierarchy (or which auxiliary bucket)
// an ID addresses. The declared order is the canonical sort order between
// IDs of different kinds.
type Kind int

const (
	KindPhase Kind = iota
	KindMilestone
	KindEpic
	KindTask
	KindBug
	KindIdea
	KindFix
)

func (k Kind) String() string {
	switch k {
	case KindPhase:
		return "phase"
	case KindMilestone:
		return "milestone"
	case KindEpic:
		return "epic"
	case KindTask:
		return "task"
	case KindBug:
		return "bug"
	case KindIdea:
		return "idea"
	case KindFix:
		return "fix"
	default:
		return "unknown"
	}
}

// ID is a parsed path identifier. Phase/Milestone/Epic/Task hold the
// numeric value of each populated segment; unset segments are zero.
// Auxiliary IDs (bug, idea, fix) use Num and leave the segment fields zero.
type ID struct {
	Kind      Kind
	Phase     int
	Milestone int
	Epic      int
	Task      int
	Num       int
}

var (
	phaseRe     = regexp.MustCompile(`^P([1-9][0-9]*)$`)
	milestoneRe = regexp.MustCompile(`^P([1-9][0-9]*)\.M([1-9][0-9]*)$`)
	epicRe      = regexp.MustCompile(`^P([1-9][0-9]*)\.M([1-9][0-9]*)\.E([1-9][0-9]*)$`)
	taskRe      = regexp.MustCompile(`^P([1-9][0-9]*)\.M([1-9][0-9]*)\.E([1-9][0-9]*)\.T([0-9]{3,})$`)
	auxRe       = regexp.MustCompile(`^([BIF])([0-9]{3,})$`)
)

// Parse converts the string form of a path ID into its tagged variant.
func Parse(s string) (ID, error) {
	s = strings.TrimSpace(s)
	if m := taskRe.FindStringSubmatch(s); m != nil {
		return ID{
			Kind:      KindTask,
			Phase:     atoi(m[1]),
			Milestone: atoi(m[2]),
			Epic:      atoi(m[3]),
			Task:      atoi(m[4]),
		}, nil
	}
	if m := epicRe.FindStringSubmatch(s); m != nil {
		return ID{Kind: KindEpic, Phase: atoi(m[1]), Milestone: atoi(m[2]), Epic: atoi(m[3])}, nil
	}
	if m := milestoneRe.FindStringSubmatch(s); m != nil {
		return ID{Kind: KindMilestone, Phase: atoi(m[1]), Milestone: atoi(m[2])}, nil
	}
	if m := phaseRe.FindStringSubmatch(s); m != nil {
		return ID{Kind: KindPhase, Phase: atoi(m[1])}, nil
	}
	if m := auxRe.FindStringSubmatch(s); m != nil {
		kind := KindBug
		switch m[1] {
		case "I":
			kind = KindIdea
		case "F":
			kind = KindFix
		}
		return ID{Kind: kind, Num: atoi(m[2])}, nil
	}
	return ID{}, fmt.Errorf("invalid path id: %q", s)
}

// MustParse is Parse for IDs known to be valid (fixtures, constants).
func MustParse(s string) ID {
	id, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return id
}

// Valid reports whether s parses as any path ID form.
func Valid(s string) bool {
	_, err := Parse(s)
	return err == nil
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

// String renders the canonical form, zero-padding task and auxiliary
// numbers to three digits.
func (id ID) String() string {
	switch id.Kind {
	case KindPhase:
		return fmt.Sprintf("P%d", id.Phase)
	case KindMilestone:
		return fmt.Sprintf("P%d.M%d", id.Phase, id.Milestone)
	case KindEpic:
		return fmt.Sprintf("P%d.M%d.E%d", id.Phase, id.Milestone, id.Epic)
	case KindTask:
		return fmt.Sprintf("P%d.M%d.E%d.T%03d", id.Phase, id.Milestone, id.Epic, id.Task)
	case KindBug:
		return fmt.Sprintf("B%03d", id.Num)
	case KindIdea:
		return fmt.Sprintf("I%03d", id.Num)
	case KindFix:
		return fmt.Sprintf("F%03d", id.Num)
	default:
		return ""
	}
}

// Local renders only the last segment (T001, E2, M1, P3, B001).
func (id ID) Local() string {
	switch id.Kind {
	case KindPhase:
		return fmt.Sprintf("P%d", id.Phase)
	case KindMilestone:
		return fmt.Sprintf("M%d", id.Milestone)
	case KindEpic:
		return fmt.Sprintf("E%d", id.Epic)
	case KindTask:
		return fmt.Sprintf("T%03d", id.Task)
	default:
		return id.String()
	}
}

// Parent returns the enclosing container ID. The second return is false
// for phases and auxiliary IDs, which have no parent.
func (id ID) Parent() (ID, bool) {
	switch id.Kind {
	case KindMilestone:
		return ID{Kind: KindPhase, Phase: id.Phase}, true
	case KindEpic:
		return ID{Kind: KindMilestone, Phase: id.Phase, Milestone: id.Milestone}, true
	case KindTask:
		return ID{Kind: KindEpic, Phase: id.Phase, Milestone: id.Milestone, Epic: id.Epic}, true
	default:
		return ID{}, false
	}
}

// IsContainer reports whether the ID addresses a phase, milestone or epic.
func (id ID) IsContainer() bool {
	switch id.Kind {
	case KindPhase, KindMilestone, KindEpic:
		return true
	}
	return false
}

// IsAux reports whether the ID lives in one of the flat auxiliary buckets.
func (id ID) IsAux() bool {
	switch id.Kind {
	case KindBug, KindIdea, KindFix:
		return true
	}
	return false
}

func (id ID) segments() []int {
	switch id.Kind {
	case KindPhase:
		return []int{id.Phase}
	case KindMilestone:
		return []int{id.Phase, id.Milestone}
	case KindEpic:
		return []int{id.Phase, id.Milestone, id.Epic}
	case KindTask:
		return []int{id.Phase, id.Milestone, id.Epic, id.Task}
	default:
		return []int{id.Num}
	}
}

// IsPrefix reports whether scope encloses id (or equals it). Auxiliary IDs
// are only enclosed by themselves.
func IsPrefix(scope, id ID) bool {
	if scope.IsAux() || id.IsAux() {
		return scope == id
	}
	ss, is := scope.segments(), id.segments()
	if len(ss) > len(is) {
		return false
	}
	for i := range ss {
		if ss[i] != is[i] {
			return false
		}
	}
	return true
}

// Compare orders IDs numerically segment by segment, so T002 sorts before
// T010. IDs of different kinds order by kind (phase < milestone < epic <
// task < bug < idea < fix) once shared segments tie.
func Compare(a, b ID) int {
	if a.IsAux() != b.IsAux() {
		if a.IsAux() {
			return 1
		}
		return -1
	}
	if a.IsAux() {
		if a.Kind != b.Kind {
			return int(a.Kind) - int(b.Kind)
		}
		return a.Num - b.Num
	}
	as, bs := a.segments(), b.segments()
	for i := 0; i < len(as) && i < len(bs); i++ {
		if as[i] != bs[i] {
			return as[i] - bs[i]
		}
	}
	return int(a.Kind) - int(b.Kind)
}

// Less is Compare < 0, usable directly with sort.Slice.
func Less(a, b ID) bool { return Compare(a, b) < 0 }

// Pattern is a compiled scope pattern: an exact ID, an enclosing prefix, or
// a prefix with a trailing "*" segment (P1.*). The wildcard and the bare
// prefix behave identically; both forms are accepted for ergonomics.
type Pattern struct {
	prefix ID
	raw    string
}

// ParsePattern compiles a scope pattern string.
func ParsePattern(s string) (Pattern, error) {
	raw := strings.TrimSpace(s)
	base := raw
	if strings.HasSuffix(base, ".*") {
		base = strings.TrimSuffix(base, ".*")
	} else if base == "*" {
		return Pattern{}, fmt.Errorf("invalid scope pattern: %q", s)
	}
	id, err := Parse(base)
	if err != nil {
		return Pattern{}, fmt.Errorf("invalid scope pattern: %q", s)
	}
	return Pattern{prefix: id, raw: raw}, nil
}

// Match reports whether id falls inside the pattern's scope.
func (p Pattern) Match(id ID) bool {
	return IsPrefix(p.prefix, id)
}

// Prefix returns the pattern's anchor ID.
func (p Pattern) Prefix() ID { return p.prefix }

func (p Pattern) String() string { return p.raw }

// Match is the one-shot form of ParsePattern + Pattern.Match.
func Match(pattern string, id ID) (bool, error) {
	p, err := ParsePattern(pattern)
	if err != nil {
		return false, err
	}
	return p.Match(id), nil
}
