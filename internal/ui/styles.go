package ui

import (
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/untoldecay/backlog/internal/types"
)

// Palette shared by every renderer.
var (
	ColorAccent = lipgloss.AdaptiveColor{Light: "63", Dark: "86"}
	ColorPass   = lipgloss.AdaptiveColor{Light: "28", Dark: "78"}
	ColorWarn   = lipgloss.AdaptiveColor{Light: "130", Dark: "214"}
	ColorFail   = lipgloss.AdaptiveColor{Light: "124", Dark: "203"}
	ColorMuted  = lipgloss.AdaptiveColor{Light: "243", Dark: "240"}
)

var (
	HeaderStyle   = lipgloss.NewStyle().Bold(true).Foreground(ColorAccent)
	DoneStyle     = lipgloss.NewStyle().Foreground(ColorPass)
	ProgressStyle = lipgloss.NewStyle().Foreground(ColorAccent)
	BlockedStyle  = lipgloss.NewStyle().Foreground(ColorFail)
	MutedStyle    = lipgloss.NewStyle().Foreground(ColorMuted)
	CriticalStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorWarn)
)

func init() {
	if !ShouldUseColor() {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
}

// StatusIcon returns the checkbox glyph for a task status.
func StatusIcon(s types.Status) string {
	switch s {
	case types.StatusDone:
		return "[x]"
	case types.StatusInProgress:
		return "[~]"
	case types.StatusBlocked:
		return "[!]"
	default:
		return "[ ]"
	}
}

// StatusStyle returns the render style for a status.
func StatusStyle(s types.Status) lipgloss.Style {
	switch s {
	case types.StatusDone:
		return DoneStyle
	case types.StatusInProgress:
		return ProgressStyle
	case types.StatusBlocked:
		return BlockedStyle
	default:
		return lipgloss.NewStyle()
	}
}

// RenderMarkdown pretty-prints a task body on a TTY; elsewhere the raw
// markdown passes through untouched so output stays machine-readable.
func RenderMarkdown(body string) string {
	if !IsTerminal() {
		return body
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(GetWidth()),
	)
	if err != nil {
		return body
	}
	out, err := r.Render(body)
	if err != nil {
		return body
	}
	return out
}

// ProgressBar renders the done/total bar used on list lines.
func ProgressBar(done, total int) string {
	const width = 20
	if total <= 0 {
		return "[" + repeat('-', width) + "]"
	}
	filled := done * width / total
	return "[" + repeat('#', filled) + repeat('-', width-filled) + "]"
}

func repeat(c byte, n int) string {
	if n <= 0 {
		return ""
	}
	b := make([]byte, n)
	for i := range b {
		b[i] = c
	}
	return string(b)
}
