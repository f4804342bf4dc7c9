package cli

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/roach88/dhd/internal/alert"
	"github.com/roach88/dhd/internal/gate"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	okStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	failStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	glyphStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11"))
	alertStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("9")).Padding(0, 1)
	selectStyle  = lipgloss.NewStyle().Reverse(true)
	headerStyle  = lipgloss.NewStyle().Bold(true).Underline(true)
	idColumn     = lipgloss.NewStyle().Width(12)
	nameColumn   = lipgloss.NewStyle().Width(16)
	statusColumn = lipgloss.NewStyle().Width(9)
)

// statusStyle colours a gate status.
func statusStyle(s gate.Status) lipgloss.Style {
	switch s {
	case gate.Active:
		return okStyle
	case gate.Shutdown:
		return failStyle
	case gate.Idle:
		return dimStyle
	default:
		return titleStyle
	}
}

// progress prints channel traffic as the sequence runs. Handlers run on the
// engine goroutine, so writes are serialized.
type progress struct {
	mu sync.Mutex
	w  io.Writer
}

func (p *progress) status(s gate.Status) {
	p.printf("%s %s\n", dimStyle.Render("status"), statusStyle(s).Render(s.String()))
}

func (p *progress) activation(a gate.Activation) {
	mark := okStyle.Render("locked")
	if a.Fail {
		mark = failStyle.Render("failed")
	}
	p.printf("  chevron %d  %s  %s\n", a.Chevron, glyphStyle.Render(string(a.Glyph)), mark)
}

func (p *progress) alert(a alert.Alert) {
	p.printf("%s\n", renderAlert(a))
}

func (p *progress) printf(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.w, format, args...)
}

func renderAlert(a alert.Alert) string {
	return alertStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
		failStyle.Render(a.Title),
		a.Message,
	))
}

// renderGlyphs spaces an address out the way it reads on the dial.
func renderGlyphs(a gate.Address) string {
	parts := make([]string, len(a))
	for i, g := range a {
		parts[i] = string(g)
	}
	return glyphStyle.Render(strings.Join(parts, " "))
}
