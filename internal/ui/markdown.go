package ui

import (
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"
)

const (
	defaultWrap = 100
	minWrap     = 40
)

// Markdown renders replies for the terminal. A zero value or a disabled
// renderer returns content unchanged.
type Markdown struct {
	renderer *glamour.TermRenderer
}

// NewMarkdown builds a renderer wrapped to the terminal width.
func NewMarkdown(enabled bool) *Markdown {
	if !enabled {
		return &Markdown{}
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(wrapWidth(int(os.Stdout.Fd()))),
	)
	if err != nil {
		return &Markdown{}
	}
	return &Markdown{renderer: r}
}

// Render converts markdown to styled terminal text.
func (m *Markdown) Render(content string) string {
	if m == nil || m.renderer == nil {
		return content
	}
	out, err := m.renderer.Render(content)
	if err != nil {
		return content
	}
	return strings.TrimSpace(out)
}

func wrapWidth(fd int) int {
	if !term.IsTerminal(fd) {
		return defaultWrap
	}
	w, _, err := term.GetSize(fd)
	if err != nil || w <= 0 {
		return defaultWrap
	}
	w -= 4
	if w < minWrap {
		return minWrap
	}
	if w > defaultWrap {
		return defaultWrap
	}
	return w
}

// ColorSupported reports whether stdout is a terminal that can show styles.
func ColorSupported() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return term.IsTerminal(int(os.Stdout.Fd()))
}
