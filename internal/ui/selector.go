package ui

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// ErrCancelled is returned when the user leaves a selector without choosing.
var ErrCancelled = errors.New("selection cancelled")

// Selector is an arrow-key menu that picks one option.
type Selector struct {
	question string
	options  []string
	selected int
	colored  bool
	in       io.Reader
	out      io.Writer

	cursorStyle   lipgloss.Style
	selectedStyle lipgloss.Style
	dimStyle      lipgloss.Style
}

func NewSelector(question string, options []string, colored bool) *Selector {
	return &Selector{
		question: question,
		options:  options,
		colored:  colored,
		in:       os.Stdin,
		out:      os.Stdout,

		cursorStyle:   lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true),
		selectedStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("114")).Bold(true),
		dimStyle:      lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
	}
}

// WithIO replaces stdin and stdout. Non-terminal input uses numbered
// prompts instead of raw mode.
func (s *Selector) WithIO(in io.Reader, out io.Writer) *Selector {
	s.in = in
	s.out = out
	return s
}

// Run shows the menu and returns the index of the chosen option.
func (s *Selector) Run() (int, error) {
	if len(s.options) == 0 {
		return 0, ErrCancelled
	}

	f, ok := s.in.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return s.runSimple()
	}

	fd := int(f.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return s.runSimple()
	}
	defer func() {
		term.Restore(fd, oldState)
		fmt.Fprint(s.out, "\033[?25h")
	}()
	fmt.Fprint(s.out, "\033[?25l")

	lines := len(s.options) + 2
	s.printMenu()

	reader := bufio.NewReader(f)
	for {
		b, err := reader.ReadByte()
		if err != nil {
			return 0, err
		}

		var done, cancelled bool
		switch b {
		case '\r', '\n', ' ':
			done = true
		case 3, 'q':
			cancelled = true
		case 'j':
			s.move(1)
		case 'k':
			s.move(-1)
		case 27:
			if b2, _ := reader.ReadByte(); b2 == '[' {
				switch b3, _ := reader.ReadByte(); b3 {
				case 'A':
					s.move(-1)
				case 'B':
					s.move(1)
				}
			}
		default:
			if b >= '1' && b <= '9' && int(b-'1') < len(s.options) {
				s.selected = int(b - '1')
				done = true
			}
		}

		s.clearMenu(lines)
		if cancelled {
			return 0, ErrCancelled
		}
		if done {
			return s.selected, nil
		}
		s.printMenu()
	}
}

func (s *Selector) move(delta int) {
	n := len(s.options)
	s.selected = ((s.selected+delta)%n + n) % n
}

func (s *Selector) printMenu() {
	var sb strings.Builder
	sb.WriteString(s.question + "\r\n")
	hint := "[j/k or arrows] move  [enter] select  [q] cancel"
	if s.colored {
		hint = s.dimStyle.Render(hint)
	}
	sb.WriteString(hint + "\r\n")

	for i, opt := range s.options {
		switch {
		case i == s.selected && s.colored:
			sb.WriteString(s.cursorStyle.Render("> ") + s.selectedStyle.Render(opt))
		case i == s.selected:
			sb.WriteString("> " + opt)
		case s.colored:
			sb.WriteString(s.dimStyle.Render("  ") + opt)
		default:
			sb.WriteString("  " + opt)
		}
		sb.WriteString("\r\n")
	}
	fmt.Fprint(s.out, sb.String())
}

func (s *Selector) clearMenu(lines int) {
	for i := 0; i < lines; i++ {
		fmt.Fprint(s.out, "\033[A\033[2K\r")
	}
}

func (s *Selector) runSimple() (int, error) {
	fmt.Fprintln(s.out, s.question)
	for i, opt := range s.options {
		fmt.Fprintf(s.out, "  [%d] %s\n", i+1, opt)
	}
	fmt.Fprint(s.out, "Enter number (empty to cancel): ")

	line, err := bufio.NewReader(s.in).ReadString('\n')
	if err != nil && line == "" {
		return 0, ErrCancelled
	}
	n, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil || n < 1 || n > len(s.options) {
		return 0, ErrCancelled
	}
	return n - 1, nil
}
