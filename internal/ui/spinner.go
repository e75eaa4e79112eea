package ui

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Spinner is an animated wait indicator shown while a turn is in flight.
type Spinner struct {
	out      io.Writer
	colored  bool
	interval time.Duration
	style    lipgloss.Style
	msgStyle lipgloss.Style

	mu      sync.Mutex
	message string
	running bool
	stopCh  chan struct{}
	done    chan struct{}
}

func NewSpinner(out io.Writer, colored bool) *Spinner {
	return &Spinner{
		out:      out,
		colored:  colored,
		interval: 80 * time.Millisecond,
		style:    lipgloss.NewStyle().Foreground(lipgloss.Color("86")),
		msgStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Italic(true),
	}
}

// Start shows the spinner, or updates the message if it is already running.
func (s *Spinner) Start(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.message = message
	if s.running {
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.done = make(chan struct{})
	go s.animate(s.stopCh, s.done)
}

// Stop halts the animation and clears the line.
func (s *Spinner) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopCh)
	done := s.done
	s.mu.Unlock()

	<-done
	fmt.Fprint(s.out, "\r\033[K")
}

func (s *Spinner) animate(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	frame := 0
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.mu.Lock()
			msg := s.message
			s.mu.Unlock()

			s.render(frame, msg)
			frame = (frame + 1) % len(spinnerFrames)
		}
	}
}

func (s *Spinner) render(frame int, message string) {
	spin := spinnerFrames[frame]
	if s.colored {
		fmt.Fprintf(s.out, "\r\033[K%s %s", s.style.Render(spin), s.msgStyle.Render(message))
		return
	}
	fmt.Fprintf(s.out, "\r\033[K%s %s", spin, message)
}
