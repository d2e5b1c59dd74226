// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/unialerta/uce-tui/internal/ui/styles"
)

// =============================================================================
// SPINNER
// =============================================================================

// spinnerFrames are the braille animation frames.
var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

const spinnerInterval = 80 * time.Millisecond

// Spinner is a minimal activity indicator for in-flight requests.
type Spinner struct {
	frame   int
	active  bool
	Message string
}

// SpinnerTickMsg advances the animation.
type SpinnerTickMsg time.Time

// SpinnerTickCmd schedules the next frame.
func SpinnerTickCmd() tea.Cmd {
	return tea.Tick(spinnerInterval, func(t time.Time) tea.Msg {
		return SpinnerTickMsg(t)
	})
}

// Start activates the spinner and returns the tick command.
func (s *Spinner) Start(message string) tea.Cmd {
	s.active = true
	s.frame = 0
	s.Message = message
	return SpinnerTickCmd()
}

// Stop deactivates the spinner.
func (s *Spinner) Stop() {
	s.active = false
}

// Active reports whether the spinner is running.
func (s *Spinner) Active() bool {
	return s.active
}

// Tick advances one frame and reschedules while active.
func (s *Spinner) Tick() tea.Cmd {
	if !s.active {
		return nil
	}
	s.frame = (s.frame + 1) % len(spinnerFrames)
	return SpinnerTickCmd()
}

// View renders the current frame with the message.
func (s *Spinner) View() string {
	if !s.active {
		return ""
	}
	frame := lipgloss.NewStyle().Foreground(styles.Indigo).
		Render(spinnerFrames[s.frame])
	if s.Message == "" {
		return frame
	}
	return frame + " " + lipgloss.NewStyle().Foreground(styles.TextMuted).
		Render(s.Message)
}
