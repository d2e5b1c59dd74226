// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/unialerta/uce-tui/internal/notify"
	"github.com/unialerta/uce-tui/internal/ui/styles"
)

// =============================================================================
// PERMISSION PROMPT COMPONENT
// =============================================================================

// PermissionPrompt renders the notification permission ask. The
// decision logic lives in notify.Prompt; this component only presents
// it, in one of three variants that share that state machine.
type PermissionPrompt struct {
	variant  notify.Variant
	visible  bool
	selected int
	width    int
	height   int
}

// Button indices.
const (
	permButtonAllow = 0
	permButtonDeny  = 1
	permButtonLater = 2
	permButtonCount = 3
)

// PermissionResponseMsg carries the user's allow/deny choice.
type PermissionResponseMsg struct {
	Allow bool
}

// PermissionDismissMsg means the user closed the prompt without
// deciding; the dismissal is persisted and the prompt never returns.
type PermissionDismissMsg struct{}

// NewPermissionPrompt creates a prompt component.
func NewPermissionPrompt(variant notify.Variant) *PermissionPrompt {
	return &PermissionPrompt{variant: variant, selected: permButtonAllow}
}

// Show makes the prompt visible.
func (p *PermissionPrompt) Show() {
	p.visible = true
	p.selected = permButtonAllow
}

// Hide hides the prompt.
func (p *PermissionPrompt) Hide() {
	p.visible = false
}

// IsVisible returns whether the prompt is on screen.
func (p *PermissionPrompt) IsVisible() bool {
	return p.visible
}

// SetSize updates the prompt dimensions.
func (p *PermissionPrompt) SetSize(width, height int) {
	p.width = width
	p.height = height
}

// Variant returns the presentation variant.
func (p *PermissionPrompt) Variant() notify.Variant {
	return p.variant
}

// =============================================================================
// BUBBLE TEA METHODS
// =============================================================================

// Update handles key events. The second return reports whether the
// event was consumed.
func (p *PermissionPrompt) Update(msg tea.Msg) (tea.Cmd, bool) {
	if !p.visible {
		return nil, false
	}

	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return nil, false
	}

	switch keyMsg.String() {
	case "left", "shift+tab":
		p.selected = (p.selected - 1 + permButtonCount) % permButtonCount
		return nil, true

	case "right", "tab":
		p.selected = (p.selected + 1) % permButtonCount
		return nil, true

	case "enter", " ":
		return p.handleSelect(), true

	case "y":
		p.selected = permButtonAllow
		return p.handleSelect(), true

	case "n":
		p.selected = permButtonDeny
		return p.handleSelect(), true

	case "esc", "x":
		p.selected = permButtonLater
		return p.handleSelect(), true
	}

	return nil, false
}

// handleSelect emits the message for the current selection.
func (p *PermissionPrompt) handleSelect() tea.Cmd {
	selected := p.selected
	p.Hide()

	return func() tea.Msg {
		switch selected {
		case permButtonAllow:
			return PermissionResponseMsg{Allow: true}
		case permButtonDeny:
			return PermissionResponseMsg{Allow: false}
		default:
			return PermissionDismissMsg{}
		}
	}
}

// =============================================================================
// VIEW RENDERING
// =============================================================================

const permissionQuestion = "Enable desktop alerts for new incident reports?"

// View renders the prompt in its configured variant.
func (p *PermissionPrompt) View() string {
	if !p.visible {
		return ""
	}

	switch p.variant {
	case notify.VariantModal:
		return p.viewModal()
	case notify.VariantInline:
		return p.viewInline()
	default:
		return p.viewBanner()
	}
}

// viewBanner renders a full-width bar for the top of the screen.
func (p *PermissionPrompt) viewBanner() string {
	bar := lipgloss.NewStyle().
		Background(styles.SurfaceDim).
		Foreground(styles.TextPrimary).
		Padding(0, 1)
	if p.width > 0 {
		bar = bar.Width(p.width)
	}

	return bar.Render(
		styles.StatusIndicators.Info + " " + permissionQuestion + "  " + p.renderButtons(),
	)
}

// viewModal renders a centered dialog.
func (p *PermissionPrompt) viewModal() string {
	boxWidth := 56
	if p.width > 0 && p.width < 66 {
		boxWidth = p.width - 10
	}
	if boxWidth < 36 {
		boxWidth = 36
	}

	var content strings.Builder
	content.WriteString(lipgloss.NewStyle().Foreground(styles.Indigo).Bold(true).
		Render("Notifications"))
	content.WriteString("\n\n")
	content.WriteString(permissionQuestion)
	content.WriteString("\n\n")
	content.WriteString(p.renderButtons())
	content.WriteString("\n\n")
	content.WriteString(lipgloss.NewStyle().Foreground(styles.TextMuted).Italic(true).
		Render("y=Allow  n=Deny  Esc=Later  Tab=Navigate"))

	box := lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(styles.Indigo).
		Padding(1, 2).
		Width(boxWidth).
		Render(content.String())

	if p.width > 0 && p.height > 0 {
		return lipgloss.Place(p.width, p.height, lipgloss.Center, lipgloss.Center, box)
	}
	return box
}

// viewInline renders a single line for the composer area.
func (p *PermissionPrompt) viewInline() string {
	return lipgloss.NewStyle().Foreground(styles.TextSecondary).
		Render(permissionQuestion+" ") + p.renderButtons()
}

// renderButtons renders the button row with the active selection.
func (p *PermissionPrompt) renderButtons() string {
	buttonStyle := lipgloss.NewStyle().
		Foreground(styles.TextPrimary).
		Background(styles.Overlay).
		Padding(0, 1).
		MarginRight(1)

	activeStyle := lipgloss.NewStyle().
		Foreground(styles.TextInverse).
		Background(styles.Indigo).
		Bold(true).
		Padding(0, 1).
		MarginRight(1)

	labels := []string{"Allow", "Deny", "Later"}
	buttons := make([]string, len(labels))
	for i, label := range labels {
		if p.selected == i {
			buttons[i] = activeStyle.Render(label)
		} else {
			buttons[i] = buttonStyle.Render(label)
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Center, buttons...)
}
