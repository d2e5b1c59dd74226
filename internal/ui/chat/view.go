// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/unialerta/uce-tui/internal/notify"
	"github.com/unialerta/uce-tui/internal/ui/styles"
	"github.com/unialerta/uce-tui/internal/util"
)

// =============================================================================
// VIEW
// =============================================================================

// View renders the whole chat screen.
func (m *Model) View() string {
	if m.quitting {
		return "Hasta luego.\n"
	}
	if !m.ready {
		return "Cargando..."
	}

	var b strings.Builder

	if m.permPrompt.IsVisible() && m.permPrompt.Variant() == notify.VariantBanner {
		b.WriteString(m.permPrompt.View())
		b.WriteString("\n")
	}

	b.WriteString(m.viewHeader())
	b.WriteString("\n")
	b.WriteString(m.filterBar.View())
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(m.viewStatusLine())
	b.WriteString("\n")
	b.WriteString(m.viewComposer())
	b.WriteString("\n")
	b.WriteString(m.viewFooter())

	screen := b.String()

	// The modal variant paints over everything else.
	if m.permPrompt.IsVisible() && m.permPrompt.Variant() == notify.VariantModal {
		return m.permPrompt.View()
	}

	if toastLayer := m.toasts.RenderToastStack(m.width, 0); toastLayer != "" {
		screen += "\n" + toastLayer
	}
	return screen
}

// chromeHeight counts the lines the fixed UI takes around the
// transcript viewport.
func (m *Model) chromeHeight() int {
	// Header, filter bar, status line, composer (3 lines), footer,
	// plus separators.
	h := 1 + 1 + 1 + 3 + 1 + 4
	if m.permPrompt.IsVisible() && m.permPrompt.Variant() == notify.VariantBanner {
		h += 2
	}
	return h
}

// =============================================================================
// SECTIONS
// =============================================================================

func (m *Model) viewHeader() string {
	title := m.opts.Theme.Title.Render("UniAlerta UCE")

	who := ""
	if m.opts.Profile != nil {
		who = m.opts.Profile.Email
	}
	right := lipgloss.NewStyle().Foreground(styles.TextMuted).Render(who)

	gap := m.width - lipgloss.Width(title) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	return m.opts.Theme.Header.Width(m.width).
		Render(title + strings.Repeat(" ", gap) + right)
}

func (m *Model) viewStatusLine() string {
	switch m.state {
	case StateStreaming:
		return m.spinner.View() + "  " +
			m.opts.Theme.Hint.Render("Esc para detener")

	case StateError:
		if m.lastError != nil {
			return m.opts.Theme.ErrorText.Render(
				styles.StatusIndicators.Error + " " + streamErrorText(m.lastError))
		}
	}

	if m.spinner.Active() {
		return m.spinner.View()
	}

	parts := []string{
		util.IntToString(len(m.reports)) + " reportes (" + m.filterBar.Active().DisplayName() + ")",
	}
	if m.lastPosition != nil {
		parts = append(parts, "GPS activo")
	}
	return m.opts.Theme.Hint.Render(strings.Join(parts, "  ·  "))
}

func (m *Model) viewComposer() string {
	if m.permPrompt.IsVisible() && m.permPrompt.Variant() == notify.VariantInline {
		return m.permPrompt.View()
	}
	return m.input.View()
}

func (m *Model) viewFooter() string {
	hints := []string{"Enter enviar", "Esc detener", "Ctrl+F filtro", "Ctrl+L limpiar", "Ctrl+C salir"}
	if m.conversation.Pending != nil {
		hints = append([]string{"Ctrl+E ejecutar acción"}, hints...)
	}
	return m.opts.Theme.Footer.Width(m.width).Render(strings.Join(hints, "  "))
}
