// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/unialerta/uce-tui/internal/model"
	"github.com/unialerta/uce-tui/internal/ui/styles"
)

// =============================================================================
// MESSAGE BUBBLE
// =============================================================================

// streamingCursor marks the insertion point of a live response.
const streamingCursor = "▊"

// MessageBubble renders one chat message with role-appropriate styling.
type MessageBubble struct {
	Message  *model.Message
	MaxWidth int

	// Pending is the action attached to this message, if any. Only the
	// latest assistant message ever carries one.
	Pending *model.PendingAction

	// ActionFocused highlights the action chip when it has keyboard
	// focus.
	ActionFocused bool
}

// bubbleColors returns foreground, border, and label for a role.
func bubbleColors(role model.Role) (fg, border lipgloss.AdaptiveColor, label string) {
	switch role {
	case model.RoleUser:
		return styles.UserBubbleFg, styles.UserBubbleBorder, "You"
	case model.RoleSystem:
		return styles.SystemBubbleFg, styles.SystemBubbleBorder, "System"
	default:
		return styles.AssistantBubbleFg, styles.AssistantBubbleBorder, "Assistant"
	}
}

// Render renders the bubble.
func (mb MessageBubble) Render() string {
	fg, border, label := bubbleColors(mb.Message.Role)

	contentWidth := mb.MaxWidth - 6
	if contentWidth < 20 {
		contentWidth = 20
	}

	content := mb.Message.GetDisplayContent()
	var body string
	if mb.Message.Role == model.RoleAssistant {
		body = RenderMarkdown(content, contentWidth)
	} else {
		body = content
	}
	if mb.Message.IsStreaming {
		body += streamingCursor
	}
	if body == "" {
		body = streamingCursor
	}

	header := lipgloss.NewStyle().Foreground(fg).Bold(true).Render(label) +
		lipgloss.NewStyle().Foreground(styles.TextMuted).
			Render("  " + mb.Message.Timestamp.Format("15:04"))

	bubble := lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Foreground(styles.TextPrimary).
		Padding(0, 1).
		MaxWidth(mb.MaxWidth)

	out := bubble.Render(header + "\n" + body)
	if mb.Pending != nil {
		out += "\n" + renderActionChip(mb.Pending, mb.ActionFocused)
	}
	return out
}

// renderActionChip renders the one-tap action offered by the assistant.
func renderActionChip(action *model.PendingAction, focused bool) string {
	chip := lipgloss.NewStyle().
		Foreground(styles.Indigo).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(styles.Indigo).
		Padding(0, 1)
	if focused {
		chip = chip.
			Foreground(styles.TextInverse).
			Background(styles.Indigo).
			Bold(true)
	}

	hint := lipgloss.NewStyle().Foreground(styles.TextMuted).Italic(true).
		Render("  ctrl+e to run")
	return chip.Render("> "+action.Label) + hint
}

// =============================================================================
// MESSAGE LIST
// =============================================================================

// RenderMessageList renders a conversation's messages top to bottom.
// The pending action, when present, attaches to its owning message.
func RenderMessageList(conv *model.Conversation, maxWidth int, actionFocused bool) string {
	var b strings.Builder
	for i, msg := range conv.Messages {
		if i > 0 {
			b.WriteString("\n\n")
		}
		bubble := MessageBubble{Message: msg, MaxWidth: maxWidth}
		if conv.Pending != nil && conv.Pending.MessageID == msg.ID {
			bubble.Pending = conv.Pending
			bubble.ActionFocused = actionFocused
		}
		b.WriteString(bubble.Render())
	}
	return b.String()
}
