// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unialerta/uce-tui/internal/notify"
)

func keyPress(key string) tea.KeyMsg {
	switch key {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "escape":
		return tea.KeyMsg{Type: tea.KeyEscape}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
	}
}

func TestPermissionPromptHiddenConsumesNothing(t *testing.T) {
	p := NewPermissionPrompt(notify.VariantBanner)
	cmd, handled := p.Update(keyPress("y"))
	assert.Nil(t, cmd)
	assert.False(t, handled)
	assert.Empty(t, p.View())
}

func TestPermissionPromptAllow(t *testing.T) {
	p := NewPermissionPrompt(notify.VariantBanner)
	p.Show()

	cmd, handled := p.Update(keyPress("y"))
	require.True(t, handled)
	require.NotNil(t, cmd)

	msg := cmd()
	resp, ok := msg.(PermissionResponseMsg)
	require.True(t, ok)
	assert.True(t, resp.Allow)
	assert.False(t, p.IsVisible())
}

func TestPermissionPromptDeny(t *testing.T) {
	p := NewPermissionPrompt(notify.VariantModal)
	p.Show()

	cmd, _ := p.Update(keyPress("n"))
	require.NotNil(t, cmd)

	resp, ok := cmd().(PermissionResponseMsg)
	require.True(t, ok)
	assert.False(t, resp.Allow)
}

func TestPermissionPromptEscapeDismisses(t *testing.T) {
	p := NewPermissionPrompt(notify.VariantInline)
	p.Show()

	cmd, _ := p.Update(keyPress("escape"))
	require.NotNil(t, cmd)

	_, ok := cmd().(PermissionDismissMsg)
	assert.True(t, ok)
	assert.False(t, p.IsVisible())
}

func TestPermissionPromptTabCyclesToLater(t *testing.T) {
	p := NewPermissionPrompt(notify.VariantBanner)
	p.Show()

	p.Update(keyPress("tab"))
	p.Update(keyPress("tab"))
	cmd, _ := p.Update(keyPress("enter"))
	require.NotNil(t, cmd)

	_, ok := cmd().(PermissionDismissMsg)
	assert.True(t, ok)
}

func TestPermissionPromptVariantsShareBehavior(t *testing.T) {
	// The three variants differ only in presentation. The same key
	// sequence must produce the same message on each.
	for _, variant := range []notify.Variant{notify.VariantBanner, notify.VariantModal, notify.VariantInline} {
		p := NewPermissionPrompt(variant)
		p.Show()
		assert.NotEmpty(t, p.View(), "variant %s", variant)

		cmd, handled := p.Update(keyPress("y"))
		require.True(t, handled, "variant %s", variant)
		resp, ok := cmd().(PermissionResponseMsg)
		require.True(t, ok, "variant %s", variant)
		assert.True(t, resp.Allow, "variant %s", variant)
	}
}

func TestPermissionPromptShowResetsSelection(t *testing.T) {
	p := NewPermissionPrompt(notify.VariantBanner)
	p.Show()
	p.Update(keyPress("tab"))
	p.Hide()
	p.Show()

	cmd, _ := p.Update(keyPress("enter"))
	require.NotNil(t, cmd)
	resp, ok := cmd().(PermissionResponseMsg)
	require.True(t, ok)
	assert.True(t, resp.Allow)
}
