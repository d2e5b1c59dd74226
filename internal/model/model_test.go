// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageStreaming(t *testing.T) {
	msg := NewAssistantMessage()
	require.True(t, msg.IsStreaming)
	assert.Empty(t, msg.GetDisplayContent())

	msg.AppendToken("Hi")
	msg.AppendToken(" there")
	assert.Equal(t, "Hi there", msg.GetDisplayContent())
	assert.True(t, msg.IsStreaming)

	msg.FinalizeStream()
	assert.False(t, msg.IsStreaming)
	assert.Equal(t, "Hi there", msg.Content)
	assert.Equal(t, "Hi there", msg.GetDisplayContent())

	// Finalizing twice is a no-op, appending after is ignored.
	msg.FinalizeStream()
	msg.AppendToken(" extra")
	assert.Equal(t, "Hi there", msg.GetDisplayContent())
}

func TestMessageIDsUnique(t *testing.T) {
	a := NewUserMessage("a")
	b := NewUserMessage("b")
	assert.NotEqual(t, a.ID, b.ID)
	assert.NotEmpty(t, a.ID)
}

func TestSingleStreamingInvariant(t *testing.T) {
	conv := NewConversation()

	conv.AddUserMessage("first question")
	conv.AddAssistantMessage()
	assert.Equal(t, 1, conv.StreamingCount())

	// A second assistant message finalizes the first.
	conv.AppendToLast("partial answer")
	conv.AddAssistantMessage()
	assert.Equal(t, 1, conv.StreamingCount())
	assert.Equal(t, "partial answer", conv.Messages[1].Content)
	assert.False(t, conv.Messages[1].IsStreaming)

	// A user message finalizes any streaming assistant message.
	conv.AddUserMessage("follow up")
	assert.Equal(t, 0, conv.StreamingCount())
}

func TestConversationAppendToLast(t *testing.T) {
	conv := NewConversation()
	conv.AddUserMessage("hola")

	// No streaming message yet, token is dropped.
	conv.AppendToLast("ignored")
	assert.Equal(t, "hola", conv.GetLastMessage().GetDisplayContent())

	conv.AddAssistantMessage()
	conv.AppendToLast("Hi")
	conv.AppendToLast(" there")
	conv.FinalizeLast()

	last := conv.GetLastMessage()
	assert.Equal(t, "Hi there", last.Content)
	assert.False(t, last.IsStreaming)
}

func TestConversationTitleFromFirstMessage(t *testing.T) {
	conv := NewConversation()
	assert.Equal(t, "New conversation", conv.Title)

	conv.AddUserMessage("¿Cómo cambio el estado de un reporte?")
	assert.Equal(t, "¿Cómo cambio el estado de un reporte?", conv.Title)

	conv.AddUserMessage("otra pregunta")
	assert.Equal(t, "¿Cómo cambio el estado de un reporte?", conv.Title)
}

func TestPendingActionLifecycle(t *testing.T) {
	conv := NewConversation()
	conv.AddUserMessage("report broken light")
	msg := conv.AddAssistantMessage()
	conv.FinalizeLast()

	action := NewPendingAction(ActionCreateReport, "Create report", map[string]string{
		"title": "Broken light",
	}, msg.ID)
	conv.SetPending(action)
	require.NotNil(t, conv.Pending)
	assert.Equal(t, "Broken light", conv.Pending.Param("title"))

	// Sending a new user message clears the pending action.
	conv.AddUserMessage("actually never mind")
	assert.Nil(t, conv.Pending)
}

func TestPendingActionOnlyAttachesToLatestAssistant(t *testing.T) {
	conv := NewConversation()
	conv.AddUserMessage("q1")
	first := conv.AddAssistantMessage()
	conv.FinalizeLast()
	conv.AddUserMessage("q2")
	conv.AddAssistantMessage()
	conv.FinalizeLast()

	// Action bound to a stale message is discarded.
	conv.SetPending(NewPendingAction(ActionOpenFilter, "Open", nil, first.ID))
	assert.Nil(t, conv.Pending)
}

func TestClearHistory(t *testing.T) {
	conv := NewConversation()
	conv.SystemPrompt = "You are the UniAlerta assistant."
	conv.AddUserMessage("hola")
	msg := conv.AddAssistantMessage()
	conv.SetPending(NewPendingAction(ActionOpenFilter, "Open", nil, msg.ID))

	conv.ClearHistory()
	assert.Empty(t, conv.Messages)
	assert.Nil(t, conv.Pending)
	assert.Equal(t, "You are the UniAlerta assistant.", conv.SystemPrompt)
}

func TestPruneKeepsSystemMessage(t *testing.T) {
	conv := NewConversation()
	conv.AddSystemMessage("system prompt")
	for i := 0; i < MaxMessages+10; i++ {
		conv.AddUserMessage("m")
	}
	assert.Len(t, conv.Messages, MaxMessages)
	assert.Equal(t, RoleSystem, conv.Messages[0].Role)
}

func TestParseReportFilter(t *testing.T) {
	tests := []struct {
		input    string
		expected ReportFilter
		wantErr  bool
	}{
		{"", FilterAll, false},
		{"all", FilterAll, false},
		{"pending-public", FilterPendingPublic, false},
		{"in-progress-public", FilterInProgressPublic, false},
		{"pending-private", FilterPendingPrivate, false},
		{"in-progress-private", FilterInProgressPrivate, false},
		{"resolved", FilterAll, true},
		{"Pending-Public", FilterAll, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseReportFilter(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownFilter)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestReportFilterCycle(t *testing.T) {
	f := FilterAll
	seen := map[ReportFilter]bool{}
	for i := 0; i < len(AllFilters()); i++ {
		seen[f] = true
		f = f.Next()
	}
	assert.Equal(t, FilterAll, f)
	assert.Len(t, seen, len(AllFilters()))
}

func TestReportFilterMatches(t *testing.T) {
	report := &Report{Status: StatusPending, Visibility: VisibilityPublic}

	assert.True(t, FilterAll.Matches(report))
	assert.True(t, FilterPendingPublic.Matches(report))
	assert.False(t, FilterPendingPrivate.Matches(report))
	assert.False(t, FilterInProgressPublic.Matches(report))

	report.Status = StatusInProgress
	report.Visibility = VisibilityPrivate
	assert.True(t, FilterInProgressPrivate.Matches(report))
	assert.False(t, FilterPendingPrivate.Matches(report))
}

func TestNewReportDefaults(t *testing.T) {
	r := NewReport("Luz dañada", "Poste sin luz frente a biblioteca", "cat-1", VisibilityPublic)
	assert.NotEmpty(t, r.ID)
	assert.Equal(t, StatusPending, r.Status)
	assert.True(t, r.Status.Valid())
	assert.True(t, r.Visibility.Valid())
}
