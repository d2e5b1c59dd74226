// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/unialerta/uce-tui/internal/assistant"
	"github.com/unialerta/uce-tui/internal/backend"
	"github.com/unialerta/uce-tui/internal/location"
	"github.com/unialerta/uce-tui/internal/model"
	"github.com/unialerta/uce-tui/internal/storage"
	"github.com/unialerta/uce-tui/internal/util"
)

// =============================================================================
// STREAM COMMANDS
// =============================================================================

// streamCmd opens the assistant stream and pumps tokens into the
// buffer. The command blocks in its own goroutine until the stream
// ends; flushed renders happen on StreamTickMsg in the Update loop.
//
// There is no retry here. A failed stream keeps whatever partial
// content already flushed and surfaces the error once.
func streamCmd(client *assistant.Client, conv *model.Conversation, buffer *StreamingBuffer,
	cancelMgr *cancelManager, generation int, messageID string, timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		cancelMgr.set(cancel)
		defer cancel()

		result, err := client.ChatStream(ctx, conv, func(token string) {
			buffer.Write(token)
		})

		return StreamCompleteMsg{
			Generation: generation,
			MessageID:  messageID,
			Result:     result,
			Error:      err,
		}
	}
}

// =============================================================================
// ACTION COMMANDS
// =============================================================================

// executeActionCmd runs a pending assistant action against the backend.
// Validation happens inside the repository client before any network
// call; validation failures come back as backend.ValidationErrors.
func executeActionCmd(repo backend.Repository, action *model.PendingAction, timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		switch action.Kind {
		case model.ActionCreateReport:
			return runCreateReport(ctx, repo, action)
		case model.ActionUpdateStatus:
			return runUpdateStatus(ctx, repo, action)
		case model.ActionOpenFilter:
			return runOpenFilter(action)
		}
		return ActionResultMsg{Action: action, Error: model.ErrUnknownAction}
	}
}

func runCreateReport(ctx context.Context, repo backend.Repository, action *model.PendingAction) tea.Msg {
	input := backend.ReportInput{
		Title:      action.Param("title"),
		Body:       action.Param("body"),
		CategoryID: action.Param("category_id"),
		Visibility: model.Visibility(action.Param("visibility")),
	}
	if lat, ok := util.ParseCoordinate(action.Param("latitude"), 90); ok {
		input.Latitude = lat
	}
	if lon, ok := util.ParseCoordinate(action.Param("longitude"), 180); ok {
		input.Longitude = lon
	}

	report, err := repo.CreateReport(ctx, input)
	return ActionResultMsg{Action: action, Report: report, Error: err}
}

func runUpdateStatus(ctx context.Context, repo backend.Repository, action *model.PendingAction) tea.Msg {
	report, err := repo.UpdateReportStatus(ctx,
		action.Param("report_id"),
		model.ReportStatus(action.Param("status")))
	return ActionResultMsg{Action: action, Report: report, Error: err}
}

func runOpenFilter(action *model.PendingAction) tea.Msg {
	filter, err := model.ParseReportFilter(action.Param("filter"))
	return ActionResultMsg{Action: action, Filter: filter, Applied: err == nil, Error: err}
}

// loadReportsCmd fetches the report list for a filter.
func loadReportsCmd(repo backend.Repository, filter model.ReportFilter, timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		reports, err := repo.ListReports(ctx, filter)
		return ReportsLoadedMsg{Filter: filter, Reports: reports, Error: err}
	}
}

// =============================================================================
// PERMISSION COMMANDS
// =============================================================================

// permissionTickCmd polls the prompt state machine. Coarse on purpose;
// the configured delay only needs second-level resolution.
func permissionTickCmd() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(t time.Time) tea.Msg {
		return PermissionTickMsg{Time: t}
	})
}

// =============================================================================
// LOCATION COMMANDS
// =============================================================================

// waitForLocationCmd pumps one update off the watch channel. The
// handler re-issues it after every receive.
func waitForLocationCmd(ch <-chan location.Update) tea.Cmd {
	return func() tea.Msg {
		update, ok := <-ch
		if !ok {
			return LocationStoppedMsg{}
		}
		return LocationMsg{Update: update}
	}
}

// =============================================================================
// PERSISTENCE COMMANDS
// =============================================================================

// saveConversationCmd persists the conversation to local storage.
func saveConversationCmd(store *storage.Store, conv *model.Conversation) tea.Cmd {
	return func() tea.Msg {
		if store == nil {
			return ConversationSavedMsg{ID: conv.ID}
		}
		err := store.SaveConversation(conv)
		return ConversationSavedMsg{ID: conv.ID, Error: err}
	}
}
