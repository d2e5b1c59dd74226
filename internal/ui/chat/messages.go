// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the assistant chat view for the TUI.
//
// This file defines the Bubble Tea message types used by the chat
// interface, grouped by concern: streaming, actions, permission
// prompting, reports, and location.
package chat

import (
	"time"

	"github.com/unialerta/uce-tui/internal/assistant"
	"github.com/unialerta/uce-tui/internal/location"
	"github.com/unialerta/uce-tui/internal/model"
)

// =============================================================================
// STREAMING MESSAGES
// =============================================================================

// StreamStartMsg signals that a stream opened for a message.
type StreamStartMsg struct {
	Generation int
	MessageID  string
	StartTime  time.Time
}

// StreamTickMsg drives buffered token flushes at the render frame rate.
type StreamTickMsg struct {
	Time time.Time
}

// StreamCompleteMsg signals the stream ended, cleanly or not. On
// failure the partial content already flushed stays in the message.
type StreamCompleteMsg struct {
	Generation int
	MessageID  string
	Result     *assistant.StreamResult
	Error      error
}

// =============================================================================
// ACTION MESSAGES
// =============================================================================

// ExecuteActionMsg requests running the pending assistant action.
type ExecuteActionMsg struct {
	Action *model.PendingAction
}

// ActionResultMsg reports the outcome of an executed action.
type ActionResultMsg struct {
	Action  *model.PendingAction
	Report  *model.Report
	Filter  model.ReportFilter
	Applied bool
	Error   error
}

// =============================================================================
// PERMISSION MESSAGES
// =============================================================================

// PermissionTickMsg advances the permission prompt state machine.
type PermissionTickMsg struct {
	Time time.Time
}

// =============================================================================
// REPORT MESSAGES
// =============================================================================

// ReportsLoadedMsg delivers the filtered report list from the backend.
type ReportsLoadedMsg struct {
	Filter  model.ReportFilter
	Reports []*model.Report
	Error   error
}

// =============================================================================
// LOCATION MESSAGES
// =============================================================================

// LocationMsg delivers one position update or error.
type LocationMsg struct {
	Update location.Update
}

// LocationStoppedMsg signals the position watch closed.
type LocationStoppedMsg struct{}

// =============================================================================
// PERSISTENCE MESSAGES
// =============================================================================

// ConversationSavedMsg confirms an auto or manual save.
type ConversationSavedMsg struct {
	ID    string
	Error error
}
