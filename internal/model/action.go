// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"errors"

	"github.com/google/uuid"
)

// =============================================================================
// PENDING ACTIONS
// =============================================================================

// ActionKind identifies what a proposed assistant action does.
type ActionKind string

const (
	ActionCreateReport ActionKind = "create_report"
	ActionUpdateStatus ActionKind = "update_status"
	ActionOpenFilter   ActionKind = "open_filter"
)

// ErrUnknownAction is returned when an action kind is outside the set.
var ErrUnknownAction = errors.New("unknown action kind")

// Valid reports whether the kind is one of the known values.
func (k ActionKind) Valid() bool {
	switch k {
	case ActionCreateReport, ActionUpdateStatus, ActionOpenFilter:
		return true
	}
	return false
}

// PendingAction is an action the assistant proposed during a turn. It
// attaches to the latest assistant message and is cleared when the
// user executes or cancels it, or sends a new message.
type PendingAction struct {
	ID     string            `json:"id"`
	Kind   ActionKind        `json:"kind"`
	Label  string            `json:"label"`
	Params map[string]string `json:"params"`

	// MessageID is the assistant message the action belongs to.
	MessageID string `json:"message_id"`
}

// NewPendingAction creates a pending action bound to a message.
func NewPendingAction(kind ActionKind, label string, params map[string]string, messageID string) *PendingAction {
	if params == nil {
		params = make(map[string]string)
	}
	return &PendingAction{
		ID:        uuid.New().String(),
		Kind:      kind,
		Label:     label,
		Params:    params,
		MessageID: messageID,
	}
}

// Param returns a parameter value, or "" when absent.
func (a *PendingAction) Param(key string) string {
	if a == nil {
		return ""
	}
	return a.Params[key]
}
