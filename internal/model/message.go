// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"
)

// =============================================================================
// ROLES
// =============================================================================

// Role identifies the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	case RoleSystem:
		return "System"
	default:
		return string(r)
	}
}

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// =============================================================================
// MESSAGE
// =============================================================================

// Message is a single chat message. Assistant messages start in
// streaming mode and accumulate tokens until FinalizeStream.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Timestamp time.Time `json:"timestamp"`
	Content   string    `json:"content"`

	// IsStreaming is true while tokens are still arriving. Not
	// persisted; a loaded message is always final.
	IsStreaming bool `json:"-"`

	// streamContent buffers tokens during streaming. Content is the
	// source of truth once finalized.
	streamContent strings.Builder
}

// NewUserMessage creates a finalized user message.
func NewUserMessage(content string) *Message {
	return &Message{
		ID:        generateMessageID(),
		Role:      RoleUser,
		Timestamp: time.Now(),
		Content:   content,
	}
}

// NewAssistantMessage creates an assistant message in streaming mode.
func NewAssistantMessage() *Message {
	return &Message{
		ID:          generateMessageID(),
		Role:        RoleAssistant,
		Timestamp:   time.Now(),
		IsStreaming: true,
	}
}

// NewSystemMessage creates a finalized system message.
func NewSystemMessage(content string) *Message {
	return &Message{
		ID:        generateMessageID(),
		Role:      RoleSystem,
		Timestamp: time.Now(),
		Content:   content,
	}
}

// AppendToken appends a streamed token. No-op once finalized.
func (m *Message) AppendToken(token string) {
	if !m.IsStreaming {
		return
	}
	m.streamContent.WriteString(token)
}

// FinalizeStream ends streaming and moves accumulated content into
// Content. Safe to call more than once.
func (m *Message) FinalizeStream() {
	if !m.IsStreaming {
		return
	}
	m.Content = m.streamContent.String()
	m.streamContent.Reset()
	m.IsStreaming = false
}

// GetDisplayContent returns the content to render: the stream buffer
// while streaming, Content afterwards.
func (m *Message) GetDisplayContent() string {
	if m.IsStreaming {
		return m.streamContent.String()
	}
	return m.Content
}

// Preview returns a short single-line preview of the message.
func (m *Message) Preview(maxRunes int) string {
	content := strings.ReplaceAll(m.GetDisplayContent(), "\n", " ")
	runes := []rune(content)
	if len(runes) <= maxRunes {
		return content
	}
	if maxRunes <= 3 {
		return string(runes[:maxRunes])
	}
	return string(runes[:maxRunes-3]) + "..."
}

// generateMessageID returns an opaque unique message ID.
func generateMessageID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		// Fall back to a timestamp-derived ID.
		return "msg_" + hex.EncodeToString([]byte(time.Now().Format("150405.000000")))
	}
	return "msg_" + hex.EncodeToString(b)
}
