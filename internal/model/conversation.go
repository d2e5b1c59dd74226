// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// MaxMessages caps conversation length. Older messages are pruned,
// keeping the system prompt if present.
const MaxMessages = 1000

// =============================================================================
// CONVERSATION
// =============================================================================

// Conversation is an ordered chat history with the assistant.
type Conversation struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	Messages  []*Message `json:"messages"`

	// SystemPrompt is sent ahead of the history on every turn.
	SystemPrompt string `json:"system_prompt,omitempty"`

	// Pending is the action proposed by the latest assistant message,
	// if any. Never persisted.
	Pending *PendingAction `json:"-"`
}

// NewConversation creates an empty conversation.
func NewConversation() *Conversation {
	now := time.Now()
	return &Conversation{
		ID:        generateConversationID(),
		Title:     "New conversation",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// AddUserMessage appends a user message. Any streaming assistant
// message is finalized first and any pending action is cleared.
func (c *Conversation) AddUserMessage(content string) *Message {
	c.FinalizeLast()
	c.Pending = nil

	msg := NewUserMessage(content)
	c.appendMessage(msg)

	if c.Title == "New conversation" {
		c.Title = msg.Preview(50)
	}
	return msg
}

// AddAssistantMessage appends a streaming assistant message. Any
// earlier streaming message is finalized first so that at most one
// message is streaming at a time.
func (c *Conversation) AddAssistantMessage() *Message {
	c.FinalizeLast()

	msg := NewAssistantMessage()
	c.appendMessage(msg)
	return msg
}

// AddSystemMessage appends a system message.
func (c *Conversation) AddSystemMessage(content string) *Message {
	msg := NewSystemMessage(content)
	c.appendMessage(msg)
	return msg
}

// GetLastMessage returns the most recent message, or nil when empty.
func (c *Conversation) GetLastMessage() *Message {
	if len(c.Messages) == 0 {
		return nil
	}
	return c.Messages[len(c.Messages)-1]
}

// AppendToLast appends a token to the last message if it is streaming.
func (c *Conversation) AppendToLast(token string) {
	last := c.GetLastMessage()
	if last == nil || !last.IsStreaming {
		return
	}
	last.AppendToken(token)
	c.UpdatedAt = time.Now()
}

// FinalizeLast finalizes the last message if it is streaming.
func (c *Conversation) FinalizeLast() {
	last := c.GetLastMessage()
	if last == nil || !last.IsStreaming {
		return
	}
	last.FinalizeStream()
	c.UpdatedAt = time.Now()
}

// StreamingCount returns how many messages are currently streaming.
func (c *Conversation) StreamingCount() int {
	count := 0
	for _, m := range c.Messages {
		if m.IsStreaming {
			count++
		}
	}
	return count
}

// SetPending attaches a pending action. Actions only attach to the
// latest assistant message; anything else is discarded.
func (c *Conversation) SetPending(action *PendingAction) {
	last := c.GetLastMessage()
	if action == nil || last == nil || last.Role != RoleAssistant || last.ID != action.MessageID {
		return
	}
	c.Pending = action
}

// ClearPending removes the pending action, if any.
func (c *Conversation) ClearPending() {
	c.Pending = nil
}

// ClearHistory removes all messages and the pending action, keeping
// the conversation identity and system prompt.
func (c *Conversation) ClearHistory() {
	c.Messages = nil
	c.Pending = nil
	c.UpdatedAt = time.Now()
}

// appendMessage appends and prunes old history if over the cap.
func (c *Conversation) appendMessage(msg *Message) {
	c.Messages = append(c.Messages, msg)
	c.UpdatedAt = time.Now()
	c.pruneOldMessages()
}

// pruneOldMessages drops the oldest messages beyond MaxMessages,
// preserving a leading system message.
func (c *Conversation) pruneOldMessages() {
	if len(c.Messages) <= MaxMessages {
		return
	}

	excess := len(c.Messages) - MaxMessages
	if len(c.Messages) > 0 && c.Messages[0].Role == RoleSystem {
		kept := make([]*Message, 0, MaxMessages)
		kept = append(kept, c.Messages[0])
		kept = append(kept, c.Messages[1+excess:]...)
		c.Messages = kept
		return
	}
	c.Messages = c.Messages[excess:]
}

// generateConversationID returns an opaque unique conversation ID.
func generateConversationID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "conv_" + hex.EncodeToString([]byte(time.Now().Format("150405.000000")))
	}
	return "conv_" + hex.EncodeToString(b)
}
