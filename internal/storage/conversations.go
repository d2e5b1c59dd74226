// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/unialerta/uce-tui/internal/model"
	"github.com/unialerta/uce-tui/internal/util"
)

// =============================================================================
// CONVERSATION PERSISTENCE
// =============================================================================

// ConversationMeta is a list entry without the message bodies.
type ConversationMeta struct {
	ID           string
	Title        string
	MessageCount int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// SaveConversation upserts a conversation and its messages. Streaming
// messages are stored with their current display content; a loaded
// message is always final.
func (s *Store) SaveConversation(conv *model.Conversation) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO conversations (id, title, system_prompt, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			system_prompt = excluded.system_prompt,
			updated_at = excluded.updated_at
	`, conv.ID, conv.Title, conv.SystemPrompt, conv.CreatedAt.Unix(), conv.UpdatedAt.Unix())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}

	// Replace messages wholesale; histories are small and this keeps
	// ordering trivial.
	if _, err := tx.Exec("DELETE FROM messages WHERE conversation_id = ?", conv.ID); err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	for i, msg := range conv.Messages {
		_, err := tx.Exec(`
			INSERT INTO messages (id, conversation_id, seq, role, content, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, msg.ID, conv.ID, i, string(msg.Role), msg.GetDisplayContent(), msg.Timestamp.Unix())
		if err != nil {
			return fmt.Errorf("%w: %v", ErrDatabaseError, err)
		}
	}

	if err := enforceConversationLimit(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// GetConversation loads a conversation with its messages.
func (s *Store) GetConversation(id string) (*model.Conversation, error) {
	conv := &model.Conversation{ID: id}

	var createdAt, updatedAt int64
	err := s.db.QueryRow(`
		SELECT title, system_prompt, created_at, updated_at
		FROM conversations WHERE id = ?
	`, id).Scan(&conv.Title, &conv.SystemPrompt, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("conversation %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	conv.CreatedAt = time.Unix(createdAt, 0)
	conv.UpdatedAt = time.Unix(updatedAt, 0)

	rows, err := s.db.Query(`
		SELECT id, role, content, created_at
		FROM messages WHERE conversation_id = ? ORDER BY seq
	`, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	for rows.Next() {
		var msg model.Message
		var role string
		var ts int64
		if err := rows.Scan(&msg.ID, &role, &msg.Content, &ts); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
		}
		msg.Role = model.Role(role)
		msg.Timestamp = time.Unix(ts, 0)
		conv.Messages = append(conv.Messages, &msg)
	}
	return conv, rows.Err()
}

// ListConversations returns metadata for all conversations, newest
// first.
func (s *Store) ListConversations() ([]ConversationMeta, error) {
	rows, err := s.db.Query(`
		SELECT c.id, c.title, c.created_at, c.updated_at,
			(SELECT COUNT(*) FROM messages m WHERE m.conversation_id = c.id)
		FROM conversations c ORDER BY c.updated_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	var metas []ConversationMeta
	for rows.Next() {
		var meta ConversationMeta
		var createdAt, updatedAt int64
		if err := rows.Scan(&meta.ID, &meta.Title, &createdAt, &updatedAt, &meta.MessageCount); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
		}
		meta.CreatedAt = time.Unix(createdAt, 0)
		meta.UpdatedAt = time.Unix(updatedAt, 0)
		metas = append(metas, meta)
	}
	return metas, rows.Err()
}

// SearchConversations returns conversations whose title or message
// content matches the query, accent-insensitively.
func (s *Store) SearchConversations(query string) ([]ConversationMeta, error) {
	metas, err := s.ListConversations()
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(query) == "" {
		return metas, nil
	}

	var matched []ConversationMeta
	for _, meta := range metas {
		if util.ContainsFold(meta.Title, query) {
			matched = append(matched, meta)
			continue
		}
		var hit bool
		err := s.db.QueryRow(`
			SELECT EXISTS(
				SELECT 1 FROM messages WHERE conversation_id = ? AND content LIKE ?
			)
		`, meta.ID, "%"+query+"%").Scan(&hit)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
		}
		if hit {
			matched = append(matched, meta)
		}
	}
	return matched, nil
}

// DeleteConversation removes a conversation and its messages.
func (s *Store) DeleteConversation(id string) error {
	result, err := s.db.Exec("DELETE FROM conversations WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("conversation %s: %w", id, ErrNotFound)
	}
	return nil
}

// ClearConversations removes all stored conversations.
func (s *Store) ClearConversations() error {
	if _, err := s.db.Exec("DELETE FROM conversations"); err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	return nil
}

// enforceConversationLimit evicts the oldest conversations beyond
// MaxConversations.
func enforceConversationLimit(tx *sql.Tx) error {
	_, err := tx.Exec(`
		DELETE FROM conversations WHERE id IN (
			SELECT id FROM conversations
			ORDER BY updated_at DESC
			LIMIT -1 OFFSET ?
		)
	`, MaxConversations)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	return nil
}

// =============================================================================
// EXPORT
// =============================================================================

// ExportMarkdown writes a conversation transcript as markdown.
func (s *Store) ExportMarkdown(id, path string) error {
	conv, err := s.GetConversation(id)
	if err != nil {
		return err
	}

	var b strings.Builder
	b.WriteString("# " + conv.Title + "\n\n")
	b.WriteString("_Exported " + time.Now().Format("2006-01-02 15:04") + "_\n\n")
	for _, msg := range conv.Messages {
		b.WriteString("## " + msg.Role.DisplayName() + "\n\n")
		b.WriteString(msg.Content)
		b.WriteString("\n\n")
	}
	return util.AtomicWriteFile(path, []byte(b.String()), 0600)
}

// ExportJSON writes a conversation as pretty-printed JSON.
func (s *Store) ExportJSON(id, path string) error {
	conv, err := s.GetConversation(id)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(conv, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode conversation: %w", err)
	}
	return util.AtomicWriteFile(path, data, 0600)
}
