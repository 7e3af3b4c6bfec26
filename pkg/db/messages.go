package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AppendMessage appends one turn to a conversation and refreshes the
// conversation's updated_at, which drives digest recency ranking.
func (s *Store) AppendMessage(ctx context.Context, conversationID, role, content string) (*Message, error) {
	message := &Message{
		ID:             uuid.New().String(),
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		CreatedAt:      time.Now().UTC(),
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, tx.Rebind(`
		INSERT INTO messages (id, conversation_id, role, content, created_at)
		VALUES (?, ?, ?, ?, ?)`),
		message.ID, message.ConversationID, message.Role, message.Content, message.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to append message: %w", err)
	}

	_, err = tx.ExecContext(ctx, tx.Rebind(
		`UPDATE conversations SET updated_at = ? WHERE id = ?`),
		message.CreatedAt, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to touch conversation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit message: %w", err)
	}
	return message, nil
}

// RecentMessages returns up to limit messages of a conversation, most
// recent first.
func (s *Store) RecentMessages(ctx context.Context, conversationID string, limit int) ([]Message, error) {
	var messages []Message
	err := s.db.SelectContext(ctx, &messages, s.db.Rebind(`
		SELECT id, conversation_id, role, content, created_at FROM messages
		WHERE conversation_id = ?
		ORDER BY created_at DESC
		LIMIT ?`), conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent messages: %w", err)
	}
	return messages, nil
}

// LastAssistantMessagePerOtherConversation returns the most recent assistant
// message from each of the user's other conversations, one per conversation,
// most-recently-updated conversations first.
func (s *Store) LastAssistantMessagePerOtherConversation(ctx context.Context, userID, excludeConversationID string, conversationLimit int) ([]Message, error) {
	var messages []Message
	err := s.db.SelectContext(ctx, &messages, s.db.Rebind(`
		SELECT m.id, m.conversation_id, m.role, m.content, m.created_at
		FROM conversations c
		JOIN messages m ON m.id = (
			SELECT m2.id FROM messages m2
			WHERE m2.conversation_id = c.id AND m2.role = ?
			ORDER BY m2.created_at DESC
			LIMIT 1
		)
		WHERE c.user_id = ? AND c.id <> ?
		ORDER BY c.updated_at DESC
		LIMIT ?`), RoleAssistant, userID, excludeConversationID, conversationLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversation digests: %w", err)
	}
	return messages, nil
}
