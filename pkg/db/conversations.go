package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// GetOrCreateConversation returns the conversation for the (userID,
// channelID) pair, creating it when absent.
//
// The pair is unique in the schema and the insert is conflict-safe, so two
// concurrent first messages into the same channel resolve to one row.
func (s *Store) GetOrCreateConversation(ctx context.Context, userID, channelID string) (*Conversation, error) {
	conversation, err := s.getConversation(ctx, userID, channelID)
	if err == nil {
		return conversation, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO conversations (id, user_id, channel_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id, channel_id) DO NOTHING`),
		uuid.New().String(), userID, channelID, now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}

	return s.getConversation(ctx, userID, channelID)
}

func (s *Store) getConversation(ctx context.Context, userID, channelID string) (*Conversation, error) {
	var conversation Conversation
	err := s.db.GetContext(ctx, &conversation, s.db.Rebind(
		`SELECT id, user_id, channel_id, created_at, updated_at FROM conversations
		 WHERE user_id = ? AND channel_id = ?`), userID, channelID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	return &conversation, nil
}
