package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
)

// GetUser returns the user with the given id, or ErrNotFound.
func (s *Store) GetUser(ctx context.Context, id string) (*User, error) {
	var row userRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind(
		`SELECT id, name, role, goals, preferences, created_at, updated_at FROM users WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return row.toModel(), nil
}

// GetOrCreateUser returns the user with the given id, creating it with the
// learner role and a display name derived from the id when absent. The
// second return reports whether a new row was created.
func (s *Store) GetOrCreateUser(ctx context.Context, id string) (*User, bool, error) {
	user, err := s.GetUser(ctx, id)
	if err == nil {
		return user, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}

	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO users (id, name, role, goals, preferences, created_at, updated_at)
		VALUES (?, ?, ?, '[]', '{}', ?, ?)
		ON CONFLICT (id) DO NOTHING`),
		id, DisplayNameFromID(id), UserRoleLearner, now, now)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create user: %w", err)
	}

	created := int64(0)
	if n, err := res.RowsAffected(); err == nil {
		created = n
	}

	user, err = s.GetUser(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return user, created > 0, nil
}

// UpsertUser creates or updates a user with an explicit name and role.
func (s *Store) UpsertUser(ctx context.Context, id, name, role string) (*User, error) {
	if name == "" {
		name = DisplayNameFromID(id)
	}
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO users (id, name, role, goals, preferences, created_at, updated_at)
		VALUES (?, ?, ?, '[]', '{}', ?, ?)
		ON CONFLICT (id) DO UPDATE SET name = excluded.name, role = excluded.role, updated_at = excluded.updated_at`),
		id, name, role, now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}
	return s.GetUser(ctx, id)
}

// UpdateUserMemory replaces goals wholesale when goals is non-nil and merges
// preferences key-by-key when preferences is non-nil. Either field may be
// omitted independently; within a field the update is all-or-nothing.
func (s *Store) UpdateUserMemory(ctx context.Context, userID string, goals []string, preferences map[string]string) (*User, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var row userRow
	err = tx.GetContext(ctx, &row, tx.Rebind(
		`SELECT id, name, role, goals, preferences, created_at, updated_at FROM users WHERE id = ?`), userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	user := row.toModel()
	if goals != nil {
		user.Goals = goals
	}
	for key, value := range preferences {
		user.Preferences[key] = value
	}

	goalsJSON, err := json.Marshal(user.Goals)
	if err != nil {
		return nil, fmt.Errorf("failed to encode goals: %w", err)
	}
	preferencesJSON, err := json.Marshal(user.Preferences)
	if err != nil {
		return nil, fmt.Errorf("failed to encode preferences: %w", err)
	}

	_, err = tx.ExecContext(ctx, tx.Rebind(
		`UPDATE users SET goals = ?, preferences = ?, updated_at = ? WHERE id = ?`),
		string(goalsJSON), string(preferencesJSON), time.Now().UTC(), userID)
	if err != nil {
		return nil, fmt.Errorf("failed to update user memory: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit memory update: %w", err)
	}
	return user, nil
}

// ConversationHistory returns every conversation of the user with its
// messages in chronological order, oldest conversation first.
func (s *Store) ConversationHistory(ctx context.Context, userID string) ([]ConversationHistory, error) {
	var conversations []Conversation
	err := s.db.SelectContext(ctx, &conversations, s.db.Rebind(
		`SELECT id, user_id, channel_id, created_at, updated_at FROM conversations
		 WHERE user_id = ? ORDER BY created_at`), userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}

	history := make([]ConversationHistory, 0, len(conversations))
	for _, conversation := range conversations {
		var messages []Message
		err := s.db.SelectContext(ctx, &messages, s.db.Rebind(
			`SELECT id, conversation_id, role, content, created_at FROM messages
			 WHERE conversation_id = ? ORDER BY created_at`), conversation.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list messages: %w", err)
		}

		history = append(history, ConversationHistory{
			ChannelID: conversation.ChannelID,
			Messages: lo.Map(messages, func(m Message, _ int) HistoryTurn {
				return HistoryTurn{Role: m.Role, Content: m.Content}
			}),
		})
	}
	return history, nil
}

// DisplayNameFromID derives a human-readable name from an externally
// assigned identifier, e.g. "jane_doe-42" becomes "Jane Doe 42".
func DisplayNameFromID(id string) string {
	parts := strings.FieldsFunc(id, func(r rune) bool {
		return r == '-' || r == '_' || r == '.'
	})
	if len(parts) == 0 {
		return "Learner"
	}
	parts = lo.Map(parts, func(p string, _ int) string {
		return strings.ToUpper(p[:1]) + p[1:]
	})
	return strings.Join(parts, " ")
}
