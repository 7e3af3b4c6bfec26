package db

import (
	"encoding/json"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"

	UserRoleLearner = "learner"
	UserRoleCoach   = "coach"
)

type User struct {
	ID          string
	Name        string
	Role        string
	Goals       []string
	Preferences map[string]string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Conversation struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	ChannelID string    `db:"channel_id"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

type Message struct {
	ID             string    `db:"id"`
	ConversationID string    `db:"conversation_id"`
	Role           string    `db:"role"`
	Content        string    `db:"content"`
	CreatedAt      time.Time `db:"created_at"`
}

// ConversationHistory is one thread of the user's history as exposed by the
// memory endpoint.
type ConversationHistory struct {
	ChannelID string        `json:"channelId"`
	Messages  []HistoryTurn `json:"messages"`
}

type HistoryTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// userRow carries the storage encoding of goals/preferences. The encoding is
// owned by this package; callers only ever see the typed fields on User.
type userRow struct {
	ID              string    `db:"id"`
	Name            string    `db:"name"`
	Role            string    `db:"role"`
	GoalsJSON       string    `db:"goals"`
	PreferencesJSON string    `db:"preferences"`
	CreatedAt       time.Time `db:"created_at"`
	UpdatedAt       time.Time `db:"updated_at"`
}

func (r *userRow) toModel() *User {
	goals := make([]string, 0)
	if err := json.Unmarshal([]byte(r.GoalsJSON), &goals); err != nil {
		goals = []string{}
	}

	preferences := make(map[string]string)
	if err := json.Unmarshal([]byte(r.PreferencesJSON), &preferences); err != nil {
		preferences = map[string]string{}
	}

	return &User{
		ID:          r.ID,
		Name:        r.Name,
		Role:        r.Role,
		Goals:       goals,
		Preferences: preferences,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}
