package coach

import (
	"encoding/json"
	"fmt"
	"time"
)

// TurnEvent is published after each completed coaching turn so delivery-side
// consumers can observe replies.
type TurnEvent struct {
	ChannelID      string `json:"channelId"`
	ConversationID string `json:"conversationId"`
	UserID         string `json:"userId"`
	Role           string `json:"role"`
	Content        string `json:"content"`
	CreatedAt      string `json:"createdAt"`
}

// TurnSubject is the NATS subject for turn events on a channel.
func TurnSubject(channelID string) string {
	return fmt.Sprintf("coach.turn.%s", channelID)
}

func (s *Service) publishTurn(channelID, conversationID, userID, role, content string) {
	if s.nc == nil {
		return
	}

	payload, err := json.Marshal(TurnEvent{
		ChannelID:      channelID,
		ConversationID: conversationID,
		UserID:         userID,
		Role:           role,
		Content:        content,
		CreatedAt:      time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		s.logger.Error("Failed to marshal turn event", "error", err)
		return
	}

	if err := s.nc.Publish(TurnSubject(channelID), payload); err != nil {
		s.logger.Error("Failed to publish turn event", "channel_id", channelID, "error", err)
	}
}
