package chat

import (
	"context"
	"fmt"
	"time"

	stream "github.com/GetStream/stream-chat-go/v7"
	"github.com/charmbracelet/log"
	"github.com/pkg/errors"
)

const (
	channelType = "messaging"
	channelName = "AI Coach Chat"
)

// StreamProvider implements Provider on top of Stream Chat.
type StreamProvider struct {
	client *stream.Client
	logger *log.Logger
}

func NewStreamProvider(apiKey, apiSecret string, logger *log.Logger) (*StreamProvider, error) {
	client, err := stream.NewClient(apiKey, apiSecret)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Stream client")
	}
	return &StreamProvider{client: client, logger: logger}, nil
}

func (p *StreamProvider) UpsertUser(ctx context.Context, id, name string) error {
	// Role is kept in our own store; Stream only gets identity fields.
	_, err := p.client.UpsertUser(ctx, &stream.User{ID: id, Name: name})
	if err != nil {
		return errors.Wrap(err, "failed to upsert chat user")
	}
	p.logger.Debug("Upserted chat user", "user_id", id)
	return nil
}

func (p *StreamProvider) CreateToken(userID string) (string, error) {
	token, err := p.client.CreateToken(userID, time.Time{})
	if err != nil {
		return "", errors.Wrap(err, "failed to create chat token")
	}
	return token, nil
}

func (p *StreamProvider) CreateChannel(ctx context.Context, learnerID, coachID string) (string, error) {
	resp, err := p.client.CreateChannel(ctx, channelType, ChannelID(learnerID, coachID), coachID, &stream.ChannelRequest{
		Members:   []string{learnerID, coachID},
		ExtraData: map[string]interface{}{"name": channelName},
	})
	if err != nil {
		return "", errors.Wrap(err, "failed to create channel")
	}
	p.logger.Debug("Created channel", "channel_id", resp.Channel.ID)
	return resp.Channel.ID, nil
}

// ChannelID derives the deterministic channel identifier for a coach/learner
// pairing.
func ChannelID(learnerID, coachID string) string {
	return fmt.Sprintf("coach-%s-learner-%s", coachID, learnerID)
}
