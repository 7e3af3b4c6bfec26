// Package chat wraps the chat-provider identity, token and channel
// operations the backend consumes. The provider is opaque: it delivers
// messages to clients, while conversation state lives in our own store.
package chat

import (
	"context"

	"github.com/pkg/errors"
)

// Provider is the chat-provider surface the backend depends on.
type Provider interface {
	UpsertUser(ctx context.Context, id, name string) error
	CreateToken(userID string) (string, error)
	CreateChannel(ctx context.Context, learnerID, coachID string) (string, error)
}

// ErrDisabled is returned by a provider whose credentials were not
// configured at startup.
var ErrDisabled = errors.New("chat provider is disabled: missing credentials")

// DisabledProvider fails every call so the process can run without chat
// credentials; only the endpoints touching the provider degrade.
type DisabledProvider struct{}

func (DisabledProvider) UpsertUser(ctx context.Context, id, name string) error {
	return ErrDisabled
}

func (DisabledProvider) CreateToken(userID string) (string, error) {
	return "", ErrDisabled
}

func (DisabledProvider) CreateChannel(ctx context.Context, learnerID, coachID string) (string, error) {
	return "", ErrDisabled
}
