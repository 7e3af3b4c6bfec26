package coach

import (
	"context"

	"github.com/samber/lo"

	"github.com/mentorloop/coach-backend/pkg/db"
	"github.com/mentorloop/coach-backend/pkg/prompts"
)

// Context is the bounded conversational context handed to the prompt
// composer.
type Context struct {
	RecentTurns []prompts.Turn
	PastDigests []string
	Goals       []string
	Preferences map[string]string
}

// Assembler builds the bounded context for one coaching turn: the recent-turn
// window of the active conversation, one digest per recent past conversation,
// and the user's personalization memory.
type Assembler struct {
	store       Store
	windowSize  int
	digestLimit int
}

func NewAssembler(store Store, windowSize, digestLimit int) *Assembler {
	return &Assembler{store: store, windowSize: windowSize, digestLimit: digestLimit}
}

func (a *Assembler) Build(ctx context.Context, userID, conversationID string) (*Context, error) {
	recent, err := a.store.RecentMessages(ctx, conversationID, a.windowSize)
	if err != nil {
		return nil, err
	}
	// The store returns newest first; prompts render oldest to newest.
	recent = lo.Reverse(recent)

	digests, err := a.store.LastAssistantMessagePerOtherConversation(ctx, userID, conversationID, a.digestLimit)
	if err != nil {
		return nil, err
	}

	user, err := a.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &Context{
		RecentTurns: lo.Map(recent, func(m db.Message, _ int) prompts.Turn {
			return prompts.Turn{Role: m.Role, Content: m.Content}
		}),
		PastDigests: lo.Map(digests, func(m db.Message, _ int) string {
			return m.Content
		}),
		Goals:       user.Goals,
		Preferences: user.Preferences,
	}, nil
}
