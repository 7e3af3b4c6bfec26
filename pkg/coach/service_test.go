package coach

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mentorloop/coach-backend/pkg/ai"
	"github.com/mentorloop/coach-backend/pkg/config"
	"github.com/mentorloop/coach-backend/pkg/db"
)

type fakeGenerator struct {
	reply   string
	err     error
	calls   int
	prompts []string
}

func (g *fakeGenerator) Generate(ctx context.Context, prompt string, params ai.GenerateParams) (string, error) {
	g.calls++
	g.prompts = append(g.prompts, prompt)
	if g.err != nil {
		return "", g.err
	}
	return g.reply, nil
}

type fakeProvider struct {
	upserts []string
	err     error
}

func (p *fakeProvider) UpsertUser(ctx context.Context, id, name string) error {
	p.upserts = append(p.upserts, id)
	return p.err
}

func (p *fakeProvider) CreateToken(userID string) (string, error) {
	return "token-" + userID, p.err
}

func (p *fakeProvider) CreateChannel(ctx context.Context, learnerID, coachID string) (string, error) {
	return "channel", p.err
}

func newTestStore(t *testing.T) *db.Store {
	t.Helper()
	store, err := db.NewStore("sqlite3", filepath.Join(t.TempDir(), "coach.db"), log.New(io.Discard))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func newTestService(t *testing.T, store *db.Store, generator ai.Generator, provider *fakeProvider) *Service {
	t.Helper()
	return NewService(store, generator, provider, testDetector(), Config{
		ContextWindowSize:  5,
		DigestLimit:        3,
		DetectorWindowSize: 6,
		Generate:           ai.GenerateParams{MaxOutputTokens: 300, Temperature: 0.7, TopP: 0.9},
		LoopRedirectReply:  config.DefaultLoopRedirectReply,
		EchoRedirectReply:  config.DefaultEchoRedirectReply,
		FallbackReply:      config.DefaultFallbackReply,
	}, nil, log.New(io.Discard))
}

func conversationMessages(t *testing.T, store *db.Store, userID, channelID string) []db.Message {
	t.Helper()
	ctx := context.Background()
	conversation, err := store.GetOrCreateConversation(ctx, userID, channelID)
	require.NoError(t, err)
	messages, err := store.RecentMessages(ctx, conversation.ID, 100)
	require.NoError(t, err)
	// Newest first; flip to chronological for assertions.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages
}

func TestHandleMessageFirstTurn(t *testing.T) {
	store := newTestStore(t)
	generator := &fakeGenerator{reply: "Welcome! It's *great* to meet you.\n* Tell me a goal\n*  Or a challenge"}
	provider := &fakeProvider{}
	service := newTestService(t, store, generator, provider)
	ctx := context.Background()

	reply, err := service.HandleMessage(ctx, "jane_doe", "channel-1", "Hi, I want to learn Go.")
	require.NoError(t, err)

	assert.Equal(t, "Welcome! It's <b>great</b> to meet you.\n- Tell me a goal\n- Or a challenge", reply)
	assert.Equal(t, 1, generator.calls)
	assert.Equal(t, []string{"jane_doe"}, provider.upserts)

	// The prompt ends with the inbound message and contains it exactly once.
	require.Len(t, generator.prompts, 1)
	assert.Contains(t, generator.prompts[0], "user: Hi, I want to learn Go.")
	assert.Equal(t, 1, countOccurrences(generator.prompts[0], "Hi, I want to learn Go."))

	messages := conversationMessages(t, store, "jane_doe", "channel-1")
	require.Len(t, messages, 2)
	assert.Equal(t, db.RoleUser, messages[0].Role)
	assert.Equal(t, "Hi, I want to learn Go.", messages[0].Content)
	assert.Equal(t, db.RoleAssistant, messages[1].Role)
	assert.Equal(t, reply, messages[1].Content)

	user, err := store.GetUser(ctx, "jane_doe")
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", user.Name)
}

func TestHandleMessageModelFailure(t *testing.T) {
	store := newTestStore(t)
	generator := &fakeGenerator{err: errors.New("backend unavailable")}
	service := newTestService(t, store, generator, &fakeProvider{})

	reply, err := service.HandleMessage(context.Background(), "u1", "channel-1", "hello")
	require.NoError(t, err)
	assert.Equal(t, config.DefaultFallbackReply, reply)

	// The fallback string itself is what gets persisted.
	messages := conversationMessages(t, store, "u1", "channel-1")
	require.Len(t, messages, 2)
	assert.Equal(t, config.DefaultFallbackReply, messages[1].Content)
}

func TestHandleMessageUserPhraseLoop(t *testing.T) {
	store := newTestStore(t)
	generator := &fakeGenerator{reply: "should never be called"}
	service := newTestService(t, store, generator, &fakeProvider{})
	ctx := context.Background()

	_, _, err := store.GetOrCreateUser(ctx, "u1")
	require.NoError(t, err)
	conversation, err := store.GetOrCreateConversation(ctx, "u1", "channel-1")
	require.NoError(t, err)
	seed := []struct{ role, content string }{
		{db.RoleUser, "You're my AI coach after all."},
		{db.RoleAssistant, "What would you like to work on?"},
		{db.RoleUser, "As my AI coach, you tell me."},
		{db.RoleAssistant, "Let's pick one concrete topic."},
	}
	for _, m := range seed {
		_, err := store.AppendMessage(ctx, conversation.ID, m.role, m.content)
		require.NoError(t, err)
	}

	reply, err := service.HandleMessage(ctx, "u1", "channel-1", "ok")
	require.NoError(t, err)
	assert.Equal(t, config.DefaultLoopRedirectReply, reply)
	assert.Zero(t, generator.calls)

	// Both turns are still persisted: continuity survives the redirect.
	messages := conversationMessages(t, store, "u1", "channel-1")
	require.Len(t, messages, 6)
	assert.Equal(t, "ok", messages[4].Content)
	assert.Equal(t, config.DefaultLoopRedirectReply, messages[5].Content)
}

func TestHandleMessageAssistantEchoLoop(t *testing.T) {
	store := newTestStore(t)
	generator := &fakeGenerator{reply: "should never be called"}
	service := newTestService(t, store, generator, &fakeProvider{})
	ctx := context.Background()

	_, _, err := store.GetOrCreateUser(ctx, "u1")
	require.NoError(t, err)
	conversation, err := store.GetOrCreateConversation(ctx, "u1", "channel-1")
	require.NoError(t, err)
	same := "Setting goals is a journey, and every journey starts with a single step."
	seed := []struct{ role, content string }{
		{db.RoleUser, "tell me about goals"},
		{db.RoleAssistant, same},
		{db.RoleUser, "go on"},
		{db.RoleAssistant, same},
	}
	for _, m := range seed {
		_, err := store.AppendMessage(ctx, conversation.ID, m.role, m.content)
		require.NoError(t, err)
	}

	reply, err := service.HandleMessage(ctx, "u1", "channel-1", "and then?")
	require.NoError(t, err)
	assert.Equal(t, config.DefaultEchoRedirectReply, reply)
	assert.Zero(t, generator.calls)
}

func TestHandleMessagePersonalizationAndDigests(t *testing.T) {
	store := newTestStore(t)
	generator := &fakeGenerator{reply: "Good progress."}
	service := newTestService(t, store, generator, &fakeProvider{})
	ctx := context.Background()

	_, _, err := store.GetOrCreateUser(ctx, "u1")
	require.NoError(t, err)
	_, err = store.UpdateUserMemory(ctx, "u1", []string{"learn Go"}, map[string]string{"tone": "direct"})
	require.NoError(t, err)

	past, err := store.GetOrCreateConversation(ctx, "u1", "old-channel")
	require.NoError(t, err)
	_, err = store.AppendMessage(ctx, past.ID, db.RoleAssistant, "Last time we sketched a study plan.")
	require.NoError(t, err)

	_, err = service.HandleMessage(ctx, "u1", "new-channel", "Where were we?")
	require.NoError(t, err)

	require.Len(t, generator.prompts, 1)
	prompt := generator.prompts[0]
	assert.Contains(t, prompt, "- learn Go")
	assert.Contains(t, prompt, "- tone: direct")
	assert.Contains(t, prompt, "Last time we sketched a study plan.")
}

func TestHandleMessageSubsequentTurnWindow(t *testing.T) {
	store := newTestStore(t)
	generator := &fakeGenerator{reply: "Sounds good."}
	service := newTestService(t, store, generator, &fakeProvider{})
	ctx := context.Background()

	_, err := service.HandleMessage(ctx, "u1", "channel-1", "First message.")
	require.NoError(t, err)
	_, err = service.HandleMessage(ctx, "u1", "channel-1", "Second message.")
	require.NoError(t, err)

	require.Len(t, generator.prompts, 2)
	second := generator.prompts[1]
	assert.Contains(t, second, "user: First message.")
	assert.Contains(t, second, "assistant: Sounds good.")
	assert.Contains(t, second, "user: Second message.")
	assert.Equal(t, 1, countOccurrences(second, "Second message."))
}

func countOccurrences(s, substr string) int {
	count := 0
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			count++
		}
	}
	return count
}
