package coach

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/nats-io/nats.go"

	"github.com/mentorloop/coach-backend/pkg/ai"
	"github.com/mentorloop/coach-backend/pkg/chat"
	"github.com/mentorloop/coach-backend/pkg/db"
	"github.com/mentorloop/coach-backend/pkg/prompts"
)

// Store is the persistence surface the coaching turn consumes.
type Store interface {
	GetUser(ctx context.Context, id string) (*db.User, error)
	GetOrCreateUser(ctx context.Context, id string) (*db.User, bool, error)
	GetOrCreateConversation(ctx context.Context, userID, channelID string) (*db.Conversation, error)
	AppendMessage(ctx context.Context, conversationID, role, content string) (*db.Message, error)
	RecentMessages(ctx context.Context, conversationID string, limit int) ([]db.Message, error)
	LastAssistantMessagePerOtherConversation(ctx context.Context, userID, excludeConversationID string, conversationLimit int) ([]db.Message, error)
}

type Config struct {
	ContextWindowSize  int
	DigestLimit        int
	DetectorWindowSize int

	Generate ai.GenerateParams

	LoopRedirectReply string
	EchoRedirectReply string
	FallbackReply     string
}

// Service orchestrates one coaching turn per inbound message: resolve user
// and conversation, short-circuit detected loops, otherwise compose a prompt,
// call the model, and persist both turns. Every branch is terminal and every
// branch yields a reply.
type Service struct {
	store     Store
	generator ai.Generator
	provider  chat.Provider
	detector  *Detector
	assembler *Assembler
	cfg       Config
	nc        *nats.Conn
	logger    *log.Logger
}

func NewService(store Store, generator ai.Generator, provider chat.Provider, detector *Detector, cfg Config, nc *nats.Conn, logger *log.Logger) *Service {
	return &Service{
		store:     store,
		generator: generator,
		provider:  provider,
		detector:  detector,
		assembler: NewAssembler(store, cfg.ContextWindowSize, cfg.DigestLimit),
		cfg:       cfg,
		nc:        nc,
		logger:    logger,
	}
}

// HandleMessage runs the full coaching turn and returns the reply text. An
// error return means persistence failed; model failures never propagate, the
// caller always gets a reply.
func (s *Service) HandleMessage(ctx context.Context, userID, channelID, message string) (string, error) {
	user, created, err := s.store.GetOrCreateUser(ctx, userID)
	if err != nil {
		return "", err
	}
	if created {
		if err := s.provider.UpsertUser(ctx, user.ID, user.Name); err != nil {
			// Identity sync is best-effort inside a turn; the reply still
			// has to go out.
			s.logger.Warn("Chat identity upsert failed", "user_id", user.ID, "error", err)
		}
	}

	conversation, err := s.store.GetOrCreateConversation(ctx, userID, channelID)
	if err != nil {
		return "", err
	}

	window, err := s.store.RecentMessages(ctx, conversation.ID, s.cfg.DetectorWindowSize)
	if err != nil {
		return "", err
	}

	if reason := s.detector.Detect(window); reason != LoopNone {
		reply := s.redirectReply(reason)
		s.logger.Info("Conversation loop detected, skipping model call",
			"reason", reason.String(), "conversation_id", conversation.ID)
		if err := s.persistTurns(ctx, conversation, userID, channelID, message, reply); err != nil {
			return "", err
		}
		return reply, nil
	}

	// Context is assembled before the inbound turn is persisted so the
	// window and the new message each enter the prompt exactly once.
	assembled, err := s.assembler.Build(ctx, userID, conversation.ID)
	if err != nil {
		return "", err
	}

	if _, err := s.store.AppendMessage(ctx, conversation.ID, db.RoleUser, message); err != nil {
		return "", err
	}

	prompt, err := prompts.BuildCoachSystemPrompt(prompts.CoachSystemPrompt{
		Goals:       assembled.Goals,
		Preferences: assembled.Preferences,
		PastDigests: assembled.PastDigests,
		RecentTurns: assembled.RecentTurns,
		Message:     message,
	})
	if err != nil {
		return "", err
	}

	var reply string
	text, err := s.generator.Generate(ctx, prompt, s.cfg.Generate)
	if err != nil {
		// Masked: the user-visible contract is "always get a reply".
		s.logger.Error("Model call failed, substituting fallback reply",
			"conversation_id", conversation.ID, "error", err)
		reply = s.cfg.FallbackReply
	} else {
		reply = PostProcess(text)
	}

	if _, err := s.store.AppendMessage(ctx, conversation.ID, db.RoleAssistant, reply); err != nil {
		return "", err
	}
	s.publishTurn(channelID, conversation.ID, userID, db.RoleAssistant, reply)

	return reply, nil
}

func (s *Service) redirectReply(reason LoopReason) string {
	if reason == LoopAssistantEcho {
		return s.cfg.EchoRedirectReply
	}
	return s.cfg.LoopRedirectReply
}

// persistTurns appends the user turn and the fixed redirect as the assistant
// turn, preserving conversation continuity without a model call.
func (s *Service) persistTurns(ctx context.Context, conversation *db.Conversation, userID, channelID, message, reply string) error {
	if _, err := s.store.AppendMessage(ctx, conversation.ID, db.RoleUser, message); err != nil {
		return err
	}
	if _, err := s.store.AppendMessage(ctx, conversation.ID, db.RoleAssistant, reply); err != nil {
		return err
	}
	s.publishTurn(channelID, conversation.ID, userID, db.RoleAssistant, reply)
	return nil
}
