package coach

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mentorloop/coach-backend/pkg/config"
	"github.com/mentorloop/coach-backend/pkg/db"
)

func testDetector() *Detector {
	return NewDetector(DetectorConfig{
		MinWindow:       4,
		MarkerPhrases:   config.DefaultMarkerPhrases,
		MarkerThreshold: 2,
		EchoPrefixLen:   100,
	})
}

func msg(role, content string) db.Message {
	return db.Message{Role: role, Content: content}
}

func TestDetectUserPhraseLoop(t *testing.T) {
	tests := []struct {
		name   string
		window []db.Message
		want   LoopReason
	}{
		{
			name: "same marker phrase in two user messages",
			window: []db.Message{
				msg(db.RoleUser, "I know you're my AI coach, right?"),
				msg(db.RoleAssistant, "Tell me more about your goals."),
				msg(db.RoleUser, "You said you're an ai COACH before."),
				msg(db.RoleAssistant, "What would you like to explore?"),
			},
			want: LoopUserPhrase,
		},
		{
			name: "each marker in at most one user message",
			window: []db.Message{
				msg(db.RoleUser, "I'd like to dive into algorithms."),
				msg(db.RoleAssistant, "I'm here to help and support you today."),
				msg(db.RoleUser, "Let's focus on sorting first."),
				msg(db.RoleAssistant, "I'm here to help, let's dive into it."),
			},
			want: LoopNone,
		},
		{
			name: "markers only in assistant messages do not trigger",
			window: []db.Message{
				msg(db.RoleUser, "sorting please"),
				msg(db.RoleAssistant, "I'm here to help you break the cycle."),
				msg(db.RoleUser, "ok"),
				msg(db.RoleAssistant, "I'm here to help, what specific part?"),
			},
			want: LoopNone,
		},
		{
			name: "window below minimum never triggers",
			window: []db.Message{
				msg(db.RoleUser, "my AI coach"),
				msg(db.RoleUser, "my AI coach again"),
			},
			want: LoopNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, testDetector().Detect(tt.window))
		})
	}
}

func TestDetectAssistantEchoLoop(t *testing.T) {
	long := strings.Repeat("a", 100)

	tests := []struct {
		name   string
		window []db.Message
		want   LoopReason
	}{
		{
			name: "identical consecutive assistant replies",
			window: []db.Message{
				msg(db.RoleAssistant, "Let me repeat the exact same thing."),
				msg(db.RoleUser, "hm"),
				msg(db.RoleAssistant, "Let me repeat the exact same thing."),
				msg(db.RoleUser, "hello"),
			},
			want: LoopAssistantEcho,
		},
		{
			name: "long replies sharing the 100-char prefix",
			window: []db.Message{
				msg(db.RoleAssistant, long+" first tail"),
				msg(db.RoleUser, "hm"),
				msg(db.RoleAssistant, long+" second tail"),
				msg(db.RoleUser, "hello"),
			},
			want: LoopAssistantEcho,
		},
		{
			name: "long replies diverging before the prefix length",
			window: []db.Message{
				msg(db.RoleAssistant, "A"+long),
				msg(db.RoleUser, "hm"),
				msg(db.RoleAssistant, "B"+long),
				msg(db.RoleUser, "hello"),
			},
			want: LoopNone,
		},
		{
			name: "short distinct replies",
			window: []db.Message{
				msg(db.RoleAssistant, "one"),
				msg(db.RoleUser, "hm"),
				msg(db.RoleAssistant, "two"),
				msg(db.RoleUser, "hello"),
			},
			want: LoopNone,
		},
		{
			name: "single assistant message cannot echo",
			window: []db.Message{
				msg(db.RoleAssistant, "only reply"),
				msg(db.RoleUser, "a"),
				msg(db.RoleUser, "b"),
				msg(db.RoleUser, "c"),
			},
			want: LoopNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, testDetector().Detect(tt.window))
		})
	}
}
