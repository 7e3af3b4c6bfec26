package coach

import (
	"strings"

	"github.com/mentorloop/coach-backend/pkg/db"
)

// LoopReason says which repetition check fired, if any.
type LoopReason int

const (
	LoopNone LoopReason = iota
	// LoopUserPhrase: the user is parroting the assistant's stock phrasing
	// back, a signal the assistant is stuck producing boilerplate.
	LoopUserPhrase
	// LoopAssistantEcho: the two most recent assistant replies are
	// (near-)duplicates, a signal the model is stuck.
	LoopAssistantEcho
)

func (r LoopReason) String() string {
	switch r {
	case LoopUserPhrase:
		return "user_phrase"
	case LoopAssistantEcho:
		return "assistant_echo"
	default:
		return "none"
	}
}

type DetectorConfig struct {
	// MinWindow is the minimum number of messages before any check runs.
	MinWindow int
	// MarkerPhrases are matched case-insensitively as substrings of user
	// messages.
	MarkerPhrases []string
	// MarkerThreshold is the number of distinct user messages a single
	// phrase must appear in to declare a loop.
	MarkerThreshold int
	// EchoPrefixLen is the shared-prefix length at which two long
	// consecutive assistant replies count as echoes.
	EchoPrefixLen int
}

// Detector decides whether a conversation should be redirected instead of
// sent to the language model. It is pure over the window it is given.
type Detector struct {
	cfg DetectorConfig
}

func NewDetector(cfg DetectorConfig) *Detector {
	return &Detector{cfg: cfg}
}

// Detect inspects the window of most recent messages (newest first) and
// returns the first loop reason that fires.
func (d *Detector) Detect(window []db.Message) LoopReason {
	if len(window) < d.cfg.MinWindow {
		return LoopNone
	}
	if d.userPhraseLoop(window) {
		return LoopUserPhrase
	}
	if d.assistantEchoLoop(window) {
		return LoopAssistantEcho
	}
	return LoopNone
}

func (d *Detector) userPhraseLoop(window []db.Message) bool {
	for _, phrase := range d.cfg.MarkerPhrases {
		needle := strings.ToLower(phrase)
		matches := 0
		for _, message := range window {
			if message.Role != db.RoleUser {
				continue
			}
			if strings.Contains(strings.ToLower(message.Content), needle) {
				matches++
			}
		}
		if matches >= d.cfg.MarkerThreshold {
			return true
		}
	}
	return false
}

func (d *Detector) assistantEchoLoop(window []db.Message) bool {
	var recent []string
	for _, message := range window {
		if message.Role == db.RoleAssistant {
			recent = append(recent, message.Content)
			if len(recent) == 2 {
				break
			}
		}
	}
	if len(recent) < 2 {
		return false
	}

	if recent[0] == recent[1] {
		return true
	}

	n := d.cfg.EchoPrefixLen
	return len(recent[0]) >= n && len(recent[1]) >= n && recent[0][:n] == recent[1][:n]
}
