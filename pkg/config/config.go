package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
)

// Defaults mirror the constants the service shipped with before they were
// made configurable. Redirect and fallback strings live here rather than in
// code so they can be localized per deployment.
const (
	DefaultGeminiModel = "gemini-2.0-flash"

	DefaultLoopRedirectReply = "I've noticed we seem to be in a conversation loop. " +
		"Let's talk about something specific. Tell me about your day or a specific topic " +
		"you'd like to learn about. For example, you could say 'I want to learn Python' " +
		"or 'Help me understand machine learning'."

	DefaultEchoRedirectReply = "I realize my last couple of replies covered the same ground. " +
		"Let's take this in a new direction — tell me one concrete thing you'd like to work " +
		"on today, and we'll start from there."

	DefaultFallbackReply = "I'm having trouble putting together a response right now. " +
		"Give me a moment and send your message again — in the meantime, feel free to tell " +
		"me more about what you're working toward."
)

// DefaultMarkerPhrases are stock assistant phrasings. A learner echoing them
// back is the signature of a stalled conversation.
var DefaultMarkerPhrases = []string{
	"AI coach",
	"support you",
	"dive into",
	"let's focus",
	"break the cycle",
	"What specific",
	"what you're hoping",
	"I'm here to help",
}

type Config struct {
	Port string

	DBDriver string
	DBDSN    string

	StreamAPIKey    string
	StreamAPISecret string

	AIBackend         string
	GeminiAPIKey      string
	GeminiModel       string
	CompletionsAPIURL string
	CompletionsAPIKey string
	CompletionsModel  string

	NatsEmbedded bool
	NatsURL      string

	AICoachID   string
	AICoachName string

	ContextWindowSize int
	DigestLimit       int

	DetectorWindowSize int
	DetectorMinWindow  int
	MarkerPhrases      []string
	MarkerThreshold    int
	EchoPrefixLen      int

	MaxOutputTokens int
	Temperature     float64
	TopP            float64

	LoopRedirectReply string
	EchoRedirectReply string
	FallbackReply     string
}

func getEnv(key, defaultValue string, printEnv bool) string {
	logger := log.Default()
	value := os.Getenv(key)
	if printEnv {
		logger.Info("Env", "key", key, "value", value)
	}
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int, printEnv bool) int {
	value := getEnv(key, "", printEnv)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Default().Warn("Ignoring non-integer env value", "key", key, "value", value)
		return defaultValue
	}
	return n
}

func getEnvFloat(key string, defaultValue float64, printEnv bool) float64 {
	value := getEnv(key, "", printEnv)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		log.Default().Warn("Ignoring non-numeric env value", "key", key, "value", value)
		return defaultValue
	}
	return f
}

func getEnvBool(key string, defaultValue bool, printEnv bool) bool {
	value := getEnv(key, "", printEnv)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		log.Default().Warn("Ignoring non-boolean env value", "key", key, "value", value)
		return defaultValue
	}
	return b
}

// getEnvList splits on "|" so phrases may contain commas.
func getEnvList(key string, defaultValue []string, printEnv bool) []string {
	value := getEnv(key, "", printEnv)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, "|")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

func LoadConfig(printEnv bool) (*Config, error) {
	if envFile := os.Getenv("COACH_ENV_FILE"); envFile != "" {
		_ = godotenv.Load(envFile)
	} else {
		_ = godotenv.Load()
	}

	conf := &Config{
		Port: getEnv("PORT", "8080", printEnv),

		DBDriver: getEnv("DB_DRIVER", "sqlite3", printEnv),
		DBDSN:    getEnv("DB_DSN", "./output/coach.db", printEnv),

		StreamAPIKey:    getEnv("STREAM_API_KEY", "", printEnv),
		StreamAPISecret: getEnv("STREAM_API_SECRET", "", false),

		AIBackend:         getEnv("AI_BACKEND", "gemini", printEnv),
		GeminiAPIKey:      getEnv("GEMINI_API_KEY", "", false),
		GeminiModel:       getEnv("GEMINI_MODEL", DefaultGeminiModel, printEnv),
		CompletionsAPIURL: getEnv("COMPLETIONS_API_URL", "https://api.openai.com/v1", printEnv),
		CompletionsAPIKey: getEnv("COMPLETIONS_API_KEY", "", false),
		CompletionsModel:  getEnv("COMPLETIONS_MODEL", "gpt-4.1-mini", printEnv),

		NatsEmbedded: getEnvBool("NATS_EMBEDDED", true, printEnv),
		NatsURL:      getEnv("NATS_URL", "", printEnv),

		AICoachID:   getEnv("AI_COACH_ID", "ai-coach", printEnv),
		AICoachName: getEnv("AI_COACH_NAME", "AI Coach", printEnv),

		ContextWindowSize: getEnvInt("CONTEXT_WINDOW_SIZE", 5, printEnv),
		DigestLimit:       getEnvInt("DIGEST_LIMIT", 3, printEnv),

		DetectorWindowSize: getEnvInt("LOOP_WINDOW_SIZE", 6, printEnv),
		DetectorMinWindow:  getEnvInt("LOOP_MIN_WINDOW", 4, printEnv),
		MarkerPhrases:      getEnvList("LOOP_MARKER_PHRASES", DefaultMarkerPhrases, printEnv),
		MarkerThreshold:    getEnvInt("LOOP_MARKER_THRESHOLD", 2, printEnv),
		EchoPrefixLen:      getEnvInt("LOOP_ECHO_PREFIX_LEN", 100, printEnv),

		MaxOutputTokens: getEnvInt("MAX_OUTPUT_TOKENS", 300, printEnv),
		Temperature:     getEnvFloat("TEMPERATURE", 0.7, printEnv),
		TopP:            getEnvFloat("TOP_P", 0.9, printEnv),

		LoopRedirectReply: getEnv("LOOP_REDIRECT_REPLY", DefaultLoopRedirectReply, false),
		EchoRedirectReply: getEnv("ECHO_REDIRECT_REPLY", DefaultEchoRedirectReply, false),
		FallbackReply:     getEnv("FALLBACK_REPLY", DefaultFallbackReply, false),
	}

	return conf, nil
}
