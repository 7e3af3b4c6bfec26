package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/mentorloop/coach-backend/pkg/ai"
	"github.com/mentorloop/coach-backend/pkg/bootstrap"
	"github.com/mentorloop/coach-backend/pkg/chat"
	"github.com/mentorloop/coach-backend/pkg/coach"
	"github.com/mentorloop/coach-backend/pkg/config"
	"github.com/mentorloop/coach-backend/pkg/db"
	"github.com/mentorloop/coach-backend/pkg/logging"
	"github.com/mentorloop/coach-backend/pkg/server"
)

func main() {
	logger := bootstrap.NewLogger()
	logFactory := logging.NewFactory(logger)

	envs, _ := config.LoadConfig(true)
	logger.Info("Using database", "driver", envs.DBDriver, "dsn", envs.DBDSN)

	if envs.DBDriver == "sqlite3" {
		if err := os.MkdirAll(filepath.Dir(envs.DBDSN), 0o755); err != nil {
			logger.Fatal("Unable to create database directory", "error", err)
		}
	}

	store, err := db.NewStore(envs.DBDriver, envs.DBDSN, logFactory.ForDatabase("store"))
	if err != nil {
		logger.Fatal("Unable to open database", "error", err)
	}
	defer func() { _ = store.Close() }()

	var nc *nats.Conn
	if envs.NatsEmbedded && envs.NatsURL == "" {
		natsServer, err := bootstrap.StartEmbeddedNATSServer(logger)
		if err != nil {
			logger.Warn("Embedded NATS server failed to start, turn events disabled", "error", err)
		} else {
			defer natsServer.Shutdown()
			nc, err = bootstrap.NewNatsClient(natsServer.ClientURL())
			if err != nil {
				logger.Warn("NATS connect failed, turn events disabled", "error", err)
			}
		}
	} else if envs.NatsURL != "" {
		nc, err = bootstrap.NewNatsClient(envs.NatsURL)
		if err != nil {
			logger.Warn("NATS connect failed, turn events disabled", "url", envs.NatsURL, "error", err)
		}
	}
	if nc != nil {
		defer nc.Close()
	}

	var provider chat.Provider = chat.DisabledProvider{}
	if envs.StreamAPIKey != "" && envs.StreamAPISecret != "" {
		streamProvider, err := chat.NewStreamProvider(envs.StreamAPIKey, envs.StreamAPISecret, logFactory.ForClient("stream"))
		if err != nil {
			logger.Fatal("Unable to create chat provider", "error", err)
		}
		provider = streamProvider
	} else {
		logger.Warn("Stream credentials not set, chat provisioning endpoints will reject requests")
	}

	var generator ai.Generator = ai.DisabledGenerator{}
	switch envs.AIBackend {
	case "gemini":
		if envs.GeminiAPIKey == "" {
			logger.Warn("GEMINI_API_KEY not set, replies fall back to the canned response")
			break
		}
		gemini, err := ai.NewGeminiGenerator(context.Background(), envs.GeminiAPIKey, envs.GeminiModel, logFactory.ForClient("gemini"))
		if err != nil {
			logger.Fatal("Unable to create Gemini client", "error", err)
		}
		generator = gemini
	case "openai":
		if envs.CompletionsAPIKey == "" {
			logger.Warn("COMPLETIONS_API_KEY not set, replies fall back to the canned response")
			break
		}
		generator = ai.NewOpenAIGenerator(envs.CompletionsAPIKey, envs.CompletionsAPIURL, envs.CompletionsModel, logFactory.ForClient("openai"))
	default:
		logger.Warn("Unknown AI backend, replies fall back to the canned response", "backend", envs.AIBackend)
	}

	detector := coach.NewDetector(coach.DetectorConfig{
		MinWindow:       envs.DetectorMinWindow,
		MarkerPhrases:   envs.MarkerPhrases,
		MarkerThreshold: envs.MarkerThreshold,
		EchoPrefixLen:   envs.EchoPrefixLen,
	})

	coachService := coach.NewService(store, generator, provider, detector, coach.Config{
		ContextWindowSize:  envs.ContextWindowSize,
		DigestLimit:        envs.DigestLimit,
		DetectorWindowSize: envs.DetectorWindowSize,
		Generate: ai.GenerateParams{
			MaxOutputTokens: envs.MaxOutputTokens,
			Temperature:     envs.Temperature,
			TopP:            envs.TopP,
		},
		LoopRedirectReply: envs.LoopRedirectReply,
		EchoRedirectReply: envs.EchoRedirectReply,
		FallbackReply:     envs.FallbackReply,
	}, nc, logFactory.ForService("coach"))

	httpServer := &http.Server{
		Addr:    ":" + envs.Port,
		Handler: server.New(store, coachService, provider, envs.AICoachID, envs.AICoachName, logFactory.ForServer("http")).Router(),
	}

	// Serve in a goroutine so the main goroutine can wait on signals.
	go func() {
		logger.Info("Starting HTTP server", "port", envs.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", "error", err)
		}
	}()

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)
	<-signalChan

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown", "error", err)
	}
}
