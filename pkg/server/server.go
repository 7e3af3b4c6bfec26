// Package server exposes the HTTP surface: user registration, chat token and
// channel provisioning, the coaching message endpoint, and memory access.
package server

import (
	"encoding/json"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi"
	"github.com/rs/cors"

	"github.com/mentorloop/coach-backend/pkg/chat"
	"github.com/mentorloop/coach-backend/pkg/coach"
	"github.com/mentorloop/coach-backend/pkg/db"
)

type Server struct {
	store    *db.Store
	coach    *coach.Service
	provider chat.Provider
	logger   *log.Logger

	aiCoachID   string
	aiCoachName string
}

func New(store *db.Store, coachService *coach.Service, provider chat.Provider, aiCoachID, aiCoachName string, logger *log.Logger) *Server {
	return &Server{
		store:       store,
		coach:       coachService,
		provider:    provider,
		logger:      logger,
		aiCoachID:   aiCoachID,
		aiCoachName: aiCoachName,
	}
}

// Router builds the chi mux with permissive CORS, matching the original
// deployment where the web client is served from a different origin.
func (s *Server) Router() *chi.Mux {
	router := chi.NewRouter()
	router.Use(cors.New(cors.Options{
		AllowCredentials: true,
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "Accept"},
		Debug:            false,
	}).Handler)

	router.Get("/", s.handleHealth)
	router.Get("/favicon.ico", s.handleFavicon)
	router.Post("/users", s.handleCreateUser)
	router.Post("/chat/token", s.handleChatToken)
	router.Post("/chat/channel", s.handleCreateChannel)
	router.Post("/chat/message", s.handleChatMessage)
	router.Post("/memory", s.handleUpdateMemory)
	router.Get("/memory/{userID}", s.handleGetMemory)

	return router
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("Failed to encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"detail": message})
}
