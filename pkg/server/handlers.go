package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi"

	"github.com/mentorloop/coach-backend/pkg/db"
)

type createUserRequest struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

type chatTokenRequest struct {
	UserID string `json:"userId"`
}

type createChannelRequest struct {
	LearnerID string `json:"learnerId"`
	CoachID   string `json:"coachId"`
}

type chatMessageRequest struct {
	UserID    string `json:"userId"`
	Message   string `json:"message"`
	ChannelID string `json:"channelId"`
}

// updateMemoryRequest keeps the deltas raw so a malformed field can be
// skipped without rejecting the whole payload.
type updateMemoryRequest struct {
	UserID           string          `json:"userId"`
	GoalsDelta       json.RawMessage `json:"goalsDelta"`
	PreferencesDelta json.RawMessage `json:"preferencesDelta"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "OK",
		"message": "AI Coach Backend is running",
	})
}

func (s *Server) handleFavicon(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "No favicon available"})
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ID == "" {
		s.writeError(w, http.StatusBadRequest, "id is required")
		return
	}
	if req.Role == "" {
		req.Role = db.UserRoleLearner
	}
	if req.Role != db.UserRoleLearner && req.Role != db.UserRoleCoach {
		s.writeError(w, http.StatusBadRequest, "role must be learner or coach")
		return
	}

	// The provider only receives identity fields; the role stays local.
	if err := s.provider.UpsertUser(r.Context(), req.ID, req.Name); err != nil {
		s.logger.Error("Error creating user", "user_id", req.ID, "error", err)
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := s.store.UpsertUser(r.Context(), req.ID, req.Name, req.Role); err != nil {
		s.logger.Error("Error persisting user", "user_id", req.ID, "error", err)
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{"message": "User created successfully"})
}

func (s *Server) handleChatToken(w http.ResponseWriter, r *http.Request) {
	var req chatTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		s.writeError(w, http.StatusBadRequest, "userId is required")
		return
	}

	user, created, err := s.store.GetOrCreateUser(r.Context(), req.UserID)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if created {
		if err := s.provider.UpsertUser(r.Context(), user.ID, user.Name); err != nil {
			s.logger.Warn("Chat identity upsert failed", "user_id", user.ID, "error", err)
		}
	}

	token, err := s.provider.CreateToken(req.UserID)
	if err != nil {
		s.logger.Error("Error creating chat token", "user_id", req.UserID, "error", err)
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (s *Server) handleCreateChannel(w http.ResponseWriter, r *http.Request) {
	var req createChannelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.LearnerID == "" || req.CoachID == "" {
		s.writeError(w, http.StatusBadRequest, "learnerId and coachId are required")
		return
	}
	ctx := r.Context()

	// The reserved coach id provisions the built-in AI coach identity; any
	// other coach id gets a regular coach user if it doesn't exist yet.
	coachName := ""
	if req.CoachID == s.aiCoachID {
		coachName = s.aiCoachName
	}
	if _, err := s.store.GetUser(ctx, req.CoachID); errors.Is(err, db.ErrNotFound) || req.CoachID == s.aiCoachID {
		coachUser, err := s.store.UpsertUser(ctx, req.CoachID, coachName, db.UserRoleCoach)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := s.provider.UpsertUser(ctx, coachUser.ID, coachUser.Name); err != nil {
			s.logger.Error("Error provisioning coach identity", "coach_id", req.CoachID, "error", err)
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	} else if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	learner, created, err := s.store.GetOrCreateUser(ctx, req.LearnerID)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if created {
		if err := s.provider.UpsertUser(ctx, learner.ID, learner.Name); err != nil {
			s.logger.Warn("Chat identity upsert failed", "user_id", learner.ID, "error", err)
		}
	}

	channelID, err := s.provider.CreateChannel(ctx, req.LearnerID, req.CoachID)
	if err != nil {
		s.logger.Error("Error creating channel", "learner_id", req.LearnerID, "coach_id", req.CoachID, "error", err)
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{"channelId": channelID})
}

func (s *Server) handleChatMessage(w http.ResponseWriter, r *http.Request) {
	var req chatMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" || req.Message == "" || req.ChannelID == "" {
		s.writeError(w, http.StatusBadRequest, "userId, message and channelId are required")
		return
	}

	reply, err := s.coach.HandleMessage(r.Context(), req.UserID, req.ChannelID, req.Message)
	if err != nil {
		s.logger.Error("Error generating AI response", "user_id", req.UserID, "error", err)
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{"aiResponse": reply})
}

func (s *Server) handleUpdateMemory(w http.ResponseWriter, r *http.Request) {
	var req updateMemoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		s.writeError(w, http.StatusBadRequest, "userId is required")
		return
	}
	ctx := r.Context()

	if _, err := s.store.GetUser(ctx, req.UserID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "User not found")
			return
		}
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Wrong-shape fields are skipped individually, never an aborting error.
	var goals []string
	if len(req.GoalsDelta) > 0 {
		if err := json.Unmarshal(req.GoalsDelta, &goals); err != nil {
			s.logger.Warn("Skipping malformed goals delta", "user_id", req.UserID, "error", err)
			goals = nil
		}
	}
	var preferences map[string]string
	if len(req.PreferencesDelta) > 0 {
		if err := json.Unmarshal(req.PreferencesDelta, &preferences); err != nil {
			s.logger.Warn("Skipping malformed preferences delta", "user_id", req.UserID, "error", err)
			preferences = nil
		}
	}

	if _, err := s.store.UpdateUserMemory(ctx, req.UserID, goals, preferences); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{"message": "Memory updated successfully"})
}

func (s *Server) handleGetMemory(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	ctx := r.Context()

	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "User not found")
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	history, err := s.store.ConversationHistory(ctx, userID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"goals":               user.Goals,
		"preferences":         user.Preferences,
		"conversationHistory": history,
	})
}
