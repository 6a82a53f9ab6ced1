package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/guesstheplant/quiz-engine/internal/models"
)

// Session handlers — persisted play sessions and round results.
// All of them require a configured database.

func (s *Server) requireRepo(w http.ResponseWriter) bool {
	if s.repo == nil {
		respondError(w, http.StatusServiceUnavailable, "persistence_disabled", "result persistence is not configured")
		return false
	}
	return true
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	if !s.requireRepo(w) {
		return
	}

	var req models.CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if req.PlayerID == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "player_id is required")
		return
	}

	if req.Mode == "" {
		req.Mode = models.ModeClassic
	}
	if req.Mode != models.ModeClassic && req.Mode != models.ModeEndless {
		respondError(w, http.StatusBadRequest, "validation_error", "mode must be classic or endless")
		return
	}

	session := &models.PlaySession{
		ID:        uuid.NewString(),
		PlayerID:  req.PlayerID,
		Mode:      req.Mode,
		Status:    models.SessionActive,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.repo.CreateSession(r.Context(), session); err != nil {
		slog.Error("failed to create session", "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to create session")
		return
	}

	respondJSON(w, http.StatusCreated, session)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	if !s.requireRepo(w) {
		return
	}

	playerID := r.URL.Query().Get("player_id")
	limit := 50
	offset := 0

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil && o >= 0 {
			offset = o
		}
	}

	sessions, err := s.repo.ListSessions(r.Context(), playerID, limit, offset)
	if err != nil {
		slog.Error("failed to list sessions", "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to list sessions")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"sessions": sessions,
		"total":    len(sessions),
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	if !s.requireRepo(w) {
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "session id is required")
		return
	}

	session, err := s.repo.GetSession(r.Context(), id)
	if err != nil {
		slog.Error("failed to get session", "error", err, "id", id)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to get session")
		return
	}
	if session == nil {
		respondError(w, http.StatusNotFound, "not_found", "session not found")
		return
	}

	respondJSON(w, http.StatusOK, session)
}

func (s *Server) handleRecordResult(w http.ResponseWriter, r *http.Request) {
	if !s.requireRepo(w) {
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "session id is required")
		return
	}

	var req models.RecordResultRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if req.RoundIndex < 0 {
		respondError(w, http.StatusBadRequest, "validation_error", "round_index must not be negative")
		return
	}
	if _, ok := models.ParseDifficulty(string(req.Difficulty)); !ok {
		respondError(w, http.StatusBadRequest, "validation_error", "unknown difficulty: "+string(req.Difficulty))
		return
	}

	session, err := s.repo.GetSession(r.Context(), id)
	if err != nil {
		slog.Error("failed to get session", "error", err, "id", id)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to get session")
		return
	}
	if session == nil {
		respondError(w, http.StatusNotFound, "not_found", "session not found")
		return
	}
	if session.IsTerminal() {
		respondError(w, http.StatusConflict, "session_finished", "session is already finished")
		return
	}

	result := &models.RoundResult{
		ID:          uuid.NewString(),
		SessionID:   session.ID,
		PlayerID:    session.PlayerID,
		RoundIndex:  req.RoundIndex,
		Difficulty:  req.Difficulty,
		Score:       req.Score,
		Total:       req.Total,
		MistakeIDs:  req.MistakeIDs,
		CompletedAt: time.Now().UTC(),
	}

	if err := s.repo.RecordRoundResult(r.Context(), result); err != nil {
		slog.Error("failed to record round result", "error", err, "session_id", id)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to record round result")
		return
	}

	// Keep the session row current with the latest round
	session.Score += req.Score
	session.RoundIndex = req.RoundIndex + 1
	if session.Mode == models.ModeClassic && session.RoundIndex >= len(s.rounds) {
		session.Status = models.SessionComplete
		now := time.Now().UTC()
		session.FinishedAt = &now
	}
	if session.Mode == models.ModeEndless && session.Score < 0 {
		session.Status = models.SessionFailed
		now := time.Now().UTC()
		session.FinishedAt = &now
	}

	if err := s.repo.UpdateSession(r.Context(), session); err != nil {
		slog.Error("failed to update session", "error", err, "id", id)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to update session")
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"result":  result,
		"session": session,
	})
}

func (s *Server) handleListResults(w http.ResponseWriter, r *http.Request) {
	if !s.requireRepo(w) {
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "session id is required")
		return
	}

	results, err := s.repo.ListRoundResults(r.Context(), id)
	if err != nil {
		slog.Error("failed to list round results", "error", err, "session_id", id)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to list round results")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"results": results,
		"total":   len(results),
	})
}

func (s *Server) handlePlayerSummary(w http.ResponseWriter, r *http.Request) {
	if !s.requireRepo(w) {
		return
	}

	playerID := chi.URLParam(r, "id")
	if playerID == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "player id is required")
		return
	}

	summary, err := s.repo.GetPlayerSummary(r.Context(), playerID)
	if err != nil {
		slog.Error("failed to get player summary", "error", err, "player_id", playerID)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to get player summary")
		return
	}

	respondJSON(w, http.StatusOK, summary)
}
