package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/guesstheplant/quiz-engine/internal/apperr"
)

// Response helpers

type apiResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *apiError   `json:"error,omitempty"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := apiResponse{
		Success: status >= 200 && status < 300,
		Data:    data,
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := apiResponse{
		Success: false,
		Error: &apiError{
			Code:    code,
			Message: message,
		},
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

// respondAppError maps a classified game error to an HTTP response,
// keeping the user-facing title/description split intact.
func respondAppError(w http.ResponseWriter, err error) {
	p := apperr.Present(err)

	status := http.StatusInternalServerError
	switch apperr.KindOf(err) {
	case apperr.KindGameLogic:
		status = http.StatusConflict
	case apperr.KindReferential, apperr.KindDataLoading:
		status = http.StatusUnprocessableEntity
	case apperr.KindStorage:
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := apiResponse{
		Success: false,
		Error: &apiError{
			Code:    string(apperr.KindOf(err)),
			Message: p.Title,
			Details: p.Description,
		},
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

// Health handlers

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	// An empty catalog means the data directory never loaded
	if len(s.loader.Catalog().Plants) == 0 {
		respondError(w, http.StatusServiceUnavailable, "not_ready", "catalog not loaded")
		return
	}

	if s.repo != nil {
		if err := s.repo.Ping(r.Context()); err != nil {
			respondError(w, http.StatusServiceUnavailable, "not_ready", "database unreachable")
			return
		}
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}
