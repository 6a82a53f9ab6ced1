package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/guesstheplant/quiz-engine/internal/game"
	"github.com/guesstheplant/quiz-engine/internal/models"
)

// Preference handlers — player-scoped settings stored in the key-value
// store (interface language, plant-name language, flashcard selection).

type preferencesPayload struct {
	InterfaceLanguage      *string     `json:"interface_language,omitempty"`
	PlantLanguage          *string     `json:"plant_language,omitempty"`
	MemorizationCollection []models.ID `json:"memorization_collection,omitempty"`
	MemorizationFilter     *string     `json:"memorization_filter,omitempty"`
}

func (s *Server) handleGetPreferences(w http.ResponseWriter, r *http.Request) {
	prefs := game.NewPreferences(s.kv)
	ctx := r.Context()

	iface, err := prefs.InterfaceLanguage(ctx)
	if err != nil {
		slog.Error("failed to read preferences", "error", err)
		respondAppError(w, err)
		return
	}
	plant, err := prefs.PlantLanguage(ctx)
	if err != nil {
		respondAppError(w, err)
		return
	}
	collection, err := prefs.MemorizationCollection(ctx)
	if err != nil {
		respondAppError(w, err)
		return
	}
	filter, err := prefs.MemorizationFilter(ctx)
	if err != nil {
		respondAppError(w, err)
		return
	}

	if iface == "" {
		iface = s.gameCfg.DefaultLanguage
	}
	if plant == "" {
		plant = s.gameCfg.DefaultLanguage
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"interface_language":      iface,
		"plant_language":          plant,
		"memorization_collection": collection,
		"memorization_filter":     filter,
	})
}

func (s *Server) handleUpdatePreferences(w http.ResponseWriter, r *http.Request) {
	var req preferencesPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	prefs := game.NewPreferences(s.kv)
	ctx := r.Context()

	if req.InterfaceLanguage != nil {
		if err := prefs.SetInterfaceLanguage(ctx, *req.InterfaceLanguage); err != nil {
			respondAppError(w, err)
			return
		}
	}
	if req.PlantLanguage != nil {
		if err := prefs.SetPlantLanguage(ctx, *req.PlantLanguage); err != nil {
			respondAppError(w, err)
			return
		}
	}
	if req.MemorizationCollection != nil {
		if err := prefs.SetMemorizationCollection(ctx, req.MemorizationCollection); err != nil {
			respondAppError(w, err)
			return
		}
	}
	if req.MemorizationFilter != nil {
		if err := prefs.SetMemorizationFilter(ctx, *req.MemorizationFilter); err != nil {
			respondAppError(w, err)
			return
		}
	}

	s.handleGetPreferences(w, r)
}
