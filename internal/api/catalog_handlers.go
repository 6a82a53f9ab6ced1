package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/guesstheplant/quiz-engine/internal/catalog"
	"github.com/guesstheplant/quiz-engine/internal/game"
	"github.com/guesstheplant/quiz-engine/internal/models"
)

// Catalog handlers — read-only views over the derived game data

func (s *Server) handleListSpecies(w http.ResponseWriter, r *http.Request) {
	c := s.loader.Catalog()

	ids := catalog.SortedSpeciesIDs(c.SpeciesByID)
	species := make([]*models.Species, 0, len(ids))
	for _, id := range ids {
		species = append(species, c.SpeciesByID[id])
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"species": species,
		"total":   len(species),
	})
}

func (s *Server) handleGetSpecies(w http.ResponseWriter, r *http.Request) {
	id := models.NormalizeID(chi.URLParam(r, "id"))
	if id.IsZero() {
		respondError(w, http.StatusBadRequest, "validation_error", "species id is required")
		return
	}

	c := s.loader.Catalog()
	sp, ok := c.SpeciesByID[id]
	if !ok {
		respondError(w, http.StatusNotFound, "not_found", "species not found")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"species":    sp,
		"names":      c.Names[id],
		"difficulty": c.Table.QuestionDifficulty(id, models.QuestionTypePlant),
		"parameters": c.ParametersByID[id],
	})
}

func (s *Server) handleListGenera(w http.ResponseWriter, r *http.Request) {
	c := s.loader.Catalog()

	genera := make([]*models.Genus, 0, len(c.GenusByID))
	for _, id := range sortedGenusIDs(c.GenusByID) {
		genera = append(genera, c.GenusByID[id])
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"genera": genera,
		"total":  len(genera),
	})
}

func sortedGenusIDs(genera map[models.ID]*models.Genus) []models.ID {
	ids := make([]models.ID, 0, len(genera))
	for id := range genera {
		ids = append(ids, id)
	}
	models.SortIDs(ids)
	return ids
}

func (s *Server) handleListQuestions(w http.ResponseWriter, r *http.Request) {
	c := s.loader.Catalog()
	questions := c.Questions()

	if label := r.URL.Query().Get("difficulty"); label != "" {
		d, ok := models.ParseDifficulty(label)
		if !ok {
			respondError(w, http.StatusBadRequest, "validation_error", "unknown difficulty: "+label)
			return
		}
		filtered := make([]*models.Question, 0, len(questions))
		for _, q := range questions {
			if q.Difficulty == d {
				filtered = append(filtered, q)
			}
		}
		questions = filtered
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"questions": questions,
		"total":     len(questions),
	})
}

func (s *Server) handleListBouquets(w http.ResponseWriter, r *http.Request) {
	c := s.loader.Catalog()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"bouquets": c.Bouquets,
		"total":    len(c.Bouquets),
	})
}

func (s *Server) handleListMemorization(w http.ResponseWriter, r *http.Request) {
	c := s.loader.Catalog()

	entries := c.Memorization
	if family := r.URL.Query().Get("family"); family != "" {
		filtered := make([]catalog.MemorizationEntry, 0, len(entries))
		for _, e := range entries {
			params := c.ParametersByID[e.ID]
			if params != nil && params.Family == family {
				filtered = append(filtered, e)
			}
		}
		entries = filtered
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"plants": entries,
		"total":  len(entries),
	})
}

func (s *Server) handleListFamilies(w http.ResponseWriter, r *http.Request) {
	families := s.loader.Catalog().Families()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"families": families,
		"total":    len(families),
	})
}

func (s *Server) handleListTags(w http.ResponseWriter, r *http.Request) {
	tags := s.loader.Catalog().ParameterTags
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"tags":  tags,
		"total": len(tags),
	})
}

func (s *Server) handleListDifficulties(w http.ResponseWriter, r *http.Request) {
	c := s.loader.Catalog()

	counts := make(map[models.Difficulty]int)
	for _, q := range c.Questions() {
		counts[q.Difficulty]++
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"order":   models.DifficultyOrder,
		"default": c.Table.Default(),
		"names":   c.DifficultyNames,
		"counts":  counts,
	})
}

func (s *Server) handleListRounds(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"rounds":    s.rounds,
		"max_score": game.MaxScore(s.rounds),
	})
}
