package catalog

import (
	"fmt"
	"log/slog"

	"github.com/guesstheplant/quiz-engine/internal/models"
)

// BuildPlantQuestions derives one playable question per (species,
// image) pair. Images a species references but the registry does not
// carry are skipped with a warning. Variant ids are positional within
// the species ("13-0", "13-1"), and every question of one species
// shares the selection group "plant-<id>" so round selection never
// picks the same species twice.
func BuildPlantQuestions(species map[models.ID]*models.Species, registry *ImageRegistry, table *DifficultyTable) []*models.Question {
	var questions []*models.Question

	for _, id := range SortedSpeciesIDs(species) {
		sp := species[id]
		index := 0
		for _, imageID := range sp.Images {
			img := registry.Lookup(imageID)
			if img == nil || img.Src == "" {
				slog.Warn("species references unregistered image, skipping question",
					"species_id", sp.ID, "image_id", imageID)
				continue
			}

			questions = append(questions, &models.Question{
				ID:                sp.ID,
				CorrectAnswerID:   sp.ID,
				ImageID:           img.ID,
				Image:             img.Src,
				Names:             sp.Names,
				WrongAnswers:      sp.WrongAnswers,
				Difficulty:        table.ResolveForSpecies(sp, img.ID, models.QuestionTypePlant),
				QuestionVariantID: fmt.Sprintf("%s-%d", sp.ID, index),
				QuestionType:      models.QuestionTypePlant,
				SelectionGroupID:  "plant-" + sp.ID.String(),
				QuestionPromptKey: "question",
			})
			index++
		}
	}

	return questions
}

// BuildBouquetQuestions turns the hand-authored bouquet definitions
// into playable questions. Wrong answers are capped at three. A bouquet
// whose correct species has no name record is unplayable and dropped.
func BuildBouquetQuestions(defs []models.BouquetDefinition, names map[models.ID]models.LocalizedNames, table *DifficultyTable) []*models.Question {
	questions := make([]*models.Question, 0, len(defs))

	for _, def := range defs {
		correctID := models.NormalizeID(def.CorrectPlantID.String())
		if correctID.IsZero() || def.ImageID == "" {
			slog.Warn("bouquet definition missing correct plant or image, skipping", "bouquet_id", def.ID)
			continue
		}
		nm := names[correctID]
		if !nm.HasAny() {
			slog.Warn("bouquet references unnamed species, skipping", "bouquet_id", def.ID, "plant_id", correctID)
			continue
		}

		wrong := def.WrongAnswerIDs
		if len(wrong) > 3 {
			wrong = wrong[:3]
		}

		difficulty := table.ImageDifficulty(def.ImageID, models.QuestionTypeBouquet)
		if difficulty == "" {
			difficulty = table.QuestionDifficulty(models.ID(def.ID), models.QuestionTypeBouquet)
		}
		if difficulty == "" {
			difficulty = table.Default()
		}

		questions = append(questions, &models.Question{
			ID:                correctID,
			CorrectAnswerID:   correctID,
			ImageID:           def.ImageID,
			Image:             def.Image,
			Names:             nm,
			WrongAnswers:      append([]models.ID(nil), wrong...),
			Difficulty:        difficulty,
			QuestionVariantID: def.ID,
			QuestionType:      models.QuestionTypeBouquet,
			SelectionGroupID:  "bouquet-" + def.ID,
			QuestionPromptKey: "bouquetQuestion",
		})
	}

	return questions
}
