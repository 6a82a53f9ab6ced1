package catalog

import (
	"github.com/guesstheplant/quiz-engine/internal/apperr"
	"github.com/guesstheplant/quiz-engine/internal/models"
)

// ValidateReferences checks the cross-record links of a normalized
// catalog: wrong answers must name known plants, difficulty buckets
// must name known plant or image ids. Fails on the first broken link.
func ValidateReferences(data *NormalizedPlantData, difficulties DifficultySource) error {
	plantIDs := make(map[models.ID]bool, len(data.Plants))
	imageIDs := make(map[string]bool)
	for _, plant := range data.Plants {
		plantIDs[plant.ID] = true
		for _, img := range plant.Images {
			imageIDs[img.ID] = true
		}
	}

	for _, plant := range data.Plants {
		for _, wa := range plant.WrongAnswers {
			if !plantIDs[wa] {
				return apperr.Referential(nil, "plant %s lists wrong answer %s, which is not a known plant", plant.ID, wa)
			}
		}
	}

	for _, buckets := range difficulties.QuestionIDs {
		for _, ids := range buckets {
			for _, id := range ids {
				if !plantIDs[id] {
					return apperr.Referential(nil, "question difficulty bucket names unknown plant id %s", id)
				}
			}
		}
	}
	for _, buckets := range difficulties.ImageIDs {
		for _, ids := range buckets {
			for _, id := range ids {
				if !imageIDs[id.String()] {
					return apperr.Referential(nil, "image difficulty bucket names unknown image id %s", id)
				}
			}
		}
	}

	return nil
}
