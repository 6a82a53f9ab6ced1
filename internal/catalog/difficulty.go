package catalog

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/guesstheplant/quiz-engine/internal/models"
)

// DifficultyBuckets is the authored bucketed shape: question type →
// difficulty label → id list. The same shape serves both the question-id
// axis and the image-id axis.
type DifficultyBuckets map[models.QuestionType]map[models.Difficulty][]models.ID

// Add appends an id to a bucket, allocating the nested maps on first
// use.
func (b DifficultyBuckets) Add(qt models.QuestionType, d models.Difficulty, id models.ID) {
	byDifficulty := b[qt]
	if byDifficulty == nil {
		byDifficulty = make(map[models.Difficulty][]models.ID)
		b[qt] = byDifficulty
	}
	byDifficulty[d] = append(byDifficulty[d], id)
}

// DifficultySource is the raw difficulties document.
type DifficultySource struct {
	Levels      map[string]string `json:"difficultyLevels,omitempty"`
	QuestionIDs DifficultyBuckets `json:"questionIdsByDifficulty,omitempty"`
	ImageIDs    DifficultyBuckets `json:"imageIdsByDifficulty,omitempty"`
}

// DifficultyTable holds the inverted lookup maps for both axes.
// Built once; read-only afterwards.
type DifficultyTable struct {
	questionLookup map[string]models.Difficulty
	imageLookup    map[string]models.Difficulty
	defaultLevel   models.Difficulty
}

func lookupKey(qt models.QuestionType, id string) string {
	return fmt.Sprintf("%s::%s", qt, id)
}

// BuildDifficultyTable inverts the bucketed source into flat lookups
// keyed by "type::id". An id listed under two difficulties for the same
// type keeps the last bucket seen and is reported as a data-quality
// warning; the authored documents should never contain one.
func BuildDifficultyTable(src DifficultySource) *DifficultyTable {
	t := &DifficultyTable{
		questionLookup: make(map[string]models.Difficulty),
		imageLookup:    make(map[string]models.Difficulty),
		defaultLevel:   models.DefaultDifficulty,
	}

	// The default-level override may be keyed MEDIUM, medium, or
	// Medium depending on which document authored it. Sorted key order
	// keeps the result stable when duplicate spellings conflict.
	overrideKeys := make([]string, 0, len(src.Levels))
	for key := range src.Levels {
		overrideKeys = append(overrideKeys, key)
	}
	sort.Strings(overrideKeys)
	for _, key := range overrideKeys {
		if k, ok := models.ParseDifficulty(key); !ok || k != models.DifficultyMedium {
			continue
		}
		if d, valid := models.ParseDifficulty(src.Levels[key]); valid && d != "" {
			t.defaultLevel = d
		}
	}

	invert := func(buckets DifficultyBuckets, into map[string]models.Difficulty, axis string) {
		for qt, byDifficulty := range buckets {
			// Deterministic bucket order keeps duplicate resolution stable.
			for _, difficulty := range models.DifficultyOrder {
				for _, id := range byDifficulty[difficulty] {
					key := lookupKey(qt, id.String())
					if prev, dup := into[key]; dup && prev != difficulty {
						slog.Warn("id listed under two difficulty buckets, keeping last",
							"axis", axis, "type", qt, "id", id, "kept", difficulty, "dropped", prev)
					}
					into[key] = difficulty
				}
			}
		}
	}

	invert(src.QuestionIDs, t.questionLookup, "question")
	invert(src.ImageIDs, t.imageLookup, "image")

	return t
}

// Default returns the global fallback difficulty.
func (t *DifficultyTable) Default() models.Difficulty {
	return t.defaultLevel
}

// QuestionDifficulty returns the authored difficulty for a question id,
// or "" when the id is not listed.
func (t *DifficultyTable) QuestionDifficulty(id models.ID, qt models.QuestionType) models.Difficulty {
	if id.IsZero() {
		return ""
	}
	return t.questionLookup[lookupKey(qt, id.String())]
}

// ImageDifficulty returns the authored override for an image id, or ""
// when the image has none.
func (t *DifficultyTable) ImageDifficulty(imageID string, qt models.QuestionType) models.Difficulty {
	if imageID == "" {
		return ""
	}
	return t.imageLookup[lookupKey(qt, imageID)]
}

// ResolveForSpecies walks the full fallback chain for a (species, image)
// pair: image override → species value → genus value → global default.
// The genus level only applies when the species is not its own genus
// representative.
func (t *DifficultyTable) ResolveForSpecies(sp *models.Species, imageID string, qt models.QuestionType) models.Difficulty {
	if d := t.ImageDifficulty(imageID, qt); d != "" {
		return d
	}
	if d := t.QuestionDifficulty(sp.ID, qt); d != "" {
		return d
	}
	if !sp.GenusID.IsZero() && sp.GenusID != sp.ID {
		if d := t.QuestionDifficulty(sp.GenusID, qt); d != "" {
			return d
		}
	}
	return t.defaultLevel
}
