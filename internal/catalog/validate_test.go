package catalog

import (
	"strings"
	"testing"

	"github.com/guesstheplant/quiz-engine/internal/apperr"
	"github.com/guesstheplant/quiz-engine/internal/models"
)

func normalizeForValidation(t *testing.T, raw string) (*NormalizedPlantData, DifficultySource) {
	t.Helper()
	n := &Normalizer{Mode: ModeStrict}
	data, err := n.Normalize(decodePlantDoc(t, raw))
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	_, _, _, difficulties := data.Derived()
	return data, difficulties
}

func TestValidateReferencesAcceptsConsistentCatalog(t *testing.T) {
	data, difficulties := normalizeForValidation(t, `{
		"plants": {
			"13": {"names": {"en": "Allium"}, "difficulty": "easy", "wrongAnswers": "5", "images": ["allium.jpg"]},
			"5": {"names": {"en": "Tulip"}, "images": ["tulip.jpg"]}
		}
	}`)

	if err := ValidateReferences(data, difficulties); err != nil {
		t.Errorf("ValidateReferences: %v", err)
	}
}

func TestValidateReferencesFlagsUnknownWrongAnswer(t *testing.T) {
	data, difficulties := normalizeForValidation(t, `{
		"plants": {
			"13": {"names": {"en": "Allium"}, "wrongAnswers": "99", "images": ["allium.jpg"]}
		}
	}`)

	err := ValidateReferences(data, difficulties)
	if err == nil {
		t.Fatal("unknown wrong answer accepted")
	}
	if apperr.KindOf(err) != apperr.KindReferential {
		t.Errorf("error kind = %s, want %s", apperr.KindOf(err), apperr.KindReferential)
	}
	if !strings.Contains(err.Error(), "99") {
		t.Errorf("error %q does not name the broken id", err)
	}
}

func TestValidateReferencesFlagsUnknownBucketIDs(t *testing.T) {
	data, difficulties := normalizeForValidation(t, `{
		"plants": {
			"13": {"names": {"en": "Allium"}, "difficulty": "easy", "images": ["allium.jpg"]}
		}
	}`)

	difficulties.QuestionIDs.Add(models.QuestionTypePlant, models.DifficultyHard, "404")
	if err := ValidateReferences(data, difficulties); err == nil {
		t.Error("question bucket with an unknown plant id accepted")
	}

	_, cleanDifficulties := normalizeForValidation(t, `{
		"plants": {
			"13": {"names": {"en": "Allium"}, "images": ["allium.jpg"]}
		}
	}`)
	cleanDifficulties.ImageIDs.Add(models.QuestionTypePlant, models.DifficultyEasy, "p404_0_1")
	if err := ValidateReferences(data, cleanDifficulties); err == nil {
		t.Error("image bucket with an unknown image id accepted")
	}
}
