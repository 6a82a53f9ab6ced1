package models

import "strings"

// Difficulty is the closed difficulty tier enum.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "Easy"
	DifficultyMedium Difficulty = "Medium"
	DifficultyHard   Difficulty = "Hard"

	// DefaultDifficulty is the documented fallback when no tier resolves.
	DefaultDifficulty = DifficultyMedium
)

// DifficultyOrder lists the tiers in ascending order.
var DifficultyOrder = []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard}

// ParseDifficulty normalizes a difficulty label case-insensitively.
// The empty string and "null" parse to the zero value with ok=true;
// any other unknown label reports ok=false.
func ParseDifficulty(label string) (Difficulty, bool) {
	trimmed := strings.TrimSpace(stripWrappingQuotes(label))
	if trimmed == "" || strings.EqualFold(trimmed, "null") {
		return "", true
	}
	for _, d := range DifficultyOrder {
		if strings.EqualFold(trimmed, string(d)) {
			return d, true
		}
	}
	return "", false
}

// IsValid reports whether d is one of the closed enum values.
func (d Difficulty) IsValid() bool {
	return d == DifficultyEasy || d == DifficultyMedium || d == DifficultyHard
}

// QuestionType distinguishes the two playable question shapes.
type QuestionType string

const (
	QuestionTypePlant   QuestionType = "plant"
	QuestionTypeBouquet QuestionType = "bouquet"
)

// LocalizedNames maps a language code (ru, en, nl, sci) to a display
// string. "sci" holds the scientific name and doubles as a
// language-agnostic fallback.
type LocalizedNames map[string]string

// PlantLanguages lists the supported plant-name languages.
var PlantLanguages = []string{"ru", "en", "nl", "sci"}

// InterfaceLanguages lists the languages the interface may run in.
var InterfaceLanguages = []string{"ru", "en", "nl"}

// HasAny reports whether at least one non-empty name is present.
func (n LocalizedNames) HasAny() bool {
	for _, v := range n {
		if strings.TrimSpace(v) != "" {
			return true
		}
	}
	return false
}

// Resolve picks the name for lang, falling back to the scientific name
// and then to any non-empty entry.
func (n LocalizedNames) Resolve(lang string) string {
	if v := strings.TrimSpace(n[lang]); v != "" {
		return v
	}
	if v := strings.TrimSpace(n["sci"]); v != "" {
		return v
	}
	for _, code := range PlantLanguages {
		if v := strings.TrimSpace(n[code]); v != "" {
			return v
		}
	}
	return ""
}

// Species is one named, playable taxon. Built once at catalog-build time
// and not mutated afterwards.
type Species struct {
	ID           ID             `json:"id"`
	Names        LocalizedNames `json:"names"`
	Images       []string       `json:"images,omitempty"`
	WrongAnswers []ID           `json:"wrongAnswers,omitempty"`
	GenusID      ID             `json:"genusId,omitempty"`
}

// GenusEntry is one child template inside a genus record. A child's own
// fields override the genus defaults.
type GenusEntry struct {
	Names        LocalizedNames `json:"names,omitempty"`
	Images       []string       `json:"images,omitempty"`
	WrongAnswers []ID           `json:"wrongAnswers,omitempty"`
}

// Genus is a grouping record supplying defaults inherited by related
// species. Its own id denotes the genus-representative species, and
// Entries holds both that representative and the named children.
type Genus struct {
	ID           ID                 `json:"id"`
	Slug         string             `json:"slug"`
	WrongAnswers []ID               `json:"wrongAnswers,omitempty"`
	Entries      map[ID]*GenusEntry `json:"entries"`
}

// Image is one catalog image. IDs are unique across the whole registry
// regardless of which species references them.
type Image struct {
	ID         string     `json:"id"`
	Src        string     `json:"src"`
	Difficulty Difficulty `json:"difficulty,omitempty"`
}

// Question is one playable (species, image) instance derived by the
// catalog builder, or one hand-authored bouquet question.
type Question struct {
	ID                ID             `json:"id"`
	CorrectAnswerID   ID             `json:"correctAnswerId"`
	ImageID           string         `json:"imageId"`
	Image             string         `json:"image"`
	Names             LocalizedNames `json:"names"`
	WrongAnswers      []ID           `json:"wrongAnswers,omitempty"`
	Difficulty        Difficulty     `json:"difficulty"`
	QuestionVariantID string         `json:"questionVariantId"`
	QuestionType      QuestionType   `json:"questionType"`
	SelectionGroupID  string         `json:"selectionGroupId"`
	QuestionPromptKey string         `json:"questionPromptKey"`
}

// BouquetDefinition is the hand-authored shape of a composite question:
// one curated image with a single correct species among those depicted.
type BouquetDefinition struct {
	ID             string         `json:"id"`
	ImageID        string         `json:"imageId"`
	Image          string         `json:"image"`
	CorrectPlantID ID             `json:"correctPlantId"`
	WrongAnswerIDs []ID           `json:"wrongAnswerIds,omitempty"`
	Names          LocalizedNames `json:"names,omitempty"`
}

// PlantParameters holds the memorization-mode flashcard attributes for
// one species.
type PlantParameters struct {
	ScientificName string         `json:"scientificName,omitempty"`
	Family         string         `json:"family,omitempty"`
	LifeCycle      LocalizedNames `json:"lifeCycle,omitempty"`
	HardinessZone  string         `json:"hardinessZone,omitempty"`
	Light          LocalizedNames `json:"light,omitempty"`
	Toxicity       LocalizedNames `json:"toxicity,omitempty"`
	AdditionalInfo LocalizedNames `json:"additionalInfo,omitempty"`
}

// ParameterTag is one configured flashcard tag (icon, colors).
type ParameterTag struct {
	ID            string `json:"id"`
	Label         string `json:"label"`
	Icon          string `json:"icon,omitempty"`
	CircleColor   string `json:"circleColor,omitempty"`
	CircleContent string `json:"circleContent,omitempty"`
}
