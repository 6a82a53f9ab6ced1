package catalog

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"

	"github.com/guesstheplant/quiz-engine/internal/models"
)

func decodePlantDoc(t *testing.T, raw string) *PlantDataDocument {
	t.Helper()
	var doc PlantDataDocument
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		t.Fatalf("failed to decode document: %v", err)
	}
	return &doc
}

func TestGenerateImageID(t *testing.T) {
	tests := []struct {
		id    models.ID
		index int
		want  string
	}{
		{"13", 0, "p13_0_1"},
		{"13", 2, "p13_0_3"},
		{"13_1", 0, "p13_1_1"},
		{"13_1", 1, "p13_1_2"},
	}

	for _, tt := range tests {
		if got := GenerateImageID(tt.id, tt.index); got != tt.want {
			t.Errorf("GenerateImageID(%s, %d) = %q, want %q", tt.id, tt.index, got, tt.want)
		}
	}
}

func TestResolveImageSource(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		fallback string
		want     string
	}{
		{"already prefixed", "images/rose.jpg", "p1_0_1", "images/rose.jpg"},
		{"bare filename", "rose.jpg", "p1_0_1", "images/rose.jpg"},
		{"relative prefix", "./rose.jpg", "p1_0_1", "images/rose.jpg"},
		{"leading slash", "/images/rose.jpg", "p1_0_1", "images/rose.jpg"},
		{"quoted", `"rose.jpg"`, "p1_0_1", "images/rose.jpg"},
		{"empty with fallback", "", "p1_0_1", "images/p1_0_1.JPG"},
		{"empty without fallback", "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveImageSource(tt.raw, tt.fallback); got != tt.want {
				t.Errorf("ResolveImageSource(%q, %q) = %q, want %q", tt.raw, tt.fallback, got, tt.want)
			}
		})
	}
}

func TestNormalizeBasicDocument(t *testing.T) {
	doc := decodePlantDoc(t, `{
		"plants": {
			"13": {
				"names": {"en": "Allium", "sci": " Allium "},
				"difficulty": "easy",
				"wrongAnswers": "5, 9, 5",
				"images": ["allium1.jpg", {"src": "allium2.jpg", "difficulty": "Hard"}]
			}
		}
	}`)

	n := &Normalizer{Mode: ModeStrict}
	data, err := n.Normalize(doc)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}

	if data.Stats.PlantCount != 1 || data.Stats.ImageCount != 2 {
		t.Fatalf("stats = %+v", data.Stats)
	}

	plant := data.Plants[0]
	if plant.ID != "13" {
		t.Errorf("id = %q", plant.ID)
	}
	if plant.Difficulty != models.DifficultyEasy {
		t.Errorf("difficulty = %q, want Easy", plant.Difficulty)
	}
	if plant.Names["sci"] != "Allium" {
		t.Errorf("names not trimmed: %v", plant.Names)
	}
	if !reflect.DeepEqual(plant.WrongAnswers, []models.ID{"5", "9"}) {
		t.Errorf("wrong answers not deduped: %v", plant.WrongAnswers)
	}

	if plant.Images[0].ID != "p13_0_1" || plant.Images[1].ID != "p13_0_2" {
		t.Errorf("generated image ids = %s, %s", plant.Images[0].ID, plant.Images[1].ID)
	}
	if plant.Images[0].Src != "images/allium1.jpg" {
		t.Errorf("image src = %q", plant.Images[0].Src)
	}
	// Image without its own difficulty inherits the plant base
	if plant.Images[0].Difficulty != models.DifficultyEasy {
		t.Errorf("inherited difficulty = %q", plant.Images[0].Difficulty)
	}
	if plant.Images[1].Difficulty != models.DifficultyHard {
		t.Errorf("explicit difficulty = %q", plant.Images[1].Difficulty)
	}
}

func TestNormalizeCanonicalOrder(t *testing.T) {
	doc := decodePlantDoc(t, `{
		"plants": {
			"100": {"names": {"en": "C"}, "difficulty": "Easy"},
			"13_1": {"names": {"en": "B"}, "difficulty": "Easy"},
			"2": {"names": {"en": "A"}, "difficulty": "Easy"}
		}
	}`)

	n := &Normalizer{Mode: ModeStrict}
	data, err := n.Normalize(doc)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}

	var ids []models.ID
	for _, p := range data.Plants {
		ids = append(ids, p.ID)
	}
	want := []models.ID{"2", "13_1", "100"}
	if !reflect.DeepEqual(ids, want) {
		t.Errorf("plant order = %v, want %v", ids, want)
	}
}

func TestNormalizeStrictFailsOnUnknownDifficulty(t *testing.T) {
	doc := decodePlantDoc(t, `{
		"plants": {
			"1": {"names": {"en": "X"}, "difficulty": "Impossible"}
		}
	}`)

	strict := &Normalizer{Mode: ModeStrict}
	if _, err := strict.Normalize(doc); err == nil {
		t.Fatal("strict mode should fail on an unknown difficulty")
	}

	lenient := &Normalizer{Mode: ModeLenient}
	data, err := lenient.Normalize(doc)
	if err != nil {
		t.Fatalf("lenient mode should tolerate it: %v", err)
	}
	if data.Plants[0].Difficulty != "" {
		t.Errorf("lenient difficulty = %q, want unset", data.Plants[0].Difficulty)
	}
}

func TestNormalizeImageIDConflict(t *testing.T) {
	// Two plants claim the same explicit image id for different files
	raw := `{
		"plants": {
			"1": {"names": {"en": "A"}, "difficulty": "Easy",
				"images": [{"id": "px_1", "src": "a.jpg"}]},
			"2": {"names": {"en": "B"}, "difficulty": "Easy",
				"images": [{"id": "px_1", "src": "b.jpg"}]}
		}
	}`

	strict := &Normalizer{Mode: ModeStrict}
	_, err := strict.Normalize(decodePlantDoc(t, raw))
	if err == nil {
		t.Fatal("strict mode should reject a conflicting image id")
	}
	if !strings.Contains(err.Error(), "px_1") {
		t.Errorf("error should name the image id, got %v", err)
	}

	lenient := &Normalizer{Mode: ModeLenient}
	data, err := lenient.Normalize(decodePlantDoc(t, raw))
	if err != nil {
		t.Fatalf("lenient: %v", err)
	}
	// The second claim is dropped, the first kept
	if data.Stats.ImageCount != 1 {
		t.Errorf("image count = %d, want 1", data.Stats.ImageCount)
	}
}

func TestNormalizeIdenticalRedeclarationAllowed(t *testing.T) {
	raw := `{
		"plants": {
			"1": {"names": {"en": "A"}, "difficulty": "Easy",
				"images": [{"id": "px_1", "src": "a.jpg"}]},
			"2": {"names": {"en": "B"}, "difficulty": "Easy",
				"images": [{"id": "px_1", "src": "a.jpg"}]}
		}
	}`

	strict := &Normalizer{Mode: ModeStrict}
	if _, err := strict.Normalize(decodePlantDoc(t, raw)); err != nil {
		t.Fatalf("identical redeclaration should pass: %v", err)
	}
}

func TestNormalizedPlantDataMarshalRoundTrip(t *testing.T) {
	doc := decodePlantDoc(t, `{
		"plants": {
			"13": {"names": {"en": "Allium"}, "difficulty": "Easy", "images": ["a.jpg"]},
			"2": {"names": {"en": "Tulip"}, "difficulty": "Medium"}
		}
	}`)

	n := &Normalizer{Mode: ModeStrict}
	data, err := n.Normalize(doc)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}

	encoded, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	text := string(encoded)
	if !strings.HasPrefix(text, `{"difficultyLevels":`) {
		t.Errorf("difficultyLevels must come first: %s", text)
	}
	if strings.Index(text, `"2"`) > strings.Index(text, `"13"`) {
		t.Errorf("plants must be in canonical order: %s", text)
	}

	// A second normalize of the marshaled output is a fixed point
	again, err := n.Normalize(decodePlantDoc(t, text))
	if err != nil {
		t.Fatalf("re-normalize: %v", err)
	}
	reencoded, err := json.Marshal(again)
	if err != nil {
		t.Fatalf("re-marshal: %v", err)
	}
	if string(reencoded) != text {
		t.Errorf("normalization is not idempotent:\n%s\n%s", text, reencoded)
	}
}

func TestDerivedSplitsDifficulties(t *testing.T) {
	doc := decodePlantDoc(t, `{
		"plants": {
			"13": {
				"names": {"en": "Allium"},
				"difficulty": "Easy",
				"images": ["a.jpg", {"src": "b.jpg", "difficulty": "Hard"}]
			}
		}
	}`)

	n := &Normalizer{Mode: ModeStrict}
	data, err := n.Normalize(doc)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}

	names, overrides, images, difficulties := data.Derived()

	if names["13"]["en"] != "Allium" {
		t.Errorf("names = %v", names)
	}
	if len(overrides["13"].Images) != 2 {
		t.Errorf("override images = %v", overrides["13"].Images)
	}
	if len(images) != 2 {
		t.Errorf("image records = %v", images)
	}

	questionBucket := difficulties.QuestionIDs[models.QuestionTypePlant][models.DifficultyEasy]
	if !reflect.DeepEqual(questionBucket, []models.ID{"13"}) {
		t.Errorf("question bucket = %v", questionBucket)
	}

	// Only the image that diverges from the plant base lands in the
	// image axis
	imageBucket := difficulties.ImageIDs[models.QuestionTypePlant][models.DifficultyHard]
	if !reflect.DeepEqual(imageBucket, []models.ID{"p13_0_2"}) {
		t.Errorf("image bucket = %v", imageBucket)
	}
	if len(difficulties.ImageIDs[models.QuestionTypePlant][models.DifficultyEasy]) != 0 {
		t.Errorf("base-difficulty image should not be bucketed")
	}
}

func TestNormalizeDifficultyLevelsKeyCase(t *testing.T) {
	levels := normalizeDifficultyLevels(map[string]string{
		"MEDIUM":  "Normal",
		"easy":    "Beginner",
		"Hard":    "Expert",
		"BRUTAL":  "ignored",
		"Medium2": "ignored",
	})

	want := map[string]string{
		"Easy":   "Beginner",
		"Medium": "Normal",
		"Hard":   "Expert",
	}
	for tier, label := range want {
		if levels[tier] != label {
			t.Errorf("levels[%q] = %q, want %q", tier, levels[tier], label)
		}
	}
	if len(levels) != len(want) {
		t.Errorf("unexpected extra tiers: %v", levels)
	}
}

func TestNormalizeDifficultyLevelsDefaults(t *testing.T) {
	levels := normalizeDifficultyLevels(nil)
	if levels["Medium"] != "Medium" {
		t.Errorf("levels[Medium] = %q, want Medium", levels["Medium"])
	}

	// A blank label never clobbers the default.
	levels = normalizeDifficultyLevels(map[string]string{"HARD": "  "})
	if levels["Hard"] != "Hard" {
		t.Errorf("levels[Hard] = %q, want Hard", levels["Hard"])
	}
}
