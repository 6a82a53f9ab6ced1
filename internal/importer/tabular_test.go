package importer

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/guesstheplant/quiz-engine/internal/models"
)

func TestNormalizeLegacyRowsObjects(t *testing.T) {
	raw := json.RawMessage(`[
		{
			"id": "=\"13\"",
			"(en)": "Allium",
			"(sci)": "Allium cepa",
			"ID изображений": "p13_0_1, p13_0_2",
			"Названия изображений": "allium1.jpg, allium2.jpg",
			"Сложность": "Easy (overrides: p13_0_2:Hard)",
			"Family": "Amaryllidaceae",
			"wrongAnswers": "5, 9"
		},
		{
			"id": 2,
			"(en)": "Rose",
			"ID изображений": "p2_0_1",
			"Названия изображений": "rose.jpg",
			"Сложность": "Medium"
		}
	]`)

	bundle, stats, err := NormalizeLegacyRows(raw, Options{})
	if err != nil {
		t.Fatalf("NormalizeLegacyRows: %v", err)
	}
	if stats.PlantCount != 2 || stats.ImageCount != 3 || stats.QuestionCount != 3 {
		t.Errorf("stats = %+v, want 2 plants, 3 images, 3 questions", stats)
	}

	sp := bundle.Species["13"]
	if sp == nil {
		t.Fatal("species 13 missing (formula-wrapped id was not normalized)")
	}
	if len(sp.Images) != 2 || sp.Images[0] != "p13_0_1" {
		t.Errorf("species 13 images = %v", sp.Images)
	}
	if len(sp.WrongAnswers) != 2 || sp.WrongAnswers[0] != "5" {
		t.Errorf("species 13 wrong answers = %v", sp.WrongAnswers)
	}
	if bundle.PlantNames["13"]["en"] != "Allium" {
		t.Errorf("names = %v", bundle.PlantNames["13"])
	}
	if _, ok := bundle.Species["2"]; !ok {
		t.Error("numeric-cell id was not normalized")
	}

	params := bundle.PlantParameters["13"]
	if params == nil || params.ScientificName != "Allium cepa" || params.Family != "Amaryllidaceae" {
		t.Errorf("parameters = %+v", params)
	}
	if ids := bundle.PlantFamilies["Amaryllidaceae"]; len(ids) != 1 || ids[0] != "13" {
		t.Errorf("family index = %v", bundle.PlantFamilies)
	}

	// Base tier flows into the question bucket, the per-image override
	// into the image bucket.
	if ids := bundle.Difficulties.QuestionIDs[models.QuestionTypePlant][models.DifficultyEasy]; len(ids) != 1 || ids[0] != "13" {
		t.Errorf("easy question bucket = %v", ids)
	}
	if ids := bundle.Difficulties.ImageIDs[models.QuestionTypePlant][models.DifficultyHard]; len(ids) != 1 || ids[0] != "p13_0_2" {
		t.Errorf("hard image bucket = %v", ids)
	}

	if len(bundle.PlantQuestions) != 3 {
		t.Fatalf("got %d questions, want 3", len(bundle.PlantQuestions))
	}
	// Canonical order: plant 2 first, then the two variants of plant 13.
	q := bundle.PlantQuestions[2]
	if q.QuestionVariantID != "13-1" || q.ImageID != "p13_0_2" {
		t.Fatalf("last question = %+v", q)
	}
	if q.Difficulty != models.DifficultyHard {
		t.Errorf("override did not reach question difficulty: %s", q.Difficulty)
	}
	if q.Image != "images/allium2.jpg" {
		t.Errorf("image source = %q", q.Image)
	}
	if q.SelectionGroupID != "plant-13" || q.QuestionPromptKey != "question" {
		t.Errorf("question wiring = %+v", q)
	}
}

func TestNormalizeLegacyRowsPositionalWithHeader(t *testing.T) {
	raw := json.RawMessage(`[
		["id", "(ru)", "(en)", "(nl)", "(sci)", "images", "ID изображений", "Названия изображений", "Сложность", "Family"],
		["7", "Пион", "Peony", "", "Paeonia", 1, "p7_0_1", "peony.jpg", "Medium", ""]
	]`)

	bundle, stats, err := NormalizeLegacyRows(raw, Options{})
	if err != nil {
		t.Fatalf("NormalizeLegacyRows: %v", err)
	}
	if stats.PlantCount != 1 {
		t.Fatalf("stats = %+v", stats)
	}
	if bundle.PlantNames["7"]["ru"] != "Пион" {
		t.Errorf("russian header column not resolved: %v", bundle.PlantNames["7"])
	}
}

func TestNormalizeLegacyRowsPositionalWithoutHeader(t *testing.T) {
	raw := json.RawMessage(`[["7", "Peony", "p7_0_1", "Medium"]]`)

	if _, _, err := NormalizeLegacyRows(raw, Options{}); err == nil {
		t.Error("headerless positional rows accepted without column names")
	}

	opts := Options{Columns: []string{"id", "en", "imageIds", "difficulty"}}
	bundle, _, err := NormalizeLegacyRows(raw, opts)
	if err != nil {
		t.Fatalf("NormalizeLegacyRows with columns: %v", err)
	}
	if bundle.Species["7"] == nil {
		t.Fatal("species 7 missing")
	}
}

func TestNormalizeLegacyRowsWrappedShape(t *testing.T) {
	raw := json.RawMessage(`{
		"columns": ["id", "en", "imageIds", "difficulty"],
		"rows": [["7", "Peony", "p7_0_1", "Medium"]]
	}`)

	bundle, _, err := NormalizeLegacyRows(raw, Options{})
	if err != nil {
		t.Fatalf("NormalizeLegacyRows: %v", err)
	}
	if bundle.Species["7"] == nil {
		t.Fatal("species 7 missing from wrapped input")
	}
}

func TestNormalizeLegacyRowsStrictFailures(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			"missing id",
			`[{"(en)": "Rose"}]`,
			"plant id is missing",
		},
		{
			"duplicate plant id",
			`[{"id": "1", "(en)": "Rose"}, {"id": "1", "(en)": "Tulip"}]`,
			"duplicate plant id",
		},
		{
			"duplicate image id",
			`[{"id": "1", "(en)": "Rose", "imageIds": "p1_0_1"}, {"id": "2", "(en)": "Tulip", "imageIds": "p1_0_1"}]`,
			"already used on row",
		},
		{
			"image column mismatch",
			`[{"id": "1", "(en)": "Rose", "imageIds": "p1_0_1, p1_0_2", "imageFiles": "rose.jpg"}]`,
			"image ids but",
		},
		{
			"unknown difficulty",
			`[{"id": "1", "(en)": "Rose", "difficulty": "Brutal"}]`,
			"unknown difficulty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := NormalizeLegacyRows(json.RawMessage(tt.raw), Options{})
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestSuggestColumn(t *testing.T) {
	if got := suggestColumn("imge ids"); got != "imageids" {
		t.Errorf("suggestColumn(imge ids) = %q, want imageids", got)
	}
	if got := suggestColumn("completely different"); got != "" {
		t.Errorf("suggestColumn returned %q for an unrelated header", got)
	}
}

func TestFromCSVRoundTrip(t *testing.T) {
	csv := strings.Join([]string{
		strings.Join(CSVHeader, ","),
		`13,Лук,Allium,Look,Allium cepa,2,"p13_0_1, p13_0_2","allium1.jpg, allium2.jpg",Easy (overrides: p13_0_2:Hard),Amaryllidaceae`,
		`2,,Rose,,,1,p2_0_1,rose.jpg,Medium,Rosaceae`,
	}, "\n") + "\n"

	bundle, stats, err := FromCSV(csv)
	if err != nil {
		t.Fatalf("FromCSV: %v", err)
	}
	if stats.PlantCount != 2 || stats.QuestionCount != 3 {
		t.Fatalf("stats = %+v", stats)
	}

	out := ToCSV(bundle)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("exported %d lines, want 3", len(lines))
	}
	if lines[0] != strings.Join(CSVHeader, ",") {
		t.Errorf("header = %q", lines[0])
	}
	// Canonical order puts numeric ids ascending.
	if !strings.HasPrefix(lines[1], "2,") {
		t.Errorf("first data row = %q, want plant 2", lines[1])
	}
	if !strings.HasPrefix(lines[2], "13,") {
		t.Errorf("second data row = %q, want plant 13", lines[2])
	}
	if !strings.Contains(lines[2], "Easy (overrides: p13_0_2:Hard)") {
		t.Errorf("difficulty cell lost the override: %q", lines[2])
	}

	// A second pass over the exported sheet reproduces it exactly.
	again, _, err := FromCSV(out)
	if err != nil {
		t.Fatalf("FromCSV(exported): %v", err)
	}
	if ToCSV(again) != out {
		t.Error("export is not a fixed point")
	}
}

func TestFromCSVRejectsUnknownColumn(t *testing.T) {
	csv := "id,(en),imge ids\n1,Rose,p1_0_1\n"
	_, _, err := FromCSV(csv)
	if err == nil {
		t.Fatal("expected an error for a misspelled column")
	}
	if !strings.Contains(err.Error(), "imageids") {
		t.Errorf("error %q does not suggest the closest header", err)
	}
}

func TestBundleMarshalJSONCanonicalOrder(t *testing.T) {
	raw := json.RawMessage(`[
		{"id": "13", "(en)": "Allium", "imageIds": "p13_0_1", "imageFiles": "allium.jpg", "difficulty": "Easy"},
		{"id": "2", "(en)": "Rose", "imageIds": "p2_0_1", "imageFiles": "rose.jpg", "difficulty": "Medium"}
	]`)

	bundle, _, err := NormalizeLegacyRows(raw, Options{})
	if err != nil {
		t.Fatalf("NormalizeLegacyRows: %v", err)
	}

	first, err := json.Marshal(bundle)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if idx2, idx13 := strings.Index(string(first), `"2":`), strings.Index(string(first), `"13":`); idx2 < 0 || idx13 < 0 || idx2 > idx13 {
		t.Errorf("id-keyed maps not in canonical order: %s", first)
	}

	second, err := json.Marshal(bundle)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(first) != string(second) {
		t.Error("repeated marshals differ")
	}
}
