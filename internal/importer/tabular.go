package importer

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/guesstheplant/quiz-engine/internal/catalog"
	"github.com/guesstheplant/quiz-engine/internal/models"
)

// headerAliases maps every known column spelling (lowercased) to its
// canonical field name. The Russian headers come from the original
// spreadsheet exports.
var headerAliases = map[string]string{
	"id":                   "id",
	"(ru)":                 "ru",
	"ru":                   "ru",
	"(en)":                 "en",
	"en":                   "en",
	"(nl)":                 "nl",
	"nl":                   "nl",
	"(sci)":                "sci",
	"sci":                  "sci",
	"images":               "imageCount",
	"id изображений":       "imageIds",
	"imageids":             "imageIds",
	"названия изображений": "imageFiles",
	"imagefiles":           "imageFiles",
	"сложность":            "difficulty",
	"difficulty":           "difficulty",
	"family":               "family",
	"wronganswers":         "wrongAnswers",
}

// CSVHeader is the column order of exported sheets.
var CSVHeader = []string{
	"id", "(ru)", "(en)", "(nl)", "(sci)", "images",
	"ID изображений", "Названия изображений", "Сложность", "Family",
}

// Bundle is the flattened catalog produced by an import: every loader
// document in one sorted JSON object.
type Bundle struct {
	PlantNames       map[string]models.LocalizedNames   `json:"plantNames"`
	Species          map[string]*models.Species         `json:"species"`
	PlantImages      []catalog.ImageRecord              `json:"plantImages"`
	PlantParameters  map[string]*models.PlantParameters `json:"plantParameters"`
	PlantFamilies    map[string][]models.ID             `json:"plantFamilies"`
	BouquetQuestions []models.BouquetDefinition         `json:"bouquetQuestions"`
	Genus            []*models.Genus                    `json:"genus"`
	PlantQuestions   []*models.Question                 `json:"plantQuestions"`
	Difficulties     catalog.DifficultySource           `json:"difficulties"`
}

// Stats summarizes one import run.
type Stats struct {
	PlantCount    int `json:"plantCount"`
	ImageCount    int `json:"imageCount"`
	QuestionCount int `json:"questionCount"`
}

// record is one row after column naming is resolved.
type record struct {
	fields map[string]string
	line   int
}

func (r record) get(field string) string {
	return strings.TrimSpace(r.fields[field])
}

// canonicalColumn resolves a header cell to its canonical field name.
// ok is false for headers the alias table does not know.
func canonicalColumn(header string) (string, bool) {
	name, ok := headerAliases[strings.ToLower(strings.TrimSpace(header))]
	if ok {
		return name, true
	}
	return strings.ToLower(strings.TrimSpace(header)), false
}

// suggestColumn offers the closest known header for a near-miss, or ""
// when nothing is plausibly close.
func suggestColumn(header string) string {
	needle := strings.ToLower(strings.TrimSpace(header))
	best := ""
	bestDistance := 3 // anything further off is a different word
	for alias := range headerAliases {
		if d := levenshtein.ComputeDistance(needle, alias); d < bestDistance {
			bestDistance = d
			best = alias
		}
	}
	return best
}

// looksLikeHeader reports whether a row reads as a header: at least
// half of its non-empty cells match the alias table.
func looksLikeHeader(row []string) bool {
	nonEmpty, matched := 0, 0
	for _, cell := range row {
		trimmed := strings.TrimSpace(cell)
		if trimmed == "" {
			continue
		}
		nonEmpty++
		if _, ok := headerAliases[strings.ToLower(trimmed)]; ok {
			matched++
		}
	}
	return nonEmpty > 0 && matched*2 >= nonEmpty
}

// Options configures an import.
type Options struct {
	// Columns names the positional columns of array-of-array input.
	// When empty, the first row is probed as a header.
	Columns []string
}

// decodeRows turns any of the accepted wire shapes into named records:
// array-of-arrays (positional), array-of-objects (aliased field
// names), or a {columns, rows} wrapper.
func decodeRows(raw json.RawMessage, opts Options) ([]record, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return nil, fmt.Errorf("empty input")
	}

	if strings.HasPrefix(trimmed, "{") {
		var wrapper struct {
			Columns []string          `json:"columns"`
			Rows    []json.RawMessage `json:"rows"`
		}
		if err := json.Unmarshal(raw, &wrapper); err != nil {
			return nil, fmt.Errorf("failed to parse wrapped rows: %w", err)
		}
		if wrapper.Rows == nil {
			return nil, fmt.Errorf("wrapper object carries no rows")
		}
		inner, err := json.Marshal(wrapper.Rows)
		if err != nil {
			return nil, err
		}
		if len(opts.Columns) == 0 {
			opts.Columns = wrapper.Columns
		}
		return decodeRows(inner, opts)
	}

	var probe []json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("failed to parse rows: %w", err)
	}
	if len(probe) == 0 {
		return nil, nil
	}

	first := strings.TrimSpace(string(probe[0]))
	if strings.HasPrefix(first, "[") {
		return decodePositionalRows(probe, opts.Columns)
	}
	return decodeObjectRows(probe)
}

func decodePositionalRows(rawRows []json.RawMessage, columns []string) ([]record, error) {
	rows := make([][]string, 0, len(rawRows))
	for i, rawRow := range rawRows {
		var cells []any
		if err := json.Unmarshal(rawRow, &cells); err != nil {
			return nil, fmt.Errorf("row %d: not an array: %w", i+1, err)
		}
		row := make([]string, len(cells))
		for j, cell := range cells {
			row[j] = cellString(cell)
		}
		rows = append(rows, row)
	}

	firstDataRow := 0
	if len(columns) == 0 {
		if !looksLikeHeader(rows[0]) {
			return nil, fmt.Errorf("positional rows need column names: supply them or start with a header row")
		}
		columns = rows[0]
		firstDataRow = 1
	} else if looksLikeHeader(rows[0]) {
		firstDataRow = 1
	}

	names := make([]string, len(columns))
	for i, header := range columns {
		name, known := canonicalColumn(header)
		if !known {
			if hint := suggestColumn(header); hint != "" {
				slog.Warn("unknown column header", "header", header, "closest_known", hint)
			} else {
				slog.Warn("unknown column header", "header", header)
			}
		}
		names[i] = name
	}

	records := make([]record, 0, len(rows)-firstDataRow)
	for i := firstDataRow; i < len(rows); i++ {
		fields := make(map[string]string, len(names))
		for j, name := range names {
			if j < len(rows[i]) {
				fields[name] = rows[i][j]
			}
		}
		records = append(records, record{fields: fields, line: i + 1})
	}
	return records, nil
}

func decodeObjectRows(rawRows []json.RawMessage) ([]record, error) {
	records := make([]record, 0, len(rawRows))
	for i, rawRow := range rawRows {
		var obj map[string]any
		if err := json.Unmarshal(rawRow, &obj); err != nil {
			return nil, fmt.Errorf("row %d: not an object: %w", i+1, err)
		}
		fields := make(map[string]string, len(obj))
		for key, value := range obj {
			name, _ := canonicalColumn(key)
			fields[name] = cellString(value)
		}
		records = append(records, record{fields: fields, line: i + 1})
	}
	return records, nil
}

func cellString(v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	case float64:
		if value == float64(int64(value)) {
			return fmt.Sprintf("%d", int64(value))
		}
		return fmt.Sprintf("%v", value)
	case bool:
		if value {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprintf("%v", value)
	}
}

func splitList(cell string) []string {
	if strings.TrimSpace(cell) == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(cell, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// NormalizeLegacyRows converts legacy tabular plant data into the
// canonical catalog bundle. Unlike the runtime loader this path is
// strict: duplicate plant ids, duplicate image ids, mismatched image
// columns and unknown difficulty labels all abort the import with the
// offending row identified.
func NormalizeLegacyRows(raw json.RawMessage, opts Options) (*Bundle, *Stats, error) {
	records, err := decodeRows(raw, opts)
	if err != nil {
		return nil, nil, err
	}
	return buildBundle(records)
}

// buildBundle runs the strict per-row conversion shared by the JSON
// and CSV entry points.
func buildBundle(records []record) (*Bundle, *Stats, error) {
	bundle := &Bundle{
		PlantNames:       make(map[string]models.LocalizedNames),
		Species:          make(map[string]*models.Species),
		PlantParameters:  make(map[string]*models.PlantParameters),
		PlantFamilies:    make(map[string][]models.ID),
		BouquetQuestions: []models.BouquetDefinition{},
		Genus:            []*models.Genus{},
		Difficulties: catalog.DifficultySource{
			Levels:      map[string]string{"EASY": "Easy", "MEDIUM": "Medium", "HARD": "Hard"},
			QuestionIDs: make(catalog.DifficultyBuckets),
			ImageIDs:    make(catalog.DifficultyBuckets),
		},
	}
	stats := &Stats{}

	seenImageIDs := make(map[string]int) // image id -> line
	for _, rec := range records {
		plantID := models.NormalizeID(rec.get("id"))
		if plantID.IsZero() {
			return nil, nil, fmt.Errorf("row %d: plant id is missing", rec.line)
		}
		key := plantID.String()
		if _, dup := bundle.Species[key]; dup {
			return nil, nil, fmt.Errorf("row %d: duplicate plant id %s", rec.line, plantID)
		}

		names := models.LocalizedNames{}
		for _, lang := range models.PlantLanguages {
			if v := rec.get(lang); v != "" {
				names[lang] = v
			}
		}

		cell, err := ParseDifficultyCell(rec.get("difficulty"))
		if err != nil {
			return nil, nil, fmt.Errorf("row %d (plant %s): %w", rec.line, plantID, err)
		}

		imageIDs := splitList(rec.get("imageIds"))
		imageFiles := splitList(rec.get("imageFiles"))
		if len(imageFiles) > 0 && len(imageIDs) != len(imageFiles) {
			return nil, nil, fmt.Errorf("row %d (plant %s): %d image ids but %d image files", rec.line, plantID, len(imageIDs), len(imageFiles))
		}

		wrongAnswers := make([]models.ID, 0)
		for _, rawID := range splitList(rec.get("wrongAnswers")) {
			if id := models.NormalizeID(rawID); !id.IsZero() {
				wrongAnswers = append(wrongAnswers, id)
			}
		}

		bundle.PlantNames[key] = names
		bundle.Species[key] = &models.Species{
			ID:           plantID,
			Names:        names,
			Images:       imageIDs,
			WrongAnswers: wrongAnswers,
		}

		sci := rec.get("sci")
		family := rec.get("family")
		if sci != "" || family != "" {
			params := &models.PlantParameters{ScientificName: sci, Family: family}
			bundle.PlantParameters[key] = params
		}
		if family != "" {
			bundle.PlantFamilies[family] = append(bundle.PlantFamilies[family], plantID)
		}
		if cell.Base != "" {
			bundle.Difficulties.QuestionIDs.Add(models.QuestionTypePlant, cell.Base, plantID)
		}

		for index, imageID := range imageIDs {
			if prevLine, dup := seenImageIDs[imageID]; dup {
				return nil, nil, fmt.Errorf("row %d (plant %s): image id %s already used on row %d", rec.line, plantID, imageID, prevLine)
			}
			seenImageIDs[imageID] = rec.line

			src := ""
			if index < len(imageFiles) {
				src = catalog.ResolveImageSource(imageFiles[index], "")
			}
			if src != "" {
				bundle.PlantImages = append(bundle.PlantImages, catalog.ImageRecord{ID: imageID, Src: src})
				stats.ImageCount++
			}

			difficulty := cell.Overrides[imageID]
			if difficulty == "" {
				difficulty = cell.Base
			}
			if difficulty != "" {
				bundle.Difficulties.ImageIDs.Add(models.QuestionTypePlant, difficulty, models.ID(imageID))
			}

			bundle.PlantQuestions = append(bundle.PlantQuestions, &models.Question{
				ID:                plantID,
				CorrectAnswerID:   plantID,
				ImageID:           imageID,
				Image:             src,
				Names:             names,
				WrongAnswers:      wrongAnswers,
				Difficulty:        difficulty,
				QuestionVariantID: fmt.Sprintf("%s-%d", plantID, index),
				QuestionType:      models.QuestionTypePlant,
				SelectionGroupID:  "plant-" + key,
				QuestionPromptKey: "question",
			})
			stats.QuestionCount++
		}

		stats.PlantCount++
	}

	sortBundle(bundle)
	return bundle, stats, nil
}

// sortBundle puts every list into canonical order so repeated imports
// of the same sheet are byte-identical.
func sortBundle(b *Bundle) {
	sort.Slice(b.PlantImages, func(i, j int) bool {
		return b.PlantImages[i].ID < b.PlantImages[j].ID
	})
	sort.Slice(b.PlantQuestions, func(i, j int) bool {
		if c := models.CompareIDs(b.PlantQuestions[i].ID, b.PlantQuestions[j].ID); c != 0 {
			return c < 0
		}
		return b.PlantQuestions[i].QuestionVariantID < b.PlantQuestions[j].QuestionVariantID
	})
	for _, ids := range b.PlantFamilies {
		models.SortIDs(ids)
	}
	for _, buckets := range []catalog.DifficultyBuckets{b.Difficulties.QuestionIDs, b.Difficulties.ImageIDs} {
		for _, byDifficulty := range buckets {
			for _, ids := range byDifficulty {
				models.SortIDs(ids)
			}
		}
	}
}

// baseName strips the directory from an image path for CSV export.
func baseName(src string) string {
	if src == "" {
		return ""
	}
	return path.Base(src)
}
