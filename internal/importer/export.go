package importer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/guesstheplant/quiz-engine/internal/models"
)

// FromCSV converts an exported spreadsheet back into the canonical
// bundle. The first row must be a recognizable header.
func FromCSV(text string) (*Bundle, *Stats, error) {
	rows := ParseCSV(text)
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("CSV carries no data")
	}
	if !looksLikeHeader(rows[0]) {
		return nil, nil, fmt.Errorf("first CSV row is not a recognizable header")
	}

	names := make([]string, len(rows[0]))
	for i, header := range rows[0] {
		name, known := canonicalColumn(header)
		if !known {
			if hint := suggestColumn(header); hint != "" {
				return nil, nil, fmt.Errorf("unknown CSV column %q (closest known: %q)", header, hint)
			}
		}
		names[i] = name
	}

	records := make([]record, 0, len(rows)-1)
	for i, row := range rows[1:] {
		fields := make(map[string]string, len(names))
		for j, name := range names {
			if j < len(row) {
				fields[name] = row[j]
			}
		}
		records = append(records, record{fields: fields, line: i + 2})
	}

	return buildBundle(records)
}

// ToCSV renders the bundle as the spreadsheet the curators edit: one
// row per species, images and difficulty packed into combined cells.
func ToCSV(b *Bundle) string {
	lines := []string{strings.Join(CSVHeader, ",")}

	baseDifficultyByID := make(map[string]models.Difficulty)
	for difficulty, ids := range b.Difficulties.QuestionIDs[models.QuestionTypePlant] {
		for _, id := range ids {
			baseDifficultyByID[id.String()] = difficulty
		}
	}

	questionsByPlant := make(map[string][]*models.Question)
	for _, q := range b.PlantQuestions {
		if q.QuestionType != models.QuestionTypePlant {
			continue
		}
		key := q.CorrectAnswerID.String()
		questionsByPlant[key] = append(questionsByPlant[key], q)
	}

	ids := make([]models.ID, 0, len(b.PlantNames))
	for key := range b.PlantNames {
		ids = append(ids, models.ID(key))
	}
	models.SortIDs(ids)

	for _, id := range ids {
		key := id.String()
		names := b.PlantNames[key]
		params := b.PlantParameters[key]

		sci := ""
		family := ""
		if params != nil {
			sci = params.ScientificName
			family = params.Family
		}
		if sci == "" {
			sci = names["sci"]
		}

		questions := questionsByPlant[key]
		sort.Slice(questions, func(i, j int) bool {
			return questions[i].ImageID < questions[j].ImageID
		})

		base := baseDifficultyByID[key]
		cell := DifficultyCell{Base: base, Overrides: make(map[string]models.Difficulty)}
		var imageIDs, imageFiles []string
		for _, q := range questions {
			if q.ImageID == "" {
				continue
			}
			imageIDs = append(imageIDs, q.ImageID)
			if q.Image != "" {
				imageFiles = append(imageFiles, baseName(q.Image))
			}
			if q.Difficulty != "" && q.Difficulty != base {
				cell.Overrides[q.ImageID] = q.Difficulty
			}
		}

		lines = append(lines, FormatRow([]string{
			key,
			names["ru"],
			names["en"],
			names["nl"],
			sci,
			strconv.Itoa(len(questions)),
			strings.Join(imageIDs, ", "),
			strings.Join(imageFiles, ", "),
			FormatDifficultyCell(cell),
			family,
		}))
	}

	return strings.Join(lines, "\n") + "\n"
}

// MarshalJSON writes the bundle with id-keyed objects in canonical id
// order, so repeated exports of the same data are byte-identical.
func (b *Bundle) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	writeField := func(name string, v any) error {
		if buf.Len() > 1 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return err
		}
		buf.Write(key)
		buf.WriteByte(':')
		body, err := json.Marshal(v)
		if err != nil {
			return err
		}
		buf.Write(body)
		return nil
	}

	writeIDMap := func(name string, m map[string]any) error {
		if buf.Len() > 1 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return err
		}
		buf.Write(key)
		buf.WriteString(":{")
		ids := make([]models.ID, 0, len(m))
		for k := range m {
			ids = append(ids, models.ID(k))
		}
		models.SortIDs(ids)
		for i, id := range ids {
			if i > 0 {
				buf.WriteByte(',')
			}
			k, err := json.Marshal(id.String())
			if err != nil {
				return err
			}
			buf.Write(k)
			buf.WriteByte(':')
			body, err := json.Marshal(m[id.String()])
			if err != nil {
				return err
			}
			buf.Write(body)
		}
		buf.WriteByte('}')
		return nil
	}

	namesAny := make(map[string]any, len(b.PlantNames))
	for k, v := range b.PlantNames {
		namesAny[k] = v
	}
	speciesAny := make(map[string]any, len(b.Species))
	for k, v := range b.Species {
		speciesAny[k] = v
	}
	paramsAny := make(map[string]any, len(b.PlantParameters))
	for k, v := range b.PlantParameters {
		paramsAny[k] = v
	}

	if err := writeIDMap("plantNames", namesAny); err != nil {
		return nil, err
	}
	if err := writeIDMap("species", speciesAny); err != nil {
		return nil, err
	}
	if err := writeField("plantImages", b.PlantImages); err != nil {
		return nil, err
	}
	if err := writeIDMap("plantParameters", paramsAny); err != nil {
		return nil, err
	}
	if err := writeField("plantFamilies", b.PlantFamilies); err != nil {
		return nil, err
	}
	if err := writeField("bouquetQuestions", b.BouquetQuestions); err != nil {
		return nil, err
	}
	if err := writeField("genus", b.Genus); err != nil {
		return nil, err
	}
	if err := writeField("plantQuestions", b.PlantQuestions); err != nil {
		return nil, err
	}
	if err := writeField("difficulties", b.Difficulties); err != nil {
		return nil, err
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}
