package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/guesstheplant/quiz-engine/internal/models"
)

// Mode selects how the normalizer treats malformed data. The runtime
// loader runs lenient (warn and skip, keep serving what parses); the
// data tooling runs strict (first defect aborts with a non-zero exit).
type Mode int

const (
	ModeLenient Mode = iota
	ModeStrict
)

// FlexibleIDList decodes either a JSON array of ids (numbers or
// strings) or a single comma-separated string.
type FlexibleIDList []models.ID

func (l *FlexibleIDList) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*l = nil
		return nil
	}
	if trimmed[0] == '[' {
		var raw []models.ID
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return err
		}
		*l = FlexibleIDList(raw)
		return nil
	}
	var s string
	if err := json.Unmarshal(trimmed, &s); err != nil {
		// A bare number is also accepted as a one-element list.
		var n json.Number
		if err2 := json.Unmarshal(trimmed, &n); err2 != nil {
			return err
		}
		s = n.String()
	}
	var out FlexibleIDList
	for _, part := range strings.Split(s, ",") {
		if id := models.NormalizeID(part); !id.IsZero() {
			out = append(out, id)
		}
	}
	*l = out
	return nil
}

// RawImageEntry decodes one image cell of a plant record: a bare source
// string, or an object with optional explicit id and difficulty.
type RawImageEntry struct {
	ID         models.ID
	Src        string
	Difficulty string
	present    bool
}

func (e *RawImageEntry) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		e.Src = s
		e.present = true
		return nil
	}
	var obj struct {
		ID         models.ID       `json:"id"`
		ImageID    models.ID       `json:"imageId"`
		Src        string          `json:"src"`
		Image      string          `json:"image"`
		File       string          `json:"file"`
		FileName   string          `json:"fileName"`
		Difficulty json.RawMessage `json:"difficulty"`
	}
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return err
	}
	e.ID = obj.ID
	if e.ID.IsZero() {
		e.ID = obj.ImageID
	}
	for _, src := range []string{obj.Src, obj.Image, obj.File, obj.FileName} {
		if src != "" {
			e.Src = src
			break
		}
	}
	if len(obj.Difficulty) > 0 && !bytes.Equal(bytes.TrimSpace(obj.Difficulty), []byte("null")) {
		var s string
		if err := json.Unmarshal(obj.Difficulty, &s); err != nil {
			return err
		}
		e.Difficulty = s
	}
	e.present = true
	return nil
}

// RawPlantEntry is one unnormalized record of the editable catalog.
type RawPlantEntry struct {
	ID           models.ID         `json:"id"`
	Names        map[string]string `json:"names"`
	Difficulty   string            `json:"difficulty"`
	WrongAnswers FlexibleIDList    `json:"wrongAnswers"`
	Images       []RawImageEntry   `json:"images"`
}

// PlantDataDocument is the editable nested catalog file as authored.
type PlantDataDocument struct {
	DifficultyLevels map[string]string         `json:"difficultyLevels"`
	Plants           map[string]*RawPlantEntry `json:"plants"`
}

// NormalizedPlant is one cleaned catalog record.
type NormalizedPlant struct {
	ID           models.ID             `json:"id"`
	Names        models.LocalizedNames `json:"names"`
	Difficulty   models.Difficulty     `json:"difficulty,omitempty"`
	WrongAnswers []models.ID           `json:"wrongAnswers,omitempty"`
	Images       []models.Image        `json:"images,omitempty"`
}

// NormalizeStats summarizes one normalization run.
type NormalizeStats struct {
	PlantCount       int
	ImageCount       int
	SkippedCount     int
	DifficultyCounts map[models.Difficulty]int
}

// NormalizedPlantData is the cleaned catalog in canonical id order.
type NormalizedPlantData struct {
	DifficultyLevels map[string]string
	Plants           []NormalizedPlant
	Stats            NormalizeStats
}

// defaultDifficultyLevels labels the tiers for display.
var defaultDifficultyLevels = map[string]string{
	"Easy":   "Easy",
	"Medium": "Medium",
	"Hard":   "Hard",
}

// Normalizer cleans nested catalog documents. The same code path backs
// the runtime loader and the CLI tooling; only Mode differs.
type Normalizer struct {
	Mode Mode
}

// fail reports a data defect: fatal in strict mode, a warning (with
// nil error) in lenient mode. Callers skip the offending record when
// the returned error is nil.
func (n *Normalizer) fail(format string, args ...any) error {
	if n.Mode == ModeStrict {
		return fmt.Errorf(format, args...)
	}
	slog.Warn(fmt.Sprintf(format, args...))
	return nil
}

// Normalize cleans the whole document. Plants are processed and
// returned in canonical id order so repeated runs produce identical
// output. Cross-record image id collisions with diverging sources are
// defects; identical re-declarations of the same image are not.
func (n *Normalizer) Normalize(doc *PlantDataDocument) (*NormalizedPlantData, error) {
	if doc == nil {
		return nil, fmt.Errorf("expected a plant catalog document")
	}

	out := &NormalizedPlantData{
		DifficultyLevels: normalizeDifficultyLevels(doc.DifficultyLevels),
		Stats:            NormalizeStats{DifficultyCounts: make(map[models.Difficulty]int)},
	}

	keys := make([]models.ID, 0, len(doc.Plants))
	for key := range doc.Plants {
		keys = append(keys, models.ID(key))
	}
	models.SortIDs(keys)

	seenImages := make(map[string]string) // image id -> src
	seenPlants := make(map[models.ID]bool)

	for _, key := range keys {
		entry := doc.Plants[string(key)]
		plant, err := n.normalizePlant(key, entry, seenImages)
		if err != nil {
			return nil, err
		}
		if plant == nil {
			out.Stats.SkippedCount++
			continue
		}
		if seenPlants[plant.ID] {
			if err := n.fail("duplicate plant id %s", plant.ID); err != nil {
				return nil, err
			}
			out.Stats.SkippedCount++
			continue
		}
		seenPlants[plant.ID] = true
		out.Plants = append(out.Plants, *plant)
		out.Stats.PlantCount++
		out.Stats.ImageCount += len(plant.Images)
		for _, img := range plant.Images {
			if img.Difficulty != "" {
				out.Stats.DifficultyCounts[img.Difficulty]++
			}
		}
	}

	return out, nil
}

func (n *Normalizer) normalizePlant(key models.ID, entry *RawPlantEntry, seenImages map[string]string) (*NormalizedPlant, error) {
	if entry == nil {
		return nil, n.fail("plant record %s must be an object", key)
	}

	id := entry.ID
	if id.IsZero() {
		id = models.NormalizeID(key.String())
	}
	if id.IsZero() {
		return nil, n.fail("plant record under key %q has no id", key)
	}

	baseDifficulty, ok := models.ParseDifficulty(entry.Difficulty)
	if !ok {
		if err := n.fail("plant %s: unknown difficulty %q", id, entry.Difficulty); err != nil {
			return nil, err
		}
		baseDifficulty = ""
	}

	plant := &NormalizedPlant{
		ID:           id,
		Names:        normalizeNames(entry.Names),
		Difficulty:   baseDifficulty,
		WrongAnswers: dedupeIDs(entry.WrongAnswers),
	}

	seenLocal := make(map[string]bool)
	for i, raw := range entry.Images {
		if !raw.present {
			continue
		}
		imageID := raw.ID.String()
		if imageID == "" {
			imageID = GenerateImageID(id, len(plant.Images))
		}
		if seenLocal[imageID] {
			if err := n.fail("plant %s repeats image id %s", id, imageID); err != nil {
				return nil, err
			}
			continue
		}

		src := ResolveImageSource(raw.Src, imageID)
		if src == "" {
			if err := n.fail("plant %s image %d has no resolvable source", id, i+1); err != nil {
				return nil, err
			}
			continue
		}
		if prev, taken := seenImages[imageID]; taken && prev != src {
			if err := n.fail("image id %s already maps to %s, plant %s redeclares it as %s", imageID, prev, id, src); err != nil {
				return nil, err
			}
			continue
		}

		diff, ok := models.ParseDifficulty(raw.Difficulty)
		if !ok {
			if err := n.fail("plant %s image %s: unknown difficulty %q", id, imageID, raw.Difficulty); err != nil {
				return nil, err
			}
			diff = ""
		}
		if diff == "" {
			diff = baseDifficulty
		}

		seenLocal[imageID] = true
		seenImages[imageID] = src
		plant.Images = append(plant.Images, models.Image{ID: imageID, Src: src, Difficulty: diff})
	}

	sortImages(plant.Images)
	return plant, nil
}

// ResolveImageSource canonicalizes an image path under images/ and
// falls back to images/<id>.JPG when no path was given.
func ResolveImageSource(rawSource, fallbackID string) string {
	src := strings.TrimSpace(rawSource)
	src = strings.Trim(src, `"'`)
	if src != "" {
		src = strings.TrimPrefix(src, "./")
		src = strings.TrimPrefix(src, "/")
		if !strings.HasPrefix(src, "images/") {
			src = "images/" + src
		}
		return src
	}
	if fallbackID == "" {
		return ""
	}
	return "images/" + fallbackID + ".JPG"
}

func normalizeNames(raw map[string]string) models.LocalizedNames {
	names := make(models.LocalizedNames, len(raw))
	for key, value := range raw {
		v := strings.TrimSpace(strings.Trim(strings.TrimSpace(value), `"'`))
		if v != "" {
			names[key] = v
		}
	}
	return names
}

func normalizeDifficultyLevels(raw map[string]string) map[string]string {
	levels := make(map[string]string, len(defaultDifficultyLevels))
	for key, label := range defaultDifficultyLevels {
		levels[key] = label
	}
	for key, value := range raw {
		// Source documents spell the tier keys inconsistently
		// (MEDIUM, medium, Medium). Canonicalize before matching.
		d, ok := models.ParseDifficulty(key)
		if !ok || d == "" {
			continue
		}
		if v := strings.TrimSpace(value); v != "" {
			levels[string(d)] = v
		}
	}
	return levels
}

func dedupeIDs(ids []models.ID) []models.ID {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[models.ID]bool, len(ids))
	out := make([]models.ID, 0, len(ids))
	for _, raw := range ids {
		id := models.NormalizeID(raw.String())
		if id.IsZero() || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func sortImages(images []models.Image) {
	for i := 1; i < len(images); i++ {
		for j := i; j > 0 && images[j].ID < images[j-1].ID; j-- {
			images[j], images[j-1] = images[j-1], images[j]
		}
	}
}

// MarshalJSON renders the normalized catalog with plants as an object
// in canonical id order, matching the on-disk layout of the editable
// file.
func (d *NormalizedPlantData) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"difficultyLevels":`)
	if err := encodeSortedStringMap(&buf, d.DifficultyLevels); err != nil {
		return nil, err
	}
	buf.WriteString(`,"plants":{`)
	for i, plant := range d.Plants {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(plant.ID.String())
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		body, err := json.Marshal(plant)
		if err != nil {
			return nil, err
		}
		buf.Write(body)
	}
	buf.WriteString("}}")
	return buf.Bytes(), nil
}

func encodeSortedStringMap(buf *bytes.Buffer, m map[string]string) error {
	// Fixed tier order first, anything else alphabetically after.
	ordered := make([]string, 0, len(m))
	for _, d := range models.DifficultyOrder {
		if _, ok := m[string(d)]; ok {
			ordered = append(ordered, string(d))
		}
	}
	extra := make([]string, 0)
	for key := range m {
		if _, valid := models.ParseDifficulty(key); valid && models.Difficulty(key).IsValid() {
			continue
		}
		extra = append(extra, key)
	}
	for i := 1; i < len(extra); i++ {
		for j := i; j > 0 && extra[j] < extra[j-1]; j-- {
			extra[j], extra[j-1] = extra[j-1], extra[j]
		}
	}
	ordered = append(ordered, extra...)

	buf.WriteByte('{')
	for i, key := range ordered {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return err
		}
		buf.Write(k)
		buf.WriteByte(':')
		v, err := json.Marshal(m[key])
		if err != nil {
			return err
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return nil
}

// Derived returns the normalized catalog split into the flat loader
// documents: the name table, the species overrides, the image manifest
// and the difficulty buckets keyed by tier.
func (d *NormalizedPlantData) Derived() (names map[models.ID]models.LocalizedNames, overrides map[models.ID]*SpeciesOverride, images []ImageRecord, difficulties DifficultySource) {
	names = make(map[models.ID]models.LocalizedNames, len(d.Plants))
	overrides = make(map[models.ID]*SpeciesOverride, len(d.Plants))
	difficulties = DifficultySource{
		QuestionIDs: make(DifficultyBuckets),
		ImageIDs:    make(DifficultyBuckets),
	}

	for _, plant := range d.Plants {
		if plant.Names.HasAny() {
			names[plant.ID] = plant.Names
		}
		ov := &SpeciesOverride{WrongAnswers: plant.WrongAnswers}
		for _, img := range plant.Images {
			ov.Images = append(ov.Images, img.ID)
			images = append(images, ImageRecord{ID: img.ID, Src: img.Src})
			if img.Difficulty != "" && img.Difficulty != plant.Difficulty {
				difficulties.ImageIDs.Add(models.QuestionTypePlant, img.Difficulty, models.ID(img.ID))
			}
		}
		if plant.Difficulty != "" {
			difficulties.QuestionIDs.Add(models.QuestionTypePlant, plant.Difficulty, plant.ID)
		}
		if len(ov.Images) > 0 || len(ov.WrongAnswers) > 0 {
			overrides[plant.ID] = ov
		}
	}
	return names, overrides, images, difficulties
}
