package catalog

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/guesstheplant/quiz-engine/internal/models"
)

// ImageRecord is one raw image-manifest entry.
type ImageRecord struct {
	ID  string `json:"id"`
	Src string `json:"src"`
}

// ImageRegistry resolves image ids to renderable image metadata.
type ImageRegistry struct {
	byID map[string]*models.Image
}

// BuildImageRegistry indexes the manifest. Records missing an id or a
// source are dropped with a warning. Duplicate ids keep the later record
// so a manifest appended to in place behaves like an edit.
func BuildImageRegistry(records []ImageRecord, table *DifficultyTable) *ImageRegistry {
	byID := make(map[string]*models.Image, len(records))
	for _, rec := range records {
		if rec.ID == "" || rec.Src == "" {
			slog.Warn("image record missing id or src, skipping", "id", rec.ID, "src", rec.Src)
			continue
		}
		if _, dup := byID[rec.ID]; dup {
			slog.Warn("duplicate image id, later record wins", "image_id", rec.ID)
		}
		img := &models.Image{ID: rec.ID, Src: rec.Src}
		if table != nil {
			img.Difficulty = table.ImageDifficulty(rec.ID, models.QuestionTypePlant)
		}
		byID[rec.ID] = img
	}
	return &ImageRegistry{byID: byID}
}

// Lookup returns the image for an id, or nil when unregistered.
func (r *ImageRegistry) Lookup(id string) *models.Image {
	if r == nil {
		return nil
	}
	return r.byID[id]
}

// Len reports how many images are registered.
func (r *ImageRegistry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.byID)
}

// IDs returns all registered image ids, unordered.
func (r *ImageRegistry) IDs() []string {
	if r == nil {
		return nil
	}
	ids := make([]string, 0, len(r.byID))
	for id := range r.byID {
		ids = append(ids, id)
	}
	return ids
}

// GenerateImageID derives the canonical id for the n-th (zero-based)
// image of a species. Plain species ids get a "_0" variant marker so
// generated ids never collide with those of an explicit variant:
// species 13 yields p13_0_1, p13_0_2, ...; species 13_1 yields
// p13_1_1, p13_1_2, ...
func GenerateImageID(speciesID models.ID, index int) string {
	prefix := speciesID.String()
	if !strings.Contains(prefix, "_") {
		prefix += "_0"
	}
	return fmt.Sprintf("p%s_%d", prefix, index+1)
}
