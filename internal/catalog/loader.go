package catalog

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/guesstheplant/quiz-engine/internal/models"
)

// MemorizationEntry is one flashcard: a species plus the image shown on
// its card.
type MemorizationEntry struct {
	ID      models.ID             `json:"id"`
	ImageID string                `json:"imageId,omitempty"`
	Image   string                `json:"image,omitempty"`
	Names   models.LocalizedNames `json:"names,omitempty"`
}

// memorizationFile is the raw memorization.json shape.
type memorizationFile struct {
	PlantParameters map[string]*models.PlantParameters `json:"plantParameters"`
	Genus           []*models.Genus                    `json:"genus"`
	Plants          []MemorizationEntry                `json:"plants"`
}

// Catalog is the fully derived game data bundle. Built once per load;
// read-only afterwards, so it is safe to share across handlers.
type Catalog struct {
	Table    *DifficultyTable
	Registry *ImageRegistry

	Names       map[models.ID]models.LocalizedNames
	SpeciesByID map[models.ID]*models.Species
	GenusByID   map[models.ID]*models.Genus
	GenusBySlug map[string]*models.Genus

	Plants   []*models.Question
	Bouquets []*models.Question

	Memorization    []MemorizationEntry
	ParametersByID  map[models.ID]*models.PlantParameters
	ParameterTags   []models.ParameterTag
	DifficultyNames map[string]string
}

// AllChoiceIDs returns every answerable species id in canonical order.
// This is the distractor pool. Built from the merged species table, not
// the raw name document: genus children named only inside their genus
// file are playable and must be sampleable.
func (c *Catalog) AllChoiceIDs() []models.ID {
	ids := make([]models.ID, 0, len(c.SpeciesByID))
	for id := range c.SpeciesByID {
		ids = append(ids, id)
	}
	models.SortIDs(ids)
	return ids
}

// Questions returns plants and bouquets as one list.
func (c *Catalog) Questions() []*models.Question {
	out := make([]*models.Question, 0, len(c.Plants)+len(c.Bouquets))
	out = append(out, c.Plants...)
	return append(out, c.Bouquets...)
}

// ChoiceName resolves the display name of an answer option, preferring
// the merged species names so genus-sourced children label correctly.
func (c *Catalog) ChoiceName(id models.ID, lang string) string {
	if sp := c.SpeciesByID[id]; sp != nil {
		return sp.Names.Resolve(lang)
	}
	return c.Names[id].Resolve(lang)
}

// Families returns the distinct family names found in the flashcard
// parameters, sorted.
func (c *Catalog) Families() []string {
	seen := make(map[string]bool)
	var families []string
	for _, params := range c.ParametersByID {
		family := strings.TrimSpace(params.Family)
		if family == "" || seen[family] {
			continue
		}
		seen[family] = true
		families = append(families, family)
	}
	sort.Strings(families)
	return families
}

// Documents carries the decoded source files for a catalog build.
type Documents struct {
	Names        map[models.ID]models.LocalizedNames
	Species      map[models.ID]*SpeciesOverride
	Genera       []*models.Genus
	Images       []ImageRecord
	Difficulties DifficultySource
	Bouquets     []models.BouquetDefinition
	Memorization memorizationFile
	Tags         []models.ParameterTag
}

// Build assembles the derived bundle from decoded documents. Pure with
// respect to its inputs: calling it twice with the same documents
// yields identical catalogs.
func Build(docs Documents) *Catalog {
	table := BuildDifficultyTable(docs.Difficulties)
	registry := BuildImageRegistry(docs.Images, table)

	genusByID, genusBySlug, _ := NormalizeGenusList(append(docs.Genera, docs.Memorization.Genus...))
	species := BuildSpecies(docs.Names, docs.Species, genusByID)

	c := &Catalog{
		Table:           table,
		Registry:        registry,
		Names:           docs.Names,
		SpeciesByID:     species,
		GenusByID:       genusByID,
		GenusBySlug:     genusBySlug,
		Plants:          BuildPlantQuestions(species, registry, table),
		Bouquets:        BuildBouquetQuestions(docs.Bouquets, docs.Names, table),
		ParametersByID:  make(map[models.ID]*models.PlantParameters, len(docs.Memorization.PlantParameters)),
		ParameterTags:   docs.Tags,
		DifficultyNames: normalizeDifficultyLevels(docs.Difficulties.Levels),
	}

	for rawID, params := range docs.Memorization.PlantParameters {
		id := models.NormalizeID(rawID)
		if id.IsZero() || params == nil {
			continue
		}
		c.ParametersByID[id] = params
	}

	for _, entry := range docs.Memorization.Plants {
		entry.ID = models.NormalizeID(entry.ID.String())
		if entry.ID.IsZero() {
			slog.Warn("memorization entry without id, skipping")
			continue
		}
		if entry.Image == "" && entry.ImageID != "" {
			if img := registry.Lookup(entry.ImageID); img != nil {
				entry.Image = img.Src
			}
		}
		if entry.Names == nil {
			entry.Names = docs.Names[entry.ID]
		}
		c.Memorization = append(c.Memorization, entry)
	}

	return c
}

// Loader reads the JSON data directory and keeps the current catalog.
// Loading runs lenient: a malformed optional document is logged and
// skipped so the rest of the catalog still serves.
type Loader struct {
	mu      sync.RWMutex
	catalog *Catalog
}

func NewLoader() *Loader {
	return &Loader{catalog: Build(Documents{})}
}

// Catalog returns the most recently loaded bundle.
func (l *Loader) Catalog() *Catalog {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.catalog
}

// LoadFromDir reads every known document under dir and rebuilds the
// catalog. Only the name table is mandatory; every other document is
// optional and merely narrows what the game can serve.
func (l *Loader) LoadFromDir(dir string) error {
	slog.Info("loading catalog data", "dir", dir)

	var docs Documents

	var rawNames map[string]models.LocalizedNames
	if err := readJSONFile(filepath.Join(dir, "plantNames.json"), &rawNames); err != nil {
		return fmt.Errorf("failed to load plant names: %w", err)
	}
	docs.Names = make(map[models.ID]models.LocalizedNames, len(rawNames))
	for rawID, names := range rawNames {
		id := models.NormalizeID(rawID)
		if id.IsZero() || !names.HasAny() {
			slog.Warn("name record invalid, skipping", "key", rawID)
			continue
		}
		docs.Names[id] = names
	}

	var rawSpecies map[string]*SpeciesOverride
	if loadOptional(dir, "speciesCatalog.json", &rawSpecies) {
		docs.Species = make(map[models.ID]*SpeciesOverride, len(rawSpecies))
		for rawID, entry := range rawSpecies {
			if id := models.NormalizeID(rawID); !id.IsZero() {
				docs.Species[id] = entry
			}
		}
	}

	loadOptional(dir, "difficulties.json", &docs.Difficulties)
	loadOptional(dir, "plantImages.json", &docs.Images)
	loadOptional(dir, "bouquetQuestions.json", &docs.Bouquets)
	loadOptional(dir, "memorization.json", &docs.Memorization)

	var tagConfig struct {
		Tags []models.ParameterTag `json:"tags"`
	}
	if loadOptional(dir, "plantParameters.json", &tagConfig) {
		docs.Tags = tagConfig.Tags
	}
	docs.Genera = append(docs.Genera, loadGenusDir(filepath.Join(dir, "genus"))...)

	var extraGenera []*models.Genus
	if loadOptional(dir, "genus.json", &extraGenera) {
		docs.Genera = append(docs.Genera, extraGenera...)
	}

	catalog := Build(docs)

	l.mu.Lock()
	l.catalog = catalog
	l.mu.Unlock()

	slog.Info("catalog loaded",
		"species", len(catalog.SpeciesByID),
		"images", catalog.Registry.Len(),
		"plant_questions", len(catalog.Plants),
		"bouquet_questions", len(catalog.Bouquets),
		"memorization", len(catalog.Memorization))
	return nil
}

// loadGenusDir reads every genus document from a genus/ subdirectory.
// Each file holds either one genus object or a list.
func loadGenusDir(dir string) []*models.Genus {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	var genera []*models.Genus
	for _, entry := range entries {
		if entry.IsDir() || strings.ToLower(filepath.Ext(entry.Name())) != ".json" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			slog.Warn("failed to read genus file", "file", path, "error", err)
			continue
		}
		trimmed := strings.TrimSpace(string(data))
		if strings.HasPrefix(trimmed, "[") {
			var list []*models.Genus
			if err := json.Unmarshal(data, &list); err != nil {
				slog.Warn("failed to parse genus file", "file", path, "error", err)
				continue
			}
			genera = append(genera, list...)
			continue
		}
		var one models.Genus
		if err := json.Unmarshal(data, &one); err != nil {
			slog.Warn("failed to parse genus file", "file", path, "error", err)
			continue
		}
		genera = append(genera, &one)
	}
	return genera
}

// loadOptional reads a document if present, reporting whether it
// decoded. Parse failures are warnings, not fatal.
func loadOptional(dir, name string, v any) bool {
	path := filepath.Join(dir, name)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return false
	}
	if err := readJSONFile(path, v); err != nil {
		slog.Warn("failed to load data file", "file", name, "error", err)
		return false
	}
	return true
}

func readJSONFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse JSON: %w", err)
	}
	return nil
}
