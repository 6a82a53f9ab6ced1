package catalog

import (
	"log/slog"
	"sort"

	"github.com/guesstheplant/quiz-engine/internal/models"
)

// SpeciesOverride is one species-catalog record: either a direct patch
// to a seeded species or, when GenusID is set, a delegation to a genus
// template expansion.
type SpeciesOverride struct {
	GenusID      models.ID   `json:"genusId,omitempty"`
	Images       []string    `json:"images,omitempty"`
	WrongAnswers []models.ID `json:"wrongAnswers,omitempty"`
}

// BuildSpecies merges name records, species-catalog overrides and genus
// expansions into the authoritative species table. Malformed or dangling
// records are skipped, not fatal: the source documents are hand-curated
// and incrementally populated.
//
// Override records are applied in canonical id order so repeated builds
// from the same documents produce identical output.
func BuildSpecies(
	names map[models.ID]models.LocalizedNames,
	overrides map[models.ID]*SpeciesOverride,
	genusByID map[models.ID]*models.Genus,
) map[models.ID]*models.Species {
	merged := make(map[models.ID]*models.Species, len(names))

	// Pass 1: seed one entry per name record.
	for id, nm := range names {
		if id.IsZero() || !nm.HasAny() {
			continue
		}
		merged[id] = &models.Species{ID: id, Names: nm}
	}

	// Pass 2: species-catalog overrides in canonical order.
	overrideIDs := make([]models.ID, 0, len(overrides))
	for id := range overrides {
		overrideIDs = append(overrideIDs, id)
	}
	models.SortIDs(overrideIDs)

	for _, id := range overrideIDs {
		entry := overrides[id]
		if entry == nil {
			continue
		}

		if !entry.GenusID.IsZero() {
			genus := genusByID[entry.GenusID]
			if genus == nil {
				slog.Warn("species catalog references unknown genus, skipping", "id", id, "genus_id", entry.GenusID)
				continue
			}
			expandGenus(genus, entry, merged)
			continue
		}

		existing := merged[id]
		if existing == nil {
			// Tolerated: a catalog line for a taxon that has no name
			// record yet. It becomes playable once the name lands.
			continue
		}
		if len(entry.Images) > 0 {
			existing.Images = append([]string(nil), entry.Images...)
		}
		if len(entry.WrongAnswers) > 0 {
			existing.WrongAnswers = append([]models.ID(nil), entry.WrongAnswers...)
		}
	}

	return merged
}

// expandGenus materializes every child template of a genus into the
// merge map. Precedence per field: the child's own value, then the
// catalog line's value (wrong answers only), then the genus default,
// then whatever the seed pass already had. Children that resolve no
// names at all are skipped: an unnamed entity cannot be played.
func expandGenus(genus *models.Genus, line *SpeciesOverride, merged map[models.ID]*models.Species) {
	baseWrongAnswers := line.WrongAnswers
	if len(baseWrongAnswers) == 0 {
		baseWrongAnswers = genus.WrongAnswers
	}

	childIDs := make([]models.ID, 0, len(genus.Entries))
	for childID := range genus.Entries {
		childIDs = append(childIDs, childID)
	}
	models.SortIDs(childIDs)

	for _, childID := range childIDs {
		child := genus.Entries[childID]
		if child == nil {
			continue
		}

		existing := merged[childID]

		names := child.Names
		if !names.HasAny() && existing != nil {
			names = existing.Names
		}
		if !names.HasAny() {
			slog.Warn("genus child has no resolvable names, skipping", "genus", genus.Slug, "child_id", childID)
			continue
		}

		sp := existing
		if sp == nil {
			sp = &models.Species{ID: childID}
			merged[childID] = sp
		}
		sp.Names = names

		if len(child.Images) > 0 {
			sp.Images = append([]string(nil), child.Images...)
		}
		switch {
		case len(child.WrongAnswers) > 0:
			sp.WrongAnswers = append([]models.ID(nil), child.WrongAnswers...)
		case len(baseWrongAnswers) > 0:
			sp.WrongAnswers = append([]models.ID(nil), baseWrongAnswers...)
		}

		// Stamped even on the genus-representative entry itself.
		sp.GenusID = genus.ID
	}
}

// SortedSpeciesIDs returns the species ids in canonical order.
func SortedSpeciesIDs(species map[models.ID]*models.Species) []models.ID {
	ids := make([]models.ID, 0, len(species))
	for id := range species {
		ids = append(ids, id)
	}
	models.SortIDs(ids)
	return ids
}

// NormalizeGenusList validates and keys a decoded genus list, skipping
// records with no id. Entry keys are re-normalized so "13" and 13 land
// on the same child.
func NormalizeGenusList(genera []*models.Genus) (byID map[models.ID]*models.Genus, bySlug map[string]*models.Genus, ordered []*models.Genus) {
	byID = make(map[models.ID]*models.Genus, len(genera))
	bySlug = make(map[string]*models.Genus, len(genera))

	for _, genus := range genera {
		if genus == nil || genus.ID.IsZero() {
			slog.Warn("genus record without id, skipping")
			continue
		}
		normalized := make(map[models.ID]*models.GenusEntry, len(genus.Entries))
		for rawID, entry := range genus.Entries {
			id := models.NormalizeID(rawID.String())
			if id.IsZero() || entry == nil {
				continue
			}
			normalized[id] = entry
		}
		genus.Entries = normalized
		byID[genus.ID] = genus
		if genus.Slug != "" {
			bySlug[genus.Slug] = genus
		}
		ordered = append(ordered, genus)
	}

	sort.Slice(ordered, func(i, j int) bool {
		return models.CompareIDs(ordered[i].ID, ordered[j].ID) < 0
	})
	return byID, bySlug, ordered
}
