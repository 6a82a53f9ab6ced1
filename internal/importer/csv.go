package importer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/guesstheplant/quiz-engine/internal/models"
)

// ParseCSV parses quote-aware comma-separated text: quoted cells may
// contain commas, newlines and doubled quotes. Rows with no non-blank
// cell are dropped. The hand-maintained sheets are exported with
// enough quirks that encoding/csv's strictness gets in the way here.
func ParseCSV(text string) [][]string {
	var rows [][]string
	var row []string
	var current strings.Builder
	inQuotes := false

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		ch := runes[i]
		var next rune
		if i+1 < len(runes) {
			next = runes[i+1]
		}

		switch {
		case inQuotes:
			if ch == '"' {
				if next == '"' {
					current.WriteRune('"')
					i++
				} else {
					inQuotes = false
				}
			} else {
				current.WriteRune(ch)
			}
		case ch == '"':
			inQuotes = true
		case ch == ',':
			row = append(row, current.String())
			current.Reset()
		case ch == '\n' || ch == '\r':
			if ch == '\r' && next == '\n' {
				i++
			}
			row = append(row, current.String())
			rows = append(rows, row)
			row = nil
			current.Reset()
		default:
			current.WriteRune(ch)
		}
	}
	if current.Len() > 0 || strings.HasSuffix(text, ",") || strings.HasSuffix(text, "\n") {
		row = append(row, current.String())
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}

	filtered := rows[:0]
	for _, r := range rows {
		for _, cell := range r {
			if strings.TrimSpace(cell) != "" {
				filtered = append(filtered, r)
				break
			}
		}
	}
	return filtered
}

// EscapeCell quotes a CSV cell when it needs quoting.
func EscapeCell(value string) string {
	if value == "" {
		return ""
	}
	if strings.ContainsAny(value, "\",\n") {
		return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
	}
	return value
}

// FormatRow renders one CSV line.
func FormatRow(cells []string) string {
	escaped := make([]string, len(cells))
	for i, cell := range cells {
		escaped[i] = EscapeCell(cell)
	}
	return strings.Join(escaped, ",")
}

// DifficultyCell is the decomposed legacy difficulty column: a base
// tier plus per-image overrides, all packed into one cell as
// "Base (overrides: imageId:Level, imageId:Level)".
type DifficultyCell struct {
	Base      models.Difficulty
	Overrides map[string]models.Difficulty
}

// ParseDifficultyCell decodes the combined cell. Unknown tier labels
// are fatal: this is authoring-mistake territory, exactly what the
// importer exists to catch.
func ParseDifficultyCell(cell string) (DifficultyCell, error) {
	out := DifficultyCell{Overrides: make(map[string]models.Difficulty)}

	raw := strings.TrimSpace(cell)
	if raw == "" || strings.EqualFold(raw, "null") {
		return out, nil
	}

	base := raw
	if open := strings.Index(strings.ToLower(raw), "(overrides:"); open >= 0 {
		base = strings.TrimSpace(raw[:open])
		part := raw[open+len("(overrides:"):]
		part = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(part), ")"))
		for _, segment := range strings.Split(part, ",") {
			imageID, label, found := strings.Cut(segment, ":")
			if !found {
				continue
			}
			imageID = strings.TrimSpace(imageID)
			label = strings.TrimSpace(label)
			if imageID == "" || label == "" {
				continue
			}
			level, ok := models.ParseDifficulty(label)
			if !ok || level == "" {
				return out, fmt.Errorf("unknown difficulty %q for image %s", label, imageID)
			}
			out.Overrides[imageID] = level
		}
	}

	if base != "" && !strings.EqualFold(base, "null") {
		level, ok := models.ParseDifficulty(base)
		if !ok || level == "" {
			return out, fmt.Errorf("unknown difficulty %q", base)
		}
		out.Base = level
	}
	return out, nil
}

// FormatDifficultyCell re-encodes the combined cell, overrides in
// canonical image-id order.
func FormatDifficultyCell(cell DifficultyCell) string {
	base := "null"
	if cell.Base != "" {
		base = string(cell.Base)
	}
	if len(cell.Overrides) == 0 {
		return base
	}

	imageIDs := make([]string, 0, len(cell.Overrides))
	for id := range cell.Overrides {
		imageIDs = append(imageIDs, id)
	}
	sort.Slice(imageIDs, func(i, j int) bool {
		return models.CompareIDs(models.ID(imageIDs[i]), models.ID(imageIDs[j])) < 0
	})

	parts := make([]string, len(imageIDs))
	for i, id := range imageIDs {
		parts[i] = id + ":" + string(cell.Overrides[id])
	}
	return fmt.Sprintf("%s (overrides: %s)", base, strings.Join(parts, ", "))
}
