package models

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
)

// ID is a catalog identifier. Canonical form is a string: plain numeric
// ids ("13"), compound genus-child ids ("13_1") and opaque slugs all
// share one key space. Two spellings of the same logical id (13 vs "13",
// spreadsheet artifacts like ="13") normalize to the same ID.
type ID string

// NormalizeID canonicalizes a raw identifier cell. It strips spreadsheet
// formula wrappers (="123") and wrapping quotes, then trims whitespace.
// It never fails; empty input yields the empty ID, which callers treat
// as "no identifier".
func NormalizeID(raw string) ID {
	return ID(stripWrappingQuotes(raw))
}

// ParseIDValue normalizes an identifier decoded from JSON, which may
// arrive as a float64, an int, or a string.
func ParseIDValue(v interface{}) ID {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return NormalizeID(value)
	case float64:
		return ID(strconv.FormatInt(int64(value), 10))
	case int:
		return ID(strconv.Itoa(value))
	case int64:
		return ID(strconv.FormatInt(value, 10))
	case json.Number:
		return NormalizeID(value.String())
	default:
		return ""
	}
}

func stripWrappingQuotes(raw string) string {
	trimmed := strings.TrimSpace(raw)

	// Spreadsheet exports wrap ids in a formula: ="123" or ='123'.
	if strings.HasPrefix(trimmed, "=") && len(trimmed) > 2 {
		quote := trimmed[1]
		if quote == '"' || quote == '\'' {
			if end := strings.LastIndexByte(trimmed, quote); end > 1 {
				trimmed = strings.TrimSpace(trimmed[2:end])
			}
		}
	}
	if strings.HasPrefix(trimmed, "=") && len(trimmed) > 1 {
		if candidate := strings.TrimSpace(trimmed[1:]); candidate != "" {
			trimmed = candidate
		}
	}

	isQuote := func(b byte) bool { return b == '"' || b == '\'' }
	for len(trimmed) > 1 && isQuote(trimmed[0]) && isQuote(trimmed[len(trimmed)-1]) {
		trimmed = strings.TrimSpace(trimmed[1 : len(trimmed)-1])
	}
	if len(trimmed) > 0 && isQuote(trimmed[0]) {
		trimmed = strings.TrimSpace(trimmed[1:])
	}
	if len(trimmed) > 0 && isQuote(trimmed[len(trimmed)-1]) {
		trimmed = strings.TrimSpace(trimmed[:len(trimmed)-1])
	}

	return trimmed
}

// IsZero reports whether the ID carries no identifier.
func (id ID) IsZero() bool {
	return id == ""
}

// IsNumeric reports whether the ID is a plain numeric id.
func (id ID) IsNumeric() bool {
	return isNumeric(string(id))
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// String returns the canonical string form.
func (id ID) String() string {
	return string(id)
}

// MarshalJSON emits plain numeric ids as JSON numbers, matching the
// hand-authored source documents; everything else is a string.
func (id ID) MarshalJSON() ([]byte, error) {
	if id.IsNumeric() {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// UnmarshalJSON accepts a JSON number or string.
func (id *ID) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*id = ""
		return nil
	}
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = NormalizeID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = NormalizeID(n.String())
	return nil
}

type idPart struct {
	numeric bool
	number  int64
	text    string
}

type parsedID struct {
	numericHead bool
	head        int64
	raw         string
	suffix      []idPart
}

func parseIDParts(id ID) parsedID {
	raw := string(id)
	parts := strings.Split(raw, "_")
	parsed := parsedID{raw: raw}
	if isNumeric(parts[0]) {
		parsed.numericHead = true
		parsed.head, _ = strconv.ParseInt(parts[0], 10, 64)
	}
	for _, part := range parts[1:] {
		if isNumeric(part) {
			n, _ := strconv.ParseInt(part, 10, 64)
			parsed.suffix = append(parsed.suffix, idPart{numeric: true, number: n})
		} else {
			parsed.suffix = append(parsed.suffix, idPart{text: part})
		}
	}
	return parsed
}

// CompareIDs orders catalog ids: numeric-headed ids sort numerically
// before non-numeric ids; ids sharing a numeric head sort the bare id
// first, then suffix parts component-wise with numeric parts before
// string parts at the same position.
func CompareIDs(a, b ID) int {
	ap, bp := parseIDParts(a), parseIDParts(b)

	switch {
	case ap.numericHead && bp.numericHead:
		if ap.head != bp.head {
			if ap.head < bp.head {
				return -1
			}
			return 1
		}
		return compareSuffix(ap.suffix, bp.suffix)
	case ap.numericHead:
		return -1
	case bp.numericHead:
		return 1
	default:
		return strings.Compare(ap.raw, bp.raw)
	}
}

func compareSuffix(a, b []idPart) int {
	for i := 0; i < len(a) || i < len(b); i++ {
		if i >= len(a) {
			return -1
		}
		if i >= len(b) {
			return 1
		}
		ap, bp := a[i], b[i]
		switch {
		case ap.numeric && bp.numeric:
			if ap.number != bp.number {
				if ap.number < bp.number {
					return -1
				}
				return 1
			}
		case ap.numeric:
			return -1
		case bp.numeric:
			return 1
		default:
			if c := strings.Compare(ap.text, bp.text); c != 0 {
				return c
			}
		}
	}
	return 0
}

// SortIDs sorts ids in place using CompareIDs.
func SortIDs(ids []ID) {
	sort.Slice(ids, func(i, j int) bool {
		return CompareIDs(ids[i], ids[j]) < 0
	})
}
