package importer

import (
	"testing"

	"github.com/guesstheplant/quiz-engine/internal/models"
)

func TestParseCSV(t *testing.T) {
	tests := []struct {
		name string
		text string
		want [][]string
	}{
		{
			"plain rows",
			"a,b,c\nd,e,f\n",
			[][]string{{"a", "b", "c"}, {"d", "e", "f"}},
		},
		{
			"quoted comma",
			"1,\"Rose, climbing\",x\n",
			[][]string{{"1", "Rose, climbing", "x"}},
		},
		{
			"doubled quotes",
			"1,\"say \"\"hi\"\"\"\n",
			[][]string{{"1", `say "hi"`}},
		},
		{
			"quoted newline",
			"1,\"line one\nline two\",x\n",
			[][]string{{"1", "line one\nline two", "x"}},
		},
		{
			"crlf line endings",
			"a,b\r\nc,d\r\n",
			[][]string{{"a", "b"}, {"c", "d"}},
		},
		{
			"no trailing newline",
			"a,b\nc,d",
			[][]string{{"a", "b"}, {"c", "d"}},
		},
		{
			"blank rows dropped",
			"a,b\n,\n\nc,d\n",
			[][]string{{"a", "b"}, {"c", "d"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseCSV(tt.text)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d rows, want %d: %q", len(got), len(tt.want), got)
			}
			for i := range tt.want {
				if len(got[i]) != len(tt.want[i]) {
					t.Fatalf("row %d has %d cells, want %d: %q", i, len(got[i]), len(tt.want[i]), got[i])
				}
				for j := range tt.want[i] {
					if got[i][j] != tt.want[i][j] {
						t.Errorf("cell [%d][%d] = %q, want %q", i, j, got[i][j], tt.want[i][j])
					}
				}
			}
		})
	}
}

func TestFormatRowEscaping(t *testing.T) {
	got := FormatRow([]string{"1", "Rose, climbing", `say "hi"`, ""})
	want := `1,"Rose, climbing","say ""hi""",`
	if got != want {
		t.Errorf("FormatRow = %q, want %q", got, want)
	}
}

func TestFormatRowRoundTripsThroughParse(t *testing.T) {
	cells := []string{"13_1", "Лук, резанец", "multi\nline", "plain"}
	rows := ParseCSV(FormatRow(cells) + "\n")
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	for i, cell := range cells {
		if rows[0][i] != cell {
			t.Errorf("cell %d = %q, want %q", i, rows[0][i], cell)
		}
	}
}

func TestParseDifficultyCell(t *testing.T) {
	tests := []struct {
		name          string
		cell          string
		wantBase      models.Difficulty
		wantOverrides map[string]models.Difficulty
	}{
		{"empty", "", "", nil},
		{"null", "null", "", nil},
		{"base only", "easy", models.DifficultyEasy, nil},
		{"case insensitive", "HARD", models.DifficultyHard, nil},
		{
			"base with overrides",
			"Easy (overrides: p13_0_2:Hard, p13_0_3:Medium)",
			models.DifficultyEasy,
			map[string]models.Difficulty{"p13_0_2": models.DifficultyHard, "p13_0_3": models.DifficultyMedium},
		},
		{
			"null base with overrides",
			"null (overrides: p2_0_1:easy)",
			"",
			map[string]models.Difficulty{"p2_0_1": models.DifficultyEasy},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDifficultyCell(tt.cell)
			if err != nil {
				t.Fatalf("ParseDifficultyCell(%q): %v", tt.cell, err)
			}
			if got.Base != tt.wantBase {
				t.Errorf("base = %q, want %q", got.Base, tt.wantBase)
			}
			if len(got.Overrides) != len(tt.wantOverrides) {
				t.Fatalf("overrides = %v, want %v", got.Overrides, tt.wantOverrides)
			}
			for id, level := range tt.wantOverrides {
				if got.Overrides[id] != level {
					t.Errorf("override %s = %q, want %q", id, got.Overrides[id], level)
				}
			}
		})
	}
}

func TestParseDifficultyCellRejectsUnknownTier(t *testing.T) {
	if _, err := ParseDifficultyCell("Brutal"); err == nil {
		t.Error("unknown base tier accepted")
	}
	if _, err := ParseDifficultyCell("Easy (overrides: p1_0_1:Brutal)"); err == nil {
		t.Error("unknown override tier accepted")
	}
}

func TestFormatDifficultyCellRoundTrip(t *testing.T) {
	cell := DifficultyCell{
		Base: models.DifficultyEasy,
		Overrides: map[string]models.Difficulty{
			"p13_0_2": models.DifficultyHard,
			"p2_0_1":  models.DifficultyMedium,
		},
	}

	formatted := FormatDifficultyCell(cell)
	want := "Easy (overrides: p13_0_2:Hard, p2_0_1:Medium)"
	if formatted != want {
		t.Errorf("FormatDifficultyCell = %q, want %q", formatted, want)
	}

	parsed, err := ParseDifficultyCell(formatted)
	if err != nil {
		t.Fatalf("ParseDifficultyCell: %v", err)
	}
	if parsed.Base != cell.Base || len(parsed.Overrides) != len(cell.Overrides) {
		t.Errorf("round trip lost data: %+v", parsed)
	}

	if got := FormatDifficultyCell(DifficultyCell{}); got != "null" {
		t.Errorf("empty cell formats as %q, want null", got)
	}
}
