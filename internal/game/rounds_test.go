package game

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/guesstheplant/quiz-engine/internal/models"
)

func TestDefaultRounds(t *testing.T) {
	rounds := DefaultRounds()
	if len(rounds) != 3 {
		t.Fatalf("got %d rounds, want 3", len(rounds))
	}

	want := []struct {
		difficulty models.Difficulty
		questions  int
		points     int
	}{
		{models.DifficultyEasy, 6, 1},
		{models.DifficultyMedium, 7, 2},
		{models.DifficultyHard, 5, 3},
	}
	for i, w := range want {
		r := rounds[i]
		if r.Difficulty != w.difficulty || r.Questions != w.questions || r.PointsPerQuestion != w.points {
			t.Errorf("round %d = %+v, want %v/%d/%d", i+1, r, w.difficulty, w.questions, w.points)
		}
	}

	if got := MaxScore(rounds); got != 35 {
		t.Errorf("MaxScore = %d, want 35", got)
	}
}

func TestLoadRoundsEmptyPathUsesDefaults(t *testing.T) {
	rounds, err := LoadRounds("")
	if err != nil {
		t.Fatalf("LoadRounds: %v", err)
	}
	if len(rounds) != len(DefaultRounds()) {
		t.Errorf("got %d rounds, want the default %d", len(rounds), len(DefaultRounds()))
	}
}

func TestLoadRoundsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rounds.yaml")
	content := `rounds:
  - difficulty: Easy
    questions: 4
    points_per_question: 1
  - id: 7
    difficulty: Hard
    questions: 2
    points_per_question: 5
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	rounds, err := LoadRounds(path)
	if err != nil {
		t.Fatalf("LoadRounds: %v", err)
	}
	if len(rounds) != 2 {
		t.Fatalf("got %d rounds, want 2", len(rounds))
	}
	if rounds[0].ID != 1 {
		t.Errorf("missing id defaulted to %d, want 1", rounds[0].ID)
	}
	if rounds[1].ID != 7 {
		t.Errorf("explicit id = %d, want 7", rounds[1].ID)
	}
	if rounds[1].Difficulty != models.DifficultyHard || rounds[1].Questions != 2 || rounds[1].PointsPerQuestion != 5 {
		t.Errorf("round 2 parsed as %+v", rounds[1])
	}
	if got := MaxScore(rounds); got != 14 {
		t.Errorf("MaxScore = %d, want 14", got)
	}
}

func TestLoadRoundsRejectsBrokenOverrides(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"invalid difficulty", "rounds:\n  - difficulty: Brutal\n    questions: 4\n    points_per_question: 1\n"},
		{"zero questions", "rounds:\n  - difficulty: Easy\n    questions: 0\n    points_per_question: 1\n"},
		{"zero points", "rounds:\n  - difficulty: Easy\n    questions: 4\n    points_per_question: 0\n"},
		{"no rounds", "rounds: []\n"},
		{"not yaml", "{{{\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "rounds.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			if _, err := LoadRounds(path); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestLoadRoundsMissingFile(t *testing.T) {
	if _, err := LoadRounds(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected an error for a missing file")
	}
}
