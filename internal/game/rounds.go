package game

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/guesstheplant/quiz-engine/internal/models"
)

// RoundConfig defines one classic-mode round.
type RoundConfig struct {
	ID                int               `yaml:"id" json:"id"`
	Difficulty        models.Difficulty `yaml:"difficulty" json:"difficulty"`
	Questions         int               `yaml:"questions" json:"questions"`
	PointsPerQuestion int               `yaml:"points_per_question" json:"pointsPerQuestion"`
}

// Endless-mode scoring. A session fails when the running score drops
// below zero.
const (
	EndlessCorrectPoints = 1
	EndlessWrongPoints   = -2
)

// Classic-mode bouquet quota.
const (
	BouquetQuestionsTarget = 2 // per game
	BouquetPerRoundLimit   = 1
)

// DefaultRounds is the shipped classic-mode progression.
func DefaultRounds() []RoundConfig {
	return []RoundConfig{
		{ID: 1, Difficulty: models.DifficultyEasy, Questions: 6, PointsPerQuestion: 1},
		{ID: 2, Difficulty: models.DifficultyMedium, Questions: 7, PointsPerQuestion: 2},
		{ID: 3, Difficulty: models.DifficultyHard, Questions: 5, PointsPerQuestion: 3},
	}
}

// roundsFile is the YAML shape of an optional rounds override file.
type roundsFile struct {
	Rounds []RoundConfig `yaml:"rounds"`
}

// LoadRounds reads a rounds config file, falling back to the shipped
// progression when path is empty. Every round must carry a valid
// difficulty and positive sizes; a broken override file is an error
// rather than a silent fallback.
func LoadRounds(path string) ([]RoundConfig, error) {
	if path == "" {
		return DefaultRounds(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rounds config: %w", err)
	}

	var rf roundsFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("failed to parse rounds config: %w", err)
	}
	if len(rf.Rounds) == 0 {
		return nil, fmt.Errorf("rounds config %s defines no rounds", path)
	}

	for i := range rf.Rounds {
		round := &rf.Rounds[i]
		if round.ID == 0 {
			round.ID = i + 1
		}
		if !round.Difficulty.IsValid() {
			return nil, fmt.Errorf("round %d: invalid difficulty %q", round.ID, round.Difficulty)
		}
		if round.Questions <= 0 {
			return nil, fmt.Errorf("round %d: question count must be positive", round.ID)
		}
		if round.PointsPerQuestion <= 0 {
			return nil, fmt.Errorf("round %d: points per question must be positive", round.ID)
		}
	}

	return rf.Rounds, nil
}

// MaxScore returns the best possible classic-mode total.
func MaxScore(rounds []RoundConfig) int {
	total := 0
	for _, round := range rounds {
		total += round.Questions * round.PointsPerQuestion
	}
	return total
}
