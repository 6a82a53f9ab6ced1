package game

import (
	"math/rand"

	"github.com/guesstheplant/quiz-engine/internal/catalog"
	"github.com/guesstheplant/quiz-engine/internal/models"
)

// DefaultDistractorCount is how many wrong options a question shows.
const DefaultDistractorCount = 3

// DistractorSelector builds the answer options shown alongside a
// question. The rand source is injected so tests can pin the shuffle.
type DistractorSelector struct {
	catalog *catalog.Catalog
	rng     *rand.Rand
}

func NewDistractorSelector(c *catalog.Catalog, rng *rand.Rand) *DistractorSelector {
	return &DistractorSelector{catalog: c, rng: rng}
}

// exclusionKey groups ids that must never face each other as answer and
// distractor: a species shares its key with every member of its genus.
func (s *DistractorSelector) exclusionKey(id models.ID) models.ID {
	if sp := s.catalog.SpeciesByID[id]; sp != nil && !sp.GenusID.IsZero() {
		return sp.GenusID
	}
	return id
}

// BuildOptions returns the answer ids for a question, correct answer
// included, in randomized order. Authored wrong answers are preferred;
// the global pool tops up whatever is missing. When the catalog cannot
// supply enough eligible candidates the list is simply shorter.
func (s *DistractorSelector) BuildOptions(q *models.Question, poolMax int) []models.ID {
	if poolMax <= 0 {
		poolMax = DefaultDistractorCount
	}

	correctID := q.CorrectAnswerID
	targetKey := s.exclusionKey(correctID)

	eligible := func(id models.ID) bool {
		return id != correctID && s.exclusionKey(id) != targetKey
	}

	var wrongIDs []models.ID
	chosen := map[models.ID]bool{correctID: true}

	if len(q.WrongAnswers) > 0 {
		authored := make([]models.ID, 0, len(q.WrongAnswers))
		for _, id := range q.WrongAnswers {
			if eligible(id) && !chosen[id] {
				authored = append(authored, id)
				chosen[id] = true
			}
		}
		if len(authored) > poolMax {
			s.shuffle(authored)
			for _, id := range authored[poolMax:] {
				delete(chosen, id)
			}
			authored = authored[:poolMax]
		}
		wrongIDs = authored
	}

	if len(wrongIDs) < poolMax {
		var available []models.ID
		for _, id := range s.catalog.AllChoiceIDs() {
			if eligible(id) && !chosen[id] {
				available = append(available, id)
			}
		}
		s.shuffle(available)
		for _, id := range available {
			if len(wrongIDs) >= poolMax {
				break
			}
			wrongIDs = append(wrongIDs, id)
			chosen[id] = true
		}
	}

	options := append([]models.ID{correctID}, wrongIDs...)
	s.shuffle(options)
	return options
}

// shuffle is an in-place Fisher-Yates over ids.
func (s *DistractorSelector) shuffle(ids []models.ID) {
	s.rng.Shuffle(len(ids), func(i, j int) {
		ids[i], ids[j] = ids[j], ids[i]
	})
}
