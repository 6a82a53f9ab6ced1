package game

import (
	"context"
	"math/rand"

	"github.com/guesstheplant/quiz-engine/internal/apperr"
	"github.com/guesstheplant/quiz-engine/internal/catalog"
	"github.com/guesstheplant/quiz-engine/internal/models"
)

// Phase is the engine's coarse state.
type Phase string

const (
	PhasePlaying      Phase = "playing"
	PhaseRoundSummary Phase = "roundSummary"
	PhaseComplete     Phase = "complete"
	PhaseFailed       Phase = "failed"
)

// QuestionView is one question as shown to a player: the image, the
// prompt key and the shuffled answer options.
type QuestionView struct {
	Question      *models.Question     `json:"question"`
	Options       []models.ID          `json:"options"`
	RoundIndex    int                  `json:"roundIndex"`
	QuestionIndex int                  `json:"questionIndex"`
	QuestionCount int                  `json:"questionCount"`
	OptionNames   map[models.ID]string `json:"optionNames,omitempty"`
}

// AnswerOutcome reports one graded answer.
type AnswerOutcome struct {
	Correct         bool      `json:"correct"`
	CorrectAnswerID models.ID `json:"correctAnswerId"`
	PointsChange    int       `json:"pointsChange"`
	Score           int       `json:"score"`
	Phase           Phase     `json:"phase"`
}

// RoundSummary reports one finished classic round.
type RoundSummary struct {
	Round      RoundConfig `json:"round"`
	RoundScore int         `json:"roundScore"`
	Total      int         `json:"total"`
	Mistakes   []models.ID `json:"mistakes,omitempty"`
}

// Engine runs one play session. It is not safe for concurrent use; the
// transport layer serializes calls per session.
type Engine struct {
	mode     models.GameMode
	catalog  *catalog.Catalog
	rounds   []RoundConfig
	tracker  *SessionTracker
	selector *DistractorSelector
	rng      *rand.Rand
	lang     string

	phase          Phase
	roundIndex     int
	queue          []*models.Question
	questionIndex  int
	currentOptions []models.ID
	score          int
	roundScore     int
	mistakes       []models.ID
}

func NewEngine(c *catalog.Catalog, rounds []RoundConfig, tracker *SessionTracker, rng *rand.Rand, lang string) *Engine {
	if lang == "" {
		lang = "en"
	}
	return &Engine{
		catalog:  c,
		rounds:   rounds,
		tracker:  tracker,
		selector: NewDistractorSelector(c, rng),
		rng:      rng,
		lang:     lang,
		phase:    PhaseComplete,
	}
}

// Start begins a new game in the given mode, resetting per-game
// rotation state.
func (e *Engine) Start(ctx context.Context, mode models.GameMode) error {
	e.tracker.ResetUsedTracking()
	e.mode = mode
	e.score = 0
	e.roundIndex = 0
	e.questionIndex = 0
	e.roundScore = 0
	e.mistakes = nil
	e.phase = PhasePlaying

	switch mode {
	case models.ModeClassic:
		disabled, err := e.tracker.IsClassicDisabled(ctx)
		if err != nil {
			return err
		}
		if disabled {
			return apperr.GameLogic(nil, "classic mode is exhausted for this profile; play endless or reset the seen history")
		}
		return e.startRound(ctx)
	case models.ModeEndless:
		e.queue = append([]*models.Question(nil), e.catalog.Questions()...)
		e.rng.Shuffle(len(e.queue), func(i, j int) {
			e.queue[i], e.queue[j] = e.queue[j], e.queue[i]
		})
		if len(e.queue) == 0 {
			e.phase = PhaseComplete
		}
		return nil
	default:
		return apperr.GameLogic(nil, "unknown game mode %q", mode)
	}
}

func (e *Engine) startRound(ctx context.Context) error {
	if e.roundIndex >= len(e.rounds) {
		e.phase = PhaseComplete
		return nil
	}

	round := e.rounds[e.roundIndex]
	if err := e.tracker.PrepareRound(ctx, e.catalog.Questions(), e.roundIndex, e.rounds[0].Difficulty); err != nil {
		return err
	}

	selected, err := e.tracker.SelectRoundQuestions(ctx, e.catalog.Questions(), round)
	if err != nil {
		return err
	}
	if len(selected) == 0 {
		e.phase = PhaseComplete
		return apperr.GameLogic(nil, "no questions available for round %d (%s)", round.ID, round.Difficulty)
	}

	e.queue = selected
	e.questionIndex = 0
	e.roundScore = 0
	e.mistakes = nil
	e.phase = PhasePlaying
	return nil
}

// Phase returns the engine's current state.
func (e *Engine) Phase() Phase { return e.phase }

// Score returns the running total.
func (e *Engine) Score() int { return e.score }

// Mode returns the active game mode.
func (e *Engine) Mode() models.GameMode { return e.mode }

// RoundIndex returns the zero-based index of the current round.
func (e *Engine) RoundIndex() int { return e.roundIndex }

// CurrentQuestion returns the question in play, with freshly rolled
// answer options on first access.
func (e *Engine) CurrentQuestion() (*QuestionView, error) {
	if e.phase != PhasePlaying {
		return nil, apperr.GameLogic(nil, "no question in play (phase %s)", e.phase)
	}
	if e.questionIndex >= len(e.queue) {
		return nil, apperr.GameLogic(nil, "question index out of range")
	}

	q := e.queue[e.questionIndex]
	if e.currentOptions == nil {
		e.currentOptions = e.selector.BuildOptions(q, DefaultDistractorCount)
	}

	names := make(map[models.ID]string, len(e.currentOptions))
	for _, id := range e.currentOptions {
		names[id] = e.catalog.ChoiceName(id, e.lang)
	}

	return &QuestionView{
		Question:      q,
		Options:       append([]models.ID(nil), e.currentOptions...),
		RoundIndex:    e.roundIndex,
		QuestionIndex: e.questionIndex,
		QuestionCount: len(e.queue),
		OptionNames:   names,
	}, nil
}

// Answer grades the current question and advances the game.
func (e *Engine) Answer(ctx context.Context, selected models.ID) (*AnswerOutcome, error) {
	if e.phase != PhasePlaying {
		return nil, apperr.GameLogic(nil, "cannot answer in phase %s", e.phase)
	}
	if e.questionIndex >= len(e.queue) {
		return nil, apperr.GameLogic(nil, "no question in play")
	}

	q := e.queue[e.questionIndex]
	correct := selected == q.CorrectAnswerID

	var points int
	switch e.mode {
	case models.ModeEndless:
		if correct {
			points = EndlessCorrectPoints
		} else {
			points = EndlessWrongPoints
		}
	default:
		if correct {
			points = e.rounds[e.roundIndex].PointsPerQuestion
		}
	}

	e.score += points
	e.roundScore += points
	if !correct {
		e.mistakes = append(e.mistakes, q.CorrectAnswerID)
	}

	e.currentOptions = nil
	e.questionIndex++

	outcome := &AnswerOutcome{
		Correct:         correct,
		CorrectAnswerID: q.CorrectAnswerID,
		PointsChange:    points,
		Score:           e.score,
	}

	if e.mode == models.ModeEndless {
		switch {
		case e.score < 0:
			e.phase = PhaseFailed
		case e.questionIndex >= len(e.queue):
			e.phase = PhaseComplete
		}
		outcome.Phase = e.phase
		return outcome, nil
	}

	if e.questionIndex >= len(e.queue) {
		e.phase = PhaseRoundSummary
	}
	outcome.Phase = e.phase
	return outcome, nil
}

// FinishRound closes a classic round after its summary was shown and
// starts the next one. The summary carries the per-round score for
// persistence.
func (e *Engine) FinishRound(ctx context.Context) (*RoundSummary, error) {
	if e.phase != PhaseRoundSummary {
		return nil, apperr.GameLogic(nil, "no round to finish (phase %s)", e.phase)
	}

	round := e.rounds[e.roundIndex]
	summary := &RoundSummary{
		Round:      round,
		RoundScore: e.roundScore,
		Total:      round.Questions * round.PointsPerQuestion,
		Mistakes:   append([]models.ID(nil), e.mistakes...),
	}

	e.roundIndex++
	if e.roundIndex >= len(e.rounds) {
		e.phase = PhaseComplete
		return summary, nil
	}
	if err := e.startRound(ctx); err != nil {
		return summary, err
	}
	return summary, nil
}
