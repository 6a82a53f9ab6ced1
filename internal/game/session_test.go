package game

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/guesstheplant/quiz-engine/internal/models"
	"github.com/guesstheplant/quiz-engine/internal/storage"
)

// plantPool builds n single-variant plant question groups for one tier.
func plantPool(n int, difficulty models.Difficulty) []*models.Question {
	pool := make([]*models.Question, 0, n)
	for i := 0; i < n; i++ {
		id := models.ID(string(rune('a' + i)))
		pool = append(pool, &models.Question{
			ID:                id,
			CorrectAnswerID:   id,
			ImageID:           "p" + string(id) + "_0_1",
			Difficulty:        difficulty,
			QuestionVariantID: string(id) + "-0",
			QuestionType:      models.QuestionTypePlant,
			SelectionGroupID:  "plant-" + string(id),
		})
	}
	return pool
}

func bouquetQuestion(id string, difficulty models.Difficulty) *models.Question {
	return &models.Question{
		ID:                models.ID(id),
		CorrectAnswerID:   "a",
		ImageID:           "img_" + id,
		Difficulty:        difficulty,
		QuestionVariantID: id,
		QuestionType:      models.QuestionTypeBouquet,
		SelectionGroupID:  "bouquet-" + id,
	}
}

func newTestTracker(t *testing.T) (*SessionTracker, *storage.MemoryStore) {
	t.Helper()
	store := storage.NewMemoryStore()
	return NewSessionTracker(store, rand.New(rand.NewSource(1))), store
}

func TestSelectRoundQuestionsGroupNeverRepeats(t *testing.T) {
	ctx := context.Background()
	tracker, _ := newTestTracker(t)
	pool := plantPool(8, models.DifficultyEasy)
	round := RoundConfig{ID: 1, Difficulty: models.DifficultyEasy, Questions: 4, PointsPerQuestion: 1}

	first, err := tracker.SelectRoundQuestions(ctx, pool, round)
	if err != nil {
		t.Fatalf("first round: %v", err)
	}
	second, err := tracker.SelectRoundQuestions(ctx, pool, round)
	if err != nil {
		t.Fatalf("second round: %v", err)
	}
	if len(first) != 4 || len(second) != 4 {
		t.Fatalf("round sizes = %d, %d, want 4, 4", len(first), len(second))
	}

	seen := make(map[string]bool)
	for _, q := range first {
		seen[q.SelectionGroupID] = true
	}
	for _, q := range second {
		if seen[q.SelectionGroupID] {
			t.Errorf("group %s selected in both rounds", q.SelectionGroupID)
		}
	}
}

func TestSelectRoundQuestionsPrefersUnseen(t *testing.T) {
	ctx := context.Background()
	tracker, _ := newTestTracker(t)
	pool := plantPool(6, models.DifficultyEasy)

	// Mark half the pool as already shown.
	if err := tracker.MarkImagesSeen(ctx, []string{pool[0].ImageID, pool[1].ImageID, pool[2].ImageID}); err != nil {
		t.Fatalf("MarkImagesSeen: %v", err)
	}

	round := RoundConfig{ID: 1, Difficulty: models.DifficultyEasy, Questions: 3, PointsPerQuestion: 1}
	selected, err := tracker.SelectRoundQuestions(ctx, pool, round)
	if err != nil {
		t.Fatalf("SelectRoundQuestions: %v", err)
	}
	if len(selected) != 3 {
		t.Fatalf("got %d questions, want 3", len(selected))
	}
	for _, q := range selected {
		switch q.ImageID {
		case pool[0].ImageID, pool[1].ImageID, pool[2].ImageID:
			t.Errorf("seen image %s selected while unseen groups remained", q.ImageID)
		}
	}
}

func TestSelectRoundQuestionsFiltersByDifficulty(t *testing.T) {
	ctx := context.Background()
	tracker, _ := newTestTracker(t)
	pool := append(plantPool(3, models.DifficultyEasy), plantPool(3, models.DifficultyHard)...)

	round := RoundConfig{ID: 3, Difficulty: models.DifficultyHard, Questions: 3, PointsPerQuestion: 3}
	selected, err := tracker.SelectRoundQuestions(ctx, pool, round)
	if err != nil {
		t.Fatalf("SelectRoundQuestions: %v", err)
	}
	if len(selected) != 3 {
		t.Fatalf("got %d questions, want 3", len(selected))
	}
	for _, q := range selected {
		if q.Difficulty != models.DifficultyHard {
			t.Errorf("question %s has difficulty %s, want Hard", q.ID, q.Difficulty)
		}
	}
}

func TestSelectRoundQuestionsBouquetQuota(t *testing.T) {
	ctx := context.Background()
	tracker, _ := newTestTracker(t)
	pool := plantPool(10, models.DifficultyMedium)
	pool = append(pool,
		bouquetQuestion("b1", models.DifficultyMedium),
		bouquetQuestion("b2", models.DifficultyMedium),
		bouquetQuestion("b3", models.DifficultyMedium),
	)

	round := RoundConfig{ID: 2, Difficulty: models.DifficultyMedium, Questions: 4, PointsPerQuestion: 2}
	totalBouquets := 0
	for i := 0; i < 3; i++ {
		selected, err := tracker.SelectRoundQuestions(ctx, pool, round)
		if err != nil {
			t.Fatalf("round %d: %v", i, err)
		}
		roundBouquets := 0
		for _, q := range selected {
			if q.QuestionType == models.QuestionTypeBouquet {
				roundBouquets++
			}
		}
		if roundBouquets > BouquetPerRoundLimit {
			t.Errorf("round %d selected %d bouquets, limit is %d", i, roundBouquets, BouquetPerRoundLimit)
		}
		totalBouquets += roundBouquets
	}
	if totalBouquets != BouquetQuestionsTarget {
		t.Errorf("game selected %d bouquets, want %d", totalBouquets, BouquetQuestionsTarget)
	}
}

func TestSelectRoundQuestionsShortRoundLatchesClassicDisabled(t *testing.T) {
	ctx := context.Background()
	tracker, _ := newTestTracker(t)
	pool := plantPool(2, models.DifficultyEasy)

	round := RoundConfig{ID: 1, Difficulty: models.DifficultyEasy, Questions: 6, PointsPerQuestion: 1}
	selected, err := tracker.SelectRoundQuestions(ctx, pool, round)
	if err != nil {
		t.Fatalf("SelectRoundQuestions: %v", err)
	}
	if len(selected) != 2 {
		t.Fatalf("got %d questions, want the whole pool of 2", len(selected))
	}
	disabled, err := tracker.IsClassicDisabled(ctx)
	if err != nil {
		t.Fatalf("IsClassicDisabled: %v", err)
	}
	if !disabled {
		t.Error("short round did not latch the classic-disabled flag")
	}
}

func TestSelectRoundQuestionsPersistsSeenHistory(t *testing.T) {
	ctx := context.Background()
	tracker, store := newTestTracker(t)
	pool := plantPool(4, models.DifficultyEasy)

	round := RoundConfig{ID: 1, Difficulty: models.DifficultyEasy, Questions: 2, PointsPerQuestion: 1}
	selected, err := tracker.SelectRoundQuestions(ctx, pool, round)
	if err != nil {
		t.Fatalf("SelectRoundQuestions: %v", err)
	}

	// A fresh tracker reading the same store must see the played images.
	reloaded := NewSessionTracker(store, rand.New(rand.NewSource(2)))
	for _, q := range selected {
		seen, err := reloaded.IsImageSeen(ctx, q.ImageID)
		if err != nil {
			t.Fatalf("IsImageSeen(%s): %v", q.ImageID, err)
		}
		if !seen {
			t.Errorf("image %s not persisted as seen", q.ImageID)
		}
	}
}

func TestResetUsedTrackingAllowsGroupsAgain(t *testing.T) {
	ctx := context.Background()
	tracker, _ := newTestTracker(t)
	pool := plantPool(3, models.DifficultyEasy)
	round := RoundConfig{ID: 1, Difficulty: models.DifficultyEasy, Questions: 3, PointsPerQuestion: 1}

	if _, err := tracker.SelectRoundQuestions(ctx, pool, round); err != nil {
		t.Fatalf("first game: %v", err)
	}
	// Without a reset the pool is exhausted.
	empty, err := tracker.SelectRoundQuestions(ctx, pool, round)
	if err != nil {
		t.Fatalf("exhausted select: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected no questions before reset, got %d", len(empty))
	}

	tracker.ResetUsedTracking()
	again, err := tracker.SelectRoundQuestions(ctx, pool, round)
	if err != nil {
		t.Fatalf("after reset: %v", err)
	}
	if len(again) != 3 {
		t.Errorf("got %d questions after reset, want 3", len(again))
	}
}

func TestPrepareRoundRecyclesSeenHistory(t *testing.T) {
	ctx := context.Background()
	tracker, store := newTestTracker(t)
	pool := plantPool(3, models.DifficultyEasy)

	var images []string
	for _, q := range pool {
		images = append(images, q.ImageID)
	}
	if err := tracker.MarkImagesSeen(ctx, images); err != nil {
		t.Fatalf("MarkImagesSeen: %v", err)
	}

	// Only the configured round index triggers the reset.
	if err := tracker.PrepareRound(ctx, pool, 1, models.DifficultyEasy); err != nil {
		t.Fatalf("PrepareRound(1): %v", err)
	}
	if seen, _ := tracker.IsImageSeen(ctx, images[0]); !seen {
		t.Fatal("round 1 should not recycle the history")
	}

	if err := tracker.PrepareRound(ctx, pool, 2, models.DifficultyEasy); err != nil {
		t.Fatalf("PrepareRound(2): %v", err)
	}
	if seen, _ := tracker.IsImageSeen(ctx, images[0]); seen {
		t.Error("exhausted opening tier should have been recycled")
	}
	if _, err := store.Get(ctx, SeenImagesKey); err != storage.ErrNotFound {
		t.Errorf("seen-image key still present after recycle: %v", err)
	}
}

func TestPrepareRoundKeepsHistoryWhileUnseenRemain(t *testing.T) {
	ctx := context.Background()
	tracker, _ := newTestTracker(t)
	pool := plantPool(3, models.DifficultyEasy)

	if err := tracker.MarkImagesSeen(ctx, []string{pool[0].ImageID}); err != nil {
		t.Fatalf("MarkImagesSeen: %v", err)
	}
	if err := tracker.PrepareRound(ctx, pool, 2, models.DifficultyEasy); err != nil {
		t.Fatalf("PrepareRound: %v", err)
	}
	if seen, _ := tracker.IsImageSeen(ctx, pool[0].ImageID); !seen {
		t.Error("history recycled despite unseen opening-tier images")
	}
}

func TestClearSeenImagesReenablesClassic(t *testing.T) {
	ctx := context.Background()
	tracker, store := newTestTracker(t)

	if err := tracker.MarkImagesSeen(ctx, []string{"pa_0_1"}); err != nil {
		t.Fatalf("MarkImagesSeen: %v", err)
	}
	if err := store.Set(ctx, ClassicDisabledKey, "1"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	if err := tracker.ClearSeenImages(ctx); err != nil {
		t.Fatalf("ClearSeenImages: %v", err)
	}
	if seen, _ := tracker.IsImageSeen(ctx, "pa_0_1"); seen {
		t.Error("image still seen after clear")
	}
	disabled, err := tracker.IsClassicDisabled(ctx)
	if err != nil {
		t.Fatalf("IsClassicDisabled: %v", err)
	}
	if disabled {
		t.Error("classic mode still disabled after clear")
	}
}

func TestLoadSeenToleratesCorruptHistory(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	if err := store.Set(ctx, SeenImagesKey, "{not json"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	tracker := NewSessionTracker(store, rand.New(rand.NewSource(1)))
	seen, err := tracker.IsImageSeen(ctx, "pa_0_1")
	if err != nil {
		t.Fatalf("IsImageSeen: %v", err)
	}
	if seen {
		t.Error("corrupt history should read as empty")
	}
}

// flakyStore fails the first Get and then behaves like its backing
// store.
type flakyStore struct {
	*storage.MemoryStore
	failed bool
}

func (s *flakyStore) Get(ctx context.Context, key string) (string, error) {
	if !s.failed {
		s.failed = true
		return "", errors.New("store unavailable")
	}
	return s.MemoryStore.Get(ctx, key)
}

func TestSeenHistorySurvivesTransientStoreFailure(t *testing.T) {
	ctx := context.Background()

	backing := storage.NewMemoryStore()
	if err := backing.Set(ctx, SeenImagesKey, `["pa_0_1"]`); err != nil {
		t.Fatalf("Set: %v", err)
	}

	store := &flakyStore{MemoryStore: backing}
	tracker := NewSessionTracker(store, rand.New(rand.NewSource(1)))

	// The failed read surfaces instead of passing for an empty history.
	if _, err := tracker.IsImageSeen(ctx, "pa_0_1"); err == nil {
		t.Fatal("expected error from failed history read")
	}

	// Once the store recovers, the persisted history comes through.
	seen, err := tracker.IsImageSeen(ctx, "pa_0_1")
	if err != nil {
		t.Fatalf("IsImageSeen after recovery: %v", err)
	}
	if !seen {
		t.Error("persisted image reported unseen after store recovery")
	}
}
