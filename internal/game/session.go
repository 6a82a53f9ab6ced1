package game

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"sync"

	"github.com/guesstheplant/quiz-engine/internal/apperr"
	"github.com/guesstheplant/quiz-engine/internal/models"
	"github.com/guesstheplant/quiz-engine/internal/storage"
)

// Persisted-state keys. The "gtp-" prefix is shared with the browser
// clients so a migrated profile keeps its history.
const (
	SeenImagesKey             = "gtp-seen-image-ids"
	InterfaceLanguageKey      = "gtp-default-language"
	PlantLanguageKey          = "gtp-plant-language"
	ClassicDisabledKey        = "gtp-classic-disabled"
	MemorizationCollectionKey = "gtp-memorization-collection"
	MemorizationFilterKey     = "gtp-memorization-filter"
)

// rotationResetRound is the round index (zero-based) before which the
// seen-image history is recycled once the opening tier runs dry.
const rotationResetRound = 2

// SessionTracker holds one play session's rotation state: species used
// this game, and the seen-image history persisted across sessions. A
// tracker is constructed per session and passed to every round
// selection, never shared between sessions.
type SessionTracker struct {
	mu    sync.Mutex
	store storage.KeyValueStore
	rng   *rand.Rand

	usedGroupIDs     map[string]bool
	bouquetRemaining int

	seen       map[string]bool
	seenLoaded bool
}

func NewSessionTracker(store storage.KeyValueStore, rng *rand.Rand) *SessionTracker {
	return &SessionTracker{
		store:            store,
		rng:              rng,
		usedGroupIDs:     make(map[string]bool),
		bouquetRemaining: BouquetQuestionsTarget,
		seen:             make(map[string]bool),
	}
}

// ResetUsedTracking clears the per-game state. Must be called at the
// start of every new game; it is not automatic.
func (t *SessionTracker) ResetUsedTracking() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.usedGroupIDs = make(map[string]bool)
	t.bouquetRemaining = BouquetQuestionsTarget
}

// loadSeenLocked lazily reads the persisted seen-image history.
func (t *SessionTracker) loadSeenLocked(ctx context.Context) error {
	if t.seenLoaded {
		return nil
	}

	raw, err := t.store.Get(ctx, SeenImagesKey)
	if errors.Is(err, storage.ErrNotFound) {
		t.seenLoaded = true
		return nil
	}
	if err != nil {
		// Not latched: a transient store failure must not pass for an
		// empty history on the next call.
		return apperr.Storage(err, "failed to read seen-image history")
	}
	t.seenLoaded = true

	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		// A corrupt history only costs rotation fairness.
		return nil
	}
	for _, id := range ids {
		if id != "" {
			t.seen[id] = true
		}
	}
	return nil
}

func (t *SessionTracker) persistSeenLocked(ctx context.Context) error {
	if len(t.seen) == 0 {
		if err := t.store.Remove(ctx, SeenImagesKey); err != nil {
			return apperr.Storage(err, "failed to clear seen-image history")
		}
		return nil
	}

	ids := make([]string, 0, len(t.seen))
	for id := range t.seen {
		ids = append(ids, id)
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return apperr.Storage(err, "failed to encode seen-image history")
	}
	if err := t.store.Set(ctx, SeenImagesKey, string(data)); err != nil {
		return apperr.Storage(err, "failed to persist seen-image history")
	}
	return nil
}

// IsImageSeen reports whether the player has already been shown an
// image.
func (t *SessionTracker) IsImageSeen(ctx context.Context, imageID string) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.loadSeenLocked(ctx); err != nil {
		return false, err
	}
	return t.seen[imageID], nil
}

// MarkImagesSeen records images as shown and persists the history.
func (t *SessionTracker) MarkImagesSeen(ctx context.Context, imageIDs []string) error {
	if len(imageIDs) == 0 {
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.loadSeenLocked(ctx); err != nil {
		return err
	}

	changed := false
	for _, id := range imageIDs {
		if id != "" && !t.seen[id] {
			t.seen[id] = true
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return t.persistSeenLocked(ctx)
}

// ClearSeenImages wipes the seen-image history and re-enables classic
// mode.
func (t *SessionTracker) ClearSeenImages(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.loadSeenLocked(ctx); err != nil {
		return err
	}
	t.seen = make(map[string]bool)
	if err := t.store.Remove(ctx, SeenImagesKey); err != nil {
		return apperr.Storage(err, "failed to clear seen-image history")
	}
	if err := t.store.Remove(ctx, ClassicDisabledKey); err != nil {
		return apperr.Storage(err, "failed to clear the classic-mode flag")
	}
	return nil
}

// HasUnseenForDifficulty reports whether a tier still holds any image
// the player has not seen.
func (t *SessionTracker) HasUnseenForDifficulty(ctx context.Context, pool []*models.Question, difficulty models.Difficulty) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.loadSeenLocked(ctx); err != nil {
		return false, err
	}
	for _, q := range pool {
		if q.Difficulty == difficulty && !t.seen[q.ImageID] {
			return true, nil
		}
	}
	return false, nil
}

// PrepareRound applies the rotation reset rule: before the third round,
// if the opening tier has no unseen images left, the whole seen history
// is recycled so a finished play-through can start fresh.
func (t *SessionTracker) PrepareRound(ctx context.Context, pool []*models.Question, roundIndex int, openingDifficulty models.Difficulty) error {
	if roundIndex != rotationResetRound {
		return nil
	}
	unseen, err := t.HasUnseenForDifficulty(ctx, pool, openingDifficulty)
	if err != nil {
		return err
	}
	if unseen {
		return nil
	}
	return t.ClearSeenImages(ctx)
}

// IsClassicDisabled reports the persisted pool-exhaustion latch.
func (t *SessionTracker) IsClassicDisabled(ctx context.Context) (bool, error) {
	value, err := t.store.Get(ctx, ClassicDisabledKey)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, apperr.Storage(err, "failed to read the classic-mode flag")
	}
	return value == "1", nil
}

func (t *SessionTracker) markClassicDisabled(ctx context.Context) error {
	if err := t.store.Set(ctx, ClassicDisabledKey, "1"); err != nil {
		return apperr.Storage(err, "failed to persist the classic-mode flag")
	}
	return nil
}

// questionGroup is one species (or bouquet) with its variants, exactly
// one of which can be played per game.
type questionGroup struct {
	id      string
	bouquet bool
	unseen  []*models.Question
	seen    []*models.Question
}

// SelectRoundQuestions picks the questions for one round. Candidates
// are grouped by selection group so a species never appears twice in a
// game; groups with unseen images are preferred over fully-seen ones;
// bouquet groups are rationed by the per-round and per-game quotas.
// The round may come back shorter than requested when the pool cannot
// supply enough distinct groups — that also latches the classic-mode
// disabled flag so the client can steer players to endless mode.
func (t *SessionTracker) SelectRoundQuestions(ctx context.Context, pool []*models.Question, round RoundConfig) ([]*models.Question, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.loadSeenLocked(ctx); err != nil {
		return nil, err
	}

	groups := make(map[string]*questionGroup)
	var order []string
	for _, q := range pool {
		if q.Difficulty != round.Difficulty {
			continue
		}
		groupID := q.SelectionGroupID
		if groupID == "" {
			groupID = q.QuestionVariantID
		}
		if t.usedGroupIDs[groupID] {
			continue
		}
		g := groups[groupID]
		if g == nil {
			g = &questionGroup{id: groupID, bouquet: q.QuestionType == models.QuestionTypeBouquet}
			groups[groupID] = g
			order = append(order, groupID)
		}
		if t.seen[q.ImageID] {
			g.seen = append(g.seen, q)
		} else {
			g.unseen = append(g.unseen, q)
		}
	}

	var unseenGroups, seenGroups []*questionGroup
	bouquetBudget := min(BouquetPerRoundLimit, t.bouquetRemaining)
	for _, id := range order {
		g := groups[id]
		if g.bouquet {
			continue
		}
		if len(g.unseen) > 0 {
			unseenGroups = append(unseenGroups, g)
		} else {
			seenGroups = append(seenGroups, g)
		}
	}
	t.shuffleGroups(unseenGroups)
	t.shuffleGroups(seenGroups)

	var bouquets []*questionGroup
	for _, id := range order {
		if g := groups[id]; g.bouquet {
			bouquets = append(bouquets, g)
		}
	}
	t.shuffleGroups(bouquets)
	if len(bouquets) > bouquetBudget {
		bouquets = bouquets[:bouquetBudget]
	}

	desired := round.Questions
	if desired <= 0 || desired > len(groups) {
		desired = len(groups)
	}

	selected := make([]*models.Question, 0, desired)
	var seenImages []string
	bouquetCount := 0

	take := func(g *questionGroup) {
		variants := g.unseen
		if len(variants) == 0 {
			variants = g.seen
		}
		q := variants[t.rng.Intn(len(variants))]
		selected = append(selected, q)
		t.usedGroupIDs[g.id] = true
		seenImages = append(seenImages, q.ImageID)
		if g.bouquet {
			bouquetCount++
		}
	}

	for _, g := range bouquets {
		if len(selected) >= desired {
			break
		}
		take(g)
	}
	for _, g := range append(unseenGroups, seenGroups...) {
		if len(selected) >= desired {
			break
		}
		take(g)
	}

	t.bouquetRemaining -= bouquetCount

	if len(selected) < round.Questions {
		if err := t.markClassicDisabled(ctx); err != nil {
			return nil, err
		}
	}

	if err := func() error {
		if len(seenImages) == 0 {
			return nil
		}
		for _, id := range seenImages {
			t.seen[id] = true
		}
		return t.persistSeenLocked(ctx)
	}(); err != nil {
		return nil, err
	}

	t.rng.Shuffle(len(selected), func(i, j int) {
		selected[i], selected[j] = selected[j], selected[i]
	})
	return selected, nil
}

func (t *SessionTracker) shuffleGroups(groups []*questionGroup) {
	t.rng.Shuffle(len(groups), func(i, j int) {
		groups[i], groups[j] = groups[j], groups[i]
	})
}
