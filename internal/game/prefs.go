package game

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/guesstheplant/quiz-engine/internal/apperr"
	"github.com/guesstheplant/quiz-engine/internal/models"
	"github.com/guesstheplant/quiz-engine/internal/storage"
)

// Preferences persists the player's language choices and the
// memorization collection behind the key-value store.
type Preferences struct {
	store storage.KeyValueStore
}

func NewPreferences(store storage.KeyValueStore) *Preferences {
	return &Preferences{store: store}
}

func (p *Preferences) getString(ctx context.Context, key string) (string, error) {
	value, err := p.store.Get(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", apperr.Storage(err, "failed to read preference %s", key)
	}
	return value, nil
}

// InterfaceLanguage returns the stored interface language, or "" when
// unset or no longer valid.
func (p *Preferences) InterfaceLanguage(ctx context.Context) (string, error) {
	value, err := p.getString(ctx, InterfaceLanguageKey)
	if err != nil {
		return "", err
	}
	if value != "" && !contains(models.InterfaceLanguages, value) {
		return "", nil
	}
	return value, nil
}

// SetInterfaceLanguage validates and stores the interface language.
func (p *Preferences) SetInterfaceLanguage(ctx context.Context, lang string) error {
	if !contains(models.InterfaceLanguages, lang) {
		return apperr.GameLogic(nil, "language %q is not a supported interface language", lang)
	}
	if err := p.store.Set(ctx, InterfaceLanguageKey, lang); err != nil {
		return apperr.Storage(err, "failed to persist the interface language")
	}
	return nil
}

// PlantLanguage returns the stored plant-name language, or "" when
// unset or no longer valid.
func (p *Preferences) PlantLanguage(ctx context.Context) (string, error) {
	value, err := p.getString(ctx, PlantLanguageKey)
	if err != nil {
		return "", err
	}
	if value != "" && !contains(models.PlantLanguages, value) {
		return "", nil
	}
	return value, nil
}

// SetPlantLanguage validates and stores the plant-name language.
func (p *Preferences) SetPlantLanguage(ctx context.Context, lang string) error {
	if !contains(models.PlantLanguages, lang) {
		return apperr.GameLogic(nil, "language %q is not a supported plant-name language", lang)
	}
	if err := p.store.Set(ctx, PlantLanguageKey, lang); err != nil {
		return apperr.Storage(err, "failed to persist the plant-name language")
	}
	return nil
}

// MemorizationCollection returns the user-curated flashcard id list.
func (p *Preferences) MemorizationCollection(ctx context.Context) ([]models.ID, error) {
	raw, err := p.getString(ctx, MemorizationCollectionKey)
	if err != nil || raw == "" {
		return nil, err
	}
	var ids []models.ID
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		// Corrupt collection: start over rather than brick the mode.
		return nil, nil
	}
	return ids, nil
}

// SetMemorizationCollection stores the flashcard id list; an empty
// list removes the key.
func (p *Preferences) SetMemorizationCollection(ctx context.Context, ids []models.ID) error {
	if len(ids) == 0 {
		if err := p.store.Remove(ctx, MemorizationCollectionKey); err != nil {
			return apperr.Storage(err, "failed to clear the memorization collection")
		}
		return nil
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return apperr.Storage(err, "failed to encode the memorization collection")
	}
	if err := p.store.Set(ctx, MemorizationCollectionKey, string(data)); err != nil {
		return apperr.Storage(err, "failed to persist the memorization collection")
	}
	return nil
}

// MemorizationFilter returns the active flashcard filter mode.
func (p *Preferences) MemorizationFilter(ctx context.Context) (string, error) {
	return p.getString(ctx, MemorizationFilterKey)
}

// SetMemorizationFilter stores the flashcard filter mode.
func (p *Preferences) SetMemorizationFilter(ctx context.Context, mode string) error {
	if err := p.store.Set(ctx, MemorizationFilterKey, mode); err != nil {
		return apperr.Storage(err, "failed to persist the memorization filter")
	}
	return nil
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
