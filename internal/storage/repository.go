package storage

import (
	"context"
	"time"

	"github.com/guesstheplant/quiz-engine/internal/models"
)

// Repository defines the interface for play-session persistence
type Repository interface {
	// Sessions
	CreateSession(ctx context.Context, s *models.PlaySession) error
	GetSession(ctx context.Context, id string) (*models.PlaySession, error)
	UpdateSession(ctx context.Context, s *models.PlaySession) error
	ListSessions(ctx context.Context, playerID string, limit, offset int) ([]*models.PlaySession, error)
	ExpireStaleSessions(ctx context.Context, olderThan time.Duration) (int64, error)

	// Round results
	RecordRoundResult(ctx context.Context, r *models.RoundResult) error
	ListRoundResults(ctx context.Context, sessionID string) ([]*models.RoundResult, error)
	GetPlayerSummary(ctx context.Context, playerID string) (*models.PlayerSummary, error)

	// Health
	Ping(ctx context.Context) error
	Close() error
}
