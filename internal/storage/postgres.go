package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/guesstheplant/quiz-engine/internal/models"
)

// PostgresRepository implements Repository using PostgreSQL
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// PostgresConfig holds PostgreSQL connection configuration
type PostgresConfig struct {
	DSN          string
	MaxOpenConns int32
	MaxIdleConns int32
	MaxLifetime  time.Duration
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(ctx context.Context, cfg PostgresConfig) (*PostgresRepository, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}

	// Set pool configuration
	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxConns = cfg.MaxOpenConns
	} else {
		poolConfig.MaxConns = 25 // default
	}

	if cfg.MaxIdleConns > 0 {
		poolConfig.MinConns = cfg.MaxIdleConns
	} else {
		poolConfig.MinConns = 5 // default
	}

	if cfg.MaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxLifetime
	} else {
		poolConfig.MaxConnLifetime = 30 * time.Minute
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresRepository{pool: pool}, nil
}

// Ping checks database connectivity
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close closes the database connection pool
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// CreateSession inserts a new play session
func (r *PostgresRepository) CreateSession(ctx context.Context, s *models.PlaySession) error {
	query := `
		INSERT INTO play_sessions (id, player_id, mode, status, score, round_index, created_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.pool.Exec(ctx, query,
		s.ID,
		s.PlayerID,
		string(s.Mode),
		string(s.Status),
		s.Score,
		s.RoundIndex,
		s.CreatedAt,
		nullTime(s.FinishedAt),
	)

	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	return nil
}

// GetSession retrieves a play session by ID
func (r *PostgresRepository) GetSession(ctx context.Context, id string) (*models.PlaySession, error) {
	query := `
		SELECT id, player_id, mode, status, score, round_index, created_at, finished_at
		FROM play_sessions
		WHERE id = $1
	`

	var s models.PlaySession
	var mode, status string
	var finishedAt sql.NullTime

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&s.ID,
		&s.PlayerID,
		&mode,
		&status,
		&s.Score,
		&s.RoundIndex,
		&s.CreatedAt,
		&finishedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	s.Mode = models.GameMode(mode)
	s.Status = models.SessionStatus(status)
	if finishedAt.Valid {
		s.FinishedAt = &finishedAt.Time
	}

	return &s, nil
}

// UpdateSession updates the mutable fields of a play session
func (r *PostgresRepository) UpdateSession(ctx context.Context, s *models.PlaySession) error {
	query := `
		UPDATE play_sessions
		SET status = $2, score = $3, round_index = $4, finished_at = $5
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query,
		s.ID,
		string(s.Status),
		s.Score,
		s.RoundIndex,
		nullTime(s.FinishedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("session %s not found", s.ID)
	}

	return nil
}

// ListSessions returns a player's sessions, newest first
func (r *PostgresRepository) ListSessions(ctx context.Context, playerID string, limit, offset int) ([]*models.PlaySession, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, player_id, mode, status, score, round_index, created_at, finished_at
		FROM play_sessions
		WHERE player_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, playerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*models.PlaySession
	for rows.Next() {
		var s models.PlaySession
		var mode, status string
		var finishedAt sql.NullTime

		if err := rows.Scan(&s.ID, &s.PlayerID, &mode, &status, &s.Score, &s.RoundIndex, &s.CreatedAt, &finishedAt); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}

		s.Mode = models.GameMode(mode)
		s.Status = models.SessionStatus(status)
		if finishedAt.Valid {
			s.FinishedAt = &finishedAt.Time
		}
		sessions = append(sessions, &s)
	}

	return sessions, rows.Err()
}

// RecordRoundResult inserts one finished round
func (r *PostgresRepository) RecordRoundResult(ctx context.Context, res *models.RoundResult) error {
	mistakesJSON, err := json.Marshal(res.MistakeIDs)
	if err != nil {
		return fmt.Errorf("failed to marshal mistakes: %w", err)
	}

	query := `
		INSERT INTO round_results (id, session_id, player_id, round_index, difficulty, score, total, mistakes, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err = r.pool.Exec(ctx, query,
		res.ID,
		res.SessionID,
		res.PlayerID,
		res.RoundIndex,
		string(res.Difficulty),
		res.Score,
		res.Total,
		mistakesJSON,
		res.CompletedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to record round result: %w", err)
	}

	return nil
}

// ListRoundResults returns a session's results in round order
func (r *PostgresRepository) ListRoundResults(ctx context.Context, sessionID string) ([]*models.RoundResult, error) {
	query := `
		SELECT id, session_id, player_id, round_index, difficulty, score, total, mistakes, completed_at
		FROM round_results
		WHERE session_id = $1
		ORDER BY round_index ASC
	`

	rows, err := r.pool.Query(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list round results: %w", err)
	}
	defer rows.Close()

	var results []*models.RoundResult
	for rows.Next() {
		var res models.RoundResult
		var difficulty string
		var mistakesJSON []byte

		if err := rows.Scan(&res.ID, &res.SessionID, &res.PlayerID, &res.RoundIndex, &difficulty, &res.Score, &res.Total, &mistakesJSON, &res.CompletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan round result: %w", err)
		}

		res.Difficulty = models.Difficulty(difficulty)
		if len(mistakesJSON) > 0 {
			if err := json.Unmarshal(mistakesJSON, &res.MistakeIDs); err != nil {
				return nil, fmt.Errorf("failed to unmarshal mistakes: %w", err)
			}
		}
		results = append(results, &res)
	}

	return results, rows.Err()
}

// GetPlayerSummary aggregates a player's persisted results
func (r *PostgresRepository) GetPlayerSummary(ctx context.Context, playerID string) (*models.PlayerSummary, error) {
	summary := &models.PlayerSummary{
		PlayerID:   playerID,
		BestScores: make(map[models.Difficulty]int),
	}

	query := `
		SELECT difficulty, COUNT(*), COALESCE(SUM(score), 0), COALESCE(MAX(score), 0)
		FROM round_results
		WHERE player_id = $1
		GROUP BY difficulty
	`

	rows, err := r.pool.Query(ctx, query, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get player summary: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var difficulty string
		var count, total, best int

		if err := rows.Scan(&difficulty, &count, &total, &best); err != nil {
			return nil, fmt.Errorf("failed to scan summary row: %w", err)
		}

		summary.RoundsPlayed += count
		summary.TotalScore += total
		summary.BestScores[models.Difficulty(difficulty)] = best
	}

	return summary, rows.Err()
}

// ExpireStaleSessions marks active sessions older than the cutoff as
// abandoned so they stop counting as in-progress games.
func (r *PostgresRepository) ExpireStaleSessions(ctx context.Context, olderThan time.Duration) (int64, error) {
	query := `
		UPDATE play_sessions
		SET status = $1, finished_at = NOW()
		WHERE status = $2 AND created_at < NOW() - $3::interval
	`

	interval := fmt.Sprintf("%d seconds", int64(olderThan.Seconds()))
	tag, err := r.pool.Exec(ctx, query,
		string(models.SessionAbandoned),
		string(models.SessionActive),
		interval,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to expire stale sessions: %w", err)
	}

	return tag.RowsAffected(), nil
}

func nullTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}
