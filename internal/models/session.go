package models

import "time"

// GameMode identifies how a play session walks the question catalog.
type GameMode string

const (
	ModeClassic GameMode = "classic"
	ModeEndless GameMode = "endless"
)

// SessionStatus represents the current state of a play session
type SessionStatus string

const (
	SessionActive    SessionStatus = "active"    // Rounds in progress
	SessionComplete  SessionStatus = "complete"  // All rounds played
	SessionFailed    SessionStatus = "failed"    // Endless score dropped below zero
	SessionAbandoned SessionStatus = "abandoned" // Expired without finishing
)

// PlaySession represents one player's walk through the game.
// Created when a player starts a game; round results accumulate on it.
type PlaySession struct {
	ID         string        `json:"id"`
	PlayerID   string        `json:"player_id"`
	Mode       GameMode      `json:"mode"`
	Status     SessionStatus `json:"status"`
	Score      int           `json:"score"`
	RoundIndex int           `json:"round_index"`
	CreatedAt  time.Time     `json:"created_at"`
	FinishedAt *time.Time    `json:"finished_at,omitempty"`
}

// IsTerminal returns true if the session is in a final state
func (s *PlaySession) IsTerminal() bool {
	return s.Status == SessionComplete || s.Status == SessionFailed || s.Status == SessionAbandoned
}

// RoundResult is one finished round, persisted for progress tracking.
type RoundResult struct {
	ID          string     `json:"id"`
	SessionID   string     `json:"session_id"`
	PlayerID    string     `json:"player_id"`
	RoundIndex  int        `json:"round_index"`
	Difficulty  Difficulty `json:"difficulty"`
	Score       int        `json:"score"`
	Total       int        `json:"total"`
	MistakeIDs  []ID       `json:"mistake_ids,omitempty"`
	CompletedAt time.Time  `json:"completed_at"`
}

// CreateSessionRequest represents a request to start a play session
type CreateSessionRequest struct {
	PlayerID string   `json:"player_id"`
	Mode     GameMode `json:"mode"`
}

// RecordResultRequest represents a request to record a finished round
type RecordResultRequest struct {
	RoundIndex int        `json:"round_index"`
	Difficulty Difficulty `json:"difficulty"`
	Score      int        `json:"score"`
	Total      int        `json:"total"`
	MistakeIDs []ID       `json:"mistake_ids,omitempty"`
}

// PlayerSummary aggregates a player's persisted results.
type PlayerSummary struct {
	PlayerID     string             `json:"player_id"`
	RoundsPlayed int                `json:"rounds_played"`
	TotalScore   int                `json:"total_score"`
	BestScores   map[Difficulty]int `json:"best_scores,omitempty"`
}
