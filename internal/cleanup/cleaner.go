package cleanup

import (
	"context"
	"log/slog"
	"time"

	"github.com/guesstheplant/quiz-engine/internal/storage"
)

// Cleaner handles periodic expiry of stale play sessions
type Cleaner struct {
	repo     storage.Repository
	interval time.Duration
	maxAge   time.Duration
}

// NewCleaner creates a new cleanup worker
func NewCleaner(repo storage.Repository, interval, maxAge time.Duration) *Cleaner {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if maxAge <= 0 {
		maxAge = 24 * time.Hour
	}

	return &Cleaner{
		repo:     repo,
		interval: interval,
		maxAge:   maxAge,
	}
}

// Start begins the cleanup worker in a goroutine
func (c *Cleaner) Start(ctx context.Context) {
	go c.run(ctx)
}

// run is the main loop for the cleanup worker
func (c *Cleaner) run(ctx context.Context) {
	slog.Info("cleanup worker started", "interval", c.interval, "max_age", c.maxAge)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	// Run immediately on start
	c.cleanup(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info("cleanup worker stopped")
			return
		case <-ticker.C:
			c.cleanup(ctx)
		}
	}
}

// cleanup marks sessions abandoned after their player walked away
func (c *Cleaner) cleanup(ctx context.Context) {
	slog.Debug("running cleanup cycle")

	expired, err := c.repo.ExpireStaleSessions(ctx, c.maxAge)
	if err != nil {
		slog.Error("failed to expire stale sessions", "error", err)
		return
	}

	if expired == 0 {
		slog.Debug("no stale sessions found")
		return
	}

	slog.Info("marked stale sessions abandoned", "count", expired)
}
