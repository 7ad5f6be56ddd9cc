// Package worker runs background maintenance for the auth service.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// TokenPruner deletes refresh-token records that expired or were revoked
// before cutoff.
type TokenPruner interface {
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

// CleanupJob prunes dead refresh tokens from the SQL store.  Records are
// kept for Retention after they expire or are revoked so that reuse of a
// rotated token still reports REFRESH_TOKEN_REVOKED for a while instead
// of looking like an unknown token.
type CleanupJob struct {
	store     TokenPruner
	logger    *slog.Logger
	Retention time.Duration // grace period after expiry/revocation (default 7 days)
	Now       func() time.Time
}

// NewCleanupJob returns a job with a seven day retention.
func NewCleanupJob(store TokenPruner, logger *slog.Logger) *CleanupJob {
	return &CleanupJob{
		store:     store,
		logger:    logger,
		Retention: 7 * 24 * time.Hour,
		Now:       time.Now,
	}
}

// Run performs one pass.  Idempotent: nothing to delete is not an error.
func (j *CleanupJob) Run(ctx context.Context) error {
	start := time.Now()
	cutoff := j.Now().UTC().Add(-j.Retention)

	n, err := j.store.DeleteExpired(ctx, cutoff)
	if err != nil {
		j.logger.ErrorContext(ctx, "refresh token cleanup failed",
			slog.String("error", err.Error()),
			slog.Time("cutoff", cutoff),
		)
		return fmt.Errorf("delete expired refresh tokens: %w", err)
	}

	j.logger.InfoContext(ctx, "refresh token cleanup finished",
		slog.Int64("deleted_count", n),
		slog.Time("cutoff", cutoff),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return nil
}

// Start runs the job every interval until ctx is cancelled.  Failures are
// logged by Run and the loop carries on.
func (j *CleanupJob) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = j.Run(ctx)
		}
	}
}
