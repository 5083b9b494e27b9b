package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/talentbase/auth-service/internal/ports"
)

// TokenSweeper periodically deletes refresh-token rows that are expired or
// long revoked. Revoked rows are kept for a retention window so audit can
// still see recent rotations.
type TokenSweeper struct {
	logger    *slog.Logger
	tokens    ports.RefreshTokenRepository
	interval  time.Duration
	retention time.Duration
}

func NewTokenSweeper(logger *slog.Logger, tokens ports.RefreshTokenRepository, interval, retention time.Duration) *TokenSweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	if retention <= 0 {
		retention = 24 * time.Hour
	}
	return &TokenSweeper{
		logger:    logger,
		tokens:    tokens,
		interval:  interval,
		retention: retention,
	}
}

// Run executes the periodic sweep loop until context cancellation.
func (s *TokenSweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if err := s.sweepOnce(ctx); err != nil {
			s.logger.ErrorContext(ctx, "token sweep failed",
				"module", "events.token_sweeper",
				"layer", "adapter",
				"operation", "sweep_once",
				"outcome", "failure",
				"error", err,
			)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *TokenSweeper) sweepOnce(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-s.retention)
	purged, err := s.tokens.PurgeExpiredOrRevoked(ctx, cutoff)
	if err != nil {
		return err
	}
	if purged > 0 {
		s.logger.InfoContext(ctx, "expired refresh tokens purged",
			"module", "events.token_sweeper",
			"layer", "adapter",
			"operation", "sweep_once",
			"outcome", "success",
			"purged_count", purged,
		)
	}
	return nil
}
