package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// DefaultInterval matches the limiter sweep cadence.
const DefaultInterval = 5 * time.Minute

// ResetTokenStore exposes cleanup for expired password reset tokens. The Redis
// store expires keys itself and does not need this worker.
type ResetTokenStore interface {
	DeleteExpiredTokens(ctx context.Context, now time.Time) (int, error)
}

// CleanupResult summarizes the deletions performed by a cleanup run.
type CleanupResult struct {
	DeletedResetTokens int
}

// CleanupService periodically removes expired auth artifacts.
type CleanupService struct {
	resetTokens ResetTokenStore
	interval    time.Duration
	logger      *slog.Logger
	now         func() time.Time
}

// CleanupOption configures CleanupService.
type CleanupOption func(*CleanupService)

// WithCleanupInterval overrides the cleanup interval when greater than zero.
func WithCleanupInterval(interval time.Duration) CleanupOption {
	return func(s *CleanupService) {
		if interval > 0 {
			s.interval = interval
		}
	}
}

// WithCleanupLogger overrides the logger used for cleanup errors.
func WithCleanupLogger(logger *slog.Logger) CleanupOption {
	return func(s *CleanupService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithCleanupClock(now func() time.Time) CleanupOption {
	return func(s *CleanupService) {
		if now != nil {
			s.now = now
		}
	}
}

// New constructs a CleanupService with required stores and options applied.
func New(resetTokens ResetTokenStore, opts ...CleanupOption) (*CleanupService, error) {
	if resetTokens == nil {
		return nil, fmt.Errorf("resetTokens store is required")
	}
	svc := &CleanupService{
		resetTokens: resetTokens,
		interval:    DefaultInterval,
		logger:      slog.Default(),
		now:         time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc, nil
}

// Start runs cleanup periodically until ctx is cancelled.
func (s *CleanupService) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			res, err := s.RunOnce(ctx)
			if err != nil {
				s.logger.ErrorContext(ctx, "auth cleanup failed", "error", err)
				continue
			}
			if res.DeletedResetTokens > 0 {
				s.logger.InfoContext(ctx, "auth_cleanup_completed",
					"deleted_reset_tokens", res.DeletedResetTokens,
				)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// RunOnce performs a single cleanup operation.
func (s *CleanupService) RunOnce(ctx context.Context) (CleanupResult, error) {
	var res CleanupResult
	deleted, err := s.resetTokens.DeleteExpiredTokens(ctx, s.now())
	if err != nil {
		return res, fmt.Errorf("delete expired reset tokens: %w", err)
	}
	res.DeletedResetTokens = deleted
	return res, nil
}
