package cleanup

import (
	"context"
	"log/slog"
	"time"

	"github.com/mrlts-del/cigar-accessories-v5-sub001/internal/ratelimit/limiter"
	"github.com/mrlts-del/cigar-accessories-v5-sub001/internal/ratelimit/metrics"
)

const (
	DefaultInterval  = 5 * time.Minute
	DefaultRetention = time.Hour
)

// CleanupResult contains the results of a sweep.
type CleanupResult struct {
	IdentifiersRemoved int
	IdentifiersTracked int
	Duration           time.Duration
}

// Sweeper is satisfied by *limiter.Limiter.
type Sweeper interface {
	Sweep(retention time.Duration) int
	Len() int
}

type Option func(*LimiterCleanupService)

func WithLogger(logger *slog.Logger) Option {
	return func(s *LimiterCleanupService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithInterval(interval time.Duration) Option {
	return func(s *LimiterCleanupService) {
		if interval > 0 {
			s.interval = interval
		}
	}
}

func WithRetention(retention time.Duration) Option {
	return func(s *LimiterCleanupService) {
		if retention > 0 {
			s.retention = retention
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *LimiterCleanupService) {
		s.metrics = m
	}
}

// LimiterCleanupService periodically evicts idle identifiers from the limiter.
// It only bounds memory. Retention is raised to the longest rule window so a
// sweep never evicts timestamps that still count toward a limit.
type LimiterCleanupService struct {
	sweeper   Sweeper
	logger    *slog.Logger
	interval  time.Duration
	retention time.Duration
	metrics   *metrics.Metrics
}

func New(sweeper Sweeper, opts ...Option) *LimiterCleanupService {
	service := &LimiterCleanupService{
		sweeper:   sweeper,
		logger:    slog.Default(),
		interval:  DefaultInterval,
		retention: DefaultRetention,
	}
	for _, opt := range opts {
		opt(service)
	}
	if floor := limiter.LongestWindow(); service.retention < floor {
		service.logger.Warn("ratelimit cleanup retention raised to longest rule window",
			"configured", service.retention.String(),
			"retention", floor.String(),
		)
		service.retention = floor
	}
	return service
}

// Start sweeps every interval until ctx is cancelled.
func (s *LimiterCleanupService) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("ratelimit cleanup worker started",
		"interval", s.interval.String(),
		"retention", s.retention.String(),
	)

	for {
		select {
		case <-ticker.C:
			res, err := s.RunOnce(ctx)
			if err != nil {
				s.logger.Error("ratelimit_cleanup_failed", "error", err)
				if s.metrics != nil {
					s.metrics.ObserveCleanup("error", 0, 0)
				}
				continue
			}

			s.logger.Info("ratelimit_cleanup_completed",
				"identifiers_removed", res.IdentifiersRemoved,
				"identifiers_tracked", res.IdentifiersTracked,
				"duration_ms", res.Duration.Milliseconds(),
			)
			if s.metrics != nil {
				s.metrics.ObserveCleanup("success", res.IdentifiersRemoved, res.Duration.Seconds())
				s.metrics.SetTrackedIdentifiers(res.IdentifiersTracked)
			}

		case <-ctx.Done():
			s.logger.Info("ratelimit cleanup worker stopping", "reason", ctx.Err())
			return ctx.Err()
		}
	}
}

// RunOnce executes a single sweep. Logging is handled by the caller (Start).
func (s *LimiterCleanupService) RunOnce(ctx context.Context) (*CleanupResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	removed := s.sweeper.Sweep(s.retention)
	return &CleanupResult{
		IdentifiersRemoved: removed,
		IdentifiersTracked: s.sweeper.Len(),
		Duration:           time.Since(start),
	}, nil
}
