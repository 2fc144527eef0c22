package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"onboard/internal/session/metrics"
)

// SessionStore exposes expiry of idle registration sessions.
type SessionStore interface {
	ExpireIdle(ctx context.Context, ttl time.Duration) (int, error)
}

// CleanupService periodically removes idle registration sessions.
type CleanupService struct {
	sessions SessionStore
	idleTTL  time.Duration
	interval time.Duration
	metrics  *metrics.Metrics
	logger   *slog.Logger
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

func WithCleanupMetrics(m *metrics.Metrics) CleanupOption {
	return func(s *CleanupService) {
		s.metrics = m
	}
}

// New constructs a CleanupService. Sessions idle longer than idleTTL are expired.
func New(sessions SessionStore, idleTTL time.Duration, opts ...CleanupOption) (*CleanupService, error) {
	if sessions == nil {
		return nil, fmt.Errorf("session store is required")
	}
	if idleTTL <= 0 {
		return nil, fmt.Errorf("idle TTL must be positive")
	}
	svc := &CleanupService{
		sessions: sessions,
		idleTTL:  idleTTL,
		interval: time.Minute,
		logger:   slog.Default(),
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
			if _, err := s.RunOnce(ctx); err != nil {
				s.logger.ErrorContext(ctx, "session cleanup failed", "error", err)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// RunOnce expires idle sessions once and returns how many were removed.
func (s *CleanupService) RunOnce(ctx context.Context) (int, error) {
	expired, err := s.sessions.ExpireIdle(ctx, s.idleTTL)
	if s.metrics != nil && expired > 0 {
		s.metrics.AddExpired(expired)
	}
	if err != nil {
		return expired, fmt.Errorf("expire idle sessions: %w", err)
	}
	return expired, nil
}
