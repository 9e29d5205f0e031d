package auth

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const DefaultTokenCleanupInterval = time.Hour

// StartTokenCleaner purges expired tokens every interval until ctx is done.
func (s *Service) StartTokenCleaner(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultTokenCleanupInterval
	}
	go s.cleanupLoop(ctx, interval)
}

func (s *Service) cleanupLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.PurgeExpired(ctx)
			if err != nil {
				s.logger.Error("cleanup expired tokens", zap.Error(err))
				continue
			}
			if n > 0 {
				s.logger.Info("expired tokens purged", zap.Int64("count", n))
			}
		}
	}
}
