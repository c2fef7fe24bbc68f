package api

import (
	"context"
	"log/slog"
	"time"

	"github.com/masoommulla/project-sub001/internal/pkg/metrics"
)

// runJanitor 周期性清理过期验证码，直到 ctx 取消。
func (s *Server) runJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	s.logger.Info("janitor started", slog.Duration("interval", interval))

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.purgeExpiredOTPs(ctx)
		}
	}
}

func (s *Server) purgeExpiredOTPs(ctx context.Context) int64 {
	purgeCtx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	n, err := s.store.DeleteExpiredOTPs(purgeCtx, s.now())
	if err != nil {
		s.logger.Error("janitor failed to purge otps", slog.String("error", err.Error()))
		return 0
	}
	if n > 0 {
		metrics.OTPPurgedTotal.Add(float64(n))
		s.logger.Info("janitor purged expired otps", slog.Int64("count", n))
	}
	return n
}
