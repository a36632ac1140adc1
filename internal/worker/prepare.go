package worker

import (
	"context"
	"log/slog"
	"time"
)

// UntilReady runs prepare until it succeeds or ctx is done, waiting
// interval between attempts. It reports whether prepare succeeded.
func UntilReady(ctx context.Context, prepare func(context.Context) error, interval time.Duration, logger *slog.Logger) bool {
	for attempt := 1; ; attempt++ {
		err := prepare(ctx)
		if err == nil {
			if attempt > 1 {
				logger.Info("remote backend ready", "attempts", attempt)
			}
			return true
		}
		logger.Warn("remote backend not ready, retrying", "attempt", attempt, "retry_in", interval, "error", err)

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return false
		case <-timer.C:
		}
	}
}
