package worker

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Runner is a long-lived loop such as realtime.RedisRelay.
type Runner interface {
	Run(ctx context.Context) error
}

const (
	minBackoff = 500 * time.Millisecond
	maxBackoff = 30 * time.Second
)

// Supervise runs r until ctx is cancelled, restarting it with exponential
// backoff whenever it returns early.
func Supervise(ctx context.Context, name string, r Runner, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	backoff := minBackoff
	for {
		started := time.Now()
		err := r.Run(ctx)
		if ctx.Err() != nil {
			return
		}
		if time.Since(started) > maxBackoff {
			backoff = minBackoff
		}
		logger.Warn("background loop stopped, restarting",
			zap.String("loop", name),
			zap.Duration("backoff", backoff),
			zap.Error(err))

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}
