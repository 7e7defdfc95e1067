package notify

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"

	"market-signal-bot/internal/interfaces"
	"market-signal-bot/internal/logger"
	"market-signal-bot/internal/metrics"
)

// Retrying resends on any error with a fixed delay between attempts.
type Retrying struct {
	next     interfaces.Notifier
	attempts int
	delay    time.Duration
	metrics  *metrics.Recorder
}

var _ interfaces.Notifier = (*Retrying)(nil)

func WithRetry(next interfaces.Notifier, attempts int, delay time.Duration, rec *metrics.Recorder) *Retrying {
	if attempts < 1 {
		attempts = 1
	}
	if delay <= 0 {
		delay = time.Millisecond
	}
	return &Retrying{next: next, attempts: attempts, delay: delay, metrics: rec}
}

func (r *Retrying) Send(ctx context.Context, text string) error {
	b := retry.WithMaxRetries(uint64(r.attempts-1), retry.NewConstant(r.delay))
	attempt := 0
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		attempt++
		if err := r.next.Send(ctx, text); err != nil {
			logger.Warn(ctx, "Notification failed", "attempt", attempt, "max_attempts", r.attempts, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		r.metrics.NotifyFailure()
	}
	return err
}
