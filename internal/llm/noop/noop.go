package noop

import (
	"context"

	"market-signal-bot/internal/logger"
	"market-signal-bot/internal/types"
)

// NoopDecider is used when no oracle is configured; it never signals.
type NoopDecider struct{}

func NewNoopDecider() *NoopDecider {
	return &NoopDecider{}
}

func (d *NoopDecider) Decide(ctx context.Context, symbol string, snap types.Snapshot, news string) (types.Decision, error) {
	logger.Debug(ctx, "Noop decider called - always returns WAIT", "symbol", symbol)
	return types.Decision{
		Verdict:    types.Wait,
		Confidence: 50,
		Reason:     "no oracle configured",
	}, nil
}
