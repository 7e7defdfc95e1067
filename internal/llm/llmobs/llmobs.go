package llmobs

import (
	"context"

	"market-signal-bot/internal/interfaces"
	"market-signal-bot/internal/logger"
	"market-signal-bot/internal/trace"
	"market-signal-bot/internal/types"
)

// observableDecider wraps a Decider with observability (logging & tracing)
type observableDecider struct {
	decider interfaces.Decider
}

var _ interfaces.Decider = (*observableDecider)(nil)

func Wrap(decider interfaces.Decider) interfaces.Decider {
	return &observableDecider{
		decider: decider,
	}
}

func (od *observableDecider) Decide(ctx context.Context, symbol string, snap types.Snapshot, news string) (types.Decision, error) {
	ctx, span := trace.StartSpan(ctx, "llm.Decide")
	defer span.End()

	// Skip(1) reports the engine as caller, not this wrapper
	logger.DebugSkip(ctx, 1, "Requesting decision",
		"symbol", symbol,
		"price", snap.Price,
		"rsi", snap.RSI.String(),
		"limited", snap.Limited,
	)

	decision, err := od.decider.Decide(ctx, symbol, snap, news)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to get decision", err,
			"symbol", symbol,
			"price", snap.Price,
		)
		return types.Decision{}, err
	}

	logger.InfoSkip(ctx, 1, "Decision received",
		"symbol", symbol,
		"verdict", decision.Verdict,
		"confidence", decision.Confidence,
		"reason", decision.Reason,
	)

	return decision, nil
}
