package engineobs

import (
	"context"
	"time"

	"market-signal-bot/internal/interfaces"
	"market-signal-bot/internal/logger"
	"market-signal-bot/internal/trace"
	"market-signal-bot/internal/types"
)

type observableEngine struct {
	engine interfaces.Engine
}

var _ interfaces.Engine = (*observableEngine)(nil)

func Wrap(eng interfaces.Engine) interfaces.Engine {
	return &observableEngine{
		engine: eng,
	}
}

func (oe *observableEngine) Step(ctx context.Context, symbol string) (*types.StepResult, error) {
	ctx, span := trace.StartSpan(ctx, "engine.Step")
	defer span.End()

	start := time.Now()

	logger.DebugSkip(ctx, 1, "Starting analysis cycle",
		"symbol", symbol,
	)

	result, err := oe.engine.Step(ctx, symbol)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Analysis cycle failed", err,
			"symbol", symbol,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return nil, err
	}

	logger.InfoSkip(ctx, 1, "Analysis cycle completed",
		"symbol", symbol,
		"source", result.Source,
		"verdict", result.Decision.Verdict,
		"confidence", result.Decision.Confidence,
		"limited", result.Snapshot.Limited,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return result, nil
}
