package engine

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"

	"market-signal-bot/internal/interfaces"
	"market-signal-bot/internal/logger"
	"market-signal-bot/internal/market"
	"market-signal-bot/internal/metrics"
	"market-signal-bot/internal/store"
	"market-signal-bot/internal/ta"
	"market-signal-bot/internal/types"
)

// Engine runs one fetch, analyze and decide pass for a symbol.
type Engine struct {
	cfg     *store.Config
	source  interfaces.MarketSource
	decider interfaces.Decider
	news    interfaces.NewsSource
	metrics *metrics.Recorder
	backoff func() retry.Backoff
	now     func() time.Time
}

func newEngine(cfg *store.Config, source interfaces.MarketSource, d interfaces.Decider, news interfaces.NewsSource, rec *metrics.Recorder) *Engine {
	return &Engine{
		cfg:     cfg,
		source:  source,
		decider: d,
		news:    news,
		metrics: rec,
		backoff: func() retry.Backoff { return quotaBackoff(cfg) },
		now:     time.Now,
	}
}

// quotaBackoff waits floor, then doubles up to cap, for attempts-1 retries.
func quotaBackoff(cfg *store.Config) retry.Backoff {
	b := retry.NewExponential(cfg.Retry.Floor)
	b = retry.WithCappedDuration(cfg.Retry.Cap, b)
	return retry.WithMaxRetries(uint64(cfg.Retry.Attempts-1), b)
}

// Step retries the whole pass when the chain failed and at least one provider refused on quota.
func (e *Engine) Step(ctx context.Context, symbol string) (*types.StepResult, error) {
	logger.Debug(ctx, "Starting analysis step", "symbol", symbol)
	start := e.now()

	var (
		res     *types.StepResult
		attempt int
	)
	err := retry.Do(ctx, e.backoff(), func(ctx context.Context) error {
		attempt++
		r, err := e.attempt(ctx, symbol)
		if err != nil {
			if market.IsQuota(err) {
				logger.Warn(ctx, "Provider quota refused, backing off", "symbol", symbol, "attempt", attempt)
				return retry.RetryableError(err)
			}
			return err
		}
		res = r
		return nil
	})
	e.metrics.StepDuration(e.now().Sub(start).Seconds())
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (e *Engine) attempt(ctx context.Context, symbol string) (*types.StepResult, error) {
	md, err := e.source.Fetch(ctx, symbol)
	if err != nil {
		return nil, err
	}
	logger.Debug(ctx, "Market data fetched",
		"symbol", symbol,
		"kind", md.Kind.String(),
		"source", md.Source,
		"bars", len(md.Candles),
		"price", md.Price,
	)

	snap := ta.Analyze(symbol, md, e.cfg.Market.MinBars)
	if snap.Limited {
		logger.Info(ctx, "Indicators unavailable, deciding in limited mode", "symbol", symbol, "source", md.Source)
	} else if logger.IsDebugEnabled() {
		logger.Debug(ctx, "Indicators calculated",
			"symbol", symbol,
			"rsi", snap.RSI.String(),
			"ema20", snap.EMA20.String(),
			"macd", snap.MACD.String(),
			"macd_signal", snap.MACDSignal.String(),
			"bb_upper", snap.BBUpper.String(),
			"bb_lower", snap.BBLower.String(),
			"adx", snap.ADX.String(),
		)
	}

	headlines := e.news.Headlines(ctx, market.ClassOf(symbol))

	decision, err := e.decider.Decide(ctx, symbol, snap, headlines)
	if err != nil {
		return nil, err
	}
	e.metrics.Decision(string(decision.Verdict))
	logger.Decision(ctx, symbol, string(decision.Verdict), decision.Confidence, decision.Reason,
		"price", snap.Price,
		"limited", snap.Limited,
		"source", md.Source,
	)

	return &types.StepResult{
		Symbol:   symbol,
		Source:   md.Source,
		Snapshot: snap,
		Decision: decision,
		Price:    snap.Price,
		Time:     e.now().Unix(),
		News:     headlines,
	}, nil
}
