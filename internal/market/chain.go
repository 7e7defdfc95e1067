package market

import (
	"context"
	"errors"
	"fmt"

	"market-signal-bot/internal/interfaces"
	"market-signal-bot/internal/logger"
	"market-signal-bot/internal/metrics"
	"market-signal-bot/internal/types"
)

type CandleProvider interface {
	ID() types.ProviderID
	Candles(ctx context.Context, symbol string, n int) ([]types.Candle, error)
}

type QuoteProvider interface {
	ID() types.ProviderID
	Quote(ctx context.Context, symbol string) (float64, error)
}

type HistoryProvider interface {
	QuoteProvider
	History(ctx context.Context, symbol string) ([]types.Candle, float64, error)
}

// CreditCounter is charged once per successful primary fetch.
type CreditCounter interface {
	Add(n int) int
}

// Chain walks the ranked providers: primary candles, then a single quote,
// then a last-resort intraday history.
type Chain struct {
	primary    CandleProvider
	quote      QuoteProvider
	history    HistoryProvider
	credits    CreditCounter
	metrics    *metrics.Recorder
	minBars    int
	outputSize int
}

var _ interfaces.MarketSource = (*Chain)(nil)

type ChainConfig struct {
	Primary    CandleProvider
	Quote      QuoteProvider
	History    HistoryProvider
	Credits    CreditCounter
	Metrics    *metrics.Recorder
	MinBars    int
	OutputSize int
}

func NewChain(cfg ChainConfig) *Chain {
	if cfg.OutputSize < cfg.MinBars {
		cfg.OutputSize = cfg.MinBars
	}
	return &Chain{
		primary:    cfg.Primary,
		quote:      cfg.Quote,
		history:    cfg.History,
		credits:    cfg.Credits,
		metrics:    cfg.Metrics,
		minBars:    cfg.MinBars,
		outputSize: cfg.OutputSize,
	}
}

// Fetch returns candles with a price, a price alone, or Unavailable with a *ChainError.
func (c *Chain) Fetch(ctx context.Context, symbol string) (types.MarketData, error) {
	var (
		failures  []*ProviderError
		lastPrice float64
		lastSrc   types.ProviderID
	)
	fail := func(p types.ProviderID, err error) {
		pe := classify(p, err)
		failures = append(failures, pe)
		c.metrics.ProviderCall(string(p), pe.Kind.String())
		if pe.Kind == KindQuota {
			logger.Warn(ctx, "Provider refused on quota, falling back", "symbol", symbol, "provider", p, "error", pe.Err)
			return
		}
		logger.Warn(ctx, "Provider failed, falling back", "symbol", symbol, "provider", p, "kind", pe.Kind.String(), "error", pe.Err)
	}

	if c.primary != nil {
		candles, err := c.primary.Candles(ctx, symbol, c.outputSize)
		if err == nil && len(candles) >= c.minBars {
			used := c.credits.Add(1)
			c.metrics.ProviderCall(string(c.primary.ID()), "ok")
			c.metrics.SetCredits(used)
			return types.MarketData{
				Kind:    types.CandlesWithPrice,
				Candles: candles,
				Price:   candles[len(candles)-1].Close,
				Source:  c.primary.ID(),
			}, nil
		}
		if err == nil {
			if len(candles) > 0 {
				lastPrice, lastSrc = candles[len(candles)-1].Close, c.primary.ID()
			}
			err = fmt.Errorf("%w: got %d, need %d", ErrInsufficientBars, len(candles), c.minBars)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return types.MarketData{}, ctxErr
		}
		fail(c.primary.ID(), err)
	}

	if c.quote != nil {
		price, err := c.quote.Quote(ctx, symbol)
		if err == nil {
			c.metrics.ProviderCall(string(c.quote.ID()), "ok")
			return types.MarketData{Kind: types.PriceOnly, Price: price, Source: c.quote.ID()}, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return types.MarketData{}, ctxErr
		}
		fail(c.quote.ID(), err)
	}

	if c.history != nil {
		candles, price, err := c.history.History(ctx, symbol)
		if err == nil {
			c.metrics.ProviderCall(string(c.history.ID()), "ok")
			if len(candles) >= c.minBars {
				return types.MarketData{Kind: types.CandlesWithPrice, Candles: candles, Price: price, Source: c.history.ID()}, nil
			}
			return types.MarketData{Kind: types.PriceOnly, Price: price, Source: c.history.ID()}, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return types.MarketData{}, ctxErr
		}
		fail(c.history.ID(), err)
	}

	if lastPrice > 0 {
		return types.MarketData{Kind: types.PriceOnly, Price: lastPrice, Source: lastSrc}, nil
	}
	return types.MarketData{Kind: types.Unavailable}, &ChainError{Symbol: symbol, Failures: failures}
}

// Quote is the fast path used for verification; it never spends primary credits.
func (c *Chain) Quote(ctx context.Context, symbol string) (float64, types.ProviderID, error) {
	var errs []error
	for _, p := range []QuoteProvider{c.quote, c.history} {
		if p == nil {
			continue
		}
		price, err := p.Quote(ctx, symbol)
		if err == nil {
			c.metrics.ProviderCall(string(p.ID()), "ok")
			return price, p.ID(), nil
		}
		pe := classify(p.ID(), err)
		c.metrics.ProviderCall(string(p.ID()), pe.Kind.String())
		errs = append(errs, pe)
	}
	if len(errs) == 0 {
		return 0, "", ErrNotConfigured
	}
	return 0, "", fmt.Errorf("quote %s: %w", symbol, errors.Join(errs...))
}
