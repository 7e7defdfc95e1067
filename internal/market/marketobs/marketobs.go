package marketobs

import (
	"context"

	"market-signal-bot/internal/interfaces"
	"market-signal-bot/internal/logger"
	"market-signal-bot/internal/trace"
	"market-signal-bot/internal/types"
)

// observableSource wraps a MarketSource with observability (logging & tracing)
type observableSource struct {
	source interfaces.MarketSource
}

// Compile-time interface check
var _ interfaces.MarketSource = (*observableSource)(nil)

// Wrap wraps a market source with observability middleware
func Wrap(source interfaces.MarketSource) interfaces.MarketSource {
	return &observableSource{source: source}
}

// Fetch runs the provider chain with observability
func (o *observableSource) Fetch(ctx context.Context, symbol string) (types.MarketData, error) {
	ctx, span := trace.StartSpan(ctx, "market.Fetch")
	defer span.End()

	logger.DebugSkip(ctx, 1, "Fetching market data", "symbol", symbol)

	md, err := o.source.Fetch(ctx, symbol)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Market data unavailable", err, "symbol", symbol)
		return md, err
	}

	logger.DebugSkip(ctx, 1, "Market data fetched",
		"symbol", symbol,
		"kind", md.Kind.String(),
		"source", md.Source,
		"bars", len(md.Candles),
		"price", md.Price,
	)
	return md, nil
}

// Quote fetches a single price with observability
func (o *observableSource) Quote(ctx context.Context, symbol string) (float64, types.ProviderID, error) {
	ctx, span := trace.StartSpan(ctx, "market.Quote")
	defer span.End()

	price, src, err := o.source.Quote(ctx, symbol)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch quote", err, "symbol", symbol)
		return 0, "", err
	}

	logger.DebugSkip(ctx, 1, "Quote fetched", "symbol", symbol, "price", price, "source", src)
	return price, src, nil
}
