package interfaces

import (
	"context"

	"market-signal-bot/internal/types"
)

// MarketSource is the ranked provider chain seen from the engine and verifier.
type MarketSource interface {
	Fetch(ctx context.Context, symbol string) (types.MarketData, error)
	Quote(ctx context.Context, symbol string) (float64, types.ProviderID, error)
}

type NewsSource interface {
	Headlines(ctx context.Context, class types.AssetClass) string
}

type Notifier interface {
	Send(ctx context.Context, text string) error
}
