package interfaces

import (
	"context"

	"market-signal-bot/internal/types"
)

type Decider interface {
	Decide(ctx context.Context, symbol string, snap types.Snapshot, news string) (types.Decision, error)
}
