package engine

import (
	"market-signal-bot/internal/interfaces"
	"market-signal-bot/internal/metrics"
	"market-signal-bot/internal/store"
)

func New(cfg *store.Config, source interfaces.MarketSource, d interfaces.Decider, news interfaces.NewsSource, rec *metrics.Recorder) interfaces.Engine {
	return newEngine(cfg, source, d, news, rec)
}
