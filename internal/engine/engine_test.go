package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"market-signal-bot/internal/llm"
	"market-signal-bot/internal/market"
	"market-signal-bot/internal/store"
	"market-signal-bot/internal/types"
)

type scriptedSource struct {
	results []fetchResult
	calls   int
}

type fetchResult struct {
	md  types.MarketData
	err error
}

func (s *scriptedSource) Fetch(_ context.Context, _ string) (types.MarketData, error) {
	r := s.results[min(s.calls, len(s.results)-1)]
	s.calls++
	return r.md, r.err
}

func (s *scriptedSource) Quote(context.Context, string) (float64, types.ProviderID, error) {
	return 0, "", errors.New("unused")
}

type stubDecider struct {
	decision types.Decision
	err      error
	calls    int
	lastSnap types.Snapshot
	lastNews string
}

func (d *stubDecider) Decide(_ context.Context, _ string, snap types.Snapshot, news string) (types.Decision, error) {
	d.calls++
	d.lastSnap, d.lastNews = snap, news
	return d.decision, d.err
}

type stubNews struct{ class types.AssetClass }

func (n *stubNews) Headlines(_ context.Context, class types.AssetClass) string {
	n.class = class
	return "Dollar slips"
}

func quotaErr() error {
	return &market.ChainError{Symbol: "EUR/USD", Failures: []*market.ProviderError{
		{Provider: types.ProviderTwelveData, Kind: market.KindQuota, Err: errors.New("HTTP 429")},
		{Provider: types.ProviderFinnhub, Kind: market.KindTransient, Err: errors.New("timeout")},
	}}
}

func newTestEngine(t *testing.T, src *scriptedSource, d *stubDecider) (*Engine, *stubNews) {
	t.Helper()
	cfg, err := store.Default()
	require.NoError(t, err)
	news := &stubNews{}
	e := newEngine(cfg, src, d, news, nil)
	e.backoff = func() retry.Backoff {
		return retry.WithMaxRetries(uint64(cfg.Retry.Attempts-1), retry.NewConstant(time.Millisecond))
	}
	return e, news
}

func priceOnly(p float64) types.MarketData {
	return types.MarketData{Kind: types.PriceOnly, Price: p, Source: types.ProviderFinnhub}
}

func TestStepReturnsDecision(t *testing.T) {
	src := &scriptedSource{results: []fetchResult{{md: priceOnly(64000)}}}
	d := &stubDecider{decision: types.Decision{Verdict: types.Buy, Confidence: 90, Reason: "breakout"}}
	e, news := newTestEngine(t, src, d)

	res, err := e.Step(context.Background(), "BTC/USD")
	require.NoError(t, err)
	assert.Equal(t, types.Buy, res.Decision.Verdict)
	assert.Equal(t, 64000.0, res.Price)
	assert.Equal(t, types.ProviderFinnhub, res.Source)
	assert.True(t, res.Snapshot.Limited)
	assert.Equal(t, types.Crypto, news.class)
	assert.Equal(t, "Dollar slips", d.lastNews)
}

func TestStepRetriesOnceOnQuota(t *testing.T) {
	src := &scriptedSource{results: []fetchResult{{err: quotaErr()}, {md: priceOnly(1.08)}}}
	d := &stubDecider{decision: types.Decision{Verdict: types.Wait, Confidence: 60, Reason: "flat"}}
	e, _ := newTestEngine(t, src, d)

	res, err := e.Step(context.Background(), "EUR/USD")
	require.NoError(t, err)
	assert.Equal(t, types.Wait, res.Decision.Verdict)
	assert.Equal(t, 2, src.calls)
	assert.Equal(t, 1, d.calls)
}

func TestStepGivesUpAfterConfiguredAttempts(t *testing.T) {
	src := &scriptedSource{results: []fetchResult{{err: quotaErr()}}}
	d := &stubDecider{}
	e, _ := newTestEngine(t, src, d)

	_, err := e.Step(context.Background(), "EUR/USD")
	require.Error(t, err)
	assert.True(t, market.IsQuota(err))
	assert.Equal(t, 0, d.calls)
}

func TestStepDoesNotRetryOtherErrors(t *testing.T) {
	plain := &market.ChainError{Symbol: "EUR/USD", Failures: []*market.ProviderError{
		{Provider: types.ProviderYahoo, Kind: market.KindData, Err: market.ErrNoData},
	}}
	src := &scriptedSource{results: []fetchResult{{err: plain}, {md: priceOnly(1.08)}}}
	e, _ := newTestEngine(t, src, &stubDecider{})

	_, err := e.Step(context.Background(), "EUR/USD")
	require.Error(t, err)
	assert.Equal(t, 1, src.calls)
}

func TestStepSurfacesParseFailure(t *testing.T) {
	_, perr := llm.ParseDecision("Verdict: BUY")
	src := &scriptedSource{results: []fetchResult{{md: priceOnly(1.08)}, {md: priceOnly(1.08)}}}
	d := &stubDecider{err: perr}
	e, _ := newTestEngine(t, src, d)

	_, err := e.Step(context.Background(), "EUR/USD")
	var pe *llm.ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, 1, d.calls)
}

func TestStepRetriesWhenOneProviderRefusedOnQuota(t *testing.T) {
	mixed := &market.ChainError{Symbol: "USD/SGD", Failures: []*market.ProviderError{
		{Provider: types.ProviderTwelveData, Kind: market.KindData, Err: market.ErrInsufficientBars},
		{Provider: types.ProviderFinnhub, Kind: market.KindQuota, Err: errors.New("HTTP 429")},
		{Provider: types.ProviderYahoo, Kind: market.KindData, Err: market.ErrNoData},
	}}
	src := &scriptedSource{results: []fetchResult{{err: mixed}, {md: priceOnly(1.35)}}}
	d := &stubDecider{decision: types.Decision{Verdict: types.Wait, Confidence: 55, Reason: "flat"}}
	e, _ := newTestEngine(t, src, d)

	res, err := e.Step(context.Background(), "USD/SGD")
	require.NoError(t, err)
	assert.Equal(t, 1.35, res.Price)
	assert.Equal(t, 2, src.calls)
}
