package market

import (
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"

	"market-signal-bot/internal/api"
	"market-signal-bot/internal/types"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"http 429", &api.HTTPError{StatusCode: 429}, KindQuota},
		{"credits text in 4xx body", &api.HTTPError{StatusCode: 403, Body: []byte("API credits exhausted")}, KindQuota},
		{"plain 404", &api.HTTPError{StatusCode: 404, Body: []byte("symbol not found")}, KindOther},
		{"5xx", &api.HTTPError{StatusCode: 502}, KindTransient},
		{"network", &net.OpError{Op: "dial", Err: errors.New("connection refused")}, KindTransient},
		{"no data", fmt.Errorf("wrap: %w", ErrNoData), KindData},
		{"too few bars", ErrInsufficientBars, KindData},
		{"limit text", errors.New("daily limit reached"), KindQuota},
		{"unknown", errors.New("boom"), KindOther},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			pe := classify(types.ProviderTwelveData, tc.err)
			assert.Equal(t, tc.want, pe.Kind)
			assert.ErrorIs(t, pe, tc.err)
		})
	}
}

func TestClassifyKeepsExistingKind(t *testing.T) {
	orig := &ProviderError{Provider: types.ProviderFinnhub, Kind: KindData, Err: errors.New("x")}
	assert.Same(t, orig, classify(types.ProviderYahoo, fmt.Errorf("wrapped: %w", orig)))
}

func TestSymbolMapping(t *testing.T) {
	assert.Equal(t, types.Fiat, ClassOf("EUR/USD"))
	assert.Equal(t, types.Crypto, ClassOf("btc/usd"))
	assert.Equal(t, "OANDA:EUR_USD", FinnhubSymbol("EUR/USD"))
	assert.Equal(t, "BINANCE:BTCUSDT", FinnhubSymbol("BTC/USD"))
	assert.Equal(t, "EURUSD=X", YahooSymbol("EUR/USD"))
	assert.Equal(t, "ETH-USD", YahooSymbol("ETH/USD"))
}
