package market

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"market-signal-bot/internal/api"
	"market-signal-bot/internal/types"
)

var noRetry = &api.RetryConfig{MaxRetries: 0, InitialWait: time.Millisecond, MaxWait: time.Millisecond}

func TestTwelveDataCandlesAscending(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/time_series", r.URL.Path)
		assert.Equal(t, "EUR/USD", r.URL.Query().Get("symbol"))
		assert.Equal(t, "1min", r.URL.Query().Get("interval"))
		assert.Equal(t, "key", r.URL.Query().Get("apikey"))
		w.Write([]byte(`{"meta":{"symbol":"EUR/USD"},"status":"ok","values":[
			{"datetime":"2024-05-01 10:02:00","open":"1.0702","high":"1.0705","low":"1.0700","close":"1.0704"},
			{"datetime":"2024-05-01 10:01:00","open":"1.0700","high":"1.0703","low":"1.0699","close":"1.0702"}]}`))
	}))
	defer srv.Close()

	td := NewTwelveData(TwelveDataConfig{BaseURL: srv.URL, APIKey: "key", PerMinute: 6000, Timeout: time.Second, Retry: noRetry})
	candles, err := td.Candles(context.Background(), "EUR/USD", 2)
	require.NoError(t, err)
	require.Len(t, candles, 2)
	assert.Less(t, candles[0].Ts, candles[1].Ts)
	assert.Equal(t, 1.0704, candles[1].Close)
	assert.Zero(t, candles[1].Vol)
}

func TestTwelveDataStatusErrorIsQuota(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":429,"message":"You have run out of API credits for the current minute.","status":"error"}`))
	}))
	defer srv.Close()

	td := NewTwelveData(TwelveDataConfig{BaseURL: srv.URL, APIKey: "key", PerMinute: 6000, Timeout: time.Second, Retry: noRetry})
	_, err := td.Candles(context.Background(), "EUR/USD", 200)
	require.Error(t, err)
	assert.Equal(t, KindQuota, classify(td.ID(), err).Kind)
}

func TestTwelveDataWithoutKey(t *testing.T) {
	td := NewTwelveData(TwelveDataConfig{BaseURL: "http://unused", PerMinute: 6000})
	_, err := td.Candles(context.Background(), "EUR/USD", 10)
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestFinnhubQuote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/quote", r.URL.Path)
		if r.URL.Query().Get("symbol") != "OANDA:EUR_USD" {
			w.Write([]byte(`{"c":0,"h":0,"l":0,"o":0,"pc":0,"t":0}`))
			return
		}
		w.Write([]byte(`{"c":1.0731,"h":1.074,"l":1.07,"o":1.071,"pc":1.0712,"t":1714557600}`))
	}))
	defer srv.Close()

	fh := NewFinnhub(FinnhubConfig{BaseURL: srv.URL, Token: "tok", PerMinute: 6000, Timeout: time.Second, Retry: noRetry})
	price, err := fh.Quote(context.Background(), "EUR/USD")
	require.NoError(t, err)
	assert.Equal(t, 1.0731, price)

	_, err = fh.Quote(context.Background(), "USD/XXX")
	assert.ErrorIs(t, err, ErrNoData)
}

func TestYahooHistorySkipsNullRows(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v8/finance/chart/EURUSD=X", r.URL.Path)
		assert.Equal(t, "1m", r.URL.Query().Get("interval"))
		w.Write([]byte(`{"chart":{"result":[{"meta":{"regularMarketPrice":1.0711},
			"timestamp":[1714557600,1714557660,1714557720],
			"indicators":{"quote":[{"open":[1.07,null,1.0705],"high":[1.071,null,1.0712],
			"low":[1.069,null,1.0701],"close":[1.0702,null,1.0709],"volume":[0,null,0]}]}}],"error":null}}`))
	}))
	defer srv.Close()

	y := NewYahoo(srv.URL, time.Second, noRetry)
	candles, price, err := y.History(context.Background(), "EUR/USD")
	require.NoError(t, err)
	require.Len(t, candles, 2)
	assert.Equal(t, 1.0709, price)
	assert.Equal(t, int64(1714557720), candles[1].Ts)

	quote, err := y.Quote(context.Background(), "EUR/USD")
	require.NoError(t, err)
	assert.Equal(t, 1.0711, quote)
}

func TestYahooQuoteFallsBackToLastClose(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"chart":{"result":[{"meta":{},
			"timestamp":[1714557600,1714557660],
			"indicators":{"quote":[{"close":[1.0702,1.0706]}]}}],"error":null}}`))
	}))
	defer srv.Close()

	price, err := NewYahoo(srv.URL, time.Second, noRetry).Quote(context.Background(), "EUR/USD")
	require.NoError(t, err)
	assert.Equal(t, 1.0706, price)
}

func TestYahooChartError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`))
	}))
	defer srv.Close()

	_, err := NewYahoo(srv.URL, time.Second, noRetry).Quote(context.Background(), "BTC/USD")
	require.Error(t, err)
	assert.Equal(t, KindData, classify(types.ProviderYahoo, err).Kind)
}
