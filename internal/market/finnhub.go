package market

import (
	"context"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"market-signal-bot/internal/api"
	"market-signal-bot/internal/types"
)

// Finnhub serves single latest quotes. It has no candle history on the free tier.
type Finnhub struct {
	client  *api.Client
	token   string
	limiter *rate.Limiter
	retry   *api.RetryConfig
}

type FinnhubConfig struct {
	BaseURL   string
	Token     string
	PerMinute int
	Timeout   time.Duration
	Retry     *api.RetryConfig
}

func NewFinnhub(cfg FinnhubConfig) *Finnhub {
	if cfg.PerMinute <= 0 {
		cfg.PerMinute = 60
	}
	return &Finnhub{
		client:  api.NewClient(api.WithBaseURL(cfg.BaseURL), api.WithTimeout(cfg.Timeout), api.WithLogging(true)),
		token:   cfg.Token,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.PerMinute)), 5),
		retry:   cfg.Retry,
	}
}

func (f *Finnhub) ID() types.ProviderID { return types.ProviderFinnhub }

type finnhubQuote struct {
	Current   float64 `json:"c"`
	High      float64 `json:"h"`
	Low       float64 `json:"l"`
	Open      float64 `json:"o"`
	PrevClose float64 `json:"pc"`
	Time      int64   `json:"t"`
}

func (f *Finnhub) Quote(ctx context.Context, symbol string) (float64, error) {
	if f.token == "" {
		return 0, ErrNotConfigured
	}
	if err := f.limiter.Wait(ctx); err != nil {
		return 0, err
	}

	q := url.Values{}
	q.Set("symbol", FinnhubSymbol(symbol))
	q.Set("token", f.token)

	resp, err := f.client.DoWithRetry(api.NewRequest("GET", "/quote").WithContext(ctx).WithQuery(q), f.retry)
	if err != nil {
		return 0, err
	}
	var body finnhubQuote
	if err := resp.ParseJSON(&body); err != nil {
		return 0, err
	}
	// unknown symbols come back as all zeros
	if body.Current <= 0 {
		return 0, ErrNoData
	}
	return body.Current, nil
}
