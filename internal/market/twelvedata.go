package market

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"market-signal-bot/internal/api"
	"market-signal-bot/internal/types"
)

// TwelveData serves one-minute candle history. Every successful call costs one credit.
type TwelveData struct {
	client   *api.Client
	apiKey   string
	interval string
	limiter  *rate.Limiter
	retry    *api.RetryConfig
}

type TwelveDataConfig struct {
	BaseURL   string
	APIKey    string
	Interval  string
	PerMinute int
	Timeout   time.Duration
	Retry     *api.RetryConfig
}

func NewTwelveData(cfg TwelveDataConfig) *TwelveData {
	if cfg.Interval == "" {
		cfg.Interval = "1min"
	}
	if cfg.PerMinute <= 0 {
		cfg.PerMinute = 8
	}
	return &TwelveData{
		client:   api.NewClient(api.WithBaseURL(cfg.BaseURL), api.WithTimeout(cfg.Timeout), api.WithLogging(true)),
		apiKey:   cfg.APIKey,
		interval: cfg.Interval,
		limiter:  rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.PerMinute)), 1),
		retry:    cfg.Retry,
	}
}

func (t *TwelveData) ID() types.ProviderID { return types.ProviderTwelveData }

type tdValue struct {
	Datetime string `json:"datetime"`
	Open     string `json:"open"`
	High     string `json:"high"`
	Low      string `json:"low"`
	Close    string `json:"close"`
	Volume   string `json:"volume"`
}

type tdResponse struct {
	Status  string    `json:"status"`
	Code    int       `json:"code"`
	Message string    `json:"message"`
	Values  []tdValue `json:"values"`
}

// Candles returns up to n bars in ascending time order.
func (t *TwelveData) Candles(ctx context.Context, symbol string, n int) ([]types.Candle, error) {
	if t.apiKey == "" {
		return nil, ErrNotConfigured
	}
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("interval", t.interval)
	q.Set("outputsize", strconv.Itoa(n))
	q.Set("timezone", "UTC")
	q.Set("apikey", t.apiKey)

	req := api.NewRequest("GET", "/time_series").WithContext(ctx).WithQuery(q)
	resp, err := t.client.DoWithRetry(req, t.retry)
	if err != nil {
		return nil, err
	}

	var body tdResponse
	if err := resp.ParseJSON(&body); err != nil {
		return nil, err
	}
	// quota refusals arrive as HTTP 200 with status "error"
	if strings.EqualFold(body.Status, "error") {
		return nil, &api.HTTPError{StatusCode: body.Code, Body: []byte(body.Message), URL: "/time_series"}
	}
	if len(body.Values) == 0 {
		return nil, ErrNoData
	}

	candles := make([]types.Candle, 0, len(body.Values))
	for i := len(body.Values) - 1; i >= 0; i-- {
		c, err := body.Values[i].candle()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNoData, err)
		}
		candles = append(candles, c)
	}
	return candles, nil
}

func (v tdValue) candle() (types.Candle, error) {
	ts, err := time.Parse("2006-01-02 15:04:05", v.Datetime)
	if err != nil {
		ts, err = time.Parse("2006-01-02", v.Datetime)
		if err != nil {
			return types.Candle{}, err
		}
	}
	c := types.Candle{Ts: ts.Unix()}
	fields := []struct {
		raw string
		dst *float64
	}{{v.Open, &c.Open}, {v.High, &c.High}, {v.Low, &c.Low}, {v.Close, &c.Close}}
	for _, f := range fields {
		x, err := strconv.ParseFloat(f.raw, 64)
		if err != nil {
			return types.Candle{}, err
		}
		*f.dst = x
	}
	// forex series carry no volume
	if v.Volume != "" {
		c.Vol, _ = strconv.ParseFloat(v.Volume, 64)
	}
	return c, nil
}
