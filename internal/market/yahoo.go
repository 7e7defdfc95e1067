package market

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"market-signal-bot/internal/api"
	"market-signal-bot/internal/types"
)

// Yahoo is the last-resort source: the public chart endpoint, reshaped into candles.
type Yahoo struct {
	client   *api.Client
	interval string
	rng      string
	retry    *api.RetryConfig
}

func NewYahoo(baseURL string, timeout time.Duration, retry *api.RetryConfig) *Yahoo {
	return &Yahoo{
		client: api.NewClient(
			api.WithBaseURL(baseURL),
			api.WithTimeout(timeout),
			api.WithHeaders(api.YahooFinanceHeaders()),
			api.WithLogging(true),
		),
		interval: "1m",
		rng:      "1d",
		retry:    retry,
	}
}

func (y *Yahoo) ID() types.ProviderID { return types.ProviderYahoo }

type yahooChart struct {
	Chart struct {
		Result []struct {
			Meta struct {
				RegularMarketPrice float64 `json:"regularMarketPrice"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// History returns the intraday bars that have a close, plus the last close.
// The chart's regular market price stands in when no bar has a close.
func (y *Yahoo) History(ctx context.Context, symbol string) ([]types.Candle, float64, error) {
	candles, market, err := y.chart(ctx, symbol)
	if err != nil {
		return nil, 0, err
	}
	price := market
	if len(candles) > 0 {
		price = candles[len(candles)-1].Close
	}
	if price <= 0 {
		return nil, 0, ErrNoData
	}
	return candles, price, nil
}

// Quote returns the chart's regular market price, or the last bar close when
// the meta block carries none.
func (y *Yahoo) Quote(ctx context.Context, symbol string) (float64, error) {
	candles, price, err := y.chart(ctx, symbol)
	if err != nil {
		return 0, err
	}
	if price <= 0 && len(candles) > 0 {
		price = candles[len(candles)-1].Close
	}
	if price <= 0 {
		return 0, ErrNoData
	}
	return price, nil
}

func (y *Yahoo) chart(ctx context.Context, symbol string) ([]types.Candle, float64, error) {
	q := url.Values{}
	q.Set("interval", y.interval)
	q.Set("range", y.rng)

	path := "/v8/finance/chart/" + url.PathEscape(YahooSymbol(symbol))
	resp, err := y.client.DoWithRetry(api.NewRequest("GET", path).WithContext(ctx).WithQuery(q), y.retry)
	if err != nil {
		return nil, 0, err
	}

	var body yahooChart
	if err := resp.ParseJSON(&body); err != nil {
		return nil, 0, err
	}
	if body.Chart.Error != nil {
		return nil, 0, fmt.Errorf("%w: %s: %s", ErrNoData, body.Chart.Error.Code, body.Chart.Error.Description)
	}
	if len(body.Chart.Result) == 0 {
		return nil, 0, ErrNoData
	}

	res := body.Chart.Result[0]
	var candles []types.Candle
	if len(res.Indicators.Quote) > 0 {
		qt := res.Indicators.Quote[0]
		for i, ts := range res.Timestamp {
			cl := at(qt.Close, i)
			if cl == nil {
				continue
			}
			c := types.Candle{Ts: ts, Close: *cl, Open: *cl, High: *cl, Low: *cl}
			if v := at(qt.Open, i); v != nil {
				c.Open = *v
			}
			if v := at(qt.High, i); v != nil {
				c.High = *v
			}
			if v := at(qt.Low, i); v != nil {
				c.Low = *v
			}
			if v := at(qt.Volume, i); v != nil {
				c.Vol = *v
			}
			candles = append(candles, c)
		}
	}

	return candles, res.Meta.RegularMarketPrice, nil
}

func at(xs []*float64, i int) *float64 {
	if i < 0 || i >= len(xs) {
		return nil
	}
	return xs[i]
}
