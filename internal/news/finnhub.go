package news

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"market-signal-bot/internal/api"
)

// FinnhubNews reads the general market-news feed.
type FinnhubNews struct {
	client *api.Client
	token  string
	retry  *api.RetryConfig
}

type finnhubArticle struct {
	Category string `json:"category"`
	Datetime int64  `json:"datetime"`
	Headline string `json:"headline"`
	Source   string `json:"source"`
	URL      string `json:"url"`
}

func NewFinnhubNews(baseURL, token string, timeout time.Duration, retry *api.RetryConfig) *FinnhubNews {
	return &FinnhubNews{
		client: api.NewClient(api.WithBaseURL(baseURL), api.WithTimeout(timeout), api.WithLogging(true)),
		token:  token,
		retry:  retry,
	}
}

func (f *FinnhubNews) Name() string { return "finnhub" }

func (f *FinnhubNews) Headlines(ctx context.Context, category string, max int) ([]string, error) {
	if f.token == "" {
		return nil, fmt.Errorf("finnhub news: no api token")
	}
	q := url.Values{}
	q.Set("category", category)
	q.Set("token", f.token)
	req := api.NewRequest("GET", "/news").WithContext(ctx).WithQuery(q)
	resp, err := f.client.DoWithRetry(req, f.retry)
	if err != nil {
		return nil, fmt.Errorf("finnhub news %s: %w", category, err)
	}
	var articles []finnhubArticle
	if err := resp.ParseJSON(&articles); err != nil {
		return nil, err
	}
	out := make([]string, 0, max)
	for _, a := range articles {
		h := strings.TrimSpace(a.Headline)
		if h == "" {
			continue
		}
		out = append(out, h)
		if len(out) == max {
			break
		}
	}
	return out, nil
}
