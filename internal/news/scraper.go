package news

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"market-signal-bot/internal/api"
	"market-signal-bot/internal/logger"
	"market-signal-bot/internal/store"
)

// Scraper collects headline text from configured HTML pages.
type Scraper struct {
	pages   []store.NewsPage
	timeout time.Duration
}

func NewScraper(pages []store.NewsPage, timeout time.Duration) *Scraper {
	return &Scraper{pages: pages, timeout: timeout}
}

func (s *Scraper) Name() string { return "scraper" }

// Headlines visits every page configured for category until max headlines are found.
func (s *Scraper) Headlines(ctx context.Context, category string, max int) ([]string, error) {
	var (
		out     []string
		visited int
	)
	seen := make(map[string]bool)
	for _, page := range s.pages {
		if page.Category != category {
			continue
		}
		if len(out) >= max {
			break
		}
		visited++
		got, err := s.scrapePage(ctx, page, max-len(out))
		if err != nil {
			logger.ErrorWithErr(ctx, "Failed to scrape headline page", err, "url", page.URL)
			continue
		}
		for _, h := range got {
			if !seen[h] {
				seen[h] = true
				out = append(out, h)
			}
		}
	}
	if visited == 0 {
		return nil, fmt.Errorf("no headline pages configured for %s", category)
	}
	return out, nil
}

func (s *Scraper) scrapePage(ctx context.Context, page store.NewsPage, max int) ([]string, error) {
	var headlines []string

	c := colly.NewCollector(
		colly.AllowedDomains(getDomain(page.URL)),
		colly.MaxDepth(1),
		colly.Async(false),
	)
	c.SetRequestTimeout(s.timeout)

	c.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil {
			r.Abort()
			return
		}
		r.Headers.Set("User-Agent", api.BrowserHeaders()["User-Agent"])
	})

	c.OnHTML("body", func(e *colly.HTMLElement) {
		e.DOM.Find(page.Selector).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
			text := strings.Join(strings.Fields(sel.Text()), " ")
			if text != "" {
				headlines = append(headlines, text)
			}
			return len(headlines) < max
		})
	})

	var scrapeErr error
	c.OnError(func(r *colly.Response, err error) {
		scrapeErr = fmt.Errorf("scrape %s: status %d: %w", page.URL, r.StatusCode, err)
	})

	if err := c.Visit(page.URL); err != nil {
		return nil, fmt.Errorf("failed to visit %s: %w", page.URL, err)
	}
	c.Wait()

	if scrapeErr != nil {
		return nil, scrapeErr
	}
	return headlines, nil
}

func getDomain(urlStr string) string {
	u, err := url.Parse(urlStr)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
