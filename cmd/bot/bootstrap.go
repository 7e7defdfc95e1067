package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"market-signal-bot/internal/api"
	"market-signal-bot/internal/engine"
	"market-signal-bot/internal/engine/engineobs"
	"market-signal-bot/internal/eod"
	"market-signal-bot/internal/eod/eodobs"
	"market-signal-bot/internal/interfaces"
	"market-signal-bot/internal/llm/claude"
	"market-signal-bot/internal/llm/llmobs"
	"market-signal-bot/internal/llm/noop"
	"market-signal-bot/internal/llm/openai"
	"market-signal-bot/internal/logger"
	"market-signal-bot/internal/market"
	"market-signal-bot/internal/market/marketobs"
	"market-signal-bot/internal/metrics"
	"market-signal-bot/internal/news"
	"market-signal-bot/internal/notify"
	"market-signal-bot/internal/policy"
	"market-signal-bot/internal/scheduler"
	"market-signal-bot/internal/state"
	"market-signal-bot/internal/store"
	"market-signal-bot/internal/trace"
	"market-signal-bot/internal/tradelog"
	"market-signal-bot/internal/verify"
)

// app is the wired process.
type app struct {
	cfg        *store.Config
	registry   *prometheus.Registry
	metrics    *metrics.Recorder
	session    *state.Session
	notifier   interfaces.Notifier
	journal    *tradelog.Journal
	summarizer interfaces.EodSummarizer
	policy     *policy.Policy
	scheduler  *scheduler.Scheduler
}

// initializeSystem loads .env and starts the logger and tracer.
func initializeSystem() error {
	_ = godotenv.Load()

	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if err := trace.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize tracer: %v\n", err)
	}
	return nil
}

func loadConfig(ctx context.Context) (*store.Config, error) {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		logger.Warn(ctx, "Config file not found, using defaults", "path", path)
		cfg, err := store.Default()
		if err != nil {
			return nil, err
		}
		return cfg, cfg.Validate()
	}
	cfg, err := store.LoadConfig(path)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to load config", err, "path", path)
		return nil, err
	}
	return cfg, nil
}

// compressOldLogs gzips journal files older than TRADER_LOG_RETENTION_DAYS.
func compressOldLogs(ctx context.Context, dir string) {
	v := os.Getenv("TRADER_LOG_RETENTION_DAYS")
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		logger.Warn(ctx, "Ignoring invalid TRADER_LOG_RETENTION_DAYS", "value", v)
		return
	}
	if err := tradelog.CompressOlder(dir, n); err != nil {
		logger.Warn(ctx, "Failed to compress old logs", "error", err)
	}
}

func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

// initializeMarket builds the ranked provider chain. Providers without a key are left out.
func initializeMarket(ctx context.Context, cfg *store.Config, credits market.CreditCounter, rec *metrics.Recorder) interfaces.MarketSource {
	m := cfg.Market
	transient := &api.RetryConfig{
		MaxRetries:  uint64(m.TransientRetries),
		InitialWait: time.Second,
		MaxWait:     5 * time.Second,
	}

	chain := market.ChainConfig{
		Credits:    credits,
		Metrics:    rec,
		MinBars:    m.MinBars,
		OutputSize: m.OutputSize,
		History:    market.NewYahoo(m.YahooURL, m.RequestTimeout, transient),
	}
	if key := os.Getenv("TWELVE_DATA_KEY"); key != "" {
		chain.Primary = market.NewTwelveData(market.TwelveDataConfig{
			BaseURL:   m.TwelveDataURL,
			APIKey:    key,
			Interval:  m.Interval,
			PerMinute: m.PrimaryPerMinute,
			Timeout:   m.RequestTimeout,
			Retry:     transient,
		})
	} else {
		logger.Warn(ctx, "TWELVE_DATA_KEY not set, candle history comes from the fallback only")
	}
	if token := os.Getenv("FINNHUB_API_KEY"); token != "" {
		chain.Quote = market.NewFinnhub(market.FinnhubConfig{
			BaseURL:   m.FinnhubURL,
			Token:     token,
			PerMinute: m.QuotePerMinute,
			Timeout:   m.RequestTimeout,
			Retry:     transient,
		})
	} else {
		logger.Warn(ctx, "FINNHUB_API_KEY not set, quote fallback disabled")
	}

	return marketobs.Wrap(market.NewChain(chain))
}

// initializeNews returns the headline service, Finnhub first and the scraper after it.
func initializeNews(ctx context.Context, cfg *store.Config) interfaces.NewsSource {
	n := cfg.News
	var sources []news.Source
	if token := os.Getenv("FINNHUB_API_KEY"); token != "" {
		sources = append(sources, news.NewFinnhubNews(cfg.Market.FinnhubURL, token, cfg.Market.RequestTimeout, nil))
	}
	if len(n.Fallbacks) > 0 {
		sources = append(sources, news.NewScraper(n.Fallbacks, cfg.Market.RequestTimeout))
	}

	svc := news.NewService(&news.ServiceConfig{
		MaxItems:      n.MaxItems,
		CacheDuration: n.CacheTTL,
		Enabled:       !n.Disabled && len(sources) > 0,
	}, sources...)
	svc.StartCleanup(ctx)
	logger.Info(ctx, "News service ready", "sources", len(sources), "enabled", !n.Disabled && len(sources) > 0)
	return svc
}

// initializeDecider picks the oracle. A missing key falls back to the noop decider.
func initializeDecider(ctx context.Context, cfg *store.Config) interfaces.Decider {
	var decider interfaces.Decider

	switch cfg.LLM.Provider {
	case "OPENAI":
		if os.Getenv(cfg.LLM.APIKeyEnv) == "" && os.Getenv("OPENAI_API_KEY") == "" {
			logger.Warn(ctx, "No oracle API key found, using Noop decider (always WAIT)", "env", cfg.LLM.APIKeyEnv)
			decider = noop.NewNoopDecider()
			break
		}
		decider = openai.NewOpenAIDecider(cfg)
	case "CLAUDE":
		if os.Getenv("CLAUDE_API_KEY") == "" {
			logger.Warn(ctx, "CLAUDE_API_KEY not set, using Noop decider (always WAIT)")
			decider = noop.NewNoopDecider()
			break
		}
		decider = claude.NewClaudeDecider(cfg)
	default:
		decider = noop.NewNoopDecider()
		logger.Warn(ctx, "No LLM provider configured - using Noop decider (always WAIT)")
	}

	return llmobs.Wrap(decider)
}

// initializeNotifier returns Telegram with retries, or the log notifier on dry runs
// and when credentials are missing.
func initializeNotifier(ctx context.Context, cfg *store.Config, rec *metrics.Recorder) interfaces.Notifier {
	var base interfaces.Notifier = notify.LogNotifier{}

	token, chatID := os.Getenv("TELEGRAM_BOT_TOKEN"), os.Getenv("TELEGRAM_CHAT_ID")
	switch {
	case cfg.Mode == "DRY_RUN":
		logger.Warn(ctx, "Running in DRY_RUN mode - messages are logged, not sent")
	case token == "" || chatID == "":
		logger.Warn(ctx, "Telegram credentials missing - messages are logged, not sent")
	default:
		tg, err := notify.NewTelegram(token, chatID)
		if err != nil {
			logger.ErrorWithErr(ctx, "Failed to create Telegram notifier, falling back to log", err)
			break
		}
		base = tg
	}

	return notify.WithRetry(base, cfg.Notify.Attempts, cfg.Notify.Delay, rec)
}

func initializeEngine(cfg *store.Config, source interfaces.MarketSource, decider interfaces.Decider, headlines interfaces.NewsSource, rec *metrics.Recorder) interfaces.Engine {
	return engineobs.Wrap(engine.New(cfg, source, decider, headlines, rec))
}

// build wires every component. ctx bounds background work such as
// verification timers and cache cleanup.
func build(ctx context.Context, cfg *store.Config) *app {
	reg := newRegistry()
	rec := metrics.New(reg)
	session := state.NewSession(time.Now())
	dir := tradelog.Dir()

	compressOldLogs(ctx, dir)

	source := initializeMarket(ctx, cfg, session.Credits, rec)
	notifier := initializeNotifier(ctx, cfg, rec)
	journal := tradelog.NewJournal(dir, nil)
	summarizer := eodobs.Wrap(eod.NewSummarizer(dir))

	v := verify.New(ctx, verify.Config{
		Session:  session,
		Quoter:   source,
		Notifier: notifier,
		Journal:  journal,
		Metrics:  rec,
		Delay:    cfg.Verify.Delay,
	})
	p := policy.New(policy.Config{
		Thresholds: policy.ThresholdsFrom(cfg),
		Session:    session,
		Notifier:   notifier,
		Journal:    journal,
		Verifier:   v,
		Metrics:    rec,
		Location:   cfg.Location(),
	})
	eng := initializeEngine(cfg, source, initializeDecider(ctx, cfg), initializeNews(ctx, cfg), rec)

	s := scheduler.New(scheduler.Config{
		Settings:   cfg,
		Engine:     eng,
		Policy:     p,
		Session:    session,
		Notifier:   notifier,
		Summarizer: summarizer,
		Metrics:    rec,
	})

	return &app{
		cfg:        cfg,
		registry:   reg,
		metrics:    rec,
		session:    session,
		notifier:   notifier,
		journal:    journal,
		summarizer: summarizer,
		policy:     p,
		scheduler:  s,
	}
}
