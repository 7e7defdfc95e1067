package news

import (
	"context"
	"strings"
	"sync"
	"time"

	"market-signal-bot/internal/interfaces"
	"market-signal-bot/internal/logger"
	"market-signal-bot/internal/types"
)

// Placeholder is returned whenever no headline could be fetched.
const Placeholder = "No news available"

// Source returns up to max headlines for a news category.
type Source interface {
	Name() string
	Headlines(ctx context.Context, category string, max int) ([]string, error)
}

// Service fetches headlines per asset class with caching
type Service struct {
	sources []Source
	cache   *headlineCache
	cfg     *ServiceConfig
}

var _ interfaces.NewsSource = (*Service)(nil)

// ServiceConfig configures the headline service
type ServiceConfig struct {
	MaxItems      int
	CacheDuration time.Duration
	Enabled       bool
}

// DefaultServiceConfig returns default configuration
func DefaultServiceConfig() *ServiceConfig {
	return &ServiceConfig{
		MaxItems:      5,
		CacheDuration: 5 * time.Minute,
		Enabled:       true,
	}
}

// headlineCache stores joined headlines per category
type headlineCache struct {
	mu   sync.RWMutex
	data map[string]*cacheEntry
	ttl  time.Duration
	now  func() time.Time
}

type cacheEntry struct {
	text      string
	timestamp time.Time
}

func newHeadlineCache(ttl time.Duration) *headlineCache {
	return &headlineCache{
		data: make(map[string]*cacheEntry),
		ttl:  ttl,
		now:  time.Now,
	}
}

func (c *headlineCache) get(category string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.data[category]
	if !exists || c.now().Sub(entry.timestamp) > c.ttl {
		return "", false
	}
	return entry.text, true
}

func (c *headlineCache) set(category, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data[category] = &cacheEntry{text: text, timestamp: c.now()}
}

// cleanupLoop removes expired entries until ctx is done
func (c *headlineCache) cleanupLoop(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.cleanup()
		}
	}
}

func (c *headlineCache) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for category, entry := range c.data {
		if now.Sub(entry.timestamp) > c.ttl {
			delete(c.data, category)
		}
	}
}

// NewService tries sources in order; the first that yields headlines wins.
func NewService(cfg *ServiceConfig, sources ...Source) *Service {
	if cfg == nil {
		cfg = DefaultServiceConfig()
	}
	return &Service{
		sources: sources,
		cache:   newHeadlineCache(cfg.CacheDuration),
		cfg:     cfg,
	}
}

// StartCleanup evicts expired cache entries in the background until ctx ends.
func (s *Service) StartCleanup(ctx context.Context) {
	every := s.cfg.CacheDuration
	if every <= 0 {
		return
	}
	go s.cache.cleanupLoop(ctx, every)
}

// Category maps an asset class to the news category it reads.
func Category(class types.AssetClass) string {
	if class == types.Crypto {
		return "crypto"
	}
	return "forex"
}

// Headlines never fails; on any error it returns Placeholder.
func (s *Service) Headlines(ctx context.Context, class types.AssetClass) string {
	if !s.cfg.Enabled {
		return Placeholder
	}
	category := Category(class)
	if cached, ok := s.cache.get(category); ok {
		logger.Debug(ctx, "Using cached headlines", "category", category)
		return cached
	}

	for _, src := range s.sources {
		items, err := src.Headlines(ctx, category, s.cfg.MaxItems)
		if err != nil {
			logger.Warn(ctx, "Headline source failed", "source", src.Name(), "category", category, "error", err)
			continue
		}
		if len(items) == 0 {
			continue
		}
		if len(items) > s.cfg.MaxItems {
			items = items[:s.cfg.MaxItems]
		}
		text := strings.Join(items, "\n")
		s.cache.set(category, text)
		logger.Debug(ctx, "Fetched headlines", "source", src.Name(), "category", category, "count", len(items))
		return text
	}
	return Placeholder
}
