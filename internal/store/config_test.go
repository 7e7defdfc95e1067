package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsAreValid(t *testing.T) {
	cfg, err := Default()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Len(t, cfg.Assets, 10)
	assert.Equal(t, 82, cfg.Threshold.Base)
	assert.Equal(t, 72, cfg.Threshold.Floor)
	assert.Equal(t, 88, cfg.Threshold.Ceiling)
	assert.Equal(t, 780, cfg.Credits.Ceiling)
	assert.Equal(t, []int{600, 700}, cfg.Credits.WarningLevels)
	assert.Equal(t, 165*time.Second, cfg.Verify.Delay)
	assert.Equal(t, 20*time.Second, cfg.Scan.InterAssetDelay)
	assert.Equal(t, 59*time.Minute, cfg.Scan.HeartbeatInterval)
	assert.Equal(t, 6, cfg.Risk.LossLimit)
}

func TestParseConfigFillsMissingFields(t *testing.T) {
	cfg, err := ParseConfig([]byte(`
mode: DRY_RUN
assets: [EUR/USD, BTC/USD]
scan:
  interval: 30s
`))
	require.NoError(t, err)
	assert.Equal(t, "DRY_RUN", cfg.Mode)
	assert.Equal(t, []string{"EUR/USD", "BTC/USD"}, cfg.Assets)
	assert.Equal(t, 30*time.Second, cfg.Scan.Interval)
	assert.Equal(t, 24*time.Hour, cfg.Scan.SessionLength)
	assert.Equal(t, 65, cfg.Market.MinBars)
	assert.Equal(t, "GROQ_API_KEY", cfg.LLM.APIKeyEnv)
}

func TestParseConfigRejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"floor above base", "threshold: {base: 80, floor: 85}", "config validation failed"},
		{"base out of range", "threshold: {base: 120}", "config validation failed"},
		{"warning at ceiling", "credits: {ceiling: 100, warning_levels: [100]}", "warning_levels"},
		{"unknown mode", "mode: PAPER", "config validation failed"},
		{"bad timezone", "timezone: Mars/Olympus", "invalid timezone"},
		{"unknown provider", "llm: {provider: GEMINI}", "config validation failed"},
		{"scraper without selector", "news: {fallbacks: [{category: forex, url: 'https://example.com'}]}", "config validation failed"},
		{"malformed yaml", "assets: [EUR/USD", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLocation(t *testing.T) {
	cfg, err := Default()
	require.NoError(t, err)

	at := time.Date(2024, 5, 6, 13, 58, 0, 0, time.UTC).In(cfg.Location())
	assert.Equal(t, 14, at.Hour())

	cfg.Timezone = "nowhere"
	assert.Equal(t, time.UTC, cfg.Location())
}

func TestShippedConfigLoads(t *testing.T) {
	cfg, err := LoadConfig("../../config.yaml")
	require.NoError(t, err)
	assert.Equal(t, "LIVE", cfg.Mode)
	assert.Len(t, cfg.News.Fallbacks, 2)
	assert.Equal(t, "8000", cfg.Server.Port)
}
