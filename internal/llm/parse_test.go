package llm

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"market-signal-bot/internal/types"
)

func TestParseDecisionAccepts(t *testing.T) {
	d, err := ParseDecision("  \n{\"verdict\":\"BUY\",\"confidence\":86,\"reason\":\"RSI rebound above EMA\"}\n ")
	require.NoError(t, err)
	assert.Equal(t, types.Decision{Verdict: types.Buy, Confidence: 86, Reason: "RSI rebound above EMA"}, d)

	d, err = ParseDecision(`{"reason":"flat","confidence":50,"verdict":"WAIT"}`)
	require.NoError(t, err)
	assert.Equal(t, types.Wait, d.Verdict)

	d, err = ParseDecision(`{"verdict":"SELL","confidence":100,"reason":"` + strings.Repeat("é", 70) + `"}`)
	require.NoError(t, err)
	assert.Equal(t, 100, d.Confidence)
}

func TestParseDecisionRejects(t *testing.T) {
	cases := map[string]string{
		"empty":            "",
		"prose":            "Verdict: BUY\nConfidence: 85%",
		"code fence":       "```json\n{\"verdict\":\"BUY\",\"confidence\":85,\"reason\":\"x\"}\n```",
		"extra key":        `{"verdict":"BUY","confidence":85,"reason":"x","extra":1}`,
		"missing reason":   `{"verdict":"BUY","confidence":85}`,
		"missing verdict":  `{"confidence":85,"reason":"x"}`,
		"lowercase":        `{"verdict":"buy","confidence":85,"reason":"x"}`,
		"hold":             `{"verdict":"HOLD","confidence":85,"reason":"x"}`,
		"fractional":       `{"verdict":"BUY","confidence":85.5,"reason":"x"}`,
		"quoted number":    `{"verdict":"BUY","confidence":"85","reason":"x"}`,
		"too low":          `{"verdict":"BUY","confidence":49,"reason":"x"}`,
		"too high":         `{"verdict":"BUY","confidence":101,"reason":"x"}`,
		"blank reason":     `{"verdict":"BUY","confidence":85,"reason":"   "}`,
		"long reason":      `{"verdict":"BUY","confidence":85,"reason":"` + strings.Repeat("a", 71) + `"}`,
		"trailing object":  `{"verdict":"BUY","confidence":85,"reason":"x"}{"verdict":"SELL"}`,
		"trailing garbage": `{"verdict":"BUY","confidence":85,"reason":"x"} ok`,
		"array":            `[{"verdict":"BUY","confidence":85,"reason":"x"}]`,
	}
	for name, text := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseDecision(text)
			require.Error(t, err)
			var pe *ParseError
			assert.True(t, errors.As(err, &pe), "want *ParseError, got %T", err)
		})
	}
}

func TestBandZone(t *testing.T) {
	up, low := types.Available(1.20), types.Available(1.10)
	assert.Equal(t, "near-upper", BandZone(1.195, up, low))
	assert.Equal(t, "near-upper", BandZone(1.25, up, low))
	assert.Equal(t, "near-lower", BandZone(1.105, up, low))
	assert.Equal(t, "inside", BandZone(1.15, up, low))
	assert.Equal(t, "not-available", BandZone(1.15, types.Reading{}, low))
}

func TestBuildPromptFullSnapshot(t *testing.T) {
	snap := types.Snapshot{
		Symbol:     "EUR/USD",
		Price:      1.0857,
		RSI:        types.Available(61.234),
		EMA20:      types.Available(1.0849),
		MACD:       types.Available(0.0002),
		MACDSignal: types.Available(0.0001),
		BBUpper:    types.Available(1.0860),
		BBLower:    types.Available(1.0800),
		ADX:        types.Available(27.5),
	}
	p := BuildPrompt("EUR/USD", snap, "ECB holds\nDollar slips")

	assert.Contains(t, p, "Asset: EUR/USD")
	assert.Contains(t, p, "Current Price: 1.0857")
	assert.Contains(t, p, "RSI(14): 61.23")
	assert.Contains(t, p, "(price above)")
	assert.Contains(t, p, "(above)")
	assert.Contains(t, p, "ADX(14): 27.50")
	assert.Contains(t, p, "Bollinger(20,2): near-upper")
	assert.Contains(t, p, "ECB holds\nDollar slips")
	assert.Contains(t, p, `"verdict":"BUY|SELL|WAIT"`)
	assert.NotContains(t, p, "LIMITED MODE")
}

func TestBuildPromptLimited(t *testing.T) {
	p := BuildPrompt("USD/SGD", types.Snapshot{Symbol: "USD/SGD", Price: 1.3421, Limited: true}, "")

	assert.Contains(t, p, "RSI(14): n/a")
	assert.Contains(t, p, "(price n/a)")
	assert.Contains(t, p, "Bollinger(20,2): not-available")
	assert.Contains(t, p, "No news available")
	assert.Contains(t, p, "LIMITED MODE")
}
