package notify

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"market-signal-bot/internal/state"
	"market-signal-bot/internal/types"
)

func lagos(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Africa/Lagos")
	require.NoError(t, err)
	return loc
}

func TestSignalMessage(t *testing.T) {
	sig := types.PendingSignal{
		ID:         "EUR/USD-1",
		Symbol:     "EUR/USD",
		Direction:  types.Buy,
		Entry:      1.0852,
		Confidence: 88,
		CreatedAt:  time.Date(2024, 5, 6, 13, 58, 0, 0, time.UTC),
	}
	msg := SignalMessage(sig, 82, "RSI_14 bounce", lagos(t))

	assert.True(t, strings.HasPrefix(msg, "🚨 *TRADE NOW!!*"))
	assert.Contains(t, msg, "*EUR/USD OTC*")
	assert.Contains(t, msg, "2-min expiry")
	assert.Contains(t, msg, "88% (threshold 82%)")
	assert.Contains(t, msg, "*Entry Window:* 02:58 PM")
	assert.Contains(t, msg, "*Direction:* BUY")
	assert.Contains(t, msg, "1.0852")
	assert.Contains(t, msg, "RSI\\_14 bounce")
	assert.Contains(t, msg, "Level 1 → 03:00 PM")
	assert.Contains(t, msg, "Level 2 → 03:02 PM")
	assert.Contains(t, msg, "Level 3 → 03:04 PM")
}

func TestResultAndHeartbeatMessages(t *testing.T) {
	st := state.StatsSnapshot{Wins: 1, Losses: 0, WinRate: 0.675}
	sig := types.PendingSignal{Symbol: "BTC/USD", Direction: types.Sell, Entry: 64000.5}

	msg := ResultMessage(sig, types.Win, 63990, st)
	assert.Contains(t, msg, "✅ *WIN* BTC/USD SELL")
	assert.Contains(t, msg, "Entry 64000.5 → Exit 63990")
	assert.Contains(t, msg, "1W / 0L")
	assert.Contains(t, msg, "67.5%")

	assert.Contains(t, ResultMessage(sig, types.Loss, 64001, st), "❌ *LOSS*")

	now := time.Date(2024, 5, 6, 11, 0, 0, 0, time.UTC)
	hb := HeartbeatMessage(st, 120, 780, now, lagos(t))
	assert.Contains(t, hb, "none this hour")
	assert.Contains(t, hb, "Credits: 120/780")
	assert.Contains(t, hb, "12:00 PM")

	st.Best = state.Best{Symbol: "GBP/USD", Confidence: 79}
	assert.Contains(t, HeartbeatMessage(st, 0, 780, now, time.UTC), "GBP/USD at 79%")
}

func TestPauseMessages(t *testing.T) {
	resume := time.Date(2024, 5, 7, 0, 0, 0, 0, time.UTC)
	assert.Contains(t, QuotaPauseMessage(780, 780, resume, time.UTC), "(780/780)")
	assert.Contains(t, QuotaPauseMessage(780, 780, resume, time.UTC), "May 7 12:00 AM")
	assert.Contains(t, LossLimitMessage(6, time.Hour, resume, time.UTC), "6 losses")
	assert.Contains(t, CreditWarningMessage(600, 601, 780), "601 credits used (level 600")
	assert.Contains(t, SessionResetMessage(state.StatsSnapshot{Wins: 3, Losses: 2, WinRate: 0.5}, "eod_2024-05-06.csv"), "eod\\_2024-05-06.csv")
	assert.Contains(t, StartupMessage("AajeTradeBot", "LIVE", []string{"EUR/USD", "BTC/USD"}, 82), "Watching 2 assets: EUR/USD, BTC/USD")
}
