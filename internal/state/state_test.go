package state

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"market-signal-bot/internal/types"
)

func TestWinRateRecurrence(t *testing.T) {
	s := NewStats(time.Unix(0, 0))
	assert.Equal(t, 0.5, s.WinRate())

	want := []float64{0.675, 0.78875, 0.5126875}
	for i, win := range []bool{true, true, false} {
		assert.InDelta(t, want[i], s.Record(win), 1e-12, "step %d", i)
	}

	snap := s.Snapshot()
	assert.Equal(t, 2, snap.Wins)
	assert.Equal(t, 1, snap.Losses)
}

func TestWinRateStaysInRange(t *testing.T) {
	s := NewStats(time.Now())
	for i := 0; i < 200; i++ {
		r := s.Record(true)
		assert.LessOrEqual(t, r, 1.0)
	}
	for i := 0; i < 200; i++ {
		r := s.Record(false)
		assert.GreaterOrEqual(t, r, 0.0)
	}
}

func TestObserveBestKeepsHighest(t *testing.T) {
	s := NewStats(time.Now())
	s.ObserveBest("EUR/USD", 70)
	s.ObserveBest("BTC/USD", 91)
	s.ObserveBest("GBP/USD", 85)
	assert.Equal(t, Best{Symbol: "BTC/USD", Confidence: 91}, s.Best())

	s.ResetHourlyBest()
	assert.Equal(t, Best{}, s.Best())
}

func TestCreditsWarningOncePerReset(t *testing.T) {
	c := NewCredits()
	levels := []int{700, 600}

	c.Add(599)
	assert.Empty(t, c.CrossedWarning(levels))

	assert.Equal(t, 600, c.Add(1))
	assert.Equal(t, []int{600}, c.CrossedWarning(levels))
	assert.Empty(t, c.CrossedWarning(levels))

	c.Add(150)
	assert.Equal(t, []int{700}, c.CrossedWarning(levels))

	c.Reset()
	assert.Equal(t, 0, c.Used())
	c.Add(750)
	assert.Equal(t, []int{600, 700}, c.CrossedWarning(levels))
}

func TestPendingRemoveIsAtMostOnce(t *testing.T) {
	p := NewPendingBook()
	p.Add(types.PendingSignal{ID: "a", Symbol: "EUR/USD"})
	require.Equal(t, 1, p.Len())

	var wg sync.WaitGroup
	var mu sync.Mutex
	hits := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok := p.Remove("a"); ok {
				mu.Lock()
				hits++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, hits)
	assert.Equal(t, 0, p.Len())
}

func TestSessionResetClearsStatsAndCredits(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewSession(start)
	s.Stats.Record(false)
	s.Credits.Add(42)
	s.Pending.Add(types.PendingSignal{ID: "x"})

	later := start.Add(25 * time.Hour)
	s.Reset(later)

	snap := s.Stats.Snapshot()
	assert.Equal(t, 0, snap.Losses)
	assert.Equal(t, 0.5, snap.WinRate)
	assert.Equal(t, later, snap.SessionStart)
	assert.Equal(t, 0, s.Credits.Used())
	assert.Equal(t, 1, s.Pending.Len())
}
