package policy

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"market-signal-bot/internal/state"
	"market-signal-bot/internal/types"
)

var defaults = Thresholds{Base: 82, Floor: 72, Ceiling: 88, Lower: 6, Raise: 4}

type recordingNotifier struct {
	sent []string
	err  error
}

func (r *recordingNotifier) Send(_ context.Context, text string) error {
	r.sent = append(r.sent, text)
	return r.err
}

type recordingVerifier struct{ scheduled []types.PendingSignal }

func (r *recordingVerifier) Schedule(sig types.PendingSignal) { r.scheduled = append(r.scheduled, sig) }

type recordingJournal struct{ thresholds []int }

func (r *recordingJournal) RecordSignal(_ types.PendingSignal, threshold int, _ string) error {
	r.thresholds = append(r.thresholds, threshold)
	return nil
}

type fixture struct {
	policy   *Policy
	session  *state.Session
	notifier *recordingNotifier
	verifier *recordingVerifier
	journal  *recordingJournal
	now      time.Time
}

func newFixture() *fixture {
	f := &fixture{
		session:  state.NewSession(time.Now()),
		notifier: &recordingNotifier{},
		verifier: &recordingVerifier{},
		journal:  &recordingJournal{},
		now:      time.Date(2024, 5, 6, 13, 58, 0, 0, time.UTC),
	}
	f.policy = New(Config{
		Thresholds: defaults,
		Session:    f.session,
		Notifier:   f.notifier,
		Journal:    f.journal,
		Verifier:   f.verifier,
		Now:        func() time.Time { return f.now },
	})
	return f
}

func step(symbol string, v types.Verdict, conf int, price float64) *types.StepResult {
	return &types.StepResult{
		Symbol:   symbol,
		Price:    price,
		Decision: types.Decision{Verdict: v, Confidence: conf, Reason: "test"},
	}
}

func TestEffectiveThreshold(t *testing.T) {
	assert.Equal(t, 82, EffectiveThreshold(defaults, 0.5))
	assert.Equal(t, 82, EffectiveThreshold(defaults, 0.60))
	assert.Equal(t, 82, EffectiveThreshold(defaults, 0.45))
	assert.Equal(t, 76, EffectiveThreshold(defaults, 0.61))
	assert.Equal(t, 86, EffectiveThreshold(defaults, 0.44))

	tight := Thresholds{Base: 80, Floor: 78, Ceiling: 82, Lower: 6, Raise: 4}
	assert.Equal(t, 78, EffectiveThreshold(tight, 0.9))
	assert.Equal(t, 82, EffectiveThreshold(tight, 0.1))
}

func TestApplyEmitsSignalAtThreshold(t *testing.T) {
	f := newFixture()
	res := f.policy.Apply(context.Background(), step("EUR/USD", types.Buy, 82, 1.0852))

	assert.True(t, res.Notified)
	assert.Equal(t, 82, res.Threshold)
	require.NotNil(t, res.Signal)
	assert.Equal(t, "EUR/USD-1715003880000000000", res.Signal.ID)
	assert.Equal(t, types.Buy, res.Signal.Direction)
	assert.Equal(t, 1.0852, res.Signal.Entry)

	assert.Equal(t, 1, f.session.Pending.Len())
	require.Len(t, f.notifier.sent, 1)
	assert.Contains(t, f.notifier.sent[0], "TRADE NOW")
	assert.Equal(t, []int{82}, f.journal.thresholds)
	require.Len(t, f.verifier.scheduled, 1)
	assert.Equal(t, res.Signal.ID, f.verifier.scheduled[0].ID)
}

func TestApplyBelowThresholdOnlyTracksBest(t *testing.T) {
	f := newFixture()
	res := f.policy.Apply(context.Background(), step("GBP/USD", types.Sell, 81, 1.27))

	assert.False(t, res.Notified)
	assert.Nil(t, res.Signal)
	assert.Empty(t, f.notifier.sent)
	assert.Equal(t, 0, f.session.Pending.Len())
	assert.Empty(t, f.verifier.scheduled)
	assert.Equal(t, state.Best{Symbol: "GBP/USD", Confidence: 81}, f.session.Stats.Best())
}

func TestApplyWaitNeverNotifies(t *testing.T) {
	f := newFixture()
	for _, conf := range []int{50, 82, 100} {
		res := f.policy.Apply(context.Background(), step("EUR/USD", types.Wait, conf, 1.08))
		assert.False(t, res.Notified)
		assert.Nil(t, res.Signal)
	}
	assert.Empty(t, f.notifier.sent)
	assert.Equal(t, 0, f.session.Pending.Len())
	assert.Equal(t, state.Best{}, f.session.Stats.Best())
}

func TestApplyFollowsWinRate(t *testing.T) {
	f := newFixture()
	f.session.Stats.Record(true) // 0.675

	res := f.policy.Apply(context.Background(), step("EUR/USD", types.Buy, 77, 1.08))
	assert.Equal(t, 76, res.Threshold)
	assert.True(t, res.Notified)

	g := newFixture()
	g.session.Stats.Record(false) // 0.325
	res = g.policy.Apply(context.Background(), step("EUR/USD", types.Buy, 85, 1.08))
	assert.Equal(t, 86, res.Threshold)
	assert.False(t, res.Notified)
}

func TestApplyContinuesWhenNotifyFails(t *testing.T) {
	f := newFixture()
	f.notifier.err = errors.New("telegram down")

	res := f.policy.Apply(context.Background(), step("BTC/USD", types.Sell, 95, 64000))
	assert.False(t, res.Notified)
	require.NotNil(t, res.Signal)
	assert.Equal(t, 1, f.session.Pending.Len())
	assert.Len(t, f.verifier.scheduled, 1)
}
