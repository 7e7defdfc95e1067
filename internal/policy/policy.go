package policy

import (
	"context"
	"fmt"
	"time"

	"market-signal-bot/internal/interfaces"
	"market-signal-bot/internal/logger"
	"market-signal-bot/internal/metrics"
	"market-signal-bot/internal/notify"
	"market-signal-bot/internal/state"
	"market-signal-bot/internal/store"
	"market-signal-bot/internal/types"
)

const (
	hotWinRate  = 0.60
	coldWinRate = 0.45
)

type Thresholds struct {
	Base, Floor, Ceiling, Lower, Raise int
}

func ThresholdsFrom(cfg *store.Config) Thresholds {
	t := cfg.Threshold
	return Thresholds{Base: t.Base, Floor: t.Floor, Ceiling: t.Ceiling, Lower: t.Lower, Raise: t.Raise}
}

// EffectiveThreshold lowers the bar on a hot streak and raises it on a cold one.
func EffectiveThreshold(t Thresholds, winRate float64) int {
	switch {
	case winRate > hotWinRate:
		return max(t.Floor, t.Base-t.Lower)
	case winRate < coldWinRate:
		return min(t.Ceiling, t.Base+t.Raise)
	default:
		return t.Base
	}
}

// SignalJournal persists emitted signals.
type SignalJournal interface {
	RecordSignal(sig types.PendingSignal, threshold int, reason string) error
}

// Verifier arranges a later outcome check for a signal.
type Verifier interface {
	Schedule(sig types.PendingSignal)
}

type Config struct {
	Thresholds Thresholds
	Session    *state.Session
	Notifier   interfaces.Notifier
	Journal    SignalJournal
	Verifier   Verifier
	Metrics    *metrics.Recorder
	Location   *time.Location
	Now        func() time.Time
}

type Policy struct {
	thresholds Thresholds
	session    *state.Session
	notifier   interfaces.Notifier
	journal    SignalJournal
	verifier   Verifier
	metrics    *metrics.Recorder
	loc        *time.Location
	now        func() time.Time
}

type Result struct {
	Notified  bool
	Threshold int
	Signal    *types.PendingSignal
}

func New(cfg Config) *Policy {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Policy{
		thresholds: cfg.Thresholds,
		session:    cfg.Session,
		notifier:   cfg.Notifier,
		journal:    cfg.Journal,
		verifier:   cfg.Verifier,
		metrics:    cfg.Metrics,
		loc:        cfg.Location,
		now:        cfg.Now,
	}
}

// Threshold is the gate for the current win-rate.
func (p *Policy) Threshold() int {
	return EffectiveThreshold(p.thresholds, p.session.Stats.WinRate())
}

// Apply gates a step result. Only BUY or SELL at or above the threshold
// becomes a pending signal.
func (p *Policy) Apply(ctx context.Context, res *types.StepResult) Result {
	threshold := p.Threshold()
	out := Result{Threshold: threshold}
	if res == nil {
		return out
	}
	d := res.Decision
	if d.Verdict != types.Buy && d.Verdict != types.Sell {
		logger.Debug(ctx, "No trade", "symbol", res.Symbol, "verdict", d.Verdict)
		return out
	}

	p.session.Stats.ObserveBest(res.Symbol, d.Confidence)
	if d.Confidence < threshold {
		logger.Info(ctx, "Below confidence threshold",
			"symbol", res.Symbol,
			"verdict", d.Verdict,
			"confidence", d.Confidence,
			"threshold", threshold,
		)
		return out
	}
	if res.Price <= 0 {
		logger.Warn(ctx, "Signal dropped without an entry price", "symbol", res.Symbol)
		return out
	}

	now := p.now()
	sig := types.PendingSignal{
		ID:         fmt.Sprintf("%s-%d", res.Symbol, now.UnixNano()),
		Symbol:     res.Symbol,
		Direction:  d.Verdict,
		Entry:      res.Price,
		Confidence: d.Confidence,
		CreatedAt:  now,
	}

	if err := p.notifier.Send(ctx, notify.SignalMessage(sig, threshold, d.Reason, p.loc)); err != nil {
		logger.ErrorWithErr(ctx, "Failed to deliver signal", err, "symbol", sig.Symbol, "signal_id", sig.ID)
	} else {
		out.Notified = true
	}

	p.session.Pending.Add(sig)
	p.metrics.SetPending(p.session.Pending.Len())
	p.metrics.Signal(sig.Symbol, string(sig.Direction))
	logger.Signal(ctx, sig.ID, sig.Symbol, string(sig.Direction), sig.Confidence, threshold, sig.Entry,
		"reason", d.Reason,
		"notified", out.Notified,
	)

	if p.journal != nil {
		if err := p.journal.RecordSignal(sig, threshold, d.Reason); err != nil {
			logger.ErrorWithErr(ctx, "Failed to journal signal", err, "signal_id", sig.ID)
		}
	}
	p.verifier.Schedule(sig)

	out.Signal = &sig
	return out
}
