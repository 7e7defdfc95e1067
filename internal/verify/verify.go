package verify

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/shopspring/decimal"

	"market-signal-bot/internal/interfaces"
	"market-signal-bot/internal/logger"
	"market-signal-bot/internal/metrics"
	"market-signal-bot/internal/notify"
	"market-signal-bot/internal/state"
	"market-signal-bot/internal/types"
)

// Executor runs f once after d.
type Executor interface {
	AfterFunc(d time.Duration, f func())
}

// TimerExecutor runs each task on its own time.AfterFunc goroutine.
type TimerExecutor struct{}

func (TimerExecutor) AfterFunc(d time.Duration, f func()) {
	time.AfterFunc(d, f)
}

// Quoter is the cheap price path used to settle signals.
type Quoter interface {
	Quote(ctx context.Context, symbol string) (float64, types.ProviderID, error)
}

type OutcomeJournal interface {
	RecordOutcome(sig types.PendingSignal, outcome types.Outcome, exit, winRate float64) error
}

type Config struct {
	Session  *state.Session
	Quoter   Quoter
	Notifier interfaces.Notifier
	Journal  OutcomeJournal
	Executor Executor
	Metrics  *metrics.Recorder
	Delay    time.Duration
}

type Verifier struct {
	ctx      context.Context
	session  *state.Session
	quoter   Quoter
	notifier interfaces.Notifier
	journal  OutcomeJournal
	exec     Executor
	metrics  *metrics.Recorder
	delay    time.Duration
}

// New binds verifications to ctx; once it is cancelled pending checks are dropped.
func New(ctx context.Context, cfg Config) *Verifier {
	if cfg.Executor == nil {
		cfg.Executor = TimerExecutor{}
	}
	return &Verifier{
		ctx:      ctx,
		session:  cfg.Session,
		quoter:   cfg.Quoter,
		notifier: cfg.Notifier,
		journal:  cfg.Journal,
		exec:     cfg.Executor,
		metrics:  cfg.Metrics,
		delay:    cfg.Delay,
	}
}

func (v *Verifier) Schedule(sig types.PendingSignal) {
	snap := types.PendingSignal{
		ID:         sig.ID,
		Symbol:     sig.Symbol,
		Direction:  sig.Direction,
		Entry:      sig.Entry,
		Confidence: sig.Confidence,
		CreatedAt:  sig.CreatedAt,
	}
	v.exec.AfterFunc(v.delay, func() {
		if v.ctx.Err() != nil {
			return
		}
		defer func() {
			if r := recover(); r != nil {
				logger.ErrorWithErr(v.ctx, "Verification panicked, signal dropped", fmt.Errorf("panic: %v", r),
					"signal_id", snap.ID, "symbol", snap.Symbol, "stack", string(debug.Stack()))
			}
		}()
		v.Verify(v.ctx, snap)
	})
}

// Won reports whether exit moved in the signalled direction from entry.
func Won(direction types.Verdict, entry, exit float64) bool {
	cmp := decimal.NewFromFloat(exit).Cmp(decimal.NewFromFloat(entry))
	switch direction {
	case types.Buy:
		return cmp > 0
	case types.Sell:
		return cmp < 0
	default:
		return false
	}
}

// Verify settles sig once. It returns false if sig was already settled or no
// exit price could be fetched; the latter drops the signal without a result.
func (v *Verifier) Verify(ctx context.Context, sig types.PendingSignal) bool {
	if _, ok := v.session.Pending.Remove(sig.ID); !ok {
		logger.Debug(ctx, "Signal already settled", "signal_id", sig.ID)
		return false
	}
	v.metrics.SetPending(v.session.Pending.Len())

	exit, src, err := v.quoter.Quote(ctx, sig.Symbol)
	if err != nil {
		logger.ErrorWithErr(ctx, "Exit quote failed, discarding signal", err, "signal_id", sig.ID, "symbol", sig.Symbol)
		return false
	}

	outcome := types.Loss
	win := Won(sig.Direction, sig.Entry, exit)
	if win {
		outcome = types.Win
	}
	winRate := v.session.Stats.Record(win)
	v.metrics.Outcome(string(outcome))
	v.metrics.SetWinRate(winRate)
	logger.Outcome(ctx, sig.ID, sig.Symbol, string(outcome), sig.Entry, exit, winRate, "source", src)

	if err := v.notifier.Send(ctx, notify.ResultMessage(sig, outcome, exit, v.session.Stats.Snapshot())); err != nil {
		logger.ErrorWithErr(ctx, "Failed to deliver result", err, "signal_id", sig.ID)
	}
	if v.journal != nil {
		if err := v.journal.RecordOutcome(sig, outcome, exit, winRate); err != nil {
			logger.ErrorWithErr(ctx, "Failed to journal outcome", err, "signal_id", sig.ID)
		}
	}
	return true
}
