// Package scheduler drives the scan loop: session resets, loss-limit and
// quota pauses, hourly heartbeats and the paced walk over the asset list.
package scheduler

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"market-signal-bot/internal/interfaces"
	"market-signal-bot/internal/logger"
	"market-signal-bot/internal/metrics"
	"market-signal-bot/internal/notify"
	"market-signal-bot/internal/policy"
	"market-signal-bot/internal/state"
	"market-signal-bot/internal/store"
	"market-signal-bot/internal/types"
)

type State string

const (
	Scanning        State = "SCANNING"
	PausedLossLimit State = "PAUSED_LOSS_LIMIT"
	PausedQuota     State = "PAUSED_QUOTA"
)

var allStates = []string{string(Scanning), string(PausedLossLimit), string(PausedQuota)}

// SignalPolicy gates step results into signals.
type SignalPolicy interface {
	Apply(ctx context.Context, res *types.StepResult) policy.Result
	Threshold() int
}

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

type Config struct {
	Settings   *store.Config
	Engine     interfaces.Engine
	Policy     SignalPolicy
	Session    *state.Session
	Notifier   interfaces.Notifier
	Summarizer interfaces.EodSummarizer
	Metrics    *metrics.Recorder
	Sleep      SleepFunc
	Now        func() time.Time
}

type Scheduler struct {
	cfg        *store.Config
	engine     interfaces.Engine
	policy     SignalPolicy
	session    *state.Session
	notifier   interfaces.Notifier
	summarizer interfaces.EodSummarizer
	metrics    *metrics.Recorder
	sleep      SleepFunc
	now        func() time.Time
	loc        *time.Location

	mu            sync.RWMutex
	state         State
	lastHeartbeat time.Time
	lastRound     time.Time
	rounds        int
}

func New(c Config) *Scheduler {
	if c.Sleep == nil {
		c.Sleep = Sleep
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return &Scheduler{
		cfg:        c.Settings,
		engine:     c.Engine,
		policy:     c.Policy,
		session:    c.Session,
		notifier:   c.Notifier,
		summarizer: c.Summarizer,
		metrics:    c.Metrics,
		sleep:      c.Sleep,
		now:        c.Now,
		loc:        c.Settings.Location(),
		state:      Scanning,
	}
}

// Sleep waits on a timer and returns ctx.Err() if ctx ends first.
func Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Run loops until ctx ends. A panic in the loop itself is returned as an error;
// a panic inside one symbol's pipeline only skips that symbol.
func (s *Scheduler) Run(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("scan loop panic: %v\n%s", r, debug.Stack())
		}
	}()

	s.mu.Lock()
	s.lastHeartbeat = s.now()
	s.mu.Unlock()
	s.metrics.SetState(string(Scanning), allStates...)
	logger.Info(ctx, "Scanner started", "assets", len(s.cfg.Assets), "mode", s.cfg.Mode)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.iterate(ctx); err != nil {
			return err
		}
	}
}

func (s *Scheduler) iterate(ctx context.Context) error {
	s.maybeResetSession(ctx)

	if losses := s.session.Stats.Losses(); losses >= s.cfg.Risk.LossLimit {
		return s.pauseForLosses(ctx, losses)
	}
	s.setState(ctx, Scanning)

	s.maybeHeartbeat(ctx)

	if err := s.round(ctx); err != nil {
		return err
	}
	return s.sleep(ctx, s.cfg.Scan.Interval)
}

func (s *Scheduler) maybeResetSession(ctx context.Context) {
	now := s.now()
	prev := s.session.Stats.Snapshot()
	if now.Sub(prev.SessionStart) < s.cfg.Scan.SessionLength {
		return
	}

	var summary string
	if s.summarizer != nil {
		path, err := s.summarizer.SummarizeSession(prev.SessionStart, now)
		if err != nil {
			logger.ErrorWithErr(ctx, "Failed to write session summary", err)
		} else if path != "" {
			summary = filepath.Base(path)
		}
	}

	s.session.Reset(now)
	s.metrics.SetCredits(0)
	s.metrics.SetWinRate(s.session.Stats.WinRate())
	logger.Info(ctx, "Session reset",
		"previous_wins", prev.Wins,
		"previous_losses", prev.Losses,
		"previous_win_rate", prev.WinRate,
		"summary", summary,
	)
	s.send(ctx, notify.SessionResetMessage(prev, summary))
}

func (s *Scheduler) pauseForLosses(ctx context.Context, losses int) error {
	cooldown := s.cfg.Risk.LossCooldown
	if s.setState(ctx, PausedLossLimit) {
		s.send(ctx, notify.LossLimitMessage(losses, cooldown, s.now().Add(cooldown), s.loc))
	}
	return s.sleep(ctx, cooldown)
}

func (s *Scheduler) maybeHeartbeat(ctx context.Context) {
	now := s.now()
	s.mu.Lock()
	due := now.Sub(s.lastHeartbeat) >= s.cfg.Scan.HeartbeatInterval
	if due {
		s.lastHeartbeat = now
	}
	s.mu.Unlock()
	if !due {
		return
	}

	st := s.session.Stats.Snapshot()
	s.send(ctx, notify.HeartbeatMessage(st, s.session.Credits.Used(), s.cfg.Credits.Ceiling, now, s.loc))
	s.session.Stats.ResetHourlyBest()
	logger.Info(ctx, "Heartbeat sent", "win_rate", st.WinRate, "credits_used", s.session.Credits.Used())
}

func (s *Scheduler) round(ctx context.Context) error {
	op := logger.StartOperation(logger.WithFields(ctx, "round_id", uuid.NewString()), "scan_round",
		"assets", len(s.cfg.Assets),
		"threshold", s.policy.Threshold(),
	)
	roundCtx := op.GetContext()

	for _, symbol := range s.cfg.Assets {
		if err := ctx.Err(); err != nil {
			op.EndWithError(err)
			return err
		}

		s.scanSymbol(roundCtx, symbol)

		if err := s.sleep(ctx, s.cfg.Scan.InterAssetDelay); err != nil {
			op.EndWithError(err)
			return err
		}
		if err := s.checkCredits(roundCtx); err != nil {
			op.EndWithError(err)
			return err
		}
	}

	s.mu.Lock()
	s.lastRound = s.now()
	s.rounds++
	rounds := s.rounds
	s.mu.Unlock()
	op.End("rounds", rounds, "credits_used", s.session.Credits.Used())
	return nil
}

// scanSymbol runs one symbol through the engine and the policy. Errors and
// panics skip the symbol for this round only.
func (s *Scheduler) scanSymbol(ctx context.Context, symbol string) {
	defer func() {
		if r := recover(); r != nil {
			logger.ErrorWithErr(ctx, "Symbol pipeline panicked, skipping", fmt.Errorf("panic: %v", r),
				"symbol", symbol, "stack", string(debug.Stack()))
		}
	}()

	res, err := s.engine.Step(ctx, symbol)
	if err != nil {
		logger.Warn(ctx, "Skipping symbol", "symbol", symbol, "error", err)
		return
	}
	s.policy.Apply(ctx, res)
}

func (s *Scheduler) checkCredits(ctx context.Context) error {
	used := s.session.Credits.Used()
	s.metrics.SetCredits(used)
	for _, lvl := range s.session.Credits.CrossedWarning(s.cfg.Credits.WarningLevels) {
		logger.Warn(ctx, "Credit warning level reached", "level", lvl, "used", used)
		s.send(ctx, notify.CreditWarningMessage(lvl, used, s.cfg.Credits.Ceiling))
	}
	if used < s.cfg.Credits.Ceiling {
		return nil
	}

	resume := nextUTCMidnight(s.now())
	s.setState(ctx, PausedQuota)
	s.send(ctx, notify.QuotaPauseMessage(used, s.cfg.Credits.Ceiling, resume, s.loc))
	if err := s.sleep(ctx, resume.Sub(s.now())); err != nil {
		return err
	}
	s.session.Credits.Reset()
	s.metrics.SetCredits(0)
	s.setState(ctx, Scanning)
	return nil
}

// setState records a transition and reports whether the state changed.
func (s *Scheduler) setState(ctx context.Context, next State) bool {
	s.mu.Lock()
	prev := s.state
	s.state = next
	s.mu.Unlock()
	if prev == next {
		return false
	}
	s.metrics.SetState(string(next), allStates...)
	logger.Info(ctx, "Scanner state changed", "from", prev, "to", next)
	return true
}

func (s *Scheduler) send(ctx context.Context, text string) {
	if err := s.notifier.Send(ctx, text); err != nil {
		logger.ErrorWithErr(ctx, "Failed to send notification", err)
	}
}

func nextUTCMidnight(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day()+1, 0, 0, 0, 0, time.UTC)
}

// Status is a point-in-time view for the health server.
type Status struct {
	State         State     `json:"state"`
	Wins          int       `json:"wins"`
	Losses        int       `json:"losses"`
	WinRate       float64   `json:"win_rate"`
	CreditsUsed   int       `json:"credits_used"`
	CreditCeiling int       `json:"credit_ceiling"`
	Pending       int       `json:"pending"`
	Threshold     int       `json:"threshold"`
	SessionStart  time.Time `json:"session_start"`
	LastRound     time.Time `json:"last_round,omitempty"`
	Rounds        int       `json:"rounds"`
}

func (s *Scheduler) Status() Status {
	st := s.session.Stats.Snapshot()
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Status{
		State:         s.state,
		Wins:          st.Wins,
		Losses:        st.Losses,
		WinRate:       st.WinRate,
		CreditsUsed:   s.session.Credits.Used(),
		CreditCeiling: s.cfg.Credits.Ceiling,
		Pending:       s.session.Pending.Len(),
		Threshold:     s.policy.Threshold(),
		SessionStart:  st.SessionStart,
		LastRound:     s.lastRound,
		Rounds:        s.rounds,
	}
}
