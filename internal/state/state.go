// Package state holds the mutable session counters shared by the scan loop,
// the policy and the verifier goroutines.
package state

import (
	"sort"
	"sync"
	"time"

	"market-signal-bot/internal/types"
)

const (
	initialWinRate = 0.5
	decay          = 0.65
	weight         = 0.35
)

type Best struct {
	Symbol     string
	Confidence int
}

type StatsSnapshot struct {
	Wins         int       `json:"wins"`
	Losses       int       `json:"losses"`
	WinRate      float64   `json:"win_rate"`
	SessionStart time.Time `json:"session_start"`
	Best         Best      `json:"best"`
}

type Stats struct {
	mu           sync.Mutex
	wins         int
	losses       int
	winRate      float64
	sessionStart time.Time
	best         Best
}

func NewStats(now time.Time) *Stats {
	return &Stats{winRate: initialWinRate, sessionStart: now}
}

// Record tallies one outcome and returns the updated win-rate.
func (s *Stats) Record(win bool) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	o := 0.0
	if win {
		s.wins++
		o = 1
	} else {
		s.losses++
	}
	r := decay*s.winRate + weight*o
	if r < 0 {
		r = 0
	} else if r > 1 {
		r = 1
	}
	s.winRate = r
	return r
}

func (s *Stats) ObserveBest(symbol string, confidence int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if confidence > s.best.Confidence {
		s.best = Best{Symbol: symbol, Confidence: confidence}
	}
}

func (s *Stats) Best() Best {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.best
}

func (s *Stats) ResetHourlyBest() {
	s.mu.Lock()
	s.best = Best{}
	s.mu.Unlock()
}

func (s *Stats) WinRate() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.winRate
}

func (s *Stats) Losses() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.losses
}

func (s *Stats) SessionStart() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionStart
}

func (s *Stats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return StatsSnapshot{
		Wins:         s.wins,
		Losses:       s.losses,
		WinRate:      s.winRate,
		SessionStart: s.sessionStart,
		Best:         s.best,
	}
}

func (s *Stats) reset(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wins, s.losses = 0, 0
	s.winRate = initialWinRate
	s.sessionStart = now
	s.best = Best{}
}

// Credits counts primary-provider credits spent since the last reset.
type Credits struct {
	mu      sync.Mutex
	used    int
	alerted map[int]bool
}

func NewCredits() *Credits {
	return &Credits{alerted: make(map[int]bool)}
}

func (c *Credits) Add(n int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.used += n
	return c.used
}

func (c *Credits) Used() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.used
}

// CrossedWarning returns the levels reached since the last call that have not
// been reported before, lowest first. Each level is reported once per reset.
func (c *Credits) CrossedWarning(levels []int) []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	var crossed []int
	for _, lvl := range levels {
		if c.used >= lvl && !c.alerted[lvl] {
			c.alerted[lvl] = true
			crossed = append(crossed, lvl)
		}
	}
	sort.Ints(crossed)
	return crossed
}

func (c *Credits) Reset() {
	c.mu.Lock()
	c.used = 0
	c.alerted = make(map[int]bool)
	c.mu.Unlock()
}

// PendingBook holds signals awaiting verification, keyed by id.
type PendingBook struct {
	mu      sync.Mutex
	signals map[string]types.PendingSignal
}

func NewPendingBook() *PendingBook {
	return &PendingBook{signals: make(map[string]types.PendingSignal)}
}

func (p *PendingBook) Add(sig types.PendingSignal) {
	p.mu.Lock()
	p.signals[sig.ID] = sig
	p.mu.Unlock()
}

// Remove deletes id and reports whether it was present; only the first caller wins.
func (p *PendingBook) Remove(id string) (types.PendingSignal, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	sig, ok := p.signals[id]
	if ok {
		delete(p.signals, id)
	}
	return sig, ok
}

func (p *PendingBook) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.signals)
}

type Session struct {
	Stats   *Stats
	Credits *Credits
	Pending *PendingBook
}

func NewSession(now time.Time) *Session {
	return &Session{
		Stats:   NewStats(now),
		Credits: NewCredits(),
		Pending: NewPendingBook(),
	}
}

// Reset clears stats and credits together and re-anchors the session start.
// Pending signals survive and are verified into the new session.
func (s *Session) Reset(now time.Time) {
	s.Stats.reset(now)
	s.Credits.Reset()
}
