package eod

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"market-signal-bot/internal/tradelog"
)

type eodSummarizer struct {
	dir string
}

func sessionCSVPath(dir string, start time.Time) string {
	return filepath.Join(dir, "eod", start.UTC().Format("2006-01-02_1504")+".csv")
}

// SummarizeSession aggregates journal records with start <= ts < end into a
// per-symbol CSV. It returns "" when the window holds no records.
func (s *eodSummarizer) SummarizeSession(start, end time.Time) (string, error) {
	aggs := map[string]*aggRow{}
	for day := truncateDay(start); day.Before(end); day = day.AddDate(0, 0, 1) {
		if err := s.readDay(day, start, end, aggs); err != nil {
			return "", err
		}
	}
	if len(aggs) == 0 {
		return "", nil
	}

	keys := make([]string, 0, len(aggs))
	for k := range aggs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	outPath := sessionCSVPath(s.dir, start)
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return "", err
	}
	out, err := os.Create(outPath)
	if err != nil {
		return "", err
	}
	defer out.Close()

	w := csv.NewWriter(out)
	headers := []string{"symbol", "signals", "buys", "sells", "wins", "losses", "win_pct"}
	if err := w.Write(headers); err != nil {
		return "", err
	}
	total := &aggRow{Symbol: "TOTAL"}
	for _, k := range keys {
		r := aggs[k]
		if err := w.Write(record(r)); err != nil {
			return "", err
		}
		total.add(r)
	}
	if err := w.Write(record(total)); err != nil {
		return "", err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return outPath, nil
}

// SummarizeDay covers one UTC calendar day.
func (s *eodSummarizer) SummarizeDay(t time.Time) (string, error) {
	start := truncateDay(t)
	return s.SummarizeSession(start, start.AddDate(0, 0, 1))
}

func (s *eodSummarizer) readDay(day, start, end time.Time, aggs map[string]*aggRow) error {
	f, err := os.Open(tradelog.DailyPath(s.dir, day))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var jl journalLine
		if err := json.Unmarshal(sc.Bytes(), &jl); err != nil {
			continue
		}
		if jl.TS.Before(start) || !jl.TS.Before(end) || jl.Symbol == "" {
			continue
		}
		row := aggs[jl.Symbol]
		if row == nil {
			row = &aggRow{Symbol: jl.Symbol}
			aggs[jl.Symbol] = row
		}
		switch jl.Event {
		case tradelog.EventSignal:
			row.Signals++
			if jl.Direction == "BUY" {
				row.Buys++
			} else if jl.Direction == "SELL" {
				row.Sells++
			}
		case tradelog.EventOutcome:
			if jl.Result == "WIN" {
				row.Wins++
			} else if jl.Result == "LOSS" {
				row.Losses++
			}
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read %s: %w", f.Name(), err)
	}
	return nil
}

func record(r *aggRow) []string {
	winPct := ""
	if settled := r.Wins + r.Losses; settled > 0 {
		winPct = decimal.NewFromInt(int64(r.Wins)).
			Mul(decimal.NewFromInt(100)).
			DivRound(decimal.NewFromInt(int64(settled)), 1).
			StringFixed(1)
	}
	return []string{
		r.Symbol,
		strconv.Itoa(r.Signals),
		strconv.Itoa(r.Buys),
		strconv.Itoa(r.Sells),
		strconv.Itoa(r.Wins),
		strconv.Itoa(r.Losses),
		winPct,
	}
}

func truncateDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
