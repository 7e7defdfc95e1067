package eod

import "time"

// journalLine is one record as written by tradelog.Journal.
type journalLine struct {
	TS        time.Time `json:"ts"`
	Event     string    `json:"event"`
	SignalID  string    `json:"signal_id"`
	Symbol    string    `json:"symbol"`
	Direction string    `json:"direction"`
	Result    string    `json:"result"`
}

// aggRow holds per-symbol session counts.
type aggRow struct {
	Symbol  string
	Signals int
	Buys    int
	Sells   int
	Wins    int
	Losses  int
}

func (r *aggRow) add(o *aggRow) {
	r.Signals += o.Signals
	r.Buys += o.Buys
	r.Sells += o.Sells
	r.Wins += o.Wins
	r.Losses += o.Losses
}
