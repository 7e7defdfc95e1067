package types

import (
	"math"
	"strconv"
	"time"
)

type Candle struct {
	Ts                          int64
	Open, High, Low, Close, Vol float64
}

// Reading is a single indicator value. Valid is false when the series was
// absent or too short; the zero Reading is "not available", never 0.
type Reading struct {
	Value float64 `json:"value"`
	Valid bool    `json:"valid"`
}

func Available(v float64) Reading {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Reading{}
	}
	return Reading{Value: v, Valid: true}
}

func (r Reading) String() string {
	if !r.Valid {
		return "n/a"
	}
	return strconv.FormatFloat(r.Value, 'f', 2, 64)
}

type Snapshot struct {
	Symbol     string  `json:"symbol"`
	Price      float64 `json:"price"`
	RSI        Reading `json:"rsi"`
	EMA20      Reading `json:"ema20"`
	MACD       Reading `json:"macd"`
	MACDSignal Reading `json:"macd_signal"`
	BBUpper    Reading `json:"bb_upper"`
	BBLower    Reading `json:"bb_lower"`
	ADX        Reading `json:"adx"`
	Limited    bool    `json:"limited"`
}

type Verdict string

const (
	Buy  Verdict = "BUY"
	Sell Verdict = "SELL"
	Wait Verdict = "WAIT"
)

type Decision struct {
	Verdict    Verdict `json:"verdict"`
	Confidence int     `json:"confidence"`
	Reason     string  `json:"reason"`
}

type ProviderID string

const (
	ProviderTwelveData ProviderID = "twelvedata"
	ProviderFinnhub    ProviderID = "finnhub"
	ProviderYahoo      ProviderID = "yahoo"
)

// MarketKind tags which shape of data a MarketData carries.
type MarketKind int

const (
	Unavailable MarketKind = iota
	PriceOnly
	CandlesWithPrice
)

func (k MarketKind) String() string {
	switch k {
	case CandlesWithPrice:
		return "candles"
	case PriceOnly:
		return "price_only"
	default:
		return "unavailable"
	}
}

type MarketData struct {
	Kind    MarketKind `json:"kind"`
	Candles []Candle   `json:"-"`
	Price   float64    `json:"price"`
	Source  ProviderID `json:"source"`
}

type AssetClass string

const (
	Fiat   AssetClass = "fiat"
	Crypto AssetClass = "crypto"
)

type PendingSignal struct {
	ID         string    `json:"id"`
	Symbol     string    `json:"symbol"`
	Direction  Verdict   `json:"direction"`
	Entry      float64   `json:"entry"`
	Confidence int       `json:"confidence"`
	CreatedAt  time.Time `json:"created_at"`
}

type Outcome string

const (
	Win  Outcome = "WIN"
	Loss Outcome = "LOSS"
)

type StepResult struct {
	Symbol   string     `json:"symbol"`
	Source   ProviderID `json:"source"`
	Snapshot Snapshot   `json:"snapshot"`
	Decision Decision   `json:"decision"`
	Price    float64    `json:"price"`
	Time     int64      `json:"time"`
	News     string     `json:"-"`
}
