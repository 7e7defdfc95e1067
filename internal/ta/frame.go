package ta

import "market-signal-bot/internal/types"

// Column names follow the pandas-ta convention so frames built elsewhere read the same way.
const (
	ColRSI        = "RSI_14"
	ColEMA        = "EMA_20"
	ColMACD       = "MACD_12_26_9"
	ColMACDSignal = "MACDs_12_26_9"
	ColBBUpper    = "BBU_20_2.0"
	ColBBMid      = "BBM_20_2.0"
	ColBBLower    = "BBL_20_2.0"
	ColADX        = "ADX_14"
)

// Frame is a set of equal-length named columns.
type Frame struct {
	n    int
	cols map[string][]float64
}

func NewFrame(n int) *Frame {
	return &Frame{n: n, cols: make(map[string][]float64)}
}

func (f *Frame) Len() int { return f.n }

// Set stores a column, right-aligning shorter series with NaN.
func (f *Frame) Set(name string, vals []float64) {
	f.cols[name] = padLeft(vals, f.n)
}

func (f *Frame) Has(name string) bool {
	_, ok := f.cols[name]
	return ok
}

// Latest reads the last row of the first column that exists among names.
func (f *Frame) Latest(names ...string) types.Reading {
	for _, name := range names {
		col, ok := f.cols[name]
		if !ok {
			continue
		}
		if len(col) == 0 {
			return types.Reading{}
		}
		return types.Available(col[len(col)-1])
	}
	return types.Reading{}
}

// lookups lists accepted names per field, preferred first.
var lookups = struct {
	rsi, ema, macd, macdSignal, bbUpper, bbLower, adx []string
}{
	rsi:        []string{ColRSI, "RSI"},
	ema:        []string{ColEMA, "EMA"},
	macd:       []string{ColMACD, "MACD"},
	macdSignal: []string{ColMACDSignal, "MACD_SIGNAL"},
	bbUpper:    []string{ColBBUpper, "BBU_20_2", "BB_UPPER"},
	bbLower:    []string{ColBBLower, "BBL_20_2", "BB_LOWER"},
	adx:        []string{ColADX, "ADX"},
}
