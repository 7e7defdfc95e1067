package ta

import "market-signal-bot/internal/types"

// Enrich computes every indicator column from OHLC candles.
func Enrich(candles []types.Candle) *Frame {
	n := len(candles)
	closes := make([]float64, n)
	highs := make([]float64, n)
	lows := make([]float64, n)
	for i, c := range candles {
		closes[i], highs[i], lows[i] = c.Close, c.High, c.Low
	}

	f := NewFrame(n)
	f.Set("close", closes)
	f.Set(ColRSI, RSI(closes, 14))
	f.Set(ColEMA, EMA(closes, 20))
	line, sig := MACD(closes, 12, 26, 9)
	f.Set(ColMACD, line)
	f.Set(ColMACDSignal, sig)
	up, mid, low := BollingerSeries(closes, 20, 2.0)
	f.Set(ColBBUpper, up)
	f.Set(ColBBMid, mid)
	f.Set(ColBBLower, low)
	f.Set(ColADX, ADX(highs, lows, closes, 14))
	return f
}

// Analyze builds the snapshot for the latest row. Series shorter than minBars,
// and price-only data, produce a limited snapshot carrying the price alone.
func Analyze(symbol string, md types.MarketData, minBars int) types.Snapshot {
	snap := types.Snapshot{Symbol: symbol, Price: md.Price, Limited: true}
	if md.Kind != types.CandlesWithPrice || len(md.Candles) == 0 {
		return snap
	}
	if last := md.Candles[len(md.Candles)-1].Close; last > 0 {
		snap.Price = last
	}
	if len(md.Candles) < minBars {
		return snap
	}
	return FromFrame(symbol, snap.Price, Enrich(md.Candles))
}

// FromFrame reads a snapshot from any frame using the fallback column names.
func FromFrame(symbol string, price float64, f *Frame) types.Snapshot {
	return types.Snapshot{
		Symbol:     symbol,
		Price:      price,
		RSI:        f.Latest(lookups.rsi...),
		EMA20:      f.Latest(lookups.ema...),
		MACD:       f.Latest(lookups.macd...),
		MACDSignal: f.Latest(lookups.macdSignal...),
		BBUpper:    f.Latest(lookups.bbUpper...),
		BBLower:    f.Latest(lookups.bbLower...),
		ADX:        f.Latest(lookups.adx...),
	}
}
