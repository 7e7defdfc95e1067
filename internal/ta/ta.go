package ta

import (
	"math"

	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/momentum"
	"github.com/cinar/indicator/v2/trend"
)

func SMA(closes []float64, n int) float64 {
	if len(closes) < n || n <= 0 {
		return math.NaN()
	}
	sum := 0.0
	for i := len(closes) - n; i < len(closes); i++ {
		sum += closes[i]
	}
	return sum / float64(n)
}
func StdDev(vals []float64, n int) float64 {
	if len(vals) < n || n <= 0 {
		return math.NaN()
	}
	m := SMA(vals, n)
	s := 0.0
	for i := len(vals) - n; i < len(vals); i++ {
		d := vals[i] - m
		s += d * d
	}
	return math.Sqrt(s / float64(n))
}

// BollingerSeries returns right-aligned bands; the first n-1 entries are NaN.
func BollingerSeries(closes []float64, n int, k float64) (up, mid, low []float64) {
	up, mid, low = nanSlice(len(closes)), nanSlice(len(closes)), nanSlice(len(closes))
	for i := n; i <= len(closes); i++ {
		w := closes[:i]
		m := SMA(w, n)
		sd := StdDev(w, n)
		mid[i-1] = m
		up[i-1] = m + k*sd
		low[i-1] = m - k*sd
	}
	return
}

// EMA and RSI come from cinar/indicator; outputs are padded back to len(closes).
func EMA(closes []float64, period int) []float64 {
	if period <= 0 || len(closes) < period {
		return nanSlice(len(closes))
	}
	out := helper.ChanToSlice(trend.NewEmaWithPeriod[float64](period).Compute(helper.SliceToChan(closes)))
	return padLeft(out, len(closes))
}
func RSI(closes []float64, period int) []float64 {
	if period <= 0 || len(closes) <= period {
		return nanSlice(len(closes))
	}
	out := helper.ChanToSlice(momentum.NewRsiWithPeriod[float64](period).Compute(helper.SliceToChan(closes)))
	return padLeft(out, len(closes))
}

// MACD is EMA(fast)-EMA(slow) with an EMA(signal) of that line.
func MACD(closes []float64, fast, slow, signal int) (line, sig []float64) {
	line = nanSlice(len(closes))
	sig = nanSlice(len(closes))
	if len(closes) < slow {
		return
	}
	ef, es := EMA(closes, fast), EMA(closes, slow)
	start := -1
	for i := range closes {
		if math.IsNaN(ef[i]) || math.IsNaN(es[i]) {
			continue
		}
		if start < 0 {
			start = i
		}
		line[i] = ef[i] - es[i]
	}
	if start < 0 {
		return
	}
	s := EMA(line[start:], signal)
	copy(sig[start:], s)
	return
}

// ADX is Wilder's average directional index; the first 2*period-1 entries are NaN.
func ADX(highs, lows, closes []float64, period int) []float64 {
	n := len(closes)
	out := nanSlice(n)
	if period <= 0 || len(highs) != n || len(lows) != n || n < 2*period+1 {
		return out
	}
	tr := make([]float64, n)
	pdm := make([]float64, n)
	mdm := make([]float64, n)
	for i := 1; i < n; i++ {
		up := highs[i] - highs[i-1]
		down := lows[i-1] - lows[i]
		if up > down && up > 0 {
			pdm[i] = up
		}
		if down > up && down > 0 {
			mdm[i] = down
		}
		tr[i] = math.Max(highs[i]-lows[i], math.Max(math.Abs(highs[i]-closes[i-1]), math.Abs(lows[i]-closes[i-1])))
	}

	var str, spdm, smdm float64
	for i := 1; i <= period; i++ {
		str += tr[i]
		spdm += pdm[i]
		smdm += mdm[i]
	}
	p := float64(period)
	dx := nanSlice(n)
	dx[period] = directional(str, spdm, smdm)
	for i := period + 1; i < n; i++ {
		str = str - str/p + tr[i]
		spdm = spdm - spdm/p + pdm[i]
		smdm = smdm - smdm/p + mdm[i]
		dx[i] = directional(str, spdm, smdm)
	}

	sum := 0.0
	for i := period; i < 2*period; i++ {
		sum += dx[i]
	}
	adx := sum / p
	out[2*period-1] = adx
	for i := 2 * period; i < n; i++ {
		adx = (adx*(p-1) + dx[i]) / p
		out[i] = adx
	}
	return out
}

func directional(tr, pdm, mdm float64) float64 {
	if tr == 0 {
		return 0
	}
	pdi := 100 * pdm / tr
	mdi := 100 * mdm / tr
	if pdi+mdi == 0 {
		return 0
	}
	return 100 * math.Abs(pdi-mdi) / (pdi + mdi)
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

func padLeft(vals []float64, n int) []float64 {
	if len(vals) >= n {
		return vals[len(vals)-n:]
	}
	out := nanSlice(n)
	copy(out[n-len(vals):], vals)
	return out
}
