package llm

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"market-signal-bot/internal/types"
)

// DefaultSystem is used when llm.system is not configured.
const DefaultSystem = "You are a disciplined binary options trader looking for high-probability 2-minute trades. Reply with one JSON object and nothing else."

const nearBandFraction = 0.10

const responseContract = `Respond with ONLY this JSON object, no prose and no code fences:
{"verdict":"BUY|SELL|WAIT","confidence":<integer 50-100>,"reason":"<at most 70 characters>"}`

// BuildPrompt renders the snapshot and headlines into the user prompt.
func BuildPrompt(symbol string, snap types.Snapshot, news string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Asset: %s\n", symbol)
	fmt.Fprintf(&b, "Current Price: %s\n", decimal.NewFromFloat(snap.Price).String())
	fmt.Fprintf(&b, "RSI(14): %s\n", snap.RSI)
	fmt.Fprintf(&b, "EMA(20): %s (price %s)\n", snap.EMA20, relation(snap.Price, snap.EMA20))
	fmt.Fprintf(&b, "MACD: %s vs signal %s (%s)\n", snap.MACD, snap.MACDSignal, macdRelation(snap.MACD, snap.MACDSignal))
	fmt.Fprintf(&b, "ADX(14): %s\n", snap.ADX)
	fmt.Fprintf(&b, "Bollinger(20,2): %s\n", BandZone(snap.Price, snap.BBUpper, snap.BBLower))
	if strings.TrimSpace(news) == "" {
		news = "No news available"
	}
	fmt.Fprintf(&b, "Headlines:\n%s\n", news)
	if snap.Limited {
		b.WriteString("LIMITED MODE: technical indicators are unavailable for this asset right now. Judge on price and headlines only and prefer WAIT unless the case is clear.\n")
	}
	b.WriteString("\nIs there a high-probability 2-minute trade?\n")
	b.WriteString(responseContract)
	return b.String()
}

func relation(price float64, r types.Reading) string {
	if !r.Valid {
		return "n/a"
	}
	if price >= r.Value {
		return "above"
	}
	return "below"
}

func macdRelation(line, sig types.Reading) string {
	if !line.Valid || !sig.Valid {
		return "n/a"
	}
	if line.Value >= sig.Value {
		return "above"
	}
	return "below"
}

// BandZone places price against the Bollinger bands. "near" means within
// 10% of the band width of an edge, or beyond it.
func BandZone(price float64, upper, lower types.Reading) string {
	if !upper.Valid || !lower.Valid {
		return "not-available"
	}
	width := upper.Value - lower.Value
	if width <= 0 {
		return "inside"
	}
	margin := width * nearBandFraction
	switch {
	case price >= upper.Value-margin:
		return "near-upper"
	case price <= lower.Value+margin:
		return "near-lower"
	default:
		return "inside"
	}
}
