package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"market-signal-bot/internal/state"
	"market-signal-bot/internal/types"
)

const clock = "03:04 PM"

// martingaleSteps are the re-entry offsets after the first 2-minute expiry.
var martingaleSteps = []time.Duration{2 * time.Minute, 4 * time.Minute, 6 * time.Minute}

var mdEscaper = strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")

// escape makes free text safe inside legacy Markdown.
func escape(s string) string {
	return mdEscaper.Replace(s)
}

func price(p float64) string {
	return decimal.NewFromFloat(p).String()
}

func pct(r float64) string {
	return decimal.NewFromFloat(r * 100).StringFixed(1) + "%"
}

func SignalMessage(sig types.PendingSignal, threshold int, reason string, loc *time.Location) string {
	at := sig.CreatedAt.In(loc)
	var b strings.Builder
	b.WriteString("🚨 *TRADE NOW!!* 🚨\n")
	fmt.Fprintf(&b, "📊 *%s OTC*\n", sig.Symbol)
	b.WriteString("⏱ *Timeframe:* 2-min expiry\n")
	fmt.Fprintf(&b, "🎯 *AI Confidence:* %d%% (threshold %d%%)\n", sig.Confidence, threshold)
	fmt.Fprintf(&b, "🕙 *Entry Window:* %s\n", at.Format(clock))
	fmt.Fprintf(&b, "↕️ *Direction:* %s\n", sig.Direction)
	fmt.Fprintf(&b, "💵 *Entry:* %s\n", price(sig.Entry))
	if reason != "" {
		fmt.Fprintf(&b, "🧠 *Reason:* %s\n", escape(reason))
	}
	b.WriteString("\n🪜 *Martingale Levels:*\n")
	for i, d := range martingaleSteps {
		fmt.Fprintf(&b, "• Level %d → %s", i+1, at.Add(d).Format(clock))
		if i < len(martingaleSteps)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func ResultMessage(sig types.PendingSignal, outcome types.Outcome, exit float64, st state.StatsSnapshot) string {
	icon := "✅"
	if outcome == types.Loss {
		icon = "❌"
	}
	return fmt.Sprintf("%s *%s* %s %s\nEntry %s → Exit %s\nSession: %dW / %dL | Win-rate %s",
		icon, outcome, sig.Symbol, sig.Direction,
		price(sig.Entry), price(exit),
		st.Wins, st.Losses, pct(st.WinRate))
}

func HeartbeatMessage(st state.StatsSnapshot, used, ceiling int, now time.Time, loc *time.Location) string {
	best := "none this hour"
	if st.Best.Symbol != "" {
		best = fmt.Sprintf("%s at %d%%", st.Best.Symbol, st.Best.Confidence)
	}
	return fmt.Sprintf("💓 *Scanner alive* (%s)\nBest signal: %s\nWin-rate: %s\nCredits: %d/%d\nSession: %dW / %dL",
		now.In(loc).Format(clock), best, pct(st.WinRate), used, ceiling, st.Wins, st.Losses)
}

func CreditWarningMessage(level, used, ceiling int) string {
	return fmt.Sprintf("⚠️ *Credit warning*: %d credits used (level %d, ceiling %d)", used, level, ceiling)
}

func QuotaPauseMessage(used, ceiling int, resume time.Time, loc *time.Location) string {
	return fmt.Sprintf("⛔ *Daily credit ceiling reached* (%d/%d)\nScanning paused until %s",
		used, ceiling, resume.In(loc).Format("Jan 2 "+clock))
}

func LossLimitMessage(losses int, cooldown time.Duration, resume time.Time, loc *time.Location) string {
	return fmt.Sprintf("🛑 *Loss limit hit*: %d losses this session\nCooling down for %s, back at %s",
		losses, cooldown, resume.In(loc).Format(clock))
}

func SessionResetMessage(prev state.StatsSnapshot, summary string) string {
	msg := fmt.Sprintf("🔄 *New session*\nLast session: %dW / %dL | Win-rate %s\nStats and credits reset.",
		prev.Wins, prev.Losses, pct(prev.WinRate))
	if summary != "" {
		msg += "\nSummary: " + escape(summary)
	}
	return msg
}

func StartupMessage(service, mode string, assets []string, threshold int) string {
	return fmt.Sprintf("🤖 *%s online* (%s)\nWatching %d assets: %s\nBase confidence threshold: %d%%",
		escape(service), mode, len(assets), strings.Join(assets, ", "), threshold)
}
