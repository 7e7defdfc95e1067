package market

import (
	"strings"

	"market-signal-bot/internal/types"
)

var cryptoBases = map[string]bool{
	"BTC": true, "ETH": true, "SOL": true, "XRP": true, "LTC": true,
	"BNB": true, "DOGE": true, "ADA": true, "DOT": true, "TRX": true,
}

func split(symbol string) (base, quote string) {
	parts := strings.SplitN(strings.ToUpper(strings.TrimSpace(symbol)), "/", 2)
	if len(parts) != 2 {
		return parts[0], ""
	}
	return parts[0], parts[1]
}

// ClassOf returns the asset class used to pick a news category.
func ClassOf(symbol string) types.AssetClass {
	base, _ := split(symbol)
	if cryptoBases[base] {
		return types.Crypto
	}
	return types.Fiat
}

// FinnhubSymbol maps "EUR/USD" to "OANDA:EUR_USD" and "BTC/USD" to "BINANCE:BTCUSDT".
func FinnhubSymbol(symbol string) string {
	base, quote := split(symbol)
	if ClassOf(symbol) == types.Crypto {
		if quote == "USD" {
			quote = "USDT"
		}
		return "BINANCE:" + base + quote
	}
	return "OANDA:" + base + "_" + quote
}

// YahooSymbol maps "EUR/USD" to "EURUSD=X" and "BTC/USD" to "BTC-USD".
func YahooSymbol(symbol string) string {
	base, quote := split(symbol)
	if ClassOf(symbol) == types.Crypto {
		return base + "-" + quote
	}
	return base + quote + "=X"
}
