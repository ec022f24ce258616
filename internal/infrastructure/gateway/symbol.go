// Package gateway provides the venue adapters behind the VenueGateway port:
// REST pollers for the public ticker endpoints of the supported venues, a
// websocket last-tick feed, and a name-keyed registry.
package gateway

import "strings"

// splitPair breaks a normalized BASE/QUOTE symbol into its parts. The request
// layer validates the shape; this only has to split it.
func splitPair(symbol string) (base, quote string) {
	base, quote, ok := strings.Cut(strings.ToUpper(strings.TrimSpace(symbol)), "/")
	if !ok {
		return base, ""
	}
	return base, quote
}

// concatSymbol renders BASE/QUOTE the way binance and bybit spell it:
// BTC/USDT -> BTCUSDT.
func concatSymbol(symbol string) string {
	base, quote := splitPair(symbol)
	return base + quote
}

// dashSymbol renders BASE/QUOTE the way okx spells it: BTC/USDT -> BTC-USDT.
func dashSymbol(symbol string) string {
	base, quote := splitPair(symbol)
	if quote == "" {
		return base
	}
	return base + "-" + quote
}
