package port

import "arbscan/internal/domain/model"

// QuoteCache is the slice of the cache the scanner uses: ticker lookups only.
// A miss always means the caller re-fetches from the gateway; the cache never
// refreshes itself.
type QuoteCache interface {
	GetTicker(venue, symbol string) (*model.PriceQuote, bool)
	SetTicker(venue, symbol string, quote *model.PriceQuote)
}
