package port

import "context"

// Ticker is the raw ticker shape a venue gateway returns. The scanner turns
// it into a model.PriceQuote.
type Ticker struct {
	Bid        float64
	Ask        float64
	Last       float64
	BaseVolume float64
	Timestamp  int64 // unix ms
}

// VenueGateway is the narrow capability the core needs from a venue adapter.
// The scanner never depends on a concrete venue type.
type VenueGateway interface {
	Name() string
	SupportsTicker() bool
	FetchTicker(ctx context.Context, symbol string) (*Ticker, error)
}
