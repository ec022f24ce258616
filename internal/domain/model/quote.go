package model

// PriceQuote is a single venue's ticker view of one symbol. It is built once
// per scan iteration, either from a live gateway fetch or from the quote
// cache, and never mutated afterwards.
type PriceQuote struct {
	Venue      string  `json:"venue"`
	Symbol     string  `json:"symbol"` // normalized BASE/QUOTE, e.g. BTC/USDT
	Bid        float64 `json:"bid"`
	Ask        float64 `json:"ask"`
	Last       float64 `json:"last"`
	BaseVolume float64 `json:"base_volume"` // 24h volume in base units
	Timestamp  int64   `json:"ts_ms"`
	FromCache  bool    `json:"from_cache"`
}

// Valid reports whether the quote carries usable prices. Non-positive bid or
// ask means the venue returned a malformed or empty book.
func (q *PriceQuote) Valid() bool {
	return q != nil && q.Bid > 0 && q.Ask > 0
}
