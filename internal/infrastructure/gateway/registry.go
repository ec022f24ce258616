package gateway

import (
	"github.com/rs/zerolog/log"

	"arbscan/internal/application/port"
)

// Factory builds a venue gateway from its configured base URL (REST or ws,
// depending on the adapter). An empty URL means the adapter's default.
type Factory func(baseURL string) port.VenueGateway

var registry = map[string]Factory{
	"binance":      func(u string) port.VenueGateway { return NewBinanceGateway(u) },
	"bybit":        func(u string) port.VenueGateway { return NewBybitGateway(u) },
	"okx":          func(u string) port.VenueGateway { return NewOKXGateway(u) },
	"bybit-stream": func(u string) port.VenueGateway { return NewBybitStreamGateway(u) },
}

// Register adds or overrides a venue factory. Called at startup, before any
// lookup; the map is not guarded.
func Register(venue string, factory Factory) {
	if factory == nil {
		log.Warn().Str("venue", venue).Msg("nil gateway factory ignored")
		return
	}
	if _, exists := registry[venue]; exists {
		log.Warn().Str("venue", venue).Msg("gateway factory already registered, overwriting")
	}
	registry[venue] = factory
}

// Get returns the factory for a venue name.
func Get(venue string) (Factory, bool) {
	f, ok := registry[venue]
	return f, ok
}

// Supported lists every registered venue name.
func Supported() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	return names
}
