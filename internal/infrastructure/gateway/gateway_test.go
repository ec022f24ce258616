package gateway

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"arbscan/internal/application/port"
	"arbscan/internal/infrastructure/ratelimit"
)

func TestSymbolRendering(t *testing.T) {
	cases := []struct {
		in     string
		concat string
		dash   string
	}{
		{"BTC/USDT", "BTCUSDT", "BTC-USDT"},
		{"eth/usdt", "ETHUSDT", "ETH-USDT"},
		{" sol/usdc ", "SOLUSDC", "SOL-USDC"},
		{"BTCUSDT", "BTCUSDT", "BTCUSDT"}, // no separator, passed through
	}
	for _, tc := range cases {
		if got := concatSymbol(tc.in); got != tc.concat {
			t.Errorf("concatSymbol(%q) = %q, want %q", tc.in, got, tc.concat)
		}
		if got := dashSymbol(tc.in); got != tc.dash {
			t.Errorf("dashSymbol(%q) = %q, want %q", tc.in, got, tc.dash)
		}
	}
}

func TestRegistryKnowsBuiltinVenues(t *testing.T) {
	for _, venue := range []string{"binance", "bybit", "okx", "bybit-stream"} {
		factory, ok := Get(venue)
		if !ok {
			t.Errorf("venue %s not registered", venue)
			continue
		}
		gw := factory("")
		if gw.Name() == "" {
			t.Errorf("venue %s produced unnamed gateway", venue)
		}
	}
	if _, ok := Get("ftx"); ok {
		t.Error("unknown venue should not resolve")
	}
}

func TestRegisterCustomFactory(t *testing.T) {
	Register("custom", func(u string) port.VenueGateway { return NewBinanceGateway(u) })
	if _, ok := Get("custom"); !ok {
		t.Error("registered factory not found")
	}
	Register("nil-factory", nil)
	if _, ok := Get("nil-factory"); ok {
		t.Error("nil factory should be ignored")
	}
}

func TestBinanceFetchTicker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("symbol"); got != "BTCUSDT" {
			t.Errorf("expected symbol BTCUSDT, got %s", got)
		}
		w.Write([]byte(`{"symbol":"BTCUSDT","bidPrice":"50000.10","askPrice":"50001.20","lastPrice":"50000.50","volume":"1234.5","closeTime":1700000000000}`))
	}))
	defer srv.Close()

	g := NewBinanceGateway(srv.URL)
	tick, err := g.FetchTicker(context.Background(), "BTC/USDT")
	if err != nil {
		t.Fatalf("fetch ticker: %v", err)
	}
	if tick.Bid != 50000.10 || tick.Ask != 50001.20 {
		t.Errorf("price parse: bid=%f ask=%f", tick.Bid, tick.Ask)
	}
	if tick.BaseVolume != 1234.5 || tick.Timestamp != 1700000000000 {
		t.Errorf("volume/timestamp parse: vol=%f ts=%d", tick.BaseVolume, tick.Timestamp)
	}
}

func TestBinanceAuthErrorIsNonRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	g := NewBinanceGateway(srv.URL)
	_, err := g.FetchTicker(context.Background(), "BTC/USDT")
	if !errors.Is(err, ratelimit.ErrAuthFailed) {
		t.Errorf("expected ErrAuthFailed wrap, got %v", err)
	}
	if ratelimit.Retryable(err) {
		t.Error("auth failure must not be retried")
	}
}

func TestBybitFetchTicker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"retCode":0,"retMsg":"OK","result":{"list":[{"symbol":"ETHUSDT","bid1Price":"3000.1","ask1Price":"3000.9","lastPrice":"3000.5","volume24h":"999.9"}]},"time":1700000000001}`))
	}))
	defer srv.Close()

	g := NewBybitGateway(srv.URL)
	tick, err := g.FetchTicker(context.Background(), "ETH/USDT")
	if err != nil {
		t.Fatalf("fetch ticker: %v", err)
	}
	if tick.Bid != 3000.1 || tick.Ask != 3000.9 || tick.BaseVolume != 999.9 {
		t.Errorf("parse mismatch: %+v", tick)
	}
}

func TestBybitEmptyListIsInvalidSymbol(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"retCode":0,"retMsg":"OK","result":{"list":[]},"time":1700000000001}`))
	}))
	defer srv.Close()

	g := NewBybitGateway(srv.URL)
	_, err := g.FetchTicker(context.Background(), "NOPE/USDT")
	if !errors.Is(err, ratelimit.ErrInvalidSymbol) {
		t.Errorf("expected ErrInvalidSymbol, got %v", err)
	}
}

func TestBybitRetCodePropagates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"retCode":10001,"retMsg":"params error","result":{"list":[]}}`))
	}))
	defer srv.Close()

	g := NewBybitGateway(srv.URL)
	_, err := g.FetchTicker(context.Background(), "BTC/USDT")
	if err == nil {
		t.Fatal("expected error for non-zero retCode")
	}
}

func TestOKXFetchTicker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("instId"); got != "BTC-USDT" {
			t.Errorf("expected instId BTC-USDT, got %s", got)
		}
		w.Write([]byte(`{"code":"0","msg":"","data":[{"instId":"BTC-USDT","bidPx":"50000.1","askPx":"50001.2","last":"50000.5","vol24h":"42.5","ts":"1700000000002"}]}`))
	}))
	defer srv.Close()

	g := NewOKXGateway(srv.URL)
	tick, err := g.FetchTicker(context.Background(), "BTC/USDT")
	if err != nil {
		t.Fatalf("fetch ticker: %v", err)
	}
	if tick.Bid != 50000.1 || tick.Ask != 50001.2 {
		t.Errorf("price parse: bid=%f ask=%f", tick.Bid, tick.Ask)
	}
	if tick.Timestamp != 1700000000002 {
		t.Errorf("timestamp parse: %d", tick.Timestamp)
	}
}

func TestOKXErrorCodePropagates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":"51001","msg":"Instrument ID does not exist","data":[]}`))
	}))
	defer srv.Close()

	g := NewOKXGateway(srv.URL)
	_, err := g.FetchTicker(context.Background(), "BTC/USDT")
	if err == nil {
		t.Fatal("expected error for non-zero code")
	}
}
