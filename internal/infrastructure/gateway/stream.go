package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"arbscan/internal/application/port"
)

// BybitStreamGateway serves FetchTicker from a live websocket subscription
// instead of polling REST. It keeps the latest tick per symbol; a fetch for a
// symbol that has not ticked yet is an error, which the scanner treats like
// any other failed venue.
type BybitStreamGateway struct {
	wsURL string

	mu     sync.RWMutex
	latest map[string]port.Ticker // concat symbol -> last tick
}

func NewBybitStreamGateway(wsURL string) *BybitStreamGateway {
	if wsURL == "" {
		wsURL = "wss://stream.bybit.com/v5/public/spot"
	}
	return &BybitStreamGateway{
		wsURL:  strings.TrimSpace(wsURL),
		latest: make(map[string]port.Ticker),
	}
}

func (g *BybitStreamGateway) Name() string         { return "bybit-stream" }
func (g *BybitStreamGateway) SupportsTicker() bool { return true }

func (g *BybitStreamGateway) FetchTicker(_ context.Context, symbol string) (*port.Ticker, error) {
	g.mu.RLock()
	t, ok := g.latest[concatSymbol(symbol)]
	g.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("bybit-stream: no tick yet for %s", symbol)
	}
	return &t, nil
}

type bybitSubReq struct {
	Op   string   `json:"op"`
	Args []string `json:"args"`
}

type bybitStreamMsg struct {
	Topic string `json:"topic"`
	Ts    int64  `json:"ts"`
	Data  struct {
		Symbol    string `json:"symbol"`
		Bid1Price string `json:"bid1Price"`
		Ask1Price string `json:"ask1Price"`
		LastPrice string `json:"lastPrice"`
		Volume24h string `json:"volume24h"`
	} `json:"data"`

	Success *bool  `json:"success,omitempty"`
	RetMsg  string `json:"ret_msg,omitempty"`
	Op      string `json:"op,omitempty"`
}

// Run connects, subscribes to the ticker topics for symbols, and keeps the
// latest map current until ctx is cancelled. Reconnects with a short pause on
// read errors.
func (g *BybitStreamGateway) Run(ctx context.Context, symbols []string) error {
	if g.wsURL == "" {
		return errors.New("bybit-stream: ws_url empty")
	}

	topics := make([]string, 0, len(symbols))
	for _, symbol := range symbols {
		if s := concatSymbol(symbol); s != "" {
			topics = append(topics, "tickers."+s)
		}
	}
	if len(topics) == 0 {
		return errors.New("bybit-stream: no symbols to subscribe")
	}

	for {
		if err := g.stream(ctx, topics); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Warn().Err(err).Msg("bybit-stream disconnected, reconnecting")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
}

func (g *BybitStreamGateway) stream(ctx context.Context, topics []string) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, g.wsURL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := conn.WriteJSON(bybitSubReq{Op: "subscribe", Args: topics}); err != nil {
		return err
	}
	log.Info().Int("topics", len(topics)).Msg("bybit-stream subscribed")

	_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	})

	pingTicker := time.NewTicker(25 * time.Second)
	defer pingTicker.Stop()

	errCh := make(chan error, 1)
	go func() {
		for {
			_, b, err := conn.ReadMessage()
			if err != nil {
				errCh <- err
				return
			}
			g.apply(b)
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-errCh:
			return err
		case <-pingTicker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				return err
			}
		}
	}
}

func (g *BybitStreamGateway) apply(raw []byte) {
	var msg bybitStreamMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		return
	}
	if msg.Success != nil && !*msg.Success {
		log.Warn().Str("op", msg.Op).Str("ret_msg", msg.RetMsg).Msg("bybit-stream subscribe rejected")
		return
	}
	if msg.Data.Symbol == "" {
		return
	}

	g.mu.Lock()
	prev := g.latest[msg.Data.Symbol]
	next := port.Ticker{
		Bid:        parseFloat(msg.Data.Bid1Price),
		Ask:        parseFloat(msg.Data.Ask1Price),
		Last:       parseFloat(msg.Data.LastPrice),
		BaseVolume: parseFloat(msg.Data.Volume24h),
		Timestamp:  msg.Ts,
	}
	// Snapshot/delta stream: missing fields keep their previous value.
	if next.Bid == 0 {
		next.Bid = prev.Bid
	}
	if next.Ask == 0 {
		next.Ask = prev.Ask
	}
	if next.Last == 0 {
		next.Last = prev.Last
	}
	if next.BaseVolume == 0 {
		next.BaseVolume = prev.BaseVolume
	}
	g.latest[msg.Data.Symbol] = next
	g.mu.Unlock()
}
