package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"arbscan/internal/application/port"
	"arbscan/internal/infrastructure/ratelimit"
)

const defaultHTTPTimeout = 10 * time.Second

// restClient is the shared HTTP plumbing of the REST adapters.
type restClient struct {
	baseURL    string
	httpClient *http.Client
}

func newRESTClient(baseURL string) restClient {
	return restClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
	}
}

// getJSON fetches path and decodes the body into out. Auth/permission
// statuses wrap ratelimit.ErrAuthFailed so the limiter won't waste its retry
// budget on them.
func (c restClient) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: http %d: %s", ratelimit.ErrAuthFailed, resp.StatusCode, string(body))
	default:
		return fmt.Errorf("http %d: %s", resp.StatusCode, string(body))
	}

	return json.Unmarshal(body, out)
}

func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

// ---- Binance ----

type BinanceGateway struct {
	rest restClient
}

func NewBinanceGateway(baseURL string) *BinanceGateway {
	if baseURL == "" {
		baseURL = "https://api.binance.com"
	}
	return &BinanceGateway{rest: newRESTClient(baseURL)}
}

func (g *BinanceGateway) Name() string         { return "binance" }
func (g *BinanceGateway) SupportsTicker() bool { return true }

type binanceTicker struct {
	Symbol    string `json:"symbol"`
	BidPrice  string `json:"bidPrice"`
	AskPrice  string `json:"askPrice"`
	LastPrice string `json:"lastPrice"`
	Volume    string `json:"volume"`
	CloseTime int64  `json:"closeTime"`
}

func (g *BinanceGateway) FetchTicker(ctx context.Context, symbol string) (*port.Ticker, error) {
	var t binanceTicker
	path := "/api/v3/ticker/24hr?symbol=" + concatSymbol(symbol)
	if err := g.rest.getJSON(ctx, path, &t); err != nil {
		return nil, fmt.Errorf("binance ticker %s: %w", symbol, err)
	}
	return &port.Ticker{
		Bid:        parseFloat(t.BidPrice),
		Ask:        parseFloat(t.AskPrice),
		Last:       parseFloat(t.LastPrice),
		BaseVolume: parseFloat(t.Volume),
		Timestamp:  t.CloseTime,
	}, nil
}

// ---- Bybit ----

type BybitGateway struct {
	rest restClient
}

func NewBybitGateway(baseURL string) *BybitGateway {
	if baseURL == "" {
		baseURL = "https://api.bybit.com"
	}
	return &BybitGateway{rest: newRESTClient(baseURL)}
}

func (g *BybitGateway) Name() string         { return "bybit" }
func (g *BybitGateway) SupportsTicker() bool { return true }

type bybitTickerResp struct {
	RetCode int    `json:"retCode"`
	RetMsg  string `json:"retMsg"`
	Result  struct {
		List []struct {
			Symbol    string `json:"symbol"`
			Bid1Price string `json:"bid1Price"`
			Ask1Price string `json:"ask1Price"`
			LastPrice string `json:"lastPrice"`
			Volume24h string `json:"volume24h"`
		} `json:"list"`
	} `json:"result"`
	Time int64 `json:"time"`
}

func (g *BybitGateway) FetchTicker(ctx context.Context, symbol string) (*port.Ticker, error) {
	var resp bybitTickerResp
	path := "/v5/market/tickers?category=spot&symbol=" + concatSymbol(symbol)
	if err := g.rest.getJSON(ctx, path, &resp); err != nil {
		return nil, fmt.Errorf("bybit ticker %s: %w", symbol, err)
	}
	if resp.RetCode != 0 {
		return nil, fmt.Errorf("bybit ticker %s: retCode %d: %s", symbol, resp.RetCode, resp.RetMsg)
	}
	if len(resp.Result.List) == 0 {
		return nil, fmt.Errorf("bybit ticker %s: %w", symbol, ratelimit.ErrInvalidSymbol)
	}
	item := resp.Result.List[0]
	return &port.Ticker{
		Bid:        parseFloat(item.Bid1Price),
		Ask:        parseFloat(item.Ask1Price),
		Last:       parseFloat(item.LastPrice),
		BaseVolume: parseFloat(item.Volume24h),
		Timestamp:  resp.Time,
	}, nil
}

// ---- OKX ----

type OKXGateway struct {
	rest restClient
}

func NewOKXGateway(baseURL string) *OKXGateway {
	if baseURL == "" {
		baseURL = "https://www.okx.com"
	}
	return &OKXGateway{rest: newRESTClient(baseURL)}
}

func (g *OKXGateway) Name() string         { return "okx" }
func (g *OKXGateway) SupportsTicker() bool { return true }

type okxTickerResp struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
	Data []struct {
		InstID string `json:"instId"`
		BidPx  string `json:"bidPx"`
		AskPx  string `json:"askPx"`
		Last   string `json:"last"`
		Vol24h string `json:"vol24h"`
		Ts     string `json:"ts"`
	} `json:"data"`
}

func (g *OKXGateway) FetchTicker(ctx context.Context, symbol string) (*port.Ticker, error) {
	var resp okxTickerResp
	path := "/api/v5/market/ticker?instId=" + dashSymbol(symbol)
	if err := g.rest.getJSON(ctx, path, &resp); err != nil {
		return nil, fmt.Errorf("okx ticker %s: %w", symbol, err)
	}
	if resp.Code != "0" {
		return nil, fmt.Errorf("okx ticker %s: code %s: %s", symbol, resp.Code, resp.Msg)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("okx ticker %s: %w", symbol, ratelimit.ErrInvalidSymbol)
	}
	item := resp.Data[0]
	ts, _ := strconv.ParseInt(item.Ts, 10, 64)
	return &port.Ticker{
		Bid:        parseFloat(item.BidPx),
		Ask:        parseFloat(item.AskPx),
		Last:       parseFloat(item.Last),
		BaseVolume: parseFloat(item.Vol24h),
		Timestamp:  ts,
	}, nil
}
