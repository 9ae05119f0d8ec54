package venue

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"github.com/quantrail/sor/pkg/types"
)

const (
	bybitBaseURL    = "https://api.bybit.com"
	bybitAPIVersion = "v5"
	bybitDepthLimit = 50
	bybitCategory   = "spot"
)

// Bybit adapts the Bybit v5 public market API to the venue market data
// port. Only unauthenticated endpoints are used.
type Bybit struct {
	baseURL    string
	httpClient *http.Client
}

// NewBybit creates a Bybit market data adapter
func NewBybit() *Bybit {
	return &Bybit{
		baseURL: bybitBaseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type bybitResponse struct {
	RetCode int             `json:"retCode"`
	RetMsg  string          `json:"retMsg"`
	Result  json.RawMessage `json:"result"`
}

type bybitOrderBook struct {
	Symbol string     `json:"s"`
	Bids   [][]string `json:"b"` // [price, quantity]
	Asks   [][]string `json:"a"`
	Ts     int64      `json:"ts"`
}

type bybitTickers struct {
	List []struct {
		Symbol    string `json:"symbol"`
		Volume24h string `json:"volume24h"`
	} `json:"list"`
}

// GetOrderBook fetches an order book snapshot
func (b *Bybit) GetOrderBook(ctx context.Context, symbol string) (*types.OrderBook, error) {
	params := url.Values{}
	params.Set("category", bybitCategory)
	params.Set("symbol", symbol)
	params.Set("limit", fmt.Sprintf("%d", bybitDepthLimit))

	var result bybitOrderBook
	if err := b.publicRequest(ctx, "/market/orderbook", params, &result); err != nil {
		return nil, fmt.Errorf("bybit order book request failed: %w", err)
	}

	book := &types.OrderBook{
		Symbol:     symbol,
		Bids:       make([]types.PriceLevel, 0, len(result.Bids)),
		Asks:       make([]types.PriceLevel, 0, len(result.Asks)),
		UpdateTime: time.UnixMilli(result.Ts),
	}
	if result.Ts == 0 {
		book.UpdateTime = time.Now()
	}

	for _, bid := range result.Bids {
		level, err := parsePairLevel(bid)
		if err != nil {
			return nil, fmt.Errorf("malformed bid level: %w", err)
		}
		book.Bids = append(book.Bids, level)
	}
	for _, ask := range result.Asks {
		level, err := parsePairLevel(ask)
		if err != nil {
			return nil, fmt.Errorf("malformed ask level: %w", err)
		}
		book.Asks = append(book.Asks, level)
	}

	return book, nil
}

// Volume24h reports 24h traded base volume for a symbol
func (b *Bybit) Volume24h(ctx context.Context, symbol string) (decimal.Decimal, error) {
	params := url.Values{}
	params.Set("category", bybitCategory)
	params.Set("symbol", symbol)

	var result bybitTickers
	if err := b.publicRequest(ctx, "/market/tickers", params, &result); err != nil {
		return decimal.Zero, fmt.Errorf("bybit ticker request failed: %w", err)
	}
	if len(result.List) == 0 {
		return decimal.Zero, fmt.Errorf("no ticker data for %s", symbol)
	}
	vol, err := decimal.NewFromString(result.List[0].Volume24h)
	if err != nil {
		return decimal.Zero, fmt.Errorf("malformed volume %q: %w", result.List[0].Volume24h, err)
	}
	return vol, nil
}

// publicRequest performs an unauthenticated GET against the v5 API
func (b *Bybit) publicRequest(ctx context.Context, endpoint string, params url.Values, result interface{}) error {
	fullURL := b.baseURL + "/" + bybitAPIVersion + endpoint
	if encoded := params.Encode(); encoded != "" {
		fullURL = fullURL + "?" + encoded
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	var baseResp bybitResponse
	if err := json.Unmarshal(respBody, &baseResp); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	if baseResp.RetCode != 0 {
		return fmt.Errorf("API error %d: %s", baseResp.RetCode, baseResp.RetMsg)
	}

	if err := json.Unmarshal(baseResp.Result, result); err != nil {
		return fmt.Errorf("failed to parse result: %w", err)
	}
	return nil
}

func parsePairLevel(pair []string) (types.PriceLevel, error) {
	if len(pair) < 2 {
		return types.PriceLevel{}, fmt.Errorf("level has %d fields, want 2", len(pair))
	}
	p, err := decimal.NewFromString(pair[0])
	if err != nil {
		return types.PriceLevel{}, fmt.Errorf("bad price %q: %w", pair[0], err)
	}
	q, err := decimal.NewFromString(pair[1])
	if err != nil {
		return types.PriceLevel{}, fmt.Errorf("bad quantity %q: %w", pair[1], err)
	}
	return types.PriceLevel{Price: p, Quantity: q}, nil
}
