// Package venue provides market data adapters for the supported
// liquidity venues. Adapters are read-only; routing this subsystem
// produces is executed elsewhere.
package venue

import (
	"context"
	"fmt"
	"time"

	binance "github.com/adshao/go-binance/v2"
	"github.com/shopspring/decimal"

	"github.com/quantrail/sor/pkg/types"
)

const binanceDepthLimit = 100

// Binance adapts the Binance spot REST API to the venue market data
// port. Order book reads are public and need no credentials.
type Binance struct {
	client *binance.Client
}

// NewBinance creates a Binance market data adapter
func NewBinance() *Binance {
	return &Binance{client: binance.NewClient("", "")}
}

// GetOrderBook fetches an order book snapshot
func (b *Binance) GetOrderBook(ctx context.Context, symbol string) (*types.OrderBook, error) {
	depth, err := b.client.NewDepthService().Symbol(symbol).Limit(binanceDepthLimit).Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("binance depth request failed: %w", err)
	}

	book := &types.OrderBook{
		Symbol:     symbol,
		Bids:       make([]types.PriceLevel, 0, len(depth.Bids)),
		Asks:       make([]types.PriceLevel, 0, len(depth.Asks)),
		UpdateTime: time.Now(),
	}

	for _, bid := range depth.Bids {
		level, err := parseLevel(bid.Price, bid.Quantity)
		if err != nil {
			return nil, fmt.Errorf("malformed bid level: %w", err)
		}
		book.Bids = append(book.Bids, level)
	}
	for _, ask := range depth.Asks {
		level, err := parseLevel(ask.Price, ask.Quantity)
		if err != nil {
			return nil, fmt.Errorf("malformed ask level: %w", err)
		}
		book.Asks = append(book.Asks, level)
	}

	return book, nil
}

// Volume24h reports 24h traded base volume for a symbol
func (b *Binance) Volume24h(ctx context.Context, symbol string) (decimal.Decimal, error) {
	stats, err := b.client.NewListPriceChangeStatsService().Symbol(symbol).Do(ctx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("binance ticker request failed: %w", err)
	}
	if len(stats) == 0 {
		return decimal.Zero, fmt.Errorf("no ticker stats for %s", symbol)
	}
	vol, err := decimal.NewFromString(stats[0].Volume)
	if err != nil {
		return decimal.Zero, fmt.Errorf("malformed volume %q: %w", stats[0].Volume, err)
	}
	return vol, nil
}

func parseLevel(price, qty string) (types.PriceLevel, error) {
	p, err := decimal.NewFromString(price)
	if err != nil {
		return types.PriceLevel{}, fmt.Errorf("bad price %q: %w", price, err)
	}
	q, err := decimal.NewFromString(qty)
	if err != nil {
		return types.PriceLevel{}, fmt.Errorf("bad quantity %q: %w", qty, err)
	}
	return types.PriceLevel{Price: p, Quantity: q}, nil
}
