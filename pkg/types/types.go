package types

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// OrderSide is the direction of an order
type OrderSide string

// Order sides
const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

// Urgency is a caller-supplied hint for how quickly an order should fill
type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyMedium Urgency = "medium"
	UrgencyHigh   Urgency = "high"
)

// OrderBook represents an order book snapshot with price levels
type OrderBook struct {
	Symbol     string       `json:"symbol"`
	Bids       []PriceLevel `json:"bids"`
	Asks       []PriceLevel `json:"asks"`
	UpdateTime time.Time    `json:"update_time"`
}

// PriceLevel represents a price level in an order book
type PriceLevel struct {
	Price    decimal.Decimal `json:"price"`
	Quantity decimal.Decimal `json:"quantity"`
}

// MarketDataPort is the read-only order book interface a venue adapter
// must implement. No authentication is required for this path.
type MarketDataPort interface {
	GetOrderBook(ctx context.Context, symbol string) (*OrderBook, error)
}

// PerformanceRecord is one historical routing outcome for a venue,
// kept in a bounded per-(symbol, venue) ledger.
type PerformanceRecord struct {
	Timestamp   time.Time `json:"timestamp"`
	Venue       string    `json:"venue"`
	SlippageBps float64   `json:"slippage_bps"`
}
