package router

import (
	"time"

	"github.com/quantrail/sor/pkg/types"
	"github.com/shopspring/decimal"
)

// RouteRequest represents a request to route an order
type RouteRequest struct {
	Symbol         string          `json:"symbol"`
	Side           types.OrderSide `json:"side"`
	Size           decimal.Decimal `json:"size"`
	Urgency        types.Urgency   `json:"urgency"`
	MaxSlippageBps float64         `json:"max_slippage_bps,omitempty"`
	RequesterID    string          `json:"requester_id"`
}

// VenueQuote captures one venue's tradeable state for a single request.
// Quotes are produced fresh per routing call and never persisted.
type VenueQuote struct {
	Venue                 string          `json:"venue"`
	Symbol                string          `json:"symbol"`
	Side                  types.OrderSide `json:"side"`
	AvailableLiquidity    decimal.Decimal `json:"available_liquidity"`
	AvgPrice              decimal.Decimal `json:"avg_price"`
	SlippageBps           float64         `json:"slippage_bps"`
	EstimatedFee          decimal.Decimal `json:"estimated_fee"`
	TotalCost             decimal.Decimal `json:"total_cost"`
	FillProbability       float64         `json:"fill_probability"`
	HistoricalPerformance float64         `json:"historical_performance"`
	CurrentSpread         decimal.Decimal `json:"current_spread"`
	OrderBookDepth        int             `json:"order_book_depth"`
	RecentVolume24h       decimal.Decimal `json:"recent_volume_24h"`
	LastUpdateTime        time.Time       `json:"last_update_time"`
}

// Usable reports whether the quote carries tradeable prices. A quote
// with zero liquidity holds sentinel values and must not be ranked.
func (q *VenueQuote) Usable() bool {
	return q.AvailableLiquidity.IsPositive()
}

// RoutingStrategy defines how the order is distributed across venues
type RoutingStrategy string

const (
	StrategySingleVenue RoutingStrategy = "single_venue"
	StrategySplitOrder  RoutingStrategy = "split_order"
	StrategySequential  RoutingStrategy = "sequential"
)

// knownStrategy reports whether s is one of the accepted enum values
func knownStrategy(s RoutingStrategy) bool {
	switch s {
	case StrategySingleVenue, StrategySplitOrder, StrategySequential:
		return true
	}
	return false
}

// VenueAllocation is one leg of a routing decision
type VenueAllocation struct {
	Venue          string          `json:"venue"`
	Size           decimal.Decimal `json:"size"`
	ExecutionOrder int             `json:"execution_order"`
	Reasoning      string          `json:"reasoning"`
}

// RoutingDecision is the routing output. Decisions are data, not
// control flow: upstream failures surface through ConfidenceScore and
// the slippage sentinel, never through an error return.
type RoutingDecision struct {
	DecisionID          string            `json:"decision_id"`
	Strategy            RoutingStrategy   `json:"strategy"`
	Venues              []VenueAllocation `json:"venues"`
	ExpectedSlippageBps float64           `json:"expected_slippage_bps"`
	ExpectedFillTimeMs  int64             `json:"expected_fill_time_ms"`
	ConfidenceScore     float64           `json:"confidence_score"`
	AIReasoning         string            `json:"ai_reasoning"`
}

// Executable reports whether callers may act on the decision. Zero
// confidence or the sentinel slippage means "do not execute".
func (d *RoutingDecision) Executable() bool {
	return d.ConfidenceScore > 0 && d.ExpectedSlippageBps < SentinelSlippageBps
}

const (
	// SentinelSlippageBps marks unknown/unbounded slippage on unusable
	// quotes and degraded decisions.
	SentinelSlippageBps = 999999.0

	defaultHistoricalScore = 0.8
	ledgerCap              = 500
	scoreWindow            = 100

	fallbackConfidence = 0.7
	fillTimeUrgentMs   = 1000
	fillTimeRelaxedMs  = 5000
)

// Config holds router tunables. Zero values are replaced by defaults
// in New.
type Config struct {
	VenueTimeout      time.Duration   `json:"venue_timeout"`       // per-venue quote deadline
	AdvisoryTimeout   time.Duration   `json:"advisory_timeout"`    // AI advisory deadline
	MaxQuoteAge       time.Duration   `json:"max_quote_age"`       // staleness window
	MinLiquidityRatio decimal.Decimal `json:"min_liquidity_ratio"` // fraction of size a venue must cover
	DefaultVenue      string          `json:"default_venue"`       // degraded-path venue of last resort
}

func (c Config) withDefaults() Config {
	if c.VenueTimeout <= 0 {
		c.VenueTimeout = 2 * time.Second
	}
	if c.AdvisoryTimeout <= 0 {
		c.AdvisoryTimeout = 5 * time.Second
	}
	if c.MaxQuoteAge <= 0 {
		c.MaxQuoteAge = 5 * time.Second
	}
	if c.MinLiquidityRatio.IsZero() {
		c.MinLiquidityRatio = decimal.NewFromFloat(0.1)
	}
	return c
}
