package router

import (
	"context"
	"fmt"
	"time"

	"github.com/quantrail/sor/pkg/types"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// VenueParams holds the venue-specific pricing heuristics for a quote
// provider. FeeRate is a fraction (0.0002 = 2 bps).
type VenueParams struct {
	Name                   string
	FeeRate                decimal.Decimal
	FullFillProbability    float64
	PartialFillProbability float64
}

// VolumeProvider is optionally implemented by market data ports that
// can report 24h traded volume for a symbol.
type VolumeProvider interface {
	Volume24h(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// QuoteProvider produces a normalized VenueQuote from one venue's order
// book. Malformed or missing book data yields a zero-liquidity sentinel
// quote instead of an error so that one bad venue never fails a request.
type QuoteProvider struct {
	params VenueParams
	market types.MarketDataPort
	ledger *PerformanceLedger
	logger *logrus.Entry
}

// NewQuoteProvider creates a quote provider for a single venue
func NewQuoteProvider(params VenueParams, market types.MarketDataPort, ledger *PerformanceLedger) *QuoteProvider {
	return &QuoteProvider{
		params: params,
		market: market,
		ledger: ledger,
		logger: logrus.WithField("venue", params.Name),
	}
}

// Venue returns the venue name this provider quotes for
func (p *QuoteProvider) Venue() string {
	return p.params.Name
}

// GetQuote reads the venue's order book and computes execution-quality
// metrics for the requested size. An error is returned only when the
// market data port itself fails; a well-formed but insufficient book
// still produces a quote.
func (p *QuoteProvider) GetQuote(ctx context.Context, symbol string, side types.OrderSide, size decimal.Decimal) (*VenueQuote, error) {
	book, err := p.market.GetOrderBook(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("order book fetch failed: %w", err)
	}
	if book == nil || len(book.Bids) == 0 || len(book.Asks) == 0 {
		p.logger.WithField("symbol", symbol).Warn("empty or one-sided order book, returning sentinel quote")
		return p.sentinelQuote(symbol, side), nil
	}

	quote := p.walkBook(book, symbol, side, size)
	quote.HistoricalPerformance = p.ledger.Score(symbol, p.params.Name)

	if vp, ok := p.market.(VolumeProvider); ok {
		if vol, err := vp.Volume24h(ctx, symbol); err == nil {
			quote.RecentVolume24h = vol
		}
	}

	return quote, nil
}

// walkBook consumes price levels from best to worst on the side an
// incoming order would execute against, accumulating notional until the
// requested size is filled or visible depth runs out.
func (p *QuoteProvider) walkBook(book *types.OrderBook, symbol string, side types.OrderSide, size decimal.Decimal) *VenueQuote {
	levels := book.Asks
	if side == types.OrderSideSell {
		levels = book.Bids
	}

	bestBid := book.Bids[0].Price
	bestAsk := book.Asks[0].Price
	midPrice := bestBid.Add(bestAsk).Div(decimal.NewFromInt(2))

	remaining := size
	notional := decimal.Zero
	available := decimal.Zero

	for _, level := range levels {
		available = available.Add(level.Quantity)
		if remaining.IsPositive() {
			take := decimal.Min(remaining, level.Quantity)
			notional = notional.Add(level.Price.Mul(take))
			remaining = remaining.Sub(take)
		}
	}

	filled := size.Sub(remaining)
	if filled.IsZero() || midPrice.IsZero() {
		return p.sentinelQuote(symbol, side)
	}

	avgPrice := notional.Div(filled)
	slippageBps, _ := avgPrice.Sub(midPrice).Abs().Div(midPrice).
		Mul(decimal.NewFromInt(10000)).Float64()

	grossCost := avgPrice.Mul(size)
	fee := grossCost.Mul(p.params.FeeRate)

	fillProb := p.params.PartialFillProbability
	if remaining.IsZero() {
		fillProb = p.params.FullFillProbability
	}

	lastUpdate := book.UpdateTime
	if lastUpdate.IsZero() {
		lastUpdate = time.Now()
	}

	return &VenueQuote{
		Venue:              p.params.Name,
		Symbol:             symbol,
		Side:               side,
		AvailableLiquidity: available,
		AvgPrice:           avgPrice,
		SlippageBps:        slippageBps,
		EstimatedFee:       fee,
		TotalCost:          grossCost.Add(fee),
		FillProbability:    fillProb,
		CurrentSpread:      bestAsk.Sub(bestBid),
		OrderBookDepth:     len(levels),
		LastUpdateTime:     lastUpdate,
	}
}

// sentinelQuote marks the venue unusable for ranking without excluding
// it from the raw quote list the degraded path inspects.
func (p *QuoteProvider) sentinelQuote(symbol string, side types.OrderSide) *VenueQuote {
	return &VenueQuote{
		Venue:          p.params.Name,
		Symbol:         symbol,
		Side:           side,
		SlippageBps:    SentinelSlippageBps,
		LastUpdateTime: time.Now(),
	}
}
