package router

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantrail/sor/pkg/types"
)

// stubMarket serves a fixed order book or a fixed error
type stubMarket struct {
	book *types.OrderBook
	err  error
}

func (s *stubMarket) GetOrderBook(ctx context.Context, symbol string) (*types.OrderBook, error) {
	return s.book, s.err
}

func level(price, qty string) types.PriceLevel {
	return types.PriceLevel{
		Price:    decimal.RequireFromString(price),
		Quantity: decimal.RequireFromString(qty),
	}
}

func testParams(name string) VenueParams {
	return VenueParams{
		Name:                   name,
		FeeRate:                decimal.NewFromFloat(0.0002),
		FullFillProbability:    0.95,
		PartialFillProbability: 0.65,
	}
}

func TestQuoteProvider_VWAPAcrossLevels(t *testing.T) {
	book := &types.OrderBook{
		Symbol: "BTCUSDT",
		Bids:   []types.PriceLevel{level("99", "1")},
		Asks: []types.PriceLevel{
			level("100", "1"),
			level("101", "2"),
		},
		UpdateTime: time.Now(),
	}

	provider := NewQuoteProvider(testParams("binance"), &stubMarket{book: book}, NewPerformanceLedger(nil))

	quote, err := provider.GetQuote(context.Background(), "BTCUSDT", types.OrderSideBuy, decimal.NewFromInt(2))
	require.NoError(t, err)

	// 1 @ 100 + 1 @ 101 over 2 filled
	assert.True(t, quote.AvgPrice.Equal(decimal.RequireFromString("100.5")), "avg price %s", quote.AvgPrice)
	assert.True(t, quote.AvailableLiquidity.Equal(decimal.NewFromInt(3)))

	// mid = (99+100)/2 = 99.5, slippage = 1/99.5 in bps
	assert.InDelta(t, 100.5025, quote.SlippageBps, 0.01)
	assert.Equal(t, 0.95, quote.FillProbability)
	assert.True(t, quote.CurrentSpread.Equal(decimal.NewFromInt(1)))
	assert.Equal(t, 2, quote.OrderBookDepth)
}

func TestQuoteProvider_PartialDepth(t *testing.T) {
	book := &types.OrderBook{
		Symbol: "BTCUSDT",
		Bids:   []types.PriceLevel{level("99", "1")},
		Asks: []types.PriceLevel{
			level("100", "1"),
			level("101", "2"),
		},
		UpdateTime: time.Now(),
	}

	provider := NewQuoteProvider(testParams("binance"), &stubMarket{book: book}, NewPerformanceLedger(nil))

	// Request more than the visible 3 units of depth
	quote, err := provider.GetQuote(context.Background(), "BTCUSDT", types.OrderSideBuy, decimal.NewFromInt(5))
	require.NoError(t, err)

	// (100 + 2*101) / 3 filled units
	expected := decimal.RequireFromString("302").Div(decimal.NewFromInt(3))
	assert.True(t, quote.AvgPrice.Equal(expected), "avg price %s", quote.AvgPrice)
	assert.Equal(t, 0.65, quote.FillProbability, "partial fill must carry the lower baseline")
}

func TestQuoteProvider_CostInvariant(t *testing.T) {
	book := &types.OrderBook{
		Symbol:     "ETHUSDT",
		Bids:       []types.PriceLevel{level("2000", "10")},
		Asks:       []types.PriceLevel{level("2001", "10")},
		UpdateTime: time.Now(),
	}

	provider := NewQuoteProvider(testParams("binance"), &stubMarket{book: book}, NewPerformanceLedger(nil))

	size := decimal.NewFromInt(4)
	quote, err := provider.GetQuote(context.Background(), "ETHUSDT", types.OrderSideBuy, size)
	require.NoError(t, err)

	// totalCost = avgPrice * size * (1 + feeRate)
	gross := quote.AvgPrice.Mul(size)
	assert.True(t, quote.EstimatedFee.Equal(gross.Mul(decimal.NewFromFloat(0.0002))))
	assert.True(t, quote.TotalCost.Equal(gross.Add(quote.EstimatedFee)))
}

func TestQuoteProvider_SellWalksBids(t *testing.T) {
	book := &types.OrderBook{
		Symbol: "BTCUSDT",
		Bids: []types.PriceLevel{
			level("100", "1"),
			level("99", "1"),
		},
		Asks:       []types.PriceLevel{level("101", "5")},
		UpdateTime: time.Now(),
	}

	provider := NewQuoteProvider(testParams("bybit"), &stubMarket{book: book}, NewPerformanceLedger(nil))

	quote, err := provider.GetQuote(context.Background(), "BTCUSDT", types.OrderSideSell, decimal.NewFromInt(2))
	require.NoError(t, err)

	assert.True(t, quote.AvgPrice.Equal(decimal.RequireFromString("99.5")), "avg price %s", quote.AvgPrice)
	assert.True(t, quote.AvailableLiquidity.Equal(decimal.NewFromInt(2)))
}

func TestQuoteProvider_SentinelOnEmptyBook(t *testing.T) {
	cases := []*types.OrderBook{
		nil,
		{Symbol: "BTCUSDT"},
		{Symbol: "BTCUSDT", Asks: []types.PriceLevel{level("100", "1")}},
	}

	for i, book := range cases {
		t.Run(fmt.Sprintf("case_%d", i), func(t *testing.T) {
			provider := NewQuoteProvider(testParams("binance"), &stubMarket{book: book}, NewPerformanceLedger(nil))

			quote, err := provider.GetQuote(context.Background(), "BTCUSDT", types.OrderSideBuy, decimal.NewFromInt(1))
			require.NoError(t, err)

			assert.False(t, quote.Usable())
			assert.True(t, quote.AvailableLiquidity.IsZero())
			assert.True(t, quote.AvgPrice.IsZero())
			assert.Equal(t, SentinelSlippageBps, quote.SlippageBps)
		})
	}
}

func TestQuoteProvider_PortError(t *testing.T) {
	provider := NewQuoteProvider(testParams("binance"), &stubMarket{err: fmt.Errorf("connection refused")}, NewPerformanceLedger(nil))

	_, err := provider.GetQuote(context.Background(), "BTCUSDT", types.OrderSideBuy, decimal.NewFromInt(1))
	assert.Error(t, err)
}

func TestQuoteProvider_ReadsHistoricalScore(t *testing.T) {
	ledger := NewPerformanceLedger(nil)
	ledger.Record(context.Background(), "BTCUSDT", "binance", 50)

	book := &types.OrderBook{
		Symbol:     "BTCUSDT",
		Bids:       []types.PriceLevel{level("99", "5")},
		Asks:       []types.PriceLevel{level("100", "5")},
		UpdateTime: time.Now(),
	}

	provider := NewQuoteProvider(testParams("binance"), &stubMarket{book: book}, ledger)

	quote, err := provider.GetQuote(context.Background(), "BTCUSDT", types.OrderSideBuy, decimal.NewFromInt(1))
	require.NoError(t, err)
	assert.InDelta(t, 0.5, quote.HistoricalPerformance, 1e-9)
}
