package router

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func freshQuote(venue string, liquidity decimal.Decimal, age time.Duration, now time.Time) *VenueQuote {
	return &VenueQuote{
		Venue:              venue,
		AvailableLiquidity: liquidity,
		LastUpdateTime:     now.Add(-age),
	}
}

func TestValidator_LiquidityFloor(t *testing.T) {
	now := time.Now()
	v := NewQuoteValidator(decimal.NewFromFloat(0.1), 5*time.Second)
	v.now = func() time.Time { return now }

	size := decimal.NewFromInt(100)
	quotes := []*VenueQuote{
		freshQuote("a", decimal.NewFromInt(5), 0, now),   // 5% of size
		freshQuote("b", decimal.NewFromInt(10), 0, now),  // exactly 10%
		freshQuote("c", decimal.NewFromInt(50), 0, now),  // 50%
	}

	valid := v.FilterValid(quotes, size)
	assert.Len(t, valid, 2)
	assert.Equal(t, "b", valid[0].Venue)
	assert.Equal(t, "c", valid[1].Venue)
}

func TestValidator_StalenessWindow(t *testing.T) {
	now := time.Now()
	v := NewQuoteValidator(decimal.NewFromFloat(0.1), 5*time.Second)
	v.now = func() time.Time { return now }

	size := decimal.NewFromInt(10)
	quotes := []*VenueQuote{
		freshQuote("stale", decimal.NewFromInt(10), 6*time.Second, now),
		freshQuote("fresh", decimal.NewFromInt(10), 4*time.Second, now),
	}

	valid := v.FilterValid(quotes, size)
	assert.Len(t, valid, 1)
	assert.Equal(t, "fresh", valid[0].Venue)
}

func TestValidator_SentinelQuotesDropped(t *testing.T) {
	now := time.Now()
	v := NewQuoteValidator(decimal.NewFromFloat(0.1), 5*time.Second)
	v.now = func() time.Time { return now }

	quotes := []*VenueQuote{
		freshQuote("dead", decimal.Zero, 0, now),
	}

	assert.Empty(t, v.FilterValid(quotes, decimal.NewFromInt(1)))
}
