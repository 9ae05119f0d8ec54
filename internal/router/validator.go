package router

import (
	"time"

	"github.com/shopspring/decimal"
)

// QuoteValidator filters aggregated quotes by liquidity sufficiency and
// freshness before synthesis. There are no partial-validity states:
// a quote either passes both checks or is dropped.
type QuoteValidator struct {
	minLiquidityRatio decimal.Decimal
	maxQuoteAge       time.Duration
	now               func() time.Time
}

// NewQuoteValidator creates a validator with the given thresholds
func NewQuoteValidator(minLiquidityRatio decimal.Decimal, maxQuoteAge time.Duration) *QuoteValidator {
	return &QuoteValidator{
		minLiquidityRatio: minLiquidityRatio,
		maxQuoteAge:       maxQuoteAge,
		now:               time.Now,
	}
}

// FilterValid returns the quotes that can cover at least the minimum
// fraction of the requested size and are younger than the staleness
// window. Invalid quotes are dropped silently.
func (v *QuoteValidator) FilterValid(quotes []*VenueQuote, size decimal.Decimal) []*VenueQuote {
	minLiquidity := size.Mul(v.minLiquidityRatio)
	cutoff := v.now().Add(-v.maxQuoteAge)

	valid := make([]*VenueQuote, 0, len(quotes))
	for _, q := range quotes {
		if q.AvailableLiquidity.LessThan(minLiquidity) {
			continue
		}
		if !q.LastUpdateTime.After(cutoff) {
			continue
		}
		valid = append(valid, q)
	}
	return valid
}
