package router

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// QuoteAggregator fans a routing request out to every configured venue
// quote provider concurrently. Each venue call carries its own deadline
// and its own failure domain: a slow or failing venue is logged and
// excluded, never aborting sibling fetches.
type QuoteAggregator struct {
	providers    []*QuoteProvider
	venueTimeout time.Duration
	logger       *logrus.Entry
}

// NewQuoteAggregator creates an aggregator over the given providers
func NewQuoteAggregator(providers []*QuoteProvider, venueTimeout time.Duration) *QuoteAggregator {
	return &QuoteAggregator{
		providers:    providers,
		venueTimeout: venueTimeout,
		logger:       logrus.WithField("component", "quote-aggregator"),
	}
}

// GetAllQuotes fetches quotes from all venues concurrently. The result
// preserves configured venue order so downstream tie-breaks are
// deterministic. Venues whose fetch failed are absent from the result.
func (a *QuoteAggregator) GetAllQuotes(ctx context.Context, request RouteRequest) []*VenueQuote {
	results := make([]*VenueQuote, len(a.providers))

	var wg sync.WaitGroup
	for i, provider := range a.providers {
		wg.Add(1)
		go func(idx int, p *QuoteProvider) {
			defer wg.Done()

			venueCtx, cancel := context.WithTimeout(ctx, a.venueTimeout)
			defer cancel()

			quote, err := p.GetQuote(venueCtx, request.Symbol, request.Side, request.Size)
			if err != nil {
				a.logger.WithFields(logrus.Fields{
					"venue":  p.Venue(),
					"symbol": request.Symbol,
				}).Warnf("venue quote failed, excluding: %v", err)
				return
			}
			results[idx] = quote
		}(i, provider)
	}
	wg.Wait()

	quotes := make([]*VenueQuote, 0, len(results))
	for _, q := range results {
		if q != nil {
			quotes = append(quotes, q)
		}
	}
	return quotes
}
