package router

import (
	"context"

	"github.com/sirupsen/logrus"
)

// Router is the sole public entry point of the smart order router. One
// instance is constructed at process start and shared across all
// requests; RouteOrder is guaranteed to return a decision, never an
// error, for any well-formed request.
type Router struct {
	config      Config
	aggregator  *QuoteAggregator
	validator   *QuoteValidator
	synthesizer *RoutingSynthesizer
	ledger      *PerformanceLedger
	logger      *logrus.Entry
}

// New creates a smart order router over the given venue providers and
// advisory port. The ledger must be the same instance the providers
// read their historical-performance scores from.
func New(config Config, providers []*QuoteProvider, advisory AdvisoryPort, ledger *PerformanceLedger) *Router {
	config = config.withDefaults()

	return &Router{
		config:      config,
		aggregator:  NewQuoteAggregator(providers, config.VenueTimeout),
		validator:   NewQuoteValidator(config.MinLiquidityRatio, config.MaxQuoteAge),
		synthesizer: NewRoutingSynthesizer(advisory, config.AdvisoryTimeout),
		ledger:      ledger,
		logger:      logrus.WithField("component", "smart-router"),
	}
}

// Ledger exposes the shared performance ledger
func (r *Router) Ledger() *PerformanceLedger {
	return r.ledger
}

// RouteOrder runs one routing pass: concurrent quote acquisition,
// validation, then synthesis with ledger recording, or the degraded
// path when no quote survived validation. Every sub-step isolates its
// own failures; nothing escapes as an error.
func (r *Router) RouteOrder(ctx context.Context, request RouteRequest) *RoutingDecision {
	log := r.logger.WithFields(logrus.Fields{
		"symbol":    request.Symbol,
		"side":      request.Side,
		"size":      request.Size.String(),
		"urgency":   request.Urgency,
		"requester": request.RequesterID,
	})

	rawQuotes := r.aggregator.GetAllQuotes(ctx, request)
	validQuotes := r.validator.FilterValid(rawQuotes, request.Size)

	if len(validQuotes) == 0 {
		log.WithField("raw_quotes", len(rawQuotes)).Warn("no valid quotes, returning degraded decision")
		return degradedDecision(request, rawQuotes, r.config.DefaultVenue)
	}

	decision := r.synthesizer.Synthesize(ctx, request, validQuotes)

	// The decision's aggregate slippage is recorded against every venue
	// it references.
	for _, alloc := range decision.Venues {
		r.ledger.Record(ctx, request.Symbol, alloc.Venue, decision.ExpectedSlippageBps)
	}

	log.WithFields(logrus.Fields{
		"decision_id":  decision.DecisionID,
		"strategy":     decision.Strategy,
		"venues":       len(decision.Venues),
		"slippage_bps": decision.ExpectedSlippageBps,
		"confidence":   decision.ConfidenceScore,
	}).Info("routing decision synthesized")

	return decision
}
