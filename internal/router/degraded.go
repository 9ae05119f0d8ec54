package router

import (
	"fmt"

	"github.com/google/uuid"
)

// degradedDecision produces the safe "cannot route" decision used when
// no quote survived validation. It never blocks on external calls. The
// venue of last resort is the first raw quote's venue when any venue
// responded at all, else the configured default.
func degradedDecision(request RouteRequest, rawQuotes []*VenueQuote, defaultVenue string) *RoutingDecision {
	venue := defaultVenue
	if len(rawQuotes) > 0 {
		venue = rawQuotes[0].Venue
	}

	reasoning := fmt.Sprintf("no valid market data available for %s: all venue quotes were missing, stale, or below the liquidity floor; do not execute", request.Symbol)

	return &RoutingDecision{
		DecisionID: uuid.NewString(),
		Strategy:   StrategySingleVenue,
		Venues: []VenueAllocation{{
			Venue:          venue,
			Size:           request.Size,
			ExecutionOrder: 1,
			Reasoning:      reasoning,
		}},
		ExpectedSlippageBps: SentinelSlippageBps,
		ExpectedFillTimeMs:  0,
		ConfidenceScore:     0,
		AIReasoning:         reasoning,
	}
}
