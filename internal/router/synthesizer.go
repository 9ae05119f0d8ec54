package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/quantrail/sor/pkg/types"
)

// AdvisoryRequest is the input contract of the AI Advisory Port
type AdvisoryRequest struct {
	Prompt      string
	RequesterID string
	Temperature float64
}

// AdvisoryPort is the external AI-advisory collaborator. It may fail or
// return non-JSON text; the synthesizer tolerates both via its fallback.
type AdvisoryPort interface {
	Consult(ctx context.Context, req AdvisoryRequest) (string, error)
}

// advisoryTemperature favors consistency over creativity
const advisoryTemperature = 0.3

// RoutingSynthesizer produces a RoutingDecision from validated quotes,
// preferring the AI advisory path and falling back to a deterministic
// lowest-cost rule on any advisory failure. A circuit breaker lets a
// flapping advisory provider fail fast into the fallback.
type RoutingSynthesizer struct {
	advisory AdvisoryPort
	breaker  *gobreaker.CircuitBreaker
	timeout  time.Duration
	logger   *logrus.Entry
}

// NewRoutingSynthesizer creates a synthesizer over the given advisory port
func NewRoutingSynthesizer(advisory AdvisoryPort, timeout time.Duration) *RoutingSynthesizer {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	settings := gobreaker.Settings{
		Name:     "ai-advisory",
		Interval: 60 * time.Second,
		Timeout:  30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	}

	return &RoutingSynthesizer{
		advisory: advisory,
		breaker:  gobreaker.NewCircuitBreaker(settings),
		timeout:  timeout,
		logger:   logrus.WithField("component", "routing-synthesizer"),
	}
}

// Synthesize always returns a decision for a non-empty quote list.
// The advisory path must produce strict, invariant-clean JSON; anything
// else activates the deterministic fallback.
func (s *RoutingSynthesizer) Synthesize(ctx context.Context, request RouteRequest, quotes []*VenueQuote) *RoutingDecision {
	decision, err := s.consultAdvisory(ctx, request, quotes)
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"symbol":    request.Symbol,
			"requester": request.RequesterID,
		}).Warnf("advisory synthesis failed, using cost-based fallback: %v", err)
		return s.fallback(request, quotes)
	}
	return decision
}

func (s *RoutingSynthesizer) consultAdvisory(ctx context.Context, request RouteRequest, quotes []*VenueQuote) (*RoutingDecision, error) {
	if s.advisory == nil {
		return nil, fmt.Errorf("no advisory port configured")
	}

	prompt := buildRoutingPrompt(request, quotes)

	raw, err := s.breaker.Execute(func() (interface{}, error) {
		callCtx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()

		return s.advisory.Consult(callCtx, AdvisoryRequest{
			Prompt:      prompt,
			RequesterID: request.RequesterID,
			Temperature: advisoryTemperature,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("advisory call failed: %w", err)
	}

	decision, err := parseDecision(raw.(string))
	if err != nil {
		return nil, fmt.Errorf("advisory response rejected: %w", err)
	}
	if err := validateDecision(decision, request); err != nil {
		return nil, fmt.Errorf("advisory decision violates invariants: %w", err)
	}

	decision.DecisionID = uuid.NewString()
	return decision, nil
}

// buildRoutingPrompt renders each quote's execution-quality metrics and
// the request constraints into the structured prompt the advisory port
// expects.
func buildRoutingPrompt(request RouteRequest, quotes []*VenueQuote) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are a smart order router. Decide how to route the following order across the quoted venues.\n\n")
	fmt.Fprintf(&b, "Order: %s %s %s, urgency=%s", request.Side, request.Size, request.Symbol, request.Urgency)
	if request.MaxSlippageBps > 0 {
		fmt.Fprintf(&b, ", max acceptable slippage %.1f bps", request.MaxSlippageBps)
	}
	b.WriteString("\n\nVenue quotes:\n")

	for i, q := range quotes {
		fmt.Fprintf(&b, "%d. %s: liquidity=%s avgPrice=%s slippage=%.2fbps fee=%s totalCost=%s fillProb=%.2f historicalPerf=%.2f spread=%s depth=%d\n",
			i+1, q.Venue, q.AvailableLiquidity, q.AvgPrice, q.SlippageBps,
			q.EstimatedFee, q.TotalCost, q.FillProbability,
			q.HistoricalPerformance, q.CurrentSpread, q.OrderBookDepth)
	}

	b.WriteString("\nRespond with a single JSON object and nothing else, shaped exactly as:\n")
	b.WriteString(`{"strategy":"single_venue|split_order|sequential",` +
		`"venues":[{"venue":"...","size":0,"execution_order":1,"reasoning":"..."}],` +
		`"expected_slippage_bps":0,"expected_fill_time_ms":0,` +
		`"confidence_score":0.0,"ai_reasoning":"..."}`)
	fmt.Fprintf(&b, "\nThe venue sizes must sum to exactly %s.\n", request.Size)

	return b.String()
}

// parseDecision decodes the advisory response as strict JSON. Leading
// and trailing prose (including markdown fences) around the object is
// tolerated; unknown fields inside it are not.
func parseDecision(raw string) (*RoutingDecision, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in response")
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(raw[start : end+1])))
	dec.DisallowUnknownFields()

	var decision RoutingDecision
	if err := dec.Decode(&decision); err != nil {
		return nil, fmt.Errorf("decode failed: %w", err)
	}
	return &decision, nil
}

// validateDecision re-checks the core invariants the advisory port is
// not trusted to uphold. Any violation is treated as a synthesis
// failure upstream.
func validateDecision(d *RoutingDecision, request RouteRequest) error {
	if !knownStrategy(d.Strategy) {
		return fmt.Errorf("unknown strategy %q", d.Strategy)
	}
	if len(d.Venues) == 0 {
		return fmt.Errorf("no venues allocated")
	}
	if d.ConfidenceScore < 0 || d.ConfidenceScore > 1 {
		return fmt.Errorf("confidence score %v out of range", d.ConfidenceScore)
	}

	total := decimal.Zero
	for _, alloc := range d.Venues {
		if !alloc.Size.IsPositive() {
			return fmt.Errorf("non-positive allocation for venue %q", alloc.Venue)
		}
		total = total.Add(alloc.Size)
	}
	if !total.Equal(request.Size) {
		return fmt.Errorf("allocations sum to %s, want %s", total, request.Size)
	}
	return nil
}

// fallback picks the single venue minimizing total cost, ties broken by
// first-encountered. This path is fully deterministic and always
// terminates.
func (s *RoutingSynthesizer) fallback(request RouteRequest, quotes []*VenueQuote) *RoutingDecision {
	best := quotes[0]
	for _, q := range quotes[1:] {
		if q.TotalCost.LessThan(best.TotalCost) {
			best = q
		}
	}

	fillTimeMs := int64(fillTimeRelaxedMs)
	if request.Urgency == types.UrgencyHigh {
		fillTimeMs = fillTimeUrgentMs
	}

	reasoning := fmt.Sprintf("cost-based fallback: selected %s with lowest total cost %s", best.Venue, best.TotalCost)

	return &RoutingDecision{
		DecisionID: uuid.NewString(),
		Strategy:   StrategySingleVenue,
		Venues: []VenueAllocation{{
			Venue:          best.Venue,
			Size:           request.Size,
			ExecutionOrder: 1,
			Reasoning:      reasoning,
		}},
		ExpectedSlippageBps: best.SlippageBps,
		ExpectedFillTimeMs:  fillTimeMs,
		ConfidenceScore:     fallbackConfidence,
		AIReasoning:         reasoning,
	}
}
