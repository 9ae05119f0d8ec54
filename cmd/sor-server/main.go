package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/quantrail/sor/internal/advisory"
	"github.com/quantrail/sor/internal/config"
	"github.com/quantrail/sor/internal/router"
	"github.com/quantrail/sor/internal/venue"
	"github.com/quantrail/sor/pkg/bus"
	"github.com/quantrail/sor/pkg/ledgerstore"
	"github.com/quantrail/sor/pkg/types"
)

func main() {
	configPath := os.Getenv("SOR_CONFIG")
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logrus.Fatalf("failed to load config: %v", err)
	}

	srv, err := newServer(cfg)
	if err != nil {
		logrus.Fatalf("failed to build server: %v", err)
	}
	defer srv.Close()

	sub, err := srv.bus.SubscribeRouteRequests(srv.handleRouteRequest)
	if err != nil {
		logrus.Fatalf("failed to subscribe: %v", err)
	}
	defer sub.Unsubscribe()

	logrus.Info("smart order router started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logrus.Info("shutting down")
}

type server struct {
	router *router.Router
	bus    *bus.Client
	store  *ledgerstore.Redis
}

// newServer wires one shared router instance from configuration
func newServer(cfg *config.Config) (*server, error) {
	var store *ledgerstore.Redis
	var ledgerBacking router.LedgerStore
	if cfg.Redis.Enabled {
		store = ledgerstore.NewRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err := store.Ping(context.Background()); err != nil {
			return nil, fmt.Errorf("redis unreachable: %w", err)
		}
		ledgerBacking = store
	}
	ledger := router.NewPerformanceLedger(ledgerBacking)

	providers := make([]*router.QuoteProvider, 0, len(cfg.Venues))
	for _, vc := range cfg.Venues {
		port, err := buildMarketDataPort(vc)
		if err != nil {
			return nil, err
		}
		providers = append(providers, router.NewQuoteProvider(router.VenueParams{
			Name:                   vc.Name,
			FeeRate:                decimal.NewFromFloat(vc.FeeRate),
			FullFillProbability:    vc.FullFillProbability,
			PartialFillProbability: vc.PartialFillProbability,
		}, port, ledger))
	}

	advisoryClient := advisory.NewClient(advisory.Config{
		Endpoint: cfg.Advisory.Endpoint,
		APIKey:   cfg.Advisory.APIKey,
		Model:    cfg.Advisory.Model,
		Timeout:  cfg.Advisory.Timeout,
	})

	routerCfg := router.Config{
		VenueTimeout:      cfg.Router.VenueTimeout,
		AdvisoryTimeout:   cfg.Router.AdvisoryTimeout,
		MaxQuoteAge:       cfg.Router.MaxQuoteAge,
		MinLiquidityRatio: decimal.NewFromFloat(cfg.Router.MinLiquidityRatio),
		DefaultVenue:      cfg.Router.DefaultVenue,
	}

	busClient, err := bus.NewClient(bus.Config{
		URL:      cfg.NATS.URL,
		ClientID: cfg.NATS.ClientID,
	})
	if err != nil {
		return nil, err
	}

	return &server{
		router: router.New(routerCfg, providers, advisoryClient, ledger),
		bus:    busClient,
		store:  store,
	}, nil
}

func buildMarketDataPort(vc config.VenueConfig) (types.MarketDataPort, error) {
	switch vc.Adapter {
	case "binance":
		return venue.NewBinance(), nil
	case "bybit":
		return venue.NewBybit(), nil
	default:
		return nil, fmt.Errorf("unknown venue adapter %q for %s", vc.Adapter, vc.Name)
	}
}

// handleRouteRequest answers one routing request from the bus. Bad
// payloads are the only error path; routing itself always yields a
// decision.
func (s *server) handleRouteRequest(data []byte) ([]byte, error) {
	var request router.RouteRequest
	if err := json.Unmarshal(data, &request); err != nil {
		return nil, fmt.Errorf("malformed route request: %w", err)
	}
	if request.Symbol == "" || !request.Size.IsPositive() {
		return nil, fmt.Errorf("invalid route request: symbol and positive size required")
	}

	decision := s.router.RouteOrder(context.Background(), request)

	if err := s.bus.PublishDecision(request.Symbol, decision); err != nil {
		logrus.Warnf("failed to publish decision to audit stream: %v", err)
	}

	return json.Marshal(decision)
}

// Close releases external connections
func (s *server) Close() {
	if s.bus != nil {
		s.bus.Close()
	}
	if s.store != nil {
		s.store.Close()
	}
}
