package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
nats:
  url: nats://broker:4222
redis:
  enabled: true
  addr: cache:6379
advisory:
  api_key: sk-test
router:
  venue_timeout: 3s
  default_venue: bybit
venues:
  - name: binance
    adapter: binance
    fee_rate: 0.0002
    full_fill_probability: 0.95
    partial_fill_probability: 0.65
  - name: bybit
    adapter: bybit
    fee_rate: 0.0003
    full_fill_probability: 0.90
    partial_fill_probability: 0.70
`)

	config, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "nats://broker:4222", config.NATS.URL)
	assert.True(t, config.Redis.Enabled)
	assert.Equal(t, "cache:6379", config.Redis.Addr)
	assert.Equal(t, "sk-test", config.Advisory.APIKey)
	assert.Equal(t, 3*time.Second, config.Router.VenueTimeout)
	assert.Equal(t, "bybit", config.Router.DefaultVenue)

	require.Len(t, config.Venues, 2)
	assert.Equal(t, "binance", config.Venues[0].Name)
	assert.Equal(t, 0.0002, config.Venues[0].FeeRate)
	assert.Equal(t, 0.70, config.Venues[1].PartialFillProbability)
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
venues:
  - name: binance
    adapter: binance
    fee_rate: 0.0002
`)

	config, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "nats://localhost:4222", config.NATS.URL)
	assert.Equal(t, "sor-server", config.NATS.ClientID)
	assert.False(t, config.Redis.Enabled)
	assert.Equal(t, "gpt-4o-mini", config.Advisory.Model)
	assert.Equal(t, 2*time.Second, config.Router.VenueTimeout)
	assert.Equal(t, 5*time.Second, config.Router.AdvisoryTimeout)
	assert.Equal(t, 5*time.Second, config.Router.MaxQuoteAge)
	assert.Equal(t, 0.1, config.Router.MinLiquidityRatio)

	// falls back to the first configured venue
	assert.Equal(t, "binance", config.Router.DefaultVenue)
}

func TestLoadNoVenues(t *testing.T) {
	path := writeConfig(t, `
router:
  default_venue: binance
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no venues configured")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
