// Package config loads service configuration from YAML and environment
// variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root service configuration
type Config struct {
	NATS     NATSConfig     `mapstructure:"nats"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Advisory AdvisoryConfig `mapstructure:"advisory"`
	Router   RouterConfig   `mapstructure:"router"`
	Venues   []VenueConfig  `mapstructure:"venues"`
}

// NATSConfig holds message bus settings
type NATSConfig struct {
	URL      string `mapstructure:"url"`
	ClientID string `mapstructure:"client_id"`
}

// RedisConfig holds optional ledger persistence settings
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AdvisoryConfig holds AI advisory provider settings
type AdvisoryConfig struct {
	Endpoint string        `mapstructure:"endpoint"`
	APIKey   string        `mapstructure:"api_key"`
	Model    string        `mapstructure:"model"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// RouterConfig holds routing tunables
type RouterConfig struct {
	VenueTimeout      time.Duration `mapstructure:"venue_timeout"`
	AdvisoryTimeout   time.Duration `mapstructure:"advisory_timeout"`
	MaxQuoteAge       time.Duration `mapstructure:"max_quote_age"`
	MinLiquidityRatio float64       `mapstructure:"min_liquidity_ratio"`
	DefaultVenue      string        `mapstructure:"default_venue"`
}

// VenueConfig describes one configured liquidity venue
type VenueConfig struct {
	Name                   string  `mapstructure:"name"`
	Adapter                string  `mapstructure:"adapter"`
	FeeRate                float64 `mapstructure:"fee_rate"`
	FullFillProbability    float64 `mapstructure:"full_fill_probability"`
	PartialFillProbability float64 `mapstructure:"partial_fill_probability"`
}

// Load reads configuration from the given file, overlaid with SOR_*
// environment variables.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("SOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if len(config.Venues) == 0 {
		return nil, fmt.Errorf("no venues configured")
	}
	if config.Router.DefaultVenue == "" {
		config.Router.DefaultVenue = config.Venues[0].Name
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.client_id", "sor-server")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("advisory.endpoint", "https://api.openai.com/v1/chat/completions")
	v.SetDefault("advisory.model", "gpt-4o-mini")
	v.SetDefault("advisory.timeout", "10s")
	v.SetDefault("router.venue_timeout", "2s")
	v.SetDefault("router.advisory_timeout", "5s")
	v.SetDefault("router.max_quote_age", "5s")
	v.SetDefault("router.min_liquidity_ratio", 0.1)
}
