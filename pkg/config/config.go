package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"logging"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Market struct {
		Timezone string `yaml:"timezone"`
	} `yaml:"market"`
	Auth struct {
		Secret string `yaml:"secret"`
	} `yaml:"auth"`
	Feed struct {
		WebSocketURL   string        `yaml:"websocket_url"`
		APIKey         string        `yaml:"api_key"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay"`
		PingInterval   time.Duration `yaml:"ping_interval"`
		MaxTradeAge    time.Duration `yaml:"max_trade_age"`
	} `yaml:"feed"`
	QuoteAPI struct {
		BaseURL string        `yaml:"base_url"`
		APIKey  string        `yaml:"api_key"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"quote_api"`
	Synthetic struct {
		MinBasePrice  float64            `yaml:"min_base_price"`
		MaxBasePrice  float64            `yaml:"max_base_price"`
		SeedJitter    float64            `yaml:"seed_jitter"`
		MinVolatility float64            `yaml:"min_volatility"`
		MaxVolatility float64            `yaml:"max_volatility"`
		MomentumBias  float64            `yaml:"momentum_bias"`
		PriceFloor    float64            `yaml:"price_floor"`
		Reference     map[string]float64 `yaml:"reference_prices"`
	} `yaml:"synthetic"`
	Stream struct {
		HeartbeatTimeout      time.Duration `yaml:"heartbeat_timeout"`
		RegularInterval       time.Duration `yaml:"regular_interval"`
		ExtendedInterval      time.Duration `yaml:"extended_interval"`
		WeekendInterval       time.Duration `yaml:"weekend_interval"`
		ResolveTimeout        time.Duration `yaml:"resolve_timeout"`
		MaxConcurrentResolves int           `yaml:"max_concurrent_resolves"`
		SendBuffer            int           `yaml:"send_buffer"`
		MaxSymbolsPerSession  int           `yaml:"max_symbols_per_session"`
	} `yaml:"stream"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix"`
	} `yaml:"redis"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic"`
		RequiredAcks int      `yaml:"required_acks"`
		Compression  string   `yaml:"compression"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
	} `yaml:"kafka"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	c, err := parse(path)
	if err != nil {
		return nil, err
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return c, nil
}

func parse(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	c.applyDefaults()
	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment
// variables. Validation runs after the overrides so secrets may come from
// the environment alone.
func LoadWithEnv(path string) (*Config, error) {
	c, err := parse(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("AUTH_SECRET"); v != "" {
		c.Auth.Secret = v
	}
	if v := os.Getenv("FEED_API_KEY"); v != "" {
		c.Feed.APIKey = v
	}
	if v := os.Getenv("QUOTE_API_KEY"); v != "" {
		c.QuoteAPI.APIKey = v
	}
	if v := os.Getenv("REDIS_HOST"); v != "" {
		c.Redis.Host = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return c, nil
}

func (c *Config) applyDefaults() {
	if c.Market.Timezone == "" {
		c.Market.Timezone = "America/New_York"
	}
	if c.Stream.HeartbeatTimeout == 0 {
		c.Stream.HeartbeatTimeout = 75 * time.Second
	}
	if c.Stream.RegularInterval == 0 {
		c.Stream.RegularInterval = 5 * time.Second
	}
	if c.Stream.ExtendedInterval == 0 {
		c.Stream.ExtendedInterval = 30 * time.Second
	}
	if c.Stream.WeekendInterval == 0 {
		c.Stream.WeekendInterval = 2 * time.Minute
	}
	if c.Stream.ResolveTimeout == 0 {
		c.Stream.ResolveTimeout = 2 * time.Second
	}
	if c.Stream.MaxConcurrentResolves == 0 {
		c.Stream.MaxConcurrentResolves = 8
	}
	if c.Stream.SendBuffer == 0 {
		c.Stream.SendBuffer = 256
	}
	if c.Stream.MaxSymbolsPerSession == 0 {
		c.Stream.MaxSymbolsPerSession = 50
	}
	if c.Synthetic.MinBasePrice == 0 {
		c.Synthetic.MinBasePrice = 10
	}
	if c.Synthetic.MaxBasePrice == 0 {
		c.Synthetic.MaxBasePrice = 500
	}
	if c.Synthetic.SeedJitter == 0 {
		c.Synthetic.SeedJitter = 0.005
	}
	if c.Synthetic.MinVolatility == 0 {
		c.Synthetic.MinVolatility = 0.0001
	}
	if c.Synthetic.MaxVolatility == 0 {
		c.Synthetic.MaxVolatility = 0.0005
	}
	if c.Synthetic.MomentumBias == 0 {
		c.Synthetic.MomentumBias = 0.6
	}
	if c.Synthetic.PriceFloor == 0 {
		c.Synthetic.PriceFloor = 0.01
	}
	if c.QuoteAPI.Timeout == 0 {
		c.QuoteAPI.Timeout = 2 * time.Second
	}
	if c.Feed.ReconnectDelay == 0 {
		c.Feed.ReconnectDelay = 5 * time.Second
	}
	if c.Feed.PingInterval == 0 {
		c.Feed.PingInterval = 20 * time.Second
	}
	if c.Feed.MaxTradeAge == 0 {
		c.Feed.MaxTradeAge = 15 * time.Second
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Auth.Secret == "" {
		return fmt.Errorf("auth.secret is required")
	}
	if c.QuoteAPI.BaseURL == "" {
		return fmt.Errorf("quote_api.base_url is required")
	}
	if c.Synthetic.MomentumBias <= 0 || c.Synthetic.MomentumBias >= 1 {
		return fmt.Errorf("synthetic.momentum_bias must be in (0, 1), got %v", c.Synthetic.MomentumBias)
	}
	if c.Synthetic.MinVolatility > c.Synthetic.MaxVolatility {
		return fmt.Errorf("synthetic.min_volatility must not exceed max_volatility")
	}
	// A hung provider must never stall a whole tick cycle.
	if c.Stream.ResolveTimeout >= c.Stream.RegularInterval {
		return fmt.Errorf("stream.resolve_timeout must be shorter than stream.regular_interval")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers required when kafka is enabled")
	}
	return nil
}
