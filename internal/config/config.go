package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/samber/lo"
)

type Server struct {
	Port            string        `env:"PORT" validate:"required,numeric"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT" validate:"gt=0"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" validate:"gt=0"`
	LogLevel        string        `env:"LOG_LEVEL" validate:"oneof=debug info warn error DEBUG INFO WARN ERROR"`
}

type OKX struct {
	BaseURLs []string      `env:"OKX_BASE_URLS" envSeparator:"," validate:"required,dive,url"`
	Timeout  time.Duration `env:"OKX_TIMEOUT" validate:"gt=0"`
	// MaxRPM caps upstream calls per minute across all keys. Zero disables the cap.
	MaxRPM int `env:"OKX_MAX_RPM" validate:"gte=0"`
	Burst  int `env:"OKX_BURST" validate:"gte=1"`
}

type P2PArmy struct {
	BaseURL string        `env:"P2P_ARMY_BASE_URL" validate:"required,url"`
	APIKey  string        `env:"P2P_ARMY_API_KEY"`
	Market  string        `env:"P2P_ARMY_MARKET" validate:"required"`
	Timeout time.Duration `env:"P2P_ARMY_TIMEOUT" validate:"gt=0"`
	MaxRPM  int           `env:"P2P_ARMY_MAX_RPM" validate:"gte=0"`
	Burst   int           `env:"P2P_ARMY_BURST" validate:"gte=1"`
}

type Fetch struct {
	Source           string        `env:"P2P_SOURCE" validate:"oneof=auto okx primary-only p2parmy secondary-only"`
	CacheTTL         time.Duration `env:"CACHE_TTL" validate:"gt=0"`
	CacheRetention   time.Duration `env:"CACHE_RETENTION" validate:"gtefield=CacheTTL"`
	MinFetchInterval time.Duration `env:"MIN_FETCH_INTERVAL" validate:"gte=0"`
	BreakerThreshold int           `env:"BREAKER_THRESHOLD" validate:"gte=1"`
	BreakerCooldown  time.Duration `env:"BREAKER_COOLDOWN" validate:"gt=0"`
}

// Redis is optional: snapshots stay in memory when Addr is empty.
type Redis struct {
	Addr     string `env:"REDIS_ADDR" validate:"omitempty,hostname_port"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" validate:"gte=0"`
}

type Config struct {
	Server  Server
	OKX     OKX
	P2PArmy P2PArmy
	Fetch   Fetch
	Redis   Redis
}

// FetchBudget is the longest one quote fetch can take: both header sets on every OKX mirror,
// then P2P.Army, after one rate-limit wait.
func (c Config) FetchBudget() time.Duration {
	return time.Duration(2*len(c.OKX.BaseURLs))*c.OKX.Timeout + c.P2PArmy.Timeout + c.Fetch.MinFetchInterval
}

// HandlerTimeout is RequestTimeout raised to FetchBudget, so a degraded answer is still written.
func (c Config) HandlerTimeout() time.Duration {
	return max(c.Server.RequestTimeout, c.FetchBudget())
}

// WriteTimeout leaves room after HandlerTimeout to encode and send the answer.
func (c Config) WriteTimeout() time.Duration {
	return c.HandlerTimeout() + 5*time.Second
}

func Default() Config {
	return Config{
		Server: Server{
			Port:            "8080",
			RequestTimeout:  30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			LogLevel:        "info",
		},
		OKX: OKX{
			BaseURLs: []string{"https://www.okx.com", "https://okx.com"},
			Timeout:  10 * time.Second,
			Burst:    1,
		},
		P2PArmy: P2PArmy{
			BaseURL: "https://p2p.army/v1/api",
			Market:  "okx",
			Timeout: 10 * time.Second,
			Burst:   1,
		},
		Fetch: Fetch{
			Source:           "auto",
			CacheTTL:         10 * time.Second,
			CacheRetention:   time.Hour,
			MinFetchInterval: 3 * time.Second,
			BreakerThreshold: 5,
			BreakerCooldown:  60 * time.Second,
		},
	}
}

// Load overlays the environment (and an optional .env file) on the defaults.
func Load() (Config, error) {
	_ = godotenv.Load()

	config := Default()

	if err := env.Parse(&config); err != nil {
		return Config{}, fmt.Errorf("env.Parse: %w", err)
	}

	config.OKX.BaseURLs = splitCSV(config.OKX.BaseURLs)
	config.Fetch.Source = strings.ToLower(strings.TrimSpace(config.Fetch.Source))

	if err := validator.New().Struct(config); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return config, nil
}

func splitCSV(values []string) []string {
	return lo.Compact(lo.Map(values, func(v string, _ int) string {
		return strings.TrimSpace(v)
	}))
}
