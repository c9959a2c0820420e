package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds environment-driven settings for the workbench.
type Config struct {
	Port string

	// Database
	DBPath string

	// Strategy persistence: "sqlite" (default) or "redis"
	StrategyBackend string
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	RedisPrefix     string
	TemplatesPath   string

	// Backtest service
	BacktestTransport string // "http" or "grpc"
	BacktestURL       string
	BacktestGRPCAddr  string
	BacktestTimeout   time.Duration
	AutoCompleteRules bool

	// Market data
	UseMockMarket   bool
	MarketDataURL   string
	MarketAPIKey    string
	MarketAPISecret string

	// Editor sessions
	DefaultSymbol  string
	DefaultCapital float64
	SessionIdleTTL time.Duration

	// Paper trading
	PaperStartCash     float64
	PaperFallbackPrice float64

	// Auth
	JWTSecret string

	// HTTP. RequestTimeout always exceeds BacktestTimeout.
	CORSOrigins    []string
	RequestTimeout time.Duration

	// Localization
	Language string // "en" or "zh"
}

// requestSlack is the headroom an API request gets over a backtest call.
const requestSlack = 15 * time.Second

var defaults = map[string]any{
	"PORT":                 "8080",
	"DB_PATH":              "./data/algoblocks.db",
	"STRATEGY_BACKEND":     "sqlite",
	"REDIS_ADDR":           "127.0.0.1:6379",
	"REDIS_PASSWORD":       "",
	"REDIS_DB":             0,
	"REDIS_PREFIX":         "algoblocks:strategies",
	"TEMPLATES_PATH":       "./templates.yaml",
	"BACKTEST_TRANSPORT":   "http",
	"BACKTEST_URL":         "http://localhost:5000",
	"BACKTEST_GRPC_ADDR":   "localhost:50051",
	"BACKTEST_TIMEOUT":     "60s",
	"AUTO_COMPLETE_RULES":  true,
	"USE_MOCK_MARKET":      true,
	"MARKET_DATA_URL":      "https://paper-api.alpaca.markets",
	"MARKET_API_KEY":       "",
	"MARKET_API_SECRET":    "",
	"DEFAULT_SYMBOL":       "AAPL",
	"DEFAULT_CAPITAL":      10000.0,
	"SESSION_IDLE_TTL":     "2h",
	"PAPER_START_CASH":     10000.0,
	"PAPER_FALLBACK_PRICE": 100.0,
	"JWT_SECRET":           "dev-secret",
	"CORS_ORIGINS":         "*",
	"REQUEST_TIMEOUT":      "0s",
	"LANGUAGE":             "en",
}

// Load reads .env (if present), the optional YAML file named by CONFIG_FILE
// and the environment, in increasing precedence.
func Load() (*Config, error) {
	// Ignore error so the app still starts when .env is missing.
	_ = godotenv.Load()

	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}
	v.AutomaticEnv()

	cfg := &Config{
		Port:               v.GetString("PORT"),
		DBPath:             v.GetString("DB_PATH"),
		StrategyBackend:    strings.ToLower(v.GetString("STRATEGY_BACKEND")),
		RedisAddr:          v.GetString("REDIS_ADDR"),
		RedisPassword:      v.GetString("REDIS_PASSWORD"),
		RedisDB:            v.GetInt("REDIS_DB"),
		RedisPrefix:        v.GetString("REDIS_PREFIX"),
		TemplatesPath:      v.GetString("TEMPLATES_PATH"),
		BacktestTransport:  strings.ToLower(v.GetString("BACKTEST_TRANSPORT")),
		BacktestURL:        v.GetString("BACKTEST_URL"),
		BacktestGRPCAddr:   v.GetString("BACKTEST_GRPC_ADDR"),
		BacktestTimeout:    v.GetDuration("BACKTEST_TIMEOUT"),
		AutoCompleteRules:  v.GetBool("AUTO_COMPLETE_RULES"),
		UseMockMarket:      v.GetBool("USE_MOCK_MARKET"),
		MarketDataURL:      v.GetString("MARKET_DATA_URL"),
		MarketAPIKey:       v.GetString("MARKET_API_KEY"),
		MarketAPISecret:    v.GetString("MARKET_API_SECRET"),
		DefaultSymbol:      strings.ToUpper(v.GetString("DEFAULT_SYMBOL")),
		DefaultCapital:     v.GetFloat64("DEFAULT_CAPITAL"),
		SessionIdleTTL:     v.GetDuration("SESSION_IDLE_TTL"),
		PaperStartCash:     v.GetFloat64("PAPER_START_CASH"),
		PaperFallbackPrice: v.GetFloat64("PAPER_FALLBACK_PRICE"),
		JWTSecret:          v.GetString("JWT_SECRET"),
		CORSOrigins:        splitAndTrim(v.GetString("CORS_ORIGINS")),
		RequestTimeout:     v.GetDuration("REQUEST_TIMEOUT"),
		Language:           v.GetString("LANGUAGE"),
	}
	if cfg.RequestTimeout <= cfg.BacktestTimeout {
		cfg.RequestTimeout = cfg.BacktestTimeout + requestSlack
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	switch c.StrategyBackend {
	case "sqlite", "redis":
	default:
		return fmt.Errorf("STRATEGY_BACKEND must be sqlite or redis, got %q", c.StrategyBackend)
	}
	switch c.BacktestTransport {
	case "http", "grpc":
	default:
		return fmt.Errorf("BACKTEST_TRANSPORT must be http or grpc, got %q", c.BacktestTransport)
	}
	if c.DefaultCapital <= 0 {
		return fmt.Errorf("DEFAULT_CAPITAL must be positive")
	}
	if c.PaperStartCash < 0 || c.PaperFallbackPrice <= 0 {
		return fmt.Errorf("PAPER_START_CASH must be >= 0 and PAPER_FALLBACK_PRICE > 0")
	}
	if c.SessionIdleTTL <= 0 {
		return fmt.Errorf("SESSION_IDLE_TTL must be positive")
	}
	return nil
}

func splitAndTrim(val string) []string {
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
