package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"trading-backtestv1/internal/store/clickhouse"
)

// Config holds all application configuration. Values come from, in order of
// increasing precedence: struct defaults, the YAML file named by CONFIG_FILE,
// a .env file, and the process environment.
type Config struct {
	LogLevel     string `yaml:"log_level" default:"info"`
	HTTPAddr     string `yaml:"http_addr" default:":8080" validate:"required"`
	MetricsAddr  string `yaml:"metrics_addr" default:":9090"`
	SQLitePath   string `yaml:"sqlite_path" default:"data/backtest.db" validate:"required"`
	CandleSource string `yaml:"candle_source" default:"sqlite" validate:"oneof=sqlite clickhouse"`

	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`

	ClickHouse clickhouse.Config `yaml:"clickhouse"`
	Redis      RedisConfig       `yaml:"redis"`
	Cache      CacheConfig       `yaml:"cache"`
	Notify     NotifyConfig      `yaml:"notify"`
	Backtest   BacktestConfig    `yaml:"backtest"`
	Pattern    PatternConfig     `yaml:"pattern"`
}

// RedisConfig configures the optional Redis cache and Pub/Sub notifier.
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr" default:"localhost:6379"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix" default:"backtest"`
}

type CacheConfig struct {
	TTL        time.Duration `yaml:"ttl" default:"5m"`
	MaxEntries int           `yaml:"max_entries" default:"1024"`
}

// NotifyConfig enables run-completed notifiers. Empty values disable the
// corresponding backend.
type NotifyConfig struct {
	WebhookURL     string   `yaml:"webhook_url" validate:"omitempty,url"`
	TelegramToken  string   `yaml:"telegram_token"`
	TelegramChatID string   `yaml:"telegram_chat_id"`
	KafkaBrokers   []string `yaml:"kafka_brokers"`
	KafkaTopic     string   `yaml:"kafka_topic" default:"backtest-runs"`
	RedisChannel   string   `yaml:"redis_channel" default:"backtests"`
}

type BacktestConfig struct {
	InitialEquity    float64       `yaml:"initial_equity" default:"10000" validate:"gt=0"`
	IndicatorWorkers int           `yaml:"indicator_workers" default:"4" validate:"gte=1"`
	RunWorkers       int           `yaml:"run_workers" default:"4" validate:"gte=1"`
	StreamInterval   time.Duration `yaml:"stream_interval"`
}

type PatternConfig struct {
	PivotLookback int     `yaml:"pivot_lookback" default:"3" validate:"gte=1"`
	Tolerance     float64 `yaml:"tolerance" default:"0.1" validate:"gt=0,lt=1"`
}

// Load reads configuration and validates it.
func Load() (*Config, error) {
	envFile := getEnv("ENV_FILE", ".env")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: load %s: %w", envFile, err)
	}

	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("config: defaults: %w", err)
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.HTTPAddr = getEnv("HTTP_ADDR", c.HTTPAddr)
	c.MetricsAddr = getEnv("METRICS_ADDR", c.MetricsAddr)
	c.SQLitePath = getEnv("SQLITE_PATH", c.SQLitePath)
	c.CandleSource = getEnv("CANDLE_SOURCE", c.CandleSource)
	c.ShutdownTimeout = getDuration("SHUTDOWN_TIMEOUT", c.ShutdownTimeout)

	c.ClickHouse.Host = getEnv("CLICKHOUSE_HOST", c.ClickHouse.Host)
	c.ClickHouse.Port = getInt("CLICKHOUSE_PORT", c.ClickHouse.Port)
	c.ClickHouse.Database = getEnv("CLICKHOUSE_DATABASE", c.ClickHouse.Database)
	c.ClickHouse.User = getEnv("CLICKHOUSE_USER", c.ClickHouse.User)
	c.ClickHouse.Password = getEnv("CLICKHOUSE_PASSWORD", c.ClickHouse.Password)

	c.Redis.Enabled = getBool("REDIS_ENABLED", c.Redis.Enabled)
	c.Redis.Addr = getEnv("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = getEnv("REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = getInt("REDIS_DB", c.Redis.DB)

	c.Cache.TTL = getDuration("CACHE_TTL", c.Cache.TTL)

	c.Notify.WebhookURL = getEnv("WEBHOOK_URL", c.Notify.WebhookURL)
	c.Notify.TelegramToken = getEnv("TELEGRAM_BOT_TOKEN", c.Notify.TelegramToken)
	c.Notify.TelegramChatID = getEnv("TELEGRAM_CHAT_ID", c.Notify.TelegramChatID)
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Notify.KafkaBrokers = splitList(v)
	}
	c.Notify.KafkaTopic = getEnv("KAFKA_TOPIC", c.Notify.KafkaTopic)

	c.Backtest.InitialEquity = getFloat("INITIAL_EQUITY", c.Backtest.InitialEquity)
	c.Backtest.IndicatorWorkers = getInt("INDICATOR_WORKERS", c.Backtest.IndicatorWorkers)
	c.Backtest.RunWorkers = getInt("RUN_WORKERS", c.Backtest.RunWorkers)

	c.Pattern.PivotLookback = getInt("PIVOT_LOOKBACK", c.Pattern.PivotLookback)
	c.Pattern.Tolerance = getFloat("HARMONIC_TOLERANCE", c.Pattern.Tolerance)
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("config: ignoring invalid int", "key", key, "value", v)
		return fallback
	}
	return n
}

func getFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		slog.Warn("config: ignoring invalid float", "key", key, "value", v)
		return fallback
	}
	return f
}

func getBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		slog.Warn("config: ignoring invalid bool", "key", key, "value", v)
		return fallback
	}
	return b
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		slog.Warn("config: ignoring invalid duration", "key", key, "value", v)
		return fallback
	}
	return d
}
