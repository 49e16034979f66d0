package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/damon-houk/bizbuddy-sales-insights/internal/application/alerting"
)

// Config is the process configuration read from the environment
type Config struct {
	Port          string
	AllowedOrigin string
	LogLevel      string

	SheetURL        string
	SheetTimeout    time.Duration
	SheetMaxRetries int
	SnapshotTTL     time.Duration
	SchemaProfile   string

	DataDir string

	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	AnswerCacheTTL time.Duration

	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string
	AgentMaxRows  int

	LowStockThreshold int
	ReorderThreshold  int
	ExpiryWarningDays int
	ExpiryRiskDays    int
}

// Load reads the configuration. Malformed or out-of-range numbers fall back to their defaults.
func Load() Config {
	return Config{
		Port:          getEnv("PORT", "8080"),
		AllowedOrigin: getEnv("ALLOWED_ORIGIN", "*"),
		LogLevel:      getEnv("LOG_LEVEL", "INFO"),

		SheetURL:        strings.TrimSpace(os.Getenv("SHEET_URL")),
		SheetTimeout:    time.Duration(getInt("SHEET_TIMEOUT_SECONDS", 10, 1)) * time.Second,
		SheetMaxRetries: getInt("SHEET_MAX_RETRIES", 3, 1),
		SnapshotTTL:     time.Duration(getInt("SNAPSHOT_TTL_SECONDS", 60, 0)) * time.Second,
		SchemaProfile:   strings.ToLower(getEnv("SCHEMA_PROFILE", "dashboard")),

		DataDir: getEnv("DATA_DIR", "./data"),

		RedisAddr:      os.Getenv("REDIS_ADDR"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		RedisDB:        getInt("REDIS_DB", 0, 0),
		AnswerCacheTTL: time.Duration(getInt("ANSWER_CACHE_TTL_SECONDS", 300, 1)) * time.Second,

		OpenAIAPIKey:  strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
		OpenAIModel:   getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		AgentMaxRows:  getInt("AGENT_MAX_ROWS", 200, 1),

		LowStockThreshold: getInt("LOW_STOCK_THRESHOLD", 20, 0),
		ReorderThreshold:  getInt("REORDER_THRESHOLD", 30, 0),
		ExpiryWarningDays: getInt("EXPIRY_WARNING_DAYS", 60, 0),
		ExpiryRiskDays:    getInt("EXPIRY_RISK_DAYS", 90, 0),
	}
}

// Address returns the listen address for the HTTP server
func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

// AlertConfig converts the alert thresholds for the alerting policy
func (c Config) AlertConfig() alerting.Config {
	return alerting.Config{
		LowStockThreshold: int64(c.LowStockThreshold),
		ReorderThreshold:  int64(c.ReorderThreshold),
		ExpiryWarningDays: c.ExpiryWarningDays,
		ExpiryRiskDays:    c.ExpiryRiskDays,
	}
}

// AgentEnabled reports whether an OpenAI key is configured
func (c Config) AgentEnabled() bool {
	return c.OpenAIAPIKey != ""
}

// Validate rejects configurations the server cannot start with
func (c Config) Validate() error {
	if c.SheetURL == "" {
		return errors.New("SHEET_URL must be set")
	}
	if err := c.AlertConfig().Validate(); err != nil {
		return fmt.Errorf("alert thresholds: %w", err)
	}
	return nil
}

func getEnv(key string, fallback string) string {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback
	}
	return val
}

func getInt(key string, fallback, min int) int {
	n, err := strconv.Atoi(getEnv(key, strconv.Itoa(fallback)))
	if err != nil || n < min {
		return fallback
	}
	return n
}
