package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	// Load environment variables from .env files when present.
	_ "github.com/joho/godotenv/autoload"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	ETL           ETLConfig
	Cache         CacheConfig
	Observability ObservabilityConfig
	OpenAI        OpenAIConfig
}

type ServerConfig struct {
	Host               string
	Port               int
	RateLimitPerSecond int
	RateLimitBurst     int
}

type DatabaseConfig struct {
	// Path to the SQLite database file. ":memory:" is accepted for tests.
	Path string
}

type ETLConfig struct {
	// DropDir is scanned by the daily ingestion job for new exports.
	DropDir string
	// StoreMasterPath points to the optional store-name master CSV.
	StoreMasterPath string
}

type CacheConfig struct {
	// TTL for the per-(store, window) KPI snapshot cache.
	TTL time.Duration
}

type ObservabilityConfig struct {
	MetricsEnabled bool
}

type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:               getEnv("SERVER_HOST", "localhost"),
			Port:               getEnvAsInt("SERVER_PORT", 8080),
			RateLimitPerSecond: getEnvAsInt("SERVER_RATE_LIMIT_PER_SECOND", 50),
			RateLimitBurst:     getEnvAsInt("SERVER_RATE_LIMIT_BURST", 100),
		},
		Database: DatabaseConfig{
			Path: getEnv("SQLITE_PATH", "./data/storepulse.db"),
		},
		ETL: ETLConfig{
			DropDir:         getEnv("ETL_DROP_DIR", ""),
			StoreMasterPath: getEnv("STORE_MASTER_PATH", ""),
		},
		Cache: CacheConfig{
			TTL: time.Duration(getEnvAsInt("KPI_CACHE_TTL_SECONDS", 300)) * time.Second,
		},
		Observability: ObservabilityConfig{
			MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
		},
		OpenAI: OpenAIConfig{
			APIKey:  getEnv("OPENAI_API_KEY", ""),
			BaseURL: getEnv("OPENAI_BASE_URL", ""),
			Model:   getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		},
	}

	// The narrative panel degrades gracefully at request time, but a missing
	// key is an operator mistake and must fail loudly at startup.
	if cfg.OpenAI.APIKey == "" {
		return nil, errors.New("OPENAI_API_KEY is required")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}
