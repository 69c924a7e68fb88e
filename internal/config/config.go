package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"dualledger/internal/models"
)

// Config holds application configuration
type Config struct {
	// Server
	Port string
	Env  string

	// Database
	DBDriver   string
	DBPath     string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// JWT
	JWTSecret string

	// Currencies
	PrimaryCurrency   string
	SecondaryCurrency string

	// Exchange rates
	RateTTL              time.Duration
	RateRefreshInterval  time.Duration
	RateFetchTimeout     time.Duration
	RateSource           string
	RateSourceURL        string
	RateHTMLSelector     string
	RateMinFetchInterval time.Duration

	// Ledger
	SummaryWindowDays int

	// Pipeline
	PipelineAPIKey string
}

var appConfig *Config

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if not already loaded
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	// Get values from environment variables with defaults
	config := &Config{
		// Server
		Port: getEnv("PORT", "8080"),
		Env:  getEnv("ENV", "development"),

		// Database
		DBDriver:   getEnv("DB_DRIVER", "postgres"),
		DBPath:     getEnv("DB_PATH", "dualledger.db"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "dualledger"),
		DBPassword: getEnv("DB_PASSWORD", "dualledger"),
		DBName:     getEnv("DB_NAME", "dualledger"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		// JWT
		JWTSecret: getEnv("JWT_SECRET", "fallback-secret-key-for-dev-only"),

		// Currencies
		PrimaryCurrency:   getEnv("PRIMARY_CURRENCY", "ARS"),
		SecondaryCurrency: getEnv("SECONDARY_CURRENCY", "USD"),

		// Exchange rates
		RateTTL:              getDuration("RATE_TTL", time.Hour),
		RateRefreshInterval:  getDuration("RATE_REFRESH_INTERVAL", 8*time.Hour),
		RateFetchTimeout:     getDuration("RATE_FETCH_TIMEOUT", 10*time.Second),
		RateSource:           getEnv("RATE_SOURCE", "yahoo"),
		RateSourceURL:        getEnv("RATE_SOURCE_URL", ""),
		RateHTMLSelector:     getEnv("RATE_HTML_SELECTOR", ""),
		RateMinFetchInterval: getDuration("RATE_MIN_FETCH_INTERVAL", 5*time.Second),

		// Ledger
		SummaryWindowDays: getInt("SUMMARY_WINDOW_DAYS", 30),

		// Pipeline
		PipelineAPIKey: getEnv("PIPELINE_API_KEY", ""),
	}

	appConfig = config
	return config, nil
}

// Get returns the application configuration
func Get() *Config {
	if appConfig == nil {
		var err error
		appConfig, err = Load()
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}
	}
	return appConfig
}

// CurrencyPair returns the configured primary/secondary pair.
func (c *Config) CurrencyPair() models.CurrencyPair {
	return models.NewCurrencyPair(c.PrimaryCurrency, c.SecondaryCurrency)
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		log.Printf("Warning: invalid %s value '%s', falling back to %s\n", key, raw, defaultValue)
		return defaultValue
	}
	return d
}

func getInt(key string, defaultValue int) int {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		log.Printf("Warning: invalid %s value '%s', falling back to %d\n", key, raw, defaultValue)
		return defaultValue
	}
	return n
}
