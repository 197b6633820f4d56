package config

import (
	"errors"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Conversion providers selectable through CONVERSION_PROVIDER.
const (
	ConversionProviderECB = "ecb"
	ConversionProviderRPC = "rpc"
)

// ErrMissingSetting is returned by Load when a required variable is unset.
var ErrMissingSetting = errors.New("required setting missing")

// AppConfig holds all configuration for the application.
// The values are loaded from environment variables.
type AppConfig struct {
	// Core settings
	Port         string
	DatabasePath string
	LogLevel     string

	// Security settings
	JWTSecret      string
	AllowedOrigins []string

	// Rate limiting
	RateLimitInterval time.Duration
	RateLimitBurst    int

	// Currency conversion
	ConversionProvider  string
	ConversionRPCURL    string
	ConversionRPCAPIKey string
	ECBAPIBaseURL       string
	HTTPClientTimeout   time.Duration

	// Query cache
	QueryStaleTime         time.Duration
	QueryGCTime            time.Duration
	BackgroundFetchTimeout time.Duration
}

// Cfg is a global instance of the AppConfig.
var Cfg *AppConfig

// LoadConfig loads configuration from environment variables or a .env file and
// terminates the process when a required setting is missing.
func LoadConfig() {
	loadDotEnv()

	cfg, err := Load()
	if err != nil {
		log.Fatalf("FATAL: %v. Application cannot start securely.", err)
	}
	Cfg = cfg

	log.Printf("Configuration loaded: Port=%s, LogLevel=%s, DBPath=%s, ConversionProvider=%s",
		Cfg.Port, Cfg.LogLevel, Cfg.DatabasePath, Cfg.ConversionProvider)
}

// Load reads the configuration from the process environment.
func Load() (*AppConfig, error) {
	jwtSecret := strings.TrimSpace(os.Getenv("JWT_SECRET"))
	if jwtSecret == "" {
		return nil, errorMissing("JWT_SECRET")
	}

	provider := strings.ToLower(getEnv("CONVERSION_PROVIDER", ConversionProviderECB))
	rpcURL := getEnv("CONVERSION_RPC_URL", "")
	switch provider {
	case ConversionProviderECB:
	case ConversionProviderRPC:
		if rpcURL == "" {
			return nil, errorMissing("CONVERSION_RPC_URL")
		}
	default:
		log.Printf("Unknown CONVERSION_PROVIDER '%s', using %s", provider, ConversionProviderECB)
		provider = ConversionProviderECB
	}

	return &AppConfig{
		Port:         getEnv("PORT", "8080"),
		DatabasePath: getEnv("DATABASE_PATH", "./scenariobudget.db"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),

		JWTSecret:      jwtSecret,
		AllowedOrigins: getEnvAsList("ALLOWED_ORIGINS", []string{"http://localhost:3000"}),

		RateLimitInterval: getEnvAsDuration("RATE_LIMIT_INTERVAL", 100*time.Millisecond),
		RateLimitBurst:    getEnvAsInt("RATE_LIMIT_BURST", 30),

		ConversionProvider:  provider,
		ConversionRPCURL:    rpcURL,
		ConversionRPCAPIKey: getEnv("CONVERSION_RPC_API_KEY", ""),
		ECBAPIBaseURL:       getEnv("ECB_API_BASE_URL", "https://data-api.ecb.europa.eu/service/data/EXR"),
		HTTPClientTimeout:   getEnvAsDuration("HTTP_CLIENT_TIMEOUT", 10*time.Second),

		QueryStaleTime:         getEnvAsDuration("QUERY_STALE_TIME", 2*time.Minute),
		QueryGCTime:            getEnvAsDuration("QUERY_GC_TIME", 10*time.Minute),
		BackgroundFetchTimeout: getEnvAsDuration("BACKGROUND_FETCH_TIMEOUT", 30*time.Second),
	}, nil
}

func loadDotEnv() {
	// 1. Current directory
	errEnv := godotenv.Load()

	// 2. Parent directory, when running from a subfolder
	if errEnv != nil {
		errEnv = godotenv.Load("../.env")
	}

	if errEnv != nil {
		if os.IsNotExist(errEnv) {
			log.Println("Info: No .env file found in current or parent directory. Relying on OS environment variables.")
		} else {
			log.Printf("Warning: Error loading .env file: %v. Relying on OS environment variables.", errEnv)
		}
	} else {
		log.Println(".env file loaded successfully.")
	}
}

func errorMissing(key string) error {
	return &settingError{key: key}
}

type settingError struct{ key string }

func (e *settingError) Error() string { return "required environment variable " + e.key + " is not set or is empty" }
func (e *settingError) Unwrap() error { return ErrMissingSetting }

// getEnv retrieves an environment variable or returns a fallback value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvAsInt retrieves an environment variable as an integer or returns a fallback.
func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid integer value for %s ('%s'), using default: %d", key, valueStr, fallback)
	return fallback
}

// getEnvAsDuration retrieves an environment variable as a time.Duration or returns a fallback.
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid duration value for %s ('%s'), using default: %s", key, valueStr, fallback.String())
	return fallback
}

// getEnvAsList retrieves a comma-separated environment variable as a trimmed list.
func getEnvAsList(key string, fallback []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(valueStr, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
