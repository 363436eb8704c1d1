package config

import (
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

type Config struct {
	Validator *validator.Validate
}

// AppConfig represents the application configuration
type AppConfig struct {
	Port        string
	Environment string
	APIKey      string

	// PaymentEnvironment is the provider environment used when a call names none
	PaymentEnvironment string
	RateLimit          int
	AllowedOrigins     string

	DatabaseURL      string
	RedisURL         string
	ProviderConfigDB string
	WebhookEventTTL  time.Duration

	OpenSearchURL           string
	OpenSearchUser          string
	OpenSearchPass          string
	EnableOpenSearchLogging bool
	LoggingLevel            string
}

var (
	instance          *Config
	instanceOnce      sync.Once
	appConfigInstance *AppConfig
	appConfigMu       sync.Mutex
)

func App() *Config {
	instanceOnce.Do(func() {
		instance = &Config{
			Validator: validator.New(),
		}
	})
	return instance
}

// GetAppConfig returns the application configuration
func GetAppConfig() *AppConfig {
	appConfigMu.Lock()
	defer appConfigMu.Unlock()

	if appConfigInstance == nil {
		appConfigInstance = &AppConfig{
			Port:                    GetEnv("APP_PORT", "9000"),
			Environment:             GetEnv("APP_ENV", "development"),
			APIKey:                  GetEnv("API_KEY", ""),
			PaymentEnvironment:      GetEnv("PAYMENT_ENVIRONMENT", "sandbox"),
			RateLimit:               GetIntEnv("RATE_LIMIT_PER_MINUTE", 100),
			AllowedOrigins:          GetEnv("CORS_ALLOWED_ORIGINS", "*"),
			DatabaseURL:             GetEnv("DATABASE_URL", ""),
			RedisURL:                GetEnv("REDIS_URL", ""),
			ProviderConfigDB:        GetEnv("PROVIDER_CONFIG_DB", ""),
			WebhookEventTTL:         time.Duration(GetIntEnv("WEBHOOK_EVENT_TTL_HOURS", 72)) * time.Hour,
			OpenSearchURL:           GetEnv("OPENSEARCH_URL", "http://localhost:9200"),
			OpenSearchUser:          GetEnv("OPENSEARCH_USER", ""),
			OpenSearchPass:          GetEnv("OPENSEARCH_PASSWORD", ""),
			EnableOpenSearchLogging: GetBoolEnv("ENABLE_OPENSEARCH_LOGGING", false),
			LoggingLevel:            GetEnv("LOGGING_LEVEL", "info"),
		}
	}
	return appConfigInstance
}

// ResetAppConfig drops the cached application configuration so the next GetAppConfig re-reads the environment
func ResetAppConfig() {
	appConfigMu.Lock()
	appConfigInstance = nil
	appConfigMu.Unlock()
}

// GetEnv returns the value of an environment variable or a default value
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetBoolEnv returns the boolean value of an environment variable or a default value
func GetBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// GetIntEnv returns the integer value of an environment variable or a default value
func GetIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
