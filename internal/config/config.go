package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration.
type Config struct {
	AppEnv  string
	Debug   bool
	Version string

	BotToken       string
	TelegramAPIURL string
	SentryDSN      string

	MongoDBURI      string
	MongoDBDatabase string
	RedisURL        string
	SessionTTL      time.Duration

	ContentServiceURL  string
	EmployeeServiceURL string
	BackendTimeout     time.Duration

	DefaultLanguage             string
	TagOrderSensitive           bool
	RollbackOnTransitionFailure bool
	UpdatesPerSecond            int
	AlbumDelay                  time.Duration
}

// LoadConfig loads configuration from environment variables.
// It attempts to load a .env file if present but prioritizes
// actual environment variables set in the system (e.g., by Docker).
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}
	return fromEnv()
}

func fromEnv() (*Config, error) {
	var err error
	cfg := &Config{
		AppEnv:             getEnv("APP_ENV", "development"),
		Version:            getEnv("APP_VERSION", "dev"),
		BotToken:           getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramAPIURL:     getEnv("TELEGRAM_API_URL", ""),
		SentryDSN:          getEnv("SENTRY_DSN", ""),
		MongoDBURI:         getEnv("MONGODB_URI", ""),
		MongoDBDatabase:    getEnv("MONGODB_DATABASE", "kontur_bot"),
		RedisURL:           getEnv("REDIS_URL", ""),
		ContentServiceURL:  getEnv("CONTENT_SERVICE_URL", ""),
		EmployeeServiceURL: getEnv("EMPLOYEE_SERVICE_URL", ""),
		DefaultLanguage:    getEnv("DEFAULT_LANGUAGE", "ru"),
	}

	if cfg.Debug, err = getEnvBool("DEBUG", false); err != nil {
		return nil, err
	}
	if cfg.TagOrderSensitive, err = getEnvBool("TAG_ORDER_SENSITIVE", false); err != nil {
		return nil, err
	}
	if cfg.RollbackOnTransitionFailure, err = getEnvBool("ROLLBACK_ON_TRANSITION_FAILURE", false); err != nil {
		return nil, err
	}
	if cfg.SessionTTL, err = getEnvDuration("SESSION_TTL", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.BackendTimeout, err = getEnvDuration("BACKEND_TIMEOUT", 60*time.Second); err != nil {
		return nil, err
	}
	if cfg.AlbumDelay, err = getEnvDuration("ALBUM_DELAY", 2*time.Second); err != nil {
		return nil, err
	}
	if cfg.UpdatesPerSecond, err = getEnvInt("UPDATES_PER_SECOND", 20); err != nil {
		return nil, err
	}

	// Basic validation for essential variables
	if cfg.BotToken == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}
	if cfg.MongoDBURI == "" {
		return nil, fmt.Errorf("MONGODB_URI is required")
	}
	if cfg.ContentServiceURL == "" {
		return nil, fmt.Errorf("CONTENT_SERVICE_URL is required")
	}
	if cfg.EmployeeServiceURL == "" {
		return nil, fmt.Errorf("EMPLOYEE_SERVICE_URL is required")
	}
	if cfg.UpdatesPerSecond <= 0 {
		return nil, fmt.Errorf("UPDATES_PER_SECOND must be positive, got %d", cfg.UpdatesPerSecond)
	}
	if cfg.SentryDSN == "" {
		log.Println("Warning: SENTRY_DSN is not set. Error tracking disabled.")
	}
	if cfg.RedisURL == "" {
		log.Println("Warning: REDIS_URL is not set. Sessions are kept in memory.")
	}

	return cfg, nil
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func getEnvInt(key string, defaultValue int) (int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return defaultValue, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}
