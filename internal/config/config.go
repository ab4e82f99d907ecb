package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const devSecretKey = "dev-secret-key-change-me-in-production"

type Config struct {
	Environment string
	Addr        string

	// Database configuration
	DBDriver string
	DBConn   string

	// Sessions
	SecretKey    string
	SessionTTL   time.Duration
	RememberTTL  time.Duration
	CookieSecure bool

	// Static files and photos
	StaticDir   string
	PhotoWidth  int
	PhotoHeight int
	MaxUploadMB int

	LogLevel string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if exists (not required in production)
	godotenv.Load()

	config := &Config{
		Environment:  getEnv("APP_ENV", "development"),
		Addr:         getEnv("ADDR", "127.0.0.1:8000"),
		DBDriver:     getEnv("DB_DRIVER", "sqlite3"),
		DBConn:       getEnv("DB_CONN", "./notes.db"),
		SecretKey:    getEnv("SECRET_KEY", ""),
		SessionTTL:   getEnvAsDuration("SESSION_TTL", 24*time.Hour),
		RememberTTL:  getEnvAsDuration("REMEMBER_TTL", 30*24*time.Hour),
		CookieSecure: getEnvAsBool("COOKIE_SECURE", false),
		StaticDir:    getEnv("STATIC_DIR", "./static"),
		PhotoWidth:   getEnvAsInt("PHOTO_WIDTH", 250),
		PhotoHeight:  getEnvAsInt("PHOTO_HEIGHT", 250),
		MaxUploadMB:  getEnvAsInt("MAX_UPLOAD_MB", 10),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
	}
	if config.SecretKey == "" && !config.IsProduction() {
		config.SecretKey = devSecretKey
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Validate ensures all required configuration is present
func (c *Config) Validate() error {
	switch c.DBDriver {
	case "sqlite3", "sqlite", "postgres":
	default:
		return fmt.Errorf("DB_DRIVER must be sqlite3, sqlite or postgres, got %q", c.DBDriver)
	}

	if c.DBConn == "" {
		return fmt.Errorf("DB_CONN is required")
	}

	if c.SecretKey == "" {
		return fmt.Errorf("SECRET_KEY is required")
	}

	if c.IsProduction() && len(c.SecretKey) < 32 {
		return fmt.Errorf("SECRET_KEY must be at least 32 characters")
	}

	if c.SessionTTL <= 0 || c.RememberTTL <= 0 {
		return fmt.Errorf("SESSION_TTL and REMEMBER_TTL must be positive")
	}

	if c.PhotoWidth <= 0 || c.PhotoHeight <= 0 {
		return fmt.Errorf("PHOTO_WIDTH and PHOTO_HEIGHT must be positive")
	}

	if c.MaxUploadMB <= 0 {
		return fmt.Errorf("MAX_UPLOAD_MB must be positive")
	}

	return nil
}

// SlogLevel maps LOG_LEVEL to a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Helper functions to read environment variables
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}
