// Package config provides configuration management for the pagesnap service.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the pagesnap service.
type Config struct {
	// Server settings
	Port      int
	LogLevel  string
	LogFormat string // "text" or "json"; empty means auto-detect
	Debug     bool

	// Browser pool settings
	BrowserPoolSize    int
	BrowserIdleTimeout time.Duration
	BrowserMaxRequests int
	BrowserMaxAge      time.Duration
	ChromePath         string
	DisableStealth     bool

	// Login credentials (opaque secrets; handlers reject login requests when unset)
	LoginUsername string
	LoginPassword string

	// Session store settings
	StoreBackend  string // "sqlite" or "redis"
	SessionDBPath string
	RedisURL      string
	SessionTTL    time.Duration

	// Engine timeouts
	WidgetWait      time.Duration
	FieldWait       time.Duration
	NavigationWait  time.Duration
	RelayWait       time.Duration
	DestinationWait time.Duration
	SettleWait      time.Duration

	// Capture settings
	CaptureTimeout time.Duration

	// Authentication
	ServiceSecret        string // HMAC secret for signed service headers
	JWTSecret            string // HS256 secret for bearer tokens
	JWTIssuer            string // Expected issuer for bearer tokens
	AllowUnauthenticated bool

	// Idle shutdown
	IdleTimeout time.Duration
}

// Load creates a Config from environment variables with sensible defaults.
// A .env file in the working directory is loaded first if present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:      getEnvInt("PORT", 8290),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", ""),
		Debug:     getEnv("DEBUG", "false") == "true",

		BrowserPoolSize:    getEnvInt("BROWSER_POOL_SIZE", 3),
		BrowserIdleTimeout: getEnvDuration("BROWSER_IDLE_TIMEOUT", 5*time.Minute),
		BrowserMaxRequests: getEnvInt("BROWSER_MAX_REQUESTS", 100),
		BrowserMaxAge:      getEnvDuration("BROWSER_MAX_AGE", 30*time.Minute),
		ChromePath:         getEnv("CHROME_PATH", ""),
		DisableStealth:     getEnv("DISABLE_STEALTH", "false") == "true",

		LoginUsername: getEnv("LOGIN_USERNAME", ""),
		LoginPassword: getEnv("LOGIN_PASSWORD", ""),

		StoreBackend:  getEnv("STORE_BACKEND", "sqlite"),
		SessionDBPath: getEnv("SESSION_DB_PATH", "data/sessions.db"),
		RedisURL:      getEnv("REDIS_URL", ""),
		SessionTTL:    getEnvDuration("SESSION_TTL", 7*24*time.Hour),

		WidgetWait:      getEnvDuration("LOGIN_WIDGET_WAIT", 5*time.Second),
		FieldWait:       getEnvDuration("LOGIN_FIELD_WAIT", 15*time.Second),
		NavigationWait:  getEnvDuration("LOGIN_NAVIGATION_WAIT", 15*time.Second),
		RelayWait:       getEnvDuration("LOGIN_RELAY_WAIT", 30*time.Second),
		DestinationWait: getEnvDuration("LOGIN_DESTINATION_WAIT", 30*time.Second),
		SettleWait:      getEnvDuration("LOGIN_SETTLE_WAIT", 15*time.Second),

		CaptureTimeout: getEnvDuration("CAPTURE_TIMEOUT", 120*time.Second),

		ServiceSecret:        getEnv("SERVICE_SECRET", ""),
		JWTSecret:            getEnv("JWT_SECRET", ""),
		JWTIssuer:            getEnv("JWT_ISSUER", ""),
		AllowUnauthenticated: getEnv("ALLOW_UNAUTHENTICATED", "false") == "true",

		IdleTimeout: getEnvDuration("IDLE_TIMEOUT", 0),
	}
}

// HasCredentials reports whether the login credential pair is configured.
// Handlers must check this before invoking the login engine.
func (c *Config) HasCredentials() bool {
	return c.LoginUsername != "" && c.LoginPassword != ""
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
