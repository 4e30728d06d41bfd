// File: internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	// Server Configuration
	GinMode       string        `mapstructure:"GIN_MODE"`
	ServerHost    string        `mapstructure:"SERVER_HOST"`
	ServerPort    string        `mapstructure:"SERVER_PORT"`
	ServerTimeout time.Duration `mapstructure:"-"` // SERVER_TIMEOUT_SECONDS
	CORSOrigins   []string      `mapstructure:"-"` // CORS_ALLOWED_ORIGINS

	// Database Configuration
	DBDriver          string        `mapstructure:"DB_DRIVER"` // postgres or sqlite
	DBHost            string        `mapstructure:"DB_HOST"`
	DBPort            string        `mapstructure:"DB_PORT"`
	DBUser            string        `mapstructure:"DB_USER"`
	DBPassword        string        `mapstructure:"DB_PASSWORD"`
	DBName            string        `mapstructure:"DB_NAME"`
	DBSSLMode         string        `mapstructure:"DB_SSL_MODE"`
	DBTimezone        string        `mapstructure:"DB_TIMEZONE"`
	DBSQLitePath      string        `mapstructure:"DB_SQLITE_PATH"`
	DBMaxIdleConns    int           `mapstructure:"DB_MAX_IDLE_CONNS"`
	DBMaxOpenConns    int           `mapstructure:"DB_MAX_OPEN_CONNS"`
	DBConnMaxLifetime time.Duration `mapstructure:"-"` // DB_CONN_MAX_LIFETIME_MINUTES

	// Logging Configuration
	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`

	// Firebase Configuration (server side)
	FirebaseServiceAccountKeyPath string `mapstructure:"FIREBASE_SERVICE_ACCOUNT_KEY_PATH"`
	FirebaseProjectID             string `mapstructure:"FIREBASE_PROJECT_ID"`

	// Firebase Configuration (client side, Identity Toolkit REST)
	FirebaseAPIKey     string `mapstructure:"FIREBASE_API_KEY"`
	IdentityToolkitURL string `mapstructure:"IDENTITY_TOOLKIT_URL"`
	SecureTokenURL     string `mapstructure:"SECURE_TOKEN_URL"`

	// Session cookie
	SessionCookieName       string        `mapstructure:"SESSION_COOKIE_NAME"`
	SessionCookieExpiry     time.Duration `mapstructure:"-"` // SESSION_COOKIE_EXPIRY_DAYS
	SessionCookieSecure     bool          `mapstructure:"SESSION_COOKIE_SECURE"`
	SessionCookieDomain     string        `mapstructure:"SESSION_COOKIE_DOMAIN"`
	SessionPruneJobSchedule string        `mapstructure:"SESSION_PRUNE_JOB_SCHEDULE"`

	// Workflow client
	BackendBaseURL    string        `mapstructure:"BACKEND_BASE_URL"`
	HTTPClientTimeout time.Duration `mapstructure:"-"` // HTTP_CLIENT_TIMEOUT_SECONDS
	DashboardPath     string        `mapstructure:"DASHBOARD_PATH"`

	// OAuth (loopback authorization for the CLI)
	GoogleClientID     string `mapstructure:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `mapstructure:"GOOGLE_CLIENT_SECRET"`
	GitHubClientID     string `mapstructure:"GITHUB_CLIENT_ID"`
	GitHubClientSecret string `mapstructure:"GITHUB_CLIENT_SECRET"`
	OAuthCallbackAddr  string `mapstructure:"OAUTH_CALLBACK_ADDR"`
}

// Load attempts to load configuration from a .env file (if present) and environment variables.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	v := viper.New()

	v.SetDefault("GIN_MODE", "debug")
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_TIMEOUT_SECONDS", 30)
	v.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")

	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "password")
	v.SetDefault("DB_NAME", "prepwise_auth")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_TIMEZONE", "UTC")
	v.SetDefault("DB_SQLITE_PATH", "prepwise_auth.db")
	v.SetDefault("DB_MAX_IDLE_CONNS", 10)
	v.SetDefault("DB_MAX_OPEN_CONNS", 100)
	v.SetDefault("DB_CONN_MAX_LIFETIME_MINUTES", 60)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")

	// Firebase
	v.SetDefault("FIREBASE_PROJECT_ID", "") // Optional
	v.SetDefault("FIREBASE_SERVICE_ACCOUNT_KEY_PATH", "")
	v.SetDefault("FIREBASE_API_KEY", "")
	v.SetDefault("IDENTITY_TOOLKIT_URL", "https://identitytoolkit.googleapis.com/v1")
	v.SetDefault("SECURE_TOKEN_URL", "https://securetoken.googleapis.com/v1")

	v.SetDefault("SESSION_COOKIE_NAME", "session")
	v.SetDefault("SESSION_COOKIE_EXPIRY_DAYS", 7)
	v.SetDefault("SESSION_COOKIE_SECURE", false)
	v.SetDefault("SESSION_COOKIE_DOMAIN", "")
	v.SetDefault("SESSION_PRUNE_JOB_SCHEDULE", "@hourly")

	v.SetDefault("BACKEND_BASE_URL", "http://localhost:8080")
	v.SetDefault("HTTP_CLIENT_TIMEOUT_SECONDS", 15)
	v.SetDefault("DASHBOARD_PATH", "/dashboard")

	v.SetDefault("GOOGLE_CLIENT_ID", "")
	v.SetDefault("GOOGLE_CLIENT_SECRET", "")
	v.SetDefault("GITHUB_CLIENT_ID", "")
	v.SetDefault("GITHUB_CLIENT_SECRET", "")
	v.SetDefault("OAUTH_CALLBACK_ADDR", "127.0.0.1:8765")

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling configuration: %w", err)
	}

	// Derived fields are configured in whole units or as comma lists.
	cfg.ServerTimeout = time.Duration(v.GetInt("SERVER_TIMEOUT_SECONDS")) * time.Second
	cfg.DBConnMaxLifetime = time.Duration(v.GetInt("DB_CONN_MAX_LIFETIME_MINUTES")) * time.Minute
	cfg.SessionCookieExpiry = time.Duration(v.GetInt("SESSION_COOKIE_EXPIRY_DAYS")) * 24 * time.Hour
	cfg.HTTPClientTimeout = time.Duration(v.GetInt("HTTP_CLIENT_TIMEOUT_SECONDS")) * time.Second
	cfg.CORSOrigins = splitList(v.GetString("CORS_ALLOWED_ORIGINS"))

	return &cfg, nil
}

// Validate checks the settings the session endpoint cannot start without.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.FirebaseServiceAccountKeyPath) == "" {
		return fmt.Errorf("FIREBASE_SERVICE_ACCOUNT_KEY_PATH is not set. This is required for Firebase Admin SDK initialization")
	}
	if _, err := os.Stat(c.FirebaseServiceAccountKeyPath); os.IsNotExist(err) {
		return fmt.Errorf("firebase service account key file specified in FIREBASE_SERVICE_ACCOUNT_KEY_PATH (%s) not found", c.FirebaseServiceAccountKeyPath)
	}
	switch c.DBDriver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q (expected postgres or sqlite)", c.DBDriver)
	}
	// Firebase session cookies must live between 5 minutes and 2 weeks.
	if c.SessionCookieExpiry < 5*time.Minute || c.SessionCookieExpiry > 14*24*time.Hour {
		return fmt.Errorf("SESSION_COOKIE_EXPIRY_DAYS must be between 1 and 14, got %s", c.SessionCookieExpiry)
	}
	return nil
}

// ValidateClient checks the settings the workflow commands need.
func (c *Config) ValidateClient() error {
	if strings.TrimSpace(c.FirebaseAPIKey) == "" {
		return fmt.Errorf("FIREBASE_API_KEY is not set. This is required to reach the identity provider")
	}
	if strings.TrimSpace(c.BackendBaseURL) == "" {
		return fmt.Errorf("BACKEND_BASE_URL is not set")
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
