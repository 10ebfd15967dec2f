// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store backends.
const (
	StoreBackendSQLite = "sqlite"
	StoreBackendJSON   = "json"
)

// Config holds all application configuration.
type Config struct {
	Port         string
	FrontendURL  string
	StoreBackend string // "sqlite" (default) or "json"
	DBPath       string
	UserDataPath string // JSON store path, used when StoreBackend is "json"
	SessionTTL   time.Duration
	Bot          BotConfig
	Chat         ChatConfig
}

// BotConfig controls the reply-generation capability.
type BotConfig struct {
	GeminiAPIKey string
	Model        string
	Timeout      time.Duration
}

// ChatConfig controls the chat surface.
type ChatConfig struct {
	PersistHistory     bool
	RateLimitRequests  int
	RateLimitWindow    time.Duration
	MaxRequestBodySize int64
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:         getEnv("PORT", "8080"),
		FrontendURL:  getEnv("FRONTEND_URL", ""),
		StoreBackend: strings.ToLower(getEnv("STORE_BACKEND", StoreBackendSQLite)),
		DBPath:       getEnv("DB_PATH", "./data/botchat.db"),
		UserDataPath: getEnv("USER_DATA_PATH", "./data/user_data.json"),
		SessionTTL:   time.Duration(getEnvInt("SESSION_TTL_MINUTES", 60)) * time.Minute,
		Bot: BotConfig{
			GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
			Model:        getEnv("BOT_MODEL", ""),
			Timeout:      time.Duration(getEnvInt("BOT_TIMEOUT_SECONDS", 30)) * time.Second,
		},
		Chat: ChatConfig{
			PersistHistory:     getEnvBool("CHAT_HISTORY_PERSIST", false),
			RateLimitRequests:  getEnvInt("CHAT_RATE_LIMIT", 10),
			RateLimitWindow:    time.Duration(getEnvInt("CHAT_RATE_WINDOW_SECONDS", 60)) * time.Second,
			MaxRequestBodySize: int64(getEnvInt("MAX_REQUEST_BODY_SIZE", 1<<20)),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	switch c.StoreBackend {
	case StoreBackendSQLite:
		if c.DBPath == "" {
			return fmt.Errorf("DB_PATH cannot be empty")
		}
	case StoreBackendJSON:
		if c.UserDataPath == "" {
			return fmt.Errorf("USER_DATA_PATH cannot be empty")
		}
	default:
		return fmt.Errorf("STORE_BACKEND must be %q or %q", StoreBackendSQLite, StoreBackendJSON)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL_MINUTES must be > 0")
	}
	if c.Bot.Timeout <= 0 {
		return fmt.Errorf("BOT_TIMEOUT_SECONDS must be > 0")
	}
	if c.Chat.RateLimitRequests <= 0 {
		return fmt.Errorf("CHAT_RATE_LIMIT must be > 0")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}
