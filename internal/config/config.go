package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const defaultSecret = "your-secret-key-change-in-production"

// Config application config shared by the client binaries and the sandbox server
type Config struct {
	Env string

	// client
	APIBaseURL         string
	APITimeout         time.Duration
	TokenDir           string
	CacheSize          int
	CacheStaleTime     time.Duration
	MasterpieceKeyword string

	// logging
	LogLevel     string
	LogFormat    string
	LogFile      string
	LogMaxSizeMB int

	// sandbox server
	Port         string
	AppSecret    string
	JWTExpiry    time.Duration
	ResetCodeTTL time.Duration
	// seeded admin account, skipped when either is empty
	AdminEmail    string
	AdminPassword string
}

// Load loads config from the environment
func Load() *Config {
	env := getEnv("APP_ENV", "development")
	appSecret := getEnv("APP_SECRET", getEnv("JWT_SECRET", defaultSecret))

	if env == "production" && appSecret == defaultSecret {
		fmt.Fprintln(os.Stderr, "WARNING: production is running with the default APP_SECRET")
	}

	port := getEnv("PORT", "5005")

	return &Config{
		Env:                env,
		APIBaseURL:         strings.TrimRight(getEnv("API_BASE_URL", "http://localhost:"+port), "/"),
		APITimeout:         time.Duration(getInt("API_TIMEOUT_SECONDS", 15)) * time.Second,
		TokenDir:           getEnv("TOKEN_DIR", defaultTokenDir()),
		CacheSize:          getInt("CACHE_SIZE", 256),
		CacheStaleTime:     time.Duration(getInt("CACHE_STALE_SECONDS", 300)) * time.Second,
		MasterpieceKeyword: getEnv("MASTERPIECE_KEYWORD", "masterpiece"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogFormat:          getEnv("LOG_FORMAT", "console"),
		LogFile:            getEnv("LOG_FILE", ""),
		LogMaxSizeMB:       getInt("LOG_MAX_SIZE_MB", 10),
		Port:               port,
		AppSecret:          appSecret,
		JWTExpiry:          time.Duration(getInt("JWT_EXPIRY_HOURS", 72)) * time.Hour,
		ResetCodeTTL:       time.Duration(getInt("RESET_CODE_TTL_MINUTES", 10)) * time.Minute,
		AdminEmail:         getEnv("ADMIN_EMAIL", ""),
		AdminPassword:      getEnv("ADMIN_PASSWORD", ""),
	}
}

// IsDevelopment reports whether contract drift should be logged
func (c *Config) IsDevelopment() bool {
	return c.Env != "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	n, err := strconv.Atoi(getEnv(key, ""))
	if err != nil || n < 0 {
		return defaultValue
	}
	return n
}

func defaultTokenDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".cagetracker"
	}
	return dir + string(os.PathSeparator) + "cagetracker"
}
