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

const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
	CacheBackendValkey = "valkey"
)

type Config struct {
	LogLevel        slog.Level
	LogFormat       string
	HTTPAddr        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	BackendURL         string
	FetchTimeout       time.Duration
	QueryEmptySegments bool

	AssetDir       string
	AssetCacheName string
	CacheBackend   string
	CacheTTL       time.Duration
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	ValkeyAddr     string

	WSSendBuffer int

	SessionLimitPerWindow int
	SessionLimitWindow    time.Duration
	SessionLimitWhitelist []string
}

// Load reads an optional .env file and then the process environment.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	_ = godotenv.Load(envFiles...)

	cfg := &Config{
		LogLevel:        getLogLevelEnv("LOG_LEVEL", slog.LevelInfo),
		LogFormat:       getEnv("LOG_FORMAT", "json"),
		HTTPAddr:        getEnv("HTTP_ADDR", ":8080"),
		ReadTimeout:     getDurationEnv("READ_TIMEOUT", 10*time.Second),
		WriteTimeout:    getDurationEnv("WRITE_TIMEOUT", 10*time.Second),
		ShutdownTimeout: getDurationEnv("SHUTDOWN_TIMEOUT", 30*time.Second),

		BackendURL:         getEnv("BACKEND_URL", "http://localhost:5000"),
		FetchTimeout:       getDurationEnv("FETCH_TIMEOUT", 0),
		QueryEmptySegments: getBoolEnv("QUERY_EMPTY_SEGMENTS", false),

		AssetDir:       getEnv("ASSET_DIR", "./web"),
		AssetCacheName: getEnv("ASSET_CACHE_NAME", "map-pwa-cache-v1"),
		CacheBackend:   strings.ToLower(getEnv("CACHE_BACKEND", CacheBackendMemory)),
		CacheTTL:       getDurationEnv("CACHE_TTL", 0),
		RedisAddr:      getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		RedisDB:        getIntEnv("REDIS_DB", 0),
		ValkeyAddr:     getEnv("VALKEY_ADDR", "localhost:6379"),

		WSSendBuffer: getIntEnv("WS_SEND_BUFFER", 256),

		SessionLimitPerWindow: getIntEnv("SESSION_LIMIT_PER_WINDOW", 30),
		SessionLimitWindow:    getDurationEnv("SESSION_LIMIT_WINDOW", time.Minute),
		SessionLimitWhitelist: getCSVEnv("SESSION_LIMIT_WHITELIST"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []string

	if c.BackendURL == "" {
		errs = append(errs, "BACKEND_URL is required")
	}
	if c.FetchTimeout < 0 {
		errs = append(errs, "FETCH_TIMEOUT must not be negative")
	}
	if c.AssetCacheName == "" {
		errs = append(errs, "ASSET_CACHE_NAME is required")
	}
	switch c.CacheBackend {
	case CacheBackendMemory, CacheBackendRedis, CacheBackendValkey:
	default:
		errs = append(errs, fmt.Sprintf("CACHE_BACKEND must be memory, redis or valkey, got %q", c.CacheBackend))
	}
	if c.WSSendBuffer <= 0 {
		errs = append(errs, "WS_SEND_BUFFER must be positive")
	}
	if c.SessionLimitPerWindow <= 0 {
		errs = append(errs, "SESSION_LIMIT_PER_WINDOW must be positive")
	}
	if c.SessionLimitWindow <= 0 {
		errs = append(errs, "SESSION_LIMIT_WINDOW must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getDurationEnv(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}

func getIntEnv(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getBoolEnv(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultVal
}

func getLogLevelEnv(key string, defaultVal slog.Level) slog.Level {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}

	switch strings.ToLower(v) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return defaultVal
	}
}

func getCSVEnv(key string) []string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}

	parts := strings.Split(v, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			result = append(result, t)
		}
	}
	return result
}
