// Package config provides configuration for the gateway.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the gateway configuration.
type Config struct {
	// Server settings
	HTTPPort int

	// Completion backend (all three must be set for real calls)
	LLMEndpoint   string
	LLMDeployment string
	LLMAPIKey     string

	// Fast-tier cache
	UseRedis bool
	RedisURL string

	// Durable archive
	UseRemoteArchive bool // reserved: archive file is always used today
	ArchiveFile      string

	// Exchange ledger
	LedgerDSN string

	// Timeouts & limits
	LLMTimeout      time.Duration
	RequestTimeout  time.Duration
	RateLimitPerMin int
}

// Load loads configuration from environment variables.
func Load() *Config {
	return &Config{
		HTTPPort:         getEnvInt("HTTP_PORT", 8080),
		LLMEndpoint:      strings.TrimSuffix(strings.TrimSpace(getEnv("LLM_ENDPOINT", "")), "/"),
		LLMDeployment:    strings.TrimSpace(getEnv("LLM_DEPLOYMENT", "")),
		LLMAPIKey:        strings.TrimSpace(getEnv("LLM_API_KEY", "")),
		UseRedis:         getEnvBool("USE_REDIS", false),
		RedisURL:         getEnv("REDIS_URL", "redis://localhost:6379/0"),
		UseRemoteArchive: getEnvBool("USE_REMOTE_ARCHIVE", false),
		ArchiveFile:      getEnv("ARCHIVE_FILE", "./archive.json"),
		LedgerDSN:        getEnv("LEDGER_DSN", "file:chatgate.db?cache=shared&mode=rwc"),
		LLMTimeout:       time.Duration(getEnvInt("LLM_TIMEOUT_SECS", 20)) * time.Second,
		RequestTimeout:   time.Duration(getEnvInt("REQUEST_TIMEOUT_SECS", 25)) * time.Second,
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MIN", 10),
	}
}

// BackendConfigured reports whether the completion backend is fully configured.
func (c *Config) BackendConfigured() bool {
	return c.LLMEndpoint != "" && c.LLMDeployment != "" && c.LLMAPIKey != ""
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val == "1" || strings.EqualFold(val, "true")
}
