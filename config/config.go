package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Venue credentials: "accountId:name:apiKey:apiSecret" entries,
	// comma-separated. Required unless StagingMode is set.
	BybitAccounts string
	BybitBaseURL  string

	// StagingMode replaces the venue with the in-process sim source.
	StagingMode bool

	// Infrastructure
	SQLitePath    string
	RedisAddr     string
	RedisPassword string
	APIAddr       string
	MetricsAddr   string

	// Poll interval for the reconcile scheduler.
	PollInterval time.Duration
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	cfg := &Config{
		BybitBaseURL: getEnv("BYBIT_BASE_URL", "https://api.bybit.com"),
		StagingMode:  strings.EqualFold(os.Getenv("STAGING_MODE"), "true"),

		SQLitePath:    getEnv("SQLITE_PATH", "data/ledger.db"),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		APIAddr:       getEnv("API_ADDR", ":4000"),
		MetricsAddr:   getEnv("METRICS_ADDR", ":9090"),

		PollInterval: time.Duration(getEnvInt("POLL_INTERVAL_S", 15)) * time.Second,
	}

	if !cfg.StagingMode {
		cfg.BybitAccounts = mustEnv("BYBIT_ACCOUNTS")
	}
	return cfg
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		log.Fatalf("[config] required env var %s not set", key)
	}
	return v
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Printf("[config] ignoring invalid %s value: %q", key, v)
		return fallback
	}
	return n
}
