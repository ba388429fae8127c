// Package config loads master configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the master's runtime configuration.
type Config struct {
	// Server
	Host string
	Port string

	// Auth
	APIKey string

	// Storage
	StorageBackend string // "memory" or "postgres"
	DatabaseURL    string

	// Logging
	LogLevel string
	DevMode  bool

	// HTTP
	CORSOrigins []string

	// Scheduling
	SchedulerInterval time.Duration
	NodeTimeout       time.Duration
	MaxConcurrentJobs int
}

// Load reads configuration from the environment, applying the same
// defaults as the reference deployment.
func Load() (*Config, error) {
	schedulerInterval, err := getDuration("SCHEDULER_INTERVAL", 5*time.Second)
	if err != nil {
		return nil, err
	}
	nodeTimeout, err := getDuration("NODE_TIMEOUT", 90*time.Second)
	if err != nil {
		return nil, err
	}
	maxConcurrentJobs, err := getInt("MAX_CONCURRENT_JOBS", 2)
	if err != nil {
		return nil, err
	}

	return &Config{
		Host:              getEnv("MASTER_HOST", "0.0.0.0"),
		Port:              getEnv("MASTER_PORT", "8080"),
		APIKey:            getEnv("API_KEY", ""),
		StorageBackend:    getEnv("STORAGE_BACKEND", "memory"),
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		DevMode:           getBool("DEV_MODE", false),
		CORSOrigins:       getList("CORS_ORIGINS", []string{"*"}),
		SchedulerInterval: schedulerInterval,
		NodeTimeout:       nodeTimeout,
		MaxConcurrentJobs: maxConcurrentJobs,
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("config: %s=%q is not an integer", key, value)
	}
	return parsed, nil
}

// getDuration reads key as a float number of seconds (the reference
// deployment's SCHEDULER_INTERVAL=5.0/NODE_TIMEOUT=90.0 convention),
// falling back to defaultValue if unset.
func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	seconds, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("config: %s=%q is not a number of seconds", key, value)
	}
	return time.Duration(seconds * float64(time.Second)), nil
}

func getList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
