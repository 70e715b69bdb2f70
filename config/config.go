package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port           string
	Environment    string
	AllowedOrigins []string
	JWTSecret      string
	Redis          RedisConfig

	// Liveness sweeper
	InactivityThreshold time.Duration
	SweepInterval       time.Duration

	// HTTP edge rate limiting (per client address, coarse window)
	RateLimitCeiling int
	RateLimitWindow  time.Duration

	// Per-connection inbound frame throttle
	MessageRate  float64
	MessageBurst int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

func Load() *Config {
	// Parse allowed origins (comma-separated)
	originsStr := getEnv("ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173")
	origins := strings.Split(originsStr, ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}

	return &Config{
		Port:           getEnv("PORT", "8080"),
		Environment:    getEnv("ENVIRONMENT", "development"),
		AllowedOrigins: origins,
		JWTSecret:      getEnv("JWT_SECRET", "change-me-in-production"),
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		InactivityThreshold: getEnvDuration("INACTIVITY_THRESHOLD", 5*time.Minute),
		SweepInterval:       getEnvDuration("SWEEP_INTERVAL", time.Minute),
		RateLimitCeiling:    getEnvInt("RATE_LIMIT_CEILING", 100),
		RateLimitWindow:     getEnvDuration("RATE_LIMIT_WINDOW", time.Hour),
		MessageRate:         getEnvFloat("MSG_RATE", 20),
		MessageBurst:        getEnvInt("MSG_BURST", 40),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
