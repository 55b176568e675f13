package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the account security service.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string

	AllowAnyOrigin bool

	DatabaseURL string

	GeneratorMode    string
	GeminiAPIURL     string
	GeminiAPIKey     string
	GeneratorTimeout time.Duration

	LockoutThreshold          int
	RecoveryInactivityTimeout time.Duration
	MinPasswordLength         int

	TokenSigningKey string
	TokenTTL        time.Duration
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:                  envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace:          envOrDefault("APP_METRICS_NAMESPACE", "lockbox"),
		AllowAnyOrigin:            false,
		DatabaseURL:               trimmedEnv("DATABASE_URL"),
		GeneratorMode:             envOrDefault("GENERATOR_MODE", "auto"),
		GeminiAPIURL:              trimmedEnv("GEMINI_API_URL"),
		GeminiAPIKey:              trimmedEnv("GEMINI_API_KEY"),
		GeneratorTimeout:          20 * time.Second,
		LockoutThreshold:          3,
		RecoveryInactivityTimeout: 10 * time.Minute,
		MinPasswordLength:         6,
		TokenSigningKey:           trimmedEnv("TOKEN_SIGNING_KEY"),
		TokenTTL:                  30 * time.Minute,
		ShutdownTimeout:           15 * time.Second,
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.GeneratorTimeout, err = durationFromEnv("GENERATOR_TIMEOUT", cfg.GeneratorTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.RecoveryInactivityTimeout, err = durationFromEnv("RECOVERY_INACTIVITY_TIMEOUT", cfg.RecoveryInactivityTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.TokenTTL, err = durationFromEnv("TOKEN_TTL", cfg.TokenTTL)
	if err != nil {
		return Config{}, err
	}
	cfg.LockoutThreshold, err = intFromEnv("LOCKOUT_THRESHOLD", cfg.LockoutThreshold)
	if err != nil {
		return Config{}, err
	}
	cfg.MinPasswordLength, err = intFromEnv("MIN_PASSWORD_LENGTH", cfg.MinPasswordLength)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}

	if cfg.LockoutThreshold <= 0 {
		return Config{}, fmt.Errorf("LOCKOUT_THRESHOLD must be positive")
	}
	if cfg.MinPasswordLength <= 0 {
		return Config{}, fmt.Errorf("MIN_PASSWORD_LENGTH must be positive")
	}
	if cfg.GeneratorTimeout <= 0 {
		return Config{}, fmt.Errorf("GENERATOR_TIMEOUT must be positive")
	}
	if cfg.RecoveryInactivityTimeout < 30*time.Second {
		return Config{}, fmt.Errorf("RECOVERY_INACTIVITY_TIMEOUT must be at least 30s")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func trimmedEnv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := trimmedEnv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := trimmedEnv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(trimmedEnv(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
