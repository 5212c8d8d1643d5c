package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

const (
	SessionBackendMemory = "memory"
	SessionBackendRedis  = "redis"
)

type Config struct {
	Port        int    `env:"PORT" envDefault:"8080"`
	DatabaseURL string `env:"DATABASE_URL,required"`
	RedisURL    string `env:"REDIS_URL,required"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	VenueName   string `env:"VENUE_NAME" envDefault:"the venue"`

	BiometricBaseURL        string  `env:"BIOMETRIC_BASE_URL,required"`
	BiometricAPIKey         string  `env:"BIOMETRIC_API_KEY"`
	BiometricTimeoutSeconds int     `env:"BIOMETRIC_TIMEOUT_SECONDS" envDefault:"10"`
	FaceMinScore            float64 `env:"FACE_MIN_SCORE" envDefault:"0.5"`
	FaceEnforceQuality      bool    `env:"FACE_ENFORCE_QUALITY" envDefault:"false"`

	CompletionBaseURL        string  `env:"COMPLETION_BASE_URL" envDefault:""`
	CompletionAPIKey         string  `env:"COMPLETION_API_KEY"`
	CompletionModel          string  `env:"COMPLETION_MODEL" envDefault:"gpt-4o-mini"`
	CompletionTimeoutSeconds int     `env:"COMPLETION_TIMEOUT_SECONDS" envDefault:"30"`
	CompletionRatePerSec     float64 `env:"COMPLETION_RATE_PER_SEC" envDefault:"1"`

	ChatSessionBackend       string `env:"CHAT_SESSION_BACKEND" envDefault:"memory"`
	ChatSessionTTLSeconds    int    `env:"CHAT_SESSION_TTL_SECONDS" envDefault:"900"`
	ChatSweepIntervalSeconds int    `env:"CHAT_SWEEP_INTERVAL_SECONDS" envDefault:"60"`

	KioskRateLimitPerMin int    `env:"KIOSK_RATE_LIMIT_PER_MIN" envDefault:"30"`
	RateLimitBackend     string `env:"RATE_LIMIT_BACKEND" envDefault:"redis"`
}

func (c *Config) BiometricTimeout() time.Duration {
	return time.Duration(c.BiometricTimeoutSeconds) * time.Second
}

func (c *Config) CompletionTimeout() time.Duration {
	return time.Duration(c.CompletionTimeoutSeconds) * time.Second
}

func (c *Config) ChatSessionTTL() time.Duration {
	return time.Duration(c.ChatSessionTTLSeconds) * time.Second
}

func (c *Config) ChatSweepInterval() time.Duration {
	return time.Duration(c.ChatSweepIntervalSeconds) * time.Second
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c *Config) Validate(isProduction bool) error {
	if c.FaceMinScore <= 0 || c.FaceMinScore > 1 {
		return fmt.Errorf("FACE_MIN_SCORE must be in (0, 1], got %v", c.FaceMinScore)
	}
	if c.BiometricTimeoutSeconds <= 0 {
		return fmt.Errorf("BIOMETRIC_TIMEOUT_SECONDS must be positive")
	}
	if c.CompletionTimeoutSeconds <= 0 {
		return fmt.Errorf("COMPLETION_TIMEOUT_SECONDS must be positive")
	}
	if c.CompletionRatePerSec <= 0 {
		return fmt.Errorf("COMPLETION_RATE_PER_SEC must be positive")
	}
	if c.ChatSessionTTLSeconds <= 0 || c.ChatSweepIntervalSeconds <= 0 {
		return fmt.Errorf("CHAT_SESSION_TTL_SECONDS and CHAT_SWEEP_INTERVAL_SECONDS must be positive")
	}

	switch c.ChatSessionBackend {
	case SessionBackendMemory, SessionBackendRedis:
	default:
		return fmt.Errorf("CHAT_SESSION_BACKEND must be %q or %q, got %q",
			SessionBackendMemory, SessionBackendRedis, c.ChatSessionBackend)
	}

	switch c.RateLimitBackend {
	case SessionBackendMemory, SessionBackendRedis:
	default:
		return fmt.Errorf("RATE_LIMIT_BACKEND must be %q or %q, got %q",
			SessionBackendMemory, SessionBackendRedis, c.RateLimitBackend)
	}
	if isProduction {
		if c.CompletionAPIKey == "" {
			log.Warn().Msg("COMPLETION_API_KEY is empty in production: kiosk chat will fail")
		}
		if c.BiometricAPIKey == "" {
			log.Warn().Msg("BIOMETRIC_API_KEY is empty in production: biometric calls are unauthenticated")
		}
		if strings.HasPrefix(c.RedisURL, "redis://") {
			log.Warn().Msg("REDIS_URL uses redis:// (not TLS) in production: consider using rediss://")
		}
		if c.ChatSessionBackend == SessionBackendMemory {
			log.Warn().Msg("CHAT_SESSION_BACKEND=memory: chat history is per-instance")
		}
	}

	return nil
}

// Load reads the environment, merging an optional .env file first.
// Variables already present in the environment win over the file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
