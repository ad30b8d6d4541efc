// Package config provides application configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	DaysToCheckup   int
	DBPath          string
	LogLevel        slog.Level
	MetricsTextfile string
	Model           ModelConfig
	TranscriptLog   TranscriptLogConfig
}

// ModelConfig controls the generative model client.
type ModelConfig struct {
	APIKey  string
	Name    string
	BaseURL string
	Timeout time.Duration
}

// TranscriptLogConfig controls NDJSON transcript logging.
type TranscriptLogConfig struct {
	Enabled   bool
	Dir       string
	QueueSize int
}

// Load reads configuration from environment variables. Malformed values fall
// back to their defaults.
func Load() (*Config, error) {
	days := getEnvInt("DAYS_TO_CHECKUP", 14)
	if days <= 0 {
		days = 14
	}
	timeout := getEnvDuration("MODEL_TIMEOUT", 10*time.Second)
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	queueSize := getEnvInt("TRANSCRIPT_LOG_QUEUE_SIZE", 1000)
	if queueSize <= 0 {
		queueSize = 1000
	}

	cfg := &Config{
		DaysToCheckup:   days,
		DBPath:          getEnvNonEmpty("DB_PATH", "./data/solace.db"),
		LogLevel:        getEnvLevel("LOG_LEVEL", slog.LevelInfo),
		MetricsTextfile: getEnv("METRICS_TEXTFILE", ""),
		Model: ModelConfig{
			APIKey:  getEnv("GEMINI_API_KEY", ""),
			Name:    getEnvNonEmpty("GEMINI_MODEL", "gemini-2.0-flash"),
			BaseURL: getEnv("GEMINI_BASE_URL", ""),
			Timeout: timeout,
		},
		TranscriptLog: TranscriptLogConfig{
			Enabled:   getEnvBool("TRANSCRIPT_LOG_ENABLED", false),
			Dir:       getEnvNonEmpty("TRANSCRIPT_LOG_DIR", "./data/logs/transcripts"),
			QueueSize: queueSize,
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that numeric settings are usable. Load never produces a
// config that fails it; it guards configs built by hand.
func (c *Config) Validate() error {
	if c.DaysToCheckup <= 0 {
		return fmt.Errorf("DAYS_TO_CHECKUP must be > 0")
	}
	if c.Model.Timeout <= 0 {
		return fmt.Errorf("MODEL_TIMEOUT must be > 0")
	}
	if c.TranscriptLog.QueueSize <= 0 {
		return fmt.Errorf("TRANSCRIPT_LOG_QUEUE_SIZE must be > 0")
	}
	return nil
}

// HasModelCredentials reports whether a Gemini API key is configured.
func (c *Config) HasModelCredentials() bool {
	return strings.TrimSpace(c.Model.APIKey) != ""
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// getEnvNonEmpty treats a blank value like an unset one.
func getEnvNonEmpty(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
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

// getEnvDuration accepts Go durations ("15s") or bare seconds ("15").
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	value = strings.TrimSpace(value)
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}

func getEnvLevel(key string, fallback slog.Level) slog.Level {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(value))); err != nil {
		return fallback
	}
	return level
}
