// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Port            string
	AllowedOrigins  []string
	Store           StoreConfig
	Classifier      ClassifierConfig
	Generation      GenerationConfig
	CacheTTL        time.Duration
	Threshold       int
	CalibrationPath string
	QueueSize       int
	Maintenance     MaintenanceConfig
}

// StoreConfig selects and configures the conversation store backend.
type StoreConfig struct {
	Backend     string // "sqlite" or "postgres"
	DBPath      string
	PostgresDSN string
}

// ClassifierConfig holds the downstream model endpoints.
type ClassifierConfig struct {
	FastBaseURL     string
	AccurateBaseURL string
	Timeout         time.Duration
}

// GenerationConfig controls the optional response generation API.
type GenerationConfig struct {
	APIURL  string
	APIKey  string
	Model   string
	Enabled bool
	Timeout time.Duration
}

// MaintenanceConfig controls the background maintenance jobs. Empty
// schedules disable the corresponding job.
type MaintenanceConfig struct {
	CacheCleanupSchedule string
	RetentionSchedule    string
	RetentionDays        int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	queueSize := getEnvInt("PERSIST_QUEUE_SIZE", 256)
	if queueSize <= 0 {
		queueSize = 256
	}

	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "*")),
		Store: StoreConfig{
			Backend:     strings.ToLower(getEnv("STORE_BACKEND", "sqlite")),
			DBPath:      getEnv("DB_PATH", "./data/conversations.db"),
			PostgresDSN: getEnv("POSTGRES_DSN", ""),
		},
		Classifier: ClassifierConfig{
			FastBaseURL:     getEnv("FAST_CLASSIFIER_URL", "http://localhost:8001"),
			AccurateBaseURL: getEnv("ACCURATE_CLASSIFIER_URL", "http://localhost:8002"),
			Timeout:         getEnvDuration("CLASSIFY_TIMEOUT", 30*time.Second),
		},
		Generation: GenerationConfig{
			APIURL:  getEnv("GENERATION_API_URL", "https://api.x.ai/v1/chat/completions"),
			APIKey:  getEnv("GENERATION_API_KEY", ""),
			Model:   getEnv("GENERATION_MODEL", "grok-beta"),
			Enabled: getEnvBool("GENERATION_ENABLED", true),
			Timeout: getEnvDuration("GENERATION_TIMEOUT", 15*time.Second),
		},
		CacheTTL:        getEnvDuration("CACHE_TTL", time.Hour),
		Threshold:       getEnvInt("COMPLEXITY_THRESHOLD", 35),
		CalibrationPath: getEnv("COMPLEXITY_CALIBRATION_PATH", ""),
		QueueSize:       queueSize,
		Maintenance: MaintenanceConfig{
			CacheCleanupSchedule: getEnv("CACHE_CLEANUP_SCHEDULE", ""),
			RetentionSchedule:    getEnv("RETENTION_SCHEDULE", ""),
			RetentionDays:        getEnvInt("RETENTION_DAYS", 30),
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
	switch c.Store.Backend {
	case "sqlite":
		if c.Store.DBPath == "" {
			return fmt.Errorf("DB_PATH cannot be empty")
		}
	case "postgres":
		if c.Store.PostgresDSN == "" {
			return fmt.Errorf("POSTGRES_DSN cannot be empty when STORE_BACKEND=postgres")
		}
	default:
		return fmt.Errorf("STORE_BACKEND must be \"sqlite\" or \"postgres\", got %q", c.Store.Backend)
	}
	if c.Classifier.FastBaseURL == "" {
		return fmt.Errorf("FAST_CLASSIFIER_URL cannot be empty")
	}
	if c.Classifier.AccurateBaseURL == "" {
		return fmt.Errorf("ACCURATE_CLASSIFIER_URL cannot be empty")
	}
	if c.Classifier.Timeout <= 0 {
		return fmt.Errorf("CLASSIFY_TIMEOUT must be > 0")
	}
	if c.Threshold < 0 || c.Threshold > 100 {
		return fmt.Errorf("COMPLEXITY_THRESHOLD must be between 0 and 100, got %d", c.Threshold)
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("CACHE_TTL must be > 0")
	}
	if c.Maintenance.RetentionDays <= 0 {
		return fmt.Errorf("RETENTION_DAYS must be > 0")
	}
	return nil
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
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

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
