package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port    string
	GinMode string

	RecallAPIKey    string
	RecallRegion    string
	RecallBaseURL   string
	RecallRateLimit float64
	WebhookToken    string

	TranscriptsRoot    string
	SummaryCacheDir    string
	RetentionDays      int
	CacheSweepInterval time.Duration
	DefaultProject     string

	OpenAIKey      string
	OpenAIBaseURL  string
	OpenAIModel    string
	SummaryTimeout time.Duration
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:    getEnv("PORT", "8000"),
		GinMode: os.Getenv("GIN_MODE"),

		RecallAPIKey:  strings.TrimSpace(os.Getenv("RECALLAI_API_KEY")),
		RecallRegion:  getEnv("RECALLAI_REGION", "us-west-2"),
		RecallBaseURL: os.Getenv("RECALLAI_BASE_URL"),
		WebhookToken:  os.Getenv("WEBHOOK_TOKEN"),

		TranscriptsRoot: getEnv("TRANSCRIPTS_ROOT", "transcripts_projects"),
		SummaryCacheDir: getEnv("SUMMARY_CACHE_DIR", "summary_cache"),
		DefaultProject:  getEnv("DEFAULT_PROJECT", "default"),

		OpenAIKey:     strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
		OpenAIBaseURL: os.Getenv("OPENAI_BASE_URL"),
		OpenAIModel:   getEnv("OPENAI_MODEL", "gpt-4o-mini"),
	}

	var err error
	if cfg.RecallRateLimit, err = getFloat("RECALLAI_RATE_LIMIT", 5); err != nil {
		return nil, err
	}
	if cfg.RetentionDays, err = getInt("RETENTION_DAYS", 15); err != nil {
		return nil, err
	}
	if cfg.CacheSweepInterval, err = getDuration("CACHE_SWEEP_INTERVAL", 6*time.Hour); err != nil {
		return nil, err
	}
	if cfg.SummaryTimeout, err = getDuration("SUMMARY_TIMEOUT", 10*time.Minute); err != nil {
		return nil, err
	}

	// API keys are optional at startup; the endpoints that need them report
	// the missing key when called.

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := getEnv(key, "")
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", key, v)
	}
	return n, nil
}

func getFloat(key string, fallback float64) (float64, error) {
	v := getEnv(key, "")
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f <= 0 {
		return 0, fmt.Errorf("%s must be a positive number, got %q", key, v)
	}
	return f, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := getEnv(key, "")
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%s must be a positive duration like 6h or 90s, got %q", key, v)
	}
	return d, nil
}
