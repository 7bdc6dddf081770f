// Package config loads and validates environment variables at startup.
// Fail-fast: if a required variable is missing, the process exits.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration for the scraper service.
type Config struct {
	Port          string
	DatabaseURL   string
	RedisURL      string
	EncryptionKey string // master key for the credential cipher

	// AI scoring (OpenRouter-compatible). Empty API key disables the AI
	// path — every match falls back to the keyword scorer.
	AIAPIKey  string
	AIBaseURL string
	AIModel   string

	// Credential pool limits.
	DailyRequestCap int
	Cooldown        time.Duration

	// Task execution.
	WorkerBudget     int // max concurrent scrape tasks per process
	MatchConcurrency int // fan-out width of batch scoring
	TaskTimeout      time.Duration
	ScrapeTimeout    time.Duration

	// Anti-detection pacing: inter-action delays are drawn uniformly from
	// [DelayMin, DelayMax].
	DelayMin time.Duration
	DelayMax time.Duration
}

// Load reads environment variables and returns a validated Config.
func Load() (*Config, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required")
	}

	encKey := os.Getenv("ENCRYPTION_KEY")
	if encKey == "" {
		return nil, fmt.Errorf("ENCRYPTION_KEY is required")
	}

	port := os.Getenv("SCRAPER_PORT")
	if port == "" {
		port = "8082"
	}

	baseURL := os.Getenv("AI_BASE_URL")
	if baseURL == "" {
		baseURL = "https://openrouter.ai/api/v1"
	}
	aiModel := os.Getenv("AI_MODEL")
	if aiModel == "" {
		aiModel = "gpt-4o-mini"
	}

	cap, err := positiveInt("DAILY_REQUEST_CAP", 80)
	if err != nil {
		return nil, err
	}
	cooldownMin, err := positiveInt("COOLDOWN_MINUTES", 15)
	if err != nil {
		return nil, err
	}
	workers, err := positiveInt("WORKER_BUDGET", 4)
	if err != nil {
		return nil, err
	}
	matchConc, err := positiveInt("MATCH_CONCURRENCY", 5)
	if err != nil {
		return nil, err
	}
	taskMin, err := positiveInt("TASK_TIMEOUT_MINUTES", 20)
	if err != nil {
		return nil, err
	}
	scrapeMin, err := positiveInt("SCRAPE_TIMEOUT_MINUTES", 12)
	if err != nil {
		return nil, err
	}
	delayMinMs, err := positiveInt("DELAY_MIN_MS", 1500)
	if err != nil {
		return nil, err
	}
	delayMaxMs, err := positiveInt("DELAY_MAX_MS", 4000)
	if err != nil {
		return nil, err
	}
	if delayMaxMs < delayMinMs {
		return nil, fmt.Errorf("DELAY_MAX_MS (%d) must be >= DELAY_MIN_MS (%d)", delayMaxMs, delayMinMs)
	}

	return &Config{
		Port:             port,
		DatabaseURL:      dbURL,
		RedisURL:         redisURL,
		EncryptionKey:    encKey,
		AIAPIKey:         os.Getenv("AI_API_KEY"),
		AIBaseURL:        baseURL,
		AIModel:          aiModel,
		DailyRequestCap:  cap,
		Cooldown:         time.Duration(cooldownMin) * time.Minute,
		WorkerBudget:     workers,
		MatchConcurrency: matchConc,
		TaskTimeout:      time.Duration(taskMin) * time.Minute,
		ScrapeTimeout:    time.Duration(scrapeMin) * time.Minute,
		DelayMin:         time.Duration(delayMinMs) * time.Millisecond,
		DelayMax:         time.Duration(delayMaxMs) * time.Millisecond,
	}, nil
}

// positiveInt reads an optional positive-integer variable with a default.
func positiveInt(name string, def int) (int, error) {
	s := os.Getenv(name)
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 1 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", name, s)
	}
	return v, nil
}
