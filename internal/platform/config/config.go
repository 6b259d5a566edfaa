package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Settings captures every knob the pipeline reads at startup. Values come from
// the environment once, in FromEnv, so the rest of the code never touches
// os.Getenv directly.
type Settings struct {
	// DatabaseURL is the destination Postgres DSN (ipeds_loader role).
	DatabaseURL string

	// BaseURL is the Urban Institute education data API root.
	BaseURL string

	RequestTimeout time.Duration
	MaxRetries     int
	RateLimitRPS   float64
	UserAgent      string

	// Backoff is the first retry delay; it doubles on each attempt.
	Backoff time.Duration

	// RawPageSize is how many records go into one archived page.
	RawPageSize int

	// LoadBatchSize is how many mapped rows are upserted per flush.
	LoadBatchSize int

	// OpsAddr serves /healthz, /readyz and /metrics; empty disables the server.
	OpsAddr string
}

const defaultBaseURL = "https://educationdata.urban.org/api/v1/college-university"

// FromEnv builds Settings from environment variables so main stays lean.
// DATABASE_URL is the only required value; everything else has a default.
func FromEnv() (Settings, error) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		return Settings{}, fmt.Errorf("missing required environment variable DATABASE_URL")
	}

	s := Settings{
		DatabaseURL:    dsn,
		BaseURL:        getenv("IPEDS_BASE_URL", defaultBaseURL),
		RequestTimeout: time.Duration(getenvInt("REQUEST_TIMEOUT_SECONDS", 30)) * time.Second,
		MaxRetries:     getenvInt("MAX_RETRIES", 3),
		RateLimitRPS:   getenvFloat("RATE_LIMIT_RPS", 4),
		UserAgent:      getenv("USER_AGENT", "ipeds-etl/0.1 (no-contact)"),
		Backoff:        time.Second,
		RawPageSize:    getenvInt("RAW_PAGE_SIZE", 500),
		LoadBatchSize:  getenvInt("LOAD_BATCH_SIZE", 1000),
		OpsAddr:        getenv("OPS_ADDR", ""),
	}

	if s.MaxRetries < 1 {
		return Settings{}, fmt.Errorf("MAX_RETRIES must be at least 1, got %d", s.MaxRetries)
	}
	if s.RateLimitRPS <= 0 {
		return Settings{}, fmt.Errorf("RATE_LIMIT_RPS must be positive, got %g", s.RateLimitRPS)
	}
	if s.RawPageSize < 1 {
		return Settings{}, fmt.Errorf("RAW_PAGE_SIZE must be at least 1, got %d", s.RawPageSize)
	}
	if s.LoadBatchSize < 1 {
		return Settings{}, fmt.Errorf("LOAD_BATCH_SIZE must be at least 1, got %d", s.LoadBatchSize)
	}
	return s, nil
}

func getenv(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

func getenvInt(name string, fallback int) int {
	v := os.Getenv(name)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getenvFloat(name string, fallback float64) float64 {
	v := os.Getenv(name)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}
