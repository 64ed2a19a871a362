package config

import (
	"os"
	"strconv"
	"time"
)

// Scan captures runtime configuration for a verification run.
type Scan struct {
	LookupURL   string
	Concurrency int
	RetryMax    int
	RetryDelay  time.Duration
	MetricsAddr string
	PostgresDSN string
}

// FromEnv builds a Scan config from environment variables so main stays lean.
// Command-line flags may override individual fields afterwards.
func FromEnv() Scan {
	cfg := Scan{
		LookupURL:   "https://mvic.sos.state.mi.us/Voter/SearchByName",
		Concurrency: 50,
		RetryMax:    5,
		RetryDelay:  5 * time.Second,
	}
	if v := os.Getenv("AVCHECK_URL"); v != "" {
		cfg.LookupURL = v
	}
	if v := envInt("AVCHECK_CONCURRENCY"); v > 0 {
		cfg.Concurrency = v
	}
	if v := envInt("AVCHECK_RETRY_MAX"); v > 0 {
		cfg.RetryMax = v
	}
	if v := envInt("AVCHECK_RETRY_DELAY_SECONDS"); v > 0 {
		cfg.RetryDelay = time.Duration(v) * time.Second
	}
	cfg.MetricsAddr = os.Getenv("AVCHECK_METRICS_ADDR")
	cfg.PostgresDSN = os.Getenv("AVCHECK_PG_DSN")
	return cfg
}

func envInt(key string) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return 0
	}
	return v
}
