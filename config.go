package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"lg/energy-balance-api/internal/energy"
)

// config is read from the environment (optionally seeded from .env).
type config struct {
	DBURL        string
	ListenAddr   string
	PollInterval time.Duration
	Location     *time.Location
	AuthCacheTTL time.Duration
	LogLevel     string
}

// loadConfig reads settings through getenv so tests can supply a map.
func loadConfig(getenv func(string) string) (config, error) {
	cfg := config{
		DBURL:        getenv("DB_URL"),
		ListenAddr:   getenv("LISTEN_ADDR"),
		PollInterval: energy.DefaultPollInterval,
		Location:     time.Local,
		AuthCacheTTL: 5 * time.Minute,
		LogLevel:     getenv("LOG_LEVEL"),
	}
	if cfg.DBURL == "" {
		return cfg, errors.New("DB_URL not set")
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = "localhost:3000"
	}
	if v := getenv("POLL_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return cfg, fmt.Errorf("invalid POLL_INTERVAL %q", v)
		}
		cfg.PollInterval = d
	}
	if v := getenv("TIMEZONE"); v != "" {
		loc, err := time.LoadLocation(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid TIMEZONE: %w", err)
		}
		cfg.Location = loc
	}
	if v := getenv("AUTH_CACHE_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return cfg, fmt.Errorf("invalid AUTH_CACHE_TTL %q", v)
		}
		cfg.AuthCacheTTL = d
	}
	return cfg, nil
}

// envConfig loads from the process environment.
func envConfig() (config, error) { return loadConfig(os.Getenv) }
