// Copyright (c) 2026 Torikomi. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct, providing early validation and default values.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Architecture:

  - Immutability: Once loaded, configuration is read-only.
  - DI-Friendly: Passed to core components (DB, Redis, Fetcher) via constructors.
  - Zero Hidden State: No global variables are used to store config.

This ensures the application is Twelve-Factor compliant by storing config in the env.
*/
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// # Configuration Schema

// Config holds all runtime configuration for the Torikomi worker and stats API.
type Config struct {

	// Server settings (stats API only; the worker is a one-shot process)
	ServerPort  string `env:"SERVER_PORT"  envDefault:"8080"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// Relational store (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL,required"`

	// MigrationPath is the filesystem path to the SQL migrations directory.
	MigrationPath string `env:"MIGRATION_PATH" envDefault:"./data/migrations"`

	// Document store (Redis) holding one image document per chapter
	RedisURL string `env:"REDIS_URL,required"`

	// Upstream source API
	SourceBaseURL string `env:"SOURCE_BASE_URL" envDefault:"https://api.mangadex.org"`

	// PreferredLanguage is the translation that wins chapter supersession.
	PreferredLanguage string `env:"PREFERRED_LANGUAGE" envDefault:"en"`

	// FetchWorkers bounds concurrent per-manga and per-chapter sub-fetches.
	FetchWorkers int `env:"FETCH_WORKERS" envDefault:"4"`

	// LookbackWindow bounds incremental crawls to recently created upstream
	// records. Full crawls ignore it and cursor through the whole catalogue.
	LookbackWindow time.Duration `env:"LOOKBACK_WINDOW" envDefault:"72h"`

	// FullCrawl switches the fetcher from incremental offset pagination to
	// ascending-cursor pagination over the complete upstream catalogue.
	FullCrawl bool `env:"FULL_CRAWL" envDefault:"false"`

	// NotifyWebhookURL receives the cycle summary after a committed run.
	// Empty disables notification.
	NotifyWebhookURL string `env:"NOTIFY_WEBHOOK_URL"`

	// Cross-Origin Resource Sharing
	ExtraOrigins string `env:"EXTRA_ORIGINS"`
}

// # Configuration Loading

// Load parses environment variables into a [Config] struct.
func Load() (*Config, error) {

	// Initialize an empty config struct
	cfg := &Config{}

	// Use the 'env' package to map environment variables to struct fields.
	// This will fail if any field marked with 'required' is missing.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	if cfg.FetchWorkers < 1 {
		return nil, fmt.Errorf("config: FETCH_WORKERS must be at least 1, got %d", cfg.FetchWorkers)
	}

	return cfg, nil
}

// IsDevelopment reports whether the service is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the service is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
