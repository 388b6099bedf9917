// Package config loads the latchd settings from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	latch "github.com/phoenixsite/go-latch"
	"github.com/phoenixsite/go-latch/client"
)

type Config struct {
	LatchAppID        string        `env:"LATCH_APP_ID"`
	LatchSecretKey    string        `env:"LATCH_SECRET_KEY"`
	LatchHTTPBackend  string        `env:"LATCH_HTTP_BACKEND" envDefault:"http"`
	LatchBaseURL      string        `env:"LATCH_BASE_URL" envDefault:"https://latch.tu.com"`
	LatchTimeout      time.Duration `env:"LATCH_TIMEOUT" envDefault:"10s"`
	LatchOutagePolicy string        `env:"LATCH_OUTAGE_POLICY" envDefault:"deny"`
	DatabaseDriver    string        `env:"DATABASE_DRIVER" envDefault:"sqlite"`
	DatabaseDSN       string        `env:"DATABASE_DSN" envDefault:"file:latch.db?cache=shared"`
	SessionSecret     string        `env:"SESSION_SECRET"`
	SessionTTL        time.Duration `env:"SESSION_TTL" envDefault:"12h"`
	HTTPAddr          string        `env:"HTTP_ADDR" envDefault:":8572"`
	LogLevel          string        `env:"LOG_LEVEL" envDefault:"info"`
	RedisURL          string        `env:"REDIS_URL"`
	PairRatePerMinute int           `env:"PAIR_RATE_PER_MINUTE" envDefault:"5"`
	DemoEmail         string        `env:"DEMO_USER_EMAIL"`
	DemoPassword      string        `env:"DEMO_USER_PASSWORD"`
}

// Load parses the environment. Field rules are checked by Validate,
// latch credentials are reported by latch.RunChecks.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}

// Validate will run validation rules
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.LatchBaseURL, validation.Required, is.URL),
		validation.Field(&c.LatchTimeout, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&c.LatchOutagePolicy, validation.In(string(latch.OutageDeny), string(latch.OutageAllow))),
		validation.Field(&c.DatabaseDriver, validation.Required, validation.In("sqlite", "postgres")),
		validation.Field(&c.DatabaseDSN, validation.Required),
		validation.Field(&c.SessionSecret, validation.Required, validation.Length(32, 0)),
		validation.Field(&c.SessionTTL, validation.Required),
		validation.Field(&c.HTTPAddr, validation.Required),
		validation.Field(&c.LogLevel, validation.In("trace", "debug", "info", "warn", "error")),
		validation.Field(&c.RedisURL, is.RequestURL),
		validation.Field(&c.PairRatePerMinute, validation.Required, validation.Min(1)),
		validation.Field(&c.DemoEmail, is.Email),
	)
}

// OutagePolicy returns the parsed outage policy
func (c *Config) OutagePolicy() latch.OutagePolicy {
	policy, err := latch.ParseOutagePolicy(c.LatchOutagePolicy)
	if err != nil {
		return latch.OutageDeny
	}
	return policy
}

// SeedDemoUser reports whether a demo account should be created at startup
func (c *Config) SeedDemoUser() bool {
	return c.DemoEmail != "" && c.DemoPassword != ""
}

// ClientConfig returns the settings for the remote latch client
func (c *Config) ClientConfig() client.Config {
	return client.Config{
		AppID:     c.LatchAppID,
		SecretKey: c.LatchSecretKey,
		Backend:   c.LatchHTTPBackend,
		BaseURL:   c.LatchBaseURL,
		Timeout:   c.LatchTimeout,
	}
}
