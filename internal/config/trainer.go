package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"
)

const (
	EnvTrainerEndpoint = "CURATOR_TRAINER_ENDPOINT"
	EnvTrainerToken    = "CURATOR_TRAINER_TOKEN"
	EnvTrainerTimeout  = "CURATOR_TRAINER_TIMEOUT"
	EnvTrainerMaxJobs  = "CURATOR_TRAINER_MAX_JOBS"
)

// TrainerConfig holds connection parameters for the external training service.
type TrainerConfig struct {
	Endpoint string `toml:"endpoint"`
	Token    string `toml:"token"`
	Timeout  string `toml:"timeout"`
	// MaxJobs bounds simultaneously running training jobs.
	MaxJobs int `toml:"max_jobs"`
}

// TimeoutDuration returns Timeout as a time.Duration.
func (c *TrainerConfig) TimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
	return d
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *TrainerConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *TrainerConfig) Merge(overlay *TrainerConfig) {
	if overlay.Endpoint != "" {
		c.Endpoint = overlay.Endpoint
	}
	if overlay.Token != "" {
		c.Token = overlay.Token
	}
	if overlay.Timeout != "" {
		c.Timeout = overlay.Timeout
	}
	if overlay.MaxJobs != 0 {
		c.MaxJobs = overlay.MaxJobs
	}
}

func (c *TrainerConfig) loadDefaults() {
	if c.Endpoint == "" {
		c.Endpoint = "http://localhost:8500"
	}
	if c.Timeout == "" {
		c.Timeout = "30m"
	}
	if c.MaxJobs == 0 {
		c.MaxJobs = 2
	}
}

func (c *TrainerConfig) loadEnv() {
	if v := os.Getenv(EnvTrainerEndpoint); v != "" {
		c.Endpoint = v
	}
	if v := os.Getenv(EnvTrainerToken); v != "" {
		c.Token = v
	}
	if v := os.Getenv(EnvTrainerTimeout); v != "" {
		c.Timeout = v
	}
	if v := os.Getenv(EnvTrainerMaxJobs); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.MaxJobs = n
		}
	}
}

func (c *TrainerConfig) validate() error {
	if _, err := url.Parse(c.Endpoint); err != nil {
		return fmt.Errorf("invalid endpoint: %w", err)
	}
	if _, err := time.ParseDuration(c.Timeout); err != nil {
		return fmt.Errorf("invalid timeout: %w", err)
	}
	if c.MaxJobs < 1 {
		return fmt.Errorf("max_jobs must be positive")
	}
	return nil
}
