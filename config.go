package qobs

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

/*
Config tunes the estimator's worker pool. Every field can be overridden
from the environment through LoadConfig.
*/
type Config struct {
	Workers           int           `env:"QOBS_WORKERS" envDefault:"4"`
	ChunkSize         int           `env:"QOBS_CHUNK_SIZE" envDefault:"1000"`
	SchedulingTimeout time.Duration `env:"QOBS_SCHEDULING_TIMEOUT" envDefault:"10s"`
	JobTimeout        time.Duration `env:"QOBS_JOB_TIMEOUT" envDefault:"30s"`
	ResultTTL         time.Duration `env:"QOBS_RESULT_TTL" envDefault:"1m"`
}

func NewConfig() *Config {
	return &Config{
		Workers:           4,
		ChunkSize:         1000,
		SchedulingTimeout: 10 * time.Second,
		JobTimeout:        30 * time.Second,
		ResultTTL:         time.Minute,
	}
}

// LoadConfig reads QOBS_* environment variables on top of the defaults.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.Workers < 1 {
		return nil, fmt.Errorf("QOBS_WORKERS=%d: %w", cfg.Workers, ErrInvalidOption)
	}
	if cfg.ChunkSize < 1 {
		return nil, fmt.Errorf("QOBS_CHUNK_SIZE=%d: %w", cfg.ChunkSize, ErrInvalidOption)
	}
	return cfg, nil
}
