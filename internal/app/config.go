package app

import (
	"errors"
	"fmt"
	"time"
)

// DefaultWorkers is the size of the generation worker pool.
const DefaultWorkers = 4

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	// ConfigPath points at pyproject.toml or ptm.hcl. When empty the file is
	// discovered by walking up from WorkDir.
	ConfigPath string
	WorkDir    string

	LogFormat    string
	LogLevel     string
	Workers      int
	FetchTimeout time.Duration
	// Python is the interpreter used to evaluate markers.
	Python string
}

// NewConfig validates cfg and fills in defaults.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.ConfigPath == "" && cfg.WorkDir == "" {
		return nil, errors.New("either ConfigPath or WorkDir must be set")
	}

	switch cfg.LogLevel {
	case "":
		cfg.LogLevel = "info"
	case "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("invalid log level %q (want debug, info, warn or error)", cfg.LogLevel)
	}

	switch cfg.LogFormat {
	case "":
		cfg.LogFormat = "text"
	case "text", "json":
	default:
		return nil, fmt.Errorf("invalid log format %q (want text or json)", cfg.LogFormat)
	}

	if cfg.Workers < 0 {
		return nil, fmt.Errorf("workers must not be negative, got %d", cfg.Workers)
	}
	if cfg.Workers == 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.Python == "" {
		cfg.Python = "python3"
	}

	return &cfg, nil
}
