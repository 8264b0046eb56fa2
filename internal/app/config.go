package app

import (
	"errors"
	"fmt"
	"time"
)

const (
	DefaultBuildfile = "pipeline.hcl"
	DefaultWorkers   = 4
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	BuildfilePath string // file or directory of .hcl files
	Root          string // project root, defaults to the working directory
	Target        string // empty runs the buildfile default

	LogFormat   string
	LogLevel    string
	WorkerCount int
	Debounce    time.Duration
	EnvFile     string
	Listen      string // overrides the buildfile's server address
	Beep        bool
	List        bool
}

// NewConfig validates cfg and fills in defaults.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.BuildfilePath == "" {
		return nil, errors.New("BuildfilePath is a required configuration field and cannot be empty")
	}
	if cfg.Root == "" {
		cfg.Root = "."
	}
	if cfg.WorkerCount < 0 {
		return nil, fmt.Errorf("worker count must not be negative, got %d", cfg.WorkerCount)
	}
	if cfg.WorkerCount == 0 {
		cfg.WorkerCount = DefaultWorkers
	}
	if cfg.Debounce < 0 {
		return nil, fmt.Errorf("debounce must not be negative, got %s", cfg.Debounce)
	}
	return &cfg, nil
}
