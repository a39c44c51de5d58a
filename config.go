package aicache

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/unkn0wn-root/aicache/store"
)

// Config is the file-loadable subset of Options. Adapters (embedding client,
// storage backend, audit sinks) are constructed by the host from their own
// sections of its config; this covers the engine knobs.
type Config struct {
	Policy store.Policy `yaml:"policy"`

	SweepInterval  time.Duration `yaml:"sweep_interval"`
	SemanticBudget time.Duration `yaml:"semantic_budget"`
	RecorderQueue  int           `yaml:"recorder_queue"`

	AnalyticsBucket  time.Duration `yaml:"analytics_bucket"`
	AnalyticsBuckets int           `yaml:"analytics_buckets"`
}

// DefaultConfig mirrors the zero-Options defaults.
func DefaultConfig() *Config {
	return &Config{Policy: store.DefaultPolicy()}
}

// LoadConfig reads a YAML config file, expanding ${ENV} references, and
// validates the policy.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	cfg := DefaultConfig()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Policy.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Options converts the config into engine Options. Ports stay nil; set them
// on the returned value before calling New.
func (c *Config) Options() Options {
	return Options{
		Policy:           c.Policy,
		SweepInterval:    c.SweepInterval,
		SemanticBudget:   c.SemanticBudget,
		RecorderQueue:    c.RecorderQueue,
		AnalyticsBucket:  c.AnalyticsBucket,
		AnalyticsBuckets: c.AnalyticsBuckets,
	}
}
