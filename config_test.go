package aicache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/unkn0wn-root/aicache/store"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "aicache.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
policy:
  max_size_bytes: 1048576
  default_ttl: 30m
  eviction_policy: lfu
  semantic_threshold: 0.9
  refresh_ttl_on_hit: true
sweep_interval: 5m
semantic_budget: 250ms
recorder_queue: 512
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Policy.MaxSizeBytes != 1<<20 {
		t.Fatalf("max size = %d", cfg.Policy.MaxSizeBytes)
	}
	if cfg.Policy.DefaultTTL != 30*time.Minute {
		t.Fatalf("ttl = %v", cfg.Policy.DefaultTTL)
	}
	if cfg.Policy.Eviction != store.LFU {
		t.Fatalf("eviction = %q", cfg.Policy.Eviction)
	}
	if !cfg.Policy.RefreshTTLOnHit {
		t.Fatal("refresh_ttl_on_hit not parsed")
	}
	if cfg.SemanticBudget != 250*time.Millisecond {
		t.Fatalf("semantic budget = %v", cfg.SemanticBudget)
	}

	opts := cfg.Options()
	if opts.RecorderQueue != 512 || opts.SweepInterval != 5*time.Minute {
		t.Fatalf("options = %+v", opts)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfig(t, "{}\n")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Policy != store.DefaultPolicy() {
		t.Fatalf("policy = %+v, want defaults", cfg.Policy)
	}
}

func TestLoadConfigRejectsInvalidPolicy(t *testing.T) {
	path := writeConfig(t, `
policy:
  semantic_threshold: 2.5
`)

	if _, err := LoadConfig(path); err == nil {
		t.Fatal("invalid policy must fail at load time")
	}
}

func TestLoadConfigExpandsEnv(t *testing.T) {
	t.Setenv("AICACHE_EVICTION", "fifo")
	path := writeConfig(t, `
policy:
  eviction_policy: ${AICACHE_EVICTION}
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Policy.Eviction != store.FIFO {
		t.Fatalf("eviction = %q, want fifo", cfg.Policy.Eviction)
	}
}
